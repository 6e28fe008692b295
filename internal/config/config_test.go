package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_path: /var/lib/sepa/sepa.db\ncurrency: USD\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sepa/sepa.db", cfg.DatabasePath)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "./templates", cfg.TemplatesDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("currency: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"empty database path", func(c *Config) { c.DatabasePath = "" }, false},
		{"empty templates dir", func(c *Config) { c.TemplatesDir = "" }, false},
		{"empty schema path", func(c *Config) { c.SchemaPath = "" }, false},
		{"bad currency", func(c *Config) { c.Currency = "EURO" }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, false},
		{"debug log level", func(c *Config) { c.LogLevel = "debug" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
