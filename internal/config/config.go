// =============================================================================
// SEPA Export - Configuration Module
// =============================================================================
//
// Loads the application configuration from a YAML file. Everything the
// engine reads from its environment lives here: the record store location,
// the fixed read-only locations of the message template and the canonical
// schema, the output directory for generated files, and the currency
// stamped on instructed amounts.
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	// DatabasePath is the SQLite database holding payments, journals,
	// companies, and the generated SEPA files.
	// Default: "./sepa.db"
	DatabasePath string `yaml:"database_path"`

	// TemplatesDir is the directory containing the XML message template
	// (sepa_template.xml). Treated as read-only.
	// Default: "./templates"
	TemplatesDir string `yaml:"templates_dir"`

	// SchemaPath is the canonical XSD for the message version. Loaded once
	// and treated as immutable for the lifetime of the process.
	// Default: "./schemas/pain.001.001.03.xsd"
	SchemaPath string `yaml:"schema_path"`

	// OutputDir is where generated XML files and run reports are written,
	// in addition to the database rows.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// Currency is the ISO 4217 code stamped on every instructed amount.
	// The engine is single-currency.
	// Default: "EUR"
	Currency string `yaml:"currency"`

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatabasePath: "./sepa.db",
		TemplatesDir: "./templates",
		SchemaPath:   "./schemas/pain.001.001.03.xsd",
		OutputDir:    "./output",
		Currency:     "EUR",
		LogLevel:     "info",
	}
}

// Load reads the configuration at path. Fields missing from the file keep
// their defaults. A missing file is not an error: the defaults apply, so
// the tool runs without any configuration in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.TemplatesDir == "" {
		return fmt.Errorf("templates_dir must not be empty")
	}
	if c.SchemaPath == "" {
		return fmt.Errorf("schema_path must not be empty")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("currency must be a three-letter ISO code, got %q", c.Currency)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}
