package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactFileName(t *testing.T) {
	name := ArtifactFileName("J1/20240501/001")
	assert.True(t, strings.HasPrefix(name, "J1-20240501-001_"), "got %q", name)
	assert.True(t, strings.HasSuffix(name, ".xml"), "got %q", name)
	assert.NotContains(t, name, "/")
}

func TestArtifactFileNameUnique(t *testing.T) {
	a := ArtifactFileName("J1/20240501/001")
	b := ArtifactFileName("J1/20240501/001")
	assert.NotEqual(t, a, b)
}

func TestWriteArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	fm := NewFileManager(dir)
	require.NoError(t, fm.EnsureDirectories())

	path, err := fm.WriteArtifact("J1/20240501/001", []byte("<Document/>"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("<Document/>"), data)
}

func TestWriteArtifactMissingDirectory(t *testing.T) {
	fm := NewFileManager(filepath.Join(t.TempDir(), "does", "not", "exist"))
	_, err := fm.WriteArtifact("J1/20240501/001", []byte("<Document/>"))
	require.Error(t, err)
}
