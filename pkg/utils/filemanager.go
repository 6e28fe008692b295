// =============================================================================
// SEPA Export - File Manager Utility
// =============================================================================
//
// Writes generated artifacts to the output directory. The database is the
// system of record; the on-disk copies exist so operators can hand the
// files to a bank portal without touching the store. File names combine
// the reference (slashes flattened) with a random UUID so repeated exports
// on the same day never collide on disk.
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileManager handles output file operations for the exporter.
type FileManager struct {
	// OutputDir is the directory where generated XML files and run reports
	// are placed.
	OutputDir string
}

// NewFileManager creates a FileManager for the given output directory.
func NewFileManager(outputDir string) *FileManager {
	return &FileManager{OutputDir: outputDir}
}

// EnsureDirectories creates the output directory if it does not exist.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// ArtifactFileName derives the on-disk name for a reference:
// "J1-20240501-001_<uuid>.xml".
func ArtifactFileName(reference string) string {
	flat := strings.ReplaceAll(reference, string(filepath.Separator), "-")
	flat = strings.ReplaceAll(flat, "/", "-")
	return fmt.Sprintf("%s_%s.xml", flat, uuid.New().String())
}

// WriteArtifact writes one rendered document under the output directory and
// returns the full path written.
func (fm *FileManager) WriteArtifact(reference string, data []byte) (string, error) {
	path := filepath.Join(fm.OutputDir, ArtifactFileName(reference))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", path, err)
	}
	return path, nil
}
