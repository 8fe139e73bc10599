// Package files manages the local content store where crawled file bodies
// are staged for downstream extraction.
package files

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirPerm = 0o750

// Storage lays out uploaded content under a base directory, one subdirectory
// per library.
type Storage struct {
	baseDir string
}

// NewStorage creates a content store rooted at baseDir.
func NewStorage(baseDir string) *Storage {
	return &Storage{baseDir: baseDir}
}

// UploadPath returns the content path for a library file.
func (s *Storage) UploadPath(libraryID, fileID string) string {
	return filepath.Join(s.baseDir, libraryID, fileID)
}

// Write stages a file body, creating the library directory as needed.
func (s *Storage) Write(libraryID, fileID string, content []byte) error {
	dir := filepath.Join(s.baseDir, libraryID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(s.UploadPath(libraryID, fileID), content, 0o640); err != nil {
		return fmt.Errorf("failed to write upload content: %w", err)
	}
	return nil
}

// Read returns a staged file body.
func (s *Storage) Read(libraryID, fileID string) ([]byte, error) {
	content, err := os.ReadFile(s.UploadPath(libraryID, fileID))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload content: %w", err)
	}
	return content, nil
}

// Remove deletes a staged file body. A missing file is not an error.
func (s *Storage) Remove(libraryID, fileID string) error {
	err := os.Remove(s.UploadPath(libraryID, fileID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove upload content: %w", err)
	}
	return nil
}

// TempPath returns a process-unique scratch path for staging conversions.
func TempPath(pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return name, nil
}
