// Package storage defines the file-system abstraction for recipe and layout files.
package storage

import "github.com/starford/recipebox/internal/models"

// Provider is the interface for rooted file operations. All paths are
// relative to the provider root and may not escape it.
type Provider interface {
	// List returns metadata for every non-hidden file under dir whose name ends in ext.
	List(dir, ext string) ([]models.FileMetadata, error)
	// Stat returns metadata for a single file.
	Stat(path string) (models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Create atomically writes content to path, failing if path already exists.
	Create(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Root returns the absolute root directory.
	Root() string
}
