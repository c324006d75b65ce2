// Package storage defines the article directory abstraction.
package storage

import "github.com/starford/devpub/internal/models"

// Provider is the interface for article file operations.
type Provider interface {
	// List returns every article file directly under the root, sorted by name.
	List() ([]models.ArticleFile, error)
	// Read returns the raw bytes of the named article file.
	Read(name string) ([]byte, error)
	// Root returns the absolute path of the article directory.
	Root() string
	// Ext returns the file extension that marks article files.
	Ext() string
	// Match reports whether name carries the article extension.
	Match(name string) bool
}
