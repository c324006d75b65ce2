package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/devpub/internal/apperr"
	"github.com/starford/devpub/internal/models"
)

// DefaultExt is the extension used when none is configured.
const DefaultExt = ".md"

// FS implements Provider backed by a local directory.
type FS struct {
	root string // absolute path to articles directory
	ext  string
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist; otherwise the error wraps apperr.ErrArticlesDirNotFound.
func NewFS(root, ext string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: %w: %s", apperr.ErrArticlesDirNotFound, root)
		}
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: %w: %s is not a directory", apperr.ErrArticlesDirNotFound, root)
	}
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &FS{root: abs, ext: ext}, nil
}

// Root returns the absolute articles directory.
func (f *FS) Root() string { return f.root }

// Ext returns the article extension, including the leading dot.
func (f *FS) Ext() string { return f.ext }

// safePath resolves a file name inside the root and rejects anything that
// is not a direct child of it.
func (f *FS) safePath(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned == "." || filepath.IsAbs(cleaned) || strings.ContainsRune(cleaned, filepath.Separator) || cleaned == ".." {
		return "", fmt.Errorf("storage: invalid article name: %s", name)
	}
	return filepath.Join(f.root, cleaned), nil
}

// List returns every non-directory entry with the article extension directly
// under the root. Subdirectories are not descended into. Files are not opened
// here, so an unreadable entry only fails when it is read.
func (f *FS) List() ([]models.ArticleFile, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.ArticleFile
	for _, e := range entries {
		if e.IsDir() || !f.Match(e.Name()) {
			continue
		}
		out = append(out, models.ArticleFile{Name: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Match reports whether name carries the article extension.
func (f *FS) Match(name string) bool {
	return filepath.Ext(name) == f.ext
}

// Read returns the raw bytes of an article file.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}
