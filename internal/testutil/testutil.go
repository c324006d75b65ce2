// Package testutil provides shared test helpers for article directories and a fake Forem API.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/devpub/internal/storage"
)

// TestArticles creates a temporary articles directory with a storage.Provider.
func TestArticles(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, storage.DefaultExt)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteArticle writes content to name inside dir.
func WriteArticle(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
