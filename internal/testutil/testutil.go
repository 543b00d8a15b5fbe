// Package testutil provides shared test helpers for setting up stores and blob dirs.
package testutil

import (
	"os"
	"testing"

	"github.com/pagemark/pagemark/internal/blob"
	"github.com/pagemark/pagemark/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "pagemark-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestBlobs creates a temporary uploads directory with an FS blob provider.
func TestBlobs(t *testing.T) (string, *blob.FS) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blob.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, blobs
}
