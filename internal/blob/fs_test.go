package blob

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pagemark/pagemark/internal/checksum"
)

func newTestFS(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, blobs
}

func TestLocation(t *testing.T) {
	if got := Location("abc123"); got != "abc123.pdf" {
		t.Errorf("Location = %q, want abc123.pdf", got)
	}
}

func TestFS_PutAndOpen(t *testing.T) {
	dir, blobs := newTestFS(t)
	ctx := context.Background()
	data := []byte("%PDF-1.4 test content")

	digest, err := blobs.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if digest != checksum.Sum(data) {
		t.Errorf("digest = %q, want %q", digest, checksum.Sum(data))
	}
	if _, err := os.Stat(filepath.Join(dir, Location(digest))); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	rc, err := blobs.Open(ctx, Location(digest))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("content mismatch: %q", got)
	}
}

func TestFS_PutIdempotent(t *testing.T) {
	dir, blobs := newTestFS(t)
	ctx := context.Background()
	data := []byte("%PDF-1.4 same bytes")

	d1, err := blobs.Put(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := blobs.Put(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("digests differ: %q vs %q", d1, d2)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected a single stored file, got %d", len(entries))
	}
}

func TestFS_PutLeavesNoTempFiles(t *testing.T) {
	dir, blobs := newTestFS(t)
	if _, err := blobs.Put(context.Background(), []byte("%PDF-1.4 x")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".pagemark-tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestFS_OpenMissing(t *testing.T) {
	_, blobs := newTestFS(t)
	_, err := blobs.Open(context.Background(), Location("deadbeef"))
	if err == nil {
		t.Fatal("expected error for missing object")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestFS_RemoveAbsentIsOK(t *testing.T) {
	_, blobs := newTestFS(t)
	if err := blobs.Remove(context.Background(), Location("deadbeef")); err != nil {
		t.Errorf("removing absent object should not error: %v", err)
	}
}

func TestFS_Remove(t *testing.T) {
	dir, blobs := newTestFS(t)
	ctx := context.Background()

	digest, err := blobs.Put(ctx, []byte("%PDF-1.4 bye"))
	if err != nil {
		t.Fatal(err)
	}
	if err := blobs.Remove(ctx, Location(digest)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, Location(digest))); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
}

func TestFS_RejectsTraversal(t *testing.T) {
	_, blobs := newTestFS(t)
	ctx := context.Background()

	for _, loc := range []string{"../escape.pdf", "/etc/passwd", "a/../../b.pdf", ""} {
		if _, err := blobs.Open(ctx, loc); err == nil {
			t.Errorf("Open(%q) should be rejected", loc)
		}
		if err := blobs.Remove(ctx, loc); err == nil {
			t.Errorf("Remove(%q) should be rejected", loc)
		}
	}
}

func TestNewFS_MissingDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("NewFS should fail for a missing directory")
	}
}
