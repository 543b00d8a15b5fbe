package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pagemark/pagemark/internal/checksum"
)

// FS implements Provider backed by a local directory.
// Objects are plain files named <digest>.pdf directly under the root.
type FS struct {
	root string // absolute path to uploads directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("blob: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blob: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a store-relative location against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("blob: empty location")
	}
	cleaned := filepath.Clean(location)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("blob: absolute locations not allowed: %s", location)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("blob: resolve location: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("blob: location escapes uploads root: %s", location)
	}
	return abs, nil
}

// Put stores data at the location derived from its digest and returns the
// digest. When a file for that digest already exists the write is skipped.
func (f *FS) Put(_ context.Context, data []byte) (string, error) {
	digest := checksum.Sum(data)
	abs, err := f.safePath(Location(digest))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err == nil {
		return digest, nil
	}

	tmp, err := os.CreateTemp(f.root, ".pagemark-tmp-*")
	if err != nil {
		return "", fmt.Errorf("blob: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("blob: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("blob: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("blob: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("blob: rename: %w", err)
	}
	success = true
	return digest, nil
}

// Open returns a reader for the file at location.
func (f *FS) Open(_ context.Context, location string) (io.ReadCloser, error) {
	abs, err := f.safePath(location)
	if err != nil {
		return nil, err
	}
	rc, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("blob: open %s: %w", location, err)
	}
	return rc, nil
}

// Remove deletes the file at location. An already-absent file is not an error.
func (f *FS) Remove(_ context.Context, location string) error {
	abs, err := f.safePath(location)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob: remove %s: %w", location, err)
	}
	return nil
}
