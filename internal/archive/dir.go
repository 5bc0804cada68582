package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirArchive stores blobs as files in a local directory. Intended for
// folders mirrored by an external sync client (network share, Drive or
// Dropbox mount) and for tests. Writes go through a temp file plus
// rename so a concurrent reader never observes a half-written blob.
type DirArchive struct {
	root string
}

// NewDir creates a directory-backed archive, creating root if needed.
func NewDir(root string) (*DirArchive, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &DirArchive{root: root}, nil
}

// Root returns the backing directory.
func (a *DirArchive) Root() string {
	return a.root
}

// Ping verifies the directory exists and is readable.
func (a *DirArchive) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.ReadDir(a.root); err != nil {
		return fmt.Errorf("archive unreachable: %w", err)
	}
	return nil
}

// Get returns the content of the named blob.
func (a *DirArchive) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(a.root, name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("blob %s: %w", name, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	return data, nil
}

// Put creates or replaces the named blob atomically.
func (a *DirArchive) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(a.root, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp blob for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close blob %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(a.root, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to publish blob %s: %w", name, err)
	}
	return nil
}

// List returns the names of all blobs starting with prefix.
func (a *DirArchive) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(a.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// Skip in-flight temp files.
		if strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}
