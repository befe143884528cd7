package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// DiskStore writes images into a local directory served under URLPrefix.
type DiskStore struct {
	Dir       string
	URLPrefix string
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: creating %s: %w", dir, err)
	}
	return &DiskStore{Dir: dir, URLPrefix: urlPrefix}, nil
}

// Save writes to a temporary file first and renames it into place, so a
// half-written upload is never visible under name.
func (d *DiskStore) Save(ctx context.Context, name string, r io.Reader) error {
	if name != filepath.Base(name) {
		return fmt.Errorf("upload: %q is not a bare file name", name)
	}

	tmp, err := os.CreateTemp(d.Dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("upload: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("upload: writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("upload: closing %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("upload: chmod %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.Dir, name)); err != nil {
		return fmt.Errorf("upload: storing %s: %w", name, err)
	}
	return nil
}

// Remove deletes name from the directory.
func (d *DiskStore) Remove(_ context.Context, name string) error {
	if name != filepath.Base(name) {
		return fmt.Errorf("upload: %q is not a bare file name", name)
	}
	if err := os.Remove(filepath.Join(d.Dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("upload: removing %s: %w", name, err)
	}
	return nil
}

func (d *DiskStore) URL(name string) string {
	return d.URLPrefix + "/" + url.PathEscape(name)
}
