package storage

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FS stores objects as files below a root directory of an afero filesystem.
type FS struct {
	fs   afero.Fs
	root string
}

var _ Storage = (*FS)(nil)

// NewFS returns an FS rooted at root. An empty root means the current
// directory.
func NewFS(fs afero.Fs, root string) (*FS, error) {
	if fs == nil {
		return nil, errors.New("storage: filesystem is required")
	}
	if root == "" {
		root = "."
	}
	return &FS{fs: fs, root: root}, nil
}

// Fs returns the underlying filesystem.
func (s *FS) Fs() afero.Fs { return s.fs }

// Put writes data to p through a temporary file that is renamed into
// place, so readers never see a partial document.
func (s *FS) Put(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolvePath(p)
	if err != nil {
		return err
	}

	dir := filepath.Dir(target)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := afero.TempFile(s.fs, dir, ".pdfwrap-*")
	if err != nil {
		return err
	}
	// Some afero filesystems rename the open handle too, so the temp name
	// is captured before anything can move it.
	tmpName := tmp.Name()
	closed, committed := false, false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if !committed {
			_ = s.fs.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := s.fs.Rename(tmpName, target); err != nil {
		return err
	}
	committed = true
	return nil
}

// resolvePath keeps every key below root. Absolute keys are taken as
// relative to root and ".." segments cannot climb out of it.
func (s *FS) resolvePath(p string) (string, error) {
	if p == "" {
		return "", errors.New("storage: path is required")
	}

	rel := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
	if rel == "" || rel == "." {
		return "", errors.New("storage: invalid path " + p)
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}
