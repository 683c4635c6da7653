package storageprovider

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/tracesmith/tracesmith/internal/storageutil"
)

// LocalFS implements storageutil.ObjectHandler against a plain directory,
// the no-infrastructure fallback for file:// and bare-path destinations
// that don't need GCS or Badger.
type LocalFS struct {
	Root string
}

func (l *LocalFS) path(name string) string {
	if l.Root == "" {
		return name
	}
	return filepath.Join(l.Root, name)
}

// Put writes a file to the storage provider with name being the path.
func (l *LocalFS) Put(ctx context.Context, name string) (io.WriteCloser, error) {
	path := l.path(name)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

// Get reads a file from the storage provider with name being the path.
// If a key was not found, it will return ErrObjectNotFound.
func (l *LocalFS) Get(ctx context.Context, name string) (storageutil.ReadSizeCloser, error) {
	f, err := os.Open(l.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storageutil.ErrObjectNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &localFile{File: f, size: info.Size()}, nil
}

type localFile struct {
	*os.File
	size int64
}

func (l *localFile) Size() int64 {
	return l.size
}
