package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/skipgo/internal/mmap"
)

// LocalStore implements BlobStore using the local file system.
// Reads are memory-mapped, which is the cheapest option for the random
// access patterns of skip-list seeks.
type LocalStore struct {
	root string
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

var _ BlobStore = (*LocalStore)(nil)

// Open opens a blob for reading.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	m, err := mmap.Open(filepath.Join(s.root, name))
	if err != nil {
		return nil, err
	}
	return &localBlob{m: m}, nil
}

// Create creates a new writable blob. The blob is written to a temporary
// file and renamed into place on Close, so readers never observe a partial
// write.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	path := filepath.Join(s.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, err
	}
	_ = tmp.Chmod(0o644)
	return &localWritableBlob{f: tmp, path: path}, nil
}

// Put writes a blob atomically.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Delete removes a blob.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(s.root, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns all blob names with the given prefix.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return names, err
}

type localBlob struct {
	m *mmap.Mapping
}

func (b *localBlob) ReadAt(p []byte, off int64) (int, error) {
	return b.m.ReadAt(p, off)
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

func (b *localBlob) Size() int64 {
	return int64(b.m.Size())
}

func (b *localBlob) Bytes() ([]byte, error) {
	return b.m.Bytes(), nil
}

type localWritableBlob struct {
	f    *os.File
	path string
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWritableBlob) Sync() error {
	return w.f.Sync()
}

func (w *localWritableBlob) Close() error {
	tmpName := w.f.Name()
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(filepath.Dir(w.path)); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
