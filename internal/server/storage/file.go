package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/hashdrive/internal/hasher"
)

// FileBackend keeps each blob at {base}/{fp[:2]}/{fp}.
type FileBackend struct {
	base string
	mu   sync.RWMutex
}

var _ Backend = (*FileBackend)(nil)

func NewFileBackend(base string) (*FileBackend, error) {
	if err := os.MkdirAll(base, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrIOFailure, base, err)
	}
	return &FileBackend{base: base}, nil
}

func (b *FileBackend) path(fp hasher.Fingerprint) string {
	return filepath.Join(b.base, fp.Shard(), fp.String())
}

func ioErr(op string, err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %s: %w", ErrStoreFull, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrIOFailure, op, err)
}

// Put writes data through a temp file and an atomic rename.
func (b *FileBackend) Put(ctx context.Context, fp hasher.Fingerprint, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	dst := b.path(fp)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ioErr("mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return ioErr("create temp", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ioErr("write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return ioErr("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("close", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return ioErr("rename", err)
	}
	return nil
}

func (b *FileBackend) Get(ctx context.Context, fp hasher.Fingerprint) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := os.ReadFile(b.path(fp))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, ioErr("read", err)
	}
	return data, nil
}

func (b *FileBackend) Has(ctx context.Context, fp hasher.Fingerprint) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, err := os.Stat(b.path(fp))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, ioErr("stat", err)
	}
}

func (b *FileBackend) Delete(ctx context.Context, fp hasher.Fingerprint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.path(fp)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioErr("remove", err)
	}
	return nil
}
