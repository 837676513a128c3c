package storage

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/hashdrive/internal/hasher"
)

// MemoryBackend keeps blobs in a map. A positive capacity bounds the total
// number of stored bytes.
type MemoryBackend struct {
	mu       sync.RWMutex
	blobs    map[hasher.Fingerprint][]byte
	used     int64
	capacity int64
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend(capacity int64) *MemoryBackend {
	return &MemoryBackend{blobs: make(map[hasher.Fingerprint][]byte), capacity: capacity}
}

func (m *MemoryBackend) Put(ctx context.Context, fp hasher.Fingerprint, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[fp]; ok {
		return nil
	}
	if m.capacity > 0 && m.used+int64(len(data)) > m.capacity {
		return ErrStoreFull
	}
	m.blobs[fp] = append([]byte(nil), data...)
	m.used += int64(len(data))
	return nil
}

func (m *MemoryBackend) Get(ctx context.Context, fp hasher.Fingerprint) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[fp]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBackend) Has(ctx context.Context, fp hasher.Fingerprint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[fp]
	return ok, nil
}

func (m *MemoryBackend) Delete(ctx context.Context, fp hasher.Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used -= int64(len(m.blobs[fp]))
	delete(m.blobs, fp)
	return nil
}

// Len returns the number of stored blobs.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Corrupt overwrites the bytes stored under fp, bypassing content addressing.
// It exists to exercise integrity checks.
func (m *MemoryBackend) Corrupt(fp hasher.Fingerprint, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[fp] = data
}
