package store

import (
	"context"
	"errors"
	"maps"
	"sync"
)

var (
	ErrConflict        = errors.New("document changed since it was read")
	ErrCorruptDocument = errors.New("stored document is not valid JSON")
)

// KV is the key-value collaborator. Get reports ok=false for a missing key.
// GetMany reads several keys as one consistent view and omits missing keys.
// Update writes all entries atomically.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	Update(ctx context.Context, entries map[string]string) error
}

type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: map[string]string{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *MemoryKV) GetMany(_ context.Context, keys ...string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.entries[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *MemoryKV) Update(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.entries, entries)
	return nil
}
