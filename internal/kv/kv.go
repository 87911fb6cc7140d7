// Package kv is the narrow key-value surface the surrounding application
// stores its session state behind (device tokens, in-flight ledgers). The
// core never touches it; it is injected plumbing with an explicit reset.
package kv

import (
	"context"
	"sync"
)

// Store is deliberately minimal: opaque string keys, opaque byte values.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process Store, safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{values: map[string][]byte{}}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Reset drops every stored value; the explicit session-clear operation.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = map[string][]byte{}
}
