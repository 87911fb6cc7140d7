package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docfirma/docfirma/internal/kv"
)

const deviceTokenKey = "device-token"

// fileStore is a kv.Store persisted as one JSON file. It backs the CLI's
// device identity across runs; deployed functions use the Firestore store
// instead.
type fileStore struct {
	path string
}

func openStateStore(path string) (kv.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("no state path configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	return &fileStore{path: path}, nil
}

func (s *fileStore) load() (map[string][]byte, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	var m map[string][]byte
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}
	return m, nil
}

func (s *fileStore) save(m map[string][]byte) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

func (s *fileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m, err := s.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (s *fileStore) Set(_ context.Context, key string, value []byte) error {
	m, err := s.load()
	if err != nil {
		return err
	}
	m[key] = value
	return s.save(m)
}

func (s *fileStore) Delete(_ context.Context, key string) error {
	m, err := s.load()
	if err != nil {
		return err
	}
	delete(m, key)
	return s.save(m)
}
