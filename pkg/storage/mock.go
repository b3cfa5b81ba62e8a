package storage

import (
	"context"
	"fmt"
	"sync"
)

// MockStore is an in-memory ArtifactStore for tests and dev mode.
type MockStore struct {
	mu      sync.Mutex
	stored  []StoredCall
	failErr error
}

// StoredCall records one Store invocation.
type StoredCall struct {
	LocalPath string
	Key       string
}

// NewMockStore returns an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// FailWith makes subsequent Store calls return err.
func (m *MockStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

func (m *MockStore) Store(ctx context.Context, localPath, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.stored = append(m.stored, StoredCall{LocalPath: localPath, Key: key})
	return nil
}

func (m *MockStore) FetchURL(ctx context.Context, key string) (string, error) {
	return fmt.Sprintf("mock://artifacts/%s", key), nil
}

// Calls returns a copy of all recorded Store calls.
func (m *MockStore) Calls() []StoredCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StoredCall, len(m.stored))
	copy(out, m.stored)
	return out
}
