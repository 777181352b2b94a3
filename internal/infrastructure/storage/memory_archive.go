package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
)

var _ reconciliation.StatementArchive = (*MemoryStatementArchive)(nil)

// MemoryStatementArchive keeps statements in process memory. It backs the
// server when object storage is disabled and is used in tests.
type MemoryStatementArchive struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	// BaseURL prefixes generated download links
	BaseURL string
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStatementArchive creates an empty in-memory archive
func NewMemoryStatementArchive() *MemoryStatementArchive {
	return &MemoryStatementArchive{
		objects: make(map[string]memoryObject),
		BaseURL: "memory://statements",
	}
}

// Put stores a copy of data under key
func (m *MemoryStatementArchive) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrKeyRequired
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.objects[key] = memoryObject{data: cp, contentType: contentType}
	m.mu.Unlock()
	return nil
}

// Get returns the stored bytes
func (m *MemoryStatementArchive) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return obj.data, nil
}

// DownloadURL returns a non-presigned link valid for fifteen minutes
func (m *MemoryStatementArchive) DownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	ok, err := m.Exists(ctx, key)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		return "", time.Time{}, ErrObjectNotFound
	}
	return m.BaseURL + "/" + key, time.Now().Add(15 * time.Minute), nil
}

// Exists reports whether key is stored
func (m *MemoryStatementArchive) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	return ok, nil
}

// Delete removes key; deleting a missing key succeeds
func (m *MemoryStatementArchive) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// ContentType returns the content type recorded for key
func (m *MemoryStatementArchive) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}

// Len returns the number of stored statements
func (m *MemoryStatementArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
