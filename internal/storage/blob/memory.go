package blob

import (
	"context"
	"fmt"
	"sync"
	"time"

	editingRepo "casefile/internal/domain/repositories/editing"
)

type memoryObject struct {
	data     []byte
	archived bool
	restore  editingRepo.RestoreStatus
}

// MemoryStore is an in-process ContentStore. Archive, CompleteRestore and
// ExpireRestore stand in for the bucket lifecycle and Glacier.
type MemoryStore struct {
	mu         sync.RWMutex
	objects    map[string]*memoryObject
	minRestore time.Duration
	maxRestore time.Duration
}

// NewMemoryStore creates an empty store reporting the given restore window
func NewMemoryStore(minRestore, maxRestore time.Duration) *MemoryStore {
	return &MemoryStore{
		objects:    make(map[string]*memoryObject),
		minRestore: minRestore,
		maxRestore: maxRestore,
	}
}

func (m *MemoryStore) Put(_ context.Context, key string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &memoryObject{
		data:    append([]byte(nil), content...),
		restore: editingRepo.RestoreNone,
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	if obj.archived && obj.restore != editingRepo.RestoreDone {
		return nil, fmt.Errorf("object %s: %w", key, editingRepo.ErrContentArchived)
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *MemoryStore) RequestRestore(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return fmt.Errorf("object %s not found", key)
	}
	if obj.archived && obj.restore == editingRepo.RestoreNone {
		obj.restore = editingRepo.RestoreOngoing
	}
	return nil
}

func (m *MemoryStore) RestoreStatus(_ context.Context, key string) (editingRepo.RestoreStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	if !obj.archived {
		return editingRepo.RestoreDone, nil
	}
	return obj.restore, nil
}

func (m *MemoryStore) RestoreWindow() (time.Duration, time.Duration) {
	return m.minRestore, m.maxRestore
}

// Archive moves key into archive storage, dropping any restored copy
func (m *MemoryStore) Archive(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[key]; ok {
		obj.archived = true
		obj.restore = editingRepo.RestoreNone
	}
}

// Unarchive moves key back to a readable class
func (m *MemoryStore) Unarchive(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[key]; ok {
		obj.archived = false
		obj.restore = editingRepo.RestoreNone
	}
}

// CompleteRestore finishes an ongoing restore of key
func (m *MemoryStore) CompleteRestore(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[key]; ok && obj.restore == editingRepo.RestoreOngoing {
		obj.restore = editingRepo.RestoreDone
	}
}

// ExpireRestore drops the restored copy of key
func (m *MemoryStore) ExpireRestore(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[key]; ok && obj.archived {
		obj.restore = editingRepo.RestoreNone
	}
}

// Keys lists stored keys, for diagnostics and tests
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
