package repository

import (
	"context"
	"fmt"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"slices"
	"sync"
)

type memorySnapshot struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Snapshot
}

// NewMemorySnapshot keeps snapshots in process; they do not survive a restart.
func NewMemorySnapshot() port.SnapshotStore {
	return &memorySnapshot{snapshots: make(map[string]domain.Snapshot)}
}

func (m *memorySnapshot) Load(_ context.Context, sessionID string) (domain.Snapshot, error) {
	if sessionID == "" {
		return domain.Snapshot{}, fmt.Errorf("sessionID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot, ok := m.snapshots[sessionID]
	if !ok {
		return domain.Snapshot{}, port.ErrSnapshotNotFound
	}
	snapshot.Items = slices.Clone(snapshot.Items)

	return snapshot, nil
}

func (m *memorySnapshot) Save(_ context.Context, sessionID string, snapshot domain.Snapshot) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.snapshots[sessionID]; ok && current.Version >= snapshot.Version {
		return nil
	}
	snapshot.Items = slices.Clone(snapshot.Items)
	m.snapshots[sessionID] = snapshot

	return nil
}

func (m *memorySnapshot) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.snapshots, sessionID)

	return nil
}
