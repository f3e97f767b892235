package cart

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/storage"

	"go.uber.org/zap"
)

// Manager hands out one Store per cart profile. Stores are created
// lazily, rehydrating from storage on first use, and live for the rest
// of the process. Two profiles never share in-memory state; the storage
// slot itself is last-writer-wins across processes.
type Manager struct {
	kv        storage.KV
	keyPrefix string
	logger    *zap.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a manager persisting carts under keyPrefix
func NewManager(kv storage.KV, keyPrefix string, logger *zap.Logger) *Manager {
	return &Manager{
		kv:        kv,
		keyPrefix: keyPrefix,
		logger:    logger,
		stores:    make(map[string]*Store),
	}
}

// Store returns the store for the given cart profile, creating and
// rehydrating it on first use.
func (m *Manager) Store(ctx context.Context, profileID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[profileID]; ok {
		return store
	}

	key := fmt.Sprintf("%s:%s", m.keyPrefix, profileID)
	store := NewStore(ctx, m.kv, key, m.logger)
	m.stores[profileID] = store
	return store
}

// Flush waits for outstanding snapshot writes on every store. Called on
// shutdown so the last mutations reach storage.
func (m *Manager) Flush() {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for _, store := range m.stores {
		stores = append(stores, store)
	}
	m.mu.Unlock()

	for _, store := range stores {
		store.Flush()
	}
}
