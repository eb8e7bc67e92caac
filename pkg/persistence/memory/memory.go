package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agglayer/exit-tree-go/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of ILETPersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Deep copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Tree storage: networkID -> TreeRecord
	trees map[uint32]*persistence.TreeRecord

	// Closed flag
	closed bool
}

// Ensure MemoryPersistence implements ILETPersistence
var _ persistence.ILETPersistence = (*MemoryPersistence)(nil)

// NewMemoryPersistence creates a new in-memory persistence layer.
// Prints a loud warning since this should only be used for testing.
func NewMemoryPersistence() *MemoryPersistence {
	fmt.Println("⚠️  WARNING: Using in-memory persistence - ALL EXIT TREES WILL BE LOST ON RESTART")
	fmt.Println("⚠️  This should ONLY be used for testing. Set LET_PERSISTENCE_TYPE=badger for production")

	return &MemoryPersistence{
		trees: make(map[uint32]*persistence.TreeRecord),
	}
}

// SaveTree persists a tree record.
func (m *MemoryPersistence) SaveTree(record *persistence.TreeRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil TreeRecord")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	// Deep copy to prevent external mutation
	m.trees[record.NetworkID] = record.Clone()

	return nil
}

// LoadTree retrieves a tree record by network ID.
func (m *MemoryPersistence) LoadTree(networkID uint32) (*persistence.TreeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	record, exists := m.trees[networkID]
	if !exists {
		return nil, nil // Not found is not an error
	}

	// Deep copy to prevent external mutation
	return record.Clone(), nil
}

// ListNetworks returns all network IDs with a stored tree, sorted ascending.
func (m *MemoryPersistence) ListNetworks() ([]uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	networks := make([]uint32, 0, len(m.trees))
	for networkID := range m.trees {
		networks = append(networks, networkID)
	}
	sort.Slice(networks, func(i, j int) bool {
		return networks[i] < networks[j]
	})

	return networks, nil
}

// DeleteTree removes a tree record.
func (m *MemoryPersistence) DeleteTree(networkID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.trees, networkID)
	return nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return nil
}
