package persistence

// ILETPersistence defines the interface for persisting local exit trees across restarts.
// All implementations must be thread-safe as the ledger serves many networks concurrently.
//
// The interface supports:
// - Tree record management (save, load, list, delete), one record per network ID
// - Lifecycle management (close, health check)
//
// Trees are append-only, so a saved record always supersedes the previous one
// for the same network.
type ILETPersistence interface {
	// Tree Management

	// SaveTree persists the full state of one network's local exit tree.
	// Overwrites any existing record for the same network ID.
	SaveTree(record *TreeRecord) error

	// LoadTree retrieves the tree record of a network.
	// Returns nil if no record exists, error only on storage failure.
	LoadTree(networkID uint32) (*TreeRecord, error)

	// ListNetworks returns the IDs of all networks with a persisted tree, sorted ascending.
	// Returns empty slice if none exist, error only on storage failure.
	ListNetworks() ([]uint32, error)

	// DeleteTree removes the tree record of a network.
	// Idempotent - returns nil if the record doesn't exist.
	// Returns error only on storage failure.
	DeleteTree(networkID uint32) error

	// Lifecycle Management

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	// Returns nil if healthy, error describing the problem if not.
	// Should be called during startup to fail fast.
	HealthCheck() error
}
