package bolt

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/agglayer/exit-tree-go/pkg/persistence"
)

const (
	dbFileName           = "exit-trees.db"
	currentSchemaVersion = "v1"
)

var (
	bucketTrees    = []byte("trees")
	bucketMetadata = []byte("metadata")

	keySchemaVersion = []byte("schema_version")
)

// BoltPersistence stores exit trees in a single BoltDB file. Pure Go with no
// background work, suited to single-process deployments.
type BoltPersistence struct {
	db     *bbolt.DB
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

var _ persistence.ILETPersistence = (*BoltPersistence)(nil)

// NewBoltPersistence opens (or creates) exit-trees.db inside dataPath.
func NewBoltPersistence(dataPath string, logger *zap.Logger) (*BoltPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", absPath, err)
	}

	dbPath := filepath.Join(absPath, dbFileName)
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistArrayType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database at %s: %w", dbPath, err)
	}

	bp := &BoltPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Bolt persistence initialized", "path", dbPath)

	return bp, nil
}

func treeKey(networkID uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, networkID)
	return key
}

// initSchema creates the buckets and initializes or validates the schema version
func (b *BoltPersistence) initSchema() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketTrees); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMetadata)
		if err != nil {
			return err
		}

		existing := meta.Get(keySchemaVersion)
		if existing == nil {
			return meta.Put(keySchemaVersion, []byte(currentSchemaVersion))
		}
		if string(existing) != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
		}
		return nil
	})
}

// SaveTree persists a tree record, replacing any previous record for the network
func (b *BoltPersistence) SaveTree(record *persistence.TreeRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil TreeRecord")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalTreeRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal TreeRecord: %w", err)
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTrees).Put(treeKey(record.NetworkID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save tree for network %d: %w", record.NetworkID, err)
	}
	return nil
}

// LoadTree retrieves the tree record for a network. Returns nil, nil when absent.
func (b *BoltPersistence) LoadTree(networkID uint32) (*persistence.TreeRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		// Values are only valid for the life of the transaction
		if v := tx.Bucket(bucketTrees).Get(treeKey(networkID)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tree for network %d: %w", networkID, err)
	}
	if data == nil {
		return nil, nil
	}

	record, err := persistence.UnmarshalTreeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tree for network %d: %w", networkID, err)
	}
	return record, nil
}

// ListNetworks returns the IDs of all stored trees in ascending order
func (b *BoltPersistence) ListNetworks() ([]uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	networks := []uint32{}
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTrees).ForEach(func(k, _ []byte) error {
			if len(k) != 4 {
				b.logger.Sugar().Warnw("Skipping malformed tree key", "key", fmt.Sprintf("%x", k))
				return nil
			}
			networks = append(networks, binary.BigEndian.Uint32(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}
	return networks, nil
}

// DeleteTree removes the tree record for a network. Deleting a missing record is not an error.
func (b *BoltPersistence) DeleteTree(networkID uint32) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTrees).Delete(treeKey(networkID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete tree for network %d: %w", networkID, err)
	}
	return nil
}

// Close closes the database file
func (b *BoltPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close bolt database: %w", err)
	}

	b.logger.Sugar().Info("Bolt persistence closed")
	return nil
}

// HealthCheck verifies the schema marker is readable
func (b *BoltPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		if meta == nil || meta.Get(keySchemaVersion) == nil {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return nil
	})
}
