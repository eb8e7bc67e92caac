package leveldb

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/agglayer/exit-tree-go/pkg/persistence"
)

const (
	keyPrefixTree        = "tree:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// LevelDBPersistence stores exit trees in a LevelDB database. It is a lighter
// embedded alternative to Badger with no background goroutines.
type LevelDBPersistence struct {
	db        *leveldb.DB
	logger    *zap.Logger
	writeOpts *opt.WriteOptions
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.ILETPersistence = (*LevelDBPersistence)(nil)

// NewLevelDBPersistence opens the database at dataPath. An empty path opens
// a volatile in-memory database.
func NewLevelDBPersistence(dataPath string, logger *zap.Logger) (*LevelDBPersistence, error) {
	var (
		db       *leveldb.DB
		err      error
		location = "memory"
	)
	if dataPath == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		location, err = filepath.Abs(dataPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		db, err = leveldb.OpenFile(location, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb database at %s: %w", location, err)
	}

	lp := &LevelDBPersistence{
		db:        db,
		logger:    logger,
		writeOpts: &opt.WriteOptions{Sync: true},
	}

	if err := lp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("LevelDB persistence initialized", "path", location)

	return lp, nil
}

func treeKey(networkID uint32) []byte {
	key := make([]byte, len(keyPrefixTree)+4)
	copy(key, keyPrefixTree)
	binary.BigEndian.PutUint32(key[len(keyPrefixTree):], networkID)
	return key
}

func (l *LevelDBPersistence) initSchema() error {
	existing, err := l.db.Get([]byte(keySchemaVersion), nil)
	if err == leveldb.ErrNotFound {
		return l.db.Put([]byte(keySchemaVersion), []byte(currentSchemaVersion), l.writeOpts)
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if string(existing) != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}
	return nil
}

// SaveTree persists a tree record, replacing any previous record for the network
func (l *LevelDBPersistence) SaveTree(record *persistence.TreeRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil TreeRecord")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalTreeRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal TreeRecord: %w", err)
	}

	if err := l.db.Put(treeKey(record.NetworkID), data, l.writeOpts); err != nil {
		return fmt.Errorf("failed to save tree for network %d: %w", record.NetworkID, err)
	}
	return nil
}

// LoadTree retrieves the tree record for a network. Returns nil, nil when absent.
func (l *LevelDBPersistence) LoadTree(networkID uint32) (*persistence.TreeRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	data, err := l.db.Get(treeKey(networkID), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tree for network %d: %w", networkID, err)
	}

	record, err := persistence.UnmarshalTreeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tree for network %d: %w", networkID, err)
	}
	return record, nil
}

// ListNetworks returns the IDs of all stored trees in ascending order
func (l *LevelDBPersistence) ListNetworks() ([]uint32, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	networks := []uint32{}
	iter := l.db.NewIterator(util.BytesPrefix([]byte(keyPrefixTree)), nil)
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()
		if len(key) != len(keyPrefixTree)+4 {
			l.logger.Sugar().Warnw("Skipping malformed tree key", "key", fmt.Sprintf("%x", key))
			continue
		}
		networks = append(networks, binary.BigEndian.Uint32(key[len(keyPrefixTree):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}

	return networks, nil
}

// DeleteTree removes the tree record for a network. Deleting a missing record is not an error.
func (l *LevelDBPersistence) DeleteTree(networkID uint32) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	if err := l.db.Delete(treeKey(networkID), l.writeOpts); err != nil {
		return fmt.Errorf("failed to delete tree for network %d: %w", networkID, err)
	}
	return nil
}

// Close closes the database
func (l *LevelDBPersistence) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	if err := l.db.Close(); err != nil {
		return fmt.Errorf("failed to close leveldb database: %w", err)
	}

	l.logger.Sugar().Info("LevelDB persistence closed")
	return nil
}

// HealthCheck verifies the schema marker is readable
func (l *LevelDBPersistence) HealthCheck() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	_, err := l.db.Get([]byte(keySchemaVersion), nil)
	if err == leveldb.ErrNotFound {
		return fmt.Errorf("schema version not found - database may be corrupted")
	}
	return err
}
