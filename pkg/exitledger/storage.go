package exitledger

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/agglayer/exit-tree-go/pkg/config"
	"github.com/agglayer/exit-tree-go/pkg/persistence"
	persistenceBadger "github.com/agglayer/exit-tree-go/pkg/persistence/badger"
	persistenceBolt "github.com/agglayer/exit-tree-go/pkg/persistence/bolt"
	persistenceLevelDB "github.com/agglayer/exit-tree-go/pkg/persistence/leveldb"
	persistenceMemory "github.com/agglayer/exit-tree-go/pkg/persistence/memory"
	persistenceRedis "github.com/agglayer/exit-tree-go/pkg/persistence/redis"
)

// NewPersistence opens the storage backend selected by the configuration.
func NewPersistence(cfg *config.LedgerConfig, logger *zap.Logger) (persistence.ILETPersistence, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid ledger config")
	}

	switch cfg.PersistenceType {
	case config.PersistenceTypeMemory:
		return persistenceMemory.NewMemoryPersistence(), nil
	case config.PersistenceTypeBadger:
		p, err := persistenceBadger.NewBadgerPersistence(cfg.DataPath, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open badger persistence")
		}
		return p, nil
	case config.PersistenceTypeLevelDB:
		p, err := persistenceLevelDB.NewLevelDBPersistence(cfg.DataPath, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open leveldb persistence")
		}
		return p, nil
	case config.PersistenceTypeBolt:
		p, err := persistenceBolt.NewBoltPersistence(cfg.DataPath, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open bolt persistence")
		}
		return p, nil
	case config.PersistenceTypeRedis:
		p, err := persistenceRedis.NewRedisPersistence(&persistenceRedis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open redis persistence")
		}
		return p, nil
	default:
		return nil, errors.Errorf("unsupported persistence type: %s", cfg.PersistenceType)
	}
}

// Open creates the configured persistence backend and a ledger on top of it.
// The ledger owns the backend and closes it on Close.
func Open(cfg *config.LedgerConfig, logger *zap.Logger) (*Ledger, error) {
	store, err := NewPersistence(cfg, logger)
	if err != nil {
		return nil, err
	}

	ledger, err := NewLedger(cfg.TreeDepth, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return ledger, nil
}
