package config

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for exit tree ledger configuration
const (
	EnvLETTreeDepth       = "LET_TREE_DEPTH"
	EnvLETPersistenceType = "LET_PERSISTENCE_TYPE"
	EnvLETDataPath        = "LET_DATA_PATH"
	EnvLETRedisAddress    = "LET_REDIS_ADDRESS"
	EnvLETRedisPassword   = "LET_REDIS_PASSWORD"
	EnvLETRedisDB         = "LET_REDIS_DB"
	EnvLETRedisKeyPrefix  = "LET_REDIS_KEY_PREFIX"
	EnvLETDebug           = "LET_DEBUG"
)

// DefaultTreeDepth matches the height of the on-chain bridge's exit tree.
const DefaultTreeDepth = 32

type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory  PersistenceType = "memory"
	PersistenceTypeBadger  PersistenceType = "badger"
	PersistenceTypeRedis   PersistenceType = "redis"
	PersistenceTypeLevelDB PersistenceType = "leveldb"
	PersistenceTypeBolt    PersistenceType = "bolt"
)

// ParsePersistenceType converts a flag or environment value into a
// PersistenceType.
func ParsePersistenceType(s string) (PersistenceType, error) {
	switch PersistenceType(s) {
	case PersistenceTypeMemory, PersistenceTypeBadger, PersistenceTypeRedis, PersistenceTypeLevelDB, PersistenceTypeBolt:
		return PersistenceType(s), nil
	default:
		return "", fmt.Errorf("unsupported persistence type: %s (supported: %s)", s, GetSupportedPersistenceTypesString())
	}
}

// GetSupportedPersistenceTypesString returns supported persistence types for CLI help
func GetSupportedPersistenceTypesString() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s",
		PersistenceTypeMemory, PersistenceTypeBadger, PersistenceTypeRedis, PersistenceTypeLevelDB, PersistenceTypeBolt)
}

type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

// LedgerConfig represents the complete configuration for an exit tree ledger
type LedgerConfig struct {
	// TreeDepth is the fixed height of every local exit tree. It is a
	// protocol constant shared with the on-chain verifier.
	TreeDepth int `json:"tree_depth"`

	// Storage
	PersistenceType PersistenceType `json:"persistence_type"`
	DataPath        string          `json:"data_path"` // badger, leveldb and bolt
	Redis           *RedisConfig    `json:"redis,omitempty"`

	// Operational settings
	Debug bool `json:"debug"`
}

// NewDefaultLedgerConfig returns an in-memory configuration at the bridge depth.
func NewDefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		TreeDepth:       DefaultTreeDepth,
		PersistenceType: PersistenceTypeMemory,
	}
}

// Validate validates the ledger configuration
func (c *LedgerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.TreeDepth < 1 || c.TreeDepth > 32 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("treeDepth"), c.TreeDepth, "must be between 1 and 32"))
	}

	switch c.PersistenceType {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger, PersistenceTypeLevelDB, PersistenceTypeBolt:
		if c.DataPath == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataPath"), fmt.Sprintf("dataPath is required for %s persistence", c.PersistenceType)))
		}
	case PersistenceTypeRedis:
		allErrors = append(allErrors, c.Redis.validate(field.NewPath("redis"))...)
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("persistenceType"), c.PersistenceType,
			[]string{
				PersistenceTypeMemory.String(),
				PersistenceTypeBadger.String(),
				PersistenceTypeRedis.String(),
				PersistenceTypeLevelDB.String(),
				PersistenceTypeBolt.String(),
			}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (rc *RedisConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if rc == nil {
		return append(allErrors, field.Required(path, "redis config is required for redis persistence"))
	}
	if rc.Address == "" {
		allErrors = append(allErrors, field.Required(path.Child("address"), "address is required"))
	}
	if rc.DB < 0 || rc.DB > 15 {
		allErrors = append(allErrors, field.Invalid(path.Child("db"), rc.DB, "must be between 0 and 15"))
	}
	return allErrors
}
