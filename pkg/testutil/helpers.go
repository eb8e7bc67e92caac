package testutil

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agglayer/exit-tree-go/pkg/hasher"
	"github.com/agglayer/exit-tree-go/pkg/localexittree"
	"github.com/agglayer/exit-tree-go/pkg/logger"
	"github.com/agglayer/exit-tree-go/pkg/persistence"
)

// NewTestLogger creates a non-debug logger for tests
func NewTestLogger(t *testing.T) *zap.Logger {
	t.Helper()

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	return l
}

// SequentialLeaves returns leaves 1..n encoded as 32-byte big-endian words
func SequentialLeaves(n int) []common.Hash {
	leaves := make([]common.Hash, n)
	for i := range leaves {
		leaves[i] = common.BigToHash(big.NewInt(int64(i + 1)))
	}
	return leaves
}

// BuildTreeRecord builds a bridge-depth tree with numLeaves sequential leaves
// and returns its persisted form together with the expected root.
func BuildTreeRecord(t *testing.T, networkID uint32, numLeaves int) (*persistence.TreeRecord, common.Hash) {
	t.Helper()

	tree, err := localexittree.FromLeaves[common.Hash, hasher.Keccak256](localexittree.DefaultDepth, SequentialLeaves(numLeaves)...)
	require.NoError(t, err)

	return persistence.NewTreeRecord(networkID, tree.Snapshot(), 1700000000), tree.GetRoot()
}

// RequireRecordRoot restores a record and checks it commits to root
func RequireRecordRoot(t *testing.T, record *persistence.TreeRecord, root common.Hash) {
	t.Helper()

	require.NotNil(t, record)
	tree, err := localexittree.Restore[common.Hash, hasher.Keccak256](record.Snapshot())
	require.NoError(t, err)
	require.Equal(t, root, tree.GetRoot())
}

// RunPersistenceSuite exercises the ILETPersistence contract against the
// backend returned by newBackend. Every subtest gets a fresh backend.
func RunPersistenceSuite(t *testing.T, newBackend func(t *testing.T) persistence.ILETPersistence) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		record, root := BuildTreeRecord(t, 7, 5)
		require.NoError(t, p.SaveTree(record))

		loaded, err := p.LoadTree(7)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, uint32(7), loaded.NetworkID)
		assert.Equal(t, record.Depth, loaded.Depth)
		assert.Equal(t, record.UpdatedAt, loaded.UpdatedAt)
		assert.Equal(t, uint64(5), loaded.LeafCount())
		RequireRecordRoot(t, loaded, root)
	})

	t.Run("LoadNotFound", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		loaded, err := p.LoadTree(9999)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("SaveNil", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		err := p.SaveTree(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil")
	})

	t.Run("Overwrite", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		first, _ := BuildTreeRecord(t, 1, 2)
		second, root := BuildTreeRecord(t, 1, 3)
		require.NoError(t, p.SaveTree(first))
		require.NoError(t, p.SaveTree(second))

		loaded, err := p.LoadTree(1)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), loaded.LeafCount())
		RequireRecordRoot(t, loaded, root)

		networks, err := p.ListNetworks()
		require.NoError(t, err)
		assert.Equal(t, []uint32{1}, networks)
	})

	t.Run("ListNetworks", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		networks, err := p.ListNetworks()
		require.NoError(t, err)
		assert.Empty(t, networks)

		for _, networkID := range []uint32{300, 2, 0, 70000, 1} {
			record, _ := BuildTreeRecord(t, networkID, 1)
			require.NoError(t, p.SaveTree(record))
		}

		networks, err = p.ListNetworks()
		require.NoError(t, err)
		assert.Equal(t, []uint32{0, 1, 2, 300, 70000}, networks)
	})

	t.Run("Delete", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		record, _ := BuildTreeRecord(t, 5, 3)
		require.NoError(t, p.SaveTree(record))
		require.NoError(t, p.DeleteTree(5))

		loaded, err := p.LoadTree(5)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		networks, err := p.ListNetworks()
		require.NoError(t, err)
		assert.Empty(t, networks)

		// Deleting again is not an error
		require.NoError(t, p.DeleteTree(5))
	})

	t.Run("LoadedCopyIsIndependent", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		record, root := BuildTreeRecord(t, 4, 6)
		require.NoError(t, p.SaveTree(record))

		// Mutating the saved and loaded records must not reach the store
		record.Layers[0][0][0] ^= 0xFF
		loaded, err := p.LoadTree(4)
		require.NoError(t, err)
		loaded.Layers[0][1][0] ^= 0xFF

		again, err := p.LoadTree(4)
		require.NoError(t, err)
		RequireRecordRoot(t, again, root)
	})

	t.Run("HealthCheckAndClose", func(t *testing.T) {
		p := newBackend(t)

		require.NoError(t, p.HealthCheck())
		require.NoError(t, p.Close())
		require.NoError(t, p.Close(), "close must be idempotent")

		err := p.HealthCheck()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closed")

		record, _ := BuildTreeRecord(t, 1, 1)
		assert.Error(t, p.SaveTree(record))
		_, err = p.LoadTree(1)
		assert.Error(t, err)
		_, err = p.ListNetworks()
		assert.Error(t, err)
		assert.Error(t, p.DeleteTree(1))
	})

	t.Run("Concurrency", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		var wg sync.WaitGroup
		numGoroutines := 8

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				tree, err := localexittree.FromLeaves[common.Hash, hasher.Keccak256](localexittree.DefaultDepth, SequentialLeaves(id+1)...)
				if !assert.NoError(t, err) {
					return
				}
				assert.NoError(t, p.SaveTree(persistence.NewTreeRecord(uint32(id), tree.Snapshot(), 1700000000)))
				_, err = p.LoadTree(uint32(id))
				assert.NoError(t, err)
				_, err = p.ListNetworks()
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		networks, err := p.ListNetworks()
		require.NoError(t, err)
		assert.Len(t, networks, numGoroutines)
	})
}
