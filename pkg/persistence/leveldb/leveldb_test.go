package leveldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agglayer/exit-tree-go/pkg/persistence"
	"github.com/agglayer/exit-tree-go/pkg/testutil"
)

func TestLevelDBPersistence_Memory(t *testing.T) {
	testutil.RunPersistenceSuite(t, func(t *testing.T) persistence.ILETPersistence {
		lp, err := NewLevelDBPersistence("", testutil.NewTestLogger(t))
		require.NoError(t, err)
		return lp
	})
}

func TestLevelDBPersistence_File(t *testing.T) {
	testutil.RunPersistenceSuite(t, func(t *testing.T) persistence.ILETPersistence {
		lp, err := NewLevelDBPersistence(t.TempDir(), testutil.NewTestLogger(t))
		require.NoError(t, err)
		return lp
	})
}

func TestLevelDBPersistence_SurvivesRestart(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger := testutil.NewTestLogger(t)

	lp, err := NewLevelDBPersistence(tmpDir, testLogger)
	require.NoError(t, err)

	for networkID, numLeaves := range map[uint32]int{3: 1, 1: 17} {
		record, _ := testutil.BuildTreeRecord(t, networkID, numLeaves)
		require.NoError(t, lp.SaveTree(record))
	}
	_, root := testutil.BuildTreeRecord(t, 1, 17)
	require.NoError(t, lp.Close())

	reopened, err := NewLevelDBPersistence(tmpDir, testLogger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	networks, err := reopened.ListNetworks()
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3}, networks)

	loaded, err := reopened.LoadTree(1)
	require.NoError(t, err)
	testutil.RequireRecordRoot(t, loaded, root)
}

func TestLevelDBPersistence_RejectsUnknownSchema(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger := testutil.NewTestLogger(t)

	lp, err := NewLevelDBPersistence(tmpDir, testLogger)
	require.NoError(t, err)
	require.NoError(t, lp.db.Put([]byte(keySchemaVersion), []byte("v9"), nil))
	require.NoError(t, lp.Close())

	_, err = NewLevelDBPersistence(tmpDir, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestLevelDBPersistence_SkipsForeignKeys(t *testing.T) {
	lp, err := NewLevelDBPersistence("", testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = lp.Close() }()

	record, _ := testutil.BuildTreeRecord(t, 8, 1)
	require.NoError(t, lp.SaveTree(record))
	require.NoError(t, lp.db.Put([]byte(keyPrefixTree+"junk-key"), []byte("{}"), nil))

	networks, err := lp.ListNetworks()
	require.NoError(t, err)
	assert.Equal(t, []uint32{8}, networks)
}
