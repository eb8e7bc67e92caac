package bolt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/agglayer/exit-tree-go/pkg/persistence"
	"github.com/agglayer/exit-tree-go/pkg/testutil"
)

func TestBoltPersistence(t *testing.T) {
	testutil.RunPersistenceSuite(t, func(t *testing.T) persistence.ILETPersistence {
		bp, err := NewBoltPersistence(t.TempDir(), testutil.NewTestLogger(t))
		require.NoError(t, err)
		return bp
	})
}

func TestBoltPersistence_SurvivesRestart(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger := testutil.NewTestLogger(t)

	bp, err := NewBoltPersistence(tmpDir, testLogger)
	require.NoError(t, err)
	record, root := testutil.BuildTreeRecord(t, 11, 4)
	require.NoError(t, bp.SaveTree(record))
	require.NoError(t, bp.Close())

	reopened, err := NewBoltPersistence(tmpDir, testLogger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadTree(11)
	require.NoError(t, err)
	testutil.RequireRecordRoot(t, loaded, root)
}

func TestBoltPersistence_RejectsUnknownSchema(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger := testutil.NewTestLogger(t)

	bp, err := NewBoltPersistence(tmpDir, testLogger)
	require.NoError(t, err)
	err = bp.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMetadata).Put(keySchemaVersion, []byte("v2"))
	})
	require.NoError(t, err)
	require.NoError(t, bp.Close())

	_, err = NewBoltPersistence(tmpDir, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestBoltPersistence_CreatesDataDir(t *testing.T) {
	dataPath := t.TempDir() + "/nested/store"

	bp, err := NewBoltPersistence(dataPath, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = bp.Close() }()

	require.NoError(t, bp.HealthCheck())
}
