package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agglayer/exit-tree-go/pkg/persistence"
	"github.com/agglayer/exit-tree-go/pkg/testutil"
)

func TestMemoryPersistence(t *testing.T) {
	testutil.RunPersistenceSuite(t, func(t *testing.T) persistence.ILETPersistence {
		return NewMemoryPersistence()
	})
}

func TestMemoryPersistence_StartsEmpty(t *testing.T) {
	mp := NewMemoryPersistence()
	defer func() { _ = mp.Close() }()

	networks, err := mp.ListNetworks()
	require.NoError(t, err)
	assert.Empty(t, networks)
	assert.Empty(t, mp.trees)
}
