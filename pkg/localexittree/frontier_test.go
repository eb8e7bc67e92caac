package localexittree

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/agglayer/exit-tree-go/pkg/hasher"
)

func newKeccakFrontier(t *testing.T, depth int) *Frontier[common.Hash, hasher.Keccak256] {
	t.Helper()
	f, err := NewFrontier[common.Hash, hasher.Keccak256](depth)
	require.NoError(t, err)
	return f
}

func TestFrontier_EmptyRootMatchesTree(t *testing.T) {
	for _, depth := range []int{1, 2, 5, DefaultDepth} {
		f := newKeccakFrontier(t, depth)
		require.Equal(t, newKeccakTree(depth).GetRoot(), f.GetRoot(), "depth %d", depth)
	}
}

// TestFrontier_MatchesArchivalTree checks roots and conversion after every
// append, up to and including a full tree.
func TestFrontier_MatchesArchivalTree(t *testing.T) {
	for _, depth := range []int{1, 2, 3, 5} {
		tree := newKeccakTree(depth)
		frontier := newKeccakFrontier(t, depth)

		for n := 1; n <= 1<<depth; n++ {
			leaf := randomHash()

			treeIndex, err := tree.AddLeaf(leaf)
			require.NoError(t, err)
			frontierIndex, err := frontier.AddLeaf(leaf)
			require.NoError(t, err)
			require.Equal(t, treeIndex, frontierIndex)

			require.Equal(t, tree.GetRoot(), frontier.GetRoot(), "depth %d, %d leaves", depth, n)

			converted := tree.Frontier()
			require.Equal(t, frontier.LeafCount(), converted.LeafCount())
			require.Equal(t, frontier.Branch(), converted.Branch(), "depth %d, %d leaves", depth, n)
			require.Equal(t, tree.GetRoot(), converted.GetRoot())
		}

		_, err := frontier.AddLeaf(randomHash())
		require.ErrorIs(t, err, ErrTreeFull)
	}
}

func TestFrontier_ConvertedKeepsAppending(t *testing.T) {
	leaves := randomHashes(40)
	tree, err := FromLeaves[common.Hash, hasher.Keccak256](DefaultDepth, leaves[:25]...)
	require.NoError(t, err)

	frontier := tree.Frontier()
	for _, leaf := range leaves[25:] {
		_, err := tree.AddLeaf(leaf)
		require.NoError(t, err)
		_, err = frontier.AddLeaf(leaf)
		require.NoError(t, err)
		require.Equal(t, tree.GetRoot(), frontier.GetRoot())
	}
	require.Equal(t, uint64(40), frontier.LeafCount())
}

func TestFrontier_DoesNotAliasTree(t *testing.T) {
	tree, err := FromLeaves[common.Hash, hasher.Keccak256](4, randomHashes(5)...)
	require.NoError(t, err)
	root := tree.GetRoot()

	frontier := tree.Frontier()
	_, err = frontier.AddLeaf(randomHash())
	require.NoError(t, err)

	require.Equal(t, root, tree.GetRoot())
	require.Equal(t, uint64(5), tree.LeafCount())
}

func TestFrontier_FromBranch(t *testing.T) {
	tree, err := FromLeaves[common.Hash, hasher.Keccak256](DefaultDepth, randomHashes(13)...)
	require.NoError(t, err)
	exported := tree.Frontier()

	rebuilt, err := NewFrontierFromBranch[common.Hash, hasher.Keccak256](DefaultDepth, exported.LeafCount(), exported.Branch())
	require.NoError(t, err)
	require.Equal(t, tree.GetRoot(), rebuilt.GetRoot())

	_, err = NewFrontierFromBranch[common.Hash, hasher.Keccak256](DefaultDepth, 13, exported.Branch()[:DefaultDepth])
	require.ErrorIs(t, err, ErrInvalidFrontier)

	_, err = NewFrontierFromBranch[common.Hash, hasher.Keccak256](2, 5, make([]common.Hash, 3))
	require.ErrorIs(t, err, ErrInvalidFrontier)

	_, err = NewFrontierFromBranch[common.Hash, hasher.Keccak256](0, 0, nil)
	require.ErrorIs(t, err, ErrInvalidDepth)
}

func TestFrontier_ToyScenario(t *testing.T) {
	var h toyHasher
	f, err := NewFrontier[uint64, toyHasher](2)
	require.NoError(t, err)

	for _, leaf := range []uint64{1, 2, 3} {
		_, err := f.AddLeaf(leaf)
		require.NoError(t, err)
	}
	require.Equal(t, h.Merge(h.Merge(1, 2), h.Merge(3, 0)), f.GetRoot())
	require.Equal(t, 2, f.Depth())
}

// accumulate drives any Accumulator the same way.
func accumulate(t *testing.T, acc Accumulator[common.Hash], leaves []common.Hash) common.Hash {
	t.Helper()
	for _, leaf := range leaves {
		_, err := acc.AddLeaf(leaf)
		require.NoError(t, err)
	}
	require.Equal(t, uint64(len(leaves)), acc.LeafCount())
	return acc.GetRoot()
}

func TestAccumulator_BothRepresentationsAgree(t *testing.T) {
	leaves := randomHashes(21)

	archival := accumulate(t, newKeccakTree(DefaultDepth), leaves)
	frontier := accumulate(t, newKeccakFrontier(t, DefaultDepth), leaves)

	require.Equal(t, archival, frontier)
}

// FuzzFrontierEquivalence checks incremental, converted and archival roots
// agree for arbitrary leaf sequences.
func FuzzFrontierEquivalence(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add(make([]byte, 7*common.HashLength))

	f.Fuzz(func(t *testing.T, data []byte) {
		const depth = 6
		tree := newKeccakTree(depth)
		frontier := newKeccakFrontier(t, depth)

		for i := 0; i < len(data) && i < 1<<depth; i++ {
			var leaf common.Hash
			leaf[0] = data[i]
			leaf[31] = byte(i)

			_, err := tree.AddLeaf(leaf)
			require.NoError(t, err)
			_, err = frontier.AddLeaf(leaf)
			require.NoError(t, err)
		}

		require.Equal(t, tree.GetRoot(), frontier.GetRoot())
		require.Equal(t, frontier.Branch(), tree.Frontier().Branch())
	})
}
