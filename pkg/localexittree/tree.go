// Package localexittree implements the Local Exit Tree: the append-only,
// fixed-depth binary Merkle accumulator of a rollup's bridge exits.
//
// The archival representation (LocalExitTreeData) keeps every computed node
// so that inclusion proofs can be produced for any historical leaf. The
// Frontier representation keeps a single node per height and can only produce
// the current root. Both compute exactly the root the on-chain bridge contract
// computes for the same ordered leaves.
package localexittree

import (
	"fmt"
	"sync"

	"github.com/agglayer/exit-tree-go/pkg/hasher"
)

const (
	// DefaultDepth is the fixed height of the on-chain bridge's exit tree.
	DefaultDepth = 32

	// MaxDepth bounds the depth so that every leaf index fits in a uint32.
	MaxDepth = 32
)

// LocalExitTreeData is the archival local exit tree.
//
// layers[h][p] is the node at height h covering leaves [p*2^h, (p+1)*2^h),
// computed with never-inserted leaves taken as the zero digest. The node is
// only present once at least one leaf under it exists. Layers are not padded.
//
// AddLeaf must be serialized by the caller's sequencing path; it takes the
// write lock. GetRoot, GetProof and the other readers share the read lock.
type LocalExitTreeData[D comparable, H hasher.Hasher[D]] struct {
	mu                sync.RWMutex
	depth             int
	layers            [][]D
	emptyHashAtHeight []D
}

// New returns an empty tree of the given depth.
func New[D comparable, H hasher.Hasher[D]](depth int) (*LocalExitTreeData[D, H], error) {
	if depth < 1 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidDepth, depth, MaxDepth)
	}

	return &LocalExitTreeData[D, H]{
		depth:             depth,
		layers:            make([][]D, depth),
		emptyHashAtHeight: emptyHashes[D, H](depth),
	}, nil
}

// NewDefault returns an empty tree of DefaultDepth.
func NewDefault[D comparable, H hasher.Hasher[D]]() *LocalExitTreeData[D, H] {
	t, err := New[D, H](DefaultDepth)
	if err != nil {
		panic(err) // DefaultDepth is always valid
	}
	return t
}

// FromLeaves builds a tree by appending every leaf in order.
func FromLeaves[D comparable, H hasher.Hasher[D]](depth int, leaves ...D) (*LocalExitTreeData[D, H], error) {
	t, err := New[D, H](depth)
	if err != nil {
		return nil, err
	}
	for _, leaf := range leaves {
		if _, err := t.AddLeaf(leaf); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// emptyHashes returns the roots of all-empty subtrees of height 0..depth-1.
func emptyHashes[D comparable, H hasher.Hasher[D]](depth int) []D {
	var h H
	empty := make([]D, depth)
	for i := 1; i < depth; i++ {
		empty[i] = h.Merge(empty[i-1], empty[i-1])
	}
	return empty
}

// capacity is 2^depth.
func capacity(depth int) uint64 {
	return uint64(1) << uint(depth)
}

// Depth returns the fixed height of the tree.
func (t *LocalExitTreeData[D, H]) Depth() int {
	return t.depth
}

// LeafCount returns the number of leaves appended so far.
func (t *LocalExitTreeData[D, H]) LeafCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return uint64(len(t.layers[0]))
}

// Leaf returns the leaf stored at index.
func (t *LocalExitTreeData[D, H]) Leaf(index uint32) (D, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if uint64(index) >= uint64(len(t.layers[0])) {
		var zero D
		return zero, fmt.Errorf("%w: %d (tree has %d leaves)", ErrIndexOutOfRange, index, len(t.layers[0]))
	}
	return t.layers[0][index], nil
}

// EmptyHashAtHeight returns the root of an all-empty subtree of the given
// height, for 0 <= height < Depth().
func (t *LocalExitTreeData[D, H]) EmptyHashAtHeight(height int) D {
	return t.emptyHashAtHeight[height]
}

// AddLeaf appends leaf and returns its index.
//
// Exactly depth-1 merges update the path from the new leaf to the top layer.
// A parent that was written earlier against an empty right subtree is
// overwritten in place now that real data arrived under it; once both of its
// children exist it never changes again.
func (t *LocalExitTreeData[D, H]) AddLeaf(leaf D) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := uint64(len(t.layers[0]))
	if count >= capacity(t.depth) {
		return 0, fmt.Errorf("%w: %d leaves at depth %d", ErrTreeFull, count, t.depth)
	}

	var h H
	leafIndex := uint32(count)
	t.layers[0] = append(t.layers[0], leaf)

	entry := leaf
	index := leafIndex
	for height := 0; height < t.depth-1; height++ {
		sibling := t.nodeOrEmpty(height, index^1)
		if index&1 == 0 {
			entry = h.Merge(entry, sibling)
		} else {
			entry = h.Merge(sibling, entry)
		}
		index >>= 1

		parent := t.layers[height+1]
		if uint64(index) < uint64(len(parent)) {
			parent[index] = entry
		} else {
			t.layers[height+1] = append(parent, entry)
		}
	}

	return leafIndex, nil
}

// GetRoot returns the root of the depth-D tree, treating every leaf that was
// not inserted yet as the zero digest.
func (t *LocalExitTreeData[D, H]) GetRoot() D {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.root()
}

func (t *LocalExitTreeData[D, H]) root() D {
	var h H
	top := t.depth - 1
	return h.Merge(t.nodeOrEmpty(top, 0), t.nodeOrEmpty(top, 1))
}

// GetProof returns the inclusion proof of the leaf at index against the
// current root.
func (t *LocalExitTreeData[D, H]) GetProof(index uint32) (*LETMerkleProof[D, H], error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if uint64(index) >= uint64(len(t.layers[0])) {
		return nil, fmt.Errorf("%w: %d (tree has %d leaves)", ErrIndexOutOfRange, index, len(t.layers[0]))
	}

	siblings := make([]D, t.depth)
	for height := 0; height < t.depth; height++ {
		siblings[height] = t.nodeOrEmpty(height, index^1)
		index >>= 1
	}

	return &LETMerkleProof[D, H]{Siblings: siblings, depth: t.depth}, nil
}

// nodeOrEmpty returns layers[height][pos], or the empty subtree digest of
// that height when the node has not been computed.
func (t *LocalExitTreeData[D, H]) nodeOrEmpty(height int, pos uint32) D {
	layer := t.layers[height]
	if uint64(pos) < uint64(len(layer)) {
		return layer[pos]
	}
	return t.emptyHashAtHeight[height]
}
