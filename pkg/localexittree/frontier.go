package localexittree

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/agglayer/exit-tree-go/pkg/hasher"
)

// Accumulator is the capability shared by the archival tree and its frontier:
// append a leaf, read the root.
type Accumulator[D comparable] interface {
	AddLeaf(leaf D) (uint32, error)
	GetRoot() D
	LeafCount() uint64
}

var (
	_ Accumulator[common.Hash] = (*LocalExitTreeData[common.Hash, hasher.Keccak256])(nil)
	_ Accumulator[common.Hash] = (*Frontier[common.Hash, hasher.Keccak256])(nil)
)

// Frontier is the O(depth) representation of a local exit tree. It holds, per
// height, the last complete left node and can compute the current root, but
// not proofs for past leaves. It is the form consumed by proving circuits.
//
// branch has depth+1 slots; the extra slot holds the root once the tree is
// full. Frontier is not safe for concurrent use.
type Frontier[D comparable, H hasher.Hasher[D]] struct {
	depth             int
	leafCount         uint64
	branch            []D
	emptyHashAtHeight []D
}

// NewFrontier returns an empty frontier of the given depth.
func NewFrontier[D comparable, H hasher.Hasher[D]](depth int) (*Frontier[D, H], error) {
	if depth < 1 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidDepth, depth, MaxDepth)
	}

	return &Frontier[D, H]{
		depth:             depth,
		branch:            make([]D, depth+1),
		emptyHashAtHeight: emptyHashes[D, H](depth),
	}, nil
}

// NewFrontierFromBranch rebuilds a frontier from its leaf count and branch,
// e.g. as exported by Branch.
func NewFrontierFromBranch[D comparable, H hasher.Hasher[D]](depth int, leafCount uint64, branch []D) (*Frontier[D, H], error) {
	f, err := NewFrontier[D, H](depth)
	if err != nil {
		return nil, err
	}
	if leafCount > capacity(depth) {
		return nil, fmt.Errorf("%w: %d leaves exceed capacity of depth %d", ErrInvalidFrontier, leafCount, depth)
	}
	if len(branch) != depth+1 {
		return nil, fmt.Errorf("%w: branch has %d entries, want %d", ErrInvalidFrontier, len(branch), depth+1)
	}

	f.leafCount = leafCount
	copy(f.branch, branch)
	return f, nil
}

// Depth returns the fixed height of the tree.
func (f *Frontier[D, H]) Depth() int {
	return f.depth
}

// LeafCount returns the number of leaves appended so far.
func (f *Frontier[D, H]) LeafCount() uint64 {
	return f.leafCount
}

// Branch returns a copy of the per-height nodes.
func (f *Frontier[D, H]) Branch() []D {
	return append([]D(nil), f.branch...)
}

// AddLeaf appends leaf and returns its index.
func (f *Frontier[D, H]) AddLeaf(leaf D) (uint32, error) {
	if f.leafCount >= capacity(f.depth) {
		return 0, fmt.Errorf("%w: %d leaves at depth %d", ErrTreeFull, f.leafCount, f.depth)
	}

	var h H
	index := uint32(f.leafCount)
	f.leafCount++

	node := leaf
	size := f.leafCount
	for height := 0; height <= f.depth; height++ {
		if size&1 == 1 {
			f.branch[height] = node
			break
		}
		node = h.Merge(f.branch[height], node)
		size >>= 1
	}

	return index, nil
}

// GetRoot returns the root of the depth-D tree.
func (f *Frontier[D, H]) GetRoot() D {
	if f.leafCount == capacity(f.depth) {
		return f.branch[f.depth]
	}

	var h H
	var node D
	size := f.leafCount
	for height := 0; height < f.depth; height++ {
		if size&1 == 1 {
			node = h.Merge(f.branch[height], node)
		} else {
			node = h.Merge(node, f.emptyHashAtHeight[height])
		}
		size >>= 1
	}
	return node
}

// Frontier converts the archival tree to its frontier. The conversion is one
// way: the frontier no longer holds what is needed for historical proofs.
func (t *LocalExitTreeData[D, H]) Frontier() *Frontier[D, H] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	f := &Frontier[D, H]{
		depth:             t.depth,
		leafCount:         uint64(len(t.layers[0])),
		branch:            make([]D, t.depth+1),
		emptyHashAtHeight: append([]D(nil), t.emptyHashAtHeight...),
	}

	for height := 0; height < t.depth; height++ {
		complete := f.leafCount >> uint(height)
		if complete == 0 {
			break
		}
		// The last complete node with an even position is the one the
		// incremental rule left in place at this height.
		f.branch[height] = t.layers[height][(complete-1)&^1]
	}
	if f.leafCount == capacity(t.depth) {
		f.branch[t.depth] = t.root()
	}

	return f
}
