package localexittree

import (
	"fmt"

	"github.com/agglayer/exit-tree-go/pkg/hasher"
)

// Snapshot is a deep copy of an archival tree's state, in the shape a
// surrounding system persists: depth layers of digests plus the empty subtree
// table.
type Snapshot[D comparable] struct {
	Depth             int   `json:"depth"`
	Layers            [][]D `json:"layers"`
	EmptyHashAtHeight []D   `json:"emptyHashAtHeight"`
}

// Snapshot returns a copy of the tree state that shares no memory with it.
func (t *LocalExitTreeData[D, H]) Snapshot() *Snapshot[D] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	layers := make([][]D, t.depth)
	for i, layer := range t.layers {
		layers[i] = append([]D(nil), layer...)
	}

	return &Snapshot[D]{
		Depth:             t.depth,
		Layers:            layers,
		EmptyHashAtHeight: append([]D(nil), t.emptyHashAtHeight...),
	}
}

// Restore rebuilds a tree from a snapshot taken under the same hasher.
//
// Every stored node is checked against its children, so a snapshot produced
// under another hasher or altered in storage is rejected with
// ErrCorruptSnapshot.
func Restore[D comparable, H hasher.Hasher[D]](s *Snapshot[D]) (*LocalExitTreeData[D, H], error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrCorruptSnapshot)
	}

	t, err := New[D, H](s.Depth)
	if err != nil {
		return nil, err
	}

	if len(s.EmptyHashAtHeight) != s.Depth {
		return nil, fmt.Errorf("%w: %d empty hashes for depth %d", ErrCorruptSnapshot, len(s.EmptyHashAtHeight), s.Depth)
	}
	for height, want := range t.emptyHashAtHeight {
		if s.EmptyHashAtHeight[height] != want {
			return nil, fmt.Errorf("%w: empty hash mismatch at height %d", ErrCorruptSnapshot, height)
		}
	}

	if len(s.Layers) != s.Depth {
		return nil, fmt.Errorf("%w: %d layers for depth %d", ErrCorruptSnapshot, len(s.Layers), s.Depth)
	}

	leafCount := uint64(len(s.Layers[0]))
	if leafCount > capacity(s.Depth) {
		return nil, fmt.Errorf("%w: %d leaves exceed capacity of depth %d", ErrCorruptSnapshot, leafCount, s.Depth)
	}

	for height, layer := range s.Layers {
		want := (leafCount + (uint64(1) << uint(height)) - 1) >> uint(height)
		if uint64(len(layer)) != want {
			return nil, fmt.Errorf("%w: layer %d has %d nodes, want %d", ErrCorruptSnapshot, height, len(layer), want)
		}
		t.layers[height] = append([]D(nil), layer...)
	}

	var h H
	for height := 1; height < s.Depth; height++ {
		for pos, node := range t.layers[height] {
			left := t.nodeOrEmpty(height-1, uint32(2*pos))
			right := t.nodeOrEmpty(height-1, uint32(2*pos+1))
			if h.Merge(left, right) != node {
				return nil, fmt.Errorf("%w: node (%d, %d) does not match its children", ErrCorruptSnapshot, height, pos)
			}
		}
	}

	return t, nil
}
