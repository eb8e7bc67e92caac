package persistence

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/agglayer/exit-tree-go/pkg/localexittree"
)

// TreeRecord is the persisted form of one network's local exit tree.
// It holds exactly what is needed to restore the archival tree: every
// computed layer and the empty subtree table.
type TreeRecord struct {
	// NetworkID identifies the rollup the tree belongs to.
	// This serves as the primary key for tree storage.
	NetworkID uint32 `json:"networkId"`

	// Depth is the fixed height of the tree.
	Depth int `json:"depth"`

	// Layers holds the computed nodes per height, layers[0] being the leaves
	// in insertion order.
	Layers [][]common.Hash `json:"layers"`

	// EmptyHashAtHeight holds the roots of all-empty subtrees per height.
	EmptyHashAtHeight []common.Hash `json:"emptyHashAtHeight"`

	// UpdatedAt is the Unix timestamp of the last append.
	UpdatedAt int64 `json:"updatedAt"`
}

// NewTreeRecord wraps a tree snapshot for storage.
func NewTreeRecord(networkID uint32, snapshot *localexittree.Snapshot[common.Hash], updatedAt int64) *TreeRecord {
	return &TreeRecord{
		NetworkID:         networkID,
		Depth:             snapshot.Depth,
		Layers:            snapshot.Layers,
		EmptyHashAtHeight: snapshot.EmptyHashAtHeight,
		UpdatedAt:         updatedAt,
	}
}

// Snapshot returns the tree snapshot held by the record.
func (r *TreeRecord) Snapshot() *localexittree.Snapshot[common.Hash] {
	return &localexittree.Snapshot[common.Hash]{
		Depth:             r.Depth,
		Layers:            r.Layers,
		EmptyHashAtHeight: r.EmptyHashAtHeight,
	}
}

// LeafCount returns the number of leaves in the recorded tree.
func (r *TreeRecord) LeafCount() uint64 {
	if r == nil || len(r.Layers) == 0 {
		return 0
	}
	return uint64(len(r.Layers[0]))
}

// Clone returns a deep copy of the record.
func (r *TreeRecord) Clone() *TreeRecord {
	if r == nil {
		return nil
	}

	layers := make([][]common.Hash, len(r.Layers))
	for i, layer := range r.Layers {
		layers[i] = append([]common.Hash(nil), layer...)
	}

	return &TreeRecord{
		NetworkID:         r.NetworkID,
		Depth:             r.Depth,
		Layers:            layers,
		EmptyHashAtHeight: append([]common.Hash(nil), r.EmptyHashAtHeight...),
		UpdatedAt:         r.UpdatedAt,
	}
}
