package localexittree

import "github.com/agglayer/exit-tree-go/pkg/hasher"

// LETMerkleProof is an inclusion proof for one leaf of a local exit tree.
//
// Siblings holds one digest per height, ordered from the leaf up to the
// children of the root. It carries neither the leaf nor its index; both are
// supplied when verifying. The encoding is the one the on-chain verifier
// accepts.
//
// The tree depth is recorded when the proof is produced by GetProof. A proof
// decoded from outside has no depth and must be checked with VerifyProof.
type LETMerkleProof[D comparable, H hasher.Hasher[D]] struct {
	Siblings []D `json:"siblings"`

	depth int
}

// NewLETMerkleProof wraps siblings received from elsewhere as a proof for a
// tree of the given depth. Verification fails unless len(siblings) == depth.
func NewLETMerkleProof[D comparable, H hasher.Hasher[D]](depth int, siblings []D) *LETMerkleProof[D, H] {
	return &LETMerkleProof[D, H]{Siblings: siblings, depth: depth}
}

// Depth returns the depth of the tree the proof was built for, or 0 when
// unknown.
func (p *LETMerkleProof[D, H]) Depth() int {
	if p == nil {
		return 0
	}
	return p.depth
}

// Root returns the root implied by leaf sitting at index under this proof.
// The second result is false when the proof does not have exactly one
// sibling per level or the index does not fit in the tree.
func (p *LETMerkleProof[D, H]) Root(leaf D, index uint32) (D, bool) {
	if p == nil {
		var zero D
		return zero, false
	}
	return computeRoot[D, H](p.depth, leaf, index, p.Siblings)
}

// Verify reports whether leaf is included at index in the tree with the given
// root. It never fails on malformed input; any mismatch yields false.
func (p *LETMerkleProof[D, H]) Verify(leaf D, index uint32, root D) bool {
	if p == nil {
		return false
	}
	return VerifyProof[D, H](p.depth, leaf, index, p.Siblings, root)
}

// VerifyProof is the stateless form of LETMerkleProof.Verify for a tree of
// the given depth. A sibling list of any other length is rejected, otherwise
// an internal node could pass as a leaf under a shortened proof. It can be
// called concurrently from any number of goroutines.
func VerifyProof[D comparable, H hasher.Hasher[D]](depth int, leaf D, index uint32, siblings []D, root D) bool {
	computed, ok := computeRoot[D, H](depth, leaf, index, siblings)
	return ok && computed == root
}

func computeRoot[D comparable, H hasher.Hasher[D]](depth int, leaf D, index uint32, siblings []D) (D, bool) {
	if depth < 1 || depth > MaxDepth || len(siblings) != depth {
		var zero D
		return zero, false
	}

	var h H
	entry := leaf
	for _, sibling := range siblings {
		if index&1 == 0 {
			entry = h.Merge(entry, sibling)
		} else {
			entry = h.Merge(sibling, entry)
		}
		index >>= 1
	}

	// Leftover index bits mean the leaf lies outside a tree of this depth.
	return entry, index == 0
}

// Clone returns an independent copy of the proof.
func (p *LETMerkleProof[D, H]) Clone() *LETMerkleProof[D, H] {
	if p == nil {
		return nil
	}
	return &LETMerkleProof[D, H]{Siblings: append([]D(nil), p.Siblings...), depth: p.depth}
}
