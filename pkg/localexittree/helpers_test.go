package localexittree

import (
	"crypto/rand"

	"github.com/ethereum/go-ethereum/common"

	"github.com/agglayer/exit-tree-go/pkg/hasher"
)

// toyPrime keeps toy digests small enough to read in failure output.
const toyPrime = 1_000_000_007

// toyHasher is a deterministic, non-commutative merge for hand-checked
// scenarios: merge(a, b) = 31a + b + 7 mod p.
type toyHasher struct{}

func (toyHasher) Merge(left, right uint64) uint64 {
	return (31*left + right + 7) % toyPrime
}

type keccakTree = LocalExitTreeData[common.Hash, hasher.Keccak256]

func newKeccakTree(depth int) *keccakTree {
	t, err := New[common.Hash, hasher.Keccak256](depth)
	if err != nil {
		panic(err)
	}
	return t
}

// randomHash generates a random 32-byte hash for testing
func randomHash() common.Hash {
	var h common.Hash
	_, _ = rand.Read(h[:]) // Ignore error in test helper
	return h
}

func randomHashes(n int) []common.Hash {
	hashes := make([]common.Hash, n)
	for i := range hashes {
		hashes[i] = randomHash()
	}
	return hashes
}

// referenceRoot recomputes the root of a depth-D tree bottom-up from all
// leaves, padding with zero leaves. It is the obvious O(2^D) algorithm the
// incremental tree must agree with.
func referenceRoot[D comparable, H hasher.Hasher[D]](depth int, leaves []D) D {
	var h H
	level := make([]D, 1<<uint(depth))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([]D, len(level)/2)
		for i := range next {
			next[i] = h.Merge(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}
