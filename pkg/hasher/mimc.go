package hasher

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// MiMCBN254 merges BN254 scalar field elements with MiMC. It is the
// circuit-friendly variant used when a frontier has to be recomputed inside a
// proving circuit. Its trees are incompatible with Keccak256 trees.
type MiMCBN254 struct{}

var _ Hasher[fr.Element] = MiMCBN254{}

// Merge returns MiMC(left || right) over the canonical big-endian encodings.
func (MiMCBN254) Merge(left, right fr.Element) fr.Element {
	h := mimc.NewMiMC()

	l := left.Bytes()
	r := right.Bytes()
	// Canonical encodings are always below the modulus, Write can not fail.
	_, _ = h.Write(l[:])
	_, _ = h.Write(r[:])

	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}
