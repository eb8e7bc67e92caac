package hasher

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKeccak256_ZeroHashes checks the first empty subtree digests of the
// bridge contract.
func TestKeccak256_ZeroHashes(t *testing.T) {
	var h Keccak256
	z1 := h.Merge(common.Hash{}, common.Hash{})
	z2 := h.Merge(z1, z1)

	require.Equal(t, common.HexToHash("0xad3228b676f7d3cd4284a5443f17f1962b36e491b30a40b2405849e597ba5fb5"), z1)
	require.Equal(t, common.HexToHash("0xb4c11951957c6f8f642c4af61cd6b24640fec6dc7fc607ee8206a99e92410d30"), z2)
}

func TestKeccak256_MatchesPackedEncoding(t *testing.T) {
	var h Keccak256
	left := common.HexToHash("0x01")
	right := common.HexToHash("0x02")

	want := crypto.Keccak256Hash(append(left.Bytes(), right.Bytes()...))
	assert.Equal(t, want, h.Merge(left, right))
	assert.NotEqual(t, h.Merge(left, right), h.Merge(right, left))
}

func TestMiMCBN254_Merge(t *testing.T) {
	var h MiMCBN254
	a := fr.NewElement(1)
	b := fr.NewElement(2)

	ab := h.Merge(a, b)
	require.Equal(t, ab, h.Merge(a, b), "merge must be deterministic")
	require.NotEqual(t, ab, h.Merge(b, a), "merge must be order sensitive")
	require.False(t, ab.IsZero())

	var zero fr.Element
	require.NotEqual(t, zero, h.Merge(zero, zero))
}
