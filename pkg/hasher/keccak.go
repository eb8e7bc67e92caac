package hasher

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 is the merge rule of the on-chain bridge contract:
// keccak256(abi.encodePacked(left, right)).
type Keccak256 struct{}

var _ Hasher[common.Hash] = Keccak256{}

// Merge hashes the 64-byte concatenation left || right.
func (Keccak256) Merge(left, right common.Hash) common.Hash {
	var data [2 * common.HashLength]byte
	copy(data[:common.HashLength], left[:])
	copy(data[common.HashLength:], right[:])

	return crypto.Keccak256Hash(data[:])
}
