// Package bridgeexit computes the leaf commitment of a bridge exit, the value
// appended to a rollup's local exit tree.
package bridgeexit

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// LeafType distinguishes asset transfers from message passing.
type LeafType uint8

const (
	LeafTypeTransfer LeafType = 0
	LeafTypeMessage  LeafType = 1
)

func (l LeafType) String() string {
	switch l {
	case LeafTypeTransfer:
		return "transfer"
	case LeafTypeMessage:
		return "message"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(l))
	}
}

// ParseLeafType accepts the names returned by String.
func ParseLeafType(s string) (LeafType, error) {
	switch s {
	case "transfer":
		return LeafTypeTransfer, nil
	case "message":
		return LeafTypeMessage, nil
	default:
		return 0, fmt.Errorf("unsupported leaf type: %s", s)
	}
}

// TokenInfo identifies a token by the network it was minted on.
type TokenInfo struct {
	OriginNetwork      uint32         `json:"originNetwork"`
	OriginTokenAddress common.Address `json:"originTokenAddress"`
}

// BridgeExit is a single transfer or message leaving a rollup.
type BridgeExit struct {
	LeafType    LeafType       `json:"leafType"`
	TokenInfo   TokenInfo      `json:"tokenInfo"`
	DestNetwork uint32         `json:"destNetwork"`
	DestAddress common.Address `json:"destAddress"`
	Amount      *uint256.Int   `json:"amount"`
	Metadata    []byte         `json:"metadata,omitempty"`
}

// packedLength is the size of the abi.encodePacked preimage:
// uint8 | uint32 | address | uint32 | address | uint256 | bytes32.
const packedLength = 1 + 4 + common.AddressLength + 4 + common.AddressLength + 32 + common.HashLength

// Hash returns the leaf value the bridge contract computes for this exit:
//
//	keccak256(abi.encodePacked(leafType, originNetwork, originTokenAddress,
//	    destinationNetwork, destinationAddress, amount, keccak256(metadata)))
//
// A nil Amount encodes as zero.
func (b *BridgeExit) Hash() common.Hash {
	buf := make([]byte, 0, packedLength)
	buf = append(buf, byte(b.LeafType))
	buf = binary.BigEndian.AppendUint32(buf, b.TokenInfo.OriginNetwork)
	buf = append(buf, b.TokenInfo.OriginTokenAddress.Bytes()...)
	buf = binary.BigEndian.AppendUint32(buf, b.DestNetwork)
	buf = append(buf, b.DestAddress.Bytes()...)

	var amount [32]byte
	if b.Amount != nil {
		amount = b.Amount.Bytes32()
	}
	buf = append(buf, amount[:]...)
	buf = append(buf, b.MetadataHash().Bytes()...)

	return crypto.Keccak256Hash(buf)
}

// MetadataHash is keccak256 of the raw metadata; empty metadata hashes the
// empty string.
func (b *BridgeExit) MetadataHash() common.Hash {
	return crypto.Keccak256Hash(b.Metadata)
}
