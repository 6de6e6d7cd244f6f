package types

import "math/big"

// Header carries the block header fields relevant to world state
// synchronization. Root is the state trie root committed by the block; it is
// the hash under which the downloaded root node is persisted.
type Header struct {
	ParentHash Hash
	Coinbase   Address
	Root       Hash
	TxHash     Hash
	Number     *big.Int
	GasLimit   uint64
	GasUsed    uint64
	Time       uint64
	Extra      []byte
}

// StateRoot returns the state trie root committed by this header.
func (h *Header) StateRoot() Hash { return h.Root }

// NumberU64 returns the block number, or zero when unset.
func (h *Header) NumberU64() uint64 {
	if h.Number == nil {
		return 0
	}
	return h.Number.Uint64()
}
