// Package trie decodes raw Merkle Patricia trie nodes far enough to drive
// world state download: it extracts the hash references a node makes to
// other nodes and the values carried in its leaves, without building a full
// in-memory trie.
package trie

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/q9f/besu/core/types"
)

// Node decode errors.
var (
	ErrInvalidNode = errors.New("trie: invalid encoded node")
	ErrInvalidRef  = errors.New("trie: invalid child reference")
)

// Node is the download-relevant content of a decoded trie node: the hashes
// of every child node it references and the values stored in its leaves.
// Embedded (sub-32-byte) child nodes are decoded recursively, so the result
// covers the entire RLP subtree rooted at the node.
type Node struct {
	ChildHashes []types.Hash
	Values      [][]byte
}

// DecodeNode decodes an RLP-encoded trie node into its child references
// and leaf values.
func DecodeNode(data []byte) (*Node, error) {
	if len(data) == 0 {
		return nil, ErrInvalidNode
	}
	n := new(Node)
	if err := decodeInto(data, n); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeInto(data []byte, n *Node) error {
	elems, _, err := rlp.SplitList(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}
	count, err := rlp.CountValues(elems)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}
	switch count {
	case 2:
		return decodeShortInto(elems, n)
	case 17:
		return decodeFullInto(elems, n)
	default:
		return fmt.Errorf("%w: expected 2 or 17 elements, got %d", ErrInvalidNode, count)
	}
}

// decodeShortInto handles extension and leaf nodes.
func decodeShortInto(elems []byte, n *Node) error {
	keyEnc, rest, err := rlp.SplitString(elems)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}
	key := compactToHex(keyEnc)
	if hasTerm(key) {
		// Leaf: the second element is the stored value.
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidNode, err)
		}
		n.Values = append(n.Values, val)
		return nil
	}
	// Extension: the second element references a child node.
	return decodeRefInto(rest, n)
}

// decodeFullInto handles branch nodes: 16 child slots plus a value slot.
func decodeFullInto(elems []byte, n *Node) error {
	rest := elems
	for i := 0; i < 16; i++ {
		var err error
		rest, err = decodeRefAdvance(rest, n)
		if err != nil {
			return err
		}
	}
	val, _, err := rlp.SplitString(rest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}
	if len(val) > 0 {
		n.Values = append(n.Values, val)
	}
	return nil
}

// decodeRefInto decodes a single child reference at the start of buf.
func decodeRefInto(buf []byte, n *Node) error {
	_, err := decodeRefAdvance(buf, n)
	return err
}

// decodeRefAdvance decodes the child reference at the start of buf and
// returns the remaining bytes. A reference is either a 32-byte hash, an
// embedded node (encoded in place when shorter than a hash), or empty.
func decodeRefAdvance(buf []byte, n *Node) ([]byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}
	switch {
	case kind == rlp.List:
		// Embedded node: decode the whole list element in place.
		size := len(buf) - len(rest)
		if err := decodeInto(buf[:size], n); err != nil {
			return nil, err
		}
	case len(val) == 0:
		// Empty slot.
	case len(val) == types.HashLength:
		n.ChildHashes = append(n.ChildHashes, types.BytesToHash(val))
	default:
		return nil, fmt.Errorf("%w: hash reference of length %d", ErrInvalidRef, len(val))
	}
	return rest, nil
}
