package rawdb

import "github.com/q9f/besu/core/types"

// Key prefixes for the database schema. Prefix-based keying follows
// go-ethereum's approach to avoid collisions between namespaces.
var (
	// Contract code
	codePrefix = []byte("C") // C + code hash -> contract bytecode

	// State trie nodes (account and storage tries share the namespace;
	// nodes are content addressed, so the same bytes hash to the same key)
	trieNodePrefix = []byte("t") // t + node hash -> trie node data
)

// trieNodeKey = trieNodePrefix + hash
func trieNodeKey(hash types.Hash) []byte {
	return append(append([]byte{}, trieNodePrefix...), hash.Bytes()...)
}

// codeKey = codePrefix + hash
func codeKey(hash types.Hash) []byte {
	return append(append([]byte{}, codePrefix...), hash.Bytes()...)
}
