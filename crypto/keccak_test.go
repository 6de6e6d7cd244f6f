package crypto

import (
	"testing"

	"github.com/q9f/besu/core/types"
)

func TestKeccak256EmptyInput(t *testing.T) {
	if got := Keccak256Hash(); got != types.EmptyCodeHash {
		t.Fatalf("keccak256 of empty input = %s, want %s", got, types.EmptyCodeHash)
	}
}

func TestKeccak256EmptyTrieRoot(t *testing.T) {
	// The empty trie root is keccak256 of the RLP encoding of an empty
	// string.
	if got := Keccak256Hash([]byte{0x80}); got != types.EmptyRootHash {
		t.Fatalf("keccak256(0x80) = %s, want %s", got, types.EmptyRootHash)
	}
}

func TestKeccak256Concatenates(t *testing.T) {
	joined := Keccak256([]byte("hello "), []byte("world"))
	whole := Keccak256([]byte("hello world"))
	if types.BytesToHash(joined) != types.BytesToHash(whole) {
		t.Fatalf("chunked hash %x differs from whole hash %x", joined, whole)
	}
}
