package rawdb

import (
	"bytes"
	"testing"

	"github.com/q9f/besu/core/types"
)

func TestWorldStateStorageTrieNodes(t *testing.T) {
	ws := NewWorldStateStorage(NewMemoryKVStore())
	hash := types.HexToHash("0xaa")
	node := []byte{0x01, 0x02, 0x03, 0x04}

	if _, ok := ws.GetAccountStateTrieNode(hash); ok {
		t.Fatal("expected absent trie node")
	}
	if ws.ContainsTrieNode(hash) {
		t.Fatal("ContainsTrieNode = true for absent node")
	}

	if err := ws.PutAccountStateTrieNode(hash, node); err != nil {
		t.Fatalf("PutAccountStateTrieNode failed: %v", err)
	}
	got, ok := ws.GetAccountStateTrieNode(hash)
	if !ok || !bytes.Equal(got, node) {
		t.Fatalf("GetAccountStateTrieNode = %x, %v; want %x, true", got, ok, node)
	}
	if !ws.ContainsTrieNode(hash) {
		t.Fatal("ContainsTrieNode = false after put")
	}

	// Account and storage trie nodes are content addressed and share the
	// namespace.
	got, ok = ws.GetAccountStorageTrieNode(hash)
	if !ok || !bytes.Equal(got, node) {
		t.Fatalf("GetAccountStorageTrieNode = %x, %v; want %x, true", got, ok, node)
	}
}

func TestWorldStateStorageCodeNamespace(t *testing.T) {
	ws := NewWorldStateStorage(NewMemoryKVStore())
	hash := types.HexToHash("0xbb")
	code := []byte("bytecode")

	if err := ws.PutCode(hash, code); err != nil {
		t.Fatalf("PutCode failed: %v", err)
	}
	got, ok := ws.GetCode(hash)
	if !ok || !bytes.Equal(got, code) {
		t.Fatalf("GetCode = %x, %v; want %x, true", got, ok, code)
	}
	if !ws.ContainsCode(hash) {
		t.Fatal("ContainsCode = false after put")
	}

	// Code lives in a different namespace from trie nodes.
	if _, ok := ws.GetAccountStateTrieNode(hash); ok {
		t.Fatal("code visible through the trie node namespace")
	}
}
