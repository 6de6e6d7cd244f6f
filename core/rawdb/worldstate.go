package rawdb

import (
	"github.com/q9f/besu/core/types"
)

// WorldStateStorage persists world state data (trie nodes and contract
// code) keyed by content hash. Account and storage trie nodes share a
// namespace since both are content addressed.
type WorldStateStorage struct {
	store KVStore
}

// NewWorldStateStorage creates a WorldStateStorage over the given store.
func NewWorldStateStorage(store KVStore) *WorldStateStorage {
	return &WorldStateStorage{store: store}
}

// GetAccountStateTrieNode returns the bytes of an account trie node, or
// false when the node is not present.
func (ws *WorldStateStorage) GetAccountStateTrieNode(hash types.Hash) ([]byte, bool) {
	return ws.getTrieNode(hash)
}

// GetAccountStorageTrieNode returns the bytes of a storage trie node, or
// false when the node is not present.
func (ws *WorldStateStorage) GetAccountStorageTrieNode(hash types.Hash) ([]byte, bool) {
	return ws.getTrieNode(hash)
}

// GetCode returns contract bytecode by code hash, or false when absent.
func (ws *WorldStateStorage) GetCode(hash types.Hash) ([]byte, bool) {
	data, err := ws.store.Get(codeKey(hash))
	if err != nil {
		return nil, false
	}
	return data, true
}

// ContainsTrieNode returns whether a trie node is already persisted.
func (ws *WorldStateStorage) ContainsTrieNode(hash types.Hash) bool {
	ok, err := ws.store.Has(trieNodeKey(hash))
	return err == nil && ok
}

// ContainsCode returns whether contract code is already persisted.
func (ws *WorldStateStorage) ContainsCode(hash types.Hash) bool {
	ok, err := ws.store.Has(codeKey(hash))
	return err == nil && ok
}

// PutAccountStateTrieNode persists the bytes of an account trie node under
// its content hash.
func (ws *WorldStateStorage) PutAccountStateTrieNode(hash types.Hash, data []byte) error {
	return ws.store.Put(trieNodeKey(hash), data)
}

// PutAccountStorageTrieNode persists the bytes of a storage trie node under
// its content hash.
func (ws *WorldStateStorage) PutAccountStorageTrieNode(hash types.Hash, data []byte) error {
	return ws.store.Put(trieNodeKey(hash), data)
}

// PutCode persists contract bytecode under its code hash.
func (ws *WorldStateStorage) PutCode(hash types.Hash, code []byte) error {
	return ws.store.Put(codeKey(hash), code)
}

func (ws *WorldStateStorage) getTrieNode(hash types.Hash) ([]byte, bool) {
	data, err := ws.store.Get(trieNodeKey(hash))
	if err != nil {
		return nil, false
	}
	return data, true
}
