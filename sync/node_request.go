package sync

import (
	"errors"
	"fmt"

	"github.com/q9f/besu/core/rawdb"
	"github.com/q9f/besu/core/types"
	"github.com/q9f/besu/trie"
)

// Node data request errors.
var (
	ErrNoData = errors.New("sync: request has no data to persist")
)

// RequestKind distinguishes the namespaces a node data request targets.
type RequestKind byte

const (
	// AccountTrieNodeRequest fetches a node of the account state trie.
	AccountTrieNodeRequest RequestKind = iota
	// StorageTrieNodeRequest fetches a node of a contract storage trie.
	StorageTrieNodeRequest
	// CodeRequest fetches contract bytecode.
	CodeRequest
)

// String returns a human-readable name for the request kind.
func (k RequestKind) String() string {
	switch k {
	case AccountTrieNodeRequest:
		return "account-trie-node"
	case StorageTrieNodeRequest:
		return "storage-trie-node"
	case CodeRequest:
		return "code"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

// NodeDataRequest describes one piece of world state to fetch from the
// network, identified by content hash and kind. The hash and kind are
// immutable; the data field is filled in once a response arrives.
type NodeDataRequest struct {
	kind RequestKind
	hash types.Hash
	data []byte
}

// CreateAccountDataRequest creates a request for an account trie node.
func CreateAccountDataRequest(hash types.Hash) *NodeDataRequest {
	return &NodeDataRequest{kind: AccountTrieNodeRequest, hash: hash}
}

// CreateStorageDataRequest creates a request for a storage trie node.
func CreateStorageDataRequest(hash types.Hash) *NodeDataRequest {
	return &NodeDataRequest{kind: StorageTrieNodeRequest, hash: hash}
}

// CreateCodeRequest creates a request for contract bytecode.
func CreateCodeRequest(hash types.Hash) *NodeDataRequest {
	return &NodeDataRequest{kind: CodeRequest, hash: hash}
}

// Kind returns the request kind.
func (r *NodeDataRequest) Kind() RequestKind { return r.kind }

// Hash returns the content hash identifying the requested data.
func (r *NodeDataRequest) Hash() types.Hash { return r.hash }

// Data returns the response bytes, or nil before a response arrived.
func (r *NodeDataRequest) Data() []byte { return r.data }

// SetData records the response bytes for this request.
func (r *NodeDataRequest) SetData(data []byte) *NodeDataRequest {
	r.data = data
	return r
}

// Persist writes the request's data into world state storage under its
// content hash. Returns ErrNoData when no response has been recorded.
func (r *NodeDataRequest) Persist(storage *rawdb.WorldStateStorage) error {
	if r.data == nil {
		return fmt.Errorf("%w: %s %s", ErrNoData, r.kind, r.hash)
	}
	switch r.kind {
	case AccountTrieNodeRequest:
		return storage.PutAccountStateTrieNode(r.hash, r.data)
	case StorageTrieNodeRequest:
		return storage.PutAccountStorageTrieNode(r.hash, r.data)
	case CodeRequest:
		return storage.PutCode(r.hash, r.data)
	default:
		return fmt.Errorf("sync: cannot persist request of kind %s", r.kind)
	}
}

// ChildRequests decodes the response data and returns the further requests
// it implies: child trie nodes for interior nodes, plus storage tries and
// bytecode referenced by account leaves. Code responses never have
// children.
func (r *NodeDataRequest) ChildRequests() ([]*NodeDataRequest, error) {
	if r.kind == CodeRequest {
		return nil, nil
	}
	if r.data == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, r.kind, r.hash)
	}
	node, err := trie.DecodeNode(r.data)
	if err != nil {
		return nil, fmt.Errorf("sync: decode %s %s: %w", r.kind, r.hash, err)
	}

	var children []*NodeDataRequest
	for _, childHash := range node.ChildHashes {
		if r.kind == AccountTrieNodeRequest {
			children = append(children, CreateAccountDataRequest(childHash))
		} else {
			children = append(children, CreateStorageDataRequest(childHash))
		}
	}
	if r.kind == AccountTrieNodeRequest {
		// Account leaves reference a storage trie and bytecode.
		for _, value := range node.Values {
			acct, err := types.DecodeAccount(value)
			if err != nil {
				return nil, fmt.Errorf("sync: decode account leaf in %s: %w", r.hash, err)
			}
			if acct.HasStorage() {
				children = append(children, CreateStorageDataRequest(acct.Root))
			}
			if acct.HasCode() {
				children = append(children, CreateCodeRequest(types.BytesToHash(acct.CodeHash)))
			}
		}
	}
	return children, nil
}
