package sync

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/q9f/besu/core/types"
	"github.com/q9f/besu/crypto"
)

func TestPersistByKind(t *testing.T) {
	storage := newTestStorage()

	node := []byte("trie node")
	nodeHash := crypto.Keccak256Hash(node)
	if err := CreateAccountDataRequest(nodeHash).SetData(node).Persist(storage); err != nil {
		t.Fatalf("persist account trie node: %v", err)
	}
	if got, ok := storage.GetAccountStateTrieNode(nodeHash); !ok || !bytes.Equal(got, node) {
		t.Fatalf("account trie node = %x, %v", got, ok)
	}

	code := []byte("bytecode")
	codeHash := crypto.Keccak256Hash(code)
	if err := CreateCodeRequest(codeHash).SetData(code).Persist(storage); err != nil {
		t.Fatalf("persist code: %v", err)
	}
	if got, ok := storage.GetCode(codeHash); !ok || !bytes.Equal(got, code) {
		t.Fatalf("code = %x, %v", got, ok)
	}
	// Code must not leak into the trie node namespace.
	if storage.ContainsTrieNode(codeHash) {
		t.Fatal("code visible as trie node")
	}
}

func TestPersistWithoutData(t *testing.T) {
	err := CreateAccountDataRequest(types.HexToHash("0x01")).Persist(newTestStorage())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("Persist without data = %v, want ErrNoData", err)
	}
}

func TestChildRequestsForCode(t *testing.T) {
	req := CreateCodeRequest(types.HexToHash("0x02")).SetData([]byte("bytecode"))
	children, err := req.ChildRequests()
	if err != nil {
		t.Fatalf("ChildRequests failed: %v", err)
	}
	if len(children) != 0 {
		t.Fatalf("code request has %d children, want 0", len(children))
	}
}

func TestChildRequestsForBranchNode(t *testing.T) {
	childA := types.HexToHash("0x0a")
	childB := types.HexToHash("0x0b")
	data := encodeBranchNode(t, map[int]types.Hash{2: childA, 7: childB})

	children, err := CreateAccountDataRequest(crypto.Keccak256Hash(data)).SetData(data).ChildRequests()
	if err != nil {
		t.Fatalf("ChildRequests failed: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("children = %d, want 2", len(children))
	}
	for _, child := range children {
		if child.Kind() != AccountTrieNodeRequest {
			t.Fatalf("account trie child kind = %s, want account-trie-node", child.Kind())
		}
	}
	if children[0].Hash() != childA || children[1].Hash() != childB {
		t.Fatalf("child hashes = %s, %s; want %s, %s",
			children[0].Hash(), children[1].Hash(), childA, childB)
	}
}

func TestChildRequestsKeepStorageKind(t *testing.T) {
	child := types.HexToHash("0x0c")
	data := encodeBranchNode(t, map[int]types.Hash{0: child})

	children, err := CreateStorageDataRequest(crypto.Keccak256Hash(data)).SetData(data).ChildRequests()
	if err != nil {
		t.Fatalf("ChildRequests failed: %v", err)
	}
	if len(children) != 1 || children[0].Kind() != StorageTrieNodeRequest {
		t.Fatalf("children = %v, want one storage-trie-node request", children)
	}
}

func TestChildRequestsForContractAccountLeaf(t *testing.T) {
	storageRoot := types.HexToHash("0x11")
	codeHash := types.HexToHash("0x22")
	acct := &types.Account{
		Nonce:    1,
		Balance:  uint256.NewInt(1000),
		Root:     storageRoot,
		CodeHash: codeHash.Bytes(),
	}
	data := encodeAccountLeaf(t, []byte{0x12, 0x34}, acct)

	children, err := CreateAccountDataRequest(crypto.Keccak256Hash(data)).SetData(data).ChildRequests()
	if err != nil {
		t.Fatalf("ChildRequests failed: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("children = %d, want storage root and code", len(children))
	}
	if children[0].Kind() != StorageTrieNodeRequest || children[0].Hash() != storageRoot {
		t.Fatalf("first child = %s %s, want storage-trie-node %s",
			children[0].Kind(), children[0].Hash(), storageRoot)
	}
	if children[1].Kind() != CodeRequest || children[1].Hash() != codeHash {
		t.Fatalf("second child = %s %s, want code %s",
			children[1].Kind(), children[1].Hash(), codeHash)
	}
}

func TestChildRequestsForEmptyAccountLeaf(t *testing.T) {
	acct := types.NewAccount()
	data := encodeAccountLeaf(t, []byte{0x56, 0x78}, &acct)

	children, err := CreateAccountDataRequest(crypto.Keccak256Hash(data)).SetData(data).ChildRequests()
	if err != nil {
		t.Fatalf("ChildRequests failed: %v", err)
	}
	if len(children) != 0 {
		t.Fatalf("empty account leaf has %d children, want 0", len(children))
	}
}

func TestChildRequestsInvalidData(t *testing.T) {
	req := CreateAccountDataRequest(types.HexToHash("0x03")).SetData([]byte{0xff, 0xfe})
	if _, err := req.ChildRequests(); err == nil {
		t.Fatal("expected decode error for garbage node data")
	}

	if _, err := CreateAccountDataRequest(types.HexToHash("0x04")).ChildRequests(); !errors.Is(err, ErrNoData) {
		t.Fatalf("ChildRequests without data = %v, want ErrNoData", err)
	}
}
