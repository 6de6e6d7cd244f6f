package types

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Account is the consensus representation of an Ethereum account as stored
// in the leaves of the account state trie.
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	Root     Hash   // storage trie root (EmptyRootHash for no storage)
	CodeHash []byte // keccak256 of code (EmptyCodeHash for EOAs)
}

// NewAccount creates an account with zero balance, no storage and no code.
func NewAccount() Account {
	return Account{
		Balance:  new(uint256.Int),
		Root:     EmptyRootHash,
		CodeHash: EmptyCodeHash.Bytes(),
	}
}

// HasStorage returns whether the account references a non-empty storage trie.
func (a *Account) HasStorage() bool {
	return !a.Root.IsZero() && a.Root != EmptyRootHash
}

// HasCode returns whether the account references non-empty bytecode.
func (a *Account) HasCode() bool {
	return len(a.CodeHash) == HashLength && BytesToHash(a.CodeHash) != EmptyCodeHash
}

// DecodeAccount decodes the RLP encoding of a state trie account leaf value.
func DecodeAccount(data []byte) (*Account, error) {
	acct := new(Account)
	if err := rlp.DecodeBytes(data, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// EncodeAccount returns the RLP encoding of the account.
func EncodeAccount(a *Account) ([]byte, error) {
	return rlp.EncodeToBytes(a)
}
