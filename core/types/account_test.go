package types

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestAccountEncodeDecode(t *testing.T) {
	acct := &Account{
		Nonce:    7,
		Balance:  uint256.NewInt(1000),
		Root:     HexToHash("0x11"),
		CodeHash: HexToHash("0x22").Bytes(),
	}
	enc, err := EncodeAccount(acct)
	if err != nil {
		t.Fatalf("EncodeAccount failed: %v", err)
	}
	dec, err := DecodeAccount(enc)
	if err != nil {
		t.Fatalf("DecodeAccount failed: %v", err)
	}
	if dec.Nonce != 7 {
		t.Fatalf("Nonce = %d, want 7", dec.Nonce)
	}
	if dec.Balance.Uint64() != 1000 {
		t.Fatalf("Balance = %d, want 1000", dec.Balance.Uint64())
	}
	if dec.Root != acct.Root {
		t.Fatalf("Root = %s, want %s", dec.Root, acct.Root)
	}
	if BytesToHash(dec.CodeHash) != BytesToHash(acct.CodeHash) {
		t.Fatalf("CodeHash = %x, want %x", dec.CodeHash, acct.CodeHash)
	}
}

func TestAccountEmptyReferences(t *testing.T) {
	acct := NewAccount()
	if acct.HasStorage() {
		t.Fatal("empty account should not reference storage")
	}
	if acct.HasCode() {
		t.Fatal("empty account should not reference code")
	}

	acct.Root = HexToHash("0x01")
	acct.CodeHash = HexToHash("0x02").Bytes()
	if !acct.HasStorage() {
		t.Fatal("account with storage root should report HasStorage")
	}
	if !acct.HasCode() {
		t.Fatal("account with code hash should report HasCode")
	}
}
