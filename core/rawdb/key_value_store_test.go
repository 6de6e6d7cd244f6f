package rawdb

import (
	"errors"
	"testing"
)

func TestMemoryKVStoreGetPut(t *testing.T) {
	store := NewMemoryKVStore()

	if _, err := store.Get([]byte("missing")); !errors.Is(err, ErrKVNotFound) {
		t.Fatalf("expected ErrKVNotFound, got %v", err)
	}

	if err := store.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	val, err := store.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "v" {
		t.Fatalf("Get = %q, want %q", val, "v")
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
}

func TestMemoryKVStoreCopiesValues(t *testing.T) {
	store := NewMemoryKVStore()
	val := []byte("original")
	store.Put([]byte("k"), val)
	val[0] = 'X'

	got, _ := store.Get([]byte("k"))
	if string(got) != "original" {
		t.Fatalf("stored value mutated: %q", got)
	}
	got[0] = 'Y'
	again, _ := store.Get([]byte("k"))
	if string(again) != "original" {
		t.Fatalf("returned value aliases storage: %q", again)
	}
}

func TestMemoryKVStoreDeleteHas(t *testing.T) {
	store := NewMemoryKVStore()
	store.Put([]byte("k"), []byte("v"))

	ok, _ := store.Has([]byte("k"))
	if !ok {
		t.Fatal("Has = false for existing key")
	}
	if err := store.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ok, _ = store.Has([]byte("k"))
	if ok {
		t.Fatal("Has = true after delete")
	}
	// Deleting an absent key is a no-op.
	if err := store.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete of absent key failed: %v", err)
	}
}
