package rawdb

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBStore is a KVStore backed by a LevelDB instance on disk. It is
// the durable backend for world state data.
type LevelDBStore struct {
	db *leveldb.DB

	closeOnce sync.Once
	closeErr  error
}

// NewLevelDBStore opens (or creates) a LevelDB database at the given path.
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		// World state sync writes many small nodes; a larger write buffer
		// keeps compaction out of the hot path.
		WriteBuffer: 16 * opt.MiB,
	})
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

// Get retrieves the value for a key. Returns ErrKVNotFound if absent and
// ErrKVClosed after Close.
func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	val, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKVNotFound
	}
	if err != nil {
		return nil, wrapLevelDBErr(err)
	}
	return val, nil
}

// Put stores a key-value pair. Returns ErrKVClosed after Close.
func (s *LevelDBStore) Put(key, value []byte) error {
	return wrapLevelDBErr(s.db.Put(key, value, nil))
}

// Delete removes a key from the store. Returns ErrKVClosed after Close.
func (s *LevelDBStore) Delete(key []byte) error {
	return wrapLevelDBErr(s.db.Delete(key, nil))
}

// Has returns whether the key exists in the store. Returns ErrKVClosed
// after Close.
func (s *LevelDBStore) Has(key []byte) (bool, error) {
	ok, err := s.db.Has(key, nil)
	return ok, wrapLevelDBErr(err)
}

// wrapLevelDBErr maps goleveldb's closed-database error onto the store
// abstraction's sentinel.
func wrapLevelDBErr(err error) error {
	if errors.Is(err, leveldb.ErrClosed) {
		return ErrKVClosed
	}
	return err
}

// Close flushes and closes the underlying database. Safe to call more
// than once.
func (s *LevelDBStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
