package metastore

import (
	"bytes"
	"time"

	"github.com/boltdb/bolt"
)

// metaBucket is the single bolt bucket everything lives in. The keyspace
// is already namespaced by prefix (see keys.go), so one bucket is enough:
// the same flat namespace the replicated store exposes.
var metaBucket = []byte("meta")

// BoltStore is a Store backed by a local boltdb file. It's the single-node
// stand-in for the real system's replicated KV store.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if necessary) a boltdb file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Get implements Store.
func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(key)
		if v == nil {
			return ErrNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Prefix implements Store.
func (s *BoltStore) Prefix(prefix []byte) (Iterator, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, err
	}
	c := tx.Bucket(metaBucket).Cursor()
	return &boltIterator{tx: tx, cursor: c, prefix: prefix, started: false}, nil
}

// AsyncMultiPut implements Store. boltdb transactions are already durable
// on commit, so the "async" one-shot barrier collapses to a single
// synchronous batch write here.
func (s *BoltStore) AsyncMultiPut(kvs []KV) error {
	return s.db.Batch(func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket)
		for _, kv := range kvs {
			if err := b.Put(kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

type boltIterator struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	prefix  []byte
	started bool
	key     []byte
	value   []byte
}

func (it *boltIterator) Next() bool {
	var k, v []byte
	if !it.started {
		it.started = true
		k, v = it.cursor.Seek(it.prefix)
	} else {
		k, v = it.cursor.Next()
	}
	if k == nil || !bytes.HasPrefix(k, it.prefix) {
		it.key, it.value = nil, nil
		return false
	}
	it.key = append([]byte(nil), k...)
	it.value = append([]byte(nil), v...)
	return true
}

func (it *boltIterator) Key() []byte   { return it.key }
func (it *boltIterator) Value() []byte { return it.value }

func (it *boltIterator) Close() error {
	return it.tx.Rollback()
}
