package metastore

import (
	"bytes"
	"sort"
	"sync"
)

// MemStore is an in-memory Store, used by tests that want a fast,
// disposable MetaStore without a boltdb file on disk.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Get implements Store.
func (s *MemStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Prefix implements Store.
func (s *MemStore) Prefix(prefix []byte) (Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	kvs := make([]KV, len(keys))
	for i, k := range keys {
		kvs[i] = KV{Key: []byte(k), Value: append([]byte(nil), s.data[k]...)}
	}
	return &memIterator{kvs: kvs, pos: -1}, nil
}

// AsyncMultiPut implements Store.
func (s *MemStore) AsyncMultiPut(kvs []KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kv := range kvs {
		s.data[string(kv.Key)] = append([]byte(nil), kv.Value...)
	}
	return nil
}

// Close implements Store.
func (s *MemStore) Close() error {
	return nil
}

type memIterator struct {
	kvs []KV
	pos int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.kvs)
}

func (it *memIterator) Key() []byte {
	return it.kvs[it.pos].Key
}

func (it *memIterator) Value() []byte {
	return it.kvs[it.pos].Value
}

func (it *memIterator) Close() error {
	return nil
}
