// Package metastore defines the metadata key-value store contract the
// balancer is coded against and two concrete implementations: a
// boltdb-backed one for a real single-node deployment, and an in-memory
// one for tests.
//
// The KV store itself is a leader-replicated, Raft-backed store in the
// real system, an external collaborator this repository doesn't carry;
// Store is the seam the balancer code is written against so either
// implementation (or a future distributed one) can stand in.
package metastore

import "errors"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("metastore: key not found")

// KV is a single key/value pair, used for batched writes.
type KV struct {
	Key   []byte
	Value []byte
}

// Iterator walks keys sharing a prefix in lexicographic order.
type Iterator interface {
	// Next advances the iterator and reports whether a value is available.
	Next() bool
	Key() []byte
	Value() []byte
	// Close releases any resources held by the iterator.
	Close() error
}

// Store is the metadata KV contract: get, prefix-scan, and an
// async-but-barriered multi-put. Keys are opaque byte strings built by the
// helpers in keys.go.
type Store interface {
	// Get returns ErrNotFound if key does not exist.
	Get(key []byte) ([]byte, error)

	// Prefix returns an Iterator over all keys beginning with prefix.
	Prefix(prefix []byte) (Iterator, error)

	// AsyncMultiPut writes all of kvs. Despite the name (kept from the
	// replicated store's async-dispatch API), this call blocks until the
	// write lands or fails; the one-shot barrier is internal to the
	// implementation, not the caller's problem.
	AsyncMultiPut(kvs []KV) error

	// Close releases the store's resources.
	Close() error
}
