// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package engine defines the key/value storage abstraction the step trace
// store is written against.  Concrete backends live in the leveldb and
// pebbledb packages.
package engine

// Engine is an open key/value database.
type Engine interface {
	// Transaction opens a write batch.  Nothing is visible to snapshots
	// until Commit returns.
	Transaction() (Transaction, error)

	// Snapshot returns a consistent read-only view of the committed data.
	Snapshot() (Snapshot, error)

	// Close closes the database.  Closing it twice is an error.
	Close() error
}

// Transaction is a batch of writes applied atomically by Commit.
type Transaction interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error

	// Discard abandons the batch.  It is safe to call more than once and
	// after Commit.
	Discard()
}

// Snapshot is a point-in-time read view.  Get returns an error when the key
// does not exist.
type Snapshot interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	NewIterator(*Range) Iterator
	Releaser
}

// Releaser is implemented by every resource that must be released once the
// caller is done with it.  Release is idempotent.
type Releaser interface {
	Release()
}
