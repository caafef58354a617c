// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"github.com/syndtr/goleveldb/leveldb/errors"
)

// Iterator walks the key/value pairs of a snapshot within a Range in key
// order.
type Iterator interface {
	// First moves the iterator to the first key/value pair.  It returns
	// whether such pair exists.
	First() bool

	// Last moves the iterator to the last key/value pair.  It returns
	// whether such pair exists.
	Last() bool

	// Seek moves the iterator to the first key/value pair whose key is
	// greater than or equal to the given key.  It returns whether such pair
	// exists.
	Seek(key []byte) bool

	// Next moves the iterator to the next key/value pair.  It returns false
	// if the iterator is exhausted.  Calling Next on a fresh iterator
	// positions it on the first pair.
	Next() bool

	// Prev moves the iterator to the previous key/value pair.  It returns
	// false if the iterator is exhausted.
	Prev() bool

	Valid() bool

	// Error returns any accumulated error.  Exhausting all the key/value
	// pairs is not considered to be an error.
	Error() error

	// Key returns the key of the current key/value pair, or nil if done.
	// The caller should not modify the contents of the returned slice, and
	// its contents may change on the next call to any positioning method.
	Key() []byte

	// Value returns the value of the current key/value pair, or nil if
	// done.  The same ownership rules as Key apply.
	Value() []byte

	Releaser
}

var (
	// ErrIterReleased is returned by Error once an iterator was released.
	ErrIterReleased = errors.New("iterator: iterator released")
)

// Range is a key range.
type Range struct {
	// Start of the key range, included in the range.
	Start []byte

	// Limit of the key range, not included in the range.  A nil limit
	// means the range is unbounded above.
	Limit []byte
}

// BytesPrefix returns the key range that covers every key carrying the given
// prefix.
func BytesPrefix(prefix []byte) *Range {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c < 0xff {
			limit = make([]byte, i+1)
			copy(limit, prefix)
			limit[i] = c + 1
			break
		}
	}
	return &Range{prefix, limit}
}
