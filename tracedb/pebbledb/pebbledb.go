// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pebbledb implements the trace store engine on top of pebble.
package pebbledb

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/btcsuite/btcscript/tracedb/engine"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

var (
	ErrDbClosed         = errors.New("pebbledb: closed")
	ErrTxClosed         = errors.New("pebbledb: transaction already closed")
	ErrSnapshotReleased = errors.New("pebbledb: snapshot released")
)

const (
	// DefaultCache is the block cache size in MiB used when none is given.
	DefaultCache = 16

	// DefaultHandles is the open file limit used when none is given.
	DefaultHandles = 16

	// numLevels is the number of LSM levels given explicit options.  The
	// target file size doubles from 2 MiB at every level.
	numLevels = 4
)

// NewDB opens the pebble database at dbPath, creating it when it does not
// exist.  When create is set an existing database is an error.  A cache or
// handles value of zero selects the default.
func NewDB(dbPath string, create bool, cache, handles int) (engine.Engine, error) {
	if cache <= 0 {
		cache = DefaultCache
	}
	if handles <= 0 {
		handles = DefaultHandles
	}

	c := pebble.NewCache(int64(cache) << 20)
	defer c.Unref()

	levels := make([]pebble.LevelOptions, numLevels)
	for i := range levels {
		levels[i] = pebble.LevelOptions{
			TargetFileSize: 2 << 20 << i,
			FilterPolicy:   bloom.FilterPolicy(10),
		}
	}

	opts := &pebble.Options{
		Cache:                    c,
		ErrorIfExists:            create,
		MaxOpenFiles:             handles,
		MaxConcurrentCompactions: runtime.NumCPU,
		Levels:                   levels,
	}
	opts.Experimental.ReadSamplingMultiplier = -1

	pdb, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, err
	}
	return &store{pdb: pdb}, nil
}

// store adapts a pebble handle to engine.Engine.
type store struct {
	pdb    *pebble.DB
	closed atomic.Bool
}

// Transaction returns a new write batch.  Unlike leveldb, any number of
// batches may be open concurrently.
func (s *store) Transaction() (engine.Transaction, error) {
	if s.closed.Load() {
		return nil, ErrDbClosed
	}
	return &batch{b: s.pdb.NewBatch()}, nil
}

func (s *store) Snapshot() (engine.Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrDbClosed
	}
	return &view{snap: s.pdb.NewSnapshot()}, nil
}

func (s *store) Close() error {
	if s.closed.Swap(true) {
		return ErrDbClosed
	}
	return s.pdb.Close()
}

// batch adapts a pebble batch to engine.Transaction.  The batch is closed by
// Commit or Discard, whichever comes first.
type batch struct {
	b    *pebble.Batch
	done bool
}

func (t *batch) Put(key, value []byte) error {
	if t.done {
		return ErrTxClosed
	}
	return t.b.Set(key, value, pebble.NoSync)
}

func (t *batch) Delete(key []byte) error {
	if t.done {
		return ErrTxClosed
	}
	return t.b.Delete(key, pebble.NoSync)
}

func (t *batch) Commit() error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true
	defer t.b.Close()
	return t.b.Commit(pebble.Sync)
}

func (t *batch) Discard() {
	if !t.done {
		t.done = true
		t.b.Close()
	}
}

// view adapts a pebble snapshot to engine.Snapshot.
type view struct {
	snap     *pebble.Snapshot
	released bool
}

// Get returns a copy of the value stored under key.  The slice pebble hands
// out is only valid until its closer runs.
func (v *view) Get(key []byte) ([]byte, error) {
	if v.released {
		return nil, ErrSnapshotReleased
	}
	val, closer, err := v.snap.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

func (v *view) Has(key []byte) (bool, error) {
	_, err := v.Get(key)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (v *view) Release() {
	if !v.released {
		v.released = true
		v.snap.Close()
	}
}

// NewIterator returns an iterator over the passed range, positioned before
// its first pair so that Next yields it.  It returns nil once the snapshot
// is released.
func (v *view) NewIterator(r *engine.Range) engine.Iterator {
	if v.released {
		return nil
	}
	it, _ := v.snap.NewIter(&pebble.IterOptions{
		LowerBound: r.Start,
		UpperBound: r.Limit,
	})
	it.SeekLT(r.Start)
	return &cursor{Iterator: it}
}

// cursor adapts a pebble iterator to engine.Iterator.  Navigation methods
// come from the embedded iterator.
type cursor struct {
	*pebble.Iterator
	released bool
}

func (c *cursor) Seek(key []byte) bool {
	return c.SeekGE(key)
}

// Key returns nil once the cursor is exhausted.
func (c *cursor) Key() []byte {
	if !c.Valid() {
		return nil
	}
	return c.Iterator.Key()
}

// Value returns nil once the cursor is exhausted.
func (c *cursor) Value() []byte {
	if !c.Valid() {
		return nil
	}
	return c.Iterator.Value()
}

func (c *cursor) Error() error {
	if c.released {
		return engine.ErrIterReleased
	}
	return c.Iterator.Error()
}

func (c *cursor) Release() {
	if !c.released {
		c.released = true
		c.Close()
	}
}
