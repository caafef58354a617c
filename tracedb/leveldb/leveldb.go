// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leveldb implements the trace store engine on top of goleveldb.
package leveldb

import (
	"github.com/btcsuite/btcscript/tracedb/engine"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// bloomBits is the number of bloom filter bits kept per key.  Run summaries
// are looked up by key, so a filter avoids touching every table.
const bloomBits = 10

// NewDB opens the leveldb database at dbPath, creating it when it does not
// exist.  When create is set an existing database is an error.  Step records
// are small and written once, so compression is left off.
func NewDB(dbPath string, create bool) (engine.Engine, error) {
	ldb, err := leveldb.OpenFile(dbPath, &opt.Options{
		ErrorIfExist: create,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(bloomBits),
	})
	if err != nil {
		return nil, err
	}
	return &store{ldb: ldb}, nil
}

// store adapts a goleveldb handle to engine.Engine.
type store struct {
	ldb *leveldb.DB
}

// Transaction opens a leveldb transaction.  Only one may be open at a time;
// a second caller blocks until the first commits or discards.
func (s *store) Transaction() (engine.Transaction, error) {
	tx, err := s.ldb.OpenTransaction()
	if err != nil {
		return nil, err
	}
	return &batch{tx: tx}, nil
}

func (s *store) Snapshot() (engine.Snapshot, error) {
	snap, err := s.ldb.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &view{snap: snap}, nil
}

func (s *store) Close() error {
	return s.ldb.Close()
}

// batch adapts a leveldb transaction to engine.Transaction.  Discard and
// Commit are already idempotent in goleveldb.
type batch struct {
	tx *leveldb.Transaction
}

func (b *batch) Put(key, value []byte) error { return b.tx.Put(key, value, nil) }
func (b *batch) Delete(key []byte) error     { return b.tx.Delete(key, nil) }
func (b *batch) Commit() error               { return b.tx.Commit() }
func (b *batch) Discard()                    { b.tx.Discard() }

// view adapts a leveldb snapshot to engine.Snapshot.
type view struct {
	snap *leveldb.Snapshot
}

func (v *view) Get(key []byte) ([]byte, error) { return v.snap.Get(key, nil) }
func (v *view) Has(key []byte) (bool, error)   { return v.snap.Has(key, nil) }
func (v *view) Release()                       { v.snap.Release() }

// NewIterator returns an iterator over the passed range.  The goleveldb
// iterator satisfies engine.Iterator as is.
func (v *view) NewIterator(r *engine.Range) engine.Iterator {
	return v.snap.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)
}
