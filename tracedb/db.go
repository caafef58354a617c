// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package tracedb persists a step by step record of script evaluations.
//
// A Recorder is installed as the step hook of an evaluation and stores one
// StepRecord per decoded instruction.  Each evaluation is a run identified by
// a run ID which is assigned from a counter kept in the database, so runs
// from earlier sessions are never overwritten.  Records are buffered in a
// single write batch and become visible atomically when the run finishes.
//
// Two storage backends are supported, goleveldb and pebble.  Note that the
// leveldb backend allows a single open write batch, so concurrent recorders
// on a leveldb store are serialized.
package tracedb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/btcsuite/btcscript/tracedb/engine"
	"github.com/btcsuite/btcscript/tracedb/leveldb"
	"github.com/btcsuite/btcscript/tracedb/pebbledb"
)

const (
	// DbTypeLevelDB selects the goleveldb backend.
	DbTypeLevelDB = "leveldb"

	// DbTypePebble selects the pebble backend.
	DbTypePebble = "pebble"
)

// SupportedDrivers returns the names of the storage backends Open accepts.
func SupportedDrivers() []string {
	return []string{DbTypeLevelDB, DbTypePebble}
}

// Key prefixes.  Step keys are the prefix followed by the big endian run ID
// and step number so an iterator yields the steps of a run in order.
var (
	runKeyPrefix  = []byte("r")
	stepKeyPrefix = []byte("s")
)

var (
	// ErrUnknownDriver is returned by Open for an unsupported backend
	// name.
	ErrUnknownDriver = errors.New("tracedb: unknown database type")

	// ErrRunNotFound is returned by LoadRun when no finished run with the
	// requested ID exists.
	ErrRunNotFound = errors.New("tracedb: run not found")
)

// DB is an open trace store.
type DB struct {
	db engine.Engine

	mtx     sync.Mutex
	lastRun uint64
}

// Open opens the trace store of the given backend type at path, creating it
// when it does not exist yet.
func Open(dbType, path string) (*DB, error) {
	var create bool
	if _, err := os.Stat(path); os.IsNotExist(err) {
		create = true
	}

	var (
		db  engine.Engine
		err error
	)
	switch dbType {
	case DbTypeLevelDB:
		db, err = leveldb.NewDB(path, create)
	case DbTypePebble:
		db, err = pebbledb.NewDB(path, create, 0, 0)
	default:
		return nil, fmt.Errorf("%w %q (supported: %v)", ErrUnknownDriver,
			dbType, SupportedDrivers())
	}
	if err != nil {
		return nil, err
	}

	return New(db)
}

// New wraps an already open engine.  The returned DB owns the engine and
// closes it on Close.
func New(db engine.Engine) (*DB, error) {
	lastRun, err := loadLastRun(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Debugf("Trace store opened, last run %d", lastRun)
	return &DB{db: db, lastRun: lastRun}, nil
}

// loadLastRun returns the highest run ID stored in db, or zero when it holds
// no runs.
func loadLastRun(db engine.Engine) (uint64, error) {
	snapshot, err := db.Snapshot()
	if err != nil {
		return 0, err
	}
	defer snapshot.Release()

	iter := snapshot.NewIterator(engine.BytesPrefix(runKeyPrefix))
	defer iter.Release()
	if !iter.Last() {
		return 0, iter.Error()
	}
	key := iter.Key()
	if len(key) != len(runKeyPrefix)+8 {
		return 0, fmt.Errorf("tracedb: malformed run key %x", key)
	}
	return binary.BigEndian.Uint64(key[len(runKeyPrefix):]), nil
}

// nextRunID reserves a run ID.
func (d *DB) nextRunID() uint64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.lastRun++
	return d.lastRun
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// runKey returns the key of the summary of a run.
func runKey(runID uint64) []byte {
	key := make([]byte, len(runKeyPrefix)+8)
	copy(key, runKeyPrefix)
	binary.BigEndian.PutUint64(key[len(runKeyPrefix):], runID)
	return key
}

// stepRunPrefix returns the prefix shared by every step key of a run.
func stepRunPrefix(runID uint64) []byte {
	key := make([]byte, len(stepKeyPrefix)+8)
	copy(key, stepKeyPrefix)
	binary.BigEndian.PutUint64(key[len(stepKeyPrefix):], runID)
	return key
}

// stepKey returns the key of one step of a run.
func stepKey(runID uint64, step uint32) []byte {
	prefix := stepRunPrefix(runID)
	key := make([]byte, len(prefix)+4)
	copy(key, prefix)
	binary.BigEndian.PutUint32(key[len(prefix):], step)
	return key
}
