// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tracedb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcscript/tracedb/engine"
	"github.com/btcsuite/btcscript/txscript"
)

// ErrRecorderFinished is returned by Finish when called more than once.
var ErrRecorderFinished = errors.New("tracedb: recorder already finished")

// Recorder records every instruction of an evaluation.  It implements
// txscript.StepHook and never replaces the dispatched handler.  A Recorder
// may span several engines, such as the two scripts of a transaction input,
// and numbers their steps consecutively.  It is not safe for concurrent use.
type Recorder struct {
	db    *DB
	runID uint64
	tx    engine.Transaction
	step  uint32

	// err is the first storage error.  Once set the remaining steps are
	// not recorded and Finish reports it.
	err      error
	finished bool
}

var _ txscript.StepHook = (*Recorder)(nil)

// NewRecorder starts a new run and returns the recorder for it.  Finish must
// be called to persist the run or to release its write batch.
func (d *DB) NewRecorder() (*Recorder, error) {
	tx, err := d.db.Transaction()
	if err != nil {
		return nil, err
	}
	runID := d.nextRunID()
	log.Debugf("Recording run %d", runID)
	return &Recorder{db: d, runID: runID, tx: tx}, nil
}

// RunID returns the ID of the run being recorded.
func (r *Recorder) RunID() uint64 {
	return r.runID
}

// Resolve records the instruction about to be dispatched.  It always returns
// nil so the handler selected by the table runs unchanged.
func (r *Recorder) Resolve(vm *txscript.Engine, inst *txscript.Instruction, h *txscript.Handler) *txscript.Handler {
	if r.finished || r.err != nil {
		return nil
	}

	rec := StepRecord{
		RunID:     r.runID,
		Step:      r.step,
		PC:        inst.Start,
		Opcode:    inst.Opcode,
		Data:      inst.Data,
		Depth:     vm.DataStack().Depth(),
		AltDepth:  vm.AltStack().Depth(),
		Executing: vm.IsBranchExecuting(),
	}

	var buf bytes.Buffer
	if err := rec.serialize(&buf); err != nil {
		r.err = err
		return nil
	}
	if err := r.tx.Put(stepKey(r.runID, r.step), buf.Bytes()); err != nil {
		log.Warnf("Unable to record step %d of run %d: %v", r.step,
			r.runID, err)
		r.err = err
		return nil
	}
	log.Tracef("Run %d: %v", r.runID, &rec)
	r.step++
	return nil
}

// Finish writes the run summary with the outcome of the evaluation and
// commits the run.  When a step could not be recorded the run is discarded
// and the storage error is returned.
func (r *Recorder) Finish(evalErr error) error {
	if r.finished {
		return ErrRecorderFinished
	}
	r.finished = true

	if r.err != nil {
		r.tx.Discard()
		return fmt.Errorf("tracedb: run %d not recorded: %w", r.runID,
			r.err)
	}

	summary := RunSummary{RunID: r.runID, Steps: r.step}
	if evalErr != nil {
		summary.Err = evalErr.Error()
	}
	var buf bytes.Buffer
	if err := summary.serialize(&buf); err != nil {
		r.tx.Discard()
		return err
	}
	if err := r.tx.Put(runKey(r.runID), buf.Bytes()); err != nil {
		r.tx.Discard()
		return err
	}
	if err := r.tx.Commit(); err != nil {
		r.tx.Discard()
		return err
	}

	log.Debugf("Run %d finished after %d steps", r.runID, r.step)
	return nil
}

// LoadRun returns the summary and the steps, in execution order, of a
// finished run.
func (d *DB) LoadRun(runID uint64) (*RunSummary, []StepRecord, error) {
	snapshot, err := d.db.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	defer snapshot.Release()

	has, err := snapshot.Has(runKey(runID))
	if err != nil {
		return nil, nil, err
	}
	if !has {
		return nil, nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	v, err := snapshot.Get(runKey(runID))
	if err != nil {
		return nil, nil, err
	}
	summary := RunSummary{RunID: runID}
	if err := summary.deserialize(bytes.NewReader(v)); err != nil {
		return nil, nil, fmt.Errorf("tracedb: corrupt summary of run "+
			"%d: %w", runID, err)
	}

	steps := make([]StepRecord, 0, summary.Steps)
	iter := snapshot.NewIterator(engine.BytesPrefix(stepRunPrefix(runID)))
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()
		rec := StepRecord{
			RunID: runID,
			Step:  binary.BigEndian.Uint32(key[len(key)-4:]),
		}
		if err := rec.deserialize(bytes.NewReader(iter.Value())); err != nil {
			return nil, nil, fmt.Errorf("tracedb: corrupt step %d of "+
				"run %d: %w", rec.Step, runID, err)
		}
		steps = append(steps, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, nil, err
	}
	if uint32(len(steps)) != summary.Steps {
		return nil, nil, fmt.Errorf("tracedb: run %d has %d steps, "+
			"summary records %d", runID, len(steps), summary.Steps)
	}
	return &summary, steps, nil
}
