// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tracedb

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcscript/txscript"
)

// stepRecordVersion is the serialization version of a stored step.
const stepRecordVersion = 1

const (
	stepFlagExecuting = 1 << iota
	stepFlagPush
)

// StepRecord is the state of an evaluation observed as one instruction was
// about to be dispatched.  Depth and AltDepth are the stack depths before the
// instruction ran.
type StepRecord struct {
	RunID     uint64
	Step      uint32
	PC        int32
	Opcode    byte
	Data      []byte
	Depth     int32
	AltDepth  int32
	Executing bool
}

// String returns a one line summary of the step.
func (r *StepRecord) String() string {
	op := txscript.OpcodeName(r.Opcode)
	exec := ""
	if !r.Executing {
		exec = " (skipped)"
	}
	if len(r.Data) > 0 {
		return fmt.Sprintf("%4d %04x %s %x depth=%d alt=%d%s", r.Step,
			r.PC, op, r.Data, r.Depth, r.AltDepth, exec)
	}
	return fmt.Sprintf("%4d %04x %s depth=%d alt=%d%s", r.Step, r.PC, op,
		r.Depth, r.AltDepth, exec)
}

// serialize encodes the record.  The run ID and step number are carried by
// the key and are not repeated in the value.
func (r *StepRecord) serialize(w io.Writer) error {
	var flags byte
	if r.Executing {
		flags |= stepFlagExecuting
	}
	if r.Data != nil {
		flags |= stepFlagPush
	}

	var hdr [7]byte
	hdr[0] = stepRecordVersion
	binary.LittleEndian.PutUint32(hdr[1:5], uint32(r.PC))
	hdr[5] = r.Opcode
	hdr[6] = flags
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if err := wire.WriteVarBytes(w, 0, r.Data); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, 0, uint64(r.Depth)); err != nil {
		return err
	}
	return wire.WriteVarInt(w, 0, uint64(r.AltDepth))
}

// deserialize decodes a record written by serialize.
func (r *StepRecord) deserialize(rd io.Reader) error {
	var hdr [7]byte
	if _, err := io.ReadFull(rd, hdr[:]); err != nil {
		return err
	}
	if hdr[0] != stepRecordVersion {
		return fmt.Errorf("tracedb: unsupported step record version %d",
			hdr[0])
	}
	r.PC = int32(binary.LittleEndian.Uint32(hdr[1:5]))
	r.Opcode = hdr[5]
	r.Executing = hdr[6]&stepFlagExecuting != 0

	data, err := wire.ReadVarBytes(rd, 0, txscript.MaxScriptElementSize,
		"step data")
	if err != nil {
		return err
	}
	r.Data = nil
	if hdr[6]&stepFlagPush != 0 {
		r.Data = data
		if r.Data == nil {
			r.Data = []byte{}
		}
	}

	depth, err := wire.ReadVarInt(rd, 0)
	if err != nil {
		return err
	}
	altDepth, err := wire.ReadVarInt(rd, 0)
	if err != nil {
		return err
	}
	r.Depth = int32(depth)
	r.AltDepth = int32(altDepth)
	return nil
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID uint64
	Steps uint32

	// Err is the error text the evaluation ended with, empty when it
	// succeeded.
	Err string
}

// Success returns whether the run completed without error.
func (s *RunSummary) Success() bool {
	return s.Err == ""
}

func (s *RunSummary) serialize(w io.Writer) error {
	if err := wire.WriteVarInt(w, 0, uint64(s.Steps)); err != nil {
		return err
	}
	return wire.WriteVarString(w, 0, s.Err)
}

func (s *RunSummary) deserialize(r io.Reader) error {
	steps, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return err
	}
	s.Steps = uint32(steps)
	s.Err, err = wire.ReadVarString(r, 0)
	return err
}
