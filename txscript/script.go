// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// IsPushOnlyScript returns whether or not the passed script only pushes data
// according to the consensus definition of pushing data.
//
// WARNING: This function always treats the passed script as version 0.  Great
// care must be taken if introducing a new script version because it is used in
// consensus which, unfortunately as of the time of this writing, does not check
// script versions before checking if it is a push only script which means nodes
// on existing rules will treat new version scripts as if they were version 0.
func IsPushOnlyScript(script []byte) bool {
	tokenizer := MakeScriptTokenizer(script, false)
	for tokenizer.Next() {
		// All opcodes up to OP_16 are data push instructions.
		// NOTE: This does consider OP_RESERVED to be a data push instruction,
		// but execution of OP_RESERVED will fail anyway and matches the
		// behavior required by consensus.
		if tokenizer.Opcode() > OP_16 {
			return false
		}
	}
	return tokenizer.Err() == nil
}

// DeleteSubscript returns a copy of the script with every instruction whose
// raw bytes equal subscript removed.  Matching is byte-exact and aligned to
// instruction boundaries, so a subscript that only appears across or inside
// instructions is left in place.  It is used to strip signatures from the
// script committed to by a legacy signature hash.
func DeleteSubscript(script, subscript []byte) ([]byte, error) {
	result := make([]byte, 0, len(script))
	tokenizer := MakeScriptTokenizer(script, false)
	var prevOffset int32
	for tokenizer.Next() {
		section := script[prevOffset:tokenizer.ByteIndex()]
		if !bytes.Equal(section, subscript) {
			result = append(result, section...)
		}
		prevOffset = tokenizer.ByteIndex()
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveOpcode returns a copy of the script with every instance of the passed
// opcode removed.  Data pushes are never treated as instances of opcode even
// when they carry its value.
func RemoveOpcode(script []byte, opcode byte) ([]byte, error) {
	result := make([]byte, 0, len(script))
	tokenizer := MakeScriptTokenizer(script, false)
	var prevOffset int32
	for tokenizer.Next() {
		if tokenizer.Opcode() != opcode {
			result = append(result, script[prevOffset:tokenizer.ByteIndex()]...)
		}
		prevOffset = tokenizer.ByteIndex()
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// disasmInstruction returns a human-readable disassembly of the passed
// instruction.  Pushes of data are rendered as the opcode name followed by
// the hex of the data, except for small integers which are rendered by name
// alone.
func disasmInstruction(inst *Instruction) string {
	op := inst.Opcode
	name := OpcodeName(op)
	if !inst.IsPush() || op == OP_0 || op == OP_1NEGATE ||
		(op >= OP_1 && op <= OP_16) {

		return name
	}
	return name + " 0x" + hex.EncodeToString(inst.Data)
}

// DisasmString formats a disassembled script for one line printing.  When the
// script fails to parse, the returned string will contain the disassembled
// script up to the point the failure occurred along with the string '[error]'
// appended.  In addition, the reason the script failed to parse is returned
// if the caller wants more information about the failure.
func DisasmString(script []byte) (string, error) {
	var disbuf strings.Builder
	tokenizer := MakeScriptTokenizer(script, false)
	if tokenizer.Next() {
		inst := tokenizer.Instruction()
		disbuf.WriteString(disasmInstruction(&inst))
	}
	for tokenizer.Next() {
		inst := tokenizer.Instruction()
		disbuf.WriteByte(' ')
		disbuf.WriteString(disasmInstruction(&inst))
	}
	if tokenizer.Err() != nil {
		if tokenizer.ByteIndex() != 0 {
			disbuf.WriteByte(' ')
		}
		disbuf.WriteString("[error]")
	}
	return disbuf.String(), tokenizer.Err()
}

// PushedData returns an array of byte slices containing any pushed data found
// in the passed script.  This includes OP_0, but not OP_1 - OP_16.
func PushedData(script []byte) ([][]byte, error) {
	var data [][]byte
	tokenizer := MakeScriptTokenizer(script, false)
	for tokenizer.Next() {
		op := tokenizer.Opcode()
		if op == OP_0 || (op >= OP_DATA_1 && op <= OP_PUSHDATA4) {
			data = append(data, tokenizer.Data())
		}
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// scriptLenError returns an ErrScriptTooBig error for a script of the passed
// length.
func scriptLenError(scriptLen int) error {
	str := fmt.Sprintf("script size %d is larger than max allowed size %d",
		scriptLen, MaxScriptSize)
	return scriptError(ErrScriptTooBig, str)
}
