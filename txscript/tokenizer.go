// Copyright (c) 2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/binary"
	"fmt"
)

// Instruction is a single decoded opcode along with its position in the
// script.  Data is non-nil exactly when the opcode is a data push.  OP_0
// carries an empty, non-nil payload and OP_1NEGATE and OP_1 through OP_16
// carry the canonical encoding of the number they represent.
type Instruction struct {
	Opcode byte
	Data   []byte

	// Start is the offset of the opcode byte and End the offset of the
	// first byte after the instruction.
	Start int32
	End   int32
}

// IsPush returns whether the instruction pushes data.
func (i *Instruction) IsPush() bool {
	return i.Data != nil
}

// Name returns the name of the instruction's opcode.
func (i *Instruction) Name() string {
	return OpcodeName(i.Opcode)
}

// checkMinimalDataPush returns whether or not the provided opcode is the
// smallest possible way to represent the given data.  For example, the value
// 15 could be pushed with OP_DATA_1 15 (among other variations); however,
// OP_15 is a single opcode that represents the same value and is only a single
// byte versus two bytes.
func checkMinimalDataPush(op byte, data []byte) error {
	dataLen := len(data)
	switch {
	case dataLen == 0 && op != OP_0:
		str := fmt.Sprintf("zero length data push is encoded with "+
			"opcode %s instead of OP_0", OpcodeName(op))
		return scriptError(ErrMinimalData, str)
	case dataLen == 1 && data[0] >= 1 && data[0] <= 16:
		if op != OP_1+data[0]-1 {
			// Should have used OP_1 .. OP_16
			str := fmt.Sprintf("data push of the value %d encoded "+
				"with opcode %s instead of OP_%d", data[0],
				OpcodeName(op), data[0])
			return scriptError(ErrMinimalData, str)
		}
	case dataLen == 1 && data[0] == 0x81:
		if op != OP_1NEGATE {
			str := fmt.Sprintf("data push of the value -1 encoded "+
				"with opcode %s instead of OP_1NEGATE",
				OpcodeName(op))
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 75:
		if int(op) != dataLen {
			// Should have used a direct push
			str := fmt.Sprintf("data push of %d bytes encoded "+
				"with opcode %s instead of OP_DATA_%d", dataLen,
				OpcodeName(op), dataLen)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 255:
		if op != OP_PUSHDATA1 {
			str := fmt.Sprintf("data push of %d bytes encoded "+
				"with opcode %s instead of OP_PUSHDATA1",
				dataLen, OpcodeName(op))
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 65535:
		if op != OP_PUSHDATA2 {
			str := fmt.Sprintf("data push of %d bytes encoded "+
				"with opcode %s instead of OP_PUSHDATA2",
				dataLen, OpcodeName(op))
			return scriptError(ErrMinimalData, str)
		}
	}
	return nil
}

// DecodeInstruction decodes the instruction that starts at offset pc of the
// passed script.  When verifyMinimal is set, data pushes that do not use the
// shortest legal encoding are rejected with ErrMinimalData.  A push whose
// length prefix or payload runs past the end of the script results in
// ErrMalformedPush.
func DecodeInstruction(script []byte, pc int32, verifyMinimal bool) (Instruction, error) {
	if pc < 0 || pc >= int32(len(script)) {
		str := fmt.Sprintf("program counter %d is outside of script "+
			"of length %d", pc, len(script))
		return Instruction{}, scriptError(ErrInvalidIndex, str)
	}

	op := script[pc]
	inst := Instruction{Opcode: op, Start: pc, End: pc + 1}
	switch {
	// Opcodes that represent the data themselves.  None of these can be
	// a non-minimal push.
	case op == OP_0:
		inst.Data = []byte{}
		return inst, nil

	case op == OP_1NEGATE:
		inst.Data = []byte{0x81}
		return inst, nil

	case op >= OP_1 && op <= OP_16:
		inst.Data = []byte{op - (OP_1 - 1)}
		return inst, nil

	// Data pushes of specific lengths -- OP_DATA_[1-75].
	case op >= OP_DATA_1 && op <= OP_DATA_75:
		remaining := script[pc+1:]
		if len(remaining) < int(op) {
			str := fmt.Sprintf("opcode %s requires %d bytes, but "+
				"script only has %d remaining", OpcodeName(op),
				op, len(remaining))
			return Instruction{}, scriptError(ErrMalformedPush, str)
		}
		inst.Data = remaining[:op:op]
		inst.End = pc + 1 + int32(op)

	// Data pushes with parsed lengths -- OP_PUSHDATA{1,2,4}.
	case op >= OP_PUSHDATA1 && op <= OP_PUSHDATA4:
		lenBytes := 1
		switch op {
		case OP_PUSHDATA2:
			lenBytes = 2
		case OP_PUSHDATA4:
			lenBytes = 4
		}

		remaining := script[pc+1:]
		if len(remaining) < lenBytes {
			str := fmt.Sprintf("opcode %s requires %d bytes, but "+
				"script only has %d remaining", OpcodeName(op),
				lenBytes, len(remaining))
			return Instruction{}, scriptError(ErrMalformedPush, str)
		}

		// Next lenBytes bytes are little endian length of data.
		var dataLen uint32
		switch lenBytes {
		case 1:
			dataLen = uint32(remaining[0])
		case 2:
			dataLen = uint32(binary.LittleEndian.Uint16(remaining[:2]))
		case 4:
			dataLen = binary.LittleEndian.Uint32(remaining[:4])
		}

		// Move to the beginning of the data and disallow entries that
		// do not fit the script.
		remaining = remaining[lenBytes:]
		if uint64(dataLen) > uint64(len(remaining)) {
			str := fmt.Sprintf("opcode %s pushes %d bytes, but "+
				"script only has %d remaining", OpcodeName(op),
				dataLen, len(remaining))
			return Instruction{}, scriptError(ErrMalformedPush, str)
		}
		inst.Data = remaining[:dataLen:dataLen]
		inst.End = pc + 1 + int32(lenBytes) + int32(dataLen)

	// No additional data.
	default:
		return inst, nil
	}

	if verifyMinimal {
		if err := checkMinimalDataPush(op, inst.Data); err != nil {
			return Instruction{}, err
		}
	}
	return inst, nil
}

// ScriptTokenizer provides a facility for easily and efficiently tokenizing
// transaction scripts without creating allocations.  Each successive opcode is
// parsed with the Next function, which returns false when iteration is
// complete, either due to successfully tokenizing the entire script or
// encountering a parse error.  In the case of failure, the Err function may be
// used to obtain the specific parse error.
//
// Upon successfully parsing an opcode, the opcode and data associated with it
// may be obtained via the Opcode and Data functions, respectively.
//
// The ByteIndex function may be used to obtain the tokenizer's current offset
// into the raw script.  Making a new tokenizer over the same script restarts
// the sequence.
type ScriptTokenizer struct {
	script        []byte
	verifyMinimal bool
	offset        int32
	inst          Instruction
	err           error
}

// Done returns true when either all opcodes have been exhausted or a parse
// failure was encountered and therefore the state has an associated error.
func (t *ScriptTokenizer) Done() bool {
	return t.err != nil || t.offset >= int32(len(t.script))
}

// Next attempts to parse the next opcode and returns whether or not it was
// successful.  It will not be successful if invoked when already at the end of
// the script, a parse failure is encountered, or an associated error already
// exists due to a previous parse failure.
//
// In the case of a true return, the parsed opcode and data can be obtained with
// the associated functions and the offset into the script will either point to
// the next opcode or the end of the script if the final opcode was parsed.
//
// In the case of a false return, the parsed opcode and data will be the last
// successfully parsed values (if any) and the offset into the script will
// either point to the failing opcode or the end of the script if the function
// was invoked when already at the end of the script.
//
// Invoking this function when already at the end of the script is not
// considered an error and will simply return false.
func (t *ScriptTokenizer) Next() bool {
	if t.Done() {
		return false
	}

	inst, err := DecodeInstruction(t.script, t.offset, t.verifyMinimal)
	if err != nil {
		t.err = err
		return false
	}

	t.inst = inst
	t.offset = inst.End
	return true
}

// Script returns the full script associated with the tokenizer.
func (t *ScriptTokenizer) Script() []byte {
	return t.script
}

// ByteIndex returns the current offset into the full script that will be parsed
// next and therefore also implies everything before it has already been parsed.
func (t *ScriptTokenizer) ByteIndex() int32 {
	return t.offset
}

// Instruction returns the most recently successfully parsed instruction.
func (t *ScriptTokenizer) Instruction() Instruction {
	return t.inst
}

// Opcode returns the current opcode associated with the tokenizer.
func (t *ScriptTokenizer) Opcode() byte {
	return t.inst.Opcode
}

// Data returns the data associated with the most recently successfully parsed
// opcode.
func (t *ScriptTokenizer) Data() []byte {
	return t.inst.Data
}

// Err returns any errors currently associated with the tokenizer.  This will
// only be non-nil in the case a parsing error was encountered.
func (t *ScriptTokenizer) Err() error {
	return t.err
}

// MakeScriptTokenizer returns a new instance of a script tokenizer.  When
// verifyMinimal is set every data push must use its shortest encoding.
//
// See the docs for ScriptTokenizer for more details.
func MakeScriptTokenizer(script []byte, verifyMinimal bool) ScriptTokenizer {
	return ScriptTokenizer{script: script, verifyMinimal: verifyMinimal}
}
