// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// hexToBytes converts the passed hex string into bytes and will panic if there
// is an error.  This is only provided for the hard-coded constants so errors in
// the source code can be detected. It will only (and must only) be called with
// hard-coded values.
func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("invalid hex in source file: " + s)
	}
	return b
}

// errCodePtr returns a pointer to the passed error code for use in test
// tables where no error is represented by nil.
func errCodePtr(c ErrorCode) *ErrorCode {
	return &c
}

// tstCheckScriptError ensures the type of the two passed errors are of the
// same type (either both nil or both of type Error) and their error codes
// match when not nil.
func tstCheckScriptError(gotErr, wantErr error) error {
	// Ensure the error code is of the expected type and the error
	// code matches the value specified in the test instance.
	if fmt.Sprintf("%T", gotErr) != fmt.Sprintf("%T", wantErr) {
		return fmt.Errorf("wrong error - got %T (%[1]v), want %T",
			gotErr, wantErr)
	}
	if gotErr == nil {
		return nil
	}

	// Ensure the want error type is a script error.
	werr, ok := wantErr.(Error)
	if !ok {
		return fmt.Errorf("unexpected test error type %T", wantErr)
	}

	// Ensure the error codes match.  It's safe to use a raw type assert
	// here since the code above already proved they are the same type and
	// the want error is a script error.
	gotErrorCode := gotErr.(Error).ErrorCode
	if gotErrorCode != werr.ErrorCode {
		return fmt.Errorf("mismatched error code - got %v (%v), want %v",
			gotErrorCode, gotErr, werr.ErrorCode)
	}

	return nil
}

// The handlers below are a small subset of the standard opcode set, enough to
// exercise the engine without depending on the ops package.

func tstOpcodeNop(op *Handler, data []byte, vm *Engine) error {
	return nil
}

func tstOpcodeAdd(op *Handler, data []byte, vm *Engine) error {
	v0, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}
	v1, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}
	vm.DataStack().PushInt(v0 + v1)
	return nil
}

func tstOpcodeEqual(op *Handler, data []byte, vm *Engine) error {
	a, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}
	b, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}
	vm.DataStack().PushBool(bytes.Equal(a, b))
	return nil
}

func tstOpcodeVerify(op *Handler, data []byte, vm *Engine) error {
	ok, err := vm.DataStack().PopBool()
	if err != nil {
		return err
	}
	if !ok {
		return scriptError(ErrVerify, "OP_VERIFY failed")
	}
	return nil
}

func tstOpcodeDrop(op *Handler, data []byte, vm *Engine) error {
	return vm.DataStack().DropN(1)
}

func tstOpcodeDup(op *Handler, data []byte, vm *Engine) error {
	return vm.DataStack().DupN(1)
}

func tstOpcodeToAltStack(op *Handler, data []byte, vm *Engine) error {
	so, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}
	vm.AltStack().PushByteArray(so)
	return nil
}

func tstOpcodeIf(op *Handler, data []byte, vm *Engine) error {
	condVal := false
	if vm.IsBranchExecuting() {
		so, err := vm.DataStack().PopByteArray()
		if err != nil {
			return err
		}
		condVal, err = MakeScriptBool(so, vm.HasFlag(ScriptVerifyMinimalIf))
		if err != nil {
			return err
		}
		if op.Value == OP_NOTIF {
			condVal = !condVal
		}
	}
	vm.CondStack().OpenBranch(condVal)
	return nil
}

func tstOpcodeElse(op *Handler, data []byte, vm *Engine) error {
	return vm.CondStack().FlipTop()
}

func tstOpcodeEndif(op *Handler, data []byte, vm *Engine) error {
	return vm.CondStack().CloseBranch()
}

func tstOpcodeDisabled(op *Handler, data []byte, vm *Engine) error {
	str := fmt.Sprintf("attempt to execute disabled opcode %s", op.Name)
	return scriptError(ErrDisabledOpcode, str)
}

func tstOpcodeCodeSeparator(op *Handler, data []byte, vm *Engine) error {
	vm.SetCodeSeparator()
	return nil
}

// testTable is the handler table used by the tests in this package.
var testTable = func() *HandlerTable {
	t, err := NewHandlerTable(
		Handler{Value: OP_NOP, Exec: tstOpcodeNop},
		Handler{Value: OP_ADD, Exec: tstOpcodeAdd},
		Handler{Value: OP_EQUAL, Exec: tstOpcodeEqual},
		Handler{Value: OP_VERIFY, Exec: tstOpcodeVerify},
		Handler{Value: OP_DROP, Exec: tstOpcodeDrop},
		Handler{Value: OP_DUP, Exec: tstOpcodeDup},
		Handler{Value: OP_TOALTSTACK, Exec: tstOpcodeToAltStack},
		Handler{Value: OP_CODESEPARATOR, Exec: tstOpcodeCodeSeparator},
		Handler{Value: OP_IF, Exec: tstOpcodeIf, AlwaysRun: true},
		Handler{Value: OP_NOTIF, Exec: tstOpcodeIf, AlwaysRun: true},
		Handler{Value: OP_ELSE, Exec: tstOpcodeElse, AlwaysRun: true},
		Handler{Value: OP_ENDIF, Exec: tstOpcodeEndif, AlwaysRun: true},
		Handler{Value: OP_CAT, Exec: tstOpcodeDisabled, AlwaysRun: true},
	)
	if err != nil {
		panic(err)
	}
	return t
}()

// testInterpreter evaluates scripts with testTable.
var testInterpreter = NewInterpreter(testTable)

// shortFormOps holds a map of opcode names to values for use in short form
// parsing.  It is declared here so it only needs to be created once.
var shortFormOps map[string]byte

// parseShortForm parses a string as as used in the Bitcoin Core reference tests
// into the script it came from.
//
// The format used for these tests is pretty simple if ad-hoc:
//   - Opcodes other than the push opcodes and unknown are present as
//     either OP_NAME or just NAME
//   - Plain numbers are made into push operations
//   - Numbers beginning with 0x are inserted into the []byte as-is (so
//     0x14 is OP_DATA_20), optionally followed by {n} to repeat them n times
//   - Single quoted strings are pushed as data
//   - Anything else is an error
func parseShortForm(script string) ([]byte, error) {
	// Only create the short form opcode map once.
	if shortFormOps == nil {
		ops := make(map[string]byte)
		for opcodeName, opcodeValue := range OpcodeByName {
			if strings.Contains(opcodeName, "OP_UNKNOWN") {
				continue
			}
			ops[opcodeName] = opcodeValue

			// The opcodes named OP_# can't have the OP_ prefix
			// stripped or they would conflict with the plain
			// numbers.  Also, since OP_FALSE and OP_TRUE are
			// aliases for the OP_0, and OP_1, respectively, they
			// have the same value, so detect those by name and
			// allow them.
			if (opcodeName == "OP_FALSE" || opcodeName == "OP_TRUE") ||
				(opcodeValue != OP_0 && (opcodeValue < OP_1 ||
					opcodeValue > OP_16)) {

				ops[strings.TrimPrefix(opcodeName, "OP_")] = opcodeValue
			}
		}
		shortFormOps = ops
	}

	var script2 []byte
	for _, tok := range strings.Fields(script) {
		// if parses as a plain number
		if num, err := strconv.ParseInt(tok, 10, 64); err == nil {
			script2 = append(script2, mustBuild(NewScriptBuilder().
				AddInt64(num))...)
		} else if strings.HasPrefix(tok, "0x") {
			// A trailing {n} repeats the hex bytes n times.
			repeat := 1
			if i := strings.IndexByte(tok, '{'); i != -1 &&
				strings.HasSuffix(tok, "}") {

				n, err := strconv.Atoi(tok[i+1 : len(tok)-1])
				if err != nil {
					return nil, err
				}
				repeat = n
				tok = tok[:i]
			}
			bts, err := hex.DecodeString(tok[2:])
			if err != nil {
				return nil, err
			}
			bts = bytes.Repeat(bts, repeat)
			// Concatenate the bytes manually since the test code
			// intentionally creates scripts that are too large and
			// would cause the builder to error otherwise.
			script2 = append(script2, bts...)
		} else if len(tok) >= 2 &&
			tok[0] == '\'' && tok[len(tok)-1] == '\'' {
			script2 = append(script2, EncodePush([]byte(tok[1:len(tok)-1]))...)
		} else if opcode, ok := shortFormOps[tok]; ok {
			script2 = append(script2, opcode)
		} else {
			return nil, fmt.Errorf("bad token %q", tok)
		}
	}
	return script2, nil
}

// mustBuild returns the script of the passed builder and panics on error.
func mustBuild(b *ScriptBuilder) []byte {
	script, err := b.Script()
	if err != nil {
		panic(err)
	}
	return script
}

// mustParseShortForm parses the passed short form script and returns the
// resulting bytes.  It panics if an error occurs.  This is only used in the
// tests as a helper since the only way it can fail is if there is an error in
// the test source code.
func mustParseShortForm(script string) []byte {
	s, err := parseShortForm(script)
	if err != nil {
		panic("invalid short form script in test source: err " +
			err.Error() + ", script: " + script)
	}

	return s
}
