// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"testing"

	"github.com/btcsuite/btcscript/txscript"
)

// TestStandardOpcodes evaluates short scripts through the standard table and
// checks the resulting stack or the failure code.
func TestStandardOpcodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		flags  txscript.ScriptFlags
		stack  [][]byte
		err    *txscript.ErrorCode
	}{
		// Control.
		{name: "if true", script: "1 IF 2 ELSE 3 ENDIF", stack: [][]byte{{2}}},
		{name: "if false", script: "0 IF 2 ELSE 3 ENDIF", stack: [][]byte{{3}}},
		{name: "notif", script: "0 NOTIF 2 ELSE 3 ENDIF", stack: [][]byte{{2}}},
		{name: "nested unexecuted if", script: "0 IF 0 IF 2 ENDIF ENDIF 1", stack: [][]byte{{1}}},
		{name: "non-minimal if allowed", script: "2 IF 1 ENDIF", stack: [][]byte{{1}}},
		{
			name:   "non-minimal if rejected",
			script: "2 IF 1 ENDIF",
			flags:  txscript.ScriptVerifyMinimalIf,
			err:    errCode(txscript.ErrMinimalIf),
		},
		{name: "if empty stack", script: "IF ENDIF", err: errCode(txscript.ErrInvalidStackOperation)},
		{name: "verify false", script: "0 VERIFY", err: errCode(txscript.ErrVerify)},
		{name: "verify true", script: "1 VERIFY"},
		{name: "return", script: "RETURN", err: errCode(txscript.ErrEarlyReturn)},
		{name: "unexecuted return", script: "0 IF RETURN ENDIF 1", stack: [][]byte{{1}}},
		{name: "reserved", script: "RESERVED", err: errCode(txscript.ErrReservedOpcode)},
		{name: "unexecuted reserved", script: "0 IF RESERVED VER ENDIF 1", stack: [][]byte{{1}}},
		{name: "unexecuted verif", script: "0 IF VERIF ENDIF", err: errCode(txscript.ErrReservedOpcode)},
		{name: "unexecuted disabled", script: "0 IF CAT ENDIF", err: errCode(txscript.ErrDisabledOpcode)},
		{name: "disabled mul", script: "2 2 MUL", err: errCode(txscript.ErrDisabledOpcode)},
		{name: "unknown opcode", script: "0xba", err: errCode(txscript.ErrReservedOpcode)},
		{name: "unexecuted unknown opcode", script: "0 IF 0xba ENDIF 1", stack: [][]byte{{1}}},
		{name: "nop", script: "NOP NOP1 NOP10 1", stack: [][]byte{{1}}},
		{
			name:   "discouraged nop",
			script: "NOP10",
			flags:  txscript.ScriptDiscourageUpgradableNops,
			err:    errCode(txscript.ErrDiscourageUpgradableNOPs),
		},
		{
			name:   "plain nop never discouraged",
			script: "NOP 1",
			flags:  txscript.ScriptDiscourageUpgradableNops,
			stack:  [][]byte{{1}},
		},

		// Stack.
		{name: "toaltstack", script: "1 TOALTSTACK 2 FROMALTSTACK", stack: [][]byte{{2}, {1}}},
		{name: "fromaltstack empty", script: "FROMALTSTACK", err: errCode(txscript.ErrInvalidStackOperation)},
		{name: "2drop", script: "1 2 3 2DROP", stack: [][]byte{{1}}},
		{name: "2dup", script: "1 2 2DUP", stack: [][]byte{{1}, {2}, {1}, {2}}},
		{name: "3dup", script: "1 2 3 3DUP", stack: [][]byte{{1}, {2}, {3}, {1}, {2}, {3}}},
		{name: "2over", script: "1 2 3 4 2OVER", stack: [][]byte{{1}, {2}, {3}, {4}, {1}, {2}}},
		{name: "2rot", script: "1 2 3 4 5 6 2ROT", stack: [][]byte{{3}, {4}, {5}, {6}, {1}, {2}}},
		{name: "2swap", script: "1 2 3 4 2SWAP", stack: [][]byte{{3}, {4}, {1}, {2}}},
		{name: "ifdup true", script: "1 IFDUP", stack: [][]byte{{1}, {1}}},
		{name: "ifdup false", script: "0 IFDUP", stack: [][]byte{nil}},
		{name: "ifdup negative zero", script: "0x01 0x80 IFDUP", stack: [][]byte{{0x80}}},
		{name: "depth", script: "1 2 DEPTH", stack: [][]byte{{1}, {2}, {2}}},
		{name: "depth empty", script: "DEPTH", stack: [][]byte{nil}},
		{name: "drop", script: "1 2 DROP", stack: [][]byte{{1}}},
		{name: "dup", script: "1 DUP", stack: [][]byte{{1}, {1}}},
		{name: "dup empty", script: "DUP", err: errCode(txscript.ErrInvalidStackOperation)},
		{name: "nip", script: "1 2 NIP", stack: [][]byte{{2}}},
		{name: "over", script: "1 2 OVER", stack: [][]byte{{1}, {2}, {1}}},
		{name: "pick", script: "1 2 3 2 PICK", stack: [][]byte{{1}, {2}, {3}, {1}}},
		{name: "pick out of range", script: "1 2 PICK", err: errCode(txscript.ErrInvalidStackOperation)},
		{name: "pick negative", script: "1 -1 PICK", err: errCode(txscript.ErrInvalidStackOperation)},
		{name: "roll", script: "1 2 3 2 ROLL", stack: [][]byte{{2}, {3}, {1}}},
		{name: "roll zero", script: "1 2 0 ROLL", stack: [][]byte{{1}, {2}}},
		{name: "rot", script: "1 2 3 ROT", stack: [][]byte{{2}, {3}, {1}}},
		{name: "swap", script: "1 2 SWAP", stack: [][]byte{{2}, {1}}},
		{name: "tuck", script: "1 2 TUCK", stack: [][]byte{{2}, {1}, {2}}},
		{name: "size", script: "'abc' SIZE", stack: [][]byte{[]byte("abc"), {3}}},
		{name: "size empty", script: "0 SIZE", stack: [][]byte{nil, nil}},

		// Bitwise logic.
		{name: "equal", script: "'abc' 'abc' EQUAL", stack: [][]byte{{1}}},
		{name: "not equal", script: "'abc' 'abd' EQUAL", stack: [][]byte{nil}},
		{name: "equal raw bytes", script: "0 0x01 0x80 EQUAL", stack: [][]byte{nil}},
		{name: "equalverify", script: "1 2 EQUALVERIFY", err: errCode(txscript.ErrEqualVerify)},
		{name: "equalverify ok", script: "2 2 EQUALVERIFY 1", stack: [][]byte{{1}}},

		// Numeric.
		{name: "add", script: "1 1 ADD 2 EQUAL", stack: [][]byte{{1}}},
		{name: "sub", script: "2 3 SUB", stack: [][]byte{{0x81}}},
		{name: "1add", script: "5 1ADD", stack: [][]byte{{6}}},
		{name: "1sub to zero", script: "1 1SUB", stack: [][]byte{nil}},
		{name: "negate", script: "5 NEGATE", stack: [][]byte{{0x85}}},
		{name: "abs", script: "-5 ABS", stack: [][]byte{{5}}},
		{name: "not zero", script: "0 NOT", stack: [][]byte{{1}}},
		{name: "not nonzero", script: "3 NOT", stack: [][]byte{nil}},
		{name: "0notequal", script: "3 0NOTEQUAL", stack: [][]byte{{1}}},
		{name: "booland", script: "1 0 BOOLAND", stack: [][]byte{nil}},
		{name: "boolor", script: "1 0 BOOLOR", stack: [][]byte{{1}}},
		{name: "numequal", script: "5 5 NUMEQUAL", stack: [][]byte{{1}}},
		{name: "numequalverify", script: "1 2 NUMEQUALVERIFY", err: errCode(txscript.ErrNumEqualVerify)},
		{name: "numnotequal", script: "1 2 NUMNOTEQUAL", stack: [][]byte{{1}}},
		{name: "lessthan", script: "2 3 LESSTHAN", stack: [][]byte{{1}}},
		{name: "greaterthan", script: "2 3 GREATERTHAN", stack: [][]byte{nil}},
		{name: "lessthanorequal", script: "3 3 LESSTHANOREQUAL", stack: [][]byte{{1}}},
		{name: "greaterthanorequal", script: "2 3 GREATERTHANOREQUAL", stack: [][]byte{nil}},
		{name: "min", script: "2 7 MIN", stack: [][]byte{{2}}},
		{name: "max", script: "2 7 MAX", stack: [][]byte{{7}}},
		{name: "within", script: "3 2 5 WITHIN", stack: [][]byte{{1}}},
		{name: "within upper bound", script: "5 2 5 WITHIN", stack: [][]byte{nil}},
		{name: "within lower bound", script: "2 2 5 WITHIN", stack: [][]byte{{1}}},
		{
			name:   "overflowing result pushed",
			script: "0x04 0xffffff7f DUP ADD",
			stack:  [][]byte{{0xfe, 0xff, 0xff, 0xff, 0x00}},
		},
		{
			name:   "overflowed operand rejected",
			script: "0x04 0xffffff7f DUP ADD 1ADD",
			err:    errCode(txscript.ErrNumberTooBig),
		},
		{name: "5 byte operand", script: "0x05 0x0102030405 1ADD", err: errCode(txscript.ErrNumberTooBig)},
		{name: "negative zero operand", script: "0x01 0x80 1ADD", stack: [][]byte{{1}}},
		{
			name:   "negative zero operand minimal",
			script: "0x01 0x80 1ADD",
			flags:  txscript.ScriptVerifyMinimalData,
			err:    errCode(txscript.ErrMinimalData),
		},
		{
			name:   "padded operand minimal",
			script: "0x02 0x0100 1ADD",
			flags:  txscript.ScriptVerifyMinimalData,
			err:    errCode(txscript.ErrMinimalData),
		},

		// Crypto.
		{
			name:   "ripemd160",
			script: "'abc' RIPEMD160 0x14 0x8eb208f7e05d987a9b044a8e98c6b087f15a0bfc EQUAL",
			stack:  [][]byte{{1}},
		},
		{
			name:   "sha1",
			script: "'abc' SHA1 0x14 0xa9993e364706816aba3e25717850c26c9cd0d89d EQUAL",
			stack:  [][]byte{{1}},
		},
		{
			name:   "sha256",
			script: "'abc' SHA256 0x20 0xba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad EQUAL",
			stack:  [][]byte{{1}},
		},
		{
			name:   "hash160",
			script: "0 HASH160 0x14 0xb472a266d0bd89c13706a4132ccfb16f7c3b9fcb EQUAL",
			stack:  [][]byte{{1}},
		},
		{
			name:   "hash256",
			script: "0 HASH256 0x20 0x5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456 EQUAL",
			stack:  [][]byte{{1}},
		},
		{name: "checksig empty stack", script: "0 CHECKSIG", err: errCode(txscript.ErrInvalidStackOperation)},
		{name: "checksig empty signature", script: "0 0 CHECKSIG", stack: [][]byte{nil}},
		{
			name:   "checksigverify empty signature",
			script: "0 0 CHECKSIGVERIFY",
			err:    errCode(txscript.ErrCheckSigVerify),
		},
		{name: "checkmultisig 0 of 0", script: "0 0 0 CHECKMULTISIG", stack: [][]byte{{1}}},
		{
			name:   "checkmultisig non-zero dummy",
			script: "1 0 0 CHECKMULTISIG",
			flags:  txscript.ScriptStrictMultiSig,
			err:    errCode(txscript.ErrSigNullDummy),
		},
		{
			name:   "checkmultisig too many pubkeys",
			script: "0 0 21 CHECKMULTISIG",
			err:    errCode(txscript.ErrInvalidPubKeyCount),
		},
		{
			name:   "checkmultisig negative pubkeys",
			script: "0 0 -1 CHECKMULTISIG",
			err:    errCode(txscript.ErrInvalidPubKeyCount),
		},
		{
			name:   "checkmultisig more sigs than keys",
			script: "0 0 2 'k' 1 CHECKMULTISIG",
			err:    errCode(txscript.ErrInvalidSignatureCount),
		},
		{
			name:   "checkmultisig pubkeys count toward op limit",
			script: "0x61{181} 0 0 20 CHECKMULTISIG",
			err:    errCode(txscript.ErrTooManyOperations),
		},
		{
			name:   "checkmultisig at op limit",
			script: "0x61{180} 0 0 20 CHECKMULTISIG",
			err:    errCode(txscript.ErrInvalidStackOperation),
		},
		{
			name:   "checkmultisigverify 0 of 0",
			script: "0 0 0 CHECKMULTISIGVERIFY 1",
			stack:  [][]byte{{1}},
		},
	}

	interp := NewInterpreter()
	for _, test := range tests {
		script := mustParseShortForm(test.script)
		vmCtx := &txscript.VMContext{Flags: test.flags}
		stack, err := interp.EvalScript(script, nil, vmCtx, nil)
		if e := checkScriptError(err, test.err); e != nil {
			t.Errorf("%s: %v", test.name, e)
			continue
		}
		if test.err != nil {
			continue
		}
		if !stackEqual(stack, test.stack) {
			t.Errorf("%s: mismatched stack - got %x, want %x",
				test.name, stack, test.stack)
		}
	}
}

// TestTableCoverage ensures every opcode outside of the push range resolves
// to a handler and that unknown opcodes are the only ones without one of
// their own.
func TestTableCoverage(t *testing.T) {
	t.Parallel()

	tbl := Table()
	for i := 0; i <= 0xff; i++ {
		op := byte(i)
		h := tbl.Lookup(op)
		if h == nil {
			t.Fatalf("no handler for opcode 0x%02x", op)
		}
		if h.Value != op {
			t.Errorf("handler for 0x%02x reports value 0x%02x", op,
				h.Value)
		}
	}
}
