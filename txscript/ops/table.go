// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"fmt"

	"github.com/btcsuite/btcscript/txscript"
)

const (
	// LockTimeThreshold is the number below which a lock time is
	// interpreted to be a block number.  Since an average of one block
	// is generated per 10 minutes, this allows blocks for about 9,512
	// years.
	LockTimeThreshold = 5e8 // Tue Nov 5 00:53:20 1985 UTC

	// MaxPubKeysPerMultiSig is the maximum number of public keys allowed
	// in a multi-signature transaction output script.
	MaxPubKeysPerMultiSig = 20
)

// handlers lists every opcode with behavior of its own.  Push opcodes are
// handled by the interpreter and anything missing here is treated as an
// unknown opcode.
var handlers = []txscript.Handler{
	// Control.
	{Value: txscript.OP_NOP, Exec: opcodeNop},
	{Value: txscript.OP_VER, Exec: opcodeReserved},
	{Value: txscript.OP_IF, Exec: opcodeIf, AlwaysRun: true},
	{Value: txscript.OP_NOTIF, Exec: opcodeNotIf, AlwaysRun: true},
	{Value: txscript.OP_VERIF, Exec: opcodeReserved, AlwaysRun: true},
	{Value: txscript.OP_VERNOTIF, Exec: opcodeReserved, AlwaysRun: true},
	{Value: txscript.OP_ELSE, Exec: opcodeElse, AlwaysRun: true},
	{Value: txscript.OP_ENDIF, Exec: opcodeEndif, AlwaysRun: true},
	{Value: txscript.OP_VERIFY, Exec: opcodeVerify},
	{Value: txscript.OP_RETURN, Exec: opcodeReturn},
	{Value: txscript.OP_RESERVED, Exec: opcodeReserved},
	{Value: txscript.OP_RESERVED1, Exec: opcodeReserved},
	{Value: txscript.OP_RESERVED2, Exec: opcodeReserved},

	// Stack.
	{Value: txscript.OP_TOALTSTACK, Exec: opcodeToAltStack},
	{Value: txscript.OP_FROMALTSTACK, Exec: opcodeFromAltStack},
	{Value: txscript.OP_2DROP, Exec: opcode2Drop},
	{Value: txscript.OP_2DUP, Exec: opcode2Dup},
	{Value: txscript.OP_3DUP, Exec: opcode3Dup},
	{Value: txscript.OP_2OVER, Exec: opcode2Over},
	{Value: txscript.OP_2ROT, Exec: opcode2Rot},
	{Value: txscript.OP_2SWAP, Exec: opcode2Swap},
	{Value: txscript.OP_IFDUP, Exec: opcodeIfDup},
	{Value: txscript.OP_DEPTH, Exec: opcodeDepth},
	{Value: txscript.OP_DROP, Exec: opcodeDrop},
	{Value: txscript.OP_DUP, Exec: opcodeDup},
	{Value: txscript.OP_NIP, Exec: opcodeNip},
	{Value: txscript.OP_OVER, Exec: opcodeOver},
	{Value: txscript.OP_PICK, Exec: opcodePick},
	{Value: txscript.OP_ROLL, Exec: opcodeRoll},
	{Value: txscript.OP_ROT, Exec: opcodeRot},
	{Value: txscript.OP_SWAP, Exec: opcodeSwap},
	{Value: txscript.OP_TUCK, Exec: opcodeTuck},
	{Value: txscript.OP_SIZE, Exec: opcodeSize},

	// Bitwise logic.
	{Value: txscript.OP_EQUAL, Exec: opcodeEqual},
	{Value: txscript.OP_EQUALVERIFY, Exec: opcodeEqualVerify},

	// Numeric.
	{Value: txscript.OP_1ADD, Exec: opcode1Add},
	{Value: txscript.OP_1SUB, Exec: opcode1Sub},
	{Value: txscript.OP_NEGATE, Exec: opcodeNegate},
	{Value: txscript.OP_ABS, Exec: opcodeAbs},
	{Value: txscript.OP_NOT, Exec: opcodeNot},
	{Value: txscript.OP_0NOTEQUAL, Exec: opcode0NotEqual},
	{Value: txscript.OP_ADD, Exec: opcodeAdd},
	{Value: txscript.OP_SUB, Exec: opcodeSub},
	{Value: txscript.OP_BOOLAND, Exec: opcodeBoolAnd},
	{Value: txscript.OP_BOOLOR, Exec: opcodeBoolOr},
	{Value: txscript.OP_NUMEQUAL, Exec: opcodeNumEqual},
	{Value: txscript.OP_NUMEQUALVERIFY, Exec: opcodeNumEqualVerify},
	{Value: txscript.OP_NUMNOTEQUAL, Exec: opcodeNumNotEqual},
	{Value: txscript.OP_LESSTHAN, Exec: opcodeLessThan},
	{Value: txscript.OP_GREATERTHAN, Exec: opcodeGreaterThan},
	{Value: txscript.OP_LESSTHANOREQUAL, Exec: opcodeLessThanOrEqual},
	{Value: txscript.OP_GREATERTHANOREQUAL, Exec: opcodeGreaterThanOrEqual},
	{Value: txscript.OP_MIN, Exec: opcodeMin},
	{Value: txscript.OP_MAX, Exec: opcodeMax},
	{Value: txscript.OP_WITHIN, Exec: opcodeWithin},

	// Crypto.
	{Value: txscript.OP_RIPEMD160, Exec: opcodeRipemd160},
	{Value: txscript.OP_SHA1, Exec: opcodeSha1},
	{Value: txscript.OP_SHA256, Exec: opcodeSha256},
	{Value: txscript.OP_HASH160, Exec: opcodeHash160},
	{Value: txscript.OP_HASH256, Exec: opcodeHash256},
	{Value: txscript.OP_CODESEPARATOR, Exec: opcodeCodeSeparator},
	{Value: txscript.OP_CHECKSIG, Exec: opcodeCheckSig},
	{Value: txscript.OP_CHECKSIGVERIFY, Exec: opcodeCheckSigVerify},
	{Value: txscript.OP_CHECKMULTISIG, Exec: opcodeCheckMultiSig},
	{Value: txscript.OP_CHECKMULTISIGVERIFY, Exec: opcodeCheckMultiSigVerify},

	// Reserved opcodes.
	{Value: txscript.OP_NOP1, Exec: opcodeNop},
	{Value: txscript.OP_CHECKLOCKTIMEVERIFY, Exec: opcodeCheckLockTimeVerify},
	{Value: txscript.OP_CHECKSEQUENCEVERIFY, Exec: opcodeCheckSequenceVerify},
	{Value: txscript.OP_NOP4, Exec: opcodeNop},
	{Value: txscript.OP_NOP5, Exec: opcodeNop},
	{Value: txscript.OP_NOP6, Exec: opcodeNop},
	{Value: txscript.OP_NOP7, Exec: opcodeNop},
	{Value: txscript.OP_NOP8, Exec: opcodeNop},
	{Value: txscript.OP_NOP9, Exec: opcodeNop},
	{Value: txscript.OP_NOP10, Exec: opcodeNop},

	// Disabled opcodes fail even in branches that are not executing.
	{Value: txscript.OP_CAT, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_SUBSTR, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_LEFT, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_RIGHT, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_INVERT, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_AND, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_OR, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_XOR, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_2MUL, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_2DIV, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_MUL, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_DIV, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_MOD, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_LSHIFT, Exec: opcodeDisabled, AlwaysRun: true},
	{Value: txscript.OP_RSHIFT, Exec: opcodeDisabled, AlwaysRun: true},
}

// table is the process-wide standard handler table.
var table *txscript.HandlerTable

func init() {
	t, err := txscript.NewHandlerTable(handlers...)
	if err != nil {
		panic(fmt.Sprintf("invalid standard handler table: %v", err))
	}
	table = t
}

// Table returns the standard handler table.  It is shared and must not be
// modified.
func Table() *txscript.HandlerTable {
	return table
}

// NewInterpreter returns an interpreter that dispatches through the standard
// handler table.
func NewInterpreter() *txscript.Interpreter {
	return txscript.NewInterpreter(table)
}
