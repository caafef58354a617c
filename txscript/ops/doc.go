// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package ops provides the standard opcode handlers for the txscript
interpreter.

The handlers follow the consensus behavior of the Bitcoin reference client for
legacy (non-segwit) scripts.  They are collected into a single handler table
that is built once when the package is initialized:

	interp := txscript.NewInterpreter(ops.Table())
	stack, err := interp.EvalScript(script, txCtx, &txscript.VMContext{
		Flags:   txscript.StandardVerifyFlags,
		SigHash: sigHasher,
	}, nil)

Signature checking opcodes compute the digest being signed through the
SigHash provider of the evaluation and consult the optional signature cache.
Lock time opcodes read the transaction context of the evaluation, which must
implement LockTimeContext when those opcodes are enabled.
*/
package ops
