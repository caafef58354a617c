// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txcontext binds script evaluation to a spending transaction.  A
// TxContext supplies the lock time fields read by the lock time opcodes and
// the legacy signature hash used by the signature checking opcodes.
package txcontext

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcscript/txscript"
)

// TxContext describes the transaction input whose scripts are being
// evaluated.
type TxContext struct {
	// Tx is the spending transaction.
	Tx *wire.MsgTx

	// InputIndex is the index of the input being validated.
	InputIndex int

	// InputAmount is the value of the output being spent.  It is carried
	// for callers and is not committed to by the legacy signature hash.
	InputAmount int64
}

// New returns a context for the input at idx of tx.
func New(tx *wire.MsgTx, idx int, amount int64) (*TxContext, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction")
	}
	if idx < 0 || idx >= len(tx.TxIn) {
		return nil, fmt.Errorf("transaction input index %d is out of "+
			"range for %d inputs", idx, len(tx.TxIn))
	}
	return &TxContext{Tx: tx, InputIndex: idx, InputAmount: amount}, nil
}

// LockTime returns the lock time of the spending transaction.
func (c *TxContext) LockTime() uint32 {
	return c.Tx.LockTime
}

// TxVersion returns the version of the spending transaction.
func (c *TxContext) TxVersion() int32 {
	return c.Tx.Version
}

// InputSequence returns the sequence number of the input being validated.
func (c *TxContext) InputSequence() uint32 {
	return c.Tx.TxIn[c.InputIndex].Sequence
}

// SigHasher returns a signature hash provider computing the legacy digest
// for the input of the context.
func (c *TxContext) SigHasher() txscript.SigHashFunc {
	return func(hashType txscript.SigHashType, subScript []byte) ([]byte, error) {
		return CalcSignatureHash(subScript, hashType, c.Tx, c.InputIndex)
	}
}
