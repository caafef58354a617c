// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package validate checks the scripts of every input of a transaction
// concurrently.
package validate

import (
	"context"
	"fmt"
	"runtime"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcscript/txcontext"
	"github.com/btcsuite/btcscript/txscript"
	"golang.org/x/sync/errgroup"
)

// PrevOut is the previous output spent by a transaction input.
type PrevOut struct {
	PkScript []byte
	Amount   int64
}

// txValidateItem holds a transaction along with which input to validate.
type txValidateItem struct {
	txInIndex int
	txIn      *wire.TxIn
	prevOut   *PrevOut
}

// txValidator validates transaction inputs on a bounded number of
// goroutines.
type txValidator struct {
	interp   *txscript.Interpreter
	tx       *wire.MsgTx
	txHash   chainhash.Hash
	flags    txscript.ScriptFlags
	sigCache *txscript.SigCache
	hook     txscript.StepHook
}

// isCoinBaseTx determines whether or not a transaction is a coinbase.  A
// coinbase is a special transaction created by miners that has no inputs.
// This is represented in the block chain by a transaction with a single
// input that has a previous output transaction index set to the maximum
// value along with a zero hash.
func isCoinBaseTx(msgTx *wire.MsgTx) bool {
	// A coin base must only have one transaction input.
	if len(msgTx.TxIn) != 1 {
		return false
	}

	// The previous output of a coin base must have a max value index and
	// a zero hash.
	prevOut := &msgTx.TxIn[0].PreviousOutPoint
	if prevOut.Index != wire.MaxPrevOutIndex ||
		prevOut.Hash != (chainhash.Hash{}) {

		return false
	}

	return true
}

// checkFinalStack applies the rules on the data stack left once both scripts
// of an input have run.
func (v *txValidator) checkFinalStack(stack [][]byte) error {
	if len(stack) == 0 {
		return txscript.ScriptError(txscript.ErrEmptyStack,
			"stack empty at end of script execution")
	}

	top := stack[len(stack)-1]
	if ok, _ := txscript.MakeScriptBool(top, false); !ok {
		return txscript.ScriptError(txscript.ErrEvalFalse,
			"false stack entry at end of script execution")
	}

	if v.flags&txscript.ScriptVerifyCleanStack != 0 && len(stack) != 1 {
		str := fmt.Sprintf("stack must contain exactly one item (contains "+
			"%d)", len(stack))
		return txscript.ScriptError(txscript.ErrCleanStack, str)
	}
	return nil
}

// validateInput evaluates the signature script of an input followed by the
// public key script of the output it spends.
func (v *txValidator) validateInput(item *txValidateItem) error {
	sigScript := item.txIn.SignatureScript
	pkScript := item.prevOut.PkScript

	describe := func(err error) string {
		return fmt.Sprintf("failed to validate input %s:%d which "+
			"references output %v - %v (input script bytes %x, prev "+
			"output script bytes %x)", v.txHash, item.txInIndex,
			item.txIn.PreviousOutPoint, err, sigScript, pkScript)
	}

	// The signature script must only contain pushed data when the flag is
	// set.
	if v.flags&txscript.ScriptVerifySigPushOnly != 0 &&
		!txscript.IsPushOnlyScript(sigScript) {

		err := txscript.ScriptError(txscript.ErrNotPushOnly,
			"signature script is not push only")
		return ruleError(ErrScriptMalformed, describe(err), err)
	}

	txCtx := &txcontext.TxContext{
		Tx:          v.tx,
		InputIndex:  item.txInIndex,
		InputAmount: item.prevOut.Amount,
	}
	vmCtx := &txscript.VMContext{
		Flags:    v.flags,
		SigHash:  txCtx.SigHasher(),
		SigCache: v.sigCache,
		Hook:     v.hook,
	}

	var stack [][]byte
	for _, script := range [][]byte{sigScript, pkScript} {
		vm, err := v.interp.NewEngine(script, txCtx, vmCtx, stack)
		if err != nil {
			return ruleError(ErrScriptMalformed, describe(err), err)
		}
		if err := vm.Execute(); err != nil {
			return ruleError(ErrScriptValidation, describe(err), err)
		}
		stack = vm.GetStack()
	}

	if err := v.checkFinalStack(stack); err != nil {
		return ruleError(ErrScriptValidation, describe(err), err)
	}
	return nil
}

// Validate validates the scripts for all of the passed transaction inputs
// using multiple goroutines.  The first failure cancels the inputs that have
// not started yet and is returned.
func (v *txValidator) Validate(ctx context.Context, items []*txValidateItem) error {
	if len(items) == 0 {
		return nil
	}

	// Limit the number of goroutines to do script validation based on the
	// number of processor cores.  This help ensure the system stays
	// reasonably responsive under heavy load.
	maxGoRoutines := runtime.NumCPU() * 3
	if maxGoRoutines <= 0 {
		maxGoRoutines = 1
	}
	if maxGoRoutines > len(items) {
		maxGoRoutines = len(items)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxGoRoutines)
	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := v.validateInput(item); err != nil {
				log.Debugf("Input %s:%d failed validation: %v",
					v.txHash, item.txInIndex, err)
				return err
			}
			log.Tracef("Input %s:%d validated", v.txHash,
				item.txInIndex)
			return nil
		})
	}

	return g.Wait()
}

// ValidateTransactionScripts validates the scripts for the passed transaction
// using multiple goroutines.  The previous outputs are given in input order.
// Each input is evaluated by its own engine sharing the interpreter and the
// optional signature cache.
func ValidateTransactionScripts(ctx context.Context, interp *txscript.Interpreter,
	tx *wire.MsgTx, prevOuts []PrevOut, flags txscript.ScriptFlags,
	sigCache *txscript.SigCache) error {

	// Coinbase inputs do not spend anything.
	if isCoinBaseTx(tx) {
		return nil
	}

	// Collect all of the transaction inputs and required information for
	// validation.
	txHash := tx.TxHash()
	txValItems := make([]*txValidateItem, 0, len(tx.TxIn))
	for txInIdx, txIn := range tx.TxIn {
		if txInIdx >= len(prevOuts) {
			str := fmt.Sprintf("unable to find previous output %v "+
				"referenced from transaction %s:%d",
				txIn.PreviousOutPoint, txHash, txInIdx)
			return ruleError(ErrMissingPrevOut, str, nil)
		}

		txVI := &txValidateItem{
			txInIndex: txInIdx,
			txIn:      txIn,
			prevOut:   &prevOuts[txInIdx],
		}
		txValItems = append(txValItems, txVI)
	}

	v := &txValidator{
		interp:   interp,
		tx:       tx,
		txHash:   txHash,
		flags:    flags,
		sigCache: sigCache,
	}
	return v.Validate(ctx, txValItems)
}

// ValidateTransactionInput validates the scripts of a single input of the
// passed transaction on the calling goroutine.  The optional hook observes
// both scripts, which makes it suitable for tracing an input.
func ValidateTransactionInput(interp *txscript.Interpreter, tx *wire.MsgTx,
	txInIdx int, prevOut PrevOut, flags txscript.ScriptFlags,
	sigCache *txscript.SigCache, hook txscript.StepHook) error {

	if txInIdx < 0 || txInIdx >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is out of range "+
			"(transaction has %d inputs)", txInIdx, len(tx.TxIn))
		return ruleError(ErrMissingPrevOut, str, nil)
	}

	v := &txValidator{
		interp:   interp,
		tx:       tx,
		txHash:   tx.TxHash(),
		flags:    flags,
		sigCache: sigCache,
		hook:     hook,
	}
	return v.validateInput(&txValidateItem{
		txInIndex: txInIdx,
		txIn:      tx.TxIn[txInIdx],
		prevOut:   &prevOut,
	})
}
