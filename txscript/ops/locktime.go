// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcscript/txscript"
)

// LockTimeContext is the view of the spending transaction needed by
// OP_CHECKLOCKTIMEVERIFY and OP_CHECKSEQUENCEVERIFY.  The transaction context
// passed to the engine must implement it for either opcode to succeed while
// its verification flag is set.
type LockTimeContext interface {
	// LockTime returns the lock time of the spending transaction.
	LockTime() uint32

	// TxVersion returns the version of the spending transaction.
	TxVersion() int32

	// InputSequence returns the sequence number of the input being
	// validated.
	InputSequence() uint32
}

// lockTimeContext returns the transaction context of the evaluation as a
// LockTimeContext.
func lockTimeContext(vm *txscript.Engine) (LockTimeContext, error) {
	ltc, ok := vm.TxContext().(LockTimeContext)
	if !ok {
		return nil, txscript.ScriptError(txscript.ErrUnsatisfiedLockTime,
			"transaction context does not provide lock time fields")
	}
	return ltc, nil
}

// peekLockTimeNum returns the top item of the data stack interpreted as a
// non-negative 5-byte number.
//
// The lock time fields are uint32s while script numbers are signed, so a
// standard 4-byte number would only reach 2^31-1.  The extra byte allows
// values up to 2^39-1.  The item is left on the stack.
func peekLockTimeNum(vm *txscript.Engine) (int64, error) {
	so, err := vm.DataStack().PeekByteArray(0)
	if err != nil {
		return 0, err
	}
	n, err := txscript.MakeScriptNum(so,
		vm.HasFlag(txscript.ScriptVerifyMinimalData),
		txscript.LockTimeMaxScriptNumLen)
	if err != nil {
		return 0, err
	}

	// In the rare event that the argument needs to be < 0 due to some
	// arithmetic being done first, you can always use 0 OP_MAX before the
	// opcode.
	if n < 0 {
		str := fmt.Sprintf("negative lock time: %d", n)
		return 0, txscript.ScriptError(txscript.ErrNegativeLockTime, str)
	}
	return int64(n), nil
}

// verifyLockTime is a helper function used to validate locktimes.
func verifyLockTime(txLockTime, threshold, lockTime int64) error {
	// The lockTimes in both the script and transaction must be of the same
	// type.
	if !((txLockTime < threshold && lockTime < threshold) ||
		(txLockTime >= threshold && lockTime >= threshold)) {
		str := fmt.Sprintf("mismatched locktime types -- tx locktime "+
			"%d, stack locktime %d", txLockTime, lockTime)
		return txscript.ScriptError(txscript.ErrUnsatisfiedLockTime, str)
	}

	if lockTime > txLockTime {
		str := fmt.Sprintf("locktime requirement not satisfied -- "+
			"locktime is greater than the transaction locktime: "+
			"%d > %d", lockTime, txLockTime)
		return txscript.ScriptError(txscript.ErrUnsatisfiedLockTime, str)
	}

	return nil
}

// opcodeCheckLockTimeVerify compares the top item on the data stack to the
// LockTime field of the transaction containing the script signature
// validating if the transaction outputs are spendable yet.  If flag
// ScriptVerifyCheckLockTimeVerify is not set, the code continues as if OP_NOP2
// were executed.
func opcodeCheckLockTimeVerify(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	if !vm.HasFlag(txscript.ScriptVerifyCheckLockTimeVerify) {
		if vm.HasFlag(txscript.ScriptDiscourageUpgradableNops) {
			return txscript.ScriptError(txscript.ErrDiscourageUpgradableNOPs,
				"OP_NOP2 reserved for soft-fork upgrades")
		}
		return nil
	}

	lockTime, err := peekLockTimeNum(vm)
	if err != nil {
		return err
	}
	ltc, err := lockTimeContext(vm)
	if err != nil {
		return err
	}

	// The lock time field of a transaction is either a block height at
	// which the transaction is finalized or a timestamp depending on if the
	// value is before the LockTimeThreshold.  When it is under the
	// threshold it is a block height.
	err = verifyLockTime(int64(ltc.LockTime()), LockTimeThreshold, lockTime)
	if err != nil {
		return err
	}

	// The lock time feature can also be disabled, thereby bypassing
	// OP_CHECKLOCKTIMEVERIFY, if every transaction input has been finalized
	// by setting its sequence to the maximum value.  Requiring the input
	// being validated to be unlocked is sufficient to prevent that without
	// having to check every input.
	if ltc.InputSequence() == wire.MaxTxInSequenceNum {
		return txscript.ScriptError(txscript.ErrUnsatisfiedLockTime,
			"transaction input is finalized")
	}

	return nil
}

// opcodeCheckSequenceVerify compares the top item on the data stack to the
// sequence field of the input being validated, checking the relative lock
// time of the output being spent.  If flag ScriptVerifyCheckSequenceVerify is
// not set, the code continues as if OP_NOP3 were executed.
func opcodeCheckSequenceVerify(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	if !vm.HasFlag(txscript.ScriptVerifyCheckSequenceVerify) {
		if vm.HasFlag(txscript.ScriptDiscourageUpgradableNops) {
			return txscript.ScriptError(txscript.ErrDiscourageUpgradableNOPs,
				"OP_NOP3 reserved for soft-fork upgrades")
		}
		return nil
	}

	sequence, err := peekLockTimeNum(vm)
	if err != nil {
		return err
	}

	// To provide for future soft-fork extensibility, if the operand has
	// the disabled lock-time flag set, CHECKSEQUENCEVERIFY behaves as a
	// NOP.
	if sequence&int64(wire.SequenceLockTimeDisabled) != 0 {
		return nil
	}

	ltc, err := lockTimeContext(vm)
	if err != nil {
		return err
	}

	// Transaction version numbers not high enough to trigger CSV rules must
	// fail.
	if uint32(ltc.TxVersion()) < 2 {
		str := fmt.Sprintf("invalid transaction version: %d",
			ltc.TxVersion())
		return txscript.ScriptError(txscript.ErrUnsatisfiedLockTime, str)
	}

	// Sequence numbers with their most significant bit set are not
	// consensus constrained.  Testing that the transaction's sequence
	// number does not have this bit set prevents using this property to
	// get around a CHECKSEQUENCEVERIFY check.
	txSequence := int64(ltc.InputSequence())
	if txSequence&int64(wire.SequenceLockTimeDisabled) != 0 {
		str := fmt.Sprintf("transaction sequence has sequence "+
			"locktime disabled bit set: 0x%x", txSequence)
		return txscript.ScriptError(txscript.ErrUnsatisfiedLockTime, str)
	}

	// Mask off non-consensus bits before doing comparisons.
	lockTimeMask := int64(wire.SequenceLockTimeIsSeconds |
		wire.SequenceLockTimeMask)
	return verifyLockTime(txSequence&lockTimeMask,
		wire.SequenceLockTimeIsSeconds, sequence&lockTimeMask)
}
