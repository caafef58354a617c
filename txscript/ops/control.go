// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"fmt"

	"github.com/btcsuite/btcscript/txscript"
)

// opcodeDisabled is a common handler for disabled opcodes.  It returns an
// appropriate error indicating the opcode is disabled.  The consensus rules
// dictate the script fails once the program counter passes over a disabled
// opcode, even when it appears in a branch that is not executed.
func opcodeDisabled(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	str := fmt.Sprintf("attempt to execute disabled opcode %s", op.Name)
	return txscript.ScriptError(txscript.ErrDisabledOpcode, str)
}

// opcodeReserved is a common handler for all reserved opcodes.  It returns an
// appropriate error indicating the opcode is reserved.
func opcodeReserved(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	str := fmt.Sprintf("attempt to execute reserved opcode %s", op.Name)
	return txscript.ScriptError(txscript.ErrReservedOpcode, str)
}

// opcodeNop is a common handler for the NOP family of opcodes.  As the name
// implies it generally does nothing, however, it will return an error when
// the flag to discourage use of NOPs is set for select opcodes.
func opcodeNop(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	switch op.Value {
	case txscript.OP_NOP1, txscript.OP_NOP4, txscript.OP_NOP5,
		txscript.OP_NOP6, txscript.OP_NOP7, txscript.OP_NOP8,
		txscript.OP_NOP9, txscript.OP_NOP10:

		if vm.HasFlag(txscript.ScriptDiscourageUpgradableNops) {
			str := fmt.Sprintf("%v reserved for soft-fork "+
				"upgrades", op.Name)
			return txscript.ScriptError(txscript.ErrDiscourageUpgradableNOPs, str)
		}
	}
	return nil
}

// popIfBool pops the top item of the data stack as the condition of an
// OP_IF or OP_NOTIF.  When ScriptVerifyMinimalIf is set the item must be
// either empty or exactly [0x01].
func popIfBool(vm *txscript.Engine) (bool, error) {
	so, err := vm.DataStack().PopByteArray()
	if err != nil {
		return false, err
	}
	return txscript.MakeScriptBool(so, vm.HasFlag(txscript.ScriptVerifyMinimalIf))
}

// opcodeIf treats the top item on the data stack as a boolean and removes it.
//
// An appropriate entry is added to the conditional stack depending on whether
// the boolean is true and whether this if is on an executing branch in order
// to allow proper execution of further opcodes depending on the conditional
// logic.  When the boolean is true, the first branch will be executed (unless
// this opcode is nested in a non-executed branch).
//
// <expression> if [statements] [else [statements]] endif
//
// Note that, unlike for all non-conditional opcodes, this is executed even when
// it is on a non-executing branch so proper nesting is maintained.
//
// Data stack transformation: [... bool] -> [...]
// Conditional stack transformation: [...] -> [... bool]
func opcodeIf(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	condVal := false
	if vm.IsBranchExecuting() {
		ok, err := popIfBool(vm)
		if err != nil {
			return err
		}
		condVal = ok
	}
	vm.CondStack().OpenBranch(condVal)
	return nil
}

// opcodeNotIf is the inverse of opcodeIf: the first branch is executed when
// the boolean is false.
//
// <expression> notif [statements] [else [statements]] endif
//
// Data stack transformation: [... bool] -> [...]
// Conditional stack transformation: [...] -> [... !bool]
func opcodeNotIf(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	condVal := false
	if vm.IsBranchExecuting() {
		ok, err := popIfBool(vm)
		if err != nil {
			return err
		}
		condVal = !ok
	}
	vm.CondStack().OpenBranch(condVal)
	return nil
}

// opcodeElse inverts conditional execution for other half of if/else/endif.
//
// An error is returned if there has not already been a matching OP_IF.
//
// Conditional stack transformation: [... bool] -> [... !bool]
func opcodeElse(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.CondStack().FlipTop()
}

// opcodeEndif terminates a conditional block, removing the value from the
// conditional execution stack.
//
// An error is returned if there has not already been a matching OP_IF.
//
// Conditional stack transformation: [... bool] -> [...]
func opcodeEndif(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.CondStack().CloseBranch()
}

// abstractVerify examines the top item on the data stack as a boolean value and
// verifies it evaluates to true.  An error is returned either when there is no
// item on the stack or when that item evaluates to false.  In the latter case
// where the verification fails specifically due to the top item evaluating
// to false, the returned error will use the passed error code.
func abstractVerify(op *txscript.Handler, vm *txscript.Engine, c txscript.ErrorCode) error {
	verified, err := vm.DataStack().PopBool()
	if err != nil {
		return err
	}

	if !verified {
		str := fmt.Sprintf("%s failed", op.Name)
		return txscript.ScriptError(c, str)
	}
	return nil
}

// opcodeVerify examines the top item on the data stack as a boolean value and
// verifies it evaluates to true.  An error is returned if it does not.
func opcodeVerify(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return abstractVerify(op, vm, txscript.ErrVerify)
}

// opcodeReturn returns an appropriate error since it is always an error to
// return early from a script.
func opcodeReturn(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return txscript.ScriptError(txscript.ErrEarlyReturn, "script returned early")
}

// opcodeCodeSeparator stores the current script offset as the most recently
// seen OP_CODESEPARATOR which is used during signature checking.
//
// This opcode does not change the contents of the data stack.
func opcodeCodeSeparator(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	vm.SetCodeSeparator()
	return nil
}
