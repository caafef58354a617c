// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"bytes"

	"github.com/btcsuite/btcscript/txscript"
)

// opcodeToAltStack removes the top item from the main data stack and pushes it
// onto the alternate data stack.
//
// Main data stack transformation: [... x1 x2 x3] -> [... x1 x2]
// Alt data stack transformation:  [... y1 y2 y3] -> [... y1 y2 y3 x3]
func opcodeToAltStack(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	so, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}
	vm.AltStack().PushByteArray(so)
	return nil
}

// opcodeFromAltStack removes the top item from the alternate data stack and
// pushes it onto the main data stack.
//
// Main data stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 y3]
// Alt data stack transformation:  [... y1 y2 y3] -> [... y1 y2]
func opcodeFromAltStack(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	so, err := vm.AltStack().PopByteArray()
	if err != nil {
		return err
	}
	vm.DataStack().PushByteArray(so)
	return nil
}

// opcode2Drop removes the top 2 items from the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1]
func opcode2Drop(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().DropN(2)
}

// opcode2Dup duplicates the top 2 items on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x2 x3]
func opcode2Dup(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().DupN(2)
}

// opcode3Dup duplicates the top 3 items on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x1 x2 x3]
func opcode3Dup(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().DupN(3)
}

// opcode2Over duplicates the 2 items before the top 2 items on the data stack.
//
// Stack transformation: [... x1 x2 x3 x4] -> [... x1 x2 x3 x4 x1 x2]
func opcode2Over(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().OverN(2)
}

// opcode2Rot rotates the top 6 items on the data stack to the left twice.
//
// Stack transformation: [... x1 x2 x3 x4 x5 x6] -> [... x3 x4 x5 x6 x1 x2]
func opcode2Rot(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().RotN(2)
}

// opcode2Swap swaps the top 2 items on the data stack with the 2 that come
// before them.
//
// Stack transformation: [... x1 x2 x3 x4] -> [... x3 x4 x1 x2]
func opcode2Swap(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().SwapN(2)
}

// opcodeIfDup duplicates the top item of the stack if it is not zero.
//
// Stack transformation (x1==0): [... x1] -> [... x1]
// Stack transformation (x1!=0): [... x1] -> [... x1 x1]
func opcodeIfDup(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	so, err := vm.DataStack().PeekByteArray(0)
	if err != nil {
		return err
	}

	// Push copy of data iff it isn't zero
	if ok, _ := txscript.MakeScriptBool(so, false); ok {
		vm.DataStack().PushByteArray(so)
	}
	return nil
}

// opcodeDepth pushes the depth of the data stack prior to executing this
// opcode, encoded as a number, onto the data stack.
//
// Stack transformation: [...] -> [... <num of items on the stack>]
func opcodeDepth(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	vm.DataStack().PushInt(txscript.ScriptNum(vm.DataStack().Depth()))
	return nil
}

// opcodeDrop removes the top item from the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func opcodeDrop(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().DropN(1)
}

// opcodeDup duplicates the top item on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x3]
func opcodeDup(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().DupN(1)
}

// opcodeNip removes the item before the top item on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x3]
func opcodeNip(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().NipN(1)
}

// opcodeOver duplicates the item before the top item on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x2]
func opcodeOver(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().OverN(1)
}

// opcodePick treats the top item on the data stack as an integer and duplicates
// the item on the stack that number of items back to the top.
//
// Stack transformation: [xn ... x2 x1 x0 n] -> [xn ... x2 x1 x0 xn]
// Example with n=1: [x2 x1 x0 1] -> [x2 x1 x0 x1]
func opcodePick(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	val, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}
	return vm.DataStack().PickN(val.Int32())
}

// opcodeRoll treats the top item on the data stack as an integer and moves
// the item on the stack that number of items back to the top.
//
// Stack transformation: [xn ... x2 x1 x0 n] -> [... x2 x1 x0 xn]
// Example with n=1: [x2 x1 x0 1] -> [x2 x0 x1]
func opcodeRoll(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	val, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}
	return vm.DataStack().RollN(val.Int32())
}

// opcodeRot rotates the top 3 items on the data stack to the left.
//
// Stack transformation: [... x1 x2 x3] -> [... x2 x3 x1]
func opcodeRot(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().RotN(1)
}

// opcodeSwap swaps the top two items on the stack.
//
// Stack transformation: [... x1 x2] -> [... x2 x1]
func opcodeSwap(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().SwapN(1)
}

// opcodeTuck inserts a duplicate of the top item of the data stack before the
// second-to-top item.
//
// Stack transformation: [... x1 x2] -> [... x2 x1 x2]
func opcodeTuck(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return vm.DataStack().Tuck()
}

// opcodeSize pushes the size of the top item of the data stack onto the data
// stack.
//
// Stack transformation: [... x1] -> [... x1 len(x1)]
func opcodeSize(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	so, err := vm.DataStack().PeekByteArray(0)
	if err != nil {
		return err
	}
	vm.DataStack().PushInt(txscript.ScriptNum(len(so)))
	return nil
}

// opcodeEqual removes the top 2 items of the data stack, compares them as raw
// bytes, and pushes the result, encoded as a boolean, back to the stack.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeEqual(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
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

// opcodeEqualVerify is a combination of opcodeEqual and opcodeVerify.
//
// Stack transformation: [... x1 x2] -> [... bool] -> [...]
func opcodeEqualVerify(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	err := opcodeEqual(op, data, vm)
	if err == nil {
		err = abstractVerify(op, vm, txscript.ErrEqualVerify)
	}
	return err
}
