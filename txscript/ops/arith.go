// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import "github.com/btcsuite/btcscript/txscript"

// Numeric operands are limited to txscript.MathOpCodeMaxScriptNumLen bytes by
// Stack.PopInt, while results may overflow that and are still pushed.

// unaryOp pops one number, applies f and pushes the result.
func unaryOp(vm *txscript.Engine, f func(txscript.ScriptNum) txscript.ScriptNum) error {
	m, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}
	vm.DataStack().PushInt(f(m))
	return nil
}

// binaryOp pops two numbers, applies f with the deeper item as the first
// argument and pushes the result.
func binaryOp(vm *txscript.Engine, f func(a, b txscript.ScriptNum) txscript.ScriptNum) error {
	v0, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}
	v1, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}
	vm.DataStack().PushInt(f(v1, v0))
	return nil
}

// boolNum converts a boolean to the numbers 0 and 1.
func boolNum(b bool) txscript.ScriptNum {
	if b {
		return 1
	}
	return 0
}

// opcode1Add replaces the top number with its increment.
//
// Stack transformation: [... x1 x2] -> [... x1 x2+1]
func opcode1Add(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return unaryOp(vm, func(m txscript.ScriptNum) txscript.ScriptNum {
		return m + 1
	})
}

// opcode1Sub replaces the top number with its decrement.
//
// Stack transformation: [... x1 x2] -> [... x1 x2-1]
func opcode1Sub(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return unaryOp(vm, func(m txscript.ScriptNum) txscript.ScriptNum {
		return m - 1
	})
}

// opcodeNegate replaces the top number with its negation.
//
// Stack transformation: [... x1 x2] -> [... x1 -x2]
func opcodeNegate(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return unaryOp(vm, func(m txscript.ScriptNum) txscript.ScriptNum {
		return -m
	})
}

// opcodeAbs replaces the top number with its absolute value.
//
// Stack transformation: [... x1 x2] -> [... x1 abs(x2)]
func opcodeAbs(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return unaryOp(vm, func(m txscript.ScriptNum) txscript.ScriptNum {
		if m < 0 {
			return -m
		}
		return m
	})
}

// opcodeNot replaces the top number with 1 when it is zero and 0 otherwise.
//
// NOTE: The item is interpreted as a number, not a boolean, so negative zero
// and non-minimal encodings are subject to the numeric rules.
//
// Stack transformation (x2==0): [... x1 0] -> [... x1 1]
// Stack transformation (x2!=0): [... x1 17] -> [... x1 0]
func opcodeNot(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return unaryOp(vm, func(m txscript.ScriptNum) txscript.ScriptNum {
		return boolNum(m == 0)
	})
}

// opcode0NotEqual replaces the top number with 0 when it is zero and 1
// otherwise.
//
// Stack transformation (x2==0): [... x1 0] -> [... x1 0]
// Stack transformation (x2!=0): [... x1 17] -> [... x1 1]
func opcode0NotEqual(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return unaryOp(vm, func(m txscript.ScriptNum) txscript.ScriptNum {
		return boolNum(m != 0)
	})
}

// opcodeAdd replaces the top two numbers with their sum.
//
// Stack transformation: [... x1 x2] -> [... x1+x2]
func opcodeAdd(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		return a + b
	})
}

// opcodeSub replaces the top two numbers with the top subtracted from the
// second.
//
// Stack transformation: [... x1 x2] -> [... x1-x2]
func opcodeSub(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		return a - b
	})
}

// opcodeBoolAnd replaces the top two numbers with 1 when both are non-zero.
//
// Stack transformation: [... x1 x2] -> [... x1 && x2]
func opcodeBoolAnd(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		return boolNum(a != 0 && b != 0)
	})
}

// opcodeBoolOr replaces the top two numbers with 1 when either is non-zero.
//
// Stack transformation: [... x1 x2] -> [... x1 || x2]
func opcodeBoolOr(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		return boolNum(a != 0 || b != 0)
	})
}

// opcodeNumEqual replaces the top two numbers with 1 when they are equal.
//
// Stack transformation: [... x1 x2] -> [... x1 == x2]
func opcodeNumEqual(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		return boolNum(a == b)
	})
}

// opcodeNumEqualVerify is a combination of opcodeNumEqual and opcodeVerify.
//
// Stack transformation: [... x1 x2] -> [... bool] -> [...]
func opcodeNumEqualVerify(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	err := opcodeNumEqual(op, data, vm)
	if err == nil {
		err = abstractVerify(op, vm, txscript.ErrNumEqualVerify)
	}
	return err
}

// opcodeNumNotEqual replaces the top two numbers with 1 when they differ.
//
// Stack transformation: [... x1 x2] -> [... x1 != x2]
func opcodeNumNotEqual(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		return boolNum(a != b)
	})
}

// opcodeLessThan replaces the top two numbers with 1 when the second is less
// than the top.
//
// Stack transformation: [... x1 x2] -> [... x1 < x2]
func opcodeLessThan(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		return boolNum(a < b)
	})
}

// opcodeGreaterThan replaces the top two numbers with 1 when the second is
// greater than the top.
//
// Stack transformation: [... x1 x2] -> [... x1 > x2]
func opcodeGreaterThan(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		return boolNum(a > b)
	})
}

// opcodeLessThanOrEqual replaces the top two numbers with 1 when the second
// is less than or equal to the top.
//
// Stack transformation: [... x1 x2] -> [... x1 <= x2]
func opcodeLessThanOrEqual(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		return boolNum(a <= b)
	})
}

// opcodeGreaterThanOrEqual replaces the top two numbers with 1 when the
// second is greater than or equal to the top.
//
// Stack transformation: [... x1 x2] -> [... x1 >= x2]
func opcodeGreaterThanOrEqual(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		return boolNum(a >= b)
	})
}

// opcodeMin replaces the top two numbers with the smaller of them.
//
// Stack transformation: [... x1 x2] -> [... min(x1, x2)]
func opcodeMin(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		if a < b {
			return a
		}
		return b
	})
}

// opcodeMax replaces the top two numbers with the larger of them.
//
// Stack transformation: [... x1 x2] -> [... max(x1, x2)]
func opcodeMax(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	return binaryOp(vm, func(a, b txscript.ScriptNum) txscript.ScriptNum {
		if a > b {
			return a
		}
		return b
	})
}

// opcodeWithin treats the top 3 items on the data stack as integers.  When the
// value to test is within the specified range (left inclusive), 1 is pushed,
// otherwise 0.
//
// The top item is the max value, the second-top-item is the minimum value, and
// the third-to-top item is the value to test.
//
// Stack transformation: [... x1 min max] -> [... bool]
func opcodeWithin(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	maxVal, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}
	minVal, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}
	x, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}

	vm.DataStack().PushInt(boolNum(x >= minVal && x < maxVal))
	return nil
}
