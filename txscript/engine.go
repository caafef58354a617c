// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"strings"
)

// ScriptFlags is a bitmask defining additional operations or tests that will be
// done when executing a script pair.
type ScriptFlags uint32

const (
	// ScriptVerifyMinimalData defines that data pushes in executed
	// branches must use the smallest push operator and that numeric
	// operands must be minimally encoded.  This is both rules 3 and 4 of
	// BIP0062.
	ScriptVerifyMinimalData ScriptFlags = 1 << iota

	// ScriptVerifyMinimalIf makes a script with an OP_IF/OP_NOTIF whose
	// operand is anything other than empty vector or [0x01] non-standard.
	ScriptVerifyMinimalIf

	// ScriptVerifyStrictEncoding defines that signature scripts and
	// public keys must follow the strict encoding requirements.
	ScriptVerifyStrictEncoding

	// ScriptVerifyDERSignatures defines that signatures are required
	// to comply with the DER format.
	ScriptVerifyDERSignatures

	// ScriptVerifyLowS defines that signatures are required to comply with
	// the DER format and whose S value is <= order / 2.  This is rule 5
	// of BIP0062.
	ScriptVerifyLowS

	// ScriptVerifyNullFail defines that signatures must be empty if
	// a CHECKSIG or CHECKMULTISIG operation fails.
	ScriptVerifyNullFail

	// ScriptStrictMultiSig defines whether to verify the stack item
	// used by CHECKMULTISIG is zero length.
	ScriptStrictMultiSig

	// ScriptDiscourageUpgradableNops defines whether to verify that
	// NOP1 through NOP10 are reserved for future soft-fork upgrades.  This
	// flag must not be used for consensus critical code nor applied to
	// blocks as this flag is only for stricter standard transaction
	// checks.  This flag is only applied when the above opcodes are
	// executed.
	ScriptDiscourageUpgradableNops

	// ScriptVerifyCheckLockTimeVerify defines whether to verify that
	// a transaction output is spendable based on the locktime.
	// This is BIP0065.
	ScriptVerifyCheckLockTimeVerify

	// ScriptVerifyCheckSequenceVerify defines whether to allow execution
	// pathways of a script to be restricted based on the age of the output
	// being spent.  This is BIP0112.
	ScriptVerifyCheckSequenceVerify

	// ScriptVerifyCleanStack defines that the stack must contain only
	// one stack element after evaluation and that the element must be
	// true if interpreted as a boolean.  This is rule 6 of BIP0062.
	ScriptVerifyCleanStack

	// ScriptVerifySigPushOnly defines that signature scripts must contain
	// only pushed data.  This is rule 2 of BIP0062.
	ScriptVerifySigPushOnly
)

// StandardVerifyFlags are the script flags which are used when executing
// transaction scripts to enforce additional checks which are required for the
// script to be considered standard.
const StandardVerifyFlags = ScriptVerifyMinimalData |
	ScriptVerifyMinimalIf |
	ScriptVerifyStrictEncoding |
	ScriptVerifyDERSignatures |
	ScriptVerifyLowS |
	ScriptVerifyNullFail |
	ScriptStrictMultiSig |
	ScriptDiscourageUpgradableNops |
	ScriptVerifyCheckLockTimeVerify |
	ScriptVerifyCheckSequenceVerify |
	ScriptVerifyCleanStack |
	ScriptVerifySigPushOnly

const (
	// MaxStackSize is the maximum combined height of stack and alt stack
	// during execution.
	MaxStackSize = 1000

	// MaxScriptSize is the maximum allowed length of a raw script.
	MaxScriptSize = 10000

	// MaxScriptElementSize is the maximum number of bytes a single data
	// push may carry.
	MaxScriptElementSize = 520

	// MaxOpsPerScript is the maximum number of non-push operations per
	// script.
	MaxOpsPerScript = 201
)

// StepHook lets callers observe or instrument evaluation.  Resolve is invoked
// once per instruction, after decoding and before dispatch, with the handler
// the table selected.  A non-nil return value is executed in its place.
type StepHook interface {
	Resolve(vm *Engine, inst *Instruction, h *Handler) *Handler
}

// VMContext carries the per-evaluation configuration.  The zero value
// evaluates with no flags, no instrumentation and no signature checking
// support.
type VMContext struct {
	Flags    ScriptFlags
	Hook     StepHook
	SigHash  SigHashFunc
	SigCache *SigCache
}

// Interpreter evaluates scripts against an immutable handler table.  It holds
// no per-evaluation state and is safe for concurrent use.
type Interpreter struct {
	table *HandlerTable
}

// NewInterpreter returns an interpreter that dispatches through the passed
// handler table.
func NewInterpreter(table *HandlerTable) *Interpreter {
	return &Interpreter{table: table}
}

// Engine is the run state of a single script evaluation.  It is created for
// every evaluation, mutated only by that evaluation and never reused.
type Engine struct {
	table *HandlerTable
	hook  StepHook

	script      []byte
	pc          int32
	inst        Instruction
	lastCodeSep int32
	numOps      int
	dstack      Stack // data stack
	astack      Stack // alt stack
	condStack   *CondStack
	flags       ScriptFlags
	txCtx       interface{}
	sigHash     SigHashFunc
	sigCache    *SigCache
}

// hasFlag returns whether the script engine instance has the passed flag set.
func (vm *Engine) hasFlag(flag ScriptFlags) bool {
	return vm.flags&flag == flag
}

// HasFlag returns whether the script engine instance has the passed flag set.
func (vm *Engine) HasFlag(flag ScriptFlags) bool {
	return vm.hasFlag(flag)
}

// DataStack returns the main data stack.
func (vm *Engine) DataStack() *Stack {
	return &vm.dstack
}

// AltStack returns the alternate data stack.
func (vm *Engine) AltStack() *Stack {
	return &vm.astack
}

// CondStack returns the conditional execution stack.
func (vm *Engine) CondStack() *CondStack {
	return vm.condStack
}

// TxContext returns the opaque transaction context the evaluation was started
// with.
func (vm *Engine) TxContext() interface{} {
	return vm.txCtx
}

// SigCache returns the signature cache for the evaluation, which may be nil.
func (vm *Engine) SigCache() *SigCache {
	return vm.sigCache
}

// Script returns the script being evaluated.
func (vm *Engine) Script() []byte {
	return vm.script
}

// PC returns the offset of the next instruction to decode.
func (vm *Engine) PC() int32 {
	return vm.pc
}

// OpCount returns the number of non-push instructions seen so far.
func (vm *Engine) OpCount() int {
	return vm.numOps
}

// AddOps charges n additional operations against the per-script limit.
// OP_CHECKMULTISIG uses it to count every public key it examines.
func (vm *Engine) AddOps(n int) error {
	vm.numOps += n
	if vm.numOps > MaxOpsPerScript {
		str := fmt.Sprintf("exceeded max operation limit of %d",
			MaxOpsPerScript)
		return scriptError(ErrTooManyOperations, str)
	}
	return nil
}

// CurrentInstruction returns the instruction being executed, or the last one
// executed between steps.
func (vm *Engine) CurrentInstruction() Instruction {
	return vm.inst
}

// IsBranchExecuting returns whether or not the current conditional branch is
// actively executing.  For example, when the data stack has an OP_FALSE on it
// and an OP_IF is encountered, the branch is inactive until an OP_ELSE or
// OP_ENDIF is encountered.  It properly handles nested conditionals.
func (vm *Engine) IsBranchExecuting() bool {
	return vm.condStack.AllTrue()
}

// SetCodeSeparator marks the end of the current instruction as the start of
// the script committed to by signature hashes.  It implements
// OP_CODESEPARATOR.
func (vm *Engine) SetCodeSeparator() {
	vm.lastCodeSep = vm.inst.End
}

// SubScript returns the script since the last OP_CODESEPARATOR.
func (vm *Engine) SubScript() []byte {
	return vm.script[vm.lastCodeSep:]
}

// CalcSigHash computes the signature hash for the passed hash type and
// script through the provider the evaluation was started with.
func (vm *Engine) CalcSigHash(hashType SigHashType, subScript []byte) ([]byte, error) {
	if vm.sigHash == nil {
		return nil, scriptError(ErrSigHashProvider,
			"signature checking requires a signature hash provider")
	}

	hash, err := vm.sigHash(hashType, subScript)
	if err != nil {
		if _, ok := err.(Error); ok {
			return nil, err
		}
		str := fmt.Sprintf("unable to calculate signature hash: %v", err)
		return nil, scriptError(ErrSigHashProvider, str)
	}
	return hash, nil
}

// GetStack returns the contents of the primary stack as an array. where the
// last item in the array is the top of the stack.
func (vm *Engine) GetStack() [][]byte {
	return vm.dstack.Items()
}

// GetAltStack returns the contents of the alternate stack as an array where the
// last item in the array is the top of the stack.
func (vm *Engine) GetAltStack() [][]byte {
	return vm.astack.Items()
}

// Done returns whether every instruction of the script has been executed.
func (vm *Engine) Done() bool {
	return vm.pc >= int32(len(vm.script))
}

// checkStackSize returns an error when the combined depth of the data and
// alternate stacks exceeds MaxStackSize.
func (vm *Engine) checkStackSize() error {
	combinedStackSize := vm.dstack.Depth() + vm.astack.Depth()
	if combinedStackSize > MaxStackSize {
		str := fmt.Sprintf("combined stack size %d > max allowed %d",
			combinedStackSize, MaxStackSize)
		return scriptError(ErrStackOverflow, str)
	}
	return nil
}

// Step executes the next instruction and moves the program counter past it.
// Done is true once the final instruction has been executed.  An error
// aborts the evaluation; the engine must not be stepped again afterwards.
func (vm *Engine) Step() (done bool, err error) {
	if vm.Done() {
		str := fmt.Sprintf("attempt to step beyond script end at offset "+
			"%d", vm.pc)
		return true, scriptError(ErrInvalidIndex, str)
	}

	// Push data is only checked for minimal encoding when it will
	// actually land on the stack.
	executing := vm.condStack.AllTrue()
	verifyMinimal := vm.hasFlag(ScriptVerifyMinimalData) && executing
	inst, err := DecodeInstruction(vm.script, vm.pc, verifyMinimal)
	if err != nil {
		return true, err
	}
	vm.inst = inst

	// Oversized pushes fail even in branches that are not executing.
	if len(inst.Data) > MaxScriptElementSize {
		str := fmt.Sprintf("element size %d exceeds max allowed size %d",
			len(inst.Data), MaxScriptElementSize)
		return true, scriptError(ErrElementTooBig, str)
	}

	// Every instruction that is not a data push counts towards the
	// operation limit, executed or not.
	if !inst.IsPush() {
		vm.numOps++
	}

	if err := vm.checkStackSize(); err != nil {
		return true, err
	}

	h := vm.table.Lookup(inst.Opcode)
	if vm.hook != nil {
		if sub := vm.hook.Resolve(vm, &vm.inst, h); sub != nil {
			h = sub
		}
	}

	if executing && inst.IsPush() {
		vm.dstack.PushByteArray(inst.Data)
	}
	if executing || h.AlwaysRun {
		if err := h.Exec(h, inst.Data, vm); err != nil {
			return true, err
		}
	}

	vm.pc = inst.End
	if vm.numOps > MaxOpsPerScript {
		str := fmt.Sprintf("exceeded max operation limit of %d",
			MaxOpsPerScript)
		return true, scriptError(ErrTooManyOperations, str)
	}

	return vm.Done(), nil
}

// postScriptCheck performs the checks required once the final instruction
// has run: every conditional must be closed and the stacks must still be
// within the size limit.
func (vm *Engine) postScriptCheck() error {
	if err := vm.condStack.CheckTerminal(); err != nil {
		return err
	}
	return vm.checkStackSize()
}

// Execute will execute all instructions of the script and return either nil
// for successful evaluation or an error if one occurred.
func (vm *Engine) Execute() (err error) {
	for !vm.Done() {
		log.Tracef("%v", newLogClosure(func() string {
			inst, err := DecodeInstruction(vm.script, vm.pc, false)
			if err != nil {
				return fmt.Sprintf("stepping %04x (%v)", vm.pc, err)
			}
			return fmt.Sprintf("stepping %04x: %s", vm.pc,
				disasmInstruction(&inst))
		}))

		if _, err = vm.Step(); err != nil {
			log.Debugf("Script evaluation failed at offset %d (%s): %v",
				vm.inst.Start, vm.inst.Name(), err)
			return err
		}

		log.Tracef("%v", newLogClosure(func() string {
			var dstr, astr string

			// Log the non-empty stacks when tracing.
			if vm.dstack.Depth() != 0 {
				dstr = "Stack:\n" + vm.dstack.String()
			}
			if vm.astack.Depth() != 0 {
				astr = "AltStack:\n" + vm.astack.String()
			}

			return strings.TrimSuffix(dstr+astr, "\n")
		}))
	}

	return vm.postScriptCheck()
}

// NewEngine returns a new script engine for the provided script, transaction
// context and configuration.  The initial stack, given bottom first, becomes
// the starting contents of the data stack.
func (in *Interpreter) NewEngine(script []byte, txCtx interface{}, vmCtx *VMContext, initialStack [][]byte) (*Engine, error) {
	if in.table == nil {
		return nil, scriptError(ErrInternal,
			"interpreter created without a handler table")
	}

	// The provided script must not exceed the maximum allowed size.
	if len(script) > MaxScriptSize {
		return nil, scriptLenError(len(script))
	}

	if vmCtx == nil {
		vmCtx = &VMContext{}
	}

	vm := Engine{
		table:     in.table,
		hook:      vmCtx.Hook,
		script:    script,
		condStack: NewCondStack(),
		flags:     vmCtx.Flags,
		txCtx:     txCtx,
		sigHash:   vmCtx.SigHash,
		sigCache:  vmCtx.SigCache,
	}
	vm.dstack.verifyMinimalData = vm.hasFlag(ScriptVerifyMinimalData)
	vm.astack.verifyMinimalData = vm.dstack.verifyMinimalData
	vm.dstack.SetItems(initialStack)

	return &vm, nil
}

// EvalScript evaluates the script and returns the final data stack, bottom
// first.  Evaluation is deterministic: the same arguments always produce the
// same stack or the same error code.
func (in *Interpreter) EvalScript(script []byte, txCtx interface{}, vmCtx *VMContext, initialStack [][]byte) ([][]byte, error) {
	vm, err := in.NewEngine(script, txCtx, vmCtx, initialStack)
	if err != nil {
		return nil, err
	}
	if err := vm.Execute(); err != nil {
		return nil, err
	}
	return vm.GetStack(), nil
}
