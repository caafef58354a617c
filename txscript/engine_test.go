// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// TestEvalScript runs a table of short form scripts through the test
// interpreter and checks the resulting stack or error.
func TestEvalScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		script  string
		flags   ScriptFlags
		initial [][]byte
		want    [][]byte
		err     error
	}{{
		name:   "empty script",
		script: "",
		want:   [][]byte{},
	}, {
		name:   "add and compare",
		script: "1 1 ADD 2 EQUAL",
		want:   [][]byte{{0x01}},
	}, {
		name:   "compare false",
		script: "1 2 EQUAL",
		want:   [][]byte{nil},
	}, {
		name:   "small ints and negate",
		script: "0 1NEGATE 16",
		want:   [][]byte{{}, {0x81}, {0x10}},
	}, {
		name:    "initial stack",
		script:  "ADD",
		initial: [][]byte{{0x02}, {0x03}},
		want:    [][]byte{{0x05}},
	}, {
		name:   "verify failure",
		script: "1 2 EQUAL VERIFY",
		err:    scriptError(ErrVerify, ""),
	}, {
		name:   "pop from empty stack",
		script: "ADD",
		err:    scriptError(ErrInvalidStackOperation, ""),
	}, {
		name:   "if true branch",
		script: "1 IF 2 ELSE 3 ENDIF",
		want:   [][]byte{{0x02}},
	}, {
		name:   "if false branch",
		script: "0 IF 2 ELSE 3 ENDIF",
		want:   [][]byte{{0x03}},
	}, {
		name:   "notif",
		script: "0 NOTIF 2 ELSE 3 ENDIF",
		want:   [][]byte{{0x02}},
	}, {
		name:   "nested if in false branch",
		script: "0 IF 1 IF 2 ENDIF ELSE 3 ENDIF",
		want:   [][]byte{{0x03}},
	}, {
		name:   "multiple else",
		script: "1 IF 2 ELSE 3 ELSE 4 ENDIF",
		want:   [][]byte{{0x02}, {0x04}},
	}, {
		name:   "if without endif",
		script: "1 IF",
		err:    scriptError(ErrUnbalancedConditional, ""),
	}, {
		name:   "lone endif",
		script: "ENDIF",
		err:    scriptError(ErrUnbalancedConditional, ""),
	}, {
		name:   "lone else",
		script: "ELSE",
		err:    scriptError(ErrUnbalancedConditional, ""),
	}, {
		name:   "if with empty stack",
		script: "IF 1 ENDIF",
		err:    scriptError(ErrInvalidStackOperation, ""),
	}, {
		name:   "if without condition in false branch",
		script: "0 IF IF ENDIF ENDIF",
		want:   [][]byte{},
	}, {
		name:   "disabled opcode in unexecuted branch",
		script: "0 IF CAT ENDIF",
		err:    scriptError(ErrDisabledOpcode, ""),
	}, {
		name:   "unknown opcode in unexecuted branch",
		script: "0 IF 0xba ENDIF",
		want:   [][]byte{},
	}, {
		name:   "unknown opcode executed",
		script: "1 IF 0xba ENDIF",
		err:    scriptError(ErrReservedOpcode, ""),
	}, {
		name:   "reserved opcode in unexecuted branch",
		script: "0 IF RESERVED ENDIF",
		want:   [][]byte{},
	}, {
		name:   "reserved opcode executed",
		script: "RESERVED",
		err:    scriptError(ErrReservedOpcode, ""),
	}, {
		name:   "malformed push",
		script: "1 0x4c05 0x010203",
		err:    scriptError(ErrMalformedPush, ""),
	}, {
		name:   "max element size",
		script: "0x4d0802 0x00{520}",
		want:   [][]byte{make([]byte, 520)},
	}, {
		name:   "element too big",
		script: "0x4d0902 0x00{521}",
		err:    scriptError(ErrElementTooBig, ""),
	}, {
		name:   "element too big in unexecuted branch",
		script: "0 IF 0x4d0902 0x00{521} ENDIF",
		err:    scriptError(ErrElementTooBig, ""),
	}, {
		name:   "max operations",
		script: strings.Repeat("NOP ", MaxOpsPerScript),
		want:   [][]byte{},
	}, {
		name:   "too many operations",
		script: strings.Repeat("NOP ", MaxOpsPerScript+1),
		err:    scriptError(ErrTooManyOperations, ""),
	}, {
		name:   "unexecuted operations count",
		script: "0 IF " + strings.Repeat("NOP ", MaxOpsPerScript-1) + "ENDIF",
		err:    scriptError(ErrTooManyOperations, ""),
	}, {
		name:   "pushes do not count",
		script: strings.Repeat("1 DROP ", MaxOpsPerScript) + "1",
		want:   [][]byte{{0x01}},
	}, {
		name:   "non-minimal push allowed without flag",
		script: "0x0105",
		want:   [][]byte{{0x05}},
	}, {
		name:   "non-minimal push",
		script: "0x0105",
		flags:  ScriptVerifyMinimalData,
		err:    scriptError(ErrMinimalData, ""),
	}, {
		name:   "non-minimal push in unexecuted branch",
		script: "0 IF 0x0105 ENDIF",
		flags:  ScriptVerifyMinimalData,
		want:   [][]byte{},
	}, {
		name:   "non-minimal number operand",
		script: "0x020100 1 ADD",
		flags:  ScriptVerifyMinimalData,
		err:    scriptError(ErrMinimalData, ""),
	}, {
		name:   "non-minimal if operand allowed without flag",
		script: "2 IF 1 ENDIF",
		want:   [][]byte{{0x01}},
	}, {
		name:   "non-minimal if operand",
		script: "2 IF 1 ENDIF",
		flags:  ScriptVerifyMinimalIf,
		err:    scriptError(ErrMinimalIf, ""),
	}, {
		name:   "alt stack",
		script: "1 2 TOALTSTACK",
		want:   [][]byte{{0x01}},
	}}

	for _, test := range tests {
		script := mustParseShortForm(test.script)
		vmCtx := &VMContext{Flags: test.flags}
		got, err := testInterpreter.EvalScript(script, nil, vmCtx,
			test.initial)
		if e := tstCheckScriptError(err, test.err); e != nil {
			t.Errorf("%s: %v", test.name, e)
			continue
		}
		if err != nil {
			continue
		}

		if len(got) != len(test.want) {
			t.Errorf("%s: got %d stack items, want %d", test.name,
				len(got), len(test.want))
			continue
		}
		for i := range got {
			if !bytes.Equal(got[i], test.want[i]) {
				t.Errorf("%s: stack item %d is %x, want %x",
					test.name, i, got[i], test.want[i])
			}
		}
	}
}

// TestScriptTooBig ensures scripts larger than MaxScriptSize are refused
// before any instruction runs.
func TestScriptTooBig(t *testing.T) {
	t.Parallel()

	script := bytes.Repeat([]byte{OP_NOP}, MaxScriptSize+1)
	_, err := testInterpreter.EvalScript(script, nil, nil, nil)
	if e := tstCheckScriptError(err, scriptError(ErrScriptTooBig, "")); e != nil {
		t.Fatal(e)
	}

	// A max size script is accepted by the constructor.  Running it fails
	// on the operation limit instead.
	script = script[:MaxScriptSize]
	if _, err := testInterpreter.NewEngine(script, nil, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestStackOverflow ensures the combined height of both stacks is bounded.
func TestStackOverflow(t *testing.T) {
	t.Parallel()

	initial := make([][]byte, MaxStackSize)

	// A full stack is fine as long as nothing is added.
	script := mustParseShortForm("NOP")
	if _, err := testInterpreter.EvalScript(script, nil, nil, initial); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []string{"1", "1 NOP", "TOALTSTACK 1 1"}
	for _, test := range tests {
		script := mustParseShortForm(test)
		_, err := testInterpreter.EvalScript(script, nil, nil, initial)
		if e := tstCheckScriptError(err, scriptError(ErrStackOverflow, "")); e != nil {
			t.Errorf("%q: %v", test, e)
		}
	}
}

// TestInitialStackNotModified ensures the caller's initial stack slice is
// left untouched by evaluation.
func TestInitialStackNotModified(t *testing.T) {
	t.Parallel()

	initial := [][]byte{{0x01}, {0x02}}
	script := mustParseShortForm("DROP DROP 5")
	got, err := testInterpreter.EvalScript(script, nil, nil, initial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], []byte{0x05}) {
		t.Fatalf("unexpected stack %x", got)
	}
	if len(initial) != 2 || !bytes.Equal(initial[0], []byte{0x01}) ||
		!bytes.Equal(initial[1], []byte{0x02}) {

		t.Fatalf("initial stack modified: %x", initial)
	}
}

// TestStep ensures stepping through a script one instruction at a time
// reports progress and refuses to step past the end.
func TestStep(t *testing.T) {
	t.Parallel()

	script := mustParseShortForm("1 2 ADD")
	vm, err := testInterpreter.NewEngine(script, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	wantPCs := []int32{1, 2, 3}
	for i, wantPC := range wantPCs {
		done, err := vm.Step()
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if vm.PC() != wantPC {
			t.Fatalf("step %d: pc %d, want %d", i, vm.PC(), wantPC)
		}
		if done != (i == len(wantPCs)-1) {
			t.Fatalf("step %d: done %v", i, done)
		}
	}
	if vm.OpCount() != 1 {
		t.Fatalf("op count %d, want 1", vm.OpCount())
	}
	if inst := vm.CurrentInstruction(); inst.Opcode != OP_ADD {
		t.Fatalf("current instruction %s, want OP_ADD", inst.Name())
	}
	if stack := vm.GetStack(); len(stack) != 1 ||
		!bytes.Equal(stack[0], []byte{0x03}) {

		t.Fatalf("unexpected stack %x", stack)
	}

	_, err = vm.Step()
	if e := tstCheckScriptError(err, scriptError(ErrInvalidIndex, "")); e != nil {
		t.Fatal(e)
	}
}

// TestNilHandlerTable ensures an interpreter without a table is rejected.
func TestNilHandlerTable(t *testing.T) {
	t.Parallel()

	_, err := NewInterpreter(nil).EvalScript(nil, nil, nil, nil)
	if e := tstCheckScriptError(err, scriptError(ErrInternal, "")); e != nil {
		t.Fatal(e)
	}
}

// recordingHook records the name of every instruction it is shown and
// optionally replaces the handler for OP_NOP.
type recordingHook struct {
	names   []string
	replace *Handler
}

func (h *recordingHook) Resolve(vm *Engine, inst *Instruction, hd *Handler) *Handler {
	h.names = append(h.names, hd.Name)
	if h.replace != nil && inst.Opcode == OP_NOP {
		return h.replace
	}
	return nil
}

// TestStepHook ensures the hook sees every instruction, including those in
// unexecuted branches, and that a substituted handler runs in place of the
// table's.
func TestStepHook(t *testing.T) {
	t.Parallel()

	script := mustParseShortForm("0 IF NOP ENDIF NOP")

	hook := &recordingHook{}
	got, err := testInterpreter.EvalScript(script, nil,
		&VMContext{Hook: hook}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unexpected stack %x", got)
	}
	want := []string{"OP_0", "OP_IF", "OP_NOP", "OP_ENDIF", "OP_NOP"}
	if strings.Join(hook.names, " ") != strings.Join(want, " ") {
		t.Fatalf("hook saw %v, want %v", hook.names, want)
	}

	hook = &recordingHook{replace: &Handler{
		Value: OP_NOP,
		Name:  "OP_NOP",
		Exec: func(op *Handler, data []byte, vm *Engine) error {
			vm.DataStack().PushByteArray([]byte("hooked"))
			return nil
		},
	}}
	got, err = testInterpreter.EvalScript(script, nil,
		&VMContext{Hook: hook}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || string(got[0]) != "hooked" {
		t.Fatalf("unexpected stack %q", got)
	}
}

// subScriptTable extends the test handlers with opcodes that expose the
// signature hash plumbing of the engine.
var subScriptTable = func() *HandlerTable {
	extra := []Handler{{
		Value: OP_CHECKSIG,
		Exec: func(op *Handler, data []byte, vm *Engine) error {
			vm.DataStack().PushByteArray(vm.SubScript())
			return nil
		},
	}, {
		Value: OP_CHECKSIGVERIFY,
		Exec: func(op *Handler, data []byte, vm *Engine) error {
			hash, err := vm.CalcSigHash(SigHashAll, vm.SubScript())
			if err != nil {
				return err
			}
			vm.DataStack().PushByteArray(hash)
			return nil
		},
	}}

	var handlers []Handler
	for i := 0; i < 256; i++ {
		h := testTable.Lookup(byte(i))
		if IsPushOpcode(h.Value) || h.Value == OP_CHECKSIG ||
			h.Value == OP_CHECKSIGVERIFY {

			continue
		}
		if strings.HasPrefix(h.Name, "OP_UNKNOWN") || h.Value == OP_RESERVED {
			continue
		}
		handlers = append(handlers, *h)
	}
	t, err := NewHandlerTable(append(handlers, extra...)...)
	if err != nil {
		panic(err)
	}
	return t
}()

// TestCodeSeparator ensures the script committed to by signature hashes
// starts after the most recently executed OP_CODESEPARATOR.
func TestCodeSeparator(t *testing.T) {
	t.Parallel()

	in := NewInterpreter(subScriptTable)
	tests := []struct {
		script string
		want   string
	}{
		{"CHECKSIG", "CHECKSIG"},
		{"1 CODESEPARATOR 2 CHECKSIG", "2 CHECKSIG"},
		{"CODESEPARATOR CODESEPARATOR CHECKSIG", "CHECKSIG"},
		{"0 IF CODESEPARATOR ENDIF CHECKSIG", "0 IF CODESEPARATOR ENDIF CHECKSIG"},
	}
	for _, test := range tests {
		got, err := in.EvalScript(mustParseShortForm(test.script), nil,
			nil, nil)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.script, err)
			continue
		}
		want := mustParseShortForm(test.want)
		if top := got[len(got)-1]; !bytes.Equal(top, want) {
			t.Errorf("%q: subscript %x, want %x", test.script, top, want)
		}
	}
}

// TestCalcSigHash ensures signature hash requests are routed to the
// provider and that provider failures surface as script errors.
func TestCalcSigHash(t *testing.T) {
	t.Parallel()

	in := NewInterpreter(subScriptTable)
	script := mustParseShortForm("CODESEPARATOR CHECKSIGVERIFY")

	// No provider.
	_, err := in.EvalScript(script, nil, nil, nil)
	if e := tstCheckScriptError(err, scriptError(ErrSigHashProvider, "")); e != nil {
		t.Fatalf("no provider: %v", e)
	}

	// A provider that sees the script after the separator.
	var gotType SigHashType
	var gotScript []byte
	provider := func(hashType SigHashType, subScript []byte) ([]byte, error) {
		gotType, gotScript = hashType, subScript
		return []byte{0xaa}, nil
	}
	stack, err := in.EvalScript(script, nil, &VMContext{SigHash: provider}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotType != SigHashAll || !bytes.Equal(gotScript, []byte{OP_CHECKSIGVERIFY}) {
		t.Fatalf("provider called with %v %x", gotType, gotScript)
	}
	if len(stack) != 1 || !bytes.Equal(stack[0], []byte{0xaa}) {
		t.Fatalf("unexpected stack %x", stack)
	}

	// Plain errors are wrapped while script errors pass through.
	failing := func(SigHashType, []byte) ([]byte, error) {
		return nil, errors.New("boom")
	}
	_, err = in.EvalScript(script, nil, &VMContext{SigHash: failing}, nil)
	if e := tstCheckScriptError(err, scriptError(ErrSigHashProvider, "")); e != nil {
		t.Fatalf("failing provider: %v", e)
	}
	rejecting := func(SigHashType, []byte) ([]byte, error) {
		return nil, scriptError(ErrInvalidIndex, "no such input")
	}
	_, err = in.EvalScript(script, nil, &VMContext{SigHash: rejecting}, nil)
	if e := tstCheckScriptError(err, scriptError(ErrInvalidIndex, "")); e != nil {
		t.Fatalf("rejecting provider: %v", e)
	}
}

// TestTxContextPassthrough ensures handlers receive the opaque transaction
// context and configured flags.
func TestTxContextPassthrough(t *testing.T) {
	t.Parallel()

	type ctx struct{ id int }
	want := &ctx{id: 7}
	vm, err := testInterpreter.NewEngine(nil, want,
		&VMContext{Flags: ScriptVerifyCleanStack | ScriptVerifyLowS}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if got, ok := vm.TxContext().(*ctx); !ok || got != want {
		t.Fatalf("unexpected context %v", vm.TxContext())
	}
	if !vm.HasFlag(ScriptVerifyCleanStack) || !vm.HasFlag(ScriptVerifyLowS) ||
		vm.HasFlag(ScriptVerifyMinimalData) {

		t.Fatal("unexpected flags")
	}
	if err := vm.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

// TestConcurrentEvaluation ensures a single interpreter can run many
// evaluations at once and that every one yields the same result.
func TestConcurrentEvaluation(t *testing.T) {
	t.Parallel()

	script := mustParseShortForm("1 IF 2 3 ADD 5 EQUAL ELSE 0 ENDIF")
	const workers = 16

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				stack, err := testInterpreter.EvalScript(script, nil,
					nil, nil)
				if err != nil {
					errs <- err
					return
				}
				if len(stack) != 1 || !bytes.Equal(stack[0], []byte{1}) {
					errs <- fmt.Errorf("unexpected stack %x", stack)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
