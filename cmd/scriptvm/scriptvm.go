// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// scriptvm evaluates a script, or verifies one input of a transaction, and
// optionally records every step of the evaluation into a trace store.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btcscript/internal/log"
	"github.com/btcsuite/btcscript/internal/version"
	"github.com/btcsuite/btcscript/tracedb"
	"github.com/btcsuite/btcscript/txscript"
	"github.com/btcsuite/btcscript/txscript/ops"
	"github.com/btcsuite/btcscript/validate"
	"github.com/davecgh/go-spew/spew"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// sigCacheMax is the number of signatures the cache used when verifying a
// transaction input holds.
const sigCacheMax = 1000

var svmcLog = log.SvmcLog

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

// realMain runs the command with the passed arguments and returns the process
// exit code.  Results go to stdout, diagnostics to stderr.
func realMain(args []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(args, stderr)
	if err != nil {
		if errors.Is(err, errHelpShown) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if cfg.ShowVersion {
		fmt.Fprintf(stdout, "scriptvm version %s\n", version.String())
		return exitOK
	}

	if cfg.LogFile != "" {
		if err := log.InitLogRotator(cfg.LogFile); err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		defer log.LogRotator.Close()
	}

	var db *tracedb.DB
	if cfg.Trace || cfg.ShowTrace != 0 {
		db, err = tracedb.Open(cfg.DbType, cfg.TraceDB)
		if err != nil {
			fmt.Fprintf(stderr, "unable to open trace store %s: %v\n",
				cfg.TraceDB, err)
			return exitFailed
		}
		defer db.Close()
	}

	if cfg.ShowTrace != 0 {
		return showTrace(db, cfg.ShowTrace, stdout, stderr)
	}

	var rec *tracedb.Recorder
	var hook txscript.StepHook
	if cfg.Trace {
		rec, err = db.NewRecorder()
		if err != nil {
			fmt.Fprintf(stderr, "unable to start trace: %v\n", err)
			return exitFailed
		}
		hook = rec
	}

	var evalErr error
	interp := ops.NewInterpreter()
	if cfg.tx != nil {
		evalErr = verifyInput(interp, cfg, hook)
		if evalErr == nil {
			fmt.Fprintf(stdout, "input %d of %s: OK\n", cfg.Input,
				cfg.tx.TxHash())
		}
	} else {
		var vm *txscript.Engine
		vm, evalErr = evalScript(interp, cfg, hook)
		if vm != nil && evalErr == nil {
			printStacks(stdout, vm, cfg.Dump)
		}
	}

	if rec != nil {
		if err := rec.Finish(evalErr); err != nil {
			fmt.Fprintf(stderr, "unable to store trace: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "recorded run %d\n", rec.RunID())
		}
	}

	if evalErr != nil {
		svmcLog.Debugf("Evaluation failed: %v", evalErr)
		fmt.Fprintln(stderr, evalErr)
		return exitFailed
	}
	return exitOK
}

// evalScript evaluates the configured script on the configured initial
// stack.  There is no transaction, so signature opcodes fail.
func evalScript(interp *txscript.Interpreter, cfg *config, hook txscript.StepHook) (*txscript.Engine, error) {
	vmCtx := &txscript.VMContext{
		Flags: cfg.flags,
		Hook:  hook,
	}
	vm, err := interp.NewEngine(cfg.script, nil, vmCtx, cfg.stack)
	if err != nil {
		return nil, err
	}
	return vm, vm.Execute()
}

// verifyInput verifies the configured input of the configured transaction.
func verifyInput(interp *txscript.Interpreter, cfg *config, hook txscript.StepHook) error {
	prevOut := validate.PrevOut{
		PkScript: cfg.pkScript,
		Amount:   int64(cfg.amount),
	}
	svmcLog.Debugf("Verifying input %d spending %v", cfg.Input, cfg.amount)
	return validate.ValidateTransactionInput(interp, cfg.tx, cfg.Input,
		prevOut, cfg.flags, txscript.NewSigCache(sigCacheMax), hook)
}

// printStacks writes the final stacks, one hex item per line with the top of
// the stack last, or a detailed dump when dump is set.
func printStacks(w io.Writer, vm *txscript.Engine, dump bool) {
	stack, alt := vm.GetStack(), vm.GetAltStack()
	if dump {
		fmt.Fprint(w, spew.Sdump(stack))
		if len(alt) > 0 {
			fmt.Fprint(w, "alt stack:\n"+spew.Sdump(alt))
		}
		return
	}

	for _, item := range stack {
		fmt.Fprintln(w, hex.EncodeToString(item))
	}
	if len(alt) > 0 {
		fmt.Fprintln(w, "alt stack:")
		for _, item := range alt {
			fmt.Fprintln(w, hex.EncodeToString(item))
		}
	}
}

// showTrace prints a stored run.
func showTrace(db *tracedb.DB, runID uint64, stdout, stderr io.Writer) int {
	summary, steps, err := db.LoadRun(runID)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}

	outcome := "ok"
	if !summary.Success() {
		outcome = summary.Err
	}
	fmt.Fprintf(stdout, "run %d: %d steps, %s\n", summary.RunID,
		summary.Steps, outcome)
	for i := range steps {
		fmt.Fprintln(stdout, steps[i].String())
	}
	return exitOK
}
