// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the core of the bitcoin transaction script
interpreter.

This package provides the script codec, the numeric and boolean stack
encodings, the data and conditional stacks, and the engine that evaluates a
script against a table of opcode handlers.  The handlers themselves live
outside of this package (see the ops subpackage) and are bound to opcode values
through a HandlerTable that is built once and shared by every evaluation.

# Script Overview

Bitcoin transaction scripts are written in a stack-base, FORTH-like language.

The bitcoin script language consists of a number of opcodes which fall into
several categories such pushing and popping data to and from the stack,
performing basic and bitwise arithmetic, conditional branching, comparing
hashes, and checking cryptographic signatures.  Scripts are processed from left
to right and intentionally do not provide loops.

# Evaluation

Every call to Interpreter.EvalScript creates a fresh Engine which owns both
stacks, the conditional stack, the program counter and the operation counter.
Each step decodes the next instruction, enforces the element size, operation
count and stack size limits, pushes the data of push instructions that are in
an executing branch and then dispatches to the bound handler when the branch is
executing or the handler is marked AlwaysRun.  Once the script is exhausted,
all conditionals must have been closed.

# Errors

Errors returned by this package are of type txscript.Error.  This allows the
caller to programmatically determine the specific error by examining the
ErrorCode field of the type asserted txscript.Error while still providing rich
error messages with contextual information.  A convenience function named
IsErrorCode is also provided to allow callers to easily check for a specific
error code.  See ErrorCode in the package documentation for a full list.
*/
package txscript
