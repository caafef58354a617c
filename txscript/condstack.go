// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// noFalseBranch marks a conditional stack without any false entry.
const noFalseBranch = -1

// CondStack tracks the nesting of OP_IF/OP_NOTIF blocks.  Each entry records
// whether the corresponding branch is currently taken.  Instructions execute
// only when every entry is true, so the stack keeps the index of the
// outermost false entry to answer that in constant time.
type CondStack struct {
	branches   []bool
	firstFalse int
}

// NewCondStack returns an empty conditional stack.
func NewCondStack() *CondStack {
	return &CondStack{firstFalse: noFalseBranch}
}

// OpenBranch pushes a new branch whose truth is v.
func (c *CondStack) OpenBranch(v bool) {
	if !v && c.firstFalse == noFalseBranch {
		c.firstFalse = len(c.branches)
	}
	c.branches = append(c.branches, v)
}

// FlipTop inverts the innermost branch.  This implements OP_ELSE.
func (c *CondStack) FlipTop() error {
	if len(c.branches) == 0 {
		return scriptError(ErrUnbalancedConditional,
			"encountered opcode OP_ELSE with no matching opcode to begin "+
				"conditional execution")
	}

	top := len(c.branches) - 1
	c.branches[top] = !c.branches[top]
	switch {
	case !c.branches[top] && c.firstFalse == noFalseBranch:
		c.firstFalse = top
	case c.branches[top] && c.firstFalse == top:
		c.firstFalse = noFalseBranch
	}
	return nil
}

// CloseBranch pops the innermost branch.  This implements OP_ENDIF.
func (c *CondStack) CloseBranch() error {
	if len(c.branches) == 0 {
		return scriptError(ErrUnbalancedConditional,
			"encountered opcode OP_ENDIF with no matching opcode to "+
				"begin conditional execution")
	}

	top := len(c.branches) - 1
	c.branches = c.branches[:top]
	if c.firstFalse == top {
		c.firstFalse = noFalseBranch
	}
	return nil
}

// AllTrue returns whether every open branch is taken, which is the case for
// an empty stack as well.
func (c *CondStack) AllTrue() bool {
	return c.firstFalse == noFalseBranch
}

// Depth returns the number of open branches.
func (c *CondStack) Depth() int {
	return len(c.branches)
}

// CheckTerminal returns an error unless every opened branch was closed.
func (c *CondStack) CheckTerminal() error {
	if len(c.branches) != 0 {
		str := fmt.Sprintf("end of script reached in conditional "+
			"execution with %d unterminated branches", len(c.branches))
		return scriptError(ErrUnbalancedConditional, str)
	}
	return nil
}
