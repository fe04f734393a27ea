/*
 * SciTECO - Loop and conditional commands.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package machine

import (
	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/expr"
)

// pushLoop/popLoop mutate the runtime loop stack with undo.
func (m *Machine) pushLoop(ctx LoopContext) {
	rt := m.rt
	rt.LoopStack = append(rt.LoopStack, ctx)
	rt.Undo.PushFunc(func() {
		rt.LoopStack = rt.LoopStack[:len(rt.LoopStack)-1]
	})
}

func (m *Machine) popLoop() LoopContext {
	rt := m.rt
	ctx := rt.LoopStack[len(rt.LoopStack)-1]
	rt.LoopStack = rt.LoopStack[:len(rt.LoopStack)-1]
	rt.Undo.PushFunc(func() {
		rt.LoopStack = append(rt.LoopStack, ctx)
	})
	return ctx
}

// startLoopOpen implements <.
func startLoopOpen(m *Machine) (*State, error) {
	colon := m.EvalColon()

	if err := m.rt.Expr.Eval(false); err != nil {
		return nil, err
	}
	if m.rt.Expr.Args() == 0 {
		// Infinite loop.
		m.rt.Expr.Push(-1)
	}

	counter := m.rt.Expr.Peek(1)
	if counter == 0 {
		// Never executes: discard the count and skip to the
		// matching >.
		m.rt.Expr.Pop()
		undoScalar(m, &m.Flags)
		m.Flags.Mode = ModeParseOnly
		return StateStart, nil
	}

	m.rt.Expr.Pop()
	m.rt.Expr.PushOp(expr.OpLoop)
	m.pushLoop(LoopContext{
		PC:          m.PC,
		Counter:     int(counter),
		PassThrough: colon > 0,
	})
	return StateStart, nil
}

// startLoopClose implements >.
func startLoopClose(m *Machine) (*State, error) {
	if len(m.rt.LoopStack) <= m.loopFP {
		return nil, errs.New(errs.Syntax, "Loop end without corresponding loop start command")
	}
	ctx := m.rt.LoopStack[len(m.rt.LoopStack)-1]

	if !ctx.PassThrough {
		if err := m.rt.Expr.DiscardArgs(); err != nil {
			return nil, err
		}
	} else if err := m.rt.Expr.Eval(false); err != nil {
		return nil, err
	}

	if op := m.rt.Expr.PopOp(); op != expr.OpLoop {
		return nil, errs.New(errs.Syntax, "Unbalanced expression in loop body")
	}

	m.popLoop()
	if ctx.Counter != 1 {
		// Repeat the loop.
		next := ctx.Counter - 1
		if next < -1 {
			next = -1
		}
		undoScalar(m, &m.PC)
		m.PC = ctx.PC
		m.rt.Expr.PushOp(expr.OpLoop)
		m.pushLoop(LoopContext{PC: ctx.PC, Counter: next, PassThrough: ctx.PassThrough})
	}
	return StateStart, nil
}

// startLoopBreak implements ; (and :; with inverted condition).
func startLoopBreak(m *Machine) (*State, error) {
	if len(m.rt.LoopStack) <= m.loopFP {
		return nil, errs.New(errs.Syntax, "<;> only allowed in loops")
	}
	colon := m.EvalColon()

	v, err := m.rt.Expr.PopCalc()
	if err != nil {
		return nil, err
	}
	if colon > 0 {
		v = ^v
	}
	if v < 0 {
		return StateStart, nil
	}

	// Break: unwind the loop frame and skip to the matching >.
	if err := m.rt.Expr.DiscardArgs(); err != nil {
		return nil, err
	}
	if op := m.rt.Expr.PopOp(); op != expr.OpLoop {
		return nil, errs.New(errs.Syntax, "Unbalanced expression in loop body")
	}
	m.popLoop()
	undoScalar(m, &m.Flags)
	m.Flags.Mode = ModeParseOnly
	return StateStart, nil
}

// StateCondCommand dispatches the conditional started by ".
var StateCondCommand = &State{
	Name:         "condcommand",
	Style:        StyleCommand,
	KeymacroMask: KeymacroMaskCaseInsensitive,
}

func init() {
	StateCondCommand.Input = stateCondCommandInput
}

func stateCondCommandInput(m *Machine, chr rune) (*State, error) {
	if !m.exec() {
		// A nested conditional within skipped code.
		if m.Flags.Mode == ModeParseOnly {
			undoScalar(m, &m.nestLevel)
			m.nestLevel++
		}
		return StateStart, nil
	}

	v, err := m.rt.Expr.PopCalc()
	if err != nil {
		return nil, err
	}

	var result bool
	switch asciiToUpper(chr) {
	case 'E', '=':
		result = v == 0
	case 'N':
		result = v != 0
	case 'G', '>':
		result = v > 0
	case 'L', '<', 'S', 'T':
		result = v < 0
	case 'F', 'U':
		result = v >= 0
	case 'A':
		result = isAlpha(v)
	case 'D':
		result = v >= '0' && v <= '9'
	case 'V':
		result = v >= 'a' && v <= 'z'
	case 'W':
		result = v >= 'A' && v <= 'Z'
	default:
		return nil, errs.SyntaxError(chr)
	}

	if !result {
		// Skip to the else part or the end of the conditional.
		undoScalar(m, &m.Flags)
		m.Flags.Mode = ModeParseOnly
	}
	return StateStart, nil
}

func isAlpha(v int64) bool {
	return (v >= 'a' && v <= 'z') || (v >= 'A' && v <= 'Z')
}
