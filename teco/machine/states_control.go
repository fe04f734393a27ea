/*
 * SciTECO - Control, E and F command states.
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

// StateControl handles two-character ^x commands. Control characters
// typed directly dispatch here as well.
var StateControl = &State{
	Name:         "control",
	Style:        StyleCommand,
	KeymacroMask: KeymacroMaskCaseInsensitive,
}

// StateAscii handles ^^c: the next character's code becomes a value.
var StateAscii = &State{
	Name:  "ascii",
	Style: StyleCommand,
}

// StateECommand handles two-letter E commands.
var StateECommand = &State{
	Name:         "ecommand",
	Style:        StyleCommand,
	KeymacroMask: KeymacroMaskCaseInsensitive,
}

// StateFCommand handles two-letter F commands.
var StateFCommand = &State{
	Name:         "fcommand",
	Style:        StyleCommand,
	KeymacroMask: KeymacroMaskCaseInsensitive,
}

func init() {
	StateControl.Input = stateControlInput
	StateAscii.Input = stateAsciiInput
	StateECommand.Input = stateECommandInput
	StateFCommand.Input = stateFCommandInput
}

func stateControlInput(m *Machine, chr rune) (*State, error) {
	switch asciiToUpper(chr) {
	case '^':
		return StateAscii, nil
	case 'U':
		return StateCtlUCommand, nil
	case 'C':
		if !m.exec() {
			return StateStart, nil
		}
		// ^C stops macro execution; a second ^C quits.
		if m.rt.QuitRequested {
			return nil, errs.New(errs.Quit, "")
		}
		return nil, errs.InterruptedError()
	case 'O':
		if !m.exec() {
			return StateStart, nil
		}
		if err := m.rt.Expr.SetRadix(8); err != nil {
			return nil, err
		}
		return StateStart, nil
	case 'D':
		if !m.exec() {
			return StateStart, nil
		}
		if err := m.rt.Expr.SetRadix(10); err != nil {
			return nil, err
		}
		return StateStart, nil
	case 'R':
		if !m.exec() {
			return StateStart, nil
		}
		if err := m.rt.Expr.Eval(false); err != nil {
			return nil, err
		}
		if m.rt.Expr.Args() == 0 {
			m.rt.Expr.Push(m.rt.Expr.Radix)
		} else {
			v, err := m.rt.Expr.PopCalc()
			if err != nil {
				return nil, err
			}
			if err := m.rt.Expr.SetRadix(v); err != nil {
				return nil, err
			}
		}
		return StateStart, nil
	case 'I':
		// ^I (TAB): insertion with leading tab.
		return StateInsertIndent, nil
	case '[':
		// Same as ESC: argument barrier.
		if !m.exec() {
			return StateStart, nil
		}
		if err := m.rt.Expr.DiscardArgs(); err != nil {
			return nil, err
		}
		return StateStart, nil
	case '_':
		if !m.exec() {
			return StateStart, nil
		}
		v, err := m.rt.Expr.PopCalc()
		if err != nil {
			return nil, err
		}
		m.rt.Expr.Push(^v)
		return StateStart, nil
	case '*':
		if !m.exec() {
			return StateStart, nil
		}
		if err := m.rt.Expr.PushCalc(expr.OpPow); err != nil {
			return nil, err
		}
		return StateStart, nil
	case '/':
		if !m.exec() {
			return StateStart, nil
		}
		if err := m.rt.Expr.PushCalc(expr.OpMod); err != nil {
			return nil, err
		}
		return StateStart, nil
	}
	return nil, errs.SyntaxError(chr)
}

func stateAsciiInput(m *Machine, chr rune) (*State, error) {
	if m.exec() {
		if err := m.rt.Expr.Eval(false); err != nil {
			return nil, err
		}
		m.rt.Expr.Push(int64(chr))
	}
	return StateStart, nil
}

func stateECommandInput(m *Machine, chr rune) (*State, error) {
	switch asciiToUpper(chr) {
	case 'B':
		return StateEditFile, nil
	case 'W':
		return StateSaveFile, nil
	case 'Q':
		return StateEQCommand, nil
	case '%':
		return StateEPctCommand, nil
	case 'F':
		if !m.exec() {
			return StateStart, nil
		}
		if err := m.rt.Ring.Close(); err != nil {
			return nil, err
		}
		return StateStart, nil
	case 'X':
		if !m.exec() {
			return StateStart, nil
		}
		undoScalar(m, &m.rt.QuitRequested)
		m.rt.QuitRequested = true
		if !m.rt.Interactive {
			return nil, errs.New(errs.Quit, "")
		}
		return StateStart, nil
	}
	return nil, errs.SyntaxError(chr)
}

func stateFCommandInput(m *Machine, chr rune) (*State, error) {
	switch asciiToUpper(chr) {
	case 'R':
		return StateReplacePattern, nil
	case 'G':
		return StateChangeDir, nil
	}
	return nil, errs.SyntaxError(chr)
}
