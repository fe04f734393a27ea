/*
 * SciTECO - Q-Register commands.
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
	"github.com/rhaberkorn/sciteco-sub000/teco/qreg"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

// newExpectQRegState builds a state expecting a register
// specification (§4.3 taxonomy: the expectqreg family).
func newExpectQRegState(name string, typ QRegType,
	got func(m *Machine, r qreg.Register, t *qreg.Table) (*State, error)) *State {

	s := &State{
		Name:  name,
		Style: StyleQReg,
	}
	s.Initial = func(m *Machine) error {
		if m.expectQReg == nil {
			m.expectQReg = NewQRegSpec(m, typ)
		} else {
			m.expectQReg.typ = typ
		}
		m.expectQReg.Reset()
		return nil
	}
	s.Input = func(m *Machine, chr rune) (*State, error) {
		status, reg, table, err := m.expectQReg.Input(chr, m.exec())
		switch status {
		case QRegSpecError:
			return nil, err
		case QRegSpecMore:
			return s, nil
		}
		return got(m, reg, table)
	}
	s.Completions = func(m *Machine, _ string) []Completion {
		if m.expectQReg == nil {
			return nil
		}
		return m.expectQReg.Complete()
	}
	return s
}

// expectQRegFor maps a start-state command character to its
// register-expecting state.
func expectQRegFor(chr rune) *State {
	switch asciiToUpper(chr) {
	case 'U':
		return StateSetQRegInteger
	case 'Q':
		return StateGetQRegInteger
	case '%':
		return StateIncreaseQReg
	case 'X':
		return StateCopyToQReg
	case 'G':
		return StateGetQRegString
	case '[':
		return StatePushQReg
	case ']':
		return StatePopQReg
	case 'M':
		return StateMacro
	}
	return nil
}

// StateSetQRegInteger implements nUq.
var StateSetQRegInteger = newExpectQRegState("setqreginteger", QRegOptionalInit,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		colon := m.EvalColon()
		if err := m.rt.Expr.Eval(false); err != nil {
			return nil, err
		}
		if m.rt.Expr.Args() == 0 {
			if colon > 0 {
				m.rt.Expr.Push(tecoFailure)
				return StateStart, nil
			}
			return nil, errs.ArgExpectedError("U")
		}
		v, err := m.rt.Expr.PopCalc()
		if err != nil {
			return nil, err
		}
		if err := reg.SetInteger(m.rt.QEnv, v); err != nil {
			return nil, err
		}
		if colon > 0 {
			m.rt.Expr.Push(tecoSuccess)
		}
		return StateStart, nil
	})

// StateGetQRegInteger implements Qq (and :Q existence test).
var StateGetQRegInteger = newExpectQRegState("getqreginteger", QRegOptional,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		colon := m.EvalColon()
		if err := m.rt.Expr.Eval(false); err != nil {
			return nil, err
		}
		if colon > 0 {
			if reg != nil {
				m.rt.Expr.Push(tecoSuccess)
			} else {
				m.rt.Expr.Push(tecoFailure)
			}
			return StateStart, nil
		}
		if reg == nil {
			return nil, qreg.ErrInvalidQReg("?", false)
		}
		v, err := reg.GetInteger(m.rt.QEnv)
		if err != nil {
			return nil, err
		}
		m.rt.Expr.Push(v)
		return StateStart, nil
	})

// StateIncreaseQReg implements n%q.
var StateIncreaseQReg = newExpectQRegState("increaseqreg", QRegOptionalInit,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		n, err := m.rt.Expr.PopCalc()
		if err != nil {
			return nil, err
		}
		v, err := reg.GetInteger(m.rt.QEnv)
		if err != nil {
			return nil, err
		}
		if err := reg.SetInteger(m.rt.QEnv, v+n); err != nil {
			return nil, err
		}
		m.rt.Expr.Push(v + n)
		return StateStart, nil
	})

// StateCopyToQReg implements nXq / from,toXq (:X appends).
var StateCopyToQReg = newExpectQRegState("copytoqreg", QRegOptionalInit,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		colon := m.EvalColon()
		from, length, err := m.rangeArgs('K')
		if err != nil {
			return nil, err
		}
		text := m.rt.View.SSMGetText(0, from, from+length)
		cp := int(m.rt.View.SSM(view.SciGetCodePage, 0, 0))
		if colon > 0 {
			err = reg.AppendString(m.rt.QEnv, text)
		} else {
			err = reg.SetString(m.rt.QEnv, text, cp)
		}
		if err != nil {
			return nil, err
		}
		return StateStart, nil
	})

// StateGetQRegString implements Gq: insert the register's string at
// dot.
var StateGetQRegString = newExpectQRegState("getqregstring", QRegRequired,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		str, _, err := reg.GetString(m.rt.QEnv)
		if err != nil {
			return nil, err
		}
		m.insertBytes(str)
		return StateStart, nil
	})

// StatePushQReg implements [q.
var StatePushQReg = newExpectQRegState("pushqreg", QRegOptionalInit,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		if err := m.rt.QStack.Push(m.rt.QEnv, reg); err != nil {
			return nil, err
		}
		return StateStart, nil
	})

// StatePopQReg implements ]q (:] reports success instead of failing
// on an empty stack).
var StatePopQReg = newExpectQRegState("popqreg", QRegOptionalInit,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		colon := m.EvalColon()
		ok, err := m.rt.QStack.Pop(m.rt.QEnv, reg)
		if err != nil {
			return nil, err
		}
		if colon > 0 {
			if ok {
				m.rt.Expr.Push(tecoSuccess)
			} else {
				m.rt.Expr.Push(tecoFailure)
			}
			return StateStart, nil
		}
		if !ok {
			return nil, errs.New(errs.Failed, "Q-Register stack is empty")
		}
		return StateStart, nil
	})

// StateMacro implements Mq; :Mq shares the caller's local registers.
var StateMacro = newExpectQRegState("macro", QRegRequired,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		colon := m.EvalColon()
		str, _, err := reg.GetString(m.rt.QEnv)
		if err != nil {
			return nil, err
		}
		var locals *qreg.Table
		if colon > 0 {
			locals = m.Locals
		}
		if err := m.rt.ExecuteMacro(string(str), locals); err != nil {
			errs.AddFrame(err, "macro M"+qregEcho(reg.Name()))
			return nil, err
		}
		return StateStart, nil
	})

// StateCtlUCommand implements ^Uq: expects the register, then a raw
// (non-string-building) text argument.
var StateCtlUCommand = newExpectQRegState("ctlucommand", QRegOptionalInit,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		m.qregArg = reg
		return StateSetQRegString, nil
	})

// StateSetQRegString collects ^Uq's text argument.
var StateSetQRegString = newExpectStringState(State{
	Name:           "setqregstring",
	StringBuilding: false,
	Last:           true,
	Done: func(m *Machine, str []byte) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		colon := m.EvalColon()
		cp := int(m.rt.View.SSM(view.SciGetCodePage, 0, 0))
		var err error
		if colon > 0 {
			err = m.qregArg.AppendString(m.rt.QEnv, str)
		} else {
			err = m.qregArg.SetString(m.rt.QEnv, str, cp)
		}
		if err != nil {
			return nil, err
		}
		return StateStart, nil
	},
})

// StateEQCommand implements EQq: expects the register, then a file
// name; an empty name edits the register instead.
var StateEQCommand = newExpectQRegState("eqcommand", QRegOptionalInit,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		m.qregArg = reg
		return StateLoadQReg, nil
	})

// StateLoadQReg collects EQq's file argument.
var StateLoadQReg = newExpectStringState(State{
	Name:           "loadqreg",
	StringBuilding: true,
	Last:           true,
	Done: func(m *Machine, str []byte) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		if len(str) == 0 {
			// Edit the register's document in the view.
			m.rt.QEnv.PushUndoEdit()
			if err := m.qregArg.Edit(m.rt.QEnv); err != nil {
				return nil, err
			}
			return StateStart, nil
		}
		path := expandFileArg(str)
		if err := m.qregArg.Load(m.rt.QEnv, path); err != nil {
			return nil, err
		}
		return StateStart, nil
	},
})

// StateEPctCommand implements E%q: expects the register, then the
// file to save its string to.
var StateEPctCommand = newExpectQRegState("epctcommand", QRegRequired,
	func(m *Machine, reg qreg.Register, _ *qreg.Table) (*State, error) {
		m.qregArg = reg
		return StateSaveQReg, nil
	})

// StateSaveQReg collects E%q's file argument.
var StateSaveQReg = newExpectStringState(State{
	Name:           "saveqreg",
	StringBuilding: true,
	Last:           true,
	Done: func(m *Machine, str []byte) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		if len(str) == 0 {
			return nil, errs.New(errs.Failed, "E% requires a file name")
		}
		if err := m.qregArg.Save(m.rt.QEnv, expandFileArg(str)); err != nil {
			return nil, err
		}
		return StateStart, nil
	},
})

// qregEcho renders a register name for error frames.
func qregEcho(name string) string {
	out := make([]rune, 0, len(name)+2)
	for _, c := range name {
		if c < 32 {
			out = append(out, '^', c+'@')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
