/*
 * SciTECO - String argument collection.
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
	"unicode"
	"unicode/utf8"

	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

// newExpectStringState builds a state collecting one $-terminated
// string argument (§4.4). The state's Done callback receives the
// accumulated bytes after string building.
func newExpectStringState(s State) *State {
	st := s
	if st.Style == 0 {
		st.Style = StyleString
	}
	st.KeymacroMask |= KeymacroMaskString
	st.Input = stateExpectStringInput
	if st.Initial == nil {
		st.Initial = stateExpectStringInitial
	}
	st.EndOfMacro = func(m *Machine) error {
		return errs.New(errs.Syntax, "Unterminated string argument")
	}
	return &st
}

// stateExpectStringInitial primes the string-building machine with
// the target encoding of the command.
func stateExpectStringInitial(m *Machine) error {
	if m.exec() {
		m.expectString.machine.codepage = int(m.rt.View.SSM(view.SciGetCodePage, 0, 0))
	}
	return nil
}

func stateExpectStringInput(m *Machine, chr rune) (*State, error) {
	current := m.current
	es := &m.expectString

	// Whitespace directly after an @-modified command is skipped so
	// that whitespace escape characters cannot be chosen.
	if m.Flags.ModifierAt && IsNoop(chr) {
		return current, nil
	}

	// A pending @ selects a custom escape character.
	if m.EvalAt() {
		undoScalar(m, &es.machine.escape)
		es.machine.SetEscape(unicode.ToUpper(chr))
		return current, nil
	}

	// Escape character and brace nesting handling; only at the
	// string-building start state so that terminators inside
	// constructs need no escaping.
	if es.machine.AtStart() {
		if es.machine.escape == '{' {
			switch chr {
			case '{':
				undoScalar(m, &es.nesting)
				es.nesting++
			case '}':
				undoScalar(m, &es.nesting)
				es.nesting--
			}
		} else if unicode.ToUpper(chr) == es.machine.escape {
			undoScalar(m, &es.nesting)
			es.nesting--
		}
	}

	if es.nesting == 0 {
		// Argument complete.
		if es.insertLen > 0 && current.Process != nil && m.exec() {
			if err := current.Process(m, es.str, es.insertLen); err != nil {
				return nil, err
			}
		}

		next, err := current.Done(m, es.str)
		if err != nil {
			return nil, err
		}

		old := es.str
		if m.MustUndo {
			m.rt.Undo.PushFunc(func() { es.str = old })
		}
		es.str = nil

		if current.Last {
			undoScalar(m, &es.machine.escape)
			es.machine.SetEscape('\x1b')
		} else if es.machine.escape == '{' {
			// Between brace-delimited arguments the @ prefix
			// re-arms so @FR{foo}{bar} works.
			undoScalar(m, &m.Flags)
			m.Flags.ModifierAt = true
		}
		es.nesting = 1

		if current.StringBuilding {
			es.machine.Reset()
		}
		undoScalar(m, &es.insertLen)
		es.insertLen = 0
		return next, nil
	}

	// Accumulate; the undo token only truncates since the string
	// grows monotonically.
	if m.exec() && m.MustUndo {
		oldLen := len(es.str)
		m.rt.Undo.PushFunc(func() { es.str = es.str[:oldLen] })
	}

	oldLen := len(es.str)
	if current.StringBuilding {
		var target *[]byte
		if m.exec() {
			target = &es.str
		}
		if err := es.machine.Input(chr, target); err != nil {
			return nil, err
		}
	} else if m.exec() {
		es.str = utf8.AppendRune(es.str, chr)
	}

	undoScalar(m, &es.insertLen)
	es.insertLen += len(es.str) - oldLen

	return current, nil
}

// stateExpectStringRefresh provides interactive feedback when the PC
// sits at the end of the command line within a string argument.
func stateExpectStringRefresh(m *Machine) error {
	current := m.current
	es := &m.expectString
	if es.insertLen > 0 && current.Process != nil && m.exec() {
		if err := current.Process(m, es.str, es.insertLen); err != nil {
			return err
		}
	}
	undoScalar(m, &es.insertLen)
	es.insertLen = 0
	return nil
}
