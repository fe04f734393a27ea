/*
 * SciTECO - Q-Register specification sub-machine.
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
	"github.com/rhaberkorn/sciteco-sub000/teco/qreg"
)

// QRegType controls how a specification resolves missing registers.
type QRegType int

const (
	// QRegRequired fails if the register does not exist.
	QRegRequired QRegType = iota
	// QRegOptional resolves missing registers to nil.
	QRegOptional
	// QRegOptionalInit creates missing registers on demand.
	QRegOptionalInit
)

// QRegSpecStatus is the result of feeding one character.
type QRegSpecStatus int

const (
	QRegSpecError QRegSpecStatus = iota
	QRegSpecMore
	QRegSpecDone
)

type qsState int

const (
	qsStart qsState = iota
	qsCaret
	qsLong
)

// QRegSpec parses a register name: a single code point, a "."-prefixed
// local name, or a long "[...]" form with string building active.
type QRegSpec struct {
	m   *Machine
	typ QRegType

	state qsState
	local bool
	name  []byte

	sb      *StringBuilding
	nesting int
}

// NewQRegSpec creates a specification parser.
func NewQRegSpec(m *Machine, typ QRegType) *QRegSpec {
	return &QRegSpec{m: m, typ: typ, nesting: 1}
}

// Reset prepares for parsing another specification.
func (q *QRegSpec) Reset() {
	undoScalar(q.m, &q.state)
	q.state = qsStart
	undoScalar(q.m, &q.local)
	q.local = false
	old := q.name
	if q.m.MustUndo {
		q.m.rt.Undo.PushFunc(func() { q.name = old })
	}
	q.name = nil
	q.nesting = 1
	if q.sb != nil {
		q.sb.Reset()
		q.sb.SetEscape(']')
	}
}

// Prefix returns the partial long name for completion.
func (q *QRegSpec) Prefix() (string, bool) {
	return string(q.name), q.state == qsLong
}

// Table returns the table the specification addresses.
func (q *QRegSpec) Table() *qreg.Table {
	if q.local {
		return q.m.rt.QEnv.Locals()
	}
	return q.m.rt.QEnv.Globals
}

// Input feeds one code point. execute=false parses without resolving
// (parse-only mode).
func (q *QRegSpec) Input(chr rune, execute bool) (QRegSpecStatus, qreg.Register, *qreg.Table, error) {
	switch q.state {
	case qsStart:
		if IsNoop(chr) {
			// Whitespace before the register name is
			// insignificant, permitting pretty-printed macros.
			return QRegSpecMore, nil, nil, nil
		}
		switch chr {
		case '.':
			if q.local {
				break // ".." is no valid specification
			}
			undoScalar(q.m, &q.local)
			q.local = true
			return QRegSpecMore, nil, nil, nil
		case '^':
			// Caret notation for control-character names
			// (Q^E and friends).
			undoScalar(q.m, &q.state)
			q.state = qsCaret
			return QRegSpecMore, nil, nil, nil
		case '[':
			undoScalar(q.m, &q.state)
			q.state = qsLong
			if q.sb == nil {
				q.sb = NewStringBuilding(q.m, ']')
			} else {
				q.sb.Reset()
				q.sb.SetEscape(']')
			}
			return QRegSpecMore, nil, nil, nil
		}
		// Single code point name, ASCII-case-folded.
		q.setName(string(asciiToUpper(chr)))
		return q.resolve(execute)

	case qsCaret:
		q.setName(string(CtlKey(asciiToUpper(chr))))
		return q.resolve(execute)

	case qsLong:
		if q.sb.AtStart() && chr == ']' {
			undoScalar(q.m, &q.nesting)
			q.nesting--
			if q.nesting == 0 {
				return q.resolve(execute)
			}
		}
		var target *[]byte
		if execute {
			target = &q.name
		}
		old := len(q.name)
		if q.m.MustUndo {
			name := q.name
			q.m.rt.Undo.PushFunc(func() { q.name = name[:old] })
		}
		if err := q.sb.Input(chr, target); err != nil {
			return QRegSpecError, nil, nil, err
		}
		return QRegSpecMore, nil, nil, nil
	}
	return QRegSpecError, nil, nil, nil
}

func (q *QRegSpec) setName(name string) {
	old := q.name
	if q.m.MustUndo {
		q.m.rt.Undo.PushFunc(func() { q.name = old })
	}
	q.name = []byte(name)
}

func (q *QRegSpec) resolve(execute bool) (QRegSpecStatus, qreg.Register, *qreg.Table, error) {
	if !execute {
		return QRegSpecDone, nil, nil, nil
	}
	table := q.Table()
	name := string(q.name)

	var reg qreg.Register
	switch q.typ {
	case QRegRequired:
		if reg = table.Find(name); reg == nil {
			return QRegSpecError, nil, nil, qreg.ErrInvalidQReg(name, q.local)
		}
	case QRegOptional:
		reg = table.Find(name)
	case QRegOptionalInit:
		reg = table.FindOrCreate(q.m.rt.QEnv, name)
	}
	return QRegSpecDone, reg, table, nil
}

// Complete produces register-name completions for the current prefix.
func (q *QRegSpec) Complete() []Completion {
	prefix, long := q.Prefix()
	if !long {
		return nil
	}
	var out []Completion
	q.Table().AscendPrefix(prefix, func(r qreg.Register) bool {
		out = append(out, Completion{Text: r.Name(), Kind: 0, Final: true})
		return len(out) < 100
	})
	return out
}
