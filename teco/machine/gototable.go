/*
 * SciTECO - Goto labels.
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
	"strings"

	"github.com/google/btree"

	"github.com/rhaberkorn/sciteco-sub000/teco/undo"
)

type gotoLabel struct {
	name string
	pc   int
}

// GotoTable maps labels to program counters; one table per macro
// invocation. Lookup is by exact byte sequence.
type GotoTable struct {
	tree     *btree.BTreeG[gotoLabel]
	mustUndo bool
	undo     *undo.Stack
}

// NewGotoTable creates an empty label table.
func NewGotoTable(mustUndo bool, u *undo.Stack) *GotoTable {
	return &GotoTable{
		tree:     btree.NewG[gotoLabel](8, func(a, b gotoLabel) bool { return a.name < b.name }),
		mustUndo: mustUndo,
		undo:     u,
	}
}

// Find returns the label's pc, or -1.
func (t *GotoTable) Find(name string) int {
	l, ok := t.tree.Get(gotoLabel{name: name})
	if !ok {
		return -1
	}
	return l.pc
}

// Set defines a label, returning any previous pc (-1 if new).
func (t *GotoTable) Set(name string, pc int) int {
	old, existed := t.tree.ReplaceOrInsert(gotoLabel{name: name, pc: pc})
	if !existed {
		return -1
	}
	return old.pc
}

// SetUndo defines a label and records its removal (or previous value)
// for rubout.
func (t *GotoTable) SetUndo(name string, pc int) {
	oldPC := t.Set(name, pc)
	if !t.mustUndo {
		return
	}
	t.undo.PushFunc(func() {
		if oldPC < 0 {
			t.tree.Delete(gotoLabel{name: name})
		} else {
			t.tree.ReplaceOrInsert(gotoLabel{name: name, pc: oldPC})
		}
	})
}

// AscendPrefix iterates labels starting with prefix for completion.
func (t *GotoTable) AscendPrefix(prefix string, f func(string) bool) {
	t.tree.AscendGreaterOrEqual(gotoLabel{name: prefix}, func(l gotoLabel) bool {
		if !strings.HasPrefix(l.name, prefix) {
			return false
		}
		return f(l.name)
	})
}

// Clear drops all labels.
func (t *GotoTable) Clear() {
	t.tree.Clear(false)
}

// StateLabel collects a !label! definition. Labels may contain any
// character except the closing bang.
var StateLabel = &State{
	Name:  "label",
	Style: StyleLabel,
}

// StateGotoCmd collects the comma-separated label list of the O
// command.
var StateGotoCmd *State

func init() {
	StateLabel.Input = stateLabelInput

	StateGotoCmd = newExpectStringState(State{
		Name:           "gotocmd",
		StringBuilding: true,
		Last:           true,
		Style:          StyleLabel,
		Completions:    completeGotoLabel,
		Done:           stateGotoCmdDone,
	})
}

func stateLabelInput(m *Machine, chr rune) (*State, error) {
	if chr != '!' {
		old := m.gotoLabel
		if m.MustUndo {
			m.rt.Undo.PushFunc(func() { m.gotoLabel = old })
		}
		m.gotoLabel = append(append([]byte{}, old...), []byte(string(chr))...)
		return StateLabel, nil
	}

	// Closing bang: define the label at the position after it.
	// Surrounding whitespace is insignificant so labels can be laid
	// out freely.
	label := strings.TrimSpace(string(m.gotoLabel))
	m.GotoTable.SetUndo(label, m.PC)

	if m.rt.SkipLabel == label &&
		(m.Flags.Mode == ModeParseOnlyGoto || m.Flags.Mode == ModeNormal) {
		undoScalar(m, &m.rt.SkipLabel)
		m.rt.SkipLabel = ""
		undoScalar(m, &m.Flags)
		m.Flags.Mode = ModeNormal
	}

	old := m.gotoLabel
	if m.MustUndo {
		m.rt.Undo.PushFunc(func() { m.gotoLabel = old })
	}
	m.gotoLabel = nil

	return StateStart, nil
}

func stateGotoCmdDone(m *Machine, str []byte) (*State, error) {
	if !m.exec() {
		return StateStart, nil
	}

	value, err := m.rt.Expr.PopCalc()
	if err != nil {
		return nil, err
	}

	labels := strings.Split(string(str), ",")
	for i, l := range labels {
		labels[i] = strings.TrimSpace(l)
	}
	if value < 1 || value > int64(len(labels)) || labels[value-1] == "" {
		return StateStart, nil
	}
	label := labels[value-1]

	if pc := m.GotoTable.Find(label); pc >= 0 {
		undoScalar(m, &m.PC)
		m.PC = pc
		return StateStart, nil
	}

	// Skip forward until the label is defined.
	undoScalar(m, &m.rt.SkipLabel)
	m.rt.SkipLabel = label
	undoScalar(m, &m.Flags)
	m.Flags.Mode = ModeParseOnlyGoto
	return StateStart, nil
}

func completeGotoLabel(m *Machine, prefix string) []Completion {
	var out []Completion
	m.GotoTable.AscendPrefix(prefix, func(name string) bool {
		out = append(out, Completion{Text: name, Final: true})
		return len(out) < 100
	})
	return out
}
