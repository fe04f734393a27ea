/*
 * SciTECO - Q-Register tables and push-down stack.
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

package qreg

import (
	"os"
	"strings"

	"github.com/google/btree"

	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

// FoldName folds ASCII letters of a register name to uppercase.
// Register lookup is case-insensitive for ASCII only; Unicode names
// compare byte-for-byte.
func FoldName(name string) string {
	fold := false
	for i := 0; i < len(name); i++ {
		if name[i] >= 'a' && name[i] <= 'z' {
			fold = true
			break
		}
	}
	if !fold {
		return name
	}
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Table is an ordered map from register name to register.
type Table struct {
	tree *btree.BTreeG[Register]

	// MustUndo tags registers inserted into this table. Locals
	// tables of macro invocations run with MustUndo=false since
	// rubout resets the entire call.
	MustUndo bool
	local    bool

	// radix caches the ^R register for digit parsing.
	radix Register
}

func lessRegister(a, b Register) bool {
	return FoldName(a.Name()) < FoldName(b.Name())
}

// NewTable creates an empty register table.
func NewTable(mustUndo, local bool) *Table {
	return &Table{
		tree:     btree.NewG[Register](8, lessRegister),
		MustUndo: mustUndo,
		local:    local,
	}
}

// Insert adds a register. Each name appears at most once; inserting
// an existing name replaces the register and returns the old one.
func (t *Table) Insert(r Register) Register {
	r.setTable(t.local, t.MustUndo)
	old, _ := t.tree.ReplaceOrInsert(r)
	if FoldName(r.Name()) == "\x12" {
		t.radix = r
	}
	return old
}

// Find looks a register up by exact (ASCII-folded) name.
func (t *Table) Find(name string) Register {
	if t.radix != nil && name == "\x12" {
		return t.radix
	}
	r, _ := t.tree.Get(NewPlain(name))
	return r
}

// FindOrCreate returns the named register, creating a plain one on
// demand. The creation is undone on rubout when the table records
// undo.
func (t *Table) FindOrCreate(env *Env, name string) Register {
	if r := t.Find(name); r != nil {
		return r
	}
	r := NewPlain(name)
	t.Insert(r)
	if t.MustUndo {
		env.Undo.PushFunc(func() { t.Remove(name) })
	}
	return r
}

// Remove deletes a register by name.
func (t *Table) Remove(name string) Register {
	r, _ := t.tree.Delete(NewPlain(name))
	if r != nil && FoldName(name) == "\x12" {
		t.radix = nil
	}
	return r
}

// Len returns the number of registers.
func (t *Table) Len() int { return t.tree.Len() }

// AscendPrefix iterates registers whose folded name starts with
// prefix, in name order (used for completion).
func (t *Table) AscendPrefix(prefix string, f func(Register) bool) {
	prefix = FoldName(prefix)
	t.tree.AscendGreaterOrEqual(NewPlain(prefix), func(r Register) bool {
		if !strings.HasPrefix(FoldName(r.Name()), prefix) {
			return false
		}
		return f(r)
	})
}

// Initialize fills a table with the default registers: A-Z, 0-9, the
// search register "_" and the radix register.
func (t *Table) Initialize() {
	for q := 'A'; q <= 'Z'; q++ {
		t.Insert(NewPlain(string(q)))
	}
	for q := '0'; q <= '9'; q++ {
		t.Insert(NewPlain(string(q)))
	}
	t.Insert(NewPlain("_"))
	t.Insert(NewRadix())
}

// InitializeGlobals adds the special global registers on top of
// Initialize: dot alias, buffer info, working directory, clipboards,
// the escape register and the environment.
func (t *Table) InitializeGlobals(edFlags *int64) {
	t.Initialize()
	t.Insert(NewDot())
	t.Insert(NewBufferInfo())
	t.Insert(NewWorkingDir())
	t.Insert(NewFlags("\x05", edFlags))
	t.Insert(NewPlain("\x1b"))
	for _, clip := range []string{"~", "~P", "~S", "~C"} {
		t.Insert(NewClipboard(clip))
	}
}

// SetEnviron loads the process environment into the table, one
// "$NAME" register per variable.
func (t *Table) SetEnviron() {
	for _, kv := range os.Environ() {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			continue
		}
		t.Insert(NewEnvVar(kv[:eq]))
	}
}

// StackEntry is one snapshot on the register push-down stack.
type StackEntry struct {
	name    string
	integer int64
	doc     *view.Doc
	state   view.State
}

// Stack is the [q / ]q push-down save area.
type Stack struct {
	entries []StackEntry
}

// Push snapshots r onto the stack. The register's document is
// exchanged against a fresh empty one, making the operation O(1) in
// document size.
func (s *Stack) Push(env *Env, r Register) error {
	integer, err := r.GetInteger(env)
	if err != nil {
		return err
	}
	doc, state, err := r.Exchange(env, view.NewDoc(), view.State{})
	if err != nil {
		return err
	}
	s.entries = append(s.entries, StackEntry{
		name:    r.Name(),
		integer: integer,
		doc:     doc,
		state:   state,
	})
	env.Undo.PushFunc(func() {
		e := s.entries[len(s.entries)-1]
		s.entries = s.entries[:len(s.entries)-1]
		d, _, _ := r.Exchange(env, e.doc, e.state)
		d.Unref()
		_ = r.SetInteger(env, e.integer)
	})
	return nil
}

// Pop restores the newest snapshot into r by swapping documents back.
// It reports false if the stack is empty.
func (s *Stack) Pop(env *Env, r Register) (bool, error) {
	if len(s.entries) == 0 {
		return false, nil
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]

	oldInt, err := r.GetInteger(env)
	if err != nil {
		return false, err
	}
	if err := r.SetInteger(env, e.integer); err != nil {
		return false, err
	}
	oldDoc, oldState, err := r.Exchange(env, e.doc, e.state)
	if err != nil {
		return false, err
	}
	env.Undo.PushFunc(func() {
		d, st, _ := r.Exchange(env, oldDoc, oldState)
		_ = r.SetInteger(env, oldInt)
		s.entries = append(s.entries, StackEntry{
			name: e.name, integer: e.integer, doc: d, state: st,
		})
	})
	return true, nil
}

// Len returns the stack depth.
func (s *Stack) Len() int { return len(s.entries) }

// Clear drops all snapshots (command-line commit).
func (s *Stack) Clear() {
	for _, e := range s.entries {
		e.doc.Unref()
	}
	s.entries = nil
}

// ErrInvalidQReg builds the canonical missing-register error.
func ErrInvalidQReg(name string, local bool) error {
	dot := ""
	if local {
		dot = "."
	}
	return errs.New(errs.InvalidQReg, "Invalid Q-Register \"%s%s\"", dot, nameEcho(name))
}
