/*
 * SciTECO - Q-Register model.
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

// Package qreg implements Q-Registers: named storage cells holding a
// 64-bit integer and a document, used for variables, macros and
// editor state.
//
// Registers are polymorphic. The plain variant stores its state
// locally; special variants alias the buffer caret, buffer info, the
// working directory, the system clipboard, the process environment,
// the radix and the ED flags. Every mutating operation pushes its
// undo token before mutating.
package qreg

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/expr"
	"github.com/rhaberkorn/sciteco-sub000/teco/undo"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
	"github.com/rhaberkorn/sciteco-sub000/util/files"
)

// GetChar return values for invalid positions (spec'd behaviour of
// the A command and friends).
const (
	CharOutOfRange    = -1
	CharInvalidUTF8   = -2
	CharIncompleteSeq = -3
)

// Env carries the collaborators register operations need. The hooks
// into the buffer ring are closures so that this package does not
// import it.
type Env struct {
	Undo    *undo.Stack
	View    *view.View
	Display display.Display
	Expr    *expr.Stack

	Globals *Table
	// LocalsStack holds the per-macro locals tables, innermost last.
	LocalsStack []*Table

	// Current is the register currently edited in the view, or nil
	// when a ring buffer is current.
	Current Register

	// Ring hooks, set at wiring time.
	SaveCurrent     func()
	EditCurrentRing func()
	RingInfo        func() (id int64, filename string, ok bool)
	EditBufferByID  func(id int64) error
}

// Locals returns the innermost locals table.
func (e *Env) Locals() *Table {
	if len(e.LocalsStack) == 0 {
		return e.Globals
	}
	return e.LocalsStack[len(e.LocalsStack)-1]
}

// PushUndoEdit records a token re-editing the current owner, to be
// pushed before switching to another document.
func (e *Env) PushUndoEdit() {
	if cur := e.Current; cur != nil {
		e.Undo.PushFunc(func() { cur.Edit(e) })
		return
	}
	ring := e.EditCurrentRing
	e.Undo.PushFunc(func() { ring() })
}

// Register is the polymorphic Q-Register operation set. Every
// implementation must push undo tokens for its mutations.
type Register interface {
	Name() string
	// Local tells whether the register lives in a locals table.
	Local() bool
	setTable(local, mustUndo bool)

	SetInteger(env *Env, v int64) error
	GetInteger(env *Env) (int64, error)

	SetString(env *Env, s []byte, codepage int) error
	AppendString(env *Env, s []byte) error
	GetString(env *Env) ([]byte, int, error)
	GetChar(env *Env, pos int64) (int64, error)
	Length(env *Env) (int64, error)

	// Exchange swaps the register's document and view state in
	// O(1). It backs the push-down stack and must not copy text.
	Exchange(env *Env, doc *view.Doc, state view.State) (*view.Doc, view.State, error)

	// Edit shows the register's document in the main view.
	Edit(env *Env) error

	Load(env *Env, path string) error
	Save(env *Env, path string) error
}

// Plain is the default register variant and the base of all others.
type Plain struct {
	name     string
	integer  int64
	doc      *view.Doc
	state    view.State
	local    bool
	mustUndo bool
}

// NewPlain creates a plain register. Its document is allocated
// lazily.
func NewPlain(name string) *Plain {
	return &Plain{name: name}
}

func (r *Plain) Name() string { return r.name }
func (r *Plain) Local() bool  { return r.local }

func (r *Plain) setTable(local, mustUndo bool) {
	r.local = local
	r.mustUndo = mustUndo
}

func (r *Plain) pushUndo(env *Env, f func()) {
	if r.mustUndo {
		env.Undo.PushFunc(f)
	}
}

// Doc returns the register's document, allocating it on first use.
func (r *Plain) Doc() *view.Doc {
	if r.doc == nil {
		r.doc = view.NewDoc()
	}
	return r.doc
}

func (r *Plain) SetInteger(env *Env, v int64) error {
	if r.mustUndo {
		undo.Scalar(env.Undo, &r.integer)
	}
	r.integer = v
	return nil
}

func (r *Plain) GetInteger(env *Env) (int64, error) {
	return r.integer, nil
}

func (r *Plain) SetString(env *Env, s []byte, codepage int) error {
	doc := r.Doc()
	old := append([]byte{}, doc.Bytes()...)
	oldCp := doc.Codepage()
	oldState := r.state
	r.pushUndo(env, func() {
		doc.SetText(old)
		doc.SetCodepage(oldCp)
		r.state = oldState
	})
	doc.SetText(s)
	doc.SetCodepage(codepage)
	r.state = view.State{}
	r.syncView(env)
	return nil
}

func (r *Plain) AppendString(env *Env, s []byte) error {
	doc := r.Doc()
	oldLen := doc.Len()
	r.pushUndo(env, func() { doc.TruncateTo(oldLen) })
	doc.Append(s)
	r.syncView(env)
	return nil
}

// syncView clamps the view when the mutated document is currently
// shown (documents are shared by reference while edited).
func (r *Plain) syncView(env *Env) {
	if env.Current == Register(r) && env.View.Doc() == r.doc {
		env.View.SetState(env.View.State())
	}
}

func (r *Plain) GetString(env *Env) ([]byte, int, error) {
	doc := r.Doc()
	return append([]byte{}, doc.Bytes()...), doc.Codepage(), nil
}

func (r *Plain) GetChar(env *Env, pos int64) (int64, error) {
	return docGetChar(r.Doc(), pos), nil
}

func (r *Plain) Length(env *Env) (int64, error) {
	doc := r.Doc()
	return doc.Glyphs(), nil
}

func (r *Plain) Exchange(env *Env, doc *view.Doc, state view.State) (*view.Doc, view.State, error) {
	oldDoc, oldState := r.Doc(), r.state
	r.doc, r.state = doc, state
	return oldDoc, oldState, nil
}

func (r *Plain) Edit(env *Env) error {
	env.SaveCurrent()
	env.View.Exchange(r.Doc(), r.state)
	env.Current = r
	env.Display.InfoUpdate(nameEcho(r.name), false)
	return nil
}

// SaveState stores the view state back into the register (called via
// Env.SaveCurrent when switching away).
func (r *Plain) SaveState(s view.State) { r.state = s }

func (r *Plain) Load(env *Env, path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return errs.New(errs.Failed, "Cannot load file \"%s\": %v", path, err)
	}
	return r.SetString(env, contents, view.SCCpUTF8)
}

func (r *Plain) Save(env *Env, path string) error {
	doc := r.Doc()
	sp, err := files.WriteAtomic(path, doc.Bytes())
	if err != nil {
		return errs.New(errs.Failed, "%v", err)
	}
	r.pushUndo(env, func() { files.RestoreSavePoint(sp, path) })
	return nil
}

// docGetChar returns the codepoint at glyph index pos, or one of the
// Char* error codes.
func docGetChar(doc *view.Doc, pos int64) int64 {
	if pos < 0 || pos >= doc.Glyphs() {
		return CharOutOfRange
	}
	if doc.Codepage() != view.SCCpUTF8 {
		return int64(doc.Bytes()[pos])
	}
	b := doc.Bytes()
	for ; pos > 0; pos-- {
		_, size := utf8.DecodeRune(b)
		b = b[size:]
	}
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError && size <= 1 {
		if !utf8.FullRune(b) {
			return CharIncompleteSeq
		}
		return CharInvalidUTF8
	}
	return int64(r)
}

// nameEcho renders a register name with control characters in caret
// notation for messages.
func nameEcho(name string) string {
	var b strings.Builder
	for _, c := range name {
		if c < 32 {
			b.WriteByte('^')
			b.WriteRune(c + '@')
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
