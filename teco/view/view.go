/*
 * SciTECO - Document store and view.
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

// Package view implements the editing component boundary.
//
// The runtime talks to text storage exclusively through the Scintilla
// message protocol (SSM). Production builds may wire a real Scintilla
// view behind the Messenger interface; this package ships a complete
// in-memory implementation which also backs all tests.
//
// Documents are reference counted. A Q-Register or ring buffer owns a
// reference for as long as it holds the handle; undo tokens holding a
// document take no reference of their own.
package view

import (
	"unicode/utf8"
)

// Messenger is the single entry point of the Scintilla protocol.
// Numeric messages go through SSM; text-carrying messages have typed
// variants since Go cannot smuggle pointers through integers.
type Messenger interface {
	SSM(msg uint32, wParam, lParam int64) int64
	SSMText(msg uint32, wParam int64, text []byte) int64
	SSMGetText(msg uint32, from, to int64) []byte
}

// Doc is an opaque document handle: the text storage of one ring
// buffer or Q-Register string.
type Doc struct {
	text     []byte
	codepage int
	refs     int

	// Scintilla-side undo actions, grouped by Begin/EndUndoAction.
	undo        []undoAction
	undoCollect bool
	undoDepth   int
}

type undoAction struct {
	ops []editOp
}

type editOp struct {
	pos    int64
	insert []byte // text to re-insert on undo
	remove int64  // byte count to remove on undo
}

// NewDoc allocates a document with one reference.
func NewDoc() *Doc {
	return &Doc{codepage: SCCpUTF8, refs: 1, undoCollect: true}
}

// Ref acquires an additional reference.
func (d *Doc) Ref() *Doc {
	d.refs++
	return d
}

// Unref releases one reference. The storage is garbage collected, so
// this only tracks the count for leak assertions in tests.
func (d *Doc) Unref() {
	if d.refs > 0 {
		d.refs--
	}
}

// Refs returns the current reference count.
func (d *Doc) Refs() int { return d.refs }

// Len returns the document length in bytes.
func (d *Doc) Len() int { return len(d.text) }

// Bytes returns the raw document contents.
// The slice must not be modified.
func (d *Doc) Bytes() []byte { return d.text }

// State is the per-document view state restored when a document is
// shown again.
type State struct {
	Anchor    int64
	Caret     int64
	FirstLine int64
	XOffset   int64
}

// View couples a current document with selection and scrolling state.
// It implements Messenger.
type View struct {
	doc   *Doc
	state State

	lineState map[int64]int64
	styles    []byte
	stylePos  int64
}

// New creates a view editing a fresh empty document.
func New() *View {
	return &View{doc: NewDoc(), lineState: make(map[int64]int64)}
}

// Doc returns the document currently edited by the view.
func (v *View) Doc() *Doc { return v.doc }

// State returns the current view state.
func (v *View) State() State { return v.state }

// SetState restores a previously saved view state.
func (v *View) SetState(s State) {
	v.state = s
	v.clampState()
}

// Exchange swaps the edited document against doc, returning the
// previous one together with its view state. This is the O(1)
// primitive behind [q and ]q as well as register editing.
func (v *View) Exchange(doc *Doc, state State) (*Doc, State) {
	old, oldState := v.doc, v.state
	v.doc = doc
	v.SetState(state)
	return old, oldState
}

func (v *View) clampState() {
	max := int64(len(v.doc.text))
	if v.state.Caret > max {
		v.state.Caret = max
	}
	if v.state.Anchor > max {
		v.state.Anchor = max
	}
}

// SSM dispatches a numeric Scintilla message.
func (v *View) SSM(msg uint32, wParam, lParam int64) int64 {
	d := v.doc
	switch msg {
	case SciGetLength:
		return int64(len(d.text))
	case SciGetCurrentPos:
		return v.state.Caret
	case SciGetAnchor:
		return v.state.Anchor
	case SciGotoPos:
		v.state.Caret = clamp(wParam, 0, int64(len(d.text)))
		v.state.Anchor = v.state.Caret
		return 0
	case SciSetAnchor:
		v.state.Anchor = clamp(wParam, 0, int64(len(d.text)))
		return 0
	case SciGetCharAt:
		if wParam < 0 || wParam >= int64(len(d.text)) {
			return 0
		}
		return int64(d.text[wParam])
	case SciClearAll:
		v.deleteRange(0, int64(len(d.text)))
		return 0
	case SciDeleteRange:
		v.deleteRange(wParam, lParam)
		return 0
	case SciLineFromPosition:
		return d.lineFromPosition(wParam)
	case SciPositionFromLine:
		return d.positionFromLine(wParam)
	case SciGetLineCount:
		return d.lineFromPosition(int64(len(d.text))) + 1
	case SciGetCodePage:
		return int64(d.codepage)
	case SciSetCodePage:
		d.codepage = int(wParam)
		return 0
	case SciCountCharacters:
		return d.countCharacters(wParam, lParam)
	case SciPositionRelative:
		return d.positionRelative(wParam, lParam)
	case SciGetFirstVisibleLine:
		return v.state.FirstLine
	case SciSetFirstVisibleLine:
		v.state.FirstLine = wParam
		return 0
	case SciGetXOffset:
		return v.state.XOffset
	case SciSetXOffset:
		v.state.XOffset = wParam
		return 0
	case SciBeginUndoAction:
		if d.undoDepth == 0 && d.undoCollect {
			d.undo = append(d.undo, undoAction{})
		}
		d.undoDepth++
		return 0
	case SciEndUndoAction:
		if d.undoDepth > 0 {
			d.undoDepth--
		}
		return 0
	case SciUndo:
		d.runUndo(v)
		return 0
	case SciSetUndoCollection:
		d.undoCollect = wParam != 0
		return 0
	case SciEmptyUndoBuffer:
		d.undo = nil
		return 0
	case SciSetSavePoint:
		return 0
	case SciSetLineState:
		v.lineState[wParam] = lParam
		return 0
	case SciGetLineState:
		return v.lineState[wParam]
	case SciStartStyling:
		v.stylePos = wParam
		return 0
	}
	return 0
}

// SSMText dispatches a text-carrying Scintilla message.
func (v *View) SSMText(msg uint32, wParam int64, text []byte) int64 {
	switch msg {
	case SciSetText:
		v.deleteRange(0, int64(len(v.doc.text)))
		v.insert(0, text)
		return 0
	case SciAddText:
		v.insert(v.state.Caret, text)
		v.state.Caret += int64(len(text))
		v.state.Anchor = v.state.Caret
		return 0
	case SciAppendText:
		v.insert(int64(len(v.doc.text)), text)
		return 0
	case SciInsertText:
		pos := wParam
		if pos < 0 {
			pos = v.state.Caret
		}
		v.insert(pos, text)
		return 0
	case SciSetStyling:
		// wParam is the run length; text[0] the style byte.
		end := v.stylePos + wParam
		for int64(len(v.styles)) < end {
			v.styles = append(v.styles, 0)
		}
		for i := v.stylePos; i < end; i++ {
			v.styles[i] = text[0]
		}
		v.stylePos = end
		return 0
	}
	return 0
}

// SSMGetText retrieves the byte range [from, to).
func (v *View) SSMGetText(msg uint32, from, to int64) []byte {
	d := v.doc
	from = clamp(from, 0, int64(len(d.text)))
	if to < 0 || to > int64(len(d.text)) {
		to = int64(len(d.text))
	}
	if from > to {
		from = to
	}
	out := make([]byte, to-from)
	copy(out, d.text[from:to])
	return out
}

// StyleAt returns the lexer style byte recorded for pos.
func (v *View) StyleAt(pos int64) byte {
	if pos < 0 || pos >= int64(len(v.styles)) {
		return 0
	}
	return v.styles[pos]
}

func (v *View) insert(pos int64, text []byte) {
	d := v.doc
	pos = clamp(pos, 0, int64(len(d.text)))
	d.record(editOp{pos: pos, remove: int64(len(text))})
	d.text = append(d.text[:pos], append(append([]byte{}, text...), d.text[pos:]...)...)
	v.adjust(pos, int64(len(text)))
}

func (v *View) deleteRange(pos, count int64) {
	d := v.doc
	pos = clamp(pos, 0, int64(len(d.text)))
	count = clamp(count, 0, int64(len(d.text))-pos)
	if count == 0 {
		return
	}
	removed := make([]byte, count)
	copy(removed, d.text[pos:pos+count])
	d.record(editOp{pos: pos, insert: removed})
	d.text = append(d.text[:pos], d.text[pos+count:]...)
	v.adjust(pos, -count)
}

// adjust moves caret and anchor after an insertion (n > 0) or
// deletion (n < 0) at pos, the way Scintilla does.
func (v *View) adjust(pos, n int64) {
	move := func(p int64) int64 {
		if p < pos {
			return p
		}
		if n < 0 && p < pos-n {
			return pos
		}
		return p + n
	}
	v.state.Caret = move(v.state.Caret)
	v.state.Anchor = move(v.state.Anchor)
}

func (d *Doc) record(op editOp) {
	if !d.undoCollect {
		return
	}
	if d.undoDepth > 0 && len(d.undo) > 0 {
		last := &d.undo[len(d.undo)-1]
		last.ops = append(last.ops, op)
		return
	}
	d.undo = append(d.undo, undoAction{ops: []editOp{op}})
}

// runUndo reverts the most recent action group.
func (d *Doc) runUndo(v *View) {
	if len(d.undo) == 0 {
		return
	}
	action := d.undo[len(d.undo)-1]
	d.undo = d.undo[:len(d.undo)-1]

	collect := d.undoCollect
	d.undoCollect = false
	for i := len(action.ops) - 1; i >= 0; i-- {
		op := action.ops[i]
		if op.remove > 0 {
			v.deleteRange(op.pos, op.remove)
		}
		if len(op.insert) > 0 {
			v.insert(op.pos, op.insert)
		}
	}
	d.undoCollect = collect
}

func (d *Doc) lineFromPosition(pos int64) int64 {
	pos = clamp(pos, 0, int64(len(d.text)))
	var line int64
	for _, b := range d.text[:pos] {
		if b == '\n' {
			line++
		}
	}
	return line
}

func (d *Doc) positionFromLine(line int64) int64 {
	if line <= 0 {
		return 0
	}
	var cur int64
	for i, b := range d.text {
		if b == '\n' {
			cur++
			if cur == line {
				return int64(i) + 1
			}
		}
	}
	return int64(len(d.text))
}

// countCharacters returns the number of glyphs between two byte
// positions, honoring the document codepage.
func (d *Doc) countCharacters(from, to int64) int64 {
	from = clamp(from, 0, int64(len(d.text)))
	to = clamp(to, 0, int64(len(d.text)))
	if from > to {
		from, to = to, from
	}
	if d.codepage != SCCpUTF8 {
		return to - from
	}
	return int64(utf8.RuneCount(d.text[from:to]))
}

// positionRelative moves n glyphs from pos, returning the new byte
// position, clamped to the document.
func (d *Doc) positionRelative(pos, n int64) int64 {
	pos = clamp(pos, 0, int64(len(d.text)))
	if d.codepage != SCCpUTF8 {
		return clamp(pos+n, 0, int64(len(d.text)))
	}
	for n > 0 && pos < int64(len(d.text)) {
		_, size := utf8.DecodeRune(d.text[pos:])
		pos += int64(size)
		n--
	}
	for n < 0 && pos > 0 {
		_, size := utf8.DecodeLastRune(d.text[:pos])
		pos -= int64(size)
		n++
	}
	return pos
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
