/*
 * SciTECO - Buffer ring.
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

// Package ring implements the ring of file-backed buffers.
//
// Buffers form a doubly-linked list with one current buffer.
// Filenames are canonicalised before comparison; an unnamed buffer
// has an empty filename. Closing a buffer hands its document to an
// undo token which re-inserts it on rubout.
package ring

import (
	"bytes"
	"os"

	"github.com/rhaberkorn/sciteco-sub000/config"
	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/qreg"
	"github.com/rhaberkorn/sciteco-sub000/teco/undo"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
	"github.com/rhaberkorn/sciteco-sub000/util/files"
)

// EOL modes of a buffer.
type EOLMode int

const (
	EOLLF EOLMode = iota
	EOLCRLF
	EOLCR
)

// Buffer is one entry of the ring.
type Buffer struct {
	// Filename is canonical (absolute, symlinks resolved); ""
	// denotes the unnamed buffer.
	Filename string
	Dirty    bool

	doc   *view.Doc
	state view.State
	eol   EOLMode

	prev, next *Buffer
}

// Doc returns the buffer's document.
func (b *Buffer) Doc() *view.Doc { return b.doc }

// Next returns the successor in the ring, nil at the tail.
func (b *Buffer) Next() *Buffer { return b.next }

// SaveState stores the view state back into the buffer.
func (b *Buffer) SaveState(s view.State) { b.state = s }

// DisplayName renders the filename for messages.
func (b *Buffer) DisplayName() string {
	if b.Filename == "" {
		return "(Unnamed)"
	}
	return b.Filename
}

// Ring is the buffer ring.
type Ring struct {
	head, tail *Buffer
	count      int

	// Current is the currently edited buffer, or nil while a
	// Q-Register is edited.
	Current *Buffer

	env *qreg.Env
}

// New creates an empty ring sharing the register environment's view,
// undo stack and display.
func New(env *qreg.Env) *Ring {
	return &Ring{env: env}
}

func (r *Ring) insertTail(b *Buffer) {
	b.prev, b.next = r.tail, nil
	if r.tail != nil {
		r.tail.next = b
	} else {
		r.head = b
	}
	r.tail = b
	r.count++
}

func (r *Ring) unlink(b *Buffer) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		r.head = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	} else {
		r.tail = b.prev
	}
	r.count--
}

// relink re-inserts b at its remembered position (rubout of a close).
func (r *Ring) relink(b *Buffer) {
	if b.prev != nil {
		b.next = b.prev.next
		b.prev.next = b
	} else {
		b.next = r.head
		r.head = b
	}
	if b.next != nil {
		b.next.prev = b
	} else {
		r.tail = b
	}
	r.count++
}

// First returns the head buffer.
func (r *Ring) First() *Buffer { return r.head }

// Len returns the number of buffers in the ring.
func (r *Ring) Len() int { return r.count }

// Find looks up a buffer by filename after canonicalisation.
func (r *Ring) Find(filename string) *Buffer {
	resolved := files.AbsPath(filename)
	for b := r.head; b != nil; b = b.next {
		if b.Filename == resolved {
			return b
		}
	}
	return nil
}

// ID returns the 1-based ring position of b, 0 if not linked.
func (r *Ring) ID(b *Buffer) int64 {
	var id int64 = 1
	for cur := r.head; cur != nil; cur = cur.next {
		if cur == b {
			return id
		}
		id++
	}
	return 0
}

// ByID returns the buffer at 1-based position id.
func (r *Ring) ByID(id int64) *Buffer {
	if id < 1 {
		return nil
	}
	for b := r.head; b != nil; b = b.next {
		if id--; id == 0 {
			return b
		}
	}
	return nil
}

// SaveCurrentState saves the view state back into the current owner
// (buffer or register).
func (r *Ring) SaveCurrentState() {
	if r.Current != nil {
		r.Current.state = r.env.View.State()
	} else if cur, ok := r.env.Current.(interface{ SaveState(view.State) }); ok {
		cur.SaveState(r.env.View.State())
	}
}

// show makes b current without undo handling.
func (r *Ring) show(b *Buffer) {
	r.env.View.Exchange(b.doc, b.state)
	r.env.Current = nil
	r.Current = b
	r.env.Display.InfoUpdate(b.DisplayName(), b.Dirty)
}

// UndoEdit pushes a token re-editing the current buffer.
func (r *Ring) UndoEdit() {
	b := r.Current
	if b == nil {
		r.env.PushUndoEdit()
		return
	}
	r.env.Undo.PushFunc(func() {
		r.SaveCurrentState()
		r.show(b)
	})
}

// Edit switches to the named buffer, opening the file if necessary.
// It reports whether a new buffer was added to the ring. An empty
// filename opens a fresh unnamed buffer.
func (r *Ring) Edit(filename string) (bool, error) {
	r.SaveCurrentState()

	if filename != "" {
		if b := r.Find(filename); b != nil {
			r.show(b)
			return false, nil
		}
	}

	b := &Buffer{doc: view.NewDoc()}
	r.insertTail(b)
	if filename != "" {
		b.Filename = files.AbsPath(filename)
		if info, err := os.Stat(filename); err == nil && info.Mode().IsRegular() {
			if err := b.load(filename); err != nil {
				r.unlink(b)
				b.doc.Unref()
				return false, err
			}
			r.env.Display.Msg(display.MsgInfo, "Added file \"%s\" to ring", b.Filename)
		} else {
			r.env.Display.Msg(display.MsgInfo, "Added new file \"%s\" to ring", b.Filename)
		}
	} else {
		r.env.Display.Msg(display.MsgInfo, "Added new unnamed file to ring.")
	}

	r.show(b)
	return true, nil
}

// EditByID switches to the buffer with the given ring id.
func (r *Ring) EditByID(id int64) error {
	b := r.ByID(id)
	if b == nil {
		return errs.New(errs.InvalidBuf, "Invalid buffer id %d", id)
	}
	r.SaveCurrentState()
	r.show(b)
	return nil
}

// UndoCloseCurrent pushes a token closing the newest buffer again
// (rubout of an open that added it).
func (r *Ring) UndoCloseCurrent() {
	b := r.Current
	r.env.Undo.PushFunc(func() {
		r.unlink(b)
		b.doc.Unref()
		if r.Current == b {
			r.Current = nil
		}
	})
}

func (b *Buffer) load(filename string) error {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return errs.New(errs.Failed, "Cannot load file \"%s\": %v", filename, err)
	}
	if config.ED&config.EDAutoEOL != 0 {
		contents, b.eol = normalizeEOL(contents)
	}
	if config.ED&config.EDDefaultANSI != 0 {
		b.doc.SetCodepage(0)
	}
	b.doc.SetText(contents)
	b.state = view.State{}
	return nil
}

// Close removes the current buffer from the ring. The document is
// handed over to an undo token which, on rubout, re-inserts the
// buffer at its old position and makes it current again.
func (r *Ring) Close() error {
	b := r.Current
	if b == nil {
		return errs.New(errs.InvalidBuf, "No buffer to close")
	}
	b.state = r.env.View.State()
	r.unlink(b)
	if b.Filename != "" {
		r.env.Display.Msg(display.MsgInfo, "Removed file \"%s\" from the ring", b.Filename)
	} else {
		r.env.Display.Msg(display.MsgInfo, "Removed unnamed file from the ring.")
	}

	next := b.next
	if next == nil {
		next = r.head
	}

	r.env.Undo.PushFunc(func() {
		r.relink(b)
		r.SaveCurrentState()
		r.show(b)
	})

	if next != nil {
		r.show(next)
		return nil
	}
	// Ring ran empty: open a fresh unnamed buffer and schedule its
	// removal.
	if _, err := r.Edit(""); err != nil {
		return err
	}
	r.UndoCloseCurrent()
	return nil
}

// SetFilename renames the current buffer without dirtying it.
func (r *Ring) SetFilename(filename string) {
	b := r.Current
	undo.String(r.env.Undo, &b.Filename)
	if filename != "" {
		filename = files.AbsPath(filename)
	}
	b.Filename = filename
	r.env.Display.InfoUpdate(b.DisplayName(), b.Dirty)
}

// SetDirty marks the current buffer modified.
func (r *Ring) SetDirty(dirty bool) {
	b := r.Current
	if b == nil || b.Dirty == dirty {
		return
	}
	undo.Scalar(r.env.Undo, &b.Dirty)
	b.Dirty = dirty
}

// Save writes the current buffer. With an empty filename the
// buffer's own name is used; saving an unnamed buffer without a
// filename fails and creates no file.
func (r *Ring) Save(filename string) error {
	b := r.Current
	if b == nil {
		return errs.New(errs.InvalidBuf, "No buffer to save")
	}
	if filename == "" && b.Filename == "" {
		return errs.New(errs.Failed, "Cannot save the unnamed buffer without a filename")
	}

	target := b.Filename
	if filename != "" {
		target = files.ExpandPath(filename)
	}

	contents := b.doc.Bytes()
	if config.ED&config.EDAutoEOL != 0 {
		contents = denormalizeEOL(contents, b.eol)
	}

	sp, err := files.WriteAtomic(target, contents)
	if err != nil {
		return errs.New(errs.Failed, "%v", err)
	}
	r.env.Undo.PushFunc(func() { files.RestoreSavePoint(sp, target) })

	if filename != "" {
		r.SetFilename(target)
	}
	r.SetDirty(false)
	return nil
}

// Info reports the current buffer for the buffer-info register.
func (r *Ring) Info() (int64, string, bool) {
	if r.Current == nil {
		return 0, "", false
	}
	return r.ID(r.Current), r.Current.Filename, true
}

// normalizeEOL converts CRLF/CR line endings to LF, reporting the
// dominant mode found.
func normalizeEOL(data []byte) ([]byte, EOLMode) {
	crlf := bytes.Count(data, []byte("\r\n"))
	cr := bytes.Count(data, []byte("\r")) - crlf
	lf := bytes.Count(data, []byte("\n")) - crlf

	mode := EOLLF
	if crlf > lf && crlf >= cr {
		mode = EOLCRLF
	} else if cr > lf && cr > crlf {
		mode = EOLCR
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
	return data, mode
}

// denormalizeEOL converts LF line endings back to the buffer's mode.
func denormalizeEOL(data []byte, mode EOLMode) []byte {
	switch mode {
	case EOLCRLF:
		return bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))
	case EOLCR:
		return bytes.ReplaceAll(data, []byte("\n"), []byte("\r"))
	}
	return data
}
