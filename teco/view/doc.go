/*
 * SciTECO - Direct document operations.
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

package view

import "unicode/utf8"

// Direct operations on documents that are not currently shown in a
// view. Q-Register strings are manipulated this way; the runtime's
// own undo tokens take care of restoration, so no Scintilla-side
// undo actions are recorded.

// Codepage returns the document codepage (SCCpUTF8 or 0).
func (d *Doc) Codepage() int { return d.codepage }

// SetCodepage sets the document codepage.
func (d *Doc) SetCodepage(cp int) { d.codepage = cp }

// SetText replaces the whole document.
func (d *Doc) SetText(b []byte) {
	d.text = append(d.text[:0:0], b...)
	d.undo = nil
}

// Append appends bytes to the document.
func (d *Doc) Append(b []byte) {
	d.text = append(d.text, b...)
}

// TruncateTo cuts the document back to n bytes (undoing an Append).
func (d *Doc) TruncateTo(n int) {
	if n < len(d.text) {
		d.text = d.text[:n]
	}
}

// Glyphs returns the document length in glyphs: runes for UTF-8
// documents, bytes for single-byte ones.
func (d *Doc) Glyphs() int64 {
	if d.codepage != SCCpUTF8 {
		return int64(len(d.text))
	}
	return int64(utf8.RuneCount(d.text))
}
