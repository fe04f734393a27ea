/*
 * SciTECO - Document store test set.
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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddTextMovesCaret(t *testing.T) {
	v := New()
	v.SSMText(SciAddText, 3, []byte("abc"))
	assert.Equal(t, "abc", string(v.Doc().Bytes()))
	assert.Equal(t, int64(3), v.SSM(SciGetCurrentPos, 0, 0))
}

func TestDeleteRangeAdjustsCaret(t *testing.T) {
	v := New()
	v.SSMText(SciAddText, 6, []byte("abcdef"))
	v.SSM(SciGotoPos, 6, 0)
	v.SSM(SciDeleteRange, 1, 2)
	assert.Equal(t, "adef", string(v.Doc().Bytes()))
	assert.Equal(t, int64(4), v.SSM(SciGetCurrentPos, 0, 0))
}

func TestLinePositionConversion(t *testing.T) {
	v := New()
	v.SSMText(SciAddText, 0, []byte("one\ntwo\nthree"))
	assert.Equal(t, int64(0), v.SSM(SciLineFromPosition, 2, 0))
	assert.Equal(t, int64(1), v.SSM(SciLineFromPosition, 4, 0))
	assert.Equal(t, int64(4), v.SSM(SciPositionFromLine, 1, 0))
	assert.Equal(t, int64(8), v.SSM(SciPositionFromLine, 2, 0))
	assert.Equal(t, int64(3), v.SSM(SciGetLineCount, 0, 0))
}

func TestCountCharactersUTF8(t *testing.T) {
	v := New()
	v.SSMText(SciAddText, 0, []byte("héllo"))
	assert.Equal(t, int64(5), v.SSM(SciCountCharacters, 0, int64(len("héllo"))))
	// Glyph 2 starts after the two-byte é.
	assert.Equal(t, int64(3), v.SSM(SciPositionRelative, 0, 2))
}

func TestSingleByteCodepage(t *testing.T) {
	v := New()
	v.SSM(SciSetCodePage, 0, 0)
	v.SSMText(SciAddText, 0, []byte{0xe9, 0x61})
	assert.Equal(t, int64(2), v.SSM(SciCountCharacters, 0, 2))
	assert.Equal(t, int64(1), v.SSM(SciPositionRelative, 0, 1))
}

func TestUndoActionGroups(t *testing.T) {
	v := New()
	v.SSM(SciBeginUndoAction, 0, 0)
	v.SSMText(SciAddText, 0, []byte("abc"))
	v.SSM(SciDeleteRange, 0, 1)
	v.SSM(SciEndUndoAction, 0, 0)

	assert.Equal(t, "bc", string(v.Doc().Bytes()))
	v.SSM(SciUndo, 0, 0)
	assert.Equal(t, "", string(v.Doc().Bytes()))
}

func TestExchangeSwapsDocuments(t *testing.T) {
	v := New()
	v.SSMText(SciAddText, 0, []byte("first"))
	d1 := v.Doc()
	s1 := v.State()

	d2 := NewDoc()
	d2.SetText([]byte("second"))
	old, oldState := v.Exchange(d2, State{})
	assert.Same(t, d1, old)
	assert.Equal(t, s1, oldState)
	assert.Equal(t, "second", string(v.Doc().Bytes()))

	back, _ := v.Exchange(d1, oldState)
	assert.Same(t, d2, back)
	assert.Equal(t, "first", string(v.Doc().Bytes()))
}

func TestDocRefCounting(t *testing.T) {
	d := NewDoc()
	assert.Equal(t, 1, d.Refs())
	d.Ref()
	assert.Equal(t, 2, d.Refs())
	d.Unref()
	d.Unref()
	assert.Equal(t, 0, d.Refs())
}

func TestGlyphs(t *testing.T) {
	d := NewDoc()
	d.SetText([]byte("héllo"))
	assert.Equal(t, int64(5), d.Glyphs())
	d.SetCodepage(0)
	assert.Equal(t, int64(6), d.Glyphs())
}
