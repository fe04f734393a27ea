/*
 * SciTECO - Scintilla message constants.
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

// The subset of the Scintilla message protocol referenced by the
// runtime. Values match Scintilla.h so a real Scintilla component can
// be substituted for the in-memory implementation.
const (
	SciUndo              = 2176
	SciBeginUndoAction   = 2078
	SciEndUndoAction     = 2079
	SciSetUndoCollection = 2012
	SciEmptyUndoBuffer   = 2175

	SciGetLength     = 2006
	SciGetCurrentPos = 2008
	SciGetAnchor     = 2009
	SciGotoPos       = 2025
	SciSetAnchor     = 2026
	SciSetSavePoint  = 2014

	SciGetCharAt = 2007

	SciSetText     = 2181
	SciClearAll    = 2004
	SciAddText     = 2001
	SciAppendText  = 2282
	SciInsertText  = 2003
	SciDeleteRange = 2645

	SciLineFromPosition = 2166
	SciPositionFromLine = 2167
	SciGetLineCount     = 2154

	SciGetCodePage = 2137
	SciSetCodePage = 2037

	SciCountCharacters  = 2633
	SciPositionRelative = 2670

	SciGetFirstVisibleLine = 2152
	SciSetFirstVisibleLine = 2613
	SciGetXOffset          = 2398
	SciSetXOffset          = 2397

	SciSetLineState = 2092
	SciGetLineState = 2093
	SciStartStyling = 2032
	SciSetStyling   = 2033

	// SCCpUTF8 is the Scintilla codepage denoting UTF-8 documents.
	// Codepage 0 denotes a raw single-byte document.
	SCCpUTF8 = 65001
)
