/*
 * SciTECO - Lexing mode and styles.
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
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

// Lexer style codes, one per byte of highlighted source.
const (
	StyleDefault byte = iota
	StyleCommand
	StyleString
	StyleQReg
	StyleLabel
	StyleInvalid
)

// Lex runs the machine in lexing mode over source, recording one
// style byte per source byte into the view and a "safe column" into
// the line state of every line that begins at a clean start state so
// later runs can resume mid-document.
func Lex(rt *Runtime, vw *view.View, source string) {
	m := NewMachine(rt, false, nil)
	m.Flags.Mode = ModeLexing

	enabled := rt.Undo.Enabled
	rt.Undo.Enabled = false
	defer func() { rt.Undo.Enabled = enabled }()

	vw.SSM(view.SciStartStyling, 0, 0)
	line := int64(0)
	for pos := 0; pos < len(source); {
		if m.current.IsStart && (pos == 0 || source[pos-1] == '\n') {
			vw.SSM(view.SciSetLineState, line, int64(pos))
		}
		if pos > 0 && source[pos-1] == '\n' {
			line++
		}

		chr, size := utf8.DecodeRuneInString(source[pos:])
		style := m.current.Style
		if chr == utf8.RuneError && size <= 1 {
			style = StyleInvalid
		} else if err := m.lexInput(chr); err != nil {
			style = StyleInvalid
			m.Reset()
			m.Flags.Mode = ModeLexing
		}
		for i := 0; i < size; i++ {
			vw.SSMText(view.SciSetStyling, 1, []byte{style})
		}
		pos += size
	}
}

// lexInput feeds a character with execution disabled: lexing shares
// the parse-only paths of every state.
func (m *Machine) lexInput(chr rune) error {
	return m.Input(chr)
}

// completeFilename produces file-name completions for the current
// string argument prefix.
func completeFilename(m *Machine, prefix string) []Completion {
	return completePath(prefix, false)
}

// completeDirectory restricts completion to directories.
func completeDirectory(m *Machine, prefix string) []Completion {
	return completePath(prefix, true)
}

func completePath(prefix string, dirsOnly bool) []Completion {
	dir, base := filepath.Split(prefix)
	scan := dir
	if scan == "" {
		scan = "."
	}
	entries, err := os.ReadDir(scan)
	if err != nil {
		return nil
	}
	var out []Completion
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if dirsOnly && !e.IsDir() {
			continue
		}
		kind := display.PopupFile
		final := true
		if e.IsDir() {
			kind = display.PopupDirectory
			name += string(filepath.Separator)
			final = false
		}
		out = append(out, Completion{Text: dir + name, Kind: kind, Final: final})
		if len(out) >= 1000 {
			break
		}
	}
	return out
}
