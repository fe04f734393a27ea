/*
 * SciTECO - File, insertion and replacement commands.
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
	"bytes"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/qreg"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
	"github.com/rhaberkorn/sciteco-sub000/util/files"
)

// expandFileArg converts a collected file-name argument.
func expandFileArg(str []byte) string {
	return files.ExpandPath(string(str))
}

// validateFileArg rejects null characters in file names as soon as
// they are typed.
func validateFileArg(m *Machine, str []byte, newChars int) error {
	if bytes.IndexByte(str[len(str)-newChars:], 0) >= 0 {
		return errs.New(errs.Failed, "Null-character not allowed in filenames")
	}
	return nil
}

// StateEditFile implements EBfile$: edit a file or glob pattern. A
// numeric argument edits by buffer id.
var StateEditFile = newExpectStringState(State{
	Name:           "editfile",
	StringBuilding: true,
	Last:           true,
	Process:        validateFileArg,
	Completions:    completeFilename,
	Done: func(m *Machine, str []byte) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}

		if err := m.rt.Expr.Eval(false); err != nil {
			return nil, err
		}
		if m.rt.Expr.Args() > 0 {
			if len(str) > 0 {
				return nil, errs.New(errs.Failed,
					"EB accepts either a buffer id or a file name")
			}
			id, err := m.rt.Expr.PopCalc()
			if err != nil {
				return nil, err
			}
			m.rt.Ring.UndoEdit()
			if err := m.rt.Ring.EditByID(id); err != nil {
				return nil, err
			}
			return StateStart, nil
		}

		pattern := expandFileArg(str)
		if files.IsGlobPattern(pattern) {
			matches, err := filepath.Glob(pattern)
			if err != nil || len(matches) == 0 {
				return nil, errs.New(errs.Failed,
					"No files match \"%s\"", pattern)
			}
			for _, name := range matches {
				if err := ringEdit(m, name); err != nil {
					return nil, err
				}
			}
			return StateStart, nil
		}

		if err := ringEdit(m, pattern); err != nil {
			return nil, err
		}
		return StateStart, nil
	},
})

// ringEdit opens one file with full undo handling.
func ringEdit(m *Machine, filename string) error {
	m.rt.Ring.UndoEdit()
	added, err := m.rt.Ring.Edit(filename)
	if err != nil {
		return err
	}
	if added {
		m.rt.Ring.UndoCloseCurrent()
	}
	return nil
}

// StateSaveFile implements EWfile$: save the current buffer. The
// save-point protocol makes the write rubout-safe.
var StateSaveFile = newExpectStringState(State{
	Name:           "savefile",
	StringBuilding: true,
	Last:           true,
	Process:        validateFileArg,
	Completions:    completeFilename,
	Done: func(m *Machine, str []byte) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		if err := m.rt.Ring.Save(expandFileArg(str)); err != nil {
			return nil, err
		}
		return StateStart, nil
	},
})

// StateChangeDir implements FGdir$: change the working directory via
// the "$" register so undo is uniform.
var StateChangeDir = newExpectStringState(State{
	Name:           "changedir",
	StringBuilding: true,
	Last:           true,
	Completions:    completeDirectory,
	Done: func(m *Machine, str []byte) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		dir := expandFileArg(str)
		if dir == "" {
			dir = os.Getenv("HOME")
		}
		wd := m.rt.QEnv.Globals.Find("$")
		if wd == nil {
			return nil, qreg.ErrInvalidQReg("$", false)
		}
		if err := wd.SetString(m.rt.QEnv, []byte(dir), view.SCCpUTF8); err != nil {
			return nil, err
		}
		return StateStart, nil
	},
})

// insertInitial inserts numeric arguments as codepoints (nI$).
func insertInitial(m *Machine) error {
	if err := stateExpectStringInitial(m); err != nil {
		return err
	}
	if !m.exec() {
		return nil
	}
	if err := m.rt.Expr.Eval(false); err != nil {
		return err
	}
	args := m.rt.Expr.Args()
	if args == 0 {
		return nil
	}
	var text []byte
	codes := make([]int64, args)
	for i := args - 1; i >= 0; i-- {
		v, err := m.rt.Expr.PopCalc()
		if err != nil {
			return err
		}
		codes[i] = v
	}
	for _, code := range codes {
		if code < 0 || !utf8.ValidRune(rune(code)) {
			return errs.New(errs.Codepoint, "Invalid codepoint %d for <I>", code)
		}
		text = utf8.AppendRune(text, rune(code))
	}
	m.insertBytes(text)
	return nil
}

// insertProcess inserts newly collected characters interactively.
func insertProcess(m *Machine, str []byte, newChars int) error {
	m.insertBytes(str[len(str)-newChars:])
	return nil
}

// StateInsertPlain implements Itext$.
var StateInsertPlain = newExpectStringState(State{
	Name:           "insert_plain",
	StringBuilding: true,
	Last:           true,
	Initial:        insertInitial,
	Process:        insertProcess,
	Refresh:        stateExpectStringRefresh,
	Done: func(m *Machine, str []byte) (*State, error) {
		// All insertion happened incrementally in Process.
		return StateStart, nil
	},
})

// StateInsertIndent implements ^Itext$ (TAB): like I but with a
// leading tab.
var StateInsertIndent = newExpectStringState(State{
	Name:           "insert_indent",
	StringBuilding: true,
	Last:           true,
	Initial: func(m *Machine) error {
		if err := insertInitial(m); err != nil {
			return err
		}
		if m.exec() {
			m.insertBytes([]byte{'\t'})
		}
		return nil
	},
	Process: insertProcess,
	Refresh: stateExpectStringRefresh,
	Done: func(m *Machine, str []byte) (*State, error) {
		return StateStart, nil
	},
})

// StateReplacePattern is the first argument of FRfrom$to$: the text
// expected immediately before dot.
var StateReplacePattern = newExpectStringState(State{
	Name:           "replace_pattern",
	StringBuilding: true,
	Last:           false,
	Done: func(m *Machine, str []byte) (*State, error) {
		if m.exec() {
			old := m.expectString.firstStr
			if m.MustUndo {
				m.rt.Undo.PushFunc(func() { m.expectString.firstStr = old })
			}
			m.expectString.firstStr = append([]byte{}, str...)
		}
		return StateReplaceText, nil
	},
})

// StateReplaceText is the second argument of FR: the replacement.
var StateReplaceText = newExpectStringState(State{
	Name:           "replace_text",
	StringBuilding: true,
	Last:           true,
	Done: func(m *Machine, str []byte) (*State, error) {
		if !m.exec() {
			return StateStart, nil
		}
		pattern := m.expectString.firstStr
		vw := m.rt.View
		dot := vw.SSM(view.SciGetCurrentPos, 0, 0)
		from := dot - int64(len(pattern))
		if from < 0 || !bytes.Equal(vw.SSMGetText(0, from, dot), pattern) {
			return nil, errs.New(errs.Failed,
				"Text before dot does not match \"%s\"", pattern)
		}
		if len(pattern) > 0 {
			m.deleteBytes(from, int64(len(pattern)))
		}
		m.insertBytes(str)
		return StateStart, nil
	},
})
