/*
 * SciTECO - Start state command dispatch.
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
	"unicode/utf8"

	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/expr"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

// StateStart is the top-level state: every command begins here.
var StateStart = &State{
	Name:         "start",
	IsStart:      true,
	Style:        StyleCommand,
	KeymacroMask: KeymacroMaskStart | KeymacroMaskCaseInsensitive,
}

// StateEscape is the lookahead state after a lone escape; a second
// escape returns from the macro (or terminates the command line).
var StateEscape = &State{
	Name:         "escape",
	IsStart:      true,
	Style:        StyleCommand,
	KeymacroMask: KeymacroMaskStart | KeymacroMaskCaseInsensitive,
}

func init() {
	StateStart.Input = stateStartInput
	StateEscape.Input = stateEscapeInput
	// A lone escape at the end of a macro still discards the
	// pending arguments.
	StateEscape.EndOfMacro = func(m *Machine) error {
		if !m.exec() {
			return nil
		}
		return m.rt.Expr.DiscardArgs()
	}
}

// exec tells whether commands actually run.
func (m *Machine) exec() bool { return m.Flags.Mode == ModeNormal }

func stateStartInput(m *Machine, chr rune) (*State, error) {
	// Parse-only handling of structure commands must come first:
	// they are the only commands with transitions in skip modes.
	if !m.exec() {
		if IsCtl(chr) && chr != '\x1b' && chr != '\t' {
			// Control characters still select their states so
			// that string arguments are skipped syntactically.
			return stateControlInput(m, CtlEcho(chr))
		}
		switch asciiToUpper(chr) {
		case '<':
			undoScalar(m, &m.nestLevel)
			m.nestLevel++
			return StateStart, nil
		case '>':
			if m.nestLevel == 0 {
				if m.Flags.Mode == ModeParseOnly {
					undoScalar(m, &m.Flags)
					m.Flags.Mode = ModeNormal
				}
			} else {
				undoScalar(m, &m.nestLevel)
				m.nestLevel--
			}
			return StateStart, nil
		case '"':
			// Nested conditional start within skipped code.
			return StateCondCommand, nil
		case '|':
			if m.Flags.Mode == ModeParseOnly && !m.skipElse && m.nestLevel == 0 {
				undoScalar(m, &m.Flags)
				m.Flags.Mode = ModeNormal
			}
			return StateStart, nil
		case '\'':
			if m.Flags.Mode != ModeParseOnly {
				return StateStart, nil
			}
			if m.nestLevel == 0 {
				undoScalar(m, &m.Flags)
				m.Flags.Mode = ModeNormal
				undoScalar(m, &m.skipElse)
				m.skipElse = false
			} else {
				undoScalar(m, &m.nestLevel)
				m.nestLevel--
			}
			return StateStart, nil
		case '!':
			return StateLabel, nil
		case '\x1b':
			return StateEscape, nil
		case 'E':
			return StateECommand, nil
		case 'F':
			return StateFCommand, nil
		case '^':
			return StateControl, nil
		case 'I':
			return StateInsertPlain, nil
		case '\t':
			return StateInsertIndent, nil
		case 'O':
			return StateGotoCmd, nil
		case 'U', 'Q', '%', 'X', 'G', '[', ']', 'M':
			return expectQRegFor(chr), nil
		case '@', ':':
			return StateStart, nil
		default:
			// All other commands are syntactic no-ops while
			// skipping.
			return StateStart, nil
		}
	}

	// Any non-digit, including no-op whitespace, ends the current
	// digit run: "2 3" are two values, "23" is one.
	if chr < '0' || chr > '9' {
		m.rt.Expr.EndDigitRun()
	}

	if IsNoop(chr) {
		return StateStart, nil
	}

	// Control characters dispatch like their caret counterparts.
	if IsCtl(chr) && chr != '\x1b' && chr != '\t' {
		return stateControlInput(m, CtlEcho(chr))
	}

	if chr >= '0' && chr <= '9' {
		// A pending colon is kept for the command the number
		// belongs to; only @ is invalid here.
		if err := m.checkModifiers(chr, 2, false); err != nil {
			return nil, err
		}
		if _, err := m.rt.Expr.AddDigit(chr); err != nil {
			return nil, err
		}
		return StateStart, nil
	}

	switch asciiToUpper(chr) {
	case '\x1b':
		return StateEscape, nil
	case '!':
		return StateLabel, nil
	case '^':
		return StateControl, nil
	case 'E':
		return StateECommand, nil
	case 'F':
		return StateFCommand, nil
	case '"':
		return StateCondCommand, nil
	case 'I':
		return StateInsertPlain, nil
	case '\t':
		return StateInsertIndent, nil
	case 'O':
		return StateGotoCmd, nil
	case 'U', 'Q', '%', 'X', 'G', '[', ']', 'M':
		return expectQRegFor(chr), nil

	/*
	 * Modifiers
	 */
	case '@':
		if m.Flags.ModifierAt {
			return nil, errs.ModifierError(chr)
		}
		undoScalar(m, &m.Flags)
		m.Flags.ModifierAt = true
		return StateStart, nil
	case ':':
		if m.Flags.ModifierColon >= 2 {
			return nil, errs.ModifierError(chr)
		}
		undoScalar(m, &m.Flags)
		m.Flags.ModifierColon++
		return StateStart, nil

	/*
	 * Arithmetics
	 */
	case '/':
		return startPushCalc(m, chr, expr.OpDiv)
	case '*':
		return startPushCalc(m, chr, expr.OpMul)
	case '+':
		return startPushCalc(m, chr, expr.OpAdd)
	case '-':
		if err := m.checkModifiers(chr, 0, false); err != nil {
			return nil, err
		}
		if m.rt.Expr.Args() == 0 {
			m.rt.Expr.SetNumSign(-m.rt.Expr.NumSign)
		} else if err := m.rt.Expr.PushCalc(expr.OpSub); err != nil {
			return nil, err
		}
		return StateStart, nil
	case '&':
		return startPushCalc(m, chr, expr.OpAnd)
	case '#':
		return startPushCalc(m, chr, expr.OpOr)
	case '(':
		if err := m.rt.Expr.BraceOpen(); err != nil {
			return nil, err
		}
		return StateStart, nil
	case ')':
		if err := m.rt.Expr.BraceClose(); err != nil {
			return nil, err
		}
		return StateStart, nil
	case ',':
		if err := m.rt.Expr.Eval(false); err != nil {
			return nil, err
		}
		m.rt.Expr.PushOp(expr.OpNew)
		return StateStart, nil

	/*
	 * Position values
	 */
	case '.':
		if err := m.rt.Expr.Eval(false); err != nil {
			return nil, err
		}
		m.rt.Expr.Push(m.dotGlyphs())
		return StateStart, nil
	case 'Z':
		if err := m.rt.Expr.Eval(false); err != nil {
			return nil, err
		}
		m.rt.Expr.Push(m.lenGlyphs())
		return StateStart, nil
	case 'H':
		if err := m.rt.Expr.Eval(false); err != nil {
			return nil, err
		}
		m.rt.Expr.Push(0)
		m.rt.Expr.Push(m.lenGlyphs())
		return StateStart, nil

	/*
	 * Loops
	 */
	case '<':
		return startLoopOpen(m)
	case '>':
		return startLoopClose(m)
	case ';':
		return startLoopBreak(m)

	/*
	 * Conditional else
	 */
	case '|':
		// Reached in normal mode: skip the else part.
		undoScalar(m, &m.Flags)
		m.Flags.Mode = ModeParseOnly
		undoScalar(m, &m.skipElse)
		m.skipElse = true
		return StateStart, nil
	case '\'':
		// End of conditional in normal mode.
		return StateStart, nil

	/*
	 * Commands
	 */
	case '=':
		colon := m.EvalColon()
		v, err := m.rt.Expr.PopCalc()
		if err != nil {
			return nil, err
		}
		if colon > 0 {
			m.rt.Display.Msg(display.MsgInfo, "%s", m.rt.Expr.Format(v))
		} else {
			m.rt.Display.Msg(display.MsgInfo, "%d", v)
		}
		return StateStart, nil

	case 'J':
		v, err := m.rt.Expr.PopCalcImply(0)
		if err != nil {
			return nil, err
		}
		m.undoCaret()
		m.gotoGlyph(v)
		return StateStart, nil
	case 'C':
		return startMove(m, 1)
	case 'R':
		return startMove(m, -1)
	case 'L':
		return startMoveLines(m, 1)
	case 'B':
		return startMoveLines(m, -1)

	case 'K', 'D':
		return startDelete(m, asciiToUpper(chr))

	case 'A':
		v, err := m.rt.Expr.PopCalc()
		if err != nil {
			return nil, err
		}
		m.rt.Expr.Push(m.charAt(m.dotGlyphs() + v))
		return StateStart, nil

	case '}':
		if !m.rt.Interactive {
			return nil, errs.New(errs.Syntax,
				"Command-line replacement only allowed interactively")
		}
		return nil, errs.New(errs.Cmdline, "")

	case '$':
		// Dollar is not a command; real escape is 0x1B.
		return nil, errs.SyntaxError(chr)
	}

	return nil, errs.SyntaxError(chr)
}

func startPushCalc(m *Machine, chr rune, op expr.Operator) (*State, error) {
	if err := m.checkModifiers(chr, 0, false); err != nil {
		return nil, err
	}
	if err := m.rt.Expr.PushCalc(op); err != nil {
		return nil, err
	}
	return StateStart, nil
}

// dotGlyphs returns the caret position in glyphs.
func (m *Machine) dotGlyphs() int64 {
	v := m.rt.View
	return v.SSM(view.SciCountCharacters, 0, v.SSM(view.SciGetCurrentPos, 0, 0))
}

// lenGlyphs returns the buffer length in glyphs.
func (m *Machine) lenGlyphs() int64 {
	v := m.rt.View
	return v.SSM(view.SciCountCharacters, 0, v.SSM(view.SciGetLength, 0, 0))
}

// glyphToByte converts a glyph position to a byte position.
func (m *Machine) glyphToByte(pos int64) int64 {
	return m.rt.View.SSM(view.SciPositionRelative, 0, pos)
}

func (m *Machine) undoCaret() {
	v := m.rt.View
	old := v.SSM(view.SciGetCurrentPos, 0, 0)
	m.rt.Undo.PushFunc(func() { v.SSM(view.SciGotoPos, old, 0) })
}

func (m *Machine) gotoGlyph(pos int64) {
	v := m.rt.View
	v.SSM(view.SciGotoPos, m.glyphToByte(pos), 0)
}

// charAt returns the codepoint at glyph position pos of the current
// document, or the negative error codes of the A command.
func (m *Machine) charAt(pos int64) int64 {
	v := m.rt.View
	doc := v.Doc()
	if pos < 0 || pos >= doc.Glyphs() {
		return -1
	}
	b := doc.Bytes()
	byte0 := m.glyphToByte(pos)
	if doc.Codepage() != view.SCCpUTF8 {
		return int64(b[byte0])
	}
	return decodeChar(b[byte0:])
}

func startMove(m *Machine, dir int64) (*State, error) {
	colon := m.EvalColon()
	v, err := m.rt.Expr.PopCalc()
	if err != nil {
		return nil, err
	}
	target := m.dotGlyphs() + dir*v
	if target < 0 || target > m.lenGlyphs() {
		if colon > 0 {
			m.rt.Expr.Push(tecoFailure)
			return StateStart, nil
		}
		return nil, errs.New(errs.Range, "Move out of range")
	}
	m.undoCaret()
	m.gotoGlyph(target)
	if colon > 0 {
		m.rt.Expr.Push(tecoSuccess)
	}
	return StateStart, nil
}

func startMoveLines(m *Machine, dir int64) (*State, error) {
	colon := m.EvalColon()
	n, err := m.rt.Expr.PopCalc()
	if err != nil {
		return nil, err
	}
	vw := m.rt.View
	pos := vw.SSM(view.SciGetCurrentPos, 0, 0)
	line := vw.SSM(view.SciLineFromPosition, pos, 0) + dir*n
	if line < 0 || line >= vw.SSM(view.SciGetLineCount, 0, 0) {
		if colon > 0 {
			m.rt.Expr.Push(tecoFailure)
			return StateStart, nil
		}
		return nil, errs.New(errs.Range, "Line movement out of range")
	}
	m.undoCaret()
	vw.SSM(view.SciGotoPos, vw.SSM(view.SciPositionFromLine, line, 0), 0)
	if colon > 0 {
		m.rt.Expr.Push(tecoSuccess)
	}
	return StateStart, nil
}

// TECO boolean convention: success is -1, failure 0.
const (
	tecoSuccess int64 = -1
	tecoFailure int64 = 0
)

// rangeArgs computes the byte range addressed by a one- or
// two-argument deletion-style command.
func (m *Machine) rangeArgs(chr rune) (from, length int64, err error) {
	if err = m.rt.Expr.Eval(false); err != nil {
		return
	}
	vw := m.rt.View

	if m.rt.Expr.Args() <= 1 {
		from = vw.SSM(view.SciGetCurrentPos, 0, 0)
		var n int64
		n, err = m.rt.Expr.PopCalc()
		if err != nil {
			return
		}
		if chr == 'D' {
			length = m.glyphToByte(m.dotGlyphs()+n) - from
		} else { // K and X address lines
			line := vw.SSM(view.SciLineFromPosition, from, 0) + n
			length = vw.SSM(view.SciPositionFromLine, line, 0) - from
		}
		if length < 0 {
			from += length
			length = -length
		}
		return
	}

	to := m.rt.Expr.Pop()
	start := m.rt.Expr.Pop()
	if to == expr.Missing || start == expr.Missing {
		err = errs.ArgExpectedError(string(chr))
		return
	}
	from = m.glyphToByte(start)
	length = m.glyphToByte(to) - from
	if length < 0 {
		err = errs.New(errs.Range, "Invalid range for <%c>", chr)
	}
	return
}

func startDelete(m *Machine, chr rune) (*State, error) {
	colon := m.EvalColon()
	from, length, err := m.rangeArgs(chr)
	if err != nil {
		if colon > 0 && errs.KindOf(err) == errs.Range {
			m.rt.Expr.Push(tecoFailure)
			return StateStart, nil
		}
		return nil, err
	}
	if length > 0 {
		m.deleteBytes(from, length)
	}
	if colon > 0 {
		m.rt.Expr.Push(tecoSuccess)
	}
	return StateStart, nil
}

// deleteBytes removes a byte range with undo and dirties the buffer.
func (m *Machine) deleteBytes(from, length int64) {
	vw := m.rt.View
	m.undoCaret()
	vw.SSM(view.SciBeginUndoAction, 0, 0)
	vw.SSM(view.SciDeleteRange, from, length)
	vw.SSM(view.SciEndUndoAction, 0, 0)
	m.rt.Undo.PushFunc(func() { vw.SSM(view.SciUndo, 0, 0) })
	m.rt.Ring.SetDirty(true)
}

// insertBytes inserts text at dot with undo and dirties the buffer.
func (m *Machine) insertBytes(text []byte) {
	if len(text) == 0 {
		return
	}
	vw := m.rt.View
	vw.SSM(view.SciBeginUndoAction, 0, 0)
	vw.SSMText(view.SciAddText, int64(len(text)), text)
	vw.SSM(view.SciEndUndoAction, 0, 0)
	m.rt.Undo.PushFunc(func() { vw.SSM(view.SciUndo, 0, 0) })
	m.rt.Ring.SetDirty(true)
}

func stateEscapeInput(m *Machine, chr rune) (*State, error) {
	if chr == '\x1b' {
		// Double escape: return from macro / terminate the
		// command line.
		if !m.exec() {
			return StateStart, nil
		}
		return nil, errs.New(errs.Return, "")
	}
	if m.exec() {
		if err := m.rt.Expr.DiscardArgs(); err != nil {
			return nil, err
		}
	}
	// Process the lookahead character as a fresh command.
	return stateStartInput(m, chr)
}

// decodeChar decodes the first codepoint of b, mapping invalid
// sequences to -2 and incomplete trailing sequences to -3 (the A
// command's error codes).
func decodeChar(b []byte) int64 {
	if len(b) == 0 {
		return -1
	}
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError && size <= 1 {
		if !utf8.FullRune(b) {
			return -3
		}
		return -2
	}
	return int64(r)
}
