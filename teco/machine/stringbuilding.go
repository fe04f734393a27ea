/*
 * SciTECO - String building sub-machine.
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
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/qreg"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
	"github.com/rhaberkorn/sciteco-sub000/util/files"
)

type sbState int

const (
	sbStart sbState = iota
	sbCtl
	sbEscaped
	sbLower
	sbLowerCtl
	sbUpper
	sbUpperCtl
	sbCtlE
	sbCtlENum
	sbCtlEU
	sbCtlECode
	sbCtlEQ
	sbCtlEQuote
	sbCtlEN
)

type sbMode int

const (
	sbModeNormal sbMode = iota
	sbModeUpper
	sbModeLower
	sbModeDisabled
)

// StringBuilding expands ^Q ^R ^V ^W ^E... constructs within string
// arguments (§4.3).
type StringBuilding struct {
	m *Machine

	state    sbState
	mode     sbMode
	escape   rune
	codepage int

	qspec *QRegSpec
	code  []byte
}

// NewStringBuilding creates a sub-machine bound to the parent parser.
func NewStringBuilding(m *Machine, escape rune) *StringBuilding {
	return &StringBuilding{m: m, escape: escape, codepage: view.SCCpUTF8}
}

// SetEscape sets the termination character.
func (sb *StringBuilding) SetEscape(escape rune) { sb.escape = escape }

// Escape returns the current termination character.
func (sb *StringBuilding) Escape() rune { return sb.escape }

// AtStart tells whether the sub-machine is between constructs, i.e.
// the next character could terminate the argument.
func (sb *StringBuilding) AtStart() bool { return sb.state == sbStart }

// Reset returns to the start state for the next string argument.
func (sb *StringBuilding) Reset() {
	sb.transition(sbStart)
	if sb.m.MustUndo {
		undoScalar(sb.m, &sb.mode)
	}
	sb.mode = sbModeNormal
	if sb.qspec != nil {
		sb.qspec.Reset()
	}
}

func (sb *StringBuilding) transition(next sbState) {
	if next != sb.state {
		undoScalar(sb.m, &sb.state)
		sb.state = next
	}
}

func (sb *StringBuilding) setMode(mode sbMode) {
	undoScalar(sb.m, &sb.mode)
	sb.mode = mode
}

func (sb *StringBuilding) qregSpec() *QRegSpec {
	if sb.qspec == nil {
		sb.qspec = NewQRegSpec(sb.m, QRegRequired)
	} else {
		sb.qspec.Reset()
	}
	return sb.qspec
}

// Input processes one code point. result is nil in parse-only mode;
// otherwise expanded bytes are appended to *result.
func (sb *StringBuilding) Input(chr rune, result *[]byte) error {
	next, err := sb.input(chr, result)
	if err != nil {
		return err
	}
	sb.transition(next)
	return nil
}

func (sb *StringBuilding) input(chr rune, result *[]byte) (sbState, error) {
	switch sb.state {
	case sbStart:
		if sb.mode != sbModeDisabled {
			switch {
			case chr == '^':
				return sbCtl, nil
			case chr == CtlKey('^'):
				// Ctrl+^ inserts code 30 verbatim instead
				// of expanding like caret-caret.
			case IsCtl(chr):
				return sb.ctlInput(CtlEcho(chr), result)
			}
		}
		return sb.escapedInput(chr, result)

	case sbCtl:
		return sb.ctlInput(chr, result)

	case sbEscaped:
		return sb.escapedInput(chr, result)

	case sbLower:
		if chr == '^' {
			return sbLowerCtl, nil
		}
		if IsCtl(chr) {
			return sb.lowerCtlInput(CtlEcho(chr), result)
		}
		if result != nil {
			sb.appendRune(result, sb.foldRune(chr, unicode.ToLower))
		}
		return sbStart, nil

	case sbLowerCtl:
		return sb.lowerCtlInput(chr, result)

	case sbUpper:
		if chr == '^' {
			return sbUpperCtl, nil
		}
		if IsCtl(chr) {
			return sb.upperCtlInput(CtlEcho(chr), result)
		}
		if result != nil {
			sb.appendRune(result, sb.foldRune(chr, unicode.ToUpper))
		}
		return sbStart, nil

	case sbUpperCtl:
		return sb.upperCtlInput(chr, result)

	case sbCtlE:
		return sb.ctlEInput(chr, result)

	case sbCtlENum:
		return sb.qregValue(chr, result, sbCtlENum, func(r qreg.Register) error {
			value, err := r.GetInteger(sb.m.rt.QEnv)
			if err != nil {
				return err
			}
			sb.appendFolded(result, []byte(sb.m.rt.Expr.Format(value)))
			return nil
		})

	case sbCtlEU:
		return sb.qregValue(chr, result, sbCtlEU, func(r qreg.Register) error {
			value, err := r.GetInteger(sb.m.rt.QEnv)
			if err != nil {
				return err
			}
			if !sb.appendCode(result, value) {
				return errs.New(errs.Codepoint,
					"Q-Register \"%s\" does not contain a valid codepoint", r.Name())
			}
			return nil
		})

	case sbCtlECode:
		if chr != '>' {
			if result == nil {
				return sbCtlECode, nil
			}
			if sb.m.MustUndo {
				old := len(sb.code)
				sb.m.rt.Undo.PushFunc(func() { sb.code = sb.code[:old] })
			}
			sb.code = utf8.AppendRune(sb.code, chr)
			return sbCtlECode, nil
		}
		if result == nil {
			return sbStart, nil
		}
		if len(sb.code) == 0 {
			return 0, errs.New(errs.Codepoint, "Invalid empty ^E<> specified")
		}
		code, err := strconv.ParseInt(string(sb.code), 0, 64)
		if err != nil || !sb.appendCode(result, code) {
			return 0, errs.New(errs.Codepoint, "Invalid code ^E<%s> specified", sb.code)
		}
		old := sb.code
		if sb.m.MustUndo {
			sb.m.rt.Undo.PushFunc(func() { sb.code = old })
		}
		sb.code = nil
		return sbStart, nil

	case sbCtlEQ:
		return sb.qregValue(chr, result, sbCtlEQ, func(r qreg.Register) error {
			str, _, err := r.GetString(sb.m.rt.QEnv)
			if err != nil {
				return err
			}
			sb.appendFolded(result, str)
			return nil
		})

	case sbCtlEQuote:
		return sb.qregValue(chr, result, sbCtlEQuote, func(r qreg.Register) error {
			str, _, err := r.GetString(sb.m.rt.QEnv)
			if err != nil {
				return err
			}
			if bytes.IndexByte(str, 0) >= 0 {
				return errs.New(errs.QRegContainsNull,
					"Q-Register \"%s\" contains null-characters", r.Name())
			}
			sb.appendFolded(result, []byte(files.ShellQuote(string(str))))
			return nil
		})

	case sbCtlEN:
		return sb.qregValue(chr, result, sbCtlEN, func(r qreg.Register) error {
			str, _, err := r.GetString(sb.m.rt.QEnv)
			if err != nil {
				return err
			}
			if bytes.IndexByte(str, 0) >= 0 {
				return errs.New(errs.QRegContainsNull,
					"Q-Register \"%s\" contains null-characters", r.Name())
			}
			sb.appendFolded(result, []byte(files.EscapeGlobPattern(string(str))))
			return nil
		})
	}
	return 0, errs.SyntaxError(chr)
}

func (sb *StringBuilding) ctlInput(chr rune, result *[]byte) (sbState, error) {
	chr = asciiToUpper(chr)

	switch chr {
	case '^':
		// Double caret expands to a single caret.
	case 'P':
		sb.setMode(sbModeDisabled)
		return sbStart, nil
	case 'Q', 'R':
		return sbEscaped, nil
	case 'V':
		return sbLower, nil
	case 'W':
		return sbUpper, nil
	case 'E':
		return sbCtlE, nil
	default:
		if chr < '@' || chr > '_' {
			// Would not form a control character: keep the
			// caret verbatim.
			if result != nil {
				*result = append(*result, '^')
			}
			break
		}
		chr = CtlKey(chr)
	}

	if result != nil {
		*result = utf8.AppendRune(*result, chr)
	}
	return sbStart, nil
}

func (sb *StringBuilding) escapedInput(chr rune, result *[]byte) (sbState, error) {
	if result == nil {
		return sbStart, nil
	}
	switch sb.mode {
	case sbModeUpper:
		chr = sb.foldRune(chr, unicode.ToUpper)
	case sbModeLower:
		chr = sb.foldRune(chr, unicode.ToLower)
	}
	sb.appendRune(result, chr)
	return sbStart, nil
}

func (sb *StringBuilding) lowerCtlInput(chr rune, result *[]byte) (sbState, error) {
	if result == nil {
		return sbStart, nil
	}
	chr = asciiToUpper(chr)
	if chr == 'V' {
		// ^V^V latches lower-casing for the whole argument.
		sb.setMode(sbModeLower)
	} else {
		// Control characters cannot be case folded.
		*result = utf8.AppendRune(*result, CtlKey(chr))
	}
	return sbStart, nil
}

func (sb *StringBuilding) upperCtlInput(chr rune, result *[]byte) (sbState, error) {
	if result == nil {
		return sbStart, nil
	}
	chr = asciiToUpper(chr)
	if chr == 'W' {
		sb.setMode(sbModeUpper)
	} else {
		*result = utf8.AppendRune(*result, CtlKey(chr))
	}
	return sbStart, nil
}

func (sb *StringBuilding) ctlEInput(chr rune, result *[]byte) (sbState, error) {
	var next sbState
	switch asciiToUpper(chr) {
	case '\\':
		next = sbCtlENum
	case 'U':
		next = sbCtlEU
	case '<':
		next = sbCtlECode
	case 'Q':
		next = sbCtlEQ
	case '@':
		next = sbCtlEQuote
	case 'N':
		next = sbCtlEN
	default:
		// Not a construct: keep ^E and the character so search
		// patterns can start with ^E.
		if result != nil {
			buf := []byte{CtlKey('E')}
			buf = utf8.AppendRune(buf, chr)
			sb.appendFolded(result, buf)
		}
		return sbStart, nil
	}

	sb.qregSpec()
	return next, nil
}

// qregValue feeds the register specification sub-machine and invokes
// expand once the register is complete.
func (sb *StringBuilding) qregValue(chr rune, result *[]byte, more sbState,
	expand func(qreg.Register) error) (sbState, error) {
	status, reg, _, err := sb.qspec.Input(chr, result != nil)
	switch status {
	case QRegSpecError:
		return 0, err
	case QRegSpecMore:
		return more, nil
	}
	if result == nil {
		// Parse-only mode.
		return sbStart, nil
	}
	if err := expand(reg); err != nil {
		return 0, err
	}
	return sbStart, nil
}

// foldRune case folds for the target encoding: single-byte targets
// only fold ASCII characters.
func (sb *StringBuilding) foldRune(chr rune, fold func(rune) rune) rune {
	if sb.codepage == view.SCCpUTF8 || chr < 0x80 {
		return fold(chr)
	}
	return chr
}

// appendRune appends one codepoint honoring the target encoding.
func (sb *StringBuilding) appendRune(result *[]byte, chr rune) {
	if sb.codepage == view.SCCpUTF8 {
		*result = utf8.AppendRune(*result, chr)
	} else {
		*result = append(*result, byte(chr))
	}
}

// appendFolded appends bytes with the active case-folding mode.
func (sb *StringBuilding) appendFolded(result *[]byte, str []byte) {
	switch sb.mode {
	case sbModeUpper:
		str = bytes.ToUpper(str)
	case sbModeLower:
		str = bytes.ToLower(str)
	}
	*result = append(*result, str...)
}

// appendCode appends a codepoint checking its validity in the target
// encoding.
func (sb *StringBuilding) appendCode(result *[]byte, value int64) bool {
	if sb.codepage == view.SCCpUTF8 {
		if value < 0 || !utf8.ValidRune(rune(value)) {
			return false
		}
		chr := rune(value)
		switch sb.mode {
		case sbModeUpper:
			chr = unicode.ToUpper(chr)
		case sbModeLower:
			chr = unicode.ToLower(chr)
		}
		*result = utf8.AppendRune(*result, chr)
		return true
	}
	if value < 0 || value > 0xFF {
		return false
	}
	chr := rune(value)
	switch sb.mode {
	case sbModeUpper:
		chr = asciiToUpper(chr)
	case sbModeLower:
		if chr >= 'A' && chr <= 'Z' {
			chr += 'a' - 'A'
		}
	}
	*result = append(*result, byte(chr))
	return true
}

// EscapeString prefixes characters that would terminate the current
// string argument with ^Q, for completion insertion.
func (sb *StringBuilding) EscapeString(s string) string {
	var out []byte
	for _, chr := range s {
		if unicode.ToUpper(chr) == sb.escape ||
			(sb.escape == '[' && chr == ']') ||
			(sb.escape == '{' && chr == '}') {
			out = append(out, CtlKey('Q'))
		}
		out = utf8.AppendRune(out, chr)
	}
	return string(out)
}
