/*
 * SciTECO - Runtime error values.
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

// Package errs defines the error values produced by the language runtime.
//
// Every failing command yields an *Error carrying a kind, a message and
// a source position. A few kinds are pure control flow (Quit, Return,
// Cmdline) and are consumed by the command-line manager instead of
// being displayed.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a runtime error.
type Kind int

const (
	// Failed is the catch-all for command failures.
	Failed Kind = iota
	Syntax
	Modifier
	ArgExpected
	Range
	Codepoint
	InvalidBuf
	InvalidQReg
	QRegContainsNull
	EditingLocalQReg
	Memlimit
	Interrupted
	// Win is reserved for platform errors on foreign systems.
	Win

	// The following kinds are control flow rather than failures.
	// Their order matters: everything >= Cmdline is consumed by the
	// command-line manager without being displayed.

	// Cmdline requests command-line replacement (the } command).
	Cmdline
	// Return terminates the current macro early ($$).
	Return
	// Quit terminates the process (EX).
	Quit
)

// Frame is one entry of the macro call stack attached to an error.
type Frame struct {
	Desc string // "macro M q", "file ...", "toplevel"
	Pos  int    // byte offset into that frame's macro
	Line int
	Col  int
}

// Error is the runtime error type.
type Error struct {
	Kind Kind
	Msg  string

	// Pos is the byte offset of the failing command into the
	// innermost macro. Line and Col are derived from it lazily by
	// SetCoord.
	Pos  int
	Line int
	Col  int

	Frames []Frame
}

func (e *Error) Error() string {
	if e.Msg == "" {
		switch e.Kind {
		case Quit:
			return "quit"
		case Return:
			return "return"
		case Cmdline:
			return "command-line replacement"
		}
	}
	return e.Msg
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: -1}
}

// SyntaxError reports an unexpected character.
func SyntaxError(chr rune) *Error {
	return New(Syntax, "Syntax error \"%c\" (U+%04X)", chr, chr)
}

// ModifierError reports a : or @ modifier not accepted by a command.
func ModifierError(chr rune) *Error {
	return New(Modifier, "Unexpected modifier on command \"%c\"", chr)
}

// ArgExpectedError reports a missing numeric argument.
func ArgExpectedError(cmd string) *Error {
	return New(ArgExpected, "Argument expected for <%s>", cmd)
}

// InterruptedError is returned when execution was interrupted (^C).
func InterruptedError() *Error {
	return New(Interrupted, "Interrupted")
}

// KindOf extracts the runtime error kind of err.
// Foreign errors map to Failed.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Failed
}

// IsControlFlow tells whether err is consumed as control flow by the
// command-line manager instead of being displayed.
func IsControlFlow(err error) bool {
	return KindOf(err) >= Cmdline
}

// SetCoord attaches the failing position to err and translates it to
// line and column within macro. It is a no-op for foreign errors and
// errors that already carry a position.
func SetCoord(err error, macro string, pos int) {
	var e *Error
	if !errors.As(err, &e) || e.Pos >= 0 {
		return
	}
	e.Pos = pos
	e.Line, e.Col = coord(macro, pos)
}

// AddFrame pushes a macro invocation frame onto err's call stack.
func AddFrame(err error, desc string) {
	var e *Error
	if !errors.As(err, &e) {
		return
	}
	e.Frames = append(e.Frames, Frame{Desc: desc, Pos: e.Pos, Line: e.Line, Col: e.Col})
	// Positions of outer frames are attached by their own SetCoord
	// calls; reset so the outer macro's coordinates win.
	e.Pos = -1
}

// Display formats the full error including the call stack.
func Display(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Msg)
	if e.Line > 0 {
		fmt.Fprintf(&b, " (at %d:%d)", e.Line, e.Col)
	}
	for i := len(e.Frames) - 1; i >= 0; i-- {
		f := e.Frames[i]
		fmt.Fprintf(&b, "\n\tin %s at %d:%d", f.Desc, f.Line, f.Col)
	}
	return b.String()
}

func coord(macro string, pos int) (line, col int) {
	line, col = 1, 1
	if pos > len(macro) {
		pos = len(macro)
	}
	for _, c := range macro[:pos] {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
