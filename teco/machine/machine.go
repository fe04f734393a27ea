/*
 * SciTECO - Main state machine.
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

// Package machine implements the TECO parser/executor: a state
// machine interpreting source text one code point per step while
// emitting undo tokens for every side effect.
package machine

import (
	"unicode/utf8"

	"github.com/rhaberkorn/sciteco-sub000/config"
	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/expr"
	"github.com/rhaberkorn/sciteco-sub000/teco/qreg"
	"github.com/rhaberkorn/sciteco-sub000/teco/ring"
	"github.com/rhaberkorn/sciteco-sub000/teco/undo"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

// Mode is the parser execution mode.
type Mode int

const (
	// ModeNormal executes commands.
	ModeNormal Mode = iota
	// ModeParseOnly advances through syntax without side effects
	// (skipped loops, conditionals).
	ModeParseOnly
	// ModeParseOnlyGoto is parse-only while searching for a goto
	// label.
	ModeParseOnlyGoto
	// ModeLexing records style bytes for syntax highlighting and
	// never executes.
	ModeLexing
)

// Flags are the modifier/mode flags of the main machine.
type Flags struct {
	Mode Mode
	// ModifierColon is the pending number of : prefixes (0-2).
	ModifierColon int
	// ModifierAt is the pending @ prefix.
	ModifierAt bool
}

// Key macro masks: which immediate key macros a state permits.
const (
	KeymacroMaskStart uint = 1 << iota
	KeymacroMaskString
	KeymacroMaskCaseInsensitive
	KeymacroMaskDefault = KeymacroMaskStart
)

// State describes one parser state. Input is the sole transition
// function; the remaining callbacks hook interactive editing,
// completion and lexing.
type State struct {
	Name string

	Input   func(m *Machine, chr rune) (*State, error)
	Initial func(m *Machine) error
	// Refresh runs when the PC reaches the end of the command line
	// (interactive feedback such as live insertion).
	Refresh    func(m *Machine) error
	EndOfMacro func(m *Machine) error

	// ProcessEditCmd intercepts immediate editing keys for this
	// state; nil falls back to the default handling in the
	// command-line manager.
	ProcessEditCmd func(m *Machine, key rune) (bool, error)
	// Completions produces completion candidates for TAB.
	Completions func(m *Machine, prefix string) []Completion
	// InsertCompletion re-escapes a completion before insertion.
	InsertCompletion func(m *Machine, s string) string

	Style        byte
	IsStart      bool
	KeymacroMask uint

	// expectstring configuration (§4.4).
	StringBuilding bool
	Last           bool
	Process        func(m *Machine, str []byte, newChars int) error
	Done           func(m *Machine, str []byte) (*State, error)
}

// Completion is one completion candidate.
type Completion struct {
	Text  string
	Kind  display.PopupKind
	Final bool // a complete value; append the terminator
}

// LoopContext is one active iteration.
type LoopContext struct {
	// PC is the program counter just after the < command.
	PC int
	// Counter is the remaining iteration count, -1 for infinite.
	Counter int
	// PassThrough marks loops entered with : (arguments are kept
	// on the stack across iterations).
	PassThrough bool
}

// Runtime bundles the entire interpreter state; one process may hold
// several for testing.
type Runtime struct {
	Undo    undo.Stack
	Expr    *expr.Stack
	View    *view.View
	Display display.Display
	QEnv    *qreg.Env
	Ring    *ring.Ring
	QStack  qreg.Stack

	LoopStack []LoopContext
	// SkipLabel is the label an O command is searching for.
	SkipLabel string

	QuitRequested bool

	// Interactive tells whether a command line is attached; it
	// enables the } command and live feedback.
	Interactive bool

	// CmdlineMachine is the machine bound to the command line.
	CmdlineMachine *Machine
}

// NewRuntime wires a complete runtime around a display back end.
func NewRuntime(disp display.Display) *Runtime {
	rt := &Runtime{
		View:    view.New(),
		Display: disp,
	}
	rt.Expr = expr.New(&rt.Undo)

	globals := qreg.NewTable(true, false)
	rt.QEnv = &qreg.Env{
		Undo:    &rt.Undo,
		View:    rt.View,
		Display: disp,
		Expr:    rt.Expr,
		Globals: globals,
	}
	globals.InitializeGlobals(&config.ED)
	globals.SetEnviron()

	rt.Ring = ring.New(rt.QEnv)
	rt.QEnv.SaveCurrent = rt.Ring.SaveCurrentState
	rt.QEnv.EditCurrentRing = func() {
		if b := rt.Ring.Current; b != nil {
			_ = rt.Ring.EditByID(rt.Ring.ID(b))
		}
	}
	rt.QEnv.RingInfo = rt.Ring.Info
	rt.QEnv.EditBufferByID = func(id int64) error {
		rt.Ring.UndoEdit()
		return rt.Ring.EditByID(id)
	}

	// The initial unnamed buffer. Not undoable: it exists from
	// process start.
	enabled := rt.Undo.Enabled
	rt.Undo.Enabled = false
	_, _ = rt.Ring.Edit("")
	rt.Undo.Enabled = enabled

	rt.CmdlineMachine = NewMachine(rt, true, nil)
	// The command line's locals are the outermost local table.
	rt.QEnv.LocalsStack = append(rt.QEnv.LocalsStack, rt.CmdlineMachine.Locals)
	return rt
}

// Machine is one parser instance: the command-line machine or a
// macro invocation.
type Machine struct {
	rt *Runtime

	current  *State
	MustUndo bool

	// PC is the program counter in bytes into the current macro.
	PC int

	Flags     Flags
	nestLevel int
	skipElse  bool

	loopFP int

	GotoTable *GotoTable
	gotoLabel []byte

	// Locals is this invocation's local register table.
	Locals *qreg.Table

	expectString struct {
		machine   *StringBuilding
		str       []byte
		nesting   int
		insertLen int
		// first string argument of a two-string command (FR),
		// kept while the second argument is collected.
		firstStr []byte
	}
	expectQReg *QRegSpec
	// qregArg holds the register between an expectqreg state and a
	// subsequent string argument (^Uq..., EQq...).
	qregArg qreg.Register
}

// NewMachine creates a parser bound to rt. Interactive machines
// record undo tokens; macro machines are reset wholesale on rubout.
func NewMachine(rt *Runtime, mustUndo bool, locals *qreg.Table) *Machine {
	if locals == nil {
		locals = qreg.NewTable(mustUndo, true)
		locals.Initialize()
	}
	m := &Machine{
		rt:       rt,
		current:  StateStart,
		MustUndo: mustUndo,
		loopFP:   len(rt.LoopStack),
		Locals:   locals,
	}
	m.GotoTable = NewGotoTable(mustUndo, &rt.Undo)
	m.expectString.nesting = 1
	m.expectString.machine = NewStringBuilding(m, '\x1b')
	return m
}

// Runtime returns the runtime the machine is bound to.
func (m *Machine) Runtime() *Runtime { return m.rt }

// Current returns the current state.
func (m *Machine) Current() *State { return m.current }

// Reset returns the machine to the start state (command-line commit).
func (m *Machine) Reset() {
	m.current = StateStart
	m.Flags = Flags{}
	m.nestLevel = 0
	m.skipElse = false
	m.gotoLabel = nil
	m.GotoTable.Clear()
	m.expectString.str = nil
	m.expectString.nesting = 1
	m.expectString.insertLen = 0
	m.expectString.firstStr = nil
	m.expectString.machine.Reset()
	m.expectString.machine.SetEscape('\x1b')
	m.expectQReg = nil
	m.qregArg = nil
}

// undoScalar is undo.Scalar gated by MustUndo.
func undoScalar[T any](m *Machine, p *T) {
	if m.MustUndo {
		undo.Scalar(&m.rt.Undo, p)
	}
}

// Input feeds one code point through the current state's transition
// function.
func (m *Machine) Input(chr rune) error {
	next, err := m.current.Input(m, chr)
	if err != nil {
		return err
	}
	if next != m.current {
		undoScalar(m, &m.current)
		m.current = next
		if next.Initial != nil {
			if err := next.Initial(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// ModifiersPending tells whether a : or @ prefix is waiting for its
// command.
func (m *Machine) ModifiersPending() bool {
	return m.Flags.ModifierColon > 0 || m.Flags.ModifierAt
}

// StringArg returns the string argument collected so far.
func (m *Machine) StringArg() []byte { return m.expectString.str }

// EscapeChar returns the current string terminator.
func (m *Machine) EscapeChar() rune { return m.expectString.machine.Escape() }

// EscapeCompletion re-escapes special characters of a completion for
// insertion into the current string argument.
func (m *Machine) EscapeCompletion(s string) string {
	if m.current.InsertCompletion != nil {
		return m.current.InsertCompletion(m, s)
	}
	if m.current.StringBuilding {
		return m.expectString.machine.EscapeString(s)
	}
	return s
}

// EvalColon consumes a pending colon modifier, returning its count.
func (m *Machine) EvalColon() int {
	c := m.Flags.ModifierColon
	if c == 0 {
		return 0
	}
	undoScalar(m, &m.Flags)
	m.Flags.ModifierColon = 0
	return c
}

// EvalAt consumes a pending at modifier.
func (m *Machine) EvalAt() bool {
	if !m.Flags.ModifierAt {
		return false
	}
	undoScalar(m, &m.Flags)
	m.Flags.ModifierAt = false
	return true
}

// checkModifiers rejects unconsumed modifiers a command does not
// declare. colonMax is the number of colons the command accepts.
func (m *Machine) checkModifiers(chr rune, colonMax int, at bool) error {
	if m.Flags.ModifierAt && !at {
		return errs.ModifierError(chr)
	}
	if m.Flags.Mode == ModeNormal && m.Flags.ModifierColon > colonMax {
		return errs.ModifierError(chr)
	}
	return nil
}

// Step executes source bytes from PC up to stopPos, decoding one code
// point per transition. Step does not roll back undo tokens itself:
// on error the tokens pushed during the call stay on the undo stack
// until the command-line manager pops the failing keystroke's frames
// after Step returns. The error carries the failing coordinate.
func (m *Machine) Step(source string, stopPos int) error {
	lastPC := m.PC

	for m.PC < stopPos {
		lastPC = m.PC

		if display.IsInterrupted() {
			err := errs.InterruptedError()
			errs.SetCoord(err, source, lastPC)
			return err
		}
		if err := config.CheckMemory(); err != nil {
			errs.SetCoord(err, source, lastPC)
			return err
		}

		chr, size := utf8.DecodeRuneInString(source[m.PC:])
		if chr == utf8.RuneError && size <= 1 {
			err := errs.New(errs.Codepoint, "Invalid UTF-8 byte sequence")
			errs.SetCoord(err, source, lastPC)
			return err
		}
		m.PC += size

		if err := m.Input(chr); err != nil {
			errs.SetCoord(err, source, lastPC)
			return err
		}
	}

	// Interactive feedback when the PC is at the end of the
	// command line.
	if m.current.Refresh != nil {
		if err := m.current.Refresh(m); err != nil {
			errs.SetCoord(err, source, lastPC)
			return err
		}
	}
	return nil
}

// ExecuteMacro runs a complete macro with fresh locals (or the given
// table for :M invocations).
func (rt *Runtime) ExecuteMacro(macro string, locals *qreg.Table) error {
	if !utf8.ValidString(macro) {
		return errs.New(errs.Codepoint, "Invalid UTF-8 byte sequence in macro")
	}

	m := NewMachine(rt, false, locals)
	ownLocals := locals == nil
	if ownLocals {
		rt.QEnv.LocalsStack = append(rt.QEnv.LocalsStack, m.Locals)
		defer func() {
			rt.QEnv.LocalsStack = rt.QEnv.LocalsStack[:len(rt.QEnv.LocalsStack)-1]
		}()
	}

	if err := m.Step(macro, len(macro)); err != nil {
		if errs.KindOf(err) != errs.Return {
			errs.AddFrame(err, "macro")
			return err
		}
		// Macro returned early; the machine is at a start state
		// by construction of $$. Clean up this invocation's
		// loops; returning from inside loops is allowed.
		rt.LoopStack = rt.LoopStack[:m.loopFP]
		rt.SkipLabel = ""
	}

	if rt.SkipLabel != "" {
		label := rt.SkipLabel
		rt.SkipLabel = ""
		return errs.New(errs.Failed, "Label \"%s\" not found", label)
	}

	if len(rt.LoopStack) > m.loopFP {
		rt.LoopStack = rt.LoopStack[:m.loopFP]
		return errs.New(errs.Failed, "Unterminated loop")
	}

	if m.current.EndOfMacro != nil {
		if err := m.current.EndOfMacro(m); err != nil {
			errs.AddFrame(err, "macro")
			return err
		}
	}
	if !m.current.IsStart {
		return errs.New(errs.Syntax, "Unterminated command")
	}

	// A local register still being edited when the invocation ends
	// would leave a dangling document in the view.
	if ownLocals && rt.QEnv.Current != nil && rt.QEnv.Current.Local() {
		return errs.New(errs.EditingLocalQReg,
			"Editing local Q-Register \"%s\" at end of macro", rt.QEnv.Current.Name())
	}

	return nil
}

// ExecuteFile runs a script file, skipping a leading hash-bang line.
func (rt *Runtime) ExecuteFile(filename string, contents string) error {
	macro := contents
	offset := 0
	if len(macro) > 0 && macro[0] == '#' {
		if i := indexAny(macro, "\r\n"); i >= 0 {
			offset = i + 1
			macro = macro[offset:]
		} else {
			return nil
		}
	}
	if err := rt.ExecuteMacro(macro, nil); err != nil {
		errs.AddFrame(err, "file \""+filename+"\"")
		return err
	}
	return nil
}

func indexAny(s, chars string) int {
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(chars); j++ {
			if s[i] == chars[j] {
				return i
			}
		}
	}
	return -1
}

// IsNoop tells whether c is a non-operational character in the start
// state.
func IsNoop(c rune) bool {
	return c == ' ' || c == '\f' || c == '\r' || c == '\n' || c == '\v'
}

// asciiToUpper folds ASCII letters only.
func asciiToUpper(c rune) rune {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// IsCtl tells whether c is a control character.
func IsCtl(c rune) bool { return c < 32 }

// CtlEcho returns the printable letter of a control character
// (^A for 1 etc.).
func CtlEcho(c rune) rune { return c + '@' }

// CtlKey returns the control character of a letter (^ notation).
func CtlKey(c rune) rune { return c &^ 0x60 }
