/*
 * SciTECO - Command-line manager.
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

// Package cmdline implements the top-level interactive loop: it feeds
// keystrokes to the parser, commits or rolls back side effects, and
// performs the immediate editing commands (rubout, rub-out-word,
// completion, command-line replacement).
package cmdline

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/rhaberkorn/sciteco-sub000/config"
	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/machine"
	"github.com/rhaberkorn/sciteco-sub000/util/files"
)

// Immediate editing keys.
const (
	keyRubout   = '\b'   // ^H
	keyRubWord  = '\x17' // ^W
	keyRubStr   = '\x15' // ^U
	keyComplete = '\t'
	keyModifier = '\x07' // ^G
)

// Cmdline is the command-line state (§3).
type Cmdline struct {
	rt *machine.Runtime

	// Str is the full command line: executed prefix plus
	// rubbed-out suffix.
	Str []byte
	// EffectiveLen is the byte length of the executed prefix.
	EffectiveLen int
	// pc is the parse position; equals EffectiveLen between input
	// steps.
	pc int

	// ModifierEnabled switches ^H/^W/TAB between rubout and
	// re-insertion (toggled by ^G).
	ModifierEnabled bool

	lastCmdline []byte
}

// New creates a command-line manager on top of a runtime.
func New(rt *machine.Runtime) *Cmdline {
	rt.Interactive = true
	rt.Undo.Enabled = true
	return &Cmdline{rt: rt}
}

// Last returns the previously committed command line.
func (cl *Cmdline) Last() []byte { return cl.lastCmdline }

// Insert inserts data into the command line and executes it
// immediately, handling command-line replacement (}).
func (cl *Cmdline) Insert(data string) error {
	m := cl.rt.CmdlineMachine
	cl.pc = cl.EffectiveLen
	m.PC = cl.pc

	suffix := cl.Str[cl.EffectiveLen:]
	if len(data) <= len(suffix) && bytes.HasPrefix(suffix, []byte(data)) {
		// Re-insertion fast path: the characters are already in
		// the rubbed-out suffix, so the suffix is kept; the loop
		// below steps them through the parser again to rebuild
		// the state their rubout rolled back.
		cl.EffectiveLen += len(data)
	} else {
		if cl.EffectiveLen < len(cl.Str) {
			// Divergence drops the rubbed-out suffix and
			// disables the immediate editing modifier.
			cl.ModifierEnabled = false
		}
		cl.Str = append(cl.Str[:cl.EffectiveLen], data...)
		cl.EffectiveLen = len(cl.Str)
	}

	var oldCmdline []byte
	replPC := 0

	// Parse/execute one character at a time so undo tokens are
	// attributed to their input character.
	for cl.pc < cl.EffectiveLen {
		cl.rt.Undo.Pos = cl.pc

		err := m.Step(string(cl.Str), cl.pc+1)
		if err == nil {
			cl.pc = m.PC
			continue
		}

		if errs.KindOf(err) == errs.Cmdline {
			// Command-line replacement: exchange command
			// lines, rubbing out only up to the first
			// differing character.
			escReg := cl.rt.QEnv.Globals.Find("\x1b")
			newCmdline, _, gerr := escReg.GetString(cl.rt.QEnv)
			if gerr != nil {
				return gerr
			}

			cl.pc = diffPos(cl.Str, newCmdline)
			cl.rt.Undo.Pop(cl.pc)

			oldCmdline = cl.Str
			cl.Str = newCmdline
			cl.EffectiveLen = len(newCmdline)
			replPC = cl.pc
			m.PC = cl.pc
			continue
		}

		if !errs.IsControlFlow(err) {
			cl.rt.Display.Msg(display.MsgError, "%s", errs.Display(err))

			if oldCmdline != nil {
				// Error during command-line replacement:
				// replay the previous command line and rub
				// out the } command itself.
				cl.rt.Undo.Pop(replPC)
				cl.Str = oldCmdline
				oldCmdline = nil
				cl.pc = replPC
				m.PC = replPC
				cl.EffectiveLen = len(cl.Str) - 1
				continue
			}
		}

		return err
	}

	return nil
}

// Rubin re-inserts the next rubbed-out glyph by feeding it back
// through the parser.
func (cl *Cmdline) Rubin() error {
	if cl.EffectiveLen >= len(cl.Str) {
		return nil
	}
	_, size := utf8.DecodeRune(cl.Str[cl.EffectiveLen:])
	return cl.Insert(string(cl.Str[cl.EffectiveLen : cl.EffectiveLen+size]))
}

// Rubout removes the last glyph of the effective command line,
// undoing its side effects. The character is kept for re-insertion.
func (cl *Cmdline) Rubout() {
	if cl.EffectiveLen == 0 {
		return
	}
	_, size := utf8.DecodeLastRune(cl.Str[:cl.EffectiveLen])
	cl.EffectiveLen -= size
	cl.rt.Undo.Pop(cl.EffectiveLen)
	cl.rt.CmdlineMachine.PC = cl.EffectiveLen
	cl.pc = cl.EffectiveLen
}

// RuboutWord rubs out an entire syntactic construct: characters are
// removed until the parser rests at a start state with no pending
// modifiers, additionally skipping no-op whitespace.
func (cl *Cmdline) RuboutWord() {
	m := cl.rt.CmdlineMachine
	// Always rub out at least one character.
	cl.Rubout()
	for cl.EffectiveLen > 0 {
		if m.Current().IsStart && !m.ModifiersPending() &&
			!machine.IsNoop(lastRune(cl.Str[:cl.EffectiveLen])) {
			break
		}
		cl.Rubout()
	}
}

// RubinWord re-inserts until the parser reaches the next start state.
func (cl *Cmdline) RubinWord() error {
	m := cl.rt.CmdlineMachine
	if err := cl.Rubin(); err != nil {
		return err
	}
	for cl.EffectiveLen < len(cl.Str) {
		if m.Current().IsStart && !m.ModifiersPending() {
			break
		}
		if err := cl.Rubin(); err != nil {
			return err
		}
	}
	return nil
}

// RuboutString rubs out an entire string argument (^U within string
// states).
func (cl *Cmdline) RuboutString() {
	m := cl.rt.CmdlineMachine
	state := m.Current()
	for cl.EffectiveLen > 0 && m.Current() == state {
		cl.Rubout()
	}
	// The transition character into the string state has been
	// rubbed out as well; re-insert it so the state is kept but
	// the string is empty.
	if m.Current() != state {
		_ = cl.Rubin()
	}
}

// Keypress processes one keystroke worth of input: immediate editing
// commands first, everything else goes through the parser. Errors
// other than control flow are displayed and rolled back here.
func (cl *Cmdline) Keypress(chr rune) error {
	cl.rt.Display.MsgClear()
	startPC := cl.EffectiveLen

	err := cl.processEditCmd(chr)
	if err == nil {
		cl.rt.Display.CmdlineUpdate(string(cl.Str), cl.EffectiveLen)
		return nil
	}

	if errs.KindOf(err) != errs.Return {
		// Error message was already displayed by Insert. Undo
		// everything the keystroke did, as if it was never
		// pressed.
		cl.rt.Undo.Pop(startPC)
		cl.EffectiveLen = startPC
		cl.pc = startPC
		cl.rt.CmdlineMachine.PC = startPC
		if errs.KindOf(err) == errs.Memlimit {
			config.TrimMemory()
		}
		if errs.KindOf(err) == errs.Quit {
			return err
		}
		cl.rt.Display.CmdlineUpdate(string(cl.Str), cl.EffectiveLen)
		return nil
	}

	// Return from the top-level macro: command-line termination.
	if cl.rt.QuitRequested {
		return errs.New(errs.Quit, "")
	}
	cl.Commit()
	cl.rt.Display.CmdlineUpdate(string(cl.Str), cl.EffectiveLen)
	return nil
}

// Commit finalises the command line: side effects become permanent,
// the undo stack and all parser state are cleared.
func (cl *Cmdline) Commit() {
	cl.rt.Display.PopupClear()

	cl.rt.Undo.Clear()
	cl.rt.Undo.Pos = 0
	cl.rt.Expr.Clear()
	cl.rt.LoopStack = cl.rt.LoopStack[:0]
	cl.rt.CmdlineMachine.Reset()
	cl.rt.CmdlineMachine.PC = 0

	files.CommitSavePoints()

	cl.lastCmdline = cl.Str
	cl.Str = nil
	cl.EffectiveLen = 0
	cl.pc = 0

	config.TrimMemory()
}

// processEditCmd implements the immediate editing commands; anything
// unhandled is inserted into the command line.
func (cl *Cmdline) processEditCmd(key rune) error {
	m := cl.rt.CmdlineMachine

	switch key {
	case keyModifier:
		cl.ModifierEnabled = !cl.ModifierEnabled
		if cl.ModifierEnabled {
			cl.rt.Display.Msg(display.MsgInfo, "Modifier enabled")
		} else {
			cl.rt.Display.Msg(display.MsgInfo, "Modifier disabled")
		}
		return nil

	case keyRubout:
		if cl.ModifierEnabled {
			return cl.Rubin()
		}
		cl.Rubout()
		return nil

	case keyRubWord:
		if inStringArg(m) {
			// Inside string arguments ^W is a string
			// building construct when modified.
			break
		}
		if cl.ModifierEnabled {
			return cl.RubinWord()
		}
		cl.RuboutWord()
		return nil

	case keyRubStr:
		if inStringArg(m) && !cl.ModifierEnabled {
			cl.RuboutString()
			return nil
		}

	case keyComplete:
		if m.Current().Completions != nil {
			return cl.complete()
		}
	}

	return cl.Insert(string(key))
}

// inStringArg tells whether the parser is currently collecting a
// string argument.
func inStringArg(m *machine.Machine) bool {
	return m.Current().Done != nil
}

// complete performs TAB completion for the current state.
func (cl *Cmdline) complete() error {
	m := cl.rt.CmdlineMachine
	prefix := string(m.StringArg())
	candidates := m.Current().Completions(m, prefix)
	if len(candidates) == 0 {
		return nil
	}

	// Insert the longest unambiguous extension of the prefix.
	common := candidates[0].Text
	for _, c := range candidates[1:] {
		common = commonPrefix(common, c.Text)
	}

	if strings.HasPrefix(common, prefix) && len(common) > len(prefix) {
		insert := common[len(prefix):]
		insert = m.EscapeCompletion(insert)
		if len(candidates) == 1 && candidates[0].Final {
			insert += string(m.EscapeChar())
		}
		return cl.Insert(insert)
	}

	// Ambiguous: show the candidates.
	cl.rt.Display.PopupClear()
	for _, c := range candidates {
		cl.rt.Display.PopupAdd(c.Kind, c.Text, false)
	}
	cl.rt.Display.PopupShow()
	return nil
}

// KeypressNamed handles a named function key by expanding the ^K key
// macro register, if any.
func (cl *Cmdline) KeypressNamed(name string) error {
	m := cl.rt.CmdlineMachine
	reg := cl.rt.QEnv.Globals.Find("\x0b" + name)
	if reg == nil {
		if name == "CLOSE" {
			return errs.New(errs.Quit, "")
		}
		return nil
	}
	// Key macros are masked per state: start states and string
	// arguments permit them, lookahead states do not.
	mask := m.Current().KeymacroMask
	if mask&(machine.KeymacroMaskStart|machine.KeymacroMaskString) == 0 {
		return nil
	}
	str, _, err := reg.GetString(cl.rt.QEnv)
	if err != nil {
		return err
	}
	return cl.Keys(string(str))
}

// Keys feeds a whole string of keystrokes (batch --fake-cmdline mode
// and key macros).
func (cl *Cmdline) Keys(keys string) error {
	for _, chr := range keys {
		if err := cl.Keypress(chr); err != nil {
			return err
		}
	}
	return nil
}

func diffPos(a []byte, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

func lastRune(b []byte) rune {
	r, _ := utf8.DecodeLastRune(b)
	return r
}
