/*
 * SciTECO - Display interface.
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

// Package display defines the terminal/windowing boundary of the
// runtime and provides the batch back end used for --fake-cmdline
// execution and tests. The curses back end lives in display/curses.
package display

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// MsgType classifies user messages for the message bar.
type MsgType int

const (
	MsgInfo MsgType = iota
	MsgWarning
	MsgError
)

// PopupKind selects the rendering of completion popup entries.
type PopupKind int

const (
	PopupPlain PopupKind = iota
	PopupFile
	PopupDirectory
)

// EOF is returned by Getch when no further input is available.
const EOF = -1

// Display is everything the runtime needs from a terminal back end.
type Display interface {
	// Msg shows a message in the message bar. Errors ring the bell.
	Msg(typ MsgType, format string, args ...interface{})
	// MsgClear wipes the message bar before processing a keypress.
	MsgClear()

	// CmdlineUpdate redraws the command line; effectiveLen
	// separates the executed prefix from the rubbed-out suffix.
	CmdlineUpdate(cmdline string, effectiveLen int)
	// InfoUpdate announces the currently edited buffer or register
	// for the title bar.
	InfoUpdate(name string, dirty bool)

	// Popup management for completions.
	PopupAdd(kind PopupKind, name string, highlight bool)
	PopupShow()
	PopupClear()

	// Clipboard access. Name is the register suffix
	// ("" or "P", "S", "C" for primary/secondary/clipboard).
	SetClipboard(name string, data []byte) error
	GetClipboard(name string) ([]byte, error)

	// Getch blocks for the next key and returns its codepoint, or
	// EOF when input is exhausted.
	Getch() rune

	// Refresh flushes pending drawing.
	Refresh()
}

// Interrupted is the asynchronous interruption flag (^C / SIGINT).
// The interpreter polls it at safe points; the display or signal
// handler sets it.
var Interrupted atomic.Bool

// IsInterrupted polls and clears the interruption flag.
func IsInterrupted() bool {
	return Interrupted.Swap(false)
}

// Batch is the non-interactive display: keystrokes come from a
// predefined string (--fake-cmdline), messages go to the log.
// It doubles as the test mock.
type Batch struct {
	// Input is consumed rune by rune by Getch.
	Input []rune
	pos   int

	// Messages records everything shown via Msg, newest last.
	Messages []string
	// LastType is the type of the newest message.
	LastType MsgType

	// Clipboards emulates the system clipboards.
	Clipboards map[string][]byte

	// Popup records completion entries added since the last clear.
	Popup []string

	// Cmdline mirrors the last CmdlineUpdate call.
	Cmdline      string
	EffectiveLen int
}

// NewBatch creates a batch display feeding keys from input.
func NewBatch(input string) *Batch {
	return &Batch{Input: []rune(input), Clipboards: make(map[string][]byte)}
}

func (b *Batch) Msg(typ MsgType, format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	b.Messages = append(b.Messages, text)
	b.LastType = typ
	switch typ {
	case MsgError:
		slog.Error(text)
	case MsgWarning:
		slog.Warn(text)
	default:
		slog.Info(text)
	}
}

func (b *Batch) MsgClear() {}

// LastMessage returns the newest message, or "".
func (b *Batch) LastMessage() string {
	if len(b.Messages) == 0 {
		return ""
	}
	return b.Messages[len(b.Messages)-1]
}

func (b *Batch) CmdlineUpdate(cmdline string, effectiveLen int) {
	b.Cmdline, b.EffectiveLen = cmdline, effectiveLen
}

func (b *Batch) InfoUpdate(name string, dirty bool) {}

func (b *Batch) PopupAdd(kind PopupKind, name string, highlight bool) {
	b.Popup = append(b.Popup, name)
}

func (b *Batch) PopupShow()  {}
func (b *Batch) PopupClear() { b.Popup = nil }

func (b *Batch) SetClipboard(name string, data []byte) error {
	b.Clipboards[name] = append([]byte{}, data...)
	return nil
}

func (b *Batch) GetClipboard(name string) ([]byte, error) {
	return append([]byte{}, b.Clipboards[name]...), nil
}

func (b *Batch) Getch() rune {
	if b.pos >= len(b.Input) {
		return EOF
	}
	r := b.Input[b.pos]
	b.pos++
	return r
}

func (b *Batch) Refresh() {}
