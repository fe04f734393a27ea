/*
 * SciTECO - Curses-style terminal display.
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

// Package curses implements the terminal display on top of tcell.
package curses

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/gdamore/tcell/v2"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding/charmap"

	"github.com/rhaberkorn/sciteco-sub000/config"
	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

type popupEntry struct {
	kind      display.PopupKind
	name      string
	highlight bool
}

// UI is the tcell-backed display.
type UI struct {
	screen tcell.Screen
	view   *view.View

	msg     string
	msgType display.MsgType

	info      string
	infoDirty bool

	cmdline string
	effLen  int

	popup      []popupEntry
	popupShown bool

	keys chan keyEvent
	quit chan struct{}

	// fallback store for clipboards without any configured
	// transport
	local map[string][]byte
}

type keyEvent struct {
	chr   rune
	named string
}

// New initialises the terminal.
func New(v *view.View) (*UI, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	ui := &UI{
		screen: screen,
		view:   v,
		keys:   make(chan keyEvent, 64),
		quit:   make(chan struct{}),
		local:  map[string][]byte{},
	}
	go ui.pump()
	return ui, nil
}

// Close restores the terminal.
func (ui *UI) Close() {
	close(ui.quit)
	ui.screen.Fini()
}

// pump translates tcell events into key events.
func (ui *UI) pump() {
	for {
		ev := ui.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyCtrlC:
				display.Interrupted.Store(true)
			case tcell.KeyRune:
				ui.send(keyEvent{chr: ev.Rune()})
			case tcell.KeyEnter:
				ui.send(keyEvent{chr: '\n'})
			case tcell.KeyTab:
				ui.send(keyEvent{chr: '\t'})
			case tcell.KeyEscape:
				ui.send(keyEvent{chr: 0x1b})
			case tcell.KeyBackspace, tcell.KeyBackspace2:
				ui.send(keyEvent{chr: '\b'})
			case tcell.KeyDelete:
				ui.send(keyEvent{named: "DC"})
			case tcell.KeyUp:
				ui.send(keyEvent{named: "UP"})
			case tcell.KeyDown:
				ui.send(keyEvent{named: "DOWN"})
			case tcell.KeyLeft:
				ui.send(keyEvent{named: "LEFT"})
			case tcell.KeyRight:
				ui.send(keyEvent{named: "RIGHT"})
			case tcell.KeyHome:
				ui.send(keyEvent{named: "HOME"})
			case tcell.KeyEnd:
				ui.send(keyEvent{named: "END"})
			case tcell.KeyPgUp:
				ui.send(keyEvent{named: "PPAGE"})
			case tcell.KeyPgDn:
				ui.send(keyEvent{named: "NPAGE"})
			default:
				if ev.Key() >= tcell.KeyCtrlA && ev.Key() <= tcell.KeyCtrlZ {
					ui.send(keyEvent{chr: rune(ev.Key())})
				} else if ev.Key() >= tcell.KeyF1 && ev.Key() <= tcell.KeyF12 {
					ui.send(keyEvent{named: fmt.Sprintf("F%d", int(ev.Key()-tcell.KeyF1)+1)})
				}
			}
		case *tcell.EventResize:
			ui.screen.Sync()
		}
	}
}

func (ui *UI) send(ev keyEvent) {
	select {
	case ui.keys <- ev:
	case <-ui.quit:
	}
}

// Getch blocks for the next key press; named keys are skipped here
// and delivered only through GetchNamed.
func (ui *UI) Getch() rune {
	for {
		select {
		case ev := <-ui.keys:
			if ev.named != "" {
				// Delivered through GetchNamed only.
				continue
			}
			return ev.chr
		case <-ui.quit:
			return display.EOF
		}
	}
}

// GetchNamed blocks for the next key press, reporting either a rune
// or a named function key.
func (ui *UI) GetchNamed() (rune, string) {
	select {
	case ev := <-ui.keys:
		return ev.chr, ev.named
	case <-ui.quit:
		return display.EOF, ""
	}
}

func (ui *UI) Msg(typ display.MsgType, format string, args ...interface{}) {
	ui.msg = fmt.Sprintf(format, args...)
	ui.msgType = typ
	if typ == display.MsgError {
		ui.screen.Beep()
	}
	slog.Info(ui.msg)
	ui.Refresh()
}

func (ui *UI) MsgClear() {
	ui.msg = ""
	ui.msgType = display.MsgInfo
}

func (ui *UI) CmdlineUpdate(cmdline string, effectiveLen int) {
	ui.cmdline = cmdline
	ui.effLen = effectiveLen
	ui.Refresh()
}

func (ui *UI) InfoUpdate(name string, dirty bool) {
	ui.info = name
	ui.infoDirty = dirty
}

func (ui *UI) PopupAdd(kind display.PopupKind, name string, highlight bool) {
	ui.popup = append(ui.popup, popupEntry{kind: kind, name: name, highlight: highlight})
}

func (ui *UI) PopupShow() {
	ui.popupShown = true
	ui.Refresh()
}

func (ui *UI) PopupClear() {
	ui.popup = nil
	ui.popupShown = false
}

// SetClipboard runs the configured subprocess template when one is
// set and otherwise keeps the data in an in-process store. It does
// not use OSC 52.
func (ui *UI) SetClipboard(name string, data []byte) error {
	if config.ClipboardSetCmd != "" {
		cmd := clipCommand(config.ClipboardSetCmd, name)
		cmd.Stdin = strings.NewReader(string(data))
		return cmd.Run()
	}
	ui.local[name] = append([]byte{}, data...)
	return nil
}

func (ui *UI) GetClipboard(name string) ([]byte, error) {
	if config.ClipboardGetCmd != "" {
		cmd := clipCommand(config.ClipboardGetCmd, name)
		out, err := cmd.Output()
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return append([]byte{}, ui.local[name]...), nil
}

func clipCommand(template, name string) *exec.Cmd {
	line := strings.ReplaceAll(template, "{}", name)
	return exec.Command("/bin/sh", "-c", line)
}

// Refresh redraws the buffer view, message bar and command line.
func (ui *UI) Refresh() {
	ui.screen.Clear()
	width, height := ui.screen.Size()
	if height < 3 {
		ui.screen.Show()
		return
	}

	// Title bar.
	title := ui.info
	if ui.infoDirty {
		title += " *"
	}
	drawText(ui.screen, 0, 0, width, title, tcell.StyleDefault.Reverse(true))

	// Buffer contents.
	text := decodeDoc(ui.view.Doc())
	lines := strings.Split(text, "\n")
	first := int(ui.view.State().FirstLine)
	y := 1
	for i := first; i < len(lines) && y < height-2; i++ {
		drawText(ui.screen, 0, y, width, lines[i], tcell.StyleDefault)
		y++
	}

	// Popup overlay.
	if ui.popupShown && len(ui.popup) > 0 {
		py := height - 3 - len(ui.popup)
		if py < 1 {
			py = 1
		}
		for i, e := range ui.popup {
			if py+i >= height-2 {
				break
			}
			style := tcell.StyleDefault.Reverse(e.highlight)
			drawText(ui.screen, 0, py+i, width, e.name, style)
		}
	}

	// Message bar.
	style := tcell.StyleDefault
	if ui.msgType == display.MsgError {
		style = style.Bold(true)
	}
	drawText(ui.screen, 0, height-2, width, ui.msg, style)

	// Command line: the rubbed-out suffix is shown dimmed.
	prefix := echoString(ui.cmdline[:min(ui.effLen, len(ui.cmdline))])
	suffix := echoString(ui.cmdline[min(ui.effLen, len(ui.cmdline)):])
	x := drawText(ui.screen, 0, height-1, width, "*"+prefix, tcell.StyleDefault)
	drawText(ui.screen, x, height-1, width, suffix, tcell.StyleDefault.Dim(true))
	ui.screen.ShowCursor(x, height-1)

	ui.screen.Show()
}

// decodeDoc renders document bytes for display; single-byte documents
// are interpreted as Windows-1252.
func decodeDoc(d *view.Doc) string {
	if d.Codepage() == view.SCCpUTF8 {
		return string(d.Bytes())
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(d.Bytes())
	if err != nil {
		return string(d.Bytes())
	}
	return string(out)
}

// echoString renders control characters in caret notation.
func echoString(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c < 32 {
			b.WriteByte('^')
			b.WriteRune(c + '@')
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// drawText draws a clipped string, returning the final column.
func drawText(s tcell.Screen, x, y, maxX int, text string, style tcell.Style) int {
	for _, c := range text {
		w := runewidth.RuneWidth(c)
		if x+w > maxX {
			break
		}
		s.SetContent(x, y, c, nil, style)
		x += w
	}
	return x
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
