/*
 * SciTECO - Main process.
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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/term"

	"github.com/rhaberkorn/sciteco-sub000/config"
	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/display/curses"
	"github.com/rhaberkorn/sciteco-sub000/teco/cmdline"
	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/machine"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
	"github.com/rhaberkorn/sciteco-sub000/util/files"
	logger "github.com/rhaberkorn/sciteco-sub000/util/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	optEval := getopt.StringLong("eval", 'e', "", "Execute macro and exit")
	optMung := getopt.BoolLong("mung", 'm', "Execute the first positional argument as a script")
	optNoProfile := getopt.BoolLong("no-profile", 0, "Do not execute the profile macro")
	opt8Bit := getopt.BoolLong("8bit", '8', "Single-byte default encoding, no EOL translation")
	optFakeCmdline := getopt.StringLong("fake-cmdline", 0, "", "Batch-mode keystroke injection")
	optSandbox := getopt.BoolLong("sandbox", 0, "No profile, no clipboard subprocesses")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		return 0
	}

	var logWriter *os.File
	if *optLogFile != "" {
		var err error
		logWriter, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create log file:", err)
			return 1
		}
		defer logWriter.Close()
	}

	batch := *optEval != "" || *optMung || *optFakeCmdline != ""
	interactive := !batch && term.IsTerminal(int(os.Stdin.Fd()))

	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	var second *os.File
	if !interactive {
		second = os.Stderr
	}
	slog.SetDefault(slog.New(logger.NewHandler(logWriter, second,
		&slog.HandlerOptions{Level: programLevel})))

	slog.Debug("SciTECO started")

	config.InitEnvironment()
	if *opt8Bit {
		config.ED = (config.ED &^ config.EDAutoEOL) | config.EDDefaultANSI
	}
	if *optSandbox {
		*optNoProfile = true
		config.ClipboardSetCmd = ""
		config.ClipboardGetCmd = ""
	}

	// ^C interrupts long-running macros instead of killing the
	// process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)
	go func() {
		for range sigChan {
			display.Interrupted.Store(true)
		}
	}()

	// Save-point files must never survive the process.
	defer files.CommitSavePoints()

	args := getopt.Args()

	if interactive {
		return runInteractive(args, *optNoProfile)
	}
	return runBatch(args, *optEval, *optMung, *optFakeCmdline, *optNoProfile)
}

// seedBuffer appends the positional arguments to the unnamed buffer,
// one per line.
func seedBuffer(rt *machine.Runtime, args []string) {
	if len(args) == 0 {
		return
	}
	text := strings.Join(args, "\n") + "\n"
	rt.View.SSMText(view.SciAppendText, 0, []byte(text))
}

func runProfile(rt *machine.Runtime) error {
	path := config.ProfilePath()
	contents, err := os.ReadFile(path)
	if err != nil {
		// A missing profile is not an error.
		return nil
	}
	return rt.ExecuteFile(path, string(contents))
}

func runBatch(args []string, eval string, mung bool, fakeCmdline string, noProfile bool) int {
	batch := display.NewBatch(fakeCmdline)
	rt := machine.NewRuntime(batch)

	var script string
	var scriptName string
	if mung {
		if len(args) == 0 {
			slog.Error("--mung requires a script argument")
			return 1
		}
		scriptName = args[0]
		contents, err := os.ReadFile(scriptName)
		if err != nil {
			slog.Error("cannot read script", "path", scriptName, "err", err)
			return 1
		}
		script = string(contents)
		args = args[1:]
	}

	seedBuffer(rt, args)

	if !noProfile {
		if err := runProfile(rt); err != nil && errs.KindOf(err) != errs.Quit {
			slog.Error(errs.Display(err))
			return 1
		}
	}

	if eval != "" {
		if err := rt.ExecuteMacro(eval, nil); err != nil && errs.KindOf(err) != errs.Quit {
			slog.Error(errs.Display(err))
			return 1
		}
		return 0
	}

	if mung {
		if err := rt.ExecuteFile(scriptName, script); err != nil && errs.KindOf(err) != errs.Quit {
			slog.Error(errs.Display(err))
			return 1
		}
		return 0
	}

	// --fake-cmdline: feed keystrokes through the command-line
	// manager, exactly like interactive input.
	cl := cmdline.New(rt)
	for {
		chr := batch.Getch()
		if chr == display.EOF {
			return 0
		}
		if err := cl.Keypress(chr); err != nil {
			if errs.KindOf(err) == errs.Quit {
				return 0
			}
			slog.Error(errs.Display(err))
			return 1
		}
	}
}

func runInteractive(args []string, noProfile bool) int {
	rt := machine.NewRuntime(display.NewBatch(""))

	ui, err := curses.New(rt.View)
	if err != nil {
		slog.Error("cannot initialize terminal", "err", err)
		return 1
	}
	defer ui.Close()

	rt.Display = ui
	rt.QEnv.Display = ui

	seedBuffer(rt, args)

	if !noProfile {
		if err := runProfile(rt); err != nil {
			if errs.KindOf(err) == errs.Quit {
				return 0
			}
			ui.Msg(display.MsgError, "%s", errs.Display(err))
		}
	}

	cl := cmdline.New(rt)
	ui.Refresh()

	for {
		chr, named := ui.GetchNamed()
		if chr == display.EOF && named == "" {
			return 0
		}
		var err error
		if named != "" {
			err = cl.KeypressNamed(named)
		} else {
			err = cl.Keypress(chr)
		}
		if err != nil {
			if errs.KindOf(err) == errs.Quit {
				return 0
			}
			ui.Msg(display.MsgError, "%s", errs.Display(err))
		}
	}
}
