/*
 * SciTECO - Runtime configuration and environment defaults.
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

// Package config holds the process-global runtime configuration: the
// ED flags register backing store, memory-limit presets and the
// environment defaults (SCITECOCONFIG, SCITECOPATH, HOME).
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/util/files"
)

// ED flag bits (the ^E register).
const (
	EDAutoEOL        int64 = 1 << 0
	EDIcons          int64 = 1 << 1
	EDFnKeys         int64 = 1 << 2
	EDMouseKey       int64 = 1 << 3
	EDXtermClipboard int64 = 1 << 4
	EDOSC52          int64 = 1 << 5
	EDDefaultANSI    int64 = 1 << 6
	EDAutoCaseFold   int64 = 1 << 7

	// EDMemlimitMask selects a memory-limit preset in the lowest
	// dedicated bits.
	EDMemlimitShift       = 8
	EDMemlimitMask  int64 = 0x7 << EDMemlimitShift
)

// ED is the flags register backing store.
var ED = EDAutoEOL

// memlimitPresets are the soft memory limits in bytes selectable via
// the ED mask; index 0 is the default.
var memlimitPresets = []uint64{
	500 * 1024 * 1024,
	100 * 1024 * 1024,
	250 * 1024 * 1024,
	1024 * 1024 * 1024,
	2048 * 1024 * 1024,
	0, // unlimited
}

// MemoryLimit returns the currently selected soft memory limit in
// bytes (0 means unlimited).
func MemoryLimit() uint64 {
	idx := (ED & EDMemlimitMask) >> EDMemlimitShift
	if int(idx) >= len(memlimitPresets) {
		idx = 0
	}
	return memlimitPresets[idx]
}

// memCheckCounter rate-limits the expensive ReadMemStats call.
var memCheckCounter uint

// CheckMemory enforces the soft memory limit. Called once per parser
// step; failures roll the step back. The actual measurement is
// sampled since reading memory statistics stops the world.
func CheckMemory() error {
	memCheckCounter++
	if memCheckCounter&0x3ff != 0 {
		return nil
	}
	limit := MemoryLimit()
	if limit == 0 {
		return nil
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	if stats.HeapAlloc > limit {
		return errs.New(errs.Memlimit,
			"Memory limit of %d bytes exceeded (%d in use)", limit, stats.HeapAlloc)
	}
	return nil
}

// TrimMemory gives memory back to the OS after hitting the limit or
// after large rubouts.
func TrimMemory() {
	runtime.GC()
}

// Clipboard subprocess templates; "{}" expands to the selection name.
var (
	ClipboardSetCmd = os.Getenv("SCITECO_CLIPBOARD_SET")
	ClipboardGetCmd = os.Getenv("SCITECO_CLIPBOARD_GET")
)

// InitEnvironment canonicalises $HOME and fills in the platform
// defaults for $SCITECOCONFIG and $SCITECOPATH. Must run before the
// environment is loaded into the global register table.
func InitEnvironment() {
	home := os.Getenv("HOME")
	if home == "" {
		if dir, err := os.UserHomeDir(); err == nil {
			home = dir
		}
	}
	home = files.AbsPath(home)
	if home != "" {
		if err := os.Setenv("HOME", home); err != nil {
			slog.Error("cannot canonicalize $HOME", "err", err)
		}
	}

	if os.Getenv("SCITECOCONFIG") == "" {
		_ = os.Setenv("SCITECOCONFIG", home)
	}
	if os.Getenv("SCITECOPATH") == "" {
		_ = os.Setenv("SCITECOPATH", filepath.Join("/usr", "local", "share", "sciteco", "lib"))
	}
}

// ProfilePath returns the path of the user profile macro.
func ProfilePath() string {
	return filepath.Join(os.Getenv("SCITECOCONFIG"), ".teco_ini")
}
