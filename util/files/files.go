/*
 * SciTECO - File utilities and save-point protocol.
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

// Package files holds the file-system helpers of the runtime: path
// canonicalisation, tilde expansion and the save-point protocol for
// atomic, rubout-safe writes.
package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// AbsPath canonicalises path: absolute, symlinks resolved where
// possible. Used before comparing buffer filenames.
func AbsPath(path string) string {
	if path == "" {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// ExpandPath performs leading-tilde expansion against $HOME.
func ExpandPath(path string) string {
	if path == "~" {
		return os.Getenv("HOME")
	}
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return filepath.Join(os.Getenv("HOME"), path[2:])
	}
	return path
}

// savePointSeq numbers save-point files in ascending creation order.
var savePointSeq int

// activeSavePoints tracks files to unlink at command-line commit or
// process exit.
var activeSavePoints = map[string]struct{}{}

// SavePointName builds the save-point file name for path:
// ".teco-N-<base>~" in path's directory.
func SavePointName(path string, n int) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, fmt.Sprintf(".teco-%d-%s~", n, base))
}

// MakeSavePoint renames path aside before it is overwritten.
// It returns the save-point name, or "" if path did not exist (a
// fresh file needs no save point). The caller's undo token must call
// RestoreSavePoint to get the original file back on rubout.
func MakeSavePoint(path string) (string, error) {
	if _, err := os.Lstat(path); err != nil {
		return "", nil
	}
	savePointSeq++
	sp := SavePointName(path, savePointSeq)
	if err := os.Rename(path, sp); err != nil {
		return "", fmt.Errorf("cannot create save point for %s: %w", path, err)
	}
	activeSavePoints[sp] = struct{}{}
	return sp, nil
}

// RestoreSavePoint moves a save-point file back over path (rubout of
// a save command).
func RestoreSavePoint(savePoint, path string) {
	if savePoint == "" {
		// The save created the file; undo removes it.
		if err := os.Remove(path); err != nil {
			slog.Error("cannot remove restored file", "path", path, "err", err)
		}
		return
	}
	if err := os.Rename(savePoint, path); err != nil {
		slog.Error("cannot restore save point", "savepoint", savePoint, "err", err)
		return
	}
	delete(activeSavePoints, savePoint)
}

// CommitSavePoints unlinks all save-point files (command-line commit
// or process exit).
func CommitSavePoints() {
	for sp := range activeSavePoints {
		if err := os.Remove(sp); err != nil && !os.IsNotExist(err) {
			slog.Error("cannot remove save point", "savepoint", sp, "err", err)
		}
		delete(activeSavePoints, sp)
	}
}

// WriteAtomic writes data to path after moving any existing file to a
// save point. It returns the save-point name for the undo token
// ("" if the file is new).
func WriteAtomic(path string, data []byte) (string, error) {
	sp, err := MakeSavePoint(path)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0666); err != nil {
		// Roll the save point back immediately; the write itself
		// failed and must leave no trace.
		if sp != "" {
			RestoreSavePoint(sp, path)
		}
		return "", err
	}
	return sp, nil
}

// IsGlobPattern tells whether path contains glob metacharacters.
func IsGlobPattern(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// EscapeGlobPattern escapes glob metacharacters in path (the ^ENq
// string-building construct).
func EscapeGlobPattern(path string) string {
	var b strings.Builder
	for _, c := range path {
		if strings.ContainsRune("*?[]", c) {
			b.WriteByte('[')
			b.WriteRune(c)
			b.WriteByte(']')
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// ShellQuote quotes s for POSIX shells (the ^E@q string-building
// construct): single quotes with embedded quotes escaped.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
