/*
 * SciTECO - File utilities test set.
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

package files

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavePointNameFormat(t *testing.T) {
	name := SavePointName("/tmp/dir/file.txt", 3)
	assert.Equal(t, "/tmp/dir/.teco-3-file.txt~", name)

	base := filepath.Base(name)
	assert.Regexp(t, regexp.MustCompile(`^\.teco-\d+-.*~$`), base)
}

func TestWriteAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0666))

	sp, err := WriteAtomic(path, []byte("two"))
	require.NoError(t, err)
	require.NotEmpty(t, sp)

	data, _ := os.ReadFile(path)
	assert.Equal(t, "two", string(data))
	spData, err := os.ReadFile(sp)
	require.NoError(t, err)
	assert.Equal(t, "one", string(spData))

	RestoreSavePoint(sp, path)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "one", string(data))
	_, err = os.Stat(sp)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteAtomicFreshFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.txt")

	sp, err := WriteAtomic(path, []byte("data"))
	require.NoError(t, err)
	assert.Empty(t, sp)

	// Rubout of a fresh save removes the created file.
	RestoreSavePoint(sp, path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCommitSavePoints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0666))
	_, err := WriteAtomic(path, []byte("b"))
	require.NoError(t, err)
	_, err = WriteAtomic(path, []byte("c"))
	require.NoError(t, err)

	CommitSavePoints()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, "a[*]b[?]c", EscapeGlobPattern("a*b?c"))
	assert.True(t, IsGlobPattern("*.txt"))
	assert.False(t, IsGlobPattern("plain.txt"))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, ShellQuote("it's"))
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/test")
	assert.Equal(t, "/home/test", ExpandPath("~"))
	assert.Equal(t, filepath.Join("/home/test", "x"), ExpandPath("~/x"))
	assert.Equal(t, "/abs/x", ExpandPath("/abs/x"))
}
