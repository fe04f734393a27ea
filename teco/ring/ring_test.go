/*
 * SciTECO - Buffer ring test set.
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

package ring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/expr"
	"github.com/rhaberkorn/sciteco-sub000/teco/qreg"
	"github.com/rhaberkorn/sciteco-sub000/teco/undo"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
	"github.com/rhaberkorn/sciteco-sub000/util/files"
)

func newRing() (*Ring, *qreg.Env) {
	u := &undo.Stack{Enabled: true}
	env := &qreg.Env{
		Undo:    u,
		View:    view.New(),
		Display: display.NewBatch(""),
		Expr:    expr.New(u),
		Globals: qreg.NewTable(true, false),
	}
	r := New(env)
	env.SaveCurrent = r.SaveCurrentState
	env.EditCurrentRing = func() {}
	env.RingInfo = r.Info
	env.EditBufferByID = r.EditByID
	return r, env
}

func TestEditLoadsFile(t *testing.T) {
	r, env := newRing()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("contents\n"), 0666))

	added, err := r.Edit(path)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "contents\n", string(env.View.Doc().Bytes()))
	assert.Equal(t, files.AbsPath(path), r.Current.Filename)

	// Re-editing the same file finds the existing buffer.
	added, err = r.Edit(path)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, r.Len())
}

func TestBufferIDs(t *testing.T) {
	r, _ := newRing()
	_, err := r.Edit("")
	require.NoError(t, err)
	dir := t.TempDir()
	_, err = r.Edit(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, int64(2), r.ID(r.Current))
	require.NoError(t, r.EditByID(1))
	assert.Equal(t, int64(1), r.ID(r.Current))
	assert.Error(t, r.EditByID(5))
}

func TestCloseReinsertsOnRubout(t *testing.T) {
	r, env := newRing()
	_, err := r.Edit("")
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0666))
	_, err = r.Edit(path)
	require.NoError(t, err)

	env.Undo.Pos = 7
	require.NoError(t, r.Close())
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "", r.Current.Filename)

	env.Undo.Pop(7)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, files.AbsPath(path), r.Current.Filename)
	assert.Equal(t, "keep me", string(env.View.Doc().Bytes()))
}

func TestSaveUnnamedWithoutFilenameFails(t *testing.T) {
	r, _ := newRing()
	_, err := r.Edit("")
	require.NoError(t, err)

	err = r.Save("")
	assert.Error(t, err)
}

func TestSaveCreatesSavePointAndRestores(t *testing.T) {
	r, env := newRing()
	dir := t.TempDir()
	path := filepath.Join(dir, "d.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0666))

	_, err := r.Edit(path)
	require.NoError(t, err)

	env.View.SSMText(view.SciSetText, 0, []byte("new"))
	r.SetDirty(true)

	env.Undo.Pos = 3
	require.NoError(t, r.Save(""))
	assert.False(t, r.Current.Dirty)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	// A save-point file holding the old contents exists.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var spName string
	for _, e := range entries {
		if e.Name() != "d.txt" {
			spName = e.Name()
		}
	}
	require.NotEmpty(t, spName)
	spData, err := os.ReadFile(filepath.Join(dir, spName))
	require.NoError(t, err)
	assert.Equal(t, "old", string(spData))

	// Rubout restores the old file from the save point.
	env.Undo.Pop(3)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestSavePointsRemovedOnCommit(t *testing.T) {
	r, env := newRing()
	dir := t.TempDir()
	path := filepath.Join(dir, "e.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0666))

	_, err := r.Edit(path)
	require.NoError(t, err)
	env.View.SSMText(view.SciSetText, 0, []byte("v2"))
	require.NoError(t, r.Save(""))

	files.CommitSavePoints()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEOLNormalization(t *testing.T) {
	data, mode := normalizeEOL([]byte("a\r\nb\r\nc"))
	assert.Equal(t, "a\nb\nc", string(data))
	assert.Equal(t, EOLCRLF, mode)
	assert.Equal(t, "a\r\nb\r\nc", string(denormalizeEOL(data, mode)))

	data, mode = normalizeEOL([]byte("a\rb"))
	assert.Equal(t, "a\nb", string(data))
	assert.Equal(t, EOLCR, mode)
}

func TestSetFilenameDoesNotDirty(t *testing.T) {
	r, _ := newRing()
	_, err := r.Edit("")
	require.NoError(t, err)
	r.SetFilename("renamed.txt")
	assert.False(t, r.Current.Dirty)
	assert.NotEmpty(t, r.Current.Filename)
}
