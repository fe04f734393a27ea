/*
 * SciTECO - Q-Register test set.
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

package qreg

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/expr"
	"github.com/rhaberkorn/sciteco-sub000/teco/undo"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

func newEnv() *Env {
	u := &undo.Stack{Enabled: true}
	env := &Env{
		Undo:    u,
		View:    view.New(),
		Display: display.NewBatch(""),
		Expr:    expr.New(u),
		Globals: NewTable(true, false),
	}
	env.SaveCurrent = func() {}
	env.EditCurrentRing = func() {}
	env.RingInfo = func() (int64, string, bool) { return 0, "", false }
	env.EditBufferByID = func(int64) error { return nil }
	return env
}

func TestPlainIntegerAndString(t *testing.T) {
	env := newEnv()
	r := NewPlain("A")
	env.Globals.Insert(r)

	require.NoError(t, r.SetInteger(env, 42))
	v, err := r.GetInteger(env)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	require.NoError(t, r.SetString(env, []byte("hello"), view.SCCpUTF8))
	s, cp, err := r.GetString(env)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(s))
	assert.Equal(t, view.SCCpUTF8, cp)

	require.NoError(t, r.AppendString(env, []byte(" world")))
	s, _, _ = r.GetString(env)
	assert.Equal(t, "hello world", string(s))

	n, err := r.Length(env)
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
}

func TestGetCharBoundaries(t *testing.T) {
	env := newEnv()
	r := NewPlain("A")
	env.Globals.Insert(r)

	require.NoError(t, r.SetString(env, []byte("hé"), view.SCCpUTF8))
	c, err := r.GetChar(env, 0)
	require.NoError(t, err)
	assert.Equal(t, int64('h'), c)
	c, _ = r.GetChar(env, 1)
	assert.Equal(t, int64('é'), c)
	c, _ = r.GetChar(env, 2)
	assert.Equal(t, int64(CharOutOfRange), c)
	c, _ = r.GetChar(env, -1)
	assert.Equal(t, int64(CharOutOfRange), c)

	require.NoError(t, r.SetString(env, []byte{0xff}, view.SCCpUTF8))
	c, _ = r.GetChar(env, 0)
	assert.Equal(t, int64(CharInvalidUTF8), c)

	require.NoError(t, r.SetString(env, []byte{0xc3}, view.SCCpUTF8))
	c, _ = r.GetChar(env, 0)
	assert.Equal(t, int64(CharIncompleteSeq), c)
}

func TestUndoRestoresRegister(t *testing.T) {
	env := newEnv()
	r := NewPlain("A")
	env.Globals.Insert(r)

	env.Undo.Pos = 0
	require.NoError(t, r.SetInteger(env, 7))
	require.NoError(t, r.SetString(env, []byte("hi"), view.SCCpUTF8))

	env.Undo.Pos = 1
	require.NoError(t, r.SetInteger(env, 99))
	require.NoError(t, r.SetString(env, []byte("bye"), view.SCCpUTF8))

	env.Undo.Pop(1)
	v, _ := r.GetInteger(env)
	assert.Equal(t, int64(7), v)
	s, _, _ := r.GetString(env)
	assert.Equal(t, "hi", string(s))
}

func TestStackSwapsDocumentsByReference(t *testing.T) {
	env := newEnv()
	r := NewPlain("A")
	env.Globals.Insert(r)
	require.NoError(t, r.SetInteger(env, 7))
	require.NoError(t, r.SetString(env, []byte("hi"), view.SCCpUTF8))
	d0 := r.Doc()

	var stack Stack
	require.NoError(t, stack.Push(env, r))
	assert.Equal(t, 1, stack.Len())

	// The register now holds a fresh empty document.
	s, _, _ := r.GetString(env)
	assert.Equal(t, "", string(s))
	require.NoError(t, r.SetInteger(env, 99))
	require.NoError(t, r.SetString(env, []byte("other"), view.SCCpUTF8))

	ok, err := stack.Pop(env, r)
	require.NoError(t, err)
	assert.True(t, ok)

	// Same document handle as before the push, not a copy.
	assert.Same(t, d0, r.Doc())
	v, _ := r.GetInteger(env)
	assert.Equal(t, int64(7), v)
	s, _, _ = r.GetString(env)
	assert.Equal(t, "hi", string(s))

	ok, err = stack.Pop(env, r)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTableCaseFolding(t *testing.T) {
	env := newEnv()
	table := env.Globals
	table.Insert(NewPlain("A"))

	assert.NotNil(t, table.Find("a"))
	assert.NotNil(t, table.Find("A"))
	assert.Nil(t, table.Find("B"))

	// Unicode names compare byte-for-byte.
	table.Insert(NewPlain("λ"))
	assert.NotNil(t, table.Find("λ"))
	assert.Nil(t, table.Find("Λ"))
}

func TestFindOrCreateUndo(t *testing.T) {
	env := newEnv()
	table := env.Globals
	env.Undo.Pos = 3

	r := table.FindOrCreate(env, "Z")
	require.NotNil(t, r)
	assert.Same(t, r, table.Find("Z"))

	env.Undo.Pop(3)
	assert.Nil(t, table.Find("Z"))
}

func TestEnvVarRegister(t *testing.T) {
	env := newEnv()
	require.NoError(t, os.Setenv("SCITECO_TEST_VAR", "before"))
	r := NewEnvVar("SCITECO_TEST_VAR")
	env.Globals.Insert(r)

	s, _, err := r.GetString(env)
	require.NoError(t, err)
	assert.Equal(t, "before", string(s))

	env.Undo.Pos = 0
	require.NoError(t, r.SetString(env, []byte("after"), view.SCCpUTF8))
	assert.Equal(t, "after", os.Getenv("SCITECO_TEST_VAR"))

	env.Undo.Pop(0)
	assert.Equal(t, "before", os.Getenv("SCITECO_TEST_VAR"))
}

func TestRadixRegister(t *testing.T) {
	env := newEnv()
	r := NewRadix()
	env.Globals.Insert(r)

	v, err := r.GetInteger(env)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)

	require.NoError(t, r.SetInteger(env, 16))
	assert.Equal(t, int64(16), env.Expr.Radix)

	assert.Error(t, r.SetInteger(env, 1))
}

func TestFlagsRegister(t *testing.T) {
	env := newEnv()
	var bits int64 = 1
	r := NewFlags("\x05", &bits)
	env.Globals.Insert(r)

	env.Undo.Pos = 0
	require.NoError(t, r.SetInteger(env, 5))
	assert.Equal(t, int64(5), bits)
	env.Undo.Pop(0)
	assert.Equal(t, int64(1), bits)
}

func TestSetEnvironLoadsRegisters(t *testing.T) {
	require.NoError(t, os.Setenv("SCITECO_ENV_PROBE", "x"))
	env := newEnv()
	env.Globals.SetEnviron()
	assert.NotNil(t, env.Globals.Find("$SCITECO_ENV_PROBE"))
}
