/*
 * SciTECO - Command-line manager test set.
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

package cmdline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/cmdline"
	"github.com/rhaberkorn/sciteco-sub000/teco/machine"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

const (
	ctrlG = "\x07"
	ctrlH = "\b"
	ctrlU = "\x15"
	ctrlW = "\x17"
	esc   = "\x1b"
)

func newCmdline(t *testing.T) (*cmdline.Cmdline, *machine.Runtime, *display.Batch) {
	t.Helper()
	batch := display.NewBatch("")
	rt := machine.NewRuntime(batch)
	return cmdline.New(rt), rt, batch
}

func regInt(t *testing.T, rt *machine.Runtime, name string) int64 {
	t.Helper()
	r := rt.QEnv.Globals.Find(name)
	require.NotNil(t, r)
	v, err := r.GetInteger(rt.QEnv)
	require.NoError(t, err)
	return v
}

func regStr(t *testing.T, rt *machine.Runtime, name string) string {
	t.Helper()
	r := rt.QEnv.Globals.Find(name)
	require.NotNil(t, r)
	s, _, err := r.GetString(rt.QEnv)
	require.NoError(t, err)
	return string(s)
}

func buffer(rt *machine.Runtime) string {
	return string(rt.View.Doc().Bytes())
}

func TestArithmeticAndCommit(t *testing.T) {
	cl, rt, batch := newCmdline(t)
	require.NoError(t, cl.Keys("2 3 + 4 * ="+esc+esc))
	assert.Equal(t, "20", batch.LastMessage())
	assert.Equal(t, 0, rt.Expr.Args())
	assert.Equal(t, "", buffer(rt))
	assert.Equal(t, 0, rt.Undo.Len())
	assert.Equal(t, "2 3 + 4 * =\x1b\x1b", string(cl.Last()))
}

func TestLoopScenario(t *testing.T) {
	cl, rt, batch := newCmdline(t)
	require.NoError(t, cl.Keys("5<42U A>Q A="+esc+esc))
	assert.Equal(t, "42", batch.LastMessage())
	assert.Equal(t, int64(42), regInt(t, rt, "A"))
}

func TestRegisterSaveRestoreScenario(t *testing.T) {
	batch := display.NewBatch("")
	rt := machine.NewRuntime(batch)

	// Pre-state: register A holds 7 / "hi".
	a := rt.QEnv.Globals.Find("A")
	require.NoError(t, a.SetInteger(rt.QEnv, 7))
	require.NoError(t, a.SetString(rt.QEnv, []byte("hi"), view.SCCpUTF8))

	cl := cmdline.New(rt)
	require.NoError(t, cl.Keys("[A 99U A "+ctrlU+"A world"+esc+" ]A Q A= G A "+esc+esc))

	assert.Equal(t, "7", batch.LastMessage())
	assert.Equal(t, int64(7), regInt(t, rt, "A"))
	assert.Equal(t, "hi", regStr(t, rt, "A"))
	assert.Equal(t, "hi", buffer(rt))
}

func TestRuboutRestoresExpressionStack(t *testing.T) {
	cl, rt, _ := newCmdline(t)
	require.NoError(t, cl.Keys("2 3 + "))
	assert.Equal(t, 1, rt.Expr.Args())
	assert.Equal(t, int64(5), rt.Expr.Peek(1))

	// Rub out " ", "+", " ".
	require.NoError(t, cl.Keys(ctrlH+ctrlH+ctrlH))
	assert.Equal(t, 2, rt.Expr.Args())
	assert.Equal(t, int64(3), rt.Expr.Peek(1))
	assert.Equal(t, int64(2), rt.Expr.Peek(2))

	require.NoError(t, cl.Keys(ctrlH))
	assert.Equal(t, 1, rt.Expr.Args())
	assert.Equal(t, int64(2), rt.Expr.Peek(1))

	// ^G enables re-insertion; the rubbed-out characters come back
	// in order.
	require.NoError(t, cl.Keys(ctrlG+ctrlH+ctrlH+ctrlH+ctrlH))
	assert.Equal(t, 1, rt.Expr.Args())
	assert.Equal(t, int64(5), rt.Expr.Peek(1))
}

func TestGotoScenario(t *testing.T) {
	cl, rt, batch := newCmdline(t)
	require.NoError(t, cl.Keys("O skip"+esc+" 1U A ! skip ! 2U A Q A= "+esc+esc))
	assert.Equal(t, "2", batch.LastMessage())
	assert.Equal(t, int64(2), regInt(t, rt, "A"))
}

func TestCmdlineReplacementScenario(t *testing.T) {
	batch := display.NewBatch("")
	rt := machine.NewRuntime(batch)

	escReg := rt.QEnv.Globals.Find(esc)
	require.NoError(t, escReg.SetString(rt.QEnv, []byte("99U A Q A= "), view.SCCpUTF8))

	cl := cmdline.New(rt)
	require.NoError(t, cl.Keys("1U A }"))
	require.NoError(t, cl.Keys(esc+esc))

	assert.Equal(t, "99", batch.LastMessage())
	assert.Equal(t, int64(99), regInt(t, rt, "A"))
}

func TestRuboutUndoesBufferInsertion(t *testing.T) {
	cl, rt, _ := newCmdline(t)
	require.NoError(t, cl.Keys("Iabc"))
	assert.Equal(t, "abc", buffer(rt))

	require.NoError(t, cl.Keys(ctrlH))
	assert.Equal(t, "ab", buffer(rt))

	require.NoError(t, cl.Keys(ctrlH+ctrlH))
	assert.Equal(t, "", buffer(rt))
}

func TestRuboutWordRemovesWholeCommand(t *testing.T) {
	cl, rt, _ := newCmdline(t)
	require.NoError(t, cl.Keys("Iabc"+esc))
	assert.Equal(t, "abc", buffer(rt))

	require.NoError(t, cl.Keys(ctrlW))
	assert.Equal(t, "", buffer(rt))
	assert.Equal(t, 0, cl.EffectiveLen)
}

func TestRuboutStringKeepsCommand(t *testing.T) {
	cl, rt, _ := newCmdline(t)
	require.NoError(t, cl.Keys("Iabc"))
	require.NoError(t, cl.Keys(ctrlU))
	assert.Equal(t, "", buffer(rt))
	assert.Equal(t, 1, cl.EffectiveLen)

	// The insertion state is still active.
	require.NoError(t, cl.Keys("xy"))
	assert.Equal(t, "xy", buffer(rt))
}

func TestErrorRollsBackKeystroke(t *testing.T) {
	cl, rt, batch := newCmdline(t)
	require.NoError(t, cl.Keys("Iab"+esc))
	// An out-of-range move fails and must leave no trace.
	require.NoError(t, cl.Keys("9"))
	require.NoError(t, cl.Keys("9"))
	require.NoError(t, cl.Keys("C"))
	assert.Equal(t, display.MsgError, batch.LastType)
	assert.Equal(t, "ab", buffer(rt))
	// The failing C and its argument digits remain typed except
	// the failing keystroke itself.
	assert.Equal(t, len("Iab"+esc+"99"), cl.EffectiveLen)
}

func TestUndoTotalityAgainstFreshProcess(t *testing.T) {
	// Type a command line, rub everything out, and compare with a
	// fresh runtime: the visible state must match.
	cl, rt, _ := newCmdline(t)
	require.NoError(t, cl.Keys("7UA Ihello"+esc+" 0J 2C"))
	for cl.EffectiveLen > 0 {
		require.NoError(t, cl.Keys(ctrlH))
	}

	fresh := machine.NewRuntime(display.NewBatch(""))
	assert.Equal(t, string(fresh.View.Doc().Bytes()), buffer(rt))
	assert.Equal(t, regInt(t, fresh, "A"), regInt(t, rt, "A"))
	assert.Equal(t, fresh.Expr.Args(), rt.Expr.Args())
	assert.Equal(t,
		fresh.View.SSM(view.SciGetCurrentPos, 0, 0),
		rt.View.SSM(view.SciGetCurrentPos, 0, 0))
}

func TestCommitClearsUndoAndParser(t *testing.T) {
	cl, rt, _ := newCmdline(t)
	require.NoError(t, cl.Keys("1UA"+esc+esc))
	assert.Equal(t, 0, rt.Undo.Len())
	assert.Equal(t, 0, len(rt.LoopStack))
	assert.True(t, rt.CmdlineMachine.Current().IsStart)

	// Rubout after commit cannot cross the commit point.
	require.NoError(t, cl.Keys(ctrlH))
	assert.Equal(t, int64(1), regInt(t, rt, "A"))
}

func TestModifierToggleMessages(t *testing.T) {
	cl, _, batch := newCmdline(t)
	require.NoError(t, cl.Keys(ctrlG))
	assert.Contains(t, batch.LastMessage(), "enabled")
	require.NoError(t, cl.Keys(ctrlG))
	assert.Contains(t, batch.LastMessage(), "disabled")
}

func TestKeyMacroExpansion(t *testing.T) {
	batch := display.NewBatch("")
	rt := machine.NewRuntime(batch)

	km := rt.QEnv.Globals.FindOrCreate(rt.QEnv, "\x0bF1")
	require.NoError(t, km.SetString(rt.QEnv, []byte("5UA"), view.SCCpUTF8))

	cl := cmdline.New(rt)
	require.NoError(t, cl.KeypressNamed("F1"))
	require.NoError(t, cl.Keys(esc+esc))
	assert.Equal(t, int64(5), regInt(t, rt, "A"))
}

func TestUndefinedKeyIgnoredAndCloseQuits(t *testing.T) {
	cl, _, _ := newCmdline(t)
	require.NoError(t, cl.KeypressNamed("F9"))
	assert.Error(t, cl.KeypressNamed("CLOSE"))
}

func TestQuitViaDollarDollar(t *testing.T) {
	cl, _, _ := newCmdline(t)
	require.NoError(t, cl.Keys("EX"))
	err := cl.Keys(esc + esc)
	assert.Error(t, err)
}
