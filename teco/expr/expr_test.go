/*
 * SciTECO - Expression stack test set.
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

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhaberkorn/sciteco-sub000/teco/undo"
)

func newStack() (*Stack, *undo.Stack) {
	u := &undo.Stack{Enabled: true}
	return New(u), u
}

func TestMulBindsTighterThanAdd(t *testing.T) {
	s, _ := newStack()
	s.Push(1)
	require.NoError(t, s.PushCalc(OpAdd))
	s.Push(2)
	require.NoError(t, s.PushCalc(OpMul))
	s.Push(3)
	require.NoError(t, s.Eval(false))
	assert.Equal(t, int64(7), s.Pop())
	assert.Equal(t, 0, s.Args())
}

func TestBracesOverridePrecedence(t *testing.T) {
	s, _ := newStack()
	require.NoError(t, s.BraceOpen())
	s.Push(1)
	require.NoError(t, s.PushCalc(OpAdd))
	s.Push(2)
	require.NoError(t, s.BraceClose())
	require.NoError(t, s.PushCalc(OpMul))
	s.Push(3)
	require.NoError(t, s.Eval(false))
	assert.Equal(t, int64(9), s.Pop())
}

func TestOperatorAppliesToTwoPendingValues(t *testing.T) {
	s, _ := newStack()
	s.Push(2)
	s.Push(3)
	require.NoError(t, s.PushCalc(OpAdd))
	assert.Equal(t, 1, s.Args())
	s.Push(4)
	require.NoError(t, s.PushCalc(OpMul))
	v, err := s.PopCalc()
	require.NoError(t, err)
	assert.Equal(t, int64(20), v)
}

func TestAddDigitAccumulatesInRadix(t *testing.T) {
	s, _ := newStack()
	_, err := s.AddDigit('1')
	require.NoError(t, err)
	_, err = s.AddDigit('7')
	require.NoError(t, err)
	assert.Equal(t, int64(17), s.Pop())

	require.NoError(t, s.SetRadix(8))
	_, err = s.AddDigit('1')
	require.NoError(t, err)
	_, err = s.AddDigit('7')
	require.NoError(t, err)
	assert.Equal(t, int64(15), s.Pop())

	_, err = s.AddDigit('9')
	assert.Error(t, err)
}

func TestDigitRunSeparation(t *testing.T) {
	s, _ := newStack()
	_, err := s.AddDigit('2')
	require.NoError(t, err)
	s.EndDigitRun()
	_, err = s.AddDigit('3')
	require.NoError(t, err)
	assert.Equal(t, 2, s.Args())
	assert.Equal(t, int64(3), s.Peek(1))
	assert.Equal(t, int64(2), s.Peek(2))
}

func TestUnaryMinus(t *testing.T) {
	s, _ := newStack()
	s.SetNumSign(-1)
	_, err := s.AddDigit('2')
	require.NoError(t, err)
	_, err = s.AddDigit('3')
	require.NoError(t, err)
	v, err := s.PopCalc()
	require.NoError(t, err)
	assert.Equal(t, int64(-23), v)
	assert.Equal(t, 1, s.NumSign)
}

func TestDivisionByZero(t *testing.T) {
	s, _ := newStack()
	s.Push(1)
	require.NoError(t, s.PushCalc(OpDiv))
	s.Push(0)
	assert.Error(t, s.Eval(false))
}

func TestPowAndMod(t *testing.T) {
	s, _ := newStack()
	s.Push(2)
	require.NoError(t, s.PushCalc(OpPow))
	s.Push(10)
	require.NoError(t, s.Eval(false))
	assert.Equal(t, int64(1024), s.Pop())

	s.Push(17)
	require.NoError(t, s.PushCalc(OpMod))
	s.Push(5)
	require.NoError(t, s.Eval(false))
	assert.Equal(t, int64(2), s.Pop())
}

func TestPopCalcImpliesDefault(t *testing.T) {
	s, _ := newStack()
	v, err := s.PopCalcImply(42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestLoopBarrierStopsEval(t *testing.T) {
	s, _ := newStack()
	s.Push(5)
	s.PushOp(OpLoop)
	s.Push(1)
	require.NoError(t, s.PushCalc(OpAdd))
	s.Push(2)
	require.NoError(t, s.Eval(false))
	assert.Equal(t, int64(3), s.Pop())
	assert.Equal(t, OpLoop, s.PopOp())
	assert.Equal(t, int64(5), s.Pop())
}

func TestUndoRestoresStack(t *testing.T) {
	s, u := newStack()
	u.Pos = 0
	s.Push(1)
	u.Pos = 1
	s.Push(2)
	require.NoError(t, s.PushCalc(OpAdd))

	u.Pop(1)
	assert.Equal(t, 1, s.Args())
	assert.Equal(t, int64(1), s.Peek(1))

	u.Pop(0)
	assert.Equal(t, 0, s.Args())
}

func TestFormatRadix(t *testing.T) {
	s, _ := newStack()
	require.NoError(t, s.SetRadix(16))
	assert.Equal(t, "FF", s.Format(255))
	assert.Equal(t, "-A", s.Format(-10))
	require.NoError(t, s.SetRadix(10))
	assert.Equal(t, "-42", s.Format(-42))
}
