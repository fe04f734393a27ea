/*
 * SciTECO - Undo stack test set.
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

package undo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopRunsFramesInReverse(t *testing.T) {
	s := &Stack{Enabled: true}
	var order []int

	s.Pos = 0
	s.PushFunc(func() { order = append(order, 0) })
	s.Pos = 1
	s.PushFunc(func() { order = append(order, 1) })
	s.PushFunc(func() { order = append(order, 2) })
	s.Pos = 2
	s.PushFunc(func() { order = append(order, 3) })

	s.Pop(1)
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.Equal(t, 1, s.Len())

	s.Pop(0)
	assert.Equal(t, []int{3, 2, 1, 0}, order)
	assert.Equal(t, 0, s.Len())
}

func TestScalarRestoresValue(t *testing.T) {
	s := &Stack{Enabled: true}
	x := 23
	Scalar(s, &x)
	x = 42
	s.Pop(0)
	assert.Equal(t, 23, x)
}

func TestDisabledStackDiscards(t *testing.T) {
	s := &Stack{}
	s.PushFunc(func() { t.Fatal("token must not run") })
	assert.Equal(t, 0, s.Len())
	s.Pop(0)
}

func TestTokenPushedDuringRollbackDefersToEarlierFrame(t *testing.T) {
	s := &Stack{Enabled: true}
	reran := 0

	s.Pos = 5
	s.PushFunc(func() {
		// Reschedule: must not run within this Pop(5), only when
		// an earlier position is popped later.
		s.PushFunc(func() { reran++ })
	})

	s.Pop(5)
	assert.Equal(t, 0, reran)
	assert.Equal(t, 1, s.Len())

	s.Pop(4)
	assert.Equal(t, 1, reran)
}

func TestClearDropsWithoutRunning(t *testing.T) {
	s := &Stack{Enabled: true}
	ran := false
	s.PushFunc(func() { ran = true })
	s.Clear()
	s.Pop(0)
	assert.False(t, ran)
}
