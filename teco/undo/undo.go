/*
 * SciTECO - Undo stack.
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

// Package undo implements the per-keystroke undo stack.
//
// Every process-visible side effect of executing one input character
// pushes a token before mutating. Tokens are tagged with the current
// command-line position, forming one frame per input character.
// Rubbing out character k runs all tokens with position >= k in LIFO
// order.
package undo

// Token restores exactly one side effect. A token may itself push
// further tokens at rollback time (e.g. rubbing out [q restores the
// register's integer through SetInteger, which records its own token).
type Token interface {
	Run()
}

// TokenFunc adapts a closure to the Token interface.
type TokenFunc func()

func (f TokenFunc) Run() { f() }

type entry struct {
	pos   int
	token Token
}

// Stack is the undo stack. The zero value is a disabled stack that
// discards all tokens (batch mode).
type Stack struct {
	head []entry

	// Pos is the command-line position new tokens are tagged with.
	// The command-line manager keeps it equal to the effective
	// command-line length.
	Pos int

	// Enabled gates token collection. Disabled in batch mode and
	// within macro invocations whose rubout resets the whole call.
	Enabled bool

	// popPos is the target position while a Pop is in progress.
	// Tokens pushed from within a rollback are tagged popPos-1 so
	// they belong to the preceding frame and run on a later rubout
	// instead of immediately.
	popping bool
	popPos  int
}

func (s *Stack) tagPos() int {
	if s.popping {
		return s.popPos - 1
	}
	return s.Pos
}

// Push records a token for the current position.
func (s *Stack) Push(token Token) {
	if s.Enabled {
		s.head = append(s.head, entry{pos: s.tagPos(), token: token})
	}
}

// PushFunc records a closure token for the current position.
func (s *Stack) PushFunc(f func()) {
	s.Push(TokenFunc(f))
}

// Scalar records a token restoring the current value of *p.
func Scalar[T any](s *Stack, p *T) {
	if !s.Enabled {
		return
	}
	v := *p
	s.PushFunc(func() { *p = v })
}

// String is Scalar for strings; kept separate to mirror the token
// taxonomy (scalar, string, message, object, document rollback).
func String(s *Stack, p *string) { Scalar(s, p) }

// Pop rolls back every token at positions >= pos, newest first.
func (s *Stack) Pop(pos int) {
	outer := s.popping
	if !outer {
		s.popping, s.popPos = true, pos
		defer func() { s.popping = false }()
	}
	for len(s.head) > 0 && s.head[len(s.head)-1].pos >= pos {
		top := s.head[len(s.head)-1]
		s.head = s.head[:len(s.head)-1]
		top.token.Run()
	}
}

// Clear drops all tokens without running them (command-line commit).
func (s *Stack) Clear() {
	s.head = nil
}

// Len returns the number of collected tokens.
func (s *Stack) Len() int { return len(s.head) }
