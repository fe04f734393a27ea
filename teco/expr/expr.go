/*
 * SciTECO - Arithmetic expression stacks.
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

// Package expr implements the TECO expression stack.
//
// Values and operators live on two parallel stacks; a Number
// pseudo-operator marks every value, so the operator stack alone
// describes the full stack layout. All mutations emit undo tokens.
package expr

import (
	"math"
	"strconv"

	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/undo"
)

// Operator kinds. The declaration order is the precedence order,
// lowest first.
type Operator int

const (
	OpNil Operator = iota
	// Loop is the barrier protecting arguments outside a < ... >
	// iteration.
	OpLoop
	// Brace is pushed by ( and popped by ).
	OpBrace
	// New is the argument separator (,).
	OpNew
	OpOr  // #
	OpAnd // &
	OpSub // -
	OpAdd // +
	OpMod // ^/
	OpDiv // /
	OpMul // *
	OpPow // ^*
	// Number marks a value on the stack.
	OpNumber
)

// Missing is returned by Pop for absent arguments.
const Missing = math.MaxInt64

// Stack holds the expression state of the runtime.
type Stack struct {
	numbers   []int64
	operators []Operator

	// NumSign is the pending sign (1 or -1) set by a unary minus.
	NumSign int
	// Radix is the current number radix (8, 10 or 16).
	Radix int64

	// digitRun tells whether the previous input character
	// contributed a digit; only then does the next digit extend
	// the number on top of the stack.
	digitRun bool

	undo *undo.Stack
}

// New creates an expression stack emitting undo tokens onto u.
func New(u *undo.Stack) *Stack {
	return &Stack{NumSign: 1, Radix: 10, undo: u}
}

// SetNumSign sets the pending sign with undo.
func (s *Stack) SetNumSign(sign int) {
	undo.Scalar(s.undo, &s.NumSign)
	s.NumSign = sign
}

// SetRadix sets the current radix with undo.
func (s *Stack) SetRadix(r int64) error {
	if r < 2 || r > 36 {
		return errs.New(errs.Range, "Invalid radix %d", r)
	}
	undo.Scalar(s.undo, &s.Radix)
	s.Radix = r
	return nil
}

func (s *Stack) pushNumber(n int64) {
	s.numbers = append(s.numbers, n)
	s.undo.PushFunc(func() {
		s.numbers = s.numbers[:len(s.numbers)-1]
	})
}

func (s *Stack) popNumber() int64 {
	n := s.numbers[len(s.numbers)-1]
	s.numbers = s.numbers[:len(s.numbers)-1]
	s.undo.PushFunc(func() {
		s.numbers = append(s.numbers, n)
	})
	return n
}

// Push pushes a value, marking it with the Number pseudo-operator.
// A Number directly following an argument separator absorbs it: the
// separator's job is done once its right-hand operand arrives and
// multi-argument commands then see contiguous Number marks.
func (s *Stack) Push(n int64) int64 {
	if s.topOp() == OpNew {
		s.PopOp()
	}
	s.PushOp(OpNumber)
	s.pushNumber(n)
	return n
}

// PushOp pushes an operator without evaluation.
func (s *Stack) PushOp(op Operator) Operator {
	s.operators = append(s.operators, op)
	s.undo.PushFunc(func() {
		s.operators = s.operators[:len(s.operators)-1]
	})
	return op
}

// PushCalc evaluates any pending operators of equal or higher
// precedence, then pushes op. When two or more values already sit on
// top of the stack the operator applies to them directly, so chains
// of space-separated values combine left to right.
func (s *Stack) PushCalc(op Operator) error {
	for {
		first := s.firstOp()
		if first == 0 {
			break
		}
		pending := s.operators[len(s.operators)-first]
		if pending < op || pending == OpNumber || !s.canCalc() {
			break
		}
		if err := s.calc(); err != nil {
			return err
		}
	}
	if s.Args() >= 2 {
		return s.apply(op)
	}
	s.PushOp(op)
	return nil
}

// apply combines the two top values with op immediately.
func (s *Stack) apply(op Operator) error {
	vright := s.Pop()
	vleft := s.Pop()
	return s.combine(op, vleft, vright)
}

// PopOp pops the top operator.
func (s *Stack) PopOp() Operator {
	if len(s.operators) == 0 {
		return OpNil
	}
	op := s.operators[len(s.operators)-1]
	s.operators = s.operators[:len(s.operators)-1]
	s.undo.PushFunc(func() {
		s.operators = append(s.operators, op)
	})
	return op
}

func (s *Stack) topOp() Operator {
	if len(s.operators) == 0 {
		return OpNil
	}
	return s.operators[len(s.operators)-1]
}

// Pop removes and returns the top value, or Missing if no value is on
// top of the stack.
func (s *Stack) Pop() int64 {
	if s.topOp() != OpNumber {
		return Missing
	}
	s.PopOp()
	if len(s.numbers) == 0 {
		return Missing
	}
	return s.popNumber()
}

// Peek returns the index-th value from the top (1-based) without
// removing it.
func (s *Stack) Peek(index int) int64 {
	return s.numbers[len(s.numbers)-index]
}

// PopCalcImply evaluates pending operators and pops one argument,
// substituting imply when it is missing. It also resets a pending
// unary sign.
func (s *Stack) PopCalcImply(imply int64) (int64, error) {
	if err := s.Eval(false); err != nil {
		return 0, err
	}
	n := Missing
	if s.Args() > 0 {
		n = s.Pop()
	}
	if n == Missing {
		n = imply
	}
	if s.NumSign < 0 {
		s.SetNumSign(1)
	}
	return n, nil
}

// PopCalc is PopCalcImply with the pending sign as the implied value.
func (s *Stack) PopCalc() (int64, error) {
	return s.PopCalcImply(int64(s.NumSign))
}

// AddDigit extends the number on top of the stack by one digit in the
// current radix.
func (s *Stack) AddDigit(digit rune) (int64, error) {
	var d int64
	switch {
	case digit >= '0' && digit <= '9':
		d = int64(digit - '0')
	case digit >= 'A' && digit <= 'Z':
		d = int64(digit-'A') + 10
	case digit >= 'a' && digit <= 'z':
		d = int64(digit-'a') + 10
	}
	if d >= s.Radix {
		return 0, errs.SyntaxError(digit)
	}

	var n int64
	if s.digitRun && s.Args() > 0 {
		n = s.Pop()
		if n == Missing {
			n = 0
		}
	}
	undo.Scalar(s.undo, &s.digitRun)
	s.digitRun = true
	return s.Push(n*s.Radix + int64(s.NumSign)*d), nil
}

// EndDigitRun terminates digit accumulation; the next digit starts a
// fresh value. Called for every non-digit command character.
func (s *Stack) EndDigitRun() {
	if !s.digitRun {
		return
	}
	undo.Scalar(s.undo, &s.digitRun)
	s.digitRun = false
}

// canCalc tells whether two values and a binary operator are on top.
func (s *Stack) canCalc() bool {
	first := s.firstOp()
	if first == 0 || s.Args() < 1 || len(s.numbers) < 2 {
		return false
	}
	switch s.operators[len(s.operators)-first] {
	case OpLoop, OpBrace, OpNew:
		return false
	}
	return true
}

// calc pops two values and one binary operator and pushes the result.
func (s *Stack) calc() error {
	vright := s.Pop()
	op := s.PopOp()
	vleft := s.Pop()
	return s.combine(op, vleft, vright)
}

// combine applies a binary operator and pushes the result.
func (s *Stack) combine(op Operator, vleft, vright int64) error {
	if vleft == Missing || vright == Missing {
		return errs.ArgExpectedError(opName(op))
	}

	var result int64
	switch op {
	case OpPow:
		result = 1
		for ; vright > 0; vright-- {
			result *= vleft
		}
	case OpMul:
		result = vleft * vright
	case OpDiv:
		if vright == 0 {
			return errs.New(errs.Range, "Division by zero")
		}
		result = vleft / vright
	case OpMod:
		if vright == 0 {
			return errs.New(errs.Range, "Remainder of division by zero")
		}
		result = vleft % vright
	case OpAdd:
		result = vleft + vright
	case OpSub:
		result = vleft - vright
	case OpAnd:
		result = vleft & vright
	case OpOr:
		result = vleft | vright
	default:
		return errs.New(errs.Syntax, "Malformed expression")
	}

	s.Push(result)
	return nil
}

// Eval evaluates all pending operators down to the nearest barrier
// (loop, brace or argument separator). With popBrace, a reached brace
// is removed as well (the ) command).
func (s *Stack) Eval(popBrace bool) error {
	for {
		n := s.firstOp()
		if n == 0 {
			break
		}
		switch s.operators[len(s.operators)-n] {
		case OpLoop, OpNew:
			return nil
		case OpBrace:
			if popBrace {
				// Remove the brace but keep the values above it.
				s.removeOpAt(n)
			}
			return nil
		}
		if !s.canCalc() {
			break
		}
		if err := s.calc(); err != nil {
			return err
		}
	}
	return nil
}

// removeOpAt removes the operator at 1-based depth n from the top.
func (s *Stack) removeOpAt(n int) {
	i := len(s.operators) - n
	op := s.operators[i]
	s.operators = append(s.operators[:i], s.operators[i+1:]...)
	s.undo.PushFunc(func() {
		s.operators = append(s.operators[:i], append([]Operator{op}, s.operators[i:]...)...)
	})
}

// Args returns the number of contiguous values on top of the stack.
func (s *Stack) Args() int {
	n := 0
	for n < len(s.operators) && s.operators[len(s.operators)-n-1] == OpNumber {
		n++
	}
	return n
}

// firstOp returns the 1-based depth of the first non-Number operator,
// or 0 if there is none.
func (s *Stack) firstOp() int {
	n := s.Args() + 1
	if n > len(s.operators) {
		return 0
	}
	return n
}

// DiscardArgs evaluates and drops all arguments on top of the stack.
func (s *Stack) DiscardArgs() error {
	if err := s.Eval(false); err != nil {
		return err
	}
	for i := s.Args(); i > 0; i-- {
		if _, err := s.PopCalc(); err != nil {
			return err
		}
	}
	return nil
}

// BraceOpen pushes a brace. A pending unary minus distributes into the
// brace as multiplication by -1.
func (s *Stack) BraceOpen() error {
	if s.NumSign < 0 {
		s.SetNumSign(1)
		s.Push(-1)
		if err := s.PushCalc(OpMul); err != nil {
			return err
		}
	}
	s.PushOp(OpBrace)
	return nil
}

// BraceClose evaluates down to and removes the matching brace.
func (s *Stack) BraceClose() error {
	if !s.hasOp(OpBrace) {
		return errs.New(errs.Syntax, "Unmatched \")\"")
	}
	return s.Eval(true)
}

func (s *Stack) hasOp(op Operator) bool {
	for i := len(s.operators) - 1; i >= 0; i-- {
		switch s.operators[i] {
		case op:
			return true
		case OpLoop:
			return false
		}
	}
	return false
}

// Clear drops everything (command-line commit).
func (s *Stack) Clear() {
	s.numbers = nil
	s.operators = nil
	s.NumSign = 1
	s.digitRun = false
}

// Format renders value in the current radix the way the = command and
// ^E\q string building do. Negative numbers get a leading minus in any
// radix; hex digits are uppercase.
func (s *Stack) Format(value int64) string {
	if value < 0 {
		// Avoiding strconv's lowercase and two's complement forms.
		return "-" + s.Format(-value)
	}
	str := strconv.FormatInt(value, int(s.Radix))
	upper := make([]byte, len(str))
	for i := 0; i < len(str); i++ {
		c := str[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper[i] = c
	}
	return string(upper)
}

func opName(op Operator) string {
	switch op {
	case OpPow:
		return "^*"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "^/"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpAnd:
		return "&"
	case OpOr:
		return "#"
	}
	return "?"
}
