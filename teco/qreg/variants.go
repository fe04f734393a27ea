/*
 * SciTECO - Special Q-Register variants.
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
	"unicode/utf8"

	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/undo"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

// Dot aliases the current buffer's caret: its integer part is the
// caret position in glyphs. The string part behaves like a plain
// register.
type Dot struct {
	Plain
}

// NewDot creates the "." register.
func NewDot() *Dot {
	return &Dot{Plain{name: "."}}
}

func (r *Dot) GetInteger(env *Env) (int64, error) {
	v := env.View
	return v.SSM(view.SciCountCharacters, 0, v.SSM(view.SciGetCurrentPos, 0, 0)), nil
}

func (r *Dot) SetInteger(env *Env, value int64) error {
	v := env.View
	pos := v.SSM(view.SciPositionRelative, 0, value)
	old := v.SSM(view.SciGetCurrentPos, 0, 0)
	env.Undo.PushFunc(func() { v.SSM(view.SciGotoPos, old, 0) })
	v.SSM(view.SciGotoPos, pos, 0)
	return nil
}

// BufferInfo reflects the buffer ring: integer is the current buffer
// id, string its filename. Setting the integer edits that buffer.
type BufferInfo struct {
	Plain
}

// NewBufferInfo creates the "*" register.
func NewBufferInfo() *BufferInfo {
	return &BufferInfo{Plain{name: "*"}}
}

func (r *BufferInfo) GetInteger(env *Env) (int64, error) {
	id, _, ok := env.RingInfo()
	if !ok {
		return 0, nil
	}
	return id, nil
}

func (r *BufferInfo) SetInteger(env *Env, value int64) error {
	return env.EditBufferByID(value)
}

func (r *BufferInfo) GetString(env *Env) ([]byte, int, error) {
	_, filename, _ := env.RingInfo()
	return []byte(filename), view.SCCpUTF8, nil
}

func (r *BufferInfo) SetString(env *Env, s []byte, codepage int) error {
	return errs.New(errs.Failed, "Cannot set string of buffer-info register")
}

func (r *BufferInfo) Length(env *Env) (int64, error) {
	s, _, _ := r.GetString(env)
	return int64(utf8.RuneCount(s)), nil
}

func (r *BufferInfo) GetChar(env *Env, pos int64) (int64, error) {
	return stringGetChar(r, env, pos)
}

// WorkingDir reflects the process working directory; setting its
// string performs a chdir.
type WorkingDir struct {
	Plain
}

// NewWorkingDir creates the "$" register.
func NewWorkingDir() *WorkingDir {
	return &WorkingDir{Plain{name: "$"}}
}

func (r *WorkingDir) GetString(env *Env) ([]byte, int, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, 0, errs.New(errs.Failed, "Cannot get working directory: %v", err)
	}
	return []byte(cwd), view.SCCpUTF8, nil
}

func (r *WorkingDir) SetString(env *Env, s []byte, codepage int) error {
	old, err := os.Getwd()
	if err == nil {
		env.Undo.PushFunc(func() { _ = os.Chdir(old) })
	}
	if err := os.Chdir(string(s)); err != nil {
		return errs.New(errs.Failed, "Cannot change directory to \"%s\": %v", s, err)
	}
	return nil
}

func (r *WorkingDir) Length(env *Env) (int64, error) {
	s, _, err := r.GetString(env)
	if err != nil {
		return 0, err
	}
	return int64(utf8.RuneCount(s)), nil
}

func (r *WorkingDir) GetChar(env *Env, pos int64) (int64, error) {
	return stringGetChar(r, env, pos)
}

// Clipboard delegates its string to the display back end.
// The register name suffix selects the clipboard ("", "P", "S", "C").
type Clipboard struct {
	Plain
}

// NewClipboard creates a "~"-prefixed clipboard register.
func NewClipboard(name string) *Clipboard {
	return &Clipboard{Plain{name: name}}
}

func (r *Clipboard) clipName() string {
	return r.name[len("~"):]
}

func (r *Clipboard) GetString(env *Env) ([]byte, int, error) {
	data, err := env.Display.GetClipboard(r.clipName())
	if err != nil {
		return nil, 0, errs.New(errs.Failed, "Cannot get clipboard: %v", err)
	}
	return data, view.SCCpUTF8, nil
}

func (r *Clipboard) SetString(env *Env, s []byte, codepage int) error {
	old, err := env.Display.GetClipboard(r.clipName())
	if err == nil {
		d, n := env.Display, r.clipName()
		env.Undo.PushFunc(func() { _ = d.SetClipboard(n, old) })
	}
	if err := env.Display.SetClipboard(r.clipName(), s); err != nil {
		return errs.New(errs.Failed, "Cannot set clipboard: %v", err)
	}
	return nil
}

func (r *Clipboard) AppendString(env *Env, s []byte) error {
	data, _, err := r.GetString(env)
	if err != nil {
		return err
	}
	return r.SetString(env, append(data, s...), view.SCCpUTF8)
}

func (r *Clipboard) Length(env *Env) (int64, error) {
	s, _, err := r.GetString(env)
	if err != nil {
		return 0, err
	}
	return int64(utf8.RuneCount(s)), nil
}

func (r *Clipboard) GetChar(env *Env, pos int64) (int64, error) {
	return stringGetChar(r, env, pos)
}

// EnvVar reflects one process environment variable. The register is
// named "$NAME".
type EnvVar struct {
	Plain
}

// NewEnvVar creates a register mirroring the environment variable.
func NewEnvVar(name string) *EnvVar {
	return &EnvVar{Plain{name: "$" + name}}
}

func (r *EnvVar) varName() string { return r.name[1:] }

func (r *EnvVar) GetString(env *Env) ([]byte, int, error) {
	return []byte(os.Getenv(r.varName())), view.SCCpUTF8, nil
}

func (r *EnvVar) SetString(env *Env, s []byte, codepage int) error {
	name := r.varName()
	old, existed := os.LookupEnv(name)
	env.Undo.PushFunc(func() {
		if existed {
			_ = os.Setenv(name, old)
		} else {
			_ = os.Unsetenv(name)
		}
	})
	if err := os.Setenv(name, string(s)); err != nil {
		return errs.New(errs.Failed, "Cannot set $%s: %v", name, err)
	}
	return nil
}

func (r *EnvVar) AppendString(env *Env, s []byte) error {
	data, _, err := r.GetString(env)
	if err != nil {
		return err
	}
	return r.SetString(env, append(data, s...), view.SCCpUTF8)
}

func (r *EnvVar) Length(env *Env) (int64, error) {
	s, _, _ := r.GetString(env)
	return int64(utf8.RuneCount(s)), nil
}

func (r *EnvVar) GetChar(env *Env, pos int64) (int64, error) {
	return stringGetChar(r, env, pos)
}

// Radix aliases the expression radix (the ^R register). It is cached
// by the table for fast access from digit parsing.
type Radix struct {
	Plain
}

// NewRadix creates the "^R" (DC2) register.
func NewRadix() *Radix {
	return &Radix{Plain{name: "\x12"}}
}

func (r *Radix) GetInteger(env *Env) (int64, error) {
	return env.Expr.Radix, nil
}

func (r *Radix) SetInteger(env *Env, value int64) error {
	return env.Expr.SetRadix(value)
}

// Flags aliases a bit-mask variable, backing the ED flags register
// (^E).
type Flags struct {
	Plain
	bits *int64
}

// NewFlags creates a flag register aliasing *bits.
func NewFlags(name string, bits *int64) *Flags {
	return &Flags{Plain: Plain{name: name}, bits: bits}
}

func (r *Flags) GetInteger(env *Env) (int64, error) {
	return *r.bits, nil
}

func (r *Flags) SetInteger(env *Env, value int64) error {
	undo.Scalar(env.Undo, r.bits)
	*r.bits = value
	return nil
}

// stringGetChar implements GetChar for registers whose string is
// materialized via GetString.
func stringGetChar(r Register, env *Env, pos int64) (int64, error) {
	s, cp, err := r.GetString(env)
	if err != nil {
		return 0, err
	}
	d := view.NewDoc()
	d.SetCodepage(cp)
	d.SetText(s)
	return docGetChar(d, pos), nil
}
