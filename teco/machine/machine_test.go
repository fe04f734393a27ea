/*
 * SciTECO - Parser/executor test set.
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

package machine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhaberkorn/sciteco-sub000/display"
	"github.com/rhaberkorn/sciteco-sub000/teco/errs"
	"github.com/rhaberkorn/sciteco-sub000/teco/machine"
	"github.com/rhaberkorn/sciteco-sub000/teco/view"
)

func newRuntime(t *testing.T) (*machine.Runtime, *display.Batch) {
	t.Helper()
	batch := display.NewBatch("")
	rt := machine.NewRuntime(batch)
	return rt, batch
}

func exec(t *testing.T, rt *machine.Runtime, macro string) {
	t.Helper()
	require.NoError(t, rt.ExecuteMacro(macro, nil))
}

func buffer(rt *machine.Runtime) string {
	return string(rt.View.Doc().Bytes())
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

func TestArithmeticDisplay(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "2 3 + 4 * =")
	assert.Equal(t, "20", batch.LastMessage())
	assert.Equal(t, 0, rt.Expr.Args())
	assert.Equal(t, "", buffer(rt))
}

func TestPrecedenceWithinNumberRun(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "1+2*3=")
	assert.Equal(t, "7", batch.LastMessage())

	exec(t, rt, "(1+2)*3=")
	assert.Equal(t, "9", batch.LastMessage())
}

func TestLoopWithCounter(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "5<42UA>QA=")
	assert.Equal(t, "42", batch.LastMessage())
	assert.Equal(t, int64(42), regInt(t, rt, "A"))
}

func TestLoopExecutesExactlyNTimes(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "0UA 7<%A>")
	assert.Equal(t, int64(7), regInt(t, rt, "A"))
}

func TestZeroCountLoopSkipsBody(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "0UA 0<%A>")
	assert.Equal(t, int64(0), regInt(t, rt, "A"))
}

func TestNestedLoops(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "0UA 3<4<%A>>")
	assert.Equal(t, int64(12), regInt(t, rt, "A"))
}

func TestLoopBreak(t *testing.T) {
	rt, _ := newRuntime(t)
	// Break once the counter register exceeds 4.
	exec(t, rt, "0UA <%A 5-; >")
	assert.Equal(t, int64(5), regInt(t, rt, "A"))
}

func TestConditionals(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "1\"G 5UA | 6UA ' QA=")
	assert.Equal(t, "5", batch.LastMessage())

	exec(t, rt, "0\"G 5UB | 6UB ' QB=")
	assert.Equal(t, "6", batch.LastMessage())

	exec(t, rt, "0\"E 7UC ' QC=")
	assert.Equal(t, "7", batch.LastMessage())
}

func TestNestedConditionalSkipping(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "0UA 0\"G 1\"G 9UA ' 8UA ' QA")
	assert.Equal(t, int64(0), regInt(t, rt, "A"))
}

func TestGotoForward(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "O skip\x1b 1U A ! skip ! 2U A Q A=")
	assert.Equal(t, "2", batch.LastMessage())
	assert.Equal(t, int64(2), regInt(t, rt, "A"))
}

func TestGotoBackward(t *testing.T) {
	rt, _ := newRuntime(t)
	// Counts A up to 3 by looping through a backward goto.
	exec(t, rt, "0UA !loop! %A 3-\"L 1Oloop\x1b ' QA")
	assert.Equal(t, int64(3), regInt(t, rt, "A"))
}

func TestGotoUndefinedLabelFails(t *testing.T) {
	rt, _ := newRuntime(t)
	err := rt.ExecuteMacro("1Onowhere\x1b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestInsertAndDelete(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "Iabc\x1b")
	assert.Equal(t, "abc", buffer(rt))

	exec(t, rt, "0J 1D")
	assert.Equal(t, "bc", buffer(rt))

	exec(t, rt, "HK")
	assert.Equal(t, "", buffer(rt))
}

func TestInsertCodepointArguments(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "65,66I\x1b")
	assert.Equal(t, "AB", buffer(rt))
}

func TestRangeDelete(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "Iabcdef\x1b 1,3K")
	assert.Equal(t, "adef", buffer(rt))
}

func TestCharAtCommand(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "Iabc\x1b 0J 0A=")
	assert.Equal(t, "97", batch.LastMessage())
	exec(t, rt, "1A=")
	assert.Equal(t, "98", batch.LastMessage())
	exec(t, rt, "5A=")
	assert.Equal(t, "-1", batch.LastMessage())
}

func TestMovementCommands(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "Ione\ntwo\x1b 0J 2C .=")
	assert.Equal(t, "2", batch.LastMessage())
	exec(t, rt, "L .=")
	assert.Equal(t, "4", batch.LastMessage())
	exec(t, rt, "B .=")
	assert.Equal(t, "0", batch.LastMessage())
	exec(t, rt, "Z=")
	assert.Equal(t, "7", batch.LastMessage())
}

func TestMoveOutOfRange(t *testing.T) {
	rt, _ := newRuntime(t)
	err := rt.ExecuteMacro("Iab\x1b 0J 5C", nil)
	assert.Error(t, err)
	assert.Equal(t, errs.Range, errs.KindOf(err))

	// Colon-modified movement pushes a failure boolean instead.
	rt2, batch := newRuntime(t)
	exec(t, rt2, "Iab\x1b 0J :5C=")
	assert.Equal(t, "0", batch.LastMessage())
}

func TestSetAndGetRegisterString(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "\x15Ahello\x1b GA")
	assert.Equal(t, "hello", buffer(rt))
	assert.Equal(t, "hello", regStr(t, rt, "A"))
}

func TestCopyToRegister(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "Ione\ntwo\n\x1b 0J 1XA")
	assert.Equal(t, "one\n", regStr(t, rt, "A"))

	// Colon-modified X appends.
	exec(t, rt, "0J :1XA")
	assert.Equal(t, "one\none\n", regStr(t, rt, "A"))
}

func TestMacroExecution(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "\x15A 5UB QB=\x1b MA")
	assert.Equal(t, "5", batch.LastMessage())
	assert.Equal(t, int64(5), regInt(t, rt, "B"))
}

func TestMacroLocalsAreScoped(t *testing.T) {
	rt, _ := newRuntime(t)
	// The macro sets a local register; the caller's locals are
	// untouched since plain M gets a fresh table.
	exec(t, rt, "\x15A 9U.X\x1b MA")
	// No way to read the macro's locals afterwards; executing the
	// macro must simply succeed and not leak into globals.
	assert.Nil(t, rt.QEnv.Globals.Find(".X"))
}

func TestIncreaseRegister(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "10UA 5%A=")
	assert.Equal(t, "15", batch.LastMessage())
	assert.Equal(t, int64(15), regInt(t, rt, "A"))
}

func TestRegisterPushPop(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "7UA \x15Ahi\x1b [A 99UA \x15Abye\x1b ]A")
	assert.Equal(t, int64(7), regInt(t, rt, "A"))
	assert.Equal(t, "hi", regStr(t, rt, "A"))
}

func TestPopEmptyStack(t *testing.T) {
	rt, batch := newRuntime(t)
	err := rt.ExecuteMacro("]A", nil)
	assert.Error(t, err)

	exec(t, rt, ":]A=")
	assert.Equal(t, "0", batch.LastMessage())
}

func TestRadixCommands(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "^O 17=")
	assert.Equal(t, "15", batch.LastMessage())
	exec(t, rt, "^D 17=")
	assert.Equal(t, "17", batch.LastMessage())
	exec(t, rt, "16^R ^R=")
	assert.Equal(t, "16", batch.LastMessage())
	exec(t, rt, "^D")
}

func TestCaretCommands(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "^^A=")
	assert.Equal(t, "65", batch.LastMessage())
	exec(t, rt, "0^_=")
	assert.Equal(t, "-1", batch.LastMessage())
	exec(t, rt, "2^*10=")
	assert.Equal(t, "1024", batch.LastMessage())
	exec(t, rt, "17^/5=")
	assert.Equal(t, "2", batch.LastMessage())
}

func TestStringBuildingConstructs(t *testing.T) {
	rt, _ := newRuntime(t)
	// ^EU inserts the codepoint from a register's integer.
	exec(t, rt, "65UA I^EUA\x1b")
	assert.Equal(t, "A", buffer(rt))

	// ^EQ interpolates a register's string.
	exec(t, rt, "HK \x15Bworld\x1b Ihello ^EQB\x1b")
	assert.Equal(t, "hello world", buffer(rt))

	// ^E< > inserts a numeric codepoint.
	exec(t, rt, "HK I^E<66>\x1b")
	assert.Equal(t, "B", buffer(rt))

	// ^E\ formats a register's integer in the current radix.
	exec(t, rt, "HK 255UC 16^R I^E\\C\x1b ^D")
	assert.Equal(t, "FF", buffer(rt))

	// ^Q escapes the terminator; ^^ is a literal caret.
	exec(t, rt, "HK I^Q\x1bx\x1b")
	assert.Equal(t, "\x1bx", buffer(rt))
}

func TestStringBuildingCaseFolding(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "I^WaBc\x1b")
	assert.Equal(t, "ABc", buffer(rt))

	exec(t, rt, "HK I^W^WaBc\x1b")
	assert.Equal(t, "ABC", buffer(rt))

	exec(t, rt, "HK I^V^VAbC\x1b")
	assert.Equal(t, "abc", buffer(rt))
}

func TestStringBuildingIdempotence(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "Iplain text 123\x1b")
	assert.Equal(t, "plain text 123", buffer(rt))
}

func TestCtlUCollectsRaw(t *testing.T) {
	rt, _ := newRuntime(t)
	// String building is disabled for ^U: ^EQ stays literal.
	exec(t, rt, "\x15Ax\x1b \x15B^EQA\x1b")
	assert.Equal(t, "^EQA", regStr(t, rt, "B"))
}

func TestLongRegisterNames(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "23U[myreg] Q[myreg]=")
	assert.Equal(t, "23", batch.LastMessage())
}

func TestReplaceCommand(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "Iabc\x1b FRbc\x1bXY\x1b")
	assert.Equal(t, "aXY", buffer(rt))
}

func TestReplaceMismatchFails(t *testing.T) {
	rt, _ := newRuntime(t)
	err := rt.ExecuteMacro("Iabc\x1b FRzz\x1bXY\x1b", nil)
	assert.Error(t, err)
}

func TestReplaceWithAtBraces(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "Iabc\x1b @FR{bc}{ZZ}")
	assert.Equal(t, "aZZ", buffer(rt))
}

func TestAtModifiedInsert(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "@I/hello/")
	assert.Equal(t, "hello", buffer(rt))
}

func TestEscapeDiscardsArguments(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "1,2,3\x1b")
	assert.Equal(t, 0, rt.Expr.Args())
}

func TestDoubleEscapeReturnsFromMacro(t *testing.T) {
	rt, _ := newRuntime(t)
	exec(t, rt, "1UA \x1b\x1b 2UA")
	assert.Equal(t, int64(1), regInt(t, rt, "A"))
}

func TestUnterminatedCommandFails(t *testing.T) {
	rt, _ := newRuntime(t)
	err := rt.ExecuteMacro("Iabc", nil)
	assert.Error(t, err)
}

func TestUnterminatedLoopFails(t *testing.T) {
	rt, _ := newRuntime(t)
	err := rt.ExecuteMacro("5<1UA", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loop")
}

func TestModifierRejected(t *testing.T) {
	rt, _ := newRuntime(t)
	err := rt.ExecuteMacro("@5", nil)
	require.Error(t, err)
	assert.Equal(t, errs.Modifier, errs.KindOf(err))
}

func TestSyntaxErrorPosition(t *testing.T) {
	rt, _ := newRuntime(t)
	err := rt.ExecuteMacro("1UA \x00", nil)
	require.Error(t, err)
	assert.Equal(t, errs.Syntax, errs.KindOf(err))
	assert.Contains(t, errs.Display(err), "(at 1:5)")
}

func TestCmdlineReplacementOnlyInteractive(t *testing.T) {
	rt, _ := newRuntime(t)
	err := rt.ExecuteMacro("}", nil)
	require.Error(t, err)
	assert.Equal(t, errs.Syntax, errs.KindOf(err))
}

func TestQuitCommand(t *testing.T) {
	rt, _ := newRuntime(t)
	err := rt.ExecuteMacro("EX", nil)
	require.Error(t, err)
	assert.Equal(t, errs.Quit, errs.KindOf(err))
}

func TestEditAndSaveFile(t *testing.T) {
	rt, _ := newRuntime(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("from disk"), 0666))

	exec(t, rt, "EB"+path+"\x1b")
	assert.Equal(t, "from disk", buffer(rt))

	exec(t, rt, "HK Irewritten\x1b EW\x1b")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", string(data))
}

func TestSaveUnnamedBufferFails(t *testing.T) {
	rt, _ := newRuntime(t)
	err := rt.ExecuteMacro("Ix\x1b EW\x1b", nil)
	assert.Error(t, err)
}

func TestLoadRegisterFromFile(t *testing.T) {
	rt, _ := newRuntime(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "reg.txt")
	require.NoError(t, os.WriteFile(path, []byte("reg data"), 0666))

	exec(t, rt, "EQA"+path+"\x1b")
	assert.Equal(t, "reg data", regStr(t, rt, "A"))

	out := filepath.Join(dir, "out.txt")
	exec(t, rt, "E%A"+out+"\x1b")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "reg data", string(data))
}

func TestParserDeterminism(t *testing.T) {
	// The same macro executed on two fresh runtimes yields the
	// same state.
	run := func() (string, int64) {
		rt, _ := newRuntime(t)
		exec(t, rt, "Iabc\x1b 0J 2C 5UA")
		return buffer(rt), regInt(t, rt, "A")
	}
	b1, a1 := run()
	b2, a2 := run()
	assert.Equal(t, b1, b2)
	assert.Equal(t, a1, a2)
}

func TestExecuteFileSkipsHashBang(t *testing.T) {
	rt, _ := newRuntime(t)
	require.NoError(t, rt.ExecuteFile("test.tec", "#!/usr/bin/sciteco\n5UA"))
	assert.Equal(t, int64(5), regInt(t, rt, "A"))
}

func TestBufferInfoRegister(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "Q*=")
	assert.Equal(t, "1", batch.LastMessage())
}

func TestEDFlagsRegister(t *testing.T) {
	rt, batch := newRuntime(t)
	exec(t, rt, "Q^E=")
	assert.Equal(t, "1", batch.LastMessage())
	exec(t, rt, "64U^E Q^E=")
	assert.Equal(t, "64", batch.LastMessage())
	exec(t, rt, "1U^E")
}

func TestLexRecordsStyles(t *testing.T) {
	rt, _ := newRuntime(t)
	v := view.New()
	machine.Lex(rt, v, "1UA!x!")
	assert.Equal(t, machine.StyleCommand, v.StyleAt(0))
	assert.Equal(t, machine.StyleLabel, v.StyleAt(4))
}

func TestWorkingDirRegister(t *testing.T) {
	rt, _ := newRuntime(t)
	wd, _ := os.Getwd()
	assert.Equal(t, wd, regStr(t, rt, "$"))
}
