package compiler

import (
	"bytes"
	"testing"

	"github.com/mprimi/golox/pkg/bytecode"
	"github.com/mprimi/golox/pkg/value"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, source string) *bytecode.Chunk {
	t.Helper()
	strings := value.NewTable()
	globalNames := value.NewTable()
	globalVals := []value.Value{}
	globalKind := []AccessKind{}
	fn, errs := Compile(source, strings, globalNames, &globalVals, &globalKind, nil)
	require.Empty(t, errs, "unexpected compile errors: %v", errs)
	require.NotNil(t, fn)
	return fn.Chunk
}

func disassembly(c *bytecode.Chunk) string {
	var buf bytes.Buffer
	bytecode.Disassemble(&buf, c, "test")
	return buf.String()
}

func TestCompileArithmeticEmitsAddAndPrint(t *testing.T) {
	c := compileSource(t, "print 1+2;")
	out := disassembly(c)
	require.Contains(t, out, "ADD")
	require.Contains(t, out, "PRINT")
}

func TestCompileVarDeclarationEmitsDefineGlobal(t *testing.T) {
	c := compileSource(t, "var x = 10;")
	out := disassembly(c)
	require.Contains(t, out, "DEFINE_GLOBAL")
}

func TestCompileIfElseEmitsJumps(t *testing.T) {
	c := compileSource(t, `if (true) { print 1; } else { print 2; }`)
	out := disassembly(c)
	require.Contains(t, out, "JUMP_IF_FALSE")
	require.Contains(t, out, "JUMP")
}

func TestCompileWhileEmitsLoop(t *testing.T) {
	c := compileSource(t, `var i = 0; while (i < 3) { i = i + 1; }`)
	out := disassembly(c)
	require.Contains(t, out, "LOOP")
}

func TestCompileMatchEmitsComparisonsPerArm(t *testing.T) {
	c := compileSource(t, `match (2) { is 1: print "a"; is 2: print "b"; ?: print "z"; }`)
	out := disassembly(c)
	require.Contains(t, out, "EQUAL")
	require.Contains(t, out, "PRINT")
}

func TestCompileClosureEmitsClosureOpcode(t *testing.T) {
	c := compileSource(t, `fun mk() { var i = 0; fun inc() { i = i + 1; return i; } return inc; }`)
	out := disassembly(c)
	require.Contains(t, out, "CLOSURE")
}

func TestCompileClassEmitsClassAndMethod(t *testing.T) {
	c := compileSource(t, `class Greeter { greet() { print "hi"; } }`)
	out := disassembly(c)
	require.Contains(t, out, "CLASS")
	require.Contains(t, out, "METHOD")
}

func TestCompileDeleteStatementEmitsDelProperty(t *testing.T) {
	c := compileSource(t, `class Box {} var b = Box(); delete b.value;`)
	out := disassembly(c)
	require.Contains(t, out, "DEL_PROPERTY")
}

func TestCompileDeleteChainWalksIntermediateFields(t *testing.T) {
	c := compileSource(t, `class Box {} var b = Box(); delete b.inner.value;`)
	out := disassembly(c)
	require.Contains(t, out, "GET_PROPERTY")
	require.Contains(t, out, "DEL_PROPERTY")
}

func TestCompileFixLocalReassignmentIsCompileError(t *testing.T) {
	strings := value.NewTable()
	globalNames := value.NewTable()
	globalVals := []value.Value{}
	globalKind := []AccessKind{}
	source := `{ fix x = 1; x = 2; }`
	fn, errs := Compile(source, strings, globalNames, &globalVals, &globalKind, nil)
	require.Nil(t, fn)
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0], "Fixed variable cannot be reassigned.")
}

func TestCompileFixGlobalReassignmentCompilesButDefersToRuntime(t *testing.T) {
	// Globals are resolved dynamically, so the Fix check for a global
	// target happens in the VM at OP_SET_GLOBAL, not here.
	c := compileSource(t, `fix x = 1; x = 2;`)
	out := disassembly(c)
	require.Contains(t, out, "SET_GLOBAL")
}
