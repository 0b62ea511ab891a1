package vm

import (
	"strings"
	"testing"

	"github.com/mprimi/golox/pkg/compiler"
	"github.com/mprimi/golox/pkg/value"
	"github.com/stretchr/testify/require"
)

// captureOutput runs source on a fresh VM and returns everything written
// via Stdout, joined.
func captureOutput(t *testing.T, source string) (string, error) {
	t.Helper()
	strs := value.NewTable()
	globalNames := value.NewTable()
	globalVals := []value.Value{}
	globalKind := []compiler.AccessKind{}
	v := New(strs, globalNames, &globalVals, &globalKind)

	var out strings.Builder
	v.Stdout = func(s string) { out.WriteString(s) }

	err := v.Interpret(source)
	return out.String(), err
}

func TestArithmeticPrint(t *testing.T) {
	out, err := captureOutput(t, `print 1+2;`)
	require.NoError(t, err)
	require.Equal(t, "3\n", out)
}

func TestFunctionCallAndReturn(t *testing.T) {
	out, err := captureOutput(t, `fun f(x){return x*x;} print f(5);`)
	require.NoError(t, err)
	require.Equal(t, "25\n", out)
}

func TestClosureCapturesPerInstanceState(t *testing.T) {
	src := `fun mk(){var i=0; fun inc(){i=i+1; return i;} return inc;} var c=mk(); print c(); print c(); print c();`
	out, err := captureOutput(t, src)
	require.NoError(t, err)
	require.Equal(t, "1\n2\n3\n", out)
}

func TestFixReassignmentIsRuntimeErrorForGlobals(t *testing.T) {
	_, err := captureOutput(t, `fix x=10; x=11;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Fixed variable cannot be reassigned.")
}

func TestForLoopPrintsEachIteration(t *testing.T) {
	out, err := captureOutput(t, `for(var i=0;i<3;i=i+1){print i;}`)
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n", out)
}

func TestMatchStatementPicksFirstEqualCase(t *testing.T) {
	src := `match(2){ is 1: print "a"; is 2: print "b"; ?: print "z"; }`
	out, err := captureOutput(t, src)
	require.NoError(t, err)
	require.Equal(t, "b\n", out)
}

func TestStringConcatenationInternsResult(t *testing.T) {
	strs := value.NewTable()
	globalNames := value.NewTable()
	globalVals := []value.Value{}
	globalKind := []compiler.AccessKind{}
	v := New(strs, globalNames, &globalVals, &globalKind)

	var out strings.Builder
	v.Stdout = func(s string) { out.WriteString(s) }

	err := v.Interpret(`print "ab"+"cd"; print "ab"+"cd" == "abcd";`)
	require.NoError(t, err)
	require.Equal(t, "abcd\ntrue\n", out.String())

	later := v.internString("abcd")
	again := v.internString("abcd")
	require.Same(t, later, again)
}

func TestNativeStrRendersNumber(t *testing.T) {
	out, err := captureOutput(t, `print str(3.5);`)
	require.NoError(t, err)
	require.Equal(t, "3.5\n", out)
}

func TestNativeSubstrExtractsRange(t *testing.T) {
	out, err := captureOutput(t, `print substr("hello world", 0, 5);`)
	require.NoError(t, err)
	require.Equal(t, "hello\n", out)
}

func TestNativeTypeReportsDynamicKind(t *testing.T) {
	out, err := captureOutput(t, `print type(1); print type("a"); print type(nil); print type(true);`)
	require.NoError(t, err)
	require.Equal(t, "number\nstring\nnil\nbool\n", out)
}

func TestDeleteStatementRemovesField(t *testing.T) {
	src := `class Box {} var b = Box(); b.value = 1; delete b.value; print hasField(b, "value");`
	out, err := captureOutput(t, src)
	require.NoError(t, err)
	require.Equal(t, "false\n", out)
}

func TestGCStressDoesNotCorruptState(t *testing.T) {
	strs := value.NewTable()
	globalNames := value.NewTable()
	globalVals := []value.Value{}
	globalKind := []compiler.AccessKind{}
	v := New(strs, globalNames, &globalVals, &globalKind)
	v.SetStressGC(true)

	var out strings.Builder
	v.Stdout = func(s string) { out.WriteString(s) }

	err := v.Interpret(`
		class Node {}
		fun build(n) {
			var head = nil;
			var i = 0;
			while (i < n) {
				var node = Node();
				node.next = head;
				head = node;
				i = i + 1;
			}
			return head;
		}
		var list = build(50);
		var count = 0;
		while (list != nil) {
			count = count + 1;
			list = list.next;
		}
		print count;
	`)
	require.NoError(t, err)
	require.Equal(t, "50\n", out.String())
}
