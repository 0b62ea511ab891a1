package vm

import (
	"testing"

	"github.com/mprimi/golox/pkg/compiler"
	"github.com/mprimi/golox/pkg/value"
	"github.com/stretchr/testify/require"
)

func newTestVM() *VM {
	strs := value.NewTable()
	globalNames := value.NewTable()
	globalVals := []value.Value{}
	globalKind := []compiler.AccessKind{}
	return New(strs, globalNames, &globalVals, &globalKind)
}

func TestDebuggerShouldPauseRequiresEnable(t *testing.T) {
	v := newTestVM()
	d := v.EnableDebugger()
	d.Disable()
	d.AddBreakpoint(3)
	require.False(t, d.ShouldPause(3), "a disabled debugger never pauses")

	d.Enable()
	require.True(t, d.ShouldPause(3))
	require.False(t, d.ShouldPause(4))
}

func TestDebuggerStepModePausesEverywhere(t *testing.T) {
	v := newTestVM()
	d := v.EnableDebugger()
	d.SetStepMode(true)
	require.True(t, d.ShouldPause(0))
	require.True(t, d.ShouldPause(999))
}

func TestDebuggerBreakpointLifecycle(t *testing.T) {
	v := newTestVM()
	d := v.EnableDebugger()
	d.AddBreakpoint(10)
	require.True(t, d.ShouldPause(10))

	d.RemoveBreakpoint(10)
	require.False(t, d.ShouldPause(10))

	d.AddBreakpoint(1)
	d.AddBreakpoint(2)
	d.ClearBreakpoints()
	require.False(t, d.ShouldPause(1))
	require.False(t, d.ShouldPause(2))
}

func TestEnableDebuggerIsIdempotent(t *testing.T) {
	v := newTestVM()
	d1 := v.EnableDebugger()
	d2 := v.EnableDebugger()
	require.Same(t, d1, d2, "EnableDebugger must reuse the existing instance")
	require.Same(t, d1, v.GetDebugger())
}
