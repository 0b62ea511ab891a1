package bytecode

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mprimi/golox/pkg/value"
	"github.com/stretchr/testify/require"
)

func TestWriteConstantSwitchesWidthAtThreshold(t *testing.T) {
	c := NewChunk()
	for i := 0; i < 256; i++ {
		c.WriteConstant(value.Number(float64(i)), 1)
	}
	require.Len(t, c.Constants, 256)

	// The 256th constant (index 255) still fits in a 1-byte operand.
	require.Equal(t, byte(OpConstant), c.Code[len(c.Code)-2])

	c.WriteConstant(value.Number(999), 1)
	require.Len(t, c.Constants, 257)
	// Index 256 no longer fits, so this one emits the long form.
	n := len(c.Code)
	require.Equal(t, byte(OpConstantLong), c.Code[n-4])
}

func TestWriteVariableShortAndLong(t *testing.T) {
	c := NewChunk()
	c.WriteVariable(3, 1)
	require.Equal(t, []byte{byte(OpShortOperand), 3}, c.Code)

	c = NewChunk()
	c.WriteVariable(300, 2)
	require.Equal(t, byte(OpLongOperand), c.Code[0])
	require.Len(t, c.Code, 4)
}

func TestLineForFollowsMonotoneRuns(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpTrue, 2)
	c.WriteOp(OpPop, 5)

	require.Equal(t, 1, c.LineFor(0))
	require.Equal(t, 1, c.LineFor(1))
	require.Equal(t, 2, c.LineFor(2))
	require.Equal(t, 5, c.LineFor(3))
}

func TestEmitJumpAndPatchJump(t *testing.T) {
	c := NewChunk()
	jumpOffset := c.EmitJump(OpJumpIfFalse, 1)
	c.WriteOp(OpPop, 1)
	c.WriteOp(OpPop, 1)
	require.NoError(t, c.PatchJump(jumpOffset))

	dist := int(c.Code[jumpOffset])<<8 | int(c.Code[jumpOffset+1])
	require.Equal(t, 2, dist)
}

func TestEmitLoopBacktracksToStart(t *testing.T) {
	c := NewChunk()
	loopStart := len(c.Code)
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpPop, 1)
	require.NoError(t, c.EmitLoop(loopStart, 1))

	offset := len(c.Code) - 2
	dist := int(c.Code[offset])<<8 | int(c.Code[offset+1])
	require.Equal(t, len(c.Code)-loopStart, dist)
}

func TestDisassembleRendersConstantAndSimpleInstructions(t *testing.T) {
	c := NewChunk()
	c.WriteConstant(value.Number(42), 7)
	c.WriteOp(OpPrint, 7)
	c.WriteOp(OpReturn, 7)

	var buf bytes.Buffer
	Disassemble(&buf, c, "test chunk")

	out := buf.String()
	require.Contains(t, out, "test chunk")
	require.Contains(t, out, "CONSTANT")
	require.Contains(t, out, "PRINT")
	require.Contains(t, out, "RETURN")
}

func TestChunkRoundTripPreservesOperandWidths(t *testing.T) {
	build := func() *Chunk {
		c := NewChunk()
		c.WriteConstant(value.Number(1), 1)
		c.WriteVariable(5, 2)
		j := c.EmitJump(OpJumpIfFalse, 3)
		c.WriteOp(OpPop, 3)
		require.NoError(t, c.PatchJump(j))
		return c
	}

	a, b := build(), build()
	if diff := cmp.Diff(a.Code, b.Code); diff != "" {
		t.Fatalf("two independently built chunks diverged in byte-code (-a +b):\n%s", diff)
	}
}

func TestDisassembleInstructionAtAdvancesByOperandWidth(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpNil, 1)
	c.WriteConstant(value.Number(1), 1)

	var buf bytes.Buffer
	next := DisassembleInstructionAt(&buf, c, 0)
	require.Equal(t, 1, next)

	next = DisassembleInstructionAt(&buf, c, next)
	require.Equal(t, 3, next)
}
