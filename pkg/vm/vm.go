// Package vm implements the call-frame stack, dispatch loop, and tri-color
// mark-sweep garbage collector that execute compiled Chunks.
package vm

import (
	"fmt"
	"math"

	"github.com/mprimi/golox/pkg/bytecode"
	"github.com/mprimi/golox/pkg/compiler"
	"github.com/mprimi/golox/pkg/object"
	"github.com/mprimi/golox/pkg/value"
)

const (
	maxFrames     = 64
	initialStack  = maxFrames * 8
	initialNextGC = 1 << 20 // 1 MiB
)

// frame is one call-frame: the running closure, its instruction pointer
// into that closure's chunk, and the base index of its value-stack
// window (slot 0 holds the callee/receiver).
type frame struct {
	closure *object.Closure
	ip      int
	slots   int
}

// VM is the process-wide interpreter state. There is exactly one per
// program run; it is never safe for concurrent use.
type VM struct {
	frames     [maxFrames]frame
	frameCount int

	stack    []value.Value
	stackTop int

	strings      *value.Table
	globalNames  *value.Table
	globalValues []value.Value
	globalKind   []compiler.AccessKind

	openUpvalues *object.Upvalue
	objects      object.Obj

	grayStack []object.Obj

	bytesAllocated int64
	nextGC         int64
	stressGC       bool

	initString *object.String

	debugger *Debugger

	Stdout func(string)
}

// EnableDebugger creates (if needed) and enables an interactive
// breakpoint/step debugger for this VM.
func (vm *VM) EnableDebugger() *Debugger {
	if vm.debugger == nil {
		vm.debugger = NewDebugger(vm)
	}
	vm.debugger.Enable()
	return vm.debugger
}

// GetDebugger returns the debugger instance, if one has been enabled.
func (vm *VM) GetDebugger() *Debugger { return vm.debugger }

// New returns a freshly initialized VM sharing the given intern table and
// global-variable tables with the compiler that will feed it chunks (the
// REPL reuses both across successive Interpret calls).
func New(strings *value.Table, globalNames *value.Table, globalValues *[]value.Value, globalKind *[]compiler.AccessKind) *VM {
	vm := &VM{
		stack:        make([]value.Value, initialStack),
		strings:      strings,
		globalNames:  globalNames,
		globalValues: *globalValues,
		globalKind:   *globalKind,
		nextGC:       initialNextGC,
		Stdout:       func(s string) { fmt.Print(s) },
	}
	vm.initString = object.Intern(strings, "init", vm.trackCompileTime)
	defineNatives(vm)
	*globalValues = vm.globalValues
	*globalKind = vm.globalKind
	return vm
}

// SetStressGC toggles collect-before-every-allocation mode, bound to the
// `--gc-stress` CLI flag.
func (vm *VM) SetStressGC(on bool) { vm.stressGC = on }

func (vm *VM) push(v value.Value) {
	if vm.stackTop >= len(vm.stack) {
		vm.stack = append(vm.stack, v)
	} else {
		vm.stack[vm.stackTop] = v
	}
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Interpret compiles and runs source against this VM's shared global
// state, returning any compile errors joined together or a *RuntimeError.
func (vm *VM) Interpret(source string) error {
	fn, errs := compiler.Compile(source, vm.strings, vm.globalNames, &vm.globalValues, &vm.globalKind, vm.trackCompileTime)
	if fn == nil {
		msg := ""
		for i, e := range errs {
			if i > 0 {
				msg += "\n"
			}
			msg += e
		}
		return &CompileError{msg}
	}
	vm.push(value.FromObj(fn))
	closure := vm.allocClosure(fn)
	vm.pop()
	vm.push(value.FromObj(closure))
	if err := vm.callValue(value.FromObj(closure), 0); err != nil {
		vm.resetStack()
		return err
	}
	err := vm.run()
	vm.resetStack()
	return err
}

// CompileError wraps the newline-joined diagnostics produced when
// compilation fails; the driver maps it to exit code 65.
type CompileError struct{ Message string }

func (e *CompileError) Error() string { return e.Message }

func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	var trace []StackFrame
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := f.closure.Function.Chunk.LineFor(f.ip - 1)
		name := "script"
		if f.closure.Function.Name != nil {
			name = f.closure.Function.Name.Chars + "()"
		}
		trace = append(trace, StackFrame{Line: line, Name: name})
	}
	return newRuntimeError(msg, trace)
}

// run executes frames until the outermost frame returns. ip is cached in
// the local `f` and only written back implicitly (f is a pointer into
// vm.frames) — every call/return updates `f`, `chunk`, and `code` in
// lockstep, per the register-cached dispatch loop.
func (vm *VM) run() error {
	f := &vm.frames[vm.frameCount-1]
	chunk := f.closure.Function.Chunk
	code := chunk.Code

	readByte := func() byte {
		b := code[f.ip]
		f.ip++
		return b
	}
	readU16 := func() int {
		hi, lo := code[f.ip], code[f.ip+1]
		f.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readU24 := func() int {
		b0, b1, b2 := code[f.ip], code[f.ip+1], code[f.ip+2]
		f.ip += 3
		return int(b0)<<16 | int(b1)<<8 | int(b2)
	}
	readVariable := func() int {
		prefix := bytecode.Op(readByte())
		if prefix == bytecode.OpShortOperand {
			return int(readByte())
		}
		return readU24()
	}

	for {
		if vm.frameCount > maxFrames {
			return vm.runtimeError("Stack overflow.")
		}
		if vm.debugger != nil && vm.debugger.ShouldPause(f.ip) {
			if !vm.debugger.InteractivePrompt(chunk, f) {
				return vm.runtimeError("Execution aborted by debugger.")
			}
		}
		op := bytecode.Op(readByte())
		switch op {
		case bytecode.OpZero:
			vm.push(value.Number(0))
		case bytecode.OpOne:
			vm.push(value.Number(1))
		case bytecode.OpTwo:
			vm.push(value.Number(2))
		case bytecode.OpMinusOne:
			vm.push(value.Number(-1))
		case bytecode.OpConstant:
			vm.push(chunk.Constants[readByte()])
		case bytecode.OpConstantLong:
			vm.push(chunk.Constants[readU24()])
		case bytecode.OpDup:
			vm.push(vm.peek(0))
		case bytecode.OpNil:
			vm.push(value.Nil())
		case bytecode.OpTrue:
			vm.push(value.Bool(true))
		case bytecode.OpFalse:
			vm.push(value.Bool(false))
		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpPopN:
			n := int(readByte())
			vm.stackTop -= n

		case bytecode.OpDefineGlobal:
			idx := readVariable()
			vm.globalValues[idx] = vm.pop()
		case bytecode.OpGetGlobal:
			idx := readVariable()
			v := vm.globalValues[idx]
			if v.IsUndefined() {
				return vm.runtimeError("Undefined variable.")
			}
			vm.push(v)
		case bytecode.OpSetGlobal:
			idx := readVariable()
			if vm.globalValues[idx].IsUndefined() {
				return vm.runtimeError("Undefined variable.")
			}
			if vm.globalKind[idx] == compiler.AccessFix {
				return vm.runtimeError("Fixed variable cannot be reassigned.")
			}
			vm.globalValues[idx] = vm.peek(0)

		case bytecode.OpGetLocal:
			idx := readVariable()
			vm.push(vm.stack[f.slots+idx])
		case bytecode.OpSetLocal:
			idx := readVariable()
			vm.stack[f.slots+idx] = vm.peek(0)

		case bytecode.OpGetUpvalue:
			idx := readVariable()
			vm.push(vm.readUpvalue(f.closure.Upvalues[idx]))
		case bytecode.OpSetUpvalue:
			idx := readVariable()
			vm.writeUpvalue(f.closure.Upvalues[idx], vm.peek(0))

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(a.Equal(b)))
		case bytecode.OpGreater, bytecode.OpLess:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			b := vm.pop().AsNumber()
			a := vm.pop().AsNumber()
			if op == bytecode.OpGreater {
				vm.push(value.Bool(a > b))
			} else {
				vm.push(value.Bool(a < b))
			}

		case bytecode.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			b := vm.pop().AsNumber()
			a := vm.pop().AsNumber()
			switch op {
			case bytecode.OpSubtract:
				vm.push(value.Number(a - b))
			case bytecode.OpMultiply:
				vm.push(value.Number(a * b))
			case bytecode.OpDivide:
				if b == 0 {
					return vm.runtimeError("Division by zero.")
				}
				vm.push(value.Number(a / b))
			}
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))
		case bytecode.OpIncrement:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			vm.push(value.Number(vm.pop().AsNumber() + 1))
		case bytecode.OpDecrement:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			vm.push(value.Number(vm.pop().AsNumber() - 1))
		case bytecode.OpNot:
			vm.push(value.Bool(vm.pop().IsFalsey()))

		case bytecode.OpPrint:
			vm.Stdout(object.Display(vm.pop()) + "\n")

		case bytecode.OpJump:
			offset := readU16()
			f.ip += offset
		case bytecode.OpJumpIfFalse:
			offset := readU16()
			if vm.peek(0).IsFalsey() {
				f.ip += offset
			}
		case bytecode.OpLoop:
			offset := readU16()
			f.ip -= offset

		case bytecode.OpCall:
			argc := int(readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
			f, chunk, code = vm.reloadFrame()

		case bytecode.OpInvoke:
			nameIdx := readVariable()
			argc := int(readByte())
			name := chunk.Constants[nameIdx].AsObj().(*object.String)
			if err := vm.invoke(name, argc); err != nil {
				return err
			}
			f, chunk, code = vm.reloadFrame()

		case bytecode.OpClosure:
			idx := readU24()
			fn := chunk.Constants[idx].AsObj().(*object.Function)
			closure := vm.allocClosure(fn)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := int(readByte())
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(f.slots + index)
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}
			vm.push(value.FromObj(closure))

		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case bytecode.OpClass:
			idx := readVariable()
			name := chunk.Constants[idx].AsObj().(*object.String)
			vm.push(value.FromObj(vm.allocClass(name)))

		case bytecode.OpMethod:
			idx := readVariable()
			name := chunk.Constants[idx].AsObj().(*object.String)
			vm.defineMethod(name)

		case bytecode.OpGetProperty:
			idx := readVariable()
			name := chunk.Constants[idx].AsObj().(*object.String)
			if err := vm.getProperty(name); err != nil {
				return err
			}
		case bytecode.OpSetProperty:
			idx := readVariable()
			name := chunk.Constants[idx].AsObj().(*object.String)
			if err := vm.setProperty(name); err != nil {
				return err
			}
		case bytecode.OpDelProperty:
			idx := readVariable()
			name := chunk.Constants[idx].AsObj().(*object.String)
			if err := vm.delProperty(name); err != nil {
				return err
			}

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(f.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = f.slots
			vm.push(result)
			f, chunk, code = vm.reloadFrame()

		default:
			return vm.runtimeError("Unknown opcode %d.", byte(op))
		}
	}
}

func (vm *VM) readUpvalue(u *object.Upvalue) value.Value {
	if u.Open {
		return vm.stack[u.Slot]
	}
	return u.Closed
}

func (vm *VM) writeUpvalue(u *object.Upvalue, v value.Value) {
	if u.Open {
		vm.stack[u.Slot] = v
	} else {
		u.Closed = v
	}
}

func (vm *VM) reloadFrame() (*frame, *bytecode.Chunk, []byte) {
	f := &vm.frames[vm.frameCount-1]
	return f, f.closure.Function.Chunk, f.closure.Function.Chunk.Code
}

func (vm *VM) add() error {
	b, a := vm.peek(0), vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
		return nil
	case vm.isString(a) && vm.isString(b):
		return vm.concatenate()
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
}

func (vm *VM) isString(v value.Value) bool {
	if !v.IsObj() {
		return false
	}
	_, ok := v.AsObj().(*object.String)
	return ok
}

// concatenate implements the peek-not-pop-until-done allocation guard:
// both operands stay on the stack (hence GC-reachable) until the result
// itself is pushed.
func (vm *VM) concatenate() error {
	b := vm.peek(0).AsObj().(*object.String)
	a := vm.peek(1).AsObj().(*object.String)
	result := a.Chars + b.Chars
	interned := vm.internString(result)
	vm.pop()
	vm.pop()
	vm.push(value.FromObj(interned))
	return nil
}

func formatNumberForError(n float64) string {
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return fmt.Sprintf("%v", n)
	}
	return fmt.Sprintf("%g", n)
}
