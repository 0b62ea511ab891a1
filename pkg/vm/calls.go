package vm

import (
	"github.com/mprimi/golox/pkg/object"
	"github.com/mprimi/golox/pkg/value"
)

// callValue dispatches CALL by the callee's object kind: Closure pushes a
// new frame, Native invokes synchronously and collapses the argument
// window to one slot, Class instantiates (running `init` if present).
func (vm *VM) callValue(callee value.Value, argc int) error {
	if !callee.IsObj() {
		return vm.runtimeError("Can only call functions and classes.")
	}
	switch o := callee.AsObj().(type) {
	case *object.Closure:
		return vm.call(o, argc)
	case *object.Native:
		return vm.callNative(o, argc)
	case *object.Class:
		instance := vm.allocInstance(o)
		vm.stack[vm.stackTop-argc-1] = value.FromObj(instance)
		if o.Init != nil {
			return vm.call(o.Init, argc)
		}
		if argc != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d.", argc)
		}
		return nil
	case *object.BoundMethod:
		vm.stack[vm.stackTop-argc-1] = o.Receiver
		return vm.call(o.Method, argc)
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

func (vm *VM) call(closure *object.Closure, argc int) error {
	if argc != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argc)
	}
	if vm.frameCount == maxFrames {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames[vm.frameCount] = frame{closure: closure, ip: 0, slots: vm.stackTop - argc - 1}
	vm.frameCount++
	return nil
}

func (vm *VM) callNative(n *object.Native, argc int) error {
	if argc != n.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", n.Arity, argc)
	}
	args := vm.stack[vm.stackTop-argc : vm.stackTop]
	result, errMsg, ok := n.Fn(args)
	vm.stackTop -= argc + 1
	if !ok {
		return vm.runtimeError("%s", errMsg)
	}
	vm.push(result)
	return nil
}

// invoke optimizes `receiver.name(args)` into one opcode: it looks up the
// method directly on the instance's class without materializing a
// BoundMethod, falling back to a plain property+call for field values
// that happen to be callable (e.g. a stored closure).
func (vm *VM) invoke(name *object.String, argc int) error {
	receiver := vm.peek(argc)
	if !receiver.IsObj() {
		return vm.runtimeError("Only instances have methods.")
	}
	instance, ok := receiver.AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError("Only instances have methods.")
	}
	if v, ok := instance.Fields.Get(value.FromObj(name)); ok {
		vm.stack[vm.stackTop-argc-1] = v
		return vm.callValue(v, argc)
	}
	method, ok := instance.Class.Methods.Get(value.FromObj(name))
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.AsObj().(*object.Closure), argc)
}

func (vm *VM) getProperty(name *object.String) error {
	if !vm.peek(0).IsObj() {
		return vm.runtimeError("Only instances have properties.")
	}
	instance, ok := vm.peek(0).AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError("Only instances have properties.")
	}
	if v, ok := instance.Fields.Get(value.FromObj(name)); ok {
		vm.pop()
		vm.push(v)
		return nil
	}
	if method, ok := instance.Class.Methods.Get(value.FromObj(name)); ok {
		bound := vm.allocBoundMethod(vm.peek(0), method.AsObj().(*object.Closure))
		vm.pop()
		vm.push(value.FromObj(bound))
		return nil
	}
	return vm.runtimeError("Undefined property '%s'.", name.Chars)
}

func (vm *VM) setProperty(name *object.String) error {
	if !vm.peek(1).IsObj() {
		return vm.runtimeError("Only instances have fields.")
	}
	instance, ok := vm.peek(1).AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError("Only instances have fields.")
	}
	instance.Fields.Set(value.FromObj(name), vm.peek(0))
	v := vm.pop()
	vm.pop()
	vm.push(v)
	return nil
}

func (vm *VM) delProperty(name *object.String) error {
	if !vm.peek(0).IsObj() {
		return vm.runtimeError("Only instances have fields.")
	}
	instance, ok := vm.peek(0).AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError("Only instances have fields.")
	}
	instance.Fields.Delete(value.FromObj(name))
	vm.pop()
	return nil
}

func (vm *VM) defineMethod(name *object.String) {
	method := vm.peek(0)
	class := vm.peek(1).AsObj().(*object.Class)
	class.Methods.Set(value.FromObj(name), method)
	if name == vm.initString {
		class.Init = method.AsObj().(*object.Closure)
	}
	vm.pop()
}

// captureUpvalue walks the descending-by-slot open-upvalue list looking
// for an existing upvalue at slot, returning it if found (comparison, not
// the source's assignment bug — see DESIGN.md); otherwise it allocates
// and links a new one at the correct position.
func (vm *VM) captureUpvalue(slot int) *object.Upvalue {
	var prev *object.Upvalue
	cur := vm.openUpvalues
	for cur != nil && cur.Slot > slot {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Slot == slot {
		return cur
	}
	created := vm.allocUpvalue(slot)
	created.Next = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose slot is at or above last,
// moving the value into the upvalue itself so it outlives the stack slot.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= last {
		u := vm.openUpvalues
		u.Close(vm.stack[u.Slot])
		vm.openUpvalues = u.Next
	}
}
