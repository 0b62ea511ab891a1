package vm

import (
	"math"
	"time"

	"github.com/mprimi/golox/pkg/compiler"
	"github.com/mprimi/golox/pkg/object"
	"github.com/mprimi/golox/pkg/value"
)

// defineNatives registers every built-in function as a global binding,
// fixed so scripts can't shadow them with a plain reassignment.
func defineNatives(vm *VM) {
	define := func(name string, arity int, fn object.NativeFn) {
		nameStr := object.Intern(vm.strings, name, vm.trackCompileTime)
		native := object.NewNative(nameStr, arity, fn)
		vm.trackCompileTime(native, 40)
		idx := vm.globalIndex(nameStr)
		vm.globalValues[idx] = value.FromObj(native)
		vm.globalKind[idx] = compiler.AccessFix
	}

	define("clock", 0, nativeClock)
	define("sqrt", 1, nativeSqrt)
	define("type", 1, vm.nativeType)
	define("length", 1, nativeLength)
	define("hasField", 2, vm.nativeHasField)
	define("getField", 2, vm.nativeGetField)
	define("setField", 3, vm.nativeSetField)
	define("str", 1, vm.nativeStr)
	define("substr", 3, vm.nativeSubstr)
}

// globalIndex mirrors the compiler's own slot-registration scheme so
// natives occupy stable global slots the compiler's own declarations will
// never collide with (they're registered before any source compiles).
func (vm *VM) globalIndex(name *object.String) int {
	key := value.FromObj(name)
	if v, ok := vm.globalNames.Get(key); ok {
		return int(v.AsNumber())
	}
	idx := len(vm.globalValues)
	vm.globalNames.Set(key, value.Number(float64(idx)))
	vm.globalValues = append(vm.globalValues, value.Undefined())
	vm.globalKind = append(vm.globalKind, compiler.AccessVar)
	return idx
}

func nativeClock(args []value.Value) (value.Value, string, bool) {
	return value.Number(float64(time.Now().UnixNano()) / 1e9), "", true
}

func nativeSqrt(args []value.Value) (value.Value, string, bool) {
	if !args[0].IsNumber() {
		return value.Value{}, "sqrt() requires a number.", false
	}
	n := args[0].AsNumber()
	if n < 0 {
		return value.Value{}, "sqrt() requires a non-negative number.", false
	}
	return value.Number(math.Sqrt(n)), "", true
}

// nativeType reports the dynamic type name of a value: "nil", "bool",
// "number", "string", "function", "class", or "instance".
func (vm *VM) nativeType(args []value.Value) (value.Value, string, bool) {
	return value.FromObj(vm.internString(typeName(args[0]))), "", true
}

func typeName(v value.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return "bool"
	case v.IsNumber():
		return "number"
	case v.IsObj():
		switch v.AsObj().(type) {
		case *object.String:
			return "string"
		case *object.Function, *object.Closure, *object.Native, *object.BoundMethod:
			return "function"
		case *object.Class:
			return "class"
		case *object.Instance:
			return "instance"
		default:
			return "object"
		}
	default:
		return "unknown"
	}
}

func nativeLength(args []value.Value) (value.Value, string, bool) {
	s, ok := args[0].AsObj().(*object.String)
	if !args[0].IsObj() || !ok {
		return value.Value{}, "length() requires a string.", false
	}
	return value.Number(float64(len(s.Chars))), "", true
}

func (vm *VM) nativeHasField(args []value.Value) (value.Value, string, bool) {
	inst, ok := asInstance(args[0])
	if !ok {
		return value.Value{}, "hasField() requires an instance.", false
	}
	name, ok := asString(args[1])
	if !ok {
		return value.Value{}, "hasField() requires a string field name.", false
	}
	_, found := inst.Fields.Get(value.FromObj(name))
	return value.Bool(found), "", true
}

func (vm *VM) nativeGetField(args []value.Value) (value.Value, string, bool) {
	inst, ok := asInstance(args[0])
	if !ok {
		return value.Value{}, "getField() requires an instance.", false
	}
	name, ok := asString(args[1])
	if !ok {
		return value.Value{}, "getField() requires a string field name.", false
	}
	v, found := inst.Fields.Get(value.FromObj(name))
	if !found {
		return value.Value{}, "Undefined field '" + name.Chars + "'.", false
	}
	return v, "", true
}

func (vm *VM) nativeSetField(args []value.Value) (value.Value, string, bool) {
	inst, ok := asInstance(args[0])
	if !ok {
		return value.Value{}, "setField() requires an instance.", false
	}
	name, ok := asString(args[1])
	if !ok {
		return value.Value{}, "setField() requires a string field name.", false
	}
	inst.Fields.Set(value.FromObj(name), args[2])
	return args[2], "", true
}

// nativeStr renders any value the way PRINT does, exposing the display
// routine used internally by OP_PRINT.
func (vm *VM) nativeStr(args []value.Value) (value.Value, string, bool) {
	return value.FromObj(vm.internString(object.Display(args[0]))), "", true
}

// nativeSubstr extracts a byte range, clamping len so a request past the
// end of the string returns whatever remains rather than erroring.
func (vm *VM) nativeSubstr(args []value.Value) (value.Value, string, bool) {
	s, ok := asString(args[0])
	if !ok {
		return value.Value{}, "substr() requires a string.", false
	}
	if !args[1].IsNumber() || !args[2].IsNumber() {
		return value.Value{}, "substr() requires numeric start and length.", false
	}
	start := int(args[1].AsNumber())
	n := int(args[2].AsNumber())
	chars := s.Chars
	if start < 0 || start > len(chars) {
		return value.Value{}, "substr() start out of range.", false
	}
	end := start + n
	if n < 0 || end > len(chars) {
		end = len(chars)
	}
	return value.FromObj(vm.internString(chars[start:end])), "", true
}

func asInstance(v value.Value) (*object.Instance, bool) {
	if !v.IsObj() {
		return nil, false
	}
	i, ok := v.AsObj().(*object.Instance)
	return i, ok
}

func asString(v value.Value) (*object.String, bool) {
	if !v.IsObj() {
		return nil, false
	}
	s, ok := v.AsObj().(*object.String)
	return s, ok
}
