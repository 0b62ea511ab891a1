package vm

import (
	"github.com/mprimi/golox/pkg/object"
	"github.com/mprimi/golox/pkg/value"
)

// Every allocation site in this file funnels through track, which links
// the new object into vm.objects and accounts its size, then triggers a
// collection if the updated total demands one — the single allocation
// path the lifecycle invariant requires.

func (vm *VM) track(o object.Obj, size int64) {
	o.SetNext(vm.objects)
	vm.objects = o
	vm.bytesAllocated += size
	if vm.stressGC || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}
}

// trackCompileTime links o into the allocation list and accounts its size,
// like track, but never triggers a collection. It backs allocation that
// happens before anything is rooted on the value stack: compiling a
// source file (the function being built is reachable only from the
// compiler's own locals, not from vm.stack) and registering natives
// during New() (nothing has run yet). Letting a collection land there
// could sweep a freshly interned string or function out of vm.objects,
// and out of the intern table, before it's ever attached to anything —
// the same content would then re-intern as a second, distinct String.
// Compilation completes atomically before any instruction runs, and
// Interpret keeps the compiled script function pushed on the value stack
// while it allocates the script's closure, so nothing tracked this way
// goes uncollectable: a collection triggered by that allocation finds the
// function on the stack, and every later one finds it through the
// executing frame's closure.
func (vm *VM) trackCompileTime(o object.Obj, size int64) {
	o.SetNext(vm.objects)
	vm.objects = o
	vm.bytesAllocated += size
}

// internString returns the canonical String for s, tracking it on the
// allocation list the first time that content is seen. This is the path
// every run-time string-producing operation (concatenation, type(),
// str()/substr()) goes through; the compiler's literal and name interning
// and native registration call object.Intern directly with
// trackCompileTime instead.
func (vm *VM) internString(s string) *object.String {
	return object.Intern(vm.strings, s, vm.track)
}

func (vm *VM) allocClosure(fn *object.Function) *object.Closure {
	c := object.NewClosure(fn)
	vm.track(c, 32+int64(fn.UpvalueCount)*8)
	return c
}

func (vm *VM) allocUpvalue(slot int) *object.Upvalue {
	u := object.NewUpvalue(slot)
	vm.track(u, 40)
	return u
}

func (vm *VM) allocClass(name *object.String) *object.Class {
	c := object.NewClass(name)
	vm.track(c, 48)
	return c
}

func (vm *VM) allocInstance(class *object.Class) *object.Instance {
	i := object.NewInstance(class)
	vm.track(i, 48)
	return i
}

func (vm *VM) allocBoundMethod(receiver value.Value, method *object.Closure) *object.BoundMethod {
	b := object.NewBoundMethod(receiver, method)
	vm.track(b, 32)
	return b
}

// collectGarbage runs one full tri-color mark-sweep cycle: mark the root
// set, drain the gray worklist (blackening as it goes), drop dangling
// intern-table keys, sweep unmarked objects, and reschedule the next
// collection.
func (vm *VM) collectGarbage() {
	vm.markRoots()
	vm.traceReferences()
	vm.strings.RemoveUnmarkedKeys()
	vm.sweep()
	vm.nextGC = vm.bytesAllocated * 2
	if vm.nextGC < initialNextGC {
		vm.nextGC = initialNextGC
	}
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for u := vm.openUpvalues; u != nil; u = u.Next {
		vm.markObject(u)
	}
	for _, v := range vm.globalValues {
		vm.markValue(v)
	}
	vm.globalNames.ForEach(func(k, _ value.Value) { vm.markValue(k) })
	if vm.initString != nil {
		vm.markObject(vm.initString)
	}
}

func (vm *VM) markValue(v value.Value) {
	if v.IsObj() {
		vm.markObject(v.AsObj())
	}
}

func (vm *VM) markObject(o object.Obj) {
	if o == nil || o.Marked() {
		return
	}
	o.SetMarked(true)
	vm.grayStack = append(vm.grayStack, o)
}

// traceReferences drains the gray worklist, blackening each object by
// enumerating its outgoing references per its concrete kind.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		o := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blacken(o)
	}
}

func (vm *VM) blacken(o object.Obj) {
	switch obj := o.(type) {
	case *object.String:
		// no outgoing references
	case *object.Function:
		if obj.Name != nil {
			vm.markObject(obj.Name)
		}
		for _, c := range obj.Chunk.Constants {
			vm.markValue(c)
		}
	case *object.Native:
		vm.markObject(obj.Name)
	case *object.Closure:
		vm.markObject(obj.Function)
		for _, u := range obj.Upvalues {
			vm.markObject(u)
		}
	case *object.Upvalue:
		vm.markValue(obj.Closed)
	case *object.Class:
		vm.markObject(obj.Name)
		obj.Methods.ForEach(func(k, v value.Value) {
			vm.markValue(k)
			vm.markValue(v)
		})
	case *object.Instance:
		vm.markObject(obj.Class)
		obj.Fields.ForEach(func(k, v value.Value) {
			vm.markValue(k)
			vm.markValue(v)
		})
	case *object.BoundMethod:
		vm.markValue(obj.Receiver)
		vm.markObject(obj.Method)
	}
}

// sweep walks the intrusive allocation list once, unlinking and dropping
// every unmarked object and clearing the mark bit on survivors.
func (vm *VM) sweep() {
	var prev object.Obj
	cur := vm.objects
	for cur != nil {
		if cur.Marked() {
			cur.SetMarked(false)
			prev = cur
			cur = cur.Next()
			continue
		}
		unreached := cur
		cur = cur.Next()
		if prev == nil {
			vm.objects = cur
		} else {
			prev.SetNext(cur)
		}
		_ = unreached // Go's GC reclaims it; there is no explicit free().
	}
}
