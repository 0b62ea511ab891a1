// Package object holds the concrete heap-allocated types of the runtime:
// strings, functions, natives, upvalues, closures, classes, instances, and
// bound methods. Every type embeds value.Header, which supplies the
// value.Obj method set by promotion, so this package need not repeat any
// GC bookkeeping boilerplate.
package object

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/mprimi/golox/pkg/bytecode"
	"github.com/mprimi/golox/pkg/value"
)

// String is an immutable, interned run of bytes with a precomputed hash.
// No two live Strings with equal content ever coexist — see Intern.
type String struct {
	value.Header
	Chars string
	Hash  uint32
}

// HashBytes computes the FNV-1a hash used throughout the intern table and
// by Value.Hash for string values.
func HashBytes(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// NewString constructs an un-interned String. Callers outside this
// package should go through Intern instead.
func NewString(chars string) *String {
	return &String{Header: value.NewHeader(value.ObjStringKind), Chars: chars, Hash: HashBytes(chars)}
}

func (s *String) StringBytes() (string, uint32) { return s.Chars, s.Hash }
func (s *String) String() string                { return s.Chars }

// Function is a compiled function body: its arity, how many upvalues it
// closes over, its byte-code Chunk, and an optional display name (nil for
// the implicit top-level script function).
type Function struct {
	value.Header
	Arity        int
	UpvalueCount int
	Chunk        *bytecode.Chunk
	Name         *String
}

func NewFunction() *Function {
	return &Function{Header: value.NewHeader(value.ObjFunctionKind), Chunk: bytecode.NewChunk()}
}

// ClosureUpvalueCount satisfies the disassembler's local upvalueCounter
// interface so it can print CLOSURE's trailing (isLocal, index) pairs
// without package bytecode importing this package.
func (f *Function) ClosureUpvalueCount() int { return f.UpvalueCount }

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// NativeFn is the calling convention every built-in function implements:
// given the argument slice, it returns either a result value or an error
// string (which the VM turns into a runtime error).
type NativeFn func(args []value.Value) (value.Value, string, bool)

// Native wraps a host-implemented function so it can be called like any
// other callable value.
type Native struct {
	value.Header
	Name  *String
	Arity int
	Fn    NativeFn
}

func NewNative(name *String, arity int, fn NativeFn) *Native {
	return &Native{Header: value.NewHeader(value.ObjNativeKind), Name: name, Arity: arity, Fn: fn}
}

func (n *Native) String() string { return fmt.Sprintf("<native fn %s>", n.Name.Chars) }

// Upvalue is either open — Slot names a live index in the VM's value
// stack — or closed, after which Closed holds the value. Representing the
// open case as an index rather than a raw pointer sidesteps reseating
// references when the stack slice grows and reallocates (see the pointer
// stability design note). Next threads the VM's open-upvalue list, kept
// sorted by descending Slot.
type Upvalue struct {
	value.Header
	Slot   int
	Open   bool
	Closed value.Value
	Next   *Upvalue
}

func NewUpvalue(slot int) *Upvalue {
	return &Upvalue{Header: value.NewHeader(value.ObjUpvalueKind), Slot: slot, Open: true, Closed: value.Nil()}
}

// Close captures v (the value at Slot just before it disappears) and
// marks the upvalue closed.
func (u *Upvalue) Close(v value.Value) {
	u.Closed = v
	u.Open = false
}

func (u *Upvalue) String() string { return "<upvalue>" }

// Closure pairs a Function with the upvalues it captured at creation
// time. The function reference is non-owning; upvalues are owned.
type Closure struct {
	value.Header
	Function *Function
	Upvalues []*Upvalue
}

func NewClosure(fn *Function) *Closure {
	return &Closure{
		Header:   value.NewHeader(value.ObjClosureKind),
		Function: fn,
		Upvalues: make([]*Upvalue, fn.UpvalueCount),
	}
}

func (c *Closure) String() string { return c.Function.String() }

// Class has a name, an optional initializer closure, and a method table
// keyed by interned method-name Strings. There is no superclass field:
// this dialect has no inheritance (the scanner still reserves SUPER as a
// token — see DESIGN.md).
type Class struct {
	value.Header
	Name    *String
	Init    *Closure
	Methods *value.Table
}

func NewClass(name *String) *Class {
	return &Class{Header: value.NewHeader(value.ObjClassKind), Name: name, Methods: value.NewTable()}
}

func (c *Class) String() string { return c.Name.Chars }

// Instance is a class reference plus a dynamic field table; fields are
// never declared up front, only created by assignment or the setField
// native.
type Instance struct {
	value.Header
	Class  *Class
	Fields *value.Table
}

func NewInstance(class *Class) *Instance {
	return &Instance{Header: value.NewHeader(value.ObjInstanceKind), Class: class, Fields: value.NewTable()}
}

func (i *Instance) String() string { return fmt.Sprintf("<%s instance>", i.Class.Name.Chars) }

// BoundMethod pairs a receiver with the closure looked up from its
// class's method table, produced by property access on a method name.
type BoundMethod struct {
	value.Header
	Receiver value.Value
	Method   *Closure
}

func NewBoundMethod(receiver value.Value, method *Closure) *BoundMethod {
	return &BoundMethod{Header: value.NewHeader(value.ObjBoundMethodKind), Receiver: receiver, Method: method}
}

func (b *BoundMethod) String() string { return b.Method.String() }

// Display renders v the way PRINT and the str() native do.
func Display(v value.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return formatNumber(v.AsNumber())
	case v.IsObj():
		switch o := v.AsObj().(type) {
		case *String:
			return o.Chars
		case fmt.Stringer:
			return o.String()
		default:
			return "<obj>"
		}
	default:
		return "<invalid>"
	}
}

func formatNumber(n float64) string {
	s := fmt.Sprintf("%g", n)
	// Match the teacher's decimal-friendly formatting: an integral float
	// prints without an exponent or trailing ".0" ambiguity.
	if strings.ContainsAny(s, "eE") {
		s = fmt.Sprintf("%f", n)
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}
