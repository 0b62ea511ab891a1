// Package value defines the tagged runtime value type shared by the
// compiler and the virtual machine, along with the heap-object header that
// every garbage-collected object embeds.
//
// A Value never owns heap memory directly — the Bool/Nil/Number variants
// are stored inline, and the Obj variant carries a non-owning reference to
// a heap object whose lifetime is managed by the VM's allocator and
// collector (see package vm).
package value

import "math"

// Kind discriminates the variant held by a Value.
type Kind uint8

const (
	// KindBool holds an inline boolean.
	KindBool Kind = iota
	// KindNil is the language's nil/null value.
	KindNil
	// KindNumber holds an inline IEEE-754 double.
	KindNumber
	// KindObj holds a reference to a heap object.
	KindObj
	// KindEmpty is the hash-table sentinel for an unoccupied bucket. Never
	// user-visible.
	KindEmpty
	// KindUndefined marks a declared-but-not-yet-initialized global slot.
	// Never user-visible.
	KindUndefined
)

// Value is a small tagged union. Bool and Number payloads are stored
// inline in num; Obj payloads are stored in obj. The zero Value is
// KindBool/false, which is harmless because every Value is always
// constructed through one of the constructors below.
type Value struct {
	kind Kind
	num  float64
	obj  Obj
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, num: 1}
	}
	return Value{kind: KindBool, num: 0}
}

// Nil returns the nil Value.
func Nil() Value { return Value{kind: KindNil} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// FromObj returns a Value wrapping a heap object reference.
func FromObj(o Obj) Value { return Value{kind: KindObj, obj: o} }

// Empty returns the hash-table empty-bucket sentinel.
func Empty() Value { return Value{kind: KindEmpty} }

// Undefined returns the global-slot sentinel for "declared, not assigned".
func Undefined() Value { return Value{kind: KindUndefined} }

// Kind reports the Value's variant.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsBool() bool      { return v.kind == KindBool }
func (v Value) IsNil() bool       { return v.kind == KindNil }
func (v Value) IsNumber() bool    { return v.kind == KindNumber }
func (v Value) IsObj() bool       { return v.kind == KindObj }
func (v Value) IsEmpty() bool     { return v.kind == KindEmpty }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// AsBool returns the boolean payload. Caller must check IsBool first.
func (v Value) AsBool() bool { return v.num != 0 }

// AsNumber returns the numeric payload. Caller must check IsNumber first.
func (v Value) AsNumber() float64 { return v.num }

// AsObj returns the object payload. Caller must check IsObj first.
func (v Value) AsObj() Obj { return v.obj }

// IsFalsey implements Lox truthiness: nil and false are falsey, everything
// else — including 0 and the empty string — is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equal implements value equality: same variant and equal payload. Obj
// values compare by identity (pointer equality of the underlying heap
// object), which is sound because strings are interned.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.AsBool() == o.AsBool()
	case KindNil, KindEmpty, KindUndefined:
		return true
	case KindNumber:
		return v.num == o.num
	case KindObj:
		return v.obj == o.obj
	default:
		return false
	}
}

// Stringer is implemented by heap objects that can report their raw bytes
// and precomputed hash — currently only *object.String. It lets the
// hash-table's intern lookup compare string content without this package
// importing the concrete object types (which themselves depend on this
// package for Value and on package bytecode for Chunk).
type Stringer interface {
	Obj
	StringBytes() (string, uint32)
}

// Hash computes the table hash of a Value per the variant-specific rules:
// Bool -> {3,5}, Nil -> 7, Number -> bit-split of the IEEE-754 bits,
// Obj -> object-specific (strings use the precomputed FNV-1a hash),
// Empty -> 0.
func (v Value) Hash() uint32 {
	switch v.kind {
	case KindBool:
		if v.AsBool() {
			return 5
		}
		return 3
	case KindNil:
		return 7
	case KindNumber:
		bits := math.Float64bits(v.num)
		return uint32(bits) + uint32(bits>>32)
	case KindObj:
		if s, ok := v.obj.(Stringer); ok {
			_, h := s.StringBytes()
			return h
		}
		// Non-string heap objects (functions, classes, instances, ...) are
		// never used as table keys in this implementation; the table
		// probe sequence still terminates correctly with a constant hash.
		return 0
	default:
		return 0
	}
}
