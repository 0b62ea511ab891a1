package value

// ObjKind discriminates the concrete heap-object types. Concrete types live
// in package object; this package only needs the tag and the GC header so
// that Value, Table and the collector can work with any object kind
// without importing the concrete definitions (which in turn depend on
// package bytecode for Chunk, and would otherwise create an import cycle).
type ObjKind uint8

const (
	ObjStringKind ObjKind = iota
	ObjFunctionKind
	ObjNativeKind
	ObjUpvalueKind
	ObjClosureKind
	ObjClassKind
	ObjInstanceKind
	ObjBoundMethodKind
)

func (k ObjKind) String() string {
	switch k {
	case ObjStringKind:
		return "string"
	case ObjFunctionKind:
		return "function"
	case ObjNativeKind:
		return "native"
	case ObjUpvalueKind:
		return "upvalue"
	case ObjClosureKind:
		return "closure"
	case ObjClassKind:
		return "class"
	case ObjInstanceKind:
		return "instance"
	case ObjBoundMethodKind:
		return "bound method"
	default:
		return "unknown"
	}
}

// Obj is implemented by every heap object. Concrete objects embed Header,
// which supplies the method set below by promotion — no cross-package
// boilerplate is required of package object.
type Obj interface {
	ObjKind() ObjKind
	Marked() bool
	SetMarked(bool)
	Next() Obj
	SetNext(Obj)
}

// Header is the common prefix every heap object carries: a kind tag, the
// GC mark bit, and the intrusive next-pointer that threads every live
// object into the VM's single allocation-order sweep list.
type Header struct {
	kind ObjKind
	mark bool
	next Obj
}

// NewHeader builds a Header tagged with the given kind. Callers embed the
// result in a concrete object literal at construction time.
func NewHeader(k ObjKind) Header { return Header{kind: k} }

func (h *Header) ObjKind() ObjKind  { return h.kind }
func (h *Header) Marked() bool      { return h.mark }
func (h *Header) SetMarked(m bool)  { h.mark = m }
func (h *Header) Next() Obj         { return h.next }
func (h *Header) SetNext(o Obj)     { h.next = o }
