package object

import "github.com/mprimi/golox/pkg/value"

// Obj is the heap-object interface every type in this package satisfies.
type Obj = value.Obj

// AllocTracker receives every newly allocated heap object immediately
// after construction, so the VM can link it into its allocation-order
// sweep list and account its size — the single allocation path the
// lifecycle invariant requires, even for objects minted while compiling
// (before a frame ever runs). A nil tracker is a valid no-op, used by
// offline tools (compile/disassemble) that never run a collector.
type AllocTracker func(o Obj, size int64)

// Intern returns the canonical String for chars, allocating a new one only
// if the table has no equal-content entry yet. Every caller that creates
// string values — literal strings, concatenation, str()/substr() — must
// go through this so that Value equality-by-identity stays sound. track
// is invoked only for the newly allocated case; a String already in the
// table is live (and marked) by whatever first tracked it.
func Intern(table *value.Table, chars string, track AllocTracker) *String {
	hash := HashBytes(chars)
	if existing, ok := table.FindStringByBytes(chars, hash); ok {
		return existing.AsObj().(*String)
	}
	s := NewString(chars)
	table.Set(value.FromObj(s), value.Nil())
	if track != nil {
		track(s, int64(24+len(chars)))
	}
	return s
}
