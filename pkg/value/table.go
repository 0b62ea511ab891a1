package value

// maxLoad is the load factor (occupied-or-tombstone / capacity) past
// which a Table grows.
const maxLoad = 0.75

// Entry is one bucket of a Table. An unoccupied bucket has Key == Empty()
// and Value == Nil(); a tombstone left by Delete has Key == Empty() and
// Value == Bool(true). Count in Table includes tombstones, so the load
// factor accounts for them the same as live entries.
type Entry struct {
	Key   Value
	Value Value
}

// Table is an open-addressed hash table with linear probing and
// tombstone deletion, used for the VM's string-intern table, global-name
// index, class method tables, and instance field tables.
type Table struct {
	count   int
	entries []Entry
}

// NewTable returns an empty table with no backing storage; the first Set
// allocates an 8-bucket array.
func NewTable() *Table { return &Table{} }

// Count reports the number of occupied buckets, including tombstones.
func (t *Table) Count() int { return t.count }

func freshEntries(capacity int) []Entry {
	es := make([]Entry, capacity)
	for i := range es {
		es[i].Key = Empty()
		es[i].Value = Nil()
	}
	return es
}

// findEntry probes from hash(key) mod len(entries), returning the first
// entry whose key matches exactly, or — if none matches — the first
// tombstone seen (remembered on the first encounter) or else the first
// truly empty bucket. Termination is guaranteed because load factor is
// kept below 1.
func findEntry(entries []Entry, key Value) *Entry {
	capN := uint32(len(entries))
	idx := key.Hash() % capN
	var tombstone *Entry
	for {
		e := &entries[idx]
		switch {
		case e.Key.IsEmpty():
			if e.Value.IsNil() {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		case e.Key.Equal(key):
			return e
		}
		idx = (idx + 1) % capN
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := freshEntries(newCap)
	newCount := 0
	for _, e := range t.entries {
		if e.Key.IsEmpty() {
			continue
		}
		dst := findEntry(newEntries, e.Key)
		dst.Key = e.Key
		dst.Value = e.Value
		newCount++
	}
	t.entries = newEntries
	t.count = newCount
}

// Get returns the value stored for key, if any.
func (t *Table) Get(key Value) (Value, bool) {
	if len(t.entries) == 0 {
		return Value{}, false
	}
	e := findEntry(t.entries, key)
	if e.Key.IsEmpty() {
		return Value{}, false
	}
	return e.Value, true
}

// Set stores val under key, growing the table first if doing so would
// push the load factor past maxLoad. It reports whether key was not
// already present.
func (t *Table) Set(key, val Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}
	e := findEntry(t.entries, key)
	isNewKey := e.Key.IsEmpty()
	if isNewKey && e.Value.IsNil() {
		t.count++
	}
	e.Key = key
	e.Value = val
	return isNewKey
}

// Delete removes key, leaving a tombstone so later probes for colliding
// keys still find them. Reports whether key was present.
func (t *Table) Delete(key Value) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.Key.IsEmpty() {
		return false
	}
	e.Key = Empty()
	e.Value = Bool(true)
	return true
}

// AddAll copies every non-empty, non-tombstone entry of t into dst.
func (t *Table) AddAll(dst *Table) {
	for _, e := range t.entries {
		if !e.Key.IsEmpty() {
			dst.Set(e.Key, e.Value)
		}
	}
}

// FindStringByBytes looks up an interned string by content rather than by
// identity — the one operation the generic Get cannot perform, since Obj
// equality is identity-based. Used only by the VM's intern table.
func (t *Table) FindStringByBytes(chars string, hash uint32) (Value, bool) {
	if len(t.entries) == 0 {
		return Value{}, false
	}
	capN := uint32(len(t.entries))
	idx := hash % capN
	for {
		e := &t.entries[idx]
		if e.Key.IsEmpty() {
			if e.Value.IsNil() {
				return Value{}, false
			}
		} else if s, ok := e.Key.AsObj().(Stringer); ok {
			sc, sh := s.StringBytes()
			if sh == hash && sc == chars {
				return e.Key, true
			}
		}
		idx = (idx + 1) % capN
	}
}

// RemoveUnmarkedKeys deletes every entry whose Obj key is unmarked. Called
// on the VM's intern table immediately before sweep so that strings about
// to be collected don't leave a dangling key behind.
func (t *Table) RemoveUnmarkedKeys() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key.IsEmpty() {
			continue
		}
		if o := e.Key.AsObj(); o != nil && !o.Marked() {
			e.Key = Empty()
			e.Value = Bool(true)
		}
	}
}

// ForEach calls fn for every non-empty, non-tombstone entry. Used by the
// collector to blacken Class method tables and Instance field tables.
func (t *Table) ForEach(fn func(key, val Value)) {
	for _, e := range t.entries {
		if !e.Key.IsEmpty() {
			fn(e.Key, e.Value)
		}
	}
}
