package value

// Table is an open-addressing, linear-probing hash map from an interned
// *ObjString key to a Value. It backs the intern pool, the globals table,
// and every class/instance/trait methods-or-fields table.
//
// Keys are compared by pointer identity: because strings are interned,
// two equal strings are always the same *ObjString, so a plain pointer
// comparison is both correct and avoids rehashing content on every probe.
//
// Deletion writes a tombstone: an entry with a nil Key but a non-nil
// Value. Tombstones keep probe chains intact for lookups that walked past
// them before the delete, but are treated as free slots by Set so the
// table doesn't grow unboundedly from repeated delete/insert churn; they
// are dropped for good on the next resize.
type Table struct {
	count   int // live entries + tombstones
	entries []tableEntry
}

type tableEntry struct {
	Key   *ObjString
	Value Value
}

const tableMaxLoad = 0.75

var tombstoneValue Value = Bool(true)

// NewTable returns an empty Table.
func NewTable() *Table { return &Table{} }

// Len returns the number of live (non-tombstone) entries.
func (t *Table) Len() int {
	n := 0
	for _, e := range t.entries {
		if e.Key != nil {
			n++
		}
	}
	return n
}

// Get returns the value associated with key, if any.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	e := t.findEntry(t.entries, key)
	if e.Key == nil {
		return nil, false
	}
	return e.Value, true
}

// Set inserts or updates key's value. It reports true if this created a new
// entry (as opposed to overwriting an existing one).
func (t *Table) Set(key *ObjString, v Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow(growCapacity(len(t.entries)))
	}

	entry := t.findEntrySlot(key)
	isNew := entry.Key == nil
	if isNew && entry.Value == nil {
		// a genuinely empty slot, not a tombstone being reused
		t.count++
	}
	entry.Key = key
	entry.Value = v
	return isNew
}

// Delete removes key from the table, replacing its slot with a tombstone so
// later probes that walked past it still find what comes after. Reports
// whether the key was present.
func (t *Table) Delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	entry := t.findEntrySlot(key)
	if entry.Key == nil {
		return false
	}
	entry.Key = nil
	entry.Value = tombstoneValue
	return true
}

// AddAll copies every live entry of src into t, used by OP_SUBCLASS to
// inherit a superclass's methods and by OP_USE to copy in a trait's.
func (t *Table) AddAll(src *Table) {
	for _, e := range src.entries {
		if e.Key != nil {
			t.Set(e.Key, e.Value)
		}
	}
}

// Each calls fn for every live entry, in table order. fn must not mutate t.
func (t *Table) Each(fn func(key *ObjString, v Value)) {
	for _, e := range t.entries {
		if e.Key != nil {
			fn(e.Key, e.Value)
		}
	}
}

// findEntrySlot returns a pointer to the entries slice's live, backing
// array slot for key, creating space via grow first if the table has
// never been sized.
func (t *Table) findEntrySlot(key *ObjString) *tableEntry {
	if len(t.entries) == 0 {
		t.grow(8)
	}
	return t.findEntry(t.entries, key)
}

// findEntry walks the probe chain for key starting at its hash, in the
// given backing array, returning either the slot holding key or the first
// tombstone/empty slot suitable for inserting it.
func (t *Table) findEntry(entries []tableEntry, key *ObjString) *tableEntry {
	n := uint32(len(entries))
	idx := key.hash % n
	var tombstone *tableEntry
	for {
		e := &entries[idx]
		switch {
		case e.Key == nil && e.Value == nil:
			// truly empty: if we passed a tombstone earlier, reuse it instead
			if tombstone != nil {
				return tombstone
			}
			return e
		case e.Key == nil:
			// tombstone
			if tombstone == nil {
				tombstone = e
			}
		case e.Key == key:
			return e
		}
		idx = (idx + 1) % n
	}
}

func (t *Table) grow(capacity int) {
	newEntries := make([]tableEntry, capacity)
	newCount := 0
	for _, e := range t.entries {
		if e.Key == nil {
			continue
		}
		dst := t.findEntry(newEntries, e.Key)
		dst.Key = e.Key
		dst.Value = e.Value
		newCount++
	}
	t.entries = newEntries
	t.count = newCount
}

func growCapacity(cap int) int {
	if cap < 8 {
		return 8
	}
	return cap * 2
}

// FindString walks the table's probe chain comparing candidate keys by
// (length, hash, bytes) rather than by pointer identity. It is used
// exclusively by the intern pool to discover whether a byte sequence has
// already been interned, since before interning there is no canonical
// *ObjString to compare by pointer.
func (t *Table) FindString(s string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	n := uint32(len(t.entries))
	idx := hash % n
	for {
		e := &t.entries[idx]
		switch {
		case e.Key == nil && e.Value == nil:
			return nil
		case e.Key != nil && e.Key.hash == hash && len(e.Key.Chars) == len(s) && e.Key.Chars == s:
			return e.Key
		}
		idx = (idx + 1) % n
	}
}
