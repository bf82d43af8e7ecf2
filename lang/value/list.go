package value

// ObjList is Dictu's growable array type.
type ObjList struct {
	Obj
	Elements []Value
}

var _ Object = (*ObjList)(nil)

// NewList returns a list containing elems (the slice is taken by reference,
// not copied, matching how the compiler's OP_LIST already owns a freshly
// allocated slice).
func NewList(elems []Value) *ObjList { return &ObjList{Elements: elems} }

func (l *ObjList) String() string { return formatList(l.Elements) }
func (l *ObjList) Type() string   { return "list" }

func formatList(elems []Value) string {
	s := "["
	for i, e := range elems {
		if i > 0 {
			s += ", "
		}
		if str, ok := e.(*ObjString); ok {
			s += "'" + str.Chars + "'"
		} else {
			s += e.String()
		}
	}
	return s + "]"
}

// index resolves a (possibly negative) list index against len, following
// spec §4.5 ("negative indices legal: len + i").
func index(i, length int) int {
	if i < 0 {
		return length + i
	}
	return i
}

// Index returns the element at i, allowing negative indices.
func (l *ObjList) Index(i int) (Value, bool) {
	i = index(i, len(l.Elements))
	if i < 0 || i >= len(l.Elements) {
		return nil, false
	}
	return l.Elements[i], true
}

// SetIndex assigns the element at i, allowing negative indices.
func (l *ObjList) SetIndex(i int, v Value) bool {
	i = index(i, len(l.Elements))
	if i < 0 || i >= len(l.Elements) {
		return false
	}
	l.Elements[i] = v
	return true
}

// Slice returns a new list containing elements [lo, hi).
func (l *ObjList) Slice(lo, hi int) *ObjList {
	lo, hi = clampSlice(lo, hi, len(l.Elements))
	out := make([]Value, hi-lo)
	copy(out, l.Elements[lo:hi])
	return NewList(out)
}

// clampSlice resolves negative/out-of-range slice bounds the way Python
// and the original Dictu both do: clamp into [0, length].
func clampSlice(lo, hi, length int) (int, int) {
	lo = index(lo, length)
	hi = index(hi, length)
	if lo < 0 {
		lo = 0
	}
	if lo > length {
		lo = length
	}
	if hi > length {
		hi = length
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
