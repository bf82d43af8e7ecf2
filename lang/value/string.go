package value

// ObjString is an immutable, interned byte string. Two ObjStrings with the
// same content are always the same object (see GC.InternString), so equality
// between strings is pointer identity.
type ObjString struct {
	Obj
	Chars string
	hash  uint32
}

var _ Object = (*ObjString)(nil)

func (s *ObjString) String() string { return s.Chars }
func (s *ObjString) Type() string   { return "string" }

// Hash returns the FNV-1a hash of the string's bytes, computed once at
// allocation time and cached.
func (s *ObjString) Hash() uint32 { return s.hash }

func hashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
