package value

// ObjClass is a class: its methods table (name -> *ObjClosure, as a Value)
// and, if it has one, its superclass. OP_SUBCLASS copies the superclass's
// methods into a new class's table before any of the subclass's own
// OP_METHOD instructions run, so subclass methods naturally override by
// simply overwriting the inherited entry (spec §4.5 "Inheritance").
type ObjClass struct {
	Obj
	Name       *ObjString
	Methods    *Table
	Superclass *ObjClass
}

var _ Object = (*ObjClass)(nil)

// NewClass returns an empty class named name.
func NewClass(name *ObjString) *ObjClass {
	return &ObjClass{Name: name, Methods: NewTable()}
}

func (c *ObjClass) String() string { return "<class " + c.Name.Chars + ">" }
func (c *ObjClass) Type() string   { return "class" }

// Method resolves a method by name following spec §8 invariant 5's order:
// the instance field is checked by the caller before this is consulted; this
// only walks the class's own table, then its superclass chain.
func (c *ObjClass) Method(name *ObjString) (Value, bool) {
	for cl := c; cl != nil; cl = cl.Superclass {
		if m, ok := cl.Methods.Get(name); ok {
			return m, true
		}
	}
	return nil, false
}

// ObjTrait is a named bag of methods with no state and no runtime is-a
// relation: OP_USE copies its table into the adopting class, after which
// the class's own OP_METHOD entries may override individual names.
type ObjTrait struct {
	Obj
	Name    *ObjString
	Methods *Table
}

var _ Object = (*ObjTrait)(nil)

// NewTrait returns an empty trait named name.
func NewTrait(name *ObjString) *ObjTrait {
	return &ObjTrait{Name: name, Methods: NewTable()}
}

func (t *ObjTrait) String() string { return "<trait " + t.Name.Chars + ">" }
func (t *ObjTrait) Type() string   { return "trait" }

// ObjInstance is an instance of a class: a reference to its class plus its
// own fields table. Field lookup takes priority over method lookup (spec §8
// invariant 5).
type ObjInstance struct {
	Obj
	Class  *ObjClass
	Fields *Table
}

var _ Object = (*ObjInstance)(nil)

// NewInstance returns a new, fieldless instance of class.
func NewInstance(class *ObjClass) *ObjInstance {
	return &ObjInstance{Class: class, Fields: NewTable()}
}

func (i *ObjInstance) String() string { return "<" + i.Class.Name.Chars + " instance>" }
func (i *ObjInstance) Type() string   { return "instance" }

// ObjBoundMethod pairs a receiver with the exact closure the class returned
// at binding time (spec §3 invariant: "a bound method's closure equals
// exactly what the class returned at binding time").
type ObjBoundMethod struct {
	Obj
	Receiver Value
	Method   *ObjClosure
}

var _ Object = (*ObjBoundMethod)(nil)

func (b *ObjBoundMethod) String() string { return b.Method.String() }
func (b *ObjBoundMethod) Type() string   { return "bound method" }
