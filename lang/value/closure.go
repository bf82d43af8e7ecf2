package value

// ObjUpvalue is a captured variable: while its enclosing frame is still on
// the stack it is open, aliasing that frame's stack slot directly; once the
// frame returns it is closed, copying the value into itself so it survives
// the frame's death. See spec §3/§9 ("flattened closures").
type ObjUpvalue struct {
	Obj
	slot     int // stack slot index while open, for the sorted open-list ordering
	open     bool
	Location *Value // points at the live stack slot while open, or at &Closed once closed
	Closed   Value
	Next     *ObjUpvalue // next (lower stack slot) entry in the VM's open-upvalue list
}

var _ Object = (*ObjUpvalue)(nil)

func (u *ObjUpvalue) String() string { return "<upvalue>" }
func (u *ObjUpvalue) Type() string   { return "upvalue" }

// NewOpenUpvalue returns an upvalue aliasing the given VM stack slot.
func NewOpenUpvalue(slot int, location *Value) *ObjUpvalue {
	return &ObjUpvalue{slot: slot, open: true, Location: location}
}

// Slot returns the stack slot index this upvalue aliases while open. Once
// closed its value is meaningless (the upvalue is no longer in the VM's
// open-upvalue list).
func (u *ObjUpvalue) Slot() int { return u.slot }

// IsOpen reports whether the upvalue still aliases a live stack slot.
func (u *ObjUpvalue) IsOpen() bool { return u.open }

// Get returns the upvalue's current value, whether open or closed.
func (u *ObjUpvalue) Get() Value { return *u.Location }

// Set stores v through the upvalue, whether open or closed.
func (u *ObjUpvalue) Set(v Value) { *u.Location = v }

// Close copies the current (aliased) value into the upvalue itself and
// repoints Location at that copy, so the upvalue survives its frame's
// return. The caller is responsible for unlinking it from the VM's
// open-upvalue list.
func (u *ObjUpvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
	u.open = false
}

// ObjClosure pairs a compiled Function with the upvalues it captured at the
// point its OP_CLOSURE instruction ran.
type ObjClosure struct {
	Obj
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

var _ Object = (*ObjClosure)(nil)

func (c *ObjClosure) String() string { return c.Function.String() }
func (c *ObjClosure) Type() string   { return "closure" }
