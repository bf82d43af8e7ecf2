package value

// NativeContext is the minimal surface a native function needs from the VM
// that is calling it: the ability to raise a runtime error. It is an
// interface, not the concrete VM type, so that this package -- which the VM
// package depends on -- never has to import the VM package back.
type NativeContext interface {
	RuntimeError(format string, args ...any)
}

// NativeFn is the signature every native (built-in) function implements:
// "(vm, argc, argv)" from spec §6, spelled with a slice instead of a raw
// argc/argv pair since that's the idiomatic Go shape for the same thing.
// A native signals failure by calling ctx.RuntimeError and returning
// (Empty, false); the VM propagates that as a runtime error.
type NativeFn func(ctx NativeContext, args []Value) (Value, bool)

// ObjNative wraps a Go function exposed to Dictu programs as a callable
// value: a module function, or an entry in one of the per-type method
// tables (stringMethods, listMethods, dictMethods, fileMethods,
// numberMethods) from spec §6.
type ObjNative struct {
	Obj
	Name string
	Fn   NativeFn
}

var _ Object = (*ObjNative)(nil)

func (n *ObjNative) String() string { return "<native fn " + n.Name + ">" }
func (n *ObjNative) Type() string   { return "native" }
