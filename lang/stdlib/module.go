// Package stdlib implements the native-registration hooks spec.md §6
// describes, and backs them with a handful of concrete built-in modules
// (Math, Env, System) -- enough to exercise the hook end to end, per
// SPEC_FULL's explicit scoping: the hook mechanism is in the core, the
// full native module surfaces are not.
package stdlib

import "github.com/dictu-lang/dictu/lang/value"

// NewModule builds a module value: a fieldless synthetic class instantiated
// once, its Fields populated with native functions. Dot-access
// (Math.sqrt) and call (Math.sqrt(4)) both work unmodified through
// OP_GET_PROPERTY/OP_INVOKE's existing "check Fields before methods"
// priority, so a module needs no VM-side special case.
func NewModule(gc *value.GC, name string, natives map[string]value.NativeFn) *value.ObjInstance {
	class := value.NewClass(gc.InternString(name))
	inst := value.NewInstance(class)
	for n, fn := range natives {
		native := &value.ObjNative{Name: n, Fn: fn}
		inst.Fields.Set(gc.InternString(n), native)
	}
	return inst
}

// arityError is the shared shape every native uses to report a wrong
// argument count, matching spec §6's native-registration contract of
// signalling failure via ctx.RuntimeError plus an (Empty, false) return.
func arityError(ctx value.NativeContext, name string, want int, got int) (value.Value, bool) {
	ctx.RuntimeError("%s() expects %d argument(s), got %d", name, want, got)
	return value.Empty, false
}

func typeError(ctx value.NativeContext, name string, argIdx int, want string) (value.Value, bool) {
	ctx.RuntimeError("%s() argument %d must be a %s", name, argIdx, want)
	return value.Empty, false
}
