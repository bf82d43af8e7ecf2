package vm

import "github.com/dictu-lang/dictu/lang/value"

// builtinMethod resolves name against the native method table for receiver's
// dynamic type, if receiver isn't a user-defined instance. Built-in values
// (string, list, dict, number) have no Class/Methods table of their own, so
// OP_GET_PROPERTY/OP_INVOKE fall back to these fixed tables (spec §6
// "stringMethods, listMethods, dictMethods").
func (vm *VM) builtinMethod(receiver value.Value, name *value.ObjString) (value.NativeFn, bool) {
	var table *value.Table
	switch receiver.(type) {
	case *value.ObjString:
		table = vm.stringMethods
	case *value.ObjList:
		table = vm.listMethods
	case *value.ObjDict:
		table = vm.dictMethods
	case value.Number:
		table = vm.numberMethods
	default:
		return nil, false
	}
	v, ok := table.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*value.ObjNative).Fn, true
}

// boundNative wraps a built-in-type method so a non-call property access
// (s.len, no parens) still yields a callable value with receiver already
// bound -- mirrors bindMethod's role for user-defined methods.
func (vm *VM) boundNative(receiver value.Value, name string, fn value.NativeFn) *value.ObjNative {
	native := &value.ObjNative{
		Name: name,
		Fn: func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
			full := append([]value.Value{receiver}, args...)
			return fn(ctx, full)
		},
	}
	vm.gc.Track(native, 16)
	return native
}
