package vm

import (
	"fmt"
	"strings"

	"github.com/dictu-lang/dictu/lang/value"
)

// registerBuiltins installs the handful of global natives every Dictu
// program can call unqualified (assert, type, toString, toNumber, print --
// the "Supplemented features" list), and populates the fixed per-type
// method tables for string/list/dict/number, grounded on spec §6's native
// registration contract.
func registerBuiltins(vm *VM) {
	def := func(name string, fn value.NativeFn) {
		native := &value.ObjNative{Name: name, Fn: fn}
		vm.gc.Track(native, 16)
		vm.globals.Set(vm.gc.InternString(name), native)
	}

	def("assert", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		if len(args) < 1 {
			ctx.RuntimeError("assert() expects at least 1 argument, got 0")
			return value.Empty, false
		}
		if !value.Truth(args[0]) {
			msg := "assertion failed"
			if len(args) > 1 {
				if s, ok := args[1].(*value.ObjString); ok {
					msg = s.Chars
				}
			}
			ctx.RuntimeError("%s", msg)
			return value.Empty, false
		}
		return value.NilValue, true
	})

	def("type", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		if len(args) != 1 {
			ctx.RuntimeError("type() expects 1 argument, got %d", len(args))
			return value.Empty, false
		}
		return vm.gc.InternString(args[0].Type()), true
	})

	def("toString", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		if len(args) != 1 {
			ctx.RuntimeError("toString() expects 1 argument, got %d", len(args))
			return value.Empty, false
		}
		return vm.gc.InternString(args[0].String()), true
	})

	def("toNumber", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		if len(args) != 1 {
			ctx.RuntimeError("toNumber() expects 1 argument, got %d", len(args))
			return value.Empty, false
		}
		switch v := args[0].(type) {
		case value.Number:
			return v, true
		case *value.ObjString:
			var f float64
			if _, err := fmt.Sscanf(v.Chars, "%g", &f); err != nil {
				return value.NilValue, true
			}
			return value.Number(f), true
		default:
			return value.NilValue, true
		}
	})

	def("print", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		parts := make([]any, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		fmt.Fprintln(vm.out(), parts...)
		return value.NilValue, true
	})

	vm.stringMethods = value.NewTable()
	registerStringMethods(vm)

	vm.listMethods = value.NewTable()
	registerListMethods(vm)

	vm.dictMethods = value.NewTable()
	registerDictMethods(vm)

	vm.numberMethods = value.NewTable()
}

func nativeMethod(table *value.Table, gc *value.GC, name string, fn value.NativeFn) {
	native := &value.ObjNative{Name: name, Fn: fn}
	table.Set(gc.InternString(name), native)
}

// registerStringMethods backs "s.len()" style calls (spec §8's own test
// scenarios use `"a\nb".len() == 3`), receiver always args[0].
func registerStringMethods(vm *VM) {
	nativeMethod(vm.stringMethods, vm.gc, "len", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		s := args[0].(*value.ObjString)
		return value.Number(len([]rune(s.Chars))), true
	})
	nativeMethod(vm.stringMethods, vm.gc, "toUpper", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		s := args[0].(*value.ObjString)
		return vm.gc.InternString(strings.ToUpper(s.Chars)), true
	})
	nativeMethod(vm.stringMethods, vm.gc, "toLower", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		s := args[0].(*value.ObjString)
		return vm.gc.InternString(strings.ToLower(s.Chars)), true
	})
}

// registerListMethods backs the original's push/pop/contains/insert/len
// surface for ObjList.
func registerListMethods(vm *VM) {
	nativeMethod(vm.listMethods, vm.gc, "len", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		l := args[0].(*value.ObjList)
		return value.Number(len(l.Elements)), true
	})
	nativeMethod(vm.listMethods, vm.gc, "push", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		l := args[0].(*value.ObjList)
		l.Elements = append(l.Elements, args[1:]...)
		return l, true
	})
	nativeMethod(vm.listMethods, vm.gc, "pop", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		l := args[0].(*value.ObjList)
		if len(l.Elements) == 0 {
			ctx.RuntimeError("pop() called on an empty list")
			return value.Empty, false
		}
		last := l.Elements[len(l.Elements)-1]
		l.Elements = l.Elements[:len(l.Elements)-1]
		return last, true
	})
	nativeMethod(vm.listMethods, vm.gc, "contains", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		l := args[0].(*value.ObjList)
		for _, e := range l.Elements {
			if value.Equals(e, args[1]) {
				return value.Bool(true), true
			}
		}
		return value.Bool(false), true
	})
	nativeMethod(vm.listMethods, vm.gc, "insert", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		l := args[0].(*value.ObjList)
		if len(args) != 3 {
			ctx.RuntimeError("insert() expects 2 arguments, got %d", len(args)-1)
			return value.Empty, false
		}
		n, ok := args[1].(value.Number)
		if !ok {
			ctx.RuntimeError("insert() index must be a number")
			return value.Empty, false
		}
		idx := int(n)
		if idx < 0 || idx > len(l.Elements) {
			ctx.RuntimeError("insert() index %d out of bounds for a list of length %d", idx, len(l.Elements))
			return value.Empty, false
		}
		l.Elements = append(l.Elements, value.NilValue)
		copy(l.Elements[idx+1:], l.Elements[idx:])
		l.Elements[idx] = args[2]
		return value.NilValue, true
	})
}

// registerDictMethods backs keys/values/exists/len/toList for ObjDict.
func registerDictMethods(vm *VM) {
	nativeMethod(vm.dictMethods, vm.gc, "len", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		d := args[0].(*value.ObjDict)
		return value.Number(d.Len()), true
	})
	nativeMethod(vm.dictMethods, vm.gc, "exists", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		d := args[0].(*value.ObjDict)
		_, ok := d.Get(args[1])
		return value.Bool(ok), true
	})
	nativeMethod(vm.dictMethods, vm.gc, "keys", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		d := args[0].(*value.ObjDict)
		keys := d.Keys()
		list := value.NewList(keys)
		vm.gc.Track(list, uint64(16*len(keys)))
		return list, true
	})
	nativeMethod(vm.dictMethods, vm.gc, "values", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		d := args[0].(*value.ObjDict)
		vals := make([]value.Value, 0, d.Len())
		d.Each(func(_, v value.Value) { vals = append(vals, v) })
		list := value.NewList(vals)
		vm.gc.Track(list, uint64(16*len(vals)))
		return list, true
	})
	nativeMethod(vm.dictMethods, vm.gc, "toList", func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		d := args[0].(*value.ObjDict)
		pairs := make([]value.Value, 0, d.Len())
		d.Each(func(k, v value.Value) {
			pair := value.NewList([]value.Value{k, v})
			vm.gc.Track(pair, 32)
			pairs = append(pairs, pair)
		})
		list := value.NewList(pairs)
		vm.gc.Track(list, uint64(16*len(pairs)))
		return list, true
	})
}
