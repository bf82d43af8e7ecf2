package vm

import "github.com/dictu-lang/dictu/lang/value"

// index implements OP_INDEX across every subscriptable type: lists and
// strings by (possibly negative) integer position, dicts by arbitrary
// Value key.
func (vm *VM) index(coll, idx value.Value) (value.Value, error) {
	switch c := coll.(type) {
	case *value.ObjList:
		n, ok := idx.(value.Number)
		if !ok {
			return nil, vm.runtimeErrorf("list index must be a number")
		}
		v, ok := c.Index(int(n))
		if !ok {
			return nil, vm.runtimeErrorf("list index out of bounds")
		}
		return v, nil
	case *value.ObjString:
		n, ok := idx.(value.Number)
		if !ok {
			return nil, vm.runtimeErrorf("string index must be a number")
		}
		runes := []rune(c.Chars)
		i := int(n)
		if i < 0 {
			i += len(runes)
		}
		if i < 0 || i >= len(runes) {
			return nil, vm.runtimeErrorf("string index out of bounds")
		}
		return vm.gc.InternString(string(runes[i])), nil
	case *value.ObjDict:
		v, ok := c.Get(idx)
		if !ok {
			return nil, vm.runtimeErrorf("key does not exist in dict")
		}
		return v, nil
	default:
		return nil, vm.runtimeErrorf("'%s' is not subscriptable", coll.Type())
	}
}

// setIndex implements OP_SET_INDEX.
func (vm *VM) setIndex(coll, idx, v value.Value) error {
	switch c := coll.(type) {
	case *value.ObjList:
		n, ok := idx.(value.Number)
		if !ok {
			return vm.runtimeErrorf("list index must be a number")
		}
		if !c.SetIndex(int(n), v) {
			return vm.runtimeErrorf("list index out of bounds")
		}
		return nil
	case *value.ObjDict:
		c.Set(idx, v)
		return nil
	default:
		return vm.runtimeErrorf("'%s' does not support item assignment", coll.Type())
	}
}

// slice implements OP_SLICE. A value.Empty bound means "from the start" (lo)
// or "to the end" (hi), per the OP_EMPTY sentinel the compiler pushes for
// an omitted slice bound.
func (vm *VM) slice(coll, lo, hi value.Value) (value.Value, error) {
	loN, hiN, length, err := vm.sliceBounds(coll, lo, hi)
	if err != nil {
		return nil, err
	}
	switch c := coll.(type) {
	case *value.ObjList:
		return c.Slice(loN, hiN), nil
	case *value.ObjString:
		runes := []rune(c.Chars)
		lo2, hi2 := clampBounds(loN, hiN, len(runes))
		return vm.gc.InternString(string(runes[lo2:hi2])), nil
	default:
		_ = length
		return nil, vm.runtimeErrorf("'%s' is not sliceable", coll.Type())
	}
}

func (vm *VM) sliceBounds(coll, lo, hi value.Value) (int, int, int, error) {
	length, err := vm.collectionLen(coll)
	if err != nil {
		return 0, 0, 0, err
	}
	loN := 0
	if !value.IsEmpty(lo) {
		n, ok := lo.(value.Number)
		if !ok {
			return 0, 0, 0, vm.runtimeErrorf("slice bound must be a number")
		}
		loN = int(n)
	}
	hiN := length
	if !value.IsEmpty(hi) {
		n, ok := hi.(value.Number)
		if !ok {
			return 0, 0, 0, vm.runtimeErrorf("slice bound must be a number")
		}
		hiN = int(n)
	}
	return loN, hiN, length, nil
}

func (vm *VM) collectionLen(coll value.Value) (int, error) {
	switch c := coll.(type) {
	case *value.ObjList:
		return len(c.Elements), nil
	case *value.ObjString:
		return len([]rune(c.Chars)), nil
	default:
		return 0, vm.runtimeErrorf("'%s' is not sliceable", coll.Type())
	}
}

func clampBounds(lo, hi, length int) (int, int) {
	if lo < 0 {
		lo += length
	}
	if hi < 0 {
		hi += length
	}
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
