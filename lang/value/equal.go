package value

import (
	"math"
	"reflect"
)

// Equals implements Dictu's equality: numbers compare by numeric value,
// strings by identity (they are interned, so pointer equality already
// implies content equality), other objects by identity, and a mismatch of
// dynamic type is always unequal, across tags.
func Equals(a, b Value) bool {
	switch a := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case Number:
		bn, ok := b.(Number)
		return ok && a == bn
	case *ObjString:
		bs, ok := b.(*ObjString)
		return ok && a == bs
	default:
		return a == b
	}
}

// HashValue computes a hash for any Value usable as a Dict key: strings,
// numbers, booleans and nil, per spec §4 ("Dict ... keyed by Value
// (strings, numbers, booleans, nil accepted)").
func HashValue(v Value) uint32 {
	switch v := v.(type) {
	case Nil:
		return 0
	case Bool:
		if v {
			return 1
		}
		return 2
	case Number:
		return hashFloat(float64(v))
	case *ObjString:
		return v.hash
	default:
		// identity hash for any other object: stable but coarse, matches the
		// "other objects by identity" equality rule above.
		return hashPointer(v)
	}
}

func hashFloat(f float64) uint32 {
	bits := math.Float64bits(f)
	return uint32(bits) ^ uint32(bits>>32)
}

func hashPointer(v Value) uint32 {
	ptr := reflect.ValueOf(v).Pointer()
	return uint32(ptr) ^ uint32(ptr>>32)
}
