// Package value implements Dictu's tagged Value model: the primitive
// types (nil, bool, number), the heap Object variants they reference, the
// open-addressing hash table and string-interning pool that back globals,
// fields, methods and dictionaries, the bytecode Chunk, and the
// mark-and-sweep garbage collector that owns every heap allocation.
//
// These concerns are kept in one package, mirroring how the teacher couples
// its Value, Map and Function types: Dictu's object graph is small and
// mutually referential (a Class's methods are Closures over Functions
// carrying Chunks of Values that include more Classes), so splitting it
// across packages would mean exporting nearly everything anyway.
package value

import (
	"fmt"
	"math"
)

// Value is the interface implemented by every value the VM can hold on its
// stack, in a local, or in a constant pool: nil, bool, number, or a
// reference to a heap Object.
type Value interface {
	// String returns the value's human-readable representation, as printed
	// by the REPL or by toString().
	String() string
	// Type returns the short type name used by type() and in error messages.
	Type() string
}

// Nil is the type of the single nil value.
type Nil struct{}

// NilValue is the canonical nil Value.
var NilValue = Nil{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// Bool is a boolean Value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

// Number is Dictu's single numeric type, an IEEE-754 double.
type Number float64

func (n Number) String() string { return formatNumber(float64(n)) }
func (Number) Type() string     { return "number" }

// formatNumber renders a double the way Dictu's original C implementation
// does: integral values print without a trailing ".0" or exponent, mirroring
// %.14g with a check for an integral result, so that 3 prints as "3" while
// 3.5 prints as "3.5".
func formatNumber(f float64) string {
	if f == float64(int64(f)) && !isInfOrNaN(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.14g", f)
}

func isInfOrNaN(f float64) bool {
	return math.IsInf(f, 0) || math.IsNaN(f)
}

// Truth reports the truthiness of a Value: nil and false are falsey,
// everything else -- including 0 and the empty string -- is truthy.
func Truth(v Value) bool {
	switch v := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// Empty is the sentinel a native function returns, together with a
// recorded VM runtime error, to signal failure without a Go error return
// (see spec §6/§7: "signalling an error sets vm.runtimeError state and
// returns EMPTY_VAL").
type emptyType struct{}

func (emptyType) String() string { return "<empty>" }
func (emptyType) Type() string   { return "empty" }

// Empty is the canonical EMPTY_VAL sentinel.
var Empty Value = emptyType{}

// IsEmpty reports whether v is the Empty sentinel.
func IsEmpty(v Value) bool {
	_, ok := v.(emptyType)
	return ok
}

// ObjType discriminates the kind of heap Object a Value references.
type ObjType uint8

const (
	ObjStringKind ObjType = iota
	ObjFunctionKind
	ObjClosureKind
	ObjUpvalueKind
	ObjClassKind
	ObjTraitKind
	ObjInstanceKind
	ObjBoundMethodKind
	ObjListKind
	ObjDictKind
	ObjFileKind
	ObjNativeKind
)

// Obj is the header embedded in every heap-allocated object. It carries the
// object's type tag, the GC mark bit, and the intrusive next-pointer that
// threads every live allocation into the GC's global sweep list.
type Obj struct {
	kind   ObjType
	marked bool
	next   Object
}

// Kind returns the dynamic type tag of the object.
func (o *Obj) Kind() ObjType { return o.kind }

// Object is implemented by every heap-allocated value. object returns the
// common header so the GC can mark, sweep and thread the allocation list
// without a type switch on every operation.
type Object interface {
	Value
	object() *Obj
}

func (o *Obj) object() *Obj { return o }
