package vm

import (
	"math"

	"github.com/dictu-lang/dictu/lang/value"
)

// binary evaluates one of the arithmetic/bitwise infix opcodes against a
// and b, already popped in left-to-right order. OP_ADD additionally
// supports string concatenation, following spec §4.2's "+ ... string
// concatenation (interned)" invariant.
func (vm *VM) binary(op value.OpCode, a, b value.Value) (value.Value, error) {
	if op == value.OpAdd {
		as, aIsStr := a.(*value.ObjString)
		bs, bIsStr := b.(*value.ObjString)
		if aIsStr && bIsStr {
			return vm.gc.InternString(as.Chars + bs.Chars), nil
		}
		if aIsStr || bIsStr {
			return nil, vm.runtimeErrorf("cannot concatenate %s and %s", a.Type(), b.Type())
		}
	}

	an, aOK := a.(value.Number)
	bn, bOK := b.(value.Number)
	if !aOK || !bOK {
		return nil, vm.runtimeErrorf("operands must be numbers")
	}

	switch op {
	case value.OpAdd:
		return an + bn, nil
	case value.OpSubtract:
		return an - bn, nil
	case value.OpMultiply:
		return an * bn, nil
	case value.OpDivide:
		if bn == 0 {
			return nil, vm.runtimeErrorf("division by zero")
		}
		return an / bn, nil
	case value.OpModulo:
		if bn == 0 {
			return nil, vm.runtimeErrorf("division by zero")
		}
		return value.Number(int64(an) % int64(bn)), nil
	case value.OpPower:
		return value.Number(math.Pow(float64(an), float64(bn))), nil
	case value.OpBitAnd:
		return value.Number(int64(an) & int64(bn)), nil
	case value.OpBitOr:
		return value.Number(int64(an) | int64(bn)), nil
	case value.OpBitXor:
		return value.Number(int64(an) ^ int64(bn)), nil
	case value.OpShiftLeft:
		return value.Number(int64(an) << uint(int64(bn))), nil
	case value.OpShiftRight:
		return value.Number(int64(an) >> uint(int64(bn))), nil
	default:
		return nil, vm.runtimeErrorf("unsupported binary operator")
	}
}

// compare evaluates one of the four numeric ordering opcodes.
func (vm *VM) compare(op value.OpCode, a, b value.Value) (value.Value, error) {
	an, aOK := a.(value.Number)
	bn, bOK := b.(value.Number)
	if !aOK || !bOK {
		return nil, vm.runtimeErrorf("operands must be numbers")
	}
	switch op {
	case value.OpGreater:
		return value.Bool(an > bn), nil
	case value.OpGreaterEqual:
		return value.Bool(an >= bn), nil
	case value.OpLess:
		return value.Bool(an < bn), nil
	case value.OpLessEqual:
		return value.Bool(an <= bn), nil
	default:
		return nil, vm.runtimeErrorf("unsupported comparison operator")
	}
}
