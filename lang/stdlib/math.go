package stdlib

import (
	"math"

	"github.com/dictu-lang/dictu/lang/value"
)

// Math registers the subset of math functions that give the native
// registration hook a real workout: unary/binary numeric natives and the
// two module-level constants (pi, e) exposed as plain Fields rather than
// zero-arg natives.
func Math(gc *value.GC) *value.ObjInstance {
	mod := NewModule(gc, "Math", map[string]value.NativeFn{
		"sqrt":  unaryMath("sqrt", math.Sqrt),
		"floor": unaryMath("floor", math.Floor),
		"ceil":  unaryMath("ceil", math.Ceil),
		"abs":   unaryMath("abs", math.Abs),
		"round": unaryMath("round", math.Round),
		"pow": func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
			if len(args) != 2 {
				return arityError(ctx, "pow", 2, len(args))
			}
			base, ok := args[0].(value.Number)
			if !ok {
				return typeError(ctx, "pow", 0, "number")
			}
			exp, ok := args[1].(value.Number)
			if !ok {
				return typeError(ctx, "pow", 1, "number")
			}
			return value.Number(math.Pow(float64(base), float64(exp))), true
		},
		"max": func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
			if len(args) != 2 {
				return arityError(ctx, "max", 2, len(args))
			}
			a, aOK := args[0].(value.Number)
			b, bOK := args[1].(value.Number)
			if !aOK || !bOK {
				return typeError(ctx, "max", 0, "number")
			}
			if a > b {
				return a, true
			}
			return b, true
		},
		"min": func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
			if len(args) != 2 {
				return arityError(ctx, "min", 2, len(args))
			}
			a, aOK := args[0].(value.Number)
			b, bOK := args[1].(value.Number)
			if !aOK || !bOK {
				return typeError(ctx, "min", 0, "number")
			}
			if a < b {
				return a, true
			}
			return b, true
		},
	})
	mod.Fields.Set(gc.InternString("pi"), value.Number(math.Pi))
	mod.Fields.Set(gc.InternString("e"), value.Number(math.E))
	return mod
}

func unaryMath(name string, f func(float64) float64) value.NativeFn {
	return func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		if len(args) != 1 {
			return arityError(ctx, name, 1, len(args))
		}
		n, ok := args[0].(value.Number)
		if !ok {
			return typeError(ctx, name, 0, "number")
		}
		return value.Number(f(float64(n))), true
	}
}
