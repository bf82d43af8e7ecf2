package stdlib

import (
	"os"

	"github.com/dictu-lang/dictu/lang/value"
)

// Env exposes the process environment: get/set/unset by name, matching
// the shape the original implementation's `Env` module uses for its C
// getenv/setenv/unsetenv bindings.
func Env(gc *value.GC) *value.ObjInstance {
	return NewModule(gc, "Env", map[string]value.NativeFn{
		"get": func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
			if len(args) != 1 {
				return arityError(ctx, "get", 1, len(args))
			}
			name, ok := args[0].(*value.ObjString)
			if !ok {
				return typeError(ctx, "get", 0, "string")
			}
			v, ok := os.LookupEnv(name.Chars)
			if !ok {
				return value.NilValue, true
			}
			return gc.InternString(v), true
		},
		"set": func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
			if len(args) != 2 {
				return arityError(ctx, "set", 2, len(args))
			}
			name, ok := args[0].(*value.ObjString)
			if !ok {
				return typeError(ctx, "set", 0, "string")
			}
			val, ok := args[1].(*value.ObjString)
			if !ok {
				return typeError(ctx, "set", 1, "string")
			}
			if err := os.Setenv(name.Chars, val.Chars); err != nil {
				ctx.RuntimeError("set(): %v", err)
				return value.Empty, false
			}
			return value.Bool(true), true
		},
		"unset": func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
			if len(args) != 1 {
				return arityError(ctx, "unset", 1, len(args))
			}
			name, ok := args[0].(*value.ObjString)
			if !ok {
				return typeError(ctx, "unset", 0, "string")
			}
			_ = os.Unsetenv(name.Chars)
			return value.Bool(true), true
		},
	})
}
