package stdlib

import (
	"os"
	"runtime"

	"github.com/dictu-lang/dictu/lang/value"
)

// System exposes process/platform facts: argv, platform name, exit().
// exit() calls os.Exit directly, so it terminates the process immediately:
// it raises no RuntimeError, the embedding CLI never sees it return, and no
// deferred Go code runs.
func System(gc *value.GC, args []string) *value.ObjInstance {
	argv := make([]value.Value, len(args))
	for i, a := range args {
		argv[i] = gc.InternString(a)
	}
	mod := NewModule(gc, "System", map[string]value.NativeFn{
		"exit": func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
			code := 0
			if len(args) == 1 {
				n, ok := args[0].(value.Number)
				if !ok {
					return typeError(ctx, "exit", 0, "number")
				}
				code = int(n)
			}
			os.Exit(code)
			return value.NilValue, true
		},
	})
	mod.Fields.Set(gc.InternString("platform"), gc.InternString(runtime.GOOS))
	mod.Fields.Set(gc.InternString("argv"), value.NewList(argv))
	return mod
}
