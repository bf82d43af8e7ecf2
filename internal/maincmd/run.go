package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/dictu-lang/dictu/lang/vm"
)

// Run compiles and executes every file given on the command line, one after
// another, sharing nothing between them (each gets its own VM, matching how
// the original CLI invokes the interpreter once per script).
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		if err := RunFile(ctx, stdio, c.Trace, c.StressGC, c.InitialHeap, path); err != nil {
			return err
		}
	}
	return nil
}

func RunFile(ctx context.Context, stdio mainer.Stdio, trace, stressGC bool, initialHeap int, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return wrapExit(exitIOError, printError(stdio, err))
	}

	machine := vm.New()
	machine.Name = path
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr
	machine.Stdin = stdio.Stdin
	machine.Trace = trace
	machine.GC().StressMode = stressGC
	if initialHeap > 0 {
		machine.GC().NextGC = uint64(initialHeap)
	}
	machine.WithCancel(ctx)

	fn, compileErr := machine.Compile(src, path)
	if compileErr != nil {
		return wrapExit(exitCompileError, printError(stdio, fmt.Errorf("%s: %w", path, compileErr)))
	}

	if _, runErr := machine.Run(fn); runErr != nil {
		return wrapExit(exitRuntimeError, printError(stdio, fmt.Errorf("%s: %w", path, runErr)))
	}
	return nil
}
