package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/dictu-lang/dictu/lang/value"
	"github.com/dictu-lang/dictu/lang/vm"
)

// Disassemble compiles each file and prints its bytecode without running
// it, walking into every nested function constant so closures show up as
// their own "== name ==" section (spec §4.1's byte-level chunk format).
func (c *Cmd) Disassemble(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		if err := DisassembleFile(stdio, path); err != nil {
			return err
		}
	}
	return nil
}

func DisassembleFile(stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return wrapExit(exitIOError, printError(stdio, err))
	}

	machine := vm.New()
	fn, compileErr := machine.Compile(src, path)
	if compileErr != nil {
		return wrapExit(exitCompileError, printError(stdio, fmt.Errorf("%s: %w", path, compileErr)))
	}

	disassembleFunction(stdio, fn)
	return nil
}

func disassembleFunction(stdio mainer.Stdio, fn *value.ObjFunction) {
	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	fmt.Fprint(stdio.Stdout, fn.Chunk.Disassemble(name))

	for _, constant := range fn.Chunk.Constants {
		if nested, ok := constant.(*value.ObjFunction); ok {
			disassembleFunction(stdio, nested)
		}
	}
}
