package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/dictu-lang/dictu/lang/vm"
)

// Repl starts an interactive read-eval-print loop backed by a single VM, so
// variables and functions declared on one line stay visible to the next
// (spec §6 "the REPL keeps one VM alive across lines").
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	machine := vm.New()
	machine.Name = "<repl>"
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr
	machine.Stdin = stdio.Stdin
	machine.Trace = c.Trace
	machine.GC().StressMode = c.StressGC
	if c.InitialHeap > 0 {
		machine.GC().NextGC = uint64(c.InitialHeap)
	}
	machine.WithCancel(ctx)

	scanner := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return scanner.Err()
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		if _, err := machine.RunLine([]byte(line)); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
		}
	}
}
