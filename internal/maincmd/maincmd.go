package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "dictu"

// sysexits-style exit codes (spec §6 "Exit codes"): 0 on success, 65 for a
// compile error, 70 for an uncaught runtime error, 74 for an I/O failure
// reading a source file.
const (
	exitCompileError mainer.ExitCode = 65
	exitRuntimeError mainer.ExitCode = 70
	exitIOError      mainer.ExitCode = 74
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...] [-- <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and virtual machine for the Dictu programming language.

The <command> can be one of:
       run                       Compile and execute one or more source
                                 files.
       repl                      Start an interactive read-eval-print
                                 loop.
       tokenize                  Execute the scanner phase and print the
                                 resulting tokens.
       disassemble               Compile and print the resulting
                                 bytecode, without executing it.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --trace                   Print each instruction as it executes
                                 (valid for the <run> and <repl> commands).
       --stress-gc               Run a full garbage collection before every
                                 executed instruction (also DICTU_STRESS_GC
                                 env var).
       --initial-heap=<bytes>    Byte threshold before the first automatic
                                 collection (also DICTU_INITIAL_HEAP env
                                 var); 0 keeps the VM's default.

More information on the Dictu programming language:
       https://github.com/dictu-lang/Dictu
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	Trace   bool `flag:"trace"`

	// StressGC and InitialHeap tune the VM's collector (spec §4.3): StressGC
	// forces a collection on every ShouldCollect check, InitialHeap overrides
	// the byte threshold before the first automatic one. Read from the CLI
	// flag or the DICTU_STRESS_GC/DICTU_INITIAL_HEAP env vars, the same way
	// the teacher reads --with-comments.
	StressGC    bool `flag:"stress-gc"`
	InitialHeap int  `flag:"initial-heap"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}

	if (cmdName == "tokenize" || cmdName == "disassemble" || cmdName == "run") && len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: at least one file must be provided", cmdName)
	}

	if c.flags["trace"] && cmdName != "run" && cmdName != "repl" {
		return fmt.Errorf("%s: invalid flag 'trace'", cmdName)
	}

	if (c.flags["stress-gc"] || c.flags["initial-heap"]) && cmdName != "run" && cmdName != "repl" {
		return fmt.Errorf("%s: invalid flag 'stress-gc'/'initial-heap'", cmdName)
	}

	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

// Main dispatches to the requested subcommand and maps its result to a
// sysexits-style process exit code (spec §6). Each *exitError carries the
// specific code its failure mode maps to; anything else (e.g. a command
// rejected by Validate) is reported as mainer.Failure.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   true,
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return mainer.Failure
	}
	return mainer.Success
}

// exitError pins a specific exit code to an error already printed by its
// command function, so Main doesn't need to know which command produced it.
type exitError struct {
	code mainer.ExitCode
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func wrapExit(code mainer.ExitCode, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
