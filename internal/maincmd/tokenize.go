package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/dictu-lang/dictu/lang/scanner"
	"github.com/dictu-lang/dictu/lang/token"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		if err := TokenizeFile(stdio, path); err != nil {
			return err
		}
	}
	return nil
}

func TokenizeFile(stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return wrapExit(exitIOError, printError(stdio, err))
	}

	var errs []error
	var scan scanner.Scanner
	scan.Init(src, func(line int, msg string) {
		errs = append(errs, fmt.Errorf("line %d: %s", line, msg))
	})

	var val token.Value
	for {
		tok := scan.Scan(&val)
		fmt.Fprintf(stdio.Stdout, "%4d %-16s %q\n", val.Line, tok, val.Raw)
		if tok == token.EOF {
			break
		}
	}

	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(stdio.Stderr, e)
		}
		return wrapExit(exitCompileError, errs[0])
	}
	return nil
}
