package compiler

import (
	"fmt"

	"github.com/dictu-lang/dictu/lang/scanner"
	"github.com/dictu-lang/dictu/lang/token"
)

// parser drives the scanner and the current chain of function compilers.
// It is the single-pass compiler's "cursor": advancing it scans one more
// token and shifts current into previous.
type parser struct {
	scan scanner.Scanner

	previous token.Value
	current  token.Value
	prevTok  token.Token
	curTok   token.Token

	cur   *fnCompiler
	class *classState // class/trait currently being compiled, nil at top level

	repl bool // expression statements emit OP_POP_REPL instead of OP_POP

	interner Interner

	hadError  bool
	panicMode bool
	errs      []error
}

func newParser(source []byte, interner Interner) *parser {
	p := &parser{interner: interner}
	p.scan.Init(source, func(line int, msg string) {
		p.errs = append(p.errs, fmt.Errorf("line %d: %s", line, msg))
		p.hadError = true
	})
	return p
}

func (p *parser) advance() {
	p.previous = p.current
	p.prevTok = p.curTok
	for {
		p.curTok = p.scan.Scan(&p.current)
		if p.curTok != token.ILLEGAL {
			break
		}
		// the scanner already reported the error via errHandler
	}
}

func (p *parser) check(t token.Token) bool { return p.curTok == t }

func (p *parser) match(t token.Token) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t token.Token, msg string) {
	if p.curTok == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current.Line, p.curTok, msg) }
func (p *parser) errorAtPrevious(msg string) { p.errorAt(p.previous.Line, p.prevTok, msg) }

func (p *parser) errorAt(line int, tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	p.errs = append(p.errs, fmt.Errorf("line %d: at %s: %s", line, tok.GoString(), msg))
}

// synchronize resumes after a compile error at the next statement boundary:
// a just-consumed `;`, or the next token beginning a declaration or control
// statement (spec §4.4 "Error recovery").
func (p *parser) synchronize() {
	p.panicMode = false
	for p.curTok != token.EOF {
		if p.prevTok == token.SEMI {
			return
		}
		switch p.curTok {
		case token.CLASS, token.TRAIT, token.DEF, token.VAR, token.FOR,
			token.IF, token.WHILE, token.RETURN, token.IMPORT, token.WITH:
			return
		}
		p.advance()
	}
}
