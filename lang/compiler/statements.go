package compiler

import (
	"github.com/dictu-lang/dictu/lang/token"
	"github.com/dictu-lang/dictu/lang/value"
)

// declaration parses one top-level or block-level declaration and recovers
// to the next statement boundary on error (spec §4.4 "Error recovery").
func (p *parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration(false)
	case p.match(token.TRAIT):
		p.classDeclaration(true)
	case p.match(token.DEF):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) varDeclaration() {
	name := p.parseVariable("expect variable name")
	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitOp(value.OpNil)
	}
	p.consume(token.SEMI, "expect ';' after variable declaration")
	p.defineVariable(name)
}

// parseVariable consumes an identifier, declares it as a local (if inside a
// scope), and returns the name constant index to use for OP_DEFINE_GLOBAL
// if it turns out to be a global.
func (p *parser) parseVariable(msg string) byte {
	p.consume(token.IDENT, msg)
	name := p.previous.Raw
	p.declareLocal(name)
	if p.cur.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(name)
}

func (p *parser) defineVariable(nameConst byte) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(value.OpDefineGlobal, nameConst)
}

func (p *parser) funDeclaration() {
	nameConst := p.parseVariable("expect function name")
	p.markInitialized()
	p.function(TypeFunction, p.previous.Raw)
	p.defineVariable(nameConst)
}

// function compiles one function's parameter list and body, pushing a new
// fnCompiler for its duration, and emits OP_CLOSURE (with upvalue capture
// descriptors) into the *enclosing* function's chunk.
func (p *parser) function(fnType FuncType, name string) {
	enclosing := p.cur
	p.cur = newFnCompiler(enclosing, fnType, name, p.interner)
	p.beginScope()

	p.consume(token.LPAREN, "expect '(' after function name")
	seenOptional := false
	if !p.check(token.RPAREN) {
		for {
			if p.cur.fn.Arity+p.cur.fn.ArityOptional >= 255 {
				p.errorAtCurrent("can't have more than 255 parameters")
			}
			p.parseVariable("expect parameter name")
			slot := p.cur.localCount - 1
			if p.match(token.EQ) {
				// Optional parameter: arity counted separately, default
				// compiled inline as an OP_DEFINE_OPTIONAL-guarded block
				// (spec §4.4 "Functions").
				seenOptional = true
				p.cur.fn.ArityOptional++
				p.markInitialized()
				p.optionalDefault(slot)
			} else {
				if seenOptional {
					p.errorAtPrevious("non-optional parameter after an optional one")
				}
				p.cur.fn.Arity++
				p.markInitialized()
			}
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expect ')' after parameters")

	if p.match(token.ARROW) {
		// Single-expression body sugar: `def f(x) => x + 1;`
		p.expression()
		p.emitOp(value.OpReturn)
		p.consume(token.SEMI, "expect ';' after expression body")
	} else {
		p.consume(token.LBRACE, "expect '{' before function body")
		p.block()
	}

	fn := p.endFunction()
	upvalues := p.cur.upvalues
	upvalueCount := fn.UpvalueCount
	p.cur = enclosing

	idx := p.makeConstant(fn)
	p.emitOpByte(value.OpClosure, idx)
	for i := 0; i < upvalueCount; i++ {
		if upvalues[i].isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(upvalues[i].index)
	}
}

// optionalDefault records an OP_DEFINE_OPTIONAL guard for the parameter
// just declared in slot: compiled immediately after the parameter is
// declared so its default expression runs in the function's own scope
// (spec §4.4/§4.5 "optional parameters").
func (p *parser) optionalDefault(slot int) {
	guard := p.emitJump3(value.OpDefineOptional, byte(slot))
	p.expression()
	p.emitOpByte(value.OpSetLocal, byte(slot))
	p.emitOp(value.OpPop)
	p.patchJump(guard)
}

// emitJump3 emits an opcode that takes a 1-byte operand followed by a
// 2-byte jump placeholder (OP_DEFINE_OPTIONAL's shape), returning the
// offset of the jump placeholder for patchJump.
func (p *parser) emitJump3(op value.OpCode, b byte) int {
	p.emitOp(op)
	p.emitByte(b)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.cur.chunk().Code) - 2
}

func (p *parser) classDeclaration(isTrait bool) {
	p.consume(token.IDENT, "expect class name")
	name := p.previous.Raw
	nameConst := p.identifierConstant(name)
	p.declareLocal(name)

	hasSuperclass := false
	superName := ""
	switch {
	case isTrait:
		p.emitOpByte(value.OpTrait, nameConst)
	case p.match(token.LT):
		p.consume(token.IDENT, "expect superclass name")
		if p.previous.Raw == name {
			p.errorAtPrevious("a class can't inherit from itself")
		}
		superName = p.previous.Raw
		p.namedVariable(superName, false)
		p.emitOpByte(value.OpSubclass, nameConst)
		hasSuperclass = true
	default:
		p.emitOpByte(value.OpClass, nameConst)
	}
	p.defineVariable(nameConst)

	p.class = &classState{enclosing: p.class, hasSuperclass: hasSuperclass}
	if hasSuperclass {
		p.beginScope()
		p.namedVariable(superName, false) // OP_SUBCLASS consumed it; push again as the "super" local's value
		p.addLocal("super")
		p.markInitialized()
	}

	p.namedVariable(name, false) // push class/trait back on stack for method installs

	p.consume(token.LBRACE, "expect '{' before class body")
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		if !isTrait && p.match(token.USE) {
			for {
				p.consume(token.IDENT, "expect trait name")
				p.namedVariable(p.previous.Raw, false)
				p.emitOp(value.OpUse)
				if !p.match(token.COMMA) {
					break
				}
			}
			p.consume(token.SEMI, "expect ';' after use statement")
			continue
		}
		p.method(isTrait)
	}
	p.consume(token.RBRACE, "expect '}' after class body")
	p.emitOp(value.OpPop) // pop the class/trait value pushed for method installs

	if hasSuperclass {
		p.endScope()
	}
	p.class = p.class.enclosing
}

func (p *parser) method(isTrait bool) {
	isStatic := p.match(token.STATIC)
	p.consume(token.IDENT, "expect method name")
	name := p.previous.Raw
	nameConst := p.identifierConstant(name)

	fnType := TypeMethod
	switch {
	case isStatic:
		fnType = TypeStatic
	case name == "init":
		fnType = TypeInitializer
	}
	p.function(fnType, name)

	if isTrait {
		p.emitOpByte(value.OpTraitMethod, nameConst)
	} else {
		p.emitOpByte(value.OpMethod, nameConst)
	}
}

// statement parses one statement. A leading '{' is ambiguous between a
// block and a dict-literal expression statement; looksLikeDict resolves it
// via scanner backtracking (spec §4.4 "Blocks vs dict literals").
func (p *parser) statement() {
	switch {
	case p.check(token.LBRACE) && !p.looksLikeDict():
		p.advance()
		p.beginScope()
		p.block()
		p.endScope()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.BREAK):
		p.breakStatement()
	case p.match(token.CONTINUE):
		p.continueStatement()
	case p.match(token.IMPORT):
		p.importStatement()
	case p.match(token.WITH):
		p.withStatement()
	default:
		p.expressionStatement()
	}
}

// looksLikeDict performs one-off scanner backtracking to disambiguate a
// statement-position '{': empty `{}` followed by `;`, or `{ key :` are
// dict-literal expression statements; anything else is a block.
func (p *parser) looksLikeDict() bool {
	mark := p.scan.Mark()
	var v1, v2 token.Value
	t1 := p.scan.Scan(&v1)
	isDict := false
	switch t1 {
	case token.RBRACE:
		t2 := p.scan.Scan(&v2)
		isDict = t2 == token.SEMI
	default:
		t2 := p.scan.Scan(&v2)
		isDict = t2 == token.COLON
	}
	p.scan.Reset(mark)
	return isDict
}

func (p *parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "expect '}' after block")
}

func (p *parser) expressionStatement() {
	p.expression()
	if p.repl && p.cur.scopeDepth == 0 {
		p.emitOp(value.OpPopRepl)
	} else {
		p.emitOp(value.OpPop)
	}
	p.consume(token.SEMI, "expect ';' after expression")
}

func (p *parser) ifStatement() {
	p.consume(token.LPAREN, "expect '(' after 'if'")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after condition")

	thenJump := p.emitJump(value.OpJumpIfFalse)
	p.emitOp(value.OpPop)
	p.statement()

	elseJump := p.emitJump(value.OpJump)
	p.patchJump(thenJump)
	p.emitOp(value.OpPop)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loop := &loopState{start: len(p.cur.chunk().Code), scopeDepth: p.cur.scopeDepth, enclosing: p.cur.loop}
	p.cur.loop = loop

	p.consume(token.LPAREN, "expect '(' after 'while'")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after condition")

	exitJump := p.emitJump(value.OpJumpIfFalse)
	p.emitOp(value.OpPop)
	p.statement()
	p.emitLoop(loop.start)

	p.patchJump(exitJump)
	p.emitOp(value.OpPop)

	p.patchBreaks(loop)
	p.cur.loop = loop.enclosing
}

// forStatement compiles a C-style three-clause for loop: `for (init; cond;
// incr) body`. Dictu has no dedicated iterator-protocol keyword in the
// token set, so iteration over lists/dicts is left to native helper
// functions rather than language syntax.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "expect '(' after 'for'")

	switch {
	case p.match(token.SEMI):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loop := &loopState{start: len(p.cur.chunk().Code), scopeDepth: p.cur.scopeDepth, enclosing: p.cur.loop}
	p.cur.loop = loop

	exitJump := -1
	if !p.match(token.SEMI) {
		p.expression()
		p.consume(token.SEMI, "expect ';' after loop condition")
		exitJump = p.emitJump(value.OpJumpIfFalse)
		p.emitOp(value.OpPop)
	}

	if !p.check(token.RPAREN) {
		bodyJump := p.emitJump(value.OpJump)
		incrStart := len(p.cur.chunk().Code)
		p.expression()
		p.emitOp(value.OpPop)
		p.consume(token.RPAREN, "expect ')' after for clauses")

		p.emitLoop(loop.start)
		loop.start = incrStart
		p.patchJump(bodyJump)
	} else {
		p.consume(token.RPAREN, "expect ')' after for clauses")
	}

	p.statement()
	p.emitLoop(loop.start)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(value.OpPop)
	}

	p.patchBreaks(loop)
	p.cur.loop = loop.enclosing
	p.endScope()
}

// patchBreaks rewrites every OP_BREAK placeholder recorded for loop to an
// OP_JUMP targeting the current (post-loop) position, per spec §4.4
// "Loops": "scans the chunk from body forward, rewriting every OP_BREAK to
// OP_JUMP". Recording offsets as they're emitted is equivalent and avoids a
// second decode pass over the bytecode.
func (p *parser) patchBreaks(loop *loopState) {
	for _, offset := range loop.breaks {
		p.cur.chunk().Code[offset-1] = byte(value.OpJump)
		p.patchJumpAt(offset)
	}
}

func (p *parser) patchJumpAt(offset int) {
	jump := len(p.cur.chunk().Code) - offset - 2
	code := p.cur.chunk().Code
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

func (p *parser) breakStatement() {
	loop := p.cur.loop
	if loop == nil {
		p.errorAtPrevious("can't use 'break' outside of a loop")
		p.consume(token.SEMI, "expect ';' after 'break'")
		return
	}
	p.popLocalsAboveLoop(loop)
	p.emitOp(value.OpBreak)
	p.emitByte(0xff)
	offset := len(p.cur.chunk().Code)
	p.emitByte(0xff)
	loop.breaks = append(loop.breaks, offset-1)
	p.consume(token.SEMI, "expect ';' after 'break'")
}

func (p *parser) continueStatement() {
	loop := p.cur.loop
	if loop == nil {
		p.errorAtPrevious("can't use 'continue' outside of a loop")
		p.consume(token.SEMI, "expect ';' after 'continue'")
		return
	}
	p.popLocalsAboveLoop(loop)
	p.emitLoop(loop.start)
	p.consume(token.SEMI, "expect ';' after 'continue'")
}

// popLocalsAboveLoop emits the stack cleanup for a break/continue jumping
// out of every scope nested inside loop. Any with(...) block opened inside
// the loop must have its file closed here too (mirroring closeOpenWiths),
// or jumping past it would leak the handle (spec §8 invariant 4).
func (p *parser) popLocalsAboveLoop(loop *loopState) {
	c := p.cur
	for w := c.withs; w != nil && c.locals[w.slot].depth > loop.scopeDepth; w = w.enclosing {
		p.emitOpByte(value.OpCloseFile, w.slot)
	}
	for i := c.localCount - 1; i >= 0 && c.locals[i].depth > loop.scopeDepth; i-- {
		if c.locals[i].isCaptured {
			p.emitOp(value.OpCloseUpvalue)
		} else {
			p.emitOp(value.OpPop)
		}
	}
}

func (p *parser) returnStatement() {
	if p.cur.fnType == TypeTopLevel {
		p.errorAtPrevious("can't return from top-level code")
	}
	if p.match(token.SEMI) {
		p.closeOpenWiths()
		p.emitReturn()
		return
	}
	if p.cur.fnType == TypeInitializer {
		p.errorAtPrevious("can't return a value from an initializer")
	}
	p.expression()
	p.consume(token.SEMI, "expect ';' after return value")
	p.closeOpenWiths()
	p.emitOp(value.OpReturn)
}

// closeOpenWiths emits OP_CLOSE_FILE for every with(...) block still open
// in the current function, innermost first, so an early return can never
// leak a file handle (spec §4.5, §8 invariant 4).
func (p *parser) closeOpenWiths() {
	for w := p.cur.withs; w != nil; w = w.enclosing {
		p.emitOpByte(value.OpCloseFile, w.slot)
	}
}

// importStatement compiles `import "path";`, which runs the module and
// discards its value, and `import Name;`, which imports the module named
// Name and binds it to a variable of that name.
func (p *parser) importStatement() {
	if p.match(token.IDENT) {
		name := p.previous.Raw
		nameConst := p.identifierConstant(name)
		p.emitOpByte(value.OpImport, nameConst)
		p.declareLocal(name)
		p.consume(token.SEMI, "expect ';' after import statement")
		p.defineVariable(nameConst)
		return
	}
	p.consume(token.STRING, "expect module path string")
	path := p.interner.InternString(p.previous.String)
	idx := p.makeConstant(path)
	p.emitOpByte(value.OpImport, idx)
	p.emitOp(value.OpPop) // module value isn't bound to a name by plain `import "x";`
	p.consume(token.SEMI, "expect ';' after import statement")
}

// withStatement compiles `with(path, mode) { body }`: opens a file, binds
// it to the local name `file` for body's scope, and guarantees OP_CLOSE_FILE
// runs on every exit path (spec §4.5 "with(path, mode) { ... }").
func (p *parser) withStatement() {
	p.consume(token.LPAREN, "expect '(' after 'with'")
	p.expression()
	p.consume(token.COMMA, "expect ',' after with path")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after with arguments")

	p.beginScope()
	p.emitOp(value.OpOpenFile)
	p.declareLocal("file")
	p.markInitialized()
	slot := byte(p.cur.localCount - 1)
	p.cur.withs = &withState{slot: slot, enclosing: p.cur.withs}

	p.consume(token.LBRACE, "expect '{' after 'with(...)'")
	p.block()

	p.cur.withs = p.cur.withs.enclosing
	p.emitOpByte(value.OpCloseFile, slot)
	p.endScope()
}
