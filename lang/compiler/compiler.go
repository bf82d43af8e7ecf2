// Package compiler turns Dictu source text directly into bytecode in a
// single pass: there is no intermediate AST. Expressions are parsed with a
// Pratt (precedence-climbing) table; statements are parsed by straight
// recursive descent that emits as it goes, following the architecture
// described for Dictu's reference implementation.
package compiler

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/dictu-lang/dictu/lang/token"
	"github.com/dictu-lang/dictu/lang/value"
)

// FuncType distinguishes the kind of function currently being compiled,
// which governs slot-0 binding (this vs. anonymous) and whether a bare
// `return;` falls through to an implicit `return this;`.
type FuncType uint8

const (
	TypeTopLevel FuncType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
	TypeStatic
)

const maxLocals = 256
const maxUpvalues = 256

// Interner supplies the single canonical string pool that identifier name
// constants, string literals and import paths must be allocated through.
// The VM's *value.GC satisfies this directly: compiling against the same
// GC instance a program will run under is what makes string equality
// (pointer identity, per value.Equals) hold between compile-time constants
// and runtime-built strings.
type Interner interface {
	InternString(s string) *value.ObjString
}

// local describes one slot in the current function's local-variable array.
type local struct {
	name       string
	depth      int // -1 while declared but not yet defined
	isCaptured bool
}

// upvalueRef describes one entry in the current function's upvalue array:
// either a capture of the immediately enclosing function's local slot, or a
// pass-through of one of its own upvalues.
type upvalueRef struct {
	index   uint8
	isLocal bool
}

// loopState tracks one nested loop's break/continue bookkeeping (spec
// §4.4 "Loops").
type loopState struct {
	start      int // back-edge target for `continue`
	scopeDepth int
	breaks     []int // offsets of OP_BREAK placeholders awaiting a patch
	enclosing  *loopState
}

// withState tracks one nested `with(path, mode) { ... }` block whose file
// local must be closed on every exit, including an early `return` (spec
// §4.5 "with(path, mode) { ... }").
type withState struct {
	slot      byte
	enclosing *withState
}

// classState tracks the class or trait currently being compiled, so method
// bodies know whether `super` is in scope.
type classState struct {
	hasSuperclass bool
	enclosing     *classState
}

// fnCompiler holds all per-function compiler state: Dictu's single-pass
// design means a function's compiler record is pushed when a nested
// function is entered and popped when its closing `}` is reached, mirroring
// a native call stack of compilers.
type fnCompiler struct {
	enclosing *fnCompiler

	fn     *value.ObjFunction
	fnType FuncType

	locals     [maxLocals]local
	localCount int
	scopeDepth int

	upvalues [maxUpvalues]upvalueRef

	loop  *loopState
	withs *withState

	// names dedups identifier constants within this function's chunk, keyed
	// by the raw string; distinct from the VM's global string interning
	// pool, this exists purely so the same name used twice in one function
	// doesn't bloat the constant pool (spec §4.4 "per-compiler
	// string-constants cache").
	names *swiss.Map[string, uint32]
}

func newFnCompiler(enclosing *fnCompiler, fnType FuncType, name string, interner Interner) *fnCompiler {
	c := &fnCompiler{
		enclosing: enclosing,
		fnType:    fnType,
		fn:        &value.ObjFunction{},
		names:     swiss.NewMap[string, uint32](8),
	}
	if name != "" {
		c.fn.Name = interner.InternString(name)
	}
	// Slot 0 is reserved: `this` for methods/initializers, otherwise
	// anonymous and unreferenceable directly (spec §4.4 "Classes and
	// traits").
	slotName := ""
	if fnType == TypeMethod || fnType == TypeInitializer {
		slotName = "this"
	}
	c.locals[0] = local{name: slotName, depth: 0}
	c.localCount = 1
	return c
}

func (c *fnCompiler) chunk() *value.Chunk { return &c.fn.Chunk }

// Compile compiles one top-level Dictu source file into a top-level
// ObjFunction (an implicit `def` with no parameters), along with any
// compile errors encountered. A non-empty error slice means the returned
// function must not be executed (spec §7 "Compile errors").
func Compile(source []byte, filename string, interner Interner) (*value.ObjFunction, []error) {
	p := newParser(source, interner)
	p.cur = newFnCompiler(nil, TypeTopLevel, filename, interner)

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	fn := p.endFunction()
	return fn, p.errs
}

// ReplState carries compiler state across successive lines read by the
// REPL, so declarations accumulate as globals the way they would across
// statements in one script (spec §4.5 "REPL").
type ReplState struct {
	fc       *fnCompiler
	interner Interner
}

// NewREPLState starts a fresh REPL compilation context against interner,
// which must be the same GC the REPL's VM is running under.
func NewREPLState(interner Interner) *ReplState {
	return &ReplState{fc: newFnCompiler(nil, TypeTopLevel, "<repl>", interner), interner: interner}
}

// CompileLine compiles one more line of REPL input against the same
// top-level function, returning that same ObjFunction with its chunk (and
// its identifier-constant cache) reset so that it contains only the newly
// compiled code: the VM runs it, and the globals table is what persists
// across lines.
func (r *ReplState) CompileLine(source []byte) (*value.ObjFunction, []error) {
	p := newParser(source, r.interner)
	p.repl = true
	r.fc.fn.Chunk = value.Chunk{}
	r.fc.names = swiss.NewMap[string, uint32](8)
	p.cur = r.fc

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	p.emitReturn()
	return r.fc.fn, p.errs
}

// endFunction emits the implicit trailing return and returns the finished
// ObjFunction for the function compiler currently on top.
func (p *parser) endFunction() *value.ObjFunction {
	p.emitReturn()
	return p.cur.fn
}

func (p *parser) emitReturn() {
	if p.cur.fnType == TypeInitializer {
		p.emitOp(value.OpGetLocal)
		p.emitByte(0) // return `this`
	} else {
		p.emitOp(value.OpNil)
	}
	p.emitOp(value.OpReturn)
}

// --- byte/opcode emission ---

func (p *parser) emitByte(b byte) {
	p.cur.chunk().Write(b, p.previous.Line)
}

func (p *parser) emitOp(op value.OpCode) {
	p.cur.chunk().WriteOp(op, p.previous.Line)
}

func (p *parser) emitOpByte(op value.OpCode, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

// emitJump emits a jump opcode with a placeholder 2-byte operand and
// returns the offset of the first placeholder byte, to be patched once the
// jump target is known.
func (p *parser) emitJump(op value.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.cur.chunk().Code) - 2
}

// patchJump backfills the 2-byte operand at offset with the distance from
// just after it to the current end of the chunk.
func (p *parser) patchJump(offset int) {
	jump := len(p.cur.chunk().Code) - offset - 2
	if jump > 0xffff {
		p.errorAtPrevious("too much code to jump over")
	}
	code := p.cur.chunk().Code
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

// emitLoop emits OP_LOOP with a backward offset to start.
func (p *parser) emitLoop(start int) {
	p.emitOp(value.OpLoop)
	jump := len(p.cur.chunk().Code) - start + 2
	if jump > 0xffff {
		p.errorAtPrevious("loop body too large")
	}
	p.emitByte(byte(jump >> 8))
	p.emitByte(byte(jump))
}

// emitConstant adds v to the constant pool and emits OP_CONSTANT.
func (p *parser) emitConstant(v value.Value) {
	idx := p.makeConstant(v)
	p.emitOpByte(value.OpConstant, idx)
}

func (p *parser) makeConstant(v value.Value) byte {
	c := p.cur.chunk()
	if c.ConstantCount() >= 256 {
		p.errorAtPrevious("too many constants in one chunk")
		return 0
	}
	return byte(c.AddConstant(v))
}

// identifierConstant interns name as an ObjString and adds it to the
// current function's constant pool, reusing the index if the same name
// constant was already emitted in this function.
func (p *parser) identifierConstant(name string) byte {
	if idx, ok := p.cur.names.Get(name); ok {
		return byte(idx)
	}
	idx := p.makeConstant(p.interner.InternString(name))
	p.cur.names.Put(name, uint32(idx))
	return idx
}

// --- scopes ---

func (p *parser) beginScope() { p.cur.scopeDepth++ }

func (p *parser) endScope() {
	c := p.cur
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		if c.locals[c.localCount-1].isCaptured {
			p.emitOp(value.OpCloseUpvalue)
		} else {
			p.emitOp(value.OpPop)
		}
		c.localCount--
	}
}

// declareLocal registers name as a new local in the current scope at
// depth -1 (uninitialized). Redeclaring a name already bound in the same
// scope is an error.
func (p *parser) declareLocal(name string) {
	c := p.cur
	if c.scopeDepth == 0 {
		return
	}
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name == name {
			p.errorAtPrevious(fmt.Sprintf("already a variable named %q in this scope", name))
		}
	}
	p.addLocal(name)
}

func (p *parser) addLocal(name string) {
	c := p.cur
	if c.localCount == maxLocals {
		p.errorAtPrevious("too many local variables in function")
		return
	}
	c.locals[c.localCount] = local{name: name, depth: -1}
	c.localCount++
}

// markInitialized defines the most recently declared local at the current
// scope depth. At global scope (depth 0) it is a no-op: globals are
// defined by OP_DEFINE_GLOBAL instead.
func (p *parser) markInitialized() {
	c := p.cur
	if c.scopeDepth == 0 {
		return
	}
	c.locals[c.localCount-1].depth = c.scopeDepth
}

// resolveLocal looks up name among c's locals, innermost scope first.
// Reading a local with depth == -1 is an error: it is in the process of
// being initialized by its own initializer expression.
func (p *parser) resolveLocal(c *fnCompiler, name string) int {
	for i := c.localCount - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				p.errorAtPrevious(fmt.Sprintf("can't read local %q in its own initializer", name))
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue implements the "flattened closures" scheme of spec §4.4:
// it searches the enclosing compiler for name, first as a local (marking it
// captured) and then, recursively, as an upvalue of the enclosing function.
func (p *parser) resolveUpvalue(c *fnCompiler, name string) int {
	if c.enclosing == nil {
		return -1
	}
	if l := p.resolveLocal(c.enclosing, name); l != -1 {
		c.enclosing.locals[l].isCaptured = true
		return p.addUpvalue(c, uint8(l), true)
	}
	if up := p.resolveUpvalue(c.enclosing, name); up != -1 {
		return p.addUpvalue(c, uint8(up), false)
	}
	return -1
}

func (p *parser) addUpvalue(c *fnCompiler, index uint8, isLocal bool) int {
	for i := 0; i < c.fn.UpvalueCount; i++ {
		if c.upvalues[i].index == index && c.upvalues[i].isLocal == isLocal {
			return i
		}
	}
	if c.fn.UpvalueCount == maxUpvalues {
		p.errorAtPrevious("too many closure variables in function")
		return 0
	}
	c.upvalues[c.fn.UpvalueCount] = upvalueRef{index: index, isLocal: isLocal}
	i := c.fn.UpvalueCount
	c.fn.UpvalueCount++
	return i
}
