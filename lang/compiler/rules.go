package compiler

import (
	"github.com/dictu-lang/dictu/lang/token"
	"github.com/dictu-lang/dictu/lang/value"
)

// Precedence levels, ascending (spec §4.4 "Pratt table"). A ternary level
// sits between assignment and or, giving `cond ? a : b` lower precedence
// than any binary operator but still usable as, e.g., a call argument.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecTernary
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecBitOr
	PrecBitXor
	PrecBitAnd
	PrecTerm
	PrecFactor
	PrecIndices // right-associative **
	PrecUnary
	PrecCall
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

var rules map[token.Token]parseRule

func init() {
	rules = map[token.Token]parseRule{
		token.LPAREN: {prefix: (*parser).grouping, infix: (*parser).call, prec: PrecCall},
		token.LBRACK: {prefix: (*parser).listLiteral, infix: (*parser).index, prec: PrecCall},
		token.LBRACE: {prefix: (*parser).dictLiteral},
		token.DOT:    {infix: (*parser).dot, prec: PrecCall},

		token.MINUS: {prefix: (*parser).unary, infix: (*parser).binary, prec: PrecTerm},
		token.PLUS:  {infix: (*parser).binary, prec: PrecTerm},
		token.SLASH:    {infix: (*parser).binary, prec: PrecFactor},
		token.STAR:     {infix: (*parser).binary, prec: PrecFactor},
		token.PERCENT:  {infix: (*parser).binary, prec: PrecFactor},
		token.STARSTAR: {infix: (*parser).binary, prec: PrecIndices},

		token.AMPERSAND:  {infix: (*parser).binary, prec: PrecBitAnd},
		token.PIPE:       {infix: (*parser).binary, prec: PrecBitOr},
		token.CIRCUMFLEX:  {infix: (*parser).binary, prec: PrecBitXor},
		token.LTLT:       {infix: (*parser).binary, prec: PrecTerm},
		token.GTGT:       {infix: (*parser).binary, prec: PrecTerm},

		token.BANG:  {prefix: (*parser).unary},
		token.EQEQ:   {infix: (*parser).binary, prec: PrecEquality},
		token.BANGEQ: {infix: (*parser).binary, prec: PrecEquality},
		token.LT: {infix: (*parser).binary, prec: PrecComparison},
		token.LE: {infix: (*parser).binary, prec: PrecComparison},
		token.GT: {infix: (*parser).binary, prec: PrecComparison},
		token.GE: {infix: (*parser).binary, prec: PrecComparison},

		token.PLUS_PLUS:   {prefix: (*parser).prefixIncDec},
		token.MINUS_MINUS: {prefix: (*parser).prefixIncDec},

		token.QUESTION: {infix: (*parser).ternary, prec: PrecTernary},

		token.IDENT:  {prefix: (*parser).variable},
		token.NUMBER: {prefix: (*parser).numberLit},
		token.STRING: {prefix: (*parser).stringLit},
		token.TRUE:   {prefix: (*parser).literalKeyword},
		token.FALSE:  {prefix: (*parser).literalKeyword},
		token.NIL:    {prefix: (*parser).literalKeyword},
		token.THIS:   {prefix: (*parser).this_},
		token.SUPER:  {prefix: (*parser).super_},

		token.AND: {infix: (*parser).and_, prec: PrecAnd},
		token.OR:  {infix: (*parser).or_, prec: PrecOr},
	}
}

func precedenceOf(t token.Token) Precedence { return rules[t].prec }

// expression parses one full expression at PrecAssignment, the lowest
// precedence level that still excludes bare statement-level constructs.
func (p *parser) expression() { p.parsePrecedence(PrecAssignment) }

// parsePrecedence is the heart of the Pratt parser: consume a prefix
// token's rule, then keep consuming infix rules whose precedence is at
// least prec (spec §4.4 "Expression parsing").
func (p *parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := rules[p.prevTok].prefix
	if prefix == nil {
		p.errorAtPrevious("expect expression")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(p, canAssign)

	for prec <= precedenceOf(p.curTok) {
		p.advance()
		infix := rules[p.prevTok].infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.errorAtPrevious("invalid assignment target")
	}
}

// --- shared get/set machinery ---

// resolveNameOps determines which get/set opcode pair and operand byte
// refer to name: a local slot, a captured upvalue, or (falling through) a
// global, interned as a name constant.
func (p *parser) resolveNameOps(name string) (getOp, setOp value.OpCode, operand byte) {
	if slot := p.resolveLocal(p.cur, name); slot != -1 {
		return value.OpGetLocal, value.OpSetLocal, byte(slot)
	}
	if up := p.resolveUpvalue(p.cur, name); up != -1 {
		return value.OpGetUpvalue, value.OpSetUpvalue, byte(up)
	}
	return value.OpGetGlobal, value.OpSetGlobal, p.identifierConstant(name)
}

// assignOrGet implements the common shape behind every assignable target
// (local, upvalue, global, property): plain `=`, one of the seven compound
// assignment operators, or a bare read (spec §4.4 "Compound assignment").
func (p *parser) assignOrGet(canAssign bool, getOp, setOp value.OpCode, operand byte) {
	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitOpByte(setOp, operand)
	case canAssign && p.matchCompoundAssign():
		op := p.prevTok
		p.emitOpByte(getOp, operand)
		p.expression()
		p.emitCompoundOp(op)
		p.emitOpByte(setOp, operand)
	default:
		p.emitOpByte(getOp, operand)
	}
}

func (p *parser) matchCompoundAssign() bool {
	switch p.curTok {
	case token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ,
		token.AMP_EQ, token.CIRCUMFLEX_EQ, token.PIPE_EQ:
		p.advance()
		return true
	}
	return false
}

// emitCompoundOp emits the arithmetic/bitwise opcode for a compound
// assignment token. Subtraction is deliberately negate-then-add rather than
// a dedicated subtract, per spec §4.4/§9: invisible today since the
// language has no operator overloading, but noted as an open question.
func (p *parser) emitCompoundOp(op token.Token) {
	switch op {
	case token.PLUS_EQ:
		p.emitOp(value.OpAdd)
	case token.MINUS_EQ:
		p.emitOp(value.OpNegate)
		p.emitOp(value.OpAdd)
	case token.STAR_EQ:
		p.emitOp(value.OpMultiply)
	case token.SLASH_EQ:
		p.emitOp(value.OpDivide)
	case token.AMP_EQ:
		p.emitOp(value.OpBitAnd)
	case token.CIRCUMFLEX_EQ:
		p.emitOp(value.OpBitXor)
	case token.PIPE_EQ:
		p.emitOp(value.OpBitOr)
	}
}

func (p *parser) emitIncDecOp(op token.Token) {
	if op == token.PLUS_PLUS {
		p.emitOp(value.OpIncrement)
	} else {
		p.emitOp(value.OpDecrement)
	}
}

// --- prefix rules ---

func (p *parser) grouping(canAssign bool) {
	p.expression()
	p.consume(token.RPAREN, "expect ')' after expression")
}

func (p *parser) numberLit(canAssign bool) {
	p.emitConstant(value.Number(p.previous.Number))
}

func (p *parser) stringLit(canAssign bool) {
	p.emitConstant(p.interner.InternString(p.previous.String))
}

func (p *parser) literalKeyword(canAssign bool) {
	switch p.prevTok {
	case token.TRUE:
		p.emitOp(value.OpTrue)
	case token.FALSE:
		p.emitOp(value.OpFalse)
	case token.NIL:
		p.emitOp(value.OpNil)
	}
}

func (p *parser) unary(canAssign bool) {
	op := p.prevTok
	p.parsePrecedence(PrecUnary)
	switch op {
	case token.MINUS:
		p.emitOp(value.OpNegate)
	case token.BANG:
		p.emitOp(value.OpNot)
	}
}

func (p *parser) binary(canAssign bool) {
	op := p.prevTok
	next := rules[op].prec + 1
	if op == token.STARSTAR {
		next = rules[op].prec // right-associative exponent
	}
	p.parsePrecedence(next)
	switch op {
	case token.PLUS:
		p.emitOp(value.OpAdd)
	case token.MINUS:
		p.emitOp(value.OpSubtract)
	case token.STAR:
		p.emitOp(value.OpMultiply)
	case token.SLASH:
		p.emitOp(value.OpDivide)
	case token.PERCENT:
		p.emitOp(value.OpModulo)
	case token.STARSTAR:
		p.emitOp(value.OpPower)
	case token.AMPERSAND:
		p.emitOp(value.OpBitAnd)
	case token.PIPE:
		p.emitOp(value.OpBitOr)
	case token.CIRCUMFLEX:
		p.emitOp(value.OpBitXor)
	case token.LTLT:
		p.emitOp(value.OpShiftLeft)
	case token.GTGT:
		p.emitOp(value.OpShiftRight)
	case token.EQEQ:
		p.emitOp(value.OpEqual)
	case token.BANGEQ:
		p.emitOp(value.OpNotEqual)
	case token.LT:
		p.emitOp(value.OpLess)
	case token.LE:
		p.emitOp(value.OpLessEqual)
	case token.GT:
		p.emitOp(value.OpGreater)
	case token.GE:
		p.emitOp(value.OpGreaterEqual)
	}
}

func (p *parser) and_(canAssign bool) {
	endJump := p.emitJump(value.OpJumpIfFalse)
	p.emitOp(value.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func (p *parser) or_(canAssign bool) {
	elseJump := p.emitJump(value.OpJumpIfFalse)
	endJump := p.emitJump(value.OpJump)
	p.patchJump(elseJump)
	p.emitOp(value.OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

// ternary implements `cond ? then : else`, right-associative so nested
// ternaries in the else branch parse naturally. The leading condition has
// already been compiled by the caller; '?' has just been consumed.
func (p *parser) ternary(canAssign bool) {
	thenJump := p.emitJump(value.OpJumpIfFalse)
	p.emitOp(value.OpPop)
	p.parsePrecedence(PrecTernary)
	elseJump := p.emitJump(value.OpJump)

	p.patchJump(thenJump)
	p.emitOp(value.OpPop)
	p.consume(token.COLON, "expect ':' in ternary expression")
	p.parsePrecedence(PrecTernary)

	p.patchJump(elseJump)
}

func (p *parser) variable(canAssign bool) {
	p.namedVariable(p.previous.Raw, canAssign)
}

func (p *parser) namedVariable(name string, canAssign bool) {
	getOp, setOp, operand := p.resolveNameOps(name)
	p.assignOrGet(canAssign, getOp, setOp, operand)
}

func (p *parser) prefixIncDec(canAssign bool) {
	op := p.prevTok
	p.consume(token.IDENT, "expect identifier after '++'/'--'")
	name := p.previous.Raw

	if p.match(token.DOT) {
		p.consume(token.IDENT, "expect property name")
		propName := p.identifierConstant(p.previous.Raw)
		p.namedVariable(name, false)
		p.emitOp(value.OpDup)
		p.emitOpByte(value.OpGetProperty, propName)
		p.emitIncDecOp(op)
		p.emitOpByte(value.OpSetProperty, propName)
		return
	}

	getOp, setOp, operand := p.resolveNameOps(name)
	p.emitOpByte(getOp, operand)
	p.emitIncDecOp(op)
	p.emitOpByte(setOp, operand)
}

func (p *parser) this_(canAssign bool) {
	if p.class == nil {
		p.errorAtPrevious("can't use 'this' outside of a class")
		return
	}
	p.namedVariable("this", false)
}

func (p *parser) super_(canAssign bool) {
	switch {
	case p.class == nil:
		p.errorAtPrevious("can't use 'super' outside of a class")
	case !p.class.hasSuperclass:
		p.errorAtPrevious("can't use 'super' in a class with no superclass")
	}
	p.consume(token.DOT, "expect '.' after 'super'")
	p.consume(token.IDENT, "expect superclass method name")
	name := p.identifierConstant(p.previous.Raw)

	p.namedVariable("this", false)
	if p.match(token.LPAREN) {
		argc := p.argumentList()
		p.namedVariable("super", false)
		p.emitOp(value.OpSuperInvoke)
		p.emitByte(name)
		p.emitByte(argc)
		return
	}
	p.namedVariable("super", false)
	p.emitOpByte(value.OpGetSuper, name)
}

func (p *parser) listLiteral(canAssign bool) {
	n := 0
	if !p.check(token.RBRACK) {
		for {
			p.expression()
			n++
			if n > 255 {
				p.errorAtPrevious("too many list elements")
			}
			if !p.match(token.COMMA) || p.check(token.RBRACK) {
				break
			}
		}
	}
	p.consume(token.RBRACK, "expect ']' after list elements")
	p.emitOpByte(value.OpList, byte(n))
}

func (p *parser) dictLiteral(canAssign bool) {
	n := 0
	if !p.check(token.RBRACE) {
		for {
			p.expression()
			p.consume(token.COLON, "expect ':' after dict key")
			p.expression()
			n++
			if !p.match(token.COMMA) || p.check(token.RBRACE) {
				break
			}
		}
	}
	p.consume(token.RBRACE, "expect '}' after dict entries")
	p.emitOpByte(value.OpDict, byte(n))
}

// --- infix rules ---

func (p *parser) call(canAssign bool) {
	argc := p.argumentList()
	p.emitOpByte(value.OpCall, argc)
}

func (p *parser) argumentList() byte {
	n := 0
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			n++
			if n > 255 {
				p.errorAtPrevious("can't have more than 255 arguments")
			}
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expect ')' after arguments")
	return byte(n)
}

func (p *parser) dot(canAssign bool) {
	p.consume(token.IDENT, "expect property name after '.'")
	name := p.identifierConstant(p.previous.Raw)

	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitOpByte(value.OpSetProperty, name)
	case canAssign && p.matchCompoundAssign():
		op := p.prevTok
		p.emitOp(value.OpDup)
		p.emitOpByte(value.OpGetProperty, name)
		p.expression()
		p.emitCompoundOp(op)
		p.emitOpByte(value.OpSetProperty, name)
	case p.match(token.LPAREN):
		argc := p.argumentList()
		p.emitOp(value.OpInvoke)
		p.emitByte(name)
		p.emitByte(argc)
	default:
		p.emitOpByte(value.OpGetProperty, name)
	}
}

// index parses the '[' infix rule: either a[i] or a slice a[lo:hi], with
// either bound optionally omitted (OP_EMPTY, spec §4.5 "Subscript &
// slicing"). The '[' itself has already been consumed.
func (p *parser) index(canAssign bool) {
	if p.match(token.COLON) {
		p.emitOp(value.OpEmpty)
		p.finishSlice()
		return
	}

	p.expression()
	if p.match(token.COLON) {
		p.finishSlice()
		return
	}
	p.consume(token.RBRACK, "expect ']' after index")

	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitOp(value.OpSetIndex)
	case canAssign && p.matchCompoundAssign():
		op := p.prevTok
		p.emitOp(value.OpDupTwo)
		p.emitOp(value.OpIndex)
		p.expression()
		p.emitCompoundOp(op)
		p.emitOp(value.OpSetIndex)
	default:
		p.emitOp(value.OpIndex)
	}
}

func (p *parser) finishSlice() {
	if p.check(token.RBRACK) {
		p.emitOp(value.OpEmpty)
	} else {
		p.expression()
	}
	p.consume(token.RBRACK, "expect ']' after slice")
	p.emitOp(value.OpSlice)
}
