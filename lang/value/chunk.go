package value

import "fmt"

// maxConstants is the largest number of constants a Chunk may hold: opcodes
// that reference the constant pool (OP_CONSTANT and friends) carry a
// single-byte operand.
const maxConstants = 256

// Chunk holds the compiled bytecode for one function: a packed byte
// sequence, a parallel line table (one entry per byte, per spec §4.1 --
// a flat array is acceptable at Dictu's scale), and the function's
// constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// Write appends a single byte to the chunk's code, recording the source
// line it came from.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(op OpCode, line int) int {
	c.Write(byte(op), line)
	return len(c.Code) - 1
}

// AddConstant appends v to the constant pool and returns its index. It
// panics if the chunk already holds the maximum of 256 constants; the
// compiler is expected to check Chunk.ConstantCount itself and report a
// compile error instead of triggering this panic.
func (c *Chunk) AddConstant(v Value) int {
	if len(c.Constants) >= maxConstants {
		panic("chunk: constant pool overflow (more than 256 constants)")
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// ConstantCount reports how many constants the chunk currently holds, for
// the compiler to check against the 256 limit before emitting another one.
func (c *Chunk) ConstantCount() int { return len(c.Constants) }

// LineAt returns the source line recorded for the instruction at the given
// byte offset, used to build runtime error stack traces.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return -1
	}
	return c.Lines[offset]
}

// Disassemble writes a human-readable dump of the chunk to the returned
// string, one instruction per line, in the disassembler style the original
// clox-derived tooling and kristofer-smog's debugger.go both use.
func (c *Chunk) Disassemble(name string) string {
	out := fmt.Sprintf("== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		var line string
		line, offset = c.disassembleInstruction(offset)
		out += line
	}
	return out
}

func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	op := OpCode(c.Code[offset])
	linePrefix := fmt.Sprintf("%04d %4d ", offset, c.LineAt(offset))

	switch op {
	case OpClosure:
		constIdx := c.Code[offset+1]
		line := fmt.Sprintf("%s%-18s %4d '%s'\n", linePrefix, op, constIdx, c.Constants[constIdx])
		next := offset + 2
		if fn, ok := c.Constants[constIdx].(*ObjFunction); ok {
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal, idx := c.Code[next], c.Code[next+1]
				kind := "upvalue"
				if isLocal != 0 {
					kind = "local"
				}
				line += fmt.Sprintf("%04d      |                     %s %d\n", next, kind, idx)
				next += 2
			}
		}
		return line, next
	case OpInvoke, OpSuperInvoke:
		nameIdx, argc := c.Code[offset+1], c.Code[offset+2]
		return fmt.Sprintf("%s%-18s (%d args) %4d '%s'\n", linePrefix, op, argc, nameIdx, c.Constants[nameIdx]), offset + 3
	case OpDefineOptional:
		slot := c.Code[offset+1]
		target := int(c.Code[offset+2])<<8 | int(c.Code[offset+3])
		return fmt.Sprintf("%s%-18s slot %d -> %d\n", linePrefix, op, slot, target), offset + 4
	}

	n, hasOperand := operandSize[op]
	if !hasOperand {
		return fmt.Sprintf("%s%s\n", linePrefix, op), offset + 1
	}

	switch n {
	case 1:
		arg := c.Code[offset+1]
		extra := ""
		if int(arg) < len(c.Constants) && usesConstantPool(op) {
			extra = fmt.Sprintf(" '%s'", c.Constants[arg])
		}
		return fmt.Sprintf("%s%-18s %4d%s\n", linePrefix, op, arg, extra), offset + 2
	case 2:
		addr := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
		return fmt.Sprintf("%s%-18s %4d\n", linePrefix, op, addr), offset + 3
	default:
		return fmt.Sprintf("%s%s\n", linePrefix, op), offset + 1 + n
	}
}

func usesConstantPool(op OpCode) bool {
	switch op {
	case OpConstant, OpGetGlobal, OpDefineGlobal, OpSetGlobal, OpGetProperty, OpSetProperty,
		OpGetSuper, OpClass, OpSubclass, OpTrait, OpMethod, OpTraitMethod, OpImport, OpClosure:
		return true
	}
	return false
}
