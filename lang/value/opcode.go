package value

// OpCode identifies a single bytecode instruction. Most opcodes that take an
// operand read one byte immediately following the opcode (an index into the
// constant pool, a local/upvalue slot, or an argument count); OpInvoke and
// OpSuperInvoke read two (name index, argument count), OpDefineOptional
// reads three, and OpClosure is followed by one (isLocal, index) pair per
// upvalue. Jump offsets are two bytes, big-endian, relative to the
// instruction that follows, patched after the jumped-over code has been
// emitted.
type OpCode uint8

//nolint:revive
const (
	OpConstant  OpCode = iota // Ob<constant idx>           push constants[idx]
	OpNil                     // -                          push nil
	OpTrue                    // -                          push true
	OpFalse                   // -                          push false
	OpPop                     // v ->                       discard top
	OpPopRepl                 // v ->                       print v.String(), then discard (REPL mode)
	OpDup                     // v -> v v                   duplicate top
	OpDupTwo                  // a b -> a b a b             duplicate top two (subscript compound assignment)

	OpGetLocal       // <slot>                      push locals[slot]
	OpSetLocal       // v <slot>                     locals[slot] = v (leaves v on stack)
	OpGetUpvalue     // <idx>                       push *upvalues[idx]
	OpSetUpvalue     // v <idx>                      *upvalues[idx] = v (leaves v on stack)
	OpGetGlobal      // <name const idx>            push globals[name]
	OpDefineGlobal   // v <name const idx>           globals[name] = v; pop
	OpSetGlobal      // v <name const idx>           globals[name] = v (leaves v on stack)

	OpGetProperty  // instance <name const idx>        push instance.name
	OpSetProperty  // instance v <name const idx>      instance.name = v (leaves v on stack)
	OpGetSuper     // <name const idx>                 push bound super method
	OpInvoke       // receiver args... <name,argc>     call receiver.name(args)
	OpSuperInvoke  // receiver args... superclass <name,argc>  call superclass method bypassing binding

	OpEqual
	OpNotEqual
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpPower
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShiftLeft
	OpShiftRight
	OpNot
	OpNegate
	OpBitNot
	OpIncrement
	OpDecrement

	OpJump        // <offset>          pc += offset
	OpJumpIfFalse // v <offset>        if !truthy(v): pc += offset (v stays on stack)
	OpLoop        // <offset>          pc -= offset (backward)
	OpBreak       // <offset>          placeholder, rewritten to OpJump at loop end

	OpCall       // callee args... <argc>      call
	OpClosure    // <func idx> (isLocal,index)...  build closure over constants[idx]
	OpCloseUpvalue // v ->                     close the upvalue aliasing the top stack slot, pop
	OpReturn     // v ->                       return v to caller

	OpClass        // <name const idx>                  push new empty class
	OpSubclass     // superclass <name const idx>        push new class inheriting superclass's methods
	OpTrait        // <name const idx>                  push new empty trait
	OpMethod       // class closure <name const idx>     class.methods[name] = closure; pop closure
	OpTraitMethod  // trait closure <name const idx>     trait.methods[name] = closure; pop closure
	OpUse          // class trait ->                     copy trait's methods into class; pop trait
	OpInherit      // -> handled via OpSubclass, kept for symmetry with spec naming

	OpDefineOptional // <slot><skip offset>               if locals[slot]==nil, fall through and run the default-value code that follows; else pc += skip offset

	OpList   // elems... <n>                 build list of n elements
	OpDict   // (k v)... <n>                 build dict of n pairs
	OpIndex  // coll idx ->                  push coll[idx]
	OpSetIndex // coll idx v ->              coll[idx] = v (leaves v on stack)
	OpSlice  // coll lo hi ->                push coll[lo:hi]
	OpEmpty  // -                            push the "from start"/"to end" slice sentinel

	OpImport    // <path const idx>          import and push module
	OpOpenFile  // path mode ->              push opened file (binds to the `file` local)
	OpCloseFile // <local slot>              close the file in the given local slot; no stack effect

	opCodeCount
)

// operandSize gives, for a subset of opcodes, the number of operand bytes that
// follow the opcode byte. Opcodes not listed here take no operand.
var operandSize = map[OpCode]int{
	OpConstant:      1,
	OpGetLocal:      1,
	OpSetLocal:      1,
	OpGetUpvalue:    1,
	OpSetUpvalue:    1,
	OpGetGlobal:     1,
	OpDefineGlobal:  1,
	OpSetGlobal:     1,
	OpGetProperty:   1,
	OpSetProperty:   1,
	OpGetSuper:      1,
	OpInvoke:        2, // name idx, argc
	OpSuperInvoke:   2,
	OpJump:          2,
	OpJumpIfFalse:   2,
	OpLoop:          2,
	OpBreak:         2,
	OpCall:          1,
	OpClosure:       1, // followed by NumUpvalues*(isLocal,index) pairs, handled specially
	OpClass:         1,
	OpSubclass:      1,
	OpTrait:         1,
	OpMethod:        1,
	OpTraitMethod:   1,
	OpDefineOptional: 3, // local slot (1 byte) + skip jump offset (2 bytes)
	OpList:          1,
	OpDict:          1,
	OpImport:        1,
	OpCloseFile:     1,
}

var opcodeNames = [...]string{
	OpConstant: "OP_CONSTANT", OpNil: "OP_NIL", OpTrue: "OP_TRUE", OpFalse: "OP_FALSE",
	OpPop: "OP_POP", OpPopRepl: "OP_POP_REPL", OpDup: "OP_DUP", OpDupTwo: "OP_DUP_TWO",
	OpGetLocal: "OP_GET_LOCAL", OpSetLocal: "OP_SET_LOCAL",
	OpGetUpvalue: "OP_GET_UPVALUE", OpSetUpvalue: "OP_SET_UPVALUE",
	OpGetGlobal: "OP_GET_GLOBAL", OpDefineGlobal: "OP_DEFINE_GLOBAL", OpSetGlobal: "OP_SET_GLOBAL",
	OpGetProperty: "OP_GET_PROPERTY", OpSetProperty: "OP_SET_PROPERTY",
	OpGetSuper: "OP_GET_SUPER", OpInvoke: "OP_INVOKE", OpSuperInvoke: "OP_SUPER_INVOKE",
	OpEqual: "OP_EQUAL", OpNotEqual: "OP_NOT_EQUAL", OpGreater: "OP_GREATER", OpGreaterEqual: "OP_GREATER_EQUAL",
	OpLess: "OP_LESS", OpLessEqual: "OP_LESS_EQUAL",
	OpAdd: "OP_ADD", OpSubtract: "OP_SUBTRACT", OpMultiply: "OP_MULTIPLY", OpDivide: "OP_DIVIDE",
	OpModulo: "OP_MODULO", OpPower: "OP_POWER", OpBitAnd: "OP_BIT_AND", OpBitOr: "OP_BIT_OR",
	OpBitXor: "OP_BIT_XOR", OpShiftLeft: "OP_SHIFT_LEFT", OpShiftRight: "OP_SHIFT_RIGHT",
	OpNot: "OP_NOT", OpNegate: "OP_NEGATE", OpBitNot: "OP_BIT_NOT",
	OpIncrement: "OP_INCREMENT", OpDecrement: "OP_DECREMENT",
	OpJump: "OP_JUMP", OpJumpIfFalse: "OP_JUMP_IF_FALSE", OpLoop: "OP_LOOP", OpBreak: "OP_BREAK",
	OpCall: "OP_CALL", OpClosure: "OP_CLOSURE", OpCloseUpvalue: "OP_CLOSE_UPVALUE", OpReturn: "OP_RETURN",
	OpClass: "OP_CLASS", OpSubclass: "OP_SUBCLASS", OpTrait: "OP_TRAIT",
	OpMethod: "OP_METHOD", OpTraitMethod: "OP_TRAIT_METHOD", OpUse: "OP_USE", OpInherit: "OP_INHERIT",
	OpDefineOptional: "OP_DEFINE_OPTIONAL",
	OpList: "OP_LIST", OpDict: "OP_DICT", OpIndex: "OP_INDEX", OpSetIndex: "OP_SET_INDEX",
	OpSlice: "OP_SLICE", OpEmpty: "OP_EMPTY",
	OpImport: "OP_IMPORT", OpOpenFile: "OP_OPEN_FILE", OpCloseFile: "OP_CLOSE_FILE",
}

func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "OP_UNKNOWN"
}
