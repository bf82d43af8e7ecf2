// Package vm implements the stack-based bytecode interpreter that executes
// chunks produced by lang/compiler: a fetch-decode-execute loop over a
// fixed-size value stack and call-frame array, following the architecture
// laid out for Dictu's reference implementation.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dolthub/swiss"

	"github.com/dictu-lang/dictu/lang/compiler"
	"github.com/dictu-lang/dictu/lang/value"
)

// maxFrames and stackMax give the VM's state a fixed upper bound (spec
// §4.5: "value stack (fixed upper bound sufficient for 64 frames x 256
// slots)"). The stack is a plain array embedded in the VM struct rather
// than a growable slice, so the addresses open upvalues take of live stack
// slots are never invalidated by a reallocation.
const (
	maxFrames = 64
	stackMax  = maxFrames * 256
)

// VM is one Dictu interpreter instance: its own stack, globals, heap and
// garbage collector. Nothing is shared across VM instances.
type VM struct {
	// Name is an optional name for the instance, used only in diagnostics.
	Name string

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps bounds the number of bytecode instructions a single Run may
	// execute before it is aborted as runaway; 0 means unlimited.
	MaxSteps uint64

	// Trace, when set, logs the opcode name of every fetched instruction to
	// Stderr, one per line (no offsets or operands), for debugging
	// miscompiled or misbehaving scripts.
	Trace bool

	gc         *value.GC
	globals    *value.Table
	initString *value.ObjString
	replState  *compiler.ReplState

	// per-type native method tables (spec §6 "stringMethods, listMethods,
	// dictMethods"), consulted by OP_GET_PROPERTY/OP_INVOKE whenever the
	// receiver isn't a user-defined instance.
	stringMethods *value.Table
	listMethods   *value.Table
	dictMethods   *value.Table
	numberMethods *value.Table

	modules *swiss.Map[string, value.Value] // import path, as written -> cached module

	stack        [stackMax]value.Value
	stackTop     int
	frames       [maxFrames]CallFrame
	frameCount   int
	openUpvalues *value.ObjUpvalue

	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
	steps     uint64

	nativeErr error // set by RuntimeError when called from inside a native
}

// New returns a ready-to-use VM with a fresh heap and global scope.
func New() *VM {
	vm := &VM{
		gc:      value.NewGC(),
		globals: value.NewTable(),
		modules: swiss.NewMap[string, value.Value](8),
	}
	vm.initString = vm.gc.InternString("init")
	vm.ctx, vm.cancel = context.WithCancel(context.Background())
	registerBuiltins(vm)
	return vm
}

// WithCancel rewires the VM to watch ctx for cancellation, polled between
// instructions (spec §5 says the core VM has no cancellation model; this is
// the ambient CLI-level affordance layered on top, mirroring the teacher's
// Thread.ctx/cancelled pattern for breaking a runaway script from the CLI).
func (vm *VM) WithCancel(ctx context.Context) {
	vm.ctx, vm.cancel = context.WithCancel(ctx)
	go func() {
		<-vm.ctx.Done()
		vm.cancelled.Store(true)
	}()
}

// GC exposes the VM's collector so the compiler can intern identifier and
// string-literal constants into the exact same pool the VM's own runtime
// string operations use -- required for *ObjString pointer-identity
// equality to hold between compile-time and runtime strings.
func (vm *VM) GC() *value.GC { return vm.gc }

func (vm *VM) out() io.Writer {
	if vm.Stdout != nil {
		return vm.Stdout
	}
	return os.Stdout
}

// Compile compiles source into a top-level function against this VM's
// string pool, returning a *CompileError (not a bare error) on failure so
// callers can map it to exit code 65 (spec §6).
func (vm *VM) Compile(source []byte, filename string) (*value.ObjFunction, error) {
	fn, errs := compiler.Compile(source, filename, vm.gc)
	if len(errs) > 0 {
		return nil, &CompileError{Errors: errs}
	}
	return fn, nil
}

// Run executes a compiled top-level function to completion and returns its
// implicit final value, which is always nil since top-level code cannot
// `return`. RunLine also executes each compiled REPL line through Run.
func (vm *VM) Run(fn *value.ObjFunction) (value.Value, error) {
	closure := &value.ObjClosure{Function: fn}
	vm.gc.Track(closure, 32)
	vm.push(closure)
	if err := vm.callClosure(closure, 0); err != nil {
		return nil, err
	}
	return vm.run(vm.frameCount - 1)
}

// RunLine compiles and executes one REPL line against this VM's persistent
// globals table and string pool, printing the value of any bare expression
// statement via OP_POP_REPL (spec §4.5 "REPL").
func (vm *VM) RunLine(source []byte) (value.Value, error) {
	if vm.replState == nil {
		vm.replState = compiler.NewREPLState(vm.gc)
	}
	fn, errs := vm.replState.CompileLine(source)
	if len(errs) > 0 {
		return nil, &CompileError{Errors: errs}
	}
	return vm.Run(fn)
}

// push/pop/peek operate on the fixed stack array; they deliberately do no
// bounds checking beyond what a debug build would (a correctly compiled
// chunk cannot over/underflow them), matching the teacher's own
// performance-over-paranoia stance in its hot interpreter loop.
func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// maybeCollect runs a collection if the heap warrants one (or StressMode
// forces it on every check), gated once per instruction at the top of run's
// loop -- never mid-instruction, so every opcode's operands are still on
// the stack (not yet popped) and therefore still reachable from markRoots
// at the moment a collection can happen.
func (vm *VM) maybeCollect() {
	if vm.gc.ShouldCollect() {
		vm.gc.Collect(vm.markRoots)
	}
}

// markRoots marks every GC root per spec §4.3: the live stack, every active
// frame's closure, the open-upvalue chain, the globals table, the builtin
// method tables, cached import modules and initString. The compiler chain
// is deliberately not a root here: Compile only ever calls gc.InternString,
// which tracks unconditionally and never calls ShouldCollect/Collect, so no
// collection can happen while a *ObjFunction is reachable solely through an
// in-progress compile.
func (vm *VM) markRoots(gc *value.GC) {
	for i := 0; i < vm.stackTop; i++ {
		gc.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		gc.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		gc.MarkObject(uv)
	}
	for _, t := range [...]*value.Table{vm.globals, vm.stringMethods, vm.listMethods, vm.dictMethods, vm.numberMethods} {
		if t != nil {
			t.Each(func(key *value.ObjString, v value.Value) {
				gc.MarkObject(key)
				gc.MarkValue(v)
			})
		}
	}
	vm.modules.Iter(func(_ string, v value.Value) bool {
		gc.MarkValue(v)
		return false
	})
	if vm.initString != nil {
		gc.MarkObject(vm.initString)
	}
}

// RuntimeError implements value.NativeContext: a native calls this to
// signal failure instead of returning a Go error, then returns (Empty,
// false) so callValue knows to propagate it (spec §6 "Native
// registration").
func (vm *VM) RuntimeError(format string, args ...any) {
	vm.nativeErr = vm.newRuntimeError(fmt.Sprintf(format, args...))
}

func (vm *VM) newRuntimeError(msg string) *RuntimeError {
	trace := make([]frameTrace, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		name := "<script>"
		if fr.closure.Function.Name != nil {
			name = fr.closure.Function.Name.Chars
		}
		line := fr.closure.Function.Chunk.LineAt(fr.ip - 1)
		trace = append(trace, frameTrace{function: name, line: line})
	}
	return &RuntimeError{Message: msg, Trace: trace}
}

func (vm *VM) runtimeErrorf(format string, args ...any) error {
	return vm.newRuntimeError(fmt.Sprintf(format, args...))
}

func (vm *VM) readByte(frame *CallFrame) byte {
	b := frame.closure.Function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *CallFrame) int {
	code := frame.closure.Function.Chunk.Code
	hi, lo := code[frame.ip], code[frame.ip+1]
	frame.ip += 2
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConstant(frame *CallFrame) value.Value {
	return frame.closure.Function.Chunk.Constants[vm.readByte(frame)]
}

func (vm *VM) readString(frame *CallFrame) *value.ObjString {
	return vm.readConstant(frame).(*value.ObjString)
}

// run drives the fetch-decode-execute loop until the call frame at depth
// until returns -- normally 0 (the whole program), but a higher value when
// run is invoked reentrantly to execute an imported module's top level
// without unwinding the importing script's own frames. Following the
// teacher's own machine.run's labeled-loop, accumulate-then-break-on-error
// shape.
func (vm *VM) run(until int) (value.Value, error) {
	var (
		result value.Value
		runErr error
	)

loop:
	for {
		if vm.cancelled.Load() {
			runErr = vm.runtimeErrorf("execution cancelled: %v", context.Cause(vm.ctx))
			break loop
		}
		vm.steps++
		if vm.MaxSteps > 0 && vm.steps > vm.MaxSteps {
			runErr = vm.runtimeErrorf("step limit exceeded")
			break loop
		}

		vm.maybeCollect()

		frame := &vm.frames[vm.frameCount-1]
		op := value.OpCode(vm.readByte(frame))

		if vm.Trace {
			fmt.Fprintf(vm.stderr(), "%s\n", op)
		}

		switch op {
		case value.OpConstant:
			vm.push(vm.readConstant(frame))
		case value.OpNil:
			vm.push(value.NilValue)
		case value.OpTrue:
			vm.push(value.Bool(true))
		case value.OpFalse:
			vm.push(value.Bool(false))
		case value.OpPop:
			vm.pop()
		case value.OpPopRepl:
			fmt.Fprintln(vm.out(), vm.peek(0).String())
			vm.pop()
		case value.OpDup:
			vm.push(vm.peek(0))
		case value.OpDupTwo:
			a, b := vm.peek(1), vm.peek(0)
			vm.push(a)
			vm.push(b)

		case value.OpGetLocal:
			vm.push(vm.stack[frame.slotsBase+int(vm.readByte(frame))])
		case value.OpSetLocal:
			vm.stack[frame.slotsBase+int(vm.readByte(frame))] = vm.peek(0)
		case value.OpGetUpvalue:
			vm.push(frame.closure.Upvalues[vm.readByte(frame)].Get())
		case value.OpSetUpvalue:
			frame.closure.Upvalues[vm.readByte(frame)].Set(vm.peek(0))
		case value.OpGetGlobal:
			name := vm.readString(frame)
			v, ok := vm.globals.Get(name)
			if !ok {
				runErr = vm.runtimeErrorf("undefined variable '%s'", name.Chars)
				break loop
			}
			vm.push(v)
		case value.OpDefineGlobal:
			name := vm.readString(frame)
			vm.globals.Set(name, vm.pop())
		case value.OpSetGlobal:
			name := vm.readString(frame)
			if _, ok := vm.globals.Get(name); !ok {
				runErr = vm.runtimeErrorf("undefined variable '%s'", name.Chars)
				break loop
			}
			vm.globals.Set(name, vm.peek(0))

		case value.OpGetProperty:
			inst, ok := vm.peek(0).(*value.ObjInstance)
			if !ok {
				receiver := vm.peek(0)
				name := vm.readString(frame)
				fn, ok := vm.builtinMethod(receiver, name)
				if !ok {
					runErr = vm.runtimeErrorf("'%s' has no property '%s'", receiver.Type(), name.Chars)
					break loop
				}
				vm.pop()
				vm.push(vm.boundNative(receiver, name.Chars, fn))
				break
			}
			name := vm.readString(frame)
			if v, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			m, ok := inst.Class.Method(name)
			if !ok {
				runErr = vm.runtimeErrorf("undefined property '%s'", name.Chars)
				break loop
			}
			receiver := vm.pop()
			vm.push(vm.bindMethod(receiver, m.(*value.ObjClosure)))
		case value.OpSetProperty:
			v := vm.pop()
			instVal := vm.pop()
			inst, ok := instVal.(*value.ObjInstance)
			if !ok {
				runErr = vm.runtimeErrorf("only instances have fields")
				break loop
			}
			name := vm.readString(frame)
			inst.Fields.Set(name, v)
			vm.push(v)
		case value.OpGetSuper:
			name := vm.readString(frame)
			superclass := vm.pop().(*value.ObjClass)
			this := vm.pop()
			m, ok := superclass.Method(name)
			if !ok {
				runErr = vm.runtimeErrorf("undefined property '%s'", name.Chars)
				break loop
			}
			vm.push(vm.bindMethod(this, m.(*value.ObjClosure)))
		case value.OpInvoke:
			name := vm.readString(frame)
			argc := int(vm.readByte(frame))
			if err := vm.invoke(name, argc); err != nil {
				runErr = err
				break loop
			}
		case value.OpSuperInvoke:
			name := vm.readString(frame)
			argc := int(vm.readByte(frame))
			superclass := vm.pop().(*value.ObjClass)
			if err := vm.invokeFromClass(superclass, name, argc); err != nil {
				runErr = err
				break loop
			}

		case value.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equals(a, b)))
		case value.OpNotEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(!value.Equals(a, b)))
		case value.OpGreater, value.OpGreaterEqual, value.OpLess, value.OpLessEqual:
			b, a := vm.pop(), vm.pop()
			r, err := vm.compare(op, a, b)
			if err != nil {
				runErr = err
				break loop
			}
			vm.push(r)

		case value.OpAdd, value.OpSubtract, value.OpMultiply, value.OpDivide, value.OpModulo,
			value.OpPower, value.OpBitAnd, value.OpBitOr, value.OpBitXor, value.OpShiftLeft, value.OpShiftRight:
			b, a := vm.pop(), vm.pop()
			r, err := vm.binary(op, a, b)
			if err != nil {
				runErr = err
				break loop
			}
			vm.push(r)
		case value.OpNot:
			vm.push(value.Bool(!value.Truth(vm.pop())))
		case value.OpNegate:
			n, ok := vm.pop().(value.Number)
			if !ok {
				runErr = vm.runtimeErrorf("operand must be a number")
				break loop
			}
			vm.push(-n)
		case value.OpBitNot:
			n, ok := vm.pop().(value.Number)
			if !ok {
				runErr = vm.runtimeErrorf("operand must be a number")
				break loop
			}
			vm.push(value.Number(^int64(n)))
		case value.OpIncrement:
			n, ok := vm.pop().(value.Number)
			if !ok {
				runErr = vm.runtimeErrorf("operand must be a number")
				break loop
			}
			vm.push(n + 1)
		case value.OpDecrement:
			n, ok := vm.pop().(value.Number)
			if !ok {
				runErr = vm.runtimeErrorf("operand must be a number")
				break loop
			}
			vm.push(n - 1)

		case value.OpJump:
			offset := vm.readShort(frame)
			frame.ip += offset
		case value.OpJumpIfFalse:
			offset := vm.readShort(frame)
			if !value.Truth(vm.peek(0)) {
				frame.ip += offset
			}
		case value.OpLoop:
			offset := vm.readShort(frame)
			frame.ip -= offset
		case value.OpBreak:
			runErr = vm.runtimeErrorf("internal error: unpatched OP_BREAK")
			break loop

		case value.OpCall:
			argc := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				runErr = err
				break loop
			}
		case value.OpClosure:
			fn := vm.readConstant(frame).(*value.ObjFunction)
			closure := &value.ObjClosure{Function: fn, Upvalues: make([]*value.ObjUpvalue, fn.UpvalueCount)}
			vm.gc.Track(closure, 32)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame)
				idx := int(vm.readByte(frame))
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slotsBase + idx)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[idx]
				}
			}
			vm.push(closure)
		case value.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()
		case value.OpReturn:
			result = vm.pop()
			vm.closeUpvalues(frame.slotsBase)
			vm.frameCount--
			if vm.frameCount == until {
				vm.stackTop = frame.slotsBase
				break loop
			}
			vm.stackTop = frame.slotsBase
			vm.push(result)

		case value.OpClass:
			name := vm.readString(frame)
			class := value.NewClass(name)
			vm.gc.Track(class, 64)
			vm.push(class)
		case value.OpSubclass:
			name := vm.readString(frame)
			superVal := vm.pop()
			super, ok := superVal.(*value.ObjClass)
			if !ok {
				runErr = vm.runtimeErrorf("superclass must be a class")
				break loop
			}
			class := value.NewClass(name)
			class.Methods.AddAll(super.Methods)
			class.Superclass = super
			vm.gc.Track(class, 64)
			vm.push(class)
		case value.OpTrait:
			name := vm.readString(frame)
			trait := value.NewTrait(name)
			vm.gc.Track(trait, 64)
			vm.push(trait)
		case value.OpMethod:
			name := vm.readString(frame)
			closure := vm.pop().(*value.ObjClosure)
			class := vm.peek(0).(*value.ObjClass)
			class.Methods.Set(name, closure)
		case value.OpTraitMethod:
			name := vm.readString(frame)
			closure := vm.pop().(*value.ObjClosure)
			trait := vm.peek(0).(*value.ObjTrait)
			trait.Methods.Set(name, closure)
		case value.OpUse:
			trait := vm.pop().(*value.ObjTrait)
			class := vm.peek(0).(*value.ObjClass)
			class.Methods.AddAll(trait.Methods)

		case value.OpDefineOptional:
			slot := int(vm.readByte(frame))
			skip := vm.readShort(frame)
			if _, isNil := vm.stack[frame.slotsBase+slot].(value.Nil); !isNil {
				frame.ip += skip
			}

		case value.OpList:
			n := int(vm.readByte(frame))
			elems := make([]value.Value, n)
			copy(elems, vm.stack[vm.stackTop-n:vm.stackTop])
			vm.stackTop -= n
			list := value.NewList(elems)
			vm.gc.Track(list, uint64(16*n))
			vm.push(list)
		case value.OpDict:
			n := int(vm.readByte(frame))
			dict := value.NewDict()
			base := vm.stackTop - 2*n
			for i := 0; i < n; i++ {
				dict.Set(vm.stack[base+2*i], vm.stack[base+2*i+1])
			}
			vm.stackTop = base
			vm.gc.Track(dict, uint64(32*n))
			vm.push(dict)
		case value.OpIndex:
			idx := vm.pop()
			coll := vm.pop()
			v, err := vm.index(coll, idx)
			if err != nil {
				runErr = err
				break loop
			}
			vm.push(v)
		case value.OpSetIndex:
			v := vm.pop()
			idx := vm.pop()
			coll := vm.pop()
			if err := vm.setIndex(coll, idx, v); err != nil {
				runErr = err
				break loop
			}
			vm.push(v)
		case value.OpSlice:
			hi := vm.pop()
			lo := vm.pop()
			coll := vm.pop()
			v, err := vm.slice(coll, lo, hi)
			if err != nil {
				runErr = err
				break loop
			}
			vm.push(v)
		case value.OpEmpty:
			vm.push(value.Empty)

		case value.OpImport:
			path := vm.readString(frame)
			mod, err := vm.importModule(path.Chars)
			if err != nil {
				runErr = err
				break loop
			}
			vm.push(mod)
		case value.OpOpenFile:
			mode := vm.pop().(*value.ObjString)
			path := vm.pop().(*value.ObjString)
			f, err := vm.openFile(path.Chars, mode.Chars)
			if err != nil {
				runErr = err
				break loop
			}
			vm.push(f)
		case value.OpCloseFile:
			slot := int(vm.readByte(frame))
			if f, ok := vm.stack[frame.slotsBase+slot].(*value.ObjFile); ok {
				_ = f.Close()
			}

		default:
			runErr = vm.runtimeErrorf("unknown opcode %s", op)
			break loop
		}
	}

	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

func (vm *VM) stderr() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}
