package vm

import "github.com/dictu-lang/dictu/lang/value"

// callValue dispatches a call to whatever callee turns out to be: a
// closure, a bound method (which rewrites its own receiver into the call
// slot first), a class (constructing an instance and invoking init if
// present), or a native function.
func (vm *VM) callValue(callee value.Value, argCount int) error {
	switch c := callee.(type) {
	case *value.ObjClosure:
		return vm.callClosure(c, argCount)
	case *value.ObjBoundMethod:
		vm.stack[vm.stackTop-argCount-1] = c.Receiver
		return vm.callClosure(c.Method, argCount)
	case *value.ObjClass:
		inst := value.NewInstance(c)
		vm.gc.Track(inst, 48)
		vm.stack[vm.stackTop-argCount-1] = inst
		if initializer, ok := c.Method(vm.initString); ok {
			return vm.callClosure(initializer.(*value.ObjClosure), argCount)
		}
		if argCount != 0 {
			return vm.runtimeErrorf("expected 0 arguments but got %d", argCount)
		}
		return nil
	case *value.ObjNative:
		args := make([]value.Value, argCount)
		copy(args, vm.stack[vm.stackTop-argCount:vm.stackTop])
		vm.nativeErr = nil
		result, ok := c.Fn(vm, args)
		vm.stackTop -= argCount + 1
		if !ok {
			if vm.nativeErr != nil {
				err := vm.nativeErr
				vm.nativeErr = nil
				return err
			}
			return vm.runtimeErrorf("native call to '%s' failed", c.Name)
		}
		vm.push(result)
		return nil
	default:
		return vm.runtimeErrorf("'%s' is not callable", callee.Type())
	}
}

// callClosure pushes a new call frame for closure, checking arity and
// padding any omitted optional parameters with nil so OP_DEFINE_OPTIONAL's
// "was this supplied" check in the callee's prologue works correctly (spec
// §4.5 "Optional defaults").
func (vm *VM) callClosure(closure *value.ObjClosure, argCount int) error {
	fn := closure.Function
	if argCount < fn.Arity || argCount > fn.TotalArity() {
		if fn.ArityOptional > 0 {
			return vm.runtimeErrorf("expected between %d and %d arguments but got %d", fn.Arity, fn.TotalArity(), argCount)
		}
		return vm.runtimeErrorf("expected %d arguments but got %d", fn.Arity, argCount)
	}
	if vm.frameCount == maxFrames {
		return vm.runtimeErrorf("stack overflow")
	}

	for argCount < fn.TotalArity() {
		vm.push(value.NilValue)
		argCount++
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.slotsBase = vm.stackTop - argCount - 1
	return nil
}

// invoke resolves and calls a method on the value sitting argCount+1 below
// the stack top directly, skipping the intermediate ObjBoundMethod
// allocation OP_GET_PROPERTY followed by OP_CALL would otherwise require.
func (vm *VM) invoke(name *value.ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	inst, ok := receiver.(*value.ObjInstance)
	if !ok {
		fn, ok := vm.builtinMethod(receiver, name)
		if !ok {
			return vm.runtimeErrorf("'%s' has no method '%s'", receiver.Type(), name.Chars)
		}
		args := make([]value.Value, argCount+1)
		args[0] = receiver
		copy(args[1:], vm.stack[vm.stackTop-argCount:vm.stackTop])
		vm.nativeErr = nil
		result, ok := fn(vm, args)
		vm.stackTop -= argCount + 1
		if !ok {
			if vm.nativeErr != nil {
				err := vm.nativeErr
				vm.nativeErr = nil
				return err
			}
			return vm.runtimeErrorf("call to '%s' failed", name.Chars)
		}
		vm.push(result)
		return nil
	}
	if field, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *value.ObjClass, name *value.ObjString, argCount int) error {
	m, ok := class.Method(name)
	if !ok {
		return vm.runtimeErrorf("undefined property '%s'", name.Chars)
	}
	return vm.callClosure(m.(*value.ObjClosure), argCount)
}

// bindMethod wraps method with receiver into an ObjBoundMethod, tracked by
// the collector like any other heap allocation.
func (vm *VM) bindMethod(receiver value.Value, method *value.ObjClosure) *value.ObjBoundMethod {
	bound := &value.ObjBoundMethod{Receiver: receiver, Method: method}
	vm.gc.Track(bound, 24)
	return bound
}
