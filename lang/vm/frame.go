package vm

import "github.com/dictu-lang/dictu/lang/value"

// CallFrame records one active call to a closure: its instruction pointer
// into the closure's chunk, and the base index into the VM's value stack
// where its locals begin (slot 0 is the closure itself, or the receiver
// for a bound method, per the calling convention used throughout this
// package).
type CallFrame struct {
	closure   *value.ObjClosure
	ip        int
	slotsBase int
}
