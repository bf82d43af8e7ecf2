package vm

import "github.com/dictu-lang/dictu/lang/value"

// captureUpvalue returns an open upvalue aliasing the given stack slot,
// reusing an existing one if some other closure already captured the same
// slot (so multiple closures over the same local share one upvalue, and
// assigning through either sees the same effect). The VM's open-upvalue
// list is kept sorted by descending slot index.
func (vm *VM) captureUpvalue(slot int) *value.ObjUpvalue {
	var prev *value.ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && cur.Slot() > slot {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Slot() == slot {
		return cur
	}

	created := value.NewOpenUpvalue(slot, &vm.stack[slot])
	vm.gc.Track(created, 24)
	created.Next = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue aliasing a stack slot at or
// above lastSlot, copying each one's value into itself so it survives the
// frame that owned the slot returning.
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot() >= lastSlot {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.Next
	}
}
