package value

// GC is Dictu's mark-and-sweep collector (spec §4.3). It owns every heap
// object ever allocated, threaded through Obj.next into one intrusive
// singly-linked list, plus the weak interned-string table: a string that
// survives a sweep only because something else still references it, never
// because the intern table itself held it alive.
//
// The collector does not walk the Go call stack; it is driven by a
// mark-roots callback supplied by whoever embeds it (the VM), so this
// package stays ignorant of frames, the value stack, globals and the
// compiler chain -- all of that is root-marking policy, not collector
// mechanism.
type GC struct {
	BytesAllocated uint64
	NextGC         uint64
	StressMode     bool // DEBUG_STRESS_GC: ShouldCollect always reports true, so the VM collects before every instruction; allocations themselves never trigger a collection

	objects  Object // head of the intrusive list of every live allocation
	gray     []Object
	Interned *Table // weak: entries are dropped, not marked, during Sweep
}

const gcHeapGrowFactor = 2
const gcInitialThreshold = 1 << 20 // 1MiB, mirrors clox's GC_HEAP_GROW_FACTOR starting point

// NewGC returns a ready-to-use collector with an empty weak intern table.
func NewGC() *GC {
	return &GC{
		NextGC:   gcInitialThreshold,
		Interned: NewTable(),
	}
}

// Track registers a freshly allocated object with the collector and returns
// it unchanged, so allocation sites can write `return gc.Track(&ObjFoo{...})`.
func (g *GC) Track(o Object, size uint64) Object {
	hdr := o.object()
	hdr.next = g.objects
	g.objects = o
	g.BytesAllocated += size
	return o
}

// ShouldCollect reports whether a collection is due: always in stress mode,
// otherwise once BytesAllocated exceeds NextGC. The VM calls it once per
// executed instruction, not from the allocation sites.
func (g *GC) ShouldCollect() bool {
	return g.StressMode || g.BytesAllocated > g.NextGC
}

// MarkValue marks v if it is a heap object; Nil, Bool and Number are
// inline and carry no further references.
func (g *GC) MarkValue(v Value) {
	if o, ok := v.(Object); ok {
		g.MarkObject(o)
	}
}

// MarkObject marks o gray (adds it to the worklist) unless it is already
// marked, in which case it (and whatever it reaches) has already been
// accounted for.
func (g *GC) MarkObject(o Object) {
	if o == nil {
		return
	}
	hdr := o.object()
	if hdr.marked {
		return
	}
	hdr.marked = true
	g.gray = append(g.gray, o)
}

// Collect runs one full mark-sweep cycle. markRoots is called first and is
// expected to call MarkValue/MarkObject for every root: the VM's value
// stack, every call frame's closure, the open-upvalue list, the globals
// table, the module cache, and initString. The compiler chain is not a
// root; the VM never collects while a compile is in progress.
func (g *GC) Collect(markRoots func(*GC)) {
	markRoots(g)
	g.traceReferences()
	g.sweepInterned()
	g.sweep()
	g.NextGC = g.BytesAllocated * gcHeapGrowFactor
}

// traceReferences drains the gray worklist, blackening each object in turn.
// It is iterative, not recursive, so a long chain (e.g. a deep list or a
// linked structure built out of instances) can't blow the Go stack.
func (g *GC) traceReferences() {
	for len(g.gray) > 0 {
		n := len(g.gray) - 1
		o := g.gray[n]
		g.gray = g.gray[:n]
		g.blacken(o)
	}
}

// blacken marks every object directly referenced by o. o itself is already
// marked by the time this runs.
func (g *GC) blacken(o Object) {
	switch obj := o.(type) {
	case *ObjString, *ObjNative:
		// leaves: no outgoing references
	case *ObjFunction:
		if obj.Name != nil {
			g.MarkObject(obj.Name)
		}
		for _, c := range obj.Chunk.Constants {
			g.MarkValue(c)
		}
	case *ObjClosure:
		g.MarkObject(obj.Function)
		for _, uv := range obj.Upvalues {
			g.MarkObject(uv)
		}
	case *ObjUpvalue:
		if !obj.IsOpen() {
			g.MarkValue(obj.Closed)
		}
	case *ObjClass:
		g.MarkObject(obj.Name)
		g.markTable(obj.Methods)
		if obj.Superclass != nil {
			g.MarkObject(obj.Superclass)
		}
	case *ObjTrait:
		g.MarkObject(obj.Name)
		g.markTable(obj.Methods)
	case *ObjInstance:
		g.MarkObject(obj.Class)
		g.markTable(obj.Fields)
	case *ObjBoundMethod:
		g.MarkValue(obj.Receiver)
		g.MarkObject(obj.Method)
	case *ObjList:
		for _, e := range obj.Elements {
			g.MarkValue(e)
		}
	case *ObjDict:
		obj.Each(func(k, v Value) {
			g.MarkValue(k)
			g.MarkValue(v)
		})
	case *ObjFile:
		// no heap-object fields
	}
}

func (g *GC) markTable(t *Table) {
	t.Each(func(key *ObjString, v Value) {
		g.MarkObject(key)
		g.MarkValue(v)
	})
}

// InternString returns the canonical *ObjString for s, allocating and
// registering one if this is the first time s has been seen. Every string
// the compiler or VM ever produces -- identifier name constants, string
// literals, concatenation results -- must go through this single pool:
// Equals compares *ObjString by pointer, so two strings with the same
// bytes are only "==" in Dictu if they are the same Go pointer.
func (g *GC) InternString(s string) *ObjString {
	hash := hashString(s)
	if existing := g.Interned.FindString(s, hash); existing != nil {
		return existing
	}
	str := &ObjString{Chars: s, hash: hash}
	g.Interned.Set(str, str)
	g.Track(str, uint64(len(s))+16)
	return str
}

// sweepInterned drops any interned string the mark phase didn't reach: the
// intern table is a weak set, so an unreferenced string must not be kept
// alive merely because it's interned.
func (g *GC) sweepInterned() {
	var dead []*ObjString
	g.Interned.Each(func(key *ObjString, _ Value) {
		if !key.object().marked {
			dead = append(dead, key)
		}
	})
	for _, s := range dead {
		g.Interned.Delete(s)
	}
}

// sweep walks the intrusive object list, freeing (unlinking) every object
// that wasn't marked this cycle and clearing the mark bit on survivors.
func (g *GC) sweep() {
	var prev Object
	cur := g.objects
	for cur != nil {
		hdr := cur.object()
		if hdr.marked {
			hdr.marked = false
			prev = cur
			cur = hdr.next
			continue
		}
		unreached := cur
		cur = hdr.next
		if prev != nil {
			prev.object().next = cur
		} else {
			g.objects = cur
		}
		if f, ok := unreached.(*ObjFile); ok {
			_ = f.Close()
		}
	}
}
