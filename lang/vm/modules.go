package vm

import (
	"fmt"
	"os"

	"github.com/dictu-lang/dictu/lang/stdlib"
	"github.com/dictu-lang/dictu/lang/value"
)

// builtinModuleNames are the ten short-circuiting import targets spec §4.5
// enumerates. Only Math, Env and System have a concrete native surface
// wired up (see lang/stdlib); the rest register as an empty module so the
// import hook itself -- name recognition, caching, single-execution -- is
// still exercised for every name the spec lists, without pretending to
// implement surfaces explicitly out of scope.
var builtinModuleNames = map[string]bool{
	"Math": true, "Env": true, "System": true, "JSON": true, "Path": true,
	"Datetime": true, "Socket": true, "Random": true, "HTTP": true, "Sqlite": true,
}

func (vm *VM) builtinModule(name string) *value.ObjInstance {
	switch name {
	case "Math":
		return stdlib.Math(vm.gc)
	case "Env":
		return stdlib.Env(vm.gc)
	case "System":
		return stdlib.System(vm.gc, os.Args)
	default:
		return stdlib.NewModule(vm.gc, name, nil)
	}
}

// importModule implements OP_IMPORT: built-in names short-circuit to a
// registered native module; anything else is a file path, compiled once
// and cached by its path string as written (not canonicalized) so
// re-importing the same module the second
// time returns the already-executed module object instead of re-running
// its top level (spec §4.5 "the module object is cached to guarantee
// single-execution semantics").
func (vm *VM) importModule(path string) (value.Value, error) {
	if builtinModuleNames[path] {
		if cached, ok := vm.modules.Get(path); ok {
			return cached, nil
		}
		mod := value.Value(vm.builtinModule(path))
		vm.modules.Put(path, mod)
		return mod, nil
	}

	if cached, ok := vm.modules.Get(path); ok {
		return cached, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, vm.runtimeErrorf("cannot import '%s': %v", path, err)
	}
	fn, compileErr := vm.Compile(src, path)
	if compileErr != nil {
		return nil, vm.runtimeErrorf("cannot import '%s': %v", path, compileErr)
	}

	closure := &value.ObjClosure{Function: fn}
	vm.gc.Track(closure, 32)
	vm.push(closure)
	until := vm.frameCount
	if err := vm.callClosure(closure, 0); err != nil {
		vm.pop()
		return nil, err
	}
	result, runErr := vm.run(until)
	if runErr != nil {
		return nil, runErr
	}

	mod := result
	if mod == nil {
		mod = value.NilValue
	}
	vm.modules.Put(path, mod)
	return mod, nil
}

// openFile implements OP_OPEN_FILE: opens path under mode ("r", "w", "a",
// and the "+"-suffixed read/write variants), matching the original's mode
// string convention rather than Go's os.O_* flag constants.
func (vm *VM) openFile(path, mode string) (*value.ObjFile, error) {
	flag, err := fileFlagForMode(mode)
	if err != nil {
		return nil, vm.runtimeErrorf("%v", err)
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, vm.runtimeErrorf("cannot open '%s': %v", path, err)
	}
	file := &value.ObjFile{Name: path, Mode: mode, Handle: f}
	vm.gc.Track(file, 64)
	return file, nil
}

func fileFlagForMode(mode string) (int, error) {
	switch mode {
	case "r":
		return os.O_RDONLY, nil
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "r+":
		return os.O_RDWR, nil
	case "w+":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	case "a+":
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, nil
	default:
		return 0, fmt.Errorf("unsupported file mode '%s'", mode)
	}
}
