package value

// ObjFunction is a compiled function: its name, arity information, and the
// Chunk of bytecode the compiler emitted for its body. The top-level code
// of a script is itself represented as an ObjFunction, named after the file
// name passed to Compile ("<repl>" for REPL input).
type ObjFunction struct {
	Obj
	Name           *ObjString
	Arity          int // number of required positional parameters
	ArityOptional  int // number of additional optional parameters
	UpvalueCount   int
	Chunk          Chunk
}

var _ Object = (*ObjFunction)(nil)

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}
func (f *ObjFunction) Type() string { return "function" }

// TotalArity is the maximum number of arguments the function accepts.
func (f *ObjFunction) TotalArity() int { return f.Arity + f.ArityOptional }
