package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dictu-lang/dictu/lang/value"
)

func compile(t *testing.T, src string) *value.ObjFunction {
	t.Helper()
	fn, errs := Compile([]byte(src), "<test>", value.NewGC())
	require.Empty(t, errs, "unexpected compile errors: %v", errs)
	require.NotNil(t, fn)
	return fn
}

func TestCompileArithmeticProducesExpectedOpcodes(t *testing.T) {
	fn := compile(t, "1 + 2 * 3;")
	dis := fn.Chunk.Disassemble("test")
	require.Contains(t, dis, "OP_CONSTANT")
	require.Contains(t, dis, "OP_MULTIPLY")
	require.Contains(t, dis, "OP_ADD")
	require.Contains(t, dis, "OP_POP")
}

func TestCompileVarDeclarationGlobal(t *testing.T) {
	fn := compile(t, "var x = 10;")
	dis := fn.Chunk.Disassemble("test")
	require.Contains(t, dis, "OP_DEFINE_GLOBAL")
}

func TestCompileLocalScopeUsesLocalSlots(t *testing.T) {
	fn := compile(t, "{ var x = 1; x = x + 1; }")
	dis := fn.Chunk.Disassemble("test")
	require.Contains(t, dis, "OP_SET_LOCAL")
	require.Contains(t, dis, "OP_GET_LOCAL")
	require.NotContains(t, dis, "OP_DEFINE_GLOBAL")
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	fn := compile(t, `
def outer() {
	var x = 1;
	def inner() {
		return x;
	}
	return inner;
}
`)
	dis := fn.Chunk.Disassemble("test")
	require.Contains(t, dis, "OP_CLOSURE")

	var outer *value.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.(*value.ObjFunction); ok {
			outer = f
		}
	}
	require.NotNil(t, outer)
	require.Contains(t, outer.Chunk.Disassemble("outer"), "local 1", "inner's closure must capture outer's local x (slot 1)")
}

func TestCompileClassWithSuperclassEmitsSubclass(t *testing.T) {
	fn := compile(t, `
class Animal {
	speak() {
		return "...";
	}
}
class Dog < Animal {
	speak() {
		return "woof";
	}
}
`)
	dis := fn.Chunk.Disassemble("test")
	require.Contains(t, dis, "OP_SUBCLASS")
	require.Contains(t, dis, "OP_METHOD")
}

func TestCompileTraitUseEmitsUse(t *testing.T) {
	fn := compile(t, `
trait Greeter {
	greet() {
		return "hi";
	}
}
class Person {
	use Greeter;
}
`)
	dis := fn.Chunk.Disassemble("test")
	require.Contains(t, dis, "OP_TRAIT")
	require.Contains(t, dis, "OP_USE")
}

func TestCompileBreakContinueInLoop(t *testing.T) {
	fn := compile(t, `
while (true) {
	if (1 == 1) {
		break;
	}
	continue;
}
`)
	dis := fn.Chunk.Disassemble("test")
	require.Contains(t, dis, "OP_JUMP")
	require.Contains(t, dis, "OP_LOOP")
	require.NotContains(t, dis, "OP_BREAK", "every OP_BREAK must be rewritten to OP_JUMP")
}

func TestCompileDictVsBlockDisambiguation(t *testing.T) {
	dictFn := compile(t, `{ "a": 1 };`)
	require.Contains(t, dictFn.Chunk.Disassemble("test"), "OP_DICT")

	blockFn := compile(t, `{ var x = 1; }`)
	require.NotContains(t, blockFn.Chunk.Disassemble("test"), "OP_DICT")

	emptyDictFn := compile(t, `{};`)
	require.Contains(t, emptyDictFn.Chunk.Disassemble("test"), "OP_DICT")
}

func TestCompileOptionalParameter(t *testing.T) {
	fn := compile(t, `
def greet(name = "world") {
	return name;
}
`)
	var greet *value.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.(*value.ObjFunction); ok {
			greet = f
		}
	}
	require.NotNil(t, greet)
	dis := greet.Chunk.Disassemble("greet")
	require.Contains(t, dis, "OP_DEFINE_OPTIONAL")
}

func TestCompileCompoundAssignUsesNegateAddForMinusEq(t *testing.T) {
	fn := compile(t, `
var x = 10;
x -= 3;
`)
	dis := fn.Chunk.Disassemble("test")
	require.Contains(t, dis, "OP_NEGATE")
	require.Contains(t, dis, "OP_ADD")
}

func TestCompileWithStatementClosesFileOnReturn(t *testing.T) {
	fn := compile(t, `
def readIt() {
	with ("a.txt", "r") {
		return file;
	}
}
`)
	var readIt *value.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.(*value.ObjFunction); ok {
			readIt = f
		}
	}
	require.NotNil(t, readIt)
	dis := readIt.Chunk.Disassemble("readIt")
	require.Contains(t, dis, "OP_OPEN_FILE")
	require.Contains(t, dis, "OP_CLOSE_FILE")
	require.Equal(t, 2, strings.Count(dis, "OP_CLOSE_FILE"), "one close before the early return, one at the normal end of the block")
}

func TestCompileErrorRecoveryReportsMultiple(t *testing.T) {
	_, errs := Compile([]byte("var ;\nvar ;\n"), "<test>", value.NewGC())
	require.GreaterOrEqual(t, len(errs), 2)
}

func TestCompileTernary(t *testing.T) {
	fn := compile(t, `var x = 1 ? 2 : 3;`)
	dis := fn.Chunk.Disassemble("test")
	require.Contains(t, dis, "OP_JUMP_IF_FALSE")
}

func findString(t *testing.T, constants []value.Value, want string) *value.ObjString {
	t.Helper()
	for _, c := range constants {
		if s, ok := c.(*value.ObjString); ok && s.Chars == want {
			return s
		}
	}
	t.Fatalf("no string constant %q found", want)
	return nil
}

func TestCompileInternsGlobalNameAcrossFunctions(t *testing.T) {
	gc := value.NewGC()
	fn, errs := Compile([]byte(`
var shared = 1;
def readShared() {
	return shared;
}
`), "<test>", gc)
	require.Empty(t, errs)

	var inner *value.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.(*value.ObjFunction); ok {
			inner = f
		}
	}
	require.NotNil(t, inner)

	defineName := findString(t, fn.Chunk.Constants, "shared")
	getName := findString(t, inner.Chunk.Constants, "shared")
	require.True(t, defineName == getName, "global name constants from different function chunks must share one interned pointer")
}

func TestREPLStatementEmitsPopRepl(t *testing.T) {
	r := NewREPLState(value.NewGC())
	fn, errs := r.CompileLine([]byte("1 + 1;"))
	require.Empty(t, errs)
	require.Contains(t, fn.Chunk.Disassemble("repl"), "OP_POP_REPL")
}
