package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dictu-lang/dictu/lang/value"
)

func run(t *testing.T, src string) (value.Value, *bytes.Buffer) {
	t.Helper()
	machine := New()
	var out bytes.Buffer
	machine.Stdout = &out
	fn, err := machine.Compile([]byte(src), "<test>")
	require.NoError(t, err, "unexpected compile error")
	result, runErr := machine.Run(fn)
	require.NoError(t, runErr, "unexpected runtime error")
	return result, &out
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	machine := New()
	var out bytes.Buffer
	machine.Stdout = &out
	fn, err := machine.Compile([]byte(src), "<test>")
	require.NoError(t, err)
	_, runErr := machine.Run(fn)
	return runErr
}

func TestArithmeticPrecedence(t *testing.T) {
	_, out := run(t, `print(1 + 2 * 3);`)
	require.Equal(t, "7\n", out.String())
}

func TestPowerSupportsFractionalExponent(t *testing.T) {
	_, out := run(t, `print(4 ** 0.5);`)
	require.Equal(t, "2\n", out.String())
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	err := runErr(t, `print(1 / 0);`)
	require.Error(t, err)
}

func TestStringConcatenationInterns(t *testing.T) {
	_, out := run(t, `
var a = "foo";
var b = "bar";
print(a + b);
`)
	require.Equal(t, "foobar\n", out.String())
}

func TestClosureCapturesUpvalue(t *testing.T) {
	_, out := run(t, `
def makeCounter() {
	var count = 0;
	def increment() {
		count = count + 1;
		return count;
	}
	return increment;
}

var counter = makeCounter();
print(counter());
print(counter());
print(counter());
`)
	require.Equal(t, "1\n2\n3\n", out.String())
}

func TestClassInstanceAndInheritance(t *testing.T) {
	_, out := run(t, `
class Animal {
	init(name) {
		this.name = name;
	}

	speak() {
		return this.name + " makes a noise";
	}
}

class Dog < Animal {
	speak() {
		return super.speak() + " (a bark)";
	}
}

var d = Dog("Rex");
print(d.speak());
`)
	require.Equal(t, "Rex makes a noise (a bark)\n", out.String())
}

func TestTraitUseSuppliesMethod(t *testing.T) {
	_, out := run(t, `
trait Greeter {
	greet() {
		return "hi, " + this.name;
	}
}

class Person {
	use Greeter;

	init(name) {
		this.name = name;
	}
}

var p = Person("Ada");
print(p.greet());
`)
	require.Equal(t, "hi, Ada\n", out.String())
}

func TestOptionalParameterDefault(t *testing.T) {
	_, out := run(t, `
def greet(name, greeting = "hello") {
	print(greeting + ", " + name);
}

greet("Ada");
greet("Ada", "hey");
`)
	require.Equal(t, "hello, Ada\nhey, Ada\n", out.String())
}

func TestWhileLoopBreakAndContinue(t *testing.T) {
	_, out := run(t, `
var i = 0;
var sum = 0;
while (i < 10) {
	i = i + 1;
	if (i % 2 == 0) {
		continue;
	}
	if (i > 7) {
		break;
	}
	sum = sum + i;
}
print(sum);
`)
	require.Equal(t, "16\n", out.String())
}

func TestListMethods(t *testing.T) {
	_, out := run(t, `
var l = [1, 2, 3];
l.push(4);
print(l.len());
print(l.pop());
print(l.contains(2));
print(l[1]);
`)
	require.Equal(t, "4\n4\ntrue\n2\n", out.String())
}

func TestDictMethods(t *testing.T) {
	_, out := run(t, `
var d = {"a": 1, "b": 2};
print(d.len());
print(d.exists("a"));
print(d["b"]);
`)
	require.Equal(t, "2\ntrue\n2\n", out.String())
}

func TestStringBuiltinMethods(t *testing.T) {
	_, out := run(t, `
print("a\nb".len());
print("shout".toUpper());
`)
	require.Equal(t, "3\nSHOUT\n", out.String())
}

func TestSliceExpression(t *testing.T) {
	_, out := run(t, `
var l = [1, 2, 3, 4, 5];
print(l[1:3]);
print(l[:2]);
print(l[3:]);
`)
	require.Equal(t, "[2, 3]\n[1, 2]\n[4, 5]\n", out.String())
}

func TestAssertFailureIsRuntimeError(t *testing.T) {
	err := runErr(t, `assert(1 == 2, "one is not two");`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "one is not two")
}

func TestTypeAndToStringGlobals(t *testing.T) {
	_, out := run(t, `
print(type(1));
print(type("x"));
print(toString(42));
print(toNumber("3.5") + 1);
`)
	require.Equal(t, "number\nstring\n42\n4.5\n", out.String())
}

func TestReplEchoesExpressionStatements(t *testing.T) {
	machine := New()
	var out bytes.Buffer
	machine.Stdout = &out
	_, err := machine.RunLine([]byte("1 + 1;"))
	require.NoError(t, err)
	require.Equal(t, "2\n", out.String())
}

func TestBuiltinModuleImportIsCachedAcrossImports(t *testing.T) {
	_, out := run(t, `
import Math;
import Math;
print(Math.sqrt(16));
print(Math.pi > 3);
`)
	require.Equal(t, "4\ntrue\n", out.String())
}

func TestEmptyBuiltinModuleHookStillImports(t *testing.T) {
	_, _ = run(t, `
import JSON;
import Socket;
import Sqlite;
`)
}

func TestStackOverflowOnUnboundedRecursion(t *testing.T) {
	err := runErr(t, `
def recurse() {
	return recurse();
}
recurse();
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "stack overflow")
}
