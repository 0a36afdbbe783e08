// Package e2e exercises the full compile-then-run pipeline against the
// concrete scenarios of spec §8, driving the same entry points cmd/compiler
// and cmd/vm use.
package e2e

import (
	"bytes"
	"strings"
	"testing"

	"minij/internal/bytecode"
	"minij/internal/driver"
	"minij/internal/vm"
)

func compileAndRun(t *testing.T, src string) (string, error) {
	t.Helper()
	res, code := driver.Compile(src, nil)
	if code != driver.ExitSuccess {
		t.Fatalf("compile failed with exit code %d", code)
	}
	prog, err := bytecode.Deserialize(res.Bytecode)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	var out bytes.Buffer
	m := vm.New(prog, &out, nil)
	err = m.Run()
	return out.String(), err
}

func TestScenarioArithmeticFoldsToSingleConst(t *testing.T) {
	const src = `
public class Main { public static void main(String[] args) {
  System.out.println(new Foo().run());
} }
class Foo { public int run() { int x; x = 2 + 3 * 4; return x; } }
`
	out, err := compileAndRun(t, src)
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "14\n" {
		t.Errorf("stdout = %q, want %q", out, "14\n")
	}

	res, code := driver.Compile(src, nil)
	if code != driver.ExitSuccess {
		t.Fatalf("compile failed: %d", code)
	}
	prog, err := bytecode.Deserialize(res.Bytecode)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	run, ok := prog.Lookup("Foo.run")
	if !ok {
		t.Fatal("expected a Foo.run method")
	}
	constCount, addCount, mulCount := 0, 0, 0
	for _, b := range run.Blocks {
		for _, inst := range b.Instructions {
			switch inst.Op {
			case bytecode.OpAdd:
				addCount++
			case bytecode.OpMul:
				mulCount++
			case bytecode.OpConst:
				if inst.IntParam == 14 {
					constCount++
				}
			}
		}
	}
	if addCount != 0 || mulCount != 0 {
		t.Errorf("expected no ADD/MUL after folding, got %d ADD, %d MUL", addCount, mulCount)
	}
	if constCount != 1 {
		t.Errorf("expected exactly one CONST 14, got %d", constCount)
	}
}

func TestScenarioFactorialRecursion(t *testing.T) {
	const src = `
public class Main { public static void main(String[] args) {
  System.out.println(new Foo().fact(5));
} }
class Foo {
  public int fact(int n) {
    int r;
    if (n < 2) {
      r = 1;
    } else {
      r = n * this.fact(n - 1);
    }
    return r;
  }
}
`
	out, err := compileAndRun(t, src)
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "120\n" {
		t.Errorf("stdout = %q, want %q", out, "120\n")
	}
}

func TestScenarioArrayBoundsFault(t *testing.T) {
	const src = `
public class Main { public static void main(String[] args) {
  System.out.println(new Foo().run());
} }
class Foo {
  public int run() {
    int[] arr;
    arr = new int[3];
    arr[0] = 10;
    arr[1] = 20;
    arr[2] = 30;
    System.out.println(arr.length);
    System.out.println(arr[2]);
    System.out.println(arr[3]);
    return 0;
  }
}
`
	out, err := compileAndRun(t, src)
	if err == nil {
		t.Fatal("expected an out-of-bounds fault")
	}
	f, ok := err.(*vm.Fault)
	if !ok || f.Kind != "out-of-bounds" {
		t.Fatalf("expected an out-of-bounds fault, got %v", err)
	}
	if !strings.Contains(out, "3\n") || !strings.Contains(out, "30\n") {
		t.Errorf("expected stdout to contain the two prints before the fault, got %q", out)
	}
}

func TestScenarioWhileLoopContainsCJMP(t *testing.T) {
	const src = `
public class Main { public static void main(String[] args) {
  System.out.println(new Foo().count());
} }
class Foo {
  public int count() {
    int i;
    i = 0;
    while (i < 5) {
      i = i + 1;
    }
    return i;
  }
}
`
	out, err := compileAndRun(t, src)
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "5\n" {
		t.Errorf("stdout = %q, want %q", out, "5\n")
	}

	res, _ := driver.Compile(src, nil)
	prog, _ := bytecode.Deserialize(res.Bytecode)
	count, _ := prog.Lookup("Foo.count")
	hasCjmp := false
	for _, b := range count.Blocks {
		for _, inst := range b.Instructions {
			if inst.Op == bytecode.OpCjmp {
				hasCjmp = true
			}
		}
	}
	if !hasCjmp {
		t.Error("expected at least one CJMP in the compiled while loop")
	}
}

func TestScenarioShortCircuitFoldsToSingleConst(t *testing.T) {
	const src = `
public class Main { public static void main(String[] args) {
  System.out.println(new Foo().run());
} }
class Foo {
  public boolean run() {
    boolean b;
    b = (1 < 2) && (3 == 3);
    return b;
  }
}
`
	out, err := compileAndRun(t, src)
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "1\n" {
		t.Errorf("stdout = %q, want %q", out, "1\n")
	}

	res, _ := driver.Compile(src, nil)
	prog, _ := bytecode.Deserialize(res.Bytecode)
	run, _ := prog.Lookup("Foo.run")
	constOneCount := 0
	for _, b := range run.Blocks {
		for _, inst := range b.Instructions {
			if inst.Op == bytecode.OpConst && inst.IntParam == 1 {
				constOneCount++
			}
		}
	}
	if constOneCount != 1 {
		t.Errorf("expected exactly one CONST 1 after folding the short-circuit, got %d", constOneCount)
	}
}

func TestScenarioUndeclaredIdentifierExitsFour(t *testing.T) {
	const src = `
public class Main { public static void main(String[] args) { } }
class Foo { public int f() { return q; } }
`
	_, code := driver.Compile(src, nil)
	if code != driver.ExitSemanticError {
		t.Fatalf("exit code = %d, want %d", code, driver.ExitSemanticError)
	}
}
