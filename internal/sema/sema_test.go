package sema

import (
	"testing"

	"minij/internal/ast"
	"minij/internal/diag"
	"minij/internal/lexer"
	"minij/internal/parser"
	"minij/internal/symtab"
	"minij/internal/types"
)

func compileUpTo(t *testing.T, src string) (*diag.Sink, *symtab.Scope, *TypeInfo) {
	t.Helper()
	sink := diag.New(nil)
	lx := lexer.New(src, sink)
	p := parser.New(lx, sink)
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	root := BuildSymbolTable(prog, sink)
	info := CheckProgram(prog, root, sink)
	return sink, root, info
}

func TestBuildSymbolTableRegistersClassesAndMethods(t *testing.T) {
	sink, root, _ := compileUpTo(t, `
public class Main { public static void main(String[] args) { } }
class Foo {
	int x;
	public int get() { return x; }
}
`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Strings())
	}
	foo, ok := root.LookupClass("Foo")
	if !ok {
		t.Fatal("class Foo not registered")
	}
	if _, ok := foo.Fields["x"]; !ok {
		t.Error("field x not registered")
	}
	if _, ok := foo.Methods["get"]; !ok {
		t.Error("method get not registered")
	}
	mainClass, _ := root.LookupClass("Main")
	if _, ok := mainClass.Methods["main"]; !ok {
		t.Error("synthetic main method not registered")
	}
	if mainClass.Methods["main"].Params[0].DeclaredType != types.StringArray {
		t.Error("main's args parameter should be String[]")
	}
}

func TestBuildSymbolTableDuplicateFieldIsError(t *testing.T) {
	sink, _, _ := compileUpTo(t, `
public class Main { public static void main(String[] args) { } }
class Foo {
	int x;
	int x;
	public int get() { return x; }
}
`)
	if !sink.HasErrors() {
		t.Fatal("expected a duplicate-field error")
	}
}

func TestTypeCheckArithmetic(t *testing.T) {
	sink, _, _ := compileUpTo(t, `
public class Main { public static void main(String[] args) {
	System.out.println(new Foo().run());
} }
class Foo { public int run() { int x; x = 2 + 3 * 4; return x; } }
`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Strings())
	}
}

func TestTypeCheckUndeclaredIdentifier(t *testing.T) {
	sink, _, _ := compileUpTo(t, `
public class Main { public static void main(String[] args) { } }
class Foo { public int f() { return q; } }
`)
	if !sink.HasErrors() {
		t.Fatal("expected a semantic error")
	}
	found := false
	for _, s := range sink.Strings() {
		if contains(s, "Undeclared identifier") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a diagnostic containing %q, got %v", "Undeclared identifier", sink.Strings())
	}
}

func TestTypeCheckMismatchedOperandsIsError(t *testing.T) {
	sink, _, _ := compileUpTo(t, `
public class Main { public static void main(String[] args) { } }
class Foo { public int f() { boolean b; b = true; return 1 + b; } }
`)
	if !sink.HasErrors() {
		t.Fatal("expected a type error mixing int and boolean")
	}
}

func TestTypeCheckMethodCallArityMismatch(t *testing.T) {
	sink, _, _ := compileUpTo(t, `
public class Main { public static void main(String[] args) { } }
class Foo {
	public int helper(int a) { return a; }
	public int f() { return this.helper(1, 2); }
}
`)
	if !sink.HasErrors() {
		t.Fatal("expected an arity-mismatch error")
	}
}

func TestTypeInfoCoversEveryExpressionOnSuccess(t *testing.T) {
	sink := diag.New(nil)
	prog, err := parser.New(lexer.New(`
public class Main { public static void main(String[] args) {
	System.out.println(new Foo().run());
} }
class Foo { public int run() { int x; x = 2 + 3 * 4; return x; } }
`, sink), sink).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	root := BuildSymbolTable(prog, sink)
	info := CheckProgram(prog, root, sink)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Strings())
	}
	if len(info.types) == 0 {
		t.Fatal("expected TypeInfo to have recorded at least one node")
	}

	var exprs []ast.Expr
	var collect func(e ast.Expr)
	collect = func(e ast.Expr) {
		exprs = append(exprs, e)
		switch n := e.(type) {
		case *ast.Binary:
			collect(n.Left)
			collect(n.Right)
		case *ast.MethodCall:
			collect(n.Receiver)
			for _, a := range n.Args {
				collect(a)
			}
		}
	}
	for _, s := range prog.Main.Body {
		collect(s.(*ast.Print).Expr)
	}
	run := prog.Classes[0].Methods[0]
	for _, s := range run.Body {
		collect(s.(*ast.Assign).Rhs)
	}
	collect(run.ReturnExpr)
	for _, e := range exprs {
		if _, ok := info.types[e]; !ok {
			t.Errorf("no TypeInfo entry for %T on line %d", e, e.Line())
		}
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
