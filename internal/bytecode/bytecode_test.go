package bytecode

import (
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"

	"minij/internal/diag"
	"minij/internal/ir"
	"minij/internal/lexer"
	"minij/internal/parser"
	"minij/internal/sema"
)

func buildProgram(t *testing.T, src string) (*ir.CFG, *Program) {
	t.Helper()
	sink := diag.New(nil)
	lx := lexer.New(src, sink)
	p := parser.New(lx, sink)
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	root := sema.BuildSymbolTable(prog, sink)
	info := sema.CheckProgram(prog, root, sink)
	if sink.HasErrors() {
		t.Fatalf("unexpected semantic errors: %v", sink.Strings())
	}
	cfg := ir.Generate(prog, info, root)
	ir.NewPassManager().Run(cfg)
	return cfg, Emit(cfg, root)
}

func TestEmitEntryMethodEndsWithStop(t *testing.T) {
	_, bc := buildProgram(t, `
public class Main { public static void main(String[] args) {
	System.out.println(1);
} }
`)
	entry := bc.Entry()
	if entry == nil || len(entry.Blocks) == 0 {
		t.Fatal("expected a non-empty entry method")
	}
	last := entry.Blocks[0].Instructions
	if len(last) == 0 || last[len(last)-1].Op != OpStop {
		t.Errorf("expected entry method's first block to end with STOP, got %+v", last)
	}
}

func TestEmitParameterPreludeIsReverseOrderStore(t *testing.T) {
	_, bc := buildProgram(t, `
public class Main { public static void main(String[] args) {
	System.out.println(new C().add(1, 2));
} }
class C {
	public int add(int a, int b) { return a + b; }
}
`)
	m, ok := bc.Lookup("C.add")
	if !ok {
		t.Fatal("expected a C.add method")
	}
	first := m.Blocks[0].Instructions
	if len(first) < 2 || first[0].Op != OpStore || first[0].StrParam != "b" {
		t.Fatalf("expected STORE b first (reverse declaration order), got %+v", first[:2])
	}
	if first[1].Op != OpStore || first[1].StrParam != "a" {
		t.Fatalf("expected STORE a second, got %+v", first[1])
	}
}

func TestEmitVariablesAndFieldsPopulated(t *testing.T) {
	_, bc := buildProgram(t, `
public class Main { public static void main(String[] args) {
	System.out.println(new C().add(1, 2));
} }
class C {
	int total;
	public int get() { int x; x = total; return x; }
	public int add(int a, int b) { return a + b; }
}
`)
	get, ok := bc.Lookup("C.get")
	if !ok {
		t.Fatal("expected C.get method")
	}
	if !get.IsLocal("x") {
		t.Error("expected x to be a declared local")
	}
	if !get.IsField("total") {
		t.Error("expected total to be a declared field")
	}

	add, ok := bc.Lookup("C.add")
	if !ok {
		t.Fatal("expected C.add method")
	}
	if !add.IsLocal("a") || !add.IsLocal("b") {
		t.Error("expected a and b to be declared locals (parameters)")
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	_, bc := buildProgram(t, `
public class Main { public static void main(String[] args) {
	System.out.println(new C().add(1, 2));
} }
class C {
	public int add(int a, int b) { return a + b; }
}
`)
	data, err := Serialize(bc)
	require.NoError(t, err)
	back, err := Deserialize(data)
	require.NoError(t, err)
	require.Len(t, back.Methods, len(bc.Methods))

	orig, ok := bc.Lookup("C.add")
	require.True(t, ok, "missing C.add in original")
	round, ok := back.Lookup("C.add")
	require.True(t, ok, "missing C.add after round-trip")

	if diff := pretty.Diff(orig, round); len(diff) > 0 {
		t.Errorf("C.add did not round-trip structurally:\n%s", strings.Join(diff, "\n"))
	}
}

func TestDeserializeTruncatedInputFails(t *testing.T) {
	_, bc := buildProgram(t, `
public class Main { public static void main(String[] args) {
	System.out.println(1);
} }
`)
	data, err := Serialize(bc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if _, err := Deserialize(data[:len(data)-4]); err == nil {
		t.Error("expected truncated input to fail deserialisation")
	}
}
