package vm

import (
	"bytes"
	"testing"

	"minij/internal/bytecode"
)

func singleMethodProgram(blocks ...*bytecode.MethodBlock) *bytecode.Program {
	return &bytecode.Program{Methods: []*bytecode.Method{{Label: "Main.main", Blocks: blocks}}}
}

func runProgram(t *testing.T, prog *bytecode.Program) (string, error) {
	t.Helper()
	var out bytes.Buffer
	m := New(prog, &out, nil)
	err := m.Run()
	return out.String(), err
}

func TestArithmeticAndPrint(t *testing.T) {
	b := bytecode.NewMethodBlock("entry").Const(2).Const(3).Add().Print().Stop()
	out, err := runProgram(t, singleMethodProgram(b))
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "5\n" {
		t.Errorf("output = %q, want %q", out, "5\n")
	}
}

func TestSubtractionPopOrder(t *testing.T) {
	// SUB: pop a=3, pop b=10, push b-a = 7.
	b := bytecode.NewMethodBlock("entry").Const(10).Const(3).Sub().Print().Stop()
	out, err := runProgram(t, singleMethodProgram(b))
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "7\n" {
		t.Errorf("output = %q, want %q", out, "7\n")
	}
}

func TestDivisionTruncatesAndPopOrder(t *testing.T) {
	// DIV: pop a=3, pop b=10, push b/a = 3 (truncating).
	b := bytecode.NewMethodBlock("entry").Const(10).Const(3).Div().Print().Stop()
	out, err := runProgram(t, singleMethodProgram(b))
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "3\n" {
		t.Errorf("output = %q, want %q", out, "3\n")
	}
}

func TestDivisionByZeroFaults(t *testing.T) {
	b := bytecode.NewMethodBlock("entry").Const(10).Const(0).Div().Print().Stop()
	_, err := runProgram(t, singleMethodProgram(b))
	f, ok := err.(*Fault)
	if !ok || f.Kind != "div-by-zero" {
		t.Fatalf("expected a div-by-zero fault, got %v", err)
	}
}

func TestStackUnderflowFaults(t *testing.T) {
	b := bytecode.NewMethodBlock("entry").Add().Stop()
	_, err := runProgram(t, singleMethodProgram(b))
	f, ok := err.(*Fault)
	if !ok || f.Kind != "stack-underflow" {
		t.Fatalf("expected a stack-underflow fault, got %v", err)
	}
}

func TestArrayOutOfBoundsFaults(t *testing.T) {
	b := bytecode.NewMethodBlock("entry").
		Const(3).
		NewArray().
		Store("arr").
		Load("arr").
		Const(3).
		ArrayLoad().
		Stop()
	m := &bytecode.Method{Label: "Main.main", Variables: []string{"arr"}, Blocks: []*bytecode.MethodBlock{b}}
	_, err := runProgram(t, &bytecode.Program{Methods: []*bytecode.Method{m}})
	f, ok := err.(*Fault)
	if !ok || f.Kind != "out-of-bounds" {
		t.Fatalf("expected an out-of-bounds fault, got %v", err)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	b := bytecode.NewMethodBlock("entry").
		Const(3).
		NewArray().
		Store("arr").
		Load("arr").
		Const(0).
		Const(42).
		ArrayStore().
		Load("arr").
		Const(0).
		ArrayLoad().
		Print().
		Load("arr").
		ArrayLength().
		Print().
		Stop()
	m := &bytecode.Method{Label: "Main.main", Variables: []string{"arr"}, Blocks: []*bytecode.MethodBlock{b}}
	out, err := runProgram(t, &bytecode.Program{Methods: []*bytecode.Method{m}})
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "42\n3\n" {
		t.Errorf("output = %q, want %q", out, "42\n3\n")
	}
}

func TestCallAndReturnRoundTrip(t *testing.T) {
	// Main.main: new C, CALL C.get(receiver only, no args), PRINT result, STOP.
	mainBlock := bytecode.NewMethodBlock("Main.main").
		New("C").
		Call("C.get").
		Print().
		Stop()
	getBlock := bytecode.NewMethodBlock("C.get").
		Const(99).
		Ret()
	mainMethod := &bytecode.Method{Label: "Main.main", Blocks: []*bytecode.MethodBlock{mainBlock}}
	getMethod := &bytecode.Method{Label: "C.get", Blocks: []*bytecode.MethodBlock{getBlock}}
	out, err := runProgram(t, &bytecode.Program{Methods: []*bytecode.Method{mainMethod, getMethod}})
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "99\n" {
		t.Errorf("output = %q, want %q", out, "99\n")
	}
}

func TestUnknownMethodFaults(t *testing.T) {
	b := bytecode.NewMethodBlock("entry").New("C").Call("C.missing").Stop()
	_, err := runProgram(t, singleMethodProgram(b))
	f, ok := err.(*Fault)
	if !ok || f.Kind != "unknown-method" {
		t.Fatalf("expected an unknown-method fault, got %v", err)
	}
}

func TestRetWithNoCallerFaults(t *testing.T) {
	b := bytecode.NewMethodBlock("entry").Ret()
	_, err := runProgram(t, singleMethodProgram(b))
	f, ok := err.(*Fault)
	if !ok || f.Kind != "activation-underflow" {
		t.Fatalf("expected an activation-underflow fault, got %v", err)
	}
}

func TestUnknownVariableFaults(t *testing.T) {
	b := bytecode.NewMethodBlock("entry").Load("ghost").Stop()
	_, err := runProgram(t, singleMethodProgram(b))
	f, ok := err.(*Fault)
	if !ok || f.Kind != "unknown-variable" {
		t.Fatalf("expected an unknown-variable fault, got %v", err)
	}
}

func TestAndOpcode(t *testing.T) {
	b := bytecode.NewMethodBlock("entry").Const(1).Const(0).And().Print().Stop()
	out, err := runProgram(t, singleMethodProgram(b))
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "0\n" {
		t.Errorf("output = %q, want %q", out, "0\n")
	}
}
