package ir

import (
	"testing"

	"minij/internal/diag"
	"minij/internal/lexer"
	"minij/internal/parser"
	"minij/internal/sema"
)

func buildCFG(t *testing.T, src string) *CFG {
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
	return Generate(prog, info, root)
}

func countOp(cfg *CFG, op Op) int {
	n := 0
	for _, root := range cfg.MethodRoots {
		walkBlocks(root, func(b *BBlock) {
			for _, t := range b.Instructions {
				if t.Op == op {
					n++
				}
			}
		})
	}
	return n
}

func TestGenerateIfElseShape(t *testing.T) {
	cfg := buildCFG(t, `
public class Main { public static void main(String[] args) { } }
class C {
	public int m() {
		int x;
		if (true) x = 1; else x = 2;
		return x;
	}
}
`)
	if countOp(cfg, OpCondJump) != 1 {
		t.Errorf("expected exactly one CondJump, got %d", countOp(cfg, OpCondJump))
	}
}

func TestGenerateWhileShape(t *testing.T) {
	cfg := buildCFG(t, `
public class Main { public static void main(String[] args) { } }
class C {
	public int m() {
		int x;
		x = 0;
		while (x < 10) {
			x = x + 1;
		}
		return x;
	}
}
`)
	if countOp(cfg, OpCondJump) != 1 {
		t.Errorf("expected exactly one CondJump in a while loop, got %d", countOp(cfg, OpCondJump))
	}
}

func TestGenerateShortCircuitAnd(t *testing.T) {
	cfg := buildCFG(t, `
public class Main { public static void main(String[] args) { } }
class C {
	public int m() {
		boolean b;
		b = true && false;
		return 0;
	}
}
`)
	if countOp(cfg, OpCondJump) != 2 {
		t.Errorf("expected two CondJumps lowering &&, got %d", countOp(cfg, OpCondJump))
	}
	if countOp(cfg, OpCopy) < 2 {
		t.Error("expected at least the true/false result-assigning Copy instructions")
	}
}

func TestConstantFoldingArithmetic(t *testing.T) {
	cfg := buildCFG(t, `
public class Main { public static void main(String[] args) {
	System.out.println(new C().run());
} }
class C {
	public int run() {
		int x;
		x = 2 + 3 * 4;
		return x;
	}
}
`)
	pm := NewPassManager()
	pm.Run(cfg)

	if countOp(cfg, OpAdd) != 0 || countOp(cfg, OpMul) != 0 {
		t.Error("expected arithmetic to fold away entirely")
	}
	found := false
	for _, root := range cfg.MethodRoots {
		walkBlocks(root, func(b *BBlock) {
			for _, instr := range b.Instructions {
				if instr.Op == OpCopy && instr.Rhs.IsImmediate() && instr.Rhs.Value == 14 {
					found = true
				}
			}
		})
	}
	if !found {
		t.Error("expected a folded Copy of immediate 14")
	}
}

func TestConstantFoldingNeverFoldsDivByZero(t *testing.T) {
	cfg := buildCFG(t, `
public class Main { public static void main(String[] args) { } }
class C {
	public int m() {
		int x;
		int z;
		z = 0;
		x = 1 / z;
		return x;
	}
}
`)
	NewPassManager().Run(cfg)
	if countOp(cfg, OpDiv) != 1 {
		t.Error("division by a zero-valued variable should never fold")
	}
}

func TestShortCircuitFoldsToSingleConstant(t *testing.T) {
	cfg := buildCFG(t, `
public class Main { public static void main(String[] args) {
	System.out.println(new C().run());
} }
class C {
	public int run() {
		boolean b;
		int r;
		b = true && false;
		if (b) r = 1; else r = 0;
		return r;
	}
}
`)
	NewPassManager().Run(cfg)
	if countOp(cfg, OpCondJump) != 0 {
		t.Errorf("expected every CondJump to fold away, got %d", countOp(cfg, OpCondJump))
	}
}

func TestUnreachableBlockEliminationPrunesDeadBranch(t *testing.T) {
	cfg := buildCFG(t, `
public class Main { public static void main(String[] args) { } }
class C {
	public int m() {
		int x;
		if (true) x = 1; else x = 2;
		return x;
	}
}
`)
	before := len(cfg.AllBlocks)
	NewPassManager().Run(cfg)
	after := len(cfg.AllBlocks)
	if after >= before {
		t.Errorf("expected AllBlocks to shrink after folding a constant branch, before=%d after=%d", before, after)
	}
}

func TestPassManagerIsIdempotentOnTrivialProgram(t *testing.T) {
	cfg := buildCFG(t, `
public class Main { public static void main(String[] args) {
	System.out.println(1);
} }
`)
	pm := NewPassManager()
	pm.Run(cfg)
	if changed := pm.Run(cfg); changed {
		t.Error("expected a second pass-manager run over an already-folded CFG to report no change")
	}
}
