package ir

import (
	"minij/internal/ast"
	"minij/internal/sema"
	"minij/internal/symtab"
	"minij/internal/types"
)

// Generate lowers prog to a CFG, one method root per method (main first, so
// it is the program's entry per spec §4.12), using info to resolve operand
// types and root to resolve method-call targets and to register generated
// temporaries into their owning method's local set.
func Generate(prog *ast.Program, info *sema.TypeInfo, root *symtab.Scope) *CFG {
	cfg := NewCFG()
	g := &generator{cfg: cfg, info: info, root: root}

	mainScope, _ := root.Child(symtab.ClassScopeName(prog.Main.ClassName))
	mainMethodScope, _ := mainScope.Child(symtab.MethodScopeName("main"))
	mainMethod, _ := mainMethodScope.Owner.(*symtab.Method)
	g.method = mainMethod
	g.class = prog.Main.ClassName
	cfg.AddMethodRootBlock(prog.Main.ClassName, "main")
	g.genBlock(prog.Main.Body)

	for _, cls := range prog.Classes {
		classScope, _ := root.Child(symtab.ClassScopeName(cls.Name))
		for _, m := range cls.Methods {
			methodScope, _ := classScope.Child(symtab.MethodScopeName(m.Name))
			method, _ := methodScope.Owner.(*symtab.Method)
			g.method = method
			g.class = cls.Name
			cfg.AddMethodRootBlock(cls.Name, m.Name)
			g.genBlock(m.Body)
			ret := g.genExpr(m.ReturnExpr)
			cfg.AddInstruction(TAC{Op: OpReturn, Rhs: ret})
		}
	}
	return cfg
}

type generator struct {
	cfg    *CFG
	info   *sema.TypeInfo
	root   *symtab.Scope
	method *symtab.Method
	class  string
}

func (g *generator) newTemp() string {
	t := g.cfg.FreshTemp()
	g.method.AddLocal(&symtab.Variable{Name: t, DeclaredType: types.Int})
	return t
}

// ---- statements -----------------------------------------------------------

func (g *generator) genBlock(stmts []ast.Stmt) {
	for _, s := range stmts {
		g.genStmt(s)
	}
}

func (g *generator) genStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Assign:
		v := g.genExpr(n.Rhs)
		g.cfg.AddInstruction(TAC{Op: OpCopy, Result: n.Name, Rhs: v})

	case *ast.ArrayAssign:
		idx := g.genExpr(n.Index)
		val := g.genExpr(n.Value)
		g.cfg.AddInstruction(TAC{Op: OpArrayCopy, Result: n.ArrayName, Lhs: idx, Rhs: val})

	case *ast.If:
		join := g.cfg.NewBlock()
		then := g.cfg.NewBlock()
		g.genCondJumpFalse(n.Cond, join, then)
		g.cfg.SetCurrent(then)
		g.genStmt(n.Then)
		g.cfg.AddInstruction(TAC{Op: OpJump, Label: join.Name})
		g.linkFallthrough(g.cfg.Current(), join)
		g.cfg.SetCurrent(join)

	case *ast.IfElse:
		join := g.cfg.NewBlock()
		then := g.cfg.NewBlock()
		els := g.cfg.NewBlock()
		g.genCondJumpFalse(n.Cond, els, then)
		g.cfg.SetCurrent(then)
		g.genStmt(n.Then)
		g.cfg.AddInstruction(TAC{Op: OpJump, Label: join.Name})
		g.linkFallthrough(g.cfg.Current(), join)
		g.cfg.SetCurrent(els)
		g.genStmt(n.Else)
		g.cfg.AddInstruction(TAC{Op: OpJump, Label: join.Name})
		g.linkFallthrough(g.cfg.Current(), join)
		g.cfg.SetCurrent(join)

	case *ast.While:
		header := g.cfg.NewBlock()
		body := g.cfg.NewBlock()
		exit := g.cfg.NewBlock()
		prev := g.cfg.Current()
		prev.AddInstruction(TAC{Op: OpJump, Label: header.Name})
		prev.TrueExit = header
		g.cfg.SetCurrent(header)
		g.genCondJumpFalse(n.Cond, exit, body)
		g.cfg.SetCurrent(body)
		g.genStmt(n.Body)
		g.cfg.AddInstruction(TAC{Op: OpJump, Label: header.Name})
		g.linkFallthrough(g.cfg.Current(), header)
		g.cfg.SetCurrent(exit)

	case *ast.Print:
		v := g.genExpr(n.Expr)
		g.cfg.AddInstruction(TAC{Op: OpPrint, Rhs: v})

	case *ast.StatementList:
		g.genBlock(n.Stmts)

	case *ast.EmptyStatement:
		// nothing to lower
	}
}

// genCondJumpFalse evaluates cond, emits "CondJump falseTarget, t; Jump
// trueTarget" in the current block, and sets both successor links — the
// shared shape behind if/if-else/while per spec §4.7.
func (g *generator) genCondJumpFalse(cond ast.Expr, falseTarget, trueTarget *BBlock) {
	t := g.genExpr(cond)
	cur := g.cfg.Current()
	cur.AddInstruction(TAC{Op: OpCondJump, Label: falseTarget.Name, Lhs: t})
	cur.AddInstruction(TAC{Op: OpJump, Label: trueTarget.Name})
	cur.TrueExit = trueTarget
	cur.FalseExit = falseTarget
}

// linkFallthrough sets from's TrueExit to to when from has not already
// acquired successors of its own. Callers pass the current block after
// lowering a branch body: that is the block holding the closing Jump, which
// is the body's own join/exit block when the body ends in a nested if/while.
func (g *generator) linkFallthrough(from, to *BBlock) {
	if from.TrueExit == nil && from.FalseExit == nil {
		from.TrueExit = to
	}
}

// ---- expressions ------------------------------------------------------

func (g *generator) genExpr(e ast.Expr) Operand {
	switch n := e.(type) {
	case *ast.IntegerLiteral:
		return Imm(n.Value)
	case *ast.True:
		return Imm(1)
	case *ast.False:
		return Imm(0)
	case *ast.This:
		return Var("this")
	case *ast.Identifier:
		return Var(n.Name)
	case *ast.Not:
		v := g.genExpr(n.Expr)
		t := g.newTemp()
		g.cfg.AddInstruction(TAC{Op: OpNot, Result: t, Rhs: v})
		return Var(t)
	case *ast.Binary:
		if n.Kind == ast.OpAnd || n.Kind == ast.OpOr {
			return g.genShortCircuit(n)
		}
		l := g.genExpr(n.Left)
		r := g.genExpr(n.Right)
		t := g.newTemp()
		g.cfg.AddInstruction(TAC{Op: binOp(n.Kind), Result: t, Lhs: l, Rhs: r})
		return Var(t)
	case *ast.ArrayAccess:
		arr := g.genExpr(n.Array)
		idx := g.genExpr(n.Index)
		t := g.newTemp()
		g.cfg.AddInstruction(TAC{Op: OpArrayAccess, Result: t, Lhs: arr, Rhs: idx})
		return Var(t)
	case *ast.ArrayLength:
		arr := g.genExpr(n.Array)
		t := g.newTemp()
		g.cfg.AddInstruction(TAC{Op: OpArrayLength, Result: t, Rhs: arr})
		return Var(t)
	case *ast.NewIntArray:
		ln := g.genExpr(n.Length)
		t := g.newTemp()
		g.cfg.AddInstruction(TAC{Op: OpNewArray, Result: t, Rhs: ln})
		return Var(t)
	case *ast.NewObject:
		t := g.newTemp()
		g.cfg.AddInstruction(TAC{Op: OpNew, Result: t, Label: n.ClassName})
		return Var(t)
	case *ast.MethodCall:
		return g.genMethodCall(n)
	default:
		return Imm(0)
	}
}

func binOp(k ast.BinaryKind) Op {
	switch k {
	case ast.OpPlus:
		return OpAdd
	case ast.OpMinus:
		return OpSub
	case ast.OpMul:
		return OpMul
	case ast.OpDiv:
		return OpDiv
	case ast.OpLt:
		return OpLt
	case ast.OpGt:
		return OpGt
	case ast.OpEq:
		return OpEq
	default:
		return OpAdd
	}
}

// genShortCircuit lowers "a && b" / "a || b" per spec §4.7's diagram: both
// operators share the same block shape with the true/false arms swapped.
func (g *generator) genShortCircuit(n *ast.Binary) Operand {
	rhsBlock := g.cfg.NewBlock()
	trueBlock := g.cfg.NewBlock()
	falseBlock := g.cfg.NewBlock()
	join := g.cfg.NewBlock()
	result := g.newTemp()

	lhs := g.genExpr(n.Left)
	cur := g.cfg.Current()
	if n.Kind == ast.OpAnd {
		cur.AddInstruction(TAC{Op: OpCondJump, Label: falseBlock.Name, Lhs: lhs})
		cur.AddInstruction(TAC{Op: OpJump, Label: rhsBlock.Name})
		cur.TrueExit = rhsBlock
		cur.FalseExit = falseBlock
	} else {
		// a || b: a true left operand jumps straight to true; only a false
		// left operand evaluates b.
		cur.AddInstruction(TAC{Op: OpCondJump, Label: rhsBlock.Name, Lhs: lhs})
		cur.AddInstruction(TAC{Op: OpJump, Label: trueBlock.Name})
		cur.TrueExit = trueBlock
		cur.FalseExit = rhsBlock
	}

	g.cfg.SetCurrent(rhsBlock)
	rhs := g.genExpr(n.Right)
	rhsCur := g.cfg.Current()
	rhsCur.AddInstruction(TAC{Op: OpCondJump, Label: falseBlock.Name, Lhs: rhs})
	rhsCur.AddInstruction(TAC{Op: OpJump, Label: trueBlock.Name})
	rhsCur.TrueExit = trueBlock
	rhsCur.FalseExit = falseBlock

	g.cfg.SetCurrent(trueBlock)
	trueBlock.AddInstruction(TAC{Op: OpCopy, Result: result, Rhs: Imm(1)})
	trueBlock.AddInstruction(TAC{Op: OpJump, Label: join.Name})
	trueBlock.TrueExit = join

	g.cfg.SetCurrent(falseBlock)
	falseBlock.AddInstruction(TAC{Op: OpCopy, Result: result, Rhs: Imm(0)})
	falseBlock.AddInstruction(TAC{Op: OpJump, Label: join.Name})
	falseBlock.TrueExit = join

	g.cfg.SetCurrent(join)
	return Var(result)
}

// genMethodCall lowers in evaluation order: receiver, then each argument
// left to right, then one Param per argument, then the call itself (spec
// §4.7).
func (g *generator) genMethodCall(n *ast.MethodCall) Operand {
	recv := g.genExpr(n.Receiver)
	args := make([]Operand, len(n.Args))
	for i, a := range n.Args {
		args[i] = g.genExpr(a)
	}
	for _, a := range args {
		g.cfg.AddInstruction(TAC{Op: OpParam, Lhs: a})
	}
	recvType := g.info.TypeOf(n.Receiver)
	label := recvType.Class + "." + n.Method
	result := g.newTemp()
	g.cfg.AddInstruction(TAC{Op: OpMethodCall, Result: result, Lhs: recv, Label: label, ArgCount: len(args)})
	return Var(result)
}
