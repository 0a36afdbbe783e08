package sema

import (
	"minij/internal/ast"
	"minij/internal/diag"
	"minij/internal/symtab"
	"minij/internal/types"
)

// TypeInfo is the side-table the checker writes and the IR generator reads
// (spec §4.6/§4.7): AST node identity to inferred type. Every type-checked
// expression node is recorded, and every statement node as void, so the IR
// generator never has to touch the symbol table to answer "what type is this
// subtree". *ast.Variable declarations are not recorded; their declared
// types live only in the symbol table.
type TypeInfo struct {
	types map[ast.Node]types.ID
}

func newTypeInfo() *TypeInfo {
	return &TypeInfo{types: make(map[ast.Node]types.ID)}
}

func (ti *TypeInfo) set(n ast.Node, t types.ID) types.ID {
	ti.types[n] = t
	return t
}

// TypeOf returns the type recorded for n, or the error sentinel if n was
// never visited (a bug upstream, per spec §7's IR-generation-error row).
func (ti *TypeInfo) TypeOf(n ast.Node) types.ID {
	if t, ok := ti.types[n]; ok {
		return t
	}
	return types.Err
}

// CheckProgram type-checks every class and method reachable from root's
// scope tree and returns the populated TypeInfo. It never stops early: a
// type error in one method's body does not prevent checking its siblings
// (spec §7, "siblings still checked").
func CheckProgram(prog *ast.Program, root *symtab.Scope, sink *diag.Sink) *TypeInfo {
	c := &checker{root: root, sink: sink, info: newTypeInfo()}
	mainScope, _ := root.Child(symtab.ClassScopeName(prog.Main.ClassName))
	methodScope, _ := mainScope.Child(symtab.MethodScopeName("main"))
	c.checkBlock(methodScope, prog.Main.Body)

	for _, cls := range prog.Classes {
		classScope, _ := root.Child(symtab.ClassScopeName(cls.Name))
		for _, m := range cls.Methods {
			mScope, _ := classScope.Child(symtab.MethodScopeName(m.Name))
			c.checkMethod(mScope, m)
		}
	}
	return c.info
}

type checker struct {
	root *symtab.Scope
	sink *diag.Sink
	info *TypeInfo
}

func (c *checker) checkMethod(scope *symtab.Scope, m *ast.Method) {
	c.checkBlock(scope, m.Body)
	retType := c.checkExpr(scope, m.ReturnExpr)
	method, _ := scope.Owner.(*symtab.Method)
	if method != nil && !retType.IsError() && retType != method.ReturnType {
		c.sink.Err(lineSpan(m.ReturnExpr.Line()),
			"method %q declares return type %s but returns %s", m.Name, method.ReturnType, retType)
	}
}

func (c *checker) checkBlock(scope *symtab.Scope, stmts []ast.Stmt) {
	for _, s := range stmts {
		c.checkStmt(scope, s)
	}
}

// ---- statements ---------------------------------------------------------

func (c *checker) checkStmt(scope *symtab.Scope, s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Assign:
		rhs := c.checkExpr(scope, n.Rhs)
		lhs := c.lookupVarType(scope, n.Name, n.Line())
		if !rhs.IsError() && !lhs.IsError() && rhs != lhs {
			c.sink.Err(lineSpan(n.Line()), "cannot assign %s to %q of type %s", rhs, n.Name, lhs)
		}
		c.info.set(n, types.Void)

	case *ast.ArrayAssign:
		idx := c.checkExpr(scope, n.Index)
		val := c.checkExpr(scope, n.Value)
		arr := c.lookupVarType(scope, n.ArrayName, n.Line())
		if !idx.IsError() && idx != types.Int {
			c.sink.Err(lineSpan(n.Line()), "array index must be int, got %s", idx)
		}
		if !arr.IsError() && arr != types.IntArray {
			c.sink.Err(lineSpan(n.Line()), "%q is not an int[]", n.ArrayName)
		}
		if !val.IsError() && val != types.Int {
			c.sink.Err(lineSpan(n.Line()), "array element must be int, got %s", val)
		}
		c.info.set(n, types.Void)

	case *ast.If:
		c.checkCondition(scope, n.Cond)
		c.checkStmt(scope, n.Then)
		c.info.set(n, types.Void)

	case *ast.IfElse:
		c.checkCondition(scope, n.Cond)
		c.checkStmt(scope, n.Then)
		c.checkStmt(scope, n.Else)
		c.info.set(n, types.Void)

	case *ast.While:
		c.checkCondition(scope, n.Cond)
		c.checkStmt(scope, n.Body)
		c.info.set(n, types.Void)

	case *ast.Print:
		c.checkExpr(scope, n.Expr)
		c.info.set(n, types.Void)

	case *ast.StatementList:
		c.checkBlock(scope, n.Stmts)
		c.info.set(n, types.Void)

	case *ast.EmptyStatement:
		c.info.set(n, types.Void)
	}
}

func (c *checker) checkCondition(scope *symtab.Scope, cond ast.Expr) {
	t := c.checkExpr(scope, cond)
	if !t.IsError() && t != types.Bool {
		c.sink.Err(lineSpan(cond.Line()), "condition must be boolean, got %s", t)
	}
}

func (c *checker) lookupVarType(scope *symtab.Scope, name string, line int) types.ID {
	if v, ok := scope.LookupVariable(name); ok {
		return v.Type()
	}
	c.sink.Err(lineSpan(line), "undeclared identifier %q", name)
	return types.Err
}

// ---- expressions ----------------------------------------------------------

func (c *checker) checkExpr(scope *symtab.Scope, e ast.Expr) types.ID {
	switch n := e.(type) {
	case *ast.IntegerLiteral:
		return c.info.set(n, types.Int)

	case *ast.True:
		return c.info.set(n, types.Bool)

	case *ast.False:
		return c.info.set(n, types.Bool)

	case *ast.This:
		cls, ok := scope.EnclosingClass()
		if !ok {
			c.sink.Err(lineSpan(n.Line()), "'this' used outside any class")
			return c.info.set(n, types.Err)
		}
		return c.info.set(n, types.Class(cls.Name))

	case *ast.Identifier:
		if v, ok := scope.LookupVariable(n.Name); ok {
			return c.info.set(n, v.Type())
		}
		c.sink.Err(lineSpan(n.Line()), "Undeclared identifier %q", n.Name)
		return c.info.set(n, types.Err)

	case *ast.Binary:
		return c.checkBinary(scope, n)

	case *ast.Not:
		t := c.checkExpr(scope, n.Expr)
		if !t.IsError() && t != types.Bool {
			c.sink.Err(lineSpan(n.Line()), "operand of '!' must be boolean, got %s", t)
			return c.info.set(n, types.Err)
		}
		return c.info.set(n, types.Bool)

	case *ast.ArrayAccess:
		arrT := c.checkExpr(scope, n.Array)
		idxT := c.checkExpr(scope, n.Index)
		if idxT.IsError() || arrT.IsError() {
			return c.info.set(n, types.Err)
		}
		if idxT != types.Int {
			c.sink.Err(lineSpan(n.Line()), "array index must be int, got %s", idxT)
			return c.info.set(n, types.Err)
		}
		if arrT != types.IntArray {
			c.sink.Err(lineSpan(n.Line()), "cannot index into %s", arrT)
			return c.info.set(n, types.Err)
		}
		return c.info.set(n, types.Int)

	case *ast.ArrayLength:
		arrT := c.checkExpr(scope, n.Array)
		if arrT.IsError() {
			return c.info.set(n, types.Err)
		}
		if arrT != types.IntArray {
			c.sink.Err(lineSpan(n.Line()), "'.length' requires int[], got %s", arrT)
			return c.info.set(n, types.Err)
		}
		return c.info.set(n, types.Int)

	case *ast.NewIntArray:
		lenT := c.checkExpr(scope, n.Length)
		if !lenT.IsError() && lenT != types.Int {
			c.sink.Err(lineSpan(n.Line()), "array length must be int, got %s", lenT)
		}
		return c.info.set(n, types.IntArray)

	case *ast.NewObject:
		if _, ok := c.root.LookupClass(n.ClassName); !ok {
			c.sink.Err(lineSpan(n.Line()), "undeclared class %q", n.ClassName)
			return c.info.set(n, types.Err)
		}
		return c.info.set(n, types.Class(n.ClassName))

	case *ast.MethodCall:
		return c.checkMethodCall(scope, n)

	default:
		return types.Err
	}
}

func (c *checker) checkBinary(scope *symtab.Scope, n *ast.Binary) types.ID {
	l := c.checkExpr(scope, n.Left)
	r := c.checkExpr(scope, n.Right)
	if l.IsError() || r.IsError() {
		return c.info.set(n, types.Err)
	}
	switch n.Kind {
	case ast.OpPlus, ast.OpMinus, ast.OpMul, ast.OpDiv:
		if l != types.Int || r != types.Int {
			c.sink.Err(lineSpan(n.Line()), "operator %q requires int operands, got %s and %s", n.Kind, l, r)
			return c.info.set(n, types.Err)
		}
		return c.info.set(n, types.Int)
	case ast.OpLt, ast.OpGt:
		if l != types.Int || r != types.Int {
			c.sink.Err(lineSpan(n.Line()), "operator %q requires int operands, got %s and %s", n.Kind, l, r)
			return c.info.set(n, types.Err)
		}
		return c.info.set(n, types.Bool)
	case ast.OpEq:
		if !((l == types.Int && r == types.Int) || (l == types.Bool && r == types.Bool)) {
			c.sink.Err(lineSpan(n.Line()), "operator '==' requires matching int or boolean operands, got %s and %s", l, r)
			return c.info.set(n, types.Err)
		}
		return c.info.set(n, types.Bool)
	case ast.OpAnd, ast.OpOr:
		if l != types.Bool || r != types.Bool {
			c.sink.Err(lineSpan(n.Line()), "operator %q requires boolean operands, got %s and %s", n.Kind, l, r)
			return c.info.set(n, types.Err)
		}
		return c.info.set(n, types.Bool)
	default:
		return c.info.set(n, types.Err)
	}
}

func (c *checker) checkMethodCall(scope *symtab.Scope, n *ast.MethodCall) types.ID {
	recvT := c.checkExpr(scope, n.Receiver)
	argTypes := make([]types.ID, len(n.Args))
	anyArgErr := false
	for i, a := range n.Args {
		argTypes[i] = c.checkExpr(scope, a)
		if argTypes[i].IsError() {
			anyArgErr = true
		}
	}
	if recvT.IsError() || anyArgErr {
		return c.info.set(n, types.Err)
	}
	if recvT.Kind != types.KindClass {
		c.sink.Err(lineSpan(n.Line()), "cannot call method %q on non-class type %s", n.Method, recvT)
		return c.info.set(n, types.Err)
	}
	cls, ok := c.root.LookupClass(recvT.Class)
	if !ok {
		c.sink.Err(lineSpan(n.Line()), "undeclared class %q", recvT.Class)
		return c.info.set(n, types.Err)
	}
	method, ok := cls.Methods[n.Method]
	if !ok {
		c.sink.Err(lineSpan(n.Line()), "class %q has no method %q", cls.Name, n.Method)
		return c.info.set(n, types.Err)
	}
	if len(method.Params) != len(argTypes) {
		c.sink.Err(lineSpan(n.Line()), "method %q expects %d argument(s), got %d", n.Method, len(method.Params), len(argTypes))
		return c.info.set(n, types.Err)
	}
	for i, p := range method.Params {
		if argTypes[i] != p.DeclaredType {
			c.sink.Err(lineSpan(n.Line()), "argument %d of %q: expected %s, got %s", i+1, n.Method, p.DeclaredType, argTypes[i])
			return c.info.set(n, types.Err)
		}
	}
	return c.info.set(n, method.ReturnType)
}
