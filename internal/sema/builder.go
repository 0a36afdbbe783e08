// Package sema holds the two syntax-directed passes that run between
// parsing and IR generation: the symbol-table builder (spec §4.5) and the
// type checker (spec §4.6). Both are written as a single function per pass
// that pattern-matches on the ast.Node sum type, per spec §9's "Double-
// dispatch visitors" note, rather than as a Visit* method set.
package sema

import (
	"minij/internal/ast"
	"minij/internal/diag"
	"minij/internal/symtab"
	"minij/internal/types"
)

// BuildSymbolTable walks prog and returns the populated root scope. Errors
// (duplicate declarations, unknown types) are reported to sink; the
// returned scope is always non-nil and safe to pass to later stages even if
// sink.HasErrors() is true, since spec §4.5's invariant is "every
// declaration that was successfully inserted has a matching record", not
// "every declaration in the source".
func BuildSymbolTable(prog *ast.Program, sink *diag.Sink) *symtab.Scope {
	root := symtab.NewScope("Program", nil)
	b := &builder{root: root, sink: sink}
	b.declareClassShell(prog.Main.ClassName, prog.Main.Line())
	for _, c := range prog.Classes {
		b.declareClassShell(c.Name, c.Line())
	}
	b.buildMainClass(prog.Main)
	for _, c := range prog.Classes {
		b.buildClass(c)
	}
	return root
}

type builder struct {
	root *symtab.Scope
	sink *diag.Sink
}

// declareClassShell registers the class name before any class body is
// walked, so forward references (a field or parameter typed as a class
// declared later in the file, or a method calling into a class declared
// later) resolve during the type-check pass.
func (b *builder) declareClassShell(name string, line int) {
	if _, exists := b.root.Classes[name]; exists {
		b.sink.Err(lineSpan(line), "duplicate class declaration %q", name)
		return
	}
	b.root.DeclareClass(symtab.NewClass(name))
}

func (b *builder) buildMainClass(m *ast.MainClass) {
	class, _ := b.root.LookupClass(m.ClassName)
	classScope := symtab.NewScope(symtab.ClassScopeName(m.ClassName), b.root)
	classScope.Owner = class

	// Implicit "this" of type <ClassName>, spec §4.5.
	mainMethod := &symtab.Method{
		Name:       "main",
		ReturnType: types.Void,
		Params: []*symtab.Variable{
			{Name: m.ArgName, DeclaredType: types.StringArray},
		},
		Locals: make(map[string]*symtab.Variable),
	}
	class.AddMethod(mainMethod)
	classScope.DeclareMethod(mainMethod)

	methodScope := symtab.NewScope(symtab.MethodScopeName("main"), classScope)
	methodScope.Owner = mainMethod
	methodScope.DeclareVariable(&symtab.Variable{Name: "this", DeclaredType: types.Class(m.ClassName)})
	methodScope.DeclareVariable(mainMethod.Params[0])
	mainMethod.AddLocal(mainMethod.Params[0])
}

func (b *builder) buildClass(c *ast.Class) {
	class, _ := b.root.LookupClass(c.Name)
	classScope := symtab.NewScope(symtab.ClassScopeName(c.Name), b.root)
	classScope.Owner = class

	for _, f := range c.Fields {
		v := &symtab.Variable{Name: f.Name, DeclaredType: b.resolveType(f.Type)}
		if !class.AddField(v) {
			b.sink.Err(lineSpan(f.Line()), "duplicate field declaration %q in class %q", f.Name, c.Name)
			continue
		}
		classScope.DeclareVariable(v)
	}

	for _, m := range c.Methods {
		b.buildMethod(class, classScope, m)
	}
}

func (b *builder) buildMethod(class *symtab.Class, classScope *symtab.Scope, m *ast.Method) {
	method := &symtab.Method{
		Name:       m.Name,
		ReturnType: b.resolveType(m.ReturnType),
		Locals:     make(map[string]*symtab.Variable),
	}
	if !class.AddMethod(method) {
		b.sink.Err(lineSpan(m.Line()), "duplicate method declaration %q in class %q", m.Name, class.Name)
		return
	}
	classScope.DeclareMethod(method)

	methodScope := symtab.NewScope(symtab.MethodScopeName(m.Name), classScope)
	methodScope.Owner = method
	methodScope.DeclareVariable(&symtab.Variable{Name: "this", DeclaredType: types.Class(class.Name)})

	for _, p := range m.Params {
		v := &symtab.Variable{Name: p.Name, DeclaredType: b.resolveType(p.Type)}
		if !methodScope.DeclareVariable(v) {
			b.sink.Err(lineSpan(p.Line()), "duplicate parameter name %q in method %q", p.Name, m.Name)
			continue
		}
		method.Params = append(method.Params, v)
		method.AddLocal(v)
	}

	for _, l := range m.Locals {
		b.declareLocal(methodScope, method, l)
	}
}

// declareLocal inserts a single local-variable declaration into both the
// method's Locals map and its scope.
func (b *builder) declareLocal(scope *symtab.Scope, method *symtab.Method, v *ast.Variable) {
	rec := &symtab.Variable{Name: v.Name, DeclaredType: b.resolveType(v.Type)}
	if !scope.DeclareVariable(rec) {
		b.sink.Err(lineSpan(v.Line()), "duplicate variable declaration %q", v.Name)
		return
	}
	method.AddLocal(rec)
}

// resolveType converts an *ast.Type to a types.ID, reporting an error for an
// undeclared class name. Built-in scalar types always resolve.
func (b *builder) resolveType(t *ast.Type) types.ID {
	switch t.Name {
	case "int":
		return types.Int
	case "boolean":
		return types.Bool
	case "int[]":
		return types.IntArray
	default:
		// A class type. It may be declared later in the file (forward
		// reference), which declareClassShell already made possible; an
		// undeclared name is caught here instead of at use-checking time so
		// every VarDecl gets a consistent error regardless of whether it's
		// ever read.
		if _, ok := b.root.LookupClass(t.Name); !ok {
			b.sink.Err(lineSpan(t.Line()), "undeclared type %q", t.Name)
			return types.Err
		}
		return types.Class(t.Name)
	}
}

func lineSpan(line int) diag.Span {
	return diag.Span{Line: line}
}
