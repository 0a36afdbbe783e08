// Package symtab implements the two-level scoped symbol table described in
// spec §3/§4.5: a tree of Scopes rooted at the program, with one child Scope
// per class and one grandchild Scope per method.
package symtab

import (
	"minij/internal/collections"
	"minij/internal/types"
)

// Record is the common base of every symbol-table entry.
type Record interface {
	Id() string
	Type() types.ID
}

// Variable is a field, parameter, or local record.
type Variable struct {
	Name         string
	DeclaredType types.ID
}

func (v *Variable) Id() string     { return v.Name }
func (v *Variable) Type() types.ID { return v.DeclaredType }

// Method is a method record: its signature plus its locals, keyed by name
// for lookup and also held as an ordered parameter list because call-site
// argument binding is positional.
type Method struct {
	Name       string
	ReturnType types.ID
	Params     []*Variable
	Locals     map[string]*Variable
	LocalOrder *collections.OrderedSet[string]
}

func (m *Method) Id() string     { return m.Name }
func (m *Method) Type() types.ID { return m.ReturnType }

// ParamNames returns the parameter names in declaration order.
func (m *Method) ParamNames() []string {
	names := make([]string, len(m.Params))
	for i, p := range m.Params {
		names[i] = p.Name
	}
	return names
}

// AddLocal inserts a local (a source-declared variable or a generator
// temporary) keyed by name, recording insertion order for the bytecode
// emitter's "variables" list (spec §4.12). Re-adding the same name (the
// generator calling this for a temp that happens to collide is impossible
// since temp names are never reused, but source locals are added once by
// the symbol-table builder) is a no-op on the map but still safe.
func (m *Method) AddLocal(v *Variable) {
	if m.Locals == nil {
		m.Locals = make(map[string]*Variable)
	}
	if m.LocalOrder == nil {
		m.LocalOrder = collections.NewOrderedSet[string]()
	}
	if _, exists := m.Locals[v.Name]; !exists {
		m.Locals[v.Name] = v
	}
	m.LocalOrder.Add(v.Name)
}

// Class is a class record: its own type equals its name (spec §3).
type Class struct {
	Name        string
	Fields      map[string]*Variable
	FieldOrder  *collections.OrderedSet[string]
	Methods     map[string]*Method
	MethodOrder *collections.OrderedSet[string]
}

func (c *Class) Id() string     { return c.Name }
func (c *Class) Type() types.ID { return types.Class(c.Name) }

// NewClass returns an empty Class record named name.
func NewClass(name string) *Class {
	return &Class{
		Name:        name,
		Fields:      make(map[string]*Variable),
		FieldOrder:  collections.NewOrderedSet[string](),
		Methods:     make(map[string]*Method),
		MethodOrder: collections.NewOrderedSet[string](),
	}
}

// AddField inserts a field, returning false if the name is already taken in
// this class (duplicate declaration, spec §4.5's "within a single scope"
// invariant).
func (c *Class) AddField(v *Variable) bool {
	if _, exists := c.Fields[v.Name]; exists {
		return false
	}
	c.Fields[v.Name] = v
	c.FieldOrder.Add(v.Name)
	return true
}

// AddMethod inserts a method, returning false on a duplicate name.
func (c *Class) AddMethod(m *Method) bool {
	if _, exists := c.Methods[m.Name]; exists {
		return false
	}
	c.Methods[m.Name] = m
	c.MethodOrder.Add(m.Name)
	return true
}

// Scope is a node in the symbol-table tree. Name matches spec §4.5's
// convention ("Class: <name>", "Method: <name>") so later passes can
// re-enter a scope by name.
type Scope struct {
	Name     string
	Parent   *Scope
	Children map[string]*Scope

	Variables map[string]*Variable
	Methods   map[string]*Method
	Classes   map[string]*Class

	// Owner is the Class or Method record this scope belongs to, or nil for
	// the program (root) scope.
	Owner Record
}

// NewScope returns an empty scope named name, parented to parent (nil for
// the root).
func NewScope(name string, parent *Scope) *Scope {
	s := &Scope{
		Name:      name,
		Parent:    parent,
		Children:  make(map[string]*Scope),
		Variables: make(map[string]*Variable),
		Methods:   make(map[string]*Method),
		Classes:   make(map[string]*Class),
	}
	if parent != nil {
		parent.Children[name] = s
	}
	return s
}

// DeclareVariable inserts v into this scope's own variable map, returning
// false if the name already exists here (ancestors are not consulted: a
// local is allowed to shadow a field by name at a different scope level,
// but spec §4.5 only forbids a collision within the same scope).
func (s *Scope) DeclareVariable(v *Variable) bool {
	if _, exists := s.Variables[v.Name]; exists {
		return false
	}
	s.Variables[v.Name] = v
	return true
}

// DeclareMethod inserts m, returning false on a same-scope duplicate.
func (s *Scope) DeclareMethod(m *Method) bool {
	if _, exists := s.Methods[m.Name]; exists {
		return false
	}
	s.Methods[m.Name] = m
	return true
}

// DeclareClass inserts c, returning false on a same-scope duplicate.
func (s *Scope) DeclareClass(c *Class) bool {
	if _, exists := s.Classes[c.Name]; exists {
		return false
	}
	s.Classes[c.Name] = c
	return true
}

// LookupVariable walks this scope and its ancestors for name.
func (s *Scope) LookupVariable(name string) (*Variable, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if v, ok := sc.Variables[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// LookupClass walks this scope and its ancestors for a class named name.
// Class declarations only ever live in the root scope, but the walk is
// written generically so nested lookups (from inside a method scope) work
// without special-casing the tree depth.
func (s *Scope) LookupClass(name string) (*Class, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if c, ok := sc.Classes[name]; ok {
			return c, true
		}
	}
	return nil, false
}

// EnclosingClass walks up from s to find the nearest Method or Class owner
// and returns the Class it belongs to. Every method scope's parent is its
// class scope, so this never has to walk past one level in practice, but
// the loop is written to tolerate being called from any depth.
func (s *Scope) EnclosingClass() (*Class, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if c, ok := sc.Owner.(*Class); ok {
			return c, true
		}
	}
	return nil, false
}

// EnclosingMethod returns the nearest Method owner, if any.
func (s *Scope) EnclosingMethod() (*Method, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if m, ok := sc.Owner.(*Method); ok {
			return m, true
		}
	}
	return nil, false
}

// Child returns the named child scope, if built-table has created one.
func (s *Scope) Child(name string) (*Scope, bool) {
	c, ok := s.Children[name]
	return c, ok
}

// ClassScopeName is the builder's naming convention for a class's scope.
func ClassScopeName(className string) string { return "Class: " + className }

// MethodScopeName is the builder's naming convention for a method's scope.
func MethodScopeName(methodName string) string { return "Method: " + methodName }
