// Package types gives the type checker and IR generator a small enumerated
// type representation instead of bare strings (spec §9, "Typed-string
// side-channel"), while still rendering to the exact textual forms spec.md's
// diagnostics and type rules use ("int", "boolean", "int[]", a class name,
// "<type-error>", "void").
package types

// Kind discriminates the handful of shapes a MiniJava-subset type can take.
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindIntArray
	KindClass
	KindVoid
	KindError
	// KindStringArray is the opaque type of main's "String[] args" parameter.
	// It has no literals, no operators, and cannot be declared by user code
	// (spec §1); it exists purely so the symbol table can give args a type.
	KindStringArray
)

// ID is a fully-formed type: a Kind plus, for KindClass, the class name.
type ID struct {
	Kind  Kind
	Class string // valid only when Kind == KindClass
}

var (
	Int      = ID{Kind: KindInt}
	Bool     = ID{Kind: KindBool}
	IntArray = ID{Kind: KindIntArray}
	Void     = ID{Kind: KindVoid}
	StringArray = ID{Kind: KindStringArray}
	// Err is the sentinel assigned to any subtree that failed to type-check;
	// it renders as the literal string spec.md calls "<type-error>" and
	// compares equal to itself so that operators checking their operands
	// against Err never cascade duplicate diagnostics.
	Err = ID{Kind: KindError}
)

// Class returns the type ID for a user-defined class named name.
func Class(name string) ID {
	return ID{Kind: KindClass, Class: name}
}

// String renders the type exactly as spec.md's prose and diagnostics do.
func (t ID) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindBool:
		return "boolean"
	case KindIntArray:
		return "int[]"
	case KindVoid:
		return "void"
	case KindError:
		return "<type-error>"
	case KindStringArray:
		return "String[]"
	case KindClass:
		return t.Class
	default:
		return "?"
	}
}

// IsError reports whether t is the error sentinel.
func (t ID) IsError() bool {
	return t.Kind == KindError
}
