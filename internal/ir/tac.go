// Package ir lowers a type-checked AST into a control-flow graph of
// three-address-code instructions (spec §4.7), then runs the optimisation
// passes of spec §4.9-§4.11 over it before bytecode emission.
package ir

import "fmt"

// OperandKind discriminates the two shapes an Operand can take (spec §3's
// "tagged union of Variable-name or Immediate").
type OperandKind int

const (
	OperandVariable OperandKind = iota
	OperandImmediate
)

// Operand is a value position in a TAC.
type Operand struct {
	Kind  OperandKind
	Name  string // valid when Kind == OperandVariable
	Value int64  // valid when Kind == OperandImmediate
}

// Var builds a variable operand.
func Var(name string) Operand { return Operand{Kind: OperandVariable, Name: name} }

// Imm builds an immediate operand.
func Imm(v int64) Operand { return Operand{Kind: OperandImmediate, Value: v} }

func (o Operand) String() string {
	if o.Kind == OperandImmediate {
		return fmt.Sprintf("%d", o.Value)
	}
	return o.Name
}

// IsImmediate reports whether o carries a compile-time-known integer.
func (o Operand) IsImmediate() bool { return o.Kind == OperandImmediate }

// Op names the TAC variant (spec §3's table).
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpLt
	OpGt
	OpEq
	OpAnd
	OpOr
	OpNot
	OpCopy
	OpArrayAccess
	OpArrayCopy
	OpArrayLength
	OpNew
	OpNewArray
	OpJump
	OpCondJump
	OpParam
	OpMethodCall
	OpReturn
	OpPrint
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "Add"
	case OpSub:
		return "Sub"
	case OpMul:
		return "Mul"
	case OpDiv:
		return "Div"
	case OpLt:
		return "Lt"
	case OpGt:
		return "Gt"
	case OpEq:
		return "Eq"
	case OpAnd:
		return "And"
	case OpOr:
		return "Or"
	case OpNot:
		return "Not"
	case OpCopy:
		return "Copy"
	case OpArrayAccess:
		return "ArrayAccess"
	case OpArrayCopy:
		return "ArrayCopy"
	case OpArrayLength:
		return "ArrayLength"
	case OpNew:
		return "New"
	case OpNewArray:
		return "NewArray"
	case OpJump:
		return "Jump"
	case OpCondJump:
		return "CondJump"
	case OpParam:
		return "Param"
	case OpMethodCall:
		return "MethodCall"
	case OpReturn:
		return "Return"
	case OpPrint:
		return "Print"
	default:
		return "?"
	}
}

// TAC is a single three-address-code instruction. Not every field is
// meaningful for every Op; String below shows which of
// Result/Lhs/Rhs/Label/ArgCount a given variant actually uses.
type TAC struct {
	Op       Op
	Result   string // destination variable name, when the op writes one
	Lhs      Operand
	Rhs      Operand
	Label    string // jump target, or method label for MethodCall
	ArgCount int    // MethodCall's argument count (receiver excluded)
}

func (t TAC) String() string {
	switch t.Op {
	case OpJump:
		return fmt.Sprintf("Jump %s", t.Label)
	case OpCondJump:
		return fmt.Sprintf("CondJump %s, %s", t.Label, t.Lhs)
	case OpParam:
		return fmt.Sprintf("Param %s", t.Lhs)
	case OpMethodCall:
		return fmt.Sprintf("%s := call %s on %s, %d", t.Result, t.Label, t.Lhs, t.ArgCount)
	case OpReturn:
		return fmt.Sprintf("Return %s", t.Rhs)
	case OpPrint:
		return fmt.Sprintf("Print %s", t.Rhs)
	case OpCopy:
		return fmt.Sprintf("%s := %s", t.Result, t.Rhs)
	case OpNot:
		return fmt.Sprintf("%s := !%s", t.Result, t.Rhs)
	case OpArrayLength:
		return fmt.Sprintf("%s := length %s", t.Result, t.Rhs)
	case OpNew:
		return fmt.Sprintf("%s := new %s", t.Result, t.Label)
	case OpNewArray:
		return fmt.Sprintf("%s := new int[%s]", t.Result, t.Rhs)
	case OpArrayAccess:
		return fmt.Sprintf("%s := %s[%s]", t.Result, t.Lhs, t.Rhs)
	case OpArrayCopy:
		return fmt.Sprintf("%s[%s] := %s", t.Result, t.Lhs, t.Rhs)
	default:
		return fmt.Sprintf("%s := %s %s %s", t.Result, t.Lhs, t.Op, t.Rhs)
	}
}

// WritesVariable reports the name this instruction assigns to, if any; used
// by the constant-folding pass to know when to invalidate an environment
// entry.
func (t TAC) WritesVariable() (string, bool) {
	switch t.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpLt, OpGt, OpEq, OpAnd, OpOr, OpNot,
		OpCopy, OpArrayAccess, OpArrayLength, OpNew, OpNewArray, OpMethodCall:
		if t.Result != "" {
			return t.Result, true
		}
	}
	return "", false
}
