package bytecode

import (
	"strings"

	"minij/internal/ir"
	"minij/internal/symtab"
)

// Emit lowers cfg into a Program per spec §4.12: per method root, a Method
// named "<ClassName>.<methodName>" whose Variables/Fields come from the
// symbol table (insertion order), and one MethodBlock per basic block
// reachable from the root in depth-first trueExit-then-falseExit order. The
// program's entry is cfg's first method root; each of its blocks that does
// not end in a JMP (where its control flow ends; for a straight-line main,
// its only block) gets a trailing STOP.
func Emit(cfg *ir.CFG, root *symtab.Scope) *Program {
	prog := &Program{}
	for i, mroot := range cfg.MethodRoots {
		className, methodName := splitLabel(mroot.Name)
		class, _ := root.LookupClass(className)
		classScope, _ := root.Child(symtab.ClassScopeName(className))
		methodScope, _ := classScope.Child(symtab.MethodScopeName(methodName))
		method, _ := methodScope.Owner.(*symtab.Method)

		m := &Method{Label: mroot.Name}
		if method != nil && method.LocalOrder != nil {
			m.Variables = method.LocalOrder.Values()
		}
		if class != nil {
			m.Fields = class.FieldOrder.Values()
		}

		blocks := emitBlocks(mroot)
		// Reverse-order STORE prelude for formal parameters (spec §4.12).
		// The entry method (i == 0, always Main.main) is never reached via a
		// CALL instruction — the VM enters it directly in Run() — so there is
		// no receiver/argument push on the data stack for it to pop here.
		if i != 0 && method != nil && len(method.Params) > 0 && len(blocks) > 0 {
			names := method.ParamNames()
			prelude := make([]Instruction, 0, len(names))
			for j := len(names) - 1; j >= 0; j-- {
				prelude = append(prelude, Instruction{Op: OpStore, StrParam: names[j]})
			}
			blocks[0].Instructions = append(append([]Instruction{}, prelude...), blocks[0].Instructions...)
		}
		if i == 0 {
			for _, b := range blocks {
				n := len(b.Instructions)
				if n == 0 || b.Instructions[n-1].Op != OpJmp {
					b.Instructions = append(b.Instructions, Instruction{Op: OpStop})
				}
			}
		}
		m.Blocks = blocks
		prog.Methods = append(prog.Methods, m)
	}
	return prog
}

func splitLabel(label string) (class, method string) {
	i := strings.IndexByte(label, '.')
	if i < 0 {
		return label, ""
	}
	return label[:i], label[i+1:]
}

// emitBlocks walks root depth-first over TrueExit then FalseExit, marking
// Generated, and lowers each reached block's TACs in order.
func emitBlocks(root *ir.BBlock) []*MethodBlock {
	var out []*MethodBlock
	var walk func(b *ir.BBlock)
	walk = func(b *ir.BBlock) {
		if b == nil || b.Generated {
			return
		}
		b.Generated = true
		mb := NewMethodBlock(b.Name)
		for _, t := range b.Instructions {
			lowerTAC(mb, t)
		}
		out = append(out, mb)
		walk(b.TrueExit)
		walk(b.FalseExit)
	}
	walk(root)
	return out
}

func pushOperand(mb *MethodBlock, o ir.Operand) {
	if o.IsImmediate() {
		mb.Const(o.Value)
	} else {
		mb.Load(o.Name)
	}
}

func lowerTAC(mb *MethodBlock, t ir.TAC) {
	switch t.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpLt, ir.OpGt, ir.OpEq, ir.OpAnd, ir.OpOr:
		pushOperand(mb, t.Lhs)
		pushOperand(mb, t.Rhs)
		mb.push(Instruction{Op: binOpcode(t.Op)})
		mb.Store(t.Result)

	case ir.OpNot:
		pushOperand(mb, t.Rhs)
		mb.Not()
		mb.Store(t.Result)

	case ir.OpCopy:
		pushOperand(mb, t.Rhs)
		mb.Store(t.Result)

	case ir.OpArrayAccess:
		pushOperand(mb, t.Lhs)
		pushOperand(mb, t.Rhs)
		mb.ArrayLoad()
		mb.Store(t.Result)

	case ir.OpArrayCopy:
		mb.Load(t.Result)
		pushOperand(mb, t.Lhs)
		pushOperand(mb, t.Rhs)
		mb.ArrayStore()

	case ir.OpArrayLength:
		pushOperand(mb, t.Rhs)
		mb.ArrayLength()
		mb.Store(t.Result)

	case ir.OpNew:
		mb.New(t.Label)
		mb.Store(t.Result)

	case ir.OpNewArray:
		pushOperand(mb, t.Rhs)
		mb.NewArray()
		mb.Store(t.Result)

	case ir.OpJump:
		mb.Jmp(t.Label)

	case ir.OpCondJump:
		pushOperand(mb, t.Lhs)
		mb.Cjmp(t.Label)

	case ir.OpParam:
		pushOperand(mb, t.Lhs)

	case ir.OpMethodCall:
		pushOperand(mb, t.Lhs)
		mb.Call(t.Label)
		mb.Store(t.Result)

	case ir.OpReturn:
		pushOperand(mb, t.Rhs)
		mb.Ret()

	case ir.OpPrint:
		pushOperand(mb, t.Rhs)
		mb.Print()
	}
}

func binOpcode(op ir.Op) Opcode {
	switch op {
	case ir.OpAdd:
		return OpAdd
	case ir.OpSub:
		return OpSub
	case ir.OpMul:
		return OpMul
	case ir.OpDiv:
		return OpDiv
	case ir.OpLt:
		return OpLt
	case ir.OpGt:
		return OpGt
	case ir.OpEq:
		return OpEq
	case ir.OpAnd:
		return OpAnd
	case ir.OpOr:
		return OpOr
	default:
		return OpAdd
	}
}
