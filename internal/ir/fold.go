package ir

// ConstantFolding implements spec §4.9: per basic block, track a local
// environment of variable-name to known-constant-integer-value, substitute
// known variables with immediates, fold pure operators whose operands are
// both now constant, and invalidate the environment on anything it can't
// reason about.
type ConstantFolding struct{}

func (ConstantFolding) Run(cfg *CFG) bool {
	changed := false
	for _, root := range cfg.MethodRoots {
		walkBlocks(root, func(b *BBlock) {
			if foldBlock(b) {
				changed = true
			}
		})
	}
	return changed
}

func foldBlock(b *BBlock) bool {
	env := make(map[string]int64)
	changed := false
	for i := range b.Instructions {
		t := &b.Instructions[i]

		// 1. Substitution.
		if sub, ok := substitute(t.Lhs, env); ok {
			t.Lhs = sub
			changed = true
		}
		if sub, ok := substitute(t.Rhs, env); ok {
			t.Rhs = sub
			changed = true
		}

		// 2. Fold.
		if folded, val, ok := tryFold(*t); ok {
			*t = folded
			if dest, writes := t.WritesVariable(); writes {
				env[dest] = val
			}
			changed = true
			continue
		}

		// 3. Invalidate.
		if t.Op == OpMethodCall {
			env = make(map[string]int64)
			continue
		}
		if dest, writes := t.WritesVariable(); writes {
			delete(env, dest)
		}
	}
	return changed
}

func substitute(o Operand, env map[string]int64) (Operand, bool) {
	if o.Kind != OperandVariable {
		return o, false
	}
	if v, ok := env[o.Name]; ok {
		return Imm(v), true
	}
	return o, false
}

// tryFold attempts to replace t with Copy(immediate, result). Division by
// zero is never folded; comparison/logical/Not fold to 0/1.
func tryFold(t TAC) (TAC, int64, bool) {
	dest, writes := t.WritesVariable()
	if !writes || t.Op == OpCopy {
		return t, 0, false
	}
	switch t.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpLt, OpGt, OpEq, OpAnd, OpOr:
		if !t.Lhs.IsImmediate() || !t.Rhs.IsImmediate() {
			return t, 0, false
		}
		a, b := t.Lhs.Value, t.Rhs.Value
		var v int64
		switch t.Op {
		case OpAdd:
			v = a + b
		case OpSub:
			v = a - b
		case OpMul:
			v = a * b
		case OpDiv:
			if b == 0 {
				return t, 0, false
			}
			v = a / b
		case OpLt:
			v = boolInt(a < b)
		case OpGt:
			v = boolInt(a > b)
		case OpEq:
			v = boolInt(a == b)
		case OpAnd:
			v = boolInt(a != 0 && b != 0)
		case OpOr:
			v = boolInt(a != 0 || b != 0)
		}
		return TAC{Op: OpCopy, Result: dest, Rhs: Imm(v)}, v, true

	case OpNot:
		if !t.Rhs.IsImmediate() {
			return t, 0, false
		}
		v := boolInt(t.Rhs.Value == 0)
		return TAC{Op: OpCopy, Result: dest, Rhs: Imm(v)}, v, true
	}
	return t, 0, false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// walkBlocks visits every block reachable from root via TrueExit/FalseExit
// exactly once, depth-first, the order the emitter and the other passes
// also use (spec §4.12).
func walkBlocks(root *BBlock, visit func(*BBlock)) {
	seen := make(map[*BBlock]bool)
	var walk func(b *BBlock)
	walk = func(b *BBlock) {
		if b == nil || seen[b] {
			return
		}
		seen[b] = true
		visit(b)
		walk(b.TrueExit)
		walk(b.FalseExit)
	}
	walk(root)
}
