package ir

// CondJumpFolding implements spec §4.10: a CondJump whose condition is a
// known immediate resolves statically, so it can be replaced by an
// unconditional Jump and the block's successor set collapsed to one edge.
type CondJumpFolding struct{}

func (CondJumpFolding) Run(cfg *CFG) bool {
	changed := false
	for _, root := range cfg.MethodRoots {
		walkBlocks(root, func(b *BBlock) {
			if foldCondJump(b) {
				changed = true
			}
		})
	}
	return changed
}

func foldCondJump(b *BBlock) bool {
	idx := -1
	for i, t := range b.Instructions {
		if t.Op == OpCondJump {
			idx = i
			break
		}
	}
	if idx == -1 || !b.Instructions[idx].Lhs.IsImmediate() {
		return false
	}
	cj := b.Instructions[idx]

	// The generator always emits an unconditional Jump to the true-branch
	// target immediately after the CondJump; that is the fall-through label
	// when the branch is not taken.
	fallthroughLabel := ""
	hasFollowingJump := idx+1 < len(b.Instructions) && b.Instructions[idx+1].Op == OpJump
	if hasFollowingJump {
		fallthroughLabel = b.Instructions[idx+1].Label
	} else if b.TrueExit != nil {
		fallthroughLabel = b.TrueExit.Name
	}

	var target string
	var newTrue, newFalse *BBlock
	if cj.Lhs.Value == 0 {
		target = cj.Label
		newTrue, newFalse = b.FalseExit, nil
	} else {
		target = fallthroughLabel
		newTrue, newFalse = b.TrueExit, nil
	}

	rewritten := TAC{Op: OpJump, Label: target}
	newInstrs := make([]TAC, 0, len(b.Instructions))
	newInstrs = append(newInstrs, b.Instructions[:idx]...)
	newInstrs = append(newInstrs, rewritten)
	rest := b.Instructions[idx+1:]
	if hasFollowingJump {
		rest = rest[1:]
	}
	newInstrs = append(newInstrs, rest...)
	b.Instructions = newInstrs

	b.TrueExit = newTrue
	b.FalseExit = newFalse
	return true
}
