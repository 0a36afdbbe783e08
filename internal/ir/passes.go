package ir

// Pass is one IR optimisation pass (spec §4.8): it walks cfg in place and
// reports whether it changed anything.
type Pass interface {
	Run(cfg *CFG) bool
}

// PassManager holds an ordered list of passes and runs each exactly once
// per Run call, per spec §4.8 ("A fixed-point loop is not required").
type PassManager struct {
	passes []Pass
}

// NewPassManager returns a manager running the standard pipeline: constant
// folding, conditional-jump folding, unreachable-block elimination (spec
// §4.9-§4.11, in that order).
func NewPassManager() *PassManager {
	return &PassManager{passes: []Pass{
		ConstantFolding{},
		CondJumpFolding{},
		UnreachableBlockElimination{},
	}}
}

// Run executes every pass once, in order, over cfg and reports whether any
// of them changed it.
func (pm *PassManager) Run(cfg *CFG) bool {
	changed := false
	for _, p := range pm.passes {
		if p.Run(cfg) {
			changed = true
		}
	}
	return changed
}
