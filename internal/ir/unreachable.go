package ir

// UnreachableBlockElimination implements spec §4.11: flood-fill from every
// method root over TrueExit/FalseExit and drop blocks that weren't reached.
// "Dropping" here means removing them from CFG.AllBlocks (the emitter and
// the other passes only ever walk from MethodRoots via successor pointers,
// so an unreferenced block in AllBlocks is already inert; pruning the slice
// just keeps the bookkeeping list honest and lets the pass report whether
// it changed anything).
type UnreachableBlockElimination struct{}

func (UnreachableBlockElimination) Run(cfg *CFG) bool {
	reachable := make(map[*BBlock]bool)
	for _, root := range cfg.MethodRoots {
		walkBlocks(root, func(b *BBlock) {
			reachable[b] = true
		})
	}

	if cfg.current != nil && !reachable[cfg.current] {
		cfg.current = nil
	}

	kept := cfg.AllBlocks[:0]
	changed := false
	for _, b := range cfg.AllBlocks {
		if reachable[b] {
			kept = append(kept, b)
		} else {
			changed = true
		}
	}
	cfg.AllBlocks = kept
	return changed
}
