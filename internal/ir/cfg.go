package ir

// BBlock is a basic block: a maximal straight-line TAC sequence with up to
// two successors (spec §3). A block with one successor uses TrueExit for
// fall-through/unconditional; a block terminated by CondJump sets both.
type BBlock struct {
	Name         string
	Instructions []TAC
	TrueExit     *BBlock
	FalseExit    *BBlock

	// Generated marks blocks already lowered by the bytecode emitter's
	// traversal. Visited is not set or read by any traversal in this module:
	// the Graphviz dumper and the IR passes track visited blocks in maps of
	// their own.
	Visited   bool
	Generated bool
}

// AddInstruction appends tac to the block.
func (b *BBlock) AddInstruction(tac TAC) {
	b.Instructions = append(b.Instructions, tac)
}

// CFG owns every basic block belonging to a single BytecodeProgram's worth
// of methods: one entry per method root, reachable via MethodRoots, plus the
// construction-time cursor and name counters.
type CFG struct {
	MethodRoots []*BBlock // one per method, in declaration order; index 0 is the program entry
	AllBlocks   []*BBlock // every block ever allocated, for the unreachable-block pass to prune

	current    *BBlock
	tempCount  int
	blockCount int
}

// NewCFG returns an empty graph.
func NewCFG() *CFG {
	return &CFG{}
}

// NewBlock allocates a fresh anonymous block named "block_<k>" without
// linking it into any method yet.
func (g *CFG) NewBlock() *BBlock {
	g.blockCount++
	b := &BBlock{Name: blockName(g.blockCount)}
	g.AllBlocks = append(g.AllBlocks, b)
	return b
}

func blockName(k int) string {
	return "block_" + itoa(k)
}

func itoa(k int) string {
	if k == 0 {
		return "0"
	}
	neg := k < 0
	if neg {
		k = -k
	}
	var buf [20]byte
	i := len(buf)
	for k > 0 {
		i--
		buf[i] = byte('0' + k%10)
		k /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// AddMethodRootBlock allocates and registers the root block for
// <className>.<methodName>, makes it the current block, and returns it.
func (g *CFG) AddMethodRootBlock(className, methodName string) *BBlock {
	b := &BBlock{Name: className + "." + methodName}
	g.MethodRoots = append(g.MethodRoots, b)
	g.AllBlocks = append(g.AllBlocks, b)
	g.current = b
	return b
}

// Current returns the block instructions are currently appended to.
func (g *CFG) Current() *BBlock { return g.current }

// SetCurrent repositions the construction cursor, used when a pass (or the
// generator itself, when entering a new block) needs to redirect subsequent
// AddInstruction calls.
func (g *CFG) SetCurrent(b *BBlock) { g.current = b }

// AddInstruction appends tac to the current block.
func (g *CFG) AddInstruction(tac TAC) {
	g.current.AddInstruction(tac)
}

// FreshTemp returns a new temporary operand name, "_t<k>", unique within
// this CFG's lifetime.
func (g *CFG) FreshTemp() string {
	g.tempCount++
	return "_t" + itoa(g.tempCount)
}
