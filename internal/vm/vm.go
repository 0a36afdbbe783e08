// Package vm implements the stack-based interpreter of spec §4.13: a data
// stack of 64-bit signed values, a stack of activation records, a grow-only
// object heap, and a grow-only array heap.
package vm

import (
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"minij/internal/bytecode"
)

// ObjectInstance is one entry in the object heap. References into the heap
// are 1-based; 0 is the null reference.
type ObjectInstance struct {
	ClassName string
	Fields    map[string]int64
}

// Activation is one entry in the call stack.
type Activation struct {
	Method       *bytecode.Method
	Locals       map[string]int64
	CurrentBlock string
	PC           int
	ThisRef      int64
}

// VM interprets a single bytecode.Program to completion or fault.
type VM struct {
	Program *bytecode.Program
	Out     io.Writer
	Logger  *zap.Logger

	dataStack   []int64
	activations []*Activation
	objects     []*ObjectInstance
	arrays      [][]int64

	// blockCache memoizes method-label to name-indexed-block lookups, since
	// the run loop re-resolves the current block by name on every instruction
	// fetch (CALL itself finds the method via Program.Lookup); the program is
	// immutable once loaded so the cache never needs invalidation.
	blockCache *lru.Cache
}

// New returns a VM ready to run prog. A nil logger is replaced with a no-op
// one; a nil out discards PRINT output.
func New(prog *bytecode.Program, out io.Writer, logger *zap.Logger) *VM {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	cache, _ := lru.New(64)
	return &VM{Program: prog, Out: out, Logger: logger, blockCache: cache}
}

type blockIndex map[string]*bytecode.MethodBlock

func (v *VM) blocksOf(m *bytecode.Method) blockIndex {
	if cached, ok := v.blockCache.Get(m.Label); ok {
		return cached.(blockIndex)
	}
	idx := make(blockIndex, len(m.Blocks))
	for _, b := range m.Blocks {
		idx[b.Name] = b
	}
	v.blockCache.Add(m.Label, idx)
	return idx
}

// Run executes the program's entry method until STOP or a fault.
func (v *VM) Run() error {
	entry := v.Program.Entry()
	if entry == nil || len(entry.Blocks) == 0 {
		return newFault("empty-program", "program has no entry method")
	}
	v.pushActivation(entry, 0)
	v.Logger.Debug("vm start", zap.String("entry", entry.Label))

	for {
		act := v.current()
		block, ok := v.blocksOf(act.Method)[act.CurrentBlock]
		if !ok {
			return faultUnknownBlock(act.CurrentBlock)
		}
		if act.PC >= len(block.Instructions) {
			return newFault("pc-overrun", "program counter ran past the end of block %q", block.Name)
		}
		inst := block.Instructions[act.PC]
		act.PC++

		if done, err := v.step(inst); err != nil {
			return err
		} else if done {
			v.Logger.Debug("vm stop")
			return nil
		}
	}
}

func (v *VM) current() *Activation {
	return v.activations[len(v.activations)-1]
}

func (v *VM) pushActivation(m *bytecode.Method, thisRef int64) {
	locals := make(map[string]int64, len(m.Variables))
	for _, name := range m.Variables {
		locals[name] = 0
	}
	entryBlock := ""
	if len(m.Blocks) > 0 {
		entryBlock = m.Blocks[0].Name
	}
	v.activations = append(v.activations, &Activation{Method: m, Locals: locals, CurrentBlock: entryBlock, ThisRef: thisRef})
}

func (v *VM) push(x int64) { v.dataStack = append(v.dataStack, x) }

func (v *VM) pop(op string) (int64, error) {
	if len(v.dataStack) == 0 {
		return 0, faultStackUnderflow(op)
	}
	n := len(v.dataStack) - 1
	x := v.dataStack[n]
	v.dataStack = v.dataStack[:n]
	return x, nil
}

// step executes a single instruction against the current activation,
// reporting (true, nil) on STOP.
func (v *VM) step(inst bytecode.Instruction) (bool, error) {
	act := v.current()
	switch inst.Op {
	case bytecode.OpConst:
		v.push(inst.IntParam)

	case bytecode.OpLoad:
		val, err := v.load(act, inst.StrParam)
		if err != nil {
			return false, err
		}
		v.push(val)

	case bytecode.OpStore:
		val, err := v.pop("STORE")
		if err != nil {
			return false, err
		}
		if err := v.store(act, inst.StrParam, val); err != nil {
			return false, err
		}

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
		bytecode.OpLt, bytecode.OpGt, bytecode.OpEq, bytecode.OpAnd, bytecode.OpOr:
		a, err := v.pop(inst.Op.String())
		if err != nil {
			return false, err
		}
		b, err := v.pop(inst.Op.String())
		if err != nil {
			return false, err
		}
		result, err := binArith(inst.Op, a, b)
		if err != nil {
			return false, err
		}
		v.push(result)

	case bytecode.OpNot:
		a, err := v.pop("NOT")
		if err != nil {
			return false, err
		}
		v.push(boolInt(a == 0))

	case bytecode.OpJmp:
		act.CurrentBlock = inst.StrParam
		act.PC = 0

	case bytecode.OpCjmp:
		c, err := v.pop("CJMP")
		if err != nil {
			return false, err
		}
		if c == 0 {
			act.CurrentBlock = inst.StrParam
			act.PC = 0
		}

	case bytecode.OpNew:
		v.objects = append(v.objects, &ObjectInstance{ClassName: inst.StrParam, Fields: make(map[string]int64)})
		v.push(int64(len(v.objects)))

	case bytecode.OpNewArray:
		length, err := v.pop("NEW_ARRAY")
		if err != nil {
			return false, err
		}
		if length < 0 {
			return false, newFault("negative-array-length", "NEW_ARRAY with negative length %d", length)
		}
		v.arrays = append(v.arrays, make([]int64, length))
		v.push(int64(len(v.arrays)))

	case bytecode.OpArrayLoad:
		i, err := v.pop("ARRAY_LOAD")
		if err != nil {
			return false, err
		}
		r, err := v.pop("ARRAY_LOAD")
		if err != nil {
			return false, err
		}
		arr, err := v.array(r)
		if err != nil {
			return false, err
		}
		if i < 0 || int(i) >= len(arr) {
			return false, faultOutOfBounds(i, len(arr))
		}
		v.push(arr[i])

	case bytecode.OpArrayStore:
		val, err := v.pop("ARRAY_STORE")
		if err != nil {
			return false, err
		}
		i, err := v.pop("ARRAY_STORE")
		if err != nil {
			return false, err
		}
		r, err := v.pop("ARRAY_STORE")
		if err != nil {
			return false, err
		}
		arr, err := v.array(r)
		if err != nil {
			return false, err
		}
		if i < 0 || int(i) >= len(arr) {
			return false, faultOutOfBounds(i, len(arr))
		}
		arr[i] = val

	case bytecode.OpArrayLength:
		r, err := v.pop("ARRAY_LENGTH")
		if err != nil {
			return false, err
		}
		arr, err := v.array(r)
		if err != nil {
			return false, err
		}
		v.push(int64(len(arr)))

	case bytecode.OpCall:
		return false, v.call(inst.StrParam)

	case bytecode.OpRet:
		return false, v.ret()

	case bytecode.OpPrint:
		val, err := v.pop("PRINT")
		if err != nil {
			return false, err
		}
		fmt.Fprintf(v.Out, "%d\n", val)

	case bytecode.OpStop:
		return true, nil

	default:
		return false, faultUnknownOpcode(byte(inst.Op))
	}
	return false, nil
}

func (v *VM) load(act *Activation, name string) (int64, error) {
	if name == "this" {
		return act.ThisRef, nil
	}
	if act.Method.IsLocal(name) {
		return act.Locals[name], nil
	}
	if act.Method.IsField(name) {
		obj, err := v.object(act.ThisRef)
		if err != nil {
			return 0, err
		}
		return obj.Fields[name], nil
	}
	return 0, faultUnknownVariable(name)
}

func (v *VM) store(act *Activation, name string, val int64) error {
	if name == "this" {
		act.ThisRef = val
		return nil
	}
	if act.Method.IsLocal(name) {
		act.Locals[name] = val
		return nil
	}
	if act.Method.IsField(name) {
		obj, err := v.object(act.ThisRef)
		if err != nil {
			return err
		}
		obj.Fields[name] = val
		return nil
	}
	return faultUnknownVariable(name)
}

func (v *VM) object(ref int64) (*ObjectInstance, error) {
	if ref <= 0 || int(ref) > len(v.objects) {
		return nil, faultNullReceiver()
	}
	return v.objects[ref-1], nil
}

func (v *VM) array(ref int64) ([]int64, error) {
	if ref <= 0 || int(ref) > len(v.arrays) {
		return nil, faultNullReceiver()
	}
	return v.arrays[ref-1], nil
}

// call implements the CALL opcode: the receiver was pushed immediately
// before CALL by the emitter's "LOAD receiver; CALL label" lowering, so it
// is popped here and installed as the new activation's this-reference
// (spec §4.13 / §9's CALL-semantics design note).
func (v *VM) call(label string) error {
	method, ok := v.Program.Lookup(label)
	if !ok {
		return faultUnknownMethod(label)
	}
	receiver, err := v.pop("CALL")
	if err != nil {
		return err
	}
	v.pushActivation(method, receiver)
	return nil
}

func (v *VM) ret() error {
	if len(v.activations) <= 1 {
		return faultEmptyActivationStack()
	}
	v.activations = v.activations[:len(v.activations)-1]
	return nil
}

func binArith(op bytecode.Opcode, a, b int64) (int64, error) {
	switch op {
	case bytecode.OpAdd:
		return b + a, nil
	case bytecode.OpSub:
		return b - a, nil
	case bytecode.OpMul:
		return a * b, nil
	case bytecode.OpDiv:
		if a == 0 {
			return 0, faultDivByZero()
		}
		return b / a, nil
	case bytecode.OpLt:
		return boolInt(b < a), nil
	case bytecode.OpGt:
		return boolInt(b > a), nil
	case bytecode.OpEq:
		return boolInt(a == b), nil
	case bytecode.OpAnd:
		return boolInt(a != 0 && b != 0), nil
	case bytecode.OpOr:
		return boolInt(a != 0 || b != 0), nil
	default:
		return 0, newFault("bad-opcode", "binArith called with non-arithmetic opcode %s", op)
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
