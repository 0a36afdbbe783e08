package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Serialize writes prog in the little-endian binary container of spec
// §4.12: the entry method first, then every other method's name and body.
// No magic number and no version field, by spec §6 ("a known limitation").
func Serialize(prog *Program) ([]byte, error) {
	if len(prog.Methods) == 0 {
		return nil, errors.New("bytecode: cannot serialise a program with no methods")
	}
	var buf bytes.Buffer
	writeString(&buf, prog.Methods[0].Label)
	writeMethod(&buf, prog.Methods[0])
	writeU64(&buf, uint64(len(prog.Methods)-1))
	for _, m := range prog.Methods[1:] {
		writeString(&buf, m.Label)
		writeMethod(&buf, m)
	}
	return buf.Bytes(), nil
}

func writeU64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func writeI64(w *bytes.Buffer, v int64) {
	writeU64(w, uint64(v))
}

func writeString(w *bytes.Buffer, s string) {
	writeU64(w, uint64(len(s)))
	w.WriteString(s)
}

func writeStringVec(w *bytes.Buffer, xs []string) {
	writeU64(w, uint64(len(xs)))
	for _, s := range xs {
		writeString(w, s)
	}
}

func writeMethod(w *bytes.Buffer, m *Method) {
	writeStringVec(w, m.Variables)
	writeStringVec(w, m.Fields)
	writeU64(w, uint64(len(m.Blocks)))
	for _, b := range m.Blocks {
		writeString(w, b.Name)
		writeBlock(w, b)
	}
}

func writeBlock(w *bytes.Buffer, b *MethodBlock) {
	writeU64(w, uint64(len(b.Instructions)))
	for _, inst := range b.Instructions {
		w.WriteByte(byte(inst.Op))
		switch inst.Op.ParamShape() {
		case ParamInt:
			writeI64(w, inst.IntParam)
		case ParamString:
			writeString(w, inst.StrParam)
		}
	}
}

// Deserialize parses data produced by Serialize back into a Program.
func Deserialize(data []byte) (*Program, error) {
	r := &reader{data: data}
	entryName := r.readString()
	entryMethod := r.readMethod(entryName)
	if r.err != nil {
		return nil, r.err
	}
	prog := &Program{Methods: []*Method{entryMethod}}
	otherCount := r.readU64()
	for i := uint64(0); i < otherCount && r.err == nil; i++ {
		name := r.readString()
		prog.Methods = append(prog.Methods, r.readMethod(name))
	}
	if r.err != nil {
		return nil, r.err
	}
	return prog, nil
}

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = errors.Wrap(fmt.Errorf(format, args...), "bytecode: deserialise")
	}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.fail("truncated input: need %d bytes at offset %d, have %d", n, r.pos, len(r.data))
		return false
	}
	return true
}

func (r *reader) readU64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *reader) readI64() int64 {
	return int64(r.readU64())
}

func (r *reader) readByte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *reader) readString() string {
	n := r.readU64()
	if !r.need(int(n)) {
		return ""
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s
}

func (r *reader) readStringVec() []string {
	n := r.readU64()
	out := make([]string, 0, n)
	for i := uint64(0); i < n && r.err == nil; i++ {
		out = append(out, r.readString())
	}
	return out
}

func (r *reader) readMethod(label string) *Method {
	m := &Method{Label: label}
	m.Variables = r.readStringVec()
	m.Fields = r.readStringVec()
	blockCount := r.readU64()
	for i := uint64(0); i < blockCount && r.err == nil; i++ {
		name := r.readString()
		m.Blocks = append(m.Blocks, r.readBlock(name))
	}
	return m
}

func (r *reader) readBlock(name string) *MethodBlock {
	b := NewMethodBlock(name)
	count := r.readU64()
	for i := uint64(0); i < count && r.err == nil; i++ {
		op := Opcode(int8(r.readByte()))
		inst := Instruction{Op: op}
		switch op.ParamShape() {
		case ParamInt:
			inst.IntParam = r.readI64()
		case ParamString:
			inst.StrParam = r.readString()
		}
		b.Instructions = append(b.Instructions, inst)
	}
	return b
}

