// Package intern collapses byte-identical blocks to a single stored copy.
package intern

import "bytes"

// Builder appends unique blocks to one stream and remembers where each
// distinct content was first stored.
type Builder struct {
	buf  bytes.Buffer
	seen map[string]int
}

func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]int)}
}

// Add stores block unless identical content is already stored. It returns
// the offset of the stored copy and whether this call stored it.
func (builder *Builder) Add(block []byte) (offset int, first bool) {
	if off, ok := builder.seen[string(block)]; ok {
		return off, false
	}
	off := builder.buf.Len()
	builder.buf.Write(block)
	builder.seen[string(block)] = off
	return off, true
}

// Append stores block even when identical content is already stored.
func (builder *Builder) Append(block []byte) int {
	off := builder.buf.Len()
	builder.buf.Write(block)
	if _, ok := builder.seen[string(block)]; !ok {
		builder.seen[string(block)] = off
	}
	return off
}

func (builder *Builder) Lookup(block []byte) (int, bool) {
	off, ok := builder.seen[string(block)]
	return off, ok
}

func (builder *Builder) Len() int      { return builder.buf.Len() }
func (builder *Builder) Unique() int   { return len(builder.seen) }
func (builder *Builder) Bytes() []byte { return builder.buf.Bytes() }

// Table is the result of interning a list of independent blocks.
type Table struct {
	Data    []byte
	Offsets []int
	Lengths []int
	// Refs holds, per block, the index of the first block with equal content.
	Refs []int
}

func Intern(blocks [][]byte) *Table {
	builder := NewBuilder()
	table := &Table{
		Offsets: make([]int, len(blocks)),
		Lengths: make([]int, len(blocks)),
		Refs:    make([]int, len(blocks)),
	}
	owner := make(map[string]int, len(blocks))
	for i, block := range blocks {
		off, first := builder.Add(block)
		if first {
			owner[string(block)] = i
		}
		table.Offsets[i] = off
		table.Lengths[i] = len(block)
		table.Refs[i] = owner[string(block)]
	}
	table.Data = builder.Bytes()
	return table
}

// Block returns the stored copy of block i.
func (table *Table) Block(i int) []byte {
	off := table.Offsets[i]
	return table.Data[off : off+table.Lengths[i]]
}

// Unique reports how many blocks own their storage.
func (table *Table) Unique() int {
	n := 0
	for i, ref := range table.Refs {
		if ref == i {
			n++
		}
	}
	return n
}
