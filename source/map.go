package source

import (
	"fmt"
	"os"

	"fortio.org/safecast"
)

// Loc is a global byte offset into one of the buffers registered with a Map.
// The zero Loc is "no location".
type Loc uint32

// NoLoc is the null location.
const NoLoc Loc = 0

// IsValid reports whether l refers to some buffer content.
func (l Loc) IsValid() bool { return l != NoLoc }

// LineCol is a 1-based line/column pair within a buffer.
type LineCol struct {
	Line uint
	Col  uint
}

// Buffer is one registered source file. Offsets [Base, Base+len(Content))
// in the owning Map's global space belong to this buffer.
type Buffer struct {
	Name    string
	Content []byte
	base    uint32
	lines   []uint32 // byte offset of the start of each line, lines[0] == 0
}

// Base returns the global offset of the buffer's first byte.
func (b *Buffer) Base() Loc { return Loc(b.base) }

// Pos translates a local byte offset into a global Loc.
func (b *Buffer) Pos(offset int) Loc {
	off, err := safecast.Conv[uint32](offset)
	if err != nil || int(off) > len(b.Content) {
		panic(fmt.Sprintf("offset %d out of range for buffer %q", offset, b.Name))
	}
	return Loc(b.base + off)
}

// LineCol resolves a global Loc (which must lie within this buffer) to its
// 1-based line and column. Columns count bytes from the line start.
func (b *Buffer) LineCol(loc Loc) LineCol {
	off := uint32(loc) - b.base
	// Binary search for the last line start <= off.
	lo, hi := 0, len(b.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.lines[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return LineCol{
		Line: uint(lo + 1),
		Col:  uint(off-b.lines[lo]) + 1,
	}
}

// Map owns the registered source buffers and resolves global offsets back to
// file/line/column. Lookups that miss are normal and yield a zero result.
type Map struct {
	buffers []*Buffer
	next    uint32
}

func NewMap() *Map {
	// Global offset 0 is reserved for NoLoc.
	return &Map{next: 1}
}

// AddBuffer registers content under name and returns the new buffer.
func (m *Map) AddBuffer(name string, content []byte) *Buffer {
	b := &Buffer{
		Name:    name,
		Content: content,
		base:    m.next,
		lines:   buildLineIndex(content),
	}
	size, err := safecast.Conv[uint32](len(content))
	if err != nil {
		panic(fmt.Sprintf("buffer %q too large", name))
	}
	m.next += size + 1 // +1 so a Loc one past the end still maps here
	m.buffers = append(m.buffers, b)
	return b
}

// LoadBuffer reads path from disk and registers it.
func (m *Map) LoadBuffer(path string) (*Buffer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load source %s: %w", path, err)
	}
	return m.AddBuffer(path, content), nil
}

// FindBuffer returns the buffer containing loc, or nil when loc is NoLoc or
// does not fall inside any registered buffer.
func (m *Map) FindBuffer(loc Loc) *Buffer {
	if !loc.IsValid() {
		return nil
	}
	off := uint32(loc)
	for _, b := range m.buffers {
		if off >= b.base && off <= b.base+uint32(len(b.Content)) {
			return b
		}
	}
	return nil
}

// buildLineIndex records the byte offset of every line start.
func buildLineIndex(content []byte) []uint32 {
	lines := []uint32{0}
	for i, c := range content {
		if c == '\n' && i+1 < len(content) {
			lines = append(lines, uint32(i+1))
		}
	}
	return lines
}
