package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineCol(t *testing.T) {
	m := NewMap()
	buf := m.AddBuffer("a.cr", []byte("one\ntwo\nthree\n"))

	tests := []struct {
		offset int
		line   uint
		col    uint
	}{
		{0, 1, 1},  // 'o' of one
		{2, 1, 3},  // 'e' of one
		{3, 1, 4},  // the newline itself
		{4, 2, 1},  // 't' of two
		{8, 3, 1},  // 't' of three
		{12, 3, 5}, // 'e' of three
	}
	for _, tt := range tests {
		lc := buf.LineCol(buf.Pos(tt.offset))
		assert.Equal(t, LineCol{Line: tt.line, Col: tt.col}, lc, "offset %d", tt.offset)
	}
}

func TestFindBuffer(t *testing.T) {
	m := NewMap()
	a := m.AddBuffer("a.cr", []byte("aaaa"))
	b := m.AddBuffer("b.cr", []byte("bb"))

	assert.Same(t, a, m.FindBuffer(a.Pos(0)))
	assert.Same(t, a, m.FindBuffer(a.Pos(4))) // one past the end still maps
	assert.Same(t, b, m.FindBuffer(b.Pos(1)))

	assert.Nil(t, m.FindBuffer(NoLoc))
	assert.Nil(t, m.FindBuffer(Loc(9999)))
}

func TestNoLoc(t *testing.T) {
	assert.False(t, NoLoc.IsValid())
	assert.True(t, Loc(1).IsValid())
}

func TestPosOutOfRangePanics(t *testing.T) {
	m := NewMap()
	buf := m.AddBuffer("a.cr", []byte("ab"))
	assert.Panics(t, func() { buf.Pos(3) })
	assert.Panics(t, func() { buf.Pos(-1) })
}

func TestLoadBuffer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.cr")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))

	m := NewMap()
	buf, err := m.LoadBuffer(path)
	require.NoError(t, err)
	assert.Equal(t, path, buf.Name)
	assert.Equal(t, LineCol{Line: 1, Col: 5}, buf.LineCol(buf.Pos(4)))

	_, err = m.LoadBuffer(filepath.Join(dir, "missing.cr"))
	assert.Error(t, err)
}

func TestEmptyBuffer(t *testing.T) {
	m := NewMap()
	buf := m.AddBuffer("empty.cr", nil)
	assert.Equal(t, LineCol{Line: 1, Col: 1}, buf.LineCol(buf.Pos(0)))
}
