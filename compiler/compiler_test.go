package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ceres-lang/ceres/ast"
	"github.com/ceres-lang/ceres/lir"
	"github.com/ceres-lang/ceres/source"
	"github.com/ceres-lang/ceres/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compileUnitIR lowers one function plus one global and returns the IR.
func compileUnitIR(t *testing.T) string {
	t.Helper()

	src := `func add(a, b) {
	let sum = a + b
	return sum
}
var total = 0
`
	sm := source.NewMap()
	buf := sm.AddBuffer("add.cr", []byte(src))
	c, err := NewCompiler(Options{ModulePath: "ceres-lang.org/add", MainFile: "add.cr"}, sm)
	require.NoError(t, err)
	t.Cleanup(c.Dispose)

	a := &lir.Argument{Name: "a", Type: types.I64}
	b := &lir.Argument{Name: "b", Type: types.I64}
	fd := &ast.FuncDecl{Name: "add", NamePos: buf.Pos(5)}
	fn := lir.NewFunction("add",
		types.Func{Params: []types.Type{types.I64, types.I64}, Results: []types.Type{types.I64}},
		&lir.DebugScope{Loc: lir.Location{Node: fd}},
		a, b)

	entry := fn.Entry()
	sumLoc := lir.Location{Node: &ast.Ident{Name: "sum", NamePos: buf.Pos(22)}}
	sum := &lir.AllocInst{Name: "sum", Elem: types.I64, Loc: sumLoc}
	entry.Append(sum)
	entry.Append(&lir.StoreInst{Src: a, Dst: sum, Loc: sumLoc})
	retLoc := lir.Location{Node: &ast.Ident{Name: "return", NamePos: buf.Pos(34)}}
	ld := &lir.LoadInst{Name: "sum.val", Src: sum, Elem: types.I64, Loc: retLoc}
	entry.Append(ld)
	entry.Append(&lir.RetInst{Val: ld, Loc: retLoc})

	_, err = c.CompileFunction(fn)
	require.NoError(t, err)

	c.DefineGlobal(&ast.VarDecl{Name: "total", NamePos: buf.Pos(44)}, types.I64, false)

	c.Finalize()
	return c.GenerateIR()
}

func TestCompileFunctionIR(t *testing.T) {
	ir := compileUnitIR(t)

	// The function symbol carries the mangled signature.
	assert.Contains(t, ir, "$add$I64$I64")
	assert.Contains(t, ir, `!DISubprogram(name: "add"`)
	assert.Contains(t, ir, `!DILocalVariable(name: "sum"`)
	assert.Contains(t, ir, `!DIGlobalVariable(name: "total"`)
	assert.Contains(t, ir, "!DICompileUnit")
}

func TestCompileFunctionErrors(t *testing.T) {
	sm := source.NewMap()
	c, err := NewCompiler(Options{ModulePath: "ceres-lang.org/err"}, sm)
	require.NoError(t, err)
	defer c.Dispose()

	_, err = c.CompileFunction(nil)
	assert.Error(t, err)

	_, err = c.CompileFunction(&lir.Function{Name: "empty"})
	assert.ErrorContains(t, err, "no blocks")
}

func TestNewCompilerRejectsBadPath(t *testing.T) {
	_, err := NewCompiler(Options{ModulePath: "Bad/Path"}, source.NewMap())
	assert.ErrorContains(t, err, "invalid module path")
}

func TestCFunctionKeepsPlainName(t *testing.T) {
	sm := source.NewMap()
	buf := sm.AddBuffer("c.cr", []byte("extern func puts(s)\n"))
	c, err := NewCompiler(Options{ModulePath: "ceres-lang.org/cfn", MainFile: "c.cr"}, sm)
	require.NoError(t, err)
	defer c.Dispose()

	fd := &ast.FuncDecl{Name: "puts", NamePos: buf.Pos(12)}
	fn := lir.NewFunction("puts",
		types.Func{Params: []types.Type{types.Ptr{Elem: types.Int{Width: 8}}}},
		&lir.DebugScope{Loc: lir.Location{Node: fd}},
		&lir.Argument{Name: "s", Type: types.Ptr{Elem: types.Int{Width: 8}}})
	fn.CallConv = lir.ConvC
	fn.Entry().Append(&lir.RetInst{})

	_, err = c.CompileFunction(fn)
	require.NoError(t, err)
	c.Finalize()
	ir := c.GenerateIR()

	assert.Contains(t, ir, "define internal void @puts(")
	// Foreign-convention functions are unit-local in their debug record.
	assert.Contains(t, ir, "DISPFlagLocalToUnit")
}

func TestWriteArtifact(t *testing.T) {
	sm := source.NewMap()
	c, err := NewCompiler(Options{ModulePath: "ceres-lang.org/out"}, sm)
	require.NoError(t, err)
	defer c.Dispose()
	c.Finalize()

	dir := t.TempDir()
	path, err := c.WriteArtifact(dir, "out")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.ll"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "!DICompileUnit")
}
