package compiler

import (
	"fmt"

	"github.com/ceres-lang/ceres/ast"
	"github.com/ceres-lang/ceres/lir"
	"github.com/ceres-lang/ceres/source"
	"github.com/ceres-lang/ceres/types"
	"tinygo.org/x/go-llvm"
)

// Options configures one compilation unit.
type Options struct {
	// ModulePath names the unit, e.g. "github.com/acme/geo". It becomes part
	// of every mangled global symbol.
	ModulePath string
	// MainFile is the primary source file the unit is attributed to. Empty
	// means the unit has no source backing.
	MainFile string
	// OptLevel above zero marks emitted debug records as optimized.
	OptLevel int
}

// Compiler lowers lir into an LLVM module, synthesizing debug info alongside
// the code. One Compiler owns one module and one DebugInfo; it is not safe
// for concurrent use.
type Compiler struct {
	Context llvm.Context
	Module  llvm.Module
	builder llvm.Builder
	DI      *DebugInfo
	SM      *source.Map
	Opts    Options

	mangledPath string
}

func NewCompiler(opts Options, sm *source.Map) (*Compiler, error) {
	if err := ValidateModulePath(opts.ModulePath); err != nil {
		return nil, fmt.Errorf("invalid module path %q: %w", opts.ModulePath, err)
	}
	if sm == nil {
		sm = source.NewMap()
	}

	ctx := llvm.NewContext()
	module := ctx.NewModule(opts.ModulePath)
	c := &Compiler{
		Context:     ctx,
		Module:      module,
		builder:     ctx.NewBuilder(),
		SM:          sm,
		Opts:        opts,
		mangledPath: mangleModPath(opts.ModulePath),
	}
	c.DI = NewDebugInfo(opts, sm, c, module)
	return c, nil
}

// SizeOf reports the target storage layout of a semantic type. Nominal types
// are boxed behind a pointer, so they size as one.
func (c *Compiler) SizeOf(t types.Type) (bits uint64, alignBits uint32) {
	switch ty := t.(type) {
	case types.Int:
		return uint64(ty.Width), ty.Width
	case types.Float:
		return uint64(ty.Width), ty.Width
	case types.Ptr, types.Struct, types.Class, types.Union, types.Protocol, types.Func:
		return 64, 64
	default:
		return 0, 0
	}
}

func (c *Compiler) debugTypeInfo(t types.Type) DebugTypeInfo {
	info := DebugTypeInfo{Type: t}
	info.SizeInBits, info.AlignInBits = c.SizeOf(t)
	return info
}

func (c *Compiler) llvmType(t types.Type) llvm.Type {
	switch ty := t.(type) {
	case types.Int:
		return c.Context.IntType(int(ty.Width))
	case types.Float:
		if ty.Width == 32 {
			return c.Context.FloatType()
		}
		return c.Context.DoubleType()
	case types.Ptr, types.Struct, types.Class, types.Union, types.Protocol, types.Func:
		return llvm.PointerType(c.Context.Int8Type(), 0)
	default:
		panic(fmt.Sprintf("llvmType: cannot lower %s", t))
	}
}

func (c *Compiler) llvmFuncType(sig types.Func) llvm.Type {
	params := make([]llvm.Type, 0, len(sig.Params))
	for _, p := range sig.Params {
		params = append(params, c.llvmType(p))
	}
	ret := c.Context.VoidType()
	if len(sig.Results) == 1 {
		ret = c.llvmType(sig.Results[0])
	}
	return llvm.FunctionType(ret, params, false)
}

// CompileFunction lowers fn into the module, attaching a subprogram record
// and declaring every named stack slot to the debugger.
func (c *Compiler) CompileFunction(fn *lir.Function) (llvm.Value, error) {
	if fn == nil {
		return llvm.Value{}, fmt.Errorf("CompileFunction: nil function")
	}
	entry := fn.Entry()
	if entry == nil {
		return llvm.Value{}, fmt.Errorf("CompileFunction: function %q has no blocks", fn.Name)
	}

	name := types.MangleFunc(fn.Name, fn.Type.Params)
	if fn.CallConv == lir.ConvC {
		name = fn.Name
	}
	llvmFn := llvm.AddFunction(c.Module, name, c.llvmFuncType(fn.Type))
	if fn.CallConv == lir.ConvC {
		llvmFn.SetLinkage(llvm.InternalLinkage)
	}

	c.DI.CreateFunction(fn, llvmFn)

	vals := make(map[lir.Value]llvm.Value)
	for i, a := range entry.Args {
		p := llvmFn.Param(i)
		p.SetName(a.Name)
		vals[a] = p
	}

	for bi, b := range fn.Blocks {
		bbName := "entry"
		if bi > 0 {
			bbName = fmt.Sprintf("bb%d", bi)
		}
		bb := c.Context.AddBasicBlock(llvmFn, bbName)
		c.builder.SetInsertPointAtEnd(bb)
		for _, inst := range b.Instrs {
			if err := c.compileInst(fn, inst, vals); err != nil {
				return llvm.Value{}, fmt.Errorf("function %q: %w", fn.Name, err)
			}
		}
	}
	return llvmFn, nil
}

func (c *Compiler) compileInst(fn *lir.Function, inst lir.Instruction, vals map[lir.Value]llvm.Value) error {
	scope := inst.InstScope()
	if scope == nil {
		scope = fn.Scope
	}
	c.DI.SetCurrentLoc(c.builder, scope, inst.InstLoc())

	switch i := inst.(type) {
	case *lir.AllocInst:
		slot := c.builder.CreateAlloca(c.llvmType(i.Elem), i.Name)
		vals[i] = slot
		c.DI.EmitStackVariableDeclaration(c.builder, slot, c.debugTypeInfo(i.Elem), i.Name, fn, i)
		return nil

	case *lir.StoreInst:
		src, err := c.operand(i.Src, vals)
		if err != nil {
			return err
		}
		dst, err := c.operand(i.Dst, vals)
		if err != nil {
			return err
		}
		c.builder.CreateStore(src, dst)
		return nil

	case *lir.LoadInst:
		src, err := c.operand(i.Src, vals)
		if err != nil {
			return err
		}
		vals[i] = c.builder.CreateLoad(c.llvmType(i.Elem), src, i.Name)
		return nil

	case *lir.RetInst:
		if i.Val == nil {
			c.builder.CreateRetVoid()
			return nil
		}
		v, err := c.operand(i.Val, vals)
		if err != nil {
			return err
		}
		c.builder.CreateRet(v)
		return nil

	default:
		return fmt.Errorf("unhandled instruction %T", inst)
	}
}

func (c *Compiler) operand(v lir.Value, vals map[lir.Value]llvm.Value) (llvm.Value, error) {
	if cv, ok := v.(*lir.Const); ok {
		return llvm.ConstNull(c.llvmType(cv.Type)), nil
	}
	lv, ok := vals[v]
	if !ok {
		return llvm.Value{}, fmt.Errorf("operand %T used before definition", v)
	}
	return lv, nil
}

// DefineGlobal emits a module-level variable with its debug record. internal
// globals get internal linkage, which the debug record reflects as
// unit-local.
func (c *Compiler) DefineGlobal(decl *ast.VarDecl, t types.Type, internal bool) llvm.Value {
	linkageName := MangleGlobal(c.mangledPath, decl.Name)
	g := llvm.AddGlobal(c.Module, c.llvmType(t), linkageName)
	g.SetInitializer(llvm.ConstNull(c.llvmType(t)))
	if internal {
		g.SetLinkage(llvm.InternalLinkage)
	}
	c.DI.EmitGlobalVariableDeclaration(g, decl.Name, linkageName, c.debugTypeInfo(t), lir.Location{Node: decl})
	return g
}

// Finalize seals the module's debug info. Call once, after all functions and
// globals are compiled.
func (c *Compiler) Finalize() {
	c.DI.Finalize()
}

func (c *Compiler) GenerateIR() string {
	return c.Module.String()
}

// Dispose releases the LLVM resources owned by the compiler.
func (c *Compiler) Dispose() {
	c.DI.Dispose()
	c.builder.Dispose()
	c.Module.Dispose()
	c.Context.Dispose()
}
