package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ceres-lang/ceres/ast"
	"github.com/ceres-lang/ceres/lir"
	"github.com/ceres-lang/ceres/source"
	"github.com/ceres-lang/ceres/types"
	"tinygo.org/x/go-llvm"
)

// DWARF has no language code assigned to Ceres, so hijack a low unassigned
// value; data1 forms cannot carry the DW_LANG_lo_user range anyway.
const (
	langCeres llvm.DwarfLang = 0x0f
	dwarfVersion             = 4
	debugInfoVersion         = 3
)

// maxScopeDepth bounds the lazy parent-chain walk. The input scope tree is
// acyclic by construction; hitting this means the producer handed us garbage.
const maxScopeDepth = 1 << 16

// Location is a resolved source position. The zero value means "unknown",
// which is a normal state, not an error.
type Location struct {
	Filename string
	Line     uint
	Col      uint
}

// DebugTypeInfo pairs a semantic type with its storage layout. Size and
// alignment come from the type lowering, not from the type itself, because
// boxed storage can be wider than the builtin width.
type DebugTypeInfo struct {
	Type        types.Type
	SizeInBits  uint64
	AlignInBits uint32
}

// TypeSizes supplies target layout for semantic types.
type TypeSizes interface {
	SizeOf(t types.Type) (bits uint64, alignBits uint32)
}

// DebugInfo synthesizes the debug-info graph for one compile unit. All of
// its caches and the position-smoothing state live for exactly one emission
// run; none of it is safe for concurrent use.
type DebugInfo struct {
	sm       *source.Map
	sizes    TypeSizes
	dbuilder *llvm.DIBuilder
	module   llvm.Module
	opts     Options
	cu       llvm.Metadata

	// Caches. This stage is the sole owner of the handles it creates, so
	// cached entries are trusted without re-validating sink liveness.
	scopeCache map[*lir.DebugScope]llvm.Metadata
	fileCache  map[string]llvm.Metadata
	typeCache  map[string]llvm.Metadata // keyed by mangled type name; nulls cached too
	scopeFile  map[llvm.Metadata]llvm.Metadata

	// Position smoothing state (per emission pass, never global).
	lastLoc   Location
	lastScope *lir.DebugScope
	curScope  llvm.Metadata
	curLine   uint
	curCol    uint

	// Cursor for the argument-ordinal fast path.
	lastFn     *lir.Function
	lastArgIdx int

	finalized bool
}

// NewDebugInfo creates the compile unit for mod and returns the emission
// state for it. opts.MainFile may be empty, in which case the unit is
// attributed to "<unknown>" in the current directory.
func NewDebugInfo(opts Options, sm *source.Map, sizes TypeSizes, mod llvm.Module) *DebugInfo {
	if sm == nil {
		panic("NewDebugInfo: nil source map")
	}
	d := &DebugInfo{
		sm:         sm,
		sizes:      sizes,
		dbuilder:   llvm.NewDIBuilder(mod),
		module:     mod,
		opts:       opts,
		scopeCache: make(map[*lir.DebugScope]llvm.Metadata),
		fileCache:  make(map[string]llvm.Metadata),
		typeCache:  make(map[string]llvm.Metadata),
		scopeFile:  make(map[llvm.Metadata]llvm.Metadata),
	}

	filename, dir := splitMainFile(opts.MainFile)
	d.cu = d.dbuilder.CreateCompileUnit(llvm.DICompileUnit{
		Language:       langCeres,
		File:           filename,
		Dir:            dir,
		Producer:       Producer(),
		Optimized:      opts.OptLevel > 0,
		RuntimeVersion: 1,
	})

	// Without these flags LLVM strips the whole graph at verification.
	addModuleFlag(mod, "Debug Info Version", debugInfoVersion)
	addModuleFlag(mod, "Dwarf Version", dwarfVersion)
	return d
}

// Finalize seals the produced graph. It must be called exactly once, after
// all emission; further emission through this DebugInfo is invalid.
func (d *DebugInfo) Finalize() {
	if d.finalized {
		panic("DebugInfo.Finalize called twice")
	}
	d.finalized = true
	d.dbuilder.Finalize()
}

// Dispose releases the underlying sink builder. Only valid after Finalize.
func (d *DebugInfo) Dispose() {
	d.dbuilder.Destroy()
}

func splitMainFile(main string) (filename, dir string) {
	if main == "" {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		return "<unknown>", cwd
	}
	abs, err := filepath.Abs(main)
	if err != nil {
		abs = main
	}
	return filepath.Base(abs), filepath.Dir(abs)
}

func addModuleFlag(mod llvm.Module, name string, value uint64) {
	ctx := mod.Context()
	mod.AddNamedMetadataOperand("llvm.module.flags", ctx.MDNode([]llvm.Metadata{
		llvm.ConstInt(ctx.Int32Type(), 1, false).ConstantAsMetadata(), // warning behavior
		ctx.MDString(name),
		llvm.ConstInt(ctx.Int32Type(), value, false).ConstantAsMetadata(),
	}))
}

// resolveLocation maps an instruction-level location to file/line/column.
// A null node or an offset outside every registered buffer resolves to the
// zero Location; missing positions are common and not an error.
func resolveLocation(sm *source.Map, loc lir.Location) Location {
	var l Location
	if loc.IsNull() {
		return l
	}
	start := loc.StartLoc()
	buf := sm.FindBuffer(start)
	if buf == nil {
		return l
	}
	lc := buf.LineCol(start)
	return Location{Filename: buf.Name, Line: lc.Line, Col: lc.Col}
}

// getOrCreateFile translates a filename into its DIFile record.
func (d *DebugInfo) getOrCreateFile(filename string) llvm.Metadata {
	if filename == "" {
		return llvm.Metadata{}
	}
	if f, ok := d.fileCache[filename]; ok {
		return f
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		abs = filename
	}
	f := d.dbuilder.CreateFile(filepath.Base(abs), filepath.Dir(abs))
	d.fileCache[filename] = f
	// A file is its own ancestor for the variable emitters' file lookup.
	d.scopeFile[f] = f
	return f
}

// fileFor is getOrCreateFile with the compile unit's main file standing in
// for constructs that resolved to no position at all.
func (d *DebugInfo) fileFor(filename string) llvm.Metadata {
	if filename == "" {
		filename = d.opts.MainFile
	}
	return d.getOrCreateFile(filename)
}

// getOrCreateScope translates a lexical scope into its debug record,
// building the parent chain lazily. A nil scope yields the null record.
func (d *DebugInfo) getOrCreateScope(ds *lir.DebugScope) llvm.Metadata {
	return d.scopeAt(ds, 0)
}

func (d *DebugInfo) scopeAt(ds *lir.DebugScope, depth int) llvm.Metadata {
	if ds == nil {
		return llvm.Metadata{}
	}
	if depth > maxScopeDepth {
		panic("debug scope chain exceeds maximum nesting: cyclic input?")
	}
	if cached, ok := d.scopeCache[ds]; ok {
		return cached
	}

	l := resolveLocation(d.sm, ds.Loc)
	file := d.fileFor(l.Filename)
	parent := d.scopeAt(ds.Parent, depth+1)
	if parent == (llvm.Metadata{}) {
		// Root scopes hang off their file.
		parent = file
	}
	scope := d.dbuilder.CreateLexicalBlock(parent, llvm.DILexicalBlock{
		File:   file,
		Line:   int(l.Line),
		Column: int(l.Col),
	})
	d.scopeCache[ds] = scope
	d.scopeFile[scope] = file
	return scope
}

// SetCurrentLoc attaches a resolved, smoothed position to b so subsequent
// instructions carry it. Nothing is attached when the scope cannot be
// resolved.
func (d *DebugInfo) SetCurrentLoc(b llvm.Builder, ds *lir.DebugScope, loc lir.Location) {
	l := resolveLocation(d.sm, loc)

	scope := d.getOrCreateScope(ds)
	if scope == (llvm.Metadata{}) {
		return
	}

	if l.Filename != "" && l.Filename != resolveLocation(d.sm, ds.Loc).Filename {
		// We changed files in the middle of a scope. This happens, for
		// example, when constructors are inlined. Wrap the scope so the
		// line table stays attributed to the right file.
		file := d.getOrCreateFile(l.Filename)
		scope = d.dbuilder.CreateLexicalBlockFile(scope, file, 0)
		d.scopeFile[scope] = file
	}

	if l.Line == 0 && ds == d.lastScope {
		// Reuse the last source location if we are still in the same
		// scope to get a more contiguous line table.
		l.Line = d.lastLoc.Line
		l.Col = d.lastLoc.Col
	}
	d.lastLoc = l
	d.lastScope = ds
	d.curScope = scope
	d.curLine = l.Line
	d.curCol = l.Col

	b.SetCurrentDebugLocation(l.Line, l.Col, scope, llvm.Metadata{})
}

// CurrentScope returns the scope record attached by the last SetCurrentLoc.
func (d *DebugInfo) CurrentScope() llvm.Metadata { return d.curScope }

// displayName recovers a human-meaningful name for a function declaration.
// Property accessors are anonymous in source, so their name is forged from
// the owning declaration. An empty result marks the function artificial.
func displayName(fd *ast.FuncDecl) string {
	if fd == nil {
		return ""
	}
	if fd.IsAccessor() && fd.Owner != nil {
		if fd.Accessor == ast.Getter {
			return fd.Owner.DeclName() + ".get"
		}
		return fd.Owner.DeclName() + ".set"
	}
	return fd.Name
}

func funcName(loc lir.Location) string {
	return displayName(loc.FuncDecl())
}

// createParameterTypes builds the debug descriptors for a signature's
// parameters, in order.
func (d *DebugInfo) createParameterTypes(sig types.Func, scope llvm.Metadata) []llvm.Metadata {
	var params []llvm.Metadata
	for _, p := range sig.Params {
		params = append(params, d.getOrCreateType(d.typeInfo(p), scope))
	}
	return params
}

func (d *DebugInfo) typeInfo(t types.Type) DebugTypeInfo {
	info := DebugTypeInfo{Type: t}
	if d.sizes != nil {
		info.SizeInBits, info.AlignInBits = d.sizes.SizeOf(t)
	}
	return info
}

// CreateFunction emits the subprogram record for fn and seeds the scope
// cache with it, so child lexical blocks resolve under the subprogram.
func (d *DebugInfo) CreateFunction(fn *lir.Function, llvmFn llvm.Value) llvm.Metadata {
	if fn == nil {
		panic("CreateFunction: nil function")
	}
	return d.createFunction(fn.Scope, llvmFn, fn.CallConv, fn.Type)
}

// CreateArtificialFunction emits a subprogram for a compiler-generated
// helper with no source backing and points b at it.
func (d *DebugInfo) CreateArtificialFunction(b llvm.Builder, llvmFn llvm.Value) llvm.Metadata {
	scope := &lir.DebugScope{}
	sp := d.createFunction(scope, llvmFn, lir.ConvDefault, types.Func{})
	d.SetCurrentLoc(b, scope, lir.Location{})
	return sp
}

func (d *DebugInfo) createFunction(ds *lir.DebugScope, llvmFn llvm.Value, cc lir.CallConv, sig types.Func) llvm.Metadata {
	if llvmFn.IsNil() {
		panic("createFunction: nil llvm function")
	}
	var l Location
	var name string
	if ds != nil {
		l = resolveLocation(d.sm, ds.Loc)
		name = funcName(ds.Loc)
	}

	file := d.fileFor(l.Filename)
	params := d.createParameterTypes(sig, d.cu)
	fnTy := d.dbuilder.CreateSubroutineType(llvm.DISubroutineType{
		File:       file,
		Parameters: params,
	})

	flags := 0
	if name == "" {
		// Anonymous at the source level: compiler-generated.
		flags |= llvm.FlagArtificial
	}

	sp := d.dbuilder.CreateFunction(d.cu, llvm.DIFunction{
		Name:         name,
		LinkageName:  llvmFn.Name(),
		File:         file,
		Line:         int(l.Line),
		Type:         fnTy,
		LocalToUnit:  cc == lir.ConvC,
		IsDefinition: true,
		ScopeLine:    int(l.Line),
		Flags:        flags,
		Optimized:    d.opts.OptLevel > 0,
	})
	llvmFn.SetSubprogram(sp)
	if ds != nil {
		d.scopeCache[ds] = sp
	}
	d.scopeFile[sp] = file
	return sp
}

// argNo returns the 1-based position of arg among fn's parameters, or 0 when
// arg is not one of them. Arguments are produced in declaration order in the
// instruction stream, so one cursor step usually answers the next lookup.
func (d *DebugInfo) argNo(fn *lir.Function, arg *lir.Argument) int {
	if fn == nil {
		panic("argNo: nil function")
	}
	if fn == d.lastFn {
		d.lastArgIdx++
		if entry := fn.Entry(); entry != nil && d.lastArgIdx < len(entry.Args) && entry.Args[d.lastArgIdx] == arg {
			return d.lastArgIdx + 1
		}
	}
	// Out of order or a different function: restart the linear scan.
	d.lastFn = fn
	if entry := fn.Entry(); entry != nil {
		for i, a := range entry.Args {
			d.lastArgIdx = i
			if a == arg {
				return i + 1
			}
		}
	}
	return 0
}

// EmitStackVariableDeclaration declares the variable backed by a stack slot.
// It makes a best effort to find out whether the slot actually holds a
// function argument by looking at the source of a direct store into it; a
// slot fed from an argument through an intermediate value is deliberately
// classified as a plain local.
func (d *DebugInfo) EmitStackVariableDeclaration(b llvm.Builder, storage llvm.Value, ty DebugTypeInfo, name string, fn *lir.Function, alloc *lir.AllocInst) {
	if alloc == nil {
		panic("EmitStackVariableDeclaration: nil alloc")
	}
	for _, use := range alloc.Uses() {
		st, ok := use.(*lir.StoreInst)
		if !ok || st.Dst != lir.Value(alloc) {
			continue
		}
		if arg, ok := st.Src.(*lir.Argument); ok {
			if no := d.argNo(fn, arg); no > 0 {
				d.EmitArgVariableDeclaration(b, storage, ty, name, no)
				return
			}
		}
	}
	d.emitVariableDeclaration(b, storage, ty, name, 0)
}

// EmitArgVariableDeclaration declares a function argument with the given
// 1-based ordinal.
func (d *DebugInfo) EmitArgVariableDeclaration(b llvm.Builder, storage llvm.Value, ty DebugTypeInfo, name string, argNo int) {
	d.emitVariableDeclaration(b, storage, ty, name, argNo)
}

// emitVariableDeclaration is the common tail of the local and argument
// paths. It reads the scope attached by the last SetCurrentLoc; without a
// placeable scope or a representable type the declaration is skipped, never
// half-emitted.
func (d *DebugInfo) emitVariableDeclaration(b llvm.Builder, storage llvm.Value, ty DebugTypeInfo, name string, argNo int) {
	scope := d.curScope
	if scope == (llvm.Metadata{}) {
		return
	}
	file, ok := d.scopeFile[scope]
	if !ok {
		// Scope of unknown provenance: the variable cannot be placed.
		return
	}

	dty := d.getOrCreateType(ty, scope)
	if dty == (llvm.Metadata{}) {
		// No debug info for the type means no debug info for the variable.
		return
	}

	var v llvm.Metadata
	if argNo > 0 {
		v = d.dbuilder.CreateParameterVariable(scope, llvm.DIParameterVariable{
			Name:           name,
			File:           file,
			Line:           int(d.curLine),
			Type:           dty,
			AlwaysPreserve: d.opts.OptLevel > 0,
			ArgNo:          argNo,
		})
	} else {
		v = d.dbuilder.CreateAutoVariable(scope, llvm.DIAutoVariable{
			Name:           name,
			File:           file,
			Line:           int(d.curLine),
			Type:           dty,
			AlwaysPreserve: d.opts.OptLevel > 0,
			AlignInBits:    ty.AlignInBits,
		})
	}

	d.dbuilder.InsertDeclareAtEnd(storage, v, d.dbuilder.CreateExpression(nil), llvm.DebugLoc{
		Line:  d.curLine,
		Col:   d.curCol,
		Scope: scope,
	}, b.GetInsertBlock())
}

// EmitGlobalVariableDeclaration declares a module-level variable. Globals
// are file scoped, so the location comes from the declaration itself rather
// than the current emission position.
func (d *DebugInfo) EmitGlobalVariableDeclaration(global llvm.Value, name, linkageName string, ty DebugTypeInfo, loc lir.Location) {
	l := resolveLocation(d.sm, loc)
	file := d.fileFor(l.Filename)

	dty := d.getOrCreateType(ty, file)
	if dty == (llvm.Metadata{}) {
		return
	}

	md := d.dbuilder.CreateGlobalVariableExpression(file, llvm.DIGlobalVariableExpression{
		Name:        name,
		LinkageName: linkageName,
		File:        file,
		Line:        int(l.Line),
		Type:        dty,
		LocalToUnit: global.Linkage() == llvm.InternalLinkage,
		Expr:        d.dbuilder.CreateExpression(nil),
	})
	global.AddMetadata(0, md)
}

// getOrCreateType returns the debug record for a semantic type, or the null
// record when the type cannot be described. Results, including nulls, are
// cached under the type's mangled key so structurally equal types share one
// record and repeated misses stay O(1).
func (d *DebugInfo) getOrCreateType(ty DebugTypeInfo, scope llvm.Metadata) llvm.Metadata {
	if ty.Type == nil {
		return llvm.Metadata{}
	}
	key := types.MangleName(ty.Type)
	if t, ok := d.typeCache[key]; ok {
		return t
	}
	t := d.createType(ty, scope)
	d.typeCache[key] = t
	return t
}

// createType builds a fresh debug record for ty. Only the name and
// provenance of nominal types are emitted; the full structural description
// is deferred to the module that declares the type, so member and
// derived-from fields stay empty here.
func (d *DebugInfo) createType(ty DebugTypeInfo, scope llvm.Metadata) llvm.Metadata {
	switch t := ty.Type.(type) {
	case types.Int:
		// Use the builtin width, not the caller-supplied storage size,
		// which may reflect boxing.
		return d.dbuilder.CreateBasicType(llvm.DIBasicType{
			Name:       "int",
			SizeInBits: uint64(t.Width),
			Encoding:   llvm.DW_ATE_signed,
		})

	case types.Float:
		return d.dbuilder.CreateBasicType(llvm.DIBasicType{
			Name:       "float",
			SizeInBits: uint64(t.Width),
			Encoding:   llvm.DW_ATE_float,
		})

	case types.Struct:
		if t.Decl == nil {
			return llvm.Metadata{}
		}
		return d.createNominalType(ty, t.Decl, scope, 0)

	case types.Class:
		if t.Decl == nil {
			return llvm.Metadata{}
		}
		// The sink's struct records carry no runtime-language operand, so
		// foreign-bridged classes are flagged instead; that is what lets a
		// debugger tell the two object models apart.
		flags := 0
		if t.Decl.Bridged {
			flags = llvm.FlagObjcClassComplete
		}
		return d.createNominalType(ty, t.Decl, scope, flags)

	case types.Union, types.Protocol:
		// Name and provenance only.
		return d.dbuilder.CreateBasicType(llvm.DIBasicType{
			Name:       types.MangleName(ty.Type),
			SizeInBits: ty.SizeInBits,
		})

	default:
		return llvm.Metadata{}
	}
}

func (d *DebugInfo) createNominalType(ty DebugTypeInfo, decl *ast.TypeDecl, scope llvm.Metadata, flags int) llvm.Metadata {
	l := resolveLocation(d.sm, lir.Location{Node: decl})
	return d.dbuilder.CreateStructType(scope, llvm.DIStructType{
		Name:        types.MangleName(ty.Type),
		File:        d.fileFor(l.Filename),
		Line:        int(l.Line),
		SizeInBits:  ty.SizeInBits,
		AlignInBits: ty.AlignInBits,
		Flags:       flags,
	})
}

// String renders the resolved location for diagnostics.
func (l Location) String() string {
	if l.Filename == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Col)
}
