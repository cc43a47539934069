// Package lir is the lowered instruction representation the Ceres backend
// consumes. The debug-info stage reads it and never mutates it: functions own
// ordered basic blocks, the entry block carries the argument list, and
// storage allocations expose their use lists so argument provenance can be
// inferred from data flow.
package lir

import (
	"github.com/ceres-lang/ceres/ast"
	"github.com/ceres-lang/ceres/source"
	"github.com/ceres-lang/ceres/types"
)

// Location is an opaque source position carried by instructions and scopes.
// It wraps the AST node the construct was lowered from; a nil node means the
// construct is synthetic and has no position.
type Location struct {
	Node ast.Node
}

// IsNull reports whether there is no underlying source node.
func (l Location) IsNull() bool { return l.Node == nil }

// StartLoc returns the position of the underlying node, or source.NoLoc.
func (l Location) StartLoc() source.Loc {
	if l.Node == nil {
		return source.NoLoc
	}
	return l.Node.Pos()
}

// FuncDecl returns the function declaration behind this location, if any.
func (l Location) FuncDecl() *ast.FuncDecl {
	fd, _ := l.Node.(*ast.FuncDecl)
	return fd
}

// DebugScope is one node of a function's lexical scope tree. The root scope
// (Parent == nil) covers the function body. The tree mirrors source nesting
// and is acyclic by construction.
type DebugScope struct {
	Loc    Location
	Parent *DebugScope
}

// CallConv is the calling convention a function was lowered with.
type CallConv int

const (
	// ConvDefault is the native Ceres convention.
	ConvDefault CallConv = iota
	// ConvMethod is the native convention with a self argument.
	ConvMethod
	// ConvC is the foreign C convention; such functions are unit-local.
	ConvC
)

// Value is anything an instruction operand can name.
type Value interface {
	valueNode()
}

// Argument is a basic-block argument. Function parameters are the entry
// block's arguments, in declaration order.
type Argument struct {
	Name string
	Type types.Type
}

func (a *Argument) valueNode() {}

// Const is a literal operand. Only its presence matters to the debug layer.
type Const struct {
	Type types.Type
}

func (c *Const) valueNode() {}

// Instruction is one lowered operation. InstScope may return nil, in which
// case the instruction belongs to the enclosing function's root scope.
type Instruction interface {
	InstLoc() Location
	InstScope() *DebugScope
}

// AllocInst reserves a stack slot for a variable.
type AllocInst struct {
	Name  string
	Elem  types.Type
	Loc   Location
	Scope *DebugScope

	uses []Instruction
}

func (a *AllocInst) valueNode()             {}
func (a *AllocInst) InstLoc() Location      { return a.Loc }
func (a *AllocInst) InstScope() *DebugScope { return a.Scope }

// Uses returns every instruction that names this allocation as an operand,
// in emission order.
func (a *AllocInst) Uses() []Instruction { return a.uses }

// StoreInst writes Src into the storage named by Dst.
type StoreInst struct {
	Src   Value
	Dst   Value
	Loc   Location
	Scope *DebugScope
}

func (s *StoreInst) InstLoc() Location      { return s.Loc }
func (s *StoreInst) InstScope() *DebugScope { return s.Scope }

// LoadInst reads the storage named by Src.
type LoadInst struct {
	Name  string
	Src   Value
	Elem  types.Type
	Loc   Location
	Scope *DebugScope
}

func (l *LoadInst) valueNode()             {}
func (l *LoadInst) InstLoc() Location      { return l.Loc }
func (l *LoadInst) InstScope() *DebugScope { return l.Scope }

// RetInst terminates a function. Val is nil for a bare return.
type RetInst struct {
	Val   Value
	Loc   Location
	Scope *DebugScope
}

func (r *RetInst) InstLoc() Location      { return r.Loc }
func (r *RetInst) InstScope() *DebugScope { return r.Scope }

// Block is a straight-line sequence of instructions.
type Block struct {
	Args   []*Argument
	Instrs []Instruction
}

// Function is a lowered function: a scope tree rooted at the entry, ordered
// blocks, and the semantic signature the debugger descriptor is derived from.
type Function struct {
	Name     string
	Type     types.Func
	Scope    *DebugScope
	CallConv CallConv
	Blocks   []*Block
}

// Entry returns the function's first block, or nil for an empty function.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewFunction creates a function with a single entry block holding args.
func NewFunction(name string, sig types.Func, scope *DebugScope, args ...*Argument) *Function {
	return &Function{
		Name:   name,
		Type:   sig,
		Scope:  scope,
		Blocks: []*Block{{Args: args}},
	}
}

// Append adds an instruction to the block, registering the use when an
// operand names an allocation.
func (b *Block) Append(inst Instruction) {
	switch i := inst.(type) {
	case *StoreInst:
		addUse(i.Dst, inst)
		addUse(i.Src, inst)
	case *LoadInst:
		addUse(i.Src, inst)
	}
	b.Instrs = append(b.Instrs, inst)
}

func addUse(v Value, user Instruction) {
	if a, ok := v.(*AllocInst); ok {
		a.uses = append(a.uses, user)
	}
}
