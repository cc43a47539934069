package ast

import (
	"github.com/ceres-lang/ceres/source"
)

// The base Node interface. Every node knows where it starts in the source;
// source.NoLoc marks synthesized nodes with no position.
type Node interface {
	Pos() source.Loc
}

// All declaration nodes implement this.
type Decl interface {
	Node
	DeclName() string
}

// Ident is a named expression node. The debug layer only ever reads its
// position, but tests and the lowering driver use it to stand in for
// arbitrary expression locations.
type Ident struct {
	Name    string
	NamePos source.Loc
}

func (i *Ident) Pos() source.Loc  { return i.NamePos }
func (i *Ident) DeclName() string { return i.Name }

// AccessorKind classifies a function declaration that implements a property
// accessor. Accessors are anonymous in source; their display name is forged
// from the owning declaration.
type AccessorKind int

const (
	NotAccessor AccessorKind = iota
	Getter
	Setter
)

// FuncDecl is a function declaration as the backend sees it.
type FuncDecl struct {
	Name     string // empty for accessors and closures
	NamePos  source.Loc
	Accessor AccessorKind
	Owner    Decl // property declaration backing a getter/setter, else nil
}

func (f *FuncDecl) Pos() source.Loc  { return f.NamePos }
func (f *FuncDecl) DeclName() string { return f.Name }

// IsAccessor reports whether f implements a property getter or setter.
func (f *FuncDecl) IsAccessor() bool { return f.Accessor != NotAccessor }

// TypeDecl is a nominal type declaration (struct, class, union, protocol).
type TypeDecl struct {
	Name    string
	NamePos source.Loc
	// Bridged marks class declarations whose instances live in a foreign
	// runtime's object model rather than the native one.
	Bridged bool
}

func (t *TypeDecl) Pos() source.Loc  { return t.NamePos }
func (t *TypeDecl) DeclName() string { return t.Name }

// VarDecl is a variable declaration; the backend reads it for globals.
type VarDecl struct {
	Name    string
	NamePos source.Loc
}

func (v *VarDecl) Pos() source.Loc  { return v.NamePos }
func (v *VarDecl) DeclName() string { return v.Name }
