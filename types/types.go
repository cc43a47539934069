package types

import (
	"fmt"

	"github.com/ceres-lang/ceres/ast"
)

type Kind int

const (
	UnresolvedKind Kind = iota
	IntKind
	FloatKind
	PtrKind
	StructKind
	ClassKind
	UnionKind
	ProtocolKind
	FuncKind
)

// Type is the interface for all semantic types the backend consumes.
// Mangle produces the stable name key used both as the debug-type cache key
// and as the emitted nominal type name.
type Type interface {
	String() string
	Kind() Kind
	Mangle() string
}

// Common concrete types (aliases) for readability.
// These are value-typed singletons; using them in maps/keys is safe since
// Int and Float are comparable by value.
var (
	I1  Type = Int{Width: 1}
	I64 Type = Int{Width: 64}
	F64 Type = Float{Width: 64}
)

type Unresolved struct{}

func (u Unresolved) Kind() Kind     { return UnresolvedKind }
func (u Unresolved) String() string { return "?" }
func (u Unresolved) Mangle() string { return "Unresolved" }

// Int represents a builtin integer type with a given bit width.
type Int struct {
	Width uint32 // e.g. 8, 16, 32, 64
}

func (i Int) String() string { return fmt.Sprintf("I%d", i.Width) }
func (i Int) Kind() Kind     { return IntKind }
func (i Int) Mangle() string { return i.String() }

// Float represents a builtin floating-point type with a given precision.
type Float struct {
	Width uint32 // e.g. 32, 64
}

func (f Float) String() string { return fmt.Sprintf("F%d", f.Width) }
func (f Float) Kind() Kind     { return FloatKind }
func (f Float) Mangle() string { return f.String() }

// Ptr represents a pointer type to some element type.
type Ptr struct {
	Elem Type
}

func (p Ptr) String() string { return fmt.Sprintf("Ptr_%s", p.Elem.String()) }
func (p Ptr) Kind() Kind     { return PtrKind }
func (p Ptr) Mangle() string { return "Ptr" + PREFIX + "1" + PREFIX + p.Elem.Mangle() }

// Struct is a nominal aggregate backed by a type declaration. Decl may be nil
// for aggregates synthesized without source backing; such types have no
// stable identity and cannot be described to the debugger.
type Struct struct {
	Decl *ast.TypeDecl
}

func (s Struct) String() string { return "struct " + declName(s.Decl) }
func (s Struct) Kind() Kind     { return StructKind }
func (s Struct) Mangle() string { return "V" + declName(s.Decl) }

// Class is a nominal reference type backed by a type declaration.
type Class struct {
	Decl *ast.TypeDecl
}

func (c Class) String() string { return "class " + declName(c.Decl) }
func (c Class) Kind() Kind     { return ClassKind }
func (c Class) Mangle() string { return "C" + declName(c.Decl) }

// Union is a tagged union (one-of) declaration-backed type.
type Union struct {
	Decl *ast.TypeDecl
}

func (u Union) String() string { return "union " + declName(u.Decl) }
func (u Union) Kind() Kind     { return UnionKind }
func (u Union) Mangle() string { return "O" + declName(u.Decl) }

// Protocol is an abstract interface type.
type Protocol struct {
	Decl *ast.TypeDecl
}

func (p Protocol) String() string { return "protocol " + declName(p.Decl) }
func (p Protocol) Kind() Kind     { return ProtocolKind }
func (p Protocol) Mangle() string { return "P" + declName(p.Decl) }

// Func is a function signature type.
type Func struct {
	Params  []Type
	Results []Type
}

func (f Func) String() string {
	return fmt.Sprintf("(%s) -> (%s)", typesStr(f.Params), typesStr(f.Results))
}

func (f Func) Kind() Kind { return FuncKind }

func (f Func) Mangle() string {
	m := fmt.Sprintf("Fn%sP%d", PREFIX, len(f.Params))
	for _, p := range f.Params {
		m += PREFIX + p.Mangle()
	}
	m += fmt.Sprintf("%sO%d", PREFIX, len(f.Results))
	for _, r := range f.Results {
		m += PREFIX + r.Mangle()
	}
	return m
}

func declName(d *ast.TypeDecl) string {
	if d == nil {
		return ""
	}
	return d.Name
}

func typesStr(types []Type) string {
	s := ""
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s
}

// Equal performs structural equality on types with a dispatcher by Kind.
// Nominal types compare by declaration name, which is also what their
// mangled keys encode.
func Equal(a, b Type) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	cmp := typeComparer(a.Kind())
	return cmp(a, b)
}

// EqualSlices checks two type slices element-wise.
func EqualSlices(xs, ys []Type) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i := range xs {
		if !Equal(xs[i], ys[i]) {
			return false
		}
	}
	return true
}

func typeComparer(k Kind) func(a, b Type) bool {
	switch k {
	case UnresolvedKind:
		return func(a, b Type) bool { return true }
	case IntKind:
		return eqInt
	case FloatKind:
		return eqFloat
	case PtrKind:
		return eqPtr
	case StructKind, ClassKind, UnionKind, ProtocolKind:
		return eqNominal
	case FuncKind:
		return eqFunc
	default:
		return func(a, b Type) bool { panic(fmt.Sprintf("types.Equal: unhandled kind %v", k)) }
	}
}

func eqInt(a, b Type) bool   { return a.(Int).Width == b.(Int).Width }
func eqFloat(a, b Type) bool { return a.(Float).Width == b.(Float).Width }

func eqPtr(a, b Type) bool {
	return Equal(a.(Ptr).Elem, b.(Ptr).Elem)
}

// eqNominal compares by mangled identity so a Struct and a Class of the same
// name stay distinct (the kind tag is part of the key).
func eqNominal(a, b Type) bool { return a.Mangle() == b.Mangle() }

func eqFunc(a, b Type) bool {
	af := a.(Func)
	bf := b.(Func)
	return EqualSlices(af.Params, bf.Params) && EqualSlices(af.Results, bf.Results)
}
