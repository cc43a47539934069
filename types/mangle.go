package types

// PREFIX separates tokens inside mangled names. Nominal types fuse their tag
// with the declaration name (VPoint, CWindow, OShape, PDrawable); scalars are
// their width-qualified spelling (I64, F32).
const PREFIX = "$"

// MangleName returns the stable external name key for a type. Structurally
// equal types always mangle identically, so the result doubles as the
// debug-type cache key.
func MangleName(t Type) string {
	return PREFIX + t.Mangle()
}

// MangleFunc encodes a function and its parameter types into a stable symbol
// name: $<name>{$<type>}.
func MangleFunc(funcName string, params []Type) string {
	mangled := PREFIX + funcName
	for _, p := range params {
		mangled += PREFIX + p.Mangle()
	}
	return mangled
}
