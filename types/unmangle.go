package types

import (
	"fmt"
	"strconv"

	"github.com/ceres-lang/ceres/ast"
)

// UnmangleFunc decodes a mangled symbol produced by MangleFunc into its
// function name and parameter types. It expects the format:
//
//	$<funcName> { $<Type> }
//
// where each Type is encoded by Type.Mangle(). Nominal declarations
// reconstructed this way carry only their name; source position and bridging
// attributes are not part of the mangling.
func UnmangleFunc(s string) (name string, params []Type, err error) {
	if len(s) == 0 || s[0] != '$' {
		return "", nil, fmt.Errorf("invalid mangled string: missing leading '$'")
	}
	i := 1
	j := i
	for j < len(s) && s[j] != '$' {
		j++
	}
	name = s[i:j]
	pos := j
	for pos < len(s) {
		t, next, perr := parseTypeFrom(s, pos)
		if perr != nil {
			return "", nil, perr
		}
		params = append(params, t)
		pos = next
	}
	return name, params, nil
}

// UnmangleName decodes a single type key produced by MangleName.
func UnmangleName(s string) (Type, error) {
	t, next, err := parseTypeFrom(s, 0)
	if err != nil {
		return nil, err
	}
	if next != len(s) {
		return nil, fmt.Errorf("trailing junk after type at %d in %q", next, s)
	}
	return t, nil
}

// parseTypeFrom parses a single Type starting at position pos, where s[pos]
// is expected to be '$'. It returns the parsed Type and the next index to
// continue from.
func parseTypeFrom(s string, pos int) (Type, int, error) {
	if pos >= len(s) || s[pos] != '$' {
		return nil, pos, fmt.Errorf("parse error: expected '$' at %d", pos)
	}
	tok, next := readToken(s, pos)
	if tok == "" {
		return nil, next, fmt.Errorf("parse error: empty token at %d", pos)
	}
	switch tok {
	case "Unresolved":
		return Unresolved{}, next, nil
	case "Ptr":
		cnt, npos, err := readCount(s, next)
		if err != nil {
			return nil, npos, fmt.Errorf("Ptr missing count: %w", err)
		}
		if cnt != 1 {
			return nil, npos, fmt.Errorf("Ptr count must be 1, got %d", cnt)
		}
		elem, nnext, err := parseTypeFrom(s, npos)
		if err != nil {
			return nil, nnext, err
		}
		return Ptr{Elem: elem}, nnext, nil
	case "Fn":
		// $Fn $P<p> <p types> $O<r> <r types>
		p, posP, err := readTagCount(s, next, 'P')
		if err != nil {
			return nil, posP, fmt.Errorf("Fn missing P<count>: %w", err)
		}
		params := make([]Type, p)
		cur := posP
		for i := 0; i < p; i++ {
			pt, nn, err := parseTypeFrom(s, cur)
			if err != nil {
				return nil, nn, err
			}
			params[i] = pt
			cur = nn
		}
		r, posO, err := readTagCount(s, cur, 'O')
		if err != nil {
			return nil, posO, fmt.Errorf("Fn missing O<count>: %w", err)
		}
		results := make([]Type, r)
		cur = posO
		for i := 0; i < r; i++ {
			rt, nn, err := parseTypeFrom(s, cur)
			if err != nil {
				return nil, nn, err
			}
			results[i] = rt
			cur = nn
		}
		return Func{Params: params, Results: results}, cur, nil
	}

	// Scalars: I{digits} or F{digits}.
	if t, ok := parseScalar(tok); ok {
		return t, next, nil
	}

	// Nominal tags fused with the declaration name.
	if len(tok) > 1 {
		decl := &ast.TypeDecl{Name: tok[1:]}
		switch tok[0] {
		case 'V':
			return Struct{Decl: decl}, next, nil
		case 'C':
			return Class{Decl: decl}, next, nil
		case 'O':
			return Union{Decl: decl}, next, nil
		case 'P':
			return Protocol{Decl: decl}, next, nil
		}
	}
	return nil, next, fmt.Errorf("unknown type tag: %q", tok)
}

func parseScalar(tok string) (Type, bool) {
	if len(tok) < 2 || (tok[0] != 'I' && tok[0] != 'F') {
		return nil, false
	}
	w, err := strconv.Atoi(tok[1:])
	if err != nil || w <= 0 {
		return nil, false
	}
	if tok[0] == 'I' {
		return Int{Width: uint32(w)}, true
	}
	return Float{Width: uint32(w)}, true
}

// readToken reads the token that starts at s[pos], where s[pos] == '$'.
// It returns the token string and the index of the next '$' or end of string.
func readToken(s string, pos int) (string, int) {
	i := pos + 1
	j := i
	for j < len(s) && s[j] != '$' {
		j++
	}
	return s[i:j], j
}

// readCount reads a numeric token after position pos. Expects s[pos] == '$'.
func readCount(s string, pos int) (int, int, error) {
	tok, next := readToken(s, pos)
	if tok == "" {
		return 0, next, fmt.Errorf("missing count token")
	}
	val, err := strconv.Atoi(tok)
	if err != nil {
		return 0, next, fmt.Errorf("invalid count in %q: %v", tok, err)
	}
	return val, next, nil
}

// readTagCount expects a tag token like "P" or "O" fused with digits ("P3").
func readTagCount(s string, pos int, tag rune) (int, int, error) {
	tok, next := readToken(s, pos)
	if tok == "" {
		return 0, next, fmt.Errorf("missing %c token", tag)
	}
	if rune(tok[0]) != tag {
		return 0, next, fmt.Errorf("expected %c token, got %q", tag, tok)
	}
	if len(tok) > 1 {
		val, err := strconv.Atoi(tok[1:])
		if err != nil {
			return 0, next, fmt.Errorf("invalid %c count in %q: %v", tag, tok, err)
		}
		return val, next, nil
	}
	// No fused digits; expect a separate numeric token.
	return readCount(s, next)
}
