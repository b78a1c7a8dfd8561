package node

import (
	"strconv"
	"strings"
)

// Path is a variable reference split into segments. Each segment is either a
// string field name or an int array index. A nil Path refers to the current
// node, written "@".
type Path []any

// ParsePath splits a dotted variable name into a Path. "@" yields nil.
// Segments consisting only of digits become ints when they fit.
func ParsePath(name string) Path {
	if name == "@" {
		return nil
	}
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '.' })
	if len(parts) == 0 {
		return nil
	}
	path := make(Path, len(parts))
	for i, part := range parts {
		path[i] = part
		if allDigits(part) {
			if n, err := strconv.ParseInt(part, 10, 32); err == nil {
				path[i] = int(n)
			}
		}
	}
	return path
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String returns the dotted form of the path, or "@" for the current node.
func (p Path) String() string {
	if p == nil {
		return "@"
	}
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		switch s := seg.(type) {
		case int:
			b.WriteString(strconv.Itoa(s))
		case string:
			b.WriteString(s)
		}
	}
	return b.String()
}

// Equal reports whether two paths have identical segments.
func (p Path) Equal(o Path) bool {
	if (p == nil) != (o == nil) || len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// At walks path starting at v. An object key given as an int is converted to
// its string form. The walk stops with Missing at the first absent segment.
func At(v any, path Path) any {
	if path == nil {
		return Missing
	}
	cur := v
	for _, key := range path {
		switch c := cur.(type) {
		case []any:
			cur = Get(c, key)
		case map[string]any:
			if i, ok := key.(int); ok {
				key = strconv.Itoa(i)
			}
			cur = Get(c, key)
		default:
			cur = Missing
		}
		if IsMissing(cur) {
			break
		}
	}
	return cur
}
