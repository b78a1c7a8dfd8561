package node

import (
	"encoding/json"
	"io"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// FormatNumber formats d the way JavaScript's Number.prototype.toString does.
func FormatNumber(d float64) string {
	switch {
	case math.IsNaN(d):
		return "NaN"
	case math.IsInf(d, 1):
		return "Infinity"
	case math.IsInf(d, -1):
		return "-Infinity"
	case d == 0:
		return "0"
	}

	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	// Shortest round-trip digits in the form "d.ddde±XX".
	sci := strconv.FormatFloat(d, 'e', -1, 64)
	mant, exp, _ := strings.Cut(sci, "e")
	digits := strings.Replace(mant, ".", "", 1)
	e, _ := strconv.Atoi(exp)
	k := len(digits)
	n := e + 1

	var b strings.Builder
	b.WriteString(sign)
	switch {
	case k <= n && n <= 21:
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", n-k))
	case 0 < n && n <= 21:
		b.WriteString(digits[:n])
		b.WriteByte('.')
		b.WriteString(digits[n:])
	case -6 < n && n <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -n))
		b.WriteString(digits)
	default:
		b.WriteByte(digits[0])
		if k > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		if n-1 >= 0 {
			b.WriteByte('+')
		}
		b.WriteString(strconv.Itoa(n - 1))
	}
	return b.String()
}

// NumberText renders a numeric value: integers and big decimals exactly,
// floats in JavaScript form.
func NumberText(v any) string {
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return FormatNumber(n)
	case *big.Int:
		return n.String()
	case *big.Float:
		return n.Text('f', -1)
	case json.Number:
		return NumberText(normalizeNumber(n))
	}
	return ""
}

// AsText returns the scalar text of v. Null renders as "null", Missing and
// containers as the empty string.
func AsText(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case bool:
		if n {
			return "true"
		}
		return "false"
	case nil:
		return "null"
	case missing, []any, map[string]any:
		return ""
	}
	if IsNumber(v) {
		return NumberText(v)
	}
	return ""
}

// Writer is satisfied by both strings.Builder and bytes.Buffer.
type Writer interface {
	io.StringWriter
	io.ByteWriter
}

// Emit renders v as template output. Arrays render as a comma-joined list of
// element text, null and Missing as nothing and objects as nothing.
func Emit(b Writer, v any) {
	switch n := v.(type) {
	case nil, missing:
		return
	case []any:
		for i, elem := range n {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(AsText(elem))
		}
		return
	}
	b.WriteString(AsText(v))
}

// EmitString is Emit returning a string.
func EmitString(v any) string {
	var b strings.Builder
	Emit(&b, v)
	return b.String()
}

// Encode serializes v as compact JSON with object keys sorted. Missing
// encodes as the empty string.
func Encode(v any) string {
	var b strings.Builder
	encode(&b, v, "", "")
	return b.String()
}

// EncodeIndent serializes v as JSON indented by indent.
func EncodeIndent(v any, indent string) string {
	var b strings.Builder
	encode(&b, v, indent, "")
	return b.String()
}

func encode(b *strings.Builder, v any, indent, prefix string) {
	switch n := v.(type) {
	case missing:
		return
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(n))
	case string:
		b.WriteString(Quote(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			b.WriteString("null")
			return
		}
		b.WriteString(FormatNumber(n))
	case []any:
		if len(n) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteByte('[')
		inner := prefix + indent
		for i, elem := range n {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(b, indent, inner)
			encode(b, elem, indent, inner)
		}
		newline(b, indent, prefix)
		b.WriteByte(']')
	case map[string]any:
		if len(n) == 0 {
			b.WriteString("{}")
			return
		}
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		inner := prefix + indent
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(b, indent, inner)
			b.WriteString(Quote(k))
			b.WriteByte(':')
			if indent != "" {
				b.WriteByte(' ')
			}
			encode(b, n[k], indent, inner)
		}
		newline(b, indent, prefix)
		b.WriteByte('}')
	default:
		if IsNumber(v) {
			b.WriteString(NumberText(v))
		}
	}
}

func newline(b *strings.Builder, indent, prefix string) {
	if indent == "" {
		return
	}
	b.WriteByte('\n')
	b.WriteString(prefix)
}

// Quote returns s as a JSON string literal without escaping HTML characters.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte("0123456789abcdef"[r>>4])
				b.WriteByte("0123456789abcdef"[r&0xf])
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
