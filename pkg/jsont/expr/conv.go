package expr

import (
	"errors"
	"math"
	"strconv"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// literal resolves a token to a boolean, null, number or string token.
// Variables are looked up in the scope; objects and arrays yield nil.
func literal(s Scope, t *Token) *Token {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case KindBoolean, KindNull, KindNumber, KindString:
		return t
	case KindVariable:
		return valueToken(s.Resolve(t.Path))
	}
	return nil
}

func valueToken(v any) *Token {
	switch node.TypeOf(v) {
	case node.TypeBool:
		return Bool(v.(bool))
	case node.TypeNumber:
		return Num(node.AsFloat(v))
	case node.TypeString:
		return Str(v.(string))
	case node.TypeNull, node.TypeMissing:
		return nullToken
	}
	return nil
}

// toNode converts a literal token back to a JSON value.
func toNode(t *Token) any {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case KindBoolean:
		return t.Bool
	case KindNumber:
		return t.Num
	case KindString:
		return t.Str
	}
	return nil
}

func asBool(t *Token) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindBoolean:
		return t.Bool
	case KindNumber:
		return t.Num != 0 && !math.IsNaN(t.Num)
	case KindString:
		return t.Str != ""
	}
	return false
}

func asNum(t *Token) float64 {
	if t == nil {
		return math.NaN()
	}
	switch t.Kind {
	case KindBoolean:
		if t.Bool {
			return 1
		}
		return 0
	case KindNull:
		return 0
	case KindNumber:
		return t.Num
	case KindString:
		return stringToNum(t.Str)
	}
	return math.NaN()
}

// asInt truncates toward zero, saturating at the int32 range. NaN is 0.
func asInt(t *Token) int32 {
	f := asNum(t)
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

func asStr(t *Token) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case KindBoolean:
		if t.Bool {
			return "true"
		}
		return "false"
	case KindNull:
		return "null"
	case KindNumber:
		return node.FormatNumber(t.Num)
	case KindString:
		return t.Str
	}
	return ""
}

// stringToNum converts a string to a number the way JavaScript's Number()
// does for the forms the tokenizer accepts: an optional sign followed by a
// hex or decimal literal. The empty string is 0; anything else is NaN.
func stringToNum(s string) float64 {
	if s == "" {
		return 0
	}
	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return math.NaN()
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		v, end := scanHex(s, 2)
		if end != len(s) {
			return math.NaN()
		}
		return sign * v
	}
	if !isDigit(s[0]) && s[0] != '.' {
		return math.NaN()
	}
	end := scanDecimal(s, 0)
	if end != len(s) {
		return math.NaN()
	}
	return sign * parseDecimal(s)
}

// scanHex accumulates hex digits from s[i:], returning the value and the
// index just past the last digit.
func scanHex(s string, i int) (float64, int) {
	v := 0.0
	for ; i < len(s); i++ {
		d := hexValue(s[i])
		if d < 0 {
			break
		}
		v = v*16 + float64(d)
	}
	return v, i
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Decimal scan failures, returned as negative end positions.
const (
	errExponentDigit = -2
	errDuplicateDot  = -3
	errDotInExponent = -4
)

// scanDecimal matches a decimal literal starting at s[i], returning the end
// index or one of the negative scan failure codes.
func scanDecimal(s string, i int) int {
	dot, exp := false, false
	for i < len(s) {
		c := s[i]
		switch {
		case isDigit(c):
			i++
		case c == '.':
			if exp {
				return errDotInExponent
			}
			if dot {
				return errDuplicateDot
			}
			dot = true
			i++
		case c == 'e' || c == 'E':
			if exp {
				return i
			}
			exp = true
			i++
			if i < len(s) && (s[i] == '+' || s[i] == '-') {
				i++
			}
			if i >= len(s) || !isDigit(s[i]) {
				return errExponentDigit
			}
		default:
			return i
		}
	}
	return i
}

func parseDecimal(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}
