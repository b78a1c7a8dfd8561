// Package node implements the JSON value model used by the jsont compiler and
// interpreter.
//
// Values are plain Go values as produced by encoding/json with numbers kept
// exact: map[string]any, []any, string, bool, nil (JSON null), int64,
// float64, *big.Int, *big.Float and json.Number. The Missing sentinel stands
// for an absent value and is distinct from JSON null.
package node

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
)

type missing struct{}

func (missing) String() string { return "<missing>" }

// Missing is the value of a path that does not exist.
var Missing any = missing{}

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v any) bool {
	_, ok := v.(missing)
	return ok
}

// Type classifies a value.
type Type int

const (
	TypeMissing Type = iota
	TypeNull
	TypeBool
	TypeNumber
	TypeString
	TypeArray
	TypeObject
)

func (t Type) String() string {
	switch t {
	case TypeMissing:
		return "missing"
	case TypeNull:
		return "null"
	case TypeBool:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// TypeOf returns the Type of v. Values outside the model are reported as
// TypeMissing.
func TypeOf(v any) Type {
	switch v.(type) {
	case nil:
		return TypeNull
	case missing:
		return TypeMissing
	case bool:
		return TypeBool
	case int64, float64, *big.Int, *big.Float, json.Number:
		return TypeNumber
	case string:
		return TypeString
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	default:
		return TypeMissing
	}
}

// IsNumber reports whether v is a numeric value.
func IsNumber(v any) bool {
	return TypeOf(v) == TypeNumber
}

// IsIntegral reports whether v is an integral number (int64 or *big.Int, or a
// json.Number with integer syntax).
func IsIntegral(v any) bool {
	switch n := v.(type) {
	case int64, *big.Int:
		return true
	case json.Number:
		return !strings.ContainsAny(string(n), ".eE")
	}
	return false
}

// IsTruthy reports the boolean value of v. Strings are true when non-empty,
// numbers and booleans when non-zero and not NaN, arrays and objects when
// non-empty. Null and Missing are false.
func IsTruthy(v any) bool {
	switch n := v.(type) {
	case string:
		return n != ""
	case bool:
		return n
	case nil, missing:
		return false
	case []any:
		return len(n) != 0
	case map[string]any:
		return len(n) != 0
	}
	if IsNumber(v) {
		d := AsFloat(v)
		return !math.IsNaN(d) && d != 0
	}
	return false
}

// Size returns the number of elements of an array or object and 0 for
// everything else.
func Size(v any) int {
	switch n := v.(type) {
	case []any:
		return len(n)
	case map[string]any:
		return len(n)
	}
	return 0
}

// AsFloat converts v to a float64. Strings are parsed, defaulting to 0;
// booleans convert to 1 or 0; everything else is 0.
func AsFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f
	case *big.Float:
		f, _ := n.Float64()
		return f
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// AsInt converts v to an int64, truncating fractions. Strings are parsed,
// defaulting to 0.
func AsInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return saturate(n)
	case *big.Int:
		if n.IsInt64() {
			return n.Int64()
		}
		if n.Sign() < 0 {
			return math.MinInt64
		}
		return math.MaxInt64
	case *big.Float:
		i, _ := n.Int64()
		return i
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		return saturate(AsFloat(n))
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return saturate(f)
		}
		return 0
	}
	return 0
}

// AsBool converts v to a boolean the way a JSON tree does: booleans as-is,
// numbers when non-zero, the string "true".
func AsBool(v any) bool {
	switch n := v.(type) {
	case bool:
		return n
	case string:
		return strings.TrimSpace(n) == "true"
	}
	if IsNumber(v) {
		return AsFloat(v) != 0
	}
	return false
}

func saturate(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// Get returns the member of v addressed by key. Integer keys index arrays and
// string keys index objects; any other combination yields Missing.
func Get(v any, key any) any {
	switch k := key.(type) {
	case int:
		if arr, ok := v.([]any); ok && k >= 0 && k < len(arr) {
			return arr[k]
		}
	case string:
		if obj, ok := v.(map[string]any); ok {
			if m, found := obj[k]; found {
				return m
			}
		}
	}
	return Missing
}

// Index returns element i of an array or Missing.
func Index(v any, i int) any {
	return Get(v, i)
}
