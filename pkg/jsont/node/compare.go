package node

import (
	"cmp"
	"encoding/json"
	"math"
	"math/big"
	"strings"
)

// Equal reports deep equality of two values. Numbers are equal when they are
// both integral or both floating point and have the same value.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case missing:
		return IsMissing(b)
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, found := y[k]
			if !found || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	if !IsNumber(a) || !IsNumber(b) {
		return false
	}
	a, b = canonicalNumber(a), canonicalNumber(b)
	if IsIntegral(a) != IsIntegral(b) {
		return false
	}
	if IsIntegral(a) {
		return toBigInt(a).Cmp(toBigInt(b)) == 0
	}
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	if aok && bok {
		return fa == fb
	}
	if math.IsNaN(AsFloat(a)) || math.IsNaN(AsFloat(b)) {
		return false
	}
	return toBigFloat(a).Cmp(toBigFloat(b)) == 0
}

// Compare orders left against right, keyed on the type of left: integers and
// floats numerically, strings lexically, booleans false before true. Values
// of other types compare as 0 when equal and -1 otherwise.
func Compare(left, right any) int {
	left = canonicalNumber(left)
	switch l := left.(type) {
	case int64:
		return cmp.Compare(l, AsInt(right))
	case *big.Int:
		return l.Cmp(big.NewInt(AsInt(right)))
	case float64:
		return cmp.Compare(l, AsFloat(right))
	case *big.Float:
		r := AsFloat(right)
		if math.IsNaN(r) {
			return -1
		}
		return l.Cmp(big.NewFloat(r))
	case string:
		return strings.Compare(l, AsText(right))
	case bool:
		r := AsBool(right)
		switch {
		case l == r:
			return 0
		case !l:
			return -1
		default:
			return 1
		}
	}
	if Equal(left, right) {
		return 0
	}
	return -1
}

func canonicalNumber(v any) any {
	if n, ok := v.(json.Number); ok {
		return normalizeNumber(n)
	}
	return v
}

func toBigInt(v any) *big.Int {
	switch n := v.(type) {
	case int64:
		return big.NewInt(n)
	case *big.Int:
		return n
	}
	return big.NewInt(AsInt(v))
}

func toBigFloat(v any) *big.Float {
	switch n := v.(type) {
	case float64:
		return big.NewFloat(n)
	case *big.Float:
		return n
	}
	return big.NewFloat(AsFloat(v))
}
