package node

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"reflect"
	"strings"
)

// Decode reads a single JSON document from r. Integral numbers become int64,
// or *big.Int when they overflow; other numbers become float64.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return normalize(v), nil
}

// DecodeString decodes a JSON document held in s.
func DecodeString(s string) (any, error) {
	return Decode(strings.NewReader(s))
}

// DecodeBytes decodes a JSON document held in b.
func DecodeBytes(b []byte) (any, error) {
	return Decode(bytes.NewReader(b))
}

// MustDecode is DecodeString that panics on malformed input. Meant for tests
// and static data.
func MustDecode(s string) any {
	v, err := DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("node: invalid JSON %q: %v", s, err))
	}
	return v
}

func normalizeNumber(n json.Number) any {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if b, ok := new(big.Int).SetString(s, 10); ok {
			return b
		}
	}
	f, err := n.Float64()
	if err != nil {
		if bf, _, perr := big.ParseFloat(s, 10, 256, big.ToNearestEven); perr == nil {
			return bf
		}
		return s
	}
	return f
}

// Normalize converts an arbitrary Go value into the JSON value model.
// Common Go types are converted directly; structs and other values go
// through encoding/json. Unsupported values yield an error.
func Normalize(v any) (any, error) {
	switch n := v.(type) {
	case nil, missing, bool, string, int64, float64, *big.Int, *big.Float:
		return v, nil
	case json.Number:
		return normalizeNumber(n), nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		return Normalize(uint64(n))
	case uint64:
		if n > 1<<63-1 {
			return new(big.Int).SetUint64(n), nil
		}
		return int64(n), nil
	case float32:
		return float64(n), nil
	case []any:
		out := make([]any, len(n))
		for i, elem := range n {
			c, err := Normalize(elem)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, elem := range n {
			c, err := Normalize(elem)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, elem := range n {
			c, err := Normalize(elem)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = c
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		out := make([]any, rv.Len())
		for i := range out {
			c, err := Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				c, err := Normalize(iter.Value().Interface())
				if err != nil {
					return nil, err
				}
				out[iter.Key().String()] = c
			}
			return out, nil
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %T to a JSON value: %w", v, err)
	}
	return DecodeBytes(raw)
}

func normalize(v any) any {
	switch n := v.(type) {
	case json.Number:
		return normalizeNumber(n)
	case []any:
		for i, elem := range n {
			n[i] = normalize(elem)
		}
		return n
	case map[string]any:
		for k, elem := range n {
			n[k] = normalize(elem)
		}
		return n
	}
	return v
}
