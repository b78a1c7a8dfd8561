package node

import (
	"math"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"missing", Missing, false},
		{"null", nil, false},
		{"empty string", "", false},
		{"string", "a", true},
		{"zero", int64(0), false},
		{"int", int64(3), true},
		{"nan", math.NaN(), false},
		{"float", 0.5, true},
		{"false", false, false},
		{"true", true, true},
		{"empty array", []any{}, false},
		{"array", []any{int64(1)}, true},
		{"empty object", map[string]any{}, false},
		{"object", map[string]any{"a": nil}, true},
		{"big int", new(big.Int).Lsh(big.NewInt(1), 80), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTruthy(tt.value))
		})
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Path
	}{
		{"current node", "@", nil},
		{"single", "foo", Path{"foo"}},
		{"dotted", "a.b.c", Path{"a", "b", "c"}},
		{"index", "items.0.name", Path{"items", 0, "name"}},
		{"local var", "@index", Path{"@index"}},
		{"huge index stays string", "a.99999999999", Path{"a", "99999999999"}},
		{"empty segments dropped", "a..b", Path{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePath(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePath(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
			if tt.in != "a..b" {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}

func TestAt(t *testing.T) {
	data := MustDecode(`{"a": {"b": [10, 20, {"c": "x"}]}, "1": "one"}`)

	assert.Equal(t, int64(20), At(data, ParsePath("a.b.1")))
	assert.Equal(t, "x", At(data, ParsePath("a.b.2.c")))
	assert.Equal(t, "one", At(data, ParsePath("1")))
	assert.True(t, IsMissing(At(data, ParsePath("a.z"))))
	assert.True(t, IsMissing(At(data, ParsePath("a.b.9"))))
	assert.True(t, IsMissing(At(data, nil)))
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-1.5, "-1.5"},
		{0.1, "0.1"},
		{123456789, "123456789"},
		{1e21, "1e+21"},
		{1e20, "100000000000000000000"},
		{1.5e-7, "1.5e-7"},
		{0.000001, "0.000001"},
		{1.0 / 3, "0.3333333333333333"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{12.5e30, "1.25e+31"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}

func TestEmit(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"string", `"abc"`, "abc"},
		{"integer", `123`, "123"},
		{"big integer", `123456789012345678901234567890`, "123456789012345678901234567890"},
		{"float", `1.50`, "1.5"},
		{"array", `[1, "a", true, null, 2.5]`, "1,a,true,null,2.5"},
		{"object", `{"a": 1}`, ""},
		{"null", `null`, ""},
		{"bool", `false`, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EmitString(MustDecode(tt.json)))
		})
	}
	assert.Equal(t, "", EmitString(Missing))
}

func TestDecode(t *testing.T) {
	v, err := DecodeString(`{"i": 1, "f": 1.25, "big": 99999999999999999999, "s": "x", "a": [true]}`)
	require.NoError(t, err)

	obj := v.(map[string]any)
	assert.Equal(t, int64(1), obj["i"])
	assert.Equal(t, 1.25, obj["f"])
	assert.IsType(t, &big.Int{}, obj["big"])
	assert.Equal(t, []any{true}, obj["a"])

	_, err = DecodeString(`{"a": 1} 2`)
	require.Error(t, err)
	_, err = DecodeString(`{`)
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	type item struct {
		Name  string `json:"name"`
		Price int    `json:"price"`
	}
	in := map[string]any{
		"ints":  []int{1, 2},
		"items": []item{{"a", 3}},
		"m":     map[string]string{"k": "v"},
		"f":     float32(0.5),
	}

	got, err := Normalize(in)
	require.NoError(t, err)

	want := map[string]any{
		"ints":  []any{int64(1), int64(2)},
		"items": []any{map[string]any{"name": "a", "price": int64(3)}},
		"m":     map[string]any{"k": "v"},
		"f":     0.5,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestEqualAndCompare(t *testing.T) {
	assert.True(t, Equal(MustDecode(`{"a":[1,"b"]}`), MustDecode(`{"a":[1,"b"]}`)))
	assert.False(t, Equal(int64(1), 1.0))
	assert.False(t, Equal("1", int64(1)))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, Missing))

	assert.Equal(t, -1, Compare(int64(1), int64(2)))
	assert.Equal(t, 1, Compare(int64(3), "2"))
	assert.Equal(t, 0, Compare(2.5, 2.5))
	assert.Equal(t, -1, Compare("abc", "abd"))
	assert.Equal(t, 1, Compare(true, false))
	assert.Equal(t, -1, Compare([]any{}, map[string]any{}))
}

func TestEncode(t *testing.T) {
	v := MustDecode(`{"b": [1, 2.5, "x\n"], "a": null, "c": {}}`)
	assert.Equal(t, `{"a":null,"b":[1,2.5,"x\n"],"c":{}}`, Encode(v))
	assert.Equal(t, "{\n  \"x\": [\n    1\n  ]\n}", EncodeIndent(MustDecode(`{"x":[1]}`), "  "))
	assert.Equal(t, `"<a>"`, Encode("<a>"))
}
