package jsont

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     string
		want     string
	}{
		{"text", "Hello {name}!", `{"name": "World"}`, "Hello World!"},
		{"missing", "[{nope}]", `{}`, "[]"},
		{"null", "[{a}]", `{"a": null}`, "[]"},
		{"array", "{a}", `{"a": [1, "b", true]}`, "1,b,true"},
		{"object", "[{a}]", `{"a": {"b": 1}}`, "[]"},
		{"float", "{a}", `{"a": 1.5}`, "1.5"},
		{"path", "{a.b.1}", `{"a": {"b": [1, 2]}}`, "2"},
		{"index into object", "[{a.0}]", `{"a": {"0": "x"}}`, "[]"},
		{"path through null", "{a.b}", `{"a": null}`, "[JSONT: Can't resolve 'a.b'.]"},
		{"formatter chain", "{a|upper|suffix:!}", `{"a": "hi"}`, "HI!"},
		{"multiple variables", "{a,b|join}", `{"a": 1, "b": 2}`, "1-2"},
		{"multiple variables with args", "{a, b|join:+}", `{"a": 1, "b": 2}`, "1+2"},
		{"literals", "{.meta-left}x{.meta-right}{.space}{.tab}{.newline}", `{}`, "{x} \t\n"},
		{"comments", "a{# c}b{## x ##}c", `{}`, "abc"},

		{"section", "{.section foo}{bar}{.end}", `{"foo": {"bar": "hi"}}`, "hi"},
		{"section falsy", "{.section foo}{bar}{.end}", `{"foo": false}`, ""},
		{"section else", "{.section a}yes{.or}no{.end}", `{"a": ""}`, "no"},
		{"section else sees outer scope", "{.section a}x{.or}{b}{.end}", `{"a": 0, "b": "B"}`, "B"},
		{"variable searches upward", "{.section a}{b}{.end}", `{"a": {"c": 1}, "b": "B"}`, "B"},
		{"section resolves in current frame only", "{.section a}{.section b}in{.or}out{.end}{.end}",
			`{"a": {"c": 1}, "b": "B"}`, "out"},

		{"repeated", "{.repeated section items}{@}{.alternates with}, {.end}", `{"items": [1, 2, 3]}`, "1, 2, 3"},
		{"repeated empty", "{.repeated section items}{@}{.alternates with}, {.end}", `{"items": []}`, ""},
		{"repeated not array", "{.repeated section a}x{.or}none{.end}", `{"a": {"b": 1}}`, "none"},
		{"repeated null elements", "{.repeated section a}[{@}]{.end}", `{"a": [1, null, 2]}`, "[1][][2]"},
		{"index", "{.repeated section a}{@index}{.end}", `{"a": ["x", "y", "z"]}`, "123"},
		{"index innermost", "{.repeated section a}{.repeated section @}{@index}{.end};{.end}",
			`{"a": [[5, 6], [7]]}`, "12;1;"},
		{"index in nested section", "{.repeated section a}{.section b}{@index}{.end}{.end}",
			`{"a": [{"b": 1}, {"b": 2}]}`, "12"},
		{"index outside iteration", "[{@index}]", `{}`, "[]"},
		{"separator sees bound variables", "{.repeated section a}{.var @v @}{.alternates with}[{@v}]{.end}",
			`{"a": [1, 2, 3]}`, "[1][2]"},

		{"if and", "{.if a && b}Y{.or}N{.end}", `{"a": 1, "b": 1}`, "Y"},
		{"if and false", "{.if a && b}Y{.or}N{.end}", `{"a": 1, "b": 0}`, "N"},
		{"if or", "{.if a || b}Y{.or}N{.end}", `{"a": 0, "b": 1}`, "Y"},
		{"if folds left to right", "{.if a && b || c}Y{.or}N{.end}", `{"a": 0, "b": 1, "c": 1}`, "N"},
		{"if or stops at first truth", "{.if a || b && c}Y{.or}N{.end}", `{"a": 1, "b": 0, "c": 0}`, "Y"},
		{"if predicate", "{.if truthy?}Y{.or}N{.end}", `{}`, "N"},

		{"predicate", `{.equals? x}Y{.or}N{.end}`, `"x"`, "Y"},
		{"or chain", "{.section a}{.equals? 1}one{.or equals? 2}two{.or}other{.end}{.end}", `{"a": 2}`, "two"},
		{"or chain else", "{.section a}{.equals? 1}one{.or equals? 2}two{.or}other{.end}{.end}", `{"a": 3}`, "other"},

		{"bindvar", "{.var @x a|upper}{@x}", `{"a": "hi"}`, "HI"},
		{"bindvar is frame local", "{.section a}{.var @x b}{.end}[{@x}]", `{"a": {"b": 1}}`, "[]"},
		{"ctxvar", "{.ctx @c x=a y=nope}{@c.x}[{@c.y}]", `{"a": 1}`, "1[]"},

		{"eval", "{.eval 1 + 2 * 3}", `{}`, "7"},
		{"eval variables", "{.eval a + 1}", `{"a": 2}`, "3"},
		{"eval assignment", "{.eval @x = 2; @x * 3}{@x}", `{}`, "62"},
		{"eval string concat", `{.eval 1 + "1"}`, `{}`, "11"},
		{"eval NaN", "{.eval 1 / 0}", `{}`, "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderString(t, tt.template, tt.data))
		})
	}
}

func TestExecuteEvalErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     string
		code     ExecuteErrorType
	}{
		{"parse", "a{.eval (1 + 2}b", `{}`, ExpressionParse},
		{"reduce", "a{.eval 1 + obj}b", `{"obj": {"a": 1}}`, ExpressionReduce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Expression errors are recorded even without safe execution.
			ctx, err := execute(t, tt.template, tt.data)
			require.NoError(t, err)
			assert.Equal(t, "ab", ctx.Output())
			require.NotEmpty(t, ctx.Errors())
			for _, info := range ctx.Errors() {
				assert.Equal(t, tt.code, info.Type)
				assert.Equal(t, 1, info.Line)
				assert.Equal(t, 2, info.Offset)
			}
		})
	}
}

func TestExecuteEvalDebug(t *testing.T) {
	out := renderString(t, "{.eval #1 + 1}", `{}`)
	assert.True(t, strings.HasPrefix(out, "EVAL="), out)
	assert.True(t, strings.HasSuffix(out, " -> 2"), out)
}

func TestExecuteEvalParsesOnce(t *testing.T) {
	once, err := execute(t, "{.eval (}", `{}`)
	require.NoError(t, err)
	require.NotEmpty(t, once.Errors())

	ctx, err := execute(t, "{.repeated section a}{.eval (}{.end}", `{"a": [1, 2, 3]}`)
	require.NoError(t, err)
	assert.Len(t, ctx.Errors(), len(once.Errors()), "parse errors are reported once per instruction")
}

func TestExecuteInject(t *testing.T) {
	injectables := map[string]any{"conf": map[string]any{"k": "v"}}
	assert.Equal(t, "v[]", renderString(t, "{.inject @i conf}{@i.k}{.inject @m nope}[{@m}]", `{}`,
		WithInjectables(injectables)))
}

func TestExecuteUnexpectedErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		errName  string
	}{
		{"formatter error", "a{x|fail}b", "errorString"},
		{"formatter panic", "a{x|explode}b", "panic"},
		{"predicate panic", "a{.explode?}y{.end}b", "panic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := execute(t, tt.template, `{"x": 1}`)
			require.Error(t, err)
			assert.True(t, IsExecuteError(err))
			info := ErrorInfoOf(err)
			require.NotNil(t, info)
			assert.Equal(t, UnexpectedError, info.Type)
			assert.Equal(t, tt.errName, info.Param("name"))
			assert.Equal(t, 2, info.Offset)
			assert.Nil(t, ctx.Frame().Parent(), "frame stack restored")

			ctx, err = execute(t, tt.template, `{"x": 1}`, WithSafeExecution())
			require.NoError(t, err)
			assert.Equal(t, "ab", ctx.Output())
			assert.Equal(t, []string{"UNEXPECTED_ERROR"}, errorCodes(ctx.Errors()))
		})
	}
}

func TestExecuteSafeRestoresFrames(t *testing.T) {
	ctx, err := execute(t, "{.section a}{.section b}{c|explode}{.end}{d}{.end}{e}",
		`{"a": {"b": {"c": 1}, "d": "D"}, "e": "E"}`, WithSafeExecution())
	require.NoError(t, err)
	assert.Equal(t, "DE", ctx.Output())
	assert.Len(t, ctx.Errors(), 1)
	assert.Nil(t, ctx.Frame().Parent())
}

func TestExecuteSafeCompileErrors(t *testing.T) {
	ctx, err := execute(t, "{.nope?}Y{.or}N{.end}{a|nope}", `{"a": 1}`, WithSafeExecution())
	require.NoError(t, err)
	assert.Equal(t, "N{a|nope}", ctx.Output())
	assert.Empty(t, ctx.Errors())
}

func TestExecuteInclude(t *testing.T) {
	partials := map[string]string{
		"p":      "<{a}>",
		"self":   "x{.include self output}",
		"ping":   "{.include pong output}",
		"pong":   "{.include ping output}",
		"broken": "{.section a}",
		"level1": "{.include level2 output}",
		"level2": "{.include level3 output}",
		"level3": "deep",
	}
	opts := []ContextOption{WithEnableInclude(), WithPartials(partials)}

	t.Run("macro", func(t *testing.T) {
		assert.Equal(t, "[1]", renderString(t, "{.macro m}[{a}]{.end}{.include m output}", `{"a": 1}`, opts...))
	})

	t.Run("output discarded without flag", func(t *testing.T) {
		assert.Equal(t, "", renderString(t, "{.macro m}[{a}]{.end}{.include m}", `{"a": 1}`, opts...))
	})

	t.Run("disabled", func(t *testing.T) {
		assert.Equal(t, "", renderString(t, "{.include p output}", `{"a": 1}`, WithPartials(partials)))
	})

	t.Run("partial", func(t *testing.T) {
		assert.Equal(t, "<1>", renderString(t, "{.include p output}", `{"a": 1}`, opts...))
	})

	t.Run("macro shadows partial", func(t *testing.T) {
		assert.Equal(t, "M", renderString(t, "{.macro p}M{.end}{.include p output}", `{"a": 1}`, opts...))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := execute(t, "{.include nope output}", `{}`, opts...)
		assert.Equal(t, IncludePartialMissing, ErrorInfoOf(err).Type)

		ctx, err := execute(t, "a{.include nope output}b", `{}`, append(opts, WithSafeExecution())...)
		require.NoError(t, err)
		assert.Equal(t, "ab", ctx.Output())
		assert.Equal(t, []string{"INCLUDE_PARTIAL_MISSING"}, errorCodes(ctx.Errors()))
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := execute(t, "{.include broken output}", `{}`, opts...)
		info := ErrorInfoOf(err)
		require.NotNil(t, info)
		assert.Equal(t, IncludePartialSyntax, info.Type)
		require.Len(t, info.Children, 1)
		assert.Equal(t, EOFInBlock, info.Children[0].Type)

		ctx, err := execute(t, "{.include broken output}", `{}`, append(opts, WithSafeExecution())...)
		require.NoError(t, err)
		require.Len(t, ctx.Errors(), 1)
		assert.Equal(t, CompilePartialSyntax, ctx.Errors()[0].Type)
		assert.Equal(t, []string{"EOF_IN_BLOCK"}, errorCodes(ctx.Errors()[0].Children))
	})

	t.Run("recursion is fatal", func(t *testing.T) {
		for _, safe := range []bool{false, true} {
			o := opts
			if safe {
				o = append(o, WithSafeExecution())
			}
			_, err := execute(t, "{.include self output}", `{}`, o...)
			require.Error(t, err)
			assert.Equal(t, ApplyPartialRecursion, ErrorInfoOf(err).Type)
		}
	})

	t.Run("recursion through another partial", func(t *testing.T) {
		_, err := execute(t, "{.include ping output}", `{}`, opts...)
		require.Error(t, err)
		info := ErrorInfoOf(err)
		require.NotNil(t, info)
		assert.Equal(t, ApplyPartialRecursion, info.Type)
		assert.Equal(t, "ping", info.Param("name"))
	})

	t.Run("depth", func(t *testing.T) {
		_, err := execute(t, "{.include level1 output}", `{}`, append(opts, WithMaxPartialDepth(2))...)
		require.Error(t, err)
		info := ErrorInfoOf(err)
		assert.Equal(t, ApplyPartialRecursionDepth, info.Type)
		assert.Equal(t, "level3", info.Param("name"))

		assert.Equal(t, "deep", renderString(t, "{.include level1 output}", `{}`, append(opts, WithMaxPartialDepth(3))...))
	})

	t.Run("repeated include is not recursion", func(t *testing.T) {
		assert.Equal(t, "<1><1>", renderString(t, "{.include p output}{.include p output}", `{"a": 1}`, opts...))
	})
}

func TestExecuteCaptureRestoresBuffer(t *testing.T) {
	ctx := NewContext(nil)
	ctx.Buffer().WriteString("before ")

	out, err := ctx.Capture(func() error {
		ctx.Buffer().WriteString("inner")
		return errors.New("stop")
	})
	assert.Equal(t, "inner", out)
	assert.EqualError(t, err, "stop")

	assert.Panics(t, func() {
		_, _ = ctx.Capture(func() error { panic("boom") })
	})
	ctx.Buffer().WriteString("after")
	assert.Equal(t, "before after", ctx.Output())
}
