package jsont

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, configure func(*Config)) *Engine {
	t.Helper()
	config := DefaultConfig()
	if configure != nil {
		configure(config)
	}
	formatters, predicates := testTables(t)
	return New(config, WithFormatters(formatters), WithPredicates(predicates))
}

func TestEngineRender(t *testing.T) {
	engine := newTestEngine(t, nil)
	data := map[string]any{
		"title": "list",
		"items": []any{"a", "b"},
	}

	result, err := engine.Render(context.Background(), "{title|upper}:{.repeated section items}{@}{.alternates with},{.end}", data)
	require.NoError(t, err)
	assert.Equal(t, "LIST:a,b", result.Output)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.RenderID)
}

func TestEngineRenderJSON(t *testing.T) {
	engine := newTestEngine(t, nil)

	result, err := engine.RenderJSON(context.Background(), "{a.b}", `{"a": {"b": 3}}`)
	require.NoError(t, err)
	assert.Equal(t, "3", result.Output)

	_, err = engine.RenderJSON(context.Background(), "{a}", `{"a": `)
	assert.ErrorContains(t, err, "failed to decode JSON data")
}

func TestEngineStrictErrors(t *testing.T) {
	engine := newTestEngine(t, nil)

	_, err := engine.Render(context.Background(), "{a|nope}", nil)
	require.Error(t, err)
	assert.True(t, IsSyntaxError(err))

	result, err := engine.Render(context.Background(), "x{a|fail}", map[string]any{"a": 1})
	require.Error(t, err)
	assert.True(t, IsExecuteError(err))
	require.NotNil(t, result)
	assert.Equal(t, "x", result.Output)
}

func TestEngineSafeExecution(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) { c.SafeExecution = true })

	result, err := engine.Render(context.Background(), "{a|nope}{b|fail}{c}", map[string]any{"b": 1, "c": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "{a|nope}ok", result.Output)
	require.Len(t, result.Errors, 2)
	// Compile errors come first.
	assert.Equal(t, FormatterUnknown, result.Errors[0].Type)

	err = result.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred:")
	assert.Equal(t, FormatterUnknown, ErrorInfoOf(err).Type)

	clean, err := engine.Render(context.Background(), "{c}", map[string]any{"c": "ok"})
	require.NoError(t, err)
	assert.NoError(t, clean.Err())
}

func TestEngineCache(t *testing.T) {
	engine := newTestEngine(t, nil)

	first, err := engine.Compile("{a}")
	require.NoError(t, err)
	second, err := engine.Compile("{a}")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, engine.Cache().Size())

	engine.ClearCache()
	assert.Equal(t, 0, engine.Cache().Size())
	third, err := engine.Compile("{a}")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestCacheKeyIncludesMode(t *testing.T) {
	assert.NotEqual(t, cacheKey(ModeStrict, "{a}"), cacheKey(ModeCollect, "{a}"))
	assert.Equal(t, cacheKey(ModeStrict, "{a}"), cacheKey(ModeStrict, "{a}"))
}

func TestEngineLimits(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) {
		c.HardLimit = 5
		c.LimitResolution = 1
	})

	_, err := engine.RenderJSON(context.Background(), "{.repeated section a}{@}{.end}", tenItems)
	require.Error(t, err)
	assert.Equal(t, CodeLimitReached, ErrorInfoOf(err).Type)
}

func TestEngineIncludeFromConfig(t *testing.T) {
	source := "{.macro m}hi{.end}{.include m output}"

	disabled := newTestEngine(t, nil)
	result, err := disabled.Render(context.Background(), source, nil)
	require.NoError(t, err)
	assert.Equal(t, "", result.Output)

	enabled := newTestEngine(t, func(c *Config) { c.EnableInclude = true })
	result, err = enabled.Render(context.Background(), source, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", result.Output)
}

func TestEngineLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogWarn)
	engine := newTestEngine(t, func(c *Config) { c.SafeExecution = true })

	ctx := ContextWithLogger(context.Background(), logger)
	_, err := engine.Render(ctx, "{a|nope}", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Rendered with errors")
}
