package jsont

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenItems = `{"a": [1, 2, 3, 4, 5, 6, 7, 8, 9, 10]}`

func TestHardSoftCodeLimiterDefaults(t *testing.T) {
	l := NewHardSoftCodeLimiter()
	assert.Equal(t, math.MaxInt, l.SoftLimit())
	assert.Equal(t, math.MaxInt, l.HardLimit())

	l = NewHardSoftCodeLimiter(WithSoftLimit(-1), WithHardLimit(0), WithResolution(0), WithLimitHandler(nil))
	assert.Equal(t, math.MaxInt, l.SoftLimit())
	assert.Equal(t, math.MaxInt, l.HardLimit())
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Check(nil))
	}
	assert.Equal(t, 10, l.InstructionCount())
}

func TestHardLimitIsFatal(t *testing.T) {
	for _, safe := range []bool{false, true} {
		limiter := NewHardSoftCodeLimiter(WithHardLimit(5), WithResolution(1))
		opts := []ContextOption{WithCodeLimiter(limiter)}
		if safe {
			opts = append(opts, WithSafeExecution())
		}

		ctx, err := execute(t, "{.repeated section a}{@}{.end}", tenItems, opts...)
		require.Error(t, err)
		info := ErrorInfoOf(err)
		require.NotNil(t, info)
		assert.Equal(t, CodeLimitReached, info.Type)
		assert.Equal(t, "hard", info.Param("name"))
		assert.Equal(t, 6, limiter.InstructionCount())
		// root, repeated and three elements ran
		assert.Equal(t, "123", ctx.Output())
	}
}

func TestSoftLimitLogs(t *testing.T) {
	var buf bytes.Buffer
	limiter := NewHardSoftCodeLimiter(WithSoftLimit(3), WithResolution(1))

	out := renderString(t, "{.repeated section a}{@}{.end}", tenItems,
		WithCodeLimiter(limiter), WithLogger(NewLogger(&buf, LogWarn)))
	assert.Equal(t, "12345678910", out)
	assert.Contains(t, buf.String(), "Soft code limit reached")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Soft code limit reached")))
}

func TestLimiterResolution(t *testing.T) {
	var calls []int
	handler := func(_ *Context, l *HardSoftCodeLimiter, limit LimitType) error {
		calls = append(calls, l.InstructionCount())
		return nil
	}
	limiter := NewHardSoftCodeLimiter(WithSoftLimit(1), WithHardLimit(2), WithResolution(4), WithLimitHandler(handler))

	renderString(t, "{.repeated section a}{@}{.end}", tenItems, WithCodeLimiter(limiter))
	// Both limits are crossed at the first checkpoint.
	assert.Equal(t, []int{4, 4}, calls)
	assert.Equal(t, 12, limiter.InstructionCount())
}

func TestLimiterCountsFormatters(t *testing.T) {
	limiter := NewHardSoftCodeLimiter()
	renderString(t, "{a|upper|upper}", `{"a": "x"}`, WithCodeLimiter(limiter))
	// root, variable and two formatter calls
	assert.Equal(t, 4, limiter.InstructionCount())
}
