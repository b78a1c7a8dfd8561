package jsont

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func logAll(l *Logger) {
	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name           string
		level          LogLevel
		expectedOutput []string
		notExpected    []string
	}{
		{
			name:           "debug level shows all messages",
			level:          LogDebug,
			expectedOutput: []string{"level=DEBUG", "level=INFO", "level=WARN", "level=ERROR", "debug message"},
		},
		{
			name:           "info level hides debug messages",
			level:          LogInfo,
			expectedOutput: []string{"level=INFO", "info message", "level=ERROR"},
			notExpected:    []string{"level=DEBUG", "debug message"},
		},
		{
			name:           "error level shows only errors",
			level:          LogError,
			expectedOutput: []string{"level=ERROR", "error message"},
			notExpected:    []string{"level=INFO", "level=WARN"},
		},
		{
			name:        "off shows nothing",
			level:       LogOff,
			notExpected: []string{"level="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logAll(NewLogger(&buf, tt.level))
			output := buf.String()

			for _, want := range tt.expectedOutput {
				assert.Contains(t, output, want)
			}
			for _, unwanted := range tt.notExpected {
				assert.NotContains(t, output, unwanted)
			}
		})
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&buf, LogInfo)
	logger := base.WithField("render_id", "r1").WithFields(Fields{"line": 3})

	logger.Info("rendered %d items", 2)

	output := buf.String()
	assert.Contains(t, output, "render_id=r1")
	assert.Contains(t, output, "line=3")
	assert.Contains(t, output, `msg="rendered 2 items"`)
	assert.Equal(t, Fields{"render_id": "r1", "line": 3}, logger.Fields())
	assert.Empty(t, base.Fields())
}

func TestLoggerSharedLevel(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&buf, LogInfo)
	child := base.WithField("k", "v")

	assert.False(t, child.IsDebugMode())
	base.SetLevel(LogDebug)
	assert.True(t, child.IsDebugMode())

	child.DebugExpression("1 + 1", 2)
	assert.Contains(t, buf.String(), "Expression: 1 + 1")
}

func TestLoggerFromContext(t *testing.T) {
	logger := NewLogger(nil, LogWarn)
	ctx := ContextWithLogger(context.Background(), logger)

	assert.Same(t, logger, LoggerFromContext(ctx))
	assert.Same(t, GetLogger(), LoggerFromContext(context.Background()))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogDebug,
		"info":    LogInfo,
		"warn":    LogWarn,
		"error":   LogError,
		"off":     LogOff,
		"unknown": LogInfo,
	}
	for input, want := range tests {
		assert.Equal(t, want, parseLogLevel(input), input)
		assert.NotEqual(t, "UNKNOWN", want.String())
	}
}
