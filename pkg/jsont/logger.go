package jsont

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
	LogOff
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "DEBUG"
	case LogInfo:
		return "INFO"
	case LogWarn:
		return "WARN"
	case LogError:
		return "ERROR"
	case LogOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// slogLevel maps a LogLevel onto slog. LogOff sits above every real level.
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogInfo:
		return slog.LevelInfo
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelError + 64
}

type Fields map[string]any

// Logger is a leveled logger with attached fields, backed by slog. Loggers
// derived with WithField share the level of their parent.
type Logger struct {
	slog   *slog.Logger
	level  *slog.LevelVar
	fields Fields
	mu     sync.Mutex
}

var (
	globalLogger     *Logger
	globalLoggerOnce sync.Once
)

func initGlobalLogger() {
	globalLoggerOnce.Do(func() {
		config := GetGlobalConfig()
		globalLogger = NewLogger(os.Stderr, parseLogLevel(config.LogLevel))
	})
}

func init() {
	initGlobalLogger()
}

func parseLogLevel(levelStr string) LogLevel {
	switch levelStr {
	case "debug":
		return LogDebug
	case "info":
		return LogInfo
	case "warn":
		return LogWarn
	case "error":
		return LogError
	case "off":
		return LogOff
	default:
		return LogInfo
	}
}

// NewLogger writes slog text records to w.
func NewLogger(w io.Writer, level LogLevel) *Logger {
	if w == nil {
		w = io.Discard
	}
	lv := new(slog.LevelVar)
	lv.Set(level.slogLevel())
	return &Logger{
		slog:   slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})),
		level:  lv,
		fields: make(Fields),
	}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level.Set(level.slogLevel())
}

func (l *Logger) IsDebugMode() bool {
	return l.level.Level() <= slog.LevelDebug
}

// Slog exposes the underlying slog logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Fields returns a copy of the attached fields.
func (l *Logger) Fields() Fields {
	out := make(Fields, len(l.fields))
	for k, v := range l.fields {
		out[k] = v
	}
	return out
}

func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(Fields{key: value})
}

func (l *Logger) WithFields(fields Fields) *Logger {
	newLogger := &Logger{
		level:  l.level,
		fields: make(Fields, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	args := make([]any, 0, 2*len(fields))
	for k, v := range fields {
		newLogger.fields[k] = v
		args = append(args, k, v)
	}
	newLogger.slog = l.slog.With(args...)
	return newLogger
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	lv := level.slogLevel()
	ctx := context.Background()
	if !l.slog.Enabled(ctx, lv) {
		return
	}
	l.slog.Log(ctx, lv, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(LogDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LogInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LogWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LogError, format, args...)
}

// DebugTemplate logs a template source and its data in debug mode.
func (l *Logger) DebugTemplate(source string, data any) {
	if !l.IsDebugMode() {
		return
	}
	l.Debug("Template: %s", source)
	l.Debug("Data: %+v", data)
}

// DebugExpression logs an evaluated expression in debug mode.
func (l *Logger) DebugExpression(expr string, result any) {
	if !l.IsDebugMode() {
		return
	}
	l.Debug("Expression: %s", expr)
	l.Debug("Result: %v", result)
}

type loggerKey struct{}

// ContextWithLogger returns a copy of ctx carrying logger.
func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext returns the logger carried by ctx, or the global logger.
func LoggerFromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
			return logger
		}
	}
	return GetLogger()
}

// Global logging functions
func SetLogger(logger *Logger) {
	initGlobalLogger()
	globalLogger = logger
}

func GetLogger() *Logger {
	initGlobalLogger()
	return globalLogger
}

func Debug(format string, args ...any) {
	GetLogger().Debug(format, args...)
}

func Info(format string, args ...any) {
	GetLogger().Info(format, args...)
}

func Warn(format string, args ...any) {
	GetLogger().Warn(format, args...)
}

func Error(format string, args ...any) {
	GetLogger().Error(format, args...)
}

func WithField(key string, value any) *Logger {
	return GetLogger().WithField(key, value)
}

func WithFields(fields Fields) *Logger {
	return GetLogger().WithFields(fields)
}

// UpdateLoggerFromConfig updates the global logger based on the current global configuration
func UpdateLoggerFromConfig() {
	config := GetGlobalConfig()
	GetLogger().SetLevel(parseLogLevel(config.LogLevel))
}
