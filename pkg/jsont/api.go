package jsont

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/expr"
	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// Engine ties a compiler, a template cache and a configuration together.
// It is safe for concurrent use.
type Engine struct {
	config   *Config
	compiler *Compiler
	cache    *TemplateCache
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	formatters *FormatterTable
	predicates *PredicateTable
	cache      *TemplateCache
}

// WithFormatters sets the formatter table. It is locked by the engine.
func WithFormatters(t *FormatterTable) Option {
	return func(o *engineOptions) { o.formatters = t }
}

// WithPredicates sets the predicate table. It is locked by the engine.
func WithPredicates(t *PredicateTable) Option {
	return func(o *engineOptions) { o.predicates = t }
}

// WithCache replaces the cache sized from the configuration.
func WithCache(cache *TemplateCache) Option {
	return func(o *engineOptions) { o.cache = cache }
}

// New creates an engine. A nil config uses the global configuration.
func New(config *Config, opts ...Option) *Engine {
	if config == nil {
		config = GetGlobalConfig()
	}
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: config.CacheMaxSize,
			TTL:     config.CacheTTL,
		})
	}
	return &Engine{
		config:   config,
		compiler: NewCompiler(o.formatters, o.predicates),
		cache:    o.cache,
	}
}

func (e *Engine) Config() *Config       { return e.config }
func (e *Engine) Compiler() *Compiler   { return e.compiler }
func (e *Engine) Cache() *TemplateCache { return e.cache }
func (e *Engine) ClearCache()           { e.cache.Clear() }

func (e *Engine) mode() Mode {
	if e.config.SafeExecution {
		return ModeCollect
	}
	return ModeStrict
}

// Compile compiles source, consulting the cache. In safe execution the
// template is compiled in ModeCollect.
func (e *Engine) Compile(source string) (*CompiledTemplate, error) {
	mode := e.mode()
	return e.cache.GetOrCompile(cacheKey(mode, source), func() (*CompiledTemplate, error) {
		return e.compiler.Compile(source, CompileOptions{Mode: mode})
	})
}

func cacheKey(mode Mode, source string) string {
	sum := sha256.Sum256([]byte(source))
	return mode.String() + ":" + hex.EncodeToString(sum[:])
}

// Result is the outcome of a render.
type Result struct {
	Output   string
	Errors   []*ErrorInfo
	RenderID string
}

// Err returns the errors recorded during a safe render as one error, or
// nil when the render was clean.
func (r *Result) Err() error {
	return collectErrors(r.Errors)
}

// NewContext creates a render context configured from the engine's
// config. The logger is taken from ctx. Options given here override the
// configured ones.
func (e *Engine) NewContext(ctx context.Context, data any, opts ...ContextOption) *Context {
	base := []ContextOption{
		WithLogger(LoggerFromContext(ctx)),
		WithMaxPartialDepth(e.config.MaxPartialDepth),
		WithExprOptions(expr.Options{
			MaxTokens:    e.config.ExprMaxTokens,
			MaxStringLen: e.config.ExprMaxStringLen,
		}),
	}
	if e.config.SafeExecution {
		base = append(base, WithSafeExecution())
	}
	if e.config.EnableInclude {
		base = append(base, WithEnableInclude())
	}
	if e.config.SoftLimit > 0 || e.config.HardLimit > 0 {
		base = append(base, WithCodeLimiter(NewHardSoftCodeLimiter(
			WithSoftLimit(e.config.SoftLimit),
			WithHardLimit(e.config.HardLimit),
			WithResolution(e.config.LimitResolution),
		)))
	}
	return NewContext(data, append(base, opts...)...)
}

// Render compiles source and executes it against data, which may be any
// Go value convertible with node.Normalize.
func (e *Engine) Render(ctx context.Context, source string, data any, opts ...ContextOption) (*Result, error) {
	value, err := node.Normalize(data)
	if err != nil {
		return nil, WithContext(err, "normalize data", nil)
	}
	tmpl, err := e.Compile(source)
	if err != nil {
		return nil, err
	}

	rctx := e.NewContext(ctx, value, opts...)
	logger := rctx.Logger()
	logger.DebugTemplate(source, value)

	out, err := e.compiler.Execute(rctx, tmpl)
	result := &Result{
		Output:   out,
		Errors:   append(append([]*ErrorInfo(nil), tmpl.Errors...), rctx.Errors()...),
		RenderID: rctx.RenderID(),
	}
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Render failed")
		return result, err
	}
	if errs := result.Err(); errs != nil {
		logger.WithFields(Fields{"errors": len(result.Errors), "cause": errs.Error()}).Warn("Rendered with errors")
	}
	return result, nil
}

// RenderJSON is Render with the data given as JSON text.
func (e *Engine) RenderJSON(ctx context.Context, source, jsonText string, opts ...ContextOption) (*Result, error) {
	data, err := node.DecodeString(jsonText)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JSON data: %w", err)
	}
	return e.Render(ctx, source, data, opts...)
}
