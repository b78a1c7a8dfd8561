// Package plugins provides the core formatters and predicates. Nothing is
// registered implicitly: call RegisterFormatters and RegisterPredicates, or
// Defaults, to fill a symbol table before handing it to a compiler.
package plugins

import (
	"github.com/benjaminschreck/go-jsont/pkg/jsont"
)

// formatterFunc is the body of a simple formatter.
type formatterFunc func(ctx *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error

// simpleFormatter implements jsont.Formatter with closures.
type simpleFormatter struct {
	jsont.BasePlugin
	validate func(args *jsont.Arguments) error
	apply    formatterFunc
}

func newFormatter(id string, needsArgs bool, apply formatterFunc) *simpleFormatter {
	return &simpleFormatter{
		BasePlugin: jsont.BasePlugin{ID: id, NeedsArgs: needsArgs},
		apply:      apply,
	}
}

func (f *simpleFormatter) withValidate(fn func(args *jsont.Arguments) error) *simpleFormatter {
	f.validate = fn
	return f
}

func (f *simpleFormatter) Validate(args *jsont.Arguments) error {
	if f.validate == nil {
		return nil
	}
	return f.validate(args)
}

func (f *simpleFormatter) Apply(ctx *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
	return f.apply(ctx, args, vars)
}

// valueFormatter wraps a transform of the first variable's value.
func valueFormatter(id string, fn func(v any) any) *simpleFormatter {
	return newFormatter(id, false, func(_ *jsont.Context, _ *jsont.Arguments, vars *jsont.Variables) error {
		first := vars.First()
		first.Set(fn(first.Get()))
		return nil
	})
}

// predicateFunc is the body of a simple predicate.
type predicateFunc func(ctx *jsont.Context, args *jsont.Arguments) (bool, error)

type simplePredicate struct {
	jsont.BasePlugin
	validate func(args *jsont.Arguments) error
	apply    predicateFunc
}

func newPredicate(id string, needsArgs bool, apply predicateFunc) *simplePredicate {
	return &simplePredicate{
		BasePlugin: jsont.BasePlugin{ID: id, NeedsArgs: needsArgs},
		apply:      apply,
	}
}

func (p *simplePredicate) withValidate(fn func(args *jsont.Arguments) error) *simplePredicate {
	p.validate = fn
	return p
}

func (p *simplePredicate) Validate(args *jsont.Arguments) error {
	if p.validate == nil {
		return nil
	}
	return p.validate(args)
}

func (p *simplePredicate) Apply(ctx *jsont.Context, args *jsont.Arguments) (bool, error) {
	return p.apply(ctx, args)
}

// RegisterFormatters adds the core formatters to t.
func RegisterFormatters(t *jsont.FormatterTable) error {
	return t.Register(CoreFormatters()...)
}

// RegisterPredicates adds the core predicates to t.
func RegisterPredicates(t *jsont.PredicateTable) error {
	return t.Register(CorePredicates()...)
}

// Defaults returns new tables holding the core plugins. The tables are
// still open for further registrations.
func Defaults() (*jsont.FormatterTable, *jsont.PredicateTable) {
	formatters := jsont.NewFormatterTable()
	predicates := jsont.NewPredicateTable()
	// Fresh tables cannot be locked or hold duplicates.
	if err := RegisterFormatters(formatters); err != nil {
		panic(err)
	}
	if err := RegisterPredicates(predicates); err != nil {
		panic(err)
	}
	return formatters, predicates
}

// NewEngine creates an engine with the core plugins.
func NewEngine(config *jsont.Config, opts ...jsont.Option) *jsont.Engine {
	formatters, predicates := Defaults()
	base := []jsont.Option{jsont.WithFormatters(formatters), jsont.WithPredicates(predicates)}
	return jsont.New(config, append(base, opts...)...)
}
