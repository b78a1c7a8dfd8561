package jsont

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

type testFormatter struct {
	BasePlugin
	validate func(args *Arguments) error
	apply    func(ctx *Context, args *Arguments, vars *Variables) error
}

func (f *testFormatter) Validate(args *Arguments) error {
	if f.validate == nil {
		return nil
	}
	return f.validate(args)
}

func (f *testFormatter) Apply(ctx *Context, args *Arguments, vars *Variables) error {
	return f.apply(ctx, args, vars)
}

type testPredicate struct {
	BasePlugin
	validate func(args *Arguments) error
	apply    func(ctx *Context, args *Arguments) (bool, error)
}

func (p *testPredicate) Validate(args *Arguments) error {
	if p.validate == nil {
		return nil
	}
	return p.validate(args)
}

func (p *testPredicate) Apply(ctx *Context, args *Arguments) (bool, error) {
	return p.apply(ctx, args)
}

// testTables returns small formatter and predicate tables:
//
//	upper       uppercases the first variable
//	suffix      appends its joined arguments, requires args
//	join        joins all variables with the delimiter
//	explode     panics
//	fail        returns an error
//	truthy?     truthiness of the value in view
//	equals?     value in view equals the single argument as text
//	explode?    panics
func testTables(t testing.TB) (*FormatterTable, *PredicateTable) {
	t.Helper()
	formatters := NewFormatterTable()
	require.NoError(t, formatters.Register(
		&testFormatter{
			BasePlugin: BasePlugin{ID: "upper"},
			apply: func(_ *Context, _ *Arguments, vars *Variables) error {
				first := vars.First()
				first.Set(strings.ToUpper(node.AsText(first.Get())))
				return nil
			},
		},
		&testFormatter{
			BasePlugin: BasePlugin{ID: "suffix", NeedsArgs: true},
			validate: func(args *Arguments) error {
				return args.AtMost(2)
			},
			apply: func(_ *Context, args *Arguments, vars *Variables) error {
				first := vars.First()
				first.Set(node.AsText(first.Get()) + args.Join())
				return nil
			},
		},
		&testFormatter{
			BasePlugin: BasePlugin{ID: "join"},
			apply: func(_ *Context, args *Arguments, vars *Variables) error {
				parts := make([]string, 0, vars.Len())
				for _, v := range vars.Values() {
					parts = append(parts, node.AsText(v))
				}
				sep := "-"
				if !args.IsEmpty() {
					sep = args.First()
				}
				vars.First().Set(strings.Join(parts, sep))
				return nil
			},
		},
		&testFormatter{
			BasePlugin: BasePlugin{ID: "explode"},
			apply: func(*Context, *Arguments, *Variables) error {
				panic("kaboom")
			},
		},
		&testFormatter{
			BasePlugin: BasePlugin{ID: "fail"},
			apply: func(*Context, *Arguments, *Variables) error {
				return errors.New("formatter failed")
			},
		},
	))

	predicates := NewPredicateTable()
	require.NoError(t, predicates.Register(
		&testPredicate{
			BasePlugin: BasePlugin{ID: "truthy?"},
			apply: func(ctx *Context, _ *Arguments) (bool, error) {
				return node.IsTruthy(ctx.Node()), nil
			},
		},
		&testPredicate{
			BasePlugin: BasePlugin{ID: "equals?", NeedsArgs: true},
			validate: func(args *Arguments) error {
				return args.Exactly(1)
			},
			apply: func(ctx *Context, args *Arguments) (bool, error) {
				return node.AsText(ctx.Node()) == args.First(), nil
			},
		},
		&testPredicate{
			BasePlugin: BasePlugin{ID: "explode?"},
			apply: func(*Context, *Arguments) (bool, error) {
				panic("kaboom")
			},
		},
	))
	return formatters, predicates
}

func newTestCompiler(t testing.TB) *Compiler {
	t.Helper()
	return NewCompiler(testTables(t))
}

// compileStrict compiles source in strict mode and fails the test on a
// syntax error.
func compileStrict(t testing.TB, source string) *RootInst {
	t.Helper()
	tmpl, err := newTestCompiler(t).Compile(source, CompileOptions{Mode: ModeStrict})
	require.NoError(t, err)
	return tmpl.Code
}

// execute compiles source strictly, unless safe execution is requested,
// and runs it against the JSON data.
func execute(t testing.TB, source, data string, opts ...ContextOption) (*Context, error) {
	t.Helper()
	compiler := newTestCompiler(t)
	ctx := NewContext(node.MustDecode(data), opts...)

	mode := ModeStrict
	if ctx.SafeExecution() {
		mode = ModeCollect
	}
	tmpl, err := compiler.Compile(source, CompileOptions{Mode: mode})
	require.NoError(t, err)
	_, err = compiler.Execute(ctx, tmpl)
	return ctx, err
}

// renderString returns the output and requires execution to succeed.
func renderString(t testing.TB, source, data string, opts ...ContextOption) string {
	t.Helper()
	ctx, err := execute(t, source, data, opts...)
	require.NoError(t, err)
	return ctx.Output()
}

func errorCodes(infos []*ErrorInfo) []string {
	codes := make([]string, 0, len(infos))
	for _, info := range infos {
		codes = append(codes, info.Type.String())
	}
	return codes
}
