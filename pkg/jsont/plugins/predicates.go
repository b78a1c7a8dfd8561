package plugins

import (
	"github.com/benjaminschreck/go-jsont/pkg/jsont"
	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// CorePredicates returns new instances of every core predicate.
func CorePredicates() []jsont.Predicate {
	return []jsont.Predicate{
		newPredicate("debug?", false, func(ctx *jsont.Context, _ *jsont.Arguments) (bool, error) {
			return node.IsTruthy(ctx.ResolveName("debug")), nil
		}),
		comparePredicate("equal?", func(a, b any) bool { return node.Equal(a, b) }),
		parityPredicate("even?", true),
		comparePredicate("greaterThan?", func(a, b any) bool { return node.Compare(a, b) > 0 }),
		comparePredicate("greaterThanOrEqual?", func(a, b any) bool { return node.Compare(a, b) >= 0 }),
		comparePredicate("lessThan?", func(a, b any) bool { return node.Compare(a, b) < 0 }),
		comparePredicate("lessThanOrEqual?", func(a, b any) bool { return node.Compare(a, b) <= 0 }),
		comparePredicate("notEqual?", func(a, b any) bool { return !node.Equal(a, b) }),
		nthPredicate(),
		parityPredicate("odd?", false),
		newPredicate("plural?", false, func(ctx *jsont.Context, _ *jsont.Arguments) (bool, error) {
			return node.AsInt(ctx.Node()) > 1, nil
		}),
		newPredicate("singular?", false, func(ctx *jsont.Context, _ *jsont.Arguments) (bool, error) {
			return node.AsInt(ctx.Node()) == 1, nil
		}),
	}
}

// jsonArg is a predicate argument given either as a JSON literal or as a
// variable reference resolved at render time.
type jsonArg struct {
	value any
	ref   node.Path
	isRef bool
}

func (a jsonArg) resolve(ctx *jsont.Context) any {
	if a.isRef {
		return ctx.Resolve(a.ref)
	}
	return a.value
}

// parseJSONArgs checks the argument count and parses every argument into
// args.Opaque.
func parseJSONArgs(args *jsont.Arguments, limit func(*jsont.Arguments) error) error {
	if err := limit(args); err != nil {
		return err
	}
	parsed := make([]jsonArg, args.Count())
	for i, raw := range args.Args {
		arg, err := parseJSONArg(raw)
		if err != nil {
			return err
		}
		parsed[i] = arg
	}
	args.Opaque = parsed
	return nil
}

func parseJSONArg(raw string) (jsonArg, error) {
	if isJSONStart(raw) {
		if v, err := node.DecodeString(raw); err == nil {
			return jsonArg{value: v}, nil
		}
	}
	if jsont.IsVariableReference(raw) {
		return jsonArg{ref: node.ParsePath(raw), isRef: true}, nil
	}
	return jsonArg{}, jsont.NewArgumentsError("Argument %s must be a valid JSON value or variable reference.", raw)
}

func resolveArg(ctx *jsont.Context, args *jsont.Arguments, i int) any {
	parsed, _ := args.Opaque.([]jsonArg)
	if i >= len(parsed) {
		return node.Missing
	}
	return parsed[i].resolve(ctx)
}

// comparePredicate tests the node in view against one argument, or two
// arguments against each other.
func comparePredicate(id string, test func(a, b any) bool) jsont.Predicate {
	p := newPredicate(id, true, func(ctx *jsont.Context, args *jsont.Arguments) (bool, error) {
		arg0 := resolveArg(ctx, args, 0)
		if args.Count() == 1 {
			return test(ctx.Node(), arg0), nil
		}
		return test(arg0, resolveArg(ctx, args, 1)), nil
	})
	return p.withValidate(func(args *jsont.Arguments) error {
		return parseJSONArgs(args, func(a *jsont.Arguments) error { return a.Between(1, 2) })
	})
}

// parityPredicate tests an integral number for evenness or oddness. Other
// values are neither.
func parityPredicate(id string, even bool) jsont.Predicate {
	p := newPredicate(id, false, func(ctx *jsont.Context, args *jsont.Arguments) (bool, error) {
		v := ctx.Node()
		if args.Count() == 1 {
			v = resolveArg(ctx, args, 0)
		}
		if !node.IsIntegral(v) {
			return false, nil
		}
		return (node.AsInt(v)%2 == 0) == even, nil
	})
	return p.withValidate(func(args *jsont.Arguments) error {
		return parseJSONArgs(args, func(a *jsont.Arguments) error { return a.AtMost(1) })
	})
}

// nthPredicate tests divisibility of the node in view, or of the first of
// two arguments, by the modulus.
func nthPredicate() jsont.Predicate {
	p := newPredicate("nth?", false, func(ctx *jsont.Context, args *jsont.Arguments) (bool, error) {
		v := ctx.Node()
		modulus := resolveArg(ctx, args, 0)
		if args.Count() == 2 {
			v = modulus
			modulus = resolveArg(ctx, args, 1)
		}
		if !node.IsIntegral(v) || !node.IsIntegral(modulus) {
			return false, nil
		}
		m := node.AsInt(modulus)
		if m == 0 {
			return false, nil
		}
		return node.AsInt(v)%m == 0, nil
	})
	return p.withValidate(func(args *jsont.Arguments) error {
		return parseJSONArgs(args, func(a *jsont.Arguments) error { return a.Between(1, 2) })
	})
}
