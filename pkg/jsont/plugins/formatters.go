package plugins

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// CoreFormatters returns new instances of every core formatter.
func CoreFormatters() []jsont.Formatter {
	return []jsont.Formatter{
		applyFormatter(),
		countFormatter(),
		cycleFormatter(),
		valueFormatter("encode-space", func(v any) any {
			return oneSpace.ReplaceAllString(node.AsText(v), "&nbsp;")
		}),
		valueFormatter("encode-uri", func(v any) any { return encodeURI(node.AsText(v)) }),
		valueFormatter("encode-uri-component", func(v any) any { return encodeURIComponent(node.AsText(v)) }),
		formatFormatter(),
		getFormatter(),
		valueFormatter("html", func(v any) any { return escapeHTML(eatNull(v)) }),
		valueFormatter("htmlattr", func(v any) any { return escapeHTMLAttribute(eatNull(v)) }),
		valueFormatter("htmltag", func(v any) any { return escapeHTMLAttribute(eatNull(v)) }),
		iterFormatter(),
		valueFormatter("json", func(v any) any { return escapeScriptTags(node.Encode(v)) }),
		valueFormatter("json-pretty", func(v any) any { return escapeScriptTags(node.EncodeIndent(v, "  ")) }),
		keyByFormatter(),
		lookupFormatter(),
		modFormatter(),
		outputFormatter(),
		pluralizeFormatter(),
		propFormatter(),
		valueFormatter("raw", func(v any) any { return node.Encode(v) }),
		valueFormatter("round", func(v any) any { return node.AsInt(math.Floor(node.AsFloat(v) + 0.5)) }),
		safeFormatter(),
		valueFormatter("slugify", func(v any) any { return slugify(eatNull(v)) }),
		valueFormatter("smartypants", func(v any) any { return smartypants(eatNull(v)) }),
		valueFormatter("str", func(v any) any { return eatNull(v) }),
		truncateFormatter(),
		valueFormatter("url-encode", func(v any) any { return urlEncode(node.AsText(v)) }),
	}
}

// applyFormatter executes a macro or partial with the variable's value in
// view. Arguments after the name are either the flag "private", which hides
// the enclosing scope, or key=value pairs bound as @args.
func applyFormatter() jsont.Formatter {
	f := newFormatter("apply", true, func(ctx *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		first := vars.First()
		name := args.First()

		private := false
		var argvar map[string]any
		if args.Count() > 1 {
			argvar = make(map[string]any)
			for _, arg := range args.Args[1:] {
				if arg == "private" {
					private = true
					continue
				}
				if k, v, ok := strings.Cut(arg, "="); ok {
					argvar[k] = v
				}
			}
		}

		root, err := ctx.Partial(name)
		if err != nil {
			info := ctx.Error(jsont.ApplyPartialSyntax).WithName(name).WithData(err.Error())
			if child := jsont.ErrorInfoOf(err); child != nil {
				info.WithChildren(child)
			}
			return jsont.NewCodeExecuteError(info, err)
		}
		if root == nil {
			info := ctx.Error(jsont.ApplyPartialMissing).WithName(name)
			if ctx.SafeExecution() {
				ctx.AddError(info)
				first.SetMissing()
				return nil
			}
			return jsont.NewCodeExecuteError(info, nil)
		}

		if err := ctx.EnterPartial(name); err != nil {
			return err
		}
		defer ctx.ExitPartial(name)

		out, err := ctx.ExecuteTemplate(root, first.Get(), private, argvar)
		if err != nil {
			return err
		}
		first.Set(out)
		return nil
	})
	return f.withValidate(func(args *jsont.Arguments) error { return args.AtLeast(1) })
}

func countFormatter() jsont.Formatter {
	return valueFormatter("count", func(v any) any {
		switch n := v.(type) {
		case []any, map[string]any:
			return int64(node.Size(n))
		case string:
			return int64(utf8.RuneCountInString(n))
		}
		return int64(0)
	})
}

// cycleFormatter selects an argument by the 1-based value, wrapping in
// both directions.
func cycleFormatter() jsont.Formatter {
	f := newFormatter("cycle", true, func(_ *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		first := vars.First()
		count := int64(args.Count())
		index := (node.AsInt(first.Get()) - 1) % count
		if index < 0 {
			index += count
		}
		first.Set(args.Get(int(index)))
		return nil
	})
	return f.withValidate(func(args *jsont.Arguments) error { return args.AtLeast(1) })
}

// formatFormatter substitutes {0}, {1}, ... in the value with the text of
// the variables named by the arguments.
func formatFormatter() jsont.Formatter {
	f := newFormatter("format", false, func(ctx *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		paths, _ := args.Opaque.([]node.Path)
		values := make([]string, len(paths))
		for i, p := range paths {
			values[i] = node.AsText(ctx.Resolve(p))
		}
		first := vars.First()
		first.Set(formatPositional(node.AsText(first.Get()), values))
		return nil
	})
	return f.withValidate(func(args *jsont.Arguments) error {
		paths := make([]node.Path, args.Count())
		for i, arg := range args.Args {
			paths[i] = node.ParsePath(arg)
		}
		args.Opaque = paths
		return nil
	})
}

// formatPositional replaces each {N} with values[N]. Out of range indices
// produce nothing and tags holding anything but digits are dropped.
func formatPositional(pattern string, values []string) string {
	var b strings.Builder
	const (
		outside  = -1
		ignoring = -2
	)
	index := outside
	for _, ch := range pattern {
		switch {
		case index == ignoring:
			if ch == '}' {
				index = outside
			}
		case index != outside:
			switch {
			case ch >= '0' && ch <= '9':
				index = index*10 + int(ch-'0')
			case ch == '}':
				if index < len(values) {
					b.WriteString(values[index])
				}
				index = outside
			default:
				index = ignoring
			}
		case ch == '{':
			index = 0
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// getFormatter walks the value using keys taken from other variables. A
// variable holding an array contributes each element as a key.
func getFormatter() jsont.Formatter {
	return newFormatter("get", false, func(ctx *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		first := vars.First()
		tmp := first.Get()
		for _, arg := range args.Args {
			key := ctx.Resolve(node.ParsePath(arg))
			if node.IsMissing(key) {
				tmp = node.Missing
				break
			}
			if arr, ok := key.([]any); ok {
				for _, elem := range arr {
					tmp = getKey(tmp, elem)
				}
			} else {
				tmp = getKey(tmp, key)
			}
			if node.IsMissing(tmp) {
				break
			}
		}
		first.Set(tmp)
		return nil
	})
}

func getKey(v, key any) any {
	switch {
	case node.IsNumber(key):
		return node.Get(v, int(node.AsInt(key)))
	case node.TypeOf(key) == node.TypeString:
		return node.Get(v, key.(string))
	}
	return v
}

func iterFormatter() jsont.Formatter {
	return newFormatter("iter", false, func(ctx *jsont.Context, _ *jsont.Arguments, vars *jsont.Variables) error {
		vars.First().Set(node.AsText(ctx.ResolveName("@index")))
		return nil
	})
}

// keyByFormatter maps an array of objects by the text found at a path in
// each element.
func keyByFormatter() jsont.Formatter {
	f := newFormatter("key-by", true, func(_ *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		first := vars.First()
		result := make(map[string]any)
		if arr, ok := first.Get().([]any); ok && args.First() != "" {
			path := node.ParsePath(args.First())
			for _, elem := range arr {
				if key := node.At(elem, path); !node.IsMissing(key) {
					result[node.AsText(key)] = elem
				}
			}
		}
		first.Set(result)
		return nil
	})
	return f.withValidate(func(args *jsont.Arguments) error { return args.Exactly(1) })
}

// lookupFormatter resolves the argument, then resolves the text it holds
// as a variable name.
func lookupFormatter() jsont.Formatter {
	f := newFormatter("lookup", true, func(ctx *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		name := ctx.Resolve(node.ParsePath(args.First()))
		vars.First().Set(ctx.Resolve(node.ParsePath(node.AsText(name))))
		return nil
	})
	return f.withValidate(func(args *jsont.Arguments) error { return args.Exactly(1) })
}

func modFormatter() jsont.Formatter {
	return newFormatter("mod", false, func(_ *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		divisor := int64(2)
		if args.Count() > 0 {
			if d, err := strconv.ParseInt(args.First(), 10, 64); err == nil {
				divisor = d
			}
		}
		if divisor == 0 {
			return fmt.Errorf("mod: division by zero")
		}
		first := vars.First()
		first.Set(node.AsInt(first.Get()) % divisor)
		return nil
	})
}

func outputFormatter() jsont.Formatter {
	return newFormatter("output", false, func(_ *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		vars.First().Set(strings.Join(args.Args, " "))
		return nil
	})
}

type pluralizeArgs struct {
	singular string
	plural   string
}

func pluralizeFormatter() jsont.Formatter {
	f := newFormatter("pluralize", false, func(_ *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		opts, ok := args.Opaque.(*pluralizeArgs)
		if !ok {
			opts = &pluralizeArgs{plural: "s"}
		}
		first := vars.First()
		if node.AsInt(first.Get()) == 1 {
			first.Set(opts.singular)
		} else {
			first.Set(opts.plural)
		}
		return nil
	})
	return f.withValidate(func(args *jsont.Arguments) error {
		if err := args.Between(0, 2); err != nil {
			return err
		}
		opts := &pluralizeArgs{plural: "s"}
		switch args.Count() {
		case 1:
			opts.plural = args.Get(0)
		case 2:
			opts.singular = args.Get(0)
			opts.plural = args.Get(1)
		}
		args.Opaque = opts
		return nil
	})
}

// propFormatter walks the value along each argument path in turn.
func propFormatter() jsont.Formatter {
	return newFormatter("prop", false, func(_ *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		first := vars.First()
		tmp := first.Get()
		for _, arg := range args.Args {
			tmp = node.At(tmp, node.ParsePath(arg))
			if node.IsMissing(tmp) {
				break
			}
		}
		first.Set(tmp)
		return nil
	})
}

// safeFormatter strips tags from truthy values and leaves others alone.
func safeFormatter() jsont.Formatter {
	return newFormatter("safe", false, func(_ *jsont.Context, _ *jsont.Arguments, vars *jsont.Variables) error {
		first := vars.First()
		if node.IsTruthy(first.Get()) {
			first.Set(removeTags(node.AsText(first.Get())))
		}
		return nil
	})
}

var (
	openSingleQuote = regexp.MustCompile(`(^|[-\x{2014}\s(\["])'`)
	openDoubleQuote = regexp.MustCompile(`(^|[-\x{2014}/\[(\x{2018}\s])"`)
)

func smartypants(s string) string {
	s = openSingleQuote.ReplaceAllString(s, "${1}‘")
	s = strings.ReplaceAll(s, "'", "’")
	s = openDoubleQuote.ReplaceAllString(s, "${1}“")
	s = strings.ReplaceAll(s, `"`, "”")
	return strings.ReplaceAll(s, "--", "—")
}

type truncateArgs struct {
	maxLen   int
	ellipses string
}

func truncateFormatter() jsont.Formatter {
	f := newFormatter("truncate", false, func(_ *jsont.Context, args *jsont.Arguments, vars *jsont.Variables) error {
		opts, ok := args.Opaque.(*truncateArgs)
		if !ok {
			opts = &truncateArgs{maxLen: 100, ellipses: "..."}
		}
		first := vars.First()
		first.Set(truncate(node.AsText(first.Get()), opts.maxLen, opts.ellipses))
		return nil
	})
	return f.withValidate(func(args *jsont.Arguments) error {
		opts := &truncateArgs{maxLen: 100, ellipses: "..."}
		if args.Count() > 0 {
			n, err := strconv.Atoi(args.Get(0))
			if err != nil {
				return jsont.NewArgumentsError("bad value for length '%s'", args.Get(0))
			}
			opts.maxLen = n
		}
		if args.Count() > 1 {
			opts.ellipses = args.Get(1)
		}
		args.Opaque = opts
		return nil
	})
}

var formEncodingFixups = strings.NewReplacer("%2A", "*", "~", "%7E")

// urlEncode applies application/x-www-form-urlencoded escaping with '*'
// kept literal and '~' escaped.
func urlEncode(s string) string {
	return formEncodingFixups.Replace(url.QueryEscape(s))
}
