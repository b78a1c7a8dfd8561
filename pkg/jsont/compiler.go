package jsont

import (
	"fmt"
	"time"
)

// Mode selects how compilation handles syntax errors.
type Mode int

const (
	// ModeStrict stops at the first error and returns it.
	ModeStrict Mode = iota
	// ModeCollect records every error and keeps going, degrading broken
	// instructions to text.
	ModeCollect
)

func (m Mode) String() string {
	if m == ModeCollect {
		return "collect"
	}
	return "strict"
}

// CompileOptions control a single compilation.
type CompileOptions struct {
	Mode Mode
	// Preprocess keeps only {^...} instructions and skips all others.
	Preprocess bool
}

// CompiledTemplate is an immutable instruction tree plus the errors found
// while compiling it in ModeCollect. It may be executed concurrently by
// many contexts.
type CompiledTemplate struct {
	Code             *RootInst
	Errors           []*ErrorInfo
	InstructionCount int
}

// ValidatedTemplate is the result of Compiler.Validate.
type ValidatedTemplate struct {
	Instructions []Instruction
	Stats        *CodeStats
	Errors       []*ErrorInfo
}

// Err returns the syntax errors found as one error, nil when the template
// is valid.
func (v *ValidatedTemplate) Err() error {
	return collectErrors(v.Errors)
}

func collectErrors(infos []*ErrorInfo) error {
	m := NewMultiError()
	m.AddInfo(infos...)
	return m.Err()
}

// Compiler turns template source into instruction trees using a fixed set
// of formatters and predicates. Both tables are locked when the compiler is
// created.
type Compiler struct {
	formatters *FormatterTable
	predicates *PredicateTable
}

// NewCompiler creates a compiler. Nil tables are replaced with empty ones.
func NewCompiler(formatters *FormatterTable, predicates *PredicateTable) *Compiler {
	if formatters == nil {
		formatters = NewFormatterTable()
	}
	if predicates == nil {
		predicates = NewPredicateTable()
	}
	formatters.Lock()
	predicates.Lock()
	return &Compiler{formatters: formatters, predicates: predicates}
}

func (c *Compiler) Formatters() *FormatterTable { return c.formatters }
func (c *Compiler) Predicates() *PredicateTable { return c.predicates }

// Compile tokenizes source straight into a code machine. In ModeStrict the
// first syntax error is returned as a *CodeSyntaxError.
func (c *Compiler) Compile(source string, opts CompileOptions) (*CompiledTemplate, error) {
	start := time.Now()
	machine := NewCodeMachine(opts.Mode)
	tok := newTokenizer(source, machine, opts.Mode, opts.Preprocess, c.formatters, c.predicates)
	if _, err := tok.consume(); err != nil {
		return nil, err
	}

	tmpl := &CompiledTemplate{
		Code:             machine.Code(),
		Errors:           joinErrors(tok.Errors(), machine.Errors()),
		InstructionCount: machine.InstructionCount(),
	}

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithFields(Fields{
			"mode":         opts.Mode.String(),
			"instructions": tmpl.InstructionCount,
			"errors":       len(tmpl.Errors),
			"duration":     time.Since(start),
		}).Debug("Compiled template")
	}
	return tmpl, nil
}

// Validate compiles source in ModeCollect through an intermediate list so
// that statistics can be gathered even for broken templates. It never
// returns a syntax error; problems are reported in the result.
func (c *Compiler) Validate(source string) *ValidatedTemplate {
	list := &CodeList{}
	tok := newTokenizer(source, list, ModeCollect, false, c.formatters, c.predicates)
	// ModeCollect never returns an error.
	_, _ = tok.consume()

	machine := NewCodeMachine(ModeCollect)
	stats := NewCodeStats()
	for _, inst := range list.Instructions {
		_ = machine.Accept(inst)
		_ = stats.Accept(inst)
	}
	machine.Complete()
	stats.Complete()

	return &ValidatedTemplate{
		Instructions: list.Instructions,
		Stats:        stats,
		Errors:       joinErrors(tok.Errors(), machine.Errors()),
	}
}

// Execute renders tmpl against ctx and returns the output. With safe
// execution the output is best effort and ctx.Errors lists what failed.
func (c *Compiler) Execute(ctx *Context, tmpl *CompiledTemplate) (string, error) {
	if tmpl == nil || tmpl.Code == nil {
		return "", fmt.Errorf("no template to execute")
	}
	ctx.compiler = c
	if err := ctx.Execute(tmpl.Code); err != nil {
		return ctx.Output(), err
	}
	return ctx.Output(), nil
}

func joinErrors(parse, compile []*ErrorInfo) []*ErrorInfo {
	if len(parse) == 0 && len(compile) == 0 {
		return nil
	}
	out := make([]*ErrorInfo, 0, len(parse)+len(compile))
	out = append(out, parse...)
	return append(out, compile...)
}
