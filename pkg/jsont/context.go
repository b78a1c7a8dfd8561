package jsont

import (
	"bytes"
	"sync"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/expr"
	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
	"github.com/google/uuid"
)

// DefaultMaxPartialDepth bounds nested partial and macro application.
const DefaultMaxPartialDepth = 16

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	bufferPool.Put(buf)
}

// Context holds the state of a single render: the frame stack, the output
// buffer, compiled partials and the errors recorded in safe execution mode.
// A Context must not be shared between goroutines or reused across renders.
type Context struct {
	frame   *Frame
	buf     *bytes.Buffer
	current Instruction

	compiler        *Compiler
	safeExecution   bool
	enableInclude   bool
	errors          []*ErrorInfo
	partials        map[string]string
	compiled        map[string]*RootInst
	executing       map[string]struct{}
	partialDepth    int
	maxPartialDepth int
	injectables     map[string]any
	limiter         CodeLimiter
	exprOptions     expr.Options
	exprCache       map[*EvalInst]*expr.Expr
	logger          *Logger
	renderID        string
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithSafeExecution records execution errors instead of aborting.
func WithSafeExecution() ContextOption {
	return func(c *Context) { c.safeExecution = true }
}

// WithEnableInclude allows {.include} to run.
func WithEnableInclude() ContextOption {
	return func(c *Context) { c.enableInclude = true }
}

// WithPartials supplies partial template sources by name.
func WithPartials(partials map[string]string) ContextOption {
	return func(c *Context) { c.partials = partials }
}

// WithInjectables supplies the values available to {.inject}.
func WithInjectables(injectables map[string]any) ContextOption {
	return func(c *Context) { c.injectables = injectables }
}

// WithCodeLimiter counts executed instructions against limiter.
func WithCodeLimiter(limiter CodeLimiter) ContextOption {
	return func(c *Context) { c.limiter = limiter }
}

// WithExprOptions bounds the expressions run by {.eval}.
func WithExprOptions(opts expr.Options) ContextOption {
	return func(c *Context) { c.exprOptions = opts }
}

// WithMaxPartialDepth caps nested partial and macro application. Values
// below 1 keep DefaultMaxPartialDepth.
func WithMaxPartialDepth(n int) ContextOption {
	return func(c *Context) { c.maxPartialDepth = n }
}

// WithLogger sets the logger used for warnings and debug traces.
func WithLogger(logger *Logger) ContextOption {
	return func(c *Context) { c.logger = logger }
}

// WithRenderID replaces the generated render id.
func WithRenderID(id string) ContextOption {
	return func(c *Context) { c.renderID = id }
}

// NewContext creates a render context over data, which must already be in
// the node model (see node.Decode and node.Normalize).
func NewContext(data any, opts ...ContextOption) *Context {
	c := &Context{
		frame:           newFrame(nil, data),
		buf:             new(bytes.Buffer),
		limiter:         noopLimiter{},
		maxPartialDepth: DefaultMaxPartialDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.renderID == "" {
		c.renderID = uuid.NewString()
	}
	if c.logger == nil {
		c.logger = GetLogger()
	}
	c.logger = c.logger.WithField("render_id", c.renderID)
	if c.maxPartialDepth <= 0 {
		c.maxPartialDepth = DefaultMaxPartialDepth
	}
	return c
}

func (c *Context) SafeExecution() bool  { return c.safeExecution }
func (c *Context) EnableInclude() bool  { return c.enableInclude }
func (c *Context) RenderID() string     { return c.renderID }
func (c *Context) Logger() *Logger      { return c.logger }
func (c *Context) Limiter() CodeLimiter { return c.limiter }

// Compiler returns the compiler executing this context, nil before
// Compiler.Execute.
func (c *Context) Compiler() *Compiler { return c.compiler }

// Errors returns the errors recorded during safe execution.
func (c *Context) Errors() []*ErrorInfo { return c.errors }

// AddError records an execution error.
func (c *Context) AddError(info *ErrorInfo) {
	if c.logger.IsDebugMode() {
		c.logger.Debug("Recorded error: %s", info.Error())
	}
	c.errors = append(c.errors, info)
}

// Error starts an error record located at the executing instruction.
func (c *Context) Error(code ExecuteErrorType) *ErrorInfo {
	info := NewErrorInfo(code)
	if c.current != nil {
		info.At(c.current.Line(), c.current.Offset())
	}
	return info
}

// Buffer is the output sink instructions and formatters write to.
func (c *Context) Buffer() *bytes.Buffer { return c.buf }

// Output returns everything written to the render's buffer.
func (c *Context) Output() string { return c.buf.String() }

// Capture runs fn against a fresh pooled buffer and returns what it
// wrote. The previous buffer is restored on every path out of fn.
func (c *Context) Capture(fn func() error) (string, error) {
	buf := getBuffer()
	prev := c.buf
	c.buf = buf
	defer func() {
		c.buf = prev
		putBuffer(buf)
	}()
	err := fn()
	return buf.String(), err
}

// Frame returns the innermost frame.
func (c *Context) Frame() *Frame { return c.frame }

// Node returns the value in view.
func (c *Context) Node() any { return c.frame.node }

// Push makes v the value in view.
func (c *Context) Push(v any) {
	c.frame = newFrame(c.frame, v)
}

// Pop discards the innermost frame.
func (c *Context) Pop() {
	c.frame = c.frame.parent
}

// pushSection resolves path against the current frame only.
func (c *Context) pushSection(path node.Path) {
	if path == nil {
		c.Push(c.frame.node)
		return
	}
	v := c.resolveIn(path[0], c.frame)
	for _, key := range path[1:] {
		if node.IsMissing(v) {
			break
		}
		v = node.Get(v, key)
	}
	c.Push(v)
}

// initIteration starts iterating the value in view when it is an array.
func (c *Context) initIteration() bool {
	if _, ok := c.frame.node.([]any); !ok {
		return false
	}
	c.frame.currentIndex = 0
	return true
}

func (c *Context) hasNext() bool {
	return c.frame.currentIndex < node.Size(c.frame.node)
}

func (c *Context) arraySize() int {
	return node.Size(c.frame.node)
}

func (c *Context) increment() {
	c.frame.currentIndex++
}

// pushNext pushes the element under the iteration cursor. Null elements
// are pushed as Missing.
func (c *Context) pushNext() {
	v := node.Index(c.frame.node, c.frame.currentIndex)
	if v == nil {
		v = node.Missing
	}
	c.Push(v)
}

// SetVar binds a local variable on the innermost frame.
func (c *Context) SetVar(name string, value any) {
	c.frame.SetVar(name, value)
}

// SetMacro registers a macro on the innermost frame.
func (c *Context) SetMacro(name string, inst *MacroInst) {
	c.frame.SetMacro(name, inst)
}

// Injectable returns the named injected value or Missing.
func (c *Context) Injectable(name string) any {
	if v, ok := c.injectables[name]; ok {
		return v
	}
	return node.Missing
}

// Resolve looks a path up. The first segment searches the frame stack
// outward, stopping at a frame with StopResolution set; the remaining
// segments walk down from there. A nil path is the value in view.
func (c *Context) Resolve(path node.Path) any {
	if path == nil {
		return c.frame.node
	}
	v := c.lookupStack(path[0])
	for _, key := range path[1:] {
		if node.IsMissing(v) {
			return node.Missing
		}
		if v == nil {
			return "[JSONT: Can't resolve '" + path.String() + "'.]"
		}
		v = node.Get(v, key)
	}
	return v
}

// ResolveName resolves a single dotted name.
func (c *Context) ResolveName(name string) any {
	return c.Resolve(node.ParsePath(name))
}

func (c *Context) lookupStack(key any) any {
	for f := c.frame; f != nil; f = f.parent {
		if v := c.resolveIn(key, f); !node.IsMissing(v) {
			return v
		}
		if f.stopResolution {
			break
		}
	}
	return node.Missing
}

func (c *Context) resolveIn(key any, f *Frame) any {
	if name, ok := key.(string); ok && len(name) > 0 && name[0] == '@' {
		if name == "@index" {
			if f.currentIndex != -1 {
				return int64(f.currentIndex + 1)
			}
			return node.Missing
		}
		if v, ok := f.Var(name); ok {
			return v
		}
		return node.Missing
	}
	return node.Get(f.node, key)
}

// Partial returns the compiled body of a macro or partial. Macros are
// searched from the innermost frame outward before partials. A nil result
// means no such name exists. A strict-mode compile failure is returned as a
// *CodeSyntaxError; in safe execution the compile errors are recorded as
// COMPILE_PARTIAL_SYNTAX and the best-effort tree is used.
func (c *Context) Partial(name string) (*RootInst, error) {
	for f := c.frame; f != nil; f = f.parent {
		if m := f.Macro(name); m != nil {
			return m.Root, nil
		}
	}
	if root, ok := c.compiled[name]; ok {
		return root, nil
	}
	source, ok := c.partials[name]
	if !ok || c.compiler == nil {
		return nil, nil
	}

	mode := ModeStrict
	if c.safeExecution {
		mode = ModeCollect
	}
	tmpl, err := c.compiler.Compile(source, CompileOptions{Mode: mode})
	if err != nil {
		return nil, err
	}
	if len(tmpl.Errors) > 0 {
		c.AddError(c.Error(CompilePartialSyntax).WithName(name).WithChildren(tmpl.Errors...))
	}
	if c.logger.IsDebugMode() {
		c.logger.WithField("partial", name).Debug("Compiled partial")
	}
	if c.compiled == nil {
		c.compiled = make(map[string]*RootInst)
	}
	c.compiled[name] = tmpl.Code
	return tmpl.Code, nil
}

// EnterPartial marks name as executing. Recursion and exceeding the
// maximum depth are fatal regardless of safe execution.
func (c *Context) EnterPartial(name string) error {
	if _, ok := c.executing[name]; ok {
		return NewCodeExecuteError(c.Error(ApplyPartialRecursion).WithName(name), nil)
	}
	if c.partialDepth >= c.maxPartialDepth {
		info := c.Error(ApplyPartialRecursionDepth).WithName(name).WithLimit(c.maxPartialDepth)
		return NewCodeExecuteError(info, nil)
	}
	if c.executing == nil {
		c.executing = make(map[string]struct{})
	}
	c.executing[name] = struct{}{}
	c.partialDepth++
	return nil
}

// ExitPartial undoes EnterPartial.
func (c *Context) ExitPartial(name string) {
	if _, ok := c.executing[name]; ok {
		delete(c.executing, name)
		c.partialDepth--
	}
}

// ExecuteTemplate runs inst with v in view and returns its output. A
// private execution hides the enclosing frames. A non-nil args map is bound
// as @args.
func (c *Context) ExecuteTemplate(inst Instruction, v any, private bool, args map[string]any) (string, error) {
	return c.Capture(func() error {
		c.Push(v)
		defer c.Pop()
		c.frame.StopResolution(private)
		if args != nil {
			c.SetVar("@args", args)
		}
		return c.Execute(inst)
	})
}

// expression returns the parsed expression of an eval instruction, parsing
// it on first use. Parse errors are recorded once.
func (c *Context) expression(inst *EvalInst) (*expr.Expr, bool) {
	if e, ok := c.exprCache[inst]; ok {
		return e, false
	}
	e := expr.Parse(inst.Body, c.exprOptions)
	if c.exprCache == nil {
		c.exprCache = make(map[*EvalInst]*expr.Expr)
	}
	c.exprCache[inst] = e
	return e, true
}
