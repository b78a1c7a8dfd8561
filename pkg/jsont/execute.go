package jsont

import (
	"fmt"
	"strings"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// Execute runs a single instruction. Errors that are not already execution
// errors, including panics raised by plugins, become UNEXPECTED_ERROR: in
// safe execution they are recorded and execution continues, otherwise they
// are returned. On any error the frame stack is restored to its depth at
// entry.
func (c *Context) Execute(inst Instruction) (err error) {
	if inst == nil {
		return nil
	}
	c.current = inst
	frame := c.frame

	defer func() {
		if r := recover(); r != nil {
			c.frame = frame
			err = c.unexpected(inst, "panic", RecoverError(r))
		}
	}()

	if err := c.limiter.Check(c); err != nil {
		return err
	}
	if err := c.invoke(inst); err != nil {
		c.frame = frame
		if IsExecuteError(err) {
			return err
		}
		return c.unexpected(inst, errorTypeName(err), err)
	}
	return nil
}

func (c *Context) executeBlock(insts []Instruction) error {
	for _, inst := range insts {
		if err := c.Execute(inst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) unexpected(inst Instruction, name string, cause error) error {
	info := NewErrorInfo(UnexpectedError).
		At(inst.Line(), inst.Offset()).
		WithName(name).
		WithData(cause.Error()).
		WithRepr(ReprShallow(inst))

	c.logger.WithFields(Fields{
		"instruction": inst.Type().String(),
		"line":        inst.Line(),
		"offset":      inst.Offset(),
	}).Error("Unexpected error during execution: %v", cause)

	if c.safeExecution {
		c.AddError(info)
		return nil
	}
	return NewCodeExecuteError(info, cause)
}

// errorTypeName returns the bare type name of err, e.g. "ArgumentsError".
func errorTypeName(err error) string {
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (c *Context) invoke(inst Instruction) error {
	switch inst := inst.(type) {
	case *TextInst:
		c.buf.WriteString(inst.Text)

	case *LiteralInst:
		c.buf.WriteString(inst.Value)

	case *MetaInst:
		if inst.Left {
			c.buf.WriteByte('{')
		} else {
			c.buf.WriteByte('}')
		}

	case *CommentInst, *EndInst, *EOFInst:

	case *RootInst:
		return c.executeBlock(inst.Consequent().Instructions())

	case *AlternatesWithInst:
		return c.executeBlock(inst.Consequent().Instructions())

	case *VariableInst:
		return c.executeVariable(inst)

	case *SectionInst:
		return c.executeSection(inst)

	case *RepeatedInst:
		return c.executeRepeated(inst)

	case *IfInst:
		return c.branch(inst, c.evaluateIf(inst))

	case *IfPredicateInst:
		ok, err := inst.Predicate.Apply(c, inst.Args)
		if err != nil {
			return err
		}
		return c.branch(inst, ok)

	case *PredicateInst:
		return c.executePredicate(inst)

	case *BindVarInst:
		vars := newVariables(inst.Variables)
		vars.resolve(c)
		if err := c.applyFormatters(inst.Formatters, vars); err != nil {
			return err
		}
		c.SetVar(inst.Name, vars.First().Get())

	case *CtxVarInst:
		obj := make(map[string]any, len(inst.Bindings))
		for _, b := range inst.Bindings {
			if v := c.Resolve(b.Ref); !node.IsMissing(v) {
				obj[b.Name] = v
			}
		}
		c.SetVar(inst.Name, obj)

	case *InjectInst:
		c.SetVar(inst.Variable, c.Injectable(inst.Path))

	case *MacroInst:
		c.SetMacro(inst.Name, inst)

	case *EvalInst:
		c.executeEval(inst)

	case *IncludeInst:
		return c.executeInclude(inst)

	default:
		panic(fmt.Sprintf("jsont: cannot execute instruction type %s", inst.Type()))
	}
	return nil
}

// branch runs the consequent when ok, the alternative otherwise.
func (c *Context) branch(inst BlockInstruction, ok bool) error {
	if ok {
		return c.executeBlock(inst.Consequent().Instructions())
	}
	return c.Execute(inst.Alternative())
}

func (c *Context) executeVariable(inst *VariableInst) error {
	vars := newVariables(inst.Variables)
	vars.resolve(c)
	first := vars.First()

	c.Push(first.Get())
	defer c.Pop()
	if err := c.applyFormatters(inst.Formatters, vars); err != nil {
		return err
	}
	if !first.IsMissing() {
		node.Emit(c.buf, first.Get())
	}
	return nil
}

// applyFormatters runs the chain in order, consulting the limiter before
// each call.
func (c *Context) applyFormatters(calls []*FormatterCall, vars *Variables) error {
	for _, call := range calls {
		if err := c.limiter.Check(c); err != nil {
			return err
		}
		if err := call.Formatter.Apply(c, call.Args, vars); err != nil {
			return err
		}
	}
	return nil
}

// executeSection pops the section's frame before running the alternative,
// so the alternative sees the enclosing scope.
func (c *Context) executeSection(inst *SectionInst) error {
	c.pushSection(inst.Variable)
	if node.IsTruthy(c.Node()) {
		if err := c.executeBlock(inst.Consequent().Instructions()); err != nil {
			return err
		}
		c.Pop()
		return nil
	}
	c.Pop()
	return c.Execute(inst.Alternative())
}

// executeRepeated runs the consequent once per element. The alternates-with
// block runs after every element but the last, before that element's frame
// is popped.
func (c *Context) executeRepeated(inst *RepeatedInst) error {
	c.pushSection(inst.Variable)
	if !c.initIteration() {
		c.Pop()
		return c.Execute(inst.Alternative())
	}

	last := c.arraySize() - 1
	for c.hasNext() {
		index := c.frame.currentIndex
		c.pushNext()
		if err := c.executeBlock(inst.Consequent().Instructions()); err != nil {
			return err
		}
		if index < last && inst.AlternatesWith != nil {
			if err := c.Execute(inst.AlternatesWith); err != nil {
				return err
			}
		}
		c.Pop()
		c.increment()
	}
	c.Pop()
	return nil
}

// evaluateIf folds the truthiness of the variables left to right. An OR
// that yields true or an AND that yields false ends the evaluation, and
// the operand it would need next is never resolved.
func (c *Context) evaluateIf(inst *IfInst) bool {
	result := node.IsTruthy(c.Resolve(inst.Variables[0]))
	for i := 1; i < len(inst.Variables); i++ {
		if inst.Operators[i-1] == LogicalOr {
			result = result || node.IsTruthy(c.Resolve(inst.Variables[i]))
			if result {
				break
			}
		} else {
			result = result && node.IsTruthy(c.Resolve(inst.Variables[i]))
			if !result {
				break
			}
		}
	}
	return result
}

func (c *Context) executePredicate(inst *PredicateInst) error {
	switch test := inst.Test.(type) {
	case PredicateTest:
		ok, err := test.Predicate.Apply(c, test.Args)
		if err != nil {
			return err
		}
		return c.branch(inst, ok)
	case ElseTest:
		return c.executeBlock(inst.Consequent().Instructions())
	default:
		panic(fmt.Sprintf("jsont: unknown predicate condition %T", test))
	}
}

// executeEval reduces the expression in a temporary frame. Variables it
// assigns are copied to the real frame only when reduction succeeds.
// Expression errors are always recorded, never returned.
func (c *Context) executeEval(inst *EvalInst) {
	e, parsed := c.expression(inst)
	errs := e.Errors()
	if parsed {
		for _, msg := range errs {
			c.AddError(c.Error(ExpressionParse).WithData(msg))
		}
	}
	if inst.Debug {
		c.buf.WriteString("EVAL=")
		c.buf.WriteString(e.Debug())
	}
	if len(errs) > 0 {
		return
	}

	c.Push(c.Node())
	result, err := e.Reduce(c)
	vars := c.frame.Vars()
	c.Pop()

	if err != nil {
		c.AddError(c.Error(ExpressionReduce).WithData(err.Error()))
		return
	}
	for name, v := range vars {
		c.SetVar(name, v)
	}
	if node.IsMissing(result) {
		return
	}
	if c.logger.IsDebugMode() {
		c.logger.DebugExpression(inst.Body, result)
	}
	if inst.Debug {
		c.buf.WriteString(" -> ")
	}
	node.Emit(c.buf, result)
}

// executeInclude runs a macro or partial in place. Its output is discarded
// unless the instruction carries the output flag.
func (c *Context) executeInclude(inst *IncludeInst) error {
	if !c.enableInclude {
		return nil
	}
	root, err := c.Partial(inst.Name)
	if err != nil {
		info := c.Error(IncludePartialSyntax).WithName(inst.Name).WithData(err.Error())
		if child := ErrorInfoOf(err); child != nil {
			info.WithChildren(child)
		}
		return NewCodeExecuteError(info, err)
	}
	if root == nil {
		info := c.Error(IncludePartialMissing).WithName(inst.Name)
		if c.safeExecution {
			c.AddError(info)
			return nil
		}
		return NewCodeExecuteError(info, nil)
	}

	run := func() error {
		if err := c.EnterPartial(inst.Name); err != nil {
			return err
		}
		defer c.ExitPartial(inst.Name)
		return c.executeBlock(root.Consequent().Instructions())
	}
	if inst.Output {
		return run()
	}
	_, err = c.Capture(run)
	return err
}
