package jsont

import "github.com/benjaminschreck/go-jsont/pkg/jsont/node"

// Variable is a resolved reference that formatters may replace.
type Variable struct {
	Name  node.Path
	value any
}

// Get returns the current value, node.Missing when unresolved.
func (v *Variable) Get() any {
	return v.value
}

// Set replaces the value.
func (v *Variable) Set(value any) {
	v.value = value
}

// SetMissing marks the value absent.
func (v *Variable) SetMissing() {
	v.value = node.Missing
}

// IsMissing reports whether the value is absent.
func (v *Variable) IsMissing() bool {
	return node.IsMissing(v.value)
}

// Variables is the per-execution value list of a variable or bindvar
// instruction. Instances are built fresh on every execution, so the
// compiled tree is never mutated.
type Variables struct {
	list []*Variable
}

func newVariables(paths []node.Path) *Variables {
	vars := &Variables{list: make([]*Variable, len(paths))}
	for i, p := range paths {
		vars.list[i] = &Variable{Name: p, value: node.Missing}
	}
	return vars
}

// resolve looks every reference up against the context.
func (v *Variables) resolve(ctx *Context) {
	for _, item := range v.list {
		item.value = ctx.Resolve(item.Name)
	}
}

// Len returns the number of variables.
func (v *Variables) Len() int {
	return len(v.list)
}

// First returns the first variable. The tokenizer guarantees at least one.
func (v *Variables) First() *Variable {
	return v.list[0]
}

// Get returns variable i or nil when out of range.
func (v *Variables) Get(i int) *Variable {
	if i < 0 || i >= len(v.list) {
		return nil
	}
	return v.list[i]
}

// Values returns the current values in order.
func (v *Variables) Values() []any {
	out := make([]any, len(v.list))
	for i, item := range v.list {
		out[i] = item.value
	}
	return out
}
