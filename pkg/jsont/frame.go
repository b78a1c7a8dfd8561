package jsont

// Frame is one level of the scope stack: the value in view, the iteration
// cursor when the value is being repeated, and lazily allocated local
// variables and macros.
type Frame struct {
	parent         *Frame
	node           any
	vars           map[string]any
	macros         map[string]*MacroInst
	stopResolution bool
	currentIndex   int
}

func newFrame(parent *Frame, node any) *Frame {
	return &Frame{parent: parent, node: node, currentIndex: -1}
}

func (f *Frame) Parent() *Frame { return f.parent }
func (f *Frame) Node() any      { return f.node }

// CurrentIndex is the 0-based iteration cursor, -1 outside iteration.
func (f *Frame) CurrentIndex() int { return f.currentIndex }

// StopResolution blocks variable lookup from continuing past this frame.
func (f *Frame) StopResolution(flag bool) {
	f.stopResolution = flag
}

// SetVar binds a local variable. Names carry their leading '@'.
func (f *Frame) SetVar(name string, value any) {
	if f.vars == nil {
		f.vars = make(map[string]any, 4)
	}
	f.vars[name] = value
}

// Var returns a local variable bound on this frame only.
func (f *Frame) Var(name string) (any, bool) {
	v, ok := f.vars[name]
	return v, ok
}

// Vars returns the frame's variable map, nil when none were bound.
func (f *Frame) Vars() map[string]any {
	return f.vars
}

func (f *Frame) SetMacro(name string, inst *MacroInst) {
	if f.macros == nil {
		f.macros = make(map[string]*MacroInst, 4)
	}
	f.macros[name] = inst
}

func (f *Frame) Macro(name string) *MacroInst {
	return f.macros[name]
}
