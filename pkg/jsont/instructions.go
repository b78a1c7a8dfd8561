package jsont

import (
	"slices"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// InstructionType identifies an instruction variant.
type InstructionType int

const (
	TypeText InstructionType = iota
	TypeVariable
	TypeSection
	TypeEnd
	TypeRepeated
	TypePredicate
	TypeBindVar
	TypeOrPredicate
	TypeIf
	TypeInject
	TypeMacro
	TypeComment
	TypeMetaLeft
	TypeMetaRight
	TypeNewline
	TypeSpace
	TypeTab
	TypeRoot
	TypeEOF
	TypeAlternatesWith
	TypeCtxVar
	TypeEval
	TypeInclude
)

var instructionTypeNames = [...]string{
	TypeText:           "TEXT",
	TypeVariable:       "VARIABLE",
	TypeSection:        "SECTION",
	TypeEnd:            "END",
	TypeRepeated:       "REPEATED",
	TypePredicate:      "PREDICATE",
	TypeBindVar:        "BINDVAR",
	TypeOrPredicate:    "OR_PREDICATE",
	TypeIf:             "IF",
	TypeInject:         "INJECT",
	TypeMacro:          "MACRO",
	TypeComment:        "COMMENT",
	TypeMetaLeft:       "META_LEFT",
	TypeMetaRight:      "META_RIGHT",
	TypeNewline:        "NEWLINE",
	TypeSpace:          "SPACE",
	TypeTab:            "TAB",
	TypeRoot:           "ROOT",
	TypeEOF:            "EOF",
	TypeAlternatesWith: "ALTERNATES_WITH",
	TypeCtxVar:         "CTXVAR",
	TypeEval:           "EVAL",
	TypeInclude:        "INCLUDE",
}

func (t InstructionType) String() string {
	if int(t) < 0 || int(t) >= len(instructionTypeNames) {
		return "UNKNOWN"
	}
	return instructionTypeNames[t]
}

// Instruction is one node of a compiled template. The set of variants is
// closed; consumers switch on the concrete type.
type Instruction interface {
	Type() InstructionType
	// Line and Offset are the 1-based source position.
	Line() int
	Offset() int
	// InPreprocessScope reports whether the instruction came from a {^...}
	// span.
	InPreprocessScope() bool

	base() *baseInst
}

// BlockInstruction is an instruction that owns a consequent block and an
// alternative branch.
type BlockInstruction interface {
	Instruction
	Consequent() *Block
	Alternative() Instruction
	SetAlternative(Instruction)
}

type baseInst struct {
	line, offset int
	preprocess   bool
}

func (b *baseInst) Line() int               { return b.line }
func (b *baseInst) Offset() int             { return b.offset }
func (b *baseInst) InPreprocessScope() bool { return b.preprocess }
func (b *baseInst) base() *baseInst         { return b }

// Block is an append-only list of instructions, allocated on first Add.
type Block struct {
	size  int
	insts []Instruction
}

func newBlock(size int) Block {
	return Block{size: size}
}

// Add appends an instruction.
func (b *Block) Add(inst Instruction) {
	if b.insts == nil {
		b.insts = make([]Instruction, 0, b.size)
	}
	b.insts = append(b.insts, inst)
}

// Instructions returns the block contents, nil when empty.
func (b *Block) Instructions() []Instruction {
	if b == nil {
		return nil
	}
	return b.insts
}

// Len returns the number of instructions.
func (b *Block) Len() int {
	if b == nil {
		return 0
	}
	return len(b.insts)
}

const (
	rootBlockLen       = 10
	consequentBlockLen = 4
	alternatesBlockLen = 2
)

type blockInst struct {
	consequent  Block
	alternative Instruction
}

func (b *blockInst) Consequent() *Block              { return &b.consequent }
func (b *blockInst) Alternative() Instruction        { return b.alternative }
func (b *blockInst) SetAlternative(inst Instruction) { b.alternative = inst }

// FormatterCall is one link of a formatter chain.
type FormatterCall struct {
	Formatter Formatter
	Args      *Arguments
}

// BoolOp joins the tests of an if expression.
type BoolOp int

const (
	LogicalOr BoolOp = iota
	LogicalAnd
)

func (o BoolOp) String() string {
	if o == LogicalAnd {
		return "&&"
	}
	return "||"
}

// Binding pairs a key with a variable reference in a {.ctx} instruction.
type Binding struct {
	Name string
	Ref  node.Path
}

// TextInst emits a run of literal template text.
type TextInst struct {
	baseInst
	Text string
}

func (*TextInst) Type() InstructionType { return TypeText }

// VariableInst resolves one or more variables, applies a formatter chain and
// emits the first value.
type VariableInst struct {
	baseInst
	Variables  []node.Path
	Formatters []*FormatterCall
}

func (*VariableInst) Type() InstructionType { return TypeVariable }

// SectionInst scopes into a value when it is truthy.
type SectionInst struct {
	baseInst
	blockInst
	Variable node.Path
}

func (*SectionInst) Type() InstructionType { return TypeSection }

// RepeatedInst iterates an array value.
type RepeatedInst struct {
	baseInst
	blockInst
	Variable       node.Path
	AlternatesWith *AlternatesWithInst
}

func (*RepeatedInst) Type() InstructionType { return TypeRepeated }

// AlternatesWithInst is the separator block of a RepeatedInst.
type AlternatesWithInst struct {
	baseInst
	blockInst
}

func (*AlternatesWithInst) Type() InstructionType { return TypeAlternatesWith }

// IfInst tests a chain of variables joined by && and ||.
type IfInst struct {
	baseInst
	blockInst
	Variables []node.Path
	Operators []BoolOp
}

func (*IfInst) Type() InstructionType { return TypeIf }

// IfPredicateInst is the {.if predicate? args} form.
type IfPredicateInst struct {
	baseInst
	blockInst
	Predicate Predicate
	Args      *Arguments
}

func (*IfPredicateInst) Type() InstructionType { return TypeIf }

// Condition is the test of a PredicateInst: PredicateTest or ElseTest.
type Condition interface {
	isCondition()
}

// PredicateTest applies a predicate.
type PredicateTest struct {
	Predicate Predicate
	Args      *Arguments
}

// ElseTest always passes. It is the test of a bare {.or}.
type ElseTest struct{}

func (PredicateTest) isCondition() {}
func (ElseTest) isCondition()      {}

// PredicateInst is a {predicate?} block, or an {.or ...} branch when Or is
// set.
type PredicateInst struct {
	baseInst
	blockInst
	Test Condition
	Or   bool
}

func (p *PredicateInst) Type() InstructionType {
	if p.Or {
		return TypeOrPredicate
	}
	return TypePredicate
}

// IsElse reports whether the instruction is a bare {.or}.
func (p *PredicateInst) IsElse() bool {
	_, ok := p.Test.(ElseTest)
	return ok
}

// BindVarInst binds a formatted value to a local @name.
type BindVarInst struct {
	baseInst
	Name       string
	Variables  []node.Path
	Formatters []*FormatterCall
}

func (*BindVarInst) Type() InstructionType { return TypeBindVar }

// CtxVarInst binds an object assembled from key=variable bindings.
type CtxVarInst struct {
	baseInst
	Name     string
	Bindings []Binding
}

func (*CtxVarInst) Type() InstructionType { return TypeCtxVar }

// InjectInst binds an externally supplied value to a local @name.
type InjectInst struct {
	baseInst
	Variable string
	Path     string
	Args     *Arguments
}

func (*InjectInst) Type() InstructionType { return TypeInject }

// MacroInst defines a named sub-template on the current frame.
type MacroInst struct {
	baseInst
	Name string
	Root *RootInst
}

func (*MacroInst) Type() InstructionType          { return TypeMacro }
func (m *MacroInst) Consequent() *Block           { return m.Root.Consequent() }
func (m *MacroInst) Alternative() Instruction     { return m.Root.Alternative() }
func (m *MacroInst) SetAlternative(i Instruction) { m.Root.SetAlternative(i) }

// CommentInst is a {#...} or {##...##} comment.
type CommentInst struct {
	baseInst
	Text      string
	MultiLine bool
}

func (*CommentInst) Type() InstructionType { return TypeComment }

// MetaInst emits a literal brace.
type MetaInst struct {
	baseInst
	Left bool
}

func (m *MetaInst) Type() InstructionType {
	if m.Left {
		return TypeMetaLeft
	}
	return TypeMetaRight
}

// LiteralInst emits a space, tab or newline.
type LiteralInst struct {
	baseInst
	kind  InstructionType
	Name  string
	Value string
}

func (l *LiteralInst) Type() InstructionType { return l.kind }

func newLiteral(t InstructionType) *LiteralInst {
	switch t {
	case TypeSpace:
		return &LiteralInst{kind: t, Name: "space", Value: " "}
	case TypeTab:
		return &LiteralInst{kind: t, Name: "tab", Value: "\t"}
	case TypeNewline:
		return &LiteralInst{kind: t, Name: "newline", Value: "\n"}
	}
	panic("jsont: not a literal instruction type: " + t.String())
}

// EndInst closes a block.
type EndInst struct {
	baseInst
}

func (*EndInst) Type() InstructionType { return TypeEnd }

// EOFInst marks the end of input.
type EOFInst struct {
	baseInst
}

func (*EOFInst) Type() InstructionType { return TypeEOF }

// RootInst is the top of a compiled tree and of every macro body.
type RootInst struct {
	baseInst
	blockInst
}

func (*RootInst) Type() InstructionType { return TypeRoot }

// NewRoot returns an empty root.
func NewRoot() *RootInst {
	return &RootInst{blockInst: blockInst{consequent: newBlock(rootBlockLen)}}
}

// EvalInst evaluates an expression and emits its value.
type EvalInst struct {
	baseInst
	Body  string
	Debug bool
}

func (*EvalInst) Type() InstructionType { return TypeEval }

// IncludeInst executes a partial or macro in place.
type IncludeInst struct {
	baseInst
	Args   *Arguments
	Name   string
	Output bool
}

func (*IncludeInst) Type() InstructionType { return TypeInclude }

func newEval(raw string) *EvalInst {
	e := &EvalInst{Body: raw}
	if len(raw) > 0 && raw[0] == '#' {
		e.Debug = true
		e.Body = raw[1:]
	}
	return e
}

func newInclude(args *Arguments) *IncludeInst {
	inst := &IncludeInst{Args: args, Name: args.First()}
	for _, a := range args.Args[min(1, len(args.Args)):] {
		if a == "output" {
			inst.Output = true
		}
	}
	return inst
}

func newSection(v node.Path) *SectionInst {
	return &SectionInst{blockInst: blockInst{consequent: newBlock(consequentBlockLen)}, Variable: v}
}

func newRepeated(v node.Path) *RepeatedInst {
	return &RepeatedInst{blockInst: blockInst{consequent: newBlock(consequentBlockLen)}, Variable: v}
}

func newAlternatesWith() *AlternatesWithInst {
	return &AlternatesWithInst{blockInst: blockInst{consequent: newBlock(alternatesBlockLen)}}
}

func newIf(vars []node.Path, ops []BoolOp) *IfInst {
	return &IfInst{blockInst: blockInst{consequent: newBlock(consequentBlockLen)}, Variables: vars, Operators: ops}
}

func newIfPredicate(p Predicate, args *Arguments) *IfPredicateInst {
	return &IfPredicateInst{blockInst: blockInst{consequent: newBlock(consequentBlockLen)}, Predicate: p, Args: args}
}

func newPredicate(test Condition, or bool) *PredicateInst {
	return &PredicateInst{blockInst: blockInst{consequent: newBlock(consequentBlockLen)}, Test: test, Or: or}
}

func newMacro(name string) *MacroInst {
	return &MacroInst{Name: name, Root: NewRoot()}
}

// InstructionsEqual compares two trees structurally, ignoring source
// positions. Plugins compare by identifier.
func InstructionsEqual(a, b Instruction) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case *TextInst:
		y, ok := b.(*TextInst)
		return ok && x.Text == y.Text
	case *VariableInst:
		y, ok := b.(*VariableInst)
		return ok && pathsEqual(x.Variables, y.Variables) && formattersEqual(x.Formatters, y.Formatters)
	case *SectionInst:
		y, ok := b.(*SectionInst)
		return ok && x.Variable.Equal(y.Variable) && blocksEqual(x, y)
	case *RepeatedInst:
		y, ok := b.(*RepeatedInst)
		if !ok || !x.Variable.Equal(y.Variable) || !blocksEqual(x, y) {
			return false
		}
		if x.AlternatesWith == nil || y.AlternatesWith == nil {
			return x.AlternatesWith == nil && y.AlternatesWith == nil
		}
		return blocksEqual(x.AlternatesWith, y.AlternatesWith)
	case *AlternatesWithInst:
		y, ok := b.(*AlternatesWithInst)
		return ok && blocksEqual(x, y)
	case *IfInst:
		y, ok := b.(*IfInst)
		return ok && pathsEqual(x.Variables, y.Variables) && slices.Equal(x.Operators, y.Operators) && blocksEqual(x, y)
	case *IfPredicateInst:
		y, ok := b.(*IfPredicateInst)
		return ok && pluginsEqual(x.Predicate, y.Predicate) && x.Args.Equal(y.Args) && blocksEqual(x, y)
	case *PredicateInst:
		y, ok := b.(*PredicateInst)
		return ok && conditionsEqual(x.Test, y.Test) && blocksEqual(x, y)
	case *BindVarInst:
		y, ok := b.(*BindVarInst)
		return ok && x.Name == y.Name && pathsEqual(x.Variables, y.Variables) && formattersEqual(x.Formatters, y.Formatters)
	case *CtxVarInst:
		y, ok := b.(*CtxVarInst)
		return ok && x.Name == y.Name && slices.EqualFunc(x.Bindings, y.Bindings, func(p, q Binding) bool {
			return p.Name == q.Name && p.Ref.Equal(q.Ref)
		})
	case *InjectInst:
		y, ok := b.(*InjectInst)
		return ok && x.Variable == y.Variable && x.Path == y.Path && x.Args.Equal(y.Args)
	case *MacroInst:
		y, ok := b.(*MacroInst)
		return ok && x.Name == y.Name && InstructionsEqual(x.Root, y.Root)
	case *CommentInst:
		y, ok := b.(*CommentInst)
		return ok && x.Text == y.Text && x.MultiLine == y.MultiLine
	case *MetaInst, *LiteralInst, *EndInst, *EOFInst:
		return true
	case *RootInst:
		y, ok := b.(*RootInst)
		return ok && blocksEqual(x, y)
	case *EvalInst:
		y, ok := b.(*EvalInst)
		return ok && x.Body == y.Body && x.Debug == y.Debug
	case *IncludeInst:
		y, ok := b.(*IncludeInst)
		return ok && x.Args.Equal(y.Args)
	}
	return false
}

func blocksEqual(a, b BlockInstruction) bool {
	x, y := a.Consequent().Instructions(), b.Consequent().Instructions()
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !InstructionsEqual(x[i], y[i]) {
			return false
		}
	}
	return InstructionsEqual(a.Alternative(), b.Alternative())
}

func pathsEqual(a, b []node.Path) bool {
	return slices.EqualFunc(a, b, node.Path.Equal)
}

func formattersEqual(a, b []*FormatterCall) bool {
	return slices.EqualFunc(a, b, func(x, y *FormatterCall) bool {
		return pluginsEqual(x.Formatter, y.Formatter) && x.Args.Equal(y.Args)
	})
}

func conditionsEqual(a, b Condition) bool {
	switch x := a.(type) {
	case PredicateTest:
		y, ok := b.(PredicateTest)
		return ok && pluginsEqual(x.Predicate, y.Predicate) && x.Args.Equal(y.Args)
	case ElseTest:
		_, ok := b.(ElseTest)
		return ok
	}
	return a == nil && b == nil
}

func pluginsEqual(a, b Plugin) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Identifier() == b.Identifier()
}
