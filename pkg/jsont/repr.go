package jsont

import (
	"strings"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// Repr renders a compiled tree back to canonical template text. Compiling
// the result yields an equal tree.
func Repr(inst Instruction) string {
	var b strings.Builder
	emitRepr(&b, inst, true)
	return b.String()
}

// ReprShallow renders a single instruction without its children.
func ReprShallow(inst Instruction) string {
	var b strings.Builder
	emitRepr(&b, inst, false)
	return b.String()
}

func openRepr(b *strings.Builder, inst Instruction) {
	b.WriteByte('{')
	if inst.InPreprocessScope() {
		b.WriteByte('^')
	}
}

func emitRepr(b *strings.Builder, inst Instruction, recurse bool) {
	switch inst := inst.(type) {
	case nil:
		return

	case *TextInst:
		b.WriteString(inst.Text)

	case *VariableInst:
		openRepr(b, inst)
		emitReprVariables(b, inst.Variables)
		emitReprFormatters(b, inst.Formatters)
		b.WriteByte('}')

	case *SectionInst:
		openRepr(b, inst)
		b.WriteString(".section ")
		b.WriteString(inst.Variable.String())
		b.WriteByte('}')
		if recurse {
			emitReprBlock(b, inst)
		}

	case *RepeatedInst:
		openRepr(b, inst)
		b.WriteString(".repeated section ")
		b.WriteString(inst.Variable.String())
		b.WriteByte('}')
		if recurse {
			emitReprInstructions(b, inst.Consequent())
			// The alternates-with block ends where the repeated block's
			// alternative starts.
			if aw := inst.AlternatesWith; aw != nil {
				emitRepr(b, aw, false)
				emitReprInstructions(b, aw.Consequent())
			}
			emitRepr(b, inst.Alternative(), true)
		}

	case *AlternatesWithInst:
		openRepr(b, inst)
		b.WriteString(".alternates with}")
		if recurse {
			emitReprBlock(b, inst)
		}

	case *IfInst:
		openRepr(b, inst)
		b.WriteString(".if ")
		emitIfExpression(b, inst)
		b.WriteByte('}')
		if recurse {
			emitReprBlock(b, inst)
		}

	case *IfPredicateInst:
		openRepr(b, inst)
		b.WriteString(".if ")
		b.WriteString(inst.Predicate.Identifier())
		emitArguments(b, inst.Args, true)
		b.WriteByte('}')
		if recurse {
			emitReprBlock(b, inst)
		}

	case *PredicateInst:
		openRepr(b, inst)
		b.WriteByte('.')
		if !inst.Or {
			test := inst.Test.(PredicateTest)
			b.WriteString(test.Predicate.Identifier())
			emitArguments(b, test.Args, true)
		} else {
			b.WriteString("or")
			if test, ok := inst.Test.(PredicateTest); ok {
				b.WriteByte(' ')
				b.WriteString(test.Predicate.Identifier())
				emitArguments(b, test.Args, true)
			}
		}
		b.WriteByte('}')
		if recurse {
			emitReprBlock(b, inst)
		}

	case *BindVarInst:
		openRepr(b, inst)
		b.WriteString(".var ")
		b.WriteString(inst.Name)
		b.WriteByte(' ')
		emitReprVariables(b, inst.Variables)
		emitReprFormatters(b, inst.Formatters)
		b.WriteByte('}')

	case *CtxVarInst:
		openRepr(b, inst)
		b.WriteString(".ctx ")
		b.WriteString(inst.Name)
		b.WriteByte(' ')
		for i, binding := range inst.Bindings {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(binding.Name)
			b.WriteByte('=')
			b.WriteString(binding.Ref.String())
		}
		b.WriteByte('}')

	case *InjectInst:
		openRepr(b, inst)
		b.WriteString(".inject ")
		b.WriteString(inst.Variable)
		b.WriteByte(' ')
		b.WriteString(inst.Path)
		emitArguments(b, inst.Args, true)
		b.WriteByte('}')

	case *MacroInst:
		openRepr(b, inst)
		b.WriteString(".macro ")
		b.WriteString(inst.Name)
		b.WriteByte('}')
		if recurse {
			emitReprBlock(b, inst.Root)
		}

	case *CommentInst:
		b.WriteByte('{')
		// Multi-line comments are never preprocessor scoped.
		if inst.InPreprocessScope() && !inst.MultiLine {
			b.WriteByte('^')
		}
		b.WriteByte('#')
		if inst.MultiLine {
			b.WriteByte('#')
		}
		b.WriteString(inst.Text)
		if inst.MultiLine {
			b.WriteString("##")
		}
		b.WriteByte('}')

	case *MetaInst:
		openRepr(b, inst)
		if inst.Left {
			b.WriteString(".meta-left}")
		} else {
			b.WriteString(".meta-right}")
		}

	case *LiteralInst:
		openRepr(b, inst)
		b.WriteByte('.')
		b.WriteString(inst.Name)
		b.WriteByte('}')

	case *EndInst:
		openRepr(b, inst)
		b.WriteString(".end}")

	case *EOFInst:

	case *RootInst:
		if recurse {
			emitReprBlock(b, inst)
		}

	case *EvalInst:
		openRepr(b, inst)
		b.WriteString(".eval ")
		if inst.Debug {
			b.WriteByte('#')
		}
		b.WriteString(inst.Body)
		b.WriteByte('}')

	case *IncludeInst:
		openRepr(b, inst)
		b.WriteString(".include")
		emitArguments(b, inst.Args, true)
		b.WriteByte('}')

	default:
		panic("jsont: repr of unknown instruction " + inst.Type().String())
	}
}

func emitReprBlock(b *strings.Builder, inst BlockInstruction) {
	emitReprInstructions(b, inst.Consequent())
	emitRepr(b, inst.Alternative(), true)
}

func emitReprInstructions(b *strings.Builder, block *Block) {
	for _, inst := range block.Instructions() {
		emitRepr(b, inst, true)
	}
}

func emitIfExpression(b *strings.Builder, inst *IfInst) {
	for i, v := range inst.Variables {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(inst.Operators[i-1].String())
			b.WriteByte(' ')
		}
		b.WriteString(v.String())
	}
}

func emitReprVariables(b *strings.Builder, vars []node.Path) {
	for i, v := range vars {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v.String())
	}
}

func emitReprFormatters(b *strings.Builder, calls []*FormatterCall) {
	for _, call := range calls {
		b.WriteByte('|')
		b.WriteString(call.Formatter.Identifier())
		emitArguments(b, call.Args, true)
	}
}
