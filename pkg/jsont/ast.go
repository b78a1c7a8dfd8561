package jsont

import "github.com/benjaminschreck/go-jsont/pkg/jsont/node"

// Opcodes of the JSON AST form. Instructions without an opcode encode as
// opNoop.
const (
	astVersion = int64(1)
	fastNull   = int64(0)
	opNoop     = int64(-1)
)

var opcodes = map[InstructionType]int64{
	TypeText:        0,
	TypeVariable:    1,
	TypeSection:     2,
	TypeEnd:         3,
	TypeRepeated:    4,
	TypePredicate:   5,
	TypeBindVar:     6,
	TypeOrPredicate: 7,
	TypeIf:          8,
	TypeInject:      9,
	TypeMacro:       10,
	TypeComment:     11,
	TypeMetaLeft:    12,
	TypeMetaRight:   13,
	TypeNewline:     14,
	TypeSpace:       15,
	TypeTab:         16,
	TypeRoot:        17,
	TypeEOF:         18,

	// Inlined into REPEATED when emitted.
	TypeAlternatesWith: 19,

	TypeCtxVar: 22,
}

// Opcode returns the AST opcode of an instruction type, -1 when it has none.
func Opcode(t InstructionType) int64 {
	if op, ok := opcodes[t]; ok {
		return op
	}
	return opNoop
}

// AST converts a tree to its compact JSON array form. Empty blocks and
// argument lists encode as 0.
func AST(inst Instruction) any {
	switch inst := inst.(type) {
	case nil:
		return fastNull

	case *TextInst:
		return []any{Opcode(TypeText), inst.Text}

	case *VariableInst:
		return []any{Opcode(TypeVariable), astVariables(inst.Variables), astFormatters(inst.Formatters)}

	case *SectionInst:
		return append([]any{Opcode(TypeSection), astVariable(inst.Variable)}, astBlock(inst)...)

	case *RepeatedInst:
		obj := append([]any{Opcode(TypeRepeated), astVariable(inst.Variable)}, astBlock(inst)...)
		if inst.AlternatesWith == nil {
			return append(obj, fastNull)
		}
		return append(obj, astInstructions(inst.AlternatesWith.Consequent()))

	case *AlternatesWithInst:
		return opNoop

	case *IfInst:
		ops := make([]any, len(inst.Operators))
		for i, op := range inst.Operators {
			if op == LogicalAnd {
				ops[i] = int64(1)
			} else {
				ops[i] = int64(0)
			}
		}
		return append([]any{Opcode(TypeIf), ops, astVariables(inst.Variables)}, astBlock(inst)...)

	case *IfPredicateInst:
		obj := []any{Opcode(TypePredicate), astPluginID(inst.Predicate), astArguments(inst.Args)}
		return append(obj, astBlock(inst)...)

	case *PredicateInst:
		var id any = fastNull
		var args any = fastNull
		if test, ok := inst.Test.(PredicateTest); ok {
			id = astPluginID(test.Predicate)
			args = astArguments(test.Args)
		}
		return append([]any{Opcode(inst.Type()), id, args}, astBlock(inst)...)

	case *BindVarInst:
		return []any{Opcode(TypeBindVar), inst.Name, astVariables(inst.Variables), astFormatters(inst.Formatters)}

	case *CtxVarInst:
		bindings := make([]any, len(inst.Bindings))
		for i, b := range inst.Bindings {
			bindings[i] = []any{b.Name, astVariable(b.Ref)}
		}
		return []any{Opcode(TypeCtxVar), inst.Name, bindings}

	case *InjectInst:
		return []any{Opcode(TypeInject), inst.Variable, inst.Path, astArguments(inst.Args)}

	case *MacroInst:
		return []any{Opcode(TypeMacro), inst.Name, astInstructions(inst.Consequent())}

	case *CommentInst:
		multi := int64(0)
		if inst.MultiLine {
			multi = 1
		}
		return []any{Opcode(TypeComment), inst.Text, multi}

	case *RootInst:
		return append([]any{Opcode(TypeRoot), astVersion}, astBlock(inst)...)
	}
	return Opcode(inst.Type())
}

// ASTJSON is AST serialized as compact JSON.
func ASTJSON(inst Instruction) string {
	return node.Encode(AST(inst))
}

func astBlock(inst BlockInstruction) []any {
	return []any{astInstructions(inst.Consequent()), AST(inst.Alternative())}
}

func astInstructions(block *Block) any {
	insts := block.Instructions()
	if len(insts) == 0 {
		return fastNull
	}
	out := make([]any, len(insts))
	for i, inst := range insts {
		out[i] = AST(inst)
	}
	return out
}

func astVariable(p node.Path) []any {
	if p == nil {
		return []any{"@"}
	}
	out := make([]any, len(p))
	for i, seg := range p {
		if n, ok := seg.(int); ok {
			out[i] = int64(n)
		} else {
			out[i] = seg
		}
	}
	return out
}

func astVariables(vars []node.Path) []any {
	out := make([]any, len(vars))
	for i, v := range vars {
		out[i] = astVariable(v)
	}
	return out
}

func astFormatters(calls []*FormatterCall) any {
	if len(calls) == 0 {
		return fastNull
	}
	out := make([]any, len(calls))
	for i, call := range calls {
		obj := []any{call.Formatter.Identifier()}
		if !call.Args.IsEmpty() {
			obj = append(obj, astArguments(call.Args))
		}
		out[i] = obj
	}
	return out
}

func astArguments(args *Arguments) any {
	if args.IsEmpty() {
		return fastNull
	}
	list := make([]any, len(args.Args))
	for i, a := range args.Args {
		list[i] = a
	}
	return []any{list, string(args.Delimiter)}
}

func astPluginID(p Plugin) any {
	if p == nil {
		return fastNull
	}
	return p.Identifier()
}
