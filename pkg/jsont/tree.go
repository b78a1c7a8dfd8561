package jsont

import (
	"strconv"
	"strings"
)

const treeIndent = 2

// Tree renders an indented debug listing of a compiled tree, one
// instruction per line with its source position.
func Tree(inst Instruction) string {
	var b strings.Builder
	emitTree(&b, inst, 0)
	return b.String()
}

func emitTree(b *strings.Builder, inst Instruction, depth int) {
	if inst == nil {
		return
	}
	emitTreeHeader(b, inst, depth)

	switch inst := inst.(type) {
	case *RootInst:
		emitTreeBlock(b, inst.Consequent(), depth)
	case *MacroInst:
		emitTreeBlock(b, inst.Consequent(), depth+treeIndent)
	case *RepeatedInst:
		emitTreeBlock(b, inst.Consequent(), depth+treeIndent)
		if inst.AlternatesWith != nil {
			emitTree(b, inst.AlternatesWith, depth+treeIndent)
		}
		emitTree(b, inst.Alternative(), depth)
	case BlockInstruction:
		emitTreeBlock(b, inst.Consequent(), depth+treeIndent)
		emitTree(b, inst.Alternative(), depth)
	}
}

func emitTreeHeader(b *strings.Builder, inst Instruction, depth int) {
	if inst.Type() == TypeRoot {
		return
	}
	indent(b, depth)
	b.WriteString(inst.Type().String())
	b.WriteString(" {")
	b.WriteString(strconv.Itoa(inst.Line()))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(inst.Offset()))
	b.WriteByte('}')

	switch inst := inst.(type) {
	case *BindVarInst:
		b.WriteString(" " + inst.Name + " = ")
		emitReprVariables(b, inst.Variables)

	case *CommentInst:
		b.WriteByte(' ')
		emitTreeString(b, inst.Text)

	case *TextInst:
		b.WriteByte(' ')
		emitTreeString(b, inst.Text)

	case *IfInst:
		b.WriteByte(' ')
		emitIfExpression(b, inst)

	case *IfPredicateInst:
		emitTreePredicate(b, inst.Predicate, inst.Args)

	case *PredicateInst:
		if test, ok := inst.Test.(PredicateTest); ok {
			emitTreePredicate(b, test.Predicate, test.Args)
		}

	case *RepeatedInst:
		b.WriteString(" " + inst.Variable.String())

	case *SectionInst:
		b.WriteString(" " + inst.Variable.String())

	case *MacroInst:
		b.WriteString(" " + inst.Name)

	case *EvalInst:
		b.WriteByte(' ')
		emitTreeString(b, inst.Body)

	case *IncludeInst:
		b.WriteString(" " + inst.Name)

	case *VariableInst:
		b.WriteByte(' ')
		emitReprVariables(b, inst.Variables)
		for _, call := range inst.Formatters {
			b.WriteByte('\n')
			indent(b, depth+treeIndent)
			b.WriteString("| ")
			b.WriteString(call.Formatter.Identifier())
			if !call.Args.IsEmpty() {
				b.WriteByte(' ')
				emitTreeArgs(b, call.Args)
			}
		}
	}
	b.WriteByte('\n')
}

func emitTreePredicate(b *strings.Builder, p Predicate, args *Arguments) {
	if p == nil {
		return
	}
	b.WriteString(" " + p.Identifier())
	if !args.IsEmpty() {
		b.WriteByte(' ')
		emitTreeArgs(b, args)
	}
}

func emitTreeArgs(b *strings.Builder, args *Arguments) {
	b.WriteString("delim='")
	b.WriteString(escapeMessage(string(args.Delimiter)))
	b.WriteString("' parsed=[")
	b.WriteString(strings.Join(args.Args, ", "))
	b.WriteByte(']')
}

// emitTreeString writes the length and the escaped first 40 characters.
func emitTreeString(b *strings.Builder, s string) {
	runes := []rune(s)
	n := min(40, len(runes))
	b.WriteString("(len=")
	b.WriteString(strconv.Itoa(len(runes)))
	b.WriteString(") \"")
	b.WriteString(escapeMessage(string(runes[:n])))
	if n != len(runes) {
		b.WriteString(" ...")
	}
	b.WriteByte('"')
}

func emitTreeBlock(b *strings.Builder, block *Block, depth int) {
	for _, inst := range block.Instructions() {
		emitTree(b, inst, depth)
	}
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat(" ", depth))
}
