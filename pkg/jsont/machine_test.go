package jsont

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeMachineSectionWithElse(t *testing.T) {
	root := compileStrict(t, "{.section a}x{.or}y{.end}")
	require.Equal(t, 1, root.Consequent().Len())
	assert.Equal(t, TypeEOF, root.Alternative().Type())

	section := root.Consequent().Instructions()[0].(*SectionInst)
	assert.Equal(t, "a", section.Variable.String())
	require.Equal(t, 1, section.Consequent().Len())

	orElse := section.Alternative().(*PredicateInst)
	assert.True(t, orElse.Or)
	assert.True(t, orElse.IsElse())
	assert.Equal(t, "y", orElse.Consequent().Instructions()[0].(*TextInst).Text)
	assert.Equal(t, TypeEnd, orElse.Alternative().Type())
}

func TestCodeMachineOrChain(t *testing.T) {
	root := compileStrict(t, "{.truthy?}a{.or equals? b}b{.or}c{.end}d")
	require.Equal(t, 2, root.Consequent().Len())

	first := root.Consequent().Instructions()[0].(*PredicateInst)
	assert.False(t, first.Or)
	second := first.Alternative().(*PredicateInst)
	assert.True(t, second.Or)
	assert.False(t, second.IsElse())
	third := second.Alternative().(*PredicateInst)
	assert.True(t, third.IsElse())
	assert.Equal(t, TypeEnd, third.Alternative().Type())

	assert.Equal(t, "d", root.Consequent().Instructions()[1].(*TextInst).Text)
}

func TestCodeMachineRepeated(t *testing.T) {
	t.Run("alternates with", func(t *testing.T) {
		root := compileStrict(t, "{.repeated section a}x{.alternates with},{.end}")
		rep := root.Consequent().Instructions()[0].(*RepeatedInst)
		require.NotNil(t, rep.AlternatesWith)
		assert.Equal(t, ",", rep.AlternatesWith.Consequent().Instructions()[0].(*TextInst).Text)
		assert.Equal(t, TypeEnd, rep.Alternative().Type())
	})

	t.Run("alternates with and or", func(t *testing.T) {
		root := compileStrict(t, "{.repeated section a}x{.alternates with},{.or}none{.end}")
		rep := root.Consequent().Instructions()[0].(*RepeatedInst)
		require.NotNil(t, rep.AlternatesWith)
		assert.Equal(t, TypeEnd, rep.AlternatesWith.Alternative().Type())

		orElse := rep.Alternative().(*PredicateInst)
		assert.True(t, orElse.IsElse())
		assert.Equal(t, "none", orElse.Consequent().Instructions()[0].(*TextInst).Text)
	})

	t.Run("or without alternates", func(t *testing.T) {
		root := compileStrict(t, "{.repeated section a}x{.or}none{.end}")
		rep := root.Consequent().Instructions()[0].(*RepeatedInst)
		assert.Nil(t, rep.AlternatesWith)
		assert.Equal(t, TypeOrPredicate, rep.Alternative().Type())
	})
}

func TestCodeMachineNesting(t *testing.T) {
	root := compileStrict(t, "{.section a}{.if b && c}{.macro m}{d}{.end}{.end}{.end}")
	section := root.Consequent().Instructions()[0].(*SectionInst)
	ifInst := section.Consequent().Instructions()[0].(*IfInst)
	assert.Equal(t, []BoolOp{LogicalAnd}, ifInst.Operators)
	macro := ifInst.Consequent().Instructions()[0].(*MacroInst)
	assert.Equal(t, "m", macro.Name)
	assert.Equal(t, TypeVariable, macro.Consequent().Instructions()[0].Type())
	assert.Equal(t, TypeEnd, macro.Alternative().Type())
}

func TestCodeMachineErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		code     SyntaxErrorType
	}{
		{"end at root", "a{.end}", MismatchedEnd},
		{"or at root", "{.or}", NotAllowedAtRoot},
		{"alternates at root", "{.alternates with}", NotAllowedAtRoot},
		{"unclosed section", "{.section a}x", EOFInBlock},
		{"alternates in section", "{.section a}{.alternates with}{.end}", NotAllowedInBlock},
		{"or in macro", "{.macro m}{.or}{.end}", NotAllowedInBlock},
		{"alternates twice", "{.repeated section a}{.alternates with}{.alternates with}{.end}", NotAllowedInBlock},
		{"or after else", "{.truthy?}a{.or}b{.or}c{.end}", DeadCodeBlock},
	}

	compiler := newTestCompiler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := compiler.Compile(tt.template, CompileOptions{Mode: ModeCollect})
			require.NoError(t, err)
			require.Len(t, tmpl.Errors, 1)
			assert.Equal(t, tt.code, tmpl.Errors[0].Type)

			_, err = compiler.Compile(tt.template, CompileOptions{Mode: ModeStrict})
			require.Error(t, err)
			assert.True(t, IsSyntaxError(err))
			assert.Equal(t, tt.code, ErrorInfoOf(err).Type)
		})
	}
}

func TestCodeMachineEOFInBlockMessage(t *testing.T) {
	_, err := newTestCompiler(t).Compile("\n  {.section a}", CompileOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Reached EOF in the middle of {.section a} started at line 2 char 3")
}

func TestCodeMachineCollectKeepsGoing(t *testing.T) {
	tmpl, err := newTestCompiler(t).Compile("{.end}{a}{.or}{b}", CompileOptions{Mode: ModeCollect})
	require.NoError(t, err)
	assert.Equal(t, []string{"MISMATCHED_END", "NOT_ALLOWED_AT_ROOT"}, errorCodes(tmpl.Errors))
	assert.Equal(t, 2, tmpl.Code.Consequent().Len())
	assert.Equal(t, 5, tmpl.InstructionCount)
}

func TestCodeMachineComplete(t *testing.T) {
	m := NewCodeMachine(ModeStrict)
	require.NoError(t, m.Accept(newSection(nil)))
	assert.Panics(t, m.Complete)

	m = NewCodeMachine(ModeStrict)
	assert.Panics(t, m.Complete, "EOF never processed")

	m = NewCodeMachine(ModeStrict)
	require.NoError(t, m.Accept(&TextInst{Text: "a"}, &EOFInst{}))
	assert.NotPanics(t, m.Complete)
	assert.Panics(t, func() { _ = m.Accept(&TextInst{}) }, "input after EOF")

	m = NewCodeMachine(ModeCollect)
	require.NoError(t, m.Accept(newSection(nil)))
	assert.NotPanics(t, m.Complete)
}
