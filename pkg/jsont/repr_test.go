package jsont

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReprCanonical(t *testing.T) {
	templates := []string{
		"plain text",
		"{a.b.0|upper|suffix:x}",
		"{a,b|join -}",
		"{.section a}x{.or}y{.end}",
		"{.repeated section items}{name}{.alternates with}, {.or}none{.end}",
		"{.if a && b || c}x{.end}",
		"{.if equals? x}x{.end}",
		"{.truthy?}a{.or equals? b}b{.or}c{.end}",
		"{.var @x a|upper}",
		"{.ctx @c k=a.b j=c}",
		"{.inject @i ./file.json}",
		"{.macro m}{a}{.end}",
		"{# comment}{## multi\nline ##}",
		"{.meta-left}{.meta-right}{.space}{.tab}{.newline}",
		"{.eval #1 + 2}",
		"{.include p output}",
	}

	for _, source := range templates {
		t.Run(source, func(t *testing.T) {
			root := compileStrict(t, source)
			assert.Equal(t, source, Repr(root))
		})
	}
}

func TestReprRoundTrip(t *testing.T) {
	templates := []string{
		"{.repeated section @}{@}{.alternates with}-{.end}",
		"{.section a}{.section b}{c}{.end}{.or}{d}{.end}",
		"{a|suffix:1:2}{.if a||b}x{.or}y{.end}",
	}

	for _, source := range templates {
		t.Run(source, func(t *testing.T) {
			root := compileStrict(t, source)
			again := compileStrict(t, Repr(root))
			assert.True(t, InstructionsEqual(root, again), "repr %q compiles to a different tree", Repr(root))
		})
	}
}

func TestReprShallow(t *testing.T) {
	root := compileStrict(t, "{.section a}{b}{.end}")
	section := root.Consequent().Instructions()[0]
	assert.Equal(t, "{.section a}", ReprShallow(section))
	assert.Equal(t, "{.section a}{b}{.end}", Repr(section))
}

func TestInstructionsEqual(t *testing.T) {
	a := compileStrict(t, "{.section a}{b|upper}{.end}")
	b := compileStrict(t, "{.section a}{b|upper}{.end}")
	c := compileStrict(t, "{.section a}{b}{.end}")

	assert.True(t, InstructionsEqual(a, b))
	assert.False(t, InstructionsEqual(a, c))
	assert.True(t, InstructionsEqual(nil, nil))
	assert.False(t, InstructionsEqual(a, nil))
}

func TestAST(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"a{b}", `[17,1,[[0,"a"],[1,[["b"]],0]],18]`},
		{"{.section a.0}x{.end}", `[17,1,[[2,["a",0],[[0,"x"]],3]],18]`},
		{"{.repeated section a}x{.alternates with},{.end}", `[17,1,[[4,["a"],[[0,"x"]],3,[[0,","]]]],18]`},
		{"{.if a || b}{.end}", `[17,1,[[8,[0],[["a"],["b"]],0,3]],18]`},
		{"{.truthy?}{.or}y{.end}", `[17,1,[[5,"truthy?",0,0,[7,0,0,[[0,"y"]],3]]],18]`},
		{"{.var @x a|suffix:z}", `[17,1,[[6,"@x",[["a"]],[["suffix",[["z"],":"]]]]],18]`},
		{"{.macro m}{.end}", `[17,1,[[10,"m",0]],18]`},
		{"{#c}", `[17,1,[[11,"c",0]],18]`},
		{"{.space}", `[17,1,[15],18]`},
		{"{.eval 1}", `[17,1,[-1],18]`},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			assert.Equal(t, tt.want, ASTJSON(compileStrict(t, tt.template)))
		})
	}
}

func TestOpcodes(t *testing.T) {
	tests := []struct {
		typ  InstructionType
		want int64
	}{
		{TypeText, 0},
		{TypeVariable, 1},
		{TypeSection, 2},
		{TypeEnd, 3},
		{TypeRepeated, 4},
		{TypePredicate, 5},
		{TypeBindVar, 6},
		{TypeOrPredicate, 7},
		{TypeIf, 8},
		{TypeInject, 9},
		{TypeMacro, 10},
		{TypeComment, 11},
		{TypeMetaLeft, 12},
		{TypeMetaRight, 13},
		{TypeNewline, 14},
		{TypeSpace, 15},
		{TypeTab, 16},
		{TypeRoot, 17},
		{TypeEOF, 18},
		{TypeAlternatesWith, 19},
		{TypeCtxVar, 22},
		{TypeEval, -1},
		{TypeInclude, -1},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Opcode(tt.typ))
		})
	}
}

func TestTree(t *testing.T) {
	root := compileStrict(t, "{.section a}\n{b|suffix:x}{.end}")
	want := "" +
		"SECTION {1,1} a\n" +
		"  TEXT {1,13} (len=1) \"\\n\"\n" +
		"  VARIABLE {2,1} b\n" +
		"    | suffix delim=':' parsed=[x]\n" +
		"END {2,13}\n"
	require.Equal(t, want, Tree(root))
}
