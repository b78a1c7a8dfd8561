package expr

import (
	"math"
	"strings"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// Kind tags the variant held by a Token.
type Kind int

const (
	KindBoolean Kind = iota
	KindNull
	KindNumber
	KindString
	KindVariable
	KindOperator
	KindCall
	KindArgs
)

// Token is one lexical element of an expression. Only the fields relevant
// to Kind are set: Bool, Num, Str (string literal or function name), Path
// (variable reference) or Op.
type Token struct {
	Kind Kind
	Bool bool
	Num  float64
	Str  string
	Path node.Path
	Op   *Operator
}

var (
	trueToken  = &Token{Kind: KindBoolean, Bool: true}
	falseToken = &Token{Kind: KindBoolean}
	nullToken  = &Token{Kind: KindNull}

	// ArgsToken marks the start of a function call's argument list.
	ArgsToken = &Token{Kind: KindArgs}
)

var constants = map[string]*Token{
	"null":     nullToken,
	"true":     trueToken,
	"false":    falseToken,
	"PI":       Num(math.Pi),
	"E":        Num(math.E),
	"Infinity": Num(math.Inf(1)),
	"NaN":      Num(math.NaN()),
}

// Num returns a number token.
func Num(v float64) *Token { return &Token{Kind: KindNumber, Num: v} }

// Str returns a string token.
func Str(v string) *Token { return &Token{Kind: KindString, Str: v} }

// Bool returns a boolean token.
func Bool(v bool) *Token {
	if v {
		return trueToken
	}
	return falseToken
}

// Null returns the null token.
func Null() *Token { return nullToken }

// Var returns a variable reference token for a dotted name.
func Var(name string) *Token { return &Token{Kind: KindVariable, Path: node.ParsePath(name)} }

// Call returns a function call token.
func Call(name string) *Token { return &Token{Kind: KindCall, Str: name} }

// OpToken wraps an operator in a token.
func OpToken(o *Operator) *Token { return &Token{Kind: KindOperator, Op: o} }

func (t *Token) isOp(typ OperatorType) bool {
	return t != nil && t.Kind == KindOperator && t.Op.Type == typ
}

// String returns the debug form of a token.
func (t *Token) String() string {
	if t == nil {
		return "undefined"
	}
	switch t.Kind {
	case KindBoolean:
		if t.Bool {
			return "true"
		}
		return "false"
	case KindNull:
		return "null"
	case KindNumber:
		return node.FormatNumber(t.Num)
	case KindString:
		return node.Quote(t.Str)
	case KindOperator:
		return "<" + t.Op.Desc + ">"
	case KindVariable:
		return t.Path.String()
	case KindCall:
		return t.Str + "()"
	case KindArgs:
		return "<args>"
	}
	return "<unk>"
}

// DebugExpressions formats assembled expressions as "[[tok tok], [tok]]".
func DebugExpressions(exprs [][]*Token) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('[')
		for j, t := range e {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t.String())
		}
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}
