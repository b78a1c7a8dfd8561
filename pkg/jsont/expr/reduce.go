package expr

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// ReduceError reports a failure while evaluating an assembled expression.
type ReduceError struct {
	Message string
}

func (e *ReduceError) Error() string { return e.Message }

func reduceErrorf(format string, args ...any) error {
	return &ReduceError{Message: fmt.Sprintf(format, args...)}
}

// IsReduceError reports whether err is a ReduceError.
func IsReduceError(err error) bool {
	var re *ReduceError
	return errors.As(err, &re)
}

// stack holds operands during reduction. Popping an empty stack yields nil.
type stack []*Token

func (s *stack) push(t *Token) { *s = append(*s, t) }

func (s *stack) pop() *Token {
	if len(*s) == 0 {
		return nil
	}
	t := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return t
}

func (s stack) top() *Token {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// replace swaps the top of the stack for t. A nil t leaves the stack alone.
func (s stack) replace(t *Token) {
	if t != nil && len(s) > 0 {
		s[len(s)-1] = t
	}
}

// Reduce evaluates each assembled expression in order and returns the value
// of the last one: a bool, float64, string or nil. An expression that leaves
// no value, such as an assignment, yields node.Missing. Reduction stops at
// the first error.
func (e *Expr) Reduce(s Scope) (any, error) {
	var result any = node.Missing
	for _, ex := range e.exprs {
		v, err := e.reduceExpr(s, ex)
		if err != nil {
			return node.Missing, err
		}
		result = v
	}
	return result, nil
}

func (e *Expr) reduceExpr(s Scope, ex []*Token) (any, error) {
	var st stack

loop:
	for _, t := range ex {
		switch t.Kind {
		case KindBoolean, KindString, KindNumber, KindNull, KindVariable, KindArgs:
			st.push(t)

		case KindCall:
			var args []*Token
			for top := st.top(); top != nil && top.Kind != KindArgs; top = st.top() {
				if arg := literal(s, st.pop()); arg != nil {
					args = append(args, arg)
				}
			}
			st.pop()
			for i, j := 0, len(args)-1; i < j; i, j = i+1, j-1 {
				args[i], args[j] = args[j], args[i]
			}
			r := functions[t.Str](args)
			if r == nil {
				return node.Missing, reduceErrorf("Error calling function %s", t.Str)
			}
			st.push(r)

		case KindOperator:
			o := t.Op
			switch o.Type {
			case OpMinus:
				if arg := literal(s, st.top()); arg != nil {
					st.replace(Num(-asNum(arg)))
				}
				continue
			case OpPlus:
				if arg := literal(s, st.top()); arg != nil {
					st.replace(Num(asNum(arg)))
				}
				continue
			case OpLogicalNot:
				if arg := literal(s, st.top()); arg != nil {
					st.replace(Bool(!asBool(arg)))
				}
				continue
			case OpBitwiseNot:
				if arg := literal(s, st.top()); arg != nil {
					st.replace(Num(float64(^asInt(arg))))
				}
				continue
			case OpAssign:
				b := literal(s, st.pop())
				a := st.pop()
				if a != nil && a.Kind == KindVariable && b != nil && len(a.Path) == 1 {
					if name, ok := a.Path[0].(string); ok && strings.HasPrefix(name, "@") {
						s.SetVar(name, toNode(b))
					}
				}
				// an assignment completes the expression
				break loop
			}

			b := literal(s, st.pop())
			a := literal(s, st.pop())
			if a == nil || b == nil {
				return node.Missing, reduceErrorf("Invalid arguments to operator %s", o.Desc)
			}
			r, err := e.binary(o, a, b)
			if err != nil {
				return node.Missing, err
			}
			st.push(r)
		}
	}

	r := st.top()
	if r == nil {
		return node.Missing, nil
	}
	v := literal(s, r)
	if v == nil {
		return node.Missing, reduceErrorf("Reduce error: unexpected token on stack")
	}
	if v.Kind == KindNull {
		return nil, nil
	}
	return toNode(v), nil
}

func (e *Expr) binary(o *Operator, a, b *Token) (*Token, error) {
	switch o.Type {
	case OpMul:
		return Num(asNum(a) * asNum(b)), nil
	case OpDiv:
		d := asNum(b)
		if d == 0 {
			return Num(math.NaN()), nil
		}
		return Num(asNum(a) / d), nil
	case OpMod:
		d := asNum(b)
		if d == 0 {
			return Num(math.NaN()), nil
		}
		return Num(math.Mod(asNum(a), d)), nil
	case OpAdd:
		if a.Kind == KindString || b.Kind == KindString {
			sa, sb := asStr(a), asStr(b)
			// Counted in code points; astral characters count once, not twice.
			if e.opts.MaxStringLen > 0 && utf8.RuneCountInString(sa)+utf8.RuneCountInString(sb) > e.opts.MaxStringLen {
				return nil, reduceErrorf("Concatenation would exceed maximum string length %d", e.opts.MaxStringLen)
			}
			return Str(sa + sb), nil
		}
		return Num(asNum(a) + asNum(b)), nil
	case OpSub:
		return Num(asNum(a) - asNum(b)), nil
	case OpPow:
		return Num(math.Pow(asNum(a), asNum(b))), nil
	case OpShiftLeft:
		return Num(float64(asInt(a) << (uint32(asInt(b)) & 31))), nil
	case OpShiftRight:
		return Num(float64(asInt(a) >> (uint32(asInt(b)) & 31))), nil
	case OpLess:
		return Bool(compare(a, b) == -1), nil
	case OpLessEqual:
		r := compare(a, b)
		return Bool(r == -1 || r == 0), nil
	case OpGreater:
		return Bool(compare(a, b) == 1), nil
	case OpGreaterEqual:
		return Bool(compare(a, b) >= 0), nil
	case OpEqual:
		return Bool(compare(a, b) == 0), nil
	case OpNotEqual:
		return Bool(compare(a, b) != 0), nil
	case OpStrictEqual:
		return Bool(a.Kind == b.Kind && compare(a, b) == 0), nil
	case OpStrictNotEqual:
		return Bool(a.Kind != b.Kind || compare(a, b) != 0), nil
	case OpBitwiseAnd:
		return Num(float64(asInt(a) & asInt(b))), nil
	case OpBitwiseXor:
		return Num(float64(asInt(a) ^ asInt(b))), nil
	case OpBitwiseOr:
		return Num(float64(asInt(a) | asInt(b))), nil
	case OpLogicalAnd:
		return Bool(asBool(a) && asBool(b)), nil
	case OpLogicalOr:
		return Bool(asBool(a) || asBool(b)), nil
	}
	return nil, reduceErrorf("Unexpected operator found during evaluation: %s", o.Desc)
}

// compare orders two literals. Strings compare by UTF-8 bytes, which only
// differs from UTF-16 unit order for characters above U+FFFF; everything
// else compares numerically. Comparisons involving NaN return -2,
// which satisfies no relational operator.
func compare(a, b *Token) int {
	if a.Kind == KindString && b.Kind == KindString {
		return strings.Compare(a.Str, b.Str)
	}
	na, nb := asNum(a), asNum(b)
	switch {
	case math.IsNaN(na) || math.IsNaN(nb):
		return -2
	case na < nb:
		return -1
	case na == nb:
		return 0
	}
	return 1
}
