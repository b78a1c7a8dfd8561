// Package expr implements the small JavaScript-like expression language used
// by the .eval instruction. Source text is tokenized, assembled into reverse
// polish notation with the shunting yard algorithm, then reduced against a
// Scope.
package expr

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// Options bound the work an expression may do. Zero disables a limit.
type Options struct {
	MaxTokens    int `yaml:"max_tokens" toml:"max_tokens"`
	MaxStringLen int `yaml:"max_string_len" toml:"max_string_len"`
}

// Scope supplies variable values during reduction and receives assignments
// to "@" variables.
type Scope interface {
	Resolve(path node.Path) any
	SetVar(name string, value any)
}

// Expr is a tokenized and, after Build, assembled expression.
type Expr struct {
	raw    string
	tokens []*Token
	exprs  [][]*Token
	errors []string
	opts   Options
}

// Identifiers inside expressions stop at '-' so that "a-1" subtracts.
var variablePattern = regexp.MustCompile(
	`^(@*([a-zA-Z_$][a-zA-Z0-9_$]*|\d+)|@)(\.([a-zA-Z_$][a-zA-Z0-9_$]*|\d+))*`)

// New tokenizes raw. Tokenization errors are available from Errors.
func New(raw string, opts Options) *Expr {
	e := &Expr{raw: raw, opts: opts}
	e.tokenize(raw)
	return e
}

// Parse tokenizes and assembles raw.
func Parse(raw string, opts Options) *Expr {
	e := New(raw, opts)
	e.Build()
	return e
}

func (e *Expr) String() string {
	return "Expression[" + node.Quote(e.raw) + "]"
}

// Errors returns the tokenization and assembly errors.
func (e *Expr) Errors() []string { return e.errors }

// Tokens returns the token stream produced by tokenization.
func (e *Expr) Tokens() []*Token { return e.tokens }

// Expressions returns the assembled RPN expressions.
func (e *Expr) Expressions() [][]*Token { return e.exprs }

// Debug formats the assembled expressions.
func (e *Expr) Debug() string { return DebugExpressions(e.exprs) }

func (e *Expr) fail(format string, args ...any) {
	e.errors = append(e.errors, fmt.Sprintf(format, args...))
}

func (e *Expr) top() *Token {
	if len(e.tokens) == 0 {
		return nil
	}
	return e.tokens[len(e.tokens)-1]
}

// push appends a token, rewriting binary plus and minus into their unary
// forms and a single-segment variable followed by '(' into a call. Tokens are
// ignored once an error has been recorded.
func (e *Expr) push(t *Token) {
	if len(e.errors) > 0 {
		return
	}
	if t.Kind == KindOperator {
		switch t.Op.Type {
		case OpAdd, OpSub:
			top := e.top()
			if top == nil || (top.Kind == KindOperator && top.Op.Type != OpRightParen) {
				if t.Op.Type == OpSub {
					t = OpToken(Minus)
				} else {
					t = OpToken(Plus)
				}
			}
		case OpLeftParen:
			top := e.top()
			if top != nil && top.Kind == KindVariable && len(top.Path) == 1 {
				name, _ := top.Path[0].(string)
				if !IsFunction(name) {
					e.fail("Invalid function: %v", top.Path[0])
					return
				}
				e.tokens[len(e.tokens)-1] = Call(name)
			}
		}
	}
	e.tokens = append(e.tokens, t)
	if e.opts.MaxTokens > 0 && len(e.tokens) > e.opts.MaxTokens {
		e.fail("Expression exceeds the maximum number of allowed tokens: %d", e.opts.MaxTokens)
	}
}

func (e *Expr) pushOp(o *Operator) { e.push(OpToken(o)) }

func (e *Expr) tokenize(s string) {
	i := 0
	for i < len(s) {
		c0 := s[i]
		c1 := byteAt(s, i+1)

		switch {
		case isDigit(c0):
			if c0 == '0' && (c1 == 'x' || c1 == 'X') {
				i = e.hex(s, i+2)
			} else {
				i = e.decimal(s, i)
			}
			if i < 0 {
				return
			}
			continue

		case c0 == '"' || c0 == '\'':
			i = e.str(s, i+1, c0)
			if i < 0 {
				return
			}
			continue
		}

		switch c0 {
		case '*':
			if c1 == '*' {
				i++
				e.pushOp(Pow)
			} else {
				e.pushOp(Mul)
			}
		case '/':
			e.pushOp(Div)
		case '%':
			e.pushOp(Mod)
		case '+':
			e.pushOp(Add)
		case '-':
			e.pushOp(Sub)
		case '=':
			if c1 == '=' {
				i++
				if byteAt(s, i+1) == '=' {
					i++
					e.pushOp(StrictEqual)
				} else {
					e.pushOp(Equal)
				}
			} else {
				e.pushOp(Assign)
			}
		case '!':
			if c1 == '=' {
				i++
				if byteAt(s, i+1) == '=' {
					i++
					e.pushOp(StrictNotEqual)
				} else {
					e.pushOp(NotEqual)
				}
			} else {
				e.pushOp(LogicalNot)
			}
		case '<':
			switch c1 {
			case '<':
				i++
				e.pushOp(ShiftLeft)
			case '=':
				i++
				e.pushOp(LessEqual)
			default:
				e.pushOp(Less)
			}
		case '>':
			switch c1 {
			case '>':
				i++
				e.pushOp(ShiftRight)
			case '=':
				i++
				e.pushOp(GreaterEqual)
			default:
				e.pushOp(Greater)
			}
		case '~':
			e.pushOp(BitwiseNot)
		case '&':
			if c1 == '&' {
				i++
				e.pushOp(LogicalAnd)
			} else {
				e.pushOp(BitwiseAnd)
			}
		case '|':
			if c1 == '|' {
				i++
				e.pushOp(LogicalOr)
			} else {
				e.pushOp(BitwiseOr)
			}
		case '^':
			e.pushOp(BitwiseXor)
		case ' ', '\n', '\t', '\r':
		case ',':
			e.pushOp(Comma)
		case ';':
			e.pushOp(Semicolon)
		case '(':
			e.pushOp(LeftParen)
		case ')':
			e.pushOp(RightParen)
		default:
			if m := variablePattern.FindString(s[i:]); m != "" {
				i += len(m)
				path := node.ParsePath(m)
				if len(path) == 1 {
					if name, ok := path[0].(string); ok {
						if c, found := constants[name]; found {
							e.push(c)
							continue
						}
					}
				}
				e.push(&Token{Kind: KindVariable, Path: path})
				continue
			}
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == '\u00a0' {
				i += size
				continue
			}
			e.fail("Unexpected %s at %d: %s", charName(r), i, escapeRune(r))
			return
		}
		i++
	}
}

func byteAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func (e *Expr) decimal(s string, i int) int {
	j := scanDecimal(s, i)
	switch j {
	case errExponentDigit:
		e.fail("Expected a digit after exponent in decimal number")
	case errDuplicateDot:
		e.fail("Duplicate decimal point in number")
	case errDotInExponent:
		e.fail("Unexpected decimal point in exponent")
	}
	if j < 0 {
		return -1
	}
	e.push(Num(parseDecimal(s[i:j])))
	return j
}

func (e *Expr) hex(s string, i int) int {
	v, j := scanHex(s, i)
	if j == i {
		e.fail("Expected digits after start of hex number")
		return -1
	}
	e.push(Num(v))
	return j
}

const (
	errInvalidHex     = "Invalid 2-char hex escape found"
	errInvalidUnicode = "Invalid unicode escape found"
)

// str decodes a string literal starting just past its opening delimiter and
// returns the index after the closing delimiter, or -1 on error.
func (e *Expr) str(s string, i int, end byte) int {
	var b strings.Builder
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			esc := s[i+1]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'f':
				b.WriteByte('\f')
			case 'r':
				b.WriteByte('\r')
			case 'x':
				i += 2
				lim := i + 2
				if lim >= len(s) {
					e.fail(errInvalidHex)
					return -1
				}
				code, k := scanHex(s[:lim], i)
				if k != lim {
					e.fail(errInvalidHex)
					return -1
				}
				writeCode(&b, int64(code))
				i = k
				continue
			case 'u', 'U':
				i += 2
				n := 4
				if esc == 'U' {
					n = 8
				}
				lim := i + n
				code, k := scanHex(s[:min(lim, len(s))], i)
				if k != lim {
					e.fail(errInvalidUnicode)
					return -1
				}
				r := rune(code)
				if utf16.IsSurrogate(r) {
					r, k = joinSurrogates(s, r, k)
				}
				writeCode(&b, int64(r))
				i = k
				continue
			default:
				r, size := utf8.DecodeRuneInString(s[i+1:])
				b.WriteRune(r)
				i += 1 + size
				continue
			}
			i += 2
			continue
		}
		if c == end {
			e.push(Str(b.String()))
			return i + 1
		}
		if c == '\n' || c == '\r' {
			e.fail("Illegal bare %s character in string literal", charName(rune(c)))
			return -1
		}
		b.WriteByte(c)
		i++
	}
	e.fail("Unterminated string")
	return -1
}

// writeCode appends an escaped code point, replacing control characters
// other than whitespace and invalid code points with a space.
func writeCode(b *strings.Builder, code int64) {
	if code <= 0x08 || (code >= 0x0e && code < 0x20) || code > 0x10ffff {
		b.WriteByte(' ')
		return
	}
	b.WriteRune(rune(code))
}

// joinSurrogates combines a high surrogate with a directly following \u
// escaped low surrogate. A lone surrogate decodes to U+FFFD.
func joinSurrogates(s string, hi rune, i int) (rune, int) {
	if hi >= 0xdc00 || i+6 > len(s) || s[i] != '\\' || s[i+1] != 'u' {
		return utf8.RuneError, i
	}
	lo, k := scanHex(s[:i+6], i+2)
	if k != i+6 {
		return utf8.RuneError, i
	}
	r := utf16.DecodeRune(hi, rune(lo))
	if r == utf8.RuneError {
		return r, i
	}
	return r, k
}

func charName(r rune) string {
	switch r {
	case '\b':
		return "backspace"
	case '\f':
		return "form feed"
	case '\n':
		return "line feed"
	case '\r':
		return "carriage return"
	case '\t':
		return "tab"
	}
	if r <= 0x1f {
		return "control character"
	}
	return "character"
}

func escapeRune(r rune) string {
	switch r {
	case '\b':
		return `\b`
	case '\f':
		return `\f`
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '"':
		return `\"`
	case '\\':
		return `\\`
	}
	if r < 0x20 || r > 0x7e {
		if r > 0xffff {
			return fmt.Sprintf(`\U%08X`, r)
		}
		return fmt.Sprintf(`\u%04X`, r)
	}
	return string(r)
}

// Build assembles the token stream into RPN expressions. Nothing is built
// when tokenization failed.
func (e *Expr) Build() {
	if len(e.errors) > 0 {
		return
	}
	var out []*Token
	var ops []*Token
	opsTop := func() *Token {
		if len(ops) == 0 {
			return nil
		}
		return ops[len(ops)-1]
	}
	popOp := func() *Token {
		t := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		return t
	}
	// unwinds operators down to the nearest left parenthesis
	unwind := func() {
		for t := opsTop(); t != nil && t.Kind == KindOperator && t.Op.Type != OpLeftParen; t = opsTop() {
			out = append(out, popOp())
		}
	}

	for _, t := range e.tokens {
		switch t.Kind {
		case KindOperator:
			switch t.Op.Type {
			case OpSemicolon:
				if !e.pushExpr(out, &ops) {
					return
				}
				out = nil
			case OpLeftParen:
				ops = append(ops, t)
			case OpComma:
				unwind()
			case OpRightParen:
				unwind()
				if !opsTop().isOp(OpLeftParen) {
					e.fail("Mismatched operator found: %s", t.Op.Desc)
					return
				}
				popOp()
				if top := opsTop(); top != nil && top.Kind == KindCall {
					out = append(out, popOp())
				}
			default:
				for top := opsTop(); top != nil && top.Kind == KindOperator && top.Op.Type != OpLeftParen &&
					(top.Op.Prec > t.Op.Prec || (top.Op.Prec == t.Op.Prec && top.Op.Assoc == AssocLeft)); top = opsTop() {
					out = append(out, popOp())
				}
				ops = append(ops, t)
			}
		case KindCall:
			out = append(out, ArgsToken)
			ops = append(ops, t)
		default:
			out = append(out, t)
		}
	}
	e.pushExpr(out, &ops)
}

func (e *Expr) pushExpr(queue []*Token, ops *[]*Token) bool {
	for len(*ops) > 0 {
		t := (*ops)[len(*ops)-1]
		*ops = (*ops)[:len(*ops)-1]
		if t.isOp(OpLeftParen) || t.isOp(OpRightParen) {
			e.fail("Mismatched operator found: %s", t.Op.Desc)
			return false
		}
		queue = append(queue, t)
	}
	if len(queue) > 0 {
		e.exprs = append(e.exprs, queue)
	}
	return true
}
