package expr

// OperatorType identifies an operator.
type OperatorType int

const (
	OpPlus OperatorType = iota
	OpMinus
	OpLogicalNot
	OpBitwiseNot
	OpPow
	OpMul
	OpDiv
	OpMod
	OpAdd
	OpSub
	OpShiftLeft
	OpShiftRight
	OpLess
	OpGreater
	OpEqual
	OpNotEqual
	OpStrictEqual
	OpStrictNotEqual
	OpLessEqual
	OpGreaterEqual
	OpBitwiseAnd
	OpBitwiseXor
	OpBitwiseOr
	OpLogicalAnd
	OpLogicalOr
	OpAssign
	OpSemicolon
	OpComma
	OpLeftParen
	OpRightParen
)

// Assoc is operator associativity.
type Assoc int

const (
	AssocLeft Assoc = iota
	AssocRight
)

// Operator carries the precedence, associativity and description of an
// operator kind.
type Operator struct {
	Type  OperatorType
	Prec  int
	Assoc Assoc
	Desc  string
}

func op(t OperatorType, prec int, assoc Assoc, desc string) *Operator {
	return &Operator{Type: t, Prec: prec, Assoc: assoc, Desc: desc}
}

// The static operator table.
var (
	Plus       = op(OpPlus, 17, AssocRight, "unary plus")
	Minus      = op(OpMinus, 17, AssocRight, "unary minus")
	LogicalNot = op(OpLogicalNot, 17, AssocRight, "logical not")
	BitwiseNot = op(OpBitwiseNot, 17, AssocRight, "bitwise not")

	Pow = op(OpPow, 16, AssocRight, "exponent")
	Mul = op(OpMul, 15, AssocLeft, "multiply")
	Div = op(OpDiv, 15, AssocLeft, "divide")
	Mod = op(OpMod, 15, AssocLeft, "modulus")
	Add = op(OpAdd, 14, AssocLeft, "add")
	Sub = op(OpSub, 14, AssocLeft, "subtract")

	ShiftLeft  = op(OpShiftLeft, 13, AssocLeft, "left shift")
	ShiftRight = op(OpShiftRight, 13, AssocLeft, "right shift")

	Less         = op(OpLess, 12, AssocLeft, "less than")
	Greater      = op(OpGreater, 12, AssocLeft, "greater than")
	LessEqual    = op(OpLessEqual, 12, AssocLeft, "less than or equal")
	GreaterEqual = op(OpGreaterEqual, 12, AssocLeft, "greater than or equal")

	Equal          = op(OpEqual, 11, AssocLeft, "equality")
	NotEqual       = op(OpNotEqual, 11, AssocLeft, "inequality")
	StrictEqual    = op(OpStrictEqual, 11, AssocLeft, "strict equality")
	StrictNotEqual = op(OpStrictNotEqual, 11, AssocLeft, "strict inequality")

	BitwiseAnd = op(OpBitwiseAnd, 10, AssocLeft, "bitwise and")
	BitwiseXor = op(OpBitwiseXor, 9, AssocLeft, "bitwise xor")
	BitwiseOr  = op(OpBitwiseOr, 8, AssocLeft, "bitwise or")

	LogicalAnd = op(OpLogicalAnd, 7, AssocLeft, "logical and")
	LogicalOr  = op(OpLogicalOr, 6, AssocLeft, "logical or")

	Assign = op(OpAssign, 3, AssocRight, "assign")

	// Structural operators, eliminated during assembly.
	Semicolon  = op(OpSemicolon, 1, AssocLeft, "semicolon")
	Comma      = op(OpComma, 1, AssocRight, "comma")
	LeftParen  = op(OpLeftParen, 1, AssocLeft, "left parenthesis")
	RightParen = op(OpRightParen, 1, AssocLeft, "right parenthesis")
)
