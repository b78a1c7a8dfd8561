package expr

import "math"

// Function is a built-in callable. Arguments arrive as literal tokens; a nil
// result signals a call error.
type Function func(args []*Token) *Token

var functions = map[string]Function{
	"max":  maxFunc,
	"min":  minFunc,
	"abs":  absFunc,
	"num":  numFunc,
	"str":  strFunc,
	"bool": boolFunc,
}

// IsFunction reports whether name is a built-in function.
func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}

func allNum(args []*Token) []*Token {
	out := make([]*Token, len(args))
	for i, a := range args {
		if a.Kind == KindNumber {
			out[i] = a
		} else {
			out[i] = Num(asNum(a))
		}
	}
	return out
}

func maxFunc(args []*Token) *Token {
	return selectNum(args, func(a, b float64) bool { return a > b })
}

func minFunc(args []*Token) *Token {
	return selectNum(args, func(a, b float64) bool { return a < b })
}

// selectNum walks the arguments pairwise, keeping the current pick only
// while it beats the next argument. NaN never wins a comparison.
func selectNum(args []*Token, keep func(a, b float64) bool) *Token {
	nums := allNum(args)
	if len(nums) == 0 {
		return nil
	}
	res := nums[0]
	for _, b := range nums[1:] {
		if !keep(res.Num, b.Num) {
			res = b
		}
	}
	return res
}

func absFunc(args []*Token) *Token {
	if len(args) == 0 {
		return nil
	}
	return Num(math.Abs(allNum(args[:1])[0].Num))
}

func numFunc(args []*Token) *Token {
	if len(args) == 0 {
		return nil
	}
	return Num(asNum(args[0]))
}

func strFunc(args []*Token) *Token {
	if len(args) == 0 {
		return nil
	}
	return Str(asStr(args[0]))
}

func boolFunc(args []*Token) *Token {
	if len(args) == 0 {
		return nil
	}
	return Bool(asBool(args[0]))
}
