package jsont

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// Arguments is the parsed argument list of a formatter or predicate. The
// first character of the raw text is the delimiter; the remainder is split
// on it with empty pieces dropped.
type Arguments struct {
	Delimiter rune
	Args      []string

	// Opaque holds a plugin's pre-parsed form of the arguments, set during
	// Validate and read back during Apply.
	Opaque any
}

// ParseArguments parses raw argument text such as ":10:..." or " a b".
func ParseArguments(raw string) *Arguments {
	a := &Arguments{Delimiter: ' '}
	if raw == "" {
		return a
	}
	d, size := utf8.DecodeRuneInString(raw)
	a.Delimiter = d
	a.Args = strings.FieldsFunc(raw[size:], func(r rune) bool { return r == d })
	return a
}

// emptyArguments returns a fresh empty argument list.
func emptyArguments() *Arguments {
	return &Arguments{Delimiter: ' '}
}

// First returns the first argument or "".
func (a *Arguments) First() string {
	return a.Get(0)
}

// Get returns argument i or "" when out of range.
func (a *Arguments) Get(i int) string {
	if a == nil || i < 0 || i >= len(a.Args) {
		return ""
	}
	return a.Args[i]
}

// Count returns the number of arguments.
func (a *Arguments) Count() int {
	if a == nil {
		return 0
	}
	return len(a.Args)
}

// IsEmpty reports whether there are no arguments.
func (a *Arguments) IsEmpty() bool {
	return a.Count() == 0
}

// Join renders the arguments separated by the delimiter, without a leading
// delimiter.
func (a *Arguments) Join() string {
	var b strings.Builder
	emitArguments(&b, a, false)
	return b.String()
}

// String renders the arguments with a leading delimiter, as written in the
// template.
func (a *Arguments) String() string {
	var b strings.Builder
	emitArguments(&b, a, true)
	return b.String()
}

// Equal compares delimiter and argument values.
func (a *Arguments) Equal(o *Arguments) bool {
	if a.IsEmpty() && o.IsEmpty() {
		return true
	}
	if a == nil || o == nil {
		return false
	}
	return a.Delimiter == o.Delimiter && slices.Equal(a.Args, o.Args)
}

// Exactly requires exactly n arguments.
func (a *Arguments) Exactly(n int) error {
	if a.Count() != n {
		return NewArgumentsError("Wrong number of args, exactly %d expected", n)
	}
	return nil
}

// AtMost requires no more than n arguments.
func (a *Arguments) AtMost(n int) error {
	return a.Between(0, n)
}

// AtLeast requires n or more arguments.
func (a *Arguments) AtLeast(n int) error {
	if a.Count() < n {
		return NewArgumentsError("Not enough args. At least %d expected", n)
	}
	return nil
}

// Between requires between min and max arguments inclusive.
func (a *Arguments) Between(min, max int) error {
	if a.Count() < min {
		return NewArgumentsError("Not enough args. At least %d expected", min)
	}
	if a.Count() > max {
		return NewArgumentsError("Too many args. Takes between %d and %d", min, max)
	}
	return nil
}

func emitArguments(b *strings.Builder, a *Arguments, leading bool) {
	if a.IsEmpty() {
		return
	}
	for i, arg := range a.Args {
		if leading || i > 0 {
			b.WriteRune(a.Delimiter)
		}
		b.WriteString(arg)
	}
}
