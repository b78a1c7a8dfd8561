package jsont

import "regexp"

const wordPattern = `[a-zA-Z_$][a-zA-Z0-9_$-]*`

var (
	argumentsRegex          = regexp.MustCompile(`^[^|}]+`)
	booleanOpRegex          = regexp.MustCompile(`^(&&|\|\|)`)
	formatterRegex          = regexp.MustCompile(`^` + wordPattern)
	keywordRegex            = regexp.MustCompile(`^\.` + wordPattern + `\??`)
	localVariableRegex      = regexp.MustCompile(`^@` + wordPattern)
	pathRegex               = regexp.MustCompile(`^[./a-zA-Z0-9_-]+`)
	predicateRegex          = regexp.MustCompile(`^` + wordPattern + `\?`)
	predicateArgumentsRegex = regexp.MustCompile(`^[^}]+`)
	variableRegex           = regexp.MustCompile(`^(@*(` + wordPattern + `|\d+)|@)(\.(` + wordPattern + `|\d+))*`)
	variablesDelimiterRegex = regexp.MustCompile(`^\s*,\s*`)
	whitespaceRegex         = regexp.MustCompile(`^\s+`)
	wordRegex               = regexp.MustCompile(`^` + wordPattern)
)

// matcher walks the interior of one {...} span, matching tokens at a moving
// pointer. A successful match records a range that consume() then takes.
type matcher struct {
	raw        string
	start      int
	end        int
	pointer    int
	matchStart int
	matchEnd   int
}

func newMatcher(raw string) *matcher {
	m := &matcher{raw: raw, matchStart: -1, matchEnd: -1}
	m.region(0, len(raw))
	return m
}

// region resets the matcher to raw[start:end].
func (m *matcher) region(start, end int) {
	m.start = start
	m.pointer = start
	m.end = end
}

// remainder is the unconsumed part of the region, used in error messages.
func (m *matcher) remainder() string {
	return m.raw[m.pointer:m.end]
}

// consume returns the last match and moves the pointer past it.
func (m *matcher) consume() string {
	tok := m.raw[m.matchStart:m.matchEnd]
	m.pointer = m.matchEnd
	return tok
}

// skip moves past the last match.
func (m *matcher) skip() {
	m.pointer = m.matchEnd
}

func (m *matcher) seek(n int) {
	m.pointer += n
}

func (m *matcher) finished() bool {
	return m.pointer == m.end
}

func (m *matcher) peek(skip int, ch byte) bool {
	p := m.pointer + skip
	return p < m.end && m.raw[p] == ch
}

func (m *matcher) arguments() bool          { return m.match(argumentsRegex) }
func (m *matcher) formatter() bool          { return m.match(formatterRegex) }
func (m *matcher) keyword() bool            { return m.match(keywordRegex) }
func (m *matcher) localVariable() bool      { return m.match(localVariableRegex) }
func (m *matcher) operator() bool           { return m.match(booleanOpRegex) }
func (m *matcher) path() bool               { return m.match(pathRegex) }
func (m *matcher) predicate() bool          { return m.match(predicateRegex) }
func (m *matcher) predicateArgs() bool      { return m.match(predicateArgumentsRegex) }
func (m *matcher) variable() bool           { return m.match(variableRegex) }
func (m *matcher) variablesDelimiter() bool { return m.match(variablesDelimiterRegex) }
func (m *matcher) whitespace() bool         { return m.match(whitespaceRegex) }
func (m *matcher) word() bool               { return m.match(wordRegex) }
func (m *matcher) wordSection() bool        { return m.matchLiteral("section") }
func (m *matcher) wordWith() bool           { return m.matchLiteral("with") }
func (m *matcher) pipe() bool               { return m.matchChar('|') }
func (m *matcher) space() bool              { return m.matchChar(' ') }
func (m *matcher) equalsign() bool          { return m.matchChar('=') }

func (m *matcher) match(re *regexp.Regexp) bool {
	loc := re.FindStringIndex(m.raw[m.pointer:m.end])
	if loc == nil || loc[1] == 0 {
		return false
	}
	m.matchStart = m.pointer
	m.matchEnd = m.pointer + loc[1]
	return true
}

func (m *matcher) matchChar(ch byte) bool {
	if m.pointer == m.end || m.raw[m.pointer] != ch {
		return false
	}
	m.matchStart = m.pointer
	m.matchEnd = m.pointer + 1
	return true
}

func (m *matcher) matchLiteral(s string) bool {
	if m.end-m.pointer < len(s) || m.raw[m.pointer:m.pointer+len(s)] != s {
		return false
	}
	m.matchStart = m.pointer
	m.matchEnd = m.pointer + len(s)
	return true
}

// IsVariableReference reports whether s is entirely a variable reference
// such as "a.b.0" or "@index".
func IsVariableReference(s string) bool {
	loc := variableRegex.FindStringIndex(s)
	return loc != nil && loc[1] == len(s) && len(s) > 0
}
