package jsont

import (
	"unicode/utf8"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

// ifVariableLimit caps the number of variables in an {.if} expression.
const ifVariableLimit = 30

// instructionTable maps keywords to instruction types.
var instructionTable = map[string]InstructionType{
	".alternates": TypeAlternatesWith,
	".ctx":        TypeCtxVar,
	".end":        TypeEnd,
	".eval":       TypeEval,
	".if":         TypeIf,
	".include":    TypeInclude,
	".inject":     TypeInject,
	".macro":      TypeMacro,
	".meta-left":  TypeMetaLeft,
	".meta-right": TypeMetaRight,
	".newline":    TypeNewline,
	".or":         TypeOrPredicate,
	".repeated":   TypeRepeated,
	".section":    TypeSection,
	".space":      TypeSpace,
	".tab":        TypeTab,
	".var":        TypeBindVar,
}

// CodeSink receives the instruction stream produced by the tokenizer.
type CodeSink interface {
	Accept(insts ...Instruction) error
	Complete()
}

// CodeList is a CodeSink that records instructions in order.
type CodeList struct {
	Instructions []Instruction
}

func (l *CodeList) Accept(insts ...Instruction) error {
	l.Instructions = append(l.Instructions, insts...)
	return nil
}

func (l *CodeList) Complete() {}

// tokenState is one state of the tokenizer. A nil next state means EOF.
type tokenState func(t *tokenizer) (tokenState, error)

// tokenizer scans template text for {...} spans and emits instructions to a
// sink. Text between instructions is emitted as TextInst. In ModeStrict the
// first syntax error is returned; in ModeCollect errors are recorded and the
// offending span is emitted as text.
type tokenizer struct {
	raw        string
	sink       CodeSink
	formatters *FormatterTable
	predicates *PredicateTable
	matcher    *matcher
	mode       Mode
	preprocess bool
	state      tokenState
	errors     []*ErrorInfo

	textLine   int
	textOffset int
	instLine   int
	instOffset int

	index       int
	save        int
	metaLeft    int
	lineCounter int
	lineIndex   int
}

func newTokenizer(raw string, sink CodeSink, mode Mode, preprocess bool, formatters *FormatterTable, predicates *PredicateTable) *tokenizer {
	return &tokenizer{
		raw:        raw,
		sink:       sink,
		formatters: formatters,
		predicates: predicates,
		matcher:    newMatcher(raw),
		mode:       mode,
		preprocess: preprocess,
		state:      stateInitial,
		metaLeft:   -1,
	}
}

// consume tokenizes the whole input. In ModeCollect it reports whether no
// errors were found. A tokenizer can only be consumed once.
func (t *tokenizer) consume() (bool, error) {
	if t.state == nil {
		panic("jsont: tokenizer reused after reaching EOF")
	}
	for t.state != nil {
		next, err := t.state(t)
		if err != nil {
			t.state = nil
			return false, err
		}
		t.state = next
	}
	t.sink.Complete()
	return len(t.errors) == 0, nil
}

// Errors returns the errors recorded in ModeCollect.
func (t *tokenizer) Errors() []*ErrorInfo {
	return t.errors
}

func (t *tokenizer) getc(i int) int {
	if i < len(t.raw) {
		return int(t.raw[i])
	}
	return -1
}

func (t *tokenizer) column(lineStart, index int) int {
	return utf8.RuneCountInString(t.raw[lineStart:index])
}

func (t *tokenizer) emitInstruction(inst Instruction) error {
	return t.emitScoped(inst, t.preprocess)
}

func (t *tokenizer) emitScoped(inst Instruction, preprocessScope bool) error {
	b := inst.base()
	b.line = t.instLine + 1
	b.offset = t.instOffset + 1
	b.preprocess = preprocessScope
	return t.sink.Accept(inst)
}

// emitInvalid emits the whole current {...} span as text.
func (t *tokenizer) emitInvalid() (bool, error) {
	inst := &TextInst{Text: t.raw[t.matcher.start-1 : t.matcher.end+1]}
	inst.line = t.instLine + 1
	inst.offset = t.instOffset + 1
	return true, t.sink.Accept(inst)
}

func (t *tokenizer) emitText(start, end int) error {
	inst := &TextInst{Text: t.raw[start:end]}
	inst.line = t.textLine + 1
	inst.offset = t.textOffset + 1
	return t.sink.Accept(inst)
}

func (t *tokenizer) error(code SyntaxErrorType) *ErrorInfo {
	return t.errorAt(code, 0)
}

func (t *tokenizer) errorAt(code SyntaxErrorType, offset int) *ErrorInfo {
	return NewErrorInfo(code).At(t.instLine+1, t.instOffset+1+offset)
}

func (t *tokenizer) textError(code SyntaxErrorType) *ErrorInfo {
	return NewErrorInfo(code).At(t.textLine+1, t.textOffset+1)
}

func (t *tokenizer) fail(info *ErrorInfo) error {
	if t.mode == ModeStrict {
		return NewCodeSyntaxError(info)
	}
	t.errors = append(t.errors, info)
	return nil
}

// invalid records the error and degrades the span to text.
func (t *tokenizer) invalid(info *ErrorInfo) (bool, error) {
	if err := t.fail(info); err != nil {
		return false, err
	}
	return t.emitInvalid()
}

// matchMeta parses the span raw[start:end], which includes both braces.
// It returns false when the span is not an instruction and should be
// emitted as plain text.
func (t *tokenizer) matchMeta(start, end int) (bool, error) {
	if start >= end {
		panic("jsont: tokenizer span start must precede end")
	}
	m := t.matcher
	m.region(start+1, end-1)

	if m.peek(0, '^') {
		if !t.preprocess {
			return true, nil
		}
		m.seek(1)
	} else if t.preprocess {
		return false, nil
	}

	if m.peek(0, '#') {
		m.seek(1)
		return true, t.emitInstruction(&CommentInst{Text: t.raw[m.pointer:m.end]})
	}

	ok, err := t.parseKeyword()
	if ok || err != nil {
		return ok, err
	}
	return t.parseVariable()
}

func (t *tokenizer) parseKeyword() (bool, error) {
	m := t.matcher
	if !m.keyword() {
		return false, nil
	}
	keyword := m.consume()

	if keyword[len(keyword)-1] == '?' {
		predicate, err := t.resolvePredicate(keyword[1:])
		if err != nil {
			return false, err
		}
		args, err := t.parsePredicateArguments(predicate)
		if err != nil {
			return false, err
		}
		if args == nil {
			return t.emitInvalid()
		}
		return true, t.emitInstruction(newPredicate(PredicateTest{Predicate: predicate, Args: args}, false))
	}

	typ, ok := instructionTable[keyword]
	if !ok {
		return t.invalid(t.error(InvalidInstruction).WithData(keyword))
	}
	return t.parseInstruction(typ)
}

func (t *tokenizer) parseInstruction(typ InstructionType) (bool, error) {
	m := t.matcher
	switch typ {
	case TypeAlternatesWith:
		if !m.space() {
			return t.invalid(t.error(WhitespaceExpected).WithData(m.remainder()))
		}
		m.skip()
		if !m.wordWith() {
			return t.invalid(t.error(MissingWithKeyword).WithData(m.remainder()))
		}
		m.skip()
		if !m.finished() {
			return t.invalid(t.error(ExtraChars).WithType(typ).WithData(m.remainder()))
		}
		return true, t.emitInstruction(newAlternatesWith())

	case TypeBindVar:
		if ok, err := t.skipWhitespace(); !ok {
			return t.degrade(err)
		}
		if !m.localVariable() {
			return t.invalid(t.error(BindVarExpectsName).WithData(m.remainder()))
		}
		name := m.consume()
		if ok, err := t.skipWhitespace(); !ok {
			return t.degrade(err)
		}
		start := m.pointer
		vars := t.parseVariables()
		if vars == nil {
			return t.invalid(t.error(MissingVariableName).WithData(m.remainder()))
		}
		inst := &BindVarInst{Name: name, Variables: vars}
		formatters, ok, err := t.parseFormatters(start)
		if err != nil || !ok {
			return true, err
		}
		inst.Formatters = formatters
		return true, t.emitInstruction(inst)

	case TypeCtxVar:
		if ok, err := t.skipWhitespace(); !ok {
			return t.degrade(err)
		}
		if !m.localVariable() {
			return t.invalid(t.error(CtxVarExpectsName).WithData(m.remainder()))
		}
		name := m.consume()
		if ok, err := t.skipWhitespace(); !ok {
			return t.degrade(err)
		}
		bindings := t.parseBindings()
		if bindings == nil {
			return t.invalid(t.error(CtxVarExpectsBindings).WithData(m.remainder()))
		}
		return true, t.emitInstruction(&CtxVarInst{Name: name, Bindings: bindings})

	case TypeEnd, TypeMetaLeft, TypeMetaRight, TypeNewline, TypeSpace, TypeTab:
		if !m.finished() {
			return t.invalid(t.error(ExtraChars).WithType(typ).WithData(m.remainder()))
		}
		return true, t.emitInstruction(simpleInstruction(typ))

	case TypeEval:
		if ok, err := t.skipWhitespace(); !ok {
			return t.degrade(err)
		}
		body := m.remainder()
		m.seek(len(body))
		return true, t.emitInstruction(newEval(body))

	case TypeIf:
		return t.parseIfExpression()

	case TypeInclude:
		if !m.arguments() {
			return t.invalid(t.error(IncludeExpectsName))
		}
		args := ParseArguments(m.consume())
		if args.IsEmpty() || !m.finished() {
			return t.invalid(t.error(IncludeExpectsName))
		}
		return true, t.emitInstruction(newInclude(args))

	case TypeInject:
		if ok, err := t.skipWhitespace(); !ok {
			return t.degrade(err)
		}
		if !m.localVariable() {
			return t.invalid(t.error(InjectExpectsName).WithData(m.remainder()))
		}
		variable := m.consume()
		if ok, err := t.skipWhitespace(); !ok {
			return t.degrade(err)
		}
		if !m.path() {
			return t.invalid(t.error(InjectExpectsPath).WithData(m.remainder()))
		}
		path := m.consume()
		args := emptyArguments()
		if m.arguments() {
			args = ParseArguments(m.consume())
		}
		return true, t.emitInstruction(&InjectInst{Variable: variable, Path: path, Args: args})

	case TypeMacro:
		if ok, err := t.skipWhitespace(); !ok {
			return t.degrade(err)
		}
		if !m.path() {
			return t.invalid(t.error(MacroExpectsName))
		}
		name := m.consume()
		if !m.finished() {
			return t.invalid(t.error(ExtraChars).WithType(typ).WithData(m.remainder()))
		}
		return true, t.emitInstruction(newMacro(name))

	case TypeOrPredicate:
		if m.space() {
			m.skip()
			if !m.predicate() {
				return t.invalid(t.error(OrExpectedPredicate).WithType(typ).WithData(m.remainder()))
			}
			predicate, err := t.resolvePredicate(m.consume())
			if err != nil {
				return false, err
			}
			args, err := t.parsePredicateArguments(predicate)
			if err != nil {
				return false, err
			}
			if args == nil {
				return t.emitInvalid()
			}
			return true, t.emitInstruction(newPredicate(PredicateTest{Predicate: predicate, Args: args}, true))
		}
		if !m.finished() {
			return t.invalid(t.error(ExtraChars).WithType(typ).WithData(m.remainder()))
		}
		return true, t.emitInstruction(newPredicate(ElseTest{}, true))

	case TypeRepeated, TypeSection:
		return t.parseSection(typ)
	}
	panic("jsont: instruction type " + typ.String() + " has no text representation")
}

// degrade finishes a failed skipWhitespace: the error was already recorded.
func (t *tokenizer) degrade(err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return t.emitInvalid()
}

func simpleInstruction(typ InstructionType) Instruction {
	switch typ {
	case TypeEnd:
		return &EndInst{}
	case TypeMetaLeft:
		return &MetaInst{Left: true}
	case TypeMetaRight:
		return &MetaInst{}
	}
	return newLiteral(typ)
}

// skipWhitespace requires a single space. On failure the error is recorded
// and ok is false.
func (t *tokenizer) skipWhitespace() (bool, error) {
	m := t.matcher
	if !m.space() {
		return false, t.fail(t.error(WhitespaceExpected).WithData(m.remainder()))
	}
	m.skip()
	return true, nil
}

type unknownPredicate struct {
	BasePlugin
}

func (unknownPredicate) Apply(*Context, *Arguments) (bool, error) {
	return false, nil
}

func (t *tokenizer) resolvePredicate(id string) (Predicate, error) {
	if p, ok := t.predicates.Lookup(id); ok {
		return p, nil
	}
	if err := t.fail(t.error(PredicateUnknown).WithData(id)); err != nil {
		return nil, err
	}
	return unknownPredicate{BasePlugin{ID: id}}, nil
}

// parsePredicateArguments returns nil arguments when they are missing or
// invalid, after recording the error.
func (t *tokenizer) parsePredicateArguments(p Predicate) (*Arguments, error) {
	m := t.matcher
	var args *Arguments
	if m.predicateArgs() {
		args = ParseArguments(m.consume())
	} else {
		args = emptyArguments()
		if p.RequiresArgs() {
			return nil, t.fail(t.error(PredicateNeedsArgs).WithData(p.Identifier()))
		}
	}
	if err := p.Validate(args); err != nil {
		return nil, t.fail(t.error(PredicateArgsInvalid).WithName(p.Identifier()).WithData(argumentsMessage(err)))
	}
	return args, nil
}

func argumentsMessage(err error) string {
	if ae, ok := err.(*ArgumentsError); ok {
		return ae.Message
	}
	return err.Error()
}

func (t *tokenizer) parseIfExpression() (bool, error) {
	m := t.matcher
	if !m.whitespace() {
		return t.invalid(t.error(WhitespaceExpected).WithData(m.remainder()))
	}
	m.skip()

	if m.predicate() {
		predicate, err := t.resolvePredicate(m.consume())
		if err != nil {
			return false, err
		}
		args, err := t.parsePredicateArguments(predicate)
		if err != nil {
			return false, err
		}
		if args == nil {
			return t.emitInvalid()
		}
		return true, t.emitInstruction(newIfPredicate(predicate, args))
	}

	var vars []node.Path
	var ops []BoolOp
	for m.variable() {
		vars = append(vars, node.ParsePath(m.consume()))
		if m.whitespace() {
			m.skip()
		}
		if len(vars) > ifVariableLimit {
			return t.invalid(t.error(IfTooManyVars).WithLimit(ifVariableLimit))
		}
		if !m.operator() {
			break
		}
		if m.consume() == "&&" {
			ops = append(ops, LogicalAnd)
		} else {
			ops = append(ops, LogicalOr)
		}
		if m.whitespace() {
			m.skip()
		}
	}

	if !m.finished() {
		return t.invalid(t.error(IfExpectedVarOp).WithData(m.remainder()))
	}
	if len(vars) == 0 {
		return t.invalid(t.error(IfEmpty))
	}
	if len(vars) != len(ops)+1 {
		return t.invalid(t.error(IfTooManyOperators))
	}
	return true, t.emitInstruction(newIf(vars, ops))
}

func (t *tokenizer) parseSection(typ InstructionType) (bool, error) {
	m := t.matcher
	if !m.whitespace() {
		return t.invalid(t.error(WhitespaceExpected).WithData(m.remainder()))
	}
	m.skip()

	if typ == TypeRepeated {
		if !m.wordSection() {
			return t.invalid(t.error(MissingSectionKeyword).WithData(m.remainder()))
		}
		m.skip()
		if !m.whitespace() {
			return t.invalid(t.error(WhitespaceExpected).WithData(m.remainder()))
		}
		m.skip()
	}

	if !m.variable() {
		return t.invalid(t.error(VariableExpected).WithData(m.remainder()))
	}
	variable := node.ParsePath(m.consume())
	if !m.finished() {
		return t.invalid(t.error(ExtraChars).WithType(typ).WithData(m.remainder()))
	}
	if typ == TypeRepeated {
		return true, t.emitInstruction(newRepeated(variable))
	}
	return true, t.emitInstruction(newSection(variable))
}

func (t *tokenizer) parseVariable() (bool, error) {
	start := t.matcher.pointer
	vars := t.parseVariables()
	if vars == nil {
		return false, nil
	}
	inst := &VariableInst{Variables: vars}
	formatters, ok, err := t.parseFormatters(start)
	if err != nil || !ok {
		return true, err
	}
	inst.Formatters = formatters
	return true, t.emitInstruction(inst)
}

// parseVariables parses one variable, or a comma-separated list that must
// be followed by a formatter pipe.
func (t *tokenizer) parseVariables() []node.Path {
	m := t.matcher
	if !m.variable() {
		return nil
	}
	vars := []node.Path{node.ParsePath(m.consume())}
	requirePipe := false
	for m.variablesDelimiter() {
		m.skip()
		if m.finished() || m.pipe() || !m.variable() {
			return nil
		}
		vars = append(vars, node.ParsePath(m.consume()))
		requirePipe = true
	}

	matchedPipe := m.peek(0, '|')
	// "||" is a boolean operator, never a formatter pipe.
	if matchedPipe && m.peek(1, '|') {
		return nil
	}
	if requirePipe && !matchedPipe {
		return nil
	}
	return vars
}

func (t *tokenizer) parseBindings() []Binding {
	m := t.matcher
	var bindings []Binding
	for m.word() {
		name := m.consume()
		if !m.equalsign() {
			break
		}
		m.skip()
		if !m.variable() {
			break
		}
		bindings = append(bindings, Binding{Name: name, Ref: node.ParsePath(m.consume())})
		if !m.whitespace() {
			break
		}
		m.skip()
	}
	return bindings
}

// parseFormatters parses the "|name args" chain. ok is false when the span
// was degraded to text and the instruction must not be emitted.
func (t *tokenizer) parseFormatters(start int) ([]*FormatterCall, bool, error) {
	m := t.matcher
	var calls []*FormatterCall
	for m.pipe() {
		m.skip()
		if !m.formatter() {
			_, err := t.invalid(t.errorAt(FormatterInvalid, t.column(start, m.pointer)).WithName(m.remainder()))
			return nil, false, err
		}
		name := m.consume()
		formatter, found := t.formatters.Lookup(name)
		if !found {
			_, err := t.invalid(t.errorAt(FormatterUnknown, t.column(start, m.matchStart)).WithName(name))
			return nil, false, err
		}

		args := emptyArguments()
		if m.arguments() {
			args = ParseArguments(m.consume())
		} else if formatter.RequiresArgs() {
			_, err := t.invalid(t.errorAt(FormatterNeedsArgs, t.column(start, m.matchStart)).WithData(name))
			return nil, false, err
		}
		if err := formatter.Validate(args); err != nil {
			info := t.errorAt(FormatterArgsInvalid, t.column(start, m.matchStart)).
				WithName(name).
				WithData(argumentsMessage(err))
			_, err := t.invalid(info)
			return nil, false, err
		}
		calls = append(calls, &FormatterCall{Formatter: formatter, Args: args})
	}

	// Anything left over means the span is not a valid instruction.
	if !m.finished() {
		_, err := t.emitInvalid()
		return nil, false, err
	}
	return calls, true, nil
}

func stateInitial(t *tokenizer) (tokenState, error) {
	for {
		switch ch := t.getc(t.index); ch {
		case -1:
			if t.save < len(t.raw) {
				if err := t.emitText(t.save, len(t.raw)); err != nil {
					return nil, err
				}
			}
			t.instLine = t.lineCounter
			t.instOffset = t.column(t.lineIndex, t.index)
			return nil, t.emitInstruction(&EOFInst{})

		case '\n':
			t.lineCounter++
			t.lineIndex = t.index + 1

		case '{':
			t.instLine = t.lineCounter
			t.instOffset = t.column(t.lineIndex, t.index)
			if t.getc(t.index+1) == '#' && t.getc(t.index+2) == '#' {
				if t.save < t.index {
					if err := t.emitText(t.save, t.index); err != nil {
						return nil, err
					}
				}
				t.index += 3
				return stateMultilineComment, nil
			}
			// The last '{' before a '}' starts the candidate span.
			t.metaLeft = t.index

		case '}':
			if t.metaLeft != -1 {
				if t.save < t.metaLeft {
					if err := t.emitText(t.save, t.metaLeft); err != nil {
						return nil, err
					}
				}
				ok, err := t.matchMeta(t.metaLeft, t.index+1)
				if err != nil {
					return nil, err
				}
				if !ok {
					if err := t.emitText(t.metaLeft, t.index+1); err != nil {
						return nil, err
					}
				}
				t.metaLeft = -1
			} else if err := t.emitText(t.save, t.index+1); err != nil {
				return nil, err
			}
			t.textLine = t.lineCounter
			t.textOffset = t.column(t.lineIndex, t.index+1)
			t.save = t.index + 1
		}
		t.index++
	}
}

func stateMultilineComment(t *tokenizer) (tokenState, error) {
	start := t.index
	for {
		switch t.getc(t.index) {
		case -1:
			if err := t.emitInstruction(&CommentInst{Text: t.raw[start:min(t.index, len(t.raw))], MultiLine: true}); err != nil {
				return nil, err
			}
			if err := t.fail(t.textError(EOFInComment)); err != nil {
				return nil, err
			}
			// The EOF instruction must still close the stream.
			t.save = len(t.raw)
			return stateInitial, nil

		case '\n':
			t.lineCounter++
			t.lineIndex = t.index + 1

		case '#':
			if t.getc(t.index+1) == '#' && t.getc(t.index+2) == '}' {
				if err := t.emitScoped(&CommentInst{Text: t.raw[start:t.index], MultiLine: true}, false); err != nil {
					return nil, err
				}
				t.index += 3
				t.save = t.index
				return stateInitial, nil
			}
		}
		t.index++
	}
}
