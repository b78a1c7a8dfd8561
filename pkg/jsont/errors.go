package jsont

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// nullPlaceholder stands in for message parameters that were never set.
const nullPlaceholder = "???"

// ErrorType identifies the template of an error message. It is implemented
// by SyntaxErrorType and ExecuteErrorType only.
type ErrorType interface {
	fmt.Stringer
	prefix() string
	template() string
}

// ErrorLevel grades an ErrorInfo.
type ErrorLevel int

const (
	LevelError ErrorLevel = iota
	LevelWarn
)

func (l ErrorLevel) String() string {
	if l == LevelWarn {
		return "WARN"
	}
	return "ERROR"
}

// SyntaxErrorType enumerates the errors raised while tokenizing and
// assembling a template.
type SyntaxErrorType int

const (
	BindVarExpectsName SyntaxErrorType = iota
	CtxVarExpectsBindings
	CtxVarExpectsName
	DeadCodeBlock
	EOFInBlock
	EOFInComment
	ExtraChars
	FormatterArgsInvalid
	FormatterInvalid
	FormatterNeedsArgs
	FormatterUnknown
	IfEmpty
	IfExpectedVarOp
	IfTooManyOperators
	IfTooManyVars
	IncludeExpectsName
	InjectExpectsName
	InjectExpectsPath
	InvalidInstruction
	MacroExpectsName
	MismatchedEnd
	MissingSectionKeyword
	MissingVariableName
	MissingWithKeyword
	NotAllowedAtRoot
	NotAllowedInBlock
	OrExpectedPredicate
	PredicateArgsInvalid
	PredicateNeedsArgs
	PredicateUnknown
	VariableExpected
	WhitespaceExpected
)

var syntaxErrorTypes = [...]struct{ code, format string }{
	BindVarExpectsName:    {"BINDVAR_EXPECTS_NAME", "Variable definition expects a name starting with '@', found '%(data)s'"},
	CtxVarExpectsBindings: {"CTXVAR_EXPECTS_BINDINGS", "Context variable expects one or more key=variable bindings, found '%(data)s'"},
	CtxVarExpectsName:     {"CTXVAR_EXPECTS_NAME", "Context variable expects a name starting with '@', found '%(data)s'"},
	DeadCodeBlock:         {"DEAD_CODE_BLOCK", "This %(type)s block will never execute."},
	EOFInBlock:            {"EOF_IN_BLOCK", "Reached EOF in the middle of %(data)s"},
	EOFInComment:          {"EOF_IN_COMMENT", "Reached EOF in the middle of a multi-line comment"},
	ExtraChars:            {"EXTRA_CHARS", "Extra characters found after %(type)s instruction: '%(data)s'"},
	FormatterArgsInvalid:  {"FORMATTER_ARGS_INVALID", "Formatter '%(name)s' arguments are invalid: '%(data)s'"},
	FormatterInvalid:      {"FORMATTER_INVALID", "Invalid formatter name '%(name)s' found."},
	FormatterNeedsArgs:    {"FORMATTER_NEEDS_ARGS", "Formatter '%(data)s' needs arguments but none were provided."},
	FormatterUnknown:      {"FORMATTER_UNKNOWN", "Formatter '%(name)s' is unknown."},
	IfEmpty:               {"IF_EMPTY", "IF instruction requires at least one variable to test."},
	IfExpectedVarOp:       {"IF_EXPECTED_VAROP", "Expected an operator or a variable, found '%(data)s'"},
	IfTooManyOperators:    {"IF_TOO_MANY_OPERATORS", "Too many operators in IF instruction."},
	IfTooManyVars:         {"IF_TOO_MANY_VARS", "Too many variables in IF instruction. Limit is %(limit)s."},
	IncludeExpectsName:    {"INCLUDE_EXPECTS_NAME", "Include expects the name of a partial or macro."},
	InjectExpectsName:     {"INJECT_EXPECTS_NAME", "Inject expects a variable name starting with '@', found '%(data)s'"},
	InjectExpectsPath:     {"INJECT_EXPECTS_PATH", "Inject expects a path, found '%(data)s'"},
	InvalidInstruction:    {"INVALID_INSTRUCTION", "Invalid instruction '%(data)s'"},
	MacroExpectsName:      {"MACRO_EXPECTS_NAME", "Macro expects a name."},
	MismatchedEnd:         {"MISMATCHED_END", "Mismatched END found at ROOT."},
	MissingSectionKeyword: {"MISSING_SECTION_KEYWORD", "Missing 'section' keyword, found '%(data)s'"},
	MissingVariableName:   {"MISSING_VARIABLE_NAME", "Missing variable name, found '%(data)s'"},
	MissingWithKeyword:    {"MISSING_WITH_KEYWORD", "Missing 'with' keyword, found '%(data)s'"},
	NotAllowedAtRoot:      {"NOT_ALLOWED_AT_ROOT", "%(type)s instruction is not allowed at the template root."},
	NotAllowedInBlock:     {"NOT_ALLOWED_IN_BLOCK", "%(type)s instruction is not allowed inside %(data)s block."},
	OrExpectedPredicate:   {"OR_EXPECTED_PREDICATE", "Expected a predicate to follow %(type)s, found '%(data)s'"},
	PredicateArgsInvalid:  {"PREDICATE_ARGS_INVALID", "Predicate %(name)s arguments invalid: '%(data)s'"},
	PredicateNeedsArgs:    {"PREDICATE_NEEDS_ARGS", "Predicate '.%(data)s' requires arguments but none were provided."},
	PredicateUnknown:      {"PREDICATE_UNKNOWN", "Predicate '%(data)s' is unknown."},
	VariableExpected:      {"VARIABLE_EXPECTED", "Variable expected, found '%(data)s'"},
	WhitespaceExpected:    {"WHITESPACE_EXPECTED", "Whitespace expected, found '%(data)s'"},
}

func (t SyntaxErrorType) String() string {
	if int(t) < 0 || int(t) >= len(syntaxErrorTypes) {
		return "UNKNOWN"
	}
	return syntaxErrorTypes[t].code
}

func (t SyntaxErrorType) prefix() string { return "SyntaxError" }

func (t SyntaxErrorType) template() string {
	if int(t) < 0 || int(t) >= len(syntaxErrorTypes) {
		return ""
	}
	return syntaxErrorTypes[t].format
}

// ExecuteErrorType enumerates the errors raised while executing a compiled
// template.
type ExecuteErrorType int

const (
	ApplyPartialMissing ExecuteErrorType = iota
	ApplyPartialRecursion
	ApplyPartialRecursionDepth
	ApplyPartialSyntax
	CodeLimitReached
	CompilePartialSyntax
	ExpressionParse
	ExpressionReduce
	GeneralError
	IncludePartialMissing
	IncludePartialSyntax
	UnexpectedError
)

var executeErrorTypes = [...]struct{ code, format string }{
	ApplyPartialMissing:        {"APPLY_PARTIAL_MISSING", "Attempt to apply partial '%(name)s' which could not be found."},
	ApplyPartialRecursion:      {"APPLY_PARTIAL_RECURSION", "Attempt to recursively apply partial '%(name)s'."},
	ApplyPartialRecursionDepth: {"APPLY_PARTIAL_RECURSION_DEPTH", "Applying partial '%(name)s' exceeded the maximum partial depth of %(limit)s."},
	ApplyPartialSyntax:         {"APPLY_PARTIAL_SYNTAX", "Applying partial '%(name)s' raised an error: %(data)s"},
	CodeLimitReached:           {"CODE_LIMIT_REACHED", "A %(name)s code limit was reached %(data)s"},
	CompilePartialSyntax:       {"COMPILE_PARTIAL_SYNTAX", "Compiling partial '%(name)s' raised errors:"},
	ExpressionParse:            {"EXPRESSION_PARSE", "Error parsing expression: %(data)s"},
	ExpressionReduce:           {"EXPRESSION_REDUCE", "Error evaluating expression: %(data)s"},
	GeneralError:               {"GENERAL_ERROR", "Default error %(name)s: %(data)s"},
	IncludePartialMissing:      {"INCLUDE_PARTIAL_MISSING", "Attempt to include partial '%(name)s' which could not be found."},
	IncludePartialSyntax:       {"INCLUDE_PARTIAL_SYNTAX", "Including partial '%(name)s' raised an error: %(data)s"},
	UnexpectedError:            {"UNEXPECTED_ERROR", "Unexpected %(name)s when executing %(repr)s: %(data)s"},
}

func (t ExecuteErrorType) String() string {
	if int(t) < 0 || int(t) >= len(executeErrorTypes) {
		return "UNKNOWN"
	}
	return executeErrorTypes[t].code
}

func (t ExecuteErrorType) prefix() string { return "RuntimeError" }

func (t ExecuteErrorType) template() string {
	if int(t) < 0 || int(t) >= len(executeErrorTypes) {
		return ""
	}
	return executeErrorTypes[t].format
}

// ErrorInfo is a structured error record: a type, a 1-based source
// location and the named parameters substituted into the type's message
// template.
type ErrorInfo struct {
	Type     ErrorType
	Level    ErrorLevel
	Line     int
	Offset   int
	Children []*ErrorInfo

	params map[string]any
}

// NewErrorInfo creates an error record of the given type.
func NewErrorInfo(t ErrorType) *ErrorInfo {
	return &ErrorInfo{Type: t}
}

func (e *ErrorInfo) set(key string, value any) *ErrorInfo {
	if e.params == nil {
		e.params = make(map[string]any, 4)
	}
	e.params[key] = value
	return e
}

// At sets the source location.
func (e *ErrorInfo) At(line, offset int) *ErrorInfo {
	e.Line = line
	e.Offset = offset
	return e
}

// WithType sets the "type" parameter, usually an InstructionType.
func (e *ErrorInfo) WithType(v any) *ErrorInfo { return e.set("type", v) }

// WithData sets the "data" parameter.
func (e *ErrorInfo) WithData(v any) *ErrorInfo { return e.set("data", v) }

// WithName sets the "name" parameter.
func (e *ErrorInfo) WithName(v any) *ErrorInfo { return e.set("name", v) }

// WithLimit sets the "limit" parameter.
func (e *ErrorInfo) WithLimit(v any) *ErrorInfo { return e.set("limit", v) }

// WithRepr sets the "repr" parameter.
func (e *ErrorInfo) WithRepr(v string) *ErrorInfo { return e.set("repr", v) }

// WithLevel sets the level.
func (e *ErrorInfo) WithLevel(l ErrorLevel) *ErrorInfo {
	e.Level = l
	return e
}

// WithChildren appends nested causes.
func (e *ErrorInfo) WithChildren(children ...*ErrorInfo) *ErrorInfo {
	e.Children = append(e.Children, children...)
	return e
}

// Param returns a named parameter, or nil when unset.
func (e *ErrorInfo) Param(key string) any {
	return e.params[key]
}

func (e *ErrorInfo) allParams() map[string]any {
	p := make(map[string]any, len(e.params)+3)
	for k, v := range e.params {
		p[k] = v
	}
	p["code"] = e.Type
	p["line"] = e.Line
	p["offset"] = e.Offset
	return p
}

// Prefix renders "SyntaxError CODE at line L character C" or the
// RuntimeError equivalent.
func (e *ErrorInfo) Prefix() string {
	return mapFormat(e.Type.prefix()+" %(code)s at line %(line)s character %(offset)s", e.allParams())
}

// Message renders the type's message template.
func (e *ErrorInfo) Message() string {
	return mapFormat(e.Type.template(), e.allParams())
}

// FullMessage is Error followed by the messages of any nested causes.
func (e *ErrorInfo) FullMessage() string {
	msg := e.Error()
	if len(e.Children) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	b.WriteString(", causes follow: ")
	for i, c := range e.Children {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Error())
	}
	return b.String()
}

func (e *ErrorInfo) Error() string {
	return e.Prefix() + ": " + e.Message()
}

// ToMap returns a JSON-ready description of the error and its children.
func (e *ErrorInfo) ToMap() map[string]any {
	children := make([]any, 0, len(e.Children))
	for _, c := range e.Children {
		children = append(children, c.ToMap())
	}
	return map[string]any{
		"level":    e.Level.String(),
		"line":     int64(e.Line),
		"offset":   int64(e.Offset),
		"type":     e.Type.String(),
		"prefix":   e.Prefix(),
		"message":  e.Message(),
		"children": children,
	}
}

var mapFormatKey = regexp.MustCompile(`%\([a-zA-Z][a-zA-Z0-9]*\)s`)

// mapFormat replaces each %(key)s in format with the matching parameter and
// escapes the result to printable ASCII.
func mapFormat(format string, params map[string]any) string {
	out := mapFormatKey.ReplaceAllStringFunc(format, func(m string) string {
		v, ok := params[m[2:len(m)-2]]
		if !ok || v == nil {
			return nullPlaceholder
		}
		return fmt.Sprint(v)
	})
	return escapeMessage(out)
}

func escapeMessage(s string) string {
	q := strconv.QuoteToASCII(s)
	return q[1 : len(q)-1]
}

// CodeSyntaxError is returned when compilation fails in strict mode.
type CodeSyntaxError struct {
	Info *ErrorInfo
}

func (e *CodeSyntaxError) Error() string {
	return e.Info.Error()
}

// NewCodeSyntaxError wraps an error record.
func NewCodeSyntaxError(info *ErrorInfo) error {
	return &CodeSyntaxError{Info: info}
}

// CodeExecuteError is returned when execution fails.
type CodeExecuteError struct {
	Info  *ErrorInfo
	Cause error
}

func (e *CodeExecuteError) Error() string {
	return e.Info.Error()
}

func (e *CodeExecuteError) Unwrap() error {
	return e.Cause
}

// NewCodeExecuteError wraps an error record with an optional cause.
func NewCodeExecuteError(info *ErrorInfo, cause error) error {
	return &CodeExecuteError{Info: info, Cause: cause}
}

// ArgumentsError reports plugin arguments that fail validation.
type ArgumentsError struct {
	Message string
}

func (e *ArgumentsError) Error() string {
	return e.Message
}

// NewArgumentsError creates an arguments error.
func NewArgumentsError(format string, args ...any) error {
	return &ArgumentsError{Message: fmt.Sprintf(format, args...)}
}

// IsSyntaxError checks if an error is a syntax error
func IsSyntaxError(err error) bool {
	var e *CodeSyntaxError
	return errors.As(err, &e)
}

// IsExecuteError checks if an error is an execution error
func IsExecuteError(err error) bool {
	var e *CodeExecuteError
	return errors.As(err, &e)
}

// IsArgumentsError checks if an error is an arguments error
func IsArgumentsError(err error) bool {
	var e *ArgumentsError
	return errors.As(err, &e)
}

// ErrorInfoOf extracts the error record from a syntax or execution error.
func ErrorInfoOf(err error) *ErrorInfo {
	var se *CodeSyntaxError
	if errors.As(err, &se) {
		return se.Info
	}
	var ee *CodeExecuteError
	if errors.As(err, &ee) {
		return ee.Info
	}
	var info *ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	return nil
}

// MultiError gathers the records of a collect-mode compile or a safe
// execution into one error.
type MultiError struct {
	errs []error
}

func NewMultiError() *MultiError {
	return &MultiError{}
}

// Add appends err unless it is nil.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errs = append(m.errs, err)
	}
}

// AddInfo appends each non-nil record.
func (m *MultiError) AddInfo(infos ...*ErrorInfo) {
	for _, info := range infos {
		if info != nil {
			m.errs = append(m.errs, info)
		}
	}
}

func (m *MultiError) Len() int {
	return len(m.errs)
}

// Unwrap exposes the gathered errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.errs
}

// Err is nil when nothing was gathered and the sole error when there is
// exactly one.
func (m *MultiError) Err() error {
	switch len(m.errs) {
	case 0:
		return nil
	case 1:
		return m.errs[0]
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errs) == 1 {
		return m.errs[0].Error()
	}
	lines := []string{fmt.Sprintf("%d errors occurred:", len(m.errs))}
	for i, err := range m.errs {
		lines = append(lines, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(lines, "\n")
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]any
	Cause     error
}

func (e *ContextError) Error() string {
	var contextParts []string
	for k, v := range e.Context {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
	}

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]any) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r any) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}
