package jsont

import (
	"fmt"
	"slices"
	"sync"
)

// Plugin is anything registered in a symbol table.
type Plugin interface {
	// Identifier is the name used in templates. Predicate identifiers end
	// with '?'.
	Identifier() string

	// RequiresArgs reports whether a call without arguments is a syntax
	// error.
	RequiresArgs() bool

	// Validate checks the arguments at compile time. It may store a parsed
	// form in args.Opaque. Returning an *ArgumentsError reports the
	// message as a syntax error.
	Validate(args *Arguments) error
}

// Formatter transforms the values of a variable or bindvar instruction.
type Formatter interface {
	Plugin
	Apply(ctx *Context, args *Arguments, vars *Variables) error
}

// Predicate tests the current context.
type Predicate interface {
	Plugin
	Apply(ctx *Context, args *Arguments) (bool, error)
}

// BasePlugin carries the identifier and argument requirement; embed it in
// plugin implementations.
type BasePlugin struct {
	ID        string
	NeedsArgs bool
}

func (p BasePlugin) Identifier() string        { return p.ID }
func (p BasePlugin) RequiresArgs() bool        { return p.NeedsArgs }
func (p BasePlugin) Validate(*Arguments) error { return nil }

// SymbolTable maps identifiers to plugins. It accepts registrations until it
// is locked; a Compiler locks its tables when it is created.
type SymbolTable[T Plugin] struct {
	kind    string
	symbols map[string]T
	locked  bool
	mutex   sync.RWMutex
}

// FormatterTable holds formatters.
type FormatterTable = SymbolTable[Formatter]

// PredicateTable holds predicates.
type PredicateTable = SymbolTable[Predicate]

// NewFormatterTable creates an empty, unlocked formatter table.
func NewFormatterTable() *FormatterTable {
	return &FormatterTable{kind: "formatter", symbols: make(map[string]Formatter)}
}

// NewPredicateTable creates an empty, unlocked predicate table.
func NewPredicateTable() *PredicateTable {
	return &PredicateTable{kind: "predicate", symbols: make(map[string]Predicate)}
}

// Register adds plugins. It fails once the table is locked, on an empty
// identifier or on a duplicate.
func (t *SymbolTable[T]) Register(plugins ...T) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.locked {
		return fmt.Errorf("%s table is locked", t.kind)
	}
	for _, p := range plugins {
		id := p.Identifier()
		if id == "" {
			return fmt.Errorf("%s identifier cannot be empty", t.kind)
		}
		if _, exists := t.symbols[id]; exists {
			return fmt.Errorf("%s '%s' already registered", t.kind, id)
		}
		t.symbols[id] = p
	}
	return nil
}

// Lock freezes the table. Locking twice is harmless.
func (t *SymbolTable[T]) Lock() {
	t.mutex.Lock()
	t.locked = true
	t.mutex.Unlock()
}

// Locked reports whether the table is frozen.
func (t *SymbolTable[T]) Locked() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.locked
}

// Lookup returns the plugin registered under id.
func (t *SymbolTable[T]) Lookup(id string) (T, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	p, ok := t.symbols[id]
	return p, ok
}

// Identifiers lists registered identifiers in sorted order.
func (t *SymbolTable[T]) Identifiers() []string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	ids := make([]string, 0, len(t.symbols))
	for id := range t.symbols {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
