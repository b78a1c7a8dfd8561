package jsont

import (
	"fmt"
	"strings"
)

type machineState int

const (
	stateRoot machineState = iota
	stateAlternatesWith
	stateIf
	stateMacro
	statePredicate
	stateOrPredicate
	stateRepeated
	stateSection
	stateEOF
)

// CodeMachine assembles the flat instruction stream into a tree. Block
// instructions push a new scope, END and OR close or chain the current
// one, and EOF must arrive at the root.
type CodeMachine struct {
	stack            []BlockInstruction
	state            machineState
	root             *RootInst
	current          BlockInstruction
	mode             Mode
	errors           []*ErrorInfo
	instructionCount int
}

// NewCodeMachine creates a machine with an empty root.
func NewCodeMachine(mode Mode) *CodeMachine {
	root := NewRoot()
	return &CodeMachine{
		root:    root,
		current: root,
		state:   stateRoot,
		mode:    mode,
	}
}

// Code returns the assembled tree.
func (m *CodeMachine) Code() *RootInst {
	return m.root
}

// Errors returns the errors recorded in ModeCollect.
func (m *CodeMachine) Errors() []*ErrorInfo {
	return m.errors
}

// InstructionCount is the number of instructions accepted.
func (m *CodeMachine) InstructionCount() int {
	return m.instructionCount
}

// Complete verifies the machine finished at the root after EOF. In
// ModeCollect a broken machine is expected and the check is skipped.
func (m *CodeMachine) Complete() {
	if m.mode == ModeCollect {
		return
	}
	if m.current != m.root {
		panic("jsont: unclosed " + m.currentInfo() + ": EOF was never fed to the machine")
	}
	if m.state != stateEOF {
		panic("jsont: machine never processed EOF")
	}
}

// Accept feeds instructions to the machine.
func (m *CodeMachine) Accept(insts ...Instruction) error {
	for _, inst := range insts {
		if err := m.accept(inst); err != nil {
			return err
		}
	}
	return nil
}

func (m *CodeMachine) accept(inst Instruction) error {
	m.instructionCount++
	switch inst.Type() {
	case TypeIf, TypeMacro, TypePredicate, TypeRepeated, TypeSection:
		// Block openers are legal in every state.
		m.addConsequent(inst)
		m.state = m.push(inst.(BlockInstruction))
		return nil
	}
	state, err := m.transition(inst)
	if err != nil {
		return err
	}
	m.state = state
	return nil
}

func (m *CodeMachine) push(inst BlockInstruction) machineState {
	m.stack = append(m.stack, m.current)
	m.current = inst
	return stateFor(inst)
}

func (m *CodeMachine) pop() machineState {
	if len(m.stack) == 0 {
		panic("jsont: popped the root instruction off the machine stack")
	}
	m.current = m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return stateFor(m.current)
}

func (m *CodeMachine) addConsequent(inst Instruction) {
	m.current.Consequent().Add(inst)
}

func (m *CodeMachine) setAlternative(inst Instruction) {
	m.current.SetAlternative(inst)
}

// chain replaces the current block with an {.or} branch. The branch is not
// pushed: its END pops back past the whole chain.
func (m *CodeMachine) chain(inst Instruction) machineState {
	m.setAlternative(inst)
	m.current = inst.(BlockInstruction)
	return stateOrPredicate
}

func (m *CodeMachine) error(code SyntaxErrorType, inst Instruction) *ErrorInfo {
	return NewErrorInfo(code).WithType(inst.Type()).At(inst.Line(), inst.Offset())
}

func (m *CodeMachine) fail(info *ErrorInfo) error {
	if m.mode == ModeStrict {
		return NewCodeSyntaxError(info)
	}
	m.errors = append(m.errors, info)
	return nil
}

func (m *CodeMachine) currentInfo() string {
	var b strings.Builder
	emitRepr(&b, m.current, false)
	fmt.Fprintf(&b, " started at line %d char %d", m.current.Line(), m.current.Offset())
	return b.String()
}

func stateFor(inst Instruction) machineState {
	switch inst.Type() {
	case TypeAlternatesWith:
		return stateAlternatesWith
	case TypeIf:
		return stateIf
	case TypeMacro:
		return stateMacro
	case TypeOrPredicate:
		return stateOrPredicate
	case TypePredicate:
		return statePredicate
	case TypeRepeated:
		return stateRepeated
	case TypeRoot:
		return stateRoot
	case TypeSection:
		return stateSection
	}
	panic("jsont: no machine state for non-block instruction " + inst.Type().String())
}

var blockNames = map[machineState]string{
	stateIf:          TypeIf.String(),
	stateMacro:       TypeMacro.String(),
	statePredicate:   TypePredicate.String(),
	stateOrPredicate: TypeOrPredicate.String(),
	stateSection:     TypeSection.String(),
	stateRoot:        TypeRoot.String(),
}

func (m *CodeMachine) transition(inst Instruction) (machineState, error) {
	typ := inst.Type()
	state := m.state

	if state == stateEOF {
		panic("jsont: machine received " + typ.String() + " after EOF")
	}

	if state == stateRoot {
		switch typ {
		case TypeEOF:
			m.setAlternative(inst)
			return stateEOF, nil
		case TypeEnd:
			return state, m.fail(m.error(MismatchedEnd, inst))
		case TypeAlternatesWith, TypeOrPredicate:
			return state, m.fail(m.error(NotAllowedAtRoot, inst).WithData(blockNames[stateRoot]))
		}
		m.addConsequent(inst)
		return state, nil
	}

	if typ == TypeEOF {
		return stateEOF, m.fail(m.error(EOFInBlock, inst).WithData(m.currentInfo()))
	}

	switch state {
	case stateAlternatesWith:
		switch typ {
		case TypeAlternatesWith:
			return state, m.fail(m.error(NotAllowedInBlock, inst).WithData(TypeAlternatesWith.String()))
		case TypeOrPredicate:
			m.setAlternative(&EndInst{})
			m.pop()
			return m.chain(inst), nil
		case TypeEnd:
			m.pop()
			m.setAlternative(inst)
			return m.pop(), nil
		}

	case stateMacro:
		switch typ {
		case TypeAlternatesWith, TypeOrPredicate:
			return state, m.fail(m.error(NotAllowedInBlock, inst).WithData(blockNames[state]))
		case TypeEnd:
			m.setAlternative(inst)
			return m.pop(), nil
		}

	case stateRepeated:
		switch typ {
		case TypeAlternatesWith:
			aw := inst.(*AlternatesWithInst)
			m.current.(*RepeatedInst).AlternatesWith = aw
			return m.push(aw), nil
		case TypeOrPredicate:
			return m.chain(inst), nil
		case TypeEnd:
			m.setAlternative(inst)
			return m.pop(), nil
		}

	case stateIf, statePredicate, stateOrPredicate, stateSection:
		switch typ {
		case TypeAlternatesWith:
			return state, m.fail(m.error(NotAllowedInBlock, inst).WithData(blockNames[state]))
		case TypeOrPredicate:
			if parent, ok := m.current.(*PredicateInst); ok && parent.Or && parent.IsElse() {
				return state, m.fail(m.error(DeadCodeBlock, inst))
			}
			return m.chain(inst), nil
		case TypeEnd:
			m.setAlternative(inst)
			return m.pop(), nil
		}
	}

	m.addConsequent(inst)
	return state, nil
}
