package jsont

// CodeStats is a CodeSink that counts instructions, predicates and
// formatters in a template's instruction stream.
type CodeStats struct {
	TotalInstructions int                     `json:"total_instructions"`
	Instructions      map[InstructionType]int `json:"-"`
	Predicates        map[string]int          `json:"predicates"`
	Formatters        map[string]int          `json:"formatters"`
}

// NewCodeStats returns empty statistics.
func NewCodeStats() *CodeStats {
	return &CodeStats{
		Instructions: make(map[InstructionType]int),
		Predicates:   make(map[string]int),
		Formatters:   make(map[string]int),
	}
}

func (s *CodeStats) Accept(insts ...Instruction) error {
	for _, inst := range insts {
		s.accept(inst)
	}
	return nil
}

func (s *CodeStats) Complete() {}

func (s *CodeStats) accept(inst Instruction) {
	s.TotalInstructions++
	s.Instructions[inst.Type()]++

	switch inst := inst.(type) {
	case *PredicateInst:
		if test, ok := inst.Test.(PredicateTest); ok {
			s.Predicates[test.Predicate.Identifier()]++
		}
	case *IfPredicateInst:
		s.Predicates[inst.Predicate.Identifier()]++
	case *VariableInst:
		s.countFormatters(inst.Formatters)
	case *BindVarInst:
		s.countFormatters(inst.Formatters)
	}
}

func (s *CodeStats) countFormatters(calls []*FormatterCall) {
	for _, call := range calls {
		s.Formatters[call.Formatter.Identifier()]++
	}
}

// InstructionCounts returns the per-type counts keyed by type name.
func (s *CodeStats) InstructionCounts() map[string]int {
	out := make(map[string]int, len(s.Instructions))
	for t, n := range s.Instructions {
		out[t.String()] = n
	}
	return out
}
