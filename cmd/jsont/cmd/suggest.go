package cmd

import (
	"fmt"

	"github.com/agext/levenshtein"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
)

// maxSuggestDistance is the largest edit distance still offered as a
// suggestion.
const maxSuggestDistance = 3

// suggest returns the candidate closest to name, or "" when none is close.
func suggest(name string, candidates []string) string {
	best, bestDistance := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := levenshtein.Distance(name, c, nil); d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}

// hint proposes a registered plugin for unknown formatter and predicate
// errors.
func hint(info *jsont.ErrorInfo, c *jsont.Compiler) string {
	var name any
	var candidates []string
	switch info.Type {
	case jsont.FormatterUnknown:
		name, candidates = info.Param("name"), c.Formatters().Identifiers()
	case jsont.PredicateUnknown:
		name, candidates = info.Param("data"), c.Predicates().Identifiers()
	default:
		return ""
	}
	s, ok := name.(string)
	if !ok {
		return ""
	}
	if match := suggest(s, candidates); match != "" {
		return fmt.Sprintf("did you mean '%s'?", match)
	}
	return ""
}
