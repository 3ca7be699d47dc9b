package rules

import (
	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ExpectedOutput returns the output a correct answer group expects, if
// the exercise grades on output at all.
func ExpectedOutput(ex *domain.Exercise) (string, bool) {
	for _, group := range ex.AnswerGroups {
		if !group.Outcome.Correct {
			continue
		}
		for _, rule := range group.Rules {
			if rule.Type == OutputEquals || rule.Type == OutputRoughlyEquals {
				return rule.Input(InputX), true
			}
		}
	}
	return "", false
}

// OutputDiff renders the difference between expected and actual output
// with ANSI colors. It returns the empty string when both normalize equal.
func OutputDiff(expected, actual string) string {
	expected, actual = normalizeOutput(expected), normalizeOutput(actual)
	if expected == actual {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	return dmp.DiffPrettyText(dmp.DiffCleanupSemantic(diffs))
}
