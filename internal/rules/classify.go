package rules

import (
	"fmt"

	"github.com/felixgeelhaar/pencil/internal/domain"
)

// DefaultGroup is the group index reported when no answer group matched
const DefaultGroup = -1

// Classification is the result of grading an answer against an exercise
type Classification struct {
	GroupIndex int
	Outcome    domain.Outcome
}

// IsDefault returns true if the default outcome was used
func (c Classification) IsDefault() bool {
	return c.GroupIndex == DefaultGroup
}

// Classify returns the first answer group whose rules all match answer,
// or the exercise's default outcome. A group without rules never matches.
func Classify(answer domain.Answer, ex *domain.Exercise, evaluator domain.RuleEvaluator) (Classification, error) {
	for i, group := range ex.AnswerGroups {
		if len(group.Rules) == 0 {
			continue
		}
		matched := true
		for _, rule := range group.Rules {
			ok, err := evaluator.Evaluate(answer, rule)
			if err != nil {
				return Classification{}, fmt.Errorf("answer group %d: %w", i, err)
			}
			if !ok {
				matched = false
				break
			}
		}
		if matched {
			return Classification{GroupIndex: i, Outcome: group.Outcome}, nil
		}
	}
	return Classification{GroupIndex: DefaultGroup, Outcome: ex.DefaultOutcome}, nil
}
