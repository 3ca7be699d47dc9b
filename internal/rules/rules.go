package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/pencil/internal/domain"
)

// Rule types understood by the code-editor evaluator
const (
	CodeEquals          = "CodeEquals"
	CodeContains        = "CodeContains"
	CodeDoesNotContain  = "CodeDoesNotContain"
	OutputEquals        = "OutputEquals"
	OutputRoughlyEquals = "OutputRoughlyEquals"
	ResultsInError      = "ResultsInError"
	ErrorContains       = "ErrorContains"
)

// InputX is the name of the single input most rules take
const InputX = "x"

var (
	ErrUnknownRule  = errors.New("unknown rule type")
	ErrMissingInput = errors.New("missing rule input")
)

type ruleFunc func(answer domain.Answer, x string) bool

type ruleDef struct {
	needsInput bool
	eval       ruleFunc
}

// Evaluator grades code-editor answers against rule specs
type Evaluator struct {
	rules map[string]ruleDef
}

var _ domain.RuleEvaluator = (*Evaluator)(nil)

// NewEvaluator creates an evaluator with every code-editor rule
func NewEvaluator() *Evaluator {
	return &Evaluator{
		rules: map[string]ruleDef{
			CodeEquals: {true, func(a domain.Answer, x string) bool {
				return NormalizeCode(a.Code) == NormalizeCode(x)
			}},
			CodeContains: {true, func(a domain.Answer, x string) bool {
				return strings.Contains(NormalizeCode(a.Code), NormalizeCode(x))
			}},
			CodeDoesNotContain: {true, func(a domain.Answer, x string) bool {
				return !strings.Contains(NormalizeCode(a.Code), NormalizeCode(x))
			}},
			OutputEquals: {true, func(a domain.Answer, x string) bool {
				return normalizeOutput(a.Output) == normalizeOutput(x)
			}},
			OutputRoughlyEquals: {true, func(a domain.Answer, x string) bool {
				return roughOutput(a.Output) == roughOutput(x)
			}},
			ResultsInError: {false, func(a domain.Answer, _ string) bool {
				return a.HasError()
			}},
			ErrorContains: {true, func(a domain.Answer, x string) bool {
				return strings.Contains(a.Error, x)
			}},
		},
	}
}

// Evaluate reports whether answer satisfies rule
func (e *Evaluator) Evaluate(answer domain.Answer, rule domain.RuleSpec) (bool, error) {
	def, ok := e.rules[rule.Type]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownRule, rule.Type)
	}
	x, present := rule.Inputs[InputX]
	if def.needsInput && !present {
		return false, fmt.Errorf("%w: %s needs %q", ErrMissingInput, rule.Type, InputX)
	}
	return def.eval(answer, x), nil
}

// Supports returns true if the rule type is known
func (e *Evaluator) Supports(ruleType string) bool {
	_, ok := e.rules[ruleType]
	return ok
}

// Types returns the supported rule types
func Types() []string {
	return []string{
		CodeEquals, CodeContains, CodeDoesNotContain,
		OutputEquals, OutputRoughlyEquals,
		ResultsInError, ErrorContains,
	}
}
