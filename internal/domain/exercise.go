package domain

// Exercise represents a code-editor exercise card
type Exercise struct {
	ID          string // slug: "python-v1/basics/print-one"
	PackID      string // "python-v1"
	Title       string
	Prompt      string
	Language    string
	Difficulty  Difficulty
	InitialCode string // customization arg seeded into the editor
	Tags        []string

	AnswerGroups   []AnswerGroup
	DefaultOutcome Outcome
}

// Difficulty represents exercise difficulty level
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// AnswerGroup pairs a set of rules with the outcome shown when all of
// them match a submitted answer.
type AnswerGroup struct {
	Rules   []RuleSpec
	Outcome Outcome
}

// RuleSpec is a single rule instance of an answer group
type RuleSpec struct {
	Type   string
	Inputs map[string]string
}

// Input returns the named rule input or the empty string
func (r RuleSpec) Input(name string) string {
	if r.Inputs == nil {
		return ""
	}
	return r.Inputs[name]
}

// Outcome is the host's reaction to a classified answer
type Outcome struct {
	Feedback string
	Correct  bool
}

// RuleEvaluator decides whether an answer satisfies a rule.
// It travels with every submission so the host can grade answers of an
// interaction it knows nothing about.
type RuleEvaluator interface {
	Evaluate(answer Answer, rule RuleSpec) (bool, error)
}

// ExercisePack represents a collection of related exercises
type ExercisePack struct {
	ID          string
	Name        string
	Version     string
	Description string
	Language    string
	ExerciseIDs []string // ordered list of exercise slugs
}

// HasCorrectGroup returns true if any answer group leads to a correct outcome
func (e *Exercise) HasCorrectGroup() bool {
	for _, g := range e.AnswerGroups {
		if g.Outcome.Correct {
			return true
		}
	}
	return false
}
