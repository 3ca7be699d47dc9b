package domain

import "strings"

// Answer is the payload a code-editor exercise submits to the host.
// Code is always tab-free; at most one of Output and Error carries
// information for a given submission.
type Answer struct {
	Code       string `json:"code"`
	Output     string `json:"output"`
	Evaluation string `json:"evaluation"`
	Error      string `json:"error"`
}

// AnswerKind classifies a submitted answer by what it carries
type AnswerKind string

const (
	AnswerKindOutput AnswerKind = "output"
	AnswerKindError  AnswerKind = "error"
)

// Kind reports whether the answer records a successful run or a script error
func (a Answer) Kind() AnswerKind {
	if a.Error != "" {
		return AnswerKindError
	}
	return AnswerKindOutput
}

// HasError returns true if the run that produced the answer failed
func (a Answer) HasError() bool {
	return strings.TrimSpace(a.Error) != ""
}

// PriorAnswer is an answer the learner already gave for an exercise.
// Its presence finalizes the exercise screen.
type PriorAnswer struct {
	Code string `json:"code" yaml:"code"`
}
