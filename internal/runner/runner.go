package runner

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single program run
const DefaultTimeout = 10 * time.Second

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrTimeout             = errors.New("execution timed out")
	ErrUnavailable         = errors.New("runner unavailable")
)

// Runner executes a learner program and captures what it printed
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Request describes one program run
type Request struct {
	Language Language
	Code     string
	Timeout  time.Duration
}

// Result contains the outcome of a program run. A program that ran but
// failed is a Result with a non-zero ExitCode, not an error.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// Failed returns true if the program did not finish cleanly
func (r *Result) Failed() bool {
	return r.TimedOut || r.ExitCode != 0
}

// ErrorMessage returns the most useful single line describing a failure:
// the last non-empty stderr line, which is where interpreters put the
// exception.
func (r *Result) ErrorMessage() string {
	if r.TimedOut {
		return ErrTimeout.Error()
	}
	lines := strings.Split(strings.TrimRight(r.Stderr, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	if r.ExitCode != 0 {
		return "program exited with status " + strconv.Itoa(r.ExitCode)
	}
	return ""
}

func timeoutFor(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return DefaultTimeout
}
