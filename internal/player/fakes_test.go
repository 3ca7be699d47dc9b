package player

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/felixgeelhaar/pencil/internal/rules"
	"github.com/felixgeelhaar/pencil/internal/runner"
	"github.com/felixgeelhaar/pencil/internal/widget"
)

// scriptRunner "runs" code by looking for print(...) and raise calls.
type scriptRunner struct {
	mu   sync.Mutex
	runs int
}

func (r *scriptRunner) Run(_ context.Context, req runner.Request) (*runner.Result, error) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()

	var out, errOut strings.Builder
	for _, line := range strings.Split(req.Code, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "print(") && strings.HasSuffix(line, ")"):
			out.WriteString(strings.Trim(line[len("print("):len(line)-1], `"'`))
			out.WriteByte('\n')
		case strings.HasPrefix(line, "raise "):
			errOut.WriteString("Traceback (most recent call last):\n")
			errOut.WriteString(strings.TrimPrefix(line, "raise ") + "\n")
			return &runner.Result{Stdout: out.String(), Stderr: errOut.String(), ExitCode: 1}, nil
		}
	}
	return &runner.Result{Stdout: out.String()}, nil
}

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) widget.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	timers := s.timers
	s.timers = nil
	s.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.fn()
		}
	}
}

func printExercise(id, want string) *domain.Exercise {
	return &domain.Exercise{
		ID:          id,
		Title:       "Print " + want,
		Prompt:      "Print " + want + ".",
		Language:    "python",
		InitialCode: "# your code here\n",
		AnswerGroups: []domain.AnswerGroup{{
			Rules:   []domain.RuleSpec{{Type: rules.OutputEquals, Inputs: map[string]string{rules.InputX: want}}},
			Outcome: domain.Outcome{Feedback: "Correct!", Correct: true},
		}, {
			Rules:   []domain.RuleSpec{{Type: rules.ResultsInError}},
			Outcome: domain.Outcome{Feedback: "Your code raised an error."},
		}},
		DefaultOutcome: domain.Outcome{Feedback: "Not quite."},
	}
}

// downRunner fails every run before a program starts.
type downRunner struct{ err error }

func (r downRunner) Run(context.Context, runner.Request) (*runner.Result, error) {
	return nil, r.err
}
