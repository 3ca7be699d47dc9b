package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/felixgeelhaar/pencil/internal/player"
	"github.com/felixgeelhaar/pencil/internal/runner"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	base := []string{
		"--config", filepath.Join(t.TempDir(), "config.yaml"),
		"--exercises", "../../exercises",
		"--log-level", "error",
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func lines(ls ...string) func() (string, error) {
	return func() (string, error) {
		if len(ls) == 0 {
			return "", io.EOF
		}
		l := ls[0]
		ls = ls[1:]
		return l, nil
	}
}

func TestReadBlock(t *testing.T) {
	got, err := readBlock(lines("for i in range(3):", "    print(i)", ".", "ignored"))
	if err != nil {
		t.Fatalf("readBlock() error = %v", err)
	}
	if want := "for i in range(3):\n    print(i)\n"; got != want {
		t.Errorf("readBlock() = %q, want %q", got, want)
	}

	got, err = readBlock(lines(" . "))
	if err != nil || got != "" {
		t.Errorf("readBlock(empty) = %q, %v", got, err)
	}

	if _, err := readBlock(lines("print(1)")); !errors.Is(err, io.EOF) {
		t.Errorf("readBlock(unterminated) error = %v, want EOF", err)
	}
}

func TestNumbered(t *testing.T) {
	got := numbered("a = 1\nprint(a)\n")
	want := "  1 | a = 1\n  2 | print(a)"
	if got != want {
		t.Errorf("numbered() = %q, want %q", got, want)
	}
}

func TestPrintGrade(t *testing.T) {
	ex := &domain.Exercise{
		Title: "Print one",
		AnswerGroups: []domain.AnswerGroup{{
			Rules:   []domain.RuleSpec{{Type: "OutputEquals", Inputs: map[string]string{"x": "1"}}},
			Outcome: domain.Outcome{Feedback: "Well done", Correct: true},
		}},
	}

	var out bytes.Buffer
	err := printGrade(&out, ex, &player.RunReport{
		Result:  &runner.Result{Stdout: "1\n"},
		Attempt: &player.Attempt{Answer: domain.Answer{Output: "1\n"}, Outcome: domain.Outcome{Feedback: "Well done", Correct: true}},
	})
	if err != nil {
		t.Fatalf("printGrade(correct) error = %v", err)
	}
	if !strings.Contains(out.String(), "PASS Well done") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	err = printGrade(&out, ex, &player.RunReport{
		Result:  &runner.Result{Stdout: "2\n"},
		Attempt: &player.Attempt{Answer: domain.Answer{Output: "2\n"}, Outcome: domain.Outcome{Feedback: "Try again"}},
	})
	if !errors.Is(err, errIncorrect) {
		t.Fatalf("printGrade(incorrect) error = %v, want errIncorrect", err)
	}
	if !strings.Contains(out.String(), "FAIL Try again") || !strings.Contains(out.String(), "output diff") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	err = printGrade(&out, ex, &player.RunReport{
		Result:  &runner.Result{ExitCode: 1, Stderr: "NameError: name 'x' is not defined\n"},
		Attempt: &player.Attempt{Answer: domain.Answer{Error: "NameError: name 'x' is not defined"}},
	})
	if !errors.Is(err, errIncorrect) {
		t.Fatalf("printGrade(error) error = %v, want errIncorrect", err)
	}
	if strings.Contains(out.String(), "output diff") {
		t.Errorf("error answers should not print a diff: %q", out.String())
	}
	if !strings.Contains(out.String(), "NameError") {
		t.Errorf("output = %q", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if out != "pencil dev\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestExerciseList(t *testing.T) {
	out, err := execute(t, "exercise", "list")
	if err != nil {
		t.Fatalf("exercise list error = %v", err)
	}
	if !strings.Contains(out, "(python-v1)") || !strings.Contains(out, "1 packs, 3 exercises") {
		t.Errorf("exercise list output = %q", out)
	}

	out, err = execute(t, "exercise", "list", "python-v1")
	if err != nil {
		t.Fatalf("exercise list python-v1 error = %v", err)
	}
	if !strings.Contains(out, " 1. python-v1/basics/print-one") {
		t.Errorf("exercise list python-v1 output = %q", out)
	}
}

func TestExerciseInfo(t *testing.T) {
	out, err := execute(t, "exercise", "info", "python-v1/basics/print-one")
	if err != nil {
		t.Fatalf("exercise info error = %v", err)
	}
	for _, want := range []string{"Exercise: Print one", "Expects:    \"1\"", "  1 | print(1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("exercise info output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "exercise", "info", "nope"); err == nil {
		t.Error("exercise info with a bare ID should fail")
	}
	if _, err := execute(t, "exercise", "info", "python-v1/basics/missing"); !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("exercise info missing error = %v, want ErrExerciseNotFound", err)
	}
}

func TestInvalidExecutor(t *testing.T) {
	if _, err := execute(t, "--executor", "vm", "exercise", "list"); err == nil {
		t.Error("unknown executor should fail config validation")
	}
}

func TestGrade(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	dir := t.TempDir()

	good := filepath.Join(dir, "good.py")
	writeFile(t, good, "print(1)\n")
	out, err := execute(t, "grade", "python-v1/basics/print-one", good)
	if err != nil {
		t.Fatalf("grade(good) error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "PASS") || !strings.Contains(out, "python-v1/basics/count-to-three") {
		t.Errorf("grade(good) output = %q", out)
	}

	bad := filepath.Join(dir, "bad.py")
	writeFile(t, bad, "print(2)\n")
	out, err = execute(t, "grade", "python-v1/basics/print-one", bad)
	if !errors.Is(err, errIncorrect) {
		t.Fatalf("grade(bad) error = %v, want errIncorrect", err)
	}
	if !strings.Contains(out, "FAIL") {
		t.Errorf("grade(bad) output = %q", out)
	}

	if _, err := execute(t, "grade", "python-v1", good); err == nil {
		t.Error("grading a pack should fail")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
