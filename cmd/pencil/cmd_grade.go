package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/felixgeelhaar/pencil/internal/player"
	"github.com/felixgeelhaar/pencil/internal/rules"
	"github.com/spf13/cobra"
)

// errIncorrect makes grade exit non-zero without printing an error; the
// feedback has already been shown.
var errIncorrect = errors.New("answer is not correct")

func newGradeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "grade <exercise> <file>",
		Short: "Run a solution once and grade it",
		Long: `Grade loads an exercise by ID or from an exercise file, runs the solution
once and prints the outcome. On an incorrect output it prints a diff against
the expected output and exits with status 1.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read solution: %w", err)
			}

			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			exercises, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			if len(exercises) != 1 {
				return fmt.Errorf("%s names a pack; grade takes a single exercise", args[0])
			}

			cfg := a.playerConfig()
			cfg.Exercises = exercises
			p, err := player.New(cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.Edit(string(code)); err != nil {
				return err
			}
			report, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			if err := printGrade(cmd.OutOrStdout(), exercises[0], report); err != nil {
				return err
			}
			if next, err := a.registry.GetNextExercise(exercises[0].ID); err == nil && next != nil {
				dimColor.Fprintf(cmd.OutOrStdout(), "Next: %s (%s)\n", next.Title, next.ID)
			}
			return nil
		},
	}
}

func printGrade(out io.Writer, ex *domain.Exercise, report *player.RunReport) error {
	fmt.Fprintf(out, "%s\n", ex.Title)
	if report.Result != nil && report.Result.Failed() {
		errorColor.Fprintln(out, report.Result.ErrorMessage())
	}

	attempt := report.Attempt
	if attempt == nil {
		return errors.New("run produced no answer")
	}
	if attempt.Outcome.Correct {
		fb := attempt.Outcome.Feedback
		if fb == "" {
			fb = "Correct!"
		}
		correctColor.Fprintf(out, "PASS %s\n", fb)
		return nil
	}

	wrongColor.Fprintf(out, "FAIL %s\n", attempt.Outcome.Feedback)
	if !attempt.Answer.HasError() {
		if expected, ok := rules.ExpectedOutput(ex); ok {
			if diff := rules.OutputDiff(expected, attempt.Answer.Output); diff != "" {
				fmt.Fprintln(out, "output diff (expected vs actual):")
				fmt.Fprintln(out, diff)
			}
		}
	}
	return errIncorrect
}
