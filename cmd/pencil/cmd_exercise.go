package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/felixgeelhaar/pencil/internal/exercise"
	"github.com/felixgeelhaar/pencil/internal/rules"
	"github.com/spf13/cobra"
)

func newExerciseCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Browse exercise packs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list [pack]",
			Short: "List exercise packs, or the exercises of one pack",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				registry, err := openRegistry(opts)
				if err != nil {
					return err
				}
				if len(args) == 1 {
					exercises, err := registry.ListPackExercises(args[0])
					if err != nil {
						return err
					}
					printExercises(cmd.OutOrStdout(), exercises)
					return nil
				}
				printPacks(cmd.OutOrStdout(), registry.ListPacks())
				stats := registry.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "%d packs, %d exercises\n", stats.PackCount, stats.ExerciseCount)
				return nil
			},
		},
		&cobra.Command{
			Use:   "info <pack/category/slug>",
			Short: "Show exercise details",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !strings.Contains(args[0], "/") {
					return fmt.Errorf("exercise ID must be in format: pack/category/slug (e.g., python-v1/basics/print-one)")
				}
				registry, err := openRegistry(opts)
				if err != nil {
					return err
				}
				ex, err := registry.GetExercise(args[0])
				if err != nil {
					return err
				}
				printExerciseInfo(cmd.OutOrStdout(), ex)
				return nil
			},
		},
	)
	return cmd
}

// openRegistry loads pack manifests without starting a runner
func openRegistry(opts *rootOptions) (*exercise.Registry, error) {
	cfg := opts.cfg
	registry, err := exercise.NewRegistry(exercise.NewLoader(cfg.Exercises.Path), cfg.Exercises.CacheSize)
	if err != nil {
		return nil, err
	}
	if err := registry.Load(); err != nil {
		return nil, fmt.Errorf("load exercises from %s: %w", cfg.Exercises.Path, err)
	}
	return registry, nil
}

func printPacks(out io.Writer, packs []*domain.ExercisePack) {
	if len(packs) == 0 {
		fmt.Fprintln(out, "No exercise packs found.")
		return
	}
	fmt.Fprintln(out, "Available Exercise Packs:")
	for _, pack := range packs {
		fmt.Fprintf(out, "  %s (%s)\n", pack.Name, pack.ID)
		if pack.Description != "" {
			fmt.Fprintf(out, "    %s\n", pack.Description)
		}
		fmt.Fprintf(out, "    Language: %s | Exercises: %d\n\n", pack.Language, len(pack.ExerciseIDs))
	}
	fmt.Fprintln(out, "Use 'pencil exercise list <pack>' to see its exercises")
}

func printExercises(out io.Writer, exercises []*domain.Exercise) {
	for i, ex := range exercises {
		fmt.Fprintf(out, "%2d. %s  %s [%s]\n", i+1, ex.ID, ex.Title, ex.Difficulty)
	}
}

func printExerciseInfo(out io.Writer, ex *domain.Exercise) {
	fmt.Fprintf(out, "Exercise: %s\n\n", ex.Title)
	fmt.Fprintf(out, "ID:         %s\n", ex.ID)
	fmt.Fprintf(out, "Language:   %s\n", ex.Language)
	fmt.Fprintf(out, "Difficulty: %s\n", ex.Difficulty)
	if len(ex.Tags) > 0 {
		fmt.Fprintf(out, "Tags:       %s\n", strings.Join(ex.Tags, ", "))
	}
	fmt.Fprintf(out, "Answers:    %d answer groups\n", len(ex.AnswerGroups))
	if expected, ok := rules.ExpectedOutput(ex); ok {
		fmt.Fprintf(out, "Expects:    %q\n", strings.TrimRight(expected, "\n"))
	}
	if ex.Prompt != "" {
		fmt.Fprintf(out, "\nPrompt:\n%s\n", strings.TrimSpace(ex.Prompt))
	}
	if ex.InitialCode != "" {
		fmt.Fprintf(out, "\nStarting code:\n%s\n", numbered(ex.InitialCode))
	}
}
