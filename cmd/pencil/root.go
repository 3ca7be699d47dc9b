package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/felixgeelhaar/pencil/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath    string
	logLevel      string
	exercisesPath string
	executor      string

	cfg    *config.LocalConfig
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pencil",
		Short: "Play and grade code-editor exercises",
		Long: `Pencil plays code-editor exercises in the terminal. Each exercise starts
from some code; running it submits the program's output for grading, and a
correct answer moves on to the next exercise in the pack.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.pencil/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.exercisesPath, "exercises", "", "directory holding exercise packs")
	flags.StringVar(&opts.executor, "executor", "", "code runner: local or docker")

	cmd.AddCommand(
		newPlayCmd(opts),
		newGradeCmd(opts),
		newExerciseCmd(opts),
		newMCPCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the config file, applies flag overrides and installs the logger
func (o *rootOptions) load() error {
	var (
		cfg *config.LocalConfig
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadLocalConfigFrom(o.configPath)
	} else {
		cfg, err = config.LoadLocalConfig()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if o.logLevel != "" {
		cfg.LogLevel = strings.ToLower(o.logLevel)
	}
	if o.exercisesPath != "" {
		cfg.Exercises.Path = o.exercisesPath
	}
	if o.executor != "" {
		cfg.Runner.Executor = strings.ToLower(o.executor)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(o.logger)
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// Skip config loading; version must work with a broken config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pencil %s\n", Version)
		},
	}
}
