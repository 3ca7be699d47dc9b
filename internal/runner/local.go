package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// LocalRunner executes programs with interpreters installed on the host.
// It offers no isolation and is meant for development and trusted use.
type LocalRunner struct {
	configs map[Language]LanguageConfig
	logger  *slog.Logger
}

// NewLocalRunner creates a runner that uses host interpreters
func NewLocalRunner(logger *slog.Logger) *LocalRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalRunner{
		configs: DefaultLanguageConfigs(),
		logger:  logger,
	}
}

// Run writes the program to a temp directory and executes it there.
func (r *LocalRunner) Run(ctx context.Context, req Request) (*Result, error) {
	cfg, ok := r.configs[req.Language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.Language)
	}
	if _, err := exec.LookPath(cfg.RunCommand[0]); err != nil {
		return nil, fmt.Errorf("%w: %s not found on PATH", ErrUnavailable, cfg.RunCommand[0])
	}

	tmpDir, err := os.MkdirTemp("", "pencil-run-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	if err := os.WriteFile(filepath.Join(tmpDir, cfg.FileName), []byte(req.Code), 0o644); err != nil {
		return nil, fmt.Errorf("write program: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeoutFor(req))
	defer cancel()

	cmd := exec.CommandContext(runCtx, cfg.RunCommand[0], cfg.RunCommand[1:]...)
	cmd.Dir = tmpDir
	cmd.Env = append(os.Environ(), "GOCACHE="+filepath.Join(os.TempDir(), "pencil-gocache"))

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: duration,
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1
		r.logger.Debug("program timed out", "language", req.Language, "duration", duration)
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("start program: %w", runErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	r.logger.Debug("program finished", "language", req.Language, "exit_code", result.ExitCode, "duration", duration)
	return result, nil
}
