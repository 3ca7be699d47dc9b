package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/felixgeelhaar/pencil/internal/sandbox"
	"github.com/google/uuid"
)

const cleanupTimeout = 10 * time.Second

// ContainerBackend is the subset of the Docker backend the runner needs
type ContainerBackend interface {
	CreateContainer(ctx context.Context, cfg sandbox.Config) (string, error)
	CopyFiles(ctx context.Context, containerID string, files map[string]string) error
	Exec(ctx context.Context, containerID, workDir string, cmd []string, timeout time.Duration) (*sandbox.ExecResult, error)
	IsContainerRunning(ctx context.Context, containerID string) (bool, error)
	DestroyContainer(ctx context.Context, containerID string) error
}

// DockerRunner executes programs inside long-lived, network-less
// containers, one per language, created on first use.
type DockerRunner struct {
	backend ContainerBackend
	base    sandbox.Config
	configs map[Language]LanguageConfig
	logger  *slog.Logger

	mu         sync.Mutex
	containers map[Language]string
}

// NewDockerRunner creates a runner over a container backend
func NewDockerRunner(backend ContainerBackend, base sandbox.Config, logger *slog.Logger) *DockerRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &DockerRunner{
		backend:    backend,
		base:       base,
		configs:    DefaultLanguageConfigs(),
		logger:     logger,
		containers: make(map[Language]string),
	}
}

// Run copies the program into a fresh directory of the language's
// container and executes it there. A run that times out takes the
// container down with it so no stray process outlives the run.
func (r *DockerRunner) Run(ctx context.Context, req Request) (*Result, error) {
	cfg, ok := r.configs[req.Language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.Language)
	}

	containerID, err := r.container(ctx, req.Language, cfg)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	runDir := path.Join(sandbox.WorkDir, runID)
	files := map[string]string{path.Join(runID, cfg.FileName): req.Code}
	if err := r.backend.CopyFiles(ctx, containerID, files); err != nil {
		return nil, fmt.Errorf("%w: copy program: %v", ErrUnavailable, err)
	}

	timeout := timeoutFor(req)
	exec, err := r.backend.Exec(ctx, containerID, runDir, killAfter(timeout, cfg.RunCommand), timeout)
	if errors.Is(err, sandbox.ErrExecTimeout) {
		r.discard(ctx, req.Language, containerID)
		result := &Result{ExitCode: -1, TimedOut: true}
		if exec != nil {
			result.Stdout, result.Stderr, result.Duration = exec.Stdout, exec.Stderr, exec.Duration
		}
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: exec program: %v", ErrUnavailable, err)
	}
	r.cleanup(ctx, containerID, runID)

	r.logger.Debug("program finished", "language", req.Language, "container", shortID(containerID), "exit_code", exec.ExitCode)
	return &Result{
		Stdout:   exec.Stdout,
		Stderr:   exec.Stderr,
		ExitCode: exec.ExitCode,
		Duration: exec.Duration,
	}, nil
}

// killAfter wraps cmd so the container kills it one second after the
// run's deadline even if the exec stream is abandoned.
func killAfter(timeout time.Duration, cmd []string) []string {
	secs := int(math.Ceil(timeout.Seconds())) + 1
	return append([]string{"timeout", "-s", "KILL", strconv.Itoa(secs)}, cmd...)
}

// cleanup removes a finished run's directory
func (r *DockerRunner) cleanup(ctx context.Context, containerID, runID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if _, err := r.backend.Exec(ctx, containerID, sandbox.WorkDir, []string{"rm", "-rf", runID}, cleanupTimeout); err != nil {
		r.logger.Debug("failed to remove run directory", "container", shortID(containerID), "run", runID, "error", err)
	}
}

// discard destroys a container whose program overran its deadline. The
// next run of that language starts a fresh one.
func (r *DockerRunner) discard(ctx context.Context, lang Language, containerID string) {
	r.mu.Lock()
	if r.containers[lang] == containerID {
		delete(r.containers, lang)
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := r.backend.DestroyContainer(ctx, containerID); err != nil {
		r.logger.Warn("failed to destroy timed out container", "language", lang, "container", shortID(containerID), "error", err)
		return
	}
	r.logger.Info("sandbox container destroyed after timeout", "language", lang, "container", shortID(containerID))
}

// container returns a running container for lang, replacing one that died
func (r *DockerRunner) container(ctx context.Context, lang Language, cfg LanguageConfig) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.containers[lang]; ok {
		running, err := r.backend.IsContainerRunning(ctx, id)
		if err == nil && running {
			return id, nil
		}
		r.logger.Warn("sandbox container gone, recreating", "language", lang, "container", shortID(id))
		_ = r.backend.DestroyContainer(ctx, id)
		delete(r.containers, lang)
	}

	id, err := r.backend.CreateContainer(ctx, r.base.WithImage(lang.String(), cfg.DockerImage))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.containers[lang] = id
	r.logger.Info("sandbox container started", "language", lang, "image", cfg.DockerImage, "container", shortID(id))
	return id, nil
}

// Close destroys every container the runner started
func (r *DockerRunner) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for lang, id := range r.containers {
		if err := r.backend.DestroyContainer(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("destroy %s container: %w", lang, err))
		}
		delete(r.containers, lang)
	}
	return errors.Join(errs...)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
