package sandbox

import (
	"errors"
	"time"
)

// ExecResult holds the output from a sandbox execution.
type ExecResult struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
}

// Config holds sandbox creation parameters.
type Config struct {
	Language   string  `json:"language"`
	Image      string  `json:"image"`
	MemoryMB   int     `json:"memory_mb"`
	CPULimit   float64 `json:"cpu_limit"`
	NetworkOff bool    `json:"network_off"`
}

// DefaultConfig returns limits suited to short learner programs.
func DefaultConfig() Config {
	return Config{
		Language:   "python",
		Image:      "python:3.12-alpine",
		MemoryMB:   128,
		CPULimit:   0.5,
		NetworkOff: true,
	}
}

// WithImage returns a copy of c for another language image.
func (c Config) WithImage(language, image string) Config {
	c.Language = language
	c.Image = image
	return c
}

var (
	ErrDockerUnavailable = errors.New("docker not reachable")
	ErrExecTimeout       = errors.New("sandbox exec timed out")
)
