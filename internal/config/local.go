package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// LocalConfig holds configuration for the pencil CLI and MCP server
type LocalConfig struct {
	LogLevel  string          `yaml:"log_level"`
	Widget    WidgetConfig    `yaml:"widget"`
	Runner    RunnerConfig    `yaml:"runner"`
	Exercises ExercisesConfig `yaml:"exercises"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// WidgetConfig holds exercise widget settings
type WidgetConfig struct {
	// CooldownMS is how long error answers suppress further submissions
	CooldownMS int `yaml:"cooldown_ms"`
}

// RunnerConfig holds code execution settings
type RunnerConfig struct {
	Executor       string             `yaml:"executor"`
	TimeoutSeconds int                `yaml:"timeout_seconds"`
	Docker         DockerRunnerConfig `yaml:"docker"`
	Resilience     ResilienceConfig   `yaml:"resilience"`
}

// DockerRunnerConfig holds Docker executor settings
type DockerRunnerConfig struct {
	MemoryMB   int     `yaml:"memory_mb"`
	CPULimit   float64 `yaml:"cpu_limit"`
	NetworkOff bool    `yaml:"network_off"`
}

// ResilienceConfig toggles the patterns wrapped around the runner
type ResilienceConfig struct {
	CircuitBreaker bool `yaml:"circuit_breaker"`
	Retry          bool `yaml:"retry"`
	Bulkhead       bool `yaml:"bulkhead"`
	RateLimit      bool `yaml:"rate_limit"`
	MaxConcurrent  int  `yaml:"max_concurrent"`
	RatePerSecond  int  `yaml:"rate_per_second"`
}

// ExercisesConfig locates exercise packs
type ExercisesConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
}

// MetricsConfig holds the Prometheus endpoint settings. An empty Addr
// disables the endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// MCPConfig holds MCP server settings
type MCPConfig struct {
	MaxSessions int `yaml:"max_sessions"`
}

// PencilDir returns the path to ~/.pencil
func PencilDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".pencil"), nil
}

// EnsurePencilDir creates ~/.pencil and subdirectories if they don't exist
func EnsurePencilDir() (string, error) {
	dir, err := PencilDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "exercises"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		LogLevel: "info",
		Widget: WidgetConfig{
			CooldownMS: 1000,
		},
		Runner: RunnerConfig{
			Executor:       "local",
			TimeoutSeconds: 10,
			Docker: DockerRunnerConfig{
				MemoryMB:   128,
				CPULimit:   0.5,
				NetworkOff: true,
			},
			Resilience: ResilienceConfig{
				CircuitBreaker: true,
				Retry:          true,
				Bulkhead:       true,
				RateLimit:      true,
				MaxConcurrent:  4,
				RatePerSecond:  5,
			},
		},
		Exercises: ExercisesConfig{
			Path:      "./exercises",
			CacheSize: 128,
		},
		MCP: MCPConfig{
			MaxSessions: 16,
		},
	}
}

// Cooldown returns the widget error cooldown
func (c *LocalConfig) Cooldown() time.Duration {
	return time.Duration(c.Widget.CooldownMS) * time.Millisecond
}

// Timeout returns the per-run timeout
func (c *LocalConfig) Timeout() time.Duration {
	return time.Duration(c.Runner.TimeoutSeconds) * time.Second
}

// Validate checks settings that would otherwise fail late
func (c *LocalConfig) Validate() error {
	switch c.Runner.Executor {
	case "local", "docker":
	default:
		return fmt.Errorf("%w: runner.executor must be local or docker, got %q", ErrInvalidConfig, c.Runner.Executor)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Widget.CooldownMS <= 0 {
		return fmt.Errorf("%w: widget.cooldown_ms must be positive", ErrInvalidConfig)
	}
	if c.Runner.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: runner.timeout_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadLocalConfig loads ~/.pencil/config.yaml over the defaults and
// applies environment overrides.
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := PencilDir()
	if err != nil {
		return nil, err
	}
	return LoadLocalConfigFrom(filepath.Join(dir, "config.yaml"))
}

// LoadLocalConfigFrom loads configuration from path. A missing file
// yields the defaults.
func LoadLocalConfigFrom(configPath string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveLocalConfig saves configuration to ~/.pencil/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsurePencilDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
