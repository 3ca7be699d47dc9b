package config

import (
	"os"
	"testing"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"returns default when not set", "TEST_KEY_UNSET", "default", "", "default"},
		{"returns env value when set", "TEST_KEY_SET", "default", "custom", "custom"},
		{"returns empty string env over default", "TEST_KEY_EMPTY", "default", "", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{"returns default when not set", "TEST_INT_UNSET", 100, "", 100},
		{"parses valid int", "TEST_INT_VALID", 100, "42", 42},
		{"returns default on invalid int", "TEST_INT_INVALID", 100, "not-a-number", 100},
		{"parses negative int", "TEST_INT_NEG", 100, "-5", -5},
		{"parses zero", "TEST_INT_ZERO", 100, "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt(%q, %d) = %d, want %d", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvExercisesPath, "/srv/exercises")
	t.Setenv(EnvExecutor, "Docker")
	t.Setenv(EnvCooldownMS, "250")
	t.Setenv(EnvMetricsAddr, ":9464")

	cfg := DefaultLocalConfig()
	ApplyEnv(cfg)

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Exercises.Path != "/srv/exercises" {
		t.Errorf("Exercises.Path = %q, want %q", cfg.Exercises.Path, "/srv/exercises")
	}
	if cfg.Runner.Executor != "docker" {
		t.Errorf("Runner.Executor = %q, want %q", cfg.Runner.Executor, "docker")
	}
	if cfg.Widget.CooldownMS != 250 {
		t.Errorf("Widget.CooldownMS = %d, want 250", cfg.Widget.CooldownMS)
	}
	if cfg.Metrics.Addr != ":9464" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9464")
	}
}

func TestApplyEnv_Unset(t *testing.T) {
	for _, key := range []string{EnvLogLevel, EnvExercisesPath, EnvExecutor, EnvCooldownMS, EnvMetricsAddr} {
		os.Unsetenv(key)
	}

	cfg := DefaultLocalConfig()
	ApplyEnv(cfg)

	want := DefaultLocalConfig()
	if cfg.LogLevel != want.LogLevel || cfg.Runner.Executor != want.Runner.Executor ||
		cfg.Widget.CooldownMS != want.Widget.CooldownMS || cfg.Exercises.Path != want.Exercises.Path {
		t.Errorf("ApplyEnv with nothing set changed config: %+v", cfg)
	}
}
