package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables that override the config file
const (
	EnvLogLevel      = "PENCIL_LOG_LEVEL"
	EnvExercisesPath = "PENCIL_EXERCISES_PATH"
	EnvExecutor      = "PENCIL_EXECUTOR"
	EnvCooldownMS    = "PENCIL_COOLDOWN_MS"
	EnvMetricsAddr   = "PENCIL_METRICS_ADDR"
)

// ApplyEnv overrides cfg with any PENCIL_* variables that are set
func ApplyEnv(cfg *LocalConfig) {
	cfg.LogLevel = strings.ToLower(getEnv(EnvLogLevel, cfg.LogLevel))
	cfg.Exercises.Path = getEnv(EnvExercisesPath, cfg.Exercises.Path)
	cfg.Runner.Executor = strings.ToLower(getEnv(EnvExecutor, cfg.Runner.Executor))
	cfg.Widget.CooldownMS = getEnvInt(EnvCooldownMS, cfg.Widget.CooldownMS)
	cfg.Metrics.Addr = getEnv(EnvMetricsAddr, cfg.Metrics.Addr)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
