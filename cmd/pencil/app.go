package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/pencil/internal/config"
	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/felixgeelhaar/pencil/internal/exercise"
	"github.com/felixgeelhaar/pencil/internal/player"
	"github.com/felixgeelhaar/pencil/internal/runner"
	"github.com/felixgeelhaar/pencil/internal/sandbox"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app holds the long-lived components shared by the commands
type app struct {
	cfg      *config.LocalConfig
	logger   *slog.Logger
	runner   runner.Runner
	registry *exercise.Registry
	metrics  *player.Metrics

	closers []func()
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	a := &app{cfg: opts.cfg, logger: opts.logger}

	if err := a.buildRunner(); err != nil {
		a.Close()
		return nil, err
	}

	registry, err := openRegistry(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry = registry

	reg := promclient.NewRegistry()
	metrics, err := player.NewMetrics("pencil", reg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.metrics = metrics
	a.serveMetrics(ctx, reg)

	return a, nil
}

func (a *app) buildRunner() error {
	var base runner.Runner
	switch a.cfg.Runner.Executor {
	case "docker":
		backend, err := sandbox.NewDockerBackend()
		if err != nil {
			return fmt.Errorf("docker executor: %w", err)
		}
		sbCfg := sandbox.DefaultConfig()
		sbCfg.MemoryMB = a.cfg.Runner.Docker.MemoryMB
		sbCfg.CPULimit = a.cfg.Runner.Docker.CPULimit
		sbCfg.NetworkOff = a.cfg.Runner.Docker.NetworkOff

		dr := runner.NewDockerRunner(backend, sbCfg, a.logger)
		a.closers = append(a.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := dr.Close(ctx); err != nil {
				a.logger.Warn("failed to remove sandbox containers", "error", err)
			}
			_ = backend.Close()
		})
		base = dr
	default:
		base = runner.NewLocalRunner(a.logger)
	}

	res := a.cfg.Runner.Resilience
	rr := runner.NewResilientRunner(a.cfg.Runner.Executor, base, runner.ResilientConfig{
		EnableCircuitBreaker: res.CircuitBreaker,
		EnableRetry:          res.Retry,
		EnableBulkhead:       res.Bulkhead,
		EnableRateLimit:      res.RateLimit,
		MaxConcurrent:        res.MaxConcurrent,
		RatePerSecond:        res.RatePerSecond,
		Logger:               a.logger,
	})
	a.closers = append(a.closers, func() { _ = rr.Close() })
	a.runner = rr
	return nil
}

// serveMetrics exposes /metrics until ctx is done. An empty address
// disables the endpoint.
func (a *app) serveMetrics(ctx context.Context, reg *promclient.Registry) {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics endpoint failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	a.closers = append(a.closers, func() { _ = srv.Close() })
}

// playerConfig returns the player template shared by every session
func (a *app) playerConfig() player.Config {
	return player.Config{
		Runner:   a.runner,
		Timeout:  a.cfg.Timeout(),
		Cooldown: a.cfg.Cooldown(),
		Metrics:  a.metrics,
		Logger:   a.logger,
	}
}

// resolve finds exercises by ID, pack ID, or path to an exercise file
func (a *app) resolve(ref string) ([]*domain.Exercise, error) {
	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") {
		if _, err := os.Stat(ref); err == nil {
			path, _ := filepath.Abs(ref)
			ex, err := exercise.NewLoader(a.cfg.Exercises.Path).LoadFile(path)
			if err != nil {
				return nil, err
			}
			return []*domain.Exercise{ex}, nil
		}
	}
	return a.registry.Resolve(ref)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
