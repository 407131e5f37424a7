package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/engine"
	"github.com/kestrelhq/kestrel/internal/executor"
	"github.com/kestrelhq/kestrel/internal/pipeline"
	"github.com/kestrelhq/kestrel/internal/planner"
	"github.com/kestrelhq/kestrel/internal/reasoning"
	"github.com/kestrelhq/kestrel/internal/recorder"
	"github.com/kestrelhq/kestrel/internal/roles"
	"github.com/kestrelhq/kestrel/internal/selection"
)

// app bundles everything a command needs, built from configuration.
type app struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	engine  *engine.Engine
	runtime *pipeline.Runtime
	store   *recorder.Store

	watcher   *catalog.Watcher
	transport pipeline.Transport
}

// buildApp wires the engine from configuration. withRuntime controls whether
// the workflow runtime (and its transport) is constructed; plan-only commands
// skip it.
func buildApp(ctx context.Context, withRuntime bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cat := catalog.NewDefault()
	if cfg.Catalog.Dir != "" {
		if err := cat.LoadDir(cfg.Catalog.Dir); err != nil {
			return nil, fmt.Errorf("loading catalog dir: %w", err)
		}
	}

	a := &app{cfg: cfg, catalog: cat}

	if cfg.Catalog.Dir != "" && cfg.Catalog.Watch {
		watcher, err := cat.Watch(cfg.Catalog.Dir)
		if err != nil {
			return nil, fmt.Errorf("watching catalog dir: %w", err)
		}
		a.watcher = watcher
	}

	store, err := recorder.NewStore(cfg.StoragePath())
	if err != nil {
		return nil, fmt.Errorf("opening decision store: %w", err)
	}
	a.store = store

	reasoner := buildReasoner(cfg)

	reg := executor.NewRegistry()
	executor.RegisterBuiltins(reg, cat)

	if withRuntime {
		transport, err := buildTransport(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.transport = transport
		a.runtime = pipeline.NewRuntime(transport, store, retryConfig(cfg))
	}

	eng, err := engine.New(engine.Deps{
		Catalog: cat,
		Selector: selection.NewEngine(cat, selection.Options{
			Reasoner:    reasoner,
			History:     store,
			TokenBudget: cfg.Defaults.TokenBudget,
		}),
		Planner:  planner.New(cat),
		Mapper:   roles.NewMapper(cat),
		Runner:   executor.NewRunner(reg),
		Runtime:  a.runtime,
		Recorder: store,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = eng

	if a.runtime != nil {
		workers := cfg.Defaults.Workers
		if workers < 1 {
			workers = 1
		}
		if err := eng.RegisterRoleWorkers(a.runtime, workers); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// buildReasoner returns nil when no credentials are configured, which drops
// selection to the heuristic path.
func buildReasoner(cfg *config.Config) reasoning.Reasoner {
	if !cfg.Anthropic.UseBedrock {
		if _, err := config.GetAPIKey(cfg); err != nil {
			return nil
		}
	}
	key, _ := config.GetAPIKey(cfg)
	client, err := reasoning.NewClient(reasoning.ClientConfig{
		Model:         reasoning.ResolveModel(cfg.Anthropic.Model),
		APIKey:        key,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
	})
	if err != nil {
		return nil
	}
	return client
}

func buildTransport(ctx context.Context, cfg *config.Config) (pipeline.Transport, error) {
	switch cfg.Queue.Driver {
	case "", "memory":
		return pipeline.NewMemoryTransport(), nil
	case "nats":
		transport, err := pipeline.NewNATSTransport(ctx, pipeline.NATSConfig{
			URL:  cfg.Queue.NATSURL,
			Name: "kestrel",
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		return transport, nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}

func retryConfig(cfg *config.Config) pipeline.RetryConfig {
	rc := pipeline.DefaultRetryConfig
	if cfg.Retry.MaxRetries > 0 {
		rc.MaxRetries = cfg.Retry.MaxRetries
	}
	if cfg.Retry.BackoffBase > 0 {
		rc.BackoffBase = cfg.Retry.BackoffBase
	}
	if cfg.Retry.BackoffMultiplier > 0 {
		rc.BackoffMultiplier = cfg.Retry.BackoffMultiplier
	}
	if cfg.Retry.MaxBackoff > 0 {
		rc.MaxBackoff = cfg.Retry.MaxBackoff
	}
	if cfg.Retry.RoleTimeout > 0 {
		rc.RoleTimeout = cfg.Retry.RoleTimeout
	}
	return rc
}

// Close releases everything buildApp opened.
func (a *app) Close() {
	if a.runtime != nil {
		a.runtime.Stop()
	}
	if a.transport != nil {
		a.transport.Close()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// deadlineFlag parses a --deadline value, treating 0 as none.
func deadlineFlag(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
