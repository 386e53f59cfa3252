// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/rtspscout/internal/api"
	"github.com/ManuGH/rtspscout/internal/config"
	"github.com/ManuGH/rtspscout/internal/health"
	"github.com/ManuGH/rtspscout/internal/jobs"
	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/procexec"
	"github.com/ManuGH/rtspscout/internal/registry"
	"github.com/ManuGH/rtspscout/internal/tasks"
	"github.com/ManuGH/rtspscout/internal/telemetry"
	"github.com/rs/zerolog"
)

const (
	serviceName     = "rtspscout"
	shutdownTimeout = 30 * time.Second
	// writeMargin is added to the check budget for decoding and encoding.
	writeMargin = 30 * time.Second
)

// Daemon is a fully wired rtspscout server. Build it with Bootstrap and
// start it with Run.
type Daemon struct {
	cfg     config.Config
	version string
	logger  zerolog.Logger

	engine   *Engine
	tasks    *tasks.Manager
	store    tasks.Store
	registry *registry.Store
	sweeper  *jobs.Sweeper
	ready    *health.Manager

	server   *http.Server
	listener net.Listener

	hooks hookStack

	mu      sync.Mutex
	running bool
}

// Bootstrap runs the startup checks, opens the stores and binds the listen
// address. On error everything opened so far is closed again.
func Bootstrap(ctx context.Context, cfg config.Config, version string) (_ *Daemon, err error) {
	logger := log.WithComponent("daemon")
	d := &Daemon{
		cfg:     cfg,
		version: version,
		logger:  logger,
		hooks:   hookStack{logger: logger},
	}
	defer func() {
		if err != nil {
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			_ = d.hooks.run(closeCtx)
		}
	}()

	tools := procexec.LookupTools(cfg.ToolNames()...)
	if err := health.PerformStartupChecks(ctx, cfg, tools); err != nil {
		return nil, err
	}

	if err := d.initTelemetry(ctx); err != nil {
		return nil, err
	}

	d.engine, err = NewEngine(cfg, tools)
	if err != nil {
		return nil, err
	}

	d.store, err = tasks.OpenStore(ctx, cfg.Tasks)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}
	d.hooks.register("task-store", func(context.Context) error { return d.store.Close() })

	if cfg.Registry.Path != "" {
		d.registry, err = registry.Open(cfg.Registry.Path)
		if err != nil {
			return nil, fmt.Errorf("open device registry: %w", err)
		}
		d.hooks.register("registry", func(context.Context) error { return d.registry.Close() })
		d.sweeper = jobs.NewSweeper(d.registry, d.engine.Health, cfg.Sweep.Concurrency)
	}

	d.tasks = tasks.NewManager(d.store, d.engine.Coordinator, cfg.Tasks.MaxConcurrent)
	if d.registry != nil {
		d.tasks.WithSink(d.registry)
	}
	d.hooks.register("task-manager", d.tasks.Shutdown)

	d.ready = d.buildReadiness()

	deps := api.Deps{
		Tasks:      d.tasks,
		Validator:  d.engine.Validator,
		Health:     d.engine.Health,
		Ready:      d.ready,
		RateLimit:    cfg.API.RateLimit,
		RateWindow:   cfg.API.RateWindow,
		WriteTimeout: d.engine.CheckBudget + writeMargin,
	}
	if d.registry != nil {
		deps.Devices = d.registry
	}
	if cfg.Telemetry.Enabled {
		deps.TracingService = serviceName
	}
	d.server = api.New(deps).NewHTTPServer(cfg.API.Listen)

	d.listener, err = net.Listen("tcp", cfg.API.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.API.Listen, err)
	}
	d.hooks.register("listener", func(context.Context) error {
		// Serve closes it on the normal path
		if cerr := d.listener.Close(); cerr != nil && !isClosedErr(cerr) {
			return cerr
		}
		return nil
	})

	logger.Info().
		Str("listen", d.listener.Addr().String()).
		Str("task_backend", cfg.Tasks.Backend).
		Bool("registry", d.registry != nil).
		Dur("sweep_interval", cfg.Sweep.Interval).
		Msg("daemon bootstrapped")
	return d, nil
}

func (d *Daemon) initTelemetry(ctx context.Context) error {
	t := d.cfg.Telemetry
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        t.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: d.version,
		Environment:    t.Environment,
		ExporterType:   t.Exporter,
		Endpoint:       t.Endpoint,
		SamplingRate:   t.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	d.hooks.register("telemetry", provider.Shutdown)
	return nil
}

// buildReadiness registers one checker per tool plus the stores and the
// health sweep.
func (d *Daemon) buildReadiness() *health.Manager {
	m := health.NewManager(d.version)
	for _, c := range health.ToolCheckers(d.engine.Tools, d.cfg.Tools.Strict) {
		m.RegisterChecker(c)
	}
	if p, ok := d.store.(interface{ Ping(context.Context) error }); ok {
		m.RegisterChecker(health.NewPingChecker("task-store", p.Ping))
	}
	if d.registry != nil {
		m.RegisterChecker(health.NewPingChecker("registry", d.registry.Ping))
	}
	if d.sweeper != nil && d.cfg.Sweep.Interval > 0 {
		sweeper := d.sweeper
		m.RegisterChecker(health.NewLastRunChecker("health-sweep", 3*d.cfg.Sweep.Interval, func() (time.Time, string) {
			s := sweeper.LastStatus()
			return s.LastRun, s.Error
		}))
	}
	return m
}

// Addr is the bound listen address.
func (d *Daemon) Addr() net.Addr {
	return d.listener.Addr()
}

// Engine exposes the probe chain.
func (d *Daemon) Engine() *Engine {
	return d.engine
}

// Readiness exposes the readiness manager.
func (d *Daemon) Readiness() *health.Manager {
	return d.ready
}
