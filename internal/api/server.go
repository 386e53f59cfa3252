// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes discovery, validation and health checks over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/rtspscout/internal/api/middleware"
	"github.com/ManuGH/rtspscout/internal/health"
	"github.com/ManuGH/rtspscout/internal/registry"
	"github.com/ManuGH/rtspscout/internal/stream"
	"github.com/ManuGH/rtspscout/internal/tasks"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TaskService starts and reports discovery tasks.
type TaskService interface {
	Submit(ctx context.Context, subnets []string) (*tasks.Task, error)
	Get(ctx context.Context, id string) (*tasks.Task, error)
	List(ctx context.Context) ([]*tasks.Task, error)
}

// StreamValidator validates one device.
type StreamValidator interface {
	Validate(ctx context.Context, req stream.Request) stream.ValidationResult
}

// HealthChecker derives one device verdict.
type HealthChecker interface {
	CheckHealth(ctx context.Context, dev stream.DeviceInfo) stream.HealthResult
}

// DeviceRegistry lists registered devices and records verdicts.
type DeviceRegistry interface {
	List(ctx context.Context) ([]registry.Device, error)
	UpdateHealth(ctx context.Context, res stream.HealthResult) error
}

// Deps wires the server. Devices may be nil when no registry is configured.
type Deps struct {
	Tasks     TaskService
	Validator StreamValidator
	Health    HealthChecker
	Devices   DeviceRegistry
	Ready     *health.Manager

	// RateLimit is requests per RateWindow per client on /api; 0 disables.
	RateLimit  int
	RateWindow time.Duration
	// TracingService names HTTP spans; empty disables tracing.
	TracingService string
	// WriteTimeout bounds a response; zero uses DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// DefaultWriteTimeout applies when Deps.WriteTimeout is unset.
const DefaultWriteTimeout = 5 * time.Minute

// Server is the HTTP front of the daemon.
type Server struct {
	deps Deps
}

func New(deps Deps) *Server {
	if deps.Ready == nil {
		deps.Ready = health.NewManager("")
	}
	return &Server{deps: deps}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	middleware.ApplyStack(r, middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.deps.TracingService,
		EnableLogging:  true,
	})

	r.Get("/healthz", s.deps.Ready.ServeHealth)
	r.Get("/readyz", s.deps.Ready.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.deps.RateLimit > 0 && s.deps.RateWindow > 0 {
			r.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestLimit: s.deps.RateLimit,
				WindowSize:   s.deps.RateWindow,
			}))
		}
		r.Route("/discover", func(r chi.Router) {
			r.Post("/", s.handleStartDiscovery)
			r.Get("/", s.handleListDiscovery)
			r.Get("/{taskID}", s.handleGetDiscovery)
		})
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/validate", s.handleValidate)
			r.Post("/health", s.handleHealth)
		})
	})
	return r
}

// NewHTTPServer returns an http.Server with conservative timeouts. The write
// deadline must cover the slowest validation or health request, so the
// daemon derives it from the probe timeouts.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	write := s.deps.WriteTimeout
	if write <= 0 {
		write = DefaultWriteTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       2 * time.Minute,
	}
}
