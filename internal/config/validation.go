// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"

	"github.com/ManuGH/rtspscout/internal/validate"
	"github.com/rs/zerolog"
)

// Validate reports every invalid setting at once.
func Validate(cfg Config) error {
	v := validate.New()

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		v.AddError("log.level", err.Error(), cfg.Log.Level)
	}

	d := cfg.Discovery
	v.PositiveDuration("discovery.scan_timeout", d.ScanTimeout)
	v.Positive("discovery.max_concurrent_scans", d.MaxConcurrentScans)
	v.Ports("discovery.rtsp_ports", d.RTSPPorts)
	if d.ProbeRate < 0 {
		v.AddError("discovery.probe_rate", "value cannot be negative", d.ProbeRate)
	}
	v.Positive("discovery.max_hosts_per_subnet", d.MaxHostsPerSubnet)
	v.OneOf("discovery.liveness_mode", d.LivenessMode, []string{ModeExec, ModeICMP})
	v.OneOf("discovery.port_mode", d.PortMode, []string{ModeExec, ModeDial})
	v.PositiveDuration("discovery.vendor_http_timeout", d.VendorHTTPTimeout)

	val := cfg.Validation
	v.PositiveDuration("validation.ffprobe_timeout", val.FFprobeTimeout)
	v.Range("validation.retries", val.Retries, 1, 20)
	v.NonNegativeDuration("validation.retry_backoff", val.RetryBackoff)
	v.PositiveDuration("validation.health_ping_timeout", val.HealthPingTimeout)

	if d.LivenessMode == ModeExec {
		v.NotEmpty("tools.ping", cfg.Tools.Ping)
	}
	if d.PortMode == ModeExec {
		v.NotEmpty("tools.netcat", cfg.Tools.Netcat)
	}
	v.NotEmpty("tools.ffprobe", cfg.Tools.FFprobe)

	t := cfg.Tasks
	v.OneOf("tasks.backend", t.Backend, []string{BackendMemory, BackendRedis, BackendBadger})
	switch t.Backend {
	case BackendRedis:
		v.NotEmpty("tasks.redis_addr", t.RedisAddr)
		v.NonNegative("tasks.redis_db", t.RedisDB)
	case BackendBadger:
		v.NotEmpty("tasks.badger_path", t.BadgerPath)
	}
	v.PositiveDuration("tasks.ttl", t.TTL)
	v.Positive("tasks.max_concurrent", t.MaxConcurrent)

	v.NonNegativeDuration("sweep.interval", cfg.Sweep.Interval)
	v.Positive("sweep.concurrency", cfg.Sweep.Concurrency)
	if cfg.Sweep.Interval > 0 && cfg.Registry.Path == "" {
		v.AddError("sweep.interval", "health sweep needs registry.path", cfg.Sweep.Interval)
	}

	v.ListenAddr("api.listen", cfg.API.Listen)
	v.NonNegative("api.rate_limit", cfg.API.RateLimit)
	v.PositiveDuration("api.rate_window", cfg.API.RateWindow)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.Ratio("telemetry.sampling_rate", cfg.Telemetry.SamplingRate)
	}

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
