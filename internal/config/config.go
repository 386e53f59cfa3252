// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads rtspscout configuration: defaults, then a YAML file,
// then RTSPSCOUT_* environment overrides. CLI flags are applied by the caller.
package config

import "time"

// Liveness and port probing modes.
const (
	ModeExec = "exec"
	ModeICMP = "icmp"
	ModeDial = "dial"
)

// Task store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Config is the complete application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Validation ValidationConfig `yaml:"validation"`
	Tools      ToolsConfig      `yaml:"tools"`
	Tasks      TasksConfig      `yaml:"tasks"`
	Registry   RegistryConfig   `yaml:"registry"`
	Sweep      SweepConfig      `yaml:"sweep"`
	API        APIConfig        `yaml:"api"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DiscoveryConfig tunes subnet scanning.
type DiscoveryConfig struct {
	// ScanTimeout bounds each liveness probe and each port probe.
	ScanTimeout        time.Duration `yaml:"scan_timeout"`
	MaxConcurrentScans int           `yaml:"max_concurrent_scans"`
	RTSPPorts          []int         `yaml:"rtsp_ports"`
	// ProbeRate caps host chain starts per second; 0 disables pacing.
	ProbeRate         float64       `yaml:"probe_rate"`
	MaxHostsPerSubnet int           `yaml:"max_hosts_per_subnet"`
	LivenessMode      string        `yaml:"liveness_mode"`
	PortMode          string        `yaml:"port_mode"`
	ResolveHostnames  bool          `yaml:"resolve_hostnames"`
	VendorHTTPTimeout time.Duration `yaml:"vendor_http_timeout"`
	VendorsFile       string        `yaml:"vendors_file"`
}

// ValidationConfig tunes stream validation and health checks.
type ValidationConfig struct {
	FFprobeTimeout    time.Duration `yaml:"ffprobe_timeout"`
	Retries           int           `yaml:"retries"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`
	HealthPingTimeout time.Duration `yaml:"health_ping_timeout"`
}

// ToolsConfig names the external binaries. Strict makes a missing tool fatal.
type ToolsConfig struct {
	Ping    string `yaml:"ping"`
	Netcat  string `yaml:"netcat"`
	FFprobe string `yaml:"ffprobe"`
	Strict  bool   `yaml:"strict"`
}

type TasksConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	BadgerPath    string        `yaml:"badger_path"`
	TTL           time.Duration `yaml:"ttl"`
	MaxConcurrent int           `yaml:"max_concurrent"`
}

// RegistryConfig points at the SQLite device registry; empty disables it.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// SweepConfig schedules periodic health checks of registered devices.
// A zero interval disables the sweep.
type SweepConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
}

type APIConfig struct {
	Listen     string        `yaml:"listen"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Discovery: DiscoveryConfig{
			ScanTimeout:        5 * time.Second,
			MaxConcurrentScans: 50,
			RTSPPorts:          []int{554, 8554},
			MaxHostsPerSubnet:  65536,
			LivenessMode:       ModeExec,
			PortMode:           ModeExec,
			ResolveHostnames:   true,
			VendorHTTPTimeout:  2 * time.Second,
		},
		Validation: ValidationConfig{
			FFprobeTimeout:    10 * time.Second,
			Retries:           3,
			RetryBackoff:      time.Second,
			HealthPingTimeout: 3 * time.Second,
		},
		Tools: ToolsConfig{
			Ping:    "ping",
			Netcat:  "nc",
			FFprobe: "ffprobe",
		},
		Tasks: TasksConfig{
			Backend:       BackendMemory,
			TTL:           24 * time.Hour,
			MaxConcurrent: 2,
		},
		Sweep: SweepConfig{Concurrency: 8},
		API: APIConfig{
			Listen:     ":8080",
			RateLimit:  60,
			RateWindow: time.Minute,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}

// ToolNames lists the configured binaries that the enabled modes need.
func (c Config) ToolNames() []string {
	names := make([]string, 0, 3)
	if c.Discovery.LivenessMode == ModeExec {
		names = append(names, c.Tools.Ping)
	}
	if c.Discovery.PortMode == ModeExec {
		names = append(names, c.Tools.Netcat)
	}
	return append(names, c.Tools.FFprobe)
}
