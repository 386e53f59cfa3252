// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RTSPSCOUT_"

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "password") || strings.Contains(lower, "token")
}

func envLogger() zerolog.Logger {
	return log.WithComponent("config")
}

// ParseString reads a string from the environment or returns defaultValue.
// Empty variables count as unset. Sensitive values are never logged.
func ParseString(key, defaultValue string) string {
	logger := envLogger()
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		ev.Bool("sensitive", true).Msg("using environment variable")
	} else {
		ev.Str("value", v).Msg("using environment variable")
	}
	return v
}

// ParseInt reads an integer, falling back to defaultValue on parse errors.
func ParseInt(key string, defaultValue int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	logger := envLogger()
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Int("value", i).Str("source", "environment").Msg("using environment variable")
	return i
}

// ParseDuration reads a Go duration ("5s"). A bare integer is taken as seconds.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	logger := envLogger()
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		d := time.Duration(secs) * time.Second
		logger.Debug().Str("key", key).Dur("value", d).Str("source", "environment").Msg("using environment variable")
		return d
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Dur("value", d).Str("source", "environment").Msg("using environment variable")
	return d
}

// ParseBool accepts true/false, 1/0 and yes/no, case-insensitively.
func ParseBool(key string, defaultValue bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	logger := envLogger()
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		logger.Warn().Str("key", key).Str("value", v).Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}

// ParseFloat reads a float64 or returns defaultValue.
func ParseFloat(key string, defaultValue float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger := envLogger()
		logger.Warn().Str("key", key).Str("value", v).Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	return f
}

// ParseIntList reads a comma-separated integer list ("554,8554").
// Any bad element rejects the whole value.
func ParseIntList(key string, defaultValue []int) []int {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		i, err := strconv.Atoi(p)
		if err != nil {
			logger := envLogger()
			logger.Warn().Str("key", key).Str("value", v).Msg("invalid integer list in environment variable, using default")
			return defaultValue
		}
		out = append(out, i)
	}
	return out
}

// applyEnv overlays RTSPSCOUT_* variables onto cfg.
func applyEnv(cfg *Config) {
	p := EnvPrefix

	cfg.Log.Level = ParseString(p+"LOG_LEVEL", cfg.Log.Level)

	d := &cfg.Discovery
	d.ScanTimeout = ParseDuration(p+"SCAN_TIMEOUT", d.ScanTimeout)
	d.MaxConcurrentScans = ParseInt(p+"MAX_CONCURRENT_SCANS", d.MaxConcurrentScans)
	d.RTSPPorts = ParseIntList(p+"RTSP_PORTS", d.RTSPPorts)
	d.ProbeRate = ParseFloat(p+"PROBE_RATE", d.ProbeRate)
	d.MaxHostsPerSubnet = ParseInt(p+"MAX_HOSTS_PER_SUBNET", d.MaxHostsPerSubnet)
	d.LivenessMode = ParseString(p+"LIVENESS_MODE", d.LivenessMode)
	d.PortMode = ParseString(p+"PORT_MODE", d.PortMode)
	d.ResolveHostnames = ParseBool(p+"RESOLVE_HOSTNAMES", d.ResolveHostnames)
	d.VendorHTTPTimeout = ParseDuration(p+"VENDOR_HTTP_TIMEOUT", d.VendorHTTPTimeout)
	d.VendorsFile = ParseString(p+"VENDORS_FILE", d.VendorsFile)

	v := &cfg.Validation
	v.FFprobeTimeout = ParseDuration(p+"FFPROBE_TIMEOUT", v.FFprobeTimeout)
	v.Retries = ParseInt(p+"VALIDATION_RETRIES", v.Retries)
	v.RetryBackoff = ParseDuration(p+"RETRY_BACKOFF", v.RetryBackoff)
	v.HealthPingTimeout = ParseDuration(p+"HEALTH_PING_TIMEOUT", v.HealthPingTimeout)

	t := &cfg.Tools
	t.Ping = ParseString(p+"PING_BIN", t.Ping)
	t.Netcat = ParseString(p+"NC_BIN", t.Netcat)
	t.FFprobe = ParseString(p+"FFPROBE_BIN", t.FFprobe)
	t.Strict = ParseBool(p+"TOOLS_STRICT", t.Strict)

	k := &cfg.Tasks
	k.Backend = ParseString(p+"TASKS_BACKEND", k.Backend)
	k.RedisAddr = ParseString(p+"REDIS_ADDR", k.RedisAddr)
	k.RedisPassword = ParseString(p+"REDIS_PASSWORD", k.RedisPassword)
	k.RedisDB = ParseInt(p+"REDIS_DB", k.RedisDB)
	k.BadgerPath = ParseString(p+"BADGER_PATH", k.BadgerPath)
	k.TTL = ParseDuration(p+"TASK_TTL", k.TTL)
	k.MaxConcurrent = ParseInt(p+"TASKS_MAX_CONCURRENT", k.MaxConcurrent)

	cfg.Registry.Path = ParseString(p+"REGISTRY_PATH", cfg.Registry.Path)

	cfg.Sweep.Interval = ParseDuration(p+"SWEEP_INTERVAL", cfg.Sweep.Interval)
	cfg.Sweep.Concurrency = ParseInt(p+"SWEEP_CONCURRENCY", cfg.Sweep.Concurrency)

	cfg.API.Listen = ParseString(p+"LISTEN", cfg.API.Listen)
	cfg.API.RateLimit = ParseInt(p+"RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.RateWindow = ParseDuration(p+"RATE_WINDOW", cfg.API.RateWindow)

	tel := &cfg.Telemetry
	tel.Enabled = ParseBool(p+"TELEMETRY_ENABLED", tel.Enabled)
	tel.Exporter = ParseString(p+"OTLP_EXPORTER", tel.Exporter)
	tel.Endpoint = ParseString(p+"OTLP_ENDPOINT", tel.Endpoint)
	tel.SamplingRate = ParseFloat(p+"TRACE_SAMPLING", tel.SamplingRate)
	tel.Environment = ParseString(p+"ENVIRONMENT", tel.Environment)
}
