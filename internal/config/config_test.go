// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/rtspscout/internal/validate"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMergesYAMLOverDefaults(t *testing.T) {
	path := writeConfig(t, "rtspscout.yaml", `
discovery:
  scan_timeout: 2s
  rtsp_ports: [554, 10554]
  liveness_mode: icmp
validation:
  retries: 5
tasks:
  backend: redis
  redis_addr: 127.0.0.1:6379
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Discovery.ScanTimeout)
	assert.Equal(t, []int{554, 10554}, cfg.Discovery.RTSPPorts)
	assert.Equal(t, ModeICMP, cfg.Discovery.LivenessMode)
	assert.Equal(t, 5, cfg.Validation.Retries)
	assert.Equal(t, BackendRedis, cfg.Tasks.Backend)
	// untouched keys keep defaults
	assert.Equal(t, 50, cfg.Discovery.MaxConcurrentScans)
	assert.Equal(t, 10*time.Second, cfg.Validation.FFprobeTimeout)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "discovery:\n  scan_timeot: 2s\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "multi.yaml", "log:\n  level: info\n---\nlog:\n  level: debug\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeConfig(t, "empty.yml", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().API.Listen, cfg.API.Listen)
}

func TestLoadRejectsNonYAMLExtension(t *testing.T) {
	path := writeConfig(t, "config.json", "{}")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "rtspscout.yaml", "discovery:\n  max_concurrent_scans: 10\n")
	t.Setenv("RTSPSCOUT_MAX_CONCURRENT_SCANS", "25")
	t.Setenv("RTSPSCOUT_RTSP_PORTS", "554, 8554 ,10554")
	t.Setenv("RTSPSCOUT_RETRY_BACKOFF", "250ms")
	t.Setenv("RTSPSCOUT_SCAN_TIMEOUT", "3")
	t.Setenv("RTSPSCOUT_TOOLS_STRICT", "yes")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Discovery.MaxConcurrentScans)
	assert.Equal(t, []int{554, 8554, 10554}, cfg.Discovery.RTSPPorts)
	assert.Equal(t, 250*time.Millisecond, cfg.Validation.RetryBackoff)
	assert.Equal(t, 3*time.Second, cfg.Discovery.ScanTimeout)
	assert.True(t, cfg.Tools.Strict)
}

func TestInvalidEnvFallsBackToCurrentValue(t *testing.T) {
	t.Setenv("RTSPSCOUT_MAX_CONCURRENT_SCANS", "many")
	t.Setenv("RTSPSCOUT_RTSP_PORTS", "554,abc")
	t.Setenv("RTSPSCOUT_RESOLVE_HOSTNAMES", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Discovery.MaxConcurrentScans)
	assert.Equal(t, []int{554, 8554}, cfg.Discovery.RTSPPorts)
	assert.True(t, cfg.Discovery.ResolveHostnames)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Discovery.MaxConcurrentScans = 0
	cfg.Discovery.RTSPPorts = []int{554, 70000}
	cfg.Discovery.PortMode = "syn"
	cfg.Validation.Retries = 0
	cfg.Tasks.Backend = BackendBadger
	cfg.Sweep.Interval = time.Minute

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	var verr validate.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make(map[string]bool)
	for _, e := range verr.Errors() {
		fields[e.Field] = true
	}
	for _, want := range []string{
		"discovery.max_concurrent_scans",
		"discovery.rtsp_ports[1]",
		"discovery.port_mode",
		"validation.retries",
		"tasks.badger_path",
		"sweep.interval",
	} {
		assert.True(t, fields[want], "missing error for %s", want)
	}
}

func TestValidateTelemetryOnlyWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.Exporter = "zipkin"
	require.NoError(t, Validate(cfg))

	cfg.Telemetry.Enabled = true
	require.Error(t, Validate(cfg))
}

func TestToolNamesFollowModes(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"ping", "nc", "ffprobe"}, cfg.ToolNames())

	cfg.Discovery.LivenessMode = ModeICMP
	cfg.Discovery.PortMode = ModeDial
	assert.Equal(t, []string{"ffprobe"}, cfg.ToolNames())
}

func TestParseStringTreatsEmptyAsUnset(t *testing.T) {
	t.Setenv("RTSPSCOUT_TEST_VALUE", "")
	assert.Equal(t, "fallback", ParseString("RTSPSCOUT_TEST_VALUE", "fallback"))
	t.Setenv("RTSPSCOUT_TEST_VALUE", "set")
	assert.Equal(t, "set", ParseString("RTSPSCOUT_TEST_VALUE", "fallback"))
}
