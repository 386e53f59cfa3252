// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/rtspscout/internal/config"
	"github.com/ManuGH/rtspscout/internal/netscan"
	"github.com/ManuGH/rtspscout/internal/stream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.Listen = "127.0.0.1:0"
	cfg.Registry.Path = filepath.Join(t.TempDir(), "devices.db")
	return cfg
}

func TestHookStackRunsLIFOOnce(t *testing.T) {
	h := hookStack{logger: zerolog.Nop()}
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		h.register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, h.run(context.Background()))
	require.NoError(t, h.run(context.Background()))
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestHookStackJoinsErrors(t *testing.T) {
	h := hookStack{logger: zerolog.Nop()}
	boom := errors.New("boom")
	ran := false
	h.register("late", func(context.Context) error { ran = true; return nil })
	h.register("early", func(context.Context) error { return boom })

	err := h.run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "hook early")
	assert.True(t, ran, "a failing hook must not stop the rest")
}

func TestNewEngineModes(t *testing.T) {
	cfg := config.Default()
	cfg.Discovery.LivenessMode = config.ModeICMP
	cfg.Discovery.PortMode = config.ModeDial
	cfg.Discovery.ProbeRate = 0.5
	cfg.Discovery.RTSPPorts = []int{8554}

	e, err := NewEngine(cfg, map[string]error{})
	require.NoError(t, err)

	assert.IsType(t, &netscan.ICMPChecker{}, e.Scanner.Reach)
	assert.IsType(t, &netscan.DialScanner{}, e.Scanner.Ports)
	assert.Equal(t, []int{8554}, e.Scanner.RTSPPorts)
	require.NotNil(t, e.Scanner.Limiter)
	assert.Equal(t, 1, e.Scanner.Limiter.Burst())
	assert.NotNil(t, e.Scanner.Resolver)
	assert.Equal(t, cfg.Discovery.ScanTimeout, e.Scanner.ResolveTimeout)
}

func TestNewEngineDefaultsToExecProbes(t *testing.T) {
	cfg := config.Default()
	cfg.Discovery.ResolveHostnames = false

	e, err := NewEngine(cfg, map[string]error{})
	require.NoError(t, err)

	assert.IsType(t, &netscan.PingChecker{}, e.Scanner.Reach)
	assert.IsType(t, &netscan.NetcatScanner{}, e.Scanner.Ports)
	assert.Nil(t, e.Scanner.Limiter)
	assert.Nil(t, e.Scanner.Resolver)
}

func TestNewEngineVendorsFile(t *testing.T) {
	cfg := config.Default()
	cfg.Discovery.VendorsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewEngine(cfg, map[string]error{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load vendor table")
}

func TestCheckBudgetCoversWorstCaseSweep(t *testing.T) {
	cfg := config.Default()
	e, err := NewEngine(cfg, map[string]error{})
	require.NoError(t, err)

	v := cfg.Validation
	probes := time.Duration(v.Retries * len(stream.CandidateURLs("10.0.0.1")))
	sweep := probes*(v.FFprobeTimeout+5*time.Second) + time.Duration(v.Retries-1)*v.RetryBackoff
	assert.Equal(t, v.HealthPingTimeout+livenessSlack+sweep, e.CheckBudget)
	assert.Equal(t, e.CheckBudget, e.Health.MaxCheckDuration)
	assert.Greater(t, e.CheckBudget, 5*time.Minute, "default timeouts outgrow a fixed five minute write deadline")
}

func TestBootstrapWriteTimeoutFollowsCheckBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.Validation.FFprobeTimeout = 30 * time.Second
	d, err := Bootstrap(context.Background(), cfg, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.hooks.run(context.Background()) })

	assert.Equal(t, d.Engine().CheckBudget+writeMargin, d.server.WriteTimeout)
	assert.Greater(t, d.server.WriteTimeout, d.Engine().CheckBudget)
}

func TestBootstrapFailsOnMissingRegistryDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Registry.Path = filepath.Join(t.TempDir(), "missing", "nested", "devices.db")
	_, err := Bootstrap(context.Background(), cfg, "test")
	require.Error(t, err)
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	d, err := Bootstrap(context.Background(), cfg, "1.2.3")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	base := "http://" + d.Addr().String()
	client := &http.Client{Timeout: 5 * time.Second}
	t.Cleanup(client.CloseIdleConnections)

	resp, err := client.Get(base + "/healthz")
	require.NoError(t, err)
	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1.2.3", body.Version)

	resp, err = client.Get(base + "/api/v1/devices")
	require.NoError(t, err)
	var devices struct {
		Devices []json.RawMessage `json:"devices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&devices))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, devices.Devices)

	assert.ErrorIs(t, d.Run(ctx), ErrAlreadyRunning)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, err = client.Get(base + "/healthz")
	assert.Error(t, err, "listener must be closed after shutdown")
}

func TestRunWithoutBootstrap(t *testing.T) {
	var d Daemon
	assert.ErrorIs(t, d.Run(context.Background()), ErrNotBootstrapped)
}

func TestReadinessIncludesStores(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sweep.Interval = time.Hour
	d, err := Bootstrap(context.Background(), cfg, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.hooks.run(context.Background()) })

	names := d.Readiness().Names()
	assert.Contains(t, names, "registry")
	assert.Contains(t, names, "health-sweep")
	for _, tool := range cfg.ToolNames() {
		assert.Contains(t, names, "tool:"+tool)
	}
	assert.NotContains(t, names, "task-store", "memory store has no ping")
}

func TestBootstrapLoadsVendorsFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates: [/cam/realmonitor]
vendors:
  - name: Dahua
    patterns: [/cam/realmonitor]
`), 0o600))
	cfg.Discovery.VendorsFile = path

	d, err := Bootstrap(context.Background(), cfg, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.hooks.run(context.Background()) })

	table := d.Engine().Vendors.Current()
	assert.Equal(t, []string{"/cam/realmonitor"}, table.Templates)
	assert.Equal(t, "Dahua", table.Match("/cam/realmonitor"))
}
