// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"fmt"
	"time"

	"github.com/ManuGH/rtspscout/internal/config"
	"github.com/ManuGH/rtspscout/internal/netscan"
	"github.com/ManuGH/rtspscout/internal/procexec"
	"github.com/ManuGH/rtspscout/internal/stream"
	"golang.org/x/time/rate"
)

// Engine is the probing core shared by the daemon and the one-shot CLI
// commands. It holds no stores and serves nothing.
type Engine struct {
	Config config.Config
	// Tools is the startup lookup of every configured binary.
	Tools map[string]error

	Runner      procexec.Runner
	Vendors     *netscan.VendorSource
	Scanner     *netscan.Scanner
	Coordinator *netscan.Coordinator
	Validator   *stream.Validator
	Health      *stream.HealthChecker

	// CheckBudget is the longest one health check without a known URL can
	// take: a ping followed by a full candidate sweep where every ffprobe
	// runs into its deadline.
	CheckBudget time.Duration
}

// livenessSlack covers the ping process deadline over its reply timeout.
const livenessSlack = 2 * time.Second

// NewEngine builds the probe chain described by cfg. tools is the result
// of procexec.LookupTools(cfg.ToolNames()...); a missing tool makes the
// operations using it fail fast instead of failing construction.
func NewEngine(cfg config.Config, tools map[string]error) (*Engine, error) {
	runner := procexec.NewGuarded(procexec.NewExecRunner(), tools)

	table := netscan.DefaultVendorTable()
	if cfg.Discovery.VendorsFile != "" {
		loaded, err := netscan.LoadVendorTable(cfg.Discovery.VendorsFile)
		if err != nil {
			return nil, fmt.Errorf("load vendor table: %w", err)
		}
		table = loaded
	}
	vendors := netscan.NewVendorSource(table)

	d := cfg.Discovery
	scanner := netscan.NewScanner(
		newReachability(cfg, runner, d.ScanTimeout),
		newPortScanner(cfg, runner),
		netscan.NewHTTPIdentifier(vendors, d.VendorHTTPTimeout),
	)
	if len(d.RTSPPorts) > 0 {
		scanner.RTSPPorts = d.RTSPPorts
	}
	scanner.MaxHosts = d.MaxHostsPerSubnet
	if d.ProbeRate > 0 {
		burst := int(d.ProbeRate)
		if burst < 1 {
			burst = 1
		}
		scanner.Limiter = rate.NewLimiter(rate.Limit(d.ProbeRate), burst)
	}
	if d.ResolveHostnames {
		scanner.WithResolver()
		scanner.ResolveTimeout = d.ScanTimeout
	}

	v := cfg.Validation
	ffprobe := stream.NewFFprobe(runner, cfg.Tools.FFprobe, v.FFprobeTimeout)
	validator := stream.NewValidator(ffprobe, v.Retries, v.RetryBackoff)
	budget := v.HealthPingTimeout + livenessSlack + validator.MaxDuration(ffprobe.Deadline())

	checker := stream.NewHealthChecker(newReachability(cfg, runner, v.HealthPingTimeout), validator)
	checker.MaxCheckDuration = budget

	return &Engine{
		Config:      cfg,
		Tools:       tools,
		Runner:      runner,
		Vendors:     vendors,
		Scanner:     scanner,
		Coordinator: netscan.NewCoordinator(scanner, d.MaxConcurrentScans),
		Validator:   validator,
		Health:      checker,
		CheckBudget: budget,
	}, nil
}

func newReachability(cfg config.Config, runner procexec.Runner, timeout time.Duration) netscan.Reachability {
	if cfg.Discovery.LivenessMode == config.ModeICMP {
		return netscan.NewICMPChecker(timeout)
	}
	return netscan.NewPingChecker(runner, cfg.Tools.Ping, timeout)
}

func newPortScanner(cfg config.Config, runner procexec.Runner) netscan.PortScanner {
	if cfg.Discovery.PortMode == config.ModeDial {
		return netscan.NewDialScanner(cfg.Discovery.ScanTimeout)
	}
	return netscan.NewNetcatScanner(runner, cfg.Tools.Netcat, cfg.Discovery.ScanTimeout)
}
