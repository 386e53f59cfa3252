// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"time"

	"github.com/ManuGH/rtspscout/internal/daemon"
	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/netscan"
	"github.com/ManuGH/rtspscout/internal/procexec"
	"github.com/ManuGH/rtspscout/internal/report"
	"github.com/ManuGH/rtspscout/internal/stream"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const validateParallelism = 4

type scanOptions struct {
	output   string
	validate bool
	username string
	password string
}

func (c *cli) scanCmd() *cobra.Command {
	var opts scanOptions
	cmd := &cobra.Command{
		Use:   "scan SUBNET [SUBNET...]",
		Short: "Discover RTSP devices in one or more subnets",
		Example: `  # Scan one /24 and print the report
  rtspscout scan 192.168.1.0/24

  # Scan two subnets, validate every stream and write the report atomically
  rtspscout scan 192.168.1.0/24 10.0.0.0/24 --validate --output report.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runScan(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the JSON report to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "validate the stream of every discovered device")
	cmd.Flags().StringVar(&opts.username, "username", "", "RTSP username used with --validate")
	cmd.Flags().StringVar(&opts.password, "password", "", "RTSP password used with --validate")
	return cmd
}

func (c *cli) newEngine() (*daemon.Engine, error) {
	tools := procexec.LookupTools(c.cfg.ToolNames()...)
	logger := log.WithComponent("cli")
	for name, err := range tools {
		if err != nil {
			logger.Warn().Str(log.FieldTool, name).Err(err).Msg("tool not found, dependent probes will fail")
		}
	}
	return daemon.NewEngine(c.cfg, tools)
}

func (c *cli) runScan(cmd *cobra.Command, subnets []string, opts scanOptions) error {
	ctx := cmd.Context()
	engine, err := c.newEngine()
	if err != nil {
		return err
	}
	logger := log.WithComponent("cli")

	lastPct := -1
	results := engine.Coordinator.ScanManyWithProgress(ctx, subnets, func(p netscan.Progress) {
		if pct := p.Percent(); pct != lastPct {
			lastPct = pct
			logger.Info().Int("percent", pct).Int("hosts_done", p.HostsDone).Int("hosts_total", p.HostsTotal).Msg("scan progress")
		}
	})
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}

	rep := report.NewScanReport(results, time.Now())
	if opts.validate {
		rep.Validations = validateAll(ctx, engine.Validator, results, opts)
	}

	if opts.output != "" {
		if err := report.WriteJSON(ctx, opts.output, rep); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d device(s) in %d subnet(s), report written to %s\n", rep.Devices, len(subnets), opts.output)
		return nil
	}
	return report.Encode(cmd.OutOrStdout(), rep)
}

// validateAll validates every discovered device and returns the results in
// address order.
func validateAll(ctx context.Context, v *stream.Validator, results map[string][]netscan.DeviceDescriptor, opts scanOptions) []stream.ValidationResult {
	var devices []netscan.DeviceDescriptor
	for _, devs := range results {
		devices = append(devices, devs...)
	}
	sort.Slice(devices, func(i, j int) bool {
		a, errA := netip.ParseAddr(devices[i].IPAddress)
		b, errB := netip.ParseAddr(devices[j].IPAddress)
		if errA != nil || errB != nil {
			return devices[i].IPAddress < devices[j].IPAddress
		}
		return a.Less(b)
	})

	out := make([]stream.ValidationResult, len(devices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(validateParallelism)
	for i, dev := range devices {
		g.Go(func() error {
			out[i] = v.Validate(gctx, stream.Request{
				IP:       dev.IPAddress,
				URL:      dev.RTSPURL,
				Username: opts.username,
				Password: opts.password,
			})
			return nil
		})
	}
	_ = g.Wait()
	return out
}
