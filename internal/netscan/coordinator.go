// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netscan

import (
	"context"
	"sync"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
)

// Progress is a snapshot of a running batch.
type Progress struct {
	HostsTotal int
	HostsDone  int
}

// Percent returns completion in 0..100.
func (p Progress) Percent() int {
	if p.HostsTotal <= 0 {
		return 0
	}
	pct := p.HostsDone * 100 / p.HostsTotal
	if pct > 100 {
		pct = 100
	}
	return pct
}

type subnetScanner interface {
	scanWith(ctx context.Context, subnet string, sem *semaphore.Weighted, onHost func()) ([]DeviceDescriptor, error)
}

// Coordinator scans several subnets at once.
//
// All subnets of one batch share a single semaphore of size Limit, so Limit
// bounds the total number of host chains in flight for the batch, not per
// subnet. Separate batches get separate budgets.
type Coordinator struct {
	scanner subnetScanner
	limit   int
}

// NewCoordinator returns a coordinator over s with a batch-wide limit.
func NewCoordinator(s *Scanner, limit int) *Coordinator {
	return newCoordinator(s, limit)
}

func newCoordinator(s subnetScanner, limit int) *Coordinator {
	if limit < 1 {
		limit = 1
	}
	return &Coordinator{scanner: s, limit: limit}
}

// ScanMany scans subnets concurrently. Every requested subnet is a key in
// the result; subnets that fail to parse or scan map to an empty slice.
func (c *Coordinator) ScanMany(ctx context.Context, subnets []string) map[string][]DeviceDescriptor {
	return c.ScanManyWithProgress(ctx, subnets, nil)
}

// ScanManyWithProgress is ScanMany with a progress callback. Calls to
// report are serialized.
func (c *Coordinator) ScanManyWithProgress(ctx context.Context, subnets []string, report func(Progress)) map[string][]DeviceDescriptor {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "netscan.scan_many")
	defer span.End()

	unique := dedupe(subnets)
	span.SetAttributes(
		attribute.StringSlice(telemetry.DiscoverySubnetsKey, unique),
		attribute.Int(telemetry.DiscoveryLimitKey, c.limit),
	)

	var (
		mu       sync.Mutex
		progress = Progress{HostsTotal: c.totalHosts(unique)}
		results  = make(map[string][]DeviceDescriptor, len(unique))
	)
	onHost := func() {
		mu.Lock()
		defer mu.Unlock()
		progress.HostsDone++
		if report != nil {
			report(progress)
		}
	}

	sem := semaphore.NewWeighted(int64(c.limit))
	var wg sync.WaitGroup
	for _, subnet := range unique {
		wg.Add(1)
		go func(subnet string) {
			defer wg.Done()
			devices := c.scanOne(ctx, subnet, sem, onHost)
			mu.Lock()
			results[subnet] = devices
			mu.Unlock()
		}(subnet)
	}
	wg.Wait()

	total := 0
	for _, d := range results {
		total += len(d)
	}
	span.SetAttributes(attribute.Int(telemetry.DiscoveryDevicesKey, total))
	return results
}

func (c *Coordinator) scanOne(ctx context.Context, subnet string, sem *semaphore.Weighted, onHost func()) (devices []DeviceDescriptor) {
	defer func() {
		if r := recover(); r != nil {
			logger := log.FromContext(ctx)
			logger.Error().Interface("panic", r).Str(log.FieldSubnet, subnet).Msg("subnet scan panicked")
			devices = []DeviceDescriptor{}
		}
	}()
	devices, err := c.scanner.scanWith(ctx, subnet, sem, onHost)
	if err != nil || devices == nil {
		return []DeviceDescriptor{}
	}
	return devices
}

// totalHosts counts hosts the batch will actually try, for progress.
func (c *Coordinator) totalHosts(subnets []string) int {
	maxHosts := 0
	if s, ok := c.scanner.(*Scanner); ok {
		maxHosts = s.MaxHosts
	}
	total := 0
	for _, subnet := range subnets {
		p, err := ParseSubnet(subnet)
		if err != nil {
			continue
		}
		n := CountHosts(p)
		if maxHosts > 0 && n > maxHosts {
			continue
		}
		total += n
	}
	return total
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
