// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netscan

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/metrics"
	"github.com/ManuGH/rtspscout/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const tracerName = "rtspscout.netscan"

// DefaultResolveTimeout bounds one reverse lookup when none is configured.
const DefaultResolveTimeout = 2 * time.Second

// DefaultRTSPPorts are probed when no port list is configured.
var DefaultRTSPPorts = []int{554, 8554}

// HostnameResolver does reverse lookups. *net.Resolver satisfies it.
type HostnameResolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// Scanner runs host probe chains over one subnet at a time.
type Scanner struct {
	Reach  Reachability
	Ports  PortScanner
	Vendor VendorIdentifier

	// Resolver is optional; nil skips hostname lookup.
	Resolver HostnameResolver
	// ResolveTimeout bounds each reverse lookup.
	ResolveTimeout time.Duration
	// RTSPPorts are probed in order on every live host.
	RTSPPorts []int
	// MaxHosts rejects larger subnets; zero means no cap.
	MaxHosts int
	// Limiter paces chain starts; nil means unpaced.
	Limiter *rate.Limiter

	now func() time.Time
}

// NewScanner wires the three probe stages with default ports.
func NewScanner(reach Reachability, ports PortScanner, vendor VendorIdentifier) *Scanner {
	return &Scanner{
		Reach:          reach,
		Ports:          ports,
		Vendor:         vendor,
		RTSPPorts:      DefaultRTSPPorts,
		ResolveTimeout: DefaultResolveTimeout,
		now:            time.Now,
	}
}

// WithResolver enables reverse DNS through the default resolver.
func (s *Scanner) WithResolver() *Scanner {
	s.Resolver = net.DefaultResolver
	return s
}

// Scan probes every usable host of subnet with at most limit chains in
// flight and returns descriptors in address order. Invalid or oversized
// subnets yield an empty result.
func (s *Scanner) Scan(ctx context.Context, subnet string, limit int) []DeviceDescriptor {
	if limit < 1 {
		limit = 1
	}
	devices, _ := s.scanWith(ctx, subnet, semaphore.NewWeighted(int64(limit)), nil)
	return devices
}

// scanWith is Scan against a caller-owned semaphore, so a batch can share
// one concurrency budget across subnets. onHost fires once per finished chain.
func (s *Scanner) scanWith(ctx context.Context, subnet string, sem *semaphore.Weighted, onHost func()) ([]DeviceDescriptor, error) {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "netscan.scan_subnet")
	defer span.End()

	logger := log.FromContext(ctx).With().Str(log.FieldSubnet, subnet).Logger()

	prefix, err := ParseSubnet(subnet)
	if err != nil {
		metrics.RecordSubnetScan("invalid")
		span.SetAttributes(telemetry.ErrorAttributes("invalid_subnet")...)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Str(log.FieldEvent, "scan.invalid_subnet").Msg("skipping subnet")
		return []DeviceDescriptor{}, err
	}
	if s.MaxHosts > 0 && CountHosts(prefix) > s.MaxHosts {
		err := fmt.Errorf("%w: %s has %d hosts, limit %d", ErrSubnetTooLarge, prefix, CountHosts(prefix), s.MaxHosts)
		metrics.RecordSubnetScan("too_large")
		span.SetAttributes(telemetry.ErrorAttributes("subnet_too_large")...)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Str(log.FieldEvent, "scan.subnet_too_large").Msg("skipping subnet")
		return []DeviceDescriptor{}, err
	}

	hosts := hostsOf(prefix)
	logger.Info().Str(log.FieldEvent, "scan.start").Int("hosts", len(hosts)).Msg("scanning subnet")

	slots := make([]*DeviceDescriptor, len(hosts))
	var wg sync.WaitGroup
launch:
	for i, addr := range hosts {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				break launch
			}
		}
		// Acquire before spawning: the semaphore bounds live chains, not queued goroutines.
		if err := sem.Acquire(ctx, 1); err != nil {
			break launch
		}
		wg.Add(1)
		go func(i int, addr netip.Addr) {
			defer wg.Done()
			defer sem.Release(1)
			if onHost != nil {
				defer onHost()
			}
			slots[i] = s.scanHost(ctx, addr.String())
		}(i, addr)
	}
	wg.Wait()

	devices := make([]DeviceDescriptor, 0)
	for _, d := range slots {
		if d != nil {
			devices = append(devices, *d)
		}
	}

	result := "ok"
	if ctx.Err() != nil {
		result = "canceled"
	}
	metrics.RecordSubnetScan(result)
	span.SetAttributes(telemetry.DiscoveryAttributes(prefix.String(), len(hosts), len(devices))...)
	logger.Info().
		Str(log.FieldEvent, "scan.done").
		Int("devices", len(devices)).
		Bool("canceled", ctx.Err() != nil).
		Msg("subnet scan finished")
	return devices, nil
}

// scanHost runs one chain. A panic anywhere in the chain drops this host only.
func (s *Scanner) scanHost(ctx context.Context, ip string) (desc *DeviceDescriptor) {
	metrics.HostScansInFlight.Inc()
	defer metrics.HostScansInFlight.Dec()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordHostScan("panic")
			logger := log.FromContext(ctx)
			logger.Error().Interface("panic", r).Str(log.FieldIP, ip).Msg("host scan panicked")
			desc = nil
		}
	}()

	if ctx.Err() != nil {
		return nil
	}
	if !s.Reach.IsReachable(ctx, ip) {
		metrics.RecordHostScan("unreachable")
		return nil
	}

	ports := s.RTSPPorts
	if len(ports) == 0 {
		ports = DefaultRTSPPorts
	}
	open := s.Ports.OpenPorts(ctx, ip, ports)
	if len(open) == 0 {
		metrics.RecordHostScan("no_rtsp_port")
		return nil
	}

	hostname := s.lookupHostname(ctx, ip)
	id := s.Vendor.Identify(ctx, ip, open[0])
	if id.Vendor == "" {
		id.Vendor = VendorUnknown
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	metrics.RecordHostScan("device")
	metrics.RecordDevice(id.Vendor)
	log.FromContext(ctx).Info().
		Str(log.FieldIP, ip).
		Ints("open_ports", open).
		Str(log.FieldVendor, id.Vendor).
		Msg("rtsp device found")

	return &DeviceDescriptor{
		IPAddress:    ip,
		Hostname:     hostname,
		OpenPorts:    open,
		Vendor:       id.Vendor,
		RTSPURL:      id.CandidateURL,
		DiscoveredAt: now().UTC(),
	}
}

func (s *Scanner) lookupHostname(ctx context.Context, ip string) string {
	if s.Resolver == nil {
		return ""
	}
	timeout := s.ResolveTimeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names, err := s.Resolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}
