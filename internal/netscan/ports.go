// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netscan

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/procexec"
)

// PortScanner reports which candidate ports accept a TCP connection.
// Ports are probed one at a time per host; the result keeps input order.
type PortScanner interface {
	OpenPorts(ctx context.Context, ip string, ports []int) []int
}

// NetcatScanner probes with `nc -z -w <secs> ip port`.
type NetcatScanner struct {
	Runner  procexec.Runner
	Binary  string
	Timeout time.Duration
}

// NewNetcatScanner returns a NetcatScanner using binary (default "nc").
func NewNetcatScanner(runner procexec.Runner, binary string, timeout time.Duration) *NetcatScanner {
	if binary == "" {
		binary = "nc"
	}
	return &NetcatScanner{Runner: runner, Binary: binary, Timeout: timeout}
}

func (s *NetcatScanner) OpenPorts(ctx context.Context, ip string, ports []int) []int {
	open := make([]int, 0, len(ports))
	for _, port := range ports {
		if ctx.Err() != nil {
			break
		}
		args := []string{"-z", "-w", wholeSeconds(s.Timeout), ip, strconv.Itoa(port)}
		out, err := s.Runner.Run(ctx, s.Binary, args, s.Timeout+time.Second)
		if err != nil {
			log.FromContext(ctx).Debug().Err(err).Str(log.FieldIP, ip).Int(log.FieldPort, port).Msg("port probe failed")
			continue
		}
		if out.ExitCode == 0 {
			open = append(open, port)
		}
	}
	return open
}

// DialScanner connects in-process with a net.Dialer.
type DialScanner struct {
	Timeout time.Duration
}

// NewDialScanner returns an in-process TCP connect scanner.
func NewDialScanner(timeout time.Duration) *DialScanner {
	return &DialScanner{Timeout: timeout}
}

func (s *DialScanner) OpenPorts(ctx context.Context, ip string, ports []int) []int {
	d := net.Dialer{Timeout: s.Timeout}
	open := make([]int, 0, len(ports))
	for _, port := range ports {
		if ctx.Err() != nil {
			break
		}
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		_ = conn.Close()
		open = append(open, port)
	}
	return open
}
