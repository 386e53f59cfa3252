// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netscan

import (
	"context"
	"errors"
	"math"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/procexec"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// Reachability answers whether a host responds to a liveness probe.
// Any failure, including a missing probe binary, is reported as false.
type Reachability interface {
	IsReachable(ctx context.Context, ip string) bool
}

// PingChecker sends one echo request through the system ping binary.
type PingChecker struct {
	Runner  procexec.Runner
	Binary  string
	Timeout time.Duration
}

// NewPingChecker returns a PingChecker using binary (default "ping").
func NewPingChecker(runner procexec.Runner, binary string, timeout time.Duration) *PingChecker {
	if binary == "" {
		binary = "ping"
	}
	return &PingChecker{Runner: runner, Binary: binary, Timeout: timeout}
}

// Deadline is the longest a single ping process may run.
func (p *PingChecker) Deadline() time.Duration {
	return p.Timeout + 2*time.Second
}

// IsReachable runs `ping -c 1 -W <secs> ip` and reports exit code 0.
func (p *PingChecker) IsReachable(ctx context.Context, ip string) bool {
	args := []string{"-c", "1", "-W", wholeSeconds(p.Timeout), ip}
	out, err := p.Runner.Run(ctx, p.Binary, args, p.Deadline())
	if err != nil {
		logger := log.FromContext(ctx)
		logger.Debug().Err(err).Str(log.FieldIP, ip).Msg("liveness probe failed")
		return false
	}
	return out.ExitCode == 0
}

// wholeSeconds renders d for tools that take integer seconds, never below 1.
func wholeSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// ICMPChecker sends echo requests in-process over an unprivileged datagram
// ICMP socket. The host must allow it (net.ipv4.ping_group_range on Linux);
// otherwise every probe reports unreachable and the failure is logged once.
type ICMPChecker struct {
	Timeout time.Duration

	seq      atomic.Uint32
	warnOnce sync.Once
}

// NewICMPChecker returns an in-process liveness checker.
func NewICMPChecker(timeout time.Duration) *ICMPChecker {
	return &ICMPChecker{Timeout: timeout}
}

func (c *ICMPChecker) IsReachable(ctx context.Context, ip string) bool {
	target := net.ParseIP(ip).To4()
	if target == nil {
		return false
	}

	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		c.warnOnce.Do(func() {
			logger := log.WithComponent("netscan")
			logger.Warn().Err(err).Msg("unprivileged ICMP unavailable, all hosts will report unreachable")
		})
		return false
	}
	defer func() { _ = conn.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	seq := int(c.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{ID: os.Getpid() & 0xffff, Seq: seq, Data: []byte("rtspscout")},
	}
	payload, err := msg.Marshal(nil)
	if err != nil {
		return false
	}

	deadline := time.Now().Add(c.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return false
	}
	if _, err := conn.WriteTo(payload, &net.UDPAddr{IP: target}); err != nil {
		return false
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if !errors.As(err, &ne) || !ne.Timeout() {
				log.FromContext(ctx).Debug().Err(err).Str(log.FieldIP, ip).Msg("icmp read failed")
			}
			return false
		}
		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), buf[:n])
		if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		// The kernel rewrites the echo ID on datagram sockets, so match on peer.
		if ua, ok := peer.(*net.UDPAddr); ok && ua.IP.Equal(target) {
			return true
		}
	}
}
