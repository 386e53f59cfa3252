// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netscan

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/rtspscout/internal/procexec"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gauge tracks concurrent callers and the high-water mark.
type gauge struct {
	cur, peak atomic.Int64
}

func (g *gauge) enter() {
	n := g.cur.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (g *gauge) leave() { g.cur.Add(-1) }

type fakeReach struct {
	mu       sync.Mutex
	up       map[string]bool
	allUp    bool
	delay    time.Duration
	inflight *gauge
	calls    []string
}

func (f *fakeReach) IsReachable(ctx context.Context, ip string) bool {
	if f.inflight != nil {
		f.inflight.enter()
		defer f.inflight.leave()
	}
	f.mu.Lock()
	f.calls = append(f.calls, ip)
	up := f.allUp || f.up[ip]
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return false
		}
	}
	return up
}

type fakePorts struct {
	mu    sync.Mutex
	open  map[string][]int
	all   []int
	calls []string
}

func (f *fakePorts) OpenPorts(_ context.Context, ip string, ports []int) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ip)
	if p, ok := f.open[ip]; ok {
		return p
	}
	return f.all
}

type fakeVendor struct {
	mu      sync.Mutex
	calls   []string
	panicOn string
}

func (f *fakeVendor) Identify(_ context.Context, ip string, port int) Identification {
	f.mu.Lock()
	f.calls = append(f.calls, ip)
	f.mu.Unlock()
	if ip == f.panicOn {
		panic("vendor probe exploded")
	}
	return Identification{Vendor: "Generic", CandidateURL: "rtsp://" + ip + ":554/stream1"}
}

type runCall struct {
	name    string
	args    []string
	timeout time.Duration
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	fn    func(name string, args []string) (procexec.Output, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, timeout time.Duration) (procexec.Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runCall{name: name, args: args, timeout: timeout})
	f.mu.Unlock()
	return f.fn(name, args)
}
