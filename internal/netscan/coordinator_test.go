// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netscan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"
)

func TestScanManySharesOneBudget(t *testing.T) {
	g := &gauge{}
	reach := &fakeReach{allUp: true, delay: 20 * time.Millisecond, inflight: g}
	s := NewScanner(reach, &fakePorts{all: []int{554}}, &fakeVendor{})

	res := NewCoordinator(s, 4).ScanMany(context.Background(), []string{
		"10.0.0.0/28", "10.0.1.0/28", "10.0.2.0/28",
	})

	require.Len(t, res, 3)
	for subnet, devices := range res {
		assert.Len(t, devices, 14, subnet)
	}
	assert.LessOrEqual(t, g.peak.Load(), int64(4), "limit is batch-wide, not per subnet")
}

func TestScanManyIsolatesBadSubnets(t *testing.T) {
	s := NewScanner(&fakeReach{allUp: true}, &fakePorts{all: []int{554}}, &fakeVendor{})

	res := NewCoordinator(s, 8).ScanMany(context.Background(), []string{"10.0.0.0/30", "bogus", "10.0.0.0/30"})

	require.Len(t, res, 2)
	assert.Len(t, res["10.0.0.0/30"], 2)
	bogus, ok := res["bogus"]
	require.True(t, ok, "every requested subnet is a key")
	assert.NotNil(t, bogus)
	assert.Empty(t, bogus)
}

type panickySubnetScanner struct {
	inner *Scanner
}

func (p panickySubnetScanner) scanWith(ctx context.Context, subnet string, sem *semaphore.Weighted, onHost func()) ([]DeviceDescriptor, error) {
	if subnet == "10.9.9.0/30" {
		panic("scanner bug")
	}
	return p.inner.scanWith(ctx, subnet, sem, onHost)
}

func TestScanManyRecoversSubnetPanic(t *testing.T) {
	inner := NewScanner(&fakeReach{allUp: true}, &fakePorts{all: []int{554}}, &fakeVendor{})
	c := newCoordinator(panickySubnetScanner{inner: inner}, 2)

	res := c.ScanMany(context.Background(), []string{"10.0.0.0/30", "10.9.9.0/30"})
	assert.Len(t, res["10.0.0.0/30"], 2)
	assert.Empty(t, res["10.9.9.0/30"])
	assert.NotNil(t, res["10.9.9.0/30"])
}

func TestScanManyWithProgress(t *testing.T) {
	s := NewScanner(&fakeReach{}, &fakePorts{}, &fakeVendor{})

	var mu sync.Mutex
	var last Progress
	calls := 0
	NewCoordinator(s, 3).ScanManyWithProgress(context.Background(), []string{"10.0.0.0/29", "10.0.1.0/30", "nope"}, func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		assert.GreaterOrEqual(t, p.HostsDone, last.HostsDone)
		last = p
	})

	assert.Equal(t, 8, calls)
	assert.Equal(t, Progress{HostsTotal: 8, HostsDone: 8}, last)
	assert.Equal(t, 100, last.Percent())
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, Progress{}.Percent())
	assert.Equal(t, 50, Progress{HostsTotal: 10, HostsDone: 5}.Percent())
	assert.Equal(t, 100, Progress{HostsTotal: 1, HostsDone: 3}.Percent())
}
