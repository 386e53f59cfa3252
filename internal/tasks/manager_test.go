// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/rtspscout/internal/netscan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeBatch struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	calls    atomic.Int32
	release  chan struct{}
	panicMsg string
	result   map[string][]netscan.DeviceDescriptor
}

func (f *fakeBatch) ScanManyWithProgress(ctx context.Context, subnets []string, report func(netscan.Progress)) map[string][]netscan.DeviceDescriptor {
	f.calls.Add(1)
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	report(netscan.Progress{HostsTotal: 4, HostsDone: 2})
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return map[string][]netscan.DeviceDescriptor{}
		}
	}
	if f.result != nil {
		return f.result
	}
	out := make(map[string][]netscan.DeviceDescriptor, len(subnets))
	for _, s := range subnets {
		out[s] = []netscan.DeviceDescriptor{}
	}
	return out
}

type fakeSink struct {
	mu      sync.Mutex
	devices []netscan.DeviceDescriptor
	err     error
	// onUpsert runs at the start of every upsert.
	onUpsert func()
}

func (s *fakeSink) UpsertDevices(_ context.Context, devices []netscan.DeviceDescriptor) (int, error) {
	if s.onUpsert != nil {
		s.onUpsert()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.devices = append(s.devices, devices...)
	return len(devices), nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

func waitStatus(t *testing.T, m *Manager, id string, want Status) *Task {
	t.Helper()
	var got *Task
	require.Eventually(t, func() bool {
		task, err := m.Get(context.Background(), id)
		if err != nil {
			return false
		}
		got = task
		return task.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestEstimateDuration(t *testing.T) {
	assert.Equal(t, 30, EstimateDuration([]string{"192.168.1.0/24"}))
	// 4094 usable hosts
	assert.Equal(t, 409, EstimateDuration([]string{"10.0.0.0/20"}))
	// invalid subnets count 256 hosts each
	assert.Equal(t, 30, EstimateDuration([]string{"bogus"}))
}

func TestSubmitRejectsEmptySubnets(t *testing.T) {
	m := NewManager(NewMemoryStore(time.Hour), &fakeBatch{}, 1)
	defer m.Shutdown(context.Background())
	_, err := m.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSubnets)
}

func TestTaskCompletesAndRegistersDevices(t *testing.T) {
	found := netscan.DeviceDescriptor{IPAddress: "10.0.0.5", OpenPorts: []int{554}, Vendor: netscan.VendorUnknown}
	scanner := &fakeBatch{result: map[string][]netscan.DeviceDescriptor{
		"10.0.0.0/29": {found},
		"bogus":       {},
	}}
	sink := &fakeSink{}
	m := NewManager(NewMemoryStore(time.Hour), scanner, 2).WithSink(sink)
	defer m.Shutdown(context.Background())
	m.newID = func() string { return "task-1" }

	task, err := m.Submit(context.Background(), []string{"10.0.0.0/29", "bogus"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, StatusRunning, task.Status)
	assert.Equal(t, 30, task.EstimatedDuration)

	done := waitStatus(t, m, "task-1", StatusCompleted)
	assert.Equal(t, 100, done.Progress)
	assert.Empty(t, done.Error)
	require.Contains(t, done.Results, "10.0.0.0/29")
	require.Contains(t, done.Results, "bogus")
	assert.Equal(t, 1, done.DeviceCount())

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestDevicesRegisteredBeforeTaskCompletes(t *testing.T) {
	scanner := &fakeBatch{result: map[string][]netscan.DeviceDescriptor{
		"10.0.0.0/30": {{IPAddress: "10.0.0.1", OpenPorts: []int{554}}},
	}}
	store := NewMemoryStore(time.Hour)
	statusAtUpsert := make(chan Status, 1)
	sink := &fakeSink{}
	m := NewManager(store, scanner, 1).WithSink(sink)
	defer m.Shutdown(context.Background())
	m.newID = func() string { return "task-1" }
	sink.onUpsert = func() {
		task, err := store.Get(context.Background(), "task-1")
		if err != nil {
			statusAtUpsert <- ""
			return
		}
		statusAtUpsert <- task.Status
	}

	_, err := m.Submit(context.Background(), []string{"10.0.0.0/30"})
	require.NoError(t, err)
	waitStatus(t, m, "task-1", StatusCompleted)

	select {
	case st := <-statusAtUpsert:
		assert.Equal(t, StatusRunning, st)
	case <-time.After(time.Second):
		t.Fatal("sink was never called")
	}
	assert.Equal(t, 1, sink.count())
}

func TestSinkFailureKeepsTaskCompleted(t *testing.T) {
	scanner := &fakeBatch{result: map[string][]netscan.DeviceDescriptor{
		"10.0.0.0/30": {{IPAddress: "10.0.0.1", OpenPorts: []int{554}}},
	}}
	m := NewManager(NewMemoryStore(time.Hour), scanner, 1).WithSink(&fakeSink{err: errors.New("disk full")})
	defer m.Shutdown(context.Background())

	task, err := m.Submit(context.Background(), []string{"10.0.0.0/30"})
	require.NoError(t, err)
	waitStatus(t, m, task.ID, StatusCompleted)
}

func TestProgressIsRecorded(t *testing.T) {
	scanner := &fakeBatch{release: make(chan struct{})}
	m := NewManager(NewMemoryStore(time.Hour), scanner, 1)
	defer m.Shutdown(context.Background())

	task, err := m.Submit(context.Background(), []string{"10.0.0.0/30"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := m.Get(context.Background(), task.ID)
		return err == nil && got.Progress == 50 && got.Status == StatusRunning
	}, time.Second, 5*time.Millisecond)

	close(scanner.release)
	waitStatus(t, m, task.ID, StatusCompleted)
}

func TestConcurrentBatchesAreCapped(t *testing.T) {
	scanner := &fakeBatch{release: make(chan struct{})}
	m := NewManager(NewMemoryStore(time.Hour), scanner, 2)
	defer m.Shutdown(context.Background())

	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		task, err := m.Submit(context.Background(), []string{"10.0.0.0/30"})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	require.Eventually(t, func() bool { return scanner.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	// the two queued tasks must not start while both slots are held
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, scanner.calls.Load())

	close(scanner.release)
	for _, id := range ids {
		waitStatus(t, m, id, StatusCompleted)
	}
	scanner.mu.Lock()
	defer scanner.mu.Unlock()
	assert.Equal(t, 2, scanner.peak)
}

func TestPanickingScanFailsTask(t *testing.T) {
	m := NewManager(NewMemoryStore(time.Hour), &fakeBatch{panicMsg: "boom"}, 1)
	defer m.Shutdown(context.Background())

	task, err := m.Submit(context.Background(), []string{"10.0.0.0/30"})
	require.NoError(t, err)
	failed := waitStatus(t, m, task.ID, StatusFailed)
	assert.Contains(t, failed.Error, "boom")
}

func TestShutdownFailsRunningTasks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	scanner := &fakeBatch{release: make(chan struct{})}
	m := NewManager(NewMemoryStore(time.Hour), scanner, 1)

	running, err := m.Submit(context.Background(), []string{"10.0.0.0/30"})
	require.NoError(t, err)
	queued, err := m.Submit(context.Background(), []string{"10.0.1.0/30"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return scanner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	for _, id := range []string{running.ID, queued.ID} {
		got, err := m.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, got.Status)
		assert.NotEmpty(t, got.Error)
	}

	_, err = m.Submit(context.Background(), []string{"10.0.2.0/30"})
	assert.ErrorIs(t, err, ErrShutdown)
}
