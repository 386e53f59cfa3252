// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/metrics"
	"github.com/ManuGH/rtspscout/internal/netscan"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	minEstimatedSeconds = 30
	hostsPerSecond      = 10
	storeWriteTimeout   = 5 * time.Second
)

// BatchScanner is the discovery engine a task drives.
type BatchScanner interface {
	ScanManyWithProgress(ctx context.Context, subnets []string, report func(netscan.Progress)) map[string][]netscan.DeviceDescriptor
}

// DeviceSink receives the devices of every completed task.
type DeviceSink interface {
	UpsertDevices(ctx context.Context, devices []netscan.DeviceDescriptor) (int, error)
}

// Manager starts discovery tasks and tracks them in a Store. At most
// maxConcurrent batches scan at once; later submissions stay "running" at
// 0% until a slot frees up.
type Manager struct {
	store   Store
	scanner BatchScanner
	sink    DeviceSink
	sem     *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool

	now   func() time.Time
	newID func() string
}

func NewManager(store Store, scanner BatchScanner, maxConcurrent int) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:   store,
		scanner: scanner,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithSink registers a consumer for discovered devices.
func (m *Manager) WithSink(sink DeviceSink) *Manager {
	m.sink = sink
	return m
}

// EstimateDuration returns the expected runtime in seconds for subnets.
func EstimateDuration(subnets []string) int {
	est := netscan.EstimateHosts(subnets) / hostsPerSecond
	if est < minEstimatedSeconds {
		return minEstimatedSeconds
	}
	return est
}

// Submit records a new running task and starts it in the background. The
// caller's ctx only bounds the initial store write.
func (m *Manager) Submit(ctx context.Context, subnets []string) (*Task, error) {
	if len(subnets) == 0 {
		return nil, ErrNoSubnets
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrShutdown
	}

	now := m.now().UTC()
	task := &Task{
		ID:                m.newID(),
		Status:            StatusRunning,
		Subnets:           append([]string(nil), subnets...),
		EstimatedDuration: EstimateDuration(subnets),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.store.Put(ctx, task); err != nil {
		return nil, fmt.Errorf("store task: %w", err)
	}
	metrics.RecordDiscoveryTask("submitted")

	m.wg.Add(1)
	go m.run(task.Clone())
	return task, nil
}

// Get returns a stored task.
func (m *Manager) Get(ctx context.Context, id string) (*Task, error) {
	return m.store.Get(ctx, id)
}

// List returns all live tasks, oldest first.
func (m *Manager) List(ctx context.Context) ([]*Task, error) {
	return m.store.List(ctx)
}

// Shutdown cancels running tasks and waits for them to record their final
// state, or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) run(task *Task) {
	defer m.wg.Done()

	ctx := log.ContextWithTaskID(m.ctx, task.ID)
	logger := log.WithContext(ctx, log.WithComponent("tasks"))

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("discovery task panicked")
			m.finish(ctx, task, StatusFailed, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.finish(ctx, task, StatusFailed, "canceled before start")
		return
	}
	defer m.sem.Release(1)

	logger.Info().Strs("subnets", task.Subnets).Msg("discovery task started")
	start := m.now()

	lastPct := 0
	results := m.scanner.ScanManyWithProgress(ctx, task.Subnets, func(p netscan.Progress) {
		// reports are serialized by the coordinator
		pct := p.Percent()
		if pct == lastPct || pct >= 100 {
			return
		}
		lastPct = pct
		task.Progress = pct
		task.UpdatedAt = m.now().UTC()
		m.put(ctx, task)
	})

	if ctx.Err() != nil {
		m.finish(ctx, task, StatusFailed, "canceled")
		return
	}

	task.Results = results
	// Devices are registered before the task reads as completed, so a client
	// polling for completion finds them in the registry.
	if m.sink != nil {
		m.upsert(ctx, task)
	}
	m.finish(ctx, task, StatusCompleted, "")
	logger.Info().
		Int("devices", task.DeviceCount()).
		Dur("elapsed", m.now().Sub(start)).
		Msg("discovery task completed")
}

func (m *Manager) finish(ctx context.Context, task *Task, status Status, errMsg string) {
	task.Status = status
	task.Error = errMsg
	if status == StatusCompleted {
		task.Progress = 100
	}
	task.UpdatedAt = m.now().UTC()
	m.put(ctx, task)
	metrics.RecordDiscoveryTask(string(status))
}

// put writes a task snapshot. Final writes must land even after shutdown
// cancels the task context.
func (m *Manager) put(ctx context.Context, task *Task) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
	defer cancel()
	if err := m.store.Put(wctx, task); err != nil {
		logger := log.FromContext(ctx)
		logger.Warn().Err(err).Msg("failed to store task state")
	}
}

func (m *Manager) upsert(ctx context.Context, task *Task) {
	devices := make([]netscan.DeviceDescriptor, 0, task.DeviceCount())
	for _, subnet := range task.Subnets {
		devices = append(devices, task.Results[subnet]...)
	}
	if len(devices) == 0 {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
	defer cancel()
	n, err := m.sink.UpsertDevices(wctx, devices)
	logger := log.FromContext(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("device registry upsert failed")
		return
	}
	logger.Debug().Int("devices", n).Msg("devices registered")
}
