// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package jobs holds background work that runs on a schedule, currently
// the health sweep over registered devices.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/registry"
	"github.com/ManuGH/rtspscout/internal/stream"
	"golang.org/x/sync/errgroup"
)

// SweepStatus summarizes the most recent sweep.
type SweepStatus struct {
	LastRun     time.Time     `json:"last_run"`
	Duration    time.Duration `json:"duration"`
	Checked     int           `json:"checked"`
	Online      int           `json:"online"`
	Offline     int           `json:"offline"`
	Unreachable int           `json:"unreachable"`
	Error       string        `json:"error,omitempty"`
}

// DeviceRegistry is the part of the registry a sweep needs.
type DeviceRegistry interface {
	List(ctx context.Context) ([]registry.Device, error)
	UpdateHealth(ctx context.Context, res stream.HealthResult) error
}

// HealthChecker derives one device verdict.
type HealthChecker interface {
	CheckHealth(ctx context.Context, dev stream.DeviceInfo) stream.HealthResult
}

// Sweeper re-checks every registered device and stores the verdicts.
type Sweeper struct {
	devices     DeviceRegistry
	checker     HealthChecker
	concurrency int

	mu   sync.RWMutex
	last SweepStatus
}

func NewSweeper(devices DeviceRegistry, checker HealthChecker, concurrency int) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweeper{devices: devices, checker: checker, concurrency: concurrency}
}

// Sweep checks all devices once. A failed verdict write is logged and does
// not stop the sweep; only a failed device listing is returned as an error.
func (s *Sweeper) Sweep(ctx context.Context) (SweepStatus, error) {
	logger := log.WithContext(ctx, log.WithComponent("jobs"))
	start := time.Now()
	logger.Info().Str(log.FieldEvent, "sweep.start").Msg("starting health sweep")

	devices, err := s.devices.List(ctx)
	if err != nil {
		st := SweepStatus{LastRun: start, Error: err.Error()}
		s.setLast(st)
		return st, fmt.Errorf("list devices: %w", err)
	}

	verdicts := make([]stream.Status, len(devices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, dev := range devices {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := s.checker.CheckHealth(gctx, stream.DeviceInfo{IP: dev.IPAddress, RTSPURL: dev.RTSPURL})
			if res.Canceled() {
				return nil
			}
			verdicts[i] = res.Status
			if dev.Status != string(res.Status) {
				logger.Info().
					Str(log.FieldIP, dev.IPAddress).
					Str("from", dev.Status).
					Str(log.FieldStatus, string(res.Status)).
					Msg("device status changed")
			}
			if err := s.devices.UpdateHealth(gctx, res); err != nil {
				logger.Warn().Err(err).Str(log.FieldIP, dev.IPAddress).Msg("failed to store health verdict")
			}
			return nil
		})
	}
	_ = g.Wait()

	st := SweepStatus{LastRun: start, Duration: time.Since(start)}
	for _, v := range verdicts {
		switch v {
		case stream.StatusOnline:
			st.Online++
		case stream.StatusOffline:
			st.Offline++
		case stream.StatusUnreachable:
			st.Unreachable++
		default:
			// skipped after cancellation
			continue
		}
		st.Checked++
	}
	if err := ctx.Err(); err != nil {
		st.Error = err.Error()
	}
	s.setLast(st)

	logger.Info().
		Str(log.FieldEvent, "sweep.done").
		Int("checked", st.Checked).
		Int("online", st.Online).
		Int("offline", st.Offline).
		Int("unreachable", st.Unreachable).
		Dur("elapsed", st.Duration).
		Msg("health sweep finished")
	return st, ctx.Err()
}

// Run sweeps immediately and then every interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			logger := log.WithComponent("jobs")
			logger.Error().Err(err).Msg("health sweep failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// LastStatus returns the summary of the last completed sweep.
func (s *Sweeper) LastStatus() SweepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Sweeper) setLast(st SweepStatus) {
	s.mu.Lock()
	s.last = st
	s.mu.Unlock()
}
