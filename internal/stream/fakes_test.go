// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/rtspscout/internal/procexec"
)

type stubProber struct {
	mu    sync.Mutex
	urls  []string
	probe func(url string) ProbeResult
}

func (s *stubProber) Probe(_ context.Context, url string) ProbeResult {
	s.mu.Lock()
	s.urls = append(s.urls, url)
	s.mu.Unlock()
	return s.probe(url)
}

func (s *stubProber) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

func fps(v int) *int { return &v }

type stubRunner struct {
	name    string
	args    []string
	timeout time.Duration
	out     procexec.Output
	err     error
}

func (s *stubRunner) Run(_ context.Context, name string, args []string, timeout time.Duration) (procexec.Output, error) {
	s.name, s.args, s.timeout = name, args, timeout
	return s.out, s.err
}

type stubLiveness struct {
	up    bool
	delay time.Duration
	calls atomic.Int32
}

func (s *stubLiveness) IsReachable(ctx context.Context, _ string) bool {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.delay):
		}
	}
	return s.up
}

type stubValidator struct {
	mu     sync.Mutex
	calls  []Request
	result ValidationResult
	delay  time.Duration
	// password, when set, is the only password that yields result.
	password string
}

func (s *stubValidator) Validate(_ context.Context, req Request) ValidationResult {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.password != "" && req.Password != s.password {
		return ValidationResult{IsValid: false, ErrorMessage: ReasonAllFailed}
	}
	return s.result
}

func (s *stubValidator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
