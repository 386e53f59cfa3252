// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procexec runs external probe tools (ping, nc, ffprobe) with a hard
// deadline and guaranteed process-group teardown.
package procexec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/metrics"
	"github.com/ManuGH/rtspscout/internal/procgroup"
)

const (
	// MaxStdout caps captured standard output per call.
	MaxStdout = 1 << 20
	// MaxStderr caps captured standard error per call.
	MaxStderr = 64 << 10

	defaultGrace = 200 * time.Millisecond
)

var (
	// ErrTimeout is returned when the per-call timeout elapsed before the tool exited.
	ErrTimeout = errors.New("process timed out")
	// ErrToolMissing is returned when the tool binary cannot be resolved or started.
	ErrToolMissing = errors.New("tool not available")
)

// Output is what a finished process left behind.
// A non-zero ExitCode is a normal result, not an error.
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	// Truncated is set when either stream exceeded its cap.
	Truncated bool
}

func collect(exitCode int, stdout, stderr *cappedBuffer) Output {
	return Output{
		ExitCode:  exitCode,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}
}

// Runner executes one external command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args []string, timeout time.Duration) (Output, error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	// Grace is how long a timed-out group gets after SIGTERM before SIGKILL.
	// Zero uses the default; negative kills immediately.
	Grace time.Duration
}

// NewExecRunner returns a Runner with default termination grace.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) grace() time.Duration {
	switch {
	case r == nil || r.Grace == 0:
		return defaultGrace
	case r.Grace < 0:
		return 0
	default:
		return r.Grace
	}
}

// Run starts name with args in its own process group and waits for it.
//
// On timeout the group is terminated and reaped, and the partial output is
// returned alongside ErrTimeout. If ctx is canceled first, ctx.Err() is
// returned after the same teardown.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (Output, error) {
	logger := log.WithComponent("procexec")
	start := time.Now()

	if err := ctx.Err(); err != nil {
		metrics.ObserveProcessRun(name, "canceled", 0)
		return Output{ExitCode: -1}, err
	}

	stdout := newCappedBuffer(MaxStdout)
	stderr := newCappedBuffer(MaxStderr)

	cmd := exec.Command(name, args...) // #nosec G204 -- tool names come from config, args are built internally
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	procgroup.Set(cmd)
	// Bounds Wait if a stray descendant escaped the group and holds our pipes.
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		metrics.ObserveProcessRun(name, "missing", time.Since(start))
		return Output{ExitCode: -1}, fmt.Errorf("%w: %s: %v", ErrToolMissing, name, err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	var runErr error
	select {
	case runErr = <-waitCh:
	case <-timer:
		_ = procgroup.Terminate(cmd, waitCh, r.grace())
		out := collect(-1, stdout, stderr)
		metrics.ObserveProcessRun(name, "timeout", time.Since(start))
		logger.Debug().
			Str(log.FieldTool, name).
			Dur("timeout", timeout).
			Msg("process timed out, group terminated")
		return out, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, name)
	case <-ctx.Done():
		_ = procgroup.Terminate(cmd, waitCh, 0)
		metrics.ObserveProcessRun(name, "canceled", time.Since(start))
		return collect(-1, stdout, stderr), ctx.Err()
	}

	out := collect(0, stdout, stderr)
	if out.Truncated {
		logger.Debug().
			Str(log.FieldTool, name).
			Int("stdout_bytes", len(out.Stdout)).
			Int("stderr_bytes", len(out.Stderr)).
			Msg("process output truncated")
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			metrics.ObserveProcessRun(name, "wait_failed", time.Since(start))
			out.ExitCode = -1
			return out, fmt.Errorf("wait %s: %w", name, runErr)
		}
		out.ExitCode = exitErr.ExitCode()
	}

	outcome := "ok"
	if out.ExitCode != 0 {
		outcome = "exit_nonzero"
	}
	metrics.ObserveProcessRun(name, outcome, time.Since(start))
	logger.Trace().
		Str(log.FieldTool, name).
		Int(log.FieldExitCode, out.ExitCode).
		Dur("elapsed", time.Since(start)).
		Msg("process finished")
	return out, nil
}
