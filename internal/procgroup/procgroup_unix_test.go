// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGroup(t *testing.T, script string) (*exec.Cmd, int) {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	Set(cmd)
	require.NoError(t, cmd.Start())

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	require.Equal(t, cmd.Process.Pid, pgid, "child should lead its own group")
	return cmd, pgid
}

func waitGroupGone(t *testing.T, pgid int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := syscall.Kill(-pgid, syscall.Signal(0))
		if errors.Is(err, syscall.ESRCH) {
			return
		}
		if time.Now().After(deadline) {
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
			t.Fatalf("process group %d still alive", pgid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestKillReachesGrandchildren(t *testing.T) {
	cmd, pgid := startGroup(t, "sleep 100 & sleep 100")
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, Kill(cmd, syscall.SIGKILL))

	err := cmd.Wait()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected exit error, got %v", err)
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		assert.True(t, status.Signaled())
		assert.Equal(t, syscall.SIGKILL, status.Signal())
	}

	// the background sleep is reparented to init and reaped there
	waitGroupGone(t, pgid)
}

func TestKillNilAndExited(t *testing.T) {
	require.NoError(t, Kill(nil, syscall.SIGKILL))
	require.NoError(t, Kill(&exec.Cmd{}, syscall.SIGKILL))

	cmd := exec.Command("true")
	Set(cmd)
	require.NoError(t, cmd.Run())
	assert.NoError(t, Kill(cmd, syscall.SIGTERM))
}

func TestTerminateGraceful(t *testing.T) {
	cmd, pgid := startGroup(t, "sleep 100")
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	err := Terminate(cmd, waitCh, 2*time.Second)
	require.Error(t, err)
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		assert.Equal(t, syscall.SIGTERM, status.Signal())
	}
	waitGroupGone(t, pgid)
}

func TestTerminateEscalatesToKill(t *testing.T) {
	cmd, pgid := startGroup(t, "trap '' TERM; sleep 100 & wait")
	time.Sleep(100 * time.Millisecond)
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	start := time.Now()
	err := Terminate(cmd, waitCh, 150*time.Millisecond)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	waitGroupGone(t, pgid)
}

func TestTerminateZeroGraceKillsImmediately(t *testing.T) {
	cmd, pgid := startGroup(t, "sleep 100")
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	err := Terminate(cmd, waitCh, 0)
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		assert.Equal(t, syscall.SIGKILL, status.Signal())
	}
	waitGroupGone(t, pgid)
}
