// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup spawns probe tools as process-group leaders and tears the
// whole group down, so grandchildren (shell wrappers, helper forks) never
// outlive the probe that started them.
package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/metrics"
)

// Set configures the command to start in a new process group.
// Mandatory for Kill and Terminate to reach the whole tree.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Kill sends sig to the process group of cmd.
// Nil commands and already-exited groups are not an error.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return kill(cmd, sig)
}

// Terminate stops a process group and reaps it.
// SIGTERM goes first; if waitCh does not deliver within grace the group is
// SIGKILLed. A grace of zero skips SIGTERM. waitCh must carry the result of
// cmd.Wait and is always drained, so no zombie is left behind.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if grace > 0 {
		signalGroup(cmd, syscall.SIGTERM)
		select {
		case err := <-waitCh:
			recordWait("", err)
			return err
		case <-time.After(grace):
		}
	}

	signalGroup(cmd, syscall.SIGKILL)
	err := <-waitCh
	recordWait("forced_", err)
	return err
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	name := "SIGKILL"
	if sig == syscall.SIGTERM {
		name = "SIGTERM"
	}
	if err := Kill(cmd, sig); err != nil {
		metrics.IncProcTerminate(name, "error")
		log.L().Warn().Err(err).Int("pid", cmd.Process.Pid).Str("signal", name).Msg("process group signal failed")
		return
	}
	metrics.IncProcTerminate(name, "sent")
}

func recordWait(prefix string, err error) {
	if err == nil {
		metrics.IncProcWait(prefix + "exit0")
		return
	}
	metrics.IncProcWait(prefix + "error")
}
