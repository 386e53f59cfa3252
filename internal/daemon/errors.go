// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("daemon already running")

	// ErrNotBootstrapped is returned when Run is called on a zero Daemon.
	ErrNotBootstrapped = errors.New("daemon not bootstrapped")
)
