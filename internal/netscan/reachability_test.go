// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netscan

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/ManuGH/rtspscout/internal/procexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingChecker(t *testing.T) {
	tests := []struct {
		name string
		out  procexec.Output
		err  error
		want bool
	}{
		{"reply", procexec.Output{ExitCode: 0}, nil, true},
		{"no reply", procexec.Output{ExitCode: 1}, nil, false},
		{"timeout", procexec.Output{ExitCode: -1}, procexec.ErrTimeout, false},
		{"missing binary", procexec.Output{ExitCode: -1}, procexec.ErrToolMissing, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{fn: func(string, []string) (procexec.Output, error) { return tt.out, tt.err }}
			p := NewPingChecker(r, "", 5*time.Second)

			assert.Equal(t, tt.want, p.IsReachable(context.Background(), "10.0.0.7"))
			require.Len(t, r.calls, 1)
			assert.Equal(t, "ping", r.calls[0].name)
			assert.Equal(t, []string{"-c", "1", "-W", "5", "10.0.0.7"}, r.calls[0].args)
			assert.Equal(t, 7*time.Second, r.calls[0].timeout)
		})
	}
}

func TestWholeSeconds(t *testing.T) {
	assert.Equal(t, "1", wholeSeconds(0))
	assert.Equal(t, "1", wholeSeconds(300*time.Millisecond))
	assert.Equal(t, "2", wholeSeconds(1500*time.Millisecond))
	assert.Equal(t, "3", wholeSeconds(3*time.Second))
}

func TestNetcatScannerSequentialOrdered(t *testing.T) {
	r := &fakeRunner{fn: func(_ string, args []string) (procexec.Output, error) {
		switch args[len(args)-1] {
		case "554":
			return procexec.Output{ExitCode: 0}, nil
		case "8554":
			return procexec.Output{ExitCode: 0}, nil
		case "10554":
			return procexec.Output{ExitCode: -1}, errors.New("boom")
		default:
			return procexec.Output{ExitCode: 1}, nil
		}
	}}
	s := NewNetcatScanner(r, "ncat", 2*time.Second)

	open := s.OpenPorts(context.Background(), "10.0.0.7", []int{8554, 80, 10554, 554})
	assert.Equal(t, []int{8554, 554}, open)
	require.Len(t, r.calls, 4)
	assert.Equal(t, "ncat", r.calls[0].name)
	assert.Equal(t, []string{"-z", "-w", "2", "10.0.0.7", "8554"}, r.calls[0].args)
	assert.Equal(t, 3*time.Second, r.calls[0].timeout)
}

func TestNetcatScannerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &fakeRunner{fn: func(string, []string) (procexec.Output, error) { return procexec.Output{}, nil }}
	assert.Empty(t, NewNetcatScanner(r, "", time.Second).OpenPorts(ctx, "10.0.0.7", []int{554}))
	assert.Empty(t, r.calls)
}

func TestDialScanner(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	openPort := ln.Addr().(*net.TCPAddr).Port

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedPort := closed.Addr().(*net.TCPAddr).Port
	require.NoError(t, closed.Close())

	got := NewDialScanner(time.Second).OpenPorts(context.Background(), "127.0.0.1", []int{closedPort, openPort})
	assert.Equal(t, []int{openPort}, got, "open=%s closed=%s", strconv.Itoa(openPort), strconv.Itoa(closedPort))
}

func TestICMPCheckerRejectsNonIPv4(t *testing.T) {
	c := NewICMPChecker(100 * time.Millisecond)
	assert.False(t, c.IsReachable(context.Background(), "not-an-ip"))
	assert.False(t, c.IsReachable(context.Background(), "fd00::1"))
}
