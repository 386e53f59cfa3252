// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/rtspscout/internal/netscan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScanReport(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	r := NewScanReport(map[string][]netscan.DeviceDescriptor{
		"10.0.0.0/30": {{IPAddress: "10.0.0.1"}, {IPAddress: "10.0.0.2"}},
		"bogus":       {},
	}, now)
	assert.Equal(t, 2, r.Devices)
	assert.Equal(t, time.UTC, r.GeneratedAt.Location())

	empty := NewScanReport(nil, now)
	assert.NotNil(t, empty.Subnets)
}

func TestWriteJSONReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	r := NewScanReport(map[string][]netscan.DeviceDescriptor{
		"10.0.0.0/30": {{IPAddress: "10.0.0.1", OpenPorts: []int{554}, Vendor: "Axis"}},
	}, time.Now())
	require.NoError(t, WriteJSON(context.Background(), path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got ScanReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1, got.Devices)
	assert.Equal(t, "Axis", got.Subnets["10.0.0.0/30"][0].Vendor)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files may be left behind")
}

func TestWriteJSONMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "scan.json")
	assert.Error(t, WriteJSON(context.Background(), path, map[string]int{}))
}

func TestWriteJSONUnencodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")
	err := WriteJSON(context.Background(), path, map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
