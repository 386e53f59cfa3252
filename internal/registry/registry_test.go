// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/rtspscout/internal/netscan"
	"github.com/ManuGH/rtspscout/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "devices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertInsertsWithDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.UpsertDevices(ctx, []netscan.DeviceDescriptor{
		{IPAddress: "192.168.1.20", OpenPorts: []int{8554}, Vendor: "Axis", RTSPURL: "rtsp://192.168.1.20:8554/axis-media/media.amp"},
		{IPAddress: "192.168.1.3", Hostname: "cam-hall", Vendor: netscan.VendorUnknown},
		{IPAddress: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	devices, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	// numeric address order, not lexical
	first := devices[0]
	assert.Equal(t, "192.168.1.3", first.IPAddress)
	assert.Equal(t, "cam-hall", first.Name)
	assert.Equal(t, 554, first.Port)
	assert.Equal(t, "rtsp://192.168.1.3:554/stream1", first.RTSPURL)
	assert.Equal(t, "ONLINE", first.Status)
	require.NotNil(t, first.LastSeen)

	second := devices[1]
	assert.Equal(t, "Camera-192.168.1.20", second.Name)
	assert.Equal(t, 8554, second.Port)
	assert.Equal(t, "Axis", second.Vendor)
}

func TestUpsertKeepsKnownFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertDevices(ctx, []netscan.DeviceDescriptor{{
		IPAddress: "10.0.0.7", Hostname: "door", Vendor: "Hikvision",
		RTSPURL: "rtsp://10.0.0.7:554/Streaming/Channels/101",
	}})
	require.NoError(t, err)
	require.NoError(t, s.UpdateHealth(ctx, stream.HealthResult{
		IPAddress: "10.0.0.7", Status: stream.StatusOffline, ErrorMessage: "timeout",
	}))

	_, err = s.UpsertDevices(ctx, []netscan.DeviceDescriptor{{IPAddress: "10.0.0.7", Vendor: netscan.VendorUnknown}})
	require.NoError(t, err)

	d, err := s.Get(ctx, "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, "door", d.Hostname)
	assert.Equal(t, "Hikvision", d.Vendor)
	assert.Equal(t, "rtsp://10.0.0.7:554/Streaming/Channels/101", d.RTSPURL)
	assert.Equal(t, "ONLINE", d.Status)
	assert.Empty(t, d.LastError)
}

func TestUpdateHealth(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seen := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return seen }

	_, err := s.UpsertDevices(ctx, []netscan.DeviceDescriptor{{IPAddress: "10.0.0.8"}})
	require.NoError(t, err)

	checked := seen.Add(time.Hour)
	require.NoError(t, s.UpdateHealth(ctx, stream.HealthResult{
		IPAddress:    "10.0.0.8",
		Status:       stream.StatusUnreachable,
		ErrorMessage: stream.ReasonUnreachable,
		CheckedAt:    checked,
	}))

	d, err := s.Get(ctx, "10.0.0.8")
	require.NoError(t, err)
	assert.Equal(t, "UNREACHABLE", d.Status)
	assert.Equal(t, stream.ReasonUnreachable, d.LastError)
	require.NotNil(t, d.LastChecked)
	assert.True(t, checked.Equal(*d.LastChecked))
	require.NotNil(t, d.LastSeen)
	assert.True(t, seen.Equal(*d.LastSeen), "last_seen must not move on a failed check")

	err = s.UpdateHealth(ctx, stream.HealthResult{IPAddress: "10.9.9.9", Status: stream.StatusOnline})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopenKeepsDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.UpsertDevices(context.Background(), []netscan.DeviceDescriptor{{IPAddress: "10.0.0.9"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, s.Ping(context.Background()))
}
