// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/rtspscout/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromhttpExposure(t *testing.T) {
	metrics.ObserveProcessRun("ping", "ok", 10*time.Millisecond)

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "rtspscout_process_runs_total"))
}

func TestRecordHostScan(t *testing.T) {
	before := testutil.ToFloat64(metrics.HostsScanned.WithLabelValues("unreachable"))
	metrics.RecordHostScan("unreachable")
	metrics.RecordHostScan("unreachable")
	after := testutil.ToFloat64(metrics.HostsScanned.WithLabelValues("unreachable"))
	assert.Equal(t, before+2, after)
}

func TestRecordValidationLabels(t *testing.T) {
	metrics.RecordValidation(true)
	metrics.RecordValidation(false)

	var m dto.Metric
	require.NoError(t, metrics.Validations.WithLabelValues("valid").Write(&m))
	require.NotNil(t, m.Counter)
	assert.GreaterOrEqual(t, m.Counter.GetValue(), 1.0)

	m.Reset()
	require.NoError(t, metrics.Validations.WithLabelValues("invalid").Write(&m))
	assert.GreaterOrEqual(t, m.Counter.GetValue(), 1.0)
}
