// SPDX-License-Identifier: MIT

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestStreamAttributes(t *testing.T) {
	tests := []struct {
		name    string
		ip, url string
		codec   string
		res     string
		wantLen int
	}{
		{"all fields", "10.0.0.5", "rtsp://10.0.0.5:554/stream1", "h264", "1920x1080", 5},
		{"failure", "10.0.0.5", "", "", "", 2},
		{"empty", "", "", "", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := StreamAttributes(tt.ip, tt.url, tt.codec, tt.res, tt.codec != "")
			assert.Len(t, attrs, tt.wantLen)
			assert.Equal(t, attribute.Key(StreamValidKey), attrs[len(attrs)-1].Key)
		})
	}
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes("timeout")
	assert.Equal(t, []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, "timeout"),
	}, attrs)
}
