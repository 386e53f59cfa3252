// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package report writes scan and validation results to disk as JSON.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ManuGH/rtspscout/internal/netscan"
	"github.com/ManuGH/rtspscout/internal/stream"
)

// ScanReport is the on-disk form of a discovery run.
type ScanReport struct {
	GeneratedAt time.Time                             `json:"generated_at"`
	Subnets     map[string][]netscan.DeviceDescriptor `json:"subnets"`
	Devices     int                                   `json:"devices"`
	Validations []stream.ValidationResult             `json:"validations,omitempty"`
}

// NewScanReport counts devices and stamps the report.
func NewScanReport(results map[string][]netscan.DeviceDescriptor, now time.Time) ScanReport {
	n := 0
	for _, devs := range results {
		n += len(devs)
	}
	if results == nil {
		results = map[string][]netscan.DeviceDescriptor{}
	}
	return ScanReport{GeneratedAt: now.UTC(), Subnets: results, Devices: n}
}

// Encode writes v as indented JSON.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
