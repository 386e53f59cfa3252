// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package netscan discovers RTSP-capable devices on IPv4 subnets.
//
// A host probe chain runs liveness, then sequential port probes, then an HTTP
// vendor heuristic on the first open port. Chains are gated by a counting
// semaphore so a /16 never fans out into tens of thousands of processes.
package netscan

import "time"

// DeviceDescriptor is one discovered host. It is never mutated after a scan
// emits it.
type DeviceDescriptor struct {
	IPAddress    string    `json:"ip_address"`
	Hostname     string    `json:"hostname,omitempty"`
	OpenPorts    []int     `json:"open_ports"`
	Vendor       string    `json:"vendor"`
	RTSPURL      string    `json:"rtsp_url,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Identification is the vendor heuristic outcome for one host and port.
// CandidateURL is a hint and still needs stream validation.
type Identification struct {
	Vendor       string
	CandidateURL string
}

// VendorUnknown tags hosts that matched no pattern.
const VendorUnknown = "Unknown"
