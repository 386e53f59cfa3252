// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HostScansInFlight is the number of host probe chains currently holding a semaphore slot.
	HostScansInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtspscout_host_scans_in_flight",
		Help: "Host probe chains currently running",
	})

	// HostsScanned counts finished host probe chains by outcome
	// (unreachable, no_rtsp_port, device, panic).
	HostsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtspscout_hosts_scanned_total",
		Help: "Finished host probe chains by outcome",
	}, []string{"outcome"})

	// DevicesDiscovered counts emitted device descriptors by vendor tag.
	DevicesDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtspscout_devices_discovered_total",
		Help: "Discovered RTSP devices by vendor",
	}, []string{"vendor"})

	// SubnetScans counts subnet scans by result (ok, invalid, too_large, failed).
	SubnetScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtspscout_subnet_scans_total",
		Help: "Subnet scans by result",
	}, []string{"result"})

	// DiscoveryTasks counts discovery tasks by terminal status.
	DiscoveryTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtspscout_discovery_tasks_total",
		Help: "Discovery tasks by terminal status",
	}, []string{"status"})
)

// RecordHostScan records the outcome of one host probe chain.
func RecordHostScan(outcome string) {
	HostsScanned.WithLabelValues(outcome).Inc()
}

// RecordDevice records one discovered device.
func RecordDevice(vendor string) {
	DevicesDiscovered.WithLabelValues(vendor).Inc()
}

// RecordSubnetScan records one finished subnet scan.
func RecordSubnetScan(result string) {
	SubnetScans.WithLabelValues(result).Inc()
}

// RecordDiscoveryTask counts task lifecycle events (submitted, completed, failed).
func RecordDiscoveryTask(status string) {
	DiscoveryTasks.WithLabelValues(status).Inc()
}
