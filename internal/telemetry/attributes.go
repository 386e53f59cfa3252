// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by discovery and validation spans.
const (
	DiscoverySubnetKey  = "discovery.subnet"
	DiscoverySubnetsKey = "discovery.subnets"
	DiscoveryHostsKey   = "discovery.hosts"
	DiscoveryDevicesKey = "discovery.devices"
	DiscoveryLimitKey   = "discovery.concurrency_limit"

	StreamIPKey         = "stream.ip"
	StreamURLKey        = "stream.url"
	StreamValidKey      = "stream.valid"
	StreamCodecKey      = "stream.codec"
	StreamResolutionKey = "stream.resolution"
	StreamCandidatesKey = "stream.candidates"
	StreamRetriesKey    = "stream.retries"

	HealthStatusKey = "health.status"

	TaskIDKey = "task.id"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// DiscoveryAttributes describes one subnet scan.
func DiscoveryAttributes(subnet string, hosts, devices int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DiscoverySubnetKey, subnet),
		attribute.Int(DiscoveryHostsKey, hosts),
		attribute.Int(DiscoveryDevicesKey, devices),
	}
}

// StreamAttributes describes a validation outcome. Empty fields are omitted.
// url must already be credential-masked.
func StreamAttributes(ip, url, codec, resolution string, valid bool) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 5)
	if ip != "" {
		attrs = append(attrs, attribute.String(StreamIPKey, ip))
	}
	if url != "" {
		attrs = append(attrs, attribute.String(StreamURLKey, url))
	}
	if codec != "" {
		attrs = append(attrs, attribute.String(StreamCodecKey, codec))
	}
	if resolution != "" {
		attrs = append(attrs, attribute.String(StreamResolutionKey, resolution))
	}
	return append(attrs, attribute.Bool(StreamValidKey, valid))
}

// ErrorAttributes marks a span as failed with a coarse error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
