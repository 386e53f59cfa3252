// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netscan

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

var (
	// ErrInvalidSubnet is returned for anything that is not an IPv4 CIDR.
	ErrInvalidSubnet = errors.New("invalid IPv4 subnet")
	// ErrSubnetTooLarge is returned when a subnet exceeds the configured host cap.
	ErrSubnetTooLarge = errors.New("subnet exceeds host limit")
)

// ParseSubnet parses an IPv4 CIDR. Host bits are masked off, so
// "192.168.1.77/24" is accepted as 192.168.1.0/24.
func ParseSubnet(cidr string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q: %v", ErrInvalidSubnet, cidr, err)
	}
	if !p.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: %q is not IPv4", ErrInvalidSubnet, cidr)
	}
	return p.Masked(), nil
}

// CountHosts returns the number of usable host addresses in p.
func CountHosts(p netip.Prefix) int {
	switch bits := p.Bits(); {
	case bits >= 32:
		return 1
	case bits == 31:
		return 2
	default:
		return (1 << (32 - bits)) - 2
	}
}

// EnumerateHosts lists the usable host addresses of cidr in ascending order.
// Network and broadcast addresses are excluded; a /31 yields both addresses
// and a /32 yields the single address.
func EnumerateHosts(cidr string) ([]netip.Addr, error) {
	p, err := ParseSubnet(cidr)
	if err != nil {
		return nil, err
	}
	return hostsOf(p), nil
}

func hostsOf(p netip.Prefix) []netip.Addr {
	n := CountHosts(p)
	out := make([]netip.Addr, 0, n)

	addr := p.Addr()
	if p.Bits() < 31 {
		addr = addr.Next()
	}
	for i := 0; i < n; i++ {
		out = append(out, addr)
		addr = addr.Next()
	}
	return out
}

// EstimateHosts sums usable hosts over subnets, counting unparsable entries
// as a /24 so a bad entry still contributes to time estimates.
func EstimateHosts(subnets []string) int {
	total := 0
	for _, s := range subnets {
		p, err := ParseSubnet(s)
		if err != nil {
			total += 256
			continue
		}
		total += CountHosts(p)
	}
	return total
}
