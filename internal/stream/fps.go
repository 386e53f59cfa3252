// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"math"
	"strconv"
	"strings"
)

// ParseFrameRate parses an ffprobe rational such as "30000/1001" and rounds
// it to the nearest integer. ok is false for malformed input or a zero
// denominator.
func ParseFrameRate(s string) (fps int, ok bool) {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	d, err := strconv.Atoi(den)
	if err != nil || d <= 0 {
		return 0, false
	}
	return int(math.Round(float64(n) / float64(d))), true
}

// PickFPS prefers the primary rate (r_frame_rate) and falls back to the
// average rate. Returns nil if neither parses.
func PickFPS(primary, average string) *int {
	if v, ok := ParseFrameRate(primary); ok {
		return &v
	}
	if v, ok := ParseFrameRate(average); ok {
		return &v
	}
	return nil
}
