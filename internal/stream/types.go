// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stream validates RTSP endpoints by probing them with ffprobe and
// derives device health verdicts from liveness plus stream validation.
package stream

import "strconv"

// Failure reasons reported by probes and validation.
const (
	ReasonTimeout         = "timeout"
	ReasonInvalidOutput   = "invalid probe output"
	ReasonTruncatedOutput = "probe output exceeded capture limit"
	ReasonNoVideo         = "No video stream found"
	ReasonNoResolution    = "video stream has no resolution"
	ReasonCanceled        = "probe canceled"
	ReasonAllFailed       = "All validation attempts failed"
	ReasonNoIP            = "No IP address provided"
	ReasonUnreachable     = "Device not reachable"
	ReasonNoStream        = "No valid RTSP stream found"
	ReasonCheckCanceled   = "Health check canceled"
	unknownCodec          = "unknown"
	maxDiagnosticsLength  = 4096
)

// ProbeResult is the outcome of probing one URL.
// Valid results always carry a positive width, height and a codec.
type ProbeResult struct {
	Valid  bool
	Width  int
	Height int
	Codec  string
	// FPS is nil when neither frame-rate field was usable.
	FPS *int
	// Err is the failure reason when Valid is false.
	Err string
}

// Resolution renders "WxH", or "" for invalid results.
func (r ProbeResult) Resolution() string {
	if !r.Valid {
		return ""
	}
	return strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
}

// ValidationResult is the verdict for one host.
// IsValid implies Resolution and Codec are set; otherwise ErrorMessage is.
type ValidationResult struct {
	IPAddress    string `json:"ip_address"`
	IsValid      bool   `json:"is_valid"`
	RTSPURL      string `json:"rtsp_url,omitempty"`
	Resolution   string `json:"resolution,omitempty"`
	Codec        string `json:"codec,omitempty"`
	FPS          *int   `json:"fps,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
