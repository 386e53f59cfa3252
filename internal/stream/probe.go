// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/metrics"
	"github.com/ManuGH/rtspscout/internal/procexec"
)

// Prober inspects one stream URL.
type Prober interface {
	Probe(ctx context.Context, url string) ProbeResult
}

// processSlack is added to the socket timeout to form the process deadline.
const processSlack = 5 * time.Second

// FFprobe probes with the ffprobe binary.
type FFprobe struct {
	Runner  procexec.Runner
	Binary  string
	Timeout time.Duration
}

// NewFFprobe returns an FFprobe using binary (default "ffprobe").
func NewFFprobe(runner procexec.Runner, binary string, timeout time.Duration) *FFprobe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobe{Runner: runner, Binary: binary, Timeout: timeout}
}

// Args builds the ffprobe argument list. The -timeout option is the
// protocol-level socket timeout in microseconds.
func (f *FFprobe) Args(url string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-timeout", strconv.FormatInt(f.Timeout.Microseconds(), 10),
		url,
	}
}

// Deadline is the longest a single probe process may run.
func (f *FFprobe) Deadline() time.Duration {
	return f.Timeout + processSlack
}

func (f *FFprobe) Probe(ctx context.Context, url string) ProbeResult {
	// ffprobe gets its own socket timeout; the process deadline leaves room for it.
	out, err := f.Runner.Run(ctx, f.Binary, f.Args(url), f.Deadline())

	var res ProbeResult
	switch {
	case errors.Is(err, procexec.ErrTimeout):
		res = ProbeResult{Err: ReasonTimeout}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		res = ProbeResult{Err: ReasonCanceled}
	case err != nil:
		res = ProbeResult{Err: err.Error()}
	case out.ExitCode != 0:
		res = ProbeResult{Err: exitDiagnostics(out)}
	default:
		res = ParseProbeOutput(out.Stdout)
		if res.Err == ReasonInvalidOutput && out.Truncated {
			res.Err = ReasonTruncatedOutput
		}
	}

	metrics.RecordStreamProbe(res.Valid)
	logger := log.FromContext(ctx)
	logger.Debug().
		Str(log.FieldURL, log.MaskURL(url)).
		Bool("valid", res.Valid).
		Bool("truncated", out.Truncated).
		Str("reason", res.Err).
		Msg("stream probed")
	return res
}

func exitDiagnostics(out procexec.Output) string {
	msg := strings.TrimSpace(string(out.Stderr))
	if msg == "" {
		return "ffprobe exited with code " + strconv.Itoa(out.ExitCode)
	}
	if len(msg) > maxDiagnosticsLength {
		msg = msg[:maxDiagnosticsLength] + "..."
	}
	return msg
}

type probeData struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width,omitempty"`
		Height       int    `json:"height,omitempty"`
		RFrameRate   string `json:"r_frame_rate,omitempty"`
		AvgFrameRate string `json:"avg_frame_rate,omitempty"`
	} `json:"streams"`
}

// ParseProbeOutput interprets ffprobe JSON. The first video stream decides.
func ParseProbeOutput(stdout []byte) ProbeResult {
	var data probeData
	if err := json.Unmarshal(stdout, &data); err != nil {
		return ProbeResult{Err: ReasonInvalidOutput}
	}

	for _, s := range data.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return ProbeResult{Err: ReasonNoResolution}
		}
		codec := s.CodecName
		if codec == "" {
			codec = unknownCodec
		}
		return ProbeResult{
			Valid:  true,
			Width:  s.Width,
			Height: s.Height,
			Codec:  codec,
			FPS:    PickFPS(s.RFrameRate, s.AvgFrameRate),
		}
	}
	return ProbeResult{Err: ReasonNoVideo}
}
