// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/metrics"
	"github.com/ManuGH/rtspscout/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "rtspscout.stream"

// Request asks for validation of one host. URL, when set, is the only
// candidate tried. Credentials apply only when both are set.
type Request struct {
	IP       string `json:"ip_address"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	URL      string `json:"rtsp_url,omitempty"`
}

// Validator sweeps candidate URLs until one probes valid.
type Validator struct {
	Prober Prober
	// Retries is the number of full sweeps; values below 1 mean 1.
	Retries int
	// Backoff is slept between sweeps.
	Backoff time.Duration
}

// NewValidator returns a Validator with the given sweep count and backoff.
func NewValidator(p Prober, retries int, backoff time.Duration) *Validator {
	return &Validator{Prober: p, Retries: retries, Backoff: backoff}
}

// MaxDuration is the longest a candidate sweep without a known URL can take
// when every probe runs for perProbe.
func (v *Validator) MaxDuration(perProbe time.Duration) time.Duration {
	retries := max(v.Retries, 1)
	probes := retries * len(candidateTemplates)
	return time.Duration(probes)*perProbe + time.Duration(retries-1)*v.Backoff
}

// Validate returns the first candidate that validates, sweeping the
// candidate list up to Retries times. Candidate order is fixed.
func (v *Validator) Validate(ctx context.Context, req Request) ValidationResult {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "stream.validate")
	defer span.End()

	if req.IP == "" && req.URL == "" {
		metrics.RecordValidation(false)
		return ValidationResult{IsValid: false, ErrorMessage: ReasonNoIP}
	}

	candidates := Candidates(req)
	retries := v.Retries
	if retries < 1 {
		retries = 1
	}
	span.SetAttributes(
		attribute.Int(telemetry.StreamCandidatesKey, len(candidates)),
		attribute.Int(telemetry.StreamRetriesKey, retries),
	)

	logger := log.FromContext(ctx).With().Str(log.FieldIP, req.IP).Logger()
	lastReason := ""

sweeps:
	for attempt := 1; attempt <= retries; attempt++ {
		metrics.ValidationSweeps.Inc()
		for _, candidate := range candidates {
			if ctx.Err() != nil {
				lastReason = ReasonCanceled
				break sweeps
			}
			res := v.probe(ctx, candidate)
			if res.Valid {
				out := ValidationResult{
					IPAddress:  req.IP,
					IsValid:    true,
					RTSPURL:    candidate,
					Resolution: res.Resolution(),
					Codec:      res.Codec,
					FPS:        res.FPS,
				}
				metrics.RecordValidation(true)
				span.SetAttributes(telemetry.StreamAttributes(req.IP, log.MaskURL(candidate), out.Codec, out.Resolution, true)...)
				logger.Info().
					Int(log.FieldAttempt, attempt).
					Str(log.FieldURL, log.MaskURL(candidate)).
					Str(log.FieldResolution, out.Resolution).
					Str(log.FieldCodec, out.Codec).
					Msg("stream validated")
				return out
			}
			lastReason = res.Err
		}

		if attempt < retries && v.Backoff > 0 {
			t := time.NewTimer(v.Backoff)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				lastReason = ReasonCanceled
				break sweeps
			}
		}
	}

	msg := ReasonAllFailed
	if lastReason != "" {
		msg = fmt.Sprintf("%s: %s", ReasonAllFailed, lastReason)
	}
	metrics.RecordValidation(false)
	span.SetAttributes(telemetry.StreamAttributes(req.IP, "", "", "", false)...)
	logger.Info().Str("reason", lastReason).Msg("no candidate validated")
	return ValidationResult{IPAddress: req.IP, IsValid: false, ErrorMessage: msg}
}

// probe isolates one candidate: a panicking prober counts as an invalid candidate.
func (v *Validator) probe(ctx context.Context, url string) (res ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			logger := log.FromContext(ctx)
			logger.Error().Interface("panic", r).Str(log.FieldURL, log.MaskURL(url)).Msg("stream probe panicked")
			res = ProbeResult{Err: fmt.Sprintf("probe failed: %v", r)}
		}
	}()
	res = v.Prober.Probe(ctx, url)
	if res.Valid && (res.Width <= 0 || res.Height <= 0 || res.Codec == "") {
		return ProbeResult{Err: ReasonNoResolution}
	}
	return res
}
