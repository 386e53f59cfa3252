// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/metrics"
	"github.com/ManuGH/rtspscout/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// Status is a device health verdict.
type Status string

const (
	StatusOnline      Status = "ONLINE"
	StatusOffline     Status = "OFFLINE"
	StatusUnreachable Status = "UNREACHABLE"
)

// DeviceInfo is what is known about a device before a health check.
type DeviceInfo struct {
	IP       string `json:"ip_address"`
	RTSPURL  string `json:"rtsp_url,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// HealthResult is a verdict plus the validation that produced it, if any.
type HealthResult struct {
	IPAddress    string            `json:"ip_address"`
	Status       Status            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Validation   *ValidationResult `json:"validation,omitempty"`
	CheckedAt    time.Time         `json:"checked_at"`
}

// Liveness is the reachability check used before validation.
type Liveness interface {
	IsReachable(ctx context.Context, ip string) bool
}

// StreamValidator validates one host.
type StreamValidator interface {
	Validate(ctx context.Context, req Request) ValidationResult
}

// defaultMaxCheckDuration bounds one shared check when the owner sets no limit.
const defaultMaxCheckDuration = 10 * time.Minute

// HealthChecker derives verdicts. Concurrent checks of the same device with
// the same credentials share one in-flight run. The shared run is detached
// from the callers' contexts, so one caller giving up never changes the
// verdict the others receive.
type HealthChecker struct {
	live      Liveness
	validator StreamValidator
	group     singleflight.Group
	now       func() time.Time

	// MaxCheckDuration bounds a shared run; zero uses a 10 minute default.
	MaxCheckDuration time.Duration
}

// NewHealthChecker wires a liveness probe and a validator.
func NewHealthChecker(live Liveness, validator StreamValidator) *HealthChecker {
	return &HealthChecker{live: live, validator: validator, now: time.Now}
}

// CheckHealth returns UNREACHABLE without validating when the liveness
// probe fails. Otherwise a known URL is validated alone, and devices without
// one get a full candidate sweep.
//
// If ctx ends before the verdict is known, the result carries
// ReasonCheckCanceled. That is not a verdict about the device and must not
// be recorded.
func (h *HealthChecker) CheckHealth(ctx context.Context, dev DeviceInfo) HealthResult {
	ch := h.group.DoChan(flightKey(dev), func() (any, error) {
		limit := h.MaxCheckDuration
		if limit <= 0 {
			limit = defaultMaxCheckDuration
		}
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), limit)
		defer cancel()
		return h.check(runCtx, dev), nil
	})

	select {
	case r := <-ch:
		return r.Val.(HealthResult)
	case <-ctx.Done():
		return HealthResult{
			IPAddress:    dev.IP,
			Status:       StatusUnreachable,
			ErrorMessage: ReasonCheckCanceled,
			CheckedAt:    h.now().UTC(),
		}
	}
}

// Canceled reports whether res is the placeholder returned to a caller whose
// context ended before the check finished.
func (res HealthResult) Canceled() bool {
	return res.ErrorMessage == ReasonCheckCanceled
}

// flightKey identifies checks that may share a run. The password enters as
// a digest so it never sits in the key in clear text.
func flightKey(dev DeviceInfo) string {
	sum := sha256.Sum256([]byte(dev.Password))
	return dev.IP + "|" + dev.RTSPURL + "|" + dev.Username + "|" + hex.EncodeToString(sum[:])
}

func (h *HealthChecker) check(ctx context.Context, dev DeviceInfo) HealthResult {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "stream.check_health")
	defer span.End()

	res := h.verdict(ctx, dev)
	res.IPAddress = dev.IP
	res.CheckedAt = h.now().UTC()

	metrics.RecordHealthVerdict(string(res.Status))
	span.SetAttributes(
		attribute.String(telemetry.StreamIPKey, dev.IP),
		attribute.String(telemetry.HealthStatusKey, string(res.Status)),
	)
	logger := log.FromContext(ctx)
	logger.Info().
		Str(log.FieldIP, dev.IP).
		Str(log.FieldStatus, string(res.Status)).
		Str("reason", res.ErrorMessage).
		Msg("health verdict")
	return res
}

func (h *HealthChecker) verdict(ctx context.Context, dev DeviceInfo) HealthResult {
	if dev.IP == "" {
		return HealthResult{Status: StatusUnreachable, ErrorMessage: ReasonNoIP}
	}
	if !h.live.IsReachable(ctx, dev.IP) {
		return HealthResult{Status: StatusUnreachable, ErrorMessage: ReasonUnreachable}
	}

	vr := h.validator.Validate(ctx, Request{
		IP:       dev.IP,
		Username: dev.Username,
		Password: dev.Password,
		URL:      dev.RTSPURL,
	})
	if vr.IsValid {
		return HealthResult{Status: StatusOnline, Validation: &vr}
	}
	msg := vr.ErrorMessage
	if dev.RTSPURL == "" {
		msg = ReasonNoStream
	}
	return HealthResult{Status: StatusOffline, ErrorMessage: msg, Validation: &vr}
}
