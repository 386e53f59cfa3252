// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netscan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// VendorRule maps path fragments to a vendor tag.
type VendorRule struct {
	Name     string   `yaml:"name" json:"name"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// VendorTable is the data-driven heuristic: ordered probe paths plus the
// pattern rules used to tag whichever path answered. HTTPPaths overrides the
// path requested over HTTP for a template; the RTSP candidate keeps the
// template itself.
type VendorTable struct {
	Templates []string          `yaml:"templates" json:"templates"`
	Vendors   []VendorRule      `yaml:"vendors" json:"vendors"`
	HTTPPaths map[string]string `yaml:"http_paths,omitempty" json:"http_paths,omitempty"`
}

// DefaultVendorTable returns the built-in heuristic table.
func DefaultVendorTable() *VendorTable {
	return &VendorTable{
		Templates: []string{
			"/stream1",
			"/live",
			"/cam/realmonitor",
			"/axis-media/media.amp",
			"/onvif1",
			"/h264Preview_01_main",
			"/live/ch0",
		},
		Vendors: []VendorRule{
			{Name: "Hikvision", Patterns: []string{"/h264Preview_", "/live/ch"}},
			{Name: "Dahua", Patterns: []string{"/cam/realmonitor"}},
			{Name: "Axis", Patterns: []string{"/axis-media/"}},
			{Name: "Generic", Patterns: []string{"/stream", "/live", "/onvif"}},
		},
		// /stream1 has no HTTP page on most firmwares; the web root answers.
		HTTPPaths: map[string]string{"/stream1": "/"},
	}
}

var errEmptyVendorTable = errors.New("vendor table has no templates")

// Validate rejects tables that could never produce a candidate.
func (t *VendorTable) Validate() error {
	if t == nil || len(t.Templates) == 0 {
		return errEmptyVendorTable
	}
	for i, tpl := range t.Templates {
		if !strings.HasPrefix(tpl, "/") {
			return fmt.Errorf("template %d %q must start with /", i, tpl)
		}
	}
	for tpl, path := range t.HTTPPaths {
		if !strings.HasPrefix(tpl, "/") || !strings.HasPrefix(path, "/") {
			return fmt.Errorf("http path %q -> %q must start with /", tpl, path)
		}
	}
	for _, v := range t.Vendors {
		if v.Name == "" {
			return errors.New("vendor rule without name")
		}
		for _, p := range v.Patterns {
			if p == "" {
				return fmt.Errorf("vendor %s has an empty pattern", v.Name)
			}
		}
	}
	return nil
}

// Match returns the vendor whose pattern is the longest substring of path.
// Ties keep table order.
func (t *VendorTable) Match(path string) string {
	best, bestLen := VendorUnknown, 0
	for _, v := range t.Vendors {
		for _, p := range v.Patterns {
			if len(p) > bestLen && strings.Contains(path, p) {
				best, bestLen = v.Name, len(p)
			}
		}
	}
	return best
}

// HTTPPath is the path requested over HTTP when checking tpl.
func (t *VendorTable) HTTPPath(tpl string) string {
	if p, ok := t.HTTPPaths[tpl]; ok {
		return p
	}
	return tpl
}

// VendorSource hands out the current table. Safe for concurrent use and
// for swapping while scans are running.
type VendorSource struct {
	table atomic.Pointer[VendorTable]
}

// NewVendorSource starts with t, or the default table when t is nil.
func NewVendorSource(t *VendorTable) *VendorSource {
	if t == nil {
		t = DefaultVendorTable()
	}
	s := &VendorSource{}
	s.table.Store(t)
	return s
}

func (s *VendorSource) Current() *VendorTable {
	return s.table.Load()
}

func (s *VendorSource) Store(t *VendorTable) {
	s.table.Store(t)
}

// VendorIdentifier guesses vendor and media path for one host and port.
type VendorIdentifier interface {
	Identify(ctx context.Context, ip string, port int) Identification
}

// HTTPIdentifier walks the table templates with a cheap HTTP GET against the
// RTSP port. Many cameras multiplex an HTTP responder there; any status
// below 500 counts as "path exists".
type HTTPIdentifier struct {
	Source *VendorSource
	Client *http.Client
}

// NewHTTPIdentifier builds an identifier with a non-keepalive client bounded by timeout.
func NewHTTPIdentifier(source *VendorSource, timeout time.Duration) *HTTPIdentifier {
	if source == nil {
		source = NewVendorSource(nil)
	}
	transport := &http.Transport{
		DisableKeepAlives:     true,
		ResponseHeaderTimeout: timeout,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
	}
	return &HTTPIdentifier{
		Source: source,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

func (h *HTTPIdentifier) Identify(ctx context.Context, ip string, port int) Identification {
	table := h.Source.Current()
	hostport := net.JoinHostPort(ip, strconv.Itoa(port))
	logger := log.FromContext(ctx)

	for _, path := range table.Templates {
		if ctx.Err() != nil {
			break
		}
		status, err := h.get(ctx, "http://"+hostport+table.HTTPPath(path))
		if err != nil {
			logger.Trace().Err(err).Str(log.FieldIP, ip).Str("path", path).Msg("vendor probe miss")
			continue
		}
		if status >= http.StatusInternalServerError {
			continue
		}
		vendor := table.Match(path)
		logger.Debug().
			Str(log.FieldIP, ip).
			Int(log.FieldPort, port).
			Str(log.FieldVendor, vendor).
			Str("path", path).
			Int(log.FieldStatus, status).
			Msg("vendor template answered")
		return Identification{Vendor: vendor, CandidateURL: "rtsp://" + hostport + path}
	}
	return Identification{Vendor: VendorUnknown}
}

func (h *HTTPIdentifier) get(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}
