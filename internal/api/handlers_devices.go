// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/registry"
	"github.com/ManuGH/rtspscout/internal/stream"
)

type validateRequest struct {
	IPAddress string `json:"ip_address"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	RTSPURL   string `json:"rtsp_url,omitempty"`
}

type healthRequest struct {
	IPAddress string `json:"ip_address"`
	RTSPURL   string `json:"rtsp_url,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	// an empty request is answered by the validator itself
	res := s.deps.Validator.Validate(r.Context(), stream.Request{
		IP:       strings.TrimSpace(req.IPAddress),
		Username: req.Username,
		Password: req.Password,
		URL:      strings.TrimSpace(req.RTSPURL),
	})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var req healthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	res := s.deps.Health.CheckHealth(r.Context(), stream.DeviceInfo{
		IP:       strings.TrimSpace(req.IPAddress),
		RTSPURL:  strings.TrimSpace(req.RTSPURL),
		Username: req.Username,
		Password: req.Password,
	})

	if res.Canceled() {
		// Client went away; there is nobody to answer and nothing to record.
		return
	}
	if s.deps.Devices != nil && res.IPAddress != "" {
		if err := s.deps.Devices.UpdateHealth(r.Context(), res); err != nil && !errors.Is(err, registry.ErrNotFound) {
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Warn().Err(err).Str(log.FieldIP, res.IPAddress).Msg("failed to record health verdict")
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if s.deps.Devices == nil {
		writeServiceUnavailable(w, "device registry is not configured")
		return
	}
	devices, err := s.deps.Devices.List(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("failed to list devices")
		writeInternal(w)
		return
	}
	if devices == nil {
		devices = []registry.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}
