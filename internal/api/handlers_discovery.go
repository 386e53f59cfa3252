// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/netscan"
	"github.com/ManuGH/rtspscout/internal/tasks"
	"github.com/go-chi/chi/v5"
)

type discoveryRequest struct {
	Subnets []string `json:"subnets"`
}

type discoveryResponse struct {
	TaskID            string   `json:"task_id"`
	Message           string   `json:"message"`
	Subnets           []string `json:"subnets"`
	EstimatedDuration int      `json:"estimated_duration"`
}

type taskSummary struct {
	TaskID   string       `json:"task_id"`
	Status   tasks.Status `json:"status"`
	Subnets  []string     `json:"subnets"`
	Progress int          `json:"progress"`
}

type taskDetail struct {
	TaskID   string                                `json:"task_id"`
	Status   tasks.Status                          `json:"status"`
	Progress int                                   `json:"progress"`
	Subnets  []string                              `json:"subnets"`
	Results  map[string][]netscan.DeviceDescriptor `json:"results"`
	Error    *string                               `json:"error"`
}

func (s *Server) handleStartDiscovery(w http.ResponseWriter, r *http.Request) {
	var req discoveryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	subnets := make([]string, 0, len(req.Subnets))
	for _, s := range req.Subnets {
		if s = strings.TrimSpace(s); s != "" {
			subnets = append(subnets, s)
		}
	}
	if len(subnets) == 0 {
		writeBadRequest(w, "at least one subnet is required")
		return
	}

	task, err := s.deps.Tasks.Submit(r.Context(), subnets)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		if errors.Is(err, tasks.ErrShutdown) {
			writeServiceUnavailable(w, "shutting down")
			return
		}
		logger.Error().Err(err).Msg("failed to start discovery")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusAccepted, discoveryResponse{
		TaskID:            task.ID,
		Message:           "Discovery started",
		Subnets:           task.Subnets,
		EstimatedDuration: task.EstimatedDuration,
	})
}

func (s *Server) handleListDiscovery(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Tasks.List(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("failed to list tasks")
		writeInternal(w)
		return
	}
	out := make([]taskSummary, 0, len(list))
	for _, t := range list {
		out = append(out, taskSummary{TaskID: t.ID, Status: t.Status, Subnets: t.Subnets, Progress: t.Progress})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (s *Server) handleGetDiscovery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	task, err := s.deps.Tasks.Get(r.Context(), id)
	if errors.Is(err, tasks.ErrNotFound) {
		writeNotFound(w, "Discovery task not found")
		return
	}
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldTaskID, id).Msg("failed to load task")
		writeInternal(w)
		return
	}

	detail := taskDetail{
		TaskID:   task.ID,
		Status:   task.Status,
		Progress: task.Progress,
		Subnets:  task.Subnets,
	}
	// results only once the batch is complete
	if task.Status == tasks.StatusCompleted {
		detail.Results = task.Results
	}
	if task.Error != "" {
		detail.Error = &task.Error
	}
	writeJSON(w, http.StatusOK, detail)
}
