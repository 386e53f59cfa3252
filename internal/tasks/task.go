// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tasks runs discovery batches in the background and keeps their
// records in a pluggable store (memory, Redis or Badger).
package tasks

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ManuGH/rtspscout/internal/netscan"
)

// Status is the lifecycle state of a discovery task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrNotFound  = errors.New("task not found")
	ErrNoSubnets = errors.New("no subnets provided")
	ErrShutdown  = errors.New("task manager shut down")
	errNilTask   = errors.New("nil task")
	errEmptyID   = errors.New("empty task id")
)

// Task is the stored record of one discovery batch.
type Task struct {
	ID                string                                `json:"task_id"`
	Status            Status                                `json:"status"`
	Subnets           []string                              `json:"subnets"`
	Progress          int                                   `json:"progress"`
	Results           map[string][]netscan.DeviceDescriptor `json:"results,omitempty"`
	Error             string                                `json:"error,omitempty"`
	EstimatedDuration int                                   `json:"estimated_duration"`
	CreatedAt         time.Time                             `json:"created_at"`
	UpdatedAt         time.Time                             `json:"updated_at"`
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	out.Subnets = append([]string(nil), t.Subnets...)
	if t.Results != nil {
		out.Results = make(map[string][]netscan.DeviceDescriptor, len(t.Results))
		for k, v := range t.Results {
			devs := make([]netscan.DeviceDescriptor, len(v))
			for i, d := range v {
				d.OpenPorts = append([]int(nil), d.OpenPorts...)
				devs[i] = d
			}
			out.Results[k] = devs
		}
	}
	return &out
}

// DeviceCount sums devices over all subnets.
func (t *Task) DeviceCount() int {
	n := 0
	for _, devs := range t.Results {
		n += len(devs)
	}
	return n
}

// Store persists task records. Records expire after the store's TTL.
type Store interface {
	Put(ctx context.Context, t *Task) error
	// Get returns ErrNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*Task, error)
	// List returns live tasks, oldest first.
	List(ctx context.Context) ([]*Task, error)
	Close() error
}

func validateTask(t *Task) error {
	if t == nil {
		return errNilTask
	}
	if t.ID == "" {
		return errEmptyID
	}
	return nil
}

func sortTasks(list []*Task) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
