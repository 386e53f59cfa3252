// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tasks

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	task *Task
	exp  time.Time
}

// MemoryStore keeps tasks in process memory. Expired records are dropped
// lazily on access.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	tasks map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:   ttl,
		tasks: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (m *MemoryStore) Put(_ context.Context, t *Task) error {
	if err := validateTask(t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{task: t.Clone()}
	if m.ttl > 0 {
		entry.exp = m.now().Add(m.ttl)
	}
	m.tasks[t.ID] = entry
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.tasks[id]
	if !ok || m.expired(e) {
		delete(m.tasks, id)
		return nil, ErrNotFound
	}
	return e.task.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Task, 0, len(m.tasks))
	for id, e := range m.tasks {
		if m.expired(e) {
			delete(m.tasks, id)
			continue
		}
		out = append(out, e.task.Clone())
	}
	sortTasks(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.exp.IsZero() && m.now().After(e.exp)
}
