// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var badgerKeyPrefix = []byte("task:")

// BadgerStore persists tasks on local disk. Entries carry a TTL and vanish
// on their own.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

func OpenBadgerStore(path string, ttl time.Duration) (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions(path).WithLogger(nil), ttl)
}

func openBadger(opts badger.Options, ttl time.Duration) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Put(_ context.Context, t *Task) error {
	if err := validateTask(t); err != nil {
		return err
	}
	buf, err := json.Marshal(t)
	if err != nil {
		return err
	}
	key := append(append([]byte(nil), badgerKeyPrefix...), t.ID...)
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, buf)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *BadgerStore) Get(_ context.Context, id string) (*Task, error) {
	key := append(append([]byte(nil), badgerKeyPrefix...), id...)
	var out Task
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) List(ctx context.Context) ([]*Task, error) {
	var out []*Task
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = badgerKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var t Task
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return err
			}
			out = append(out, &t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortTasks(out)
	return out, nil
}
