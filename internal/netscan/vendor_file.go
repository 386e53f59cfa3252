// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netscan

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const vendorReloadDebounce = 500 * time.Millisecond

// LoadVendorTable reads a YAML vendor table. Unknown keys are rejected.
func LoadVendorTable(path string) (*VendorTable, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read vendor table: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t VendorTable
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("parse vendor table %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("vendor table %s: %w", path, err)
	}
	return &t, nil
}

// WatchVendorFile reloads path into source whenever it changes, until ctx
// is done. The parent directory is watched so atomic renames by editors
// and config management are seen. A table that fails to load is logged and
// the previous table stays active.
func WatchVendorFile(ctx context.Context, path string, source *VendorSource) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("resolve vendor table path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch vendor table: %w", err)
	}

	logger := log.WithComponent("netscan")
	logger.Info().Str(log.FieldEvent, "vendors.watch_started").Str("path", abs).Msg("watching vendor table")

	go func() {
		defer func() { _ = watcher.Close() }()
		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(vendorReloadDebounce, func() {
					t, err := LoadVendorTable(abs)
					if err != nil {
						logger.Error().Err(err).Str(log.FieldEvent, "vendors.reload_failed").Msg("keeping previous vendor table")
						return
					}
					source.Store(t)
					logger.Info().
						Str(log.FieldEvent, "vendors.reloaded").
						Int("templates", len(t.Templates)).
						Int("vendors", len(t.Vendors)).
						Msg("vendor table reloaded")
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error().Err(err).Str(log.FieldEvent, "vendors.watch_error").Msg("vendor table watcher error")
			}
		}
	}()
	return nil
}
