// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/rtspscout/internal/log"
)

// WriteJSON writes v via temp file + rename. Windows has no fsync-then-rename
// guarantee, so this is best-effort atomic.
func WriteJSON(ctx context.Context, path string, v any) error {
	logger := log.FromContext(ctx)

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".rtspscout-report-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := Encode(tmpFile, v); err != nil {
		return fmt.Errorf("write report data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp report file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename report file: %w", err)
	}
	logger.Debug().Str("path", path).Msg("wrote report file")
	return nil
}
