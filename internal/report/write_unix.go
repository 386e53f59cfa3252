// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !windows

package report

import (
	"context"
	"fmt"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/google/renameio/v2"
)

// WriteJSON replaces path with the JSON encoding of v. Readers see either
// the old file or the complete new one; the data is fsynced before rename.
func WriteJSON(ctx context.Context, path string, v any) error {
	logger := log.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer func() {
		// no-op once committed
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending report file")
		}
	}()

	if err := Encode(pendingFile, v); err != nil {
		return fmt.Errorf("write report data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace report file: %w", err)
	}

	logger.Debug().Str("path", path).Msg("wrote report file")
	return nil
}
