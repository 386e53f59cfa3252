// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/netscan"
	"golang.org/x/sync/errgroup"
)

// Run serves the API and runs the background jobs until ctx is cancelled
// or one of them fails. It then shuts the server down, stops running
// tasks and closes the stores.
func (d *Daemon) Run(ctx context.Context) error {
	if d == nil || d.server == nil {
		return ErrNotBootstrapped
	}
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.logger.Info().Str("addr", d.listener.Addr().String()).Msg("API server listening (HTTP)")
		if err := d.server.Serve(d.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error().Err(err).Str(log.FieldEvent, "api.server.failed").Msg("API server failed")
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server shutdown: %w", err)
		}
		return nil
	})

	if d.sweeper != nil && d.cfg.Sweep.Interval > 0 {
		g.Go(func() error {
			return d.sweeper.Run(gctx, d.cfg.Sweep.Interval)
		})
	}

	// The vendor watcher is best-effort: the loaded table keeps working
	// without it.
	if path := d.cfg.Discovery.VendorsFile; path != "" {
		if err := netscan.WatchVendorFile(gctx, path, d.engine.Vendors); err != nil {
			d.logger.Warn().Err(err).Str(log.FieldEvent, "vendors.watch_failed").Msg("failed to watch vendor table")
		}
	}

	runErr := g.Wait()
	if runErr != nil {
		d.logger.Error().Err(runErr).Msg("daemon stopped with error, shutting down")
	} else {
		d.logger.Info().Msg("shutdown signal received")
	}

	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := d.hooks.run(hookCtx); err != nil {
		return errors.Join(runErr, err)
	}
	d.logger.Info().Msg("daemon stopped")
	return runErr
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
