// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"github.com/ManuGH/rtspscout/internal/daemon"
	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/version"
	"github.com/spf13/cobra"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API daemon",
		Long: `Starts the discovery API, the optional device registry and the periodic
health sweep. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := log.WithComponent("daemon")
			logger.Info().
				Str(log.FieldEvent, "startup").
				Str("version", version.Version).
				Str("commit", version.Commit).
				Str("build_date", version.Date).
				Str("addr", c.cfg.API.Listen).
				Msg("starting rtspscout")

			d, err := daemon.Bootstrap(ctx, c.cfg, version.Version)
			if err != nil {
				return err
			}
			return d.Run(ctx)
		},
	}
}
