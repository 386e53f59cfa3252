// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"

	"github.com/ManuGH/rtspscout/internal/report"
	"github.com/ManuGH/rtspscout/internal/stream"
	"github.com/spf13/cobra"
)

// errStreamInvalid makes the process exit non-zero after printing a
// negative verdict.
var errStreamInvalid = errors.New("no valid stream")

type credentials struct {
	url      string
	username string
	password string
}

func (cr *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cr.url, "url", "", "RTSP URL to try instead of the candidate templates")
	cmd.Flags().StringVar(&cr.username, "username", "", "RTSP username")
	cmd.Flags().StringVar(&cr.password, "password", "", "RTSP password")
}

func (c *cli) validateCmd() *cobra.Command {
	var cr credentials
	cmd := &cobra.Command{
		Use:   "validate IP",
		Short: "Find a working RTSP stream on one device",
		Long: `Probes the given URL, or every candidate URL template in order, with
ffprobe and prints the first working stream. Exits non-zero when none works.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.newEngine()
			if err != nil {
				return err
			}
			res := engine.Validator.Validate(cmd.Context(), stream.Request{
				IP:       args[0],
				URL:      cr.url,
				Username: cr.username,
				Password: cr.password,
			})
			if err := report.Encode(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.IsValid {
				return errStreamInvalid
			}
			return nil
		},
	}
	cr.bind(cmd)
	return cmd
}

func (c *cli) healthCmd() *cobra.Command {
	var cr credentials
	cmd := &cobra.Command{
		Use:   "health IP",
		Short: "Classify one device as ONLINE, OFFLINE or UNREACHABLE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.newEngine()
			if err != nil {
				return err
			}
			res := engine.Health.CheckHealth(cmd.Context(), stream.DeviceInfo{
				IP:       args[0],
				RTSPURL:  cr.url,
				Username: cr.username,
				Password: cr.password,
			})
			if res.Canceled() {
				return cmd.Context().Err()
			}
			if err := report.Encode(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.Status != stream.StatusOnline {
				return errStreamInvalid
			}
			return nil
		},
	}
	cr.bind(cmd)
	return cmd
}
