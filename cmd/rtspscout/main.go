// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// rtspscout finds RTSP cameras on local networks and checks their streams.
//
// Usage:
//
//	rtspscout serve --config rtspscout.yaml
//	rtspscout scan 192.168.1.0/24 --output report.json
//	rtspscout validate 192.168.1.64 --username admin --password secret
//	rtspscout health 192.168.1.64 --url rtsp://192.168.1.64:554/stream1
//
// Configuration precedence is ENV (RTSPSCOUT_*) > file > defaults.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/rtspscout/internal/config"
	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/ManuGH/rtspscout/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// cli carries state shared by all subcommands.
type cli struct {
	configPath string
	logLevel   string

	out    io.Writer
	errOut io.Writer

	cfg config.Config
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "rtspscout",
		Short: "RTSP camera discovery and stream validation",
		Long: `rtspscout sweeps subnets for hosts with open RTSP ports, identifies the
camera vendor and verifies streams with ffprobe.

Run "rtspscout serve" for the HTTP API or use the one-shot commands.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config file (YAML); defaults to $RTSPSCOUT_CONFIG")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		c.serveCmd(),
		c.scanCmd(),
		c.validateCmd(),
		c.healthCmd(),
		c.healthcheckCmd(),
		c.configCmd(),
		versionCmd(),
	)
	return root
}

// load reads the configuration and configures logging. Logs go to stderr so
// command output on stdout stays machine readable.
func (c *cli) load(cmd *cobra.Command) error {
	if cmd.Annotations["skipConfig"] == "true" {
		return nil
	}
	path := c.configPath
	if path == "" {
		path = config.ParseString(config.EnvPrefix+"CONFIG", "")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Output:  c.errOut,
		Service: "rtspscout",
		Version: version.Version,
	})
	c.cfg = cfg

	if path != "" {
		logger := log.WithComponent("cli")
		logger.Debug().
			Str(log.FieldEvent, "config.loaded").
			Str("path", path).
			Msg("loaded configuration from file")
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"skipConfig": "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
