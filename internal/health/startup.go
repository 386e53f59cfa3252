// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ManuGH/rtspscout/internal/config"
	"github.com/ManuGH/rtspscout/internal/log"
	"github.com/rs/zerolog"
)

// ErrMissingTools is returned by PerformStartupChecks in strict mode.
var ErrMissingTools = errors.New("required tools missing")

// PerformStartupChecks validates the environment before the daemon starts.
// tools is the result of procexec.LookupTools for cfg.ToolNames().
func PerformStartupChecks(_ context.Context, cfg config.Config, tools map[string]error) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkTools(logger, tools, cfg.Tools.Strict); err != nil {
		return err
	}

	if cfg.Registry.Path != "" {
		if err := checkWritableDir(logger, filepath.Dir(cfg.Registry.Path)); err != nil {
			return fmt.Errorf("registry directory check failed: %w", err)
		}
	}
	if cfg.Tasks.Backend == config.BackendBadger {
		// badger creates its directory, but the parent must be writable
		if err := checkWritableDir(logger, filepath.Dir(filepath.Clean(cfg.Tasks.BadgerPath))); err != nil {
			return fmt.Errorf("badger directory check failed: %w", err)
		}
	}
	if cfg.Tasks.Backend == config.BackendMemory {
		logger.Warn().Msg("task store is in memory; task records are lost on restart")
	}

	if f := cfg.Discovery.VendorsFile; f != "" {
		if err := checkFileReadable(f); err != nil {
			return fmt.Errorf("vendors file error: %w", err)
		}
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkTools(logger zerolog.Logger, tools map[string]error, strict bool) error {
	var missing []string
	for _, name := range sortedKeys(tools) {
		if err := tools[name]; err != nil {
			missing = append(missing, name)
			logger.Warn().Err(err).Str(log.FieldTool, name).Bool("strict", strict).Msg("tool not found")
			continue
		}
		logger.Info().Str(log.FieldTool, name).Msg("tool available")
	}
	if strict && len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingTools, missing)
	}
	return nil
}

func checkWritableDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("directory is writable")
	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
