// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tasks

import (
	"context"
	"fmt"

	"github.com/ManuGH/rtspscout/internal/config"
)

// OpenStore creates a Store based on the backend configuration.
func OpenStore(ctx context.Context, cfg config.TasksConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(cfg.TTL), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.TTL)
	case config.BackendBadger:
		return OpenBadgerStore(cfg.BadgerPath, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown task store backend: %s", cfg.Backend)
	}
}
