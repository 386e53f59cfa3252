// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procexec

import (
	"context"
	"time"

	"github.com/ManuGH/rtspscout/internal/metrics"
)

// Guarded wraps a Runner and fails fast for tools that were found missing
// at startup, instead of paying a fork per probe to rediscover it.
type Guarded struct {
	next    Runner
	missing map[string]error
}

// NewGuarded builds a Guarded runner from a LookupTools result.
func NewGuarded(next Runner, lookup map[string]error) *Guarded {
	missing := make(map[string]error)
	for name, err := range lookup {
		if err != nil {
			missing[name] = err
		}
	}
	return &Guarded{next: next, missing: missing}
}

func (g *Guarded) Run(ctx context.Context, name string, args []string, timeout time.Duration) (Output, error) {
	if err, ok := g.missing[name]; ok {
		metrics.ObserveProcessRun(name, "missing", 0)
		return Output{ExitCode: -1}, err
	}
	return g.next.Run(ctx, name, args, timeout)
}
