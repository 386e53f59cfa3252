// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"time"
)

// ToolChecker reports whether an external binary was found at startup.
// A missing tool is degraded unless strict, where it is unhealthy.
type ToolChecker struct {
	tool   string
	err    error
	strict bool
}

func NewToolChecker(tool string, lookupErr error, strict bool) *ToolChecker {
	return &ToolChecker{tool: tool, err: lookupErr, strict: strict}
}

// ToolCheckers builds one checker per entry of a LookupTools result.
func ToolCheckers(lookup map[string]error, strict bool) []Checker {
	out := make([]Checker, 0, len(lookup))
	for _, name := range sortedKeys(lookup) {
		out = append(out, NewToolChecker(name, lookup[name], strict))
	}
	return out
}

func (c *ToolChecker) Name() string { return "tool:" + c.tool }

func (c *ToolChecker) Check(context.Context) CheckResult {
	if c.err == nil {
		return CheckResult{Status: StatusHealthy, Message: "available"}
	}
	status := StatusDegraded
	if c.strict {
		status = StatusUnhealthy
	}
	return CheckResult{
		Status:  status,
		Message: "operations needing this tool fail fast",
		Error:   c.err.Error(),
	}
}

// PingChecker wraps a connectivity probe such as a Redis or SQLite ping.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// LastRunChecker grades a periodic job by its last run. Before the first
// run it is healthy; a failed run or one older than maxAge is degraded.
type LastRunChecker struct {
	name       string
	getLastRun func() (time.Time, string)
	maxAge     time.Duration
	now        func() time.Time
}

func NewLastRunChecker(name string, maxAge time.Duration, getLastRun func() (time.Time, string)) *LastRunChecker {
	return &LastRunChecker{name: name, getLastRun: getLastRun, maxAge: maxAge, now: time.Now}
}

func (c *LastRunChecker) Name() string { return c.name }

func (c *LastRunChecker) Check(context.Context) CheckResult {
	lastRun, lastError := c.getLastRun()
	if lastRun.IsZero() {
		return CheckResult{Status: StatusHealthy, Message: "no run yet"}
	}
	if lastError != "" {
		return CheckResult{Status: StatusDegraded, Message: "last run failed", Error: lastError}
	}
	if c.maxAge > 0 {
		if age := c.now().Sub(lastRun); age > c.maxAge {
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("last run %s ago", age.Truncate(time.Second)),
			}
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "last run successful"}
}
