package health

import (
	"context"
	"fmt"
	"time"
)

// CheckType represents the type of health check
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
	CheckTypeExec CheckType = "exec"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of health check
	Type() CheckType
}

// probe stamps a Result with its start time and duration
type probe struct{ start time.Time }

func begin() probe { return probe{start: time.Now()} }

func (p probe) ok(format string, args ...any) Result {
	return p.result(true, format, args...)
}

func (p probe) fail(format string, args ...any) Result {
	return p.result(false, format, args...)
}

func (p probe) result(healthy bool, format string, args ...any) Result {
	return Result{
		Healthy:   healthy,
		Message:   fmt.Sprintf(format, args...),
		CheckedAt: p.start,
		Duration:  time.Since(p.start),
	}
}

// Config controls how long WaitReady keeps probing
type Config struct {
	// Interval is the time between probes
	Interval time.Duration

	// Timeout bounds the whole wait
	Timeout time.Duration

	// SuccessThreshold is the number of consecutive healthy probes required
	SuccessThreshold int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval:         500 * time.Millisecond,
		Timeout:          60 * time.Second,
		SuccessThreshold: 1,
	}
}

// Status tracks consecutive probe outcomes
type Status struct {
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastResult           Result
}

// Update records a new result
func (s *Status) Update(result Result) {
	s.LastResult = result
	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		return
	}
	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0
}

// WaitReady probes checker until it reports healthy SuccessThreshold times
// in a row, the timeout expires, or ctx is cancelled. On failure the error
// carries the last probe message.
func WaitReady(ctx context.Context, checker Checker, cfg Config) (Result, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	var status Status
	for {
		status.Update(checker.Check(ctx))
		if status.ConsecutiveSuccesses >= cfg.SuccessThreshold {
			return status.LastResult, nil
		}

		select {
		case <-ctx.Done():
			return status.LastResult, fmt.Errorf("%s check not ready after %d attempts: %s: %w",
				checker.Type(), status.ConsecutiveFailures, status.LastResult.Message, ctx.Err())
		case <-ticker.C:
		}
	}
}
