package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/fsbench/pkg/command"
	"github.com/cuemby/fsbench/pkg/health"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/rs/zerolog"
)

// Compose runs the multi-service stack (Prometheus, node_exporter and
// friends) from a compose file. A failed first attempt is followed by a
// cleanup pass and one retry.
type Compose struct {
	runner  command.Runner
	argv    []string
	file    string
	checker health.Checker
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.Mutex
	started bool
}

// NewCompose creates the compose strategy. argv is the compose command
// itself, for example ["docker", "compose"].
func NewCompose(runner command.Runner, argv []string, file, readyURL string, timeout time.Duration) *Compose {
	return &Compose{
		runner:  runner,
		argv:    argv,
		file:    file,
		checker: health.NewHTTPChecker(readyURL),
		timeout: timeout,
		logger:  log.WithComponent("monitor-compose"),
	}
}

func (c *Compose) Name() string { return "compose" }

func (c *Compose) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.up(ctx)
	if err == nil {
		c.started = true
		return nil
	}

	c.logger.Warn().Err(err).Msg("Compose stack failed to start, cleaning up and retrying once")
	if derr := c.compose(ctx, "down", "--remove-orphans"); derr != nil {
		c.logger.Debug().Err(derr).Msg("Cleanup pass failed")
	}
	if err := c.up(ctx); err != nil {
		_ = c.compose(context.WithoutCancel(ctx), "down", "--remove-orphans")
		return err
	}
	c.started = true
	return nil
}

func (c *Compose) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}
	c.started = false
	return c.compose(ctx, "down", "--remove-orphans")
}

func (c *Compose) up(ctx context.Context) error {
	if err := c.compose(ctx, "up", "-d"); err != nil {
		return err
	}
	if _, err := health.WaitReady(ctx, c.checker, health.Config{Interval: time.Second, Timeout: c.timeout}); err != nil {
		return fmt.Errorf("stack not ready: %w", err)
	}
	return nil
}

func (c *Compose) compose(ctx context.Context, args ...string) error {
	full := append(append([]string{}, c.argv[1:]...), "-f", c.file)
	full = append(full, args...)
	_, err := c.runner.Run(ctx, c.argv[0], full...)
	return err
}
