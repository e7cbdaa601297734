package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/fsbench/pkg/command"
	"github.com/cuemby/fsbench/pkg/config"
	"github.com/cuemby/fsbench/pkg/events"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/cuemby/fsbench/pkg/metrics"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/rs/zerolog"
)

// NoneStrategy names the no-op fallback
const NoneStrategy = "none"

// Strategy is one way of bringing up a telemetry stack
type Strategy interface {
	Name() string

	// Start brings the stack up and returns once it is ready
	Start(ctx context.Context) error

	// Stop tears the stack down. Stopping a strategy that is not running
	// is a no-op.
	Stop(ctx context.Context) error
}

// DeviceScoped is implemented by strategies that export per-device series
// and want to know which devices are under test
type DeviceScoped interface {
	SetDevices(devices ...string)
}

// Handle records which strategy a Start settled on
type Handle struct {
	Strategy  string
	StartedAt time.Time

	active Strategy
}

// Controller walks an ordered chain of strategies
type Controller struct {
	chain     []Strategy
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewController creates a controller over an explicit chain
func NewController(chain []Strategy, publisher events.Publisher) *Controller {
	if publisher == nil {
		publisher = events.Discard
	}
	return &Controller{
		chain:     chain,
		publisher: publisher,
		logger:    log.WithComponent("monitor"),
	}
}

// FromSettings builds the configured chain
func FromSettings(s config.MonitoringSettings, runner command.Runner, publisher events.Publisher) (*Controller, error) {
	var chain []Strategy
	for _, name := range s.Strategies {
		switch name {
		case config.StrategyCompose:
			argv, err := config.ExpandCommand(s.ComposeCommand, nil)
			if err != nil {
				return nil, &types.ConfigurationError{Source: "monitoring.compose_command", Err: err}
			}
			chain = append(chain, NewCompose(runner, argv, s.ComposeFile, s.PrometheusURL, s.ReadyTimeout))
		case config.StrategyExporter:
			chain = append(chain, NewExporter(s.ExporterBinary, s.ExporterListen, s.ReadyTimeout))
		case config.StrategyBuiltin:
			chain = append(chain, NewBuiltin(s.BuiltinListen, s.ReadyTimeout))
		default:
			return nil, &types.ConfigurationError{Source: "monitoring.strategies", Err: fmt.Errorf("unknown strategy %q", name)}
		}
	}
	return NewController(chain, publisher), nil
}

// Start tries each strategy in order and returns a handle for the first one
// that comes up. When none does, the handle is the no-op strategy and the
// error wraps types.ErrMonitoringUnavailable; callers treat that as a
// warning.
func (c *Controller) Start(ctx context.Context, devices ...string) (*Handle, error) {
	var errs []error
	for _, s := range c.chain {
		if scoped, ok := s.(DeviceScoped); ok {
			scoped.SetDevices(devices...)
		}

		c.logger.Info().Str("strategy", s.Name()).Msg("Starting monitoring")
		if err := s.Start(ctx); err != nil {
			c.logger.Warn().Err(err).Str("strategy", s.Name()).Msg("Monitoring strategy failed, falling back")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}

		metrics.MonitoringStrategy.WithLabelValues(s.Name()).Set(1)
		c.publisher.Publish(events.New(events.EventMonitoring, "", "monitoring started", map[string]string{"strategy": s.Name()}))
		return &Handle{Strategy: s.Name(), StartedAt: time.Now(), active: s}, nil
	}

	c.logger.Warn().Msg("No monitoring strategy available, continuing without telemetry")
	metrics.MonitoringStrategy.WithLabelValues(NoneStrategy).Set(1)
	return &Handle{Strategy: NoneStrategy, StartedAt: time.Now()},
		fmt.Errorf("%w: %w", types.ErrMonitoringUnavailable, errors.Join(errs...))
}

// Stop walks the chain in reverse, stopping every strategy so nothing a
// failed attempt left behind keeps holding its ports. It never fails.
func (c *Controller) Stop(ctx context.Context, h *Handle) {
	if h != nil {
		metrics.MonitoringStrategy.WithLabelValues(h.Strategy).Set(0)
	}
	for i := len(c.chain) - 1; i >= 0; i-- {
		s := c.chain[i]
		if err := s.Stop(ctx); err != nil {
			c.logger.Warn().Err(err).Str("strategy", s.Name()).Msg("Failed to stop monitoring strategy")
		}
	}
	if h != nil {
		c.logger.Info().
			Str("strategy", h.Strategy).
			Dur("active", time.Since(h.StartedAt)).
			Msg("Monitoring stopped")
	}
}

// Strategies returns the names of the chain in order
func (c *Controller) Strategies() []string {
	names := make([]string, 0, len(c.chain))
	for _, s := range c.chain {
		names = append(names, s.Name())
	}
	return names
}
