package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/fsbench/pkg/health"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/cuemby/fsbench/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Builtin serves fsbench's own metrics plus kernel disk counters for the
// devices under test from inside the process. It needs nothing installed.
type Builtin struct {
	listen    string
	timeout   time.Duration
	collector *metrics.DiskCollector
	health    *metrics.HealthChecker
	logger    zerolog.Logger

	mu     sync.Mutex
	server *http.Server
	addr   string
}

// NewBuiltin creates the builtin exporter strategy listening on listen
func NewBuiltin(listen string, timeout time.Duration) *Builtin {
	hc := metrics.NewHealthChecker()
	return &Builtin{
		listen:  listen,
		timeout: timeout,
		collector: metrics.NewDiskCollector().OnScrape(func(err error) {
			hc.Update("disk_collector", err)
		}),
		health: hc,
		logger: log.WithComponent("monitor-builtin"),
	}
}

func (b *Builtin) Name() string { return "builtin" }

// SetDevices limits the disk series to the given device paths
func (b *Builtin) SetDevices(devices ...string) {
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, filepath.Base(d))
	}
	b.collector.SetDevices(names...)
	b.health.SetDevices(names...)
}

// Addr returns the address actually listened on while running
func (b *Builtin) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addr
}

func (b *Builtin) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.server != nil {
		return nil
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(b.collector); err != nil {
		return fmt.Errorf("failed to register disk collector: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{prometheus.DefaultGatherer, reg},
		promhttp.HandlerOpts{},
	))
	mux.HandleFunc("/health", b.health.Handler())

	ln, err := net.Listen("tcp", b.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", b.listen, err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.health.Update("listener", err)
			b.logger.Error().Err(err).Msg("Builtin exporter stopped serving")
		}
	}()
	b.server = server
	b.addr = ln.Addr().String()
	b.health.Update("listener", nil)

	checker := health.NewHTTPChecker("http://" + b.addr + "/health")
	if _, err := health.WaitReady(ctx, checker, health.Config{Interval: 100 * time.Millisecond, Timeout: b.timeout}); err != nil {
		_ = b.shutdownLocked(context.WithoutCancel(ctx))
		return err
	}

	b.logger.Info().Str("addr", b.addr).Msg("Builtin exporter serving")
	return nil
}

func (b *Builtin) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shutdownLocked(ctx)
}

func (b *Builtin) shutdownLocked(ctx context.Context) error {
	if b.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := b.server.Shutdown(ctx)
	b.server = nil
	b.addr = ""
	return err
}
