package monitor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/cuemby/fsbench/pkg/health"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/rs/zerolog"
)

// Exporter runs a single metrics exporter process, node_exporter by
// default, and waits until its listener accepts connections
type Exporter struct {
	Binary string
	Args   []string

	listen      string
	timeout     time.Duration
	stopTimeout time.Duration
	logger      zerolog.Logger

	mu   sync.Mutex
	proc *process
}

// process is one exporter child; err is valid once exited is closed
type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
	err    error
}

// NewExporter creates the exporter strategy listening on listen
func NewExporter(binary, listen string, timeout time.Duration) *Exporter {
	return &Exporter{
		Binary:      binary,
		Args:        []string{"--web.listen-address=" + listen, "--collector.diskstats"},
		listen:      listen,
		timeout:     timeout,
		stopTimeout: 10 * time.Second,
		logger:      log.WithComponent("monitor-exporter"),
	}
}

func (e *Exporter) Name() string { return "exporter" }

func (e *Exporter) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc != nil {
		return nil
	}

	path, err := exec.LookPath(e.Binary)
	if err != nil {
		return fmt.Errorf("exporter binary not found: %w", err)
	}

	// The process outlives Start, so it is not bound to ctx.
	cmd := exec.Command(path, e.Args...)
	cmd.Stdout = &logWriter{logger: e.logger, level: zerolog.DebugLevel}
	cmd.Stderr = &logWriter{logger: e.logger, level: zerolog.DebugLevel}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.Binary, err)
	}

	proc := &process{cmd: cmd, exited: make(chan struct{})}
	go func() {
		proc.err = cmd.Wait()
		close(proc.exited)
	}()
	e.proc = proc

	e.logger.Info().Str("binary", path).Int("pid", cmd.Process.Pid).Str("listen", e.listen).Msg("Exporter started")

	if err := e.waitForReady(ctx, proc); err != nil {
		e.stopLocked()
		return err
	}
	return nil
}

func (e *Exporter) Stop(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

func (e *Exporter) stopLocked() error {
	proc := e.proc
	if proc == nil {
		return nil
	}
	e.proc = nil

	select {
	case <-proc.exited:
		return nil
	default:
	}

	if err := proc.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		e.logger.Error().Err(err).Msg("Failed to send SIGTERM")
	}

	select {
	case <-time.After(e.stopTimeout):
		e.logger.Warn().Msg("Exporter did not stop gracefully, force killing")
		if err := proc.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill exporter: %w", err)
		}
		<-proc.exited
	case <-proc.exited:
	}

	e.logger.Info().Msg("Exporter stopped")
	return nil
}

// waitForReady polls the listener, giving up early if the process dies
func (e *Exporter) waitForReady(ctx context.Context, proc *process) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-proc.exited:
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err := health.WaitReady(ctx, health.NewTCPChecker(e.listen), health.Config{Interval: 250 * time.Millisecond, Timeout: e.timeout})
	if err == nil {
		return nil
	}
	select {
	case <-proc.exited:
		if proc.err != nil {
			return fmt.Errorf("exporter exited during startup: %w", proc.err)
		}
		return errors.New("exporter exited during startup")
	default:
	}
	return err
}

// logWriter forwards process output to the logger
type logWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func (lw *logWriter) Write(p []byte) (n int, err error) {
	lw.logger.WithLevel(lw.level).Msg(string(p))
	return len(p), nil
}
