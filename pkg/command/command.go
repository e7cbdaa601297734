// Package command runs external collaborators (mkfs, zpool, fio, compose)
// behind a small interface so callers can be tested with a fake.
package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/cuemby/fsbench/pkg/log"
	"github.com/rs/zerolog"
)

// Runner executes a command and returns its combined output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Streamer executes a command writing stdout to w. Long workload tools use
// this so partial output survives a failure.
type Streamer interface {
	Stream(ctx context.Context, w io.Writer, name string, args ...string) error
}

// Executor both runs and streams
type Executor interface {
	Runner
	Streamer
}

// ExitError carries the output of a failed command
type ExitError struct {
	Command string
	Output  string
	Err     error
}

func (e *ExitError) Error() string {
	out := strings.TrimSpace(e.Output)
	if len(out) > 200 {
		out = out[:200] + "..."
	}
	if out == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, out)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Exec is the os/exec backed Runner and Streamer
type Exec struct {
	// Timeout bounds each command; zero means only ctx bounds it
	Timeout time.Duration

	logger zerolog.Logger
}

// NewExec creates an Exec runner
func NewExec(timeout time.Duration) *Exec {
	return &Exec{
		Timeout: timeout,
		logger:  log.WithComponent("command"),
	}
}

// Run executes name with args and returns combined stdout and stderr
func (e *Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	line := Line(name, args...)
	e.logger.Debug().Str("cmd", line).Msg("Running command")

	start := time.Now()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	e.logger.Debug().
		Str("cmd", line).
		Dur("duration", time.Since(start)).
		Bool("ok", err == nil).
		Msg("Command finished")
	if err != nil {
		return out, &ExitError{Command: line, Output: string(out), Err: err}
	}
	return out, nil
}

// Stream executes name with args, sending stdout to w and capturing stderr
// for the error message
func (e *Exec) Stream(ctx context.Context, w io.Writer, name string, args ...string) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	line := Line(name, args...)
	e.logger.Debug().Str("cmd", line).Msg("Streaming command")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ExitError{Command: line, Output: stderr.String(), Err: err}
	}
	return nil
}

func (e *Exec) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout > 0 {
		return context.WithTimeout(ctx, e.Timeout)
	}
	return context.WithCancel(ctx)
}

// Line renders a command for logs
func Line(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
