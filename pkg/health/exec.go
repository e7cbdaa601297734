package health

import (
	"context"
	"strings"
	"time"

	"github.com/cuemby/fsbench/pkg/command"
)

// ExecChecker runs a command and reports healthy when it exits zero. It
// confirms a benchmark tool is installed before a suite starts.
type ExecChecker struct {
	Command []string
	Timeout time.Duration

	runner command.Runner
}

// NewExecChecker creates a checker running cmd through runner
func NewExecChecker(runner command.Runner, cmd []string) *ExecChecker {
	return &ExecChecker{Command: cmd, Timeout: 10 * time.Second, runner: runner}
}

// Check runs the command once. The message carries the first line of its
// output, which for "fio --version" style probes is the tool version.
func (e *ExecChecker) Check(ctx context.Context) Result {
	r := begin()
	if len(e.Command) == 0 {
		return r.fail("no command")
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	line := command.Line(e.Command[0], e.Command[1:]...)
	out, err := e.runner.Run(ctx, e.Command[0], e.Command[1:]...)
	if err != nil {
		return r.fail("%s: %v", line, err)
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if first == "" {
		return r.ok("%s", line)
	}
	return r.ok("%s", first)
}

// Type returns CheckTypeExec
func (e *ExecChecker) Type() CheckType { return CheckTypeExec }

// WithTimeout sets the command timeout
func (e *ExecChecker) WithTimeout(timeout time.Duration) *ExecChecker {
	e.Timeout = timeout
	return e
}
