package workload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/cuemby/fsbench/pkg/command"
	"github.com/cuemby/fsbench/pkg/config"
	"github.com/cuemby/fsbench/pkg/health"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/rs/zerolog"
)

// ContainerRuntime is what the container-ops suite needs from the ambient
// runtime
type ContainerRuntime interface {
	PullImage(ctx context.Context, ref string) error
	RemoveImage(ctx context.Context, ref string) error
	RunOnce(ctx context.Context, ref, id string, args []string) (int, error)
}

// Adapter invokes the workload collaborators and captures their raw output
// under a run directory. Every suite is isolated: a failure inside one is
// returned as a *types.WorkloadSuiteFailure next to whatever artifacts it
// managed to write, and never panics into the caller.
type Adapter struct {
	exec     command.Executor
	runtime  ContainerRuntime
	io       config.IOSettings
	ctr      config.ContainerSettings
	ml       config.MLSettings
	now      func() time.Time
	logger   zerolog.Logger
	idPrefix string
}

// Option configures an Adapter
type Option func(*Adapter)

// WithClock replaces time.Now for elapsed-time measurement
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter creates an Adapter. rt may be nil when no container runtime
// is reachable; the container-ops suite then fails on its own.
func NewAdapter(s config.Settings, exec command.Executor, rt ContainerRuntime, opts ...Option) *Adapter {
	a := &Adapter{
		exec:     exec,
		runtime:  rt,
		io:       s.IO,
		ctr:      s.Container,
		ml:       s.ML,
		now:      time.Now,
		logger:   log.WithComponent("workload"),
		idPrefix: "fsbench-ss",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Preflight checks that each external tool the suites call is on PATH and
// returns one result per tool
func (a *Adapter) Preflight(ctx context.Context) map[string]health.Result {
	tools := []string{a.io.FioBinary, a.io.MdtestBinary}
	if argv, err := config.ExpandCommand(a.ml.Command, nil); err == nil {
		tools = append(tools, argv[0])
	}
	if argv, err := config.ExpandCommand(a.ctr.BuildCommand, nil); err == nil {
		tools = append(tools, argv[0])
	}

	results := make(map[string]health.Result, len(tools))
	for _, tool := range tools {
		checker := health.NewExecChecker(a.exec, []string{"sh", "-c", "command -v " + tool})
		results[tool] = checker.Check(ctx)
	}
	return results
}

// suite accumulates the outcome of one family
type suite struct {
	result types.SuiteResult
	failed []string
	errs   []error
	outDir string
}

func (a *Adapter) newSuite(family types.SuiteFamily, outDir string) *suite {
	return &suite{result: types.SuiteResult{Family: family}, outDir: outDir}
}

func (s *suite) ok(variant string) {
	s.result.Artifacts = append(s.result.Artifacts, types.Artifact{
		Family:  s.result.Family,
		Variant: variant,
		File:    types.ArtifactFileName(s.result.Family, variant),
	})
}

// fail records a failed variant and keeps its artifact only if something
// was written
func (s *suite) fail(variant string, err error) {
	s.failed = append(s.failed, variant)
	s.errs = append(s.errs, fmt.Errorf("%s: %w", variant, err))

	name := types.ArtifactFileName(s.result.Family, variant)
	path := filepath.Join(s.outDir, name)
	info, statErr := os.Stat(path)
	switch {
	case statErr != nil:
	case info.Size() == 0:
		_ = os.Remove(path)
	default:
		s.result.Artifacts = append(s.result.Artifacts, types.Artifact{
			Family:  s.result.Family,
			Variant: variant,
			File:    name,
			Partial: true,
		})
	}
}

// finish closes out the suite. It also turns a panic inside the suite into
// a failure of the variant that was running.
func (a *Adapter) finish(s *suite, start time.Time, current *string, res *types.SuiteResult, err *error) {
	if r := recover(); r != nil {
		a.logger.Error().
			Str("family", string(s.result.Family)).
			Str("variant", *current).
			Interface("panic", r).
			Bytes("stack", debug.Stack()).
			Msg("Workload suite panicked")
		s.fail(*current, fmt.Errorf("panic: %v", r))
	}

	s.result.Duration = a.now().Sub(start)
	s.result.OK = len(s.failed) == 0
	if !s.result.OK {
		failure := &types.WorkloadSuiteFailure{Family: s.result.Family, Failed: s.failed, Err: errors.Join(s.errs...)}
		s.result.Error = failure.Error()
		*err = failure
	}
	*res = s.result
}

func (a *Adapter) artifact(outDir string, family types.SuiteFamily, variant string) (*os.File, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(outDir, types.ArtifactFileName(family, variant)))
}

// FormatReal renders d the way the shell's time builtin prints real time
func FormatReal(d time.Duration) string {
	minutes := int(d / time.Minute)
	seconds := (d - time.Duration(minutes)*time.Minute).Seconds()
	return fmt.Sprintf("real\t%dm%.3fs", minutes, seconds)
}
