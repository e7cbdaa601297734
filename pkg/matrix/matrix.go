package matrix

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/fsbench/pkg/config"
	"github.com/cuemby/fsbench/pkg/events"
	"github.com/cuemby/fsbench/pkg/lifecycle"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/cuemby/fsbench/pkg/storage"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/rs/zerolog"
)

// Registry is the view of the device catalogue the runner needs
type Registry interface {
	ListDevices(class types.DeviceClass) []types.Device
	IsSystemDevice(path string) bool
}

// Executor drives one Run through its lifecycle
type Executor interface {
	Execute(ctx context.Context, run *types.Run) error
}

// Archiver uploads a finished run directory
type Archiver interface {
	UploadDir(ctx context.Context, runDir string) (int, error)
}

// Config holds the collaborators of a Runner
type Config struct {
	Registry  Registry
	Lifecycle Executor
	Monitor   lifecycle.Monitor
	Store     storage.Store    // optional, needed for resume
	Archiver  Archiver         // optional
	Publisher events.Publisher // optional
	Settings  config.Settings
	Clock     func() time.Time
}

// Options narrow a matrix pass
type Options struct {
	// Resume skips pairs whose latest ledger entry reached Destroyed
	Resume bool

	// SkipBaseline skips the idle baseline before the first Run
	SkipBaseline bool
}

// Pair is one (device, filesystem) combination of the matrix
type Pair struct {
	Device     types.Device
	Filesystem types.FilesystemKind
}

func (p Pair) String() string {
	return p.Device.Name() + "/" + string(p.Filesystem)
}

// Outcome is what happened to one Pair
type Outcome struct {
	Pair    Pair
	Run     *types.Run // nil when skipped
	Err     error
	Skipped bool
}

// Summary collects the outcomes of a matrix pass
type Summary struct {
	Outcomes  []Outcome
	Completed int
	Failed    int
	Skipped   int
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch {
	case o.Skipped:
		s.Skipped++
	case o.Run != nil && o.Run.State == types.RunStateDestroyed:
		s.Completed++
	default:
		s.Failed++
	}
}

// Runner enumerates the matrix and hands each pair to the lifecycle
// controller, strictly one after another
type Runner struct {
	registry  Registry
	lifecycle Executor
	monitor   lifecycle.Monitor
	store     storage.Store
	archiver  Archiver
	publisher events.Publisher
	settings  config.Settings
	now       func() time.Time
	logger    zerolog.Logger
}

// NewRunner creates a Runner
func NewRunner(cfg Config) *Runner {
	r := &Runner{
		registry:  cfg.Registry,
		lifecycle: cfg.Lifecycle,
		monitor:   cfg.Monitor,
		store:     cfg.Store,
		archiver:  cfg.Archiver,
		publisher: cfg.Publisher,
		settings:  cfg.Settings,
		now:       cfg.Clock,
		logger:    log.WithComponent("matrix"),
	}
	if r.publisher == nil {
		r.publisher = events.Discard
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Plan lists the pairs of a full pass: device classes in the fixed class
// order, devices in catalogue order without the system device, and the
// configured filesystems in order
func (r *Runner) Plan() []Pair {
	var pairs []Pair
	for _, class := range types.DeviceClasses {
		for _, dev := range r.registry.ListDevices(class) {
			if r.registry.IsSystemDevice(dev.Path) {
				r.logger.Warn().Str("device", dev.Path).Msg("Skipping system device")
				r.publisher.Publish(events.New(events.EventDeviceSkipped, "", "system device", map[string]string{"device": dev.Path}))
				continue
			}
			for _, fs := range r.settings.Filesystems {
				pairs = append(pairs, Pair{Device: dev, Filesystem: fs})
			}
		}
	}
	return pairs
}

// RunAll runs the idle baseline and then every pair of the plan. A pair's
// failure never stops the pass. Only cancellation of ctx does, and then
// between Runs; the Run in flight still tears down.
func (r *Runner) RunAll(ctx context.Context, opts Options) (*Summary, error) {
	pairs := r.Plan()
	summary := &Summary{}
	r.logger.Info().Int("pairs", len(pairs)).Bool("constrained", r.settings.Constrained).Msg("Starting matrix")

	if !opts.SkipBaseline {
		if err := r.Baseline(ctx); err != nil {
			return summary, err
		}
	}

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			r.logger.Warn().Err(err).Msg("Matrix interrupted")
			return summary, err
		}

		if opts.Resume && r.done(p) {
			r.logger.Info().Str("pair", p.String()).Msg("Already completed, skipping")
			summary.add(Outcome{Pair: p, Skipped: true})
			continue
		}

		run, err := r.RunPair(ctx, p.Device, p.Filesystem)
		summary.add(Outcome{Pair: p, Run: run, Err: err})
	}

	r.logger.Info().
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("Matrix finished")
	r.publisher.Publish(events.New(events.EventMatrixCompleted, "", "matrix completed", map[string]string{
		"completed": fmt.Sprint(summary.Completed),
		"failed":    fmt.Sprint(summary.Failed),
		"skipped":   fmt.Sprint(summary.Skipped),
	}))
	return summary, nil
}

// RunPair runs exactly one (device, filesystem) pair with the same
// lifecycle guarantees as a full pass. The error is the Run's failure
// cause; the Run is always returned.
func (r *Runner) RunPair(ctx context.Context, dev types.Device, fs types.FilesystemKind) (*types.Run, error) {
	run := types.NewRun(dev, fs, r.settings.ResultsDir, r.now())
	err := r.lifecycle.Execute(ctx, run)
	if err != nil {
		r.logger.Error().Err(err).Str("pair", Pair{dev, fs}.String()).Str("state", string(run.State)).Msg("Run did not complete")
	}

	if r.archiver != nil && r.settings.Archive.AfterRun {
		if _, aerr := r.archiver.UploadDir(context.WithoutCancel(ctx), run.ResultDir); aerr != nil {
			r.logger.Warn().Err(aerr).Str("dir", run.ResultDir).Msg("Failed to archive run directory")
		}
	}
	return run, err
}

// Baseline records an idle period with monitoring up, before any device is
// touched. Cancellation cuts the wait short and is returned.
func (r *Runner) Baseline(ctx context.Context) error {
	d := r.settings.Baseline
	if d <= 0 {
		return nil
	}

	handle, err := r.monitor.Start(ctx)
	if err != nil && !errors.Is(err, types.ErrMonitoringUnavailable) {
		r.logger.Warn().Err(err).Msg("Monitoring failed to start for baseline")
	}
	defer r.monitor.Stop(context.WithoutCancel(ctx), handle)

	r.logger.Info().Dur("duration", d).Msg("Recording idle baseline")
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	r.publisher.Publish(events.New(events.EventBaseline, "", "baseline completed", map[string]string{"duration": d.String()}))
	return nil
}

// done reports whether the ledger holds a completed Run for p
func (r *Runner) done(p Pair) bool {
	if r.store == nil {
		return false
	}
	latest, err := r.store.LatestByPair(p.Device.Path, p.Filesystem)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn().Err(err).Str("pair", p.String()).Msg("Failed to read ledger")
		}
		return false
	}
	return latest.State == types.RunStateDestroyed
}
