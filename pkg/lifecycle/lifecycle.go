package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/fsbench/pkg/events"
	"github.com/cuemby/fsbench/pkg/fsdriver"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/cuemby/fsbench/pkg/metrics"
	"github.com/cuemby/fsbench/pkg/monitor"
	"github.com/cuemby/fsbench/pkg/storage"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/rs/zerolog"
)

// ManifestFile is the name of the run manifest inside a run directory
const ManifestFile = "run.json"

// Drivers resolves the driver of a filesystem kind
type Drivers interface {
	Get(kind types.FilesystemKind) (fsdriver.Driver, error)
}

// Monitor starts and stops telemetry around the workloads
type Monitor interface {
	Start(ctx context.Context, devices ...string) (*monitor.Handle, error)
	Stop(ctx context.Context, h *monitor.Handle)
}

// Workloads runs the three suite families
type Workloads interface {
	RunIOSuite(ctx context.Context, mount, outDir string) (types.SuiteResult, error)
	RunContainerOpsSuite(ctx context.Context, outDir string) (types.SuiteResult, error)
	RunMLCheckpointSuite(ctx context.Context, mount, outDir string) (types.SuiteResult, error)
}

// Config holds the collaborators of a Controller
type Config struct {
	Drivers    Drivers
	Mounter    fsdriver.Mounter
	Monitor    Monitor
	Workloads  Workloads
	Store      storage.Store    // optional
	Publisher  events.Publisher // optional
	MountPoint string
	Clock      func() time.Time
}

// Controller drives one Run at a time through its lifecycle
type Controller struct {
	drivers    Drivers
	mounter    fsdriver.Mounter
	monitor    Monitor
	workloads  Workloads
	store      storage.Store
	publisher  events.Publisher
	mountPoint string
	now        func() time.Time
	logger     zerolog.Logger
}

// NewController creates a Controller
func NewController(cfg Config) *Controller {
	c := &Controller{
		drivers:    cfg.Drivers,
		mounter:    cfg.Mounter,
		monitor:    cfg.Monitor,
		workloads:  cfg.Workloads,
		store:      cfg.Store,
		publisher:  cfg.Publisher,
		mountPoint: cfg.MountPoint,
		now:        cfg.Clock,
		logger:     log.WithComponent("lifecycle"),
	}
	if c.publisher == nil {
		c.publisher = events.Discard
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// MountPoint returns the shared mount point every Run leases
func (c *Controller) MountPoint() string {
	return c.mountPoint
}

// Execute drives run from Pending to Destroyed, or to Failed. Suite
// failures are recorded on the Run and do not fail it. Teardown runs
// whenever the device may have been touched, even after ctx is cancelled.
// The returned error is the cause of a Failed Run.
func (c *Controller) Execute(ctx context.Context, run *types.Run) (err error) {
	logger := log.WithRun(run.ID, run.Device.Path, string(run.Filesystem))
	metrics.RunsInProgress.Inc()
	defer func() {
		metrics.RunsInProgress.Dec()
		metrics.RunsTotal.WithLabelValues(string(run.Filesystem), string(run.State)).Inc()
		if err == nil {
			c.publish(events.EventRunCompleted, run, "run completed", nil)
		}
	}()

	logger.Info().Str("result_dir", run.ResultDir).Msg("Starting run")
	c.publish(events.EventRunStarted, run, "run started", map[string]string{
		"device":     run.Device.Path,
		"filesystem": string(run.Filesystem),
	})

	if err := os.MkdirAll(run.ResultDir, 0755); err != nil {
		return c.fail(run, "prepare", fmt.Errorf("failed to create result directory: %w", err))
	}
	c.record(run)

	driver, err := c.drivers.Get(run.Filesystem)
	if err != nil {
		return c.fail(run, "prepare", err)
	}

	if err := c.claimMountPoint(run); err != nil {
		return c.fail(run, "precondition", err)
	}

	// Pending -> Formatted
	timer := metrics.NewTimer()
	res, err := driver.Format(ctx, run.Device)
	timer.ObserveDurationVec(metrics.PhaseDuration, "format")
	if err != nil {
		failErr := c.fail(run, "format", err)
		if !errors.Is(err, types.ErrSystemDiskProtected) && !errors.Is(err, types.ErrDeviceBusy) {
			c.teardown(ctx, run, driver, driver.Token(run.Device))
		}
		return failErr
	}
	c.advance(run, types.RunStateFormatted, string(res.Token))

	// Formatted -> Mounted
	timer = metrics.NewTimer()
	err = driver.Mount(ctx, res.Token, c.mountPoint)
	if err == nil {
		err = fsdriver.VerifyMount(c.mounter, c.mountPoint)
	}
	timer.ObserveDurationVec(metrics.PhaseDuration, "mount")
	if err != nil {
		failErr := c.fail(run, "mount", err)
		c.teardown(ctx, run, driver, res.Token)
		return failErr
	}
	c.advance(run, types.RunStateMounted, c.mountPoint)

	// Mounted -> Monitoring
	handle, err := c.monitor.Start(ctx, run.Device.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Monitoring unavailable, continuing")
	}
	if handle != nil {
		run.MonitoringStrategy = handle.Strategy
	}
	c.advance(run, types.RunStateMonitoring, run.MonitoringStrategy)

	// Monitoring -> Executing -> Collected
	c.advance(run, types.RunStateExecuting, "")
	c.runSuites(ctx, run, logger)
	c.advance(run, types.RunStateCollected, "")

	c.monitor.Stop(context.WithoutCancel(ctx), handle)

	// Collected -> Unmounted -> Destroyed
	if err := c.teardown(ctx, run, driver, res.Token); err != nil {
		return err
	}
	logger.Info().Msg("Run destroyed")
	return nil
}

// claimMountPoint makes sure no previous Run still holds the mount point.
// An occupied mount point is unmounted once; if that does not free it the
// Run fails before the device is touched.
func (c *Controller) claimMountPoint(run *types.Run) error {
	mounted, err := c.mounter.IsMounted(c.mountPoint)
	if err != nil {
		return &types.DeviceBusyError{Device: run.Device.Path, Err: fmt.Errorf("inspect %s: %w", c.mountPoint, err)}
	}
	if !mounted {
		return nil
	}

	c.logger.Warn().Str("mountpoint", c.mountPoint).Msg("Mount point occupied, unmounting")
	if err := c.mounter.Unmount(c.mountPoint); err != nil {
		return &types.DeviceBusyError{Device: run.Device.Path, Err: fmt.Errorf("unmount %s: %w", c.mountPoint, err)}
	}
	if mounted, err := c.mounter.IsMounted(c.mountPoint); err != nil || mounted {
		return &types.DeviceBusyError{Device: run.Device.Path, Err: fmt.Errorf("%s still occupied", c.mountPoint)}
	}
	return nil
}

func (c *Controller) runSuites(ctx context.Context, run *types.Run, logger zerolog.Logger) {
	for _, family := range types.SuiteFamilies {
		c.publish(events.EventSuiteStarted, run, string(family)+" suite started", map[string]string{"family": string(family)})

		timer := metrics.NewTimer()
		var (
			res types.SuiteResult
			err error
		)
		switch family {
		case types.SuiteIO:
			res, err = c.workloads.RunIOSuite(ctx, c.mountPoint, run.ResultDir)
		case types.SuiteContainer:
			res, err = c.workloads.RunContainerOpsSuite(ctx, run.ResultDir)
		case types.SuiteML:
			res, err = c.workloads.RunMLCheckpointSuite(ctx, c.mountPoint, run.ResultDir)
		}
		timer.ObserveDurationVec(metrics.PhaseDuration, "suite_"+string(family))

		res.Family = family
		if err != nil {
			res.OK = false
			if res.Error == "" {
				res.Error = err.Error()
			}
			metrics.SuiteFailuresTotal.WithLabelValues(string(family)).Inc()
			logger.Error().Err(err).Str("family", string(family)).Msg("Workload suite failed")
			c.publish(events.EventSuiteFailed, run, res.Error, map[string]string{"family": string(family)})
		}
		run.Suites = append(run.Suites, res)
		c.record(run)
	}
}

// teardown unmounts and destroys whatever the Run created. It ignores
// cancellation of ctx, logs every failure and keeps going, and finally
// checks that the mount point is free again.
func (c *Controller) teardown(ctx context.Context, run *types.Run, driver fsdriver.Driver, token fsdriver.MountToken) error {
	ctx = context.WithoutCancel(ctx)
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.PhaseDuration, "teardown")

	var errs []error
	if err := driver.Unmount(ctx, token, c.mountPoint); err != nil {
		errs = append(errs, c.teardownFailed(run, "unmount", err))
	} else {
		c.advance(run, types.RunStateUnmounted, "")
	}

	if err := driver.Destroy(ctx, token, run.Device); err != nil {
		errs = append(errs, c.teardownFailed(run, "destroy", err))
	}

	if mounted, err := c.mounter.IsMounted(c.mountPoint); err != nil {
		errs = append(errs, c.teardownFailed(run, "verify", err))
	} else if mounted {
		errs = append(errs, c.teardownFailed(run, "verify", fmt.Errorf("%s still occupied", c.mountPoint)))
	}

	if len(errs) == 0 {
		c.advance(run, types.RunStateDestroyed, "")
		return nil
	}

	joined := errors.Join(errs...)
	run.TeardownError = joined.Error()
	if !run.State.Terminal() {
		return c.fail(run, "teardown", joined)
	}
	c.record(run)
	return joined
}

func (c *Controller) teardownFailed(run *types.Run, step string, err error) error {
	tf := &types.TeardownFailure{Step: step, Device: run.Device.Path, Err: err}
	metrics.TeardownFailuresTotal.Inc()
	c.logger.Error().
		Err(err).
		Bool("teardown", true).
		Str("run_id", run.ID).
		Str("device", run.Device.Path).
		Str("filesystem", string(run.Filesystem)).
		Str("step", step).
		Msg("Teardown step failed; the next run may find the device dirty")
	c.publish(events.EventTeardownFailed, run, tf.Error(), map[string]string{"step": step})
	return tf
}

// advance moves a non-terminal Run to the next state
func (c *Controller) advance(run *types.Run, to types.RunState, note string) {
	if run.State.Terminal() {
		return
	}
	from := run.State
	run.Advance(to, note, c.now())
	c.logger.Info().
		Str("run_id", run.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("Run state changed")
	c.publish(events.EventRunTransition, run, string(from)+" -> "+string(to), map[string]string{
		"from": string(from),
		"to":   string(to),
		"note": note,
	})
	c.record(run)
}

// fail moves the Run to Failed and returns err for the caller to report
func (c *Controller) fail(run *types.Run, step string, err error) error {
	if run.Error == "" {
		run.Error = fmt.Sprintf("%s: %v", step, err)
	}
	if !run.State.Terminal() {
		run.Advance(types.RunStateFailed, step, c.now())
	}
	c.logger.Error().
		Err(err).
		Str("run_id", run.ID).
		Str("device", run.Device.Path).
		Str("filesystem", string(run.Filesystem)).
		Str("step", step).
		Msg("Run failed")
	c.publish(events.EventRunFailed, run, run.Error, map[string]string{"step": step})
	c.record(run)
	return err
}

// record persists the Run to the ledger and to its manifest
func (c *Controller) record(run *types.Run) {
	if c.store != nil {
		if err := c.store.SaveRun(run); err != nil {
			c.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to save run to ledger")
		}
	}
	if err := WriteManifest(run); err != nil {
		c.logger.Debug().Err(err).Str("run_id", run.ID).Msg("Run manifest not written")
	}
}

func (c *Controller) publish(typ events.EventType, run *types.Run, msg string, meta map[string]string) {
	if meta == nil {
		meta = make(map[string]string)
	}
	meta["state"] = string(run.State)
	meta["device"] = run.Device.Name()
	meta["filesystem"] = string(run.Filesystem)
	e := events.New(typ, run.ID, msg, meta)
	e.Timestamp = c.now()
	c.publisher.Publish(e)
}

// WriteManifest writes run.json into the Run's result directory. The
// directory must exist.
func WriteManifest(run *types.Run) error {
	if _, err := os.Stat(run.ResultDir); err != nil {
		return err
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(run.ResultDir, "."+ManifestFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(run.ResultDir, ManifestFile))
}
