package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/fsbench/pkg/command"
	"github.com/cuemby/fsbench/pkg/events"
	"github.com/cuemby/fsbench/pkg/fsdriver"
	"github.com/cuemby/fsbench/pkg/metrics"
	"github.com/cuemby/fsbench/pkg/monitor"
	"github.com/cuemby/fsbench/pkg/storage"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDisk   = types.Device{Path: "/dev/sdb", Class: types.DeviceClassHDD, Label: "slow"}
	systemDisk = types.Device{Path: "/dev/sda", Class: types.DeviceClassSSD, Label: "root"}
)

type fakeDriver struct {
	mounter *fsdriver.FakeMounter

	formatErr  error
	mountErr   error
	unmountErr error
	destroyErr error

	calls         []string
	destroyToken  fsdriver.MountToken
	destroyCtxErr error
}

func (d *fakeDriver) Kind() types.FilesystemKind { return types.FilesystemXFS }

func (d *fakeDriver) Token(dev types.Device) fsdriver.MountToken {
	return fsdriver.MountToken("tok:" + dev.Path)
}

func (d *fakeDriver) Format(_ context.Context, dev types.Device) (fsdriver.FormatResult, error) {
	d.calls = append(d.calls, "format")
	if d.formatErr != nil {
		return fsdriver.FormatResult{}, d.formatErr
	}
	return fsdriver.FormatResult{Token: d.Token(dev)}, nil
}

func (d *fakeDriver) Mount(_ context.Context, token fsdriver.MountToken, target string) error {
	d.calls = append(d.calls, "mount")
	if d.mountErr != nil {
		return d.mountErr
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return err
	}
	return d.mounter.Mount(string(token), target, "xfs", "")
}

func (d *fakeDriver) Unmount(_ context.Context, _ fsdriver.MountToken, target string) error {
	d.calls = append(d.calls, "unmount")
	if d.unmountErr != nil {
		return d.unmountErr
	}
	if mounted, _ := d.mounter.IsMounted(target); mounted {
		return d.mounter.Unmount(target)
	}
	return nil
}

func (d *fakeDriver) Destroy(ctx context.Context, token fsdriver.MountToken, _ types.Device) error {
	d.calls = append(d.calls, "destroy")
	d.destroyToken = token
	d.destroyCtxErr = ctx.Err()
	return d.destroyErr
}

type driverMap map[types.FilesystemKind]fsdriver.Driver

func (m driverMap) Get(kind types.FilesystemKind) (fsdriver.Driver, error) {
	d, ok := m[kind]
	if !ok {
		return nil, fmt.Errorf("no driver for %s", kind)
	}
	return d, nil
}

type fakeMonitor struct {
	err     error
	started int
	stopped int
}

func (m *fakeMonitor) Start(context.Context, ...string) (*monitor.Handle, error) {
	m.started++
	if m.err != nil {
		return &monitor.Handle{Strategy: monitor.NoneStrategy}, m.err
	}
	return &monitor.Handle{Strategy: "builtin", StartedAt: time.Now()}, nil
}

func (m *fakeMonitor) Stop(context.Context, *monitor.Handle) { m.stopped++ }

type fakeWorkloads struct {
	fail   map[types.SuiteFamily]error
	during func(types.SuiteFamily)
	ran    []types.SuiteFamily
}

func (w *fakeWorkloads) run(family types.SuiteFamily, outDir string) (types.SuiteResult, error) {
	w.ran = append(w.ran, family)
	if w.during != nil {
		w.during(family)
	}
	if err := w.fail[family]; err != nil {
		return types.SuiteResult{Family: family}, &types.WorkloadSuiteFailure{Family: family, Err: err}
	}
	file := types.ArtifactFileName(family, "probe")
	if err := os.WriteFile(filepath.Join(outDir, file), []byte("real\t0m1.000s\n"), 0644); err != nil {
		return types.SuiteResult{}, err
	}
	return types.SuiteResult{
		Family:    family,
		OK:        true,
		Artifacts: []types.Artifact{{Family: family, Variant: "probe", File: file}},
	}, nil
}

func (w *fakeWorkloads) RunIOSuite(_ context.Context, _, outDir string) (types.SuiteResult, error) {
	return w.run(types.SuiteIO, outDir)
}

func (w *fakeWorkloads) RunContainerOpsSuite(_ context.Context, outDir string) (types.SuiteResult, error) {
	return w.run(types.SuiteContainer, outDir)
}

func (w *fakeWorkloads) RunMLCheckpointSuite(_ context.Context, _, outDir string) (types.SuiteResult, error) {
	return w.run(types.SuiteML, outDir)
}

type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorder) Publish(e *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.EventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	ctrl      *Controller
	mounter   *fsdriver.FakeMounter
	driver    *fakeDriver
	monitor   *fakeMonitor
	workloads *fakeWorkloads
	store     storage.Store
	events    *recorder
	mount     string
	results   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewBoltStore(filepath.Join(root, "state"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := &harness{
		mounter:   fsdriver.NewFakeMounter(),
		monitor:   &fakeMonitor{},
		workloads: &fakeWorkloads{fail: make(map[types.SuiteFamily]error)},
		store:     store,
		events:    &recorder{},
		mount:     filepath.Join(root, "mnt", "testdisk"),
		results:   filepath.Join(root, "results"),
	}
	h.driver = &fakeDriver{mounter: h.mounter}
	h.ctrl = h.controller(driverMap{types.FilesystemXFS: h.driver})
	return h
}

func (h *harness) controller(drivers Drivers) *Controller {
	return NewController(Config{
		Drivers:    drivers,
		Mounter:    h.mounter,
		Monitor:    h.monitor,
		Workloads:  h.workloads,
		Store:      h.store,
		Publisher:  h.events,
		MountPoint: h.mount,
	})
}

func (h *harness) newRun(dev types.Device) *types.Run {
	return types.NewRun(dev, types.FilesystemXFS, h.results, time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC))
}

func (h *harness) mountPointFree(t *testing.T) {
	t.Helper()
	mounted, err := h.mounter.IsMounted(h.mount)
	require.NoError(t, err)
	assert.False(t, mounted, "mount point must be unoccupied after a run")
}

func states(run *types.Run) []types.RunState {
	var out []types.RunState
	for _, tr := range run.History {
		out = append(out, tr.To)
	}
	return out
}

func TestExecuteHappyPath(t *testing.T) {
	h := newHarness(t)
	run := h.newRun(testDisk)

	require.NoError(t, h.ctrl.Execute(context.Background(), run))

	assert.Equal(t, types.RunStateDestroyed, run.State)
	assert.Equal(t, []types.RunState{
		types.RunStateFormatted, types.RunStateMounted, types.RunStateMonitoring, types.RunStateExecuting,
		types.RunStateCollected, types.RunStateUnmounted, types.RunStateDestroyed,
	}, states(run))
	assert.Equal(t, []string{"format", "mount", "unmount", "destroy"}, h.driver.calls)
	assert.Equal(t, []types.SuiteFamily{types.SuiteIO, types.SuiteContainer, types.SuiteML}, h.workloads.ran)
	assert.Equal(t, "builtin", run.MonitoringStrategy)
	assert.Equal(t, 1, h.monitor.stopped)
	h.mountPointFree(t)

	data, err := os.ReadFile(filepath.Join(run.ResultDir, ManifestFile))
	require.NoError(t, err)
	var manifest types.Run
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, types.RunStateDestroyed, manifest.State)
	assert.Len(t, manifest.Suites, 3)

	latest, err := h.store.LatestByPair(testDisk.Path, types.FilesystemXFS)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, types.RunStateDestroyed, latest.State)

	got := h.events.types()
	assert.Equal(t, events.EventRunStarted, got[0])
	assert.Equal(t, events.EventRunCompleted, got[len(got)-1])
	assert.Equal(t, "slow_xfs_20260303_100000", filepath.Base(run.ResultDir))
}

func TestExecuteSuiteFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.workloads.fail[types.SuiteML] = errors.New("checkpoint script crashed")
	before := testutil.ToFloat64(metrics.SuiteFailuresTotal.WithLabelValues("ml"))
	run := h.newRun(testDisk)

	require.NoError(t, h.ctrl.Execute(context.Background(), run))

	assert.Equal(t, types.RunStateDestroyed, run.State)
	require.Len(t, run.Suites, 3)
	assert.True(t, run.Suites[0].OK)
	assert.True(t, run.Suites[1].OK)
	assert.False(t, run.Suites[2].OK)
	assert.Contains(t, run.Suites[2].Error, "checkpoint script crashed")

	for _, file := range []string{"io_probe.txt", "container_probe.txt"} {
		_, err := os.Stat(filepath.Join(run.ResultDir, file))
		assert.NoError(t, err, file)
	}
	assert.Contains(t, h.events.types(), events.EventSuiteFailed)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SuiteFailuresTotal.WithLabelValues("ml")))
}

func TestExecuteSuiteFailureStillRunsLaterSuites(t *testing.T) {
	h := newHarness(t)
	h.workloads.fail[types.SuiteIO] = errors.New("fio missing")
	run := h.newRun(testDisk)

	require.NoError(t, h.ctrl.Execute(context.Background(), run))
	assert.Equal(t, []types.SuiteFamily{types.SuiteIO, types.SuiteContainer, types.SuiteML}, h.workloads.ran)
	assert.Equal(t, types.RunStateDestroyed, run.State)
}

func TestExecuteFormatFailure(t *testing.T) {
	h := newHarness(t)
	h.driver.formatErr = errors.New("mkfs.xfs: bad superblock")
	run := h.newRun(testDisk)

	err := h.ctrl.Execute(context.Background(), run)
	require.Error(t, err)

	assert.Equal(t, types.RunStateFailed, run.State)
	assert.Contains(t, run.Error, "format")
	assert.Equal(t, []string{"format", "unmount", "destroy"}, h.driver.calls, "no mount after a failed format")
	assert.Equal(t, fsdriver.MountToken("tok:/dev/sdb"), h.driver.destroyToken)
	assert.Empty(t, h.workloads.ran)
	assert.Zero(t, h.monitor.started)
	h.mountPointFree(t)
}

func TestExecuteRefusesSystemDevice(t *testing.T) {
	h := newHarness(t)
	runner := command.NewFake()
	set := fsdriver.NewSet(runner, h.mounter, staticGuard(systemDisk.Path), t.TempDir())
	ctrl := h.controller(set)
	run := h.newRun(systemDisk)

	err := ctrl.Execute(context.Background(), run)

	var protected *types.SystemDiskProtectedError
	require.ErrorAs(t, err, &protected)
	assert.Equal(t, types.RunStateFailed, run.State)
	assert.Empty(t, runner.Calls, "nothing may run against the system device")
	h.mountPointFree(t)
}

func TestExecuteWithRealBlockDriver(t *testing.T) {
	h := newHarness(t)
	runner := command.NewFake()
	set := fsdriver.NewSet(runner, h.mounter, staticGuard(systemDisk.Path), t.TempDir())
	ctrl := h.controller(set)
	run := h.newRun(testDisk)

	require.NoError(t, ctrl.Execute(context.Background(), run))

	assert.Equal(t, types.RunStateDestroyed, run.State)
	assert.True(t, runner.Called("mkfs.xfs -f -q /dev/sdb"), runner.String())
	h.mountPointFree(t)
}

func TestExecuteFormatBusySkipsTeardown(t *testing.T) {
	h := newHarness(t)
	h.driver.formatErr = &types.DeviceBusyError{Device: testDisk.Path, Err: errors.New("target is busy")}
	run := h.newRun(testDisk)

	err := h.ctrl.Execute(context.Background(), run)
	assert.ErrorIs(t, err, types.ErrDeviceBusy)
	assert.Equal(t, []string{"format"}, h.driver.calls)
}

func TestExecuteMountFailure(t *testing.T) {
	h := newHarness(t)
	h.driver.mountErr = errors.New("wrong fs type")
	run := h.newRun(testDisk)

	err := h.ctrl.Execute(context.Background(), run)
	require.Error(t, err)

	assert.Equal(t, types.RunStateFailed, run.State)
	assert.Equal(t, []types.RunState{types.RunStateFormatted, types.RunStateFailed}, states(run))
	assert.Equal(t, []string{"format", "mount", "unmount", "destroy"}, h.driver.calls, "best-effort destroy after a failed mount")
	assert.Empty(t, h.workloads.ran)
	h.mountPointFree(t)
}

func TestExecuteMonitoringFailureDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	h.monitor.err = fmt.Errorf("%w: compose: exit 1", types.ErrMonitoringUnavailable)
	run := h.newRun(testDisk)

	require.NoError(t, h.ctrl.Execute(context.Background(), run))
	assert.Equal(t, types.RunStateDestroyed, run.State)
	assert.Equal(t, monitor.NoneStrategy, run.MonitoringStrategy)
	assert.Len(t, h.workloads.ran, 3)
}

func TestExecuteOccupiedMountPoint(t *testing.T) {
	t.Run("freed by one unmount", func(t *testing.T) {
		h := newHarness(t)
		h.mounter.SetMounted("/dev/sdz", h.mount)
		run := h.newRun(testDisk)

		require.NoError(t, h.ctrl.Execute(context.Background(), run))
		assert.Equal(t, types.RunStateDestroyed, run.State)
	})

	t.Run("still busy", func(t *testing.T) {
		h := newHarness(t)
		h.mounter.SetMounted("/dev/sdz", h.mount)
		h.mounter.UnmountErr = errors.New("target is busy")
		run := h.newRun(testDisk)

		err := h.ctrl.Execute(context.Background(), run)
		assert.ErrorIs(t, err, types.ErrDeviceBusy)
		assert.Equal(t, types.RunStateFailed, run.State)
		assert.Empty(t, h.driver.calls, "the device is not touched")
	})
}

func TestExecuteTeardownFailure(t *testing.T) {
	h := newHarness(t)
	h.driver.unmountErr = errors.New("target is busy")
	before := testutil.ToFloat64(metrics.TeardownFailuresTotal)
	run := h.newRun(testDisk)

	err := h.ctrl.Execute(context.Background(), run)

	var tf *types.TeardownFailure
	require.ErrorAs(t, err, &tf)
	assert.Equal(t, "unmount", tf.Step)
	assert.Equal(t, types.RunStateFailed, run.State)
	assert.NotEmpty(t, run.TeardownError)
	assert.Contains(t, h.driver.calls, "destroy", "destroy is still attempted")
	assert.Contains(t, h.events.types(), events.EventTeardownFailed)
	assert.Greater(t, testutil.ToFloat64(metrics.TeardownFailuresTotal), before)

	latest, err := h.store.LatestByPair(testDisk.Path, types.FilesystemXFS)
	require.NoError(t, err)
	assert.Equal(t, types.RunStateFailed, latest.State)
}

func TestExecuteTeardownIgnoresCancellation(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.workloads.during = func(f types.SuiteFamily) {
		if f == types.SuiteIO {
			cancel()
		}
	}
	run := h.newRun(testDisk)

	require.NoError(t, h.ctrl.Execute(ctx, run))
	assert.Contains(t, h.driver.calls, "destroy")
	assert.NoError(t, h.driver.destroyCtxErr)
	h.mountPointFree(t)
}

func TestReleaseIsRepeatable(t *testing.T) {
	h := newHarness(t)
	h.mounter.SetMounted("tok:/dev/sdb", h.mount)

	require.NoError(t, h.ctrl.Release(context.Background(), testDisk, types.FilesystemXFS))
	require.NoError(t, h.ctrl.Release(context.Background(), testDisk, types.FilesystemXFS))
	assert.Equal(t, []string{"unmount", "destroy", "unmount", "destroy"}, h.driver.calls)
	h.mountPointFree(t)
}

func TestFormatOnly(t *testing.T) {
	h := newHarness(t)
	token, err := h.ctrl.FormatOnly(context.Background(), testDisk, types.FilesystemXFS)
	require.NoError(t, err)
	assert.Equal(t, fsdriver.MountToken("tok:/dev/sdb"), token)

	_, err = h.ctrl.FormatOnly(context.Background(), testDisk, types.FilesystemZFS)
	assert.Error(t, err)
}

type staticGuard string

func (g staticGuard) IsSystemDevice(path string) bool { return path == string(g) }
