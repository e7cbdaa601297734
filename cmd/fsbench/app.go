package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cuemby/fsbench/pkg/archive"
	"github.com/cuemby/fsbench/pkg/command"
	"github.com/cuemby/fsbench/pkg/config"
	"github.com/cuemby/fsbench/pkg/events"
	"github.com/cuemby/fsbench/pkg/fsdriver"
	"github.com/cuemby/fsbench/pkg/lifecycle"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/cuemby/fsbench/pkg/matrix"
	"github.com/cuemby/fsbench/pkg/monitor"
	"github.com/cuemby/fsbench/pkg/registry"
	"github.com/cuemby/fsbench/pkg/runtime"
	"github.com/cuemby/fsbench/pkg/storage"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/cuemby/fsbench/pkg/workload"
	"github.com/spf13/cobra"
)

// app wires every component for one command invocation
type app struct {
	cfg      *config.Config
	settings config.Settings
	registry *registry.Registry
	store    storage.Store
	broker   *events.Broker
	runtime  *runtime.ContainerdRuntime

	lifecycle *lifecycle.Controller
	matrix    *matrix.Runner
	adapter   *workload.Adapter
}

// loadConfig reads the configuration named by --config. Every failure is
// a *types.ConfigurationError.
func loadConfig(cmd *cobra.Command) (*config.Config, config.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("FSBENCH_CONFIG")
	}
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, config.Settings{}, err
	}

	constrained := false
	if f := cmd.Flags().Lookup("constrained"); f != nil {
		constrained, _ = cmd.Flags().GetBool("constrained")
	}
	return cfg, cfg.Settings(constrained), nil
}

// newApp builds the full pipeline. The container runtime is optional: when
// containerd is unreachable the container-ops suite fails on its own.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, settings, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := log.WithComponent("cli")

	a := &app{
		cfg:      cfg,
		settings: settings,
		registry: registry.New(cfg),
		broker:   events.NewBroker(),
	}
	a.broker.Start()

	a.store, err = storage.NewBoltStore(settings.StateDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}

	exec := command.NewExec(0)
	mounter := fsdriver.NewSystemMounter()
	drivers := fsdriver.NewSet(exec, mounter, a.registry, settings.OverlayDir)

	mon, err := monitor.FromSettings(settings.Monitoring, exec, a.broker)
	if err != nil {
		a.Close()
		return nil, err
	}

	var rt workload.ContainerRuntime
	if crt, err := runtime.NewContainerdRuntime(settings.Container.Socket, settings.Container.Namespace); err != nil {
		logger.Warn().Err(err).Str("socket", settings.Container.Socket).Msg("containerd unavailable, container suite will fail")
	} else {
		a.runtime = crt
		rt = crt
	}
	a.adapter = workload.NewAdapter(settings, exec, rt)

	a.lifecycle = lifecycle.NewController(lifecycle.Config{
		Drivers:    drivers,
		Mounter:    mounter,
		Monitor:    mon,
		Workloads:  a.adapter,
		Store:      a.store,
		Publisher:  a.broker,
		MountPoint: settings.MountPoint,
	})

	var arch matrix.Archiver
	if settings.Archive.Bucket != "" {
		archiver, err := archive.New(ctx, settings.Archive)
		if err != nil {
			logger.Warn().Err(err).Msg("Archive disabled")
		} else {
			arch = archiver
		}
	}

	a.matrix = matrix.NewRunner(matrix.Config{
		Registry:  a.registry,
		Lifecycle: a.lifecycle,
		Monitor:   mon,
		Store:     a.store,
		Archiver:  arch,
		Publisher: a.broker,
		Settings:  settings,
	})
	return a, nil
}

// Close releases everything newApp opened
func (a *app) Close() {
	if a.broker != nil {
		a.broker.Stop()
	}
	if a.runtime != nil {
		a.runtime.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// device resolves a device argument against the catalogue. Paths not in
// the catalogue are accepted as they are, with the class left empty.
func (a *app) device(path string) types.Device {
	if dev, ok := a.registry.Lookup(path); ok {
		return dev
	}
	return types.Device{Path: path, Label: a.registry.ResolveName(path)}
}
