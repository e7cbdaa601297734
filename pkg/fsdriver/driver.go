package fsdriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/fsbench/pkg/command"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/cuemby/fsbench/pkg/registry"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/rs/zerolog"
)

// MountToken is the opaque handle a Format hands to Mount and Destroy: the
// device path for block filesystems, the pool name for zfs, the scratch
// directory for overlay.
type MountToken string

// FormatResult is returned by a successful Format
type FormatResult struct {
	Token MountToken
}

// Driver creates, mounts, unmounts and destroys one filesystem kind
type Driver interface {
	Kind() types.FilesystemKind

	// Format clears the device and creates a fresh filesystem on it. It
	// refuses the system device with *types.SystemDiskProtectedError.
	Format(ctx context.Context, dev types.Device) (FormatResult, error)

	// Mount attaches the filesystem at target, creating target if needed
	Mount(ctx context.Context, token MountToken, target string) error

	// Unmount detaches target; a target that is not mounted is not an error
	Unmount(ctx context.Context, token MountToken, target string) error

	// Destroy removes the filesystem. It is a no-op when the device or pool
	// is already gone, so teardown can always be retried.
	Destroy(ctx context.Context, token MountToken, dev types.Device) error

	// Token returns the token Format would hand out for dev, so teardown can
	// run after a Format that failed half way.
	Token(dev types.Device) MountToken
}

// Guard identifies the protected system device
type Guard interface {
	IsSystemDevice(path string) bool
}

// Set holds one driver per filesystem kind
type Set struct {
	drivers map[types.FilesystemKind]Driver
}

// NewSet builds the standard drivers sharing one runner, mounter and guard
func NewSet(runner command.Runner, mounter Mounter, guard Guard, overlayDir string) *Set {
	b := base{
		runner:  runner,
		mounter: mounter,
		guard:   guard,
		exists:  registry.IsBlockDevice,
		logger:  log.WithComponent("fsdriver"),
	}
	s := &Set{drivers: make(map[types.FilesystemKind]Driver)}
	for _, d := range []Driver{
		newBlockDriver(b, types.FilesystemExt4, "mkfs.ext4", "-F", "-q"),
		newBlockDriver(b, types.FilesystemXFS, "mkfs.xfs", "-f", "-q"),
		newBlockDriver(b, types.FilesystemBtrfs, "mkfs.btrfs", "-f", "-q"),
		newZFSDriver(b),
		newOverlayDriver(b, overlayDir),
	} {
		s.drivers[d.Kind()] = d
	}
	return s
}

// Register replaces the driver for its kind
func (s *Set) Register(d Driver) {
	s.drivers[d.Kind()] = d
}

// Get returns the driver for kind
func (s *Set) Get(kind types.FilesystemKind) (Driver, error) {
	d, ok := s.drivers[kind]
	if !ok {
		return nil, fmt.Errorf("no driver for filesystem %q", kind)
	}
	return d, nil
}

// VerifyMount checks that target is a mount point and writable
func VerifyMount(mounter Mounter, target string) error {
	mounted, err := mounter.IsMounted(target)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", target, err)
	}
	if !mounted {
		return fmt.Errorf("%s is not a mount point", target)
	}
	probe, err := os.CreateTemp(target, ".fsbench-probe-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", target, err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

// base carries what every driver shares
type base struct {
	runner  command.Runner
	mounter Mounter
	guard   Guard
	exists  func(path string) bool
	logger  zerolog.Logger
}

// protect is the mandatory system device check for destructive operations
func (b base) protect(dev types.Device, op string) error {
	if b.guard == nil || b.guard.IsSystemDevice(dev.Path) {
		return &types.SystemDiskProtectedError{Device: dev.Path, Operation: op}
	}
	return nil
}

// release unmounts every mount of dev or its partitions
func (b base) release(dev types.Device) error {
	points, err := b.mounter.MountPoints(dev.Path)
	if err != nil {
		return &types.DeviceBusyError{Device: dev.Path, Err: err}
	}
	for _, p := range points {
		b.logger.Info().Str("device", dev.Path).Str("mountpoint", p).Msg("Unmounting device before format")
		if err := b.mounter.Unmount(p); err != nil {
			return &types.DeviceBusyError{Device: dev.Path, Err: fmt.Errorf("unmount %s: %w", p, err)}
		}
	}
	return nil
}

// wipe clears every filesystem and partition signature on dev
func (b base) wipe(ctx context.Context, dev types.Device) error {
	if _, err := b.runner.Run(ctx, "wipefs", "-a", dev.Path); err != nil {
		return fmt.Errorf("failed to wipe %s: %w", dev.Path, err)
	}
	return nil
}

// unmountTarget detaches target if it is mounted
func (b base) unmountTarget(target string) error {
	mounted, err := b.mounter.IsMounted(target)
	if err != nil {
		return err
	}
	if !mounted {
		return nil
	}
	if err := b.mounter.Unmount(target); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", target, err)
	}
	return nil
}

func ensureDir(target string) error {
	if err := os.MkdirAll(filepath.Clean(target), 0755); err != nil {
		return fmt.Errorf("failed to create mount point %s: %w", target, err)
	}
	return nil
}
