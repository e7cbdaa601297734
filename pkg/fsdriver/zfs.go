package fsdriver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cuemby/fsbench/pkg/command"
	"github.com/cuemby/fsbench/pkg/types"
)

// PoolPrefix starts every pool name fsbench creates
const PoolPrefix = "fsbench_"

// zfsDriver builds a single-vdev pool per device. The pool name is derived
// from the device base name, so a pool left behind by an interrupted run is
// found and destroyed before a new one is created.
type zfsDriver struct {
	base
}

func newZFSDriver(b base) *zfsDriver {
	return &zfsDriver{base: b}
}

// PoolName returns the deterministic pool name for a device
func PoolName(devicePath string) string {
	name := filepath.Base(devicePath)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		}
		return '_'
	}, name)
	return PoolPrefix + name
}

func (d *zfsDriver) Kind() types.FilesystemKind { return types.FilesystemZFS }

func (d *zfsDriver) Token(dev types.Device) MountToken { return MountToken(PoolName(dev.Path)) }

func (d *zfsDriver) Format(ctx context.Context, dev types.Device) (FormatResult, error) {
	if err := d.protect(dev, "format"); err != nil {
		return FormatResult{}, err
	}
	pool := PoolName(dev.Path)

	// destroy-if-exists-then-create
	if err := d.destroyPool(ctx, pool); err != nil {
		return FormatResult{}, &types.DeviceBusyError{Device: dev.Path, Err: err}
	}
	if err := d.release(dev); err != nil {
		return FormatResult{}, err
	}
	if err := d.wipe(ctx, dev); err != nil {
		return FormatResult{}, err
	}
	if _, err := d.runner.Run(ctx, "zpool", "create", "-f", "-m", "none", pool, dev.Path); err != nil {
		return FormatResult{}, fmt.Errorf("failed to create pool %s on %s: %w", pool, dev.Path, err)
	}

	d.logger.Info().Str("device", dev.Path).Str("pool", pool).Msg("Pool created")
	return FormatResult{Token: MountToken(pool)}, nil
}

// Mount points the pool's root dataset at target
func (d *zfsDriver) Mount(ctx context.Context, token MountToken, target string) error {
	if err := ensureDir(target); err != nil {
		return err
	}
	pool := string(token)
	if _, err := d.runner.Run(ctx, "zfs", "set", "mountpoint="+target, pool); err != nil {
		return fmt.Errorf("failed to set mountpoint of %s: %w", pool, err)
	}
	mounted, err := d.mounter.IsMounted(target)
	if err != nil {
		return err
	}
	if !mounted {
		if _, err := d.runner.Run(ctx, "zfs", "mount", pool); err != nil {
			return fmt.Errorf("failed to mount pool %s: %w", pool, err)
		}
	}
	return nil
}

func (d *zfsDriver) Unmount(ctx context.Context, token MountToken, target string) error {
	pool := string(token)
	exists, err := d.poolExists(ctx, pool)
	if err != nil {
		return err
	}
	if exists {
		mounted, err := d.mounter.IsMounted(target)
		if err != nil {
			return err
		}
		if mounted {
			if _, err := d.runner.Run(ctx, "zfs", "unmount", pool); err != nil {
				return fmt.Errorf("failed to unmount pool %s: %w", pool, err)
			}
		}
	}
	// A mount of something else entirely still has to go.
	return d.unmountTarget(target)
}

func (d *zfsDriver) Destroy(ctx context.Context, token MountToken, dev types.Device) error {
	if err := d.protect(dev, "destroy"); err != nil {
		return err
	}
	if err := d.destroyPool(ctx, string(token)); err != nil {
		return err
	}
	if !d.exists(dev.Path) {
		return nil
	}
	if _, err := d.runner.Run(ctx, "zpool", "labelclear", "-f", dev.Path); err != nil {
		// No label is the normal case after a clean destroy.
		d.logger.Debug().Err(err).Str("device", dev.Path).Msg("labelclear skipped")
	}
	return nil
}

// destroyPool destroys pool and treats a missing pool as already destroyed
func (d *zfsDriver) destroyPool(ctx context.Context, pool string) error {
	exists, err := d.poolExists(ctx, pool)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	d.logger.Info().Str("pool", pool).Msg("Destroying pool")
	if _, err := d.runner.Run(ctx, "zpool", "destroy", "-f", pool); err != nil {
		if isNoSuchPool(err) {
			return nil
		}
		return fmt.Errorf("failed to destroy pool %s: %w", pool, err)
	}
	return nil
}

func (d *zfsDriver) poolExists(ctx context.Context, pool string) (bool, error) {
	if _, err := d.runner.Run(ctx, "zpool", "list", "-H", "-o", "name", pool); err != nil {
		if isNoSuchPool(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query pool %s: %w", pool, err)
	}
	return true, nil
}

func isNoSuchPool(err error) bool {
	var exitErr *command.ExitError
	if errors.As(err, &exitErr) {
		return strings.Contains(exitErr.Output, "no such pool")
	}
	return strings.Contains(err.Error(), "no such pool")
}
