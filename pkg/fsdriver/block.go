package fsdriver

import (
	"context"
	"fmt"

	"github.com/cuemby/fsbench/pkg/types"
)

// blockDriver covers filesystems made by a single mkfs call on the raw
// device: ext4, xfs and btrfs.
type blockDriver struct {
	base
	kind  types.FilesystemKind
	mkfs  string
	flags []string
}

func newBlockDriver(b base, kind types.FilesystemKind, mkfs string, flags ...string) *blockDriver {
	return &blockDriver{base: b, kind: kind, mkfs: mkfs, flags: flags}
}

func (d *blockDriver) Kind() types.FilesystemKind { return d.kind }

func (d *blockDriver) Token(dev types.Device) MountToken { return MountToken(dev.Path) }

func (d *blockDriver) Format(ctx context.Context, dev types.Device) (FormatResult, error) {
	if err := d.protect(dev, "format"); err != nil {
		return FormatResult{}, err
	}
	if err := d.release(dev); err != nil {
		return FormatResult{}, err
	}
	if err := d.wipe(ctx, dev); err != nil {
		return FormatResult{}, err
	}

	args := append(append([]string{}, d.flags...), dev.Path)
	if _, err := d.runner.Run(ctx, d.mkfs, args...); err != nil {
		return FormatResult{}, fmt.Errorf("failed to create %s on %s: %w", d.kind, dev.Path, err)
	}

	d.logger.Info().Str("device", dev.Path).Str("filesystem", string(d.kind)).Msg("Filesystem created")
	return FormatResult{Token: d.Token(dev)}, nil
}

func (d *blockDriver) Mount(_ context.Context, token MountToken, target string) error {
	if err := ensureDir(target); err != nil {
		return err
	}
	if err := d.mounter.Mount(string(token), target, string(d.kind), ""); err != nil {
		return fmt.Errorf("failed to mount %s on %s: %w", token, target, err)
	}
	return nil
}

func (d *blockDriver) Unmount(_ context.Context, _ MountToken, target string) error {
	return d.unmountTarget(target)
}

func (d *blockDriver) Destroy(ctx context.Context, token MountToken, dev types.Device) error {
	if err := d.protect(dev, "destroy"); err != nil {
		return err
	}
	if !d.exists(string(token)) {
		d.logger.Info().Str("device", string(token)).Msg("Device already absent, nothing to destroy")
		return nil
	}
	if err := d.release(dev); err != nil {
		return err
	}
	return d.wipe(ctx, dev)
}
