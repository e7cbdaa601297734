package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/fsbench/pkg/fsdriver"
	"github.com/cuemby/fsbench/pkg/types"
)

// FormatOnly formats dev with fs and leaves it unmounted. It goes through
// the same driver and system device check as a Run.
func (c *Controller) FormatOnly(ctx context.Context, dev types.Device, fs types.FilesystemKind) (fsdriver.MountToken, error) {
	driver, err := c.drivers.Get(fs)
	if err != nil {
		return "", err
	}
	res, err := driver.Format(ctx, dev)
	if err != nil {
		return "", err
	}
	c.logger.Info().
		Str("device", dev.Path).
		Str("filesystem", string(fs)).
		Str("token", string(res.Token)).
		Msg("Device formatted")
	return res.Token, nil
}

// Release unmounts the shared mount point and destroys fs on dev, for
// cleaning up after a Run that was killed. Every step runs even if an
// earlier one failed.
func (c *Controller) Release(ctx context.Context, dev types.Device, fs types.FilesystemKind) error {
	driver, err := c.drivers.Get(fs)
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	token := driver.Token(dev)

	var errs []error
	if err := driver.Unmount(ctx, token, c.mountPoint); err != nil {
		errs = append(errs, &types.TeardownFailure{Step: "unmount", Device: dev.Path, Err: err})
	}
	if err := driver.Destroy(ctx, token, dev); err != nil {
		errs = append(errs, &types.TeardownFailure{Step: "destroy", Device: dev.Path, Err: err})
	}
	if mounted, err := c.mounter.IsMounted(c.mountPoint); err == nil && mounted {
		errs = append(errs, &types.TeardownFailure{Step: "verify", Device: dev.Path, Err: fmt.Errorf("%s still occupied", c.mountPoint)})
	}
	for _, err := range errs {
		c.logger.Error().Err(err).Bool("teardown", true).Str("device", dev.Path).Msg("Release step failed")
	}
	return errors.Join(errs...)
}
