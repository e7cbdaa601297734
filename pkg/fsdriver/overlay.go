package fsdriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/fsbench/pkg/types"
)

// overlayDriver is the control kind: an overlay mount whose layers live in
// a scratch directory on the host, so the device itself is never written.
type overlayDriver struct {
	base
	baseDir string
}

func newOverlayDriver(b base, baseDir string) *overlayDriver {
	return &overlayDriver{base: b, baseDir: baseDir}
}

func (d *overlayDriver) Kind() types.FilesystemKind { return types.FilesystemOverlay }

func (d *overlayDriver) Token(dev types.Device) MountToken {
	return MountToken(filepath.Join(d.baseDir, dev.Name()))
}

func (d *overlayDriver) Format(_ context.Context, dev types.Device) (FormatResult, error) {
	if err := d.protect(dev, "format"); err != nil {
		return FormatResult{}, err
	}
	dir := string(d.Token(dev))
	if err := os.RemoveAll(dir); err != nil {
		return FormatResult{}, fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	for _, layer := range []string{"lower", "upper", "work"} {
		if err := os.MkdirAll(filepath.Join(dir, layer), 0755); err != nil {
			return FormatResult{}, fmt.Errorf("failed to create overlay layer: %w", err)
		}
	}
	return FormatResult{Token: MountToken(dir)}, nil
}

func (d *overlayDriver) Mount(_ context.Context, token MountToken, target string) error {
	if err := ensureDir(target); err != nil {
		return err
	}
	dir := string(token)
	data := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s",
		filepath.Join(dir, "lower"), filepath.Join(dir, "upper"), filepath.Join(dir, "work"))
	if err := d.mounter.Mount("overlay", target, "overlay", data); err != nil {
		return fmt.Errorf("failed to mount overlay on %s: %w", target, err)
	}
	return nil
}

func (d *overlayDriver) Unmount(_ context.Context, _ MountToken, target string) error {
	return d.unmountTarget(target)
}

func (d *overlayDriver) Destroy(_ context.Context, token MountToken, dev types.Device) error {
	if err := d.protect(dev, "destroy"); err != nil {
		return err
	}
	if err := os.RemoveAll(string(token)); err != nil {
		return fmt.Errorf("failed to remove overlay layers %s: %w", token, err)
	}
	return nil
}
