/*
Package fsdriver creates, mounts, unmounts and destroys the filesystems under
test on a candidate device.

Each filesystem kind has a Driver. ext4, xfs and btrfs are made by one mkfs
call on the raw device; zfs builds a single-vdev pool named after the device
(see PoolName); overlay is a control kind whose layers live in a scratch
directory, leaving the device untouched.

# Safety

Format and Destroy consult a Guard before running any command. A device the
Guard reports as the system device, including its partitions and symlinks
that resolve to it, is refused with *types.SystemDiskProtectedError and
nothing on disk is changed. Without a Guard every destructive call is
refused.

Before formatting, every existing mount of the device is released. If that
fails the device is reported busy with *types.DeviceBusyError.

# Idempotence

Destroy is a no-op when the device or pool is already gone, and Unmount is a
no-op when the target is not mounted, so teardown can be repeated after a
partial failure. Token returns the handle Format would have produced, which
lets teardown run even when Format never returned.

	set := fsdriver.NewSet(command.NewExec(0), fsdriver.NewSystemMounter(), reg, overlayDir)
	drv, _ := set.Get(types.FilesystemXFS)
	res, err := drv.Format(ctx, dev)
	...
	err = drv.Mount(ctx, res.Token, "/mnt/testdisk")
*/
package fsdriver
