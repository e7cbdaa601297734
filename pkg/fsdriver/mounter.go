package fsdriver

import (
	"errors"
	"os"

	"github.com/cuemby/fsbench/pkg/types"
	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"
)

// Mounter attaches and detaches filesystems and reads the mount table
type Mounter interface {
	Mount(source, target, fstype, data string) error
	Unmount(target string) error
	IsMounted(target string) (bool, error)

	// MountPoints lists where source, or any partition of it, is mounted
	MountPoints(source string) ([]string, error)
}

// SystemMounter uses mount(2) and /proc/self/mountinfo
type SystemMounter struct{}

// NewSystemMounter creates a SystemMounter
func NewSystemMounter() *SystemMounter {
	return &SystemMounter{}
}

func (SystemMounter) Mount(source, target, fstype, data string) error {
	return unix.Mount(source, target, fstype, 0, data)
}

func (SystemMounter) Unmount(target string) error {
	return unix.Unmount(target, 0)
}

func (SystemMounter) IsMounted(target string) (bool, error) {
	mounted, err := mountinfo.Mounted(target)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return mounted, err
}

func (SystemMounter) MountPoints(source string) ([]string, error) {
	mounts, err := mountinfo.GetMounts(func(info *mountinfo.Info) (skip, stop bool) {
		return !sameDevice(info.Source, source), false
	})
	if err != nil {
		return nil, err
	}
	points := make([]string, 0, len(mounts))
	for _, m := range mounts {
		points = append(points, m.Mountpoint)
	}
	return points, nil
}

// sameDevice matches a mount source against a disk and its partitions
func sameDevice(mountSource, disk string) bool {
	return mountSource == disk || types.IsPartitionOf(mountSource, disk)
}
