package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/fsbench/pkg/command"
	"github.com/cuemby/fsbench/pkg/config"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T, present ...string) *Registry {
	t.Helper()
	cfg, err := config.Parse([]byte(`
system_device: /dev/sda
devices:
  /dev/sda:
    class: ssd
  /dev/sdc:
    class: hdd
    label: slow
  /dev/sdb:
    class: hdd
  /dev/sdd:
    class: hdd
  /dev/nvme0n1:
    class: nvme
    label: fast
`))
	require.NoError(t, err)

	set := make(map[string]bool)
	for _, p := range present {
		set[p] = true
	}
	return New(cfg, WithExistsFunc(func(p string) bool { return set[p] }))
}

func TestListDevicesKeepsOrderAndFilters(t *testing.T) {
	r := testRegistry(t, "/dev/sda", "/dev/sdb", "/dev/sdc", "/dev/nvme0n1")

	hdds := r.ListDevices(types.DeviceClassHDD)
	require.Len(t, hdds, 2)
	assert.Equal(t, "/dev/sdc", hdds[0].Path)
	assert.Equal(t, "/dev/sdb", hdds[1].Path)

	// /dev/sda is the system device even though it is catalogued as ssd
	assert.Empty(t, r.ListDevices(types.DeviceClassSSD))

	nvme := r.ListDevices(types.DeviceClassNVMe)
	require.Len(t, nvme, 1)
	assert.Equal(t, "fast", nvme[0].Label)
}

func TestIsSystemDevice(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		path string
		want bool
	}{
		{"/dev/sda", true},
		{"/dev/sda1", true},
		{"/dev/sda12", true},
		{"/dev/../dev/sda", true},
		{"/dev/sdaa", false},
		{"/dev/sdb", false},
		{"/dev/sdb1", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsSystemDevice(tt.path))
		})
	}
}

func TestIsSystemDeviceNVMePartitionAndSymlink(t *testing.T) {
	cfg := &config.Config{SystemDevice: "/dev/nvme0n1"}
	r := New(cfg)
	assert.True(t, r.IsSystemDevice("/dev/nvme0n1p2"))
	assert.False(t, r.IsSystemDevice("/dev/nvme0n1x"))
	assert.False(t, r.IsSystemDevice("/dev/nvme0n10"))
	assert.False(t, r.IsSystemDevice("/dev/nvme0n10p1"))
	assert.False(t, New(&config.Config{SystemDevice: "/dev/loop1"}).IsSystemDevice("/dev/loop10"))
	assert.True(t, New(&config.Config{SystemDevice: "/dev/sda"}).IsSystemDevice("/dev/sda3"))

	dir := t.TempDir()
	target := filepath.Join(dir, "disk")
	require.NoError(t, os.WriteFile(target, nil, 0644))
	link := filepath.Join(dir, "by-id")
	require.NoError(t, os.Symlink(target, link))

	r = New(&config.Config{SystemDevice: target})
	assert.True(t, r.IsSystemDevice(link))
}

func TestResolveName(t *testing.T) {
	r := testRegistry(t)
	assert.Equal(t, "slow", r.ResolveName("/dev/sdc"))
	assert.Equal(t, "sdb", r.ResolveName("/dev/sdb"))
	assert.Equal(t, "sdz", r.ResolveName("/dev/sdz"))
}

const lsblkJSON = `{
  "blockdevices": [
    {"name":"sda","type":"disk","model":"Samsung SSD 860","tran":"sata","rota":false,"mountpoint":null,
     "children":[{"name":"sda1","type":"part","mountpoint":"/"}]},
    {"name":"sdb","type":"disk","model":"ST4000DM004","tran":"sata","rota":true,"mountpoint":null},
    {"name":"nvme0n1","type":"disk","model":"","tran":"nvme","rota":false,"mountpoint":null},
    {"name":"loop0","type":"loop","mountpoint":"/snap/core"}
  ]
}`

func TestDetect(t *testing.T) {
	runner := command.NewFake().On("lsblk", lsblkJSON, nil)

	det, err := Detect(context.Background(), runner)
	require.NoError(t, err)

	assert.Equal(t, "/dev/sda", det.SystemDevice)
	require.Len(t, det.Devices, 3)
	assert.Equal(t, types.Device{Path: "/dev/sda", Class: types.DeviceClassSSD, Label: "samsung-ssd-860-sda"}, det.Devices[0])
	assert.Equal(t, types.DeviceClassHDD, det.Devices[1].Class)
	assert.Equal(t, types.Device{Path: "/dev/nvme0n1", Class: types.DeviceClassNVMe, Label: "nvme0n1"}, det.Devices[2])

	cfg := det.Config()
	assert.NoError(t, cfg.Validate())
}

func TestDetectBadJSON(t *testing.T) {
	runner := command.NewFake().On("lsblk", "not json", nil)
	_, err := Detect(context.Background(), runner)
	assert.Error(t, err)
}
