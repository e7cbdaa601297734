package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceName(t *testing.T) {
	assert.Equal(t, "fast", Device{Path: "/dev/nvme0n1", Label: "fast"}.Name())
	assert.Equal(t, "nvme0n1", Device{Path: "/dev/nvme0n1"}.Name())
}

func TestNewRunDirectoryName(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	run := NewRun(Device{Path: "/dev/sdb", Label: "seagate"}, FilesystemXFS, "/results", ts)

	assert.Equal(t, "/results/seagate_xfs_20240305_140709", run.ResultDir)
	assert.Equal(t, RunStatePending, run.State)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "/dev/sdb|xfs", run.Key())
}

func TestRunAdvanceRecordsHistory(t *testing.T) {
	run := NewRun(Device{Path: "/dev/sdb"}, FilesystemExt4, "/r", time.Now())
	now := time.Now()
	run.Advance(RunStateFormatted, "", now)
	run.Advance(RunStateFailed, "mount failed", now)

	require.Len(t, run.History, 2)
	assert.Equal(t, RunStatePending, run.History[0].From)
	assert.Equal(t, RunStateFormatted, run.History[1].From)
	assert.Equal(t, "mount failed", run.History[1].Note)
	assert.True(t, run.State.Terminal())
}

func TestParseKinds(t *testing.T) {
	k, err := ParseFilesystemKind("overlay-control")
	require.NoError(t, err)
	assert.Equal(t, FilesystemOverlay, k)

	_, err = ParseFilesystemKind("ntfs")
	assert.Error(t, err)

	c, err := ParseDeviceClass("rotational-disk")
	require.NoError(t, err)
	assert.Equal(t, DeviceClassHDD, c)
}

func TestValueSentinel(t *testing.T) {
	var zero Value
	assert.Equal(t, NotAvailable, zero)
	assert.False(t, zero.Available())
	assert.Equal(t, "NA", zero.String())
	assert.Equal(t, Number(4000), Number(4000))

	data, err := json.Marshal(struct{ V Value }{NotAvailable})
	require.NoError(t, err)
	assert.JSONEq(t, `{"V":null}`, string(data))

	var back struct{ V Value }
	require.NoError(t, json.Unmarshal([]byte(`{"V":1.5}`), &back))
	assert.Equal(t, Number(1.5), back.V)
}

func TestMetricDirection(t *testing.T) {
	assert.Equal(t, HigherIsBetter, MetricDirection("read_iops"))
	assert.Equal(t, HigherIsBetter, MetricDirection("write_bandwidth_bps"))
	assert.Equal(t, HigherIsBetter, MetricDirection("file_creation_ops"))
	assert.Equal(t, LowerIsBetter, MetricDirection("read_latency_usec"))
	assert.Equal(t, LowerIsBetter, MetricDirection("elapsed_seconds"))
	assert.Equal(t, LowerIsBetter, MetricDirection("save_seconds"))
	assert.Equal(t, Informational, MetricDirection("model_size_bytes"))
}

func TestErrorTaxonomy(t *testing.T) {
	err := error(&SystemDiskProtectedError{Device: "/dev/sda", Operation: "format"})
	assert.True(t, errors.Is(err, ErrSystemDiskProtected))

	busy := &DeviceBusyError{Device: "/dev/sdb", Err: errors.New("target is busy")}
	assert.True(t, errors.Is(busy, ErrDeviceBusy))

	var cfgErr *ConfigurationError
	wrapped := error(&ConfigurationError{Source: "x.yaml", Err: errors.New("bad")})
	assert.True(t, errors.As(wrapped, &cfgErr))
	assert.True(t, errors.Is(wrapped, ErrConfiguration))

	tf := &TeardownFailure{Step: "unmount", Device: "/dev/sdb", Err: errors.New("busy")}
	assert.True(t, errors.Is(tf, ErrTeardown))
}

func TestValidateLabel(t *testing.T) {
	for _, ok := range []string{"seagate-4tb", "samsung_980", "sdb", "disk_ext4_bench"} {
		assert.NoError(t, ValidateLabel(ok), ok)
	}
	for _, bad := range []string{"racks/a", `a\b`, ".", "..", " padded", "x_zfs_20250101_000000"} {
		assert.Error(t, ValidateLabel(bad), bad)
	}

	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "sdb_xfs_20250304_050607", RunDirName("sdb", FilesystemXFS, ts))
}

func TestIsPartitionOf(t *testing.T) {
	tests := []struct {
		candidate, disk string
		want            bool
	}{
		{"/dev/sda1", "/dev/sda", true},
		{"/dev/sda", "/dev/sda", false},
		{"/dev/sdaa", "/dev/sda", false},
		{"/dev/nvme0n1p2", "/dev/nvme0n1", true},
		{"/dev/nvme0n12", "/dev/nvme0n1", false},
		{"/dev/mmcblk0p1", "/dev/mmcblk0", true},
		{"/dev/loop10", "/dev/loop1", false},
		{"/dev/sda1", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPartitionOf(tt.candidate, tt.disk), "%s of %s", tt.candidate, tt.disk)
	}
}
