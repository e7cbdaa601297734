package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCollector(t *testing.T) {
	var asked []string
	c := NewDiskCollector("sdb").WithCounters(func(_ context.Context, names ...string) (map[string]disk.IOCountersStat, error) {
		asked = names
		return map[string]disk.IOCountersStat{
			"sdb": {Name: "sdb", ReadBytes: 4096, WriteBytes: 8192, ReadCount: 1, WriteCount: 2, IoTime: 1500, IopsInProgress: 3},
		}, nil
	})

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP fsbench_disk_read_bytes_total Bytes read from the device
# TYPE fsbench_disk_read_bytes_total counter
fsbench_disk_read_bytes_total{device="sdb"} 4096
# HELP fsbench_disk_io_time_seconds_total Time spent doing I/O
# TYPE fsbench_disk_io_time_seconds_total counter
fsbench_disk_io_time_seconds_total{device="sdb"} 1.5
# HELP fsbench_disk_scrape_error 1 if reading the counters failed
# TYPE fsbench_disk_scrape_error gauge
fsbench_disk_scrape_error 0
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"fsbench_disk_read_bytes_total", "fsbench_disk_io_time_seconds_total", "fsbench_disk_scrape_error")
	assert.NoError(t, err)
	assert.Equal(t, []string{"sdb"}, asked)

	c.SetDevices("sdc", "sdd")
	_, err = reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, []string{"sdc", "sdd"}, asked)
}

func TestDiskCollector_ScrapeError(t *testing.T) {
	c := NewDiskCollector().WithCounters(func(context.Context, ...string) (map[string]disk.IOCountersStat, error) {
		return nil, errors.New("no /proc/diskstats")
	})

	assert.Equal(t, float64(1), testutil.ToFloat64(c))
}
