package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/disk"
)

// CountersFunc reads block device I/O counters keyed by device name
type CountersFunc func(ctx context.Context, names ...string) (map[string]disk.IOCountersStat, error)

// DiskCollector exports kernel I/O counters for the devices under test. It
// backs the builtin exporter when neither the compose stack nor
// node_exporter can be started.
type DiskCollector struct {
	mu       sync.Mutex
	devices  []string
	counters CountersFunc
	timeout  time.Duration
	onScrape func(error)

	readBytes   *prometheus.Desc
	writeBytes  *prometheus.Desc
	reads       *prometheus.Desc
	writes      *prometheus.Desc
	ioTime      *prometheus.Desc
	inProgress  *prometheus.Desc
	scrapeError *prometheus.Desc
}

// NewDiskCollector creates a collector for the given device names (for
// example "sdb" or "nvme0n1"); an empty list exports every device.
func NewDiskCollector(devices ...string) *DiskCollector {
	label := []string{"device"}
	return &DiskCollector{
		devices:     devices,
		counters:    disk.IOCountersWithContext,
		timeout:     5 * time.Second,
		readBytes:   prometheus.NewDesc("fsbench_disk_read_bytes_total", "Bytes read from the device", label, nil),
		writeBytes:  prometheus.NewDesc("fsbench_disk_written_bytes_total", "Bytes written to the device", label, nil),
		reads:       prometheus.NewDesc("fsbench_disk_reads_completed_total", "Reads completed", label, nil),
		writes:      prometheus.NewDesc("fsbench_disk_writes_completed_total", "Writes completed", label, nil),
		ioTime:      prometheus.NewDesc("fsbench_disk_io_time_seconds_total", "Time spent doing I/O", label, nil),
		inProgress:  prometheus.NewDesc("fsbench_disk_io_now", "I/Os currently in progress", label, nil),
		scrapeError: prometheus.NewDesc("fsbench_disk_scrape_error", "1 if reading the counters failed", nil, nil),
	}
}

// WithCounters replaces the counter source
func (c *DiskCollector) WithCounters(fn CountersFunc) *DiskCollector {
	c.counters = fn
	return c
}

// OnScrape registers fn to be told the outcome of every counter read
func (c *DiskCollector) OnScrape(fn func(error)) *DiskCollector {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onScrape = fn
	return c
}

// SetDevices changes the devices exported on the next scrape
func (c *DiskCollector) SetDevices(devices ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = devices
}

// Describe implements prometheus.Collector
func (c *DiskCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readBytes
	ch <- c.writeBytes
	ch <- c.reads
	ch <- c.writes
	ch <- c.ioTime
	ch <- c.inProgress
	ch <- c.scrapeError
}

// Collect implements prometheus.Collector
func (c *DiskCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	devices := append([]string(nil), c.devices...)
	report := c.onScrape
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.counters(ctx, devices...)
	if report != nil {
		report(err)
	}
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.scrapeError, prometheus.GaugeValue, 1)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.scrapeError, prometheus.GaugeValue, 0)

	for name, s := range stats {
		ch <- prometheus.MustNewConstMetric(c.readBytes, prometheus.CounterValue, float64(s.ReadBytes), name)
		ch <- prometheus.MustNewConstMetric(c.writeBytes, prometheus.CounterValue, float64(s.WriteBytes), name)
		ch <- prometheus.MustNewConstMetric(c.reads, prometheus.CounterValue, float64(s.ReadCount), name)
		ch <- prometheus.MustNewConstMetric(c.writes, prometheus.CounterValue, float64(s.WriteCount), name)
		ch <- prometheus.MustNewConstMetric(c.ioTime, prometheus.CounterValue, float64(s.IoTime)/1000, name)
		ch <- prometheus.MustNewConstMetric(c.inProgress, prometheus.GaugeValue, float64(s.IopsInProgress), name)
	}
}
