/*
Package metrics defines the Prometheus metrics fsbench records about itself
and the disk collector used by the builtin exporter.

Run metrics are package-level vectors registered with the default registry
at init:

	fsbench_runs_total{filesystem,state}        finished runs by final state
	fsbench_runs_in_progress                    runs not yet terminal
	fsbench_phase_duration_seconds{phase}       format, mount, suites, teardown
	fsbench_suite_failures_total{family}        failed workload suites
	fsbench_teardown_failures_total             failed unmount or destroy steps
	fsbench_monitoring_strategy{strategy}       which monitoring strategy is up

Phases are timed with a Timer:

	timer := metrics.NewTimer()
	err := drv.Format(ctx, dev)
	timer.ObserveDurationVec(metrics.PhaseDuration, "format")

DiskCollector reads kernel block device counters through gopsutil and
exports them as fsbench_disk_* series. HealthChecker backs the builtin
exporter's /health page.
*/
package metrics
