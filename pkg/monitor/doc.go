/*
Package monitor starts and stops the telemetry stack around each run.

A Controller holds an ordered chain of strategies and Start settles on the
first one that comes up:

  - compose brings up the multi-service stack from a compose file and waits
    for Prometheus to report ready. A failed attempt gets one cleanup pass
    ("down --remove-orphans") and one retry.
  - exporter spawns a single node_exporter process and waits for its port.
  - builtin serves fsbench's own metrics and gopsutil disk counters for the
    devices under test on an in-process HTTP listener.

If every strategy fails, Start still returns a usable Handle for the no-op
strategy ("none") together with an error wrapping
types.ErrMonitoringUnavailable. Callers log it and carry on; telemetry never
decides whether a run succeeds.

Stop walks the chain in reverse and stops every strategy, so resources left
behind by a failed attempt are released too. It never returns an error.

	ctrl, err := monitor.FromSettings(settings.Monitoring, command.NewExec(0), broker)
	h, err := ctrl.Start(ctx, dev.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Running without monitoring")
	}
	defer ctrl.Stop(context.WithoutCancel(ctx), h)
*/
package monitor
