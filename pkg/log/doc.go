/*
Package log provides structured logging for fsbench using zerolog.

A single package-level Logger is configured once by Init, normally from the
root command's --log-level and --log-json flags. Components derive child
loggers so every line carries its context:

	logger := log.WithComponent("lifecycle")
	logger.Info().Str("state", "mounted").Msg("Run advanced")

	runLog := log.WithRun(run.ID, run.Device.Path, string(run.Filesystem))
	runLog.Error().Err(err).Bool("teardown", true).Msg("Unmount failed")

Console output is the default and is meant for an operator watching a matrix
run; JSON output is meant for shipping logs next to the result artifacts.

Conventions:

  - debug: full command lines and raw tool output
  - info: lifecycle progress
  - warn: skipped catalogue entries, monitoring fallbacks
  - error: Run failures; every teardown failure is logged at error level
    with teardown=true so it stands out in a long run
*/
package log
