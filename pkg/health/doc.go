/*
Package health provides readiness probes used before and during a
benchmark run.

Three checkers implement the Checker interface:

  - HTTPChecker issues a GET and accepts a status range (Prometheus
    /-/ready, the builtin exporter's /metrics page)
  - TCPChecker succeeds once a listener accepts a connection (node_exporter)
  - ExecChecker runs a command through a command.Runner and succeeds on a
    zero exit (tool preflight such as "fio --version")

WaitReady polls a checker at Config.Interval until it has seen
Config.SuccessThreshold consecutive healthy results, or fails once
Config.Timeout elapses or the context is cancelled:

	checker := health.NewHTTPChecker("http://127.0.0.1:9090/-/ready")
	if _, err := health.WaitReady(ctx, checker, health.DefaultConfig()); err != nil {
		return fmt.Errorf("prometheus not ready: %w", err)
	}
*/
package health
