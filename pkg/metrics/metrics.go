package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsbench_runs_total",
			Help: "Total number of finished runs by filesystem and final state",
		},
		[]string{"filesystem", "state"},
	)

	RunsInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fsbench_runs_in_progress",
			Help: "Number of runs between Pending and a terminal state",
		},
	)

	PhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fsbench_phase_duration_seconds",
			Help:    "Time spent in each lifecycle phase in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
		[]string{"phase"},
	)

	// Workload metrics
	SuiteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsbench_suite_failures_total",
			Help: "Total number of failed workload suites by family",
		},
		[]string{"family"},
	)

	TeardownFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fsbench_teardown_failures_total",
			Help: "Total number of unmount or destroy steps that failed",
		},
	)

	// Monitoring metrics
	MonitoringStrategy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fsbench_monitoring_strategy",
			Help: "Monitoring strategy currently active (1 = active)",
		},
		[]string{"strategy"},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunsInProgress)
	prometheus.MustRegister(PhaseDuration)
	prometheus.MustRegister(SuiteFailuresTotal)
	prometheus.MustRegister(TeardownFailuresTotal)
	prometheus.MustRegister(MonitoringStrategy)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures how long an operation takes
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in h
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time in the series of h selected
// by labels
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
