// Package metrics exposes Prometheus instrumentation for the dispatcher:
// node counts, queue depths, simulator pool size, RPC counts and latency,
// simulator round-trip duration, tx drops, and diagnostics throughput. It
// registers every collector once at init as a package-level var and
// serves them through promhttp.Handler().
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// NodesTotal is the current topology node count by kind.
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eldispacho_nodes_total",
			Help: "Total number of topology nodes by kind",
		},
		[]string{"kind"},
	)

	IncomingQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eldispacho_incoming_queue_depth",
			Help: "Current depth of the processor's incoming work buffer",
		},
	)

	OutgoingQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eldispacho_outgoing_queue_depth",
			Help: "Current depth of the processor's outgoing push buffer",
		},
	)

	SimulatorPoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eldispacho_simulator_pool_size",
			Help: "Number of simulator client connections currently held",
		},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eldispacho_rpc_requests_total",
			Help: "Total ingress RPC requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eldispacho_rpc_request_duration_seconds",
			Help:    "Ingress RPC request duration by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	SimulatorCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eldispacho_simulator_call_duration_seconds",
			Help:    "Simulator RPC call duration by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	TxDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eldispacho_tx_dropped_total",
			Help: "Transmissions dropped by reason (null_endpoint, no_detector, trap)",
		},
		[]string{"reason"},
	)

	DiagnosticsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eldispacho_diagnostics_published_total",
			Help: "Total diagnostic envelopes published",
		},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(IncomingQueueDepth)
	prometheus.MustRegister(OutgoingQueueDepth)
	prometheus.MustRegister(SimulatorPoolSize)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SimulatorCallDuration)
	prometheus.MustRegister(TxDroppedTotal)
	prometheus.MustRegister(DiagnosticsPublishedTotal)
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's wall-clock duration for recording into a
// histogram at the call site.
type Timer struct {
	start time.Time
}

// NewTimer starts a Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time into histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Observer) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time into vec under the given
// label values, e.g. the method name for a per-method latency histogram.
func (t *Timer) ObserveDurationVec(vec *prometheus.HistogramVec, labelValues ...string) {
	vec.WithLabelValues(labelValues...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time without recording it anywhere.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
