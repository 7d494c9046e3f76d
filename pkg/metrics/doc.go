/*
Package metrics provides Prometheus instrumentation for eldispacho.

It exposes queue depths, simulator pool size, RPC request counts/latency,
and diagnostics throughput, independent of the pkg/diagnostics publisher
(which is a domain event stream, not an operational metrics exporter).

Metrics are registered at package init and scraped over HTTP via Handler(),
which the eldispachod binary mounts when started with --metrics.

	metrics.RequestsTotal.WithLabelValues("tx", "ok").Inc()

	timer := metrics.NewTimer()
	// ... service a request ...
	timer.ObserveDuration(metrics.RequestDuration.WithLabelValues("tx"))
*/
package metrics
