/*
Package metrics provides Prometheus instrumentation for ctfmanager: request
counters and latency histograms for the gRPC facade, translation rejection
counts, instance lifecycle gauges, git sync timing, and SSH gateway session
metrics. Collector polls gauges on a ticker; Handler, HealthHandler,
ReadyHandler, and LivenessHandler mount onto the manager's HTTP mux alongside
the gRPC listener.
*/
package metrics
