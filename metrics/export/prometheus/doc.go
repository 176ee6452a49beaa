// Package prometheus exposes goAccess engine metrics through
// github.com/prometheus/client_golang.
//
// [PrometheusExporter] implements [promclient.Collector]: every scrape reads
// one [goAccess.MetricsSnapshot] and emits const metrics, so the engine hot
// path never touches client_golang. Counter names are prefixed
// goaccess_*_total; latency histograms are goaccess_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry; callers choose a
//     Registerer or mount Handler.
//   - Mutate engine state.
package prometheus
