// Package prometheus exposes engine counters through client_golang.
//
// [PrometheusExporter] implements prometheus.Collector over
// auth.Engine.MetricsSnapshot; callers may register it with their own registry or
// mount [PrometheusExporter.Handler]. Counter names are prefixed turbodex_auth_
// and end in _total; the single histogram is
// turbodex_auth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
