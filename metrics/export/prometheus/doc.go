// Package prometheus provides Prometheus collectors for aegis metrics.
//
// [NewPrometheusExporter] accepts an [aegis.Engine] and exposes an [http.Handler]
// that renders all aegis counters and histograms in Prometheus text exposition format.
// Counter names are prefixed aegis_*_total; the single histogram is
// aegis_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
