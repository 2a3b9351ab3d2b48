// Package prometheus renders access engine metrics in Prometheus text
// exposition format.
//
// [NewExporter] wraps an [access.Engine]; mount [Exporter.Handler] on the
// scrape path. Counters are named access_*_total and the validation latency
// histogram is access_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in a global Prometheus registry.
//   - Mutate engine state.
package prometheus
