// Package otel binds goAccess counters and latency histograms to an
// OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter
// and, per histogram, a cumulative bucket gauge keyed by an "le" attribute
// plus a count gauge. A single callback reads [goAccess.Engine.MetricsSnapshot]
// on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
