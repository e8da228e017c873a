// Package otel publishes reset-flow metrics through an OpenTelemetry meter.
//
// Each counter becomes an Int64ObservableCounter with the same name the
// Prometheus exporter uses. The verify latency histogram is reported as a
// cumulative gauge keyed by an "le" attribute plus a _count gauge. One
// callback reads the engine snapshot per collection; the caller owns the
// MeterProvider.
package otel
