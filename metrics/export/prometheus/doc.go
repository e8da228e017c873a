// Package prometheus serves reset-flow metrics in the Prometheus text
// exposition format. Counters are named goreset_*_total and the verify
// latency histogram is goreset_verify_latency_seconds.
//
// The exporter never registers anything globally; callers mount
// [Exporter.Handler] themselves.
package prometheus
