// Package metrics provides lock-free counters and a verify latency histogram
// for the reset flow.
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically. The histogram uses 8 fixed buckets (≤5ms … +Inf). Both are
// allocation-free on the write path.
//
// Export (Prometheus, OTel) lives in metrics/export/ and reads Snapshot values.
// This package performs no I/O and keeps no global registry.
package metrics
