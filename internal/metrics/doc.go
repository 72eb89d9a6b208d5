// Package metrics defines the data recorded for every request and the statistics
// derived from it.
//
// # Samples and results
//
// Every dispatched request produces exactly one [Sample]: the dispatch timestamp, the
// HTTP status code (0 when no response was received), the latency and, for transport
// failures, an error detail. Workers append samples to a shared [Accumulator]:
//
//	acc := metrics.NewAccumulator("sustained", 0, observers...)
//	acc.Add(sample)
//	result := acc.Result(elapsed, nominal)
//
// [Accumulator.Result] returns a deep copy, so the [RunResult] handed downstream is
// never touched by the runner again.
//
// # Statistics
//
// [Summarize] is a pure reduction of a RunResult into a [Summary]: counts, success
// and rate-limit percentages, QPS and latency aggregates. Percentiles use the
// nearest-rank method (see [Percentile]). A run without samples yields a Summary
// whose Latency is nil and [Summary.InsufficientData] reports true.
//
// # Live view
//
// [Collector] implements [Observer] and keeps constant-memory running aggregates
// backed by an HDR histogram for progress lines and the dashboard.
//
// # Thread Safety
//
// Accumulator and Collector are safe for concurrent use. RunResult and Summary are
// plain values.
package metrics
