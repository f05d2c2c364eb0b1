// Package sinks implements progress consumers: a terminal progress bar, a
// structured log sink and Prometheus collectors. Each satisfies
// progress.Sink.
package sinks
