// Package progress carries crawl progress events from the discovery and fetch
// phases to pluggable sinks (terminal bar, structured logs, Prometheus). The
// Hub batches on a background goroutine so emitters never block on a slow
// sink.
package progress
