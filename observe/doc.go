// Package observe provides observability primitives for the response
// cache: structured logging, OpenTelemetry metrics and tracing for
// lookups and writes, and a store instrumentation wrapper.
//
// It is a pure instrumentation library: no caching logic, no transport,
// no I/O beyond exporter setup. Consumers wire the observer into the
// engine or around a store adapter.
package observe
