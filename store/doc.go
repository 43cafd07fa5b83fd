// Package store defines the key-value store adapter consumed by the
// caching engine, plus in-process implementations.
//
// It provides the Store interface, a mutex-guarded MemoryStore, a
// sturdyc-backed SturdycStore for sharded high-throughput caching, and
// a PrefixStore wrapper for namespace isolation.
package store
