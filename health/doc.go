// Package health provides liveness probes for the cache's backing
// store. A deployment that treats the cache as optional still wants to
// know when the store behind it stops answering: a store outage turns
// every request into a recomputation, or into an error when reads are
// fail-closed.
//
// A Checker reports the health of one component. StoreChecker probes a
// store with a write-read round trip under a reserved key. Aggregator
// combines several checkers and computes an overall status, for wiring
// into whatever readiness mechanism the host application uses:
//
//	agg := health.NewAggregator()
//	agg.Register("store", health.NewStoreChecker(st))
//
//	results := agg.CheckAll(ctx)
//	if agg.OverallStatus(results) == health.StatusUnhealthy {
//	    // flip readiness, page, or fall back to fail-open reads
//	}
package health
