package respcache

import "errors"

// Sentinel errors for engine operations.
var (
	// ErrNilRequest indicates a nil request was passed to the engine.
	ErrNilRequest = errors.New("respcache: request is nil")

	// ErrStateNotResolved indicates the write path ran before the read
	// path resolved session state for the request. This is a
	// programming error in the host pipeline, not a runtime condition:
	// proceeding could cache data under the wrong scope.
	ErrStateNotResolved = errors.New("respcache: write path invoked before request state was resolved")

	// ErrTimeout is returned when a hook or store call exceeds its
	// configured timeout.
	ErrTimeout = errors.New("respcache: operation timed out")
)
