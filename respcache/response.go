package respcache

import (
	"bytes"
	"encoding/json"
)

// Response is a computed result as seen by the cache. Only Data is
// ever persisted; Errors and Extensions exist so the write policy can
// judge cacheability, and are always dropped from stored entries.
type Response struct {
	Data       json.RawMessage `json:"data,omitempty"`
	Errors     []ResponseError `json:"errors,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// ResponseError is one error attached to a response.
type ResponseError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// HasErrors reports whether the response carries any errors.
func (r *Response) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

var jsonNull = []byte("null")

// hasData reports whether the response has a non-empty data payload.
func (r *Response) hasData() bool {
	return r != nil && len(r.Data) > 0 && !bytes.Equal(r.Data, jsonNull)
}

// cachedPayload is the persisted form of a response: the data field and
// nothing else. Errors are transient and environment-dependent, so a
// stored entry never contains them.
type cachedPayload struct {
	Data json.RawMessage `json:"data"`
}
