package respcache

// Request carries the identity of one incoming request plus the
// transport metadata hooks may need. The engine itself only reads the
// identity fields; Header and Raw exist for caller-defined hooks.
type Request struct {
	// Document is the serialized request document text.
	Document string

	// Operation is the operation name. Empty for anonymous operations.
	Operation string

	// Variables are the request variables. May be nil.
	Variables map[string]any

	// Header holds transport headers for hooks that extract
	// credentials. May be nil.
	Header map[string][]string

	// Raw is the host pipeline's own request value, passed through to
	// hooks untouched. May be nil.
	Raw any
}

// GetHeader returns the first value for a header key, or empty string.
func (r *Request) GetHeader(key string) string {
	if r == nil || r.Header == nil {
		return ""
	}
	values := r.Header[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
