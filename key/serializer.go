package key

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Namespace is the fixed prefix for every store key produced by this
// package. It keeps engine entries from colliding with unrelated users
// of a shared store.
const Namespace = "respcache:v1:"

// Serializer turns a CacheKey into a store key string.
//
// Contract:
// - Determinism: equal keys must produce equal store keys, regardless
//   of map iteration order.
// - Sensitivity: keys differing in any field must produce different
//   store keys, up to hash collision probability.
// - Concurrency: implementations must be safe for concurrent use.
type Serializer interface {
	// StoreKey derives the store key for a cache key.
	StoreKey(k CacheKey) (string, error)
}

// DefaultSerializer hashes a canonical JSON encoding of the key with
// SHA-256. The digest bounds store key length regardless of how large
// the document or variables are.
type DefaultSerializer struct{}

// NewDefaultSerializer creates a new default serializer.
func NewDefaultSerializer() *DefaultSerializer {
	return &DefaultSerializer{}
}

// StoreKey derives a deterministic store key.
// Format: respcache:v1:<64 hex chars of SHA-256(canonical encoding)>
func (s *DefaultSerializer) StoreKey(k CacheKey) (string, error) {
	encoded, err := encodeCanonical(k)
	if err != nil {
		return "", fmt.Errorf("key: failed to encode cache key: %w", err)
	}

	digest := sha256.Sum256(encoded)
	return Namespace + hex.EncodeToString(digest[:]), nil
}

// encodeCanonical produces the canonical byte representation of a key.
// Fields are emitted in a fixed order; nested map keys are sorted so
// that semantically equal variables hash identically no matter the
// order the caller supplied them in.
func encodeCanonical(k CacheKey) ([]byte, error) {
	out := []byte("{\"document\":")

	docBytes, err := json.Marshal(k.Base.Document)
	if err != nil {
		return nil, err
	}
	out = append(out, docBytes...)

	out = append(out, []byte(",\"operation\":")...)
	opBytes, err := json.Marshal(k.Base.Operation)
	if err != nil {
		return nil, err
	}
	out = append(out, opBytes...)

	out = append(out, []byte(",\"variables\":")...)
	varBytes, err := canonicalize(anyMap(k.Base.Variables))
	if err != nil {
		return nil, err
	}
	out = append(out, varBytes...)

	out = append(out, []byte(",\"extra\":")...)
	extraBytes, err := canonicalize(k.Base.Extra)
	if err != nil {
		return nil, err
	}
	out = append(out, extraBytes...)

	out = append(out, []byte(",\"mode\":")...)
	modeBytes, err := json.Marshal(k.Contextual.Mode.String())
	if err != nil {
		return nil, err
	}
	out = append(out, modeBytes...)

	if k.Contextual.Mode == ModePrivate {
		out = append(out, []byte(",\"session\":")...)
		sessBytes, err := json.Marshal(k.Contextual.SessionID)
		if err != nil {
			return nil, err
		}
		out = append(out, sessBytes...)
	}

	out = append(out, '}')
	return out, nil
}

// anyMap keeps nil maps distinguishable from empty ones in the
// canonical encoding.
func anyMap(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

// canonicalize produces a deterministic JSON representation of a value.
// Maps are sorted by key to ensure consistent ordering; slices keep
// their element order, which is significant.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// Ensure DefaultSerializer implements Serializer
var _ Serializer = (*DefaultSerializer)(nil)
