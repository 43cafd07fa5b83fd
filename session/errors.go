package session

import "errors"

var (
	// ErrTokenMalformed indicates the bearer token could not be parsed.
	ErrTokenMalformed = errors.New("session: token malformed")

	// ErrTokenExpired indicates the bearer token is past its expiry.
	ErrTokenExpired = errors.New("session: token expired")

	// ErrTokenInvalid indicates the token parsed but failed validation
	// (signature, issuer, or audience).
	ErrTokenInvalid = errors.New("session: token invalid")

	// ErrMissingClaim indicates the validated token carries no usable
	// session claim.
	ErrMissingClaim = errors.New("session: token missing session claim")

	// ErrNilKeyProvider indicates a JWTResolver was constructed without
	// a key provider.
	ErrNilKeyProvider = errors.New("session: nil key provider")
)
