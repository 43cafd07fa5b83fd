package session

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/respcache/respcache"
)

// JWTConfig configures the JWT session resolver.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim).
	Issuer string

	// Audience is the expected token audience (aud claim).
	Audience string

	// HeaderName is the header containing the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is the prefix before the token in the header.
	// Default: "Bearer "
	TokenPrefix string

	// SessionClaim is the claim used as the session id.
	// Default: "sub"
	SessionClaim string
}

// KeyProvider retrieves signing keys for token validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a static signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// JWTResolver derives session ids from bearer tokens. A request with
// no token at all is anonymous; a request with a token that fails
// validation is an error, so a forged credential can never be served
// another caller's cached data.
type JWTResolver struct {
	config      JWTConfig
	keyProvider KeyProvider
}

// NewJWTResolver creates a JWT session resolver.
func NewJWTResolver(config JWTConfig, keyProvider KeyProvider) (*JWTResolver, error) {
	if keyProvider == nil {
		return nil, ErrNilKeyProvider
	}

	// Apply defaults
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	if config.SessionClaim == "" {
		config.SessionClaim = "sub"
	}

	return &JWTResolver{
		config:      config,
		keyProvider: keyProvider,
	}, nil
}

// SessionID resolves the session id for the given request. It has the
// respcache.SessionIDHook signature; install it with
// respcache.Hooks{SessionID: resolver.SessionID}.
func (r *JWTResolver) SessionID(ctx context.Context, req *respcache.Request) (string, error) {
	header := req.GetHeader(r.config.HeaderName)
	if header == "" {
		return "", nil
	}

	tokenString := strings.TrimPrefix(header, r.config.TokenPrefix)
	if tokenString == header {
		// Header present but not in the expected scheme: not ours,
		// treat as anonymous rather than rejecting the request.
		return "", nil
	}
	tokenString = strings.TrimSpace(tokenString)

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if r.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.config.Issuer))
	}
	if r.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(r.config.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		kid := ""
		if kidVal, ok := token.Header["kid"].(string); ok {
			kid = kidVal
		}
		return r.keyProvider.GetKey(ctx, kid)
	}, opts...)

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "", ErrTokenMalformed
	case err != nil:
		return "", ErrTokenInvalid
	case !token.Valid:
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrTokenMalformed
	}

	sid, ok := claims[r.config.SessionClaim].(string)
	if !ok || sid == "" {
		return "", ErrMissingClaim
	}
	return sid, nil
}

// Ensure the resolver satisfies the hook signature.
var _ respcache.SessionIDHook = (*JWTResolver)(nil).SessionID

// Ensure StaticKeyProvider implements KeyProvider
var _ KeyProvider = (*StaticKeyProvider)(nil)
