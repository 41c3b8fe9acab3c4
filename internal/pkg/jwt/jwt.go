// Package jwt signs and verifies the tokens this service deals in.
//
// Two kinds of token flow through goverify: short-lived ownership-proof
// tokens minted after a successful verification, and operator tokens issued
// elsewhere with the shared secret, carrying a role for the admin endpoints.
// Context helpers carry verified claims from middleware to handlers.
package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSigningMethod is returned when the JWT signing method is not supported.
	ErrInvalidSigningMethod = errors.New("invalid JWT signing method")

	// ErrSigningKeyTooShort is returned when the HS512 signing key is less than 64 bytes.
	ErrSigningKeyTooShort = errors.New("HS512 signing key must be at least 64 bytes (512 bits)")

	// ErrTokenExpired is returned when the JWT token has expired.
	ErrTokenExpired = errors.New("JWT token has expired")

	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
)

// PurposeEmailVerification marks ownership-proof tokens minted by the
// verification engine.
const PurposeEmailVerification = "email_verification"

// JWT defines the minimal operations needed by the app: generate and verify a token.
type JWT interface {
	// Generate creates a signed token with the given subject and purpose.
	Generate(subject, purpose string) (string, error)
	// Verify parses and validates the token and returns claims.
	Verify(tokenStr string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

type jwtContextKey struct{}

// Config defines the inputs for building a JWT implementation.
type Config struct {
	// Secret is the HMAC signing key.
	Secret []byte
	// Issuer is the token issuer value.
	Issuer string
	// Audiences are the accepted token audiences.
	Audiences []string
	// TTL is the token time-to-live for generated tokens.
	TTL time.Duration
	// Clock provides the current time source.
	Clock clocker
	// UUID generates token IDs.
	UUID generator
}

// Claims wraps registered claims with this service's payload.
type Claims struct {
	// RegisteredClaims holds the standard JWT claims; Subject is the email
	// address for proof tokens, the principal name for operator tokens.
	jwt.RegisteredClaims
	// Purpose distinguishes proof tokens from operator tokens.
	Purpose string `json:"purpose,omitempty"`
	// Role names the operator role evaluated by the authorization layer.
	Role string `json:"role,omitempty"`
}

// GetAuth returns the JWT claims stored in the context, if any.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(jwtContextKey{}).(Claims)
	if !ok {
		return nil
	}

	return &clm
}

// SetAuth stores JWT claims in the context.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, jwtContextKey{}, clm)
}
