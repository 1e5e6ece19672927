package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single error surfaced for any verification failure.
// Malformed, tampered, expired and wrong-purpose tokens all collapse into it
// so callers cannot leak which check failed.
var ErrInvalidToken = errors.New("jwtx: invalid token")

// MinSecretBytes is the smallest HMAC secret we accept. Anything shorter
// than the hash output weakens HS256.
const MinSecretBytes = 32

// HS256 signs and verifies HMAC-SHA256 tokens with a process-wide secret.
// The secret is injected at construction and read-only afterwards.
type HS256 struct {
	secret []byte
	issuer string
}

// NewHS256 builds a signer/verifier from the configured secret.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("jwtx: signing secret must be at least %d bytes, got %d", MinSecretBytes, len(secret))
	}
	return &HS256{secret: secret, issuer: issuer}, nil
}

// Sign produces a compact serialized token for the claims.
func (h *HS256) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Issue signs fresh claims for a subject with the purpose's lifetime.
func (h *HS256) Issue(subject string, purpose Purpose, ttl time.Duration) (string, error) {
	return h.Sign(NewClaims(subject, purpose, ttl, h.issuer, time.Now().UTC()))
}

// Verify parses and validates a token, requiring the given purpose.
// Signature, expiry, not-before, issuer and purpose are all checked; any
// failure returns ErrInvalidToken with detail wrapped for server-side logs.
func (h *HS256) Verify(raw string, want Purpose) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return h.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(h.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Purpose != want {
		return Claims{}, fmt.Errorf("%w: purpose mismatch", ErrInvalidToken)
	}
	if claims.Subject == "" || claims.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing subject or jti", ErrInvalidToken)
	}
	return claims, nil
}
