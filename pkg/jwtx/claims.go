package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose scopes a token to exactly one use. A verifier expecting one
// purpose must reject tokens carrying the other, so a short-lived MFA
// challenge can never be replayed as a full session (and vice versa).
type Purpose string

const (
	// PurposeSession is a full session credential, cookie-delivered.
	PurposeSession Purpose = "session"

	// PurposeMFAChallenge proves a password check succeeded and is only
	// valid for completing the second factor.
	PurposeMFAChallenge Purpose = "mfa_challenge"
)

// Default lifetimes for the two token purposes.
const (
	DefaultSessionTTL      = 24 * time.Hour
	DefaultMFAChallengeTTL = 5 * time.Minute
)

// Claims are the signed token contents. Only the identity reference goes in;
// the role is re-resolved from the store on every request so a role change
// takes effect immediately, not at next login.
type Claims struct {
	jwt.RegisteredClaims

	Purpose Purpose `json:"purpose"`
}

// NewClaims builds claims for a subject with the given purpose and lifetime.
func NewClaims(subject string, purpose Purpose, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Purpose: purpose,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. The jti
// is what the logout revocation set is keyed by.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
