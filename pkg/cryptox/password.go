package cryptox

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor. Reassess periodically as hardware
// improves; bumping it only affects newly hashed passwords.
const PasswordCost = 12

// ErrPasswordMismatch is returned when a candidate password does not match
// the stored hash. Callers must map this to a generic credentials error
// before it reaches a client.
var ErrPasswordMismatch = errors.New("cryptox: password does not match")

// HashPassword hashes a plaintext password with bcrypt. The salt is generated
// per call and embedded in the returned digest.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("cryptox: hash password: %w", err)
	}
	return string(digest), nil
}

// VerifyPassword compares a plaintext candidate against a bcrypt digest.
// The comparison is constant-time within the bcrypt scheme.
func VerifyPassword(password, digest string) error {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("cryptox: verify password: %w", err)
	}
	return nil
}
