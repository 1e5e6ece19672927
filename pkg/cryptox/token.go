package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateHexToken creates a cryptographically secure random token of the
// given byte length, hex encoded. Used for stored document filenames so the
// on-disk name never leaks the original one.
func GenerateHexToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
