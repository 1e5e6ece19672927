package domain

import "time"

// User is an identity capable of authenticating. PasswordHash and MFASecret
// never leave the auth core; PublicUser is the only representation handed to
// clients.
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string     // bcrypt digest
	Role           Role       // closed set, see role.go
	MFAEnabled     *time.Time // when MFA was confirmed (nil = disabled)
	MFASecret      *string    // TOTP secret, base32 (nil unless enrolling or enabled)
	LastLogin      *time.Time // updated on every successful authentication
	FailedAttempts int        // consecutive failed password/MFA checks
	LockedUntil    *time.Time // lockout expiry after too many failures
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MFAActive reports whether MFA enrollment has been confirmed.
func (u User) MFAActive() bool { return u.MFAEnabled != nil }

// Locked reports whether the account is locked out at the given time.
func (u User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// PublicUser is the minimal client-facing projection of a User.
type PublicUser struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	MFAEnabled bool       `json:"mfaEnabled"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
}

// Public strips the sensitive fields.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		MFAEnabled: u.MFAActive(),
		LastLogin:  u.LastLogin,
	}
}
