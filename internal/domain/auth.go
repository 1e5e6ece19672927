package domain

// LoginResult is what the auth orchestrator returns from a password check.
// Exactly one of User or the challenge fields is populated.
type LoginResult struct {
	// User is set when authentication completed (MFA disabled).
	User *User

	// RequiresMFA indicates the password was correct but a second factor
	// is pending. ChallengeToken must be echoed back to verify-mfa.
	RequiresMFA    bool
	ChallengeToken string
}

// MFAEnrollment pairs a freshly generated TOTP secret with its scannable
// provisioning representation. The secret is already persisted as pending;
// it becomes active only after the user proves possession of it.
type MFAEnrollment struct {
	Secret string // base32, for manual entry
	QRCode string // base64-encoded PNG of the otpauth:// provisioning URI
}
