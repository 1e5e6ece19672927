package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod = 30 // seconds per time step
	totpDigits = otp.DigitsSix

	qrImageSize = 200 // pixels, square
)

// ErrMFANotPending is returned when confirm is called without a prior setup.
var ErrMFANotPending = errors.New("MFA enrollment has not been started")

// MFAService owns TOTP enrollment and teardown. Challenge verification
// during login lives on AuthService; both share validateTOTP.
type MFAService struct {
	Store    store.Store
	Issuer   string // shown in the authenticator app, e.g. "PixelForge Nexus"
	TOTPSkew uint
}

// Setup generates a fresh secret, persists it as pending on the identity and
// returns it with a scannable QR payload. MFA is NOT enabled yet; the user
// must prove possession via Confirm first. Calling Setup again replaces any
// previous pending secret.
func (s *MFAService) Setup(ctx context.Context, user domain.User) (domain.MFAEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      totpPeriod,
		Digits:      totpDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("generate TOTP key: %w", err)
	}

	if err := s.Store.Users().UpdateMFASecret(ctx, user.ID, key.Secret()); err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("store pending secret: %w", err)
	}

	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("render provisioning QR: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("encode provisioning QR: %w", err)
	}

	return domain.MFAEnrollment{
		Secret: key.Secret(),
		QRCode: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Confirm validates a code against the pending secret and, on success,
// promotes the enrollment to enabled.
func (s *MFAService) Confirm(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("confirm MFA lookup: %w", err)
	}

	if user.MFASecret == nil || *user.MFASecret == "" {
		return ErrMFANotPending
	}

	if !validateTOTP(code, *user.MFASecret, s.TOTPSkew, time.Now().UTC()) {
		return ErrInvalidMFACode
	}

	return s.Store.Users().EnableMFA(ctx, userID)
}

// Disable clears the enabled flag and secret. Idempotent: disabling an
// account without MFA succeeds.
func (s *MFAService) Disable(ctx context.Context, userID string) error {
	return s.Store.Users().DisableMFA(ctx, userID)
}

// validateTOTP checks a submitted code against a secret, tolerating skew
// time steps either side of now. Wrong-length or non-numeric input is
// rejected before any cryptographic work.
func validateTOTP(code, secret string, skew uint, now time.Time) bool {
	if len(code) != int(totpDigits.Length()) {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}

	ok, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      skew,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
