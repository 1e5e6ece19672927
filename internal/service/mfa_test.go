package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"testing"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestMFASetupConfirmDisable(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	mfa := &MFAService{Store: st, Issuer: testIssuer, TOTPSkew: 1}
	ctx := context.Background()

	user := seedUser(t, st, "ivy", domain.RoleDeveloper)

	enrollment, err := mfa.Setup(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)

	t.Run("qr code is a valid png", func(t *testing.T) {
		raw, err := base64.StdEncoding.DecodeString(enrollment.QRCode)
		require.NoError(t, err)
		_, err = png.Decode(bytes.NewReader(raw))
		require.NoError(t, err)
	})

	t.Run("setup alone does not enable MFA", func(t *testing.T) {
		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, got.MFAActive())
		require.NotNil(t, got.MFASecret)
	})

	t.Run("confirm with wrong code", func(t *testing.T) {
		require.ErrorIs(t, mfa.Confirm(ctx, user.ID, "000000"), ErrInvalidMFACode)

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, got.MFAActive())
	})

	t.Run("confirm with valid code enables MFA", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, mfa.Confirm(ctx, user.ID, code))

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, got.MFAActive())
	})

	t.Run("disable clears secret and is idempotent", func(t *testing.T) {
		require.NoError(t, mfa.Disable(ctx, user.ID))
		require.NoError(t, mfa.Disable(ctx, user.ID))

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, got.MFAActive())
		require.Nil(t, got.MFASecret)
	})
}

func TestMFAConfirmWithoutSetup(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	mfa := &MFAService{Store: st, Issuer: testIssuer, TOTPSkew: 1}
	ctx := context.Background()

	user := seedUser(t, st, "judy", domain.RoleDeveloper)
	require.ErrorIs(t, mfa.Confirm(ctx, user.ID, "123456"), ErrMFANotPending)
}

func TestMFASetupReplacesPendingSecret(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	mfa := &MFAService{Store: st, Issuer: testIssuer, TOTPSkew: 1}
	ctx := context.Background()

	user := seedUser(t, st, "kirk", domain.RoleDeveloper)

	first, err := mfa.Setup(ctx, user)
	require.NoError(t, err)
	second, err := mfa.Setup(ctx, user)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret)

	// Only the latest pending secret counts
	staleCode, err := totp.GenerateCode(first.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.ErrorIs(t, mfa.Confirm(ctx, user.ID, staleCode), ErrInvalidMFACode)

	code, err := totp.GenerateCode(second.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, mfa.Confirm(ctx, user.ID, code))
}
