package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("MFA_ENCRYPTION_KEY", "abcdefghijklmnopqrstuvwxyz012345")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, uint(1), cfg.TOTPSkew)
	require.Equal(t, 5, cfg.LockoutThreshold)
	require.Len(t, cfg.EncryptionKey, 32)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MFA_ENCRYPTION_KEY", "")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestTOTPSkewIsClamped(t *testing.T) {
	setRequiredEnv(t)

	t.Run("negative falls back to default", func(t *testing.T) {
		t.Setenv("MFA_WINDOW", "-3")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		require.Equal(t, uint(1), cfg.TOTPSkew)
	})

	t.Run("oversized is capped", func(t *testing.T) {
		t.Setenv("MFA_WINDOW", "500")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		require.Equal(t, uint(4), cfg.TOTPSkew)
	})

	t.Run("in-range value passes through", func(t *testing.T) {
		t.Setenv("MFA_WINDOW", "2")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		require.Equal(t, uint(2), cfg.TOTPSkew)
	})
}

func TestParseKeyFormats(t *testing.T) {
	t.Parallel()

	t.Run("raw 32 bytes", func(t *testing.T) {
		key, err := parseKey("abcdefghijklmnopqrstuvwxyz012345")
		require.NoError(t, err)
		require.Len(t, key, 32)
	})

	t.Run("hex", func(t *testing.T) {
		key, err := parseKey("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
		require.NoError(t, err)
		require.Len(t, key, 32)
	})

	t.Run("wrong length rejected", func(t *testing.T) {
		_, err := parseKey("too-short")
		require.Error(t, err)
	})

	t.Run("empty rejected", func(t *testing.T) {
		_, err := parseKey("")
		require.Error(t, err)
	})
}
