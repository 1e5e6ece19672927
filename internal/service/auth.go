package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/cryptox"
	"github.com/pixelforge/nexus/pkg/jwtx"
	"github.com/pixelforge/nexus/pkg/slogx"
)

var (
	// ErrInvalidCredentials deliberately covers unknown username, wrong
	// password and locked accounts alike, so callers cannot enumerate users.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidMFACode is returned for a wrong, reused-window or stale code.
	ErrInvalidMFACode = errors.New("invalid MFA code")

	// ErrInvalidChallenge covers expired, tampered and wrong-purpose
	// challenge tokens; all collapse into one outcome.
	ErrInvalidChallenge = errors.New("invalid or expired MFA challenge")

	// ErrInvalidSession covers every session validation failure.
	ErrInvalidSession = errors.New("invalid or expired session")

	// ErrPasswordPolicy rejects new passwords below the minimum length.
	ErrPasswordPolicy = errors.New("password must be at least 8 characters")
)

// MinPasswordLength matches the provisioning constraint on user creation.
const MinPasswordLength = 8

// AuthService coordinates the credential store, password verifier, TOTP
// engine and token issuer into the login, MFA-challenge and session flows.
// All tunables arrive through the constructor config; nothing global.
type AuthService struct {
	Store  store.Store
	Tokens *jwtx.HS256

	SessionTTL   time.Duration // full session lifetime (cookie)
	ChallengeTTL time.Duration // MFA challenge lifetime (body-delivered)
	TOTPSkew     uint          // tolerated 30s steps either side of now

	MaxFailedAttempts int           // lock after this many consecutive failures
	LockoutDuration   time.Duration // how long a lockout lasts
}

// Login verifies username+password. With MFA disabled it records the login
// and returns a full session; with MFA enabled it returns a short-lived
// challenge token instead. The password is not re-verified at the MFA step.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.LoginResult, string, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison anyway so the miss costs the same
			// as a wrong password.
			_ = cryptox.VerifyPassword(password, dummyDigest)
			return domain.LoginResult{}, "", ErrInvalidCredentials
		}
		return domain.LoginResult{}, "", fmt.Errorf("login lookup: %w", err)
	}

	if user.Locked(now) {
		log.Warn("login attempt on locked account", "user_id", user.ID)
		return domain.LoginResult{}, "", ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			s.registerFailure(ctx, user.ID)
			return domain.LoginResult{}, "", ErrInvalidCredentials
		}
		return domain.LoginResult{}, "", fmt.Errorf("login verify: %w", err)
	}

	if user.MFAActive() {
		challenge, err := s.Tokens.Issue(user.ID, jwtx.PurposeMFAChallenge, s.ChallengeTTL)
		if err != nil {
			return domain.LoginResult{}, "", fmt.Errorf("issue challenge: %w", err)
		}
		return domain.LoginResult{RequiresMFA: true, ChallengeToken: challenge}, "", nil
	}

	session, err := s.completeAuthentication(ctx, &user, now)
	if err != nil {
		return domain.LoginResult{}, "", err
	}
	return domain.LoginResult{User: &user}, session, nil
}

// VerifyMFA validates a challenge token plus TOTP code and, on success,
// completes authentication with a full session.
func (s *AuthService) VerifyMFA(ctx context.Context, challengeToken, code string) (domain.User, string, error) {
	now := time.Now().UTC()

	claims, err := s.Tokens.Verify(challengeToken, jwtx.PurposeMFAChallenge)
	if err != nil {
		return domain.User{}, "", ErrInvalidChallenge
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, "", ErrInvalidChallenge
		}
		return domain.User{}, "", fmt.Errorf("verify mfa lookup: %w", err)
	}

	if user.Locked(now) || !user.MFAActive() || user.MFASecret == nil {
		return domain.User{}, "", ErrInvalidChallenge
	}

	if !validateTOTP(code, *user.MFASecret, s.TOTPSkew, now) {
		s.registerFailure(ctx, user.ID)
		return domain.User{}, "", ErrInvalidMFACode
	}

	session, err := s.completeAuthentication(ctx, &user, now)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, session, nil
}

// ResolveSession is the authorization gate's entry point: validate the raw
// session token, reject revoked ones, then load the identity fresh so role
// changes take effect on the very next request.
func (s *AuthService) ResolveSession(ctx context.Context, rawToken string) (domain.User, error) {
	claims, err := s.Tokens.Verify(rawToken, jwtx.PurposeSession)
	if err != nil {
		return domain.User{}, ErrInvalidSession
	}

	revoked, err := s.Store.RevokedTokens().IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("revocation check: %w", err)
	}
	if revoked {
		return domain.User{}, ErrInvalidSession
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidSession
		}
		return domain.User{}, fmt.Errorf("session lookup: %w", err)
	}
	return user, nil
}

// Logout adds the session token's jti to the revocation set. It never fails
// on a bad token: the cookie gets cleared regardless and logout stays
// idempotent.
func (s *AuthService) Logout(ctx context.Context, rawToken string) {
	if rawToken == "" {
		return
	}
	claims, err := s.Tokens.Verify(rawToken, jwtx.PurposeSession)
	if err != nil {
		return
	}
	if err := s.Store.RevokedTokens().RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke session", "err", err)
	}
}

// ChangePassword re-verifies the current password before hashing and
// persisting the new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordPolicy
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password lookup: %w", err)
	}

	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("change password verify: %w", err)
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Store.Users().UpdatePasswordHash(ctx, userID, hash)
}

// IssueSession mints a full session token. Exposed for the bootstrap path
// and tests; normal flows go through Login/VerifyMFA.
func (s *AuthService) IssueSession(userID string) (string, error) {
	return s.Tokens.Issue(userID, jwtx.PurposeSession, s.SessionTTL)
}

// completeAuthentication records the login (resetting failure counters) and
// issues the full session token.
func (s *AuthService) completeAuthentication(ctx context.Context, user *domain.User, now time.Time) (string, error) {
	if err := s.Store.Users().RecordLogin(ctx, user.ID, now); err != nil {
		return "", fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now
	user.FailedAttempts = 0
	user.LockedUntil = nil

	session, err := s.Tokens.Issue(user.ID, jwtx.PurposeSession, s.SessionTTL)
	if err != nil {
		return "", fmt.Errorf("issue session: %w", err)
	}
	return session, nil
}

// registerFailure bumps the failure counter and locks the account once the
// threshold is hit. Failures here must not change the caller-visible error.
func (s *AuthService) registerFailure(ctx context.Context, userID string) {
	log := slogx.FromContext(ctx)

	count, err := s.Store.Users().IncrementFailedAttempts(ctx, userID)
	if err != nil {
		log.Error("failed to record auth failure", "user_id", userID, "err", err)
		return
	}

	if s.MaxFailedAttempts > 0 && count >= s.MaxFailedAttempts {
		until := time.Now().UTC().Add(s.LockoutDuration)
		if err := s.Store.Users().SetLockout(ctx, userID, until); err != nil {
			log.Error("failed to lock account", "user_id", userID, "err", err)
			return
		}
		log.Warn("account locked after repeated failures",
			"user_id", userID,
			slog.Int("attempts", count),
			"until", until,
		)
	}
}

// dummyDigest is a bcrypt hash of an unguessable value, used to equalize
// timing between unknown-user and wrong-password failures.
var dummyDigest = func() string {
	h, err := cryptox.HashPassword("nexus-timing-equalizer")
	if err != nil {
		panic(err)
	}
	return h
}()
