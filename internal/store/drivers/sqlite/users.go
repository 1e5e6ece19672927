package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/pkg/cryptox"
)

// usersRepo implements store.Users. The mfa_secret column is encrypted with
// the store's SecretBox on write and decrypted on read, so the plaintext
// secret never touches disk.
type usersRepo struct {
	db  dbtx
	box *cryptox.SecretBox
}

const userColumns = `id, username, email, password_hash, role, mfa_enabled, mfa_secret,
	last_login, failed_attempts, locked_until, created_at, updated_at`

func (r *usersRepo) scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u          domain.User
		role       string
		mfaEnabled sql.NullTime
		mfaSecret  sql.NullString
		lastLogin  sql.NullTime
		lockedTill sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &mfaEnabled, &mfaSecret,
		&lastLogin, &u.FailedAttempts, &lockedTill, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}

	u.Role = domain.Role(role)
	u.MFAEnabled = mapNullTimePtr(mfaEnabled)
	u.LastLogin = mapNullTimePtr(lastLogin)
	u.LockedUntil = mapNullTimePtr(lockedTill)

	if mfaSecret.Valid {
		plain, err := r.box.Open(mfaSecret.String)
		if err != nil {
			return domain.User{}, fmt.Errorf("decrypt mfa secret for user %s: %w", u.ID, err)
		}
		u.MFASecret = &plain
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := r.scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := r.scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	var secret sql.NullString
	if u.MFASecret != nil {
		sealed, err := r.box.Seal(*u.MFASecret)
		if err != nil {
			return err
		}
		secret = sql.NullString{String: sealed, Valid: true}
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, mfa_enabled, mfa_secret,
			last_login, failed_attempts, locked_until, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role),
		mapOptionalTime(u.MFAEnabled), secret, mapOptionalTime(u.LastLogin),
		u.FailedAttempts, mapOptionalTime(u.LockedUntil), now, now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET username = ?, email = ?, role = ?, updated_at = ?
		WHERE id = ?`,
		u.Username, u.Email, string(u.Role), time.Now().UTC(), u.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *usersRepo) UpdateMFASecret(ctx context.Context, userID, secret string) error {
	sealed, err := r.box.Seal(secret)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET mfa_secret = ?, updated_at = ? WHERE id = ?`,
		sealed, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET mfa_enabled = ?, updated_at = ? WHERE id = ?`,
		now, now, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) DisableMFA(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET mfa_enabled = NULL, mfa_secret = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login = ?, failed_attempts = 0, locked_until = NULL, updated_at = ?
		WHERE id = ?`,
		at.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) IncrementFailedAttempts(ctx context.Context, userID string) (int, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET failed_attempts = failed_attempts + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.QueryRowContext(ctx,
		`SELECT failed_attempts FROM users WHERE id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

func (r *usersRepo) SetLockout(ctx context.Context, userID string, until time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET locked_until = ?, updated_at = ? WHERE id = ?`,
		until.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow maps zero-row updates/deletes to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
