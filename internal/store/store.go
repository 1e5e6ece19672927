package store

import (
	"context"
	"errors"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Users() Users
	Projects() Projects
	Documents() Documents
	RevokedTokens() RevokedTokens

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Tx starts a read/write transaction. The caller MUST Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store. Implementations must keep the MFA secret
// encrypted at rest; callers only ever see plaintext secrets.
type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Username or email collisions return ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser rewrites username, email and role; bumps updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// DeleteUser is a hard delete; documents keep their uploader id.
	DeleteUser(ctx context.Context, userID string) error

	IsEmpty(ctx context.Context) (bool, error)

	// UpdateMFASecret stores a pending TOTP secret without enabling MFA.
	UpdateMFASecret(ctx context.Context, userID, secret string) error

	// EnableMFA stamps mfa_enabled; the pending secret becomes active.
	EnableMFA(ctx context.Context, userID string) error

	// DisableMFA clears both the enabled stamp and the secret.
	DisableMFA(ctx context.Context, userID string) error

	// RecordLogin sets last_login and clears the failure counter and lockout.
	RecordLogin(ctx context.Context, userID string, at time.Time) error

	// IncrementFailedAttempts bumps the failure counter and returns the new
	// count so the caller can decide whether to lock.
	IncrementFailedAttempts(ctx context.Context, userID string) (int, error)

	// SetLockout locks the account until the given time.
	SetLockout(ctx context.Context, userID string, until time.Time) error
}

type Projects interface {
	CreateProject(ctx context.Context, p domain.Project) error
	GetProjectByID(ctx context.Context, id string) (domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListProjectsByLead(ctx context.Context, leadID string) ([]domain.Project, error)
	ListProjectsByDeveloper(ctx context.Context, developerID string) ([]domain.Project, error)
	UpdateProject(ctx context.Context, p domain.Project) error
	DeleteProject(ctx context.Context, id string) error

	// AssignDeveloper is idempotent; assigning twice is not an error.
	AssignDeveloper(ctx context.Context, projectID, developerID string) error
	RemoveDeveloper(ctx context.Context, projectID, developerID string) error
}

type Documents interface {
	CreateDocument(ctx context.Context, d domain.Document) error
	GetDocumentByID(ctx context.Context, id string) (domain.Document, error)
	ListProjectDocuments(ctx context.Context, projectID string) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// RevokedTokens is the logout revocation set, keyed by token jti. Rows are
// only needed until the token would have expired anyway.
type RevokedTokens interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpiredRevocations(ctx context.Context) error
}
