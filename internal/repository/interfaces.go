package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool used by the postgres repositories.
// pgxmock.PgxPoolIface satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IdentityStore persists enrolled identities. Append must fail with
// domain.ErrDuplicateAccount when the account is already stored.
type IdentityStore interface {
	LoadAll(ctx context.Context) ([]*domain.EnrolledIdentity, error)
	Append(ctx context.Context, identity *domain.EnrolledIdentity) error
}

// VerificationRepositoryInterface defines operations for verification audit logging
type VerificationRepositoryInterface interface {
	Create(ctx context.Context, v *domain.Verification) error
	ListRecent(ctx context.Context, limit int) ([]domain.Verification, error)
}

var (
	_ IdentityStore                   = (*IdentityRepository)(nil)
	_ IdentityStore                   = (*FileStore)(nil)
	_ VerificationRepositoryInterface = (*VerificationRepository)(nil)
)
