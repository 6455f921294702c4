package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// IdentityRepository stores identities in postgres. Sample embeddings live
// in identity_embeddings, ordered by position.
type IdentityRepository struct {
	pool PgxPool
}

func NewIdentityRepository(pool PgxPool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// LoadAll returns every identity in enrollment order.
func (r *IdentityRepository) LoadAll(ctx context.Context) ([]*domain.EnrolledIdentity, error) {
	query := `
		SELECT i.id, i.name, i.account_id, i.mean_embedding, i.enrolled_at, e.embedding
		FROM identities i
		JOIN identity_embeddings e ON e.identity_id = i.id
		ORDER BY i.enrolled_at, i.id, e.position
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	defer rows.Close()

	var identities []*domain.EnrolledIdentity
	var current *domain.EnrolledIdentity

	for rows.Next() {
		var (
			id         uuid.UUID
			name       string
			accountID  string
			mean       *pgvector.Vector
			enrolledAt time.Time
			embedding  *pgvector.Vector
		)

		if err := rows.Scan(&id, &name, &accountID, &mean, &enrolledAt, &embedding); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}

		if current == nil || current.ID != id {
			current = &domain.EnrolledIdentity{
				ID:            id,
				Name:          name,
				AccountID:     accountID,
				MeanEmbedding: fromVector(mean),
				EnrolledAt:    enrolledAt.UTC(),
			}
			identities = append(identities, current)
		}

		if e := fromVector(embedding); len(e) > 0 {
			current.Embeddings = append(current.Embeddings, e)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	return identities, nil
}

// Append inserts identity and its embeddings in one transaction.
func (r *IdentityRepository) Append(ctx context.Context, identity *domain.EnrolledIdentity) error {
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append identity: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO identities (id, name, account_id, mean_embedding, enrolled_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		identity.ID,
		identity.Name,
		identity.AccountID,
		toVector(identity.MeanEmbedding),
		identity.EnrolledAt,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAccount.WithError(err)
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	for i, e := range identity.Embeddings {
		_, err = tx.Exec(ctx, `
			INSERT INTO identity_embeddings (identity_id, position, embedding)
			VALUES ($1, $2, $3)
		`, identity.ID, i, toVector(e))
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("insert embedding %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit identity: %w", err)
	}
	return nil
}
