package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

type VerificationRepository struct {
	pool PgxPool
}

func NewVerificationRepository(pool PgxPool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

func (r *VerificationRepository) Create(ctx context.Context, v *domain.Verification) error {
	query := `
		INSERT INTO verifications (id, account_id, status, score, faces_detected, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		v.ID,
		v.AccountID,
		string(v.Status),
		v.Score,
		v.FacesDetected,
		v.LatencyMs,
	).Scan(&v.CreatedAt)

	if err != nil {
		return fmt.Errorf("create verification: %w", err)
	}

	return nil
}

// ListRecent returns the newest verifications first.
func (r *VerificationRepository) ListRecent(ctx context.Context, limit int) ([]domain.Verification, error) {
	query := `
		SELECT id, account_id, status, score, faces_detected, latency_ms, created_at
		FROM verifications
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	verifications := make([]domain.Verification, 0, limit)
	for rows.Next() {
		var v domain.Verification
		var status string
		if err := rows.Scan(&v.ID, &v.AccountID, &status, &v.Score, &v.FacesDetected, &v.LatencyMs, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		v.Status = domain.VerifyStatus(status)
		verifications = append(verifications, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verifications: %w", err)
	}

	return verifications, nil
}
