package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const uniqueViolationCode = "23505"

// isUniqueViolation checks if the error is a unique constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, uniqueViolationCode) ||
		strings.Contains(errMsg, "duplicate key")
}

func toVector(e domain.Embedding) pgvector.Vector {
	return pgvector.NewVector([]float32(e.Clone()))
}

func fromVector(v *pgvector.Vector) domain.Embedding {
	if v == nil || v.Slice() == nil {
		return nil
	}
	return domain.Embedding(v.Slice()).Clone()
}
