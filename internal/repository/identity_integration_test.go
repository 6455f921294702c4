//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

func setupIntegrationTest(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "facegate_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/facegate_test?sslmode=disable", host, port.Port())
	poolCfg := database.DefaultPoolConfig(connStr)

	sqlDB, err := database.NewPool(poolCfg)
	require.NoError(t, err)
	migrator, err := database.NewMigrator(sqlDB, "facegate_test", nil)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	_ = migrator.Close()

	db, err := database.NewPgxPool(ctx, poolCfg)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func mustIdentity(t *testing.T, name, account string, enrolledAt time.Time, raws ...[]float32) *domain.EnrolledIdentity {
	t.Helper()

	embeddings := make([]domain.Embedding, 0, len(raws))
	for _, raw := range raws {
		e, err := domain.NormalizeEmbedding(raw)
		require.NoError(t, err)
		embeddings = append(embeddings, e)
	}

	identity, err := domain.NewEnrolledIdentity(name, account, embeddings, enrolledAt)
	require.NoError(t, err)
	return identity
}

func TestIdentityRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(db)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	ana := mustIdentity(t, "Ana", "A1", base,
		[]float32{1, 0, 0}, []float32{0.9, 0.1, 0}, []float32{0.8, 0.2, 0})
	bea := mustIdentity(t, "Bea", "B2", base.Add(time.Hour),
		[]float32{0, 1, 0}, []float32{0, 0.9, 0.1}, []float32{0.1, 0.9, 0}, []float32{0, 1, 0.1})

	require.NoError(t, repo.Append(ctx, bea))
	require.NoError(t, repo.Append(ctx, ana))

	t.Run("load returns identities in enrollment order", func(t *testing.T) {
		loaded, err := repo.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 2)

		assert.Equal(t, "A1", loaded[0].AccountID)
		assert.Equal(t, "B2", loaded[1].AccountID)
		assert.Len(t, loaded[0].Embeddings, 3)
		assert.Len(t, loaded[1].Embeddings, 4)
		assert.True(t, loaded[0].EnrolledAt.Equal(base))

		for i, e := range ana.Embeddings {
			assert.InDeltaSlice(t, e, loaded[0].Embeddings[i], 1e-6, "embedding %d should round-trip", i)
		}
		assert.InDeltaSlice(t, ana.MeanEmbedding, loaded[0].MeanEmbedding, 1e-6)
	})

	t.Run("duplicate account is rejected", func(t *testing.T) {
		dup := mustIdentity(t, "Impostor", "A1", base.Add(2*time.Hour),
			[]float32{0, 0, 1}, []float32{0, 0.1, 1}, []float32{0.1, 0, 1})

		err := repo.Append(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDuplicateAccount)

		loaded, err := repo.LoadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, loaded, 2, "failed append must not leave partial rows")
	})
}

func TestVerificationRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewVerificationRepository(db)

	account := "A1"
	score := 0.87
	records := []*domain.Verification{
		{Status: domain.StatusNoFaceDetected, LatencyMs: 12},
		{AccountID: &account, Status: domain.StatusMatched, Score: &score, FacesDetected: 1, LatencyMs: 40},
	}
	for _, v := range records {
		require.NoError(t, repo.Create(ctx, v))
		assert.False(t, v.CreatedAt.IsZero())
		time.Sleep(5 * time.Millisecond)
	}

	got, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.StatusMatched, got[0].Status)
	require.NotNil(t, got[0].Score)
	assert.InDelta(t, 0.87, *got[0].Score, 1e-9)
	assert.Nil(t, got[1].AccountID)
	assert.Nil(t, got[1].Score)
}
