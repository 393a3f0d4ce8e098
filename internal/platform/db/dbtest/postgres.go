// Package dbtest starts a disposable PostgreSQL for repository tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/odyssey-erp/bokslut/internal/platform/db"
)

// Postgres returns a migrated pool backed by a fresh container. The test is
// skipped in short mode or when no container runtime is reachable.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("bokslut_test"),
		tcpostgres.WithUsername("bokslut"),
		tcpostgres.WithPassword("bokslut"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(dsn, nil))

	pool, err := db.New(ctx, dsn, db.Options{MaxConns: 30})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// InsertPeriod creates an unlocked fiscal period and returns its id.
func InsertPeriod(t *testing.T, pool *pgxpool.Pool, workspaceID uuid.UUID, name string, start, end time.Time) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO fiscal_periods (workspace_id, name, start_date, end_date) VALUES ($1, $2, $3, $4) RETURNING id`,
		workspaceID, name, start, end).Scan(&id)
	require.NoError(t, err)
	return id
}
