package testutil

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/config"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/database"
	"github.com/davidleathers/outbound-pacing-backend/internal/testutil/containers"
)

// TestDB is a migrated PostgreSQL database running in a container
type TestDB struct {
	t    *testing.T
	pool *pgxpool.Pool
}

// NewTestDB starts postgres, applies the schema migrations and returns a
// pool. It skips under -short or when Docker is not available.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	SkipIfShort(t)

	ctx := context.Background()
	pg, err := containers.NewPostgresContainer(ctx)
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pg.PostgresContainer) })

	logger := zaptest.NewLogger(t)
	pool, err := database.NewPool(ctx, config.DatabaseConfig{URL: pg.ConnectionString, MaxConns: 5}, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	mg, err := database.NewMigrator(pool, logger)
	require.NoError(t, err)
	require.NoError(t, mg.Up(0))

	return &TestDB{t: t, pool: pool}
}

// Pool returns the connection pool
func (tdb *TestDB) Pool() *pgxpool.Pool {
	return tdb.pool
}

// Truncate empties every table between subtests
func (tdb *TestDB) Truncate() {
	tdb.t.Helper()
	_, err := tdb.pool.Exec(context.Background(), `
		TRUNCATE campaigns, leads, call_outcomes, pacing_settings, concurrency_settings,
			transfers, pacing_snapshots, compliance_metrics, compliance_alerts CASCADE`)
	require.NoError(tdb.t, err)
}
