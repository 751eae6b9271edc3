package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/config"
	"github.com/davidleathers/outbound-pacing-backend/internal/testutil"
	"github.com/davidleathers/outbound-pacing-backend/internal/testutil/containers"
)

func TestCreateMigration(t *testing.T) {
	t.Run("numbers after the highest version", func(t *testing.T) {
		dir := t.TempDir()
		for _, f := range []string{"000001_init.up.sql", "000001_init.down.sql", "000007_leads.up.sql", "README.md"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, f), nil, 0o644))
		}

		up, down, err := createMigration(dir, "add_dnc_index")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "000008_add_dnc_index.up.sql"), up)
		assert.Equal(t, filepath.Join(dir, "000008_add_dnc_index.down.sql"), down)
		assert.FileExists(t, up)
		assert.FileExists(t, down)
	})

	t.Run("empty directory starts at one", func(t *testing.T) {
		up, _, err := createMigration(filepath.Join(t.TempDir(), "new"), "init")
		require.NoError(t, err)
		assert.Equal(t, "000001_init.up.sql", filepath.Base(up))
	})

	t.Run("rejects names that would not parse", func(t *testing.T) {
		_, _, err := createMigration(t.TempDir(), "Add Index")
		assert.Error(t, err)
	})
}

func TestEmbeddedMigrationsAreNumbered(t *testing.T) {
	entries, err := os.ReadDir(filepath.Join("..", "..", defaultMigrationsDir))
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Regexp(t, migrationFile, e.Name())
	}
}

func TestRun(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	pg, err := containers.NewPostgresContainer(ctx)
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	cfg := config.DatabaseConfig{URL: pg.ConnectionString, MaxConns: 2}
	logger := zaptest.NewLogger(t)

	require.NoError(t, run(ctx, cfg, "up", 0, logger))
	require.NoError(t, run(ctx, cfg, "status", 0, logger))
	require.NoError(t, run(ctx, cfg, "down", 1, logger))
	assert.Error(t, run(ctx, cfg, "sideways", 0, logger))
}
