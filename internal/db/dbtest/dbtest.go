// Package dbtest starts a throwaway Postgres for integration tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/jsherman999/skillswap/internal/db"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Open starts a Postgres container, applies migrations and returns a
// connected DB. Everything is torn down when the test ends.
func Open(t *testing.T) *db.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("skillswap"),
		postgres.WithUsername("skillswap"),
		postgres.WithPassword("skillswap"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pg)
	require.NoError(t, err)

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	d, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(d.Close)

	require.NoError(t, db.ApplyMigrations(ctx, d, zerolog.Nop()))
	// second run is a no-op against the recorded hashes
	require.NoError(t, db.ApplyMigrations(ctx, d, zerolog.Nop()))
	return d
}
