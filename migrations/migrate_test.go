package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/meal-tickets/internal/testutil"
	"github.com/spec-kit/meal-tickets/migrations"
)

func TestApply_RecordsMigrations(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `DROP TABLE IF EXISTS tickets, users, schema_migrations CASCADE`)
	require.NoError(t, err)

	applied, err := migrations.Apply(ctx, pool)
	require.NoError(t, err)
	assert.Contains(t, applied, "0001_init.sql")

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, len(applied), count)

	again, err := migrations.Apply(ctx, pool)
	require.NoError(t, err)
	assert.Empty(t, again)
}
