package persistence

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/meal-tickets/migrations"
	"github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	applied, err := migrations.Apply(ctx, pool)
	for _, name := range applied {
		logger.Info("applied migration", zap.String("file", name))
	}
	if err != nil {
		return errorutil.Wrap(err, "run migrations")
	}

	logger.Info("migrations up to date", zap.Int("applied", len(applied)))
	return nil
}
