package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

// OwnerDirectory resolves owners by id or email. Read-only.
type OwnerDirectory interface {
	FindByID(ctx context.Context, id string) (domain.Owner, error)
	FindByEmail(ctx context.Context, email string) (domain.Owner, error)
}

type ownerRepository struct {
	pool *pgxpool.Pool
}

// NewOwnerRepository returns a Postgres-backed directory over the users table.
func NewOwnerRepository(pool *pgxpool.Pool) OwnerDirectory {
	return &ownerRepository{pool: pool}
}

func (r *ownerRepository) FindByID(ctx context.Context, id string) (domain.Owner, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Owner{}, ErrOwnerNotFound
	}
	const query = `SELECT id, name, email FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

// FindByEmail matches the address case-insensitively.
func (r *ownerRepository) FindByEmail(ctx context.Context, email string) (domain.Owner, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Owner{}, ErrOwnerNotFound
	}
	const query = `SELECT id, name, email FROM users WHERE LOWER(email)=LOWER($1)`
	return r.fetchSingle(ctx, query, email)
}

func (r *ownerRepository) fetchSingle(ctx context.Context, query string, arg any) (domain.Owner, error) {
	var owner domain.Owner
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&owner.ID, &owner.Name, &owner.Email); err != nil {
		if isNoRows(err) {
			return domain.Owner{}, ErrOwnerNotFound
		}
		return domain.Owner{}, errorutil.Wrap(err, "query owner")
	}
	return owner, nil
}
