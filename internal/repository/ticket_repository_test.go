package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/internal/repository"
	"github.com/spec-kit/meal-tickets/internal/testutil"
)

func newTicket(ownerID string, price string, issuedAt time.Time) domain.Ticket {
	return domain.Ticket{
		OwnerID:  ownerID,
		Price:    decimal.RequireFromString(price),
		Status:   domain.TicketStatusAvailable,
		IssuedAt: issuedAt,
	}
}

func TestTicketRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	store := repository.NewTicketRepository(pool)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Insert assigns an id and round-trips the price", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		owner := testutil.InsertOwner(t, ctx, pool, "Ana", "ana@example.com")

		stored, err := store.Insert(ctx, newTicket(owner.ID, "12.50", base))
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
		assert.Equal(t, owner.ID, stored.OwnerID)
		assert.True(t, stored.Price.Equal(decimal.RequireFromString("12.5")), "price %s", stored.Price)
		assert.Equal(t, base, stored.IssuedAt)
		assert.Equal(t, domain.TicketStatusAvailable, stored.Status)
		assert.Nil(t, stored.UsedAt)
	})

	t.Run("Insert with unknown owner", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		_, err := store.Insert(ctx, newTicket("00000000-0000-4000-8000-000000000001", "1", base))
		assert.ErrorIs(t, err, repository.ErrOwnerNotFound)
	})

	t.Run("Insert with a price beyond the column", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		owner := testutil.InsertOwner(t, ctx, pool, "Ana", "ana@example.com")

		_, err := store.Insert(ctx, newTicket(owner.ID, "10000000000", base))
		assert.ErrorIs(t, err, repository.ErrPriceOutOfRange)
	})

	t.Run("InsertBatch keeps order and shares attributes", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		owner := testutil.InsertOwner(t, ctx, pool, "Ana", "ana@example.com")

		batch := make([]domain.Ticket, 5)
		for i := range batch {
			batch[i] = newTicket(owner.ID, "10", base)
		}
		stored, err := store.InsertBatch(ctx, batch)
		require.NoError(t, err)
		require.Len(t, stored, 5)

		found, err := store.FindMatching(ctx, repository.TicketPredicate{OwnerID: &owner.ID})
		require.NoError(t, err)
		require.Len(t, found, 5)
		for i := range stored {
			assert.Equal(t, stored[i].ID, found[i].ID, "insertion order breaks ties")
			assert.Equal(t, base, found[i].IssuedAt)
		}
	})

	t.Run("FindMatching applies every predicate field", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		ana := testutil.InsertOwner(t, ctx, pool, "Ana", "ana@example.com")
		bob := testutil.InsertOwner(t, ctx, pool, "Bob", "bob@example.com")
		for i := 0; i < 3; i++ {
			_, err := store.Insert(ctx, newTicket(ana.ID, "10", base.Add(time.Duration(i)*time.Hour)))
			require.NoError(t, err)
		}
		_, err := store.Insert(ctx, newTicket(bob.ID, "10", base))
		require.NoError(t, err)

		from, to := base.Add(time.Hour), base.Add(2*time.Hour)
		available := domain.TicketStatusAvailable
		found, err := store.FindMatching(ctx, repository.TicketPredicate{
			IssuedFrom: &from,
			IssuedTo:   &to,
			Status:     &available,
			OwnerID:    &ana.ID,
		})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, from, found[0].IssuedAt)
		assert.Equal(t, to, found[1].IssuedAt)

		bad := "not-a-uuid"
		found, err = store.FindMatching(ctx, repository.TicketPredicate{OwnerID: &bad})
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("TryClaim takes the oldest and sets used_at", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		owner := testutil.InsertOwner(t, ctx, pool, "Ana", "ana@example.com")
		newer, err := store.Insert(ctx, newTicket(owner.ID, "10", base.Add(time.Minute)))
		require.NoError(t, err)
		older, err := store.Insert(ctx, newTicket(owner.ID, "10", base))
		require.NoError(t, err)

		usedAt := base.Add(time.Hour)
		first, err := store.TryClaim(ctx, owner.ID, domain.TicketStatusAvailable, domain.TicketStatusUsed, &usedAt)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, older.ID, first.ID)
		assert.Equal(t, domain.TicketStatusUsed, first.Status)
		require.NotNil(t, first.UsedAt)
		assert.Equal(t, usedAt, *first.UsedAt)

		second, err := store.TryClaim(ctx, owner.ID, domain.TicketStatusAvailable, domain.TicketStatusUsed, &usedAt)
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.Equal(t, newer.ID, second.ID)

		none, err := store.TryClaim(ctx, owner.ID, domain.TicketStatusAvailable, domain.TicketStatusUsed, &usedAt)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("TryClaim rejects illegal transitions", func(t *testing.T) {
		ctx := context.Background()
		_, err := store.TryClaim(ctx, "00000000-0000-4000-8000-000000000001", domain.TicketStatusUsed, domain.TicketStatusVoided, nil)
		assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	})

	t.Run("concurrent TryClaim hands out each ticket once", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		owner := testutil.InsertOwner(t, ctx, pool, "Ana", "ana@example.com")
		const available, callers = 6, 24
		for i := 0; i < available; i++ {
			_, err := store.Insert(ctx, newTicket(owner.ID, "10", base.Add(time.Duration(i)*time.Second)))
			require.NoError(t, err)
		}

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			claimed = map[string]int{}
			misses  int
			errs    []error
		)
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				usedAt := time.Now().UTC().Truncate(time.Microsecond)
				got, err := store.TryClaim(ctx, owner.ID, domain.TicketStatusAvailable, domain.TicketStatusUsed, &usedAt)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					errs = append(errs, err)
				case got == nil:
					misses++
				default:
					claimed[got.ID]++
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Empty(t, errs)
		assert.Len(t, claimed, available)
		for id, n := range claimed {
			assert.Equal(t, 1, n, "ticket %s claimed %d times", id, n)
		}
		assert.Equal(t, callers-available, misses)
	})

	t.Run("Summarize aggregates in SQL", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		owner := testutil.InsertOwner(t, ctx, pool, "Ana", "ana@example.com")
		for i := 0; i < 3; i++ {
			_, err := store.Insert(ctx, newTicket(owner.ID, "10", base))
			require.NoError(t, err)
		}
		usedAt := base.Add(time.Minute)
		_, err := store.TryClaim(ctx, owner.ID, domain.TicketStatusAvailable, domain.TicketStatusUsed, &usedAt)
		require.NoError(t, err)

		stats, err := store.Summarize(ctx, repository.TicketPredicate{OwnerID: &owner.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalTickets)
		assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(10)), "revenue %s", stats.TotalRevenue)
		assert.Equal(t, int64(2), stats.AvailableCount)
		assert.Equal(t, int64(1), stats.UsedCount)

		later := base.Add(24 * time.Hour)
		empty, err := store.Summarize(ctx, repository.TicketPredicate{IssuedFrom: &later})
		require.NoError(t, err)
		assert.Zero(t, empty.TotalTickets)
		assert.True(t, empty.TotalRevenue.IsZero())
	})

	t.Run("schema enforces the used_at invariant", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		owner := testutil.InsertOwner(t, ctx, pool, "Ana", "ana@example.com")

		bad := newTicket(owner.ID, "10", base)
		bad.Status = domain.TicketStatusUsed
		_, err := store.Insert(ctx, bad)
		assert.Error(t, err)
	})
}

func TestOwnerRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)
	dir := repository.NewOwnerRepository(pool)
	ana := testutil.InsertOwner(t, ctx, pool, "Ana", "Ana@Example.com")

	got, err := dir.FindByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, ana, got)

	got, err = dir.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, got.ID)

	_, err = dir.FindByID(ctx, "00000000-0000-4000-8000-000000000001")
	assert.ErrorIs(t, err, repository.ErrOwnerNotFound)

	_, err = dir.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrOwnerNotFound)

	_, err = dir.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, repository.ErrOwnerNotFound)
}
