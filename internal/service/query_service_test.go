package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/internal/service"
	"github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

func TestQueryService_ListTickets(t *testing.T) {
	ctx := context.Background()

	t.Run("second page of two over five", func(t *testing.T) {
		f := newFixture(t)
		owner := f.owners.Add("Ana", "ana@example.com")
		issued := f.issueSpaced(t, owner, 10, 5)

		page, err := f.query.ListTickets(ctx, service.TicketFilter{}, service.Pagination{Page: 2, Limit: 2})
		require.NoError(t, err)

		assert.Equal(t, []string{issued[2].ID, issued[3].ID}, ids(page.Data))
		assert.Equal(t, service.PageMeta{Total: 5, Limit: 2, Offset: 2, HasMore: true}, page.Meta)
	})

	t.Run("last page has no more", func(t *testing.T) {
		f := newFixture(t)
		owner := f.owners.Add("Ana", "ana@example.com")
		issued := f.issueSpaced(t, owner, 10, 5)

		page, err := f.query.ListTickets(ctx, service.TicketFilter{}, service.Pagination{Page: 3, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{issued[4].ID}, ids(page.Data))
		assert.False(t, page.Meta.HasMore)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		f := newFixture(t)
		owner := f.owners.Add("Ana", "ana@example.com")
		f.issueSpaced(t, owner, 10, 2)

		page, err := f.query.ListTickets(ctx, service.TicketFilter{}, service.Pagination{Page: 9, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, page.Data)
		assert.NotNil(t, page.Data)
		assert.Equal(t, 2, page.Meta.Total)
		assert.Equal(t, 16, page.Meta.Offset)
	})

	t.Run("huge page or limit does not overflow", func(t *testing.T) {
		f := newFixture(t)
		owner := f.owners.Add("Ana", "ana@example.com")
		f.issueSpaced(t, owner, 10, 2)

		page, err := f.query.ListTickets(ctx, service.TicketFilter{}, service.Pagination{Page: 1 << 62, Limit: 4})
		require.NoError(t, err)
		assert.Empty(t, page.Data)
		assert.Equal(t, service.PageMeta{Total: 2, Limit: 4, Offset: math.MaxInt, HasMore: false}, page.Meta)

		page, err = f.query.ListTickets(ctx, service.TicketFilter{}, service.Pagination{Page: 2, Limit: math.MaxInt})
		require.NoError(t, err)
		assert.Empty(t, page.Data)
		assert.False(t, page.Meta.HasMore)

		page, err = f.query.ListTickets(ctx, service.TicketFilter{}, service.Pagination{Page: 1, Limit: math.MaxInt})
		require.NoError(t, err)
		assert.Len(t, page.Data, 2)
		assert.Equal(t, service.PageMeta{Total: 2, Limit: math.MaxInt, Offset: 0, HasMore: false}, page.Meta)
	})

	t.Run("limit zero returns everything", func(t *testing.T) {
		f := newFixture(t)
		owner := f.owners.Add("Ana", "ana@example.com")
		f.issueSpaced(t, owner, 10, 4)

		page, err := f.query.ListTickets(ctx, service.TicketFilter{}, service.Pagination{Page: 3, Limit: 0})
		require.NoError(t, err)
		assert.Len(t, page.Data, 4)
		assert.Equal(t, service.PageMeta{Total: 4, Limit: 0, Offset: 0, HasMore: false}, page.Meta)
	})

	t.Run("negative page and limit are clamped", func(t *testing.T) {
		f := newFixture(t)
		owner := f.owners.Add("Ana", "ana@example.com")
		f.issueSpaced(t, owner, 10, 3)

		page, err := f.query.ListTickets(ctx, service.TicketFilter{}, service.Pagination{Page: -4, Limit: -1})
		require.NoError(t, err)
		assert.Len(t, page.Data, 3)
		assert.Equal(t, 0, page.Meta.Offset)
		assert.Equal(t, 0, page.Meta.Limit)
	})

	t.Run("totals count only tickets passing owner filters", func(t *testing.T) {
		f := newFixture(t)
		alice := f.owners.Add("Alice Doe", "alice@uni.edu")
		bob := f.owners.Add("Bob Roe", "bob@uni.edu")
		f.issueSpaced(t, bob, 10, 4)
		want := f.issueSpaced(t, alice, 10, 3)
		f.issueSpaced(t, bob, 10, 4)

		filter := service.TicketFilter{OwnerNameContains: "ALI"}
		first, err := f.query.ListTickets(ctx, filter, service.Pagination{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{want[0].ID, want[1].ID}, ids(first.Data))
		assert.Equal(t, service.PageMeta{Total: 3, Limit: 2, Offset: 0, HasMore: true}, first.Meta)

		second, err := f.query.ListTickets(ctx, filter, service.Pagination{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{want[2].ID}, ids(second.Data))
		assert.Equal(t, service.PageMeta{Total: 3, Limit: 2, Offset: 2, HasMore: false}, second.Meta)
	})

	t.Run("name and email substrings must both match", func(t *testing.T) {
		f := newFixture(t)
		alice := f.owners.Add("Alice", "alice@uni.edu")
		alicia := f.owners.Add("Alicia", "alicia@corp.com")
		f.issue(t, alice, 10, 1)
		f.issue(t, alicia, 10, 2)

		page, err := f.query.ListTickets(ctx, service.TicketFilter{
			OwnerNameContains:  "ali",
			OwnerEmailContains: "CORP",
		}, service.Pagination{})
		require.NoError(t, err)
		require.Len(t, page.Data, 2)
		for _, v := range page.Data {
			assert.Equal(t, alicia.ID, v.OwnerID)
			assert.Equal(t, "alicia@corp.com", v.OwnerEmail)
		}
	})

	t.Run("owner id and status filters", func(t *testing.T) {
		f := newFixture(t)
		ana := f.owners.Add("Ana", "ana@example.com")
		bob := f.owners.Add("Bob", "bob@example.com")
		f.issueSpaced(t, ana, 10, 3)
		f.issueSpaced(t, bob, 10, 2)
		_, err := f.consumption.ConsumeOldest(ctx, ana.Email)
		require.NoError(t, err)

		page, err := f.query.ListTickets(ctx, service.TicketFilter{OwnerID: ana.ID, Status: "available"}, service.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Meta.Total)
		for _, v := range page.Data {
			assert.Equal(t, ana.ID, v.OwnerID)
			assert.Equal(t, domain.TicketStatusAvailable, v.Status)
		}
	})

	t.Run("unknown status is ignored", func(t *testing.T) {
		f := newFixture(t)
		owner := f.owners.Add("Ana", "ana@example.com")
		f.issueSpaced(t, owner, 10, 3)

		page, err := f.query.ListTickets(ctx, service.TicketFilter{Status: "Disponible"}, service.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Meta.Total)
	})

	t.Run("date-only bounds cover whole days", func(t *testing.T) {
		f := newFixture(t)
		owner := f.owners.Add("Ana", "ana@example.com")
		for _, at := range []time.Time{
			time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 1, 23, 59, 59, 999000, time.UTC),
			time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		} {
			f.clock.Set(at)
			f.issue(t, owner, 10, 1)
		}

		page, err := f.query.ListTickets(ctx, service.TicketFilter{From: "2024-03-01", To: "2024-03-01"}, service.Pagination{})
		require.NoError(t, err)
		require.Equal(t, 2, page.Meta.Total)
		assert.Equal(t, 1, page.Data[0].IssuedAt.Day())
		assert.Equal(t, 1, page.Data[1].IssuedAt.Day())
	})

	t.Run("timestamp bounds are used verbatim", func(t *testing.T) {
		f := newFixture(t)
		owner := f.owners.Add("Ana", "ana@example.com")
		f.issueSpaced(t, owner, 10, 3) // 12:00, 12:01, 12:02

		page, err := f.query.ListTickets(ctx, service.TicketFilter{From: "2024-03-01T12:01:00Z"}, service.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Meta.Total)
	})

	t.Run("inverted range fails before reading", func(t *testing.T) {
		f := newFixture(t)
		f.store.FindErr = errors.New("store must not be called")

		_, err := f.query.ListTickets(ctx, service.TicketFilter{From: "2024-03-02", To: "2024-03-01"}, service.Pagination{})
		require.Error(t, err)
		assert.ErrorIs(t, err, errorutil.ErrInvalidDateRange)
	})

	t.Run("unparseable date", func(t *testing.T) {
		f := newFixture(t)
		f.store.FindErr = errors.New("store must not be called")

		for _, filter := range []service.TicketFilter{{From: "yesterday"}, {To: "2024-13-45"}} {
			_, err := f.query.ListTickets(ctx, filter, service.Pagination{})
			assert.ErrorIs(t, err, errorutil.ErrInvalidDate)
		}
	})

	t.Run("tickets with unresolvable owners are dropped", func(t *testing.T) {
		f := newFixture(t)
		ana := f.owners.Add("Ana", "ana@example.com")
		gone := f.owners.Add("Gone", "gone@example.com")
		f.issue(t, ana, 10, 2)
		f.issue(t, gone, 10, 3)
		f.owners.Remove(gone.ID)

		page, err := f.query.ListTickets(ctx, service.TicketFilter{}, service.Pagination{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Meta.Total)
	})

	t.Run("owner lookups are memoized per call", func(t *testing.T) {
		f := newFixture(t)
		ana := f.owners.Add("Ana", "ana@example.com")
		bob := f.owners.Add("Bob", "bob@example.com")
		f.issue(t, ana, 10, 5)
		f.issue(t, bob, 10, 5)
		before := f.owners.Calls()

		_, err := f.query.ListTickets(ctx, service.TicketFilter{OwnerNameContains: "a"}, service.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, 2, f.owners.Calls()-before)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		f := newFixture(t)
		f.store.FindErr = errors.New("db down")

		_, err := f.query.ListTickets(ctx, service.TicketFilter{}, service.Pagination{})
		assert.ErrorIs(t, err, errorutil.ErrInternal)
	})
}

func TestQueryService_Location(t *testing.T) {
	loc, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)

	f := newFixture(t)
	q := service.NewQueryService(service.QueryDependencies{TicketStore: f.store, OwnerDirectory: f.owners, Location: loc})
	owner := f.owners.Add("Ana", "ana@example.com")

	// 2024-03-02 03:00 UTC is still 2024-03-01 in Bogota (UTC-5).
	f.clock.Set(time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC))
	f.issue(t, owner, 10, 1)

	page, err := q.ListTickets(context.Background(), service.TicketFilter{From: "2024-03-01", To: "2024-03-01"}, service.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Meta.Total)
}
