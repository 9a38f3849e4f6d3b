package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/meal-tickets/internal/clock"
	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/internal/events"
	"github.com/spec-kit/meal-tickets/internal/service"
	"github.com/spec-kit/meal-tickets/internal/testutil"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store       *testutil.MemoryTicketStore
	owners      *testutil.MemoryOwnerDirectory
	clock       *clock.Fixed
	dispatcher  events.Dispatcher
	issuance    *service.IssuanceService
	consumption *service.ConsumptionService
	query       *service.QueryService
	stats       *service.StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      testutil.NewMemoryTicketStore(),
		owners:     testutil.NewMemoryOwnerDirectory(),
		clock:      clock.NewFixed(baseTime),
		dispatcher: events.NewInMemoryDispatcher(),
	}
	f.issuance = service.NewIssuanceService(service.IssuanceDependencies{
		TicketStore:    f.store,
		OwnerDirectory: f.owners,
		Dispatcher:     f.dispatcher,
		Clock:          f.clock,
	})
	f.consumption = service.NewConsumptionService(service.ConsumptionDependencies{
		TicketStore:    f.store,
		OwnerDirectory: f.owners,
		Dispatcher:     f.dispatcher,
		Clock:          f.clock,
	})
	f.query = service.NewQueryService(service.QueryDependencies{TicketStore: f.store, OwnerDirectory: f.owners})
	f.stats = service.NewStatsService(service.StatsDependencies{TicketStore: f.store, OwnerDirectory: f.owners})
	return f
}

// issue creates quantity tickets for owner at the current clock time.
func (f *fixture) issue(t *testing.T, owner domain.Owner, price int64, quantity int) []service.TicketView {
	t.Helper()
	views, err := f.issuance.CreateTickets(context.Background(), owner.ID, decimal.NewFromInt(price), quantity)
	require.NoError(t, err)
	require.Len(t, views, quantity)
	return views
}

// issueSpaced creates n single tickets one minute apart.
func (f *fixture) issueSpaced(t *testing.T, owner domain.Owner, price int64, n int) []service.TicketView {
	t.Helper()
	var out []service.TicketView
	for i := 0; i < n; i++ {
		out = append(out, f.issue(t, owner, price, 1)...)
		f.clock.Advance(time.Minute)
	}
	return out
}

func ids(views []service.TicketView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}
