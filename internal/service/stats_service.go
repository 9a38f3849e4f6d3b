package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/internal/repository"
	"github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

// StatsService aggregates counts and revenue over filtered tickets.
type StatsService struct {
	tickets  repository.TicketStore
	owners   repository.OwnerDirectory
	location *time.Location
}

// StatsDependencies bundles collaborators for the stats service.
type StatsDependencies struct {
	TicketStore    repository.TicketStore
	OwnerDirectory repository.OwnerDirectory
	Location       *time.Location
}

// NewStatsService constructs the service.
func NewStatsService(deps StatsDependencies) *StatsService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{tickets: deps.TicketStore, owners: deps.OwnerDirectory, location: loc}
}

// ComputeStats aggregates the filtered population; no match yields zeros.
//
// When both owner name and email substrings are given a ticket qualifies if
// its owner matches either one. Without owner-attribute filters the
// aggregate runs in the store.
func (s *StatsService) ComputeStats(ctx context.Context, filter StatsFilter) (domain.TicketStats, error) {
	pred, err := issuedRange(filter.From, filter.To, s.location)
	if err != nil {
		return domain.TicketStats{}, err
	}
	pred.OwnerID = stringPtr(filter.OwnerID)

	name := strings.TrimSpace(filter.OwnerNameContains)
	email := strings.TrimSpace(filter.OwnerEmailContains)

	if name == "" && email == "" {
		stats, err := s.tickets.Summarize(ctx, pred)
		if err != nil {
			return domain.TicketStats{}, errorutil.NewInternalError(err)
		}
		return stats, nil
	}

	candidates, err := s.tickets.FindMatching(ctx, pred)
	if err != nil {
		return domain.TicketStats{}, errorutil.NewInternalError(err)
	}

	stats := domain.TicketStats{TotalRevenue: decimal.Zero}
	owners := newOwnerCache(s.owners)
	for _, t := range candidates {
		owner, err := owners.resolve(ctx, t.OwnerID)
		if err != nil {
			return domain.TicketStats{}, errorutil.NewInternalError(err)
		}
		if owner == nil {
			continue
		}
		if (name != "" && containsFold(owner.Name, name)) || (email != "" && containsFold(owner.Email, email)) {
			stats.Add(t)
		}
	}
	return stats, nil
}
