package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/meal-tickets/internal/repository"
	"github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

// QueryService lists tickets joined with their owners.
type QueryService struct {
	tickets  repository.TicketStore
	owners   repository.OwnerDirectory
	location *time.Location
}

// QueryDependencies bundles collaborators for the query service.
type QueryDependencies struct {
	TicketStore    repository.TicketStore
	OwnerDirectory repository.OwnerDirectory
	// Location expands date-only bounds; defaults to UTC.
	Location *time.Location
}

// NewQueryService constructs the service.
func NewQueryService(deps QueryDependencies) *QueryService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &QueryService{tickets: deps.TicketStore, owners: deps.OwnerDirectory, location: loc}
}

// ListTickets returns one page of tickets matching filter.
//
// Owner name and email are not ticket columns, so every ticket matching the
// store-side filters is loaded and joined against the directory before
// paging. Cost is O(matching tickets) in memory and O(distinct owners) in
// directory lookups. Tickets whose owner cannot be resolved are dropped, and
// total and has-more describe the joined set.
func (s *QueryService) ListTickets(ctx context.Context, filter TicketFilter, page Pagination) (TicketPage, error) {
	pred, err := issuedRange(filter.From, filter.To, s.location)
	if err != nil {
		return TicketPage{}, err
	}
	pred.Status = statusPtr(filter.Status)
	pred.OwnerID = stringPtr(filter.OwnerID)

	candidates, err := s.tickets.FindMatching(ctx, pred)
	if err != nil {
		return TicketPage{}, errorutil.NewInternalError(err)
	}

	name := strings.TrimSpace(filter.OwnerNameContains)
	email := strings.TrimSpace(filter.OwnerEmailContains)
	owners := newOwnerCache(s.owners)

	matched := make([]TicketView, 0, len(candidates))
	for _, t := range candidates {
		owner, err := owners.resolve(ctx, t.OwnerID)
		if err != nil {
			return TicketPage{}, errorutil.NewInternalError(err)
		}
		if owner == nil {
			continue
		}
		if name != "" && !containsFold(owner.Name, name) {
			continue
		}
		if email != "" && !containsFold(owner.Email, email) {
			continue
		}
		matched = append(matched, newTicketView(t, *owner))
	}

	return paginate(matched, page.normalized()), nil
}

func paginate(all []TicketView, p Pagination) TicketPage {
	total := len(all)
	offset := p.offset()
	meta := PageMeta{Total: total, Limit: p.Limit, Offset: offset}

	if p.Limit == 0 {
		return TicketPage{Data: all, Meta: meta}
	}
	if offset >= total {
		return TicketPage{Data: []TicketView{}, Meta: meta}
	}
	end := total
	if p.Limit < total-offset {
		end = offset + p.Limit
		meta.HasMore = true
	}
	return TicketPage{Data: all[offset:end], Meta: meta}
}
