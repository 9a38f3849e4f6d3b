package service

import (
	"math"
	"strings"
	"time"

	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/internal/repository"
	"github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

const dateOnlyLayout = "2006-01-02"

// TicketFilter enumerates the recognized listing filters. Empty fields do not
// constrain. From and To accept YYYY-MM-DD or RFC3339.
type TicketFilter struct {
	From               string
	To                 string
	Status             string
	OwnerID            string
	OwnerNameContains  string
	OwnerEmailContains string
}

// StatsFilter is the stats filter surface; it has no status.
type StatsFilter struct {
	From               string
	To                 string
	OwnerID            string
	OwnerNameContains  string
	OwnerEmailContains string
}

// Pagination is 1-indexed. Limit 0 means no cap.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) normalized() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 0 {
		p.Limit = 0
	}
	return p
}

// offset is (page-1)*limit, saturating at math.MaxInt; with no cap every page
// starts at zero.
func (p Pagination) offset() int {
	if p.Limit == 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// issuedRange parses the bounds into a predicate. Date-only bounds expand to
// the start and end of that day in loc; timestamps are used as given.
func issuedRange(from, to string, loc *time.Location) (repository.TicketPredicate, error) {
	var pred repository.TicketPredicate
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)

	var fromRaw, toRaw time.Time
	if from != "" {
		t, dateOnly, err := parseBound(from, loc)
		if err != nil {
			return pred, errorutil.NewInvalidDate("from", from)
		}
		fromRaw = t
		pred.IssuedFrom = &t
		if dateOnly {
			start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
			pred.IssuedFrom = &start
		}
	}
	if to != "" {
		t, dateOnly, err := parseBound(to, loc)
		if err != nil {
			return pred, errorutil.NewInvalidDate("to", to)
		}
		toRaw = t
		pred.IssuedTo = &t
		if dateOnly {
			end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Microsecond), loc)
			pred.IssuedTo = &end
		}
	}
	if from != "" && to != "" && fromRaw.After(toRaw) {
		return repository.TicketPredicate{}, errorutil.NewInvalidDateRange(from, to)
	}
	return pred, nil
}

func parseBound(value string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.ParseInLocation(dateOnlyLayout, value, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	return t, false, err
}

func statusPtr(raw string) *domain.TicketStatus {
	status, ok := domain.ParseTicketStatus(raw)
	if !ok {
		return nil
	}
	return &status
}

func stringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
