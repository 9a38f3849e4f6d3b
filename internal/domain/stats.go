package domain

import "github.com/shopspring/decimal"

// TicketStats aggregates a filtered ticket population.
type TicketStats struct {
	TotalTickets   int64
	TotalRevenue   decimal.Decimal
	AvailableCount int64
	UsedCount      int64
}

// Add folds t into the aggregate.
func (s *TicketStats) Add(t Ticket) {
	s.TotalTickets++
	switch t.Status {
	case TicketStatusAvailable:
		s.AvailableCount++
	case TicketStatusUsed:
		s.UsedCount++
		s.TotalRevenue = s.TotalRevenue.Add(t.Price)
	}
}
