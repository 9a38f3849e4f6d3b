package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/internal/service"
)

// CreateTicketsRequest payload. Price accepts a JSON number or numeric string.
type CreateTicketsRequest struct {
	OwnerID  string           `json:"owner_id"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *int             `json:"quantity"`
}

// ConsumeTicketRequest payload.
type ConsumeTicketRequest struct {
	Email string `json:"email"`
}

// OwnerSummary is the owner block embedded in ticket responses.
type OwnerSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TicketResponse represents a ticket with its owner.
type TicketResponse struct {
	ID       string              `json:"id"`
	OwnerID  string              `json:"owner_id"`
	Price    json.Number         `json:"price"`
	Status   domain.TicketStatus `json:"status"`
	IssuedAt time.Time           `json:"issued_at"`
	UsedAt   *time.Time          `json:"used_at"`
	Owner    OwnerSummary        `json:"owner"`
}

// CreateTicketsResponse lists the tickets created by one request.
type CreateTicketsResponse struct {
	Message string           `json:"message,omitempty"`
	Tickets []TicketResponse `json:"tickets"`
}

// ConsumeTicketResponse returns the claimed ticket.
type ConsumeTicketResponse struct {
	Message string         `json:"message"`
	Ticket  TicketResponse `json:"ticket"`
}

// PageMeta describes pagination over the filtered set.
type PageMeta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// TicketListResponse is one page of tickets.
type TicketListResponse struct {
	Data []TicketResponse `json:"data"`
	Meta PageMeta         `json:"meta"`
}

// TicketStatsResponse aggregates a filtered population.
type TicketStatsResponse struct {
	TotalTickets   int64       `json:"total_tickets"`
	TotalRevenue   json.Number `json:"total_revenue"`
	AvailableCount int64       `json:"available_count"`
	UsedCount      int64       `json:"used_count"`
}

// Money renders an amount as a JSON number with two decimals.
func Money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func NewTicketResponse(v service.TicketView) TicketResponse {
	return TicketResponse{
		ID:       v.ID,
		OwnerID:  v.OwnerID,
		Price:    Money(v.Price),
		Status:   v.Status,
		IssuedAt: v.IssuedAt,
		UsedAt:   v.UsedAt,
		Owner:    OwnerSummary{Name: v.OwnerName, Email: v.OwnerEmail},
	}
}

func NewTicketResponses(views []service.TicketView) []TicketResponse {
	out := make([]TicketResponse, 0, len(views))
	for _, v := range views {
		out = append(out, NewTicketResponse(v))
	}
	return out
}

func NewTicketListResponse(page service.TicketPage) TicketListResponse {
	return TicketListResponse{
		Data: NewTicketResponses(page.Data),
		Meta: PageMeta{
			Total:   page.Meta.Total,
			Limit:   page.Meta.Limit,
			Offset:  page.Meta.Offset,
			HasMore: page.Meta.HasMore,
		},
	}
}

func NewTicketStatsResponse(s domain.TicketStats) TicketStatsResponse {
	return TicketStatsResponse{
		TotalTickets:   s.TotalTickets,
		TotalRevenue:   Money(s.TotalRevenue),
		AvailableCount: s.AvailableCount,
		UsedCount:      s.UsedCount,
	}
}
