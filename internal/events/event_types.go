package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketsIssued  EventType = "tickets_issued"
	EventTicketConsumed EventType = "ticket_consumed"
)

// Event represents a domain event emitted by services after a committed write.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketsIssuedPayload payload.
type TicketsIssuedPayload struct {
	TicketIDs []string        `json:"ticket_ids"`
	Price     decimal.Decimal `json:"price"`
	IssuedAt  time.Time       `json:"issued_at"`
}

// TicketConsumedPayload payload.
type TicketConsumedPayload struct {
	TicketID string          `json:"ticket_id"`
	Price    decimal.Decimal `json:"price"`
	IssuedAt time.Time       `json:"issued_at"`
	UsedAt   time.Time       `json:"used_at"`
}
