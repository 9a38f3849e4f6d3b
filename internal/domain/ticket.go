package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "AVAILABLE"
	TicketStatusUsed      TicketStatus = "USED"
	TicketStatusVoided    TicketStatus = "VOIDED"
)

// ParseTicketStatus returns the status matching s, case-insensitively.
func ParseTicketStatus(s string) (TicketStatus, bool) {
	switch TicketStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case TicketStatusAvailable:
		return TicketStatusAvailable, true
	case TicketStatusUsed:
		return TicketStatusUsed, true
	case TicketStatusVoided:
		return TicketStatusVoided, true
	}
	return "", false
}

// Terminal reports whether no transition leaves s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusUsed || s == TicketStatusVoided
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to TicketStatus) bool {
	return from == TicketStatusAvailable && to.Terminal()
}

// Ticket is a single-use voucher bound to an owner.
type Ticket struct {
	ID       string
	OwnerID  string
	Price    decimal.Decimal
	Status   TicketStatus
	IssuedAt time.Time
	UsedAt   *time.Time
}

// Consistent reports whether UsedAt is set exactly when the ticket is used.
func (t Ticket) Consistent() bool {
	return (t.Status == TicketStatusUsed) == (t.UsedAt != nil)
}
