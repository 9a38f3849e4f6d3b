package service

import "github.com/spec-kit/meal-tickets/internal/domain"

// TicketView is a ticket enriched with its owner's contact fields.
type TicketView struct {
	domain.Ticket
	OwnerName  string
	OwnerEmail string
}

func newTicketView(t domain.Ticket, owner domain.Owner) TicketView {
	return TicketView{Ticket: t, OwnerName: owner.Name, OwnerEmail: owner.Email}
}

// PageMeta describes a page of the post-filter result set.
type PageMeta struct {
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

// TicketPage is one page of listed tickets.
type TicketPage struct {
	Data []TicketView
	Meta PageMeta
}
