package domain

import "time"

// TicketStatus enumerates lifecycle states for service tickets.
type TicketStatus string

const (
	TicketStatusNew      TicketStatus = "new"
	TicketStatusAssigned TicketStatus = "assigned"
	TicketStatusClosed   TicketStatus = "closed"
)

// Ticket is the aggregate for customer service requests. TechnicianID is
// nil until the ticket is assigned.
type Ticket struct {
	ID             int64
	ChatID         int64
	Appliance      string
	IssueSummary   string
	Location       string
	PreferredTime  string
	RawProblemText string
	Status         TicketStatus
	TechnicianID   *int64
	CreatedAt      time.Time
}

// Assigned reports whether the ticket carries a technician reference.
func (t *Ticket) Assigned() bool {
	return t.TechnicianID != nil
}
