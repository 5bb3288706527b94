package domain

import "time"

// Feedback is an optional rating attached to a closed ticket.
type Feedback struct {
	ID        int64
	TicketID  int64
	Rating    int
	Comment   string
	CreatedAt time.Time
}
