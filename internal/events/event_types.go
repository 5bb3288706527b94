package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated        EventType = "ticket_created"
	EventTicketAssigned       EventType = "ticket_assigned"
	EventTicketClosed         EventType = "ticket_closed"
	EventTechnicianRegistered EventType = "technician_registered"
	EventTechnicianApproved   EventType = "technician_approved"
	EventFeedbackReceived     EventType = "feedback_received"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Payload   interface{}
}

// TicketCreatedPayload carries the new ticket's identity.
type TicketCreatedPayload struct {
	TicketID int64
	ChatID   int64
}

// TicketAssignedPayload carries everything the technician notification
// needs, so subscribers do not have to read the store again.
type TicketAssignedPayload struct {
	TicketID         int64
	TechnicianChatID int64
	Appliance        string
	IssueSummary     string
	Location         string
	PreferredTime    string
}

// TicketClosedPayload identifies the closed ticket.
type TicketClosedPayload struct {
	TicketID int64
}

// TechnicianRegisteredPayload describes a new pending registration.
type TechnicianRegisteredPayload struct {
	TechnicianID int64
	Name         string
	Phone        string
	Skills       string
}

// TechnicianApprovedPayload identifies the approved technician.
type TechnicianApprovedPayload struct {
	TechnicianChatID int64
	Name             string
}

// FeedbackReceivedPayload describes a submitted rating.
type FeedbackReceivedPayload struct {
	TicketID int64
	Rating   int
}
