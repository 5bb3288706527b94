package service

import (
	"context"
	"errors"

	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/events"
	"github.com/servicefix/dispatch-bot/internal/repository"
	apperrors "github.com/servicefix/dispatch-bot/pkg/util"
)

// DispatchService covers the admin side of the ticket lifecycle:
// assignment, reassignment, closing, and the city-filtered bulk forms.
type DispatchService struct {
	tickets     repository.TicketRepository
	technicians repository.TechnicianRepository
	dispatcher  events.Dispatcher
}

// DispatchDependencies bundles repositories.
type DispatchDependencies struct {
	TicketRepo     repository.TicketRepository
	TechnicianRepo repository.TechnicianRepository
	Dispatcher     events.Dispatcher
}

// NewDispatchService creates the service.
func NewDispatchService(deps DispatchDependencies) *DispatchService {
	return &DispatchService{
		tickets:     deps.TicketRepo,
		technicians: deps.TechnicianRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// EligibleTechnicians lists approved technicians in registration order,
// for the assignment menu.
func (s *DispatchService) EligibleTechnicians(ctx context.Context) ([]domain.Technician, error) {
	techs, err := s.technicians.ListByStatus(ctx, domain.TechnicianStatusApproved)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return techs, nil
}

// Assign binds an approved technician to a ticket and moves it to
// assigned. Assigning an unknown or unapproved technician is rejected.
func (s *DispatchService) Assign(ctx context.Context, ticketID, technicianID int64) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	tech, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return nil, apperrors.MapError(err)
	}
	if !tech.Approved() {
		return nil, apperrors.NewConflict("technician is not approved", map[string]any{"technician_id": technicianID})
	}
	if err := s.tickets.Assign(ctx, ticket.ID, tech.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Status = domain.TicketStatusAssigned
	ticket.TechnicianID = &tech.ID
	s.publishAssigned(ctx, ticket, tech)
	return ticket, nil
}

// Reassign moves a ticket to a different technician. It is an explicit
// admin override: the target only has to exist, not be approved, and any
// previous assignment is simply replaced.
func (s *DispatchService) Reassign(ctx context.Context, ticketID, technicianID int64) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	tech, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.tickets.Assign(ctx, ticket.ID, tech.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Status = domain.TicketStatusAssigned
	ticket.TechnicianID = &tech.ID
	s.publishAssigned(ctx, ticket, tech)
	return ticket, nil
}

// Close marks a ticket closed. Closing an already closed ticket is a
// no-op that still reports success.
func (s *DispatchService) Close(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return ticket, nil
	}
	if err := s.tickets.SetStatus(ctx, ticket.ID, domain.TicketStatusClosed); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Status = domain.TicketStatusClosed
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventTicketClosed, events.TicketClosedPayload{
		TicketID: ticket.ID,
	}))
	return ticket, nil
}

// BulkAssign assigns every new ticket whose city matches the substring
// to one technician. Tickets already assigned or closed are untouched.
// Returns the number of tickets updated. Bulk updates send no
// per-ticket notifications.
func (s *DispatchService) BulkAssign(ctx context.Context, city string, technicianID int64) (int, error) {
	tech, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return 0, apperrors.MapError(err)
	}
	if !tech.Approved() {
		return 0, apperrors.NewConflict("technician is not approved", map[string]any{"technician_id": technicianID})
	}
	tickets, err := s.tickets.ListByStatus(ctx, domain.TicketStatusNew, false)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	updated := 0
	for _, t := range tickets {
		if t.Location == "" || !domain.CityMatches(t.Location, city) {
			continue
		}
		if err := s.tickets.Assign(ctx, t.ID, tech.ID); err != nil {
			return updated, apperrors.MapError(err)
		}
		updated++
	}
	return updated, nil
}

// BulkClose closes every non-closed ticket whose city matches the
// substring. Returns the number of tickets updated.
func (s *DispatchService) BulkClose(ctx context.Context, city string) (int, error) {
	tickets, err := s.tickets.ListNotClosed(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	updated := 0
	for _, t := range tickets {
		if t.Location == "" || !domain.CityMatches(t.Location, city) {
			continue
		}
		if err := s.tickets.SetStatus(ctx, t.ID, domain.TicketStatusClosed); err != nil {
			return updated, apperrors.MapError(err)
		}
		updated++
	}
	return updated, nil
}

func (s *DispatchService) getTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *DispatchService) publishAssigned(ctx context.Context, ticket *domain.Ticket, tech *domain.Technician) {
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventTicketAssigned, events.TicketAssignedPayload{
		TicketID:         ticket.ID,
		TechnicianChatID: tech.ChatID,
		Appliance:        ticket.Appliance,
		IssueSummary:     ticket.IssueSummary,
		Location:         ticket.Location,
		PreferredTime:    ticket.PreferredTime,
	}))
}
