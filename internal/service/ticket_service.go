package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/events"
	"github.com/servicefix/dispatch-bot/internal/repository"
	apperrors "github.com/servicefix/dispatch-bot/pkg/util"
)

// TicketService handles ticket creation, customer status checks, and the
// administrator's read-side queries.
type TicketService struct {
	tickets     repository.TicketRepository
	technicians repository.TechnicianRepository
	feedback    repository.FeedbackRepository
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles repositories.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	TechnicianRepo repository.TechnicianRepository
	FeedbackRepo   repository.FeedbackRepository
	Dispatcher     events.Dispatcher
}

// NewTicketService creates the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		technicians: deps.TechnicianRepo,
		feedback:    deps.FeedbackRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateTicket persists the outcome of a completed booking conversation.
// The ticket starts as status new with no technician reference.
func (s *TicketService) CreateTicket(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	ticket.Status = domain.TicketStatusNew
	ticket.TechnicianID = nil
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventTicketCreated, events.TicketCreatedPayload{
		TicketID: ticket.ID,
		ChatID:   ticket.ChatID,
	}))
	return ticket, nil
}

// StatusReport is what a requester sees for their own ticket.
type StatusReport struct {
	Ticket          *domain.Ticket
	TechnicianName  string
	TechnicianPhone string
}

// StatusForRequester looks up a ticket by id scoped to the requester's
// own chat identity; a valid id belonging to someone else reads as not
// found. When the ticket is assigned, the technician's name and contact
// are included.
func (s *TicketService) StatusForRequester(ctx context.Context, ticketID, chatID int64) (*StatusReport, error) {
	ticket, err := s.tickets.GetForRequester(ctx, ticketID, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	report := &StatusReport{Ticket: ticket}
	if ticket.Status == domain.TicketStatusAssigned && ticket.TechnicianID != nil {
		tech, err := s.technicians.GetByID(ctx, *ticket.TechnicianID)
		if err == nil {
			report.TechnicianName = tech.Name
			report.TechnicianPhone = tech.Phone
		}
	}
	return report, nil
}

// JobsFor returns the assigned tickets for an approved technician's chat
// identity. Unregistered or unapproved callers are rejected.
func (s *TicketService) JobsFor(ctx context.Context, chatID int64) ([]domain.Ticket, error) {
	tech, err := s.technicians.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewForbidden("only approved technicians may list jobs")
		}
		return nil, apperrors.MapError(err)
	}
	if !tech.Approved() {
		return nil, apperrors.NewForbidden("only approved technicians may list jobs")
	}
	jobs, err := s.tickets.ListAssignedTo(ctx, tech.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return jobs, nil
}

// TicketDetails is the admin view of one ticket with its optional
// technician and feedback.
type TicketDetails struct {
	Ticket     *domain.Ticket
	Technician *domain.Technician
	Feedback   *domain.Feedback
}

// Details returns one ticket with its technician resolved.
func (s *TicketService) Details(ctx context.Context, ticketID int64) (*TicketDetails, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	details := &TicketDetails{Ticket: ticket}
	if ticket.TechnicianID != nil {
		if tech, err := s.technicians.GetByID(ctx, *ticket.TechnicianID); err == nil {
			details.Technician = tech
		}
	}
	if fb, err := s.feedback.GetByTicketID(ctx, ticketID); err == nil {
		details.Feedback = fb
	}
	return details, nil
}

// ListAll returns every ticket, newest first.
func (s *TicketService) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.ListAll(ctx)
}

// ListByStatus returns tickets in one status, newest first.
func (s *TicketService) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return s.tickets.ListByStatus(ctx, status, true)
}

// NewTicketQueue returns unassigned tickets oldest first, the order the
// assignment panel works through them.
func (s *TicketService) NewTicketQueue(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.ListByStatus(ctx, domain.TicketStatusNew, false)
}

// History returns every ticket a requester has opened, newest first,
// with feedback attached where present.
func (s *TicketService) History(ctx context.Context, chatID int64) ([]TicketDetails, error) {
	tickets, err := s.tickets.ListByRequester(ctx, chatID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.decorate(ctx, tickets), nil
}

// Search scans appliance, summary, location, and problem text for the
// keyword, case-insensitively.
func (s *TicketService) Search(ctx context.Context, keyword string) ([]TicketDetails, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil, apperrors.NewValidationError("search keyword required", nil)
	}
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	var found []domain.Ticket
	for _, t := range tickets {
		haystack := strings.ToLower(strings.Join([]string{
			t.Appliance, t.IssueSummary, t.Location, t.RawProblemText,
		}, "\n"))
		if strings.Contains(haystack, keyword) {
			found = append(found, t)
		}
	}
	return s.decorate(ctx, found), nil
}

// ByCity returns tickets whose location's city component contains the
// substring.
func (s *TicketService) ByCity(ctx context.Context, city string) ([]TicketDetails, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	var found []domain.Ticket
	for _, t := range tickets {
		if t.Location != "" && domain.CityMatches(t.Location, city) {
			found = append(found, t)
		}
	}
	return s.decorate(ctx, found), nil
}

// ByState returns tickets whose location's state component contains the
// substring. Locations without a state component never match.
func (s *TicketService) ByState(ctx context.Context, state string) ([]TicketDetails, error) {
	state = strings.ToLower(strings.TrimSpace(state))
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	var found []domain.Ticket
	for _, t := range tickets {
		_, ticketState := domain.SplitLocation(t.Location)
		if ticketState != "" && state != "" && strings.Contains(strings.ToLower(ticketState), state) {
			found = append(found, t)
		}
	}
	return s.decorate(ctx, found), nil
}

// ByDate returns tickets created on a YYYY-MM-DD date.
func (s *TicketService) ByDate(ctx context.Context, date string) ([]TicketDetails, error) {
	tickets, err := s.tickets.ListByDate(ctx, date)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.decorate(ctx, tickets), nil
}

// CountEntry pairs a label with an occurrence count.
type CountEntry struct {
	Label string
	Count int
}

// Stats summarizes the ticket and technician tables.
type Stats struct {
	TotalTickets    int
	OpenTickets     int
	ClosedTickets   int
	AssignedTickets int
	PendingTechs    int
	ApprovedTechs   int
	TopCities       []CountEntry
	TopStates       []CountEntry
}

// Overview computes the admin stats report.
func (s *TicketService) Overview(ctx context.Context) (*Stats, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	technicians, err := s.technicians.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	stats := &Stats{TotalTickets: len(tickets)}
	cities := make(map[string]int)
	states := make(map[string]int)
	cityOrder := []string{}
	stateOrder := []string{}
	for _, t := range tickets {
		if t.Status == domain.TicketStatusClosed {
			stats.ClosedTickets++
		} else {
			stats.OpenTickets++
		}
		if t.TechnicianID != nil {
			stats.AssignedTickets++
		}
		if t.Location == "" {
			continue
		}
		city, state := domain.SplitLocation(t.Location)
		if _, seen := cities[city]; !seen {
			cityOrder = append(cityOrder, city)
		}
		cities[city]++
		if state != "" {
			if _, seen := states[state]; !seen {
				stateOrder = append(stateOrder, state)
			}
			states[state]++
		}
	}
	for _, tech := range technicians {
		switch tech.Status {
		case domain.TechnicianStatusPending:
			stats.PendingTechs++
		case domain.TechnicianStatusApproved:
			stats.ApprovedTechs++
		}
	}
	stats.TopCities = topCounts(cities, cityOrder, 3)
	stats.TopStates = topCounts(states, stateOrder, 3)
	return stats, nil
}

// TechnicianCount pairs a technician with a closed-ticket tally.
type TechnicianCount struct {
	Name   string
	TechID int64
	Count  int
}

// TopTechnicians ranks technicians by closed tickets, top five.
func (s *TicketService) TopTechnicians(ctx context.Context) ([]TechnicianCount, error) {
	closed, err := s.tickets.ListByStatus(ctx, domain.TicketStatusClosed, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	counts := make(map[int64]int)
	order := []int64{}
	for _, t := range closed {
		if t.TechnicianID == nil {
			continue
		}
		if _, seen := counts[*t.TechnicianID]; !seen {
			order = append(order, *t.TechnicianID)
		}
		counts[*t.TechnicianID]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > 5 {
		order = order[:5]
	}

	var ranked []TechnicianCount
	for _, techID := range order {
		entry := TechnicianCount{TechID: techID, Count: counts[techID]}
		if tech, err := s.technicians.GetByID(ctx, techID); err == nil {
			entry.Name = tech.Name
		}
		ranked = append(ranked, entry)
	}
	return ranked, nil
}

// FeedbackView joins a feedback row with its ticket.
type FeedbackView struct {
	Feedback domain.Feedback
	Ticket   *domain.Ticket
}

// AllFeedback lists every feedback record with its ticket resolved.
func (s *TicketService) AllFeedback(ctx context.Context) ([]FeedbackView, error) {
	feedbacks, err := s.feedback.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]FeedbackView, 0, len(feedbacks))
	for _, fb := range feedbacks {
		view := FeedbackView{Feedback: fb}
		if ticket, err := s.tickets.GetByID(ctx, fb.TicketID); err == nil {
			view.Ticket = ticket
		}
		views = append(views, view)
	}
	return views, nil
}

// FeedbackForTicket returns the rating attached to one ticket.
func (s *TicketService) FeedbackForTicket(ctx context.Context, ticketID int64) (*FeedbackView, error) {
	fb, err := s.feedback.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("feedback", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	view := &FeedbackView{Feedback: *fb}
	if ticket, err := s.tickets.GetByID(ctx, fb.TicketID); err == nil {
		view.Ticket = ticket
	}
	return view, nil
}

// SubmitFeedback attaches a rating to one of the requester's own closed
// tickets.
func (s *TicketService) SubmitFeedback(ctx context.Context, chatID, ticketID int64, rating int, comment string) (*domain.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", nil)
	}
	ticket, err := s.tickets.GetForRequester(ctx, ticketID, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("feedback is only accepted for closed tickets", nil)
	}
	fb := &domain.Feedback{TicketID: ticket.ID, Rating: rating, Comment: comment}
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, apperrors.MapError(err)
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventFeedbackReceived, events.FeedbackReceivedPayload{
		TicketID: ticket.ID,
		Rating:   rating,
	}))
	return fb, nil
}

func (s *TicketService) decorate(ctx context.Context, tickets []domain.Ticket) []TicketDetails {
	details := make([]TicketDetails, 0, len(tickets))
	for i := range tickets {
		d := TicketDetails{Ticket: &tickets[i]}
		if tickets[i].TechnicianID != nil {
			if tech, err := s.technicians.GetByID(ctx, *tickets[i].TechnicianID); err == nil {
				d.Technician = tech
			}
		}
		details = append(details, d)
	}
	return details
}

func topCounts(counts map[string]int, order []string, limit int) []CountEntry {
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	entries := make([]CountEntry, 0, len(order))
	for _, label := range order {
		entries = append(entries, CountEntry{Label: label, Count: counts[label]})
	}
	return entries
}
