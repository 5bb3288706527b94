package repository

import (
	"context"

	"zombiezen.com/go/sqlite"

	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/persistence"
)

const ticketColumns = "id, chat_id, appliance, issue_summary, location, preferred_time, raw_problem_text, status, technician_id, created_at"

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetForRequester(ctx context.Context, id, chatID int64) (*domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus, newestFirst bool) ([]domain.Ticket, error)
	ListNotClosed(ctx context.Context) ([]domain.Ticket, error)
	ListByRequester(ctx context.Context, chatID int64) ([]domain.Ticket, error)
	ListAssignedTo(ctx context.Context, technicianID int64) ([]domain.Ticket, error)
	ListByDate(ctx context.Context, date string) ([]domain.Ticket, error)
	Assign(ctx context.Context, ticketID, technicianID int64) error
	SetStatus(ctx context.Context, ticketID int64, status domain.TicketStatus) error
}

type ticketRepository struct {
	store *persistence.Store
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(store *persistence.Store) TicketRepository {
	return &ticketRepository{store: store}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const stmt = `
        INSERT INTO tickets (chat_id, appliance, issue_summary, location, preferred_time, raw_problem_text, status)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	status := ticket.Status
	if status == "" {
		status = domain.TicketStatusNew
	}
	id, err := r.store.Write(ctx, stmt,
		ticket.ChatID,
		ticket.Appliance,
		ticket.IssueSummary,
		ticket.Location,
		nullableText(ticket.PreferredTime),
		ticket.RawProblemText,
		string(status),
	)
	if err != nil {
		return err
	}
	ticket.ID = id
	ticket.Status = status
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE id = ?", id)
}

// GetForRequester only returns the ticket when it belongs to the given
// chat identity; a valid id from another requester reads as not found.
func (r *ticketRepository) GetForRequester(ctx context.Context, id, chatID int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE id = ? AND chat_id = ?", id, chatID)
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	return r.fetchMany(ctx, "SELECT "+ticketColumns+" FROM tickets ORDER BY created_at DESC, id DESC")
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus, newestFirst bool) ([]domain.Ticket, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	query := "SELECT " + ticketColumns + " FROM tickets WHERE status = ? ORDER BY created_at " + order + ", id " + order
	return r.fetchMany(ctx, query, string(status))
}

func (r *ticketRepository) ListNotClosed(ctx context.Context) ([]domain.Ticket, error) {
	return r.fetchMany(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE status != ? ORDER BY created_at ASC, id ASC",
		string(domain.TicketStatusClosed))
}

func (r *ticketRepository) ListByRequester(ctx context.Context, chatID int64) ([]domain.Ticket, error) {
	return r.fetchMany(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE chat_id = ? ORDER BY created_at DESC, id DESC", chatID)
}

func (r *ticketRepository) ListAssignedTo(ctx context.Context, technicianID int64) ([]domain.Ticket, error) {
	return r.fetchMany(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE technician_id = ? AND status = ? ORDER BY created_at ASC, id ASC",
		technicianID, string(domain.TicketStatusAssigned))
}

func (r *ticketRepository) ListByDate(ctx context.Context, date string) ([]domain.Ticket, error) {
	return r.fetchMany(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE date(created_at) = ? ORDER BY created_at DESC, id DESC", date)
}

func (r *ticketRepository) Assign(ctx context.Context, ticketID, technicianID int64) error {
	_, err := r.store.Write(ctx,
		"UPDATE tickets SET technician_id = ?, status = ? WHERE id = ?",
		technicianID, string(domain.TicketStatusAssigned), ticketID)
	return err
}

func (r *ticketRepository) SetStatus(ctx context.Context, ticketID int64, status domain.TicketStatus) error {
	_, err := r.store.Write(ctx,
		"UPDATE tickets SET status = ? WHERE id = ?", string(status), ticketID)
	return err
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	found, err := r.store.ReadOne(ctx, query, func(stmt *sqlite.Stmt) error {
		scanTicket(stmt, &ticket)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (r *ticketRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := r.store.ReadAll(ctx, query, func(stmt *sqlite.Stmt) error {
		var ticket domain.Ticket
		scanTicket(stmt, &ticket)
		tickets = append(tickets, ticket)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func scanTicket(stmt *sqlite.Stmt, ticket *domain.Ticket) {
	ticket.ID = stmt.ColumnInt64(0)
	ticket.ChatID = stmt.ColumnInt64(1)
	ticket.Appliance = stmt.ColumnText(2)
	ticket.IssueSummary = stmt.ColumnText(3)
	ticket.Location = stmt.ColumnText(4)
	ticket.PreferredTime = stmt.ColumnText(5)
	ticket.RawProblemText = stmt.ColumnText(6)
	ticket.Status = domain.TicketStatus(stmt.ColumnText(7))
	if techID := stmt.ColumnInt64(8); techID != 0 {
		ticket.TechnicianID = &techID
	} else {
		ticket.TechnicianID = nil
	}
	ticket.CreatedAt = parseTime(stmt.ColumnText(9))
}

// nullableText maps an empty string to NULL so optional columns stay
// NULL instead of empty text.
func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
