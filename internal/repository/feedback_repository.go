package repository

import (
	"context"

	"zombiezen.com/go/sqlite"

	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/persistence"
)

const feedbackColumns = "id, ticket_id, rating, comment, created_at"

// FeedbackRepository encapsulates feedback persistence.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.Feedback) error
	GetByTicketID(ctx context.Context, ticketID int64) (*domain.Feedback, error)
	ListAll(ctx context.Context) ([]domain.Feedback, error)
}

type feedbackRepository struct {
	store *persistence.Store
}

// NewFeedbackRepository instantiates repository.
func NewFeedbackRepository(store *persistence.Store) FeedbackRepository {
	return &feedbackRepository{store: store}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *domain.Feedback) error {
	id, err := r.store.Write(ctx,
		"INSERT INTO feedback (ticket_id, rating, comment) VALUES (?, ?, ?)",
		feedback.TicketID, feedback.Rating, feedback.Comment)
	if err != nil {
		return err
	}
	feedback.ID = id
	return nil
}

func (r *feedbackRepository) GetByTicketID(ctx context.Context, ticketID int64) (*domain.Feedback, error) {
	var feedback domain.Feedback
	found, err := r.store.ReadOne(ctx,
		"SELECT "+feedbackColumns+" FROM feedback WHERE ticket_id = ?",
		func(stmt *sqlite.Stmt) error {
			scanFeedback(stmt, &feedback)
			return nil
		}, ticketID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &feedback, nil
}

func (r *feedbackRepository) ListAll(ctx context.Context) ([]domain.Feedback, error) {
	var feedbacks []domain.Feedback
	err := r.store.ReadAll(ctx,
		"SELECT "+feedbackColumns+" FROM feedback ORDER BY created_at DESC, id DESC",
		func(stmt *sqlite.Stmt) error {
			var feedback domain.Feedback
			scanFeedback(stmt, &feedback)
			feedbacks = append(feedbacks, feedback)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return feedbacks, nil
}

func scanFeedback(stmt *sqlite.Stmt, feedback *domain.Feedback) {
	feedback.ID = stmt.ColumnInt64(0)
	feedback.TicketID = stmt.ColumnInt64(1)
	feedback.Rating = stmt.ColumnInt(2)
	feedback.Comment = stmt.ColumnText(3)
	feedback.CreatedAt = parseTime(stmt.ColumnText(4))
}
