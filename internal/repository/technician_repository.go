package repository

import (
	"context"

	"zombiezen.com/go/sqlite"

	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/persistence"
)

const technicianColumns = "id, chat_id, name, phone, skills, status, created_at"

// TechnicianRepository encapsulates technician persistence.
type TechnicianRepository interface {
	Create(ctx context.Context, technician *domain.Technician) error
	GetByID(ctx context.Context, id int64) (*domain.Technician, error)
	GetByChatID(ctx context.Context, chatID int64) (*domain.Technician, error)
	ListAll(ctx context.Context) ([]domain.Technician, error)
	ListByStatus(ctx context.Context, status domain.TechnicianStatus) ([]domain.Technician, error)
	SetStatus(ctx context.Context, id int64, status domain.TechnicianStatus) error
	GrantAdmin(ctx context.Context, chatID int64, name, phone, skills string) error
}

type technicianRepository struct {
	store *persistence.Store
}

// NewTechnicianRepository instantiates repository.
func NewTechnicianRepository(store *persistence.Store) TechnicianRepository {
	return &technicianRepository{store: store}
}

// Create inserts a pending technician. A second registration for the
// same chat identity returns ErrDuplicate and leaves the first row
// untouched.
func (r *technicianRepository) Create(ctx context.Context, technician *domain.Technician) error {
	status := technician.Status
	if status == "" {
		status = domain.TechnicianStatusPending
	}
	id, err := r.store.Write(ctx,
		"INSERT INTO technicians (chat_id, name, phone, skills, status) VALUES (?, ?, ?, ?, ?)",
		technician.ChatID,
		technician.Name,
		technician.Phone,
		technician.Skills,
		string(status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	technician.ID = id
	technician.Status = status
	return nil
}

func (r *technicianRepository) GetByID(ctx context.Context, id int64) (*domain.Technician, error) {
	return r.fetchSingle(ctx, "SELECT "+technicianColumns+" FROM technicians WHERE id = ?", id)
}

func (r *technicianRepository) GetByChatID(ctx context.Context, chatID int64) (*domain.Technician, error) {
	return r.fetchSingle(ctx, "SELECT "+technicianColumns+" FROM technicians WHERE chat_id = ?", chatID)
}

func (r *technicianRepository) ListAll(ctx context.Context) ([]domain.Technician, error) {
	return r.fetchMany(ctx, "SELECT "+technicianColumns+" FROM technicians ORDER BY created_at DESC, id DESC")
}

// ListByStatus returns technicians oldest first, the order assignment
// menus present them in.
func (r *technicianRepository) ListByStatus(ctx context.Context, status domain.TechnicianStatus) ([]domain.Technician, error) {
	return r.fetchMany(ctx,
		"SELECT "+technicianColumns+" FROM technicians WHERE status = ? ORDER BY created_at ASC, id ASC",
		string(status))
}

func (r *technicianRepository) SetStatus(ctx context.Context, id int64, status domain.TechnicianStatus) error {
	_, err := r.store.Write(ctx,
		"UPDATE technicians SET status = ? WHERE id = ?", string(status), id)
	return err
}

// GrantAdmin seeds or promotes the row for an out-of-band admin grant.
// Safe to repeat.
func (r *technicianRepository) GrantAdmin(ctx context.Context, chatID int64, name, phone, skills string) error {
	_, err := r.store.Write(ctx,
		"INSERT OR IGNORE INTO technicians (chat_id, name, phone, skills, status) VALUES (?, ?, ?, ?, ?)",
		chatID, name, phone, skills, string(domain.TechnicianStatusAdmin))
	if err != nil {
		return err
	}
	_, err = r.store.Write(ctx,
		"UPDATE technicians SET status = ? WHERE chat_id = ?",
		string(domain.TechnicianStatusAdmin), chatID)
	return err
}

func (r *technicianRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Technician, error) {
	var technician domain.Technician
	found, err := r.store.ReadOne(ctx, query, func(stmt *sqlite.Stmt) error {
		scanTechnician(stmt, &technician)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &technician, nil
}

func (r *technicianRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.Technician, error) {
	var technicians []domain.Technician
	err := r.store.ReadAll(ctx, query, func(stmt *sqlite.Stmt) error {
		var technician domain.Technician
		scanTechnician(stmt, &technician)
		technicians = append(technicians, technician)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	return technicians, nil
}

func scanTechnician(stmt *sqlite.Stmt, technician *domain.Technician) {
	technician.ID = stmt.ColumnInt64(0)
	technician.ChatID = stmt.ColumnInt64(1)
	technician.Name = stmt.ColumnText(2)
	technician.Phone = stmt.ColumnText(3)
	technician.Skills = stmt.ColumnText(4)
	technician.Status = domain.TechnicianStatus(stmt.ColumnText(5))
	technician.CreatedAt = parseTime(stmt.ColumnText(6))
}
