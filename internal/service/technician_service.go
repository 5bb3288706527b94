package service

import (
	"context"
	"errors"

	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/events"
	"github.com/servicefix/dispatch-bot/internal/repository"
	apperrors "github.com/servicefix/dispatch-bot/pkg/util"
)

// TechnicianService handles technician registration and approval.
type TechnicianService struct {
	technicians repository.TechnicianRepository
	dispatcher  events.Dispatcher
}

// TechnicianDependencies bundles repositories.
type TechnicianDependencies struct {
	TechnicianRepo repository.TechnicianRepository
	Dispatcher     events.Dispatcher
}

// NewTechnicianService creates the service.
func NewTechnicianService(deps TechnicianDependencies) *TechnicianService {
	return &TechnicianService{
		technicians: deps.TechnicianRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// Register records a new pending technician. A chat identity may hold at
// most one profile; a repeat registration is rejected without touching
// the existing row.
func (s *TechnicianService) Register(ctx context.Context, technician *domain.Technician) (*domain.Technician, error) {
	technician.Status = domain.TechnicianStatusPending
	if err := s.technicians.Create(ctx, technician); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("technician already registered", map[string]any{"chat_id": technician.ChatID})
		}
		return nil, apperrors.MapError(err)
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventTechnicianRegistered, events.TechnicianRegisteredPayload{
		TechnicianID: technician.ID,
		Name:         technician.Name,
		Phone:        technician.Phone,
		Skills:       technician.Skills,
	}))
	return technician, nil
}

// Approve moves a technician from pending to approved. Approving an
// already approved technician is a no-op.
func (s *TechnicianService) Approve(ctx context.Context, technicianID int64) (*domain.Technician, error) {
	tech, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return nil, apperrors.MapError(err)
	}
	if tech.Approved() {
		return tech, nil
	}
	if err := s.technicians.SetStatus(ctx, tech.ID, domain.TechnicianStatusApproved); err != nil {
		return nil, apperrors.MapError(err)
	}
	tech.Status = domain.TechnicianStatusApproved
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventTechnicianApproved, events.TechnicianApprovedPayload{
		TechnicianChatID: tech.ChatID,
		Name:             tech.Name,
	}))
	return tech, nil
}

// Pending lists technicians awaiting approval, registration order.
func (s *TechnicianService) Pending(ctx context.Context) ([]domain.Technician, error) {
	techs, err := s.technicians.ListByStatus(ctx, domain.TechnicianStatusPending)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return techs, nil
}

// All lists every technician, newest first.
func (s *TechnicianService) All(ctx context.Context) ([]domain.Technician, error) {
	techs, err := s.technicians.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return techs, nil
}

// ByChatID resolves the technician profile bound to a chat identity.
func (s *TechnicianService) ByChatID(ctx context.Context, chatID int64) (*domain.Technician, error) {
	tech, err := s.technicians.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"chat_id": chatID})
		}
		return nil, apperrors.MapError(err)
	}
	return tech, nil
}
