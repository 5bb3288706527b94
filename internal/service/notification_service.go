package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/servicefix/dispatch-bot/internal/events"
)

// Sender delivers outbound chat messages. The bot transport implements
// it; tests substitute a recorder.
type Sender interface {
	SendText(chatID int64, text string) error
	SendDocument(chatID int64, filename string, data []byte) error
}

// NotificationService turns domain events into chat messages: the admin
// hears about new registrations, technicians hear about approval and
// about jobs assigned to them.
type NotificationService struct {
	sender      Sender
	adminChatID int64
	logger      *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(sender Sender, adminChatID int64, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		sender:      sender,
		adminChatID: adminChatID,
		logger:      logger,
	}
}

// RegisterHandlers subscribes the notification handlers on the
// dispatcher.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTechnicianRegistered, s.onTechnicianRegistered)
	dispatcher.Subscribe(events.EventTechnicianApproved, s.onTechnicianApproved)
	dispatcher.Subscribe(events.EventTicketAssigned, s.onTicketAssigned)
}

func (s *NotificationService) onTechnicianRegistered(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TechnicianRegisteredPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf(
		"New technician registration pending approval:\nID: %d\nName: %s\nPhone: %s\nSkills: %s\n\nUse /approvetech %d to approve.",
		payload.TechnicianID, payload.Name, payload.Phone, payload.Skills, payload.TechnicianID,
	)
	if err := s.sender.SendText(s.adminChatID, text); err != nil {
		s.logger.Warn("failed to notify admin of registration",
			zap.Int64("technician_id", payload.TechnicianID), zap.Error(err))
	}
	return nil
}

func (s *NotificationService) onTechnicianApproved(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TechnicianApprovedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("Congratulations %s! Your technician account has been approved. You will now receive job assignments.", payload.Name)
	if err := s.sender.SendText(payload.TechnicianChatID, text); err != nil {
		s.logger.Warn("failed to notify technician of approval",
			zap.Int64("chat_id", payload.TechnicianChatID), zap.Error(err))
	}
	return nil
}

func (s *NotificationService) onTicketAssigned(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	location := payload.Location
	if location == "" {
		location = "Vizag"
	}
	preferred := payload.PreferredTime
	if preferred == "" {
		preferred = "Not Specified"
	}
	text := fmt.Sprintf(
		"New job assigned to you!\nTicket #%d\nAppliance: %s\nIssue: %s\nLocation: %s\nPreferred time: %s",
		payload.TicketID, payload.Appliance, payload.IssueSummary, location, preferred,
	)
	if err := s.sender.SendText(payload.TechnicianChatID, text); err != nil {
		s.logger.Warn("failed to notify technician of assignment",
			zap.Int64("ticket_id", payload.TicketID),
			zap.Int64("chat_id", payload.TechnicianChatID), zap.Error(err))
	}
	return nil
}
