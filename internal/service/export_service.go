package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"github.com/servicefix/dispatch-bot/internal/repository"
	apperrors "github.com/servicefix/dispatch-bot/pkg/util"
)

const (
	TicketExportFilename     = "tickets_export.csv"
	TechnicianExportFilename = "technicians_export.csv"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportService renders the ticket and technician tables as CSV
// documents for the admin export commands.
type ExportService struct {
	tickets     repository.TicketRepository
	technicians repository.TechnicianRepository
}

// ExportDependencies bundles repositories.
type ExportDependencies struct {
	TicketRepo     repository.TicketRepository
	TechnicianRepo repository.TechnicianRepository
}

// NewExportService creates the service.
func NewExportService(deps ExportDependencies) *ExportService {
	return &ExportService{
		tickets:     deps.TicketRepo,
		technicians: deps.TechnicianRepo,
	}
}

// ExportTickets writes every ticket to CSV, header row first, columns
// in table order.
func (s *ExportService) ExportTickets(ctx context.Context) ([]byte, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "chat_id", "appliance", "issue_summary", "location", "preferred_time", "raw_problem_text", "status", "technician_id", "created_at"}); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	for _, t := range tickets {
		techID := ""
		if t.TechnicianID != nil {
			techID = strconv.FormatInt(*t.TechnicianID, 10)
		}
		record := []string{
			strconv.FormatInt(t.ID, 10),
			strconv.FormatInt(t.ChatID, 10),
			t.Appliance,
			t.IssueSummary,
			t.Location,
			t.PreferredTime,
			t.RawProblemText,
			string(t.Status),
			techID,
			t.CreatedAt.Format(exportTimeLayout),
		}
		if err := w.Write(record); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

// ExportTechnicians writes every technician to CSV.
func (s *ExportService) ExportTechnicians(ctx context.Context) ([]byte, error) {
	technicians, err := s.technicians.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "chat_id", "name", "phone", "skills", "status", "created_at"}); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	for _, tech := range technicians {
		record := []string{
			strconv.FormatInt(tech.ID, 10),
			strconv.FormatInt(tech.ChatID, 10),
			tech.Name,
			tech.Phone,
			tech.Skills,
			string(tech.Status),
			tech.CreatedAt.Format(exportTimeLayout),
		}
		if err := w.Write(record); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return buf.Bytes(), nil
}
