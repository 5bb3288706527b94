package service_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/servicefix/dispatch-bot/internal/config"
	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/events"
	"github.com/servicefix/dispatch-bot/internal/persistence"
	"github.com/servicefix/dispatch-bot/internal/repository"
	"github.com/servicefix/dispatch-bot/internal/service"
)

type fixture struct {
	tickets     repository.TicketRepository
	technicians repository.TechnicianRepository
	feedback    repository.FeedbackRepository
	dispatcher  events.Dispatcher

	ticketSvc     *service.TicketService
	technicianSvc *service.TechnicianService
	dispatchSvc   *service.DispatchService
	exportSvc     *service.ExportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := persistence.Open(config.StoreConfig{
		Path:     filepath.Join(t.TempDir(), "service.db"),
		PoolSize: 2,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		tickets:     repository.NewTicketRepository(store),
		technicians: repository.NewTechnicianRepository(store),
		feedback:    repository.NewFeedbackRepository(store),
		dispatcher:  events.NewInMemoryDispatcher(),
	}
	f.ticketSvc = service.NewTicketService(service.TicketDependencies{
		TicketRepo:     f.tickets,
		TechnicianRepo: f.technicians,
		FeedbackRepo:   f.feedback,
		Dispatcher:     f.dispatcher,
	})
	f.technicianSvc = service.NewTechnicianService(service.TechnicianDependencies{
		TechnicianRepo: f.technicians,
		Dispatcher:     f.dispatcher,
	})
	f.dispatchSvc = service.NewDispatchService(service.DispatchDependencies{
		TicketRepo:     f.tickets,
		TechnicianRepo: f.technicians,
		Dispatcher:     f.dispatcher,
	})
	f.exportSvc = service.NewExportService(service.ExportDependencies{
		TicketRepo:     f.tickets,
		TechnicianRepo: f.technicians,
	})
	return f
}

func (f *fixture) newTicket(t *testing.T, chatID int64, location string) *domain.Ticket {
	t.Helper()
	ticket, err := f.ticketSvc.CreateTicket(context.Background(), &domain.Ticket{
		ChatID:         chatID,
		Appliance:      "AC",
		IssueSummary:   "No Cooling",
		Location:       location,
		RawProblemText: "blows warm air",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	return ticket
}

func (f *fixture) approvedTech(t *testing.T, chatID int64, name string) *domain.Technician {
	t.Helper()
	ctx := context.Background()
	tech, err := f.technicianSvc.Register(ctx, &domain.Technician{
		ChatID: chatID,
		Name:   name,
		Phone:  "9999999999",
		Skills: "AC, Fridge",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := f.technicianSvc.Approve(ctx, tech.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	tech.Status = domain.TechnicianStatusApproved
	return tech
}

func TestCreateTicketStartsUnassigned(t *testing.T) {
	f := newFixture(t)
	stale := int64(99)
	ticket, err := f.ticketSvc.CreateTicket(context.Background(), &domain.Ticket{
		ChatID:       700,
		Appliance:    "Fridge",
		IssueSummary: "Not Cooling",
		Status:       domain.TicketStatusClosed,
		TechnicianID: &stale,
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.Status != domain.TicketStatusNew {
		t.Errorf("status = %q, want new", ticket.Status)
	}
	if ticket.TechnicianID != nil {
		t.Errorf("technician id = %v, want nil", *ticket.TechnicianID)
	}
}

func TestStatusForRequesterScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")

	if _, err := f.ticketSvc.StatusForRequester(ctx, ticket.ID, 700); err != nil {
		t.Fatalf("owner status check: %v", err)
	}
	if _, err := f.ticketSvc.StatusForRequester(ctx, ticket.ID, 701); err == nil {
		t.Fatal("foreign chat id read another requester's ticket")
	}
}

func TestStatusIncludesTechnicianContact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")
	tech := f.approvedTech(t, 800, "Ravi")

	if _, err := f.dispatchSvc.Assign(ctx, ticket.ID, tech.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	report, err := f.ticketSvc.StatusForRequester(ctx, ticket.ID, 700)
	if err != nil {
		t.Fatalf("StatusForRequester: %v", err)
	}
	if report.Ticket.Status != domain.TicketStatusAssigned {
		t.Errorf("status = %q, want assigned", report.Ticket.Status)
	}
	if report.TechnicianName != "Ravi" || report.TechnicianPhone != "9999999999" {
		t.Errorf("technician contact = %q / %q", report.TechnicianName, report.TechnicianPhone)
	}
}

func TestAssignRejectsPendingTechnician(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")
	pending, err := f.technicianSvc.Register(ctx, &domain.Technician{
		ChatID: 801, Name: "Suresh", Phone: "8888888888", Skills: "AC",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := f.dispatchSvc.Assign(ctx, ticket.ID, pending.ID); err == nil {
		t.Fatal("assigned a pending technician")
	}
	got, err := f.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.TicketStatusNew || got.TechnicianID != nil {
		t.Errorf("ticket changed by rejected assignment: %+v", got)
	}
}

func TestReassignReplacesTechnician(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")
	first := f.approvedTech(t, 800, "Ravi")
	second := f.approvedTech(t, 801, "Suresh")

	if _, err := f.dispatchSvc.Assign(ctx, ticket.ID, first.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := f.dispatchSvc.Reassign(ctx, ticket.ID, second.ID); err != nil {
		t.Fatalf("Reassign: %v", err)
	}

	firstJobs, err := f.ticketSvc.JobsFor(ctx, 800)
	if err != nil {
		t.Fatalf("JobsFor(first): %v", err)
	}
	if len(firstJobs) != 0 {
		t.Errorf("first technician still holds %d jobs", len(firstJobs))
	}
	secondJobs, err := f.ticketSvc.JobsFor(ctx, 801)
	if err != nil {
		t.Fatalf("JobsFor(second): %v", err)
	}
	if len(secondJobs) != 1 || secondJobs[0].ID != ticket.ID {
		t.Errorf("second technician jobs = %+v", secondJobs)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")

	if _, err := f.dispatchSvc.Close(ctx, ticket.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	closed, err := f.dispatchSvc.Close(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Errorf("status = %q, want closed", closed.Status)
	}
}

func TestJobsForRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.ticketSvc.JobsFor(ctx, 999); err == nil {
		t.Fatal("unregistered chat listed jobs")
	}
	if _, err := f.technicianSvc.Register(ctx, &domain.Technician{
		ChatID: 999, Name: "Pending", Phone: "7777777777", Skills: "AC",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := f.ticketSvc.JobsFor(ctx, 999); err == nil {
		t.Fatal("pending technician listed jobs")
	}
}

func TestRegisterDuplicateChatRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.technicianSvc.Register(ctx, &domain.Technician{
		ChatID: 800, Name: "Ravi", Phone: "9999999999", Skills: "AC",
	}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := f.technicianSvc.Register(ctx, &domain.Technician{
		ChatID: 800, Name: "Other", Phone: "1111111111", Skills: "Fridge",
	}); err == nil {
		t.Fatal("second registration for same chat succeeded")
	}
}

func TestBulkCloseMatchesCityOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")
	f.newTicket(t, 701, "Visakhapatnam, Andhra Pradesh")
	spared := f.newTicket(t, 702, "Vijayawada, Andhra Pradesh")

	count, err := f.dispatchSvc.BulkClose(ctx, "visakhapatnam")
	if err != nil {
		t.Fatalf("BulkClose: %v", err)
	}
	if count != 2 {
		t.Errorf("closed %d tickets, want 2", count)
	}
	got, err := f.tickets.GetByID(ctx, spared.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.TicketStatusNew {
		t.Errorf("other city's ticket closed: %q", got.Status)
	}
}

func TestBulkAssignOnlyNewTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tech := f.approvedTech(t, 800, "Ravi")
	other := f.approvedTech(t, 801, "Suresh")

	fresh := f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")
	taken := f.newTicket(t, 701, "Visakhapatnam, Andhra Pradesh")
	if _, err := f.dispatchSvc.Assign(ctx, taken.ID, other.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	done := f.newTicket(t, 702, "Visakhapatnam, Andhra Pradesh")
	if _, err := f.dispatchSvc.Close(ctx, done.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}

	count, err := f.dispatchSvc.BulkAssign(ctx, "visakhapatnam", tech.ID)
	if err != nil {
		t.Fatalf("BulkAssign: %v", err)
	}
	if count != 1 {
		t.Errorf("assigned %d tickets, want 1", count)
	}
	got, err := f.tickets.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TechnicianID == nil || *got.TechnicianID != tech.ID {
		t.Errorf("new ticket not assigned to %d: %+v", tech.ID, got)
	}
	still, err := f.tickets.GetByID(ctx, taken.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if still.TechnicianID == nil || *still.TechnicianID != other.ID {
		t.Errorf("already assigned ticket was rewritten: %+v", still)
	}
}

func TestFeedbackOnlyForOwnClosedTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")

	if _, err := f.ticketSvc.SubmitFeedback(ctx, 700, ticket.ID, 5, "great"); err == nil {
		t.Fatal("feedback accepted for an open ticket")
	}
	if _, err := f.dispatchSvc.Close(ctx, ticket.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := f.ticketSvc.SubmitFeedback(ctx, 701, ticket.ID, 5, "great"); err == nil {
		t.Fatal("feedback accepted from a foreign chat")
	}
	fb, err := f.ticketSvc.SubmitFeedback(ctx, 700, ticket.ID, 4, "quick fix")
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if fb.Rating != 4 {
		t.Errorf("rating = %d, want 4", fb.Rating)
	}
}

func TestSearchAndLocationQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")
	f.newTicket(t, 701, "Hyderabad, Telangana")

	byKeyword, err := f.ticketSvc.Search(ctx, "warm air")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(byKeyword) != 2 {
		t.Errorf("keyword search found %d tickets, want 2", len(byKeyword))
	}

	byCity, err := f.ticketSvc.ByCity(ctx, "hyderabad")
	if err != nil {
		t.Fatalf("ByCity: %v", err)
	}
	if len(byCity) != 1 || byCity[0].Ticket.ChatID != 701 {
		t.Errorf("city search = %+v", byCity)
	}

	byState, err := f.ticketSvc.ByState(ctx, "andhra")
	if err != nil {
		t.Fatalf("ByState: %v", err)
	}
	if len(byState) != 1 || byState[0].Ticket.ChatID != 700 {
		t.Errorf("state search = %+v", byState)
	}
}

func TestOverviewCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tech := f.approvedTech(t, 800, "Ravi")
	a := f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")
	f.newTicket(t, 701, "Visakhapatnam, Andhra Pradesh")
	b := f.newTicket(t, 702, "Hyderabad, Telangana")
	if _, err := f.dispatchSvc.Assign(ctx, a.ID, tech.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := f.dispatchSvc.Close(ctx, b.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}

	stats, err := f.ticketSvc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if stats.TotalTickets != 3 || stats.OpenTickets != 2 || stats.ClosedTickets != 1 {
		t.Errorf("ticket counts = %+v", stats)
	}
	if stats.AssignedTickets != 1 {
		t.Errorf("assigned = %d, want 1", stats.AssignedTickets)
	}
	if stats.ApprovedTechs != 1 || stats.PendingTechs != 0 {
		t.Errorf("tech counts = %+v", stats)
	}
	if len(stats.TopCities) == 0 || stats.TopCities[0].Label != "Visakhapatnam" || stats.TopCities[0].Count != 2 {
		t.Errorf("top cities = %+v", stats.TopCities)
	}
}

func TestExportTicketsCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.newTicket(t, 700, "Visakhapatnam, Andhra Pradesh")

	data, err := f.exportSvc.ExportTickets(ctx)
	if err != nil {
		t.Fatalf("ExportTickets: %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "id,chat_id,appliance") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "No Cooling") || !strings.Contains(out, "\"Visakhapatnam, Andhra Pradesh\"") {
		t.Errorf("missing ticket row data: %q", out)
	}
}
