package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/servicefix/dispatch-bot/internal/config"
	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/persistence"
	"github.com/servicefix/dispatch-bot/internal/repository"
)

func openTestStore(t *testing.T) *persistence.Store {
	t.Helper()
	store, err := persistence.Open(config.StoreConfig{
		Path:     filepath.Join(t.TempDir(), "repo.db"),
		PoolSize: 2,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestTicketCreateAndGet(t *testing.T) {
	store := openTestStore(t)
	tickets := repository.NewTicketRepository(store)
	ctx := context.Background()

	ticket := &domain.Ticket{
		ChatID:         500,
		Appliance:      "AC",
		IssueSummary:   "No Cooling",
		Location:       "Visakhapatnam, Andhra Pradesh",
		RawProblemText: "unit blows warm air",
	}
	if err := tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ticket.ID == 0 {
		t.Fatal("Create did not set ticket id")
	}
	if ticket.Status != domain.TicketStatusNew {
		t.Errorf("status = %q, want new", ticket.Status)
	}

	got, err := tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Appliance != "AC" || got.IssueSummary != "No Cooling" ||
		got.Location != "Visakhapatnam, Andhra Pradesh" || got.RawProblemText != "unit blows warm air" {
		t.Errorf("round-tripped ticket = %+v", got)
	}
	if got.TechnicianID != nil {
		t.Errorf("new ticket has technician reference %d", *got.TechnicianID)
	}
}

func TestTicketRequesterScope(t *testing.T) {
	store := openTestStore(t)
	tickets := repository.NewTicketRepository(store)
	ctx := context.Background()

	ticket := &domain.Ticket{ChatID: 111, Appliance: "Fridge"}
	if err := tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := tickets.GetForRequester(ctx, ticket.ID, 111); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	_, err := tickets.GetForRequester(ctx, ticket.ID, 222)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("foreign requester lookup err = %v, want ErrNotFound", err)
	}
}

func TestTicketAssignAndStatus(t *testing.T) {
	store := openTestStore(t)
	tickets := repository.NewTicketRepository(store)
	ctx := context.Background()

	ticket := &domain.Ticket{ChatID: 1, Appliance: "AC"}
	if err := tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := tickets.Assign(ctx, ticket.ID, 9); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	got, err := tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.TicketStatusAssigned || got.TechnicianID == nil || *got.TechnicianID != 9 {
		t.Errorf("after assign: status=%q technician=%v", got.Status, got.TechnicianID)
	}

	if err := tickets.SetStatus(ctx, ticket.ID, domain.TicketStatusClosed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, err = tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.TicketStatusClosed {
		t.Errorf("after close: status=%q", got.Status)
	}
}

func TestTechnicianDuplicateChatID(t *testing.T) {
	store := openTestStore(t)
	technicians := repository.NewTechnicianRepository(store)
	ctx := context.Background()

	first := &domain.Technician{ChatID: 42, Name: "Raju", Phone: "9876543210", Skills: "AC, Fridge"}
	if err := technicians.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Status != domain.TechnicianStatusPending {
		t.Errorf("status = %q, want pending", first.Status)
	}

	second := &domain.Technician{ChatID: 42, Name: "Someone Else", Phone: "0000000000"}
	err := technicians.Create(ctx, second)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate create err = %v, want ErrDuplicate", err)
	}

	all, err := technicians.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 || all[0].Name != "Raju" {
		t.Errorf("after duplicate attempt: %+v", all)
	}
}

func TestTechnicianStatusTransitions(t *testing.T) {
	store := openTestStore(t)
	technicians := repository.NewTechnicianRepository(store)
	ctx := context.Background()

	tech := &domain.Technician{ChatID: 7, Name: "Lakshmi", Phone: "9000000000", Skills: "Washing Machine"}
	if err := technicians.Create(ctx, tech); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := technicians.SetStatus(ctx, tech.ID, domain.TechnicianStatusApproved); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	approved, err := technicians.ListByStatus(ctx, domain.TechnicianStatusApproved)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != tech.ID {
		t.Errorf("approved list = %+v", approved)
	}
	pending, err := technicians.ListByStatus(ctx, domain.TechnicianStatusPending)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending list = %+v, want empty", pending)
	}
}

func TestGrantAdminIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	technicians := repository.NewTechnicianRepository(store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := technicians.GrantAdmin(ctx, 99, "AdminUser", "0000000000", "n/a"); err != nil {
			t.Fatalf("GrantAdmin run %d: %v", i, err)
		}
	}

	tech, err := technicians.GetByChatID(ctx, 99)
	if err != nil {
		t.Fatalf("GetByChatID: %v", err)
	}
	if tech.Status != domain.TechnicianStatusAdmin {
		t.Errorf("status = %q, want admin", tech.Status)
	}
	all, err := technicians.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("rows = %d, want 1", len(all))
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	store := openTestStore(t)
	tickets := repository.NewTicketRepository(store)
	feedbacks := repository.NewFeedbackRepository(store)
	ctx := context.Background()

	ticket := &domain.Ticket{ChatID: 3, Appliance: "AC"}
	if err := tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("Create ticket: %v", err)
	}

	fb := &domain.Feedback{TicketID: ticket.ID, Rating: 4, Comment: "quick fix"}
	if err := feedbacks.Create(ctx, fb); err != nil {
		t.Fatalf("Create feedback: %v", err)
	}

	got, err := feedbacks.GetByTicketID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetByTicketID: %v", err)
	}
	if got.Rating != 4 || got.Comment != "quick fix" {
		t.Errorf("feedback = %+v", got)
	}

	_, err = feedbacks.GetByTicketID(ctx, ticket.ID+100)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing feedback err = %v, want ErrNotFound", err)
	}
}
