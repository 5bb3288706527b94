package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/servicefix/dispatch-bot/internal/events"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(events.EventTicketAssigned, func(_ context.Context, e events.Event) error {
		calls = append(calls, "first")
		return errors.New("handler failure")
	})
	d.Subscribe(events.EventTicketAssigned, func(_ context.Context, e events.Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(events.EventTicketClosed, func(_ context.Context, e events.Event) error {
		calls = append(calls, "wrong type")
		return nil
	})

	err := d.Publish(context.Background(), events.NewEvent(events.EventTicketAssigned, events.TicketAssignedPayload{TicketID: 1}))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("calls = %v", calls)
	}
}

func TestNewEventStampsIdentity(t *testing.T) {
	a := events.NewEvent(events.EventTicketCreated, nil)
	b := events.NewEvent(events.EventTicketCreated, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("event ids not unique: %q %q", a.ID, b.ID)
	}
	if a.Type != events.EventTicketCreated {
		t.Errorf("type = %q", a.Type)
	}
	if a.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}
