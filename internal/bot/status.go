package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/servicefix/dispatch-bot/pkg/util"
)

func (b *Bot) startStatusCheck(chatID int64) {
	b.conversations.begin(chatID, convStatusCheck, stateAwaitingTicketID)
	b.reply(chatID, "Please enter your Ticket ID to check its status.")
}

// statusText resolves the requester's own ticket. Non-numeric input
// re-prompts; an unknown or foreign ticket id ends the flow with an
// apology, without revealing whether the id exists.
func (b *Bot) statusText(ctx context.Context, chatID int64, text string) {
	ticketID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		b.reply(chatID, "That doesn't look like a valid Ticket ID. Please enter a number.")
		return
	}

	report, err := b.tickets.StatusForRequester(ctx, ticketID, chatID)
	if err != nil {
		b.conversations.end(chatID)
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "NOT_FOUND" {
			b.reply(chatID, "Sorry, I couldn't find a ticket with that ID for your account.")
			return
		}
		b.replyError(chatID, "status", err)
		return
	}
	b.conversations.end(chatID)

	text = fmt.Sprintf("Status for Ticket #%d: %s", report.Ticket.ID, strings.ToUpper(string(report.Ticket.Status)))
	if report.TechnicianName != "" {
		text += fmt.Sprintf("\n\nAssigned to: %s\nContact: %s", report.TechnicianName, report.TechnicianPhone)
	}
	b.reply(chatID, text)
}

func (b *Bot) myJobs(ctx context.Context, chatID int64) {
	jobs, err := b.tickets.JobsFor(ctx, chatID)
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "FORBIDDEN" {
			b.reply(chatID, "This command is only for approved technicians.")
			return
		}
		b.replyError(chatID, "myjobs", err)
		return
	}
	if len(jobs) == 0 {
		b.reply(chatID, "You have no new jobs assigned.")
		return
	}
	b.reply(chatID, "Here are your assigned jobs:")
	for i := range jobs {
		b.sendHTML(chatID, jobText(&jobs[i]))
	}
}
