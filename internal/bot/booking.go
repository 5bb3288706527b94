package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/match"
)

const (
	cityPrompt      = "Please enter your city (district) name:"
	complaintPrompt = "Now, please describe your problem or select a complaint category:"
	problemPrompt   = "Please describe your problem in detail (optional, or type /skip):"
)

func (b *Bot) startBooking(chatID int64) {
	b.conversations.begin(chatID, convBooking, stateAwaitingAppliance)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 2)
	appliances := b.directory.Appliances
	for i := 0; i < len(appliances); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(appliances[i], appliances[i]),
		}
		if i+1 < len(appliances) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(appliances[i+1], appliances[i+1]))
		}
		rows = append(rows, row)
	}
	b.sendMenu(chatID, "Great! Which appliance needs service?", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) bookingText(ctx context.Context, chatID int64, conv *conversation, text string) {
	if text == "" {
		return
	}
	switch conv.state {
	case stateAwaitingCity:
		b.bookingCityInput(chatID, conv, text)
	case stateAwaitingComplaint:
		b.bookingComplaintInput(chatID, conv, text)
	case stateAwaitingProblem:
		b.finishBooking(ctx, chatID, conv, text)
	}
}

func (b *Bot) bookingCallback(ctx context.Context, chatID int64, messageID int, conv *conversation, action callbackAction) {
	switch conv.state {
	case stateAwaitingAppliance:
		if action.Kind != callbackLabel || !b.validAppliance(action.Label) {
			return
		}
		conv.booking.Appliance = action.Label
		conv.state = stateAwaitingCity
		b.editMessage(chatID, messageID, cityPrompt)

	case stateAwaitingCity:
		switch action.Kind {
		case callbackFreeTextCity:
			conv.booking.Location = conv.booking.CityFreeText
			conv.state = stateAwaitingComplaint
			b.editMessage(chatID, messageID, fmt.Sprintf("City set as: %s\n%s", conv.booking.Location, complaintPrompt))
		case callbackLabel:
			district, ok := b.directory.DistrictByLabel(action.Label)
			if !ok {
				return
			}
			conv.booking.Location = district.StoredLocation()
			conv.state = stateAwaitingComplaint
			b.editMessage(chatID, messageID, fmt.Sprintf("City set as: %s (%s)\n%s", district.Name, district.State, complaintPrompt))
		}

	case stateAwaitingComplaint:
		switch action.Kind {
		case callbackFreeTextComplaint:
			conv.booking.Complaint = conv.booking.ComplaintFreeText
			conv.state = stateAwaitingProblem
			b.editMessage(chatID, messageID, fmt.Sprintf("Complaint set as: %s\n%s", conv.booking.Complaint, problemPrompt))
		case callbackLabel:
			conv.booking.Complaint = action.Label
			conv.state = stateAwaitingProblem
			b.editMessage(chatID, messageID, fmt.Sprintf("Complaint set as: %s\n%s", action.Label, problemPrompt))
		}
	}
}

// bookingCityInput fuzzy-matches the typed city. With suggestions the
// state holds until the user picks one or opts out; without any, the
// raw text is committed as the location.
func (b *Bot) bookingCityInput(chatID int64, conv *conversation, text string) {
	suggestions := match.Top(text, b.directory.CityCandidates(), match.DefaultLimit, match.DefaultCutoff)
	if len(suggestions) == 0 {
		conv.booking.Location = text
		conv.state = stateAwaitingComplaint
		b.reply(chatID, complaintPrompt)
		return
	}
	conv.booking.CityFreeText = text
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(suggestions)+1)
	for _, s := range suggestions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(s.Label, s.Label)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("My city is not listed", dataFreeTextCity)))
	b.sendMenu(chatID,
		"Did you mean one of these? Please select or choose 'My city is not listed' to enter manually:",
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) bookingComplaintInput(chatID int64, conv *conversation, text string) {
	candidates := b.directory.ComplaintCandidates(conv.booking.Appliance)
	suggestions := match.Top(text, candidates, match.DefaultLimit, match.DefaultCutoff)
	if len(suggestions) == 0 {
		conv.booking.Complaint = text
		conv.state = stateAwaitingProblem
		b.reply(chatID, problemPrompt)
		return
	}
	conv.booking.ComplaintFreeText = text
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(suggestions)+1)
	for _, s := range suggestions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(s.Label, s.Label)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("My complaint is not listed", dataFreeTextComplaint)))
	b.sendMenu(chatID,
		"Did you mean one of these? Please select or choose 'My complaint is not listed' to enter manually:",
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) finishBooking(ctx context.Context, chatID int64, conv *conversation, problemText string) {
	ticket, err := b.tickets.CreateTicket(ctx, &domain.Ticket{
		ChatID:         chatID,
		Appliance:      conv.booking.Appliance,
		IssueSummary:   conv.booking.Complaint,
		Location:       conv.booking.Location,
		RawProblemText: problemText,
	})
	b.conversations.end(chatID)
	if err != nil {
		b.replyError(chatID, "book", err)
		return
	}
	b.reply(chatID, fmt.Sprintf(
		"Thanks! Your request has been logged. Your ticket ID is #%d.\n"+
			"A technician will contact you shortly. You can use /status to check your ticket status.",
		ticket.ID))
}

func (b *Bot) validAppliance(label string) bool {
	for _, a := range b.directory.Appliances {
		if a == label {
			return true
		}
	}
	return false
}
