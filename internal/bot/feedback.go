package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) startFeedback(chatID int64) {
	b.conversations.begin(chatID, convFeedback, stateAwaitingFeedbackTicket)
	b.reply(chatID, "Which ticket would you like to rate? Please enter the Ticket ID.")
}

func (b *Bot) feedbackText(ctx context.Context, chatID int64, conv *conversation, text string) {
	switch conv.state {
	case stateAwaitingFeedbackTicket:
		ticketID, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			b.reply(chatID, "That doesn't look like a valid Ticket ID. Please enter a number.")
			return
		}
		conv.feedback.TicketID = ticketID
		conv.state = stateAwaitingRating
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, 1)
		row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
		for rating := 1; rating <= 5; rating++ {
			label := strconv.Itoa(rating)
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label+"⭐", rateData(rating)))
		}
		rows = append(rows, row)
		b.sendMenu(chatID, "How would you rate the service? (1-5)", tgbotapi.NewInlineKeyboardMarkup(rows...))

	case stateAwaitingRating:
		rating, err := strconv.Atoi(text)
		if err != nil || rating < 1 || rating > 5 {
			b.reply(chatID, "Please pick a rating between 1 and 5.")
			return
		}
		b.feedbackRating(chatID, conv, rating)

	case stateAwaitingComment:
		b.finishFeedback(ctx, chatID, conv, text)
	}
}

func (b *Bot) feedbackRating(chatID int64, conv *conversation, rating int) {
	if conv.state != stateAwaitingRating || rating < 1 || rating > 5 {
		return
	}
	conv.feedback.Rating = rating
	conv.state = stateAwaitingComment
	b.reply(chatID, "Thanks! Any comments about the service? (optional, or type /skip)")
}

func (b *Bot) finishFeedback(ctx context.Context, chatID int64, conv *conversation, comment string) {
	_, err := b.tickets.SubmitFeedback(ctx, chatID, conv.feedback.TicketID, conv.feedback.Rating, comment)
	b.conversations.end(chatID)
	if err != nil {
		b.replyError(chatID, "rate", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Thank you! Your %d-star rating for Ticket #%d has been recorded.",
		conv.feedback.Rating, conv.feedback.TicketID))
}
