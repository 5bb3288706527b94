package bot

import (
	"context"

	"github.com/servicefix/dispatch-bot/internal/domain"
)

func (b *Bot) startRegistration(chatID int64) {
	b.conversations.begin(chatID, convRegistration, stateAwaitingName)
	b.reply(chatID, "Welcome! Let's get you registered as a technician.\nFirst, what is your full name?")
}

// registrationText advances the registration flow one step per message.
// Empty input re-prompts without losing collected answers.
func (b *Bot) registrationText(ctx context.Context, chatID int64, conv *conversation, text string) {
	switch conv.state {
	case stateAwaitingName:
		if text == "" {
			b.reply(chatID, "Sorry, I didn't catch your name. Please type your full name.")
			return
		}
		conv.registration.Name = text
		conv.state = stateAwaitingPhone
		b.reply(chatID, "Got it. What is your 10-digit contact number?")

	case stateAwaitingPhone:
		if text == "" {
			b.reply(chatID, "Sorry, I didn't catch your phone number. Please type your 10-digit contact number.")
			return
		}
		conv.registration.Phone = text
		conv.state = stateAwaitingSkills
		b.reply(chatID, "Great. What are your main skills? (e.g., AC, Fridge, Washing Machine)")

	case stateAwaitingSkills:
		if text == "" {
			b.reply(chatID, "Sorry, I didn't catch your skills. Please type your main skills.")
			return
		}
		b.finishRegistration(ctx, chatID, conv, text)
	}
}

func (b *Bot) finishRegistration(ctx context.Context, chatID int64, conv *conversation, skills string) {
	_, err := b.technicians.Register(ctx, &domain.Technician{
		ChatID: chatID,
		Name:   conv.registration.Name,
		Phone:  conv.registration.Phone,
		Skills: skills,
	})
	b.conversations.end(chatID)
	if err != nil {
		if isConflict(err) {
			b.reply(chatID, "You have already registered. Please wait for approval.")
			return
		}
		b.replyError(chatID, "register", err)
		return
	}
	b.reply(chatID, "Thank you! Your registration is complete and has been sent for approval.")
}
