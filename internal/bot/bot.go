package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/servicefix/dispatch-bot/internal/config"
	"github.com/servicefix/dispatch-bot/internal/observability"
	"github.com/servicefix/dispatch-bot/internal/refdata"
	"github.com/servicefix/dispatch-bot/internal/service"
	apperrors "github.com/servicefix/dispatch-bot/pkg/util"
)

// client is the slice of the Telegram API the handlers need. Tests
// substitute a recorder.
type client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Dependencies bundles everything the bot needs.
type Dependencies struct {
	Config      config.BotConfig
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Directory   refdata.Directory
	Tickets     *service.TicketService
	Technicians *service.TechnicianService
	Dispatch    *service.DispatchService
	Export      *service.ExportService
}

// Bot routes inbound Telegram updates to conversation and command
// handlers.
type Bot struct {
	api    *tgbotapi.BotAPI
	client client
	cfg    config.BotConfig
	logger *zap.Logger

	metrics     *observability.Metrics
	directory   refdata.Directory
	tickets     *service.TicketService
	technicians *service.TechnicianService
	dispatch    *service.DispatchService
	export      *service.ExportService

	conversations *conversationRegistry
}

// New connects to the Telegram API and builds the bot.
func New(deps Dependencies) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(deps.Config.Token)
	if err != nil {
		return nil, err
	}
	b := newWithClient(api, deps)
	b.api = api
	return b, nil
}

func newWithClient(c client, deps Dependencies) *Bot {
	return &Bot{
		client:        c,
		cfg:           deps.Config,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		directory:     deps.Directory,
		tickets:       deps.Tickets,
		technicians:   deps.Technicians,
		dispatch:      deps.Dispatch,
		export:        deps.Export,
		conversations: newConversationRegistry(),
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = b.cfg.UpdateTimeoutSeconds
	updates := b.api.GetUpdatesChan(updateCfg)
	b.logger.Info("bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	conv, ok := b.conversations.get(chatID)
	if !ok {
		return
	}
	text := strings.TrimSpace(msg.Text)
	switch conv.kind {
	case convBooking:
		b.bookingText(ctx, chatID, conv, text)
	case convRegistration:
		b.registrationText(ctx, chatID, conv, text)
	case convStatusCheck:
		b.statusText(ctx, chatID, text)
	case convFeedback:
		b.feedbackText(ctx, chatID, conv, text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	b.metrics.RecordCommand(command)

	switch command {
	case "start":
		b.sendHTML(chatID, startText)
	case "help":
		b.sendHTML(chatID, helpText)
	case "book":
		b.startBooking(chatID)
	case "status":
		b.startStatusCheck(chatID)
	case "register":
		b.startRegistration(chatID)
	case "rate":
		b.startFeedback(chatID)
	case "cancel":
		b.cancelConversation(chatID)
	case "skip":
		b.handleSkip(ctx, chatID)
	case "myjobs":
		b.myJobs(ctx, chatID)
	default:
		if !b.isAdmin(chatID) {
			b.reply(chatID, notAuthorizedText)
			return
		}
		b.handleAdminCommand(ctx, chatID, command, args)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	action := decodeCallback(query.Data)
	b.answerCallback(query.ID)

	switch action.Kind {
	case callbackAdminListTickets, callbackAdminListTechs, callbackApproveTech,
		callbackAssignStart, callbackAssignFinal:
		if !b.isAdmin(chatID) {
			b.reply(chatID, notAuthorizedText)
			return
		}
		b.handleAdminCallback(ctx, chatID, query.Message.MessageID, action)
	case callbackRate:
		if conv, ok := b.conversations.get(chatID); ok && conv.kind == convFeedback {
			b.feedbackRating(chatID, conv, action.Rating)
		}
	default:
		conv, ok := b.conversations.get(chatID)
		if !ok {
			return
		}
		if conv.kind == convBooking {
			b.bookingCallback(ctx, chatID, query.Message.MessageID, conv, action)
		}
	}
}

func (b *Bot) handleSkip(ctx context.Context, chatID int64) {
	conv, ok := b.conversations.get(chatID)
	if !ok {
		return
	}
	switch {
	case conv.kind == convBooking && conv.state == stateAwaitingProblem:
		b.finishBooking(ctx, chatID, conv, "")
	case conv.kind == convFeedback && conv.state == stateAwaitingComment:
		b.finishFeedback(ctx, chatID, conv, "")
	}
}

func (b *Bot) cancelConversation(chatID int64) {
	conv, ok := b.conversations.get(chatID)
	if !ok {
		return
	}
	b.conversations.end(chatID)
	switch conv.kind {
	case convRegistration:
		b.reply(chatID, "Registration cancelled.")
	default:
		b.reply(chatID, "Booking cancelled.")
	}
}

func (b *Bot) isAdmin(chatID int64) bool {
	return chatID == b.cfg.AdminChatID
}

// SendText implements service.Sender.
func (b *Bot) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.client.Send(msg)
	return err
}

// SendDocument implements service.Sender.
func (b *Bot) SendDocument(chatID int64, filename string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	_, err := b.client.Send(doc)
	return err
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendText(chatID, text); err != nil {
		b.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.client.Send(msg); err != nil {
		b.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendMenu(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.client.Send(msg); err != nil {
		b.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendHTMLMenu(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.client.Send(msg); err != nil {
		b.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.client.Send(edit); err != nil {
		b.logger.Warn("edit failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) editMenu(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	if _, err := b.client.Send(edit); err != nil {
		b.logger.Warn("edit failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answerCallback(callbackID string) {
	if callbackID == "" {
		return
	}
	if _, err := b.client.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		b.logger.Warn("callback ack failed", zap.Error(err))
	}
}

func isConflict(err error) bool {
	var domainErr *apperrors.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == "CONFLICT"
}

// replyError converts a service error to a user-facing message.
func (b *Bot) replyError(chatID int64, command string, err error) {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		b.metrics.RecordError(command, domainErr.Code)
		switch domainErr.Code {
		case "NOT_FOUND":
			b.reply(chatID, domainErr.Message+".")
		case "FORBIDDEN", "UNAUTHORIZED":
			b.reply(chatID, domainErr.Message)
		case "CONFLICT", "VALIDATION_FAILED":
			b.reply(chatID, domainErr.Message+".")
		default:
			b.logger.Error("command failed", zap.String("command", command), zap.Error(err))
			b.reply(chatID, "Sorry, something went wrong.")
		}
		return
	}
	b.metrics.RecordError(command, "INTERNAL_ERROR")
	b.logger.Error("command failed", zap.String("command", command), zap.Error(err))
	b.reply(chatID, "Sorry, something went wrong.")
}
