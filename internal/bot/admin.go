package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/service"
)

func (b *Bot) handleAdminCommand(ctx context.Context, chatID int64, command, args string) {
	switch command {
	case "admin":
		b.adminPanel(chatID)
	case "listall":
		b.listTickets(ctx, chatID, "", "No tickets found.")
	case "listnew":
		b.listTickets(ctx, chatID, domain.TicketStatusNew, "No new/unassigned tickets found.")
	case "listassigned":
		b.listTickets(ctx, chatID, domain.TicketStatusAssigned, "No assigned tickets found.")
	case "listtechs":
		b.listTechnicians(ctx, chatID)
	case "searchtickets":
		b.searchTickets(ctx, chatID, args)
	case "ticketsbycity":
		b.ticketsByCity(ctx, chatID, args)
	case "ticketsbystate":
		b.ticketsByState(ctx, chatID, args)
	case "ticketsbydate":
		b.ticketsByDate(ctx, chatID, args)
	case "closeticket":
		b.closeTicket(ctx, chatID, args)
	case "reassign":
		b.reassignTicket(ctx, chatID, args)
	case "approvetech":
		b.approveTechnician(ctx, chatID, args)
	case "ticketdetails":
		b.ticketDetails(ctx, chatID, args)
	case "userhistory":
		b.userHistory(ctx, chatID, args)
	case "feedback":
		b.allFeedback(ctx, chatID)
	case "feedbackbyticket":
		b.feedbackByTicket(ctx, chatID, args)
	case "stats":
		b.stats(ctx, chatID)
	case "toptechs":
		b.topTechs(ctx, chatID)
	case "pendingapproval":
		b.pendingApproval(ctx, chatID)
	case "bulkassign":
		b.bulkAssign(ctx, chatID, args)
	case "bulkclose":
		b.bulkClose(ctx, chatID, args)
	case "exporttickets":
		b.exportTickets(ctx, chatID)
	case "exporttechs":
		b.exportTechnicians(ctx, chatID)
	}
}

func (b *Bot) adminPanel(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("List New Tickets", dataAdminListTickets)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve Technicians", dataAdminListTechs)),
	)
	b.sendMenu(chatID, "Admin Panel:", keyboard)
}

func (b *Bot) handleAdminCallback(ctx context.Context, chatID int64, messageID int, action callbackAction) {
	switch action.Kind {
	case callbackAdminListTickets:
		b.adminListNewTickets(ctx, chatID, messageID)
	case callbackAdminListTechs:
		b.adminListPendingTechs(ctx, chatID, messageID)
	case callbackApproveTech:
		b.adminApproveTech(ctx, chatID, messageID, action.TechID)
	case callbackAssignStart:
		b.adminAssignStart(ctx, chatID, messageID, action.TicketID)
	case callbackAssignFinal:
		b.adminAssignFinal(ctx, chatID, messageID, action.TicketID, action.TechID)
	}
}

func (b *Bot) adminListNewTickets(ctx context.Context, chatID int64, messageID int) {
	tickets, err := b.tickets.NewTicketQueue(ctx)
	if err != nil {
		b.replyError(chatID, "admin", err)
		return
	}
	if len(tickets) == 0 {
		b.editMessage(chatID, messageID, "No new tickets.")
		return
	}
	b.editMessage(chatID, messageID, "New Tickets:")
	for i := range tickets {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Assign Technician", assignStartData(tickets[i].ID))))
		b.sendHTMLMenu(chatID, ticketText(&tickets[i], nil, false), keyboard)
	}
}

func (b *Bot) adminListPendingTechs(ctx context.Context, chatID int64, messageID int) {
	techs, err := b.technicians.Pending(ctx)
	if err != nil {
		b.replyError(chatID, "admin", err)
		return
	}
	if len(techs) == 0 {
		b.editMessage(chatID, messageID, "No pending technicians for approval.")
		return
	}
	b.editMessage(chatID, messageID, "Pending Technicians:")
	for _, tech := range techs {
		text := fmt.Sprintf("Name: %s\nPhone: %s\nSkills: %s", tech.Name, tech.Phone, tech.Skills)
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Approve ✅", approveTechData(tech.ID))))
		b.sendMenu(chatID, text, keyboard)
	}
}

func (b *Bot) adminApproveTech(ctx context.Context, chatID int64, messageID int, techID int64) {
	tech, err := b.technicians.Approve(ctx, techID)
	if err != nil {
		b.replyError(chatID, "admin", err)
		return
	}
	b.editMessage(chatID, messageID, fmt.Sprintf("Technician %s approved. ✅", tech.Name))
}

func (b *Bot) adminAssignStart(ctx context.Context, chatID int64, messageID int, ticketID int64) {
	techs, err := b.dispatch.EligibleTechnicians(ctx)
	if err != nil {
		b.replyError(chatID, "admin", err)
		return
	}
	if len(techs) == 0 {
		b.editMessage(chatID, messageID, "No approved technicians available right now.")
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(techs))
	for _, tech := range techs {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tech.Name, assignFinalData(ticketID, tech.ID))))
	}
	b.editMenu(chatID, messageID, "Choose a technician to assign:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) adminAssignFinal(ctx context.Context, chatID int64, messageID int, ticketID, techID int64) {
	if _, err := b.dispatch.Assign(ctx, ticketID, techID); err != nil {
		b.replyError(chatID, "admin", err)
		return
	}
	b.editMessage(chatID, messageID, "Ticket assigned successfully! ✅")
}

func (b *Bot) listTickets(ctx context.Context, chatID int64, status domain.TicketStatus, empty string) {
	var (
		tickets []domain.Ticket
		err     error
	)
	if status == "" {
		tickets, err = b.tickets.ListAll(ctx)
	} else {
		tickets, err = b.tickets.ListByStatus(ctx, status)
	}
	if err != nil {
		b.replyError(chatID, "listall", err)
		return
	}
	if len(tickets) == 0 {
		b.reply(chatID, empty)
		return
	}
	for i := range tickets {
		details, err := b.tickets.Details(ctx, tickets[i].ID)
		if err != nil {
			b.replyError(chatID, "listall", err)
			return
		}
		b.sendHTML(chatID, ticketText(details.Ticket, details.Technician, true))
	}
}

func (b *Bot) listTechnicians(ctx context.Context, chatID int64) {
	techs, err := b.technicians.All(ctx)
	if err != nil {
		b.replyError(chatID, "listtechs", err)
		return
	}
	if len(techs) == 0 {
		b.reply(chatID, "No technicians found.")
		return
	}
	for i := range techs {
		b.sendHTML(chatID, technicianText(&techs[i]))
	}
}

func (b *Bot) searchTickets(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /searchtickets <keyword>")
		return
	}
	found, err := b.tickets.Search(ctx, args)
	if err != nil {
		b.replyError(chatID, "searchtickets", err)
		return
	}
	if len(found) == 0 {
		b.reply(chatID, "No tickets found matching that keyword.")
		return
	}
	b.sendTicketDetails(chatID, found)
}

func (b *Bot) ticketsByCity(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /ticketsbycity <city>")
		return
	}
	found, err := b.tickets.ByCity(ctx, args)
	if err != nil {
		b.replyError(chatID, "ticketsbycity", err)
		return
	}
	if len(found) == 0 {
		b.reply(chatID, fmt.Sprintf("No tickets found for city: %s", strings.ToLower(args)))
		return
	}
	b.sendTicketDetails(chatID, found)
}

func (b *Bot) ticketsByState(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /ticketsbystate <state>")
		return
	}
	found, err := b.tickets.ByState(ctx, args)
	if err != nil {
		b.replyError(chatID, "ticketsbystate", err)
		return
	}
	if len(found) == 0 {
		b.reply(chatID, fmt.Sprintf("No tickets found for state: %s", strings.ToLower(args)))
		return
	}
	b.sendTicketDetails(chatID, found)
}

func (b *Bot) ticketsByDate(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /ticketsbydate <YYYY-MM-DD>")
		return
	}
	date := strings.Fields(args)[0]
	found, err := b.tickets.ByDate(ctx, date)
	if err != nil {
		b.replyError(chatID, "ticketsbydate", err)
		return
	}
	if len(found) == 0 {
		b.reply(chatID, fmt.Sprintf("No tickets found for date: %s", date))
		return
	}
	b.sendTicketDetails(chatID, found)
}

func (b *Bot) closeTicket(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /closeticket <ticket_id>")
		return
	}
	ticketID, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
	if err != nil {
		b.reply(chatID, "Invalid ticket ID.")
		return
	}
	if _, err := b.dispatch.Close(ctx, ticketID); err != nil {
		b.replyError(chatID, "closeticket", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Ticket #%d marked as closed.", ticketID))
}

func (b *Bot) reassignTicket(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		b.reply(chatID, "Usage: /reassign <ticket_id> <tech_id>")
		return
	}
	ticketID, err1 := strconv.ParseInt(fields[0], 10, 64)
	techID, err2 := strconv.ParseInt(fields[1], 10, 64)
	if err1 != nil || err2 != nil {
		b.reply(chatID, "Invalid ticket or technician ID.")
		return
	}
	ticket, err := b.dispatch.Reassign(ctx, ticketID, techID)
	if err != nil {
		b.replyError(chatID, "reassign", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Ticket #%d reassigned to technician ID %d.", ticket.ID, techID))
}

func (b *Bot) approveTechnician(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /approvetech <tech_id>")
		return
	}
	techID, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
	if err != nil {
		b.reply(chatID, "Invalid technician ID.")
		return
	}
	tech, err := b.technicians.Approve(ctx, techID)
	if err != nil {
		b.replyError(chatID, "approvetech", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Technician %s approved. ✅", tech.Name))
}

func (b *Bot) ticketDetails(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /ticketdetails <ticket_id>")
		return
	}
	ticketID, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
	if err != nil {
		b.reply(chatID, "Invalid ticket ID.")
		return
	}
	details, err := b.tickets.Details(ctx, ticketID)
	if err != nil {
		b.replyError(chatID, "ticketdetails", err)
		return
	}
	text := ticketText(details.Ticket, details.Technician, true)
	if details.Technician != nil {
		text += fmt.Sprintf("\n<b>Assigned Technician:</b> %s (%s)", details.Technician.Name, details.Technician.Phone)
	}
	b.sendHTML(chatID, text)
}

func (b *Bot) userHistory(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /userhistory <user_id>")
		return
	}
	userID, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
	if err != nil {
		b.reply(chatID, "Invalid user ID.")
		return
	}
	history, err := b.tickets.History(ctx, userID)
	if err != nil {
		b.replyError(chatID, "userhistory", err)
		return
	}
	if len(history) == 0 {
		b.reply(chatID, "No tickets found for this user.")
		return
	}
	for _, d := range history {
		text := ticketText(d.Ticket, d.Technician, true)
		if fb, err := b.tickets.FeedbackForTicket(ctx, d.Ticket.ID); err == nil {
			text += fmt.Sprintf("\n<b>Feedback:</b> %d / 5\n<b>Comment:</b> %s",
				fb.Feedback.Rating, orDash(fb.Feedback.Comment))
		}
		b.sendHTML(chatID, text)
	}
}

func (b *Bot) allFeedback(ctx context.Context, chatID int64) {
	views, err := b.tickets.AllFeedback(ctx)
	if err != nil {
		b.replyError(chatID, "feedback", err)
		return
	}
	if len(views) == 0 {
		b.reply(chatID, "No feedback found.")
		return
	}
	for _, view := range views {
		b.sendHTML(chatID, feedbackEntryText(view))
	}
}

func (b *Bot) feedbackByTicket(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /feedbackbyticket <ticket_id>")
		return
	}
	ticketID, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
	if err != nil {
		b.reply(chatID, "Invalid ticket ID.")
		return
	}
	view, err := b.tickets.FeedbackForTicket(ctx, ticketID)
	if err != nil {
		b.replyError(chatID, "feedbackbyticket", err)
		return
	}
	b.sendHTML(chatID, feedbackEntryText(*view))
}

func (b *Bot) stats(ctx context.Context, chatID int64) {
	overview, err := b.tickets.Overview(ctx)
	if err != nil {
		b.replyError(chatID, "stats", err)
		return
	}
	b.sendHTML(chatID, statsText(overview))
}

func (b *Bot) topTechs(ctx context.Context, chatID int64) {
	ranked, err := b.tickets.TopTechnicians(ctx)
	if err != nil {
		b.replyError(chatID, "toptechs", err)
		return
	}
	if len(ranked) == 0 {
		b.reply(chatID, "No closed tickets or assigned technicians found.")
		return
	}
	var sb strings.Builder
	sb.WriteString("<b>Top Technicians (by closed tickets):</b>\n")
	for _, entry := range ranked {
		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("ID %d", entry.TechID)
		}
		fmt.Fprintf(&sb, "%s: %d closed tickets\n", name, entry.Count)
	}
	b.sendHTML(chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) pendingApproval(ctx context.Context, chatID int64) {
	techs, err := b.technicians.Pending(ctx)
	if err != nil {
		b.replyError(chatID, "pendingapproval", err)
		return
	}
	tickets, err := b.tickets.ListByStatus(ctx, domain.TicketStatusNew)
	if err != nil {
		b.replyError(chatID, "pendingapproval", err)
		return
	}
	var sb strings.Builder
	sb.WriteString("<b>Pending Approvals</b>\n")
	if len(techs) > 0 {
		sb.WriteString("\nPending Technicians:\n")
		for _, tech := range techs {
			fmt.Fprintf(&sb, "ID: %d | Name: %s | Phone: %s\n", tech.ID, tech.Name, tech.Phone)
		}
	} else {
		sb.WriteString("\nNo pending technicians.\n")
	}
	if len(tickets) > 0 {
		sb.WriteString("\nNew Tickets:\n")
		for _, t := range tickets {
			fmt.Fprintf(&sb, "Ticket #%d | %s | %s | %s\n", t.ID, t.Appliance, t.IssueSummary, t.Location)
		}
	} else {
		sb.WriteString("\nNo new tickets.")
	}
	b.sendHTML(chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) bulkAssign(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		b.reply(chatID, "Usage: /bulkassign <city> <tech_id>")
		return
	}
	city := strings.ToLower(fields[0])
	techID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		b.reply(chatID, "Invalid technician ID.")
		return
	}
	count, err := b.dispatch.BulkAssign(ctx, city, techID)
	if err != nil {
		b.replyError(chatID, "bulkassign", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Assigned %d tickets in city '%s' to technician ID %d.", count, city, techID))
}

func (b *Bot) bulkClose(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /bulkclose <city>")
		return
	}
	city := strings.ToLower(strings.Fields(args)[0])
	count, err := b.dispatch.BulkClose(ctx, city)
	if err != nil {
		b.replyError(chatID, "bulkclose", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Closed %d tickets in city '%s'.", count, city))
}

func (b *Bot) exportTickets(ctx context.Context, chatID int64) {
	data, err := b.export.ExportTickets(ctx)
	if err != nil {
		b.replyError(chatID, "exporttickets", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Tickets exported to %s.", service.TicketExportFilename))
	if err := b.SendDocument(chatID, service.TicketExportFilename, data); err != nil {
		b.logger.Warn("document send failed", zap.Error(err))
	}
}

func (b *Bot) exportTechnicians(ctx context.Context, chatID int64) {
	data, err := b.export.ExportTechnicians(ctx)
	if err != nil {
		b.replyError(chatID, "exporttechs", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Technicians exported to %s.", service.TechnicianExportFilename))
	if err := b.SendDocument(chatID, service.TechnicianExportFilename, data); err != nil {
		b.logger.Warn("document send failed", zap.Error(err))
	}
}

func (b *Bot) sendTicketDetails(chatID int64, details []service.TicketDetails) {
	for _, d := range details {
		b.sendHTML(chatID, ticketText(d.Ticket, d.Technician, true))
	}
}
