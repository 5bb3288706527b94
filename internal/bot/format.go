package bot

import (
	"fmt"
	"strings"

	"github.com/servicefix/dispatch-bot/internal/domain"
	"github.com/servicefix/dispatch-bot/internal/service"
)

const displayTimeLayout = "2006-01-02 15:04:05"

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ticketText renders the admin-facing ticket card. An empty location
// shows as "Not Specified" here, unlike the technician job card.
func ticketText(ticket *domain.Ticket, technician *domain.Technician, showStatus bool) string {
	location := ticket.Location
	if location == "" {
		location = "Not Specified"
	}
	city, state := domain.SplitLocation(location)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Ticket #%d</b>\n", ticket.ID)
	fmt.Fprintf(&b, "<b>Appliance:</b> %s\n", ticket.Appliance)
	fmt.Fprintf(&b, "<b>Complaint:</b> %s\n", ticket.IssueSummary)
	fmt.Fprintf(&b, "<b>City:</b> %s\n", city)
	fmt.Fprintf(&b, "<b>State:</b> %s\n", state)
	if showStatus {
		fmt.Fprintf(&b, "<b>Status:</b> %s\n", ticket.Status)
		if technician != nil {
			fmt.Fprintf(&b, "<b>Assigned to: %s</b>\n", technician.Name)
		} else {
			fmt.Fprintf(&b, "<b>Not assigned</b>\n")
		}
	}
	fmt.Fprintf(&b, "<b>Description:</b> %s\n", orDash(ticket.RawProblemText))
	fmt.Fprintf(&b, "<b>Created At:</b> %s", ticket.CreatedAt.Format(displayTimeLayout))
	return b.String()
}

// jobText renders the technician-facing job card. An empty location
// falls back to "Vizag" here, an inherited quirk kept as-is.
func jobText(ticket *domain.Ticket) string {
	location := ticket.Location
	if location == "" {
		location = "Vizag"
	}
	preferred := ticket.PreferredTime
	if preferred == "" {
		preferred = "Not specified"
	}
	return fmt.Sprintf(
		"<b>Ticket #%d</b> - %s\n<b>Appliance:</b> %s\n<b>Issue:</b> %s\n<b>Customer Time:</b> %s",
		ticket.ID, location, ticket.Appliance, ticket.IssueSummary, preferred,
	)
}

func technicianText(tech *domain.Technician) string {
	return fmt.Sprintf(
		"<b>Technician ID:</b> %d\n<b>Name:</b> %s\n<b>Phone:</b> %s\n<b>Skills:</b> %s\n<b>Status:</b> %s\n<b>Created At:</b> %s",
		tech.ID, tech.Name, tech.Phone, tech.Skills, tech.Status, tech.CreatedAt.Format(displayTimeLayout),
	)
}

func feedbackEntryText(view service.FeedbackView) string {
	userID := "-"
	summary := "-"
	if view.Ticket != nil {
		userID = fmt.Sprintf("%d", view.Ticket.ChatID)
		summary = view.Ticket.IssueSummary
	}
	return fmt.Sprintf(
		"<b>Ticket #%d</b>\n<b>User ID:</b> %s\n<b>Complaint:</b> %s\n<b>Rating:</b> %d / 5\n<b>Comment:</b> %s\n<b>Created At:</b> %s",
		view.Feedback.TicketID, userID, summary, view.Feedback.Rating,
		orDash(view.Feedback.Comment), view.Feedback.CreatedAt.Format(displayTimeLayout),
	)
}

func statsText(stats *service.Stats) string {
	var b strings.Builder
	b.WriteString("<b>ServiceFix Stats</b>\n")
	fmt.Fprintf(&b, "Total Tickets: %d\n", stats.TotalTickets)
	fmt.Fprintf(&b, "Open Tickets: %d\n", stats.OpenTickets)
	fmt.Fprintf(&b, "Closed Tickets: %d\n", stats.ClosedTickets)
	fmt.Fprintf(&b, "Assigned Tickets: %d\n", stats.AssignedTickets)
	fmt.Fprintf(&b, "Approved Technicians: %d\n", stats.ApprovedTechs)
	fmt.Fprintf(&b, "Pending Technicians: %d\n", stats.PendingTechs)
	if len(stats.TopCities) > 0 {
		b.WriteString("\nTop Cities:\n")
		for _, entry := range stats.TopCities {
			fmt.Fprintf(&b, "%s: %d\n", entry.Label, entry.Count)
		}
	}
	if len(stats.TopStates) > 0 {
		b.WriteString("\nTop States:\n")
		for _, entry := range stats.TopStates {
			fmt.Fprintf(&b, "%s: %d\n", entry.Label, entry.Count)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

const startText = "Hi! I'm the service bot for <b>HVAC/R &amp; WM Repairs</b>.\n\n" +
	"👤 <b>Customers</b>: Type /book to create a new service ticket.\n\n" +
	"🛠️ <b>Technicians</b>: Type /register to sign up or /myjobs to see your assigned work."

const helpText = "<b>Visakhapatnam Repairs Bot Help</b>\n\n" +
	"👤 <b>Customers</b>:\n" +
	"- Use /book to create a new service ticket.\n" +
	"- Use /status to check your ticket status.\n" +
	"- Use /rate to rate a completed ticket.\n" +
	"- Use /cancel to cancel an ongoing booking.\n\n" +
	"🛠️ <b>Technicians</b>:\n" +
	"- Use /register to sign up as a technician.\n" +
	"- Use /myjobs to see your assigned jobs.\n\n" +
	"<b>Admin Panel</b>:\n" +
	"- Only the administrator can access the admin panel via /admin."

const notAuthorizedText = "You are not authorized to use this command."
