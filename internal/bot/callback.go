package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// callbackKind enumerates the button events the transport can deliver.
type callbackKind int

const (
	// callbackLabel is a plain candidate label whose meaning depends on
	// the chat's conversation state (appliance choice, suggestion pick).
	callbackLabel callbackKind = iota
	callbackFreeTextCity
	callbackFreeTextComplaint
	callbackAdminListTickets
	callbackAdminListTechs
	callbackApproveTech
	callbackAssignStart
	callbackAssignFinal
	callbackRate
)

// callbackAction is a button event decoded once at the transport edge.
type callbackAction struct {
	Kind     callbackKind
	TicketID int64
	TechID   int64
	Rating   int
	Label    string
}

const (
	dataFreeTextCity      = "free_text_city"
	dataFreeTextComplaint = "free_text_complaint"
	dataAdminListTickets  = "admin_list_tickets"
	dataAdminListTechs    = "admin_list_techs"
)

func approveTechData(techID int64) string {
	return fmt.Sprintf("approve_tech_%d", techID)
}

func assignStartData(ticketID int64) string {
	return fmt.Sprintf("assign_ticket_%d", ticketID)
}

func assignFinalData(ticketID, techID int64) string {
	return fmt.Sprintf("assign_%d_%d", ticketID, techID)
}

func rateData(rating int) string {
	return fmt.Sprintf("rate_%d", rating)
}

// decodeCallback classifies raw button data. Anything it does not
// recognize is a candidate label for the active conversation state.
func decodeCallback(data string) callbackAction {
	switch data {
	case dataFreeTextCity:
		return callbackAction{Kind: callbackFreeTextCity}
	case dataFreeTextComplaint:
		return callbackAction{Kind: callbackFreeTextComplaint}
	case dataAdminListTickets:
		return callbackAction{Kind: callbackAdminListTickets}
	case dataAdminListTechs:
		return callbackAction{Kind: callbackAdminListTechs}
	}

	if rest, ok := strings.CutPrefix(data, "approve_tech_"); ok {
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return callbackAction{Kind: callbackApproveTech, TechID: id}
		}
	}
	if rest, ok := strings.CutPrefix(data, "assign_ticket_"); ok {
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return callbackAction{Kind: callbackAssignStart, TicketID: id}
		}
	}
	if rest, ok := strings.CutPrefix(data, "assign_"); ok {
		parts := strings.SplitN(rest, "_", 2)
		if len(parts) == 2 {
			ticketID, err1 := strconv.ParseInt(parts[0], 10, 64)
			techID, err2 := strconv.ParseInt(parts[1], 10, 64)
			if err1 == nil && err2 == nil {
				return callbackAction{Kind: callbackAssignFinal, TicketID: ticketID, TechID: techID}
			}
		}
	}
	if rest, ok := strings.CutPrefix(data, "rate_"); ok {
		if rating, err := strconv.Atoi(rest); err == nil {
			return callbackAction{Kind: callbackRate, Rating: rating}
		}
	}

	return callbackAction{Kind: callbackLabel, Label: data}
}
