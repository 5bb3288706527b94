package bot

import "testing"

func TestDecodeCallback(t *testing.T) {
	cases := []struct {
		data string
		want callbackAction
	}{
		{"free_text_city", callbackAction{Kind: callbackFreeTextCity}},
		{"free_text_complaint", callbackAction{Kind: callbackFreeTextComplaint}},
		{"admin_list_tickets", callbackAction{Kind: callbackAdminListTickets}},
		{"admin_list_techs", callbackAction{Kind: callbackAdminListTechs}},
		{"approve_tech_7", callbackAction{Kind: callbackApproveTech, TechID: 7}},
		{"assign_ticket_12", callbackAction{Kind: callbackAssignStart, TicketID: 12}},
		{"assign_12_7", callbackAction{Kind: callbackAssignFinal, TicketID: 12, TechID: 7}},
		{"rate_4", callbackAction{Kind: callbackRate, Rating: 4}},
		{"AC", callbackAction{Kind: callbackLabel, Label: "AC"}},
		{"Visakhapatnam (Andhra Pradesh)", callbackAction{Kind: callbackLabel, Label: "Visakhapatnam (Andhra Pradesh)"}},
		{"approve_tech_x", callbackAction{Kind: callbackLabel, Label: "approve_tech_x"}},
		{"assign_12_", callbackAction{Kind: callbackLabel, Label: "assign_12_"}},
	}
	for _, tc := range cases {
		if got := decodeCallback(tc.data); got != tc.want {
			t.Errorf("decodeCallback(%q) = %+v, want %+v", tc.data, got, tc.want)
		}
	}
}

func TestCallbackDataRoundTrip(t *testing.T) {
	if got := decodeCallback(approveTechData(3)); got.Kind != callbackApproveTech || got.TechID != 3 {
		t.Errorf("approve round trip = %+v", got)
	}
	if got := decodeCallback(assignStartData(9)); got.Kind != callbackAssignStart || got.TicketID != 9 {
		t.Errorf("assign start round trip = %+v", got)
	}
	if got := decodeCallback(assignFinalData(9, 3)); got.Kind != callbackAssignFinal || got.TicketID != 9 || got.TechID != 3 {
		t.Errorf("assign final round trip = %+v", got)
	}
	if got := decodeCallback(rateData(5)); got.Kind != callbackRate || got.Rating != 5 {
		t.Errorf("rate round trip = %+v", got)
	}
}
