// Package refdata holds the reference lists the conversations match
// user input against. The lists are injected into the bot as a lookup
// table; the entries here are the deployment's defaults and carry no
// behavior of their own.
package refdata

import (
	"fmt"
	"strings"

	"github.com/servicefix/dispatch-bot/internal/match"
)

// District is a serviceable city with its state and any colloquial
// aliases users commonly type.
type District struct {
	Name    string
	State   string
	Aliases []string
}

// Complaint is a known issue category for one appliance type.
type Complaint struct {
	Appliance string
	Text      string
}

// Directory bundles the reference lists handed to the bot.
type Directory struct {
	Appliances []string
	Districts  []District
	Complaints []Complaint
}

// Default returns the built-in reference lists.
func Default() Directory {
	return Directory{
		Appliances: []string{"AC", "Fridge", "Washing Machine", "Other"},
		Districts:  defaultDistricts,
		Complaints: defaultComplaints,
	}
}

// Label renders the suggestion form shown to users, "District (State)".
func (d District) Label() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.State)
}

// StoredLocation renders the form persisted on tickets, "District, State".
func (d District) StoredLocation() string {
	return fmt.Sprintf("%s, %s", d.Name, d.State)
}

// CityCandidates builds the matcher candidate list for districts. The
// input is scored against the district name and its aliases, not the
// state-qualified label, so short inputs still clear the cutoff.
func (dir Directory) CityCandidates() []match.Candidate {
	candidates := make([]match.Candidate, 0, len(dir.Districts))
	for _, d := range dir.Districts {
		terms := append([]string{d.Name}, d.Aliases...)
		candidates = append(candidates, match.Candidate{Label: d.Label(), Terms: terms})
	}
	return candidates
}

// ComplaintCandidates builds the matcher candidate list for one
// appliance, compared case-insensitively.
func (dir Directory) ComplaintCandidates(appliance string) []match.Candidate {
	var candidates []match.Candidate
	for _, c := range dir.Complaints {
		if strings.EqualFold(c.Appliance, appliance) {
			candidates = append(candidates, match.Candidate{Label: c.Text})
		}
	}
	return candidates
}

// DistrictByLabel resolves a suggestion label back to its district.
func (dir Directory) DistrictByLabel(label string) (District, bool) {
	for _, d := range dir.Districts {
		if strings.EqualFold(label, d.Label()) {
			return d, true
		}
	}
	return District{}, false
}

var defaultDistricts = []District{
	{Name: "Visakhapatnam", State: "Andhra Pradesh", Aliases: []string{"Vizag", "Waltair"}},
	{Name: "Vijayawada", State: "Andhra Pradesh", Aliases: []string{"Bezawada"}},
	{Name: "Guntur", State: "Andhra Pradesh"},
	{Name: "Kakinada", State: "Andhra Pradesh"},
	{Name: "Rajahmundry", State: "Andhra Pradesh", Aliases: []string{"Rajamahendravaram"}},
	{Name: "Tirupati", State: "Andhra Pradesh"},
	{Name: "Hyderabad", State: "Telangana"},
	{Name: "Warangal", State: "Telangana"},
	{Name: "Chennai", State: "Tamil Nadu", Aliases: []string{"Madras"}},
	{Name: "Bengaluru", State: "Karnataka", Aliases: []string{"Bangalore"}},
}

var defaultComplaints = []Complaint{
	{Appliance: "AC", Text: "No Cooling"},
	{Appliance: "AC", Text: "Water Leakage"},
	{Appliance: "AC", Text: "Strange Noise"},
	{Appliance: "AC", Text: "Not Turning On"},
	{Appliance: "AC", Text: "Bad Smell"},
	{Appliance: "Fridge", Text: "Not Cooling"},
	{Appliance: "Fridge", Text: "Excess Frost"},
	{Appliance: "Fridge", Text: "Water Leakage"},
	{Appliance: "Fridge", Text: "Not Turning On"},
	{Appliance: "Washing Machine", Text: "Not Draining"},
	{Appliance: "Washing Machine", Text: "Drum Not Spinning"},
	{Appliance: "Washing Machine", Text: "Water Leakage"},
	{Appliance: "Washing Machine", Text: "Excessive Vibration"},
	{Appliance: "Other", Text: "Not Turning On"},
	{Appliance: "Other", Text: "General Malfunction"},
}
