package domain

import "testing"

func TestSplitLocation(t *testing.T) {
	tests := []struct {
		location string
		city     string
		state    string
	}{
		{"Visakhapatnam, Andhra Pradesh", "Visakhapatnam", "Andhra Pradesh"},
		{"Hyderabad,Telangana", "Hyderabad", "Telangana"},
		{"Vizag", "Vizag", ""},
		{"", "", ""},
		{"Mumbai, Maharashtra, India", "Mumbai", "Maharashtra, India"},
	}
	for _, tt := range tests {
		city, state := SplitLocation(tt.location)
		if city != tt.city || state != tt.state {
			t.Errorf("SplitLocation(%q) = (%q, %q), want (%q, %q)",
				tt.location, city, state, tt.city, tt.state)
		}
	}
}

func TestCityMatches(t *testing.T) {
	tests := []struct {
		location  string
		substring string
		want      bool
	}{
		{"Visakhapatnam, Andhra Pradesh", "visakha", true},
		{"Visakhapatnam, Andhra Pradesh", "VISAKHAPATNAM", true},
		{"Visakhapatnam, Andhra Pradesh", "pradesh", false},
		{"Vizag", "vizag", true},
		{"Hyderabad, Telangana", "vizag", false},
		{"", "vizag", false},
	}
	for _, tt := range tests {
		if got := CityMatches(tt.location, tt.substring); got != tt.want {
			t.Errorf("CityMatches(%q, %q) = %v, want %v", tt.location, tt.substring, got, tt.want)
		}
	}
}
