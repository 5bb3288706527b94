package domain

import "strings"

// SplitLocation splits a stored location string once at the first comma
// into city and state display components. A location without a comma is
// entirely city with an empty state. Parsing is presentational only; the
// stored value is never rewritten.
func SplitLocation(location string) (city, state string) {
	if idx := strings.Index(location, ","); idx >= 0 {
		return strings.TrimSpace(location[:idx]), strings.TrimSpace(location[idx+1:])
	}
	return strings.TrimSpace(location), ""
}

// CityMatches reports whether the location's city component contains the
// given substring, case-insensitively. Used by bulk operations and the
// city filter commands.
func CityMatches(location, substring string) bool {
	city, _ := SplitLocation(location)
	return strings.Contains(strings.ToLower(city), strings.ToLower(strings.TrimSpace(substring)))
}
