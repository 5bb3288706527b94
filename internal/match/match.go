// Package match scores free-text input against closed candidate lists.
// Matching is pure: identical input and candidates always produce the
// same ordered result.
package match

import (
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// DefaultCutoff is the minimum similarity (0-100) for a candidate to
// surface as a suggestion. Below it the caller falls back to free text.
const DefaultCutoff = 60

// DefaultLimit is the maximum number of suggestions returned.
const DefaultLimit = 5

// Candidate is one entry of a closed reference list. Terms are extra
// strings the input is scored against (aliases, short names); the Label
// is what the caller presents and stores.
type Candidate struct {
	Label string
	Terms []string
}

// Match pairs a candidate label with its similarity score.
type Match struct {
	Label string
	Score int
}

// Top returns up to limit candidates scoring at or above cutoff, ordered
// by descending score. Ties keep candidate list order. Scoring is
// case-insensitive and takes the best score over a candidate's label and
// terms.
func Top(input string, candidates []Candidate, limit, cutoff int) []Match {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return nil
	}

	var matches []Match
	for _, candidate := range candidates {
		score := score(input, candidate)
		if score >= cutoff {
			matches = append(matches, Match{Label: candidate.Label, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func score(input string, candidate Candidate) int {
	best := fuzzy.Ratio(input, strings.ToLower(candidate.Label))
	for _, term := range candidate.Terms {
		if r := fuzzy.Ratio(input, strings.ToLower(term)); r > best {
			best = r
		}
	}
	return best
}
