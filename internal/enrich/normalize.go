// Package enrich turns validated raw snapshots into the enriched artifacts.
package enrich

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds a display name for cross-source joins:
// diacritics removed, lowercased, whitespace collapsed.
func NormalizeName(s string) string {
	// transform.Chain is stateful, so each call builds its own
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

var teamCodes = map[string]string{
	"BRK": "BKN",
	"CHO": "CHA",
	"PHO": "PHX",
}

// NormalizeTeam maps Basketball Reference team codes onto NBA API codes.
func NormalizeTeam(code string) string {
	if c, ok := teamCodes[code]; ok {
		return c
	}
	return code
}

// aggregateMarkers are the team codes Basketball Reference uses for season
// total rows of traded players. Older pages use TOT; newer ones use nTM.
var aggregateMarkers = map[string]struct{}{
	"TOT": {},
	"2TM": {},
	"3TM": {},
	"4TM": {},
	"5TM": {},
}

func IsAggregateMarker(code string) bool {
	_, ok := aggregateMarkers[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}
