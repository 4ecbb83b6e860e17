package pipeline

import (
	"strings"

	"github.com/cockroachdb/errors"
)

type FetchMode string

const (
	ModeStatsOnly FetchMode = "stats_only"
	ModeMonthly   FetchMode = "monthly"
	ModeFull      FetchMode = "full"
)

// ParseFetchMode defaults an empty value to stats_only.
func ParseFetchMode(s string) (FetchMode, error) {
	switch FetchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStatsOnly:
		return ModeStatsOnly, nil
	case ModeMonthly:
		return ModeMonthly, nil
	case ModeFull:
		return ModeFull, nil
	}
	return "", errors.Newf("unknown fetch_type %q", s)
}

// FetchesReference reports whether the mode pulls players, teams and salaries.
func (m FetchMode) FetchesReference() bool {
	return m == ModeMonthly || m == ModeFull
}

// Requirement declares which categories must be present for a mode.
func Requirement(m FetchMode) map[Category]bool {
	ref := m.FetchesReference()
	return map[Category]bool{
		CategoryStats:    true,
		CategoryPlayers:  ref,
		CategoryTeams:    ref,
		CategorySalaries: ref,
	}
}
