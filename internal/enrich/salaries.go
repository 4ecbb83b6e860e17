package enrich

import (
	"github.com/tyler180/nba-cap-etl/internal/records"
)

// EnrichedSalary is a raw salary plus the resolved player id, null when unmatched.
type EnrichedSalary struct {
	PlayerName    string   `json:"player_name"`
	AnnualSalary  float64  `json:"annual_salary"`
	Season        string   `json:"season"`
	Source        string   `json:"source"`
	ContractYears *float64 `json:"contract_years,omitempty"`
	PlayerID      *int64   `json:"player_id"`
}

type MatchStats struct {
	Total     int     `json:"total_salaries"`
	Matched   int     `json:"matched_salaries"`
	Unmatched int     `json:"-"`
	Rate      float64 `json:"match_rate"`
}

// MatchSalaries resolves each salary's player id by normalized name.
// When two players normalize to the same name the later one wins.
func MatchSalaries(salaries []records.RawSalary, players []records.RawPlayer) ([]EnrichedSalary, MatchStats) {
	lookup := make(map[string]int64, len(players))
	for _, p := range players {
		name := records.Deref(p.FullName)
		if name == "" || p.ID == nil {
			continue
		}
		lookup[NormalizeName(name)] = *p.ID
	}

	out := make([]EnrichedSalary, 0, len(salaries))
	var ms MatchStats
	for _, s := range salaries {
		e := EnrichedSalary{
			PlayerName:    records.Deref(s.PlayerName),
			AnnualSalary:  records.Deref(s.AnnualSalary),
			Season:        records.Deref(s.Season),
			Source:        records.Deref(s.Source),
			ContractYears: s.ContractYears,
		}
		if id, ok := lookup[NormalizeName(e.PlayerName)]; ok {
			e.PlayerID = records.Ptr(id)
			ms.Matched++
		}
		out = append(out, e)
	}
	ms.Total = len(out)
	ms.Unmatched = ms.Total - ms.Matched
	if ms.Total > 0 {
		ms.Rate = round(float64(ms.Matched)/float64(ms.Total)*100, 2)
	}
	return out, ms
}
