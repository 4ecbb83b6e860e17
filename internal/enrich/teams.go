package enrich

import (
	"math"
	"slices"

	"github.com/tyler180/nba-cap-etl/internal/records"
)

// EnrichedTeam is a raw team plus payroll and on-court aggregates.
type EnrichedTeam struct {
	records.RawTeam

	TotalPayroll     float64  `json:"total_payroll"`
	RosterCount      int      `json:"roster_count"`
	RosterWithSalary int      `json:"roster_with_salary"`
	AvgSalary        float64  `json:"avg_salary"`
	MinSalary        float64  `json:"min_salary"`
	MaxSalary        float64  `json:"max_salary"`
	TopPaidPlayer    *string  `json:"top_paid_player"`
	TopPaidSalary    *float64 `json:"top_paid_salary"`

	TotalPlayersWithStats *int     `json:"total_players_with_stats"`
	TeamTotalPoints       *float64 `json:"team_total_points"`
	TeamTotalRebounds     *float64 `json:"team_total_rebounds"`
	TeamTotalAssists      *float64 `json:"team_total_assists"`
	AvgPlayerPoints       *float64 `json:"avg_player_points"`
	AvgPlayerRebounds     *float64 `json:"avg_player_rebounds"`
	AvgPlayerAssists      *float64 `json:"avg_player_assists"`
}

// EnrichTeams aggregates payroll over every player who appeared for a team
// and performance over that team's breakdown lines only, so traded players
// do not carry stats from other teams.
func EnrichTeams(teams []records.RawTeam, salaries []EnrichedSalary, stats []EnrichedPlayerStat) []EnrichedTeam {
	salaryByName := make(map[string]float64, len(salaries))
	for _, s := range salaries {
		if s.PlayerName != "" {
			salaryByName[NormalizeName(s.PlayerName)] = s.AnnualSalary
		}
	}

	out := make([]EnrichedTeam, 0, len(teams))
	for _, t := range teams {
		abbr := records.Deref(t.Abbreviation)
		et := EnrichedTeam{RawTeam: t}

		var roster []*EnrichedPlayerStat
		var lines []TeamStatLine
		for i := range stats {
			p := &stats[i]
			if !slices.Contains(p.TeamsPlayedFor, abbr) {
				continue
			}
			roster = append(roster, p)
			for _, l := range p.StatsByTeam {
				if l.TeamAbbreviation == abbr {
					lines = append(lines, l)
					break
				}
			}
		}
		et.RosterCount = len(roster)

		var paid []float64
		for _, p := range roster {
			if v, ok := salaryByName[NormalizeName(p.PlayerName)]; ok {
				paid = append(paid, v)
			}
		}
		if len(paid) > 0 {
			var sum float64
			for _, v := range paid {
				sum += v
			}
			et.TotalPayroll = sum
			et.RosterWithSalary = len(paid)
			et.AvgSalary = round(sum/float64(len(paid)), 2)
			et.MinSalary = slices.Min(paid)
			et.MaxSalary = slices.Max(paid)
			for _, p := range roster {
				if v, ok := salaryByName[NormalizeName(p.PlayerName)]; ok && v == et.MaxSalary {
					et.TopPaidPlayer = records.Ptr(p.PlayerName)
					et.TopPaidSalary = records.Ptr(v)
					break
				}
			}
		}

		if len(lines) > 0 {
			var pts, reb, ast float64
			for _, l := range lines {
				pts += orZero(l.Points)
				reb += orZero(l.Rebounds)
				ast += orZero(l.Assists)
			}
			n := float64(len(lines))
			et.TotalPlayersWithStats = records.Ptr(len(lines))
			et.TeamTotalPoints = records.Ptr(round(pts, 1))
			et.TeamTotalRebounds = records.Ptr(round(reb, 1))
			et.TeamTotalAssists = records.Ptr(round(ast, 1))
			et.AvgPlayerPoints = records.Ptr(round(pts/n, 2))
			et.AvgPlayerRebounds = records.Ptr(round(reb/n, 2))
			et.AvgPlayerAssists = records.Ptr(round(ast/n, 2))
		}
		out = append(out, et)
	}
	return out
}

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
