package enrich

import (
	"time"

	"github.com/tyler180/nba-cap-etl/internal/records"
)

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

const testPartition = "year=2025/month=01/day=15"

func row(kv ...any) records.StatRow {
	r := records.StatRow{}
	for i := 0; i+1 < len(kv); i += 2 {
		r[kv[i].(string)] = kv[i+1]
	}
	return r
}

// tradedSnapshot holds one player traded from CHI to DET, one single-team
// player, and the league average row.
func tradedSnapshot() *records.StatsSnapshot {
	return &records.StatsSnapshot{
		Season:         records.Ptr("2024-25"),
		FetchTimestamp: records.Ptr("2025-01-15T06:00:00.000000"),
		Source:         records.Ptr(records.SourceBasketballReference),
		PerGameStats: []records.StatRow{
			row("Player", "Nikola Jokić", "Age", 29.0, "Team", "DEN", "Pos", "C", "G", 50.0, "GS", 50.0, "MP", 36.0,
				"PTS", 29.0, "TRB", 13.0, "AST", 10.0, "FG%", 0.58, "eFG%", 0.62),
			row("Player", "Jalen Smith", "Age", 24.0, "Team", "2TM", "Pos", "PF", "G", 48.0, "GS", 10.0, "MP", 20.0,
				"PTS", 9.0, "TRB", 6.0, "AST", 1.0),
			row("Player", "Jalen Smith", "Age", 24.0, "Team", "CHI", "Pos", "PF", "G", 44.0, "GS", 10.0, "MP", 21.0,
				"PTS", 9.5, "TRB", 6.2, "AST", 1.1),
			row("Player", "Jalen Smith", "Age", 24.0, "Team", "DET", "Pos", "PF", "G", 4.0, "GS", 0.0, "MP", 9.0,
				"PTS", 3.0, "TRB", 2.0, "AST", 0.0),
			row("Player", records.LeagueAverage, "G", 0.0, "PTS", 11.0),
		},
		AdvancedStats: []records.StatRow{
			row("Player", "Nikola Jokic", "Team", "DEN", "PER", 31.0, "WS", 12.0, "VORP", 8.0),
			row("Player", "Jalen Smith", "Team", "CHI", "PER", 16.0),
			row("Player", "Jalen Smith", "Team", "2TM", "PER", 15.0, "WS", 1.5),
			row("Player", "Jalen Smith", "Team", "DET", "PER", 9.0),
		},
		PerGameColumns:  []string{"Player", "Age", "Team", "Pos", "G", "GS", "MP", "PTS", "TRB", "AST", "FG%", "eFG%"},
		AdvancedColumns: []string{"Player", "Team", "PER", "WS", "VORP"},
	}
}

func rawTeams() []records.RawTeam {
	team := func(id int64, name, abbr string) records.RawTeam {
		return records.RawTeam{ID: records.Ptr(id), FullName: records.Ptr(name), Abbreviation: records.Ptr(abbr), City: "City"}
	}
	return []records.RawTeam{
		team(1610612743, "Denver Nuggets", "DEN"),
		team(1610612741, "Chicago Bulls", "CHI"),
		team(1610612765, "Detroit Pistons", "DET"),
		team(1610612738, "Boston Celtics", "BOS"),
	}
}

func rawPlayers() []records.RawPlayer {
	return []records.RawPlayer{
		{ID: records.Ptr(int64(203999)), FullName: records.Ptr("Nikola Jokic")},
		{ID: records.Ptr(int64(1629655)), FullName: records.Ptr("Jalen Smith")},
	}
}

func rawSalaries() []records.RawSalary {
	sal := func(name string, amount float64) records.RawSalary {
		return records.RawSalary{
			PlayerName:   records.Ptr(name),
			AnnualSalary: records.Ptr(amount),
			Season:       records.Ptr("2024-25"),
			Source:       records.Ptr(records.SourceESPN),
		}
	}
	return []records.RawSalary{
		sal("Nikola Jokić", 51415938),
		sal("Jalen Smith", 8000000),
		sal("Unknown Guy", 1157153),
	}
}
