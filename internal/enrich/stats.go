package enrich

import (
	"github.com/tyler180/nba-cap-etl/internal/records"
)

// TeamStatLine is one team's slice of a player's season.
type TeamStatLine struct {
	TeamAbbreviation string   `json:"team_abbreviation"`
	GamesPlayed      *float64 `json:"games_played"`
	GamesStarted     *float64 `json:"games_started"`
	Minutes          *float64 `json:"minutes"`
	Points           *float64 `json:"points"`
	Rebounds         *float64 `json:"rebounds"`
	Assists          *float64 `json:"assists"`
	Steals           *float64 `json:"steals"`
	Blocks           *float64 `json:"blocks"`
	Turnovers        *float64 `json:"turnovers"`
	FGPct            *float64 `json:"fg_pct"`
	FG3Pct           *float64 `json:"fg3_pct"`
	FTPct            *float64 `json:"ft_pct"`
}

// EnrichedPlayerStat is one player's season: per-game values from the primary
// row, advanced values joined by name, and the per-team breakdown.
type EnrichedPlayerStat struct {
	PlayerName       string   `json:"player_name"`
	Age              *float64 `json:"age"`
	TeamAbbreviation *string  `json:"team_abbreviation"`
	Position         *string  `json:"position"`
	GamesPlayed      *float64 `json:"games_played"`
	GamesStarted     *float64 `json:"games_started"`
	Minutes          *float64 `json:"minutes"`

	Points *float64 `json:"points"`
	FGM    *float64 `json:"fgm"`
	FGA    *float64 `json:"fga"`
	FGPct  *float64 `json:"fg_pct"`
	FG3M   *float64 `json:"fg3m"`
	FG3A   *float64 `json:"fg3a"`
	FG3Pct *float64 `json:"fg3_pct"`
	FG2M   *float64 `json:"fg2m"`
	FG2A   *float64 `json:"fg2a"`
	FG2Pct *float64 `json:"fg2_pct"`
	FTM    *float64 `json:"ftm"`
	FTA    *float64 `json:"fta"`
	FTPct  *float64 `json:"ft_pct"`

	OReb      *float64 `json:"oreb"`
	DReb      *float64 `json:"dreb"`
	Rebounds  *float64 `json:"rebounds"`
	Assists   *float64 `json:"assists"`
	Steals    *float64 `json:"steals"`
	Blocks    *float64 `json:"blocks"`
	Turnovers *float64 `json:"turnovers"`
	Fouls     *float64 `json:"fouls"`

	Advanced

	IsMultiTeam    bool           `json:"is_multi_team"`
	TeamsPlayedFor []string       `json:"teams_played_for"`
	StatsByTeam    []TeamStatLine `json:"stats_by_team"`
}

// Advanced holds the advanced-table fields. All are null when the player has
// no advanced row.
type Advanced struct {
	PER     *float64 `json:"per"`
	TSPct   *float64 `json:"ts_pct"`
	EFGPct  *float64 `json:"efg_pct"`
	USGPct  *float64 `json:"usg_pct"`
	WS      *float64 `json:"ws"`
	WSPer48 *float64 `json:"ws_per_48"`
	BPM     *float64 `json:"bpm"`
	OBPM    *float64 `json:"obpm"`
	DBPM    *float64 `json:"dbpm"`
	VORP    *float64 `json:"vorp"`
	ORBPct  *float64 `json:"orb_pct"`
	DRBPct  *float64 `json:"drb_pct"`
	TRBPct  *float64 `json:"trb_pct"`
	ASTPct  *float64 `json:"ast_pct"`
	STLPct  *float64 `json:"stl_pct"`
	BLKPct  *float64 `json:"blk_pct"`
	TOVPct  *float64 `json:"tov_pct"`
	OWS     *float64 `json:"ows"`
	DWS     *float64 `json:"dws"`
}

func rowTeam(r records.StatRow) string {
	if t := r.Str("Team"); t != "" {
		return t
	}
	return r.Str("Tm")
}

func advancedFrom(r records.StatRow) Advanced {
	if r == nil {
		return Advanced{}
	}
	return Advanced{
		PER:     r.FloatPtr("PER"),
		TSPct:   r.FloatPtr("TS%"),
		EFGPct:  r.FloatPtr("eFG%"),
		USGPct:  r.FloatPtr("USG%"),
		WS:      r.FloatPtr("WS"),
		WSPer48: r.FloatPtr("WS/48"),
		BPM:     r.FloatPtr("BPM"),
		OBPM:    r.FloatPtr("OBPM"),
		DBPM:    r.FloatPtr("DBPM"),
		VORP:    r.FloatPtr("VORP"),
		ORBPct:  r.FloatPtr("ORB%"),
		DRBPct:  r.FloatPtr("DRB%"),
		TRBPct:  r.FloatPtr("TRB%"),
		ASTPct:  r.FloatPtr("AST%"),
		STLPct:  r.FloatPtr("STL%"),
		BLKPct:  r.FloatPtr("BLK%"),
		TOVPct:  r.FloatPtr("TOV%"),
		OWS:     r.FloatPtr("OWS"),
		DWS:     r.FloatPtr("DWS"),
	}
}

func statLine(r records.StatRow) TeamStatLine {
	return TeamStatLine{
		TeamAbbreviation: NormalizeTeam(rowTeam(r)),
		GamesPlayed:      r.FloatPtr("G"),
		GamesStarted:     r.FloatPtr("GS"),
		Minutes:          r.FloatPtr("MP"),
		Points:           r.FloatPtr("PTS"),
		Rebounds:         r.FloatPtr("TRB"),
		Assists:          r.FloatPtr("AST"),
		Steals:           r.FloatPtr("STL"),
		Blocks:           r.FloatPtr("BLK"),
		Turnovers:        r.FloatPtr("TOV"),
		FGPct:            r.FloatPtr("FG%"),
		FG3Pct:           r.FloatPtr("3P%"),
		FTPct:            r.FloatPtr("FT%"),
	}
}

func primaryFrom(name string, r records.StatRow) EnrichedPlayerStat {
	var team *string
	if t := rowTeam(r); t != "" {
		team = records.Ptr(NormalizeTeam(t))
	}
	return EnrichedPlayerStat{
		PlayerName:       name,
		Age:              r.FloatPtr("Age"),
		TeamAbbreviation: team,
		Position:         r.StrPtr("Pos"),
		GamesPlayed:      r.FloatPtr("G"),
		GamesStarted:     r.FloatPtr("GS"),
		Minutes:          r.FloatPtr("MP"),
		Points:           r.FloatPtr("PTS"),
		FGM:              r.FloatPtr("FG"),
		FGA:              r.FloatPtr("FGA"),
		FGPct:            r.FloatPtr("FG%"),
		FG3M:             r.FloatPtr("3P"),
		FG3A:             r.FloatPtr("3PA"),
		FG3Pct:           r.FloatPtr("3P%"),
		FG2M:             r.FloatPtr("2P"),
		FG2A:             r.FloatPtr("2PA"),
		FG2Pct:           r.FloatPtr("2P%"),
		FTM:              r.FloatPtr("FT"),
		FTA:              r.FloatPtr("FTA"),
		FTPct:            r.FloatPtr("FT%"),
		OReb:             r.FloatPtr("ORB"),
		DReb:             r.FloatPtr("DRB"),
		Rebounds:         r.FloatPtr("TRB"),
		Assists:          r.FloatPtr("AST"),
		Steals:           r.FloatPtr("STL"),
		Blocks:           r.FloatPtr("BLK"),
		Turnovers:        r.FloatPtr("TOV"),
		Fouls:            r.FloatPtr("PF"),
	}
}

type playerRows struct {
	name string
	rows []records.StatRow
}

// groupByPlayer groups rows by normalized name, keeping first-seen order.
// The league average row and nameless rows are dropped.
func groupByPlayer(rows []records.StatRow) []*playerRows {
	var order []*playerRows
	idx := map[string]*playerRows{}
	for _, r := range rows {
		name := r.Player()
		if name == "" || name == records.LeagueAverage {
			continue
		}
		key := NormalizeName(name)
		g, ok := idx[key]
		if !ok {
			g = &playerRows{name: name}
			idx[key] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, r)
	}
	return order
}

// advancedLookup picks one advanced row per player: the aggregate row when
// present, otherwise the first row seen.
func advancedLookup(rows []records.StatRow) map[string]records.StatRow {
	out := map[string]records.StatRow{}
	for _, g := range groupByPlayer(rows) {
		pick := g.rows[0]
		for _, r := range g.rows {
			if IsAggregateMarker(rowTeam(r)) {
				pick = r
				break
			}
		}
		out[NormalizeName(g.name)] = pick
	}
	return out
}

// EnrichStats merges per-game and advanced rows into one record per player.
func EnrichStats(snap *records.StatsSnapshot) []EnrichedPlayerStat {
	if snap == nil || len(snap.PerGameStats) == 0 {
		return nil
	}
	adv := advancedLookup(snap.AdvancedStats)

	out := make([]EnrichedPlayerStat, 0, len(snap.PerGameStats))
	for _, g := range groupByPlayer(snap.PerGameStats) {
		var agg records.StatRow
		var parts []records.StatRow
		for _, r := range g.rows {
			if agg == nil && IsAggregateMarker(rowTeam(r)) {
				agg = r
				continue
			}
			parts = append(parts, r)
		}

		primary := agg
		if primary == nil {
			// a single row, or several untagged rows from a malformed page
			primary = parts[0]
		}
		e := primaryFrom(g.name, primary)
		e.IsMultiTeam = agg != nil

		// A breakdown line must name a team, and each team appears once, so
		// stats_by_team and teams_played_for stay the same length.
		e.StatsByTeam = make([]TeamStatLine, 0, len(parts))
		e.TeamsPlayedFor = []string{}
		seen := map[string]bool{}
		for _, r := range parts {
			line := statLine(r)
			if line.TeamAbbreviation == "" || seen[line.TeamAbbreviation] {
				continue
			}
			seen[line.TeamAbbreviation] = true
			e.StatsByTeam = append(e.StatsByTeam, line)
			e.TeamsPlayedFor = append(e.TeamsPlayedFor, line.TeamAbbreviation)
		}

		e.Advanced = advancedFrom(adv[NormalizeName(g.name)])
		if e.EFGPct == nil {
			// per-game pages carry eFG%; advanced pages usually do not
			e.EFGPct = primary.FloatPtr("eFG%")
		}
		out = append(out, e)
	}
	return out
}
