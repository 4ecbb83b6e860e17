package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
)

const (
	minStatRows        = 300
	maxCountDiff       = 0.025
	maxMissingDataRate = 0.05
	awardsColumn       = "Awards"
)

var seasonPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

var statsRequired = []string{
	"season", "fetch_timestamp", "source",
	"per_game_stats", "advanced_stats", "per_game_columns", "advanced_columns",
}

var keyColumns = []string{"Player", "Pos", "Age", "Team", "G", "MP"}

// pctDependencies lists each percentage column with the attempt columns that
// must all be zero or null for the percentage to be null.
var pctDependencies = []struct {
	col  string
	deps []string
}{
	{"FG%", []string{"FGA"}},
	{"3P%", []string{"3PA"}},
	{"2P%", []string{"2PA"}},
	{"FT%", []string{"FTA"}},
	{"eFG%", []string{"FGA"}},
	{"TS%", []string{"FGA", "FTA"}},
	{"3PAr", []string{"FGA"}},
	{"FTr", []string{"FGA"}},
}

var statLimits = []struct {
	col  string
	max  float64
	name string
}{
	{"PTS", 80, "points per game"},
	{"TRB", 30, "total rebounds per game"},
	{"AST", 25, "assists per game"},
	{"MP", 60, "minutes per game"},
	{"STL", 10, "steals per game"},
	{"BLK", 10, "blocks per game"},
	{"TOV", 15, "turnovers per game"},
	{"FG%", 1, "field goal percentage"},
	{"3P%", 1, "three-point percentage"},
	{"FT%", 1, "free throw percentage"},
}

var (
	expectedPerGame  = []string{"Player", "Pos", "Age", "Team", "G", "MP", "PTS", "TRB", "AST"}
	expectedAdvanced = []string{"Player", "Pos", "Age", "Team", "G", "MP", "PER"}
)

type statsInput struct {
	top  map[string]json.RawMessage
	snap records.StatsSnapshot
	now  time.Time
}

func (in *statsInput) perGame() []records.StatRow  { return in.snap.PerGameStats }
func (in *statsInput) advanced() []records.StatRow { return in.snap.AdvancedStats }

// StatsRules is the ordered rule table for raw/stats. Rules after schema see
// rows with the league average row and the Awards column removed.
var StatsRules = []Rule[statsInput]{
	{
		Name: "schema", Severity: Error, Halt: true,
		Check: func(in *statsInput, _ *Report) []string {
			for _, k := range statsRequired {
				if _, ok := in.top[k]; !ok {
					return []string{fmt.Sprintf("'%s' is a required property", k)}
				}
			}
			s := &in.snap
			dsts := []any{
				&s.Season, &s.FetchTimestamp, &s.Source,
				&s.PerGameStats, &s.AdvancedStats, &s.PerGameColumns, &s.AdvancedColumns,
			}
			for i, k := range statsRequired {
				if err := unmarshalMember(in.top[k], dsts[i]); err != nil {
					return []string{fmt.Sprintf("%s: %v", k, err)}
				}
			}
			for _, k := range []string{"per_game_stats", "advanced_stats", "per_game_columns", "advanced_columns"} {
				if isNullJSON(in.top[k]) {
					return []string{fmt.Sprintf("%s: None is not of type 'array'", k)}
				}
			}
			switch {
			case s.Season == nil || !seasonPattern.MatchString(*s.Season):
				return []string{fmt.Sprintf("season: %q does not match '^\\d{4}-\\d{2}$'", records.Deref(s.Season))}
			case s.FetchTimestamp == nil:
				return []string{"fetch_timestamp: required"}
			case records.Deref(s.Source) != records.SourceBasketballReference:
				return []string{fmt.Sprintf("source: %q is not one of ['basketball_reference']", records.Deref(s.Source))}
			}
			filterSnapshot(s)
			return nil
		},
	},
	{
		Name: "season_sanity", Severity: Warning,
		Check: func(in *statsInput, _ *Report) []string {
			var out []string
			cur := in.now.Year()
			if y, ok := seasonStartYear(*in.snap.Season); ok {
				if y < 1946 {
					out = append(out, fmt.Sprintf("Season year %d is before NBA founding (1946)", y))
				} else if y > cur+1 {
					out = append(out, fmt.Sprintf("Season year %d is in the future (current: %d)", y, cur))
				}
			}
			if t, ok := parseTimestamp(*in.snap.FetchTimestamp); ok && t.After(in.now) {
				out = append(out, "Fetch timestamp is in the future")
			}
			return out
		},
	},
	{
		Name: "min_rows", Severity: Warning,
		Check: func(in *statsInput, r *Report) []string {
			pg, adv := len(in.perGame()), len(in.advanced())
			r.Statistics["total_players_per_game"] = pg
			r.Statistics["total_players_advanced"] = adv
			r.Statistics["per_game_columns"] = len(in.snap.PerGameColumns)
			r.Statistics["advanced_columns"] = len(in.snap.AdvancedColumns)

			var out []string
			if pg < minStatRows {
				out = append(out, fmt.Sprintf("Low player count in per-game stats: %d (expected %d+)", pg, minStatRows))
			}
			if adv < minStatRows {
				out = append(out, fmt.Sprintf("Low player count in advanced stats: %d (expected %d+)", adv, minStatRows))
			}
			return out
		},
	},
	{
		Name: "count_mismatch", Severity: Warning,
		Check: func(in *statsInput, r *Report) []string {
			pg, adv := len(in.perGame()), len(in.advanced())
			if pg == 0 || adv == 0 {
				return nil
			}
			diff := math.Abs(float64(pg-adv)) / float64(max(pg, adv))
			if diff <= maxCountDiff {
				return nil
			}
			r.Statistics["player_count_diff_pct"] = math.Round(diff*100*100) / 100
			return []string{fmt.Sprintf(
				"Player count mismatch: %d per-game vs %d advanced (%.1f%% difference, expected within 2.5%%)",
				pg, adv, diff*100)}
		},
	},
	{
		Name: "missing_data", Severity: Warning,
		Check: func(in *statsInput, r *Report) []string {
			rows := in.perGame()
			if len(rows) == 0 {
				return nil
			}
			n := countMissing(rows)
			r.Statistics["players_with_missing_data"] = n
			if n == 0 {
				return nil
			}
			return []string{fmt.Sprintf("Found %d/%d players with missing data in key columns", n, len(rows))}
		},
	},
	{
		Name: "missing_data_rate", Severity: Error,
		Check: func(in *statsInput, _ *Report) []string {
			rows := in.perGame()
			if len(rows) == 0 {
				return nil
			}
			n := countMissing(rows)
			if float64(n) <= float64(len(rows))*maxMissingDataRate {
				return nil
			}
			return []string{fmt.Sprintf(
				"CRITICAL: High missing data rate: %d/%d players (%.1f%%) exceeds 5%% threshold",
				n, len(rows), float64(n)/float64(len(rows))*100)}
		},
	},
	{
		Name: "null_percentages", Severity: Error,
		Check: func(in *statsInput, r *Report) []string { return nullPercentages(in.perGame(), r) },
	},
	{
		Name: "stat_ranges", Severity: Warning,
		Check: func(in *statsInput, r *Report) []string {
			var bad []string
			for i, row := range in.perGame() {
				for _, lim := range statLimits {
					if !row.Has(lim.col) || isBlank(row[lim.col]) {
						continue
					}
					v, ok := row.Float(lim.col)
					if !ok {
						continue
					}
					if v < 0 || v > lim.max {
						bad = append(bad, fmt.Sprintf("%s: %s = %s (expected 0-%s)",
							playerLabel(row, i), lim.name, num(v), num(lim.max)))
					}
				}
			}
			if len(bad) == 0 {
				return nil
			}
			r.Statistics["unrealistic_stat_values"] = len(bad)
			return []string{fmt.Sprintf("Found %d unrealistic stat values (first few: %s)",
				len(bad), strings.Join(bad[:min(3, len(bad))], ", "))}
		},
	},
	{
		Name: "null_percentages_advanced", Severity: Error,
		Check: func(in *statsInput, r *Report) []string { return nullPercentages(in.advanced(), r) },
	},
	{
		Name: "expected_columns", Severity: Error,
		Check: func(in *statsInput, _ *Report) []string {
			var out []string
			if len(in.perGame()) > 0 && len(in.snap.PerGameColumns) > 0 {
				if miss := missingColumns(expectedPerGame, in.snap.PerGameColumns); len(miss) > 0 {
					out = append(out, "Missing expected per-game columns: "+strings.Join(miss, ", "))
				}
			}
			if len(in.advanced()) > 0 && len(in.snap.AdvancedColumns) > 0 {
				if miss := missingColumns(expectedAdvanced, in.snap.AdvancedColumns); len(miss) > 0 {
					out = append(out, "Missing expected advanced columns: "+strings.Join(miss, ", "))
				}
			}
			return out
		},
	},
}

// ValidateStats runs StatsRules over a raw stats snapshot.
func ValidateStats(raw []byte, now time.Time) (*Report, error) {
	top, err := topLevel(raw)
	if err != nil {
		return nil, err
	}
	in := &statsInput{top: top, now: now.UTC()}
	r := newReport(string(pipeline.CategoryStats))
	Apply(StatsRules, in, r)
	return r, nil
}

// filterSnapshot drops the league average row and the Awards column.
func filterSnapshot(s *records.StatsSnapshot) {
	s.PerGameStats = filterRows(s.PerGameStats)
	s.AdvancedStats = filterRows(s.AdvancedStats)
	s.PerGameColumns = slices.DeleteFunc(slices.Clone(s.PerGameColumns), isAwards)
	s.AdvancedColumns = slices.DeleteFunc(slices.Clone(s.AdvancedColumns), isAwards)
}

func isAwards(c string) bool { return c == awardsColumn }

func filterRows(rows []records.StatRow) []records.StatRow {
	out := make([]records.StatRow, 0, len(rows))
	for _, r := range rows {
		if r.Player() == records.LeagueAverage {
			continue
		}
		if r.Has(awardsColumn) {
			r = r.Without(awardsColumn)
		}
		out = append(out, r)
	}
	return out
}

func countMissing(rows []records.StatRow) int {
	n := 0
	for _, row := range rows {
		for _, c := range keyColumns {
			if row.Has(c) && isBlank(row[c]) {
				n++
				break
			}
		}
	}
	return n
}

func nullPercentages(rows []records.StatRow, r *Report) []string {
	var bad []string
	for i, row := range rows {
		for _, pd := range pctDependencies {
			if !row.Has(pd.col) || !isBlank(row[pd.col]) {
				continue
			}
			present := true
			for _, d := range pd.deps {
				if !row.Has(d) {
					present = false
					break
				}
			}
			if !present {
				continue
			}
			var nonZero []string
			for _, d := range pd.deps {
				if !zeroOrNull(row[d]) {
					nonZero = append(nonZero, fmt.Sprintf("%s=%v", d, row[d]))
				}
			}
			if len(nonZero) > 0 {
				bad = append(bad, fmt.Sprintf("%s: %s is null but %s",
					playerLabel(row, i), pd.col, strings.Join(nonZero, ", ")))
			}
		}
	}
	if len(bad) == 0 {
		return nil
	}
	r.Statistics["invalid_null_percentages"] = len(bad)
	return []string{fmt.Sprintf("Found %d players with invalid null percentages (first few: %s)",
		len(bad), strings.Join(bad[:min(5, len(bad))], ", "))}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func zeroOrNull(v any) bool {
	if isBlank(v) {
		return true
	}
	switch x := v.(type) {
	case float64:
		return x == 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return err == nil && f == 0
	}
	return false
}

func playerLabel(row records.StatRow, i int) string {
	if p := row.Player(); p != "" {
		return p
	}
	return fmt.Sprintf("Player %d", i)
}

func missingColumns(want, have []string) []string {
	var miss []string
	for _, c := range want {
		if !slices.Contains(have, c) {
			miss = append(miss, c)
		}
	}
	return miss
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
