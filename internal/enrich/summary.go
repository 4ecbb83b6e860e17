package enrich

import (
	"math"
	"reflect"
	"slices"
)

// Statistics is the run summary handed to load. Sections whose inputs were
// absent are omitted.
type Statistics struct {
	SalaryMatchRate   *float64 `json:"salary_match_rate,omitempty"`
	TotalSalaries     *int     `json:"total_salaries,omitempty"`
	MatchedSalaries   *int     `json:"matched_salaries,omitempty"`
	UnmatchedSalaries *int     `json:"unmatched_salaries,omitempty"`
	AvgSalary         *float64 `json:"avg_salary,omitempty"`
	MinSalary         *float64 `json:"min_salary,omitempty"`
	MaxSalary         *float64 `json:"max_salary,omitempty"`
	TotalSalaryCap    *float64 `json:"total_salary_cap,omitempty"`

	TotalPlayerStats   *int     `json:"total_player_stats,omitempty"`
	AvgPointsPerGame   *float64 `json:"avg_points_per_game,omitempty"`
	AvgReboundsPerGame *float64 `json:"avg_rebounds_per_game,omitempty"`
	AvgAssistsPerGame  *float64 `json:"avg_assists_per_game,omitempty"`

	LeagueTotalPayroll *float64 `json:"league_total_payroll,omitempty"`
	AvgTeamPayroll     *float64 `json:"avg_team_payroll,omitempty"`
	MinTeamPayroll     *float64 `json:"min_team_payroll,omitempty"`
	MaxTeamPayroll     *float64 `json:"max_team_payroll,omitempty"`
}

// Summarize computes run statistics. A nil match means salaries were not enriched;
// a nil teams slice means teams were not enriched.
func Summarize(salaries []EnrichedSalary, match *MatchStats, stats []EnrichedPlayerStat, teams []EnrichedTeam) Statistics {
	var st Statistics

	if match != nil {
		st.SalaryMatchRate = ptr(match.Rate)
		st.TotalSalaries = ptr(match.Total)
		st.MatchedSalaries = ptr(match.Matched)
		st.UnmatchedSalaries = ptr(match.Unmatched)
		if len(salaries) > 0 {
			vals := make([]float64, len(salaries))
			var sum float64
			for i, s := range salaries {
				vals[i] = s.AnnualSalary
				sum += s.AnnualSalary
			}
			st.AvgSalary = ptr(round(sum/float64(len(vals)), 2))
			st.MinSalary = ptr(slices.Min(vals))
			st.MaxSalary = ptr(slices.Max(vals))
			st.TotalSalaryCap = ptr(sum)
		}
	}

	if len(stats) > 0 {
		st.TotalPlayerStats = ptr(len(stats))
		var n, pts, reb, ast float64
		for _, p := range stats {
			if p.Points == nil {
				continue
			}
			n++
			pts += *p.Points
			reb += orZero(p.Rebounds)
			ast += orZero(p.Assists)
		}
		if n > 0 {
			st.AvgPointsPerGame = ptr(round(pts/n, 2))
			st.AvgReboundsPerGame = ptr(round(reb/n, 2))
			st.AvgAssistsPerGame = ptr(round(ast/n, 2))
		}
	}

	if teams != nil {
		var sum float64
		payrolls := make([]float64, len(teams))
		for i, t := range teams {
			payrolls[i] = t.TotalPayroll
			sum += t.TotalPayroll
		}
		st.LeagueTotalPayroll = ptr(sum)
		if len(payrolls) > 0 {
			st.AvgTeamPayroll = ptr(round(sum/float64(len(payrolls)), 2))
			st.MinTeamPayroll = ptr(slices.Min(payrolls))
			st.MaxTeamPayroll = ptr(slices.Max(payrolls))
		} else {
			st.AvgTeamPayroll, st.MinTeamPayroll, st.MaxTeamPayroll = ptr(0.0), ptr(0.0), ptr(0.0)
		}
	}
	return st
}

func ptr[T any](v T) *T { return &v }

// ContainsNaN walks maps, slices, structs and pointers looking for a NaN float.
func ContainsNaN(v any) bool {
	return hasNaN(reflect.ValueOf(v))
}

func hasNaN(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return math.IsNaN(v.Float())
	case reflect.Pointer, reflect.Interface:
		return !v.IsNil() && hasNaN(v.Elem())
	case reflect.Slice:
		if v.IsNil() {
			return false
		}
		fallthrough
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if hasNaN(v.Index(i)) {
				return true
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if hasNaN(iter.Value()) {
				return true
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if hasNaN(v.Field(i)) {
				return true
			}
		}
	}
	return false
}
