package validate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
)

const (
	maxReasonableSalary = 80_000_000
	minReasonableSalary = 500_000
	leagueTotalLow      = 3_500_000_000
	leagueTotalHigh     = 7_000_000_000
)

type salariesInput struct {
	top      map[string]json.RawMessage
	file     records.SalaryFile
	salaries []records.RawSalary
	now      time.Time
}

// SalaryRules is the ordered rule table for raw/salaries.
var SalaryRules = []Rule[salariesInput]{
	{
		Name: "schema", Severity: Error, Halt: true,
		Check: func(in *salariesInput, _ *Report) []string {
			for _, k := range []string{"fetch_timestamp", "source", "salaries"} {
				if _, ok := in.top[k]; !ok {
					return []string{fmt.Sprintf("'%s' is a required property", k)}
				}
			}
			if err := unmarshalMember(in.top["fetch_timestamp"], &in.file.FetchTimestamp); err != nil {
				return []string{fmt.Sprintf("fetch_timestamp: %v", err)}
			}
			if err := unmarshalMember(in.top["source"], &in.file.Source); err != nil {
				return []string{fmt.Sprintf("source: %v", err)}
			}
			if err := unmarshalMember(in.top["salaries"], &in.file.Salaries); err != nil {
				return []string{fmt.Sprintf("salaries: %v", err)}
			}
			switch {
			case in.file.FetchTimestamp == nil:
				return []string{"fetch_timestamp: required"}
			case in.file.Source == nil:
				return []string{"source: required"}
			}
			for i, raw := range in.file.Salaries {
				var s records.RawSalary
				if err := unmarshalMember(raw, &s); err != nil {
					return []string{fmt.Sprintf("salaries[%d]: %v", i, err)}
				}
				if msg := checkStruct(s); msg != "" {
					return []string{fmt.Sprintf("salaries[%d]: %s", i, msg)}
				}
				in.salaries = append(in.salaries, s)
			}
			return nil
		},
	},
	{
		Name: "future_timestamp", Severity: Warning,
		Check: func(in *salariesInput, _ *Report) []string {
			if t, ok := parseTimestamp(records.Deref(in.file.FetchTimestamp)); ok && t.After(in.now) {
				return []string{"Fetch timestamp is in the future"}
			}
			return nil
		},
	},
	{
		Name: "empty", Severity: Warning,
		Check: func(in *salariesInput, r *Report) []string {
			r.Statistics["salary_count"] = len(in.salaries)
			r.Statistics["total_salaries"] = 0.0
			if len(in.salaries) == 0 && records.Deref(in.file.Source) != records.SourcePlaceholder {
				return []string{"No salary data found"}
			}
			return nil
		},
	},
	{
		Name: "max_salary", Severity: Warning,
		Check: func(in *salariesInput, r *Report) []string {
			if len(in.salaries) == 0 {
				return nil
			}
			lo, hi, sum := salaryRange(in.salaries)
			r.Statistics["min_salary"] = lo
			r.Statistics["max_salary"] = hi
			r.Statistics["avg_salary"] = sum / float64(len(in.salaries))
			r.Statistics["total_salaries"] = sum
			if hi > maxReasonableSalary {
				return []string{"Unusually high salary found: " + dollars(hi)}
			}
			return nil
		},
	},
	{
		Name: "min_salary", Severity: Warning,
		Check: func(in *salariesInput, _ *Report) []string {
			if len(in.salaries) == 0 {
				return nil
			}
			if lo, _, _ := salaryRange(in.salaries); lo < minReasonableSalary {
				return []string{"Below minimum salary found: " + dollars(lo)}
			}
			return nil
		},
	},
	{
		Name: "league_total", Severity: Warning,
		Check: func(in *salariesInput, _ *Report) []string {
			if len(in.salaries) == 0 {
				return nil
			}
			_, _, sum := salaryRange(in.salaries)
			switch {
			case sum < leagueTotalLow:
				return []string{fmt.Sprintf("Total league salaries unusually low: %s (expected >$3.5B for 30 teams)", dollars(sum))}
			case sum > leagueTotalHigh:
				return []string{fmt.Sprintf("Total league salaries unusually high: %s (expected <$7B for 30 teams)", dollars(sum))}
			}
			return nil
		},
	},
	{
		Name: "duplicate_player_season", Severity: Error,
		Check: func(in *salariesInput, _ *Report) []string {
			type key struct{ name, season string }
			keys := make([]key, 0, len(in.salaries))
			for _, s := range in.salaries {
				keys = append(keys, key{*s.PlayerName, *s.Season})
			}
			if d := duplicates(keys); d > 0 {
				return []string{fmt.Sprintf("Found %d duplicate salary entries for same player/season", d)}
			}
			return nil
		},
	},
	{
		Name: "contract_years", Severity: Warning,
		Check: func(in *salariesInput, _ *Report) []string {
			n := 0
			for _, s := range in.salaries {
				if s.ContractYears != nil && (*s.ContractYears < 1 || *s.ContractYears > 5) {
					n++
				}
			}
			if n > 0 {
				return []string{fmt.Sprintf("Found %d players with unusual contract years (expected 1-5 years)", n)}
			}
			return nil
		},
	},
	{
		Name: "season_years", Severity: Warning,
		Check: func(in *salariesInput, _ *Report) []string {
			maxYear := in.now.Year() + 1
			n := 0
			for _, s := range in.salaries {
				if *s.Season == "" {
					continue
				}
				y, ok := seasonStartYear(*s.Season)
				if !ok || y < 1946 || y > maxYear {
					n++
				}
			}
			if n > 0 {
				return []string{fmt.Sprintf("Found %d players with invalid season years (expected 1946-%d)", n, maxYear)}
			}
			return nil
		},
	},
}

func salaryRange(ss []records.RawSalary) (lo, hi, sum float64) {
	for i, s := range ss {
		v := *s.AnnualSalary
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
		sum += v
	}
	return lo, hi, sum
}

// ValidateSalaries runs SalaryRules over a raw salaries document.
func ValidateSalaries(raw []byte, now time.Time) (*Report, error) {
	top, err := topLevel(raw)
	if err != nil {
		return nil, err
	}
	in := &salariesInput{top: top, now: now.UTC()}
	r := newReport(string(pipeline.CategorySalaries))
	Apply(SalaryRules, in, r)
	return r, nil
}
