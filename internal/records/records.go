// Package records holds the typed raw snapshots written by fetch and read by validate and enrich.
package records

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	SourceBasketballReference = "basketball_reference"
	SourceESPN                = "espn"
	SourcePlaceholder         = "placeholder"

	LeagueAverage = "League Average"
)

type RawPlayer struct {
	ID        *int64  `json:"id" validate:"required"`
	FullName  *string `json:"full_name" validate:"required,min=1"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

// PlayersFile keeps records undecoded so one bad record does not hide the rest.
type PlayersFile struct {
	Players []json.RawMessage `json:"players"`
}

type RawTeam struct {
	ID           *int64  `json:"id" validate:"required"`
	FullName     *string `json:"full_name" validate:"required,min=1"`
	Abbreviation *string `json:"abbreviation" validate:"required,min=2,max=4"`
	Nickname     string  `json:"nickname,omitempty"`
	City         string  `json:"city,omitempty"`
	State        string  `json:"state,omitempty"`
	YearFounded  *int    `json:"year_founded,omitempty" validate:"omitempty,min=1946"`
}

type TeamsFile struct {
	Teams []json.RawMessage `json:"teams"`
}

type RawSalary struct {
	PlayerName    *string  `json:"player_name" validate:"required"`
	AnnualSalary  *float64 `json:"annual_salary" validate:"required,min=0"`
	Season        *string  `json:"season" validate:"required"`
	Source        *string  `json:"source" validate:"required"`
	ContractYears *float64 `json:"contract_years,omitempty"`
}

type SalaryFile struct {
	FetchTimestamp *string           `json:"fetch_timestamp" validate:"required"`
	Source         *string           `json:"source" validate:"required"`
	Error          string            `json:"error,omitempty"`
	Salaries       []json.RawMessage `json:"salaries" validate:"required"`
}

// StatsSnapshot is one season of per-game and advanced rows scraped together.
type StatsSnapshot struct {
	Season          *string   `json:"season" validate:"required"`
	FetchTimestamp  *string   `json:"fetch_timestamp" validate:"required"`
	Source          *string   `json:"source" validate:"required"`
	PerGameStats    []StatRow `json:"per_game_stats" validate:"required"`
	AdvancedStats   []StatRow `json:"advanced_stats" validate:"required"`
	PerGameColumns  []string  `json:"per_game_columns" validate:"required"`
	AdvancedColumns []string  `json:"advanced_columns" validate:"required"`
}

// DecodeEach decodes every raw element; failures are reported per index.
func DecodeEach[T any](raws []json.RawMessage) ([]T, map[int]error) {
	out := make([]T, 0, len(raws))
	var bad map[int]error
	for i, r := range raws {
		var v T
		if err := sonic.ConfigStd.Unmarshal(r, &v); err != nil {
			if bad == nil {
				bad = map[int]error{}
			}
			bad[i] = err
			continue
		}
		out = append(out, v)
	}
	return out, bad
}

// Marshal wraps a typed record back into a raw element.
func Marshal(v any) (json.RawMessage, error) {
	b, err := sonic.ConfigStd.Marshal(v)
	return json.RawMessage(b), err
}

func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func Ptr[T any](v T) *T { return &v }

// StatRow is one scraped table row: column name to string, number or null.
type StatRow map[string]any

func (r StatRow) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// IsNull treats absent, JSON null and empty string alike.
func (r StatRow) IsNull(col string) bool {
	v, ok := r[col]
	if !ok || v == nil {
		return true
	}
	s, isStr := v.(string)
	return isStr && strings.TrimSpace(s) == ""
}

func (r StatRow) Str(col string) string {
	switch v := r[col].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// Float returns the numeric value of col; strings are parsed leniently.
func (r StatRow) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// FloatPtr is Float with null mapped to nil.
func (r StatRow) FloatPtr(col string) *float64 {
	if r.IsNull(col) {
		return nil
	}
	f, ok := r.Float(col)
	if !ok {
		return nil
	}
	return &f
}

func (r StatRow) StrPtr(col string) *string {
	if r.IsNull(col) {
		return nil
	}
	s := r.Str(col)
	return &s
}

// Player returns the row's player display name.
func (r StatRow) Player() string { return r.Str("Player") }

// Without returns a copy of the row minus the named columns.
func (r StatRow) Without(cols ...string) StatRow {
	out := make(StatRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, c := range cols {
		delete(out, c)
	}
	return out
}
