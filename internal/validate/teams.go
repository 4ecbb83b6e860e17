package validate

import (
	"encoding/json"
	"fmt"

	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
)

type teamsInput struct {
	hasKey  bool
	teams   []*records.RawTeam
	invalid []string
}

func newTeamsInput(top map[string]json.RawMessage) (*teamsInput, error) {
	in := &teamsInput{}
	raw, ok := top["teams"]
	if !ok {
		return in, nil
	}
	in.hasKey = true
	var f records.TeamsFile
	if err := unmarshalMember(raw, &f.Teams); err != nil {
		return nil, err
	}
	in.teams = make([]*records.RawTeam, len(f.Teams))
	for i, r := range f.Teams {
		var t records.RawTeam
		if err := unmarshalMember(r, &t); err != nil {
			in.invalid = append(in.invalid, fmt.Sprintf("Team %d: %v", i, err))
			continue
		}
		in.teams[i] = &t
		if msg := checkStruct(t); msg != "" {
			name := records.Deref(t.FullName)
			if name == "" {
				name = "Unknown"
			}
			in.invalid = append(in.invalid, fmt.Sprintf("Team %s: %s", name, msg))
		}
	}
	return in, nil
}

// TeamRules is the ordered rule table for raw/teams.
var TeamRules = []Rule[teamsInput]{
	{
		Name: "teams_key", Severity: Error, Halt: true,
		Check: func(in *teamsInput, r *Report) []string {
			if !in.hasKey {
				return []string{"Missing 'teams' key in data"}
			}
			r.Statistics["total_teams"] = len(in.teams)
			return nil
		},
	},
	{
		Name: "count", Severity: Warning,
		Check: func(in *teamsInput, _ *Report) []string {
			if len(in.teams) != 30 {
				return []string{fmt.Sprintf("Unexpected team count: %d (expected 30)", len(in.teams))}
			}
			return nil
		},
	},
	{
		Name: "schema", Severity: Error,
		Check: func(in *teamsInput, _ *Report) []string { return in.invalid },
	},
	{
		Name: "duplicate_ids", Severity: Error,
		Check: func(in *teamsInput, _ *Report) []string {
			var ids []int64
			for _, t := range in.teams {
				if t != nil && t.ID != nil {
					ids = append(ids, *t.ID)
				}
			}
			if d := duplicates(ids); d > 0 {
				return []string{fmt.Sprintf("Found %d duplicate team IDs", d)}
			}
			return nil
		},
	},
	{
		Name: "duplicate_abbreviations", Severity: Error,
		Check: func(in *teamsInput, _ *Report) []string {
			var abbrs []string
			for _, t := range in.teams {
				if t != nil && t.Abbreviation != nil {
					abbrs = append(abbrs, *t.Abbreviation)
				}
			}
			if d := duplicates(abbrs); d > 0 {
				return []string{fmt.Sprintf("Found %d duplicate team abbreviations", d)}
			}
			return nil
		},
	},
}

func ValidateTeams(raw []byte) (*Report, error) {
	top, err := topLevel(raw)
	if err != nil {
		return nil, err
	}
	r := newReport(string(pipeline.CategoryTeams))
	in, err := newTeamsInput(top)
	if err != nil {
		r.add("teams_key", Error, "Invalid teams structure: "+err.Error())
		return r, nil
	}
	Apply(TeamRules, in, r)
	return r, nil
}
