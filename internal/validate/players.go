package validate

import (
	"encoding/json"
	"fmt"

	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
)

type playersInput struct {
	hasKey  bool
	raws    []json.RawMessage
	players []*records.RawPlayer // nil where the record did not decode
	invalid []string
}

func newPlayersInput(top map[string]json.RawMessage) (*playersInput, error) {
	in := &playersInput{}
	raw, ok := top["players"]
	if !ok {
		return in, nil
	}
	in.hasKey = true
	var f records.PlayersFile
	if err := unmarshalMember(raw, &f.Players); err != nil {
		return nil, err
	}
	in.raws = f.Players
	in.players = make([]*records.RawPlayer, len(f.Players))
	for i, r := range f.Players {
		var p records.RawPlayer
		if err := unmarshalMember(r, &p); err != nil {
			in.invalid = append(in.invalid, fmt.Sprintf("Player %d: %v", i, err))
			continue
		}
		in.players[i] = &p
		if msg := checkStruct(p); msg != "" {
			in.invalid = append(in.invalid, fmt.Sprintf("Player %d: %s", i, msg))
		}
	}
	return in, nil
}

const maxPlayerErrors = 10

// PlayerRules is the ordered rule table for raw/players.
var PlayerRules = []Rule[playersInput]{
	{
		Name: "players_key", Severity: Error, Halt: true,
		Check: func(in *playersInput, r *Report) []string {
			if !in.hasKey {
				return []string{"Missing 'players' key in data"}
			}
			r.Statistics["total_players"] = len(in.raws)
			return nil
		},
	},
	{
		Name: "schema", Severity: Error,
		Check: func(in *playersInput, r *Report) []string {
			if len(in.invalid) == 0 {
				return nil
			}
			r.Statistics["invalid_players"] = len(in.invalid)
			if len(in.invalid) > maxPlayerErrors {
				return in.invalid[:maxPlayerErrors]
			}
			return in.invalid
		},
	},
	{
		Name: "count_range", Severity: Warning,
		Check: func(in *playersInput, _ *Report) []string {
			n := len(in.raws)
			switch {
			case n < 400:
				return []string{fmt.Sprintf("Low player count: %d (expected 450+)", n)}
			case n > 600:
				return []string{fmt.Sprintf("High player count: %d (expected ~450-550)", n)}
			}
			return nil
		},
	},
	{
		Name: "duplicate_ids", Severity: Error,
		Check: func(in *playersInput, r *Report) []string {
			var ids []int64
			for _, p := range in.players {
				if p != nil && p.ID != nil {
					ids = append(ids, *p.ID)
				}
			}
			if d := duplicates(ids); d > 0 {
				r.Statistics["duplicate_players"] = d
				return []string{fmt.Sprintf("Found %d duplicate player IDs", d)}
			}
			return nil
		},
	},
}

// ValidatePlayers runs PlayerRules over a raw players document.
func ValidatePlayers(raw []byte) (*Report, error) {
	top, err := topLevel(raw)
	if err != nil {
		return nil, err
	}
	r := newReport(string(pipeline.CategoryPlayers))
	in, err := newPlayersInput(top)
	if err != nil {
		r.add("players_key", Error, "Invalid players structure: "+err.Error())
		return r, nil
	}
	Apply(PlayerRules, in, r)
	return r, nil
}

// duplicates counts entries beyond the first occurrence of each value.
func duplicates[K comparable](vals []K) int {
	seen := make(map[K]struct{}, len(vals))
	for _, v := range vals {
		seen[v] = struct{}{}
	}
	return len(vals) - len(seen)
}
