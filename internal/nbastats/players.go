// Package nbastats reads the active player list from stats.nba.com.
package nbastats

import (
	"context"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/bref"
	"github.com/tyler180/nba-cap-etl/internal/records"
)

const (
	statsBase = "https://stats.nba.com/stats/commonallplayers"
	referer   = "https://www.nba.com/"
)

// Headers stats.nba.com expects; requests without them hang.
var Headers = map[string]string{
	"Accept":             "application/json, text/plain, */*",
	"Origin":             "https://www.nba.com",
	"x-nba-stats-origin": "stats",
	"x-nba-stats-token":  "true",
}

func CommonAllPlayersURL(season string) string {
	q := url.Values{}
	q.Set("LeagueID", "00")
	q.Set("Season", season)
	q.Set("IsOnlyCurrentSeason", "1")
	return statsBase + "?" + q.Encode()
}

type resultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

type response struct {
	ResultSets []resultSet `json:"resultSets"`
}

// ParseCommonAllPlayers returns the active players in a commonallplayers payload.
func ParseCommonAllPlayers(body []byte) ([]records.RawPlayer, error) {
	var resp response
	if err := sonic.ConfigStd.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode commonallplayers")
	}
	if len(resp.ResultSets) == 0 {
		return nil, errors.New("commonallplayers: no result sets")
	}
	rs := resp.ResultSets[0]
	idx := make(map[string]int, len(rs.Headers))
	for i, h := range rs.Headers {
		idx[h] = i
	}
	for _, need := range []string{"PERSON_ID", "DISPLAY_FIRST_LAST"} {
		if _, ok := idx[need]; !ok {
			return nil, errors.Newf("commonallplayers: missing header %s", need)
		}
	}

	cell := func(row []any, col string) any {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}

	var out []records.RawPlayer
	for _, row := range rs.RowSet {
		// ROSTERSTATUS is 1 for active; absent means the feed already filtered
		active := true
		if v, ok := cell(row, "ROSTERSTATUS").(float64); ok {
			active = v == 1
		}
		if !active {
			continue
		}
		id, ok := cell(row, "PERSON_ID").(float64)
		if !ok {
			continue
		}
		full, _ := cell(row, "DISPLAY_FIRST_LAST").(string)
		full = strings.TrimSpace(full)
		if full == "" {
			continue
		}
		p := records.RawPlayer{
			ID:       records.Ptr(int64(id)),
			FullName: records.Ptr(full),
			IsActive: records.Ptr(true),
		}
		if lc, _ := cell(row, "DISPLAY_LAST_COMMA_FIRST").(string); lc != "" {
			if last, first, ok := strings.Cut(lc, ","); ok {
				p.LastName = strings.TrimSpace(last)
				p.FirstName = strings.TrimSpace(first)
			} else {
				p.LastName = strings.TrimSpace(lc)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// Fetch pulls the active player list for a season.
func Fetch(ctx context.Context, c *bref.Client, season string) ([]records.RawPlayer, error) {
	nc := *c
	nc.Headers = Headers
	u := CommonAllPlayersURL(season)
	c.Logger.Info("fetching active players", "url", u)
	body, err := nc.GetText(ctx, u, referer)
	if err != nil {
		return nil, errors.Wrap(err, "commonallplayers")
	}
	players, err := ParseCommonAllPlayers([]byte(body))
	if err != nil {
		return nil, err
	}
	c.Logger.Info("active players fetched", "count", len(players))
	return players, nil
}
