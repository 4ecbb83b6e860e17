package pipeline

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionRoundTrip(t *testing.T) {
	ts := time.Date(2024, 2, 7, 23, 59, 0, 0, time.FixedZone("x", -5*3600))
	p := PartitionFor(ts)
	assert.Equal(t, "year=2024/month=02/day=08", p)

	back, err := ParsePartition(p)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 8, 0, 0, 0, 0, time.UTC), back)

	_, err = ParsePartition("2024/02/08")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	p := "year=2024/month=02/day=17"
	assert.Equal(t, "raw/stats/year=2024/month=02/day=17/league_player_stats.json", RawStatsKey(p))
	assert.Equal(t, "raw/players/year=2024/month=02/day=17/active_players.json", RawKey(CategoryPlayers, p))
	assert.Equal(t, "raw/teams/year=2024/month=02/day=17/nba_teams.json", RawKey(CategoryTeams, p))
	assert.Equal(t, "raw/salaries/year=2024/month=02/day=17/player_salaries.json", RawKey(CategorySalaries, p))
	assert.Equal(t, "validation/year=2024/month=02/day=17/validation_report.json", ValidationReportKey(p))
	assert.Equal(t, "transformed/stats/year=2024/month=02/day=17/enriched_player_stats.json", EnrichedStatsKey(p))
	assert.Equal(t, "transformed/salaries/year=2024/month=02/day=17/enriched_salaries.json", EnrichedSalariesKey(p))
	assert.Equal(t, "transformed/teams/year=2024/month=02/day=17/enriched_teams.json", EnrichedTeamsKey(p))
}

func TestRequirement(t *testing.T) {
	req := Requirement(ModeStatsOnly)
	assert.True(t, req[CategoryStats])
	assert.False(t, req[CategoryPlayers])
	assert.False(t, req[CategorySalaries])

	for _, m := range []FetchMode{ModeMonthly, ModeFull} {
		for _, c := range Categories {
			assert.True(t, Requirement(m)[c], "%s/%s", m, c)
		}
	}
}

func TestParseFetchMode(t *testing.T) {
	m, err := ParseFetchMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStatsOnly, m)

	m, err = ParseFetchMode("Monthly")
	require.NoError(t, err)
	assert.Equal(t, ModeMonthly, m)

	_, err = ParseFetchMode("weekly")
	assert.Error(t, err)
}

func TestOutcome(t *testing.T) {
	assert.True(t, Success(nil).OK())
	assert.Equal(t, 200, Success(nil).StatusCode)

	r := Rejection(422, "Validation failed", nil)
	assert.False(t, r.OK())
	assert.Equal(t, "rejected", r.Status.String())

	f := Failure(500, errors.New("boom"), nil)
	assert.Equal(t, "boom", f.Message)
	assert.Equal(t, Failed, f.Status)
}
