package nbastats

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/nba-cap-etl/internal/bref"
)

const payload = `{"resultSets":[{"name":"CommonAllPlayers",
 "headers":["PERSON_ID","DISPLAY_LAST_COMMA_FIRST","DISPLAY_FIRST_LAST","ROSTERSTATUS","TEAM_ABBREVIATION"],
 "rowSet":[
  [203999,"Jokić, Nikola","Nikola Jokić",1,"DEN"],
  [201939,"Curry, Stephen","Stephen Curry",1,"GSW"],
  [2544,"James, LeBron","LeBron James",0,""],
  [1630000,"Nene","Nene",1,"HOU"]
 ]}]}`

func TestCommonAllPlayersURL(t *testing.T) {
	assert.Equal(t,
		"https://stats.nba.com/stats/commonallplayers?IsOnlyCurrentSeason=1&LeagueID=00&Season=2025-26",
		CommonAllPlayersURL("2025-26"))
}

func TestParseCommonAllPlayers(t *testing.T) {
	got, err := ParseCommonAllPlayers([]byte(payload))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.EqualValues(t, 203999, *got[0].ID)
	assert.Equal(t, "Nikola Jokić", *got[0].FullName)
	assert.Equal(t, "Nikola", got[0].FirstName)
	assert.Equal(t, "Jokić", got[0].LastName)
	assert.True(t, *got[0].IsActive)

	assert.Equal(t, "Nene", got[2].LastName)
	assert.Empty(t, got[2].FirstName)
}

func TestParseCommonAllPlayers_Errors(t *testing.T) {
	_, err := ParseCommonAllPlayers([]byte(`{"resultSets":[]}`))
	assert.Error(t, err)
	_, err = ParseCommonAllPlayers([]byte(`{"resultSets":[{"headers":["X"],"rowSet":[]}]}`))
	assert.ErrorContains(t, err, "PERSON_ID")
	_, err = ParseCommonAllPlayers([]byte(`not json`))
	assert.Error(t, err)
}

func TestFetchSendsStatsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := bref.NewClient(5*time.Second, 0, bref.RetryConfig{MaxAttempts: 1}, nil)
	c.HTTP.Transport = redirectAll{target: srv.URL}

	players, err := Fetch(context.Background(), c, "2025-26")
	require.NoError(t, err)
	assert.Len(t, players, 3)
	assert.Equal(t, "stats", got.Get("x-nba-stats-origin"))
	assert.Equal(t, "https://www.nba.com/", got.Get("Referer"))
	assert.Nil(t, c.Headers, "caller's client must not be mutated")
}

type redirectAll struct{ target string }

func (r redirectAll) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := http.NewRequestWithContext(req.Context(), req.Method, r.target+req.URL.Path, nil)
	if err != nil {
		return nil, err
	}
	out.Header = req.Header
	return http.DefaultTransport.RoundTrip(out)
}
