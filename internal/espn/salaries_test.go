package espn

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/nba-cap-etl/internal/bref"
	"github.com/tyler180/nba-cap-etl/internal/records"
)

var octNow = time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)

func TestPageURL(t *testing.T) {
	tests := []struct {
		season string
		page   int
		want   string
	}{
		{"2022-23", 1, "https://www.espn.com/nba/salaries/_/year/2023"},
		{"2022-23", 2, "https://www.espn.com/nba/salaries/_/year/2023/page/2"},
		{"2024-25", 1, "https://www.espn.com/nba/salaries/_/year/2025"},
		{"2025-26", 1, "https://www.espn.com/nba/salaries"},
		{"2025-26", 3, "https://www.espn.com/nba/salaries/_/page/3"},
	}
	for _, tt := range tests {
		got, err := PageURL(tt.season, tt.page, octNow)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s p%d", tt.season, tt.page)
	}
	assert.Equal(t, 2025, CurrentSeasonEndYear(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func salaryPage(rows ...string) string {
	var b strings.Builder
	b.WriteString(`<html><table><tr class="colhead"><td>RK</td><td>NAME</td><td>TEAM</td><td>SALARY</td></tr>`)
	for _, r := range rows {
		b.WriteString(r)
	}
	b.WriteString(`</table></html>`)
	return b.String()
}

func row(rk int, name, team, sal string) string {
	return fmt.Sprintf(`<tr><td>%d</td><td><a href="#">%s</a></td><td>%s</td><td>%s</td></tr>`, rk, name, team, sal)
}

func TestParseSalaryPage(t *testing.T) {
	html := salaryPage(
		row(1, "Stephen Curry, G", "Golden State Warriors", "$55,761,216"),
		`<tr><td>RK</td><td>NAME</td><td>TEAM</td><td>SALARY</td></tr>`,
		row(2, "Nikola Jokic, C", "Denver Nuggets", "$51,415,938"),
		row(3, "Mystery Man, F", "Nowhere", "n/a"),
	)
	got, found, skipped := ParseSalaryPage(html, "2024-25")
	require.True(t, found)
	require.Len(t, got, 2)
	assert.Equal(t, "Stephen Curry", *got[0].PlayerName)
	assert.Equal(t, 55761216.0, *got[0].AnnualSalary)
	assert.Equal(t, "2024-25", *got[0].Season)
	assert.Equal(t, "espn", *got[1].Source)
	assert.Len(t, skipped, 1)

	_, found, _ = ParseSalaryPage("<html><p>nothing</p></html>", "2024-25")
	assert.False(t, found)
}

func TestParseDollars(t *testing.T) {
	n, err := ParseDollars("$48,000,000")
	require.NoError(t, err)
	assert.EqualValues(t, 48000000, n)
	_, err = ParseDollars("TBD")
	assert.Error(t, err)
}

func TestFetchSalaries_StopsOnEmptyPage(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/p1":
			_, _ = w.Write([]byte(salaryPage(row(1, "A One, G", "X", "$1,000,000"), row(2, "B Two, F", "Y", "$2,000,000"))))
		case "/p2":
			_, _ = w.Write([]byte(salaryPage(row(3, "C Three, C", "Z", "$3,000,000"))))
		default:
			_, _ = w.Write([]byte(salaryPage()))
		}
	}))
	defer srv.Close()

	c := bref.NewClient(5*time.Second, 0, bref.RetryConfig{MaxAttempts: 1}, nil)
	c.HTTP.Transport = rewrite{base: srv.URL}

	file, err := FetchSalaries(context.Background(), c, "2022-23", octNow, 0)
	require.NoError(t, err)
	assert.Equal(t, "espn", *file.Source)
	assert.Empty(t, file.Error)

	got, bad := records.DecodeEach[records.RawSalary](file.Salaries)
	require.Empty(t, bad)
	require.Len(t, got, 3)
	assert.Equal(t, "C Three", *got[2].PlayerName)
	assert.Equal(t, []string{"/p1", "/p2", "/p3"}, paths)
}

// rewrite maps ESPN page URLs onto the test server as /p{N}.
type rewrite struct{ base string }

func (rw rewrite) RoundTrip(r *http.Request) (*http.Response, error) {
	page := "1"
	if i := strings.LastIndex(r.URL.Path, "/page/"); i >= 0 {
		page = r.URL.Path[i+len("/page/"):]
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, rw.base+"/p"+page, nil)
	if err != nil {
		return nil, err
	}
	req.Header = r.Header
	return http.DefaultTransport.RoundTrip(req)
}
