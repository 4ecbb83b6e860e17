package espn

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/bref"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
)

const (
	baseURL  = "https://www.espn.com/nba/salaries"
	maxPages = 14
)

// CurrentSeasonEndYear is the ending year of the season in progress at now.
// Seasons start in October.
func CurrentSeasonEndYear(now time.Time) int {
	if now.Month() >= time.October {
		return now.Year() + 1
	}
	return now.Year()
}

// PageURL builds the listing URL. Past seasons need the /_/year/{end} form;
// the current season is only served from the bare listing.
func PageURL(season string, page int, now time.Time) (string, error) {
	end, err := bref.EndYear(season)
	if err != nil {
		return "", err
	}
	if end < CurrentSeasonEndYear(now) {
		u := fmt.Sprintf("%s/_/year/%d", baseURL, end)
		if page > 1 {
			u += fmt.Sprintf("/page/%d", page)
		}
		return u, nil
	}
	if page > 1 {
		return fmt.Sprintf("%s/_/page/%d", baseURL, page), nil
	}
	return baseURL, nil
}

// ParseSalaryPage returns the salaries on one listing page. found is false when
// the page has no table at all.
func ParseSalaryPage(html, season string) (salaries []records.RawSalary, found bool, skipped []string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false, nil
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, false, nil
	}

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := tr.Find("td")
		if cells.Length() < 4 {
			return
		}
		// [RK, NAME, TEAM, SALARY]
		name := strings.TrimSpace(cells.Eq(1).Text())
		if j := strings.IndexByte(name, ','); j >= 0 {
			name = strings.TrimSpace(name[:j])
		}
		salText := strings.TrimSpace(cells.Eq(3).Text())
		switch strings.ToUpper(salText) {
		case "SALARY", "SAL", "":
			return
		}
		amount, err := ParseDollars(salText)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %q", name, salText))
			return
		}
		if name == "" || amount <= 0 {
			return
		}
		salaries = append(salaries, records.RawSalary{
			PlayerName:   records.Ptr(name),
			AnnualSalary: records.Ptr(float64(amount)),
			Season:       records.Ptr(season),
			Source:       records.Ptr(records.SourceESPN),
		})
	})
	return salaries, true, skipped
}

// ParseDollars parses "$48,000,000".
func ParseDollars(s string) (int64, error) {
	clean := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "salary %q", s)
	}
	return n, nil
}

// FetchSalaries walks the listing until a page has no table or no rows.
// A page that fails to load ends the walk; what was collected is kept.
func FetchSalaries(ctx context.Context, c *bref.Client, season string, now time.Time, pageDelay time.Duration) (*records.SalaryFile, error) {
	var all []records.RawSalary
	var fetchErr error

	for page := 1; page <= maxPages; page++ {
		url, err := PageURL(season, page, now)
		if err != nil {
			return nil, err
		}
		if err := c.Pause(ctx, pageDelay); err != nil {
			return nil, err
		}
		c.Logger.Info("fetching salary page", "page", page, "url", url)

		html, err := c.GetText(ctx, url, "")
		if err != nil {
			c.Logger.Warn("salary page failed", "page", page, "err", err)
			if page == 1 {
				fetchErr = err
			}
			break
		}
		rows, found, skipped := ParseSalaryPage(html, season)
		for _, s := range skipped {
			c.Logger.Warn("could not parse salary", "cell", s)
		}
		if !found {
			c.Logger.Info("no table found, stopping", "page", page)
			break
		}
		if len(rows) == 0 {
			c.Logger.Info("no more data", "page", page)
			break
		}
		all = append(all, rows...)
		c.Logger.Info("salary page parsed", "page", page, "salaries", len(rows))
	}

	out := &records.SalaryFile{
		FetchTimestamp: records.Ptr(pipeline.Timestamp(now)),
		Source:         records.Ptr(records.SourceESPN),
		Salaries:       make([]json.RawMessage, 0, len(all)),
	}
	if fetchErr != nil {
		out.Error = fetchErr.Error()
	}
	for _, s := range all {
		raw, err := records.Marshal(s)
		if err != nil {
			return nil, errors.Wrap(err, "encode salary")
		}
		out.Salaries = append(out.Salaries, raw)
	}
	c.Logger.Info("salaries fetched", "total", len(all))
	return out, nil
}
