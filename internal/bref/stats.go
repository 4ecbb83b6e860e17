package bref

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
)

const baseURL = "https://www.basketball-reference.com"

var (
	seasonRe = regexp.MustCompile(`^(\d{4})-(\d{2}|\d{4})$`)
	wsRe     = regexp.MustCompile(`\s+`)
)

// textColumns never hold numbers even when a cell looks numeric.
var textColumns = map[string]bool{"Player": true, "Team": true, "Tm": true, "Pos": true, "Awards": true}

// EndYear converts a season label like "2025-26" to its ending year (2026).
func EndYear(season string) (int, error) {
	m := seasonRe.FindStringSubmatch(strings.TrimSpace(season))
	if m == nil {
		return 0, errors.Newf("invalid season %q (want YYYY-YY)", season)
	}
	end := m[2]
	if len(end) == 2 {
		end = m[1][:2] + end
	}
	y, _ := strconv.Atoi(end)
	start, _ := strconv.Atoi(m[1])
	if y < start {
		// "1999-00"
		y += 100
	}
	return y, nil
}

func PerGameURL(endYear int) string {
	return fmt.Sprintf("%s/leagues/NBA_%d_per_game.html", baseURL, endYear)
}

func AdvancedURL(endYear int) string {
	return fmt.Sprintf("%s/leagues/NBA_%d_advanced.html", baseURL, endYear)
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// ParseStatsTable reads the first stats table on a league page.
// Column order follows the header; repeated in-body header rows are dropped.
func ParseStatsTable(html string) ([]string, []records.StatRow, error) {
	// BR often ships tables inside comments
	clean := strings.ReplaceAll(html, "<!--", "")
	clean = strings.ReplaceAll(clean, "-->", "")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse html")
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, nil, errors.New("no stats table found")
	}

	head := table.Find("thead tr").Last()
	if head.Length() == 0 {
		return nil, nil, errors.New("stats table has no header")
	}
	var (
		cols    []string
		byIndex = map[int]string{}
		seen    = map[string]bool{}
	)
	head.Children().Each(func(i int, cell *goquery.Selection) {
		name := cleanText(cell.Text())
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		byIndex[i] = name
		cols = append(cols, name)
	})

	rows := make([]records.StatRow, 0, 800)
	table.Find("tbody tr, tfoot tr").Each(func(_ int, tr *goquery.Selection) {
		if strings.Contains(tr.AttrOr("class", ""), "thead") {
			return
		}
		row := records.StatRow{}
		tr.Children().Each(func(i int, cell *goquery.Selection) {
			name, ok := byIndex[i]
			if !ok {
				return
			}
			row[name] = cellValue(name, cleanText(cell.Text()))
		})
		if len(row) == 0 {
			return
		}
		if p := row.Player(); p == "" || p == "Player" {
			return
		}
		rows = append(rows, row)
	})
	return cols, rows, nil
}

func cellValue(col, txt string) any {
	if txt == "" {
		return nil
	}
	if textColumns[col] {
		return txt
	}
	if f, err := strconv.ParseFloat(txt, 64); err == nil {
		return f
	}
	return txt
}

// FetchSeasonStats scrapes per-game and advanced tables for one season.
func FetchSeasonStats(ctx context.Context, c *Client, season string, now time.Time, pageDelay time.Duration) (*records.StatsSnapshot, error) {
	end, err := EndYear(season)
	if err != nil {
		return nil, err
	}

	pgURL := PerGameURL(end)
	c.Logger.Info("fetching per-game stats", "url", pgURL, "season", season)
	html, err := c.GetText(ctx, pgURL, baseURL+"/")
	if err != nil {
		return nil, errors.Wrap(err, "per-game stats")
	}
	pgCols, pgRows, err := ParseStatsTable(html)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", pgURL)
	}

	if err := c.Pause(ctx, pageDelay); err != nil {
		return nil, err
	}

	advURL := AdvancedURL(end)
	c.Logger.Info("fetching advanced stats", "url", advURL, "season", season)
	html, err = c.GetText(ctx, advURL, pgURL)
	if err != nil {
		return nil, errors.Wrap(err, "advanced stats")
	}
	advCols, advRows, err := ParseStatsTable(html)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", advURL)
	}

	c.Logger.Info("fetched season stats", "per_game", len(pgRows), "advanced", len(advRows))
	return &records.StatsSnapshot{
		Season:          records.Ptr(season),
		FetchTimestamp:  records.Ptr(pipeline.Timestamp(now)),
		Source:          records.Ptr(records.SourceBasketballReference),
		PerGameStats:    pgRows,
		AdvancedStats:   advRows,
		PerGameColumns:  pgCols,
		AdvancedColumns: advCols,
	}, nil
}
