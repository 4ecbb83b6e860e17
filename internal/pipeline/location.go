package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// DataLocation points a stage at one date partition of the data bucket.
type DataLocation struct {
	Bucket    string `json:"bucket"`
	Partition string `json:"partition"`
}

func (d *DataLocation) Empty() bool {
	return d == nil || strings.TrimSpace(d.Partition) == ""
}

// PartitionFor returns the hive-style date partition for t in UTC.
func PartitionFor(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("year=%04d/month=%02d/day=%02d", t.Year(), int(t.Month()), t.Day())
}

// ParsePartition is the inverse of PartitionFor.
func ParsePartition(p string) (time.Time, error) {
	var y, m, d int
	if _, err := fmt.Sscanf(p, "year=%d/month=%d/day=%d", &y, &m, &d); err != nil {
		return time.Time{}, errors.Wrapf(err, "parse partition %q", p)
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, errors.Newf("partition %q out of range", p)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}

type Category string

const (
	CategoryStats    Category = "stats"
	CategoryPlayers  Category = "players"
	CategoryTeams    Category = "teams"
	CategorySalaries Category = "salaries"
)

// Categories is the fixed validation order.
var Categories = []Category{CategoryStats, CategoryPlayers, CategoryTeams, CategorySalaries}

func RawStatsKey(p string) string {
	return "raw/stats/" + p + "/league_player_stats.json"
}

func RawPlayersKey(p string) string {
	return "raw/players/" + p + "/active_players.json"
}

func RawTeamsKey(p string) string {
	return "raw/teams/" + p + "/nba_teams.json"
}

func RawSalariesKey(p string) string {
	return "raw/salaries/" + p + "/player_salaries.json"
}

func ValidationReportKey(p string) string {
	return "validation/" + p + "/validation_report.json"
}

func EnrichedSalariesKey(p string) string {
	return "transformed/salaries/" + p + "/enriched_salaries.json"
}

func EnrichedStatsKey(p string) string {
	return "transformed/stats/" + p + "/enriched_player_stats.json"
}

func EnrichedTeamsKey(p string) string {
	return "transformed/teams/" + p + "/enriched_teams.json"
}

func EnrichedStatsParquetKey(p string) string {
	return "transformed/stats_parquet/" + p + "/enriched_player_stats.parquet"
}

// RawKey returns the raw snapshot key for a category.
func RawKey(c Category, p string) string {
	switch c {
	case CategoryStats:
		return RawStatsKey(p)
	case CategoryPlayers:
		return RawPlayersKey(p)
	case CategoryTeams:
		return RawTeamsKey(p)
	case CategorySalaries:
		return RawSalariesKey(p)
	}
	return ""
}
