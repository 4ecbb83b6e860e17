package catalog

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/pipeline"
)

const (
	EnrichedStatsTable = "enriched_player_stats"
	statsPrefix        = "transformed/stats_parquet/"
)

// BuildCreateEnrichedStatsTable returns the external table over the parquet export.
// Columns mirror store.StatsParquetRow.
func BuildCreateEnrichedStatsTable(db, bucket string) string {
	return fmt.Sprintf(`
CREATE EXTERNAL TABLE IF NOT EXISTS %s.%s (
  season            STRING,
  player_name       STRING,
  team_abbreviation STRING,
  position          STRING,
  is_multi_team     BOOLEAN,
  teams_played_for  STRING,
  age               DOUBLE,
  games_played      DOUBLE,
  games_started     DOUBLE,
  minutes           DOUBLE,
  points            DOUBLE,
  rebounds          DOUBLE,
  assists           DOUBLE,
  steals            DOUBLE,
  blocks            DOUBLE,
  turnovers         DOUBLE,
  fg_pct            DOUBLE,
  fg3_pct           DOUBLE,
  ft_pct            DOUBLE,
  per               DOUBLE,
  ts_pct            DOUBLE,
  usg_pct           DOUBLE,
  ws                DOUBLE,
  bpm               DOUBLE,
  vorp              DOUBLE
)
PARTITIONED BY (year STRING, month STRING, day STRING)
STORED AS PARQUET
LOCATION 's3://%s/%s'`, db, EnrichedStatsTable, bucket, statsPrefix)
}

// BuildAddPartition maps a year=/month=/day= partition onto its S3 prefix.
func BuildAddPartition(db, table, bucket, partition string) (string, error) {
	t, err := pipeline.ParsePartition(partition)
	if err != nil {
		return "", errors.Wrap(err, "partition")
	}
	return fmt.Sprintf(
		`ALTER TABLE %s.%s ADD IF NOT EXISTS PARTITION (year='%04d', month='%02d', day='%02d') LOCATION 's3://%s/%s%s/'`,
		db, table, t.Year(), int(t.Month()), t.Day(), bucket, statsPrefix, partition,
	), nil
}
