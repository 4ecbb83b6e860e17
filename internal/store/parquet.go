package store

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"
)

const parquetContentType = "application/vnd.apache.parquet"

// StatsParquetRow is the flat columnar projection of one enriched player stat.
type StatsParquetRow struct {
	Season           string   `parquet:"season"`
	PlayerName       string   `parquet:"player_name"`
	TeamAbbreviation *string  `parquet:"team_abbreviation,optional"`
	Position         *string  `parquet:"position,optional"`
	IsMultiTeam      bool     `parquet:"is_multi_team"`
	TeamsPlayedFor   string   `parquet:"teams_played_for"`
	Age              *float64 `parquet:"age,optional"`
	GamesPlayed      *float64 `parquet:"games_played,optional"`
	GamesStarted     *float64 `parquet:"games_started,optional"`
	Minutes          *float64 `parquet:"minutes,optional"`
	Points           *float64 `parquet:"points,optional"`
	Rebounds         *float64 `parquet:"rebounds,optional"`
	Assists          *float64 `parquet:"assists,optional"`
	Steals           *float64 `parquet:"steals,optional"`
	Blocks           *float64 `parquet:"blocks,optional"`
	Turnovers        *float64 `parquet:"turnovers,optional"`
	FGPct            *float64 `parquet:"fg_pct,optional"`
	FG3Pct           *float64 `parquet:"fg3_pct,optional"`
	FTPct            *float64 `parquet:"ft_pct,optional"`
	PER              *float64 `parquet:"per,optional"`
	TSPct            *float64 `parquet:"ts_pct,optional"`
	USGPct           *float64 `parquet:"usg_pct,optional"`
	WS               *float64 `parquet:"ws,optional"`
	BPM              *float64 `parquet:"bpm,optional"`
	VORP             *float64 `parquet:"vorp,optional"`
}

// EncodeParquet writes rows as a Snappy-compressed parquet file.
func EncodeParquet[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	schema := parquet.SchemaOf(new(T))
	w := parquet.NewWriter(&buf, schema, parquet.Compression(&parquet.Snappy))
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			_ = w.Close()
			return nil, errors.Wrap(err, "write parquet row")
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "close parquet writer")
	}
	return buf.Bytes(), nil
}

// WriteStatsParquet uploads the columnar copy of enriched stats. Empty input writes nothing.
func WriteStatsParquet(ctx context.Context, a *Artifacts, key string, rows []StatsParquetRow) error {
	if len(rows) == 0 {
		return nil
	}
	b, err := EncodeParquet(rows)
	if err != nil {
		return err
	}
	return a.PutBytes(ctx, key, b, parquetContentType)
}
