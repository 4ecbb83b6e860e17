package enrich

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/logging"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
	"github.com/tyler180/nba-cap-etl/internal/store"
)

var (
	ErrValidationGate = errors.New("validation did not pass")
	ErrStatsMissing   = errors.New("player stats artifact missing")
	ErrNaN            = errors.New("NaN values detected in transformation output")
)

// Registrar adds a partition of the parquet copy to the query catalog.
type Registrar interface {
	Register(ctx context.Context, bucket, partition string) error
}

// SalariesDoc is written to transformed/salaries/{partition}/enriched_salaries.json.
type SalariesDoc struct {
	TransformTimestamp string           `json:"transform_timestamp"`
	Source             string           `json:"source"`
	Season             string           `json:"season"`
	Statistics         MatchStats       `json:"statistics"`
	Salaries           []EnrichedSalary `json:"salaries"`
}

type StatsDocStatistics struct {
	TotalPlayers int `json:"total_players"`
}

// StatsDoc is written to transformed/stats/{partition}/enriched_player_stats.json.
type StatsDoc struct {
	TransformTimestamp string               `json:"transform_timestamp"`
	Season             string               `json:"season"`
	Source             string               `json:"source"`
	Statistics         StatsDocStatistics   `json:"statistics"`
	PlayerStats        []EnrichedPlayerStat `json:"player_stats"`
}

type TeamsDocStatistics struct {
	TotalTeams         int     `json:"total_teams"`
	LeagueTotalPayroll float64 `json:"league_total_payroll"`
}

// TeamsDoc is written to transformed/teams/{partition}/enriched_teams.json.
type TeamsDoc struct {
	TransformTimestamp string             `json:"transform_timestamp"`
	Statistics         TeamsDocStatistics `json:"statistics"`
	Teams              []EnrichedTeam     `json:"teams"`
}

type Stage struct {
	Artifacts *store.Artifacts
	Ledger    *store.Ledger
	// Catalog is optional; it is only used when ParquetExport is set.
	Catalog       Registrar
	ParquetExport bool
	Environment   string
	Clock         pipeline.Clock
	Logger        *logging.Logger
}

// Handle is the Lambda-facing wrapper around Run.
func (s *Stage) Handle(ctx context.Context, ev pipeline.TransformEvent) (pipeline.TransformResponse, error) {
	o := s.Run(ctx, ev)
	return o.Body.(pipeline.TransformResponse), nil
}

type inputs struct {
	stats    *records.StatsSnapshot
	players  []records.RawPlayer
	teams    []records.RawTeam
	salaries []records.RawSalary
	salSrc   string
}

type outputs struct {
	salaries    []EnrichedSalary
	match       *MatchStats
	stats       []EnrichedPlayerStat
	teams       []EnrichedTeam
	statistics  Statistics
	transformed []string
	errs        []string
	warnings    []string
}

// Run enriches one partition. Every output is computed and checked for NaN
// before anything is written. The outcome body is always a pipeline.TransformResponse.
func (s *Stage) Run(ctx context.Context, ev pipeline.TransformEvent) pipeline.Outcome {
	if !ev.ValidationPassed {
		s.Logger.Warn("validation did not pass, skipping transform")
		o := pipeline.Rejection(http.StatusBadRequest, "Transformation skipped due to validation failure", pipeline.TransformResponse{
			StatusCode: http.StatusBadRequest,
			Body: pipeline.TransformBody{
				Transformed: []string{},
				Errors:      []string{},
				Error:       "Data validation failed",
				Message:     "Transformation skipped due to validation failure",
			},
		})
		o.Err = ErrValidationGate
		s.record(ctx, partitionOf(ev.DataLocation), o, nil)
		return o
	}
	if ev.DataLocation.Empty() {
		msg := "Missing data_location in event"
		return pipeline.Rejection(http.StatusBadRequest, msg, pipeline.TransformResponse{
			StatusCode: http.StatusBadRequest,
			Body:       pipeline.TransformBody{Transformed: []string{}, Errors: []string{}, Error: msg},
		})
	}

	partition := ev.DataLocation.Partition
	log := s.Logger.With("partition", partition)
	now := pipeline.Timestamp(s.Clock.Now())

	in, err := s.loadInputs(ctx, log, partition)
	if err != nil {
		o := pipeline.Failure(http.StatusInternalServerError, err, pipeline.TransformResponse{
			StatusCode: http.StatusInternalServerError,
			Body: pipeline.TransformBody{
				Transformed: []string{},
				Errors:      []string{"Failed to load player stats data"},
				Error:       "Failed to load player stats data",
			},
		})
		s.record(ctx, partition, o, nil)
		return o
	}

	out := s.enrichAll(log, in)

	if ContainsNaN(out.statistics) || ContainsNaN(out.salaries) || ContainsNaN(out.stats) || ContainsNaN(out.teams) {
		log.Error("NaN values detected in transformation output")
		o := pipeline.Failure(http.StatusBadRequest, ErrNaN, pipeline.TransformResponse{
			StatusCode: http.StatusBadRequest,
			Body: pipeline.TransformBody{
				Transformed: []string{},
				Errors:      []string{},
				Error:       "Invalid statistics",
				Message:     ErrNaN.Error(),
			},
		})
		s.record(ctx, partition, o, &out)
		return o
	}

	s.write(ctx, log, partition, now, in, &out)

	resp := pipeline.TransformResponse{
		StatusCode: http.StatusOK,
		Body: pipeline.TransformBody{
			Transformed: out.transformed,
			Errors:      out.errs,
			Warnings:    out.warnings,
			Summary: map[string]any{
				"timestamp":             now,
				"environment":           s.Environment,
				"partition":             partition,
				"successful_transforms": len(out.transformed),
				"errors_count":          len(out.errs),
			},
		},
		DataLocation:             ev.DataLocation,
		TransformationSuccessful: len(out.errs) == 0,
		Statistics:               out.statistics,
	}
	log.Info("transform complete", "transformed", len(out.transformed), "errors", len(out.errs))
	o := pipeline.Success(resp)
	s.record(ctx, partition, o, &out)
	return o
}

func (s *Stage) loadInputs(ctx context.Context, log *logging.Logger, partition string) (*inputs, error) {
	in := &inputs{}

	var snap records.StatsSnapshot
	if err := s.Artifacts.GetJSON(ctx, pipeline.RawStatsKey(partition), &snap); err != nil {
		log.Error("failed to load player stats", "err", err)
		return nil, errors.Mark(errors.Wrap(err, "load stats"), ErrStatsMissing)
	}
	in.stats = &snap

	var pf records.PlayersFile
	if err := s.Artifacts.GetJSON(ctx, pipeline.RawPlayersKey(partition), &pf); err != nil {
		logMissing(log, "players", err)
	} else {
		var bad map[int]error
		in.players, bad = records.DecodeEach[records.RawPlayer](pf.Players)
		logUndecodable(log, "players", bad)
	}

	var tf records.TeamsFile
	if err := s.Artifacts.GetJSON(ctx, pipeline.RawTeamsKey(partition), &tf); err != nil {
		logMissing(log, "teams", err)
	} else {
		var bad map[int]error
		in.teams, bad = records.DecodeEach[records.RawTeam](tf.Teams)
		logUndecodable(log, "teams", bad)
	}

	var sf records.SalaryFile
	if err := s.Artifacts.GetJSON(ctx, pipeline.RawSalariesKey(partition), &sf); err != nil {
		logMissing(log, "salaries", err)
	} else {
		var bad map[int]error
		in.salaries, bad = records.DecodeEach[records.RawSalary](sf.Salaries)
		logUndecodable(log, "salaries", bad)
		in.salSrc = records.Deref(sf.Source)
	}
	return in, nil
}

// logUndecodable reports records dropped because they did not decode.
func logUndecodable(log *logging.Logger, what string, bad map[int]error) {
	if len(bad) == 0 {
		return
	}
	first := -1
	for i := range bad {
		if first < 0 || i < first {
			first = i
		}
	}
	log.Warn("skipped undecodable records", "input", what, "count", len(bad), "first_index", first, "err", bad[first])
}

func logMissing(log *logging.Logger, what string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		log.Info("optional input not found", "input", what)
		return
	}
	log.Warn("optional input could not be loaded", "input", what, "err", err)
}

func (s *Stage) enrichAll(log *logging.Logger, in *inputs) outputs {
	out := outputs{transformed: []string{}, errs: []string{}}

	if len(in.salaries) > 0 && len(in.players) > 0 {
		sal, ms := MatchSalaries(in.salaries, in.players)
		out.salaries, out.match = sal, &ms
		log.Info("matched salaries", "matched", ms.Matched, "total", ms.Total)
	} else {
		out.warnings = append(out.warnings, "Skipping salary enrichment - missing salary or player data")
	}

	out.stats = EnrichStats(in.stats)
	if len(out.stats) == 0 {
		out.errs = append(out.errs, "Failed to enrich player stats")
	}

	if len(in.teams) > 0 {
		out.teams = EnrichTeams(in.teams, out.salaries, out.stats)
	} else {
		out.warnings = append(out.warnings, "Skipping team enrichment - missing team data")
	}

	out.statistics = Summarize(out.salaries, out.match, out.stats, out.teams)
	return out
}

func (s *Stage) write(ctx context.Context, log *logging.Logger, partition, now string, in *inputs, out *outputs) {
	if out.match != nil {
		doc := SalariesDoc{
			TransformTimestamp: now,
			Source:             orUnknown(in.salSrc),
			Season:             "unknown",
			Statistics:         *out.match,
			Salaries:           out.salaries,
		}
		if len(out.salaries) > 0 {
			doc.Season = orUnknown(out.salaries[0].Season)
		}
		s.put(ctx, log, pipeline.EnrichedSalariesKey(partition), doc, "enriched_salaries", "Failed to save enriched salaries", out)
	}

	season := orUnknown(records.Deref(in.stats.Season))
	if len(out.stats) > 0 {
		source := records.Deref(in.stats.Source)
		if source == "" {
			source = records.SourceBasketballReference
		}
		doc := StatsDoc{
			TransformTimestamp: now,
			Season:             season,
			Source:             source,
			Statistics:         StatsDocStatistics{TotalPlayers: len(out.stats)},
			PlayerStats:        out.stats,
		}
		if s.put(ctx, log, pipeline.EnrichedStatsKey(partition), doc, "enriched_player_stats", "Failed to save enriched stats", out) && s.ParquetExport {
			s.exportParquet(ctx, log, partition, season, out)
		}
	}

	if out.teams != nil {
		doc := TeamsDoc{
			TransformTimestamp: now,
			Statistics: TeamsDocStatistics{
				TotalTeams:         len(out.teams),
				LeagueTotalPayroll: records.Deref(out.statistics.LeagueTotalPayroll),
			},
			Teams: out.teams,
		}
		s.put(ctx, log, pipeline.EnrichedTeamsKey(partition), doc, "enriched_teams", "Failed to save enriched teams", out)
	}
}

func (s *Stage) put(ctx context.Context, log *logging.Logger, key string, v any, name, failMsg string, out *outputs) bool {
	if err := s.Artifacts.PutJSON(ctx, key, v); err != nil {
		log.Error("save failed", "key", key, "err", err)
		out.errs = append(out.errs, failMsg)
		return false
	}
	log.Info("saved", "key", key)
	out.transformed = append(out.transformed, name)
	return true
}

// exportParquet writes the columnar copy and registers its partition. Failures
// only warn; the JSON artifacts remain the contract with load.
func (s *Stage) exportParquet(ctx context.Context, log *logging.Logger, partition, season string, out *outputs) {
	key := pipeline.EnrichedStatsParquetKey(partition)
	if err := store.WriteStatsParquet(ctx, s.Artifacts, key, ParquetRows(season, out.stats)); err != nil {
		log.Warn("parquet export failed", "key", key, "err", err)
		out.warnings = append(out.warnings, "Parquet export failed")
		return
	}
	out.transformed = append(out.transformed, "enriched_player_stats_parquet")
	if s.Catalog == nil {
		return
	}
	if err := s.Catalog.Register(ctx, s.Artifacts.Bucket, partition); err != nil {
		log.Warn("catalog registration failed", "err", err)
		out.warnings = append(out.warnings, "Catalog partition registration failed")
	}
}

// ParquetRows flattens enriched stats into the columnar export schema.
func ParquetRows(season string, stats []EnrichedPlayerStat) []store.StatsParquetRow {
	rows := make([]store.StatsParquetRow, 0, len(stats))
	for _, p := range stats {
		rows = append(rows, store.StatsParquetRow{
			Season:           season,
			PlayerName:       p.PlayerName,
			TeamAbbreviation: p.TeamAbbreviation,
			Position:         p.Position,
			IsMultiTeam:      p.IsMultiTeam,
			TeamsPlayedFor:   strings.Join(p.TeamsPlayedFor, ","),
			Age:              p.Age,
			GamesPlayed:      p.GamesPlayed,
			GamesStarted:     p.GamesStarted,
			Minutes:          p.Minutes,
			Points:           p.Points,
			Rebounds:         p.Rebounds,
			Assists:          p.Assists,
			Steals:           p.Steals,
			Blocks:           p.Blocks,
			Turnovers:        p.Turnovers,
			FGPct:            p.FGPct,
			FG3Pct:           p.FG3Pct,
			FTPct:            p.FTPct,
			PER:              p.PER,
			TSPct:            p.TSPct,
			USGPct:           p.USGPct,
			WS:               p.WS,
			BPM:              p.BPM,
			VORP:             p.VORP,
		})
	}
	return rows
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func partitionOf(d *pipeline.DataLocation) string {
	if d == nil {
		return ""
	}
	return d.Partition
}

func (s *Stage) record(ctx context.Context, partition string, o pipeline.Outcome, out *outputs) {
	if partition == "" {
		return
	}
	if err := s.Ledger.RecordStage(ctx, partition, config.StageTransform, o); err != nil {
		s.Logger.Warn("ledger write failed", "err", err)
	}
	if out == nil {
		return
	}
	counts := map[string]int{
		"salaries": len(out.salaries),
		"players":  len(out.stats),
		"teams":    len(out.teams),
		"errors":   len(out.errs),
	}
	if err := s.Ledger.RecordCounts(ctx, partition, config.StageTransform, counts); err != nil {
		s.Logger.Warn("ledger counts failed", "err", err)
	}
}
