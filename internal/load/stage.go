package load

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/enrich"
	"github.com/tyler180/nba-cap-etl/internal/logging"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
	"github.com/tyler180/nba-cap-etl/internal/store"
)

var (
	ErrTransformGate = errors.New("transformation did not succeed")
	ErrStatsCritical = errors.New("No player stats data found - this is critical")
)

type Stage struct {
	Artifacts   *store.Artifacts
	DB          DB
	Ledger      *store.Ledger
	Environment string
	Logger      *logging.Logger
}

// Handle is the Lambda-facing wrapper around Run.
func (s *Stage) Handle(ctx context.Context, ev pipeline.LoadEvent) (pipeline.LoadResponse, error) {
	o := s.Run(ctx, ev)
	return o.Body.(pipeline.LoadResponse), nil
}

type artifacts struct {
	players  []records.RawPlayer
	salaries *enrich.SalariesDoc
	stats    *enrich.StatsDoc
	teams    *enrich.TeamsDoc
}

type loadResult struct {
	loaded map[string]int
	errs   []string
}

// Run upserts one partition inside a single transaction. Players, salaries and
// teams are best-effort behind savepoints; player stats are required. The
// outcome body is always a pipeline.LoadResponse.
func (s *Stage) Run(ctx context.Context, ev pipeline.LoadEvent) pipeline.Outcome {
	if !ev.TransformationSuccessful {
		s.Logger.Error("transformation failed upstream, skipping load")
		o := pipeline.Rejection(http.StatusBadRequest, "RDS load skipped due to transformation failure", pipeline.LoadResponse{
			StatusCode: http.StatusBadRequest,
			Body: pipeline.LoadBody{
				Loaded:  map[string]int{},
				Errors:  []string{},
				Error:   "Transformation failed",
				Message: "RDS load skipped due to transformation failure",
			},
		})
		o.Err = ErrTransformGate
		return o
	}
	if ev.DataLocation.Empty() {
		msg := "Missing data_location in event"
		return pipeline.Rejection(http.StatusBadRequest, msg, pipeline.LoadResponse{
			StatusCode: http.StatusBadRequest,
			Body:       pipeline.LoadBody{Loaded: map[string]int{}, Errors: []string{}, Error: msg},
		})
	}

	partition := ev.DataLocation.Partition
	log := s.Logger.With("partition", partition)
	res := &loadResult{loaded: map[string]int{}, errs: []string{}}

	existed, err := EnsureSchema(ctx, s.DB)
	if err != nil {
		return s.fail(ctx, partition, res, err)
	}
	if !existed {
		log.Info("created database schema")
	}

	arts := s.loadArtifacts(ctx, log, partition)

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return s.fail(ctx, partition, res, err)
	}
	if err := s.loadAll(ctx, log, tx, arts, res); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Error("rollback failed", "err", rbErr)
		} else {
			log.Error("transaction rolled back", "err", err)
		}
		res.loaded = map[string]int{}
		return s.fail(ctx, partition, res, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return s.fail(ctx, partition, res, errors.Wrap(err, "commit"))
	}
	log.Info("committed load", "loaded", res.loaded, "errors", len(res.errs))

	total := 0
	for _, n := range res.loaded {
		total += n
	}
	resp := pipeline.LoadResponse{
		StatusCode: http.StatusOK,
		Body: pipeline.LoadBody{
			Loaded: res.loaded,
			Errors: res.errs,
			Summary: &pipeline.LoadSummary{
				Environment:   s.Environment,
				Partition:     partition,
				RecordsLoaded: total,
				TablesUpdated: len(res.loaded),
				ErrorsCount:   len(res.errs),
			},
		},
		LoadSuccessful: len(res.errs) == 0,
		RecordsLoaded:  res.loaded,
	}
	o := pipeline.Success(resp)
	s.record(ctx, partition, o, res)
	return o
}

func (s *Stage) loadAll(ctx context.Context, log *logging.Logger, tx Tx, a *artifacts, res *loadResult) error {
	if len(a.players) > 0 {
		if err := bestEffort(ctx, tx, "players", "Players", res, func() (int, error) {
			return UpsertPlayers(ctx, tx, a.players)
		}); err != nil {
			return err
		}
	} else {
		log.Warn("no players data found, skipping players upsert")
	}

	if a.salaries != nil && len(a.salaries.Salaries) > 0 {
		if err := bestEffort(ctx, tx, "salaries", "Salaries", res, func() (int, error) {
			return UpsertSalaries(ctx, tx, a.salaries.Salaries)
		}); err != nil {
			return err
		}
	} else {
		log.Warn("no salaries data found, skipping salaries upsert")
	}

	if a.stats == nil || len(a.stats.PlayerStats) == 0 {
		res.errs = append(res.errs, ErrStatsCritical.Error())
		return ErrStatsCritical
	}
	n, err := UpsertPlayerStats(ctx, tx, a.stats.Season, a.stats.PlayerStats)
	if err != nil {
		res.errs = append(res.errs, fmt.Sprintf("Player stats upsert failed: %v", err))
		return err
	}
	res.loaded["player_stats"] = n

	if a.teams != nil && len(a.teams.Teams) > 0 {
		if err := bestEffort(ctx, tx, "teams", "Teams", res, func() (int, error) {
			return UpsertTeams(ctx, tx, a.teams.Teams)
		}); err != nil {
			return err
		}
	} else {
		log.Warn("no teams data found, skipping teams upsert")
	}
	return nil
}

// bestEffort runs fn inside a savepoint. A failing fn rolls back to the
// savepoint and is recorded; only savepoint bookkeeping errors are returned.
func bestEffort(ctx context.Context, tx Tx, name, label string, res *loadResult, fn func() (int, error)) error {
	sp := "sp_" + name
	if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
		return errors.Wrapf(err, "savepoint %s", sp)
	}
	n, err := fn()
	if err != nil {
		res.errs = append(res.errs, fmt.Sprintf("%s upsert failed: %v", label, err))
		if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
			return errors.Wrapf(rbErr, "rollback to savepoint %s", sp)
		}
		return nil
	}
	if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
		return errors.Wrapf(err, "release savepoint %s", sp)
	}
	res.loaded[name] = n
	return nil
}

func (s *Stage) loadArtifacts(ctx context.Context, log *logging.Logger, partition string) *artifacts {
	a := &artifacts{}

	var pf records.PlayersFile
	if s.get(ctx, log, pipeline.RawPlayersKey(partition), &pf) {
		a.players, _ = records.DecodeEach[records.RawPlayer](pf.Players)
	}
	var sal enrich.SalariesDoc
	if s.get(ctx, log, pipeline.EnrichedSalariesKey(partition), &sal) {
		a.salaries = &sal
	}
	var st enrich.StatsDoc
	if s.get(ctx, log, pipeline.EnrichedStatsKey(partition), &st) {
		a.stats = &st
	}
	var tm enrich.TeamsDoc
	if s.get(ctx, log, pipeline.EnrichedTeamsKey(partition), &tm) {
		a.teams = &tm
	}
	return a
}

func (s *Stage) get(ctx context.Context, log *logging.Logger, key string, v any) bool {
	if err := s.Artifacts.GetJSON(ctx, key, v); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("artifact not found", "key", key)
		} else {
			log.Error("failed to load artifact", "key", key, "err", err)
		}
		return false
	}
	return true
}

func (s *Stage) fail(ctx context.Context, partition string, res *loadResult, err error) pipeline.Outcome {
	s.Logger.Error("data load failed", "partition", partition, "err", err)
	body := pipeline.LoadBody{
		Loaded:  res.loaded,
		Errors:  res.errs,
		Error:   err.Error(),
		Message: "Data load to RDS failed",
	}
	o := pipeline.Failure(http.StatusInternalServerError, err, pipeline.LoadResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       body,
	})
	s.record(ctx, partition, o, res)
	return o
}

func (s *Stage) record(ctx context.Context, partition string, o pipeline.Outcome, res *loadResult) {
	if err := s.Ledger.RecordStage(ctx, partition, config.StageLoad, o); err != nil {
		s.Logger.Warn("ledger write failed", "err", err)
	}
	if err := s.Ledger.RecordCounts(ctx, partition, config.StageLoad, res.loaded); err != nil {
		s.Logger.Warn("ledger counts failed", "err", err)
	}
}
