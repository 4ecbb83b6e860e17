package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tyler180/nba-cap-etl/internal/config"
	"github.com/tyler180/nba-cap-etl/internal/logging"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
	"github.com/tyler180/nba-cap-etl/internal/store"
)

type playersDoc struct {
	Players []records.RawPlayer `json:"players"`
}

type teamsDoc struct {
	Teams []records.RawTeam `json:"teams"`
}

type Stage struct {
	Artifacts *store.Artifacts
	Ledger    *store.Ledger

	Stats    StatsSource
	Salaries SalarySource
	Players  PlayerSource
	Teams    TeamSource

	DefaultSeason string
	Environment   string
	Clock         pipeline.Clock
	Logger        *logging.Logger
}

// Handle is the Lambda-facing wrapper around Run.
func (s *Stage) Handle(ctx context.Context, ev pipeline.FetchEvent) (pipeline.FetchResponse, error) {
	o := s.Run(ctx, ev)
	return o.Body.(pipeline.FetchResponse), nil
}

func reject(msg string) pipeline.Outcome {
	return pipeline.Rejection(http.StatusBadRequest, msg, pipeline.FetchResponse{
		StatusCode: http.StatusBadRequest,
		Fetched:    []string{},
		Errors:     []string{},
		Error:      msg,
	})
}

// Run fetches one partition. Per-source failures are collected into the
// response; the stage itself still reports 200.
func (s *Stage) Run(ctx context.Context, ev pipeline.FetchEvent) pipeline.Outcome {
	mode, err := pipeline.ParseFetchMode(ev.FetchType)
	if err != nil {
		return reject(err.Error())
	}
	season := strings.TrimSpace(ev.Season)
	if season == "" {
		season = s.DefaultSeason
	}
	now := s.Clock.Now()
	partition := pipeline.PartitionFor(now)
	if ev.Partition != "" {
		if _, err := pipeline.ParsePartition(ev.Partition); err != nil {
			return reject(err.Error())
		}
		partition = ev.Partition
	}
	log := s.Logger.With("partition", partition, "season", season, "fetch_type", string(mode))
	log.Info("starting fetch")

	fetched, errs := []string{}, []string{}
	save := func(key string, v any, name, failMsg string) {
		if err := s.Artifacts.PutJSON(ctx, key, v); err != nil {
			log.Error("save failed", "key", key, "err", err)
			errs = append(errs, failMsg)
			return
		}
		log.Info("saved", "key", key)
		fetched = append(fetched, name)
	}

	if mode.FetchesReference() {
		players, err := s.Players.FetchPlayers(ctx, season)
		if err != nil || len(players) == 0 {
			log.Error("active players fetch failed", "err", err)
			errs = append(errs, "Failed to fetch active players")
		} else {
			save(pipeline.RawPlayersKey(partition), playersDoc{Players: players}, "active_players", "Failed to save active players")
		}
	}

	snap, err := s.Stats.FetchStats(ctx, season)
	if err != nil || snap == nil {
		log.Error("player stats fetch failed", "err", err)
		errs = append(errs, "Failed to fetch player stats")
	} else {
		save(pipeline.RawStatsKey(partition), snap, "player_stats", "Failed to save player stats")
	}

	if mode.FetchesReference() {
		teams, err := s.Teams.FetchTeams(ctx)
		if err != nil || len(teams) == 0 {
			log.Error("teams fetch failed", "err", err)
			errs = append(errs, "Failed to fetch teams")
		} else {
			save(pipeline.RawTeamsKey(partition), teamsDoc{Teams: teams}, "teams", "Failed to save teams")
		}

		sal, err := s.Salaries.FetchSalaries(ctx, season)
		if err != nil {
			log.Error("salary fetch failed", "err", err)
			sal = &records.SalaryFile{
				FetchTimestamp: records.Ptr(pipeline.Timestamp(now)),
				Source:         records.Ptr(records.SourceESPN),
				Error:          err.Error(),
				Salaries:       []json.RawMessage{},
			}
		}
		// saved even when empty so validation can report on it
		save(pipeline.RawSalariesKey(partition), sal, "salaries", "Failed to save salary data")
	}

	if mode == pipeline.ModeFull {
		log.Warn("game log fetch is disabled upstream, skipping")
	}

	resp := pipeline.FetchResponse{
		StatusCode:   http.StatusOK,
		DataLocation: &pipeline.DataLocation{Bucket: s.Artifacts.Bucket, Partition: partition},
		Season:       season,
		FetchType:    string(mode),
		Fetched:      fetched,
		Errors:       errs,
		Summary: &pipeline.FetchSummary{
			Timestamp:         pipeline.Timestamp(now),
			Environment:       s.Environment,
			Season:            season,
			FetchType:         string(mode),
			SuccessfulFetches: len(fetched),
			ErrorsCount:       len(errs),
		},
	}
	log.Info("fetch complete", "fetched", len(fetched), "errors", len(errs))

	o := pipeline.Success(resp)
	if err := s.Ledger.RecordStage(ctx, partition, config.StageFetch, o); err != nil {
		log.Warn("ledger write failed", "err", err)
	}
	counts := map[string]int{"fetched": len(fetched), "errors": len(errs)}
	if err := s.Ledger.RecordCounts(ctx, partition, config.StageFetch, counts); err != nil {
		log.Warn("ledger counts failed", "err", err)
	}
	return o
}
