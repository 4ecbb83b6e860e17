// Package fetch pulls raw snapshots from the upstream sites into the data bucket.
package fetch

import (
	"context"
	"time"

	"github.com/tyler180/nba-cap-etl/internal/bref"
	"github.com/tyler180/nba-cap-etl/internal/espn"
	"github.com/tyler180/nba-cap-etl/internal/nbastats"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
)

type StatsSource interface {
	FetchStats(ctx context.Context, season string) (*records.StatsSnapshot, error)
}

type SalarySource interface {
	FetchSalaries(ctx context.Context, season string) (*records.SalaryFile, error)
}

type PlayerSource interface {
	FetchPlayers(ctx context.Context, season string) ([]records.RawPlayer, error)
}

type TeamSource interface {
	FetchTeams(ctx context.Context) ([]records.RawTeam, error)
}

// Scrapers backs every source with one shared rate-limited client.
type Scrapers struct {
	Client    *bref.Client
	Clock     pipeline.Clock
	PageDelay time.Duration
}

func (s *Scrapers) FetchStats(ctx context.Context, season string) (*records.StatsSnapshot, error) {
	return bref.FetchSeasonStats(ctx, s.Client, season, s.Clock.Now(), s.PageDelay)
}

func (s *Scrapers) FetchSalaries(ctx context.Context, season string) (*records.SalaryFile, error) {
	return espn.FetchSalaries(ctx, s.Client, season, s.Clock.Now(), s.PageDelay)
}

func (s *Scrapers) FetchPlayers(ctx context.Context, season string) ([]records.RawPlayer, error) {
	return nbastats.Fetch(ctx, s.Client, season)
}

// FetchTeams serves the static league table; it never touches the network.
func (s *Scrapers) FetchTeams(context.Context) ([]records.RawTeam, error) {
	return bref.RawTeams(), nil
}
