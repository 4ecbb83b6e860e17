package load

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/enrich"
	"github.com/tyler180/nba-cap-etl/internal/records"
)

const upsertPlayersSQL = `
INSERT INTO players (id, full_name)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name`

const upsertSalariesSQL = `
INSERT INTO salaries (player_id, player_name, annual_salary, season, source)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (player_name, season) DO UPDATE SET
	player_id = EXCLUDED.player_id,
	annual_salary = EXCLUDED.annual_salary,
	source = EXCLUDED.source`

const upsertPlayerStatsSQL = `
INSERT INTO player_stats (
	player_name, season, team_abbreviation,
	age, position, games_played, games_started, minutes,
	points, fgm, fga, fg_pct, fg3m, fg3a, fg3_pct,
	fg2m, fg2a, fg2_pct, ftm, fta, ft_pct,
	oreb, dreb, rebounds,
	assists, steals, blocks, turnovers, fouls,
	per, ts_pct, efg_pct, usg_pct, ws, ws_per_48,
	bpm, obpm, dbpm, vorp,
	orb_pct, drb_pct, trb_pct, ast_pct, stl_pct, blk_pct, tov_pct,
	ows, dws, is_multi_team, teams_played_for
)
VALUES (
	$1, $2, $3,
	$4, $5, $6, $7, $8,
	$9, $10, $11, $12, $13, $14, $15,
	$16, $17, $18, $19, $20, $21,
	$22, $23, $24,
	$25, $26, $27, $28, $29,
	$30, $31, $32, $33, $34, $35,
	$36, $37, $38, $39,
	$40, $41, $42, $43, $44, $45, $46,
	$47, $48, $49, $50
)
ON CONFLICT (player_name, season, team_abbreviation) DO UPDATE SET
	age = EXCLUDED.age,
	position = EXCLUDED.position,
	games_played = EXCLUDED.games_played,
	games_started = EXCLUDED.games_started,
	minutes = EXCLUDED.minutes,
	points = EXCLUDED.points,
	fgm = EXCLUDED.fgm,
	fga = EXCLUDED.fga,
	fg_pct = EXCLUDED.fg_pct,
	fg3m = EXCLUDED.fg3m,
	fg3a = EXCLUDED.fg3a,
	fg3_pct = EXCLUDED.fg3_pct,
	fg2m = EXCLUDED.fg2m,
	fg2a = EXCLUDED.fg2a,
	fg2_pct = EXCLUDED.fg2_pct,
	ftm = EXCLUDED.ftm,
	fta = EXCLUDED.fta,
	ft_pct = EXCLUDED.ft_pct,
	oreb = EXCLUDED.oreb,
	dreb = EXCLUDED.dreb,
	rebounds = EXCLUDED.rebounds,
	assists = EXCLUDED.assists,
	steals = EXCLUDED.steals,
	blocks = EXCLUDED.blocks,
	turnovers = EXCLUDED.turnovers,
	fouls = EXCLUDED.fouls,
	per = EXCLUDED.per,
	ts_pct = EXCLUDED.ts_pct,
	efg_pct = EXCLUDED.efg_pct,
	usg_pct = EXCLUDED.usg_pct,
	ws = EXCLUDED.ws,
	ws_per_48 = EXCLUDED.ws_per_48,
	bpm = EXCLUDED.bpm,
	obpm = EXCLUDED.obpm,
	dbpm = EXCLUDED.dbpm,
	vorp = EXCLUDED.vorp,
	orb_pct = EXCLUDED.orb_pct,
	drb_pct = EXCLUDED.drb_pct,
	trb_pct = EXCLUDED.trb_pct,
	ast_pct = EXCLUDED.ast_pct,
	stl_pct = EXCLUDED.stl_pct,
	blk_pct = EXCLUDED.blk_pct,
	tov_pct = EXCLUDED.tov_pct,
	ows = EXCLUDED.ows,
	dws = EXCLUDED.dws,
	is_multi_team = EXCLUDED.is_multi_team,
	teams_played_for = EXCLUDED.teams_played_for`

const upsertTeamsSQL = `
INSERT INTO teams (
	id, full_name, abbreviation,
	total_payroll, roster_count, roster_with_salary,
	avg_salary, min_salary, max_salary,
	top_paid_player, top_paid_salary,
	total_players_with_stats,
	team_total_points, team_total_rebounds, team_total_assists,
	avg_player_points, avg_player_rebounds, avg_player_assists
)
VALUES (
	$1, $2, $3,
	$4, $5, $6,
	$7, $8, $9,
	$10, $11,
	$12,
	$13, $14, $15,
	$16, $17, $18
)
ON CONFLICT (id) DO UPDATE SET
	full_name = EXCLUDED.full_name,
	abbreviation = EXCLUDED.abbreviation,
	total_payroll = EXCLUDED.total_payroll,
	roster_count = EXCLUDED.roster_count,
	roster_with_salary = EXCLUDED.roster_with_salary,
	avg_salary = EXCLUDED.avg_salary,
	min_salary = EXCLUDED.min_salary,
	max_salary = EXCLUDED.max_salary,
	top_paid_player = EXCLUDED.top_paid_player,
	top_paid_salary = EXCLUDED.top_paid_salary,
	total_players_with_stats = EXCLUDED.total_players_with_stats,
	team_total_points = EXCLUDED.team_total_points,
	team_total_rebounds = EXCLUDED.team_total_rebounds,
	team_total_assists = EXCLUDED.team_total_assists,
	avg_player_points = EXCLUDED.avg_player_points,
	avg_player_rebounds = EXCLUDED.avg_player_rebounds,
	avg_player_assists = EXCLUDED.avg_player_assists`

// UpsertPlayers skips records without an id or name.
func UpsertPlayers(ctx context.Context, tx Tx, players []records.RawPlayer) (int, error) {
	rows := make([][]any, 0, len(players))
	for _, p := range players {
		if p.ID == nil || records.Deref(p.FullName) == "" {
			continue
		}
		rows = append(rows, []any{*p.ID, *p.FullName})
	}
	if err := execBatch(ctx, tx, upsertPlayersSQL, rows); err != nil {
		return 0, errors.Wrap(err, "upsert players")
	}
	return len(rows), nil
}

func UpsertSalaries(ctx context.Context, tx Tx, salaries []enrich.EnrichedSalary) (int, error) {
	rows := make([][]any, 0, len(salaries))
	for _, s := range salaries {
		rows = append(rows, []any{
			s.PlayerID, s.PlayerName, dollars(s.AnnualSalary), s.Season, nilEmpty(s.Source),
		})
	}
	if err := execBatch(ctx, tx, upsertSalariesSQL, rows); err != nil {
		return 0, errors.Wrap(err, "upsert salaries")
	}
	return len(rows), nil
}

// UpsertPlayerStats writes one row per player keyed by the artifact's season.
func UpsertPlayerStats(ctx context.Context, tx Tx, season string, stats []enrich.EnrichedPlayerStat) (int, error) {
	rows := make([][]any, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []any{
			// '' rather than NULL so the conflict key matches on rerun
			s.PlayerName, season, records.Deref(s.TeamAbbreviation),
			whole(s.Age), s.Position, whole(s.GamesPlayed), whole(s.GamesStarted), s.Minutes,
			s.Points, s.FGM, s.FGA, s.FGPct, s.FG3M, s.FG3A, s.FG3Pct,
			s.FG2M, s.FG2A, s.FG2Pct, s.FTM, s.FTA, s.FTPct,
			s.OReb, s.DReb, s.Rebounds,
			s.Assists, s.Steals, s.Blocks, s.Turnovers, s.Fouls,
			s.PER, s.TSPct, s.EFGPct, s.USGPct, s.WS, s.WSPer48,
			s.BPM, s.OBPM, s.DBPM, s.VORP,
			s.ORBPct, s.DRBPct, s.TRBPct, s.ASTPct, s.STLPct, s.BLKPct, s.TOVPct,
			s.OWS, s.DWS, s.IsMultiTeam, s.TeamsPlayedFor,
		})
	}
	if err := execBatch(ctx, tx, upsertPlayerStatsSQL, rows); err != nil {
		return 0, errors.Wrap(err, "upsert player stats")
	}
	return len(rows), nil
}

func UpsertTeams(ctx context.Context, tx Tx, teams []enrich.EnrichedTeam) (int, error) {
	rows := make([][]any, 0, len(teams))
	for _, t := range teams {
		if t.ID == nil {
			continue
		}
		rows = append(rows, []any{
			*t.ID, t.FullName, t.Abbreviation,
			dollars(t.TotalPayroll), t.RosterCount, t.RosterWithSalary,
			t.AvgSalary, dollars(t.MinSalary), dollars(t.MaxSalary),
			t.TopPaidPlayer, whole(t.TopPaidSalary),
			t.TotalPlayersWithStats,
			t.TeamTotalPoints, t.TeamTotalRebounds, t.TeamTotalAssists,
			t.AvgPlayerPoints, t.AvgPlayerRebounds, t.AvgPlayerAssists,
		})
	}
	if err := execBatch(ctx, tx, upsertTeamsSQL, rows); err != nil {
		return 0, errors.Wrap(err, "upsert teams")
	}
	return len(rows), nil
}

// dollars rounds an amount for an integer column.
func dollars(v float64) int64 { return int64(math.Round(v)) }

func whole(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(math.Round(*v))
	return &n
}

func nilEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
