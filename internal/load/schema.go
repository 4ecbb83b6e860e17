package load

import (
	"context"

	"github.com/cockroachdb/errors"
)

const schemaProbe = `SELECT EXISTS (
	SELECT FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = 'players'
)`

const schemaDDL = `
CREATE TABLE IF NOT EXISTS players (
    id INTEGER PRIMARY KEY,
    full_name VARCHAR(255) NOT NULL UNIQUE
);
CREATE INDEX IF NOT EXISTS idx_players_full_name ON players(full_name);

CREATE TABLE IF NOT EXISTS salaries (
    id SERIAL PRIMARY KEY,
    player_id INTEGER REFERENCES players(id),
    player_name VARCHAR(255) NOT NULL,
    annual_salary INTEGER NOT NULL,
    season VARCHAR(20) NOT NULL,
    source VARCHAR(50),
    UNIQUE(player_name, season)
);
CREATE INDEX IF NOT EXISTS idx_salaries_player_id ON salaries(player_id);
CREATE INDEX IF NOT EXISTS idx_salaries_player_name ON salaries(player_name);
CREATE INDEX IF NOT EXISTS idx_salaries_season ON salaries(season);

CREATE TABLE IF NOT EXISTS player_stats (
    id SERIAL PRIMARY KEY,
    player_id INTEGER REFERENCES players(id),
    player_name VARCHAR(255) NOT NULL,
    season VARCHAR(20) NOT NULL,
    team_abbreviation VARCHAR(10) NOT NULL DEFAULT '',
    age INTEGER,
    position VARCHAR(10),
    games_played INTEGER,
    games_started INTEGER,
    minutes REAL,
    points REAL,
    fgm REAL,
    fga REAL,
    fg_pct REAL,
    fg3m REAL,
    fg3a REAL,
    fg3_pct REAL,
    fg2m REAL,
    fg2a REAL,
    fg2_pct REAL,
    ftm REAL,
    fta REAL,
    ft_pct REAL,
    oreb REAL,
    dreb REAL,
    rebounds REAL,
    assists REAL,
    steals REAL,
    blocks REAL,
    turnovers REAL,
    fouls REAL,
    per REAL,
    ts_pct REAL,
    efg_pct REAL,
    usg_pct REAL,
    ws REAL,
    ws_per_48 REAL,
    bpm REAL,
    obpm REAL,
    dbpm REAL,
    vorp REAL,
    orb_pct REAL,
    drb_pct REAL,
    trb_pct REAL,
    ast_pct REAL,
    stl_pct REAL,
    blk_pct REAL,
    tov_pct REAL,
    ows REAL,
    dws REAL,
    is_multi_team BOOLEAN NOT NULL DEFAULT FALSE,
    teams_played_for TEXT[],
    UNIQUE(player_name, season, team_abbreviation)
);
CREATE INDEX IF NOT EXISTS idx_player_stats_player_id ON player_stats(player_id);
CREATE INDEX IF NOT EXISTS idx_player_stats_player_name ON player_stats(player_name);
CREATE INDEX IF NOT EXISTS idx_player_stats_season ON player_stats(season);
CREATE INDEX IF NOT EXISTS idx_player_stats_team ON player_stats(team_abbreviation);

CREATE TABLE IF NOT EXISTS teams (
    id INTEGER PRIMARY KEY,
    full_name VARCHAR(255),
    abbreviation VARCHAR(10) UNIQUE NOT NULL,
    total_payroll BIGINT,
    roster_count INTEGER,
    roster_with_salary INTEGER,
    avg_salary REAL,
    min_salary INTEGER,
    max_salary INTEGER,
    top_paid_player VARCHAR(255),
    top_paid_salary INTEGER,
    total_players_with_stats INTEGER,
    team_total_points REAL,
    team_total_rebounds REAL,
    team_total_assists REAL,
    avg_player_points REAL,
    avg_player_rebounds REAL,
    avg_player_assists REAL
);
CREATE INDEX IF NOT EXISTS idx_teams_abbreviation ON teams(abbreviation);
`

// EnsureSchema creates the tables on a fresh database. It reports whether the
// schema already existed and commits its own transaction.
func EnsureSchema(ctx context.Context, db DB) (bool, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, schemaProbe).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "probe schema")
	}
	if !exists {
		if _, err := tx.Exec(ctx, schemaDDL); err != nil {
			return false, errors.Wrap(err, "create schema")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "commit schema")
	}
	return exists, nil
}
