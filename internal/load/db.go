// Package load upserts enriched artifacts into the relational store.
package load

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tyler180/nba-cap-etl/internal/config"
)

// Tx is the subset of pgx.Tx the loader uses.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type DB interface {
	Begin(ctx context.Context) (Tx, error)
}

// Pool adapts a pgxpool.Pool to DB.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects with the given credentials and pings once.
func NewPool(ctx context.Context, creds config.DBCredentials) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(creds.ConnString())
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}
	// one Lambda invocation runs one transaction
	cfg.MaxConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return &Pool{pool: pool}, nil
}

func (p *Pool) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	return tx, nil
}

func (p *Pool) Close() { p.pool.Close() }

// execBatch sends one statement per argument row and drains the results.
func execBatch(ctx context.Context, tx Tx, sql string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, args := range rows {
		b.Queue(sql, args...)
	}
	br := tx.SendBatch(ctx, b)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Wrapf(err, "batch row %d", i)
		}
	}
	return br.Close()
}
