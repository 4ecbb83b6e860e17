package load

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeDB struct {
	schemaExists bool
	// failOn fails any batched statement whose SQL contains the key.
	failOn map[string]error
	txs    []*fakeTx
}

func (d *fakeDB) Begin(context.Context) (Tx, error) {
	tx := &fakeTx{db: d}
	d.txs = append(d.txs, tx)
	return tx, nil
}

// main returns the data transaction, which follows the schema transaction.
func (d *fakeDB) main() *fakeTx { return d.txs[len(d.txs)-1] }

type execCall struct {
	sql  string
	args []any
}

type fakeTx struct {
	db         *fakeDB
	execs      []string
	batched    []execCall
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, strings.TrimSpace(sql))
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{exists: t.db.schemaExists}
}

func (t *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	return &fakeBatch{tx: t, queued: b.QueuedQueries}
}

func (t *fakeTx) Commit(context.Context) error {
	if t.rolledBack {
		return errors.New("tx closed")
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) hasExec(prefix string) bool {
	for _, e := range t.execs {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

func (t *fakeTx) batchedFor(fragment string) []execCall {
	var out []execCall
	for _, c := range t.batched {
		if strings.Contains(c.sql, fragment) {
			out = append(out, c)
		}
	}
	return out
}

type fakeRow struct{ exists bool }

func (r fakeRow) Scan(dest ...any) error {
	*dest[0].(*bool) = r.exists
	return nil
}

type fakeBatch struct {
	tx     *fakeTx
	queued []*pgx.QueuedQuery
	next   int
}

func (b *fakeBatch) Exec() (pgconn.CommandTag, error) {
	q := b.queued[b.next]
	b.next++
	for frag, err := range b.tx.db.failOn {
		if strings.Contains(q.SQL, frag) {
			return pgconn.CommandTag{}, err
		}
	}
	b.tx.batched = append(b.tx.batched, execCall{sql: q.SQL, args: q.Arguments})
	return pgconn.CommandTag{}, nil
}

func (b *fakeBatch) Query() (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (b *fakeBatch) QueryRow() pgx.Row {
	return fakeRow{}
}

func (b *fakeBatch) Close() error {
	return nil
}
