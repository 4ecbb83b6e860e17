// Package catalog registers the enriched stats export with Athena.
package catalog

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/logging"
)

type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, in *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
}

type Runner struct {
	Client    AthenaAPI
	Workgroup string
	Database  string
	OutputS3  string // s3://bucket/prefix/
	Logger    *logging.Logger

	PollInterval time.Duration
}

// ExecAndWait starts sql and polls until it leaves the queued/running states.
func (r *Runner) ExecAndWait(ctx context.Context, sql string) (*types.QueryExecution, error) {
	startOut, err := r.Client.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: &sql,
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: &r.Database,
		},
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: &r.OutputS3,
		},
		WorkGroup: &r.Workgroup,
	})
	if err != nil {
		return nil, errors.Wrap(err, "start query")
	}
	if startOut.QueryExecutionId == nil {
		return nil, errors.New("start query: no execution id")
	}
	qid := *startOut.QueryExecutionId
	r.Logger.Debug("athena query started", "qid", qid)

	every := r.PollInterval
	if every <= 0 {
		every = time.Second
	}
	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tick.C:
			ge, err := r.Client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
				QueryExecutionId: &qid,
			})
			if err != nil {
				return nil, errors.Wrap(err, "get query execution")
			}
			qe := ge.QueryExecution
			if qe == nil || qe.Status == nil {
				continue
			}
			switch qe.Status.State {
			case types.QueryExecutionStateSucceeded:
				var scanned int64
				if qe.Statistics != nil && qe.Statistics.DataScannedInBytes != nil {
					scanned = *qe.Statistics.DataScannedInBytes
				}
				r.Logger.Info("athena query succeeded", "qid", qid, "scanned_bytes", scanned)
				return qe, nil
			case types.QueryExecutionStateFailed:
				msg := ""
				if qe.Status.StateChangeReason != nil {
					msg = *qe.Status.StateChangeReason
				}
				return nil, errors.Newf("athena failed: %s", msg)
			case types.QueryExecutionStateCancelled:
				return nil, errors.New("athena cancelled")
			}
		}
	}
}

// Register makes the parquet export for partition queryable.
func (r *Runner) Register(ctx context.Context, bucket, partition string) error {
	if _, err := r.ExecAndWait(ctx, BuildCreateEnrichedStatsTable(r.Database, bucket)); err != nil {
		return errors.Wrap(err, "create enriched stats table")
	}
	sql, err := BuildAddPartition(r.Database, EnrichedStatsTable, bucket, partition)
	if err != nil {
		return err
	}
	if _, err := r.ExecAndWait(ctx, sql); err != nil {
		return errors.Wrapf(err, "add partition %s", partition)
	}
	return nil
}
