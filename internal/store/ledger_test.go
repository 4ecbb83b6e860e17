package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/nba-cap-etl/internal/pipeline"
)

// fake client implementing DynamoDBAPI
type fakeDDB struct {
	calls     int
	written   int
	failFirst bool
	updates   []*ddb.UpdateItemInput
}

func (f *fakeDDB) BatchWriteItem(_ context.Context, in *ddb.BatchWriteItemInput, _ ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error) {
	f.calls++
	if f.failFirst {
		f.failFirst = false
		// echo everything back as unprocessed to force a retry
		return &ddb.BatchWriteItemOutput{UnprocessedItems: in.RequestItems}, nil
	}
	for _, reqs := range in.RequestItems {
		f.written += len(reqs)
	}
	return &ddb.BatchWriteItemOutput{}, nil
}

func (f *fakeDDB) UpdateItem(_ context.Context, in *ddb.UpdateItemInput, _ ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &ddb.UpdateItemOutput{}, nil
}

func TestRecordCounts_BatchingAndRetry(t *testing.T) {
	// 30 counters -> 25 + 5 batches
	counts := map[string]int{}
	for i := 0; i < 30; i++ {
		counts[fmt.Sprintf("c%02d", i)] = i
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fc := &fakeDDB{failFirst: true}
	l := NewLedger(fc, "runs")
	require.NoError(t, l.RecordCounts(ctx, "year=2024/month=02/day=17", "transform", counts))

	// first batch is attempted twice, second once
	assert.Equal(t, 3, fc.calls)
	assert.Equal(t, 30, fc.written)
}

func TestRecordStage(t *testing.T) {
	fc := &fakeDDB{}
	l := NewLedger(fc, "runs")
	l.Now = func() time.Time { return time.Unix(1700000000, 0) }

	o := pipeline.Rejection(422, "Validation failed", nil)
	require.NoError(t, l.RecordStage(context.Background(), "year=2024/month=02/day=17", "validate", o))
	require.Len(t, fc.updates, 1)

	in := fc.updates[0]
	assert.Equal(t, "runs", aws.ToString(in.TableName))
	assert.Equal(t, "validate", in.Key["Stage"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "422", in.ExpressionAttributeValues[":sc"].(*types.AttributeValueMemberN).Value)
	assert.False(t, in.ExpressionAttributeValues[":ok"].(*types.AttributeValueMemberBOOL).Value)
	assert.Equal(t, "1700000000", in.ExpressionAttributeValues[":now"].(*types.AttributeValueMemberN).Value)
}

func TestNilLedgerIsNoop(t *testing.T) {
	var l *Ledger = NewLedger(nil, "")
	assert.Nil(t, l)
	assert.NoError(t, l.RecordStage(context.Background(), "p", "s", pipeline.Success(nil)))
	assert.NoError(t, l.RecordCounts(context.Background(), "p", "s", map[string]int{"a": 1}))
}
