package store

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/nba-cap-etl/internal/pipeline"
)

type DynamoDBAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Ledger records stage outcomes per partition. A nil *Ledger is a no-op.
//
// Table layout: PK=Partition (S), SK=Stage (S) for outcomes and Stage#counter for counts.
type Ledger struct {
	Client DynamoDBAPI
	Table  string
	Now    func() time.Time
}

func NewLedger(cl DynamoDBAPI, table string) *Ledger {
	if cl == nil || table == "" {
		return nil
	}
	return &Ledger{Client: cl, Table: table}
}

func (l *Ledger) now() string {
	t := time.Now()
	if l.Now != nil {
		t = l.Now()
	}
	return strconv.FormatInt(t.Unix(), 10)
}

// RecordStage upserts the outcome row for stage in partition.
func (l *Ledger) RecordStage(ctx context.Context, partition, stage string, o pipeline.Outcome) error {
	if l == nil {
		return nil
	}
	key := map[string]types.AttributeValue{
		"Partition": &types.AttributeValueMemberS{Value: partition},
		"Stage":     &types.AttributeValueMemberS{Value: stage},
	}
	vals := map[string]types.AttributeValue{
		":st":  &types.AttributeValueMemberS{Value: o.Status.String()},
		":sc":  &types.AttributeValueMemberN{Value: strconv.Itoa(o.StatusCode)},
		":ok":  &types.AttributeValueMemberBOOL{Value: o.OK()},
		":msg": &types.AttributeValueMemberS{Value: o.Message},
		":now": &types.AttributeValueMemberN{Value: l.now()},
	}
	_, err := l.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(l.Table),
		Key:              key,
		UpdateExpression: aws.String("SET #s=:st, StatusCode=:sc, OK=:ok, Message=:msg, UpdatedAt=:now"),
		ExpressionAttributeNames: map[string]string{
			"#s": "Status",
		},
		ExpressionAttributeValues: vals,
	})
	if err != nil {
		return errors.Wrapf(err, "ledger update %s %s", partition, stage)
	}
	return nil
}

// RecordCounts writes one row per counter, in key order.
func (l *Ledger) RecordCounts(ctx context.Context, partition, stage string, counts map[string]int) error {
	if l == nil || len(counts) == 0 {
		return nil
	}
	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Strings(names)

	const maxBatch = 25
	now := l.now()

	for i := 0; i < len(names); i += maxBatch {
		end := i + maxBatch
		if end > len(names) {
			end = len(names)
		}
		reqs := make([]types.WriteRequest, 0, end-i)
		for _, name := range names[i:end] {
			item := map[string]types.AttributeValue{
				"Partition": &types.AttributeValueMemberS{Value: partition},
				"Stage":     &types.AttributeValueMemberS{Value: stage + "#" + name},
				"Counter":   &types.AttributeValueMemberS{Value: name},
				"Value":     &types.AttributeValueMemberN{Value: strconv.Itoa(counts[name])},
				"UpdatedAt": &types.AttributeValueMemberN{Value: now},
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		if err := batchWriteWithRetry(ctx, l.Client, l.Table, reqs); err != nil {
			return errors.Wrap(err, "batch write ledger counts")
		}
	}
	return nil
}

func batchWriteWithRetry(ctx context.Context, ddb DynamoDBAPI, table string, reqs []types.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{table: reqs},
	}
	const maxAttempts = 6
	backoff := 120 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := ddb.BatchWriteItem(ctx, input)
		if err != nil {
			return err
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		input.RequestItems = out.UnprocessedItems
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff += 120 * time.Millisecond
		}
	}
	return errors.Newf("unprocessed items remained after retries for table %s", table)
}
