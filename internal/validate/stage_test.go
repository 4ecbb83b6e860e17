package validate

import (
	"context"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/nba-cap-etl/internal/bref"
	"github.com/tyler180/nba-cap-etl/internal/logging"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/store"
	"github.com/tyler180/nba-cap-etl/internal/store/storetest"
)

const testPartition = "year=2025/month=01/day=15"

func newStage(s3 *storetest.MemS3) *Stage {
	return &Stage{
		Artifacts:   store.NewArtifacts(s3, "nba-data"),
		Environment: "test",
		Clock:       func() time.Time { return testNow },
		Logger:      logging.NewNop(),
	}
}

func event(fetchType string) pipeline.ValidateEvent {
	return pipeline.ValidateEvent{
		DataLocation: &pipeline.DataLocation{Bucket: "nba-data", Partition: testPartition},
		FetchType:    fetchType,
	}
}

func TestStage_StatsOnlyPasses(t *testing.T) {
	s3 := storetest.NewMemS3()
	s3.PutJSON(pipeline.RawStatsKey(testPartition), newStatsDoc(350, 350))

	o := newStage(s3).Run(context.Background(), event("stats_only"))
	require.True(t, o.OK())
	resp := o.Body.(pipeline.ValidateResponse)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, resp.ValidationPassed)
	assert.Equal(t, "Validation complete", resp.Body.Message)
	assert.Equal(t, testPartition, resp.DataLocation.Partition)
	assert.Equal(t, pipeline.ValidationReportKey(testPartition), resp.ValidationReport.Key)

	var run RunReport
	require.NoError(t, sonic.ConfigStd.Unmarshal(s3.Get(resp.ValidationReport.Key), &run))
	assert.True(t, run.OverallValid)
	require.Len(t, run.Validations, 1, "optional categories are skipped")
	assert.Equal(t, "stats", run.Validations[0].DataType)
	assert.Equal(t, pipeline.RawStatsKey(testPartition), run.Validations[0].S3Key)
}

func TestStage_MonthlyMissingRequiredFiles(t *testing.T) {
	s3 := storetest.NewMemS3()
	s3.PutJSON(pipeline.RawStatsKey(testPartition), newStatsDoc(350, 350))
	s3.PutJSON(pipeline.RawTeamsKey(testPartition), map[string]any{"teams": bref.RawTeams()})

	o := newStage(s3).Run(context.Background(), event("monthly"))
	assert.Equal(t, pipeline.Rejected, o.Status)
	resp := o.Body.(pipeline.ValidateResponse)
	assert.Equal(t, 422, resp.StatusCode)
	assert.False(t, resp.ValidationPassed)
	assert.Equal(t, "Validation failed", resp.Body.Message)
	assert.Equal(t, 2, resp.Body.ErrorCount)

	var run RunReport
	require.NoError(t, sonic.ConfigStd.Unmarshal(s3.Get(pipeline.ValidationReportKey(testPartition)), &run))
	require.Len(t, run.Validations, 4)
	assert.Equal(t, []string{"Required file not found or could not be loaded: " + pipeline.RawPlayersKey(testPartition)},
		run.Validations[1].Errors)
}

func TestStage_ErrorCountOnlyFromInvalidCategories(t *testing.T) {
	s3 := storetest.NewMemS3()
	doc := newStatsDoc(350, 320) // mismatch warning only
	s3.PutJSON(pipeline.RawStatsKey(testPartition), doc)
	s3.PutJSON(pipeline.RawPlayersKey(testPartition), playersDoc(100)) // low count warning
	s3.PutJSON(pipeline.RawTeamsKey(testPartition), map[string]any{"teams": bref.RawTeams()})
	s3.PutJSON(pipeline.RawSalariesKey(testPartition), salariesDoc(450, 10_000_000))

	o := newStage(s3).Run(context.Background(), event("full"))
	resp := o.Body.(pipeline.ValidateResponse)
	assert.True(t, resp.ValidationPassed)
	assert.Equal(t, 0, resp.Body.ErrorCount)
	assert.Equal(t, 2, resp.Body.WarningCount)
}

func TestStage_InvalidJSONCountsAsMissing(t *testing.T) {
	s3 := storetest.NewMemS3()
	s3.Objects[pipeline.RawStatsKey(testPartition)] = []byte("{not json")

	o := newStage(s3).Run(context.Background(), event(""))
	resp := o.Body.(pipeline.ValidateResponse)
	assert.Equal(t, 422, resp.StatusCode)
	assert.Equal(t, 1, resp.Body.ErrorCount)
}

func TestStage_MissingDataLocation(t *testing.T) {
	o := newStage(storetest.NewMemS3()).Run(context.Background(), pipeline.ValidateEvent{})
	assert.Equal(t, 400, o.StatusCode)
	resp := o.Body.(pipeline.ValidateResponse)
	assert.Equal(t, "Missing data_location in event", resp.Body.Error)
	assert.False(t, resp.ValidationPassed)
}

func TestStage_ReportWriteFailureIsNotFatal(t *testing.T) {
	s3 := storetest.NewMemS3()
	s3.PutJSON(pipeline.RawStatsKey(testPartition), newStatsDoc(350, 350))
	s3.PutErr = assert.AnError

	o := newStage(s3).Run(context.Background(), event("stats_only"))
	assert.True(t, o.OK())
}
