package enrich

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tyler180/nba-cap-etl/internal/logging"
	"github.com/tyler180/nba-cap-etl/internal/pipeline"
	"github.com/tyler180/nba-cap-etl/internal/records"
	"github.com/tyler180/nba-cap-etl/internal/store"
	"github.com/tyler180/nba-cap-etl/internal/store/storetest"
)

type fakeRegistrar struct {
	calls []string
	err   error
}

func (f *fakeRegistrar) Register(_ context.Context, bucket, partition string) error {
	f.calls = append(f.calls, bucket+"|"+partition)
	return f.err
}

func newStage(s3 *storetest.MemS3) *Stage {
	return &Stage{
		Artifacts:   store.NewArtifacts(s3, "nba-data"),
		Environment: "test",
		Clock:       func() time.Time { return testNow },
		Logger:      logging.NewNop(),
	}
}

func seedAll(s3 *storetest.MemS3) {
	s3.PutJSON(pipeline.RawStatsKey(testPartition), tradedSnapshot())
	s3.PutJSON(pipeline.RawPlayersKey(testPartition), map[string]any{"players": rawPlayers()})
	s3.PutJSON(pipeline.RawTeamsKey(testPartition), map[string]any{"teams": rawTeams()})
	s3.PutJSON(pipeline.RawSalariesKey(testPartition), map[string]any{
		"fetch_timestamp": "2025-01-15T06:00:00.000000",
		"source":          records.SourceESPN,
		"salaries":        rawSalaries(),
	})
}

func passedEvent() pipeline.TransformEvent {
	return pipeline.TransformEvent{
		DataLocation:     &pipeline.DataLocation{Bucket: "nba-data", Partition: testPartition},
		ValidationPassed: true,
	}
}

func transformedKeys(s3 *storetest.MemS3) []string {
	var keys []string
	for k := range s3.Objects {
		if strings.HasPrefix(k, "transformed/") {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestStage_FullRun(t *testing.T) {
	s3 := storetest.NewMemS3()
	seedAll(s3)

	o := newStage(s3).Run(context.Background(), passedEvent())
	require.True(t, o.OK(), o.Message)
	resp := o.Body.(pipeline.TransformResponse)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, resp.TransformationSuccessful)
	assert.Equal(t, []string{"enriched_salaries", "enriched_player_stats", "enriched_teams"}, resp.Body.Transformed)
	assert.Empty(t, resp.Body.Errors)
	assert.Equal(t, testPartition, resp.DataLocation.Partition)
	assert.Equal(t, 3, resp.Body.Summary["successful_transforms"])

	st := resp.Statistics.(Statistics)
	assert.Equal(t, 67415938.0, *st.LeagueTotalPayroll)

	var sd StatsDoc
	require.NoError(t, sonic.ConfigStd.Unmarshal(s3.Get(pipeline.EnrichedStatsKey(testPartition)), &sd))
	assert.Equal(t, "2024-25", sd.Season)
	assert.Equal(t, records.SourceBasketballReference, sd.Source)
	assert.Equal(t, "2025-01-15T12:00:00.000000", sd.TransformTimestamp)
	assert.Equal(t, 2, sd.Statistics.TotalPlayers)

	var sal SalariesDoc
	require.NoError(t, sonic.ConfigStd.Unmarshal(s3.Get(pipeline.EnrichedSalariesKey(testPartition)), &sal))
	assert.Equal(t, records.SourceESPN, sal.Source)
	assert.Equal(t, "2024-25", sal.Season)
	assert.Equal(t, 2, sal.Statistics.Matched)
	assert.Equal(t, 66.67, sal.Statistics.Rate)

	var td TeamsDoc
	require.NoError(t, sonic.ConfigStd.Unmarshal(s3.Get(pipeline.EnrichedTeamsKey(testPartition)), &td))
	assert.Equal(t, 4, td.Statistics.TotalTeams)
	assert.Equal(t, 67415938.0, td.Statistics.LeagueTotalPayroll)
}

func TestStage_Deterministic(t *testing.T) {
	a, b := storetest.NewMemS3(), storetest.NewMemS3()
	seedAll(a)
	seedAll(b)
	require.True(t, newStage(a).Run(context.Background(), passedEvent()).OK())
	require.True(t, newStage(b).Run(context.Background(), passedEvent()).OK())

	keys := transformedKeys(a)
	require.Len(t, keys, 3)
	for _, k := range keys {
		assert.Equal(t, string(a.Get(k)), string(b.Get(k)), k)
	}
}

func TestStage_ValidationGate(t *testing.T) {
	s3 := storetest.NewMemS3()
	seedAll(s3)
	ev := passedEvent()
	ev.ValidationPassed = false

	o := newStage(s3).Run(context.Background(), ev)
	assert.Equal(t, pipeline.Rejected, o.Status)
	assert.True(t, errors.Is(o.Err, ErrValidationGate))
	resp := o.Body.(pipeline.TransformResponse)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "Data validation failed", resp.Body.Error)
	assert.Equal(t, "Transformation skipped due to validation failure", resp.Body.Message)
	assert.False(t, resp.TransformationSuccessful)
	assert.Empty(t, transformedKeys(s3))
}

func TestStage_MissingDataLocation(t *testing.T) {
	o := newStage(storetest.NewMemS3()).Run(context.Background(), pipeline.TransformEvent{ValidationPassed: true})
	assert.Equal(t, 400, o.StatusCode)
	assert.Equal(t, "Missing data_location in event", o.Body.(pipeline.TransformResponse).Body.Error)
}

func TestStage_StatsMissing(t *testing.T) {
	s3 := storetest.NewMemS3()
	s3.PutJSON(pipeline.RawPlayersKey(testPartition), map[string]any{"players": rawPlayers()})

	o := newStage(s3).Run(context.Background(), passedEvent())
	assert.Equal(t, pipeline.Failed, o.Status)
	assert.True(t, errors.Is(o.Err, ErrStatsMissing))
	resp := o.Body.(pipeline.TransformResponse)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, []string{"Failed to load player stats data"}, resp.Body.Errors)
	assert.Empty(t, transformedKeys(s3))
}

func TestStage_OptionalInputsMissing(t *testing.T) {
	s3 := storetest.NewMemS3()
	s3.PutJSON(pipeline.RawStatsKey(testPartition), tradedSnapshot())

	o := newStage(s3).Run(context.Background(), passedEvent())
	require.True(t, o.OK())
	resp := o.Body.(pipeline.TransformResponse)
	assert.True(t, resp.TransformationSuccessful)
	assert.Equal(t, []string{"enriched_player_stats"}, resp.Body.Transformed)
	assert.Len(t, resp.Body.Warnings, 2)
	assert.Nil(t, resp.Statistics.(Statistics).SalaryMatchRate)
}

func TestStage_UndecodableRecordsAreLogged(t *testing.T) {
	s3 := storetest.NewMemS3()
	seedAll(s3)
	s3.PutJSON(pipeline.RawPlayersKey(testPartition), map[string]any{"players": []any{
		rawPlayers()[0],
		map[string]any{"id": "not-a-number", "full_name": "Broken Row"},
		rawPlayers()[1],
	}})

	core, logs := observer.New(logging.LevelDebug)
	st := newStage(s3)
	st.Logger = logging.FromZap(zap.New(core))

	o := st.Run(context.Background(), passedEvent())
	require.True(t, o.OK(), o.Message)
	resp := o.Body.(pipeline.TransformResponse)
	assert.True(t, resp.TransformationSuccessful)

	warned := logs.FilterMessage("skipped undecodable records").All()
	require.Len(t, warned, 1)
	ctx := warned[0].ContextMap()
	assert.Equal(t, "players", ctx["input"])
	assert.EqualValues(t, 1, ctx["count"])
	assert.EqualValues(t, 1, ctx["first_index"])
}

func TestStage_NaNRejectedBeforeWrites(t *testing.T) {
	s3 := storetest.NewMemS3()
	seedAll(s3)
	snap := tradedSnapshot()
	snap.PerGameStats[0]["PTS"] = "NaN"
	s3.PutJSON(pipeline.RawStatsKey(testPartition), snap)

	o := newStage(s3).Run(context.Background(), passedEvent())
	assert.Equal(t, pipeline.Failed, o.Status)
	assert.True(t, errors.Is(o.Err, ErrNaN))
	resp := o.Body.(pipeline.TransformResponse)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "Invalid statistics", resp.Body.Error)
	assert.Equal(t, "NaN values detected in transformation output", resp.Body.Message)
	assert.Empty(t, transformedKeys(s3), "nothing is written when NaN is found")
}

func TestStage_SaveFailuresAccumulate(t *testing.T) {
	s3 := storetest.NewMemS3()
	seedAll(s3)
	s3.PutErr = errors.New("access denied")

	o := newStage(s3).Run(context.Background(), passedEvent())
	require.True(t, o.OK())
	resp := o.Body.(pipeline.TransformResponse)
	assert.False(t, resp.TransformationSuccessful)
	assert.Empty(t, resp.Body.Transformed)
	assert.Equal(t, []string{
		"Failed to save enriched salaries",
		"Failed to save enriched stats",
		"Failed to save enriched teams",
	}, resp.Body.Errors)
}

func TestStage_ParquetExportAndCatalog(t *testing.T) {
	s3 := storetest.NewMemS3()
	seedAll(s3)
	reg := &fakeRegistrar{}
	stage := newStage(s3)
	stage.ParquetExport = true
	stage.Catalog = reg

	o := stage.Run(context.Background(), passedEvent())
	require.True(t, o.OK())
	resp := o.Body.(pipeline.TransformResponse)
	assert.Contains(t, resp.Body.Transformed, "enriched_player_stats_parquet")

	key := pipeline.EnrichedStatsParquetKey(testPartition)
	assert.NotEmpty(t, s3.Get(key))
	assert.Equal(t, "application/vnd.apache.parquet", s3.ContentTypes[key])
	assert.Equal(t, []string{"nba-data|" + testPartition}, reg.calls)
}

func TestStage_CatalogFailureOnlyWarns(t *testing.T) {
	s3 := storetest.NewMemS3()
	seedAll(s3)
	stage := newStage(s3)
	stage.ParquetExport = true
	stage.Catalog = &fakeRegistrar{err: errors.New("athena down")}

	o := stage.Run(context.Background(), passedEvent())
	require.True(t, o.OK())
	resp := o.Body.(pipeline.TransformResponse)
	assert.True(t, resp.TransformationSuccessful)
	assert.Contains(t, resp.Body.Warnings, "Catalog partition registration failed")
}

func TestParquetRows(t *testing.T) {
	rows := ParquetRows("2024-25", EnrichStats(tradedSnapshot()))
	require.Len(t, rows, 2)
	assert.Equal(t, "CHI,DET", rows[1].TeamsPlayedFor)
	assert.True(t, rows[1].IsMultiTeam)
	assert.Equal(t, "2024-25", rows[0].Season)
}
