package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/nba-cap-etl/internal/store/storetest"
)

func TestArtifactsJSONRoundTrip(t *testing.T) {
	fs := storetest.NewMemS3()
	a := NewArtifacts(fs, "bucket")
	ctx := context.Background()

	in := map[string]any{"zeta": 1, "alpha": []string{"Jokić"}}
	require.NoError(t, a.PutJSON(ctx, "raw/x.json", in))
	assert.Equal(t, `{"alpha":["Jokić"],"zeta":1}`, string(fs.Objects["raw/x.json"]))
	assert.Equal(t, "application/json; charset=utf-8", fs.ContentTypes["raw/x.json"])

	var out struct {
		Alpha []string `json:"alpha"`
		Zeta  int      `json:"zeta"`
	}
	require.NoError(t, a.GetJSON(ctx, "raw/x.json", &out))
	assert.Equal(t, []string{"Jokić"}, out.Alpha)
	assert.Equal(t, 1, out.Zeta)
}

func TestArtifactsNotFound(t *testing.T) {
	a := NewArtifacts(storetest.NewMemS3(), "bucket")
	var v map[string]any
	err := a.GetJSON(context.Background(), "raw/missing.json", &v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestArtifactsInvalidJSON(t *testing.T) {
	fs := storetest.NewMemS3()
	fs.Objects["bad.json"] = []byte("{nope")
	a := NewArtifacts(fs, "bucket")
	var v map[string]any
	err := a.GetJSON(context.Background(), "bad.json", &v)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestWriteStatsParquet(t *testing.T) {
	fs := storetest.NewMemS3()
	a := NewArtifacts(fs, "bucket")
	pts := 27.1
	team := "DEN"
	rows := []StatsParquetRow{
		{Season: "2024-25", PlayerName: "Nikola Jokić", TeamAbbreviation: &team, Points: &pts, TeamsPlayedFor: "DEN"},
		{Season: "2024-25", PlayerName: "Rookie", TeamsPlayedFor: ""},
	}
	require.NoError(t, WriteStatsParquet(context.Background(), a, "k.parquet", rows))

	b := fs.Objects["k.parquet"]
	require.NotEmpty(t, b)
	got, err := parquet.Read[StatsParquetRow](bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Nikola Jokić", got[0].PlayerName)
	require.NotNil(t, got[0].Points)
	assert.Equal(t, 27.1, *got[0].Points)
	assert.Nil(t, got[1].Points)

	require.NoError(t, WriteStatsParquet(context.Background(), a, "empty.parquet", nil))
	_, ok := fs.Objects["empty.parquet"]
	assert.False(t, ok)
}
