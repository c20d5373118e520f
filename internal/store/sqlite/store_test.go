package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"ytdash/internal/dataset"
	"ytdash/internal/metric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	s, err := NewSqliteStore(filepath.Join(t.TempDir(), "db", "ytdash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fixtureTable() *dataset.Table {
	ts := time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC)
	return dataset.NewTable("fixture.csv", []dataset.Record{
		{Channel: "Zeta", Year: 2023, Published: ts, Title: "z", Views: 1_500_000, Likes: 10, Comments: 1, Engagement: 0.01},
		{Channel: "Alpha", Year: 2022, Published: ts.AddDate(-1, 0, 0), Short: true, Title: "a", Views: 42, Likes: 2, Comments: 0, Engagement: 0.05},
	})
}

func TestSqliteStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.ReplaceDataset(ctx, fixtureTable())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Rows)
	assert.Equal(t, 2022, run.MinYear)
	assert.Equal(t, 2023, run.MaxYear)

	table, err := s.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixtureTable().Records(), table.Records())
	// 频道顺序保持导入顺序。
	assert.Equal(t, []string{"Zeta", "Alpha"}, table.Channels())
	assert.Equal(t, "1.5M", table.All().Average(metric.ViewCount).Format(metric.ViewCount))
}

func TestSqliteStore_ReplaceOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.ReplaceDataset(ctx, fixtureTable())
	require.NoError(t, err)

	second := dataset.NewTable("second.csv", []dataset.Record{{Channel: "Only", Year: 2020, Published: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}})
	_, err = s.ReplaceDataset(ctx, second)
	require.NoError(t, err)

	table, err := s.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"Only"}, table.Channels())

	runs, err := s.ListImports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second.csv", runs[0].Source)
	var channels []string
	require.NoError(t, json.Unmarshal(runs[0].Channels, &channels))
	assert.Equal(t, []string{"Only"}, channels)
}

func TestSqliteStore_Empty(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadDataset(context.Background())
	assert.ErrorIs(t, err, dataset.ErrEmptyDataset)

	_, err = s.ReplaceDataset(context.Background(), dataset.NewTable("none", nil))
	assert.ErrorIs(t, err, dataset.ErrEmptyDataset)

	_, err = NewSqliteStore("")
	assert.Error(t, err)
}

func TestDatasetSource(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReplaceDataset(context.Background(), fixtureTable())
	require.NoError(t, err)

	src := DatasetSource{Store: s, Path: "ytdash.db"}
	assert.Equal(t, "sqlite:ytdash.db", src.Name())
	table, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestSqliteStore_PublishedStoredAsMillis(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2023, 4, 5, 6, 7, 8, 123_000_000, time.UTC)
	table := dataset.NewTable("ms.csv", []dataset.Record{{Channel: "A", Year: 2023, Published: ts}})
	_, err := s.ReplaceDataset(context.Background(), table)
	require.NoError(t, err)

	var stored []int64
	require.NoError(t, s.db.Raw("SELECT published_ms FROM channel_stats").Scan(&stored).Error)
	assert.Equal(t, []int64{ts.UnixMilli()}, stored)

	loaded, err := s.LoadDataset(context.Background())
	require.NoError(t, err)
	assert.True(t, ts.Equal(loaded.Records()[0].Published))
}
