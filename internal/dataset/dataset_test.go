package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ytdash/internal/metric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Table {
	t.Helper()
	table, err := LoadCSV(filepath.Join("testdata", "channels.csv"))
	require.NoError(t, err)
	return table
}

func TestLoadCSV(t *testing.T) {
	table := loadFixture(t)
	assert.Equal(t, 6, table.Len())
	assert.Equal(t, []string{"Alpha", "Beta"}, table.Channels())

	minYear, maxYear, ok := table.YearBounds()
	require.True(t, ok)
	assert.Equal(t, 2022, minYear)
	assert.Equal(t, 2024, maxYear)

	first := table.Records()[0]
	assert.Equal(t, "Alpha", first.Channel)
	assert.Equal(t, int64(1_500_000), first.Views)
	assert.False(t, first.Short)
	assert.Equal(t, time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC), first.Published.UTC())

	beta := table.Records()[5]
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), beta.Published)
}

func TestCSVSource(t *testing.T) {
	src := CSVSource{Path: filepath.Join("testdata", "channels.csv")}
	assert.Contains(t, src.Name(), "channels.csv")
	table, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, table.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseCSVColumnOrderAndExtras(t *testing.T) {
	input := "title,extra,engagement,comment_count,like_count,view_count,short,published,year,channel_name\n" +
		"Hello,x,0.5,1.0,2,3,true,2021-05-05T00:00:00Z,2021,Gamma\n"
	table, err := ParseCSV("inline", strings.NewReader(input))
	require.NoError(t, err)
	rec := table.Records()[0]
	assert.Equal(t, "Gamma", rec.Channel)
	assert.Equal(t, "Hello", rec.Title)
	assert.True(t, rec.Short)
	assert.Equal(t, int64(1), rec.Comments)
	assert.Equal(t, 0.5, rec.Engagement)
	assert.Equal(t, "inline", table.Source())
}

func TestParseCSVErrors(t *testing.T) {
	header := "channel_name,year,published,short,view_count,like_count,comment_count,engagement,title\n"
	cases := []struct {
		name   string
		input  string
		column string
		line   int
	}{
		{"missing column", "channel_name,year\nA,2020\n", ColumnPublished, 0},
		{"bad year", header + "A,twenty,2020-01-01,0,1,1,1,0.1,t\n", ColumnYear, 2},
		{"bad timestamp", header + "A,2020,yesterday,0,1,1,1,0.1,t\n", ColumnPublished, 2},
		{"bad flag", header + "A,2020,2020-01-01,2,1,1,1,0.1,t\n", ColumnShort, 2},
		{"negative views", header + "A,2020,2020-01-01,0,-5,1,1,0.1,t\n", ColumnViews, 2},
		{"huge views", header + "A,2020,2020-01-01,0,1e20,1,1,0.1,t\n", ColumnViews, 2},
		{"views past int64", header + "A,2020,2020-01-01,0,99999999999999999999,1,1,0.1,t\n", ColumnViews, 2},
		{"fractional likes", header + "A,2020,2020-01-01,0,1,1.5,1,0.1,t\n", ColumnLikes, 2},
		{"rate out of range", header + "A,2020,2020-01-01,0,1,1,1,1.7,t\n", ColumnEngagement, 2},
		{"empty channel", header + "A,2020,2020-01-01,0,1,1,1,0.1,t\n,2020,2020-01-01,0,1,1,1,0.1,t\n", ColumnChannel, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCSV("inline", strings.NewReader(tc.input))
			require.Error(t, err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.column, perr.Column)
			assert.Equal(t, tc.line, perr.Line)
		})
	}
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV("empty", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = ParseCSV("header-only", strings.NewReader("channel_name,year,published,short,view_count,like_count,comment_count,engagement,title\n"))
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadCSV("  ")
	assert.Error(t, err)
}

func TestFilterAndPartition(t *testing.T) {
	table := loadFixture(t)
	q := Query{Channel: "Alpha", Year: 2023}
	subset := table.Filter(q)
	assert.Equal(t, 3, subset.Len())
	for _, r := range subset.Records() {
		assert.True(t, q.Match(r))
	}

	videos, shorts := subset.Partition()
	assert.Equal(t, 2, videos.Len())
	assert.Equal(t, 1, shorts.Len())
	assert.Equal(t, shorts.Records(), subset.Kind(KindShort).Records())
	assert.Equal(t, videos.Records(), subset.Kind(KindVideo).Records())

	assert.Equal(t, 0, table.Filter(Query{Channel: "Alpha", Year: 1999}).Len())
}

func TestFilterIdempotent(t *testing.T) {
	table := loadFixture(t)
	for _, channel := range table.Channels() {
		for year := 2022; year <= 2024; year++ {
			q := Query{Channel: channel, Year: year}
			once := table.Filter(q)
			twice := once.Filter(q)
			assert.Equal(t, once.Records(), twice.Records())

			v1, s1 := once.Partition()
			v2, s2 := twice.Partition()
			assert.Equal(t, v1.Records(), v2.Records())
			assert.Equal(t, s1.Records(), s2.Records())
		}
	}
}

func TestAverage(t *testing.T) {
	table := loadFixture(t)
	videos, shorts := table.Filter(Query{Channel: "Alpha", Year: 2023}).Partition()

	avg := videos.Average(metric.ViewCount)
	assert.True(t, avg.Valid())
	assert.Equal(t, 2, avg.Count)
	assert.Equal(t, 1_000_000.0, avg.Value)
	assert.Equal(t, "1.0M", avg.Format(metric.ViewCount))

	assert.Equal(t, "7.04%", shorts.Average(metric.Engagement).Format(metric.Engagement))
	assert.Equal(t, "2.3K", shorts.Average(metric.ViewCount).Format(metric.ViewCount))
}

func TestAverageEmptyPartition(t *testing.T) {
	table := loadFixture(t)
	_, shorts := table.Filter(Query{Channel: "Beta", Year: 2024}).Partition()
	require.Equal(t, 0, shorts.Len())

	assert.NotPanics(t, func() {
		avg := shorts.Average(metric.LikeCount)
		assert.False(t, avg.Valid())
		assert.Equal(t, metric.NoData, avg.Format(metric.LikeCount))
	})
}

func TestSeriesSortedByPublished(t *testing.T) {
	table := loadFixture(t)
	videos := table.Filter(Query{Channel: "Alpha", Year: 2023}).Kind(KindVideo)
	points := videos.Series(metric.LikeCount)
	require.Len(t, points, 2)
	assert.Equal(t, "Alpha long B", points[0].Title)
	assert.Equal(t, 10000.0, points[0].Value)
	assert.Equal(t, "Alpha long A", points[1].Title)
	assert.True(t, points[0].Published.Before(points[1].Published))
}

func TestTableIsolation(t *testing.T) {
	records := []Record{{Channel: "A", Year: 2020}}
	table := NewTable("mem", records)
	records[0].Channel = "mutated"
	assert.Equal(t, "A", table.Records()[0].Channel)

	out := table.Records()
	out[0].Channel = "changed"
	assert.Equal(t, "A", table.Records()[0].Channel)

	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
	_, _, ok := nilTable.YearBounds()
	assert.False(t, ok)
	assert.False(t, nilTable.HasChannel("A"))
}
