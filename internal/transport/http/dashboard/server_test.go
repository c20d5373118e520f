package dashboardhttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ytdash/internal/chart"
	"ytdash/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type staticTables struct{ table *dataset.Table }

func (s staticTables) Table() *dataset.Table { return s.table }

type fakeSnapshot struct {
	calls int
	err   error
}

func (f *fakeSnapshot) PNG(_ context.Context, html []byte) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if !strings.Contains(string(html), "Views over time (Shorts)") {
		return nil, errors.New("unexpected page")
	}
	return []byte("\x89PNG fake"), nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixtureTable() *dataset.Table {
	return dataset.NewTable("fixture.csv", []dataset.Record{
		{Channel: "Alpha", Year: 2023, Published: day(2023, 2, 1), Title: "late", Views: 1_000_000, Likes: 100, Comments: 10, Engagement: 0.1234},
		{Channel: "Alpha", Year: 2023, Published: day(2023, 1, 1), Title: "early", Views: 2_000_000, Likes: 300, Comments: 20, Engagement: 0.1234},
		{Channel: "Alpha", Year: 2023, Published: day(2023, 1, 5), Title: "clip", Short: true, Views: 2_300, Likes: 42, Comments: 1, Engagement: 0.05},
		{Channel: "Beta", Year: 2022, Published: day(2022, 6, 1), Title: "b", Views: 42, Likes: 1, Comments: 0, Engagement: 0.02},
	})
}

func newTestServer(t *testing.T, snap SnapshotRenderer, perMinute int) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Title:             "Test Dashboard",
		Tables:            staticTables{table: fixtureTable()},
		Chart:             chart.Options{Width: 640, Height: 420, Theme: "westeros"},
		Snapshot:          snap,
		SnapshotPerMinute: perMinute,
	})
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresTables(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestDashboardAPI_Defaults(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	rec := get(t, srv, "/api/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, "Alpha", gjson.Get(body, "selection.channel").String())
	assert.Equal(t, "view_count", gjson.Get(body, "selection.metric").String())
	assert.Equal(t, int64(2023), gjson.Get(body, "selection.year").Int())
	assert.Equal(t, "Views", gjson.Get(body, "label").String())
	assert.Equal(t, "Average Views: 1.5M", gjson.Get(body, "videos.average_text").String())
	assert.Equal(t, "Average Views: 2.3K", gjson.Get(body, "shorts.average_text").String())
	assert.Equal(t, "early", gjson.Get(body, "videos.points.0.title").String())
	assert.Equal(t, int64(2), gjson.Get(body, "videos.points.#").Int())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestDashboardAPI_Selection(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	rec := get(t, srv, "/api/dashboard?metric=engagement")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Average Engagement Rate: 12.34%", gjson.Get(rec.Body.String(), "videos.average_text").String())

	rec = get(t, srv, "/api/dashboard?channel=Beta&year=2022&metric=like_count")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "Average Likes: 1", gjson.Get(body, "videos.average_text").String())
	assert.Equal(t, "Average Likes: N/A", gjson.Get(body, "shorts.average_text").String())
	assert.Equal(t, int64(0), gjson.Get(body, "shorts.points.#").Int())
}

func TestDashboardAPI_InvalidSelection(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	for _, target := range []string{
		"/api/dashboard?channel=Gamma",
		"/api/dashboard?metric=dislikes",
		"/api/dashboard?year=1999",
		"/api/dashboard?year=abc",
	} {
		rec := get(t, srv, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, gjson.Get(rec.Body.String(), "error").String(), target)
	}
}

func TestControlsAPI(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	rec := get(t, srv, "/api/controls")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, `["Alpha","Beta"]`, gjson.Get(body, "channels").Raw)
	assert.Equal(t, int64(2022), gjson.Get(body, "min_year").Int())
	assert.Equal(t, int64(2023), gjson.Get(body, "max_year").Int())
	assert.Equal(t, "engagement", gjson.Get(body, "metrics.3.id").String())
	assert.Equal(t, "Engagement Rate", gjson.Get(body, "metrics.3.label").String())
}

func TestPage(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()
	assert.Contains(t, html, "<title>Test Dashboard</title>")
	assert.Contains(t, html, `<option value="Beta">Beta</option>`)
	assert.Contains(t, html, "/charts/videos?channel=Alpha")
	assert.Contains(t, html, "/charts/shorts?channel=Alpha")
	assert.Contains(t, html, "Average Views: 1.5M")
	assert.NotContains(t, html, "Invalid selection")

	rec = get(t, srv, "/?channel=Gamma")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid selection")
	assert.Contains(t, rec.Body.String(), "Average Views: 1.5M")
}

func TestChartRoute(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	rec := get(t, srv, "/charts/shorts?metric=comment_count")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Comments over time (Shorts)")
	assert.Contains(t, rec.Body.String(), "clip")

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/charts/live").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/charts/videos?channel=Gamma").Code)
}

func TestSnapshot(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, newTestServer(t, nil, 0), "/api/snapshot.png").Code)

	snap := &fakeSnapshot{}
	srv := newTestServer(t, snap, 1)
	rec := get(t, srv, "/api/snapshot.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, snap.calls)

	// 每分钟一次，第二次被限流。
	rec = get(t, srv, "/api/snapshot.png")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, snap.calls)
}

func TestSnapshot_Unavailable(t *testing.T) {
	srv := newTestServer(t, &fakeSnapshot{err: chart.ErrSnapshotUnavailable}, 5)
	rec := get(t, srv, "/api/snapshot.png")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	rec := get(t, srv, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "status").String())
	assert.Equal(t, int64(4), gjson.Get(rec.Body.String(), "rows").Int())

	get(t, srv, "/api/controls")
	srv.Metrics().ObserveReload(nil)
	rec = get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `ytdash_http_requests_total{method="GET",route="/api/controls",status="200"} 1`)
	assert.Contains(t, body, "ytdash_dataset_rows 4")
	assert.Contains(t, body, `ytdash_dataset_reloads_total{result="ok"} 1`)
}

func TestRequestIDPassthrough(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	rec := get(t, srv, "/static/dashboard.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".sidebar")
}
