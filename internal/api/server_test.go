package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/banshee-data/motiondetector/internal/config"
	"github.com/banshee-data/motiondetector/internal/monitoring"
	"github.com/banshee-data/motiondetector/internal/storage/sqlite"
	"github.com/banshee-data/motiondetector/internal/version"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, (&Server{}).ServeMux(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	monitoring.NewMetrics(reg).FrameDiscarded("queue", nil)

	rec := get(t, (&Server{Registry: reg}).ServeMux(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `motiondetector_frames_discarded_total{stage="queue"} 1`)
}

func TestStreamRouteOptional(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, (&Server{}).ServeMux(), "/ws").Code)

	stream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	assert.Equal(t, http.StatusTeapot, get(t, (&Server{Stream: stream}).ServeMux(), "/ws").Code)
}

func TestListMatches(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "m.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := store.Record(ctx, sqlite.MatchRecord{
			FrameID: uuid.New(), Seq: uint64(i + 1), Stage: "detector", Row: i,
			PatternWidth: 3, PatternHeight: 4, DetectedAt: time.Now(),
		})
		require.NoError(t, err)
	}
	mux := (&Server{Store: store}).ServeMux()

	rec := get(t, mux, "/api/matches?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total   int64 `json:"total"`
		Matches []struct {
			Seq uint64 `json:"seq"`
			Row int    `json:"row"`
		} `json:"matches"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp.Total)
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, uint64(3), resp.Matches[0].Seq, "newest first")
}

func TestListMatches_Errors(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, (&Server{}).ServeMux(), "/api/matches").Code)

	mux := (&Server{Store: fakeLister{}}).ServeMux()
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/api/matches?limit=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/api/matches?limit=-1").Code)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/matches", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	core, logs := observer.New(zapcore.ErrorLevel)
	failing := (&Server{Store: fakeLister{err: errors.New("disk gone")}, Log: zap.New(core)}).ServeMux()
	assert.Equal(t, http.StatusInternalServerError, get(t, failing, "/api/matches").Code)
	assert.Equal(t, 1, logs.Len())
}

func TestListMatches_EmptyIsArray(t *testing.T) {
	rec := get(t, (&Server{Store: fakeLister{}}).ServeMux(), "/api/matches")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"matches":[]`)
}

func TestListMatches_ClampsLimit(t *testing.T) {
	lister := &recordingLister{}
	get(t, (&Server{Store: lister}).ServeMux(), "/api/matches?limit=999999")
	assert.Equal(t, maxMatchLimit, lister.limit)

	get(t, (&Server{Store: lister}).ServeMux(), "/api/matches")
	assert.Equal(t, defaultMatchLimit, lister.limit)
}

func TestShowConfig(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, (&Server{}).ServeMux(), "/api/config").Code)

	rec := get(t, (&Server{Config: config.DefaultPipelineConfig()}).ServeMux(), "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)

	var got config.PipelineConfig
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, config.TopologyAsync, got.GetTopology())
	assert.Equal(t, []string{"010", "111", "010", "101"}, got.Pattern)
}

func TestShowVersion(t *testing.T) {
	rec := get(t, (&Server{}).ServeMux(), "/api/version")
	require.Equal(t, http.StatusOK, rec.Code)

	var got version.Info
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, version.Get(), got)
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := LoggingMiddleware(zap.New(core), (&Server{}).ServeMux())

	get(t, h, "/healthz")
	get(t, h, "/api/version")
	get(t, h, "/ws")

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.True(t, strings.HasPrefix(entries[1].ContextMap()["uri"].(string), "/api/version"))
}

type fakeLister struct{ err error }

func (f fakeLister) Recent(context.Context, int) ([]sqlite.MatchRecord, error) { return nil, f.err }
func (f fakeLister) Count(context.Context) (int64, error)                      { return 0, f.err }

type recordingLister struct{ limit int }

func (r *recordingLister) Recent(_ context.Context, limit int) ([]sqlite.MatchRecord, error) {
	r.limit = limit
	return nil, nil
}
func (r *recordingLister) Count(context.Context) (int64, error) { return 0, nil }
