// Package api serves the motion detector's HTTP surface: metrics, the live
// frame stream, match history and build information.
package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/banshee-data/motiondetector/internal/config"
	"github.com/banshee-data/motiondetector/internal/httputil"
	"github.com/banshee-data/motiondetector/internal/storage/sqlite"
	"github.com/banshee-data/motiondetector/internal/version"
)

const (
	defaultMatchLimit = 50
	maxMatchLimit     = 1000
)

// MatchLister is the read side of the match store.
type MatchLister interface {
	Recent(ctx context.Context, limit int) ([]sqlite.MatchRecord, error)
	Count(ctx context.Context) (int64, error)
}

// Server holds the handlers' dependencies. Store and Stream are optional.
type Server struct {
	Registry *prometheus.Registry
	Stream   http.Handler
	Store    MatchLister
	Config   *config.PipelineConfig
	Log      *zap.Logger
}

// ServeMux returns a mux with every route mounted.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthz)
	if s.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry}))
	}
	if s.Stream != nil {
		mux.Handle("/ws", s.Stream)
	}
	mux.HandleFunc("/api/matches", s.listMatches)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

type matchesResponse struct {
	Total   int64                `json:"total"`
	Matches []sqlite.MatchRecord `json:"matches"`
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.Store == nil {
		httputil.NotFound(w, "match history is disabled")
		return
	}

	limit := defaultMatchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxMatchLimit)
	}

	total, err := s.Store.Count(r.Context())
	if err != nil {
		s.logger().Error("failed to count matches", zap.Error(err))
		httputil.InternalServerError(w, "failed to count matches")
		return
	}
	matches, err := s.Store.Recent(r.Context(), limit)
	if err != nil {
		s.logger().Error("failed to list matches", zap.Error(err))
		httputil.InternalServerError(w, "failed to list matches")
		return
	}
	if matches == nil {
		matches = []sqlite.MatchRecord{}
	}
	httputil.WriteJSONOK(w, matchesResponse{Total: total, Matches: matches})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.Config == nil {
		httputil.NotFound(w, "no configuration loaded")
		return
	}
	httputil.WriteJSONOK(w, s.Config)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Get())
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status and duration at debug level.
// The websocket route is passed through untouched so the upgrade can hijack
// the connection.
func LoggingMiddleware(log *zap.Logger, next http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Int("status", lrw.statusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
