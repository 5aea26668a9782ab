package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/banshee-data/motiondetector/internal/api"
	"github.com/banshee-data/motiondetector/internal/config"
	"github.com/banshee-data/motiondetector/internal/frame"
	"github.com/banshee-data/motiondetector/internal/monitoring"
	"github.com/banshee-data/motiondetector/internal/pipeline"
	"github.com/banshee-data/motiondetector/internal/render"
	"github.com/banshee-data/motiondetector/internal/storage/sqlite"
	"github.com/banshee-data/motiondetector/internal/stream"
	"github.com/banshee-data/motiondetector/internal/version"
)

var (
	configFile = flag.String("config", "", "Path to a pipeline config JSON file (defaults are built in)")
	topology   = flag.String("topology", "", "Pipeline layout: display, detector, async or chain")
	duration   = flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	listen     = flag.String("listen", "", "HTTP listen address for /metrics, /ws and /healthz (empty disables)")
	dbPath     = flag.String("db", "", "SQLite file recording pattern matches (empty disables)")
	seed       = flag.Uint64("seed", 0, "Random generator seed (0 seeds from the clock)")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn or error")
	devMode    = flag.Bool("dev", false, "Development logging (console encoder)")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configFile, setFlags())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := monitoring.NewLogger(monitoring.LogConfig{
		Level:       cfg.GetLogLevel(),
		Development: cfg.GetLogDevelopment(),
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()
	monitoring.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, logger); err != nil {
		logger.Fatal("motion detector failed", zap.Error(err))
	}
}

// setFlags returns the flags given on the command line, by name.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig layers the file (or built-in defaults), MOTION_* environment
// variables and explicitly set flags, in that order.
func loadConfig(path string, set map[string]bool) (*config.PipelineConfig, error) {
	cfg := config.DefaultPipelineConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadPipelineConfig(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if set["topology"] {
		cfg.Topology = topology
	}
	if set["duration"] {
		d := duration.String()
		cfg.RunDuration = &d
	}
	if set["listen"] {
		cfg.Listen = listen
	}
	if set["db"] {
		cfg.DBPath = dbPath
	}
	if set["seed"] {
		cfg.Seed = seed
	}
	if set["log-level"] {
		cfg.LogLevel = logLevel
	}
	if set["dev"] {
		cfg.LogDevelopment = devMode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run builds the pipeline described by cfg, runs it until ctx is done or the
// configured duration elapses, then tears it down.
func run(ctx context.Context, cfg *config.PipelineConfig, stdout io.Writer, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observers := []pipeline.Observer{
		monitoring.NewLogObserver(logger),
		monitoring.NewMetrics(reg),
	}

	srv := &api.Server{Registry: reg, Config: cfg, Log: logger}

	if path := cfg.GetDBPath(); path != "" {
		store, err := sqlite.Open(path, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close match store", zap.Error(err))
			}
		}()
		srv.Store = store
		observers = append(observers, sqlite.NewRecorder(store, cfg.GetPattern(), nil, logger))
	}

	var out outputs
	if cfg.GetRender() {
		out.display = render.NewDisplay(stdout, render.Text)
	}

	var wg sync.WaitGroup
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer func() {
		stopHub()
		wg.Wait()
	}()

	if cfg.GetListen() != "" {
		hub := stream.NewHub(logger)
		out.viewers = hub
		srv.Stream = hub
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Run(hubCtx)
		}()
	}

	var gen frame.Generator
	if s := cfg.GetSeed(); s != 0 {
		gen = frame.NewRandomGenerator(s)
	}
	src, err := buildTopology(cfg, out, pipeline.Observers(observers...), gen)
	if err != nil {
		return err
	}

	var server *http.Server
	if addr := cfg.GetListen(); addr != "" {
		server = &http.Server{Addr: addr, Handler: api.LoggingMiddleware(logger, srv.ServeMux())}
		serveErr := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
		// Surface bind failures before starting the source.
		select {
		case err := <-serveErr:
			return fmt.Errorf("failed to start server: %w", err)
		case <-time.After(50 * time.Millisecond):
		}
	}

	logger.Info("starting pipeline",
		zap.String("version", version.Version),
		zap.String("git_sha", version.GitSHA),
		zap.String("topology", cfg.GetTopology()),
		zap.Strings("stages", stageNames(src)),
		zap.Int("width", cfg.GetWidth()),
		zap.Int("height", cfg.GetHeight()),
		zap.Float64("frame_rate", cfg.GetFrameRate()),
		zap.Strings("pattern", cfg.GetPattern().Strings()),
	)
	src.Start()

	var deadline <-chan time.Time
	if d := cfg.GetRunDuration(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		deadline = timer.C
	}
	select {
	case <-ctx.Done():
		logger.Info("interrupted")
	case <-deadline:
		logger.Info("run duration elapsed")
	}

	src.Stop()
	closeErr := pipeline.CloseAll(src)
	logger.Info("pipeline stopped", zap.Uint64("frames", src.Produced()))

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", zap.Error(err))
			_ = server.Close()
		}
	}
	return closeErr
}

