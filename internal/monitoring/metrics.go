package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/banshee-data/motiondetector/internal/detect"
	"github.com/banshee-data/motiondetector/internal/frame"
)

// Metrics holds the pipeline's Prometheus collectors and updates them as a
// pipeline observer.
type Metrics struct {
	FramesCreated   *prometheus.CounterVec
	FramesProcessed *prometheus.CounterVec
	FramesDiscarded *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	QueueDepth      *prometheus.GaugeVec
	Matches         *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. Use a fresh
// prometheus.NewRegistry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FramesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motiondetector_frames_created_total",
				Help: "Frames generated by source stages",
			},
			[]string{"stage"},
		),
		FramesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motiondetector_frames_processed_total",
				Help: "Frames handled by each stage",
			},
			[]string{"stage"},
		),
		FramesDiscarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motiondetector_frames_discarded_total",
				Help: "Frames dropped by closed buffering stages",
			},
			[]string{"stage"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "motiondetector_stage_duration_seconds",
				Help:    "Time spent in a stage's Process, including backpressure waits",
				Buckets: []float64{.00001, .0001, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"stage"},
		),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "motiondetector_queue_depth",
				Help: "Frames waiting in a buffering stage",
			},
			[]string{"stage"},
		),
		Matches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motiondetector_pattern_matches_total",
				Help: "Pattern occurrences marked by detector stages",
			},
			[]string{"stage"},
		),
	}
}

func (m *Metrics) FrameCreated(stage string, _ *frame.Frame) {
	m.FramesCreated.WithLabelValues(stage).Inc()
}

func (m *Metrics) FrameEnqueued(stage string, _ *frame.Frame, depth int) {
	m.QueueDepth.WithLabelValues(stage).Set(float64(depth))
}

func (m *Metrics) FrameDequeued(stage string, _ *frame.Frame, depth int) {
	m.QueueDepth.WithLabelValues(stage).Set(float64(depth))
}

func (m *Metrics) FrameProcessed(stage string, _ *frame.Frame, elapsed time.Duration) {
	m.FramesProcessed.WithLabelValues(stage).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *Metrics) FrameDiscarded(stage string, _ *frame.Frame) {
	m.FramesDiscarded.WithLabelValues(stage).Inc()
}

func (m *Metrics) MatchFound(stage string, _ *frame.Frame, _ detect.Match) {
	m.Matches.WithLabelValues(stage).Inc()
}
