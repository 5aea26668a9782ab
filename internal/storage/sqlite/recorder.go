package sqlite

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/banshee-data/motiondetector/internal/detect"
	"github.com/banshee-data/motiondetector/internal/frame"
	"github.com/banshee-data/motiondetector/internal/pipeline"
	"github.com/banshee-data/motiondetector/internal/timeutil"
)

// Recorder is a pipeline observer that writes every MatchFound event to a
// MatchStore. Write failures are logged and counted, never propagated into
// the pipeline.
type Recorder struct {
	pipeline.NopObserver

	store   *MatchStore
	pattern frame.Pattern
	clock   timeutil.Clock
	log     *zap.Logger
	failed  atomic.Uint64
}

// NewRecorder records matches of p into store. A nil clock uses the wall
// clock.
func NewRecorder(store *MatchStore, p frame.Pattern, clock timeutil.Clock, log *zap.Logger) *Recorder {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: store, pattern: p, clock: clock, log: log.Named("recorder")}
}

func (r *Recorder) MatchFound(stage string, f *frame.Frame, m detect.Match) {
	_, err := r.store.Record(context.Background(), MatchRecord{
		FrameID:       f.ID,
		Seq:           f.Seq,
		Stage:         stage,
		Row:           m.Row,
		Col:           m.Col,
		PatternWidth:  r.pattern.Width(),
		PatternHeight: r.pattern.Height(),
		DetectedAt:    r.clock.Now(),
	})
	if err != nil {
		r.failed.Add(1)
		r.log.Error("failed to record match", zap.String("stage", stage), zap.Uint64("seq", f.Seq), zap.Error(err))
	}
}

// Failed returns how many matches could not be stored.
func (r *Recorder) Failed() uint64 { return r.failed.Load() }
