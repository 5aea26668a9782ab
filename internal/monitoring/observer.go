package monitoring

import (
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/motiondetector/internal/detect"
	"github.com/banshee-data/motiondetector/internal/frame"
)

// LogObserver writes pipeline events to a zap logger. Frame telemetry is
// logged at debug, matches at info and discards at warn.
type LogObserver struct {
	log *zap.Logger
}

// NewLogObserver returns an observer logging to l, or to a no-op logger if
// l is nil.
func NewLogObserver(l *zap.Logger) *LogObserver {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogObserver{log: l.Named("pipeline")}
}

func frameFields(stage string, f *frame.Frame) []zap.Field {
	return []zap.Field{
		zap.String("stage", stage),
		zap.Stringer("frame_id", f.ID),
		zap.Uint64("seq", f.Seq),
	}
}

func (o *LogObserver) FrameCreated(stage string, f *frame.Frame) {
	if ce := o.log.Check(zap.DebugLevel, "frame created"); ce != nil {
		ce.Write(append(frameFields(stage, f), zap.Int("width", f.Width), zap.Int("height", f.Height))...)
	}
}

func (o *LogObserver) FrameEnqueued(stage string, f *frame.Frame, depth int) {
	if ce := o.log.Check(zap.DebugLevel, "frame enqueued"); ce != nil {
		ce.Write(append(frameFields(stage, f), zap.Int("depth", depth))...)
	}
}

func (o *LogObserver) FrameDequeued(stage string, f *frame.Frame, depth int) {
	if ce := o.log.Check(zap.DebugLevel, "frame dequeued"); ce != nil {
		ce.Write(append(frameFields(stage, f), zap.Int("depth", depth))...)
	}
}

func (o *LogObserver) FrameProcessed(stage string, f *frame.Frame, elapsed time.Duration) {
	if ce := o.log.Check(zap.DebugLevel, "frame processed"); ce != nil {
		ce.Write(append(frameFields(stage, f), zap.Duration("elapsed", elapsed))...)
	}
}

func (o *LogObserver) FrameDiscarded(stage string, f *frame.Frame) {
	o.log.Warn("frame discarded", frameFields(stage, f)...)
}

func (o *LogObserver) MatchFound(stage string, f *frame.Frame, m detect.Match) {
	o.log.Info("pattern found", append(frameFields(stage, f), zap.Int("row", m.Row), zap.Int("col", m.Col))...)
}
