package pipeline

import (
	"time"

	"github.com/banshee-data/motiondetector/internal/detect"
	"github.com/banshee-data/motiondetector/internal/frame"
)

// Observer receives pipeline events. Hooks are called synchronously from
// whichever goroutine raised the event, so implementations must be safe for
// concurrent use and should return quickly.
//
// A hook that fires after a frame was handed to a buffering stage may only
// read the frame's identity fields (ID, Seq, CreatedAt).
type Observer interface {
	// FrameCreated fires when a source has stamped a new frame.
	FrameCreated(stage string, f *frame.Frame)
	// FrameEnqueued fires after a buffering stage accepted f; depth is the
	// queue length after the send.
	FrameEnqueued(stage string, f *frame.Frame, depth int)
	// FrameDequeued fires when a drain goroutine takes f off its queue.
	FrameDequeued(stage string, f *frame.Frame, depth int)
	// FrameProcessed fires after stage's Process returned for f.
	FrameProcessed(stage string, f *frame.Frame, elapsed time.Duration)
	// FrameDiscarded fires for frames a closed buffering stage dropped.
	FrameDiscarded(stage string, f *frame.Frame)
	// MatchFound fires once per pattern occurrence, in scan order.
	MatchFound(stage string, f *frame.Frame, m detect.Match)
}

// NopObserver ignores every event. Embed it to implement a subset of hooks.
type NopObserver struct{}

func (NopObserver) FrameCreated(string, *frame.Frame)                  {}
func (NopObserver) FrameEnqueued(string, *frame.Frame, int)            {}
func (NopObserver) FrameDequeued(string, *frame.Frame, int)            {}
func (NopObserver) FrameProcessed(string, *frame.Frame, time.Duration) {}
func (NopObserver) FrameDiscarded(string, *frame.Frame)                {}
func (NopObserver) MatchFound(string, *frame.Frame, detect.Match)      {}

type multiObserver []Observer

// Observers fans every event out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multiObserver) FrameCreated(stage string, f *frame.Frame) {
	for _, o := range m {
		o.FrameCreated(stage, f)
	}
}

func (m multiObserver) FrameEnqueued(stage string, f *frame.Frame, depth int) {
	for _, o := range m {
		o.FrameEnqueued(stage, f, depth)
	}
}

func (m multiObserver) FrameDequeued(stage string, f *frame.Frame, depth int) {
	for _, o := range m {
		o.FrameDequeued(stage, f, depth)
	}
}

func (m multiObserver) FrameProcessed(stage string, f *frame.Frame, elapsed time.Duration) {
	for _, o := range m {
		o.FrameProcessed(stage, f, elapsed)
	}
}

func (m multiObserver) FrameDiscarded(stage string, f *frame.Frame) {
	for _, o := range m {
		o.FrameDiscarded(stage, f)
	}
}

func (m multiObserver) MatchFound(stage string, f *frame.Frame, match detect.Match) {
	for _, o := range m {
		o.MatchFound(stage, f, match)
	}
}
