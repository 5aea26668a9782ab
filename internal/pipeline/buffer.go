package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/motiondetector/internal/frame"
)

// BufferingStage decouples its producers from its downstream stages with a
// bounded FIFO. Process enqueues and returns; a single drain goroutine,
// started by the first Process call, dequeues frames in arrival order and
// runs the default propagation over this stage's links.
//
// A full queue blocks the producer until the drain goroutine frees a slot.
// Frames are never dropped while the stage is open.
//
// Handoff: after Process(f) returns the caller must not touch f again; the
// drain goroutine may be mutating it.
type BufferingStage struct {
	Base
	queue chan *frame.Frame

	startOnce sync.Once
	started   atomic.Bool

	// mu is held shared by producers while they send and exclusively by
	// Close, so no frame can slip into the queue after Close swept it.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
	exited    chan struct{}
}

// NewBufferingStage creates a stage with room for capacity pending frames.
func NewBufferingStage(capacity int, opts ...Option) (*BufferingStage, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: queue capacity %d must be positive", ErrInvalidConfig, capacity)
	}
	return &BufferingStage{
		Base:   newBase(resolve("queue", opts)),
		queue:  make(chan *frame.Frame, capacity),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}, nil
}

// Process enqueues f, starting the drain goroutine on first use. It blocks
// while the queue is full. After Close, f is discarded.
func (b *BufferingStage) Process(f *frame.Frame) {
	b.startOnce.Do(b.start)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.discard(f)
		return
	}
	select {
	case <-b.done:
		b.discard(f)
		return
	default:
	}

	select {
	case b.queue <- f:
		b.events().FrameEnqueued(b.name, f, len(b.queue))
	case <-b.done:
		b.discard(f)
	}
}

// PropagateDownstream does nothing: downstream work happens on the drain
// goroutine, never on the producer's.
func (b *BufferingStage) PropagateDownstream(*frame.Frame) {}

// Close stops the drain goroutine and waits for it to exit. The frame being
// propagated when Close is called finishes; frames still queued, frames
// held by blocked producers and frames offered later are discarded. Close is
// idempotent and safe before the first Process.
//
// Close must not be called from a stage driven by this stage's drain
// goroutine.
func (b *BufferingStage) Close() error {
	b.closeOnce.Do(func() {
		// Never started: mark the drain as exited so nothing waits on it.
		b.startOnce.Do(func() { close(b.exited) })

		close(b.done)
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		<-b.exited
		for {
			select {
			case f := <-b.queue:
				b.discard(f)
			default:
				return
			}
		}
	})
	return nil
}

// Started reports whether the drain goroutine has been launched.
func (b *BufferingStage) Started() bool { return b.started.Load() }

// Len returns the number of frames waiting in the queue.
func (b *BufferingStage) Len() int { return len(b.queue) }

// Cap returns the queue capacity.
func (b *BufferingStage) Cap() int { return cap(b.queue) }

func (b *BufferingStage) start() {
	b.started.Store(true)
	go b.drain()
}

func (b *BufferingStage) drain() {
	defer close(b.exited)
	for {
		select {
		case <-b.done:
			return
		default:
		}

		select {
		case <-b.done:
			return
		case f := <-b.queue:
			b.events().FrameDequeued(b.name, f, len(b.queue))
			b.Base.PropagateDownstream(f)
		}
	}
}

func (b *BufferingStage) discard(f *frame.Frame) {
	b.events().FrameDiscarded(b.name, f)
}
