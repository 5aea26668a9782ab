package pipeline

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/motiondetector/internal/frame"
)

// SourceConfig holds the frame geometry and cadence of a SourceStage.
type SourceConfig struct {
	Width  int
	Height int
	// FrameRate is the number of frames generated per second.
	FrameRate float64
}

// Validate checks that every field is positive.
func (c SourceConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d must be positive", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.FrameRate <= 0 || math.IsNaN(c.FrameRate) || math.IsInf(c.FrameRate, 0) {
		return fmt.Errorf("%w: frame rate %v must be a positive number", ErrInvalidConfig, c.FrameRate)
	}
	return nil
}

// Interval is the sleep between two generated frames.
func (c SourceConfig) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.FrameRate)
}

// SourceStage generates frames on its own goroutine and pushes each one
// through the graph.
type SourceStage struct {
	Base
	cfg       SourceConfig
	interval  time.Duration
	generator frame.Generator

	mu       sync.Mutex // serialises Start and Stop
	running  atomic.Bool
	doneCh   chan struct{}
	produced atomic.Uint64
}

// NewSourceStage creates a stopped source. Without WithGenerator it emits
// random frames seeded from the current time.
func NewSourceStage(cfg SourceConfig, opts ...Option) (*SourceStage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := resolve("source", opts)
	if s.generator == nil {
		s.generator = frame.NewRandomGenerator(uint64(time.Now().UnixNano()))
	}
	return &SourceStage{
		Base:      newBase(s),
		cfg:       cfg,
		interval:  cfg.Interval(),
		generator: s.generator,
	}, nil
}

// Start launches the generation goroutine. It is a no-op while running.
func (s *SourceStage) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return
	}
	s.running.Store(true)
	s.doneCh = make(chan struct{})
	go s.run(s.doneCh)
}

// Stop clears the running flag and waits for the generation goroutine to
// exit. The flag is only read at the top of each iteration, so Stop waits
// out the frame in flight and the sleep that follows it. Calling Stop when
// not running is a no-op.
//
// Stop must not be called from a stage driven by this source's goroutine.
func (s *SourceStage) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doneCh == nil {
		return
	}
	s.running.Store(false)
	<-s.doneCh
	s.doneCh = nil
}

// Running reports whether the generation goroutine is active.
func (s *SourceStage) Running() bool { return s.running.Load() }

// Produced returns how many frames the source has generated.
func (s *SourceStage) Produced() uint64 { return s.produced.Load() }

// Config returns the source configuration.
func (s *SourceStage) Config() SourceConfig { return s.cfg }

// Process forwards f downstream; a source does no work of its own.
func (s *SourceStage) Process(f *frame.Frame) {
	s.PropagateDownstream(f)
}

func (s *SourceStage) run(done chan struct{}) {
	defer close(done)
	for s.running.Load() {
		f := s.generator.Generate(s.cfg.Width, s.cfg.Height)
		f.Seq = s.produced.Add(1)
		f.CreatedAt = s.clock.Now()
		s.events().FrameCreated(s.name, f)

		s.Process(f)

		s.clock.Sleep(s.interval)
	}
}
