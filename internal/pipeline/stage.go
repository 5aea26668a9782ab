package pipeline

import (
	"errors"
	"io"

	"github.com/banshee-data/motiondetector/internal/frame"
	"github.com/banshee-data/motiondetector/internal/timeutil"
)

// ErrInvalidConfig is returned by stage constructors for unusable settings.
var ErrInvalidConfig = errors.New("invalid stage configuration")

// Stage is a node in the processing graph.
type Stage interface {
	// Name identifies the stage in logs and metrics.
	Name() string
	// Link registers next as a downstream neighbour and returns it so calls
	// can be chained.
	Link(next Stage) Stage
	// Downstream returns the linked neighbours in link order.
	Downstream() []Stage
	// Process does this stage's work on f.
	Process(f *frame.Frame)
	// PropagateDownstream forwards f to the downstream neighbours.
	PropagateDownstream(f *frame.Frame)
}

// Option configures a stage at construction time.
type Option func(*settings)

type settings struct {
	name      string
	observer  Observer
	clock     timeutil.Clock
	generator frame.Generator
}

// WithName overrides the stage's default name.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithObserver attaches an event hook. Nil keeps the no-op observer.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock replaces the real clock, typically with a timeutil.MockClock.
func WithClock(c timeutil.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithGenerator sets the frame generator of a SourceStage. Other stages
// ignore it.
func WithGenerator(g frame.Generator) Option {
	return func(s *settings) {
		if g != nil {
			s.generator = g
		}
	}
}

func resolve(defaultName string, opts []Option) settings {
	s := settings{
		name:     defaultName,
		observer: NopObserver{},
		clock:    timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Base holds the link list and implements the default depth-first
// propagation. Concrete stages embed it and supply Process.
type Base struct {
	name     string
	next     []Stage
	observer Observer
	clock    timeutil.Clock
}

// NewBase returns a Base for a stage implemented outside this package.
func NewBase(name string, opts ...Option) Base {
	return newBase(resolve(name, opts))
}

func newBase(s settings) Base {
	return Base{name: s.name, observer: s.observer, clock: s.clock}
}

// Name returns the stage name.
func (b *Base) Name() string { return b.name }

// Link appends next to the downstream list and returns it.
func (b *Base) Link(next Stage) Stage {
	b.next = append(b.next, next)
	return next
}

// Downstream returns a copy of the downstream list.
func (b *Base) Downstream() []Stage {
	return append([]Stage(nil), b.next...)
}

// PropagateDownstream visits each neighbour in link order: its Process,
// then its own PropagateDownstream, so a neighbour's whole subtree finishes
// before the next sibling starts.
func (b *Base) PropagateDownstream(f *frame.Frame) {
	for _, next := range b.next {
		b.visit(next, f)
	}
}

func (b *Base) visit(next Stage, f *frame.Frame) {
	clock := b.clockOrReal()
	start := clock.Now()
	next.Process(f)
	b.events().FrameProcessed(next.Name(), f, clock.Since(start))
	next.PropagateDownstream(f)
}

func (b *Base) events() Observer {
	if b.observer == nil {
		return NopObserver{}
	}
	return b.observer
}

func (b *Base) clockOrReal() timeutil.Clock {
	if b.clock == nil {
		return timeutil.RealClock{}
	}
	return b.clock
}

// Walk calls fn for root and every stage reachable from it, depth-first in
// link order. A stage linked from several parents is visited once.
func Walk(root Stage, fn func(Stage)) {
	seen := make(map[Stage]bool)
	var walk func(Stage)
	walk = func(s Stage) {
		if s == nil || seen[s] {
			return
		}
		seen[s] = true
		fn(s)
		for _, next := range s.Downstream() {
			walk(next)
		}
	}
	walk(root)
}

// CloseAll closes every stage reachable from root that implements
// io.Closer, in Walk order. Stop the source first so nothing pushes into
// the stages being closed.
func CloseAll(root Stage) error {
	var errs []error
	Walk(root, func(s Stage) {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
