package pipeline

import (
	"github.com/banshee-data/motiondetector/internal/frame"
)

// Consumer is the terminal side effect of a sink, such as rendering. It
// must not fail; edge errors are the consumer's to log.
type Consumer interface {
	Consume(f *frame.Frame)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(f *frame.Frame)

// Consume calls fn(f).
func (fn ConsumerFunc) Consume(f *frame.Frame) { fn(f) }

// SinkStage hands every frame to a Consumer. Link it after any detector
// whose marks the consumer should see.
type SinkStage struct {
	Base
	consumer Consumer
}

// NewSink wraps c in a stage. A nil consumer discards frames.
func NewSink(c Consumer, opts ...Option) *SinkStage {
	if c == nil {
		c = ConsumerFunc(func(*frame.Frame) {})
	}
	return &SinkStage{
		Base:     newBase(resolve("sink", opts)),
		consumer: c,
	}
}

// Process passes f to the consumer.
func (s *SinkStage) Process(f *frame.Frame) {
	s.consumer.Consume(f)
}

// Passthrough does no work; it only forwards. Use it as a junction to fan
// one branch out to several stages.
type Passthrough struct {
	Base
}

// NewPassthrough creates a forwarding stage.
func NewPassthrough(opts ...Option) *Passthrough {
	return &Passthrough{Base: newBase(resolve("passthrough", opts))}
}

// Process does nothing.
func (p *Passthrough) Process(*frame.Frame) {}
