package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motiondetector/internal/detect"
	"github.com/banshee-data/motiondetector/internal/frame"
)

// eventLog is a goroutine-safe Observer that records what it saw.
type eventLog struct {
	mu        sync.Mutex
	created   []uint64
	enqueued  []uint64
	dequeued  []uint64
	processed []string
	discarded []uint64
	matches   []detect.Match
}

func (e *eventLog) FrameCreated(_ string, f *frame.Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, f.Seq)
}

func (e *eventLog) FrameEnqueued(_ string, f *frame.Frame, _ int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enqueued = append(e.enqueued, f.Seq)
}

func (e *eventLog) FrameDequeued(_ string, f *frame.Frame, _ int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dequeued = append(e.dequeued, f.Seq)
}

func (e *eventLog) FrameProcessed(stage string, _ *frame.Frame, _ time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processed = append(e.processed, stage)
}

func (e *eventLog) FrameDiscarded(_ string, f *frame.Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discarded = append(e.discarded, f.Seq)
}

func (e *eventLog) MatchFound(_ string, _ *frame.Frame, m detect.Match) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.matches = append(e.matches, m)
}

func (e *eventLog) discards() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint64(nil), e.discarded...)
}

// collector is a Consumer that remembers frame sequence numbers. If gate is
// set, each Consume announces itself on entered and then waits on gate.
type collector struct {
	mu      sync.Mutex
	seqs    []uint64
	entered chan uint64
	gate    chan struct{}
}

func newGatedCollector() *collector {
	return &collector{entered: make(chan uint64, 64), gate: make(chan struct{})}
}

func (c *collector) Consume(f *frame.Frame) {
	if c.gate != nil {
		c.entered <- f.Seq
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seqs = append(c.seqs, f.Seq)
}

func (c *collector) got() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.seqs...)
}

// journal records the order stages see a frame in.
type journal struct {
	mu    sync.Mutex
	steps []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps = append(j.steps, s)
}

func (j *journal) get() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.steps...)
}

// step is a stage that writes its name to a journal.
type step struct {
	Base
	j *journal
}

func newStep(j *journal, name string) *step {
	return &step{Base: NewBase(name), j: j}
}

func (s *step) Process(*frame.Frame) { s.j.add(s.Name()) }

func seqFrame(t *testing.T, seq uint64) *frame.Frame {
	t.Helper()
	f, err := frame.Blank(4, 4)
	require.NoError(t, err)
	f.Seq = seq
	return f
}

func waitFor(t *testing.T, ch <-chan uint64) uint64 {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stage")
		return 0
	}
}
