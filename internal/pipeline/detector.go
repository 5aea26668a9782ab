package pipeline

import (
	"github.com/banshee-data/motiondetector/internal/detect"
	"github.com/banshee-data/motiondetector/internal/frame"
)

// DetectorStage marks every occurrence of its pattern in each frame and
// reports each one through the observer's MatchFound hook.
type DetectorStage struct {
	Base
	pattern frame.Pattern
}

// NewDetectorStage creates a detector for p. An empty pattern is allowed
// and never matches.
func NewDetectorStage(p frame.Pattern, opts ...Option) *DetectorStage {
	return &DetectorStage{
		Base:    newBase(resolve("detector", opts)),
		pattern: p,
	}
}

// Pattern returns the mask this stage searches for.
func (d *DetectorStage) Pattern() frame.Pattern { return d.pattern }

// Process scans f in place. Frames smaller than the pattern pass through
// unchanged.
func (d *DetectorStage) Process(f *frame.Frame) {
	for _, m := range detect.Scan(f, d.pattern) {
		d.events().MatchFound(d.name, f, m)
	}
}
