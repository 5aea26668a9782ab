package main

import (
	"fmt"

	"github.com/banshee-data/motiondetector/internal/config"
	"github.com/banshee-data/motiondetector/internal/frame"
	"github.com/banshee-data/motiondetector/internal/pipeline"
)

// outputs are the terminal consumers of a topology. Nil consumers are
// left out of the graph.
type outputs struct {
	display pipeline.Consumer
	viewers pipeline.Consumer
}

// linkOutputs attaches a sink per configured output to from. Names are
// prefixed so that the same consumer on two branches reports separately.
func (o outputs) linkOutputs(from pipeline.Stage, prefix string, opts ...pipeline.Option) {
	if o.display != nil {
		from.Link(pipeline.NewSink(o.display, append(opts, pipeline.WithName(prefix+"display"))...))
	}
	if o.viewers != nil {
		from.Link(pipeline.NewSink(o.viewers, append(opts, pipeline.WithName(prefix+"viewers"))...))
	}
}

// buildTopology wires the named topology and returns its source. Stages
// share obs. gen may be nil to use the source's random generator.
//
//	display:  source -> display
//	detector: source -> detector -> display
//	chain:    source -> queue -> detector -> display
//	async:    source -> raw display
//	          source -> queue -> detector -> display
//
// In the async layout the raw display is linked before the queue so the
// source has finished reading a frame before handing it off.
func buildTopology(cfg *config.PipelineConfig, out outputs, obs pipeline.Observer, gen frame.Generator) (*pipeline.SourceStage, error) {
	opts := []pipeline.Option{pipeline.WithObserver(obs)}

	src, err := pipeline.NewSourceStage(pipeline.SourceConfig{
		Width:     cfg.GetWidth(),
		Height:    cfg.GetHeight(),
		FrameRate: cfg.GetFrameRate(),
	}, append(opts, pipeline.WithGenerator(gen))...)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	newQueue := func() (*pipeline.BufferingStage, error) {
		q, err := pipeline.NewBufferingStage(cfg.GetQueueCapacity(), append(opts, pipeline.WithName("queue"))...)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue: %w", err)
		}
		return q, nil
	}
	det := pipeline.NewDetectorStage(cfg.GetPattern(), opts...)

	switch topology := cfg.GetTopology(); topology {
	case config.TopologyDisplay:
		out.linkOutputs(src, "", opts...)

	case config.TopologyDetector:
		src.Link(det)
		out.linkOutputs(det, "", opts...)

	case config.TopologyChain:
		q, err := newQueue()
		if err != nil {
			return nil, err
		}
		src.Link(q).Link(det)
		out.linkOutputs(det, "", opts...)

	case config.TopologyAsync:
		q, err := newQueue()
		if err != nil {
			return nil, err
		}
		outputs{display: out.display}.linkOutputs(src, "raw-", opts...)
		src.Link(q).Link(det)
		out.linkOutputs(det, "", opts...)

	default:
		return nil, fmt.Errorf("%w: unknown topology %q", config.ErrInvalidConfig, topology)
	}
	return src, nil
}

// stageNames lists every stage reachable from root, depth-first.
func stageNames(root pipeline.Stage) []string {
	var names []string
	pipeline.Walk(root, func(s pipeline.Stage) { names = append(names, s.Name()) })
	return names
}
