// Package pipeline provides the stage graph that frames flow through.
//
// A pipeline is assembled once with Link calls and then driven by a
// SourceStage. Propagation is depth-first in link order on the goroutine
// that is currently pushing the frame. A BufferingStage breaks that
// goroutine boundary: its Process enqueues into a bounded channel and its
// own drain goroutine carries the frame further downstream.
//
//	src.Link(queue).Link(detector).Link(display)
//	src.Start()
//	...
//	src.Stop()
//	pipeline.CloseAll(src)
//
// The graph must not be re-linked while frames are flowing.
package pipeline
