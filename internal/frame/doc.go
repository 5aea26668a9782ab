// Package frame owns the pixel data model that flows through the pipeline.
//
// Responsibilities: the Frame grid, the binary Pattern mask searched for by
// the detector, and the Generator collaborator that manufactures frames for
// a source stage.
// Key types: Frame, Pixel, Pattern, Generator.
//
// Dependency rule: frame depends on nothing else in this module. The
// detector (internal/detect) and the stages (internal/pipeline) build on it.
package frame
