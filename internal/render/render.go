// Package render turns frames into terminal text.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/banshee-data/motiondetector/internal/frame"
	"github.com/banshee-data/motiondetector/internal/monitoring"
)

// Format renders a frame as a block of text ending in a blank line.
type Format func(f *frame.Frame) string

var glyphs = [...]byte{frame.Off: '.', frame.On: '+', frame.Marked: '$'}

// Text draws unlit pixels as '.', lit pixels as '+' and pixels belonging to
// a detected pattern as '$', under a "Frame WxH" header.
func Text(f *frame.Frame) string {
	return grid(f, func(p frame.Pixel) byte {
		if int(p) < len(glyphs) {
			return glyphs[p]
		}
		return '?'
	})
}

// Raw writes the pixel values as digits, as a source dumps generated frames.
func Raw(f *frame.Frame) string {
	return grid(f, func(p frame.Pixel) byte { return '0' + byte(p) })
}

func grid(f *frame.Frame, cell func(frame.Pixel) byte) string {
	var b strings.Builder
	b.Grow(16 + f.Height*(2*f.Width+1) + 1)
	fmt.Fprintf(&b, "Frame %dx%d\n", f.Width, f.Height)
	for _, row := range f.Pixels {
		for x, p := range row {
			if x > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte(cell(p))
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

// Display is a sink consumer that writes each frame to an io.Writer.
// Frames from concurrent branches are written whole, never interleaved.
type Display struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
	failed bool
}

// NewDisplay writes frames to w using format, or Text if format is nil.
func NewDisplay(w io.Writer, format Format) *Display {
	if format == nil {
		format = Text
	}
	return &Display{w: w, format: format}
}

// Consume renders f. Only the first write error is logged.
func (d *Display) Consume(f *frame.Frame) {
	out := d.format(f)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := io.WriteString(d.w, out); err != nil && !d.failed {
		d.failed = true
		monitoring.Logger().Warn("display write failed", zap.Uint64("seq", f.Seq), zap.Error(err))
	}
}
