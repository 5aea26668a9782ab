package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Pixel is a single cell of a frame grid.
type Pixel uint8

const (
	// Off is an unlit pixel.
	Off Pixel = 0
	// On is a lit pixel as produced by a generator.
	On Pixel = 1
	// Marked is a lit pixel that belongs to a detected pattern occurrence.
	Marked Pixel = 2
)

// ErrInvalidFrame is returned when a pixel grid is not a well-formed frame.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is a fixed-size grid of pixels. The dimensions never change after
// construction; the pixel values may be mutated in place by stages.
//
// A Frame is handed from stage to stage by pointer. Once a frame has been
// passed to a buffering stage the sender must not read or write it again.
type Frame struct {
	ID        uuid.UUID
	Seq       uint64
	CreatedAt time.Time
	Width     int
	Height    int
	Pixels    [][]Pixel
}

// New builds a frame from a rectangular grid of Off/On values. The grid is
// copied, so the caller may reuse its slices.
func New(pixels [][]Pixel) (*Frame, error) {
	if len(pixels) == 0 || len(pixels[0]) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrInvalidFrame)
	}
	width := len(pixels[0])
	grid := make([][]Pixel, len(pixels))
	for y, row := range pixels {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d pixels, want %d", ErrInvalidFrame, y, len(row), width)
		}
		for x, p := range row {
			if p != Off && p != On {
				return nil, fmt.Errorf("%w: pixel (%d, %d) = %d, want 0 or 1", ErrInvalidFrame, y, x, p)
			}
		}
		grid[y] = append([]Pixel(nil), row...)
	}
	return &Frame{
		ID:     uuid.New(),
		Width:  width,
		Height: len(grid),
		Pixels: grid,
	}, nil
}

// Blank returns a width x height frame with every pixel Off.
func Blank(width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d must be positive", ErrInvalidFrame, width, height)
	}
	grid := make([][]Pixel, height)
	for y := range grid {
		grid[y] = make([]Pixel, width)
	}
	return &Frame{
		ID:     uuid.New(),
		Width:  width,
		Height: height,
		Pixels: grid,
	}, nil
}

// Clone returns a deep copy of f with a fresh ID.
func (f *Frame) Clone() *Frame {
	grid := make([][]Pixel, len(f.Pixels))
	for y, row := range f.Pixels {
		grid[y] = append([]Pixel(nil), row...)
	}
	return &Frame{
		ID:        uuid.New(),
		Seq:       f.Seq,
		CreatedAt: f.CreatedAt,
		Width:     f.Width,
		Height:    f.Height,
		Pixels:    grid,
	}
}

// Count returns how many pixels currently hold value p.
func (f *Frame) Count(p Pixel) int {
	n := 0
	for _, row := range f.Pixels {
		for _, v := range row {
			if v == p {
				n++
			}
		}
	}
	return n
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame %s seq=%d %dx%d", f.ID, f.Seq, f.Width, f.Height)
}
