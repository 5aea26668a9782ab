package frame

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPattern is returned when a mask is not rectangular or not binary.
var ErrInvalidPattern = errors.New("invalid pattern")

// DefaultPattern is the cross-with-legs mask the detector looks for when no
// other pattern is configured:
//
//	. + .
//	+ + +
//	. + .
//	+ . +
var DefaultPattern = MustParsePattern("010", "111", "010", "101")

// Pattern is an immutable binary mask. The zero Pattern is empty and never
// matches anything.
type Pattern struct {
	rows   [][]Pixel
	width  int
	height int
}

// NewPattern validates rows and returns a Pattern holding a private copy.
func NewPattern(rows [][]Pixel) (Pattern, error) {
	if len(rows) == 0 {
		return Pattern{}, nil
	}
	width := len(rows[0])
	cp := make([][]Pixel, len(rows))
	for k, row := range rows {
		if len(row) != width {
			return Pattern{}, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidPattern, k, len(row), width)
		}
		for h, v := range row {
			if v != Off && v != On {
				return Pattern{}, fmt.Errorf("%w: cell (%d, %d) = %d, want 0 or 1", ErrInvalidPattern, k, h, v)
			}
		}
		cp[k] = append([]Pixel(nil), row...)
	}
	if width == 0 {
		return Pattern{}, nil
	}
	return Pattern{rows: cp, width: width, height: len(cp)}, nil
}

// ParsePattern builds a pattern from rows written as strings of '0' and '1'.
func ParsePattern(rows ...string) (Pattern, error) {
	grid := make([][]Pixel, len(rows))
	for k, r := range rows {
		r = strings.TrimSpace(r)
		grid[k] = make([]Pixel, len(r))
		for h, c := range r {
			switch c {
			case '0':
				grid[k][h] = Off
			case '1':
				grid[k][h] = On
			default:
				return Pattern{}, fmt.Errorf("%w: row %d has character %q", ErrInvalidPattern, k, c)
			}
		}
	}
	return NewPattern(grid)
}

// MustParsePattern is ParsePattern for package-level literals.
func MustParsePattern(rows ...string) Pattern {
	p, err := ParsePattern(rows...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) Width() int  { return p.width }
func (p Pattern) Height() int { return p.height }

// Empty reports whether the pattern has no cells.
func (p Pattern) Empty() bool { return p.width == 0 || p.height == 0 }

// Row returns row k of the mask. The slice is shared and must not be modified.
func (p Pattern) Row(k int) []Pixel { return p.rows[k] }

// Rows returns a copy of the mask.
func (p Pattern) Rows() [][]Pixel {
	out := make([][]Pixel, len(p.rows))
	for k, row := range p.rows {
		out[k] = append([]Pixel(nil), row...)
	}
	return out
}

// Strings renders the mask back into '0'/'1' rows.
func (p Pattern) Strings() []string {
	out := make([]string, len(p.rows))
	for k, row := range p.rows {
		var b strings.Builder
		for _, v := range row {
			b.WriteByte('0' + byte(v))
		}
		out[k] = b.String()
	}
	return out
}
