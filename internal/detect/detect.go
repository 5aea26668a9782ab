// Package detect implements exact binary pattern search over frames.
//
// Scan walks every window of the frame in row-major order and marks each
// match in place before moving on, so later windows see earlier marks.
package detect

import (
	"github.com/banshee-data/motiondetector/internal/frame"
)

// Match is the top-left corner of a pattern occurrence.
type Match struct {
	Row int
	Col int
}

// Fits reports whether p can be placed inside f at least once.
func Fits(f *frame.Frame, p frame.Pattern) bool {
	if f == nil || p.Empty() || len(f.Pixels) == 0 {
		return false
	}
	return len(f.Pixels) >= p.Height() && len(f.Pixels[0]) >= p.Width()
}

// Scan finds every occurrence of p in f and marks it. Matches are returned
// in the order they were found; frames too small for the pattern are left
// untouched and yield no matches.
//
// A window compares against the current pixel values, including Marked
// cells written by previous matches in the same scan. Since a pattern only
// holds Off/On, an overlap that needs an already-marked cell to be On will
// not match.
func Scan(f *frame.Frame, p frame.Pattern) []Match {
	if !Fits(f, p) {
		return nil
	}
	var matches []Match
	height, width := len(f.Pixels), len(f.Pixels[0])
	for j := 0; j <= height-p.Height(); j++ {
		for i := 0; i <= width-p.Width(); i++ {
			if !matchAt(f, p, j, i) {
				continue
			}
			mark(f, p, j, i)
			matches = append(matches, Match{Row: j, Col: i})
		}
	}
	return matches
}

func matchAt(f *frame.Frame, p frame.Pattern, j, i int) bool {
	for k := 0; k < p.Height(); k++ {
		want := p.Row(k)
		got := f.Pixels[j+k][i : i+len(want)]
		for h := range want {
			if got[h] != want[h] {
				return false
			}
		}
	}
	return true
}

// mark promotes every lit cell of the window at (j, i) to Marked. Off cells
// inside the window stay Off.
func mark(f *frame.Frame, p frame.Pattern, j, i int) {
	for k := j; k < j+p.Height(); k++ {
		row := f.Pixels[k]
		for h := i; h < i+p.Width(); h++ {
			if row[h] > frame.Off {
				row[h] = frame.Marked
			}
		}
	}
}
