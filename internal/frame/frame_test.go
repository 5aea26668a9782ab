package frame

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CopiesGrid(t *testing.T) {
	src := [][]Pixel{{0, 1, 0}, {1, 1, 1}}
	f, err := New(src)
	require.NoError(t, err)

	assert.Equal(t, 3, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.NotEqual(t, [16]byte{}, [16]byte(f.ID))

	src[0][0] = 1
	assert.Equal(t, Off, f.Pixels[0][0], "frame must not alias caller slices")
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		pixels [][]Pixel
	}{
		{"nil grid", nil},
		{"empty row", [][]Pixel{{}}},
		{"ragged", [][]Pixel{{0, 1}, {1}}},
		{"marked value", [][]Pixel{{0, 2}}},
		{"out of range", [][]Pixel{{7}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.pixels)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFrame))
		})
	}
}

func TestBlank(t *testing.T) {
	f, err := Blank(4, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Count(Off))

	_, err = Blank(0, 3)
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestClone_IsDeep(t *testing.T) {
	f, err := New([][]Pixel{{1, 0}, {0, 1}})
	require.NoError(t, err)
	f.Seq = 9

	c := f.Clone()
	assert.Equal(t, uint64(9), c.Seq)
	assert.NotEqual(t, f.ID, c.ID)
	if diff := cmp.Diff(f.Pixels, c.Pixels); diff != "" {
		t.Fatalf("clone pixels differ (-orig +clone):\n%s", diff)
	}

	c.Pixels[0][0] = Marked
	assert.Equal(t, On, f.Pixels[0][0])
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("010", "111")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Width())
	assert.Equal(t, 2, p.Height())
	assert.False(t, p.Empty())
	assert.Equal(t, []string{"010", "111"}, p.Strings())

	_, err = ParsePattern("01", "012")
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = ParsePattern("01", "1")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestPattern_EmptyAndImmutable(t *testing.T) {
	var zero Pattern
	assert.True(t, zero.Empty())

	p, err := NewPattern(nil)
	require.NoError(t, err)
	assert.True(t, p.Empty())

	rows := [][]Pixel{{1, 0}}
	p, err = NewPattern(rows)
	require.NoError(t, err)
	rows[0][0] = 0
	assert.Equal(t, On, p.Row(0)[0])

	out := p.Rows()
	out[0][1] = 1
	assert.Equal(t, Off, p.Row(0)[1])
}

func TestDefaultPattern(t *testing.T) {
	assert.Equal(t, []string{"010", "111", "010", "101"}, DefaultPattern.Strings())
}

func TestRandomGenerator_Deterministic(t *testing.T) {
	a := NewRandomGenerator(42).Generate(8, 6)
	b := NewRandomGenerator(42).Generate(8, 6)

	assert.Equal(t, 8, a.Width)
	assert.Equal(t, 6, a.Height)
	if diff := cmp.Diff(a.Pixels, b.Pixels); diff != "" {
		t.Fatalf("same seed produced different frames:\n%s", diff)
	}
	assert.Equal(t, 48, a.Count(Off)+a.Count(On))
}

func TestGeneratorFunc(t *testing.T) {
	calls := 0
	g := GeneratorFunc(func(w, h int) *Frame {
		calls++
		f, _ := Blank(w, h)
		return f
	})
	f := g.Generate(2, 3)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, f.Height)
}
