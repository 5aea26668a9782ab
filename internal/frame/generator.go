package frame

import (
	"math/rand/v2"
	"sync"
)

// Generator manufactures a new frame of the requested size. Implementations
// must always return a valid frame; generation is not allowed to fail.
type Generator interface {
	Generate(width, height int) *Frame
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(width, height int) *Frame

// Generate calls fn(width, height).
func (fn GeneratorFunc) Generate(width, height int) *Frame {
	return fn(width, height)
}

// RandomGenerator fills frames with uniformly distributed Off/On pixels.
// It is safe for concurrent use.
type RandomGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomGenerator returns a generator seeded with seed. Equal seeds
// produce equal frame sequences.
func NewRandomGenerator(seed uint64) *RandomGenerator {
	return &RandomGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns a new random frame.
func (g *RandomGenerator) Generate(width, height int) *Frame {
	f, err := Blank(width, height)
	if err != nil {
		// Source stages validate dimensions before the loop starts.
		panic(err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, row := range f.Pixels {
		for x := range row {
			row[x] = Pixel(g.rng.IntN(2))
		}
	}
	return f
}
