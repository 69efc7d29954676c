// Package geology builds layered rock columns and selects them per biome.
package geology

import (
	"math"

	"worldgen/internal/noise"
)

// NoiseType selects the field that perturbs a layer's thickness.
type NoiseType uint8

const (
	NoiseNone NoiseType = iota
	NoiseSimplex
	NoiseRidge
	NoisePerlin
	noiseTypeCount
)

// Layer is one material band. Depth is relative to the other layers.
type Layer struct {
	Material string
	Depth    float64
	Noise    NoiseType
}

// Strata is an immutable top-to-bottom list of layers.
type Strata struct {
	layers []Layer
	total  float64
	noises *[noiseTypeCount]noise.Module
}

func newStrata(layers []Layer, noises *[noiseTypeCount]noise.Module) *Strata {
	total := 0.0
	for _, l := range layers {
		total += l.Depth
	}
	return &Strata{layers: layers, total: total, noises: noises}
}

func (s *Strata) Len() int { return len(s.layers) }

// Layer returns the i-th layer from the top.
func (s *Strata) Layer(i int) Layer { return s.layers[i] }

// TotalDepth is the sum of the relative layer depths.
func (s *Strata) TotalDepth() float64 { return s.total }

// DepthBuffer holds per-column scratch space for Strata queries. It is not
// safe for concurrent use; give each worker its own.
type DepthBuffer struct {
	weights []float64
	heights []int
}

func (b *DepthBuffer) reset(n int) {
	if cap(b.weights) < n {
		b.weights = make([]float64, n)
		b.heights = make([]int, n)
	}
	b.weights = b.weights[:n]
	b.heights = b.heights[:n]
}

// Visitor receives one (y, material) pair and returns false to stop the walk.
type Visitor func(y int, material string) bool

// LayerHeights distributes the startY+1 levels from startY down to 0 over
// the layers at (x, z). Heights always sum to startY+1. The returned slice
// aliases buf.
func (s *Strata) LayerHeights(x, startY, z int, buf *DepthBuffer) []int {
	buf.reset(len(s.layers))
	if len(s.layers) == 0 || startY < 0 {
		for i := range buf.heights {
			buf.heights[i] = 0
		}
		return buf.heights
	}

	sum := 0.0
	for i, l := range s.layers {
		w := l.Depth * s.modulation(l.Noise, float64(x), float64(z))
		buf.weights[i] = w
		sum += w
	}

	levels := startY + 1
	cumulative := 0.0
	assigned := 0
	for i, w := range buf.weights {
		cumulative += w
		boundary := levels
		if i < len(buf.weights)-1 && sum > 0 {
			boundary = int(math.Round(cumulative / sum * float64(levels)))
			if boundary > levels {
				boundary = levels
			}
		}
		if boundary < assigned {
			boundary = assigned
		}
		buf.heights[i] = boundary - assigned
		assigned = boundary
	}
	return buf.heights
}

// modulation scales a layer by its noise field within [0.5, 1.5].
func (s *Strata) modulation(kind NoiseType, x, z float64) float64 {
	if kind == NoiseNone || s.noises == nil || kind >= noiseTypeCount {
		return 1
	}
	m := s.noises[kind]
	if m == nil {
		return 1
	}
	return 0.5 + m.Get(x, z)
}

// Downwards walks from startY to 0 and calls visit for every level. It
// returns false when the visitor stopped the walk early.
func (s *Strata) Downwards(x, startY, z int, buf *DepthBuffer, visit Visitor) bool {
	heights := s.LayerHeights(x, startY, z, buf)
	y := startY
	for i, h := range heights {
		material := s.layers[i].Material
		for n := 0; n < h; n++ {
			if !visit(y, material) {
				return false
			}
			y--
		}
	}
	return true
}

// MaterialAt returns the material at depth y of the column below startY.
func (s *Strata) MaterialAt(x, startY, z, y int, buf *DepthBuffer) string {
	if y > startY || y < 0 || len(s.layers) == 0 {
		return ""
	}
	heights := s.LayerHeights(x, startY, z, buf)
	top := startY
	for i, h := range heights {
		if y > top-h {
			return s.layers[i].Material
		}
		top -= h
	}
	return s.layers[len(s.layers)-1].Material
}
