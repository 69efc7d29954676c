// Package noise composes coherent-noise samplers into small module graphs.
// Normalized modules return values in [0, 1].
package noise

import (
	"math"

	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Module samples a 2D scalar field.
type Module interface {
	Get(x, z float64) float64
}

// Func adapts a function to Module.
type Func func(x, z float64) float64

func (f Func) Get(x, z float64) float64 { return f(x, z) }

// Simplex is fractal OpenSimplex noise normalized to [0, 1].
type Simplex struct {
	src         opensimplex.Noise
	frequency   float64
	octaves     int
	persistence float64
	lacunarity  float64
	norm        float64
}

func NewSimplex(seed int64, frequency float64, octaves int, persistence, lacunarity float64) *Simplex {
	if octaves <= 0 {
		octaves = 1
	}
	norm := 0.0
	amp := 1.0
	for i := 0; i < octaves; i++ {
		norm += amp
		amp *= persistence
	}
	return &Simplex{
		src:         opensimplex.New(seed),
		frequency:   frequency,
		octaves:     octaves,
		persistence: persistence,
		lacunarity:  lacunarity,
		norm:        norm,
	}
}

func (s *Simplex) Get(x, z float64) float64 {
	return Clamp(s.signed(x, z)*0.5+0.5, 0, 1)
}

func (s *Simplex) signed(x, z float64) float64 {
	freq := s.frequency
	amp := 1.0
	sum := 0.0
	for i := 0; i < s.octaves; i++ {
		sum += s.src.Eval2(x*freq, z*freq) * amp
		amp *= s.persistence
		freq *= s.lacunarity
	}
	if s.norm == 0 {
		return 0
	}
	return sum / s.norm
}

// Ridge folds fractal simplex noise into sharp crests, normalized to [0, 1].
type Ridge struct {
	*Simplex
}

func NewRidge(seed int64, frequency float64, octaves int, persistence, lacunarity float64) *Ridge {
	return &Ridge{Simplex: NewSimplex(seed, frequency, octaves, persistence, lacunarity)}
}

func (r *Ridge) Get(x, z float64) float64 {
	freq := r.frequency
	amp := 1.0
	sum := 0.0
	for i := 0; i < r.octaves; i++ {
		v := 1 - math.Abs(r.src.Eval2(x*freq, z*freq))
		sum += v * v * amp
		amp *= r.persistence
		freq *= r.lacunarity
	}
	if r.norm == 0 {
		return 0
	}
	return Clamp(sum/r.norm, 0, 1)
}

// Perlin wraps the classic Perlin sampler, rescaled to [0, 1].
type Perlin struct {
	src       *perlin.Perlin
	frequency float64
}

// perlinRange is the practical amplitude of go-perlin's 2D output.
const perlinRange = 0.75

func NewPerlin(seed int64, frequency float64, octaves int32) *Perlin {
	if octaves <= 0 {
		octaves = 1
	}
	return &Perlin{
		src:       perlin.NewPerlin(2, 2, octaves, seed),
		frequency: frequency,
	}
}

func (p *Perlin) Get(x, z float64) float64 {
	v := p.src.Noise2D(x*p.frequency, z*p.frequency)
	return Clamp(v/perlinRange*0.5+0.5, 0, 1)
}

// Warp offsets the sample coordinates by two displacement modules before
// sampling the source. Displacement modules are treated as [0, 1] and centred.
type Warp struct {
	Source   Module
	DX, DZ   Module
	Strength float64
}

func (w Warp) Get(x, z float64) float64 {
	wx, wz := w.Displace(x, z)
	return w.Source.Get(wx, wz)
}

// Displace returns the warped coordinates for (x, z).
func (w Warp) Displace(x, z float64) (float64, float64) {
	if w.Strength == 0 {
		return x, z
	}
	dx := (w.DX.Get(x, z) - 0.5) * 2 * w.Strength
	dz := (w.DZ.Get(x, z) - 0.5) * 2 * w.Strength
	return x + dx, z + dz
}

// Scale multiplies the source output.
type Scale struct {
	Source Module
	Factor float64
}

func (s Scale) Get(x, z float64) float64 { return s.Source.Get(x, z) * s.Factor }

// Bias adds a constant to the source output.
type Bias struct {
	Source Module
	Offset float64
}

func (b Bias) Get(x, z float64) float64 { return b.Source.Get(x, z) + b.Offset }

// Clamped limits the source output to [Min, Max].
type Clamped struct {
	Source   Module
	Min, Max float64
}

func (c Clamped) Get(x, z float64) float64 { return Clamp(c.Source.Get(x, z), c.Min, c.Max) }

// Max takes the larger of two modules.
type Max [2]Module

func (m Max) Get(x, z float64) float64 { return math.Max(m[0].Get(x, z), m[1].Get(x, z)) }

// Blend interpolates between Low and High by the Control module, with the
// transition squeezed into [Lower, Upper] of the control range.
type Blend struct {
	Control      Module
	Low, High    Module
	Lower, Upper float64
}

func (b Blend) Get(x, z float64) float64 {
	t := SmoothStep(b.Lower, b.Upper, b.Control.Get(x, z))
	switch t {
	case 0:
		return b.Low.Get(x, z)
	case 1:
		return b.High.Get(x, z)
	}
	return Lerp(b.Low.Get(x, z), b.High.Get(x, z), t)
}
