// Package continent shapes landmasses from warped cellular noise.
package continent

import (
	"errors"
	"fmt"

	"worldgen/internal/cell"
	"worldgen/internal/config"
	"worldgen/internal/noise"
)

const (
	cellSeedOffset = 0
	warpSeedX      = 101
	warpSeedZ      = 102
)

// Sample is one continent lookup.
type Sample struct {
	Raw      float64 // cellular edge distance in [0, 1], 0 outside the landmass
	Value    float64 // Raw smoothed through the falloff band
	CellX    int
	CellZ    int
	CenterX  float64 // nearest feature point in world units
	CenterZ  float64
	Identity float64 // stable per-cell value in [0, 1]
}

// Generator is a pure function of (seed, config, x, z) and safe for
// concurrent use.
type Generator struct {
	cfg   config.ContinentConfig
	cells *noise.Cellular
	warp  noise.Warp
}

func New(seed int64, cfg config.ContinentConfig) (*Generator, error) {
	if cfg.Scale <= 0 {
		return nil, errors.New("continent scale must be positive")
	}
	if cfg.BaseFalloffMin >= cfg.BaseFalloffMax {
		return nil, errors.New("continent falloff range is inverted")
	}
	shape, err := noise.ParseShape(cfg.Shape)
	if err != nil {
		return nil, fmt.Errorf("continent: %w", err)
	}

	g := &Generator{
		cfg: cfg,
		cells: &noise.Cellular{
			Seed:   seed + cellSeedOffset,
			Scale:  cfg.Scale,
			Jitter: cfg.Jitter,
			Shape:  shape,
		},
	}
	if cfg.WarpStrength > 0 {
		freq := 1 / cfg.WarpScale
		g.warp = noise.Warp{
			DX:       noise.NewSimplex(seed+warpSeedX, freq, 2, 0.5, 2),
			DZ:       noise.NewSimplex(seed+warpSeedZ, freq, 2, 0.5, 2),
			Strength: cfg.WarpStrength,
		}
	}
	return g, nil
}

func (g *Generator) Sample(x, z float64) Sample {
	wx, wz := g.warp.Displace(x, z)
	s := g.cells.Sample(wx, wz)
	raw := s.Edge()
	return Sample{
		Raw:      raw,
		Value:    noise.SmoothStep(g.cfg.BaseFalloffMin, g.cfg.BaseFalloffMax, raw),
		CellX:    s.CellX,
		CellZ:    s.CellZ,
		CenterX:  s.PointX,
		CenterZ:  s.PointZ,
		Identity: s.Value(),
	}
}

// IsLand classifies a raw edge value. A value equal to the threshold is land.
func (g *Generator) IsLand(raw float64) bool {
	return raw >= g.cfg.Threshold
}

func (g *Generator) Threshold() float64 { return g.cfg.Threshold }

// Apply writes the continent fields of c.
func (g *Generator) Apply(c *cell.Cell, x, z float64) {
	if c.IsAbsent() {
		return
	}
	s := g.Sample(x, z)
	c.ContinentEdge = cell.Clamp01(s.Raw)
	c.Continent = cell.Clamp01(s.Value)
}

// NearestCenter returns the feature point of the landmass cell containing
// (x, z) after warping, together with the cell's identity.
func (g *Generator) NearestCenter(x, z float64) (float64, float64, float64) {
	s := g.Sample(x, z)
	return s.CenterX, s.CenterZ, s.Identity
}

// EdgeGradient estimates the direction in which the edge distance falls
// fastest. Rivers follow it toward the coast.
func (g *Generator) EdgeGradient(x, z, step float64) (float64, float64) {
	if step <= 0 {
		step = 1
	}
	dx := g.Sample(x+step, z).Raw - g.Sample(x-step, z).Raw
	dz := g.Sample(x, z+step).Raw - g.Sample(x, z-step).Raw
	return dx / (2 * step), dz / (2 * step)
}
