package heightmap

import (
	"math"

	"worldgen/internal/cell"
)

// Grid is a square block of populated cells addressed by array index.
type Grid interface {
	Width() int
	At(ix, iz int) *cell.Cell
}

// Rect is a half-open index rectangle within a Grid.
type Rect struct {
	MinX, MinZ int
	MaxX, MaxZ int
}

// Filter derives cell fields from neighbouring cells. It reads only fields
// the populator writes plus fields earlier filters wrote for the same cell,
// so any rectangle can be filtered independently.
type Filter interface {
	Apply(g Grid, r Rect)
}

// Filters returns the region filter chain in application order.
func (p *Populator) Filters() []Filter {
	return []Filter{
		Steepness{Height: p.height},
		Erosion{},
		Sediment{Height: p.height},
	}
}

// neighbour clamps indices to the grid so edge cells reuse themselves.
func neighbour(g Grid, ix, iz int) *cell.Cell {
	w := g.Width()
	ix = min(max(ix, 0), w-1)
	iz = min(max(iz, 0), w-1)
	return g.At(ix, iz)
}

// Steepness writes Gradient from central differences of Value. A slope of
// one block per block maps to 0.5.
type Steepness struct {
	Height float64
}

func (s Steepness) Apply(g Grid, r Rect) {
	for iz := r.MinZ; iz < r.MaxZ; iz++ {
		for ix := r.MinX; ix < r.MaxX; ix++ {
			c := g.At(ix, iz)
			if c.IsAbsent() {
				continue
			}
			dx := float64(neighbour(g, ix+1, iz).Value-neighbour(g, ix-1, iz).Value) * s.Height / 2
			dz := float64(neighbour(g, ix, iz+1).Value-neighbour(g, ix, iz-1).Value) * s.Height / 2
			c.Gradient = cell.Clamp01(math.Hypot(dx, dz) / 2)
		}
	}
}

// Erosion grows with slope and moisture and peaks along river channels.
type Erosion struct{}

func (Erosion) Apply(g Grid, r Rect) {
	for iz := r.MinZ; iz < r.MaxZ; iz++ {
		for ix := r.MinX; ix < r.MaxX; ix++ {
			c := g.At(ix, iz)
			if c.IsAbsent() {
				continue
			}
			slope := float64(c.Gradient) * (0.5 + 0.5*float64(c.Moisture))
			channel := 1 - float64(c.RiverMask)
			c.Erosion = cell.Clamp01(math.Max(slope, channel*0.8))
		}
	}
}

// Sediment accumulates in flat hollows, measured as how far a cell sits
// below the mean of its eight neighbours.
type Sediment struct {
	Height float64
}

func (s Sediment) Apply(g Grid, r Rect) {
	for iz := r.MinZ; iz < r.MaxZ; iz++ {
		for ix := r.MinX; ix < r.MaxX; ix++ {
			c := g.At(ix, iz)
			if c.IsAbsent() {
				continue
			}
			sum := 0.0
			for dz := -1; dz <= 1; dz++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dz == 0 {
						continue
					}
					sum += float64(neighbour(g, ix+dx, iz+dz).Value)
				}
			}
			hollow := (sum/8 - float64(c.Value)) * s.Height
			if hollow < 0 {
				hollow = 0
			}
			c.Sediment = cell.Clamp01(hollow / 2 * (1 - float64(c.Gradient)))
		}
	}
}
