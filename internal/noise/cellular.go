package noise

import (
	"fmt"
	"math"
)

// Shape selects the feature point lattice of a Cellular module.
type Shape uint8

const (
	// ShapeSquare jitters each axis independently on a square grid.
	ShapeSquare Shape = iota
	// ShapeHexagon offsets odd rows by half a cell and stretches the z axis by
	// hexStretch to approximate hexagonal packing.
	ShapeHexagon
)

const hexStretch = 1.2

func ParseShape(name string) (Shape, error) {
	switch name {
	case "", "square":
		return ShapeSquare, nil
	case "hexagon":
		return ShapeHexagon, nil
	}
	return ShapeSquare, fmt.Errorf("unknown cellular shape %q", name)
}

func (s Shape) String() string {
	if s == ShapeHexagon {
		return "hexagon"
	}
	return "square"
}

// Output selects which cellular quantity Get returns.
type Output uint8

const (
	// OutputEdge is F2-F1, 0 on a cell boundary and growing toward the feature point.
	OutputEdge Output = iota
	// OutputDistance is F1, the distance to the nearest feature point.
	OutputDistance
	// OutputValue is a per-cell random value.
	OutputValue
)

// CellSample is the full result of one cellular lookup. Distances are in
// grid units; Point is in world units.
type CellSample struct {
	CellX, CellZ   int
	Hash           uint32
	PointX, PointZ float64
	F1, F2         float64
}

// Edge returns F2-F1 clamped to [0, 1].
func (s CellSample) Edge() float64 { return Clamp(s.F2-s.F1, 0, 1) }

// Distance returns F1 normalized to [0, 1].
func (s CellSample) Distance() float64 { return Clamp(s.F1/math.Sqrt2, 0, 1) }

// Value returns the cell's random value in [0, 1].
func (s CellSample) Value() float64 { return Unit(s.Hash) }

// Cellular is jittered-grid Voronoi noise.
type Cellular struct {
	Seed   int64
	Scale  float64 // cell size in world units
	Jitter float64 // [0, 1] fraction of a cell the feature point may move
	Shape  Shape
	Output Output
}

func (c *Cellular) Get(x, z float64) float64 {
	s := c.Sample(x, z)
	switch c.Output {
	case OutputDistance:
		return s.Distance()
	case OutputValue:
		return s.Value()
	}
	return s.Edge()
}

type candidate struct {
	cx, cz int
	hash   uint32
	px, pz float64
	dist   float64
}

// before orders candidates by distance and breaks exact ties by grid
// coordinate and hash so equidistant points resolve identically everywhere.
func (a candidate) before(b candidate) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	if a.cx != b.cx {
		return a.cx < b.cx
	}
	if a.cz != b.cz {
		return a.cz < b.cz
	}
	return a.hash < b.hash
}

// Sample locates the nearest and second nearest feature points for (x, z).
func (c *Cellular) Sample(x, z float64) CellSample {
	scale := c.Scale
	if scale <= 0 {
		scale = 1
	}
	gx := x / scale
	gz := z / scale
	if c.Shape == ShapeHexagon {
		gz *= hexStretch
	}

	row := int(math.Floor(gz))
	first := candidate{dist: math.Inf(1)}
	second := candidate{dist: math.Inf(1)}
	for cz := row - 1; cz <= row+1; cz++ {
		offset := c.rowOffset(cz)
		col := int(math.Floor(gx - offset))
		for cx := col - 1; cx <= col+1; cx++ {
			cand := c.feature(cx, cz)
			dx := cand.px - gx
			dz := cand.pz - gz
			cand.dist = math.Sqrt(dx*dx + dz*dz)
			switch {
			case cand.before(first):
				second = first
				first = cand
			case cand.before(second):
				second = cand
			}
		}
	}

	px, pz := first.px*scale, first.pz*scale
	if c.Shape == ShapeHexagon {
		pz /= hexStretch
	}
	return CellSample{
		CellX:  first.cx,
		CellZ:  first.cz,
		Hash:   first.hash,
		PointX: px,
		PointZ: pz,
		F1:     first.dist,
		F2:     second.dist,
	}
}

func (c *Cellular) rowOffset(cz int) float64 {
	if c.Shape == ShapeHexagon && cz&1 != 0 {
		return 0.5
	}
	return 0
}

// feature returns the jittered feature point of grid cell (cx, cz) in grid units.
func (c *Cellular) feature(cx, cz int) candidate {
	h := Hash2(cx, cz, c.Seed)
	jx := Unit(Hash3(cx, cz, int(h)))
	jz := Unit(Hash3(cz, cx, int(h^0x9e3779b9)))
	jitter := Clamp(c.Jitter, 0, 1)
	return candidate{
		cx:   cx,
		cz:   cz,
		hash: h,
		px:   float64(cx) + c.rowOffset(cz) + 0.5 + (jx-0.5)*jitter,
		pz:   float64(cz) + 0.5 + (jz-0.5)*jitter,
	}
}
