// Package rivers traces river and lake networks over the continent field and
// caches them per river region.
package rivers

import (
	"math"

	"worldgen/internal/noise"
)

// Kind is a river's rank in the hierarchy.
type Kind uint8

const (
	Primary Kind = iota
	Secondary
	Tertiary
)

func (k Kind) String() string {
	switch k {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	}
	return "tertiary"
}

type Point struct {
	X, Z float64
}

// Carve is the influence of water on one point. Mask is 1 when untouched and
// 0 at a channel centre; Depth is how far the bed sits below water level.
type Carve struct {
	Mask  float64
	Depth float64
	Lake  bool
}

// None is the carve of a point no channel reaches.
var None = Carve{Mask: 1}

// Blend keeps the strongest influence of two carves: the lower mask and the
// deeper bed. Influences are never summed.
func (c Carve) Blend(o Carve) Carve {
	out := c
	if o.Mask < out.Mask {
		out.Mask = o.Mask
		out.Lake = o.Lake
	}
	if o.Depth > out.Depth {
		out.Depth = o.Depth
	}
	return out
}

// River is a traced polyline with a width and depth profile. Widths are full
// widths in blocks.
type River struct {
	Kind        Kind
	Points      []Point
	BedWidth    float64
	BankWidth   float64
	ValleyWidth float64
	Depth       float64
	Fade        float64

	cumulative []float64
	minX, minZ float64
	maxX, maxZ float64
}

func newRiver(kind Kind, points []Point, shape riverShape) *River {
	r := &River{
		Kind:        kind,
		Points:      points,
		BedWidth:    shape.bed,
		BankWidth:   shape.bank,
		ValleyWidth: shape.valley,
		Depth:       shape.depth,
		Fade:        shape.fade,
		cumulative:  make([]float64, len(points)),
		minX:        math.Inf(1),
		minZ:        math.Inf(1),
		maxX:        math.Inf(-1),
		maxZ:        math.Inf(-1),
	}
	for i, p := range points {
		if i > 0 {
			prev := points[i-1]
			r.cumulative[i] = r.cumulative[i-1] + math.Hypot(p.X-prev.X, p.Z-prev.Z)
		}
		r.minX = math.Min(r.minX, p.X)
		r.minZ = math.Min(r.minZ, p.Z)
		r.maxX = math.Max(r.maxX, p.X)
		r.maxZ = math.Max(r.maxZ, p.Z)
	}
	half := r.ValleyWidth / 2
	r.minX -= half
	r.minZ -= half
	r.maxX += half
	r.maxZ += half
	return r
}

// Length is the polyline length in blocks.
func (r *River) Length() float64 {
	if len(r.cumulative) == 0 {
		return 0
	}
	return r.cumulative[len(r.cumulative)-1]
}

// PointAt returns the point a distance along the river from its source.
func (r *River) PointAt(distance float64) Point {
	if len(r.Points) == 0 {
		return Point{}
	}
	if distance <= 0 {
		return r.Points[0]
	}
	for i := 1; i < len(r.Points); i++ {
		if r.cumulative[i] >= distance {
			seg := r.cumulative[i] - r.cumulative[i-1]
			t := 0.0
			if seg > 0 {
				t = (distance - r.cumulative[i-1]) / seg
			}
			a, b := r.Points[i-1], r.Points[i]
			return Point{X: noise.Lerp(a.X, b.X, t), Z: noise.Lerp(a.Z, b.Z, t)}
		}
	}
	return r.Points[len(r.Points)-1]
}

// nearest returns the distance from (x, z) to the polyline and how far
// along the river the closest point lies.
func (r *River) nearest(x, z float64) (float64, float64) {
	best := math.Inf(1)
	along := 0.0
	for i := 1; i < len(r.Points); i++ {
		a, b := r.Points[i-1], r.Points[i]
		dx, dz := b.X-a.X, b.Z-a.Z
		lenSq := dx*dx + dz*dz
		t := 0.0
		if lenSq > 0 {
			t = noise.Clamp(((x-a.X)*dx+(z-a.Z)*dz)/lenSq, 0, 1)
		}
		px, pz := a.X+dx*t, a.Z+dz*t
		d := math.Hypot(x-px, z-pz)
		if d < best {
			best = d
			along = r.cumulative[i-1] + t*math.Sqrt(lenSq)
		}
	}
	return best, along
}

// fadeScale narrows the channel near its source.
func (r *River) fadeScale(along float64) float64 {
	length := r.Length()
	if r.Fade <= 0 || length <= 0 {
		return 1
	}
	return 0.3 + 0.7*noise.Clamp(along/(length*r.Fade), 0, 1)
}

// Carve returns the river's influence at (x, z).
func (r *River) Carve(x, z float64) Carve {
	if len(r.Points) < 2 || x < r.minX || x > r.maxX || z < r.minZ || z > r.maxZ {
		return None
	}
	d, along := r.nearest(x, z)
	scale := r.fadeScale(along)
	bed := r.BedWidth / 2 * scale
	bank := r.BankWidth / 2 * scale
	valley := r.ValleyWidth / 2 * scale
	return channelCarve(d, bed, bank, valley, r.Depth)
}

// channelCarve maps a distance from a channel centre onto bed, bank and
// valley bands.
func channelCarve(d, bed, bank, valley, depth float64) Carve {
	switch {
	case d <= bed:
		return Carve{Mask: 0, Depth: depth}
	case d <= bank:
		t := (d - bed) / (bank - bed)
		return Carve{Mask: 0.5 * t, Depth: depth * (1 - noise.SmoothStep(0, 1, t))}
	case d < valley:
		t := (d - bank) / (valley - bank)
		return Carve{Mask: 0.5 + 0.5*noise.SmoothStep(0, 1, t)}
	}
	return None
}

// Lake is a round basin fed by a river.
type Lake struct {
	X, Z   float64
	Radius float64
	Bank   float64 // width of the shore band in blocks
	Depth  float64
}

func (l Lake) Carve(x, z float64) Carve {
	d := math.Hypot(x-l.X, z-l.Z)
	if d >= l.Radius+l.Bank {
		return None
	}
	c := channelCarve(d, l.Radius*0.6, l.Radius, l.Radius+l.Bank, l.Depth)
	if d <= l.Radius {
		c.Mask = 0
	}
	c.Lake = true
	return c
}

// RiverRegion is the immutable set of rivers and lakes traced for one
// region key.
type RiverRegion struct {
	X, Z   int
	Rivers []*River
	Lakes  []Lake
}

// Carve blends every channel of the region at (x, z).
func (r *RiverRegion) Carve(x, z float64) Carve {
	out := None
	for _, river := range r.Rivers {
		out = out.Blend(river.Carve(x, z))
	}
	for _, lake := range r.Lakes {
		out = out.Blend(lake.Carve(x, z))
	}
	return out
}

// Count returns how many rivers of the given kind the region holds.
func (r *RiverRegion) Count(kind Kind) int {
	n := 0
	for _, river := range r.Rivers {
		if river.Kind == kind {
			n++
		}
	}
	return n
}
