package rivers

import (
	"math"
	"math/rand"
)

const (
	MinPoissonRadius = 1
	MaxPoissonRadius = 30
	poissonAttempts  = 30
)

// PoissonSampler produces blue-noise points with Bridson's algorithm over a
// width x height area in sample units.
type PoissonSampler struct {
	radius        float64
	width, height float64
}

// NewPoissonSampler clamps radius to [MinPoissonRadius, MaxPoissonRadius].
func NewPoissonSampler(radius int, width, height float64) *PoissonSampler {
	if radius < MinPoissonRadius {
		radius = MinPoissonRadius
	}
	if radius > MaxPoissonRadius {
		radius = MaxPoissonRadius
	}
	return &PoissonSampler{radius: float64(radius), width: width, height: height}
}

func (p *PoissonSampler) Radius() float64 { return p.radius }

// Sample emits points in generation order until visit returns false or the
// area is saturated.
func (p *PoissonSampler) Sample(rng *rand.Rand, visit func(x, z float64) bool) {
	if p.width <= 0 || p.height <= 0 {
		return
	}
	cellSize := p.radius / math.Sqrt2
	cols := int(math.Ceil(p.width / cellSize))
	rows := int(math.Ceil(p.height / cellSize))
	grid := make([]int, cols*rows)
	for i := range grid {
		grid[i] = -1
	}

	var points [][2]float64
	var active []int
	add := func(x, z float64) bool {
		idx := len(points)
		points = append(points, [2]float64{x, z})
		active = append(active, idx)
		grid[int(z/cellSize)*cols+int(x/cellSize)] = idx
		return visit(x, z)
	}
	fits := func(x, z float64) bool {
		if x < 0 || z < 0 || x >= p.width || z >= p.height {
			return false
		}
		cx, cz := int(x/cellSize), int(z/cellSize)
		for gz := max(cz-2, 0); gz <= min(cz+2, rows-1); gz++ {
			for gx := max(cx-2, 0); gx <= min(cx+2, cols-1); gx++ {
				idx := grid[gz*cols+gx]
				if idx < 0 {
					continue
				}
				q := points[idx]
				if (q[0]-x)*(q[0]-x)+(q[1]-z)*(q[1]-z) < p.radius*p.radius {
					return false
				}
			}
		}
		return true
	}

	if !add(rng.Float64()*p.width, rng.Float64()*p.height) {
		return
	}
	for len(active) > 0 {
		i := rng.Intn(len(active))
		base := points[active[i]]
		placed := false
		for k := 0; k < poissonAttempts; k++ {
			angle := rng.Float64() * 2 * math.Pi
			dist := p.radius * (1 + rng.Float64())
			x := base[0] + math.Cos(angle)*dist
			z := base[1] + math.Sin(angle)*dist
			if fits(x, z) {
				if !add(x, z) {
					return
				}
				placed = true
				break
			}
		}
		if !placed {
			active[i] = active[len(active)-1]
			active = active[:len(active)-1]
		}
	}
}
