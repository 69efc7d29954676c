package rivers

import (
	"math"
	"math/rand"

	"worldgen/internal/concurrent"
	"worldgen/internal/config"
	"worldgen/internal/continent"
	"worldgen/internal/noise"
)

const (
	traceStep      = 16.0 // blocks between traced points
	gradientStep   = 8.0
	maxTraceSteps  = 160
	startCandidate = 8
	meander        = 0.35 // radians of random heading change per step
	poissonUnit    = 16.0 // blocks per Poisson sample unit
)

type riverShape struct {
	bed, bank, valley float64
	depth             float64
	fade              float64
}

// builder traces the rivers of one region. Every random draw happens in a
// fixed order independent of the erosion and width settings, so those only
// reshape channels and never move them.
type builder struct {
	cfg       config.RiverConfig
	lakes     config.LakeSettings
	continent *continent.Generator
	rng       *rand.Rand

	originX, originZ float64
	minX, minZ       float64
	maxX, maxZ       float64
	maxHalfValley    float64
}

// Build traces the river region at region coordinates (rx, rz).
func Build(seed int64, cfg config.RiverConfig, cont *continent.Generator, rx, rz int) *RiverRegion {
	size := float64(cfg.RegionSize)
	b := &builder{
		cfg:       cfg,
		lakes:     cfg.Lakes,
		continent: cont,
		rng:       rand.New(rand.NewSource(seed ^ concurrent.PackKey(rx, rz)*0x2545f491)),
		originX:   float64(rx) * size,
		originZ:   float64(rz) * size,
	}
	// Traced points stay within a quarter region of the region, so every
	// channel envelope stays within half a region of it.
	b.minX = b.originX - size/4
	b.minZ = b.originZ - size/4
	b.maxX = b.originX + size*1.25
	b.maxZ = b.originZ + size*1.25
	b.maxHalfValley = size / 4

	region := &RiverRegion{X: rx, Z: rz}
	primaries := b.tracePrimaries(region)
	secondaries := b.traceJoining(region, Secondary, cfg.Secondary, primaries)
	b.traceTertiaries(region, append(primaries, secondaries...))
	b.placeLakes(region)
	return region
}

// shape draws the erosion factors for one river. Both draws happen even when
// erosion is zero.
func (b *builder) shape(s config.RiverSettings) riverShape {
	deepen := b.rng.Float64()
	widen := b.rng.Float64()
	width := b.cfg.Frequency * (1 + b.cfg.Erosion*widen)
	shape := riverShape{
		bed:    s.BedWidth * width,
		bank:   s.BankWidth * width,
		valley: s.ValleyWidth * width,
		depth:  s.Depth * (1 + b.cfg.Erosion*deepen),
		fade:   s.Fade,
	}
	if shape.valley/2 > b.maxHalfValley {
		shape.valley = b.maxHalfValley * 2
		shape.bank = math.Min(shape.bank, shape.valley)
		shape.bed = math.Min(shape.bed, shape.bank)
	}
	return shape
}

func (b *builder) randomPoint() Point {
	size := float64(b.cfg.RegionSize)
	return Point{
		X: b.originX + b.rng.Float64()*size,
		Z: b.originZ + b.rng.Float64()*size,
	}
}

// bestInland picks the most interior of several random candidates.
func (b *builder) bestInland() (Point, bool) {
	best := Point{}
	bestRaw := -1.0
	for i := 0; i < startCandidate; i++ {
		p := b.randomPoint()
		raw := b.continent.Sample(p.X, p.Z).Raw
		if b.continent.IsLand(raw) && raw > bestRaw {
			best, bestRaw = p, raw
		}
	}
	return best, bestRaw >= 0
}

func (b *builder) tracePrimaries(region *RiverRegion) []*River {
	var out []*River
	for i := 0; i < b.cfg.Primary.Count; i++ {
		start, ok := b.bestInland()
		shape := b.shape(b.cfg.Primary)
		if !ok {
			continue
		}
		points := b.trace(start, nil)
		if len(points) < 2 {
			continue
		}
		river := newRiver(Primary, points, shape)
		region.Rivers = append(region.Rivers, river)
		out = append(out, river)
	}
	return out
}

// traceJoining traces settings.Count rivers of kind that flow toward the nearest
// parent river, or to the coast when there is none.
func (b *builder) traceJoining(region *RiverRegion, kind Kind, settings config.RiverSettings, parents []*River) []*River {
	var out []*River
	for i := 0; i < settings.Count; i++ {
		start, ok := b.bestInland()
		shape := b.shape(settings)
		if !ok {
			continue
		}
		if river := b.traceTo(kind, start, shape, parents); river != nil {
			region.Rivers = append(region.Rivers, river)
			out = append(out, river)
		}
	}
	return out
}

// traceTertiaries seeds tributaries from a Poisson disc over the region.
func (b *builder) traceTertiaries(region *RiverRegion, parents []*River) {
	want := b.cfg.Tertiary.Count
	if want <= 0 {
		return
	}
	size := float64(b.cfg.RegionSize) / poissonUnit
	sampler := NewPoissonSampler(b.cfg.TertiaryRadius, size, size)

	var starts []Point
	sampler.Sample(b.rng, func(x, z float64) bool {
		p := Point{X: b.originX + x*poissonUnit, Z: b.originZ + z*poissonUnit}
		if b.continent.IsLand(b.continent.Sample(p.X, p.Z).Raw) {
			starts = append(starts, p)
		}
		return len(starts) < want
	})
	for _, start := range starts {
		shape := b.shape(b.cfg.Tertiary)
		if river := b.traceTo(Tertiary, start, shape, parents); river != nil {
			region.Rivers = append(region.Rivers, river)
		}
	}
}

func (b *builder) traceTo(kind Kind, start Point, shape riverShape, parents []*River) *River {
	var target func(Point) (Point, float64, bool)
	if len(parents) > 0 {
		target = func(p Point) (Point, float64, bool) {
			return nearestRiverPoint(parents, p)
		}
	}
	points := b.trace(start, target)
	if len(points) < 2 {
		return nil
	}
	return newRiver(kind, points, shape)
}

// nearestRiverPoint finds the closest traced point among rivers.
func nearestRiverPoint(rivers []*River, p Point) (Point, float64, bool) {
	best := Point{}
	bestDist := math.Inf(1)
	for _, r := range rivers {
		for _, q := range r.Points {
			if d := math.Hypot(q.X-p.X, q.Z-p.Z); d < bestDist {
				best, bestDist = q, d
			}
		}
	}
	return best, bestDist, !math.IsInf(bestDist, 1)
}

// trace walks downhill on the continent edge field until it reaches the
// coast, leaves the region bounds, or joins a target river.
func (b *builder) trace(start Point, target func(Point) (Point, float64, bool)) []Point {
	points := []Point{start}
	p := start
	heading := b.rng.Float64() * 2 * math.Pi
	for step := 0; step < maxTraceSteps; step++ {
		gx, gz := b.continent.EdgeGradient(p.X, p.Z, gradientStep)
		dx, dz := -gx, -gz
		if mag := math.Hypot(dx, dz); mag > 1e-12 {
			dx, dz = dx/mag, dz/mag
		} else {
			dx, dz = math.Cos(heading), math.Sin(heading)
		}

		if target != nil {
			if t, dist, ok := target(p); ok {
				if dist <= traceStep*1.5 {
					return append(points, t)
				}
				tx, tz := (t.X-p.X)/dist, (t.Z-p.Z)/dist
				dx, dz = dx+1.5*tx, dz+1.5*tz
				if mag := math.Hypot(dx, dz); mag > 1e-12 {
					dx, dz = dx/mag, dz/mag
				}
			}
		}

		turn := (b.rng.Float64() - 0.5) * 2 * meander
		cos, sin := math.Cos(turn), math.Sin(turn)
		dx, dz = dx*cos-dz*sin, dx*sin+dz*cos
		heading = math.Atan2(dz, dx)

		next := Point{X: p.X + dx*traceStep, Z: p.Z + dz*traceStep}
		if next.X < b.minX || next.X > b.maxX || next.Z < b.minZ || next.Z > b.maxZ {
			break
		}
		points = append(points, next)
		p = next
		if !b.continent.IsLand(b.continent.Sample(p.X, p.Z).Raw) {
			break
		}
	}
	return points
}

// placeLakes drops a lake on each river with the configured chance, at a
// fraction of its length from the source.
func (b *builder) placeLakes(region *RiverRegion) {
	l := b.lakes
	for _, river := range region.Rivers {
		roll := b.rng.Float64()
		along := noise.Lerp(l.MinStartDistance, l.MaxStartDistance, b.rng.Float64())
		size := noise.Lerp(l.SizeMin, l.SizeMax, b.rng.Float64())
		bank := noise.Lerp(l.BankMin, l.BankMax, b.rng.Float64())
		if roll >= l.Chance {
			continue
		}
		centre := river.PointAt(along * river.Length())
		region.Lakes = append(region.Lakes, Lake{
			X:      centre.X,
			Z:      centre.Z,
			Radius: math.Min(size/2, b.maxHalfValley/2),
			Bank:   math.Min(bank, b.maxHalfValley/2),
			Depth:  l.Depth,
		})
	}
}
