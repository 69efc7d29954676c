package rivers

import (
	"math"

	"worldgen/internal/cell"
	"worldgen/internal/concurrent"
	"worldgen/internal/config"
	"worldgen/internal/continent"
	"worldgen/internal/noise"
)

// ListSize is the number of river regions blended for one point.
const ListSize = 4

// RiverRegionList holds the river regions around a point. Entries may still
// be computing when the list is built.
type RiverRegionList struct {
	entries [ListSize]*concurrent.Entry[*RiverRegion]
	n       int
}

func (l *RiverRegionList) add(e *concurrent.Entry[*RiverRegion]) {
	if l.n < ListSize {
		l.entries[l.n] = e
		l.n++
	}
}

func (l *RiverRegionList) Len() int { return l.n }

// Wait blocks until every entry has been computed.
func (l *RiverRegionList) Wait() {
	for i := 0; i < l.n; i++ {
		l.entries[i].Wait()
	}
}

// Done reports whether every entry has been computed.
func (l *RiverRegionList) Done() bool {
	for i := 0; i < l.n; i++ {
		if !l.entries[i].IsDone() {
			return false
		}
	}
	return true
}

// Carve waits for the list and blends the finished regions at (x, z).
func (l *RiverRegionList) Carve(x, z float64) Carve {
	l.Wait()
	out := None
	for i := 0; i < l.n; i++ {
		e := l.entries[i]
		if !e.IsDone() {
			continue
		}
		out = out.Blend(e.Get().Carve(x, z))
	}
	return out
}

// Network serves river regions from a memoizing cache.
type Network struct {
	seed       int64
	cfg        config.RiverConfig
	continent  *continent.Generator
	cache      *concurrent.Cache[*RiverRegion]
	waterLevel float64 // normalized
	height     float64
}

func NewNetwork(seed int64, cfg *config.Config, cont *continent.Generator, pool *concurrent.ThreadPool) *Network {
	return &Network{
		seed:       seed,
		cfg:        cfg.Rivers,
		continent:  cont,
		cache:      concurrent.NewCache[*RiverRegion](pool, cfg.Cache.Expire.Duration(), cfg.Cache.Interval.Duration()),
		waterLevel: float64(cfg.World.WaterLevel) / float64(cfg.World.Height),
		height:     float64(cfg.World.Height),
	}
}

// Cache exposes the region cache, mainly for inspection in tests and tools.
func (n *Network) Cache() *concurrent.Cache[*RiverRegion] { return n.cache }

// Region returns the cache entry for river region (rx, rz), scheduling its
// computation when absent.
func (n *Network) Region(rx, rz int) *concurrent.Entry[*RiverRegion] {
	return n.cache.ComputeIfAbsent(concurrent.PackKey(rx, rz), func() *RiverRegion {
		return Build(n.seed, n.cfg, n.continent, rx, rz)
	})
}

// ListAt returns the 2x2 block of river regions whose channels can reach
// (x, z).
func (n *Network) ListAt(x, z float64) RiverRegionList {
	size := float64(n.cfg.RegionSize)
	rx := int(math.Floor(x/size - 0.5))
	rz := int(math.Floor(z/size - 0.5))
	var list RiverRegionList
	list.add(n.Region(rx, rz))
	list.add(n.Region(rx+1, rz))
	list.add(n.Region(rx, rz+1))
	list.add(n.Region(rx+1, rz+1))
	return list
}

// Apply carves rivers and lakes into c and returns the blended carve. Land
// inside a valley is pulled down toward the channel bed, which sits Depth
// blocks below water level.
func (n *Network) Apply(c *cell.Cell, x, z float64) Carve {
	if c.IsAbsent() {
		return None
	}
	list := n.ListAt(x, z)
	carve := list.Carve(x, z)
	n.ApplyCarve(c, carve)
	return carve
}

// ApplyCarve writes a precomputed carve into c.
func (n *Network) ApplyCarve(c *cell.Cell, carve Carve) {
	if carve.Mask >= 1 {
		return
	}
	if mask := float32(carve.Mask); mask < c.RiverMask {
		c.RiverMask = mask
	}
	value := float64(c.Value)
	if value <= n.waterLevel {
		return
	}
	bed := n.waterLevel - carve.Depth/n.height
	if carve.Mask >= 0.5 {
		// valley slopes blend toward the bank height at water level
		bed = n.waterLevel
	}
	target := noise.Lerp(bed, value, noise.SmoothStep(0, 1, carve.Mask))
	if target < value {
		c.Value = cell.Clamp01(target)
	}
}
