package world

import (
	"fmt"
	"log"

	"worldgen/internal/concurrent"
	"worldgen/internal/heightmap"
)

// Options controls how a RegionGenerator splits work.
type Options struct {
	Size       int
	Border     int
	Batching   bool
	BatchCount int
}

// RegionGenerator fills regions by splitting them into square batches run on
// a shared thread pool.
type RegionGenerator struct {
	populator Populator
	pool      *concurrent.ThreadPool
	opts      Options
	logger    *log.Logger
}

func NewRegionGenerator(pop Populator, pool *concurrent.ThreadPool, opts Options, logger *log.Logger) *RegionGenerator {
	if opts.BatchCount < 1 {
		opts.BatchCount = 1
	}
	if logger == nil {
		logger = log.New(log.Writer(), "regions ", log.LstdFlags|log.Lmicroseconds)
	}
	return &RegionGenerator{populator: pop, pool: pool, opts: opts, logger: logger}
}

// Size returns the interior side length of generated regions.
func (g *RegionGenerator) Size() int { return g.opts.Size }

// NewRegion allocates an empty region bound to this generator's populator.
func (g *RegionGenerator) NewRegion(rx, rz int) *Region {
	return NewRegion(RegionCoord{X: rx, Z: rz}, g.opts.Size, g.opts.Border, g.populator)
}

// Generate fully populates and filters region (rx, rz).
func (g *RegionGenerator) Generate(rx, rz int) (*Region, error) {
	r := g.NewRegion(rx, rz)
	if err := g.fill(r); err != nil {
		return nil, fmt.Errorf("generate region (%d,%d): %w", rx, rz, err)
	}
	return r, nil
}

// GenerateZoomed samples a region centred on world position (centerX,
// centerZ) with zoom world units between cells.
func (g *RegionGenerator) GenerateZoomed(centerX, centerZ, zoom float64) (*Region, error) {
	if zoom <= 0 {
		return nil, fmt.Errorf("zoom must be positive, got %f", zoom)
	}
	half := float64(g.opts.Size / 2)
	r := newRegion(RegionCoord{}, g.opts.Size, g.opts.Border,
		centerX-half*zoom, centerZ-half*zoom, zoom, g.populator)
	if err := g.fill(r); err != nil {
		return nil, fmt.Errorf("generate zoomed region at (%.1f,%.1f) x%.2f: %w", centerX, centerZ, zoom, err)
	}
	return r, nil
}

// Region returns a future for region (rx, rz). Nothing runs until Get.
func (g *RegionGenerator) Region(rx, rz int) *FutureRegion {
	return &FutureRegion{future: future{compute: func() (*Region, error) {
		return g.Generate(rx, rz)
	}}, Coord: RegionCoord{X: rx, Z: rz}}
}

// Zoomed returns a future for a zoomed region.
func (g *RegionGenerator) Zoomed(centerX, centerZ, zoom float64) *FutureRegionZoom {
	return &FutureRegionZoom{future: future{compute: func() (*Region, error) {
		return g.GenerateZoomed(centerX, centerZ, zoom)
	}}, CenterX: centerX, CenterZ: centerZ, Zoom: zoom}
}

// batches splits the full grid into BatchCount x BatchCount tiles.
func (g *RegionGenerator) batches(width int) []heightmap.Rect {
	count := min(g.opts.BatchCount, width)
	step := (width + count - 1) / count
	out := make([]heightmap.Rect, 0, count*count)
	for z := 0; z < width; z += step {
		for x := 0; x < width; x += step {
			out = append(out, heightmap.Rect{MinX: x, MinZ: z, MaxX: min(x+step, width), MaxZ: min(z+step, width)})
		}
	}
	return out
}

// fill populates every cell, then runs the filter chain. Filtering starts
// only after all population batches finish because filters read neighbours
// across batch edges.
func (g *RegionGenerator) fill(r *Region) error {
	rects := g.batches(r.width)

	populate := concurrent.NewBatcher(g.pool, g.opts.Batching, g.logger)
	for _, rect := range rects {
		populate.Submit(func() { r.populate(rect) })
	}
	if err := populate.Close(); err != nil {
		return err
	}

	filters := g.populator.Filters()
	filter := concurrent.NewBatcher(g.pool, g.opts.Batching, g.logger)
	for _, rect := range rects {
		filter.Submit(func() {
			for _, f := range filters {
				f.Apply(r, rect)
			}
		})
	}
	if err := filter.Close(); err != nil {
		return err
	}
	r.complete.Store(true)
	return nil
}
