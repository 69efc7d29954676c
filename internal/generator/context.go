// Package generator owns the per-world generation context: configuration,
// thread pool, caches and every generator built from them.
package generator

import (
	"context"
	"fmt"
	"log"
	"sync"

	"worldgen/internal/cell"
	"worldgen/internal/concurrent"
	"worldgen/internal/config"
	"worldgen/internal/continent"
	"worldgen/internal/geology"
	"worldgen/internal/heightmap"
	"worldgen/internal/rivers"
	"worldgen/internal/world"
)

// Context is created per world seed and torn down with Close. Nothing it
// owns is shared through package state.
type Context struct {
	Config    *config.Config
	Continent *continent.Generator
	Geology   *geology.Geology
	Rivers    *rivers.Network
	Heightmap *heightmap.Populator
	Regions   *world.RegionGenerator
	Cache     *world.RegionCache
	Cells     *cell.Pool

	pool      *concurrent.ThreadPool
	logger    *log.Logger
	closeOnce sync.Once
}

// NewContext validates cfg and builds every generator. cfg is copied and
// normalized; the caller's value is left untouched.
func NewContext(cfg *config.Config, logger *log.Logger) (*Context, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		logger = log.New(log.Writer(), "worldgen ", log.LstdFlags|log.Lmicroseconds)
	}
	own := *cfg
	own.Normalize()
	if err := own.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	seed := own.World.Seed
	cont, err := continent.New(seed, own.Continent)
	if err != nil {
		return nil, fmt.Errorf("build continent: %w", err)
	}

	workers := own.Generation.ThreadCount
	pool := concurrent.NewThreadPool(workers, workers*own.Generation.BatchCount*own.Generation.BatchCount, logger)
	network := rivers.NewNetwork(seed, &own, cont, pool)
	pop := heightmap.New(seed, &own, cont, network)
	regions := world.NewRegionGenerator(pop, pool, world.Options{
		Size:       own.RegionSize(),
		Border:     own.World.Border,
		Batching:   own.Generation.Batching,
		BatchCount: own.Generation.BatchCount,
	}, logger)

	ctx := &Context{
		Config:    &own,
		Continent: cont,
		Geology:   geology.New(seed, own.Geology),
		Rivers:    network,
		Heightmap: pop,
		Regions:   regions,
		Cache:     world.NewRegionCache(regions, own.Generation.RegionCacheSize),
		Cells:     cell.NewPool(own.Generation.PoolCapacity),
		pool:      pool,
		logger:    logger,
	}
	logger.Printf("context ready seed=%d region=%d threads=%d batching=%t batches=%d",
		seed, own.RegionSize(), workers, own.Generation.Batching, own.Generation.BatchCount)
	return ctx, nil
}

// Close stops the thread pool and drops cached river regions. Safe to call
// more than once.
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		c.pool.Shutdown()
		c.Rivers.Cache().Clear()
		c.logger.Printf("context closed seed=%d", c.Config.World.Seed)
	})
}

// Sample returns a fully populated cell for world (x, z). Neighbour derived
// fields stay zero; use a region for those.
func (c *Context) Sample(x, z float64) cell.Cell {
	var out cell.Cell
	c.Cells.With(func(scratch *cell.Cell) {
		c.Heightmap.Apply(scratch, x, z)
		out.CopyFrom(scratch)
	})
	return out
}

// Tag returns only the biome and terrain classification of (x, z).
func (c *Context) Tag(x, z float64) (cell.BiomeType, cell.TerrainType) {
	var biome cell.BiomeType
	var terrain cell.TerrainType
	c.Cells.With(func(scratch *cell.Cell) {
		c.Heightmap.Tag(scratch, x, z)
		biome, terrain = scratch.Biome, scratch.Terrain
	})
	return biome, terrain
}

// Strata returns the rock column selected for (x, z).
func (c *Context) Strata(x, z float64) *geology.Strata {
	biome, _ := c.Tag(x, z)
	return c.Geology.Select(biome, x, z)
}

// Column walks the rock column under block (x, z) from the surface down and
// returns the surface height.
func (c *Context) Column(x, z int, visit geology.Visitor) int {
	sample := c.Sample(float64(x), float64(z))
	surface := surfaceY(sample.Value, c.Heightmap.Height())
	strata := c.Geology.Select(sample.Biome, float64(x), float64(z))
	var buf geology.DepthBuffer
	strata.Downwards(x, surface, z, &buf, visit)
	return surface
}

// surfaceY maps a normalized elevation to the top block of a world height
// blocks tall.
func surfaceY(value float32, height float64) int {
	y := int(float64(value) * height)
	return min(max(y, 0), int(height)-1)
}

// Region returns a generated region from the context cache.
func (c *Context) Region(ctx context.Context, rx, rz int) (*world.Region, error) {
	return c.Cache.Region(ctx, rx, rz)
}

// Chunk returns a view of a global chunk from the context cache.
func (c *Context) Chunk(ctx context.Context, chunk world.ChunkCoord) (world.ChunkView, error) {
	return c.Cache.Chunk(ctx, chunk)
}

func (c *Context) Logger() *log.Logger { return c.logger }
