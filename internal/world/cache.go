package world

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// RegionCache keeps recently generated regions. Concurrent requests for the
// same coordinate share a single generation.
type RegionCache struct {
	generator *RegionGenerator
	capacity  int

	mu      sync.RWMutex
	regions map[RegionCoord]*Region
	order   []RegionCoord

	group singleflight.Group
}

func NewRegionCache(generator *RegionGenerator, capacity int) *RegionCache {
	if capacity < 1 {
		capacity = 1
	}
	return &RegionCache{
		generator: generator,
		capacity:  capacity,
		regions:   make(map[RegionCoord]*Region),
	}
}

// Region returns region (rx, rz), generating it on a miss.
func (c *RegionCache) Region(ctx context.Context, rx, rz int) (*Region, error) {
	coord := RegionCoord{X: rx, Z: rz}

	c.mu.RLock()
	r, ok := c.regions[coord]
	c.mu.RUnlock()
	if ok {
		return r, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%d:%d", rx, rz)
	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.RLock()
		existing, ok := c.regions[coord]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}
		r, err := c.generator.Region(rx, rz).Get()
		if err != nil {
			return nil, err
		}
		return c.store(coord, r), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Region), nil
	}
}

// store publishes r before the flight ends so later callers hit the map.
func (c *RegionCache) store(coord RegionCoord, r *Region) *Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.regions[coord]; ok {
		return existing
	}
	c.regions[coord] = r
	c.order = append(c.order, coord)
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.regions, oldest)
	}
	return r
}

// RegionForBlock returns the region containing world block (x, z).
func (c *RegionCache) RegionForBlock(ctx context.Context, x, z int) (*Region, error) {
	coord := RegionFor(x, z, c.generator.Size())
	return c.Region(ctx, coord.X, coord.Z)
}

// Chunk returns a view of a global chunk, generating its region if needed.
// Cached regions are complete, so Generate on the view only visits cells.
func (c *RegionCache) Chunk(ctx context.Context, chunk ChunkCoord) (ChunkView, error) {
	coord := RegionForChunk(chunk, c.generator.Size())
	r, err := c.Region(ctx, coord.X, coord.Z)
	if err != nil {
		return ChunkView{}, err
	}
	return r.ChunkFor(chunk)
}

func (c *RegionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.regions)
}
