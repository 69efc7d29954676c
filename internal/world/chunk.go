package world

import (
	"worldgen/internal/cell"
	"worldgen/internal/heightmap"
)

// Populator fills cells for world positions and supplies the neighbour
// filters run after population.
type Populator interface {
	Apply(c *cell.Cell, x, z float64)
	Filters() []heightmap.Filter
}

// Visitor receives a cell and its chunk-relative position.
type Visitor func(c *cell.Cell, dx, dz int)

// ChunkView is a 16x16 window into a Region.
type ChunkView struct {
	region *Region
	cx, cz int
}

// Coord returns the global chunk coordinate of the view.
func (v ChunkView) Coord() ChunkCoord {
	per := v.region.Chunks()
	return ChunkCoord{X: v.region.Coord.X*per + v.cx, Z: v.region.Coord.Z*per + v.cz}
}

func (v ChunkView) rect() heightmap.Rect {
	minX := v.region.border + v.cx*ChunkSize
	minZ := v.region.border + v.cz*ChunkSize
	return heightmap.Rect{MinX: minX, MinZ: minZ, MaxX: minX + ChunkSize, MaxZ: minZ + ChunkSize}
}

// Cell returns the cell at chunk-relative (dx, dz).
func (v ChunkView) Cell(dx, dz int) *cell.Cell {
	if dx < 0 || dz < 0 || dx >= ChunkSize || dz >= ChunkSize {
		return nil
	}
	r := v.rect()
	return v.region.At(r.MinX+dx, r.MinZ+dz)
}

// Generate populates the chunk and visits every cell. The one-cell ring its
// filters read is computed in a scratch window, so neighbouring chunks keep
// whatever they already hold. A region that is already complete is only
// visited.
func (v ChunkView) Generate(visit Visitor) {
	r := v.region
	if r.complete.Load() || r.populator == nil {
		v.Iterate(visit)
		return
	}
	rect := v.rect()
	win := newWindow(r, heightmap.Rect{
		MinX: max(rect.MinX-1, 0),
		MinZ: max(rect.MinZ-1, 0),
		MaxX: min(rect.MaxX+1, r.width),
		MaxZ: min(rect.MaxZ+1, r.width),
	})
	for _, f := range r.populator.Filters() {
		f.Apply(win, rect)
	}
	for iz := rect.MinZ; iz < rect.MaxZ; iz++ {
		for ix := rect.MinX; ix < rect.MaxX; ix++ {
			*r.At(ix, iz) = *win.At(ix, iz)
		}
	}
	v.Iterate(visit)
}

// Iterate visits the chunk's cells without recomputing them.
func (v ChunkView) Iterate(visit Visitor) {
	rect := v.rect()
	for dz := 0; dz < ChunkSize; dz++ {
		for dx := 0; dx < ChunkSize; dx++ {
			visit(v.region.At(rect.MinX+dx, rect.MinZ+dz), dx, dz)
		}
	}
}

// populate resets and fills every cell of rect.
func (r *Region) populate(rect heightmap.Rect) {
	for iz := rect.MinZ; iz < rect.MaxZ; iz++ {
		for ix := rect.MinX; ix < rect.MaxX; ix++ {
			c := r.At(ix, iz)
			c.Reset()
			x, z := r.WorldPos(ix, iz)
			r.populator.Apply(c, x, z)
		}
	}
}

// window is a populated copy of part of a region, addressed with the
// region's own indices. Width reports the region width so filters clamp at
// the same edges they would on the full grid.
type window struct {
	region *Region
	bounds heightmap.Rect
	cells  []cell.Cell
}

func newWindow(r *Region, bounds heightmap.Rect) *window {
	w := &window{
		region: r,
		bounds: bounds,
		cells:  make([]cell.Cell, (bounds.MaxX-bounds.MinX)*(bounds.MaxZ-bounds.MinZ)),
	}
	for iz := bounds.MinZ; iz < bounds.MaxZ; iz++ {
		for ix := bounds.MinX; ix < bounds.MaxX; ix++ {
			c := w.At(ix, iz)
			c.Reset()
			x, z := r.WorldPos(ix, iz)
			r.populator.Apply(c, x, z)
		}
	}
	return w
}

func (w *window) Width() int { return w.region.width }

func (w *window) At(ix, iz int) *cell.Cell {
	b := w.bounds
	return &w.cells[(iz-b.MinZ)*(b.MaxX-b.MinX)+ix-b.MinX]
}
