package world

import (
	"fmt"
	"math"
	"sync/atomic"

	"worldgen/internal/cell"
	"worldgen/internal/noise"
)

// ChunkSize is the side length of a chunk in cells.
const ChunkSize = 16

// RegionCoord identifies a region in region space.
type RegionCoord struct {
	X int
	Z int
}

// ChunkCoord identifies a chunk in global chunk space.
type ChunkCoord struct {
	X int
	Z int
}

// Region is a square tile of Size cells per side surrounded by Border extra
// cells on every edge. Cells are stored row-major including the border.
type Region struct {
	Coord  RegionCoord
	size   int
	border int
	width  int

	// world position of interior cell (0, 0) and the spacing between cells
	originX float64
	originZ float64
	step    float64

	populator Populator
	cells     []cell.Cell

	// set once every cell is populated and filtered; cells are read-only after
	complete atomic.Bool
}

func newRegion(coord RegionCoord, size, border int, originX, originZ, step float64, pop Populator) *Region {
	width := size + 2*border
	r := &Region{
		Coord:     coord,
		size:      size,
		border:    border,
		width:     width,
		originX:   originX,
		originZ:   originZ,
		step:      step,
		populator: pop,
		cells:     make([]cell.Cell, width*width),
	}
	for i := range r.cells {
		r.cells[i].Reset()
	}
	return r
}

// NewRegion allocates an unpopulated region whose interior starts at block
// (coord.X*size, coord.Z*size).
func NewRegion(coord RegionCoord, size, border int, pop Populator) *Region {
	return newRegion(coord, size, border, float64(coord.X*size), float64(coord.Z*size), 1, pop)
}

func (r *Region) Size() int   { return r.size }
func (r *Region) Border() int { return r.border }

// Width is the side length including both borders.
func (r *Region) Width() int { return r.width }

// Step is the world distance between neighbouring cells; 1 unless zoomed.
func (r *Region) Step() float64 { return r.step }

// Origin is the world position of interior cell (0, 0).
func (r *Region) Origin() (float64, float64) { return r.originX, r.originZ }

// Complete reports whether every cell has been populated and filtered.
func (r *Region) Complete() bool { return r.complete.Load() }

// At returns the cell at array index (ix, iz), border included.
func (r *Region) At(ix, iz int) *cell.Cell {
	return &r.cells[iz*r.width+ix]
}

// Cell returns the cell at (dx, dz) relative to the interior origin. Border
// cells use negative offsets or offsets >= Size. Out of range returns nil.
func (r *Region) Cell(dx, dz int) *cell.Cell {
	ix, iz := dx+r.border, dz+r.border
	if ix < 0 || iz < 0 || ix >= r.width || iz >= r.width {
		return nil
	}
	return &r.cells[iz*r.width+ix]
}

// CellAt returns the cell covering world block (x, z), or nil when the
// region does not contain it.
func (r *Region) CellAt(x, z int) *cell.Cell {
	dx := int(math.Floor((float64(x) - r.originX) / r.step))
	dz := int(math.Floor((float64(z) - r.originZ) / r.step))
	return r.Cell(dx, dz)
}

// WorldPos returns the world sample position of array index (ix, iz).
func (r *Region) WorldPos(ix, iz int) (float64, float64) {
	return r.originX + float64(ix-r.border)*r.step, r.originZ + float64(iz-r.border)*r.step
}

// Chunks is the number of chunks per region side.
func (r *Region) Chunks() int { return r.size / ChunkSize }

// Chunk returns the view of chunk (cx, cz) within the region.
func (r *Region) Chunk(cx, cz int) (ChunkView, error) {
	if cx < 0 || cz < 0 || cx >= r.Chunks() || cz >= r.Chunks() {
		return ChunkView{}, fmt.Errorf("chunk (%d,%d) outside region %v", cx, cz, r.Coord)
	}
	return ChunkView{region: r, cx: cx, cz: cz}, nil
}

// ChunkFor returns the view of a global chunk, provided the region owns it.
func (r *Region) ChunkFor(chunk ChunkCoord) (ChunkView, error) {
	if r.step != 1 {
		return ChunkView{}, fmt.Errorf("zoomed region %v has no chunk addressing", r.Coord)
	}
	perRegion := r.Chunks()
	local := ChunkCoord{
		X: chunk.X - r.Coord.X*perRegion,
		Z: chunk.Z - r.Coord.Z*perRegion,
	}
	return r.Chunk(local.X, local.Z)
}

// Iterate visits every interior cell in row-major order.
func (r *Region) Iterate(visit func(c *cell.Cell, dx, dz int)) {
	for dz := 0; dz < r.size; dz++ {
		row := (dz + r.border) * r.width
		for dx := 0; dx < r.size; dx++ {
			visit(&r.cells[row+dx+r.border], dx, dz)
		}
	}
}

// RegionFor returns the region containing world block (x, z).
func RegionFor(x, z, size int) RegionCoord {
	return RegionCoord{X: noise.FloorDiv(x, size), Z: noise.FloorDiv(z, size)}
}

// ChunkForBlock returns the global chunk containing world block (x, z).
func ChunkForBlock(x, z int) ChunkCoord {
	return ChunkCoord{X: noise.FloorDiv(x, ChunkSize), Z: noise.FloorDiv(z, ChunkSize)}
}

// RegionForChunk returns the region owning a global chunk.
func RegionForChunk(chunk ChunkCoord, size int) RegionCoord {
	perRegion := size / ChunkSize
	return RegionCoord{X: noise.FloorDiv(chunk.X, perRegion), Z: noise.FloorDiv(chunk.Z, perRegion)}
}
