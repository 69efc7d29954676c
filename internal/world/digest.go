package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"worldgen/internal/cell"
)

const cellBytes = 15*4 + 2

// Digest returns the hex sha256 of the region's layout and every cell,
// border included. Equal seeds and settings give equal digests.
func (r *Region) Digest() string {
	h := sha256.New()
	var head [40]byte
	binary.LittleEndian.PutUint64(head[0:], uint64(int64(r.Coord.X)))
	binary.LittleEndian.PutUint64(head[8:], uint64(int64(r.Coord.Z)))
	binary.LittleEndian.PutUint32(head[16:], uint32(r.size))
	binary.LittleEndian.PutUint32(head[20:], uint32(r.border))
	binary.LittleEndian.PutUint64(head[24:], math.Float64bits(r.originX))
	binary.LittleEndian.PutUint64(head[32:], math.Float64bits(r.originZ))
	h.Write(head[:])
	writeCells(h, r.cells)
	return hex.EncodeToString(h.Sum(nil))
}

func writeCells(h hash.Hash, cells []cell.Cell) {
	var buf [cellBytes]byte
	for i := range cells {
		encodeCell(buf[:], &cells[i])
		h.Write(buf[:])
	}
}

func encodeCell(b []byte, c *cell.Cell) {
	fields := [...]float32{
		c.Continent, c.ContinentEdge, c.Value,
		c.BiomeIdentity, c.BiomeMoisture, c.BiomeTemperature,
		c.Moisture, c.Temperature, c.Gradient, c.Erosion, c.Sediment,
		c.Mask, c.BiomeMask, c.RegionMask, c.RiverMask,
	}
	for i, f := range fields {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	b[60] = byte(c.Biome)
	b[61] = byte(c.Terrain)
}
