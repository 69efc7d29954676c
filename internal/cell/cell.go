// Package cell defines the per-point terrain descriptor filled by the
// heightmap populator and pooled across generation batches.
package cell

import (
	"fmt"
	"math"
)

// Cell is a mutable, reusable terrain descriptor. Every scalar lies in
// [0, 1]. Masks at 1 mean the influence is fully present, 0 fully overridden;
// RiverMask reaches 0 at a channel centre.
type Cell struct {
	Continent     float32 // falloff-smoothed landmass value
	ContinentEdge float32 // raw cellular edge distance
	Value         float32 // composite elevation, 0 is the world floor

	BiomeIdentity    float32 // biome cell selector
	BiomeMoisture    float32
	BiomeTemperature float32

	Moisture    float32
	Temperature float32
	Gradient    float32 // steepness
	Erosion     float32
	Sediment    float32

	Mask       float32
	BiomeMask  float32
	RegionMask float32
	RiverMask  float32

	Biome   BiomeType
	Terrain TerrainType

	absent bool
}

// Empty returns the absent cell. Consumers must skip it.
func Empty() Cell {
	return Cell{absent: true}
}

func (c *Cell) IsAbsent() bool {
	return c == nil || c.absent
}

// Reset restores the initial state: zero scalars and fully present masks.
func (c *Cell) Reset() {
	*c = Cell{
		Mask:       1,
		BiomeMask:  1,
		RegionMask: 1,
		RiverMask:  1,
	}
}

// CopyFrom copies every field of src into c.
func (c *Cell) CopyFrom(src *Cell) {
	*c = *src
}

// CheckRanges reports the first scalar that is NaN or outside [0, 1].
func (c *Cell) CheckRanges() error {
	fields := [...]struct {
		name  string
		value float32
	}{
		{"continent", c.Continent},
		{"continent_edge", c.ContinentEdge},
		{"value", c.Value},
		{"biome_identity", c.BiomeIdentity},
		{"biome_moisture", c.BiomeMoisture},
		{"biome_temperature", c.BiomeTemperature},
		{"moisture", c.Moisture},
		{"temperature", c.Temperature},
		{"gradient", c.Gradient},
		{"erosion", c.Erosion},
		{"sediment", c.Sediment},
		{"mask", c.Mask},
		{"biome_mask", c.BiomeMask},
		{"region_mask", c.RegionMask},
		{"river_mask", c.RiverMask},
	}
	for _, f := range fields {
		v := float64(f.value)
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("cell %s = %v outside [0, 1]", f.name, f.value)
		}
	}
	if c.Biome >= biomeCount {
		return fmt.Errorf("cell biome %d is not a known biome", c.Biome)
	}
	if c.Terrain >= terrainCount {
		return fmt.Errorf("cell terrain %d is not a known terrain", c.Terrain)
	}
	return nil
}

// Clamp01 narrows v into a cell scalar.
func Clamp01(v float64) float32 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return float32(v)
}
