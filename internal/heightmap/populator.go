// Package heightmap composes the continent, terrain, climate and river
// generators into populated cells.
package heightmap

import (
	"math"

	"worldgen/internal/cell"
	"worldgen/internal/config"
	"worldgen/internal/continent"
	"worldgen/internal/noise"
	"worldgen/internal/rivers"
)

const (
	plainsSeed = 10 + iota
	hillsSeed
	mountainSeed
	regionSeed
	mountainMaskSeed
	moistureSeed
	temperatureSeed
	biomeSeed
	biomeWarpX
	biomeWarpZ
	peakSeed
	seabedSeed
)

const (
	peakTemplateSize = 33
	peakScale        = 384.0
	peakWeight       = 0.85
)

// coastBand is the raw continent range either side of the threshold tagged
// as beach on land and coast offshore.
const coastBand = 0.03

// seabedRipple bounds the seabed noise as a fraction of the water level.
const seabedRipple = 0.03

// Populator fills cells in place. It holds only immutable generators and is
// safe for concurrent use.
type Populator struct {
	continent *continent.Generator
	rivers    *rivers.Network

	// elevation is the land height graph before the continent falloff
	elevation         noise.Module
	seabed            noise.Module
	regionMask        noise.Module
	mountainMask      noise.Module
	mountainThreshold float64

	moisture    noise.Module
	temperature noise.Module
	biomes      *noise.Cellular
	biomeWarp   noise.Warp
	lapseRate   float64

	waterLevel float64
	height     float64
}

// New builds a populator. rivers may be nil to skip carving.
func New(seed int64, cfg *config.Config, cont *continent.Generator, network *rivers.Network) *Populator {
	t := cfg.Terrain
	cl := cfg.Climate
	regionMask := noise.NewPerlin(seed+regionSeed, t.RegionFrequency, 2)
	mountainMask := noise.NewSimplex(seed+mountainMaskSeed, t.MountainFrequency, 2, 0.5, 2)
	lowlands := noise.Blend{
		Control: regionMask,
		Low:     noise.Scale{Source: noise.NewSimplex(seed+plainsSeed, t.Frequency, t.Octaves, t.Persistence, t.Lacunarity), Factor: t.PlainsHeight},
		High:    noise.Scale{Source: noise.NewSimplex(seed+hillsSeed, t.Frequency*2, t.Octaves, t.Persistence, t.Lacunarity), Factor: t.HillsHeight},
		Lower:   0.35,
		Upper:   0.65,
	}
	mountains := noise.Scale{
		Source: noise.Max{
			noise.NewRidge(seed+mountainSeed, t.Frequency, t.Octaves, t.Persistence, t.Lacunarity),
			noise.Scale{Source: newPeaks(seed + peakSeed), Factor: peakWeight},
		},
		Factor: t.MountainHeight,
	}
	seabed := noise.Scale{Source: noise.NewSimplex(seed+seabedSeed, t.Frequency*4, 2, 0.5, 2), Factor: 2 * seabedRipple}

	return &Populator{
		continent: cont,
		rivers:    network,

		elevation: noise.Blend{
			Control: mountainMask,
			Low:     lowlands,
			High:    mountains,
			Lower:   t.MountainThreshold - 0.1,
			Upper:   t.MountainThreshold + 0.1,
		},
		seabed: noise.Clamped{
			Source: noise.Bias{Source: seabed, Offset: -seabedRipple},
			Min:    -seabedRipple,
			Max:    seabedRipple,
		},
		regionMask:        regionMask,
		mountainMask:      mountainMask,
		mountainThreshold: t.MountainThreshold,

		moisture:    noise.NewSimplex(seed+moistureSeed, cl.MoistureFrequency, 3, 0.5, 2),
		temperature: noise.NewPerlin(seed+temperatureSeed, cl.TemperatureFrequency, 2),
		biomes: &noise.Cellular{
			Seed:   seed + biomeSeed,
			Scale:  cl.BiomeSize,
			Jitter: 0.85,
			Shape:  noise.ShapeSquare,
		},
		biomeWarp: noise.Warp{
			DX:       noise.NewSimplex(seed+biomeWarpX, 1/cl.BiomeSize, 2, 0.5, 2),
			DZ:       noise.NewSimplex(seed+biomeWarpZ, 1/cl.BiomeSize, 2, 0.5, 2),
			Strength: cl.BiomeWarp,
		},
		lapseRate: cl.LapseRate,

		waterLevel: float64(cfg.World.WaterLevel) / float64(cfg.World.Height),
		height:     float64(cfg.World.Height),
	}
}

// newPeaks bakes a single seeded peak into every orientation. The peak falls
// to zero at its cell edges so neighbouring stamps join without seams.
func newPeaks(seed int64) noise.Module {
	shape := noise.NewSimplex(seed, 4.0/peakTemplateSize, 3, 0.5, 2)
	half := float64(peakTemplateSize-1) / 2
	peak := noise.NewTemplate(peakTemplateSize, func(x, z int) float64 {
		dx, dz := (float64(x)-half)/half, (float64(z)-half)/half
		falloff := 1 - math.Hypot(dx, dz)
		if falloff <= 0 {
			return 0
		}
		return falloff * falloff * (0.6 + 0.4*shape.Get(float64(x), float64(z)))
	})
	return noise.Stamp{Table: noise.Bake(peak), Seed: seed, Scale: peakScale}
}

// WaterLevel is the normalized sea surface.
func (p *Populator) WaterLevel() float64 { return p.waterLevel }

// Height is the world height in blocks.
func (p *Populator) Height() float64 { return p.height }

type masks struct {
	raw      float64
	land     bool
	region   float64 // hills blend
	mountain float64
}

func (p *Populator) sampleMasks(c *cell.Cell, x, z float64) masks {
	p.continent.Apply(c, x, z)
	raw := float64(c.ContinentEdge)
	return masks{
		raw:      raw,
		land:     p.continent.IsLand(raw),
		region:   noise.SmoothStep(0.35, 0.65, p.regionMask.Get(x, z)),
		mountain: noise.SmoothStep(p.mountainThreshold-0.1, p.mountainThreshold+0.1, p.mountainMask.Get(x, z)),
	}
}

// Apply populates every field of c for world (x, z) except the neighbour
// derived gradient, erosion and sediment, which Filters compute.
func (p *Populator) Apply(c *cell.Cell, x, z float64) {
	if c.IsAbsent() {
		return
	}
	m := p.sampleMasks(c, x, z)
	c.RegionMask = cell.Clamp01(m.region)
	c.Mask = c.Continent

	if m.land {
		shore := p.waterLevel + 1/p.height
		c.Value = cell.Clamp01(shore + (1-shore)*p.elevation.Get(x, z)*float64(c.Continent))
	} else {
		t := noise.SmoothStep(0, p.continent.Threshold(), m.raw)
		c.Value = cell.Clamp01(p.waterLevel * (0.35 + 0.6*t + p.seabed.Get(x, z)))
	}

	p.applyClimate(c, x, z, m.land)
	lake := false
	if m.land && p.rivers != nil {
		lake = p.rivers.Apply(c, x, z).Lake
		if wet := 0.9 * (1 - float64(c.RiverMask)); wet > float64(c.Moisture) {
			c.Moisture = cell.Clamp01(wet)
		}
	}
	c.Terrain = p.terrain(c, m, lake)
}

// Tag assigns only the terrain and biome tags of c.
func (p *Populator) Tag(c *cell.Cell, x, z float64) {
	if c.IsAbsent() {
		return
	}
	var scratch cell.Cell
	scratch.Reset()
	m := p.sampleMasks(&scratch, x, z)
	scratch.Biome = p.biomeAt(x, z, m.land, &scratch)
	c.Biome = scratch.Biome
	c.Terrain = p.terrain(&scratch, m, false)
}

func (p *Populator) applyClimate(c *cell.Cell, x, z float64, land bool) {
	c.Moisture = cell.Clamp01(p.moisture.Get(x, z))
	elevation := 0.0
	if land {
		elevation = (float64(c.Value) - p.waterLevel) / (1 - p.waterLevel)
	}
	c.Temperature = cell.Clamp01(p.temperature.Get(x, z) - p.lapseRate*elevation)
	c.Biome = p.biomeAt(x, z, land, c)
}

// biomeAt classifies the biome cell containing (x, z). Climate is sampled at
// the cell's feature point so a biome is uniform across its cell.
func (p *Populator) biomeAt(x, z float64, land bool, c *cell.Cell) cell.BiomeType {
	wx, wz := p.biomeWarp.Displace(x, z)
	s := p.biomes.Sample(wx, wz)
	c.BiomeIdentity = cell.Clamp01(s.Value())
	c.BiomeMask = cell.Clamp01(s.Edge() * 2)
	c.BiomeMoisture = cell.Clamp01(p.moisture.Get(s.PointX, s.PointZ))
	c.BiomeTemperature = cell.Clamp01(p.temperature.Get(s.PointX, s.PointZ))
	if !land {
		return cell.BiomeOcean
	}
	return cell.Classify(c.BiomeMoisture, c.BiomeTemperature)
}

func (p *Populator) terrain(c *cell.Cell, m masks, lake bool) cell.TerrainType {
	if !m.land {
		switch thr := p.continent.Threshold(); {
		case m.raw < thr*0.5:
			return cell.TerrainDeepOcean
		case m.raw >= thr-coastBand:
			return cell.TerrainCoast
		}
		return cell.TerrainOcean
	}
	if c.RiverMask < 0.25 && float64(c.Value) <= p.waterLevel {
		if lake {
			return cell.TerrainLake
		}
		return cell.TerrainRiver
	}
	switch {
	case m.raw < p.continent.Threshold()+coastBand:
		return cell.TerrainBeach
	case m.mountain > 0.5:
		return cell.TerrainMountains
	case c.Biome == cell.BiomeWetland:
		return cell.TerrainWetland
	case m.region > 0.5:
		return cell.TerrainHills
	}
	return cell.TerrainPlains
}
