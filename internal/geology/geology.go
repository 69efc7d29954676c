package geology

import (
	"math/rand"

	"worldgen/internal/cell"
	"worldgen/internal/config"
	"worldgen/internal/noise"
)

const (
	noiseSeedOffset    = 3000
	selectorSeedOffset = 4000
	variantSeedOffset  = 5000
	warpSeedOffset     = 6000

	// repeatAttempts bounds the redraws spent avoiding the previous material.
	repeatAttempts = 3
)

// Source is the randomness Build consumes. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// Generator builds Strata from the configured categories.
type Generator struct {
	categories [4]config.StrataCategory
	noises     *[noiseTypeCount]noise.Module
}

func NewGenerator(seed int64, cfg config.GeologyConfig) *Generator {
	noises := &[noiseTypeCount]noise.Module{
		NoiseSimplex: noise.NewSimplex(seed+noiseSeedOffset, 1.0/48, 2, 0.5, 2),
		NoiseRidge:   noise.NewRidge(seed+noiseSeedOffset+1, 1.0/64, 2, 0.5, 2),
		NoisePerlin:  noise.NewPerlin(seed+noiseSeedOffset+2, 1.0/40, 2),
	}
	return &Generator{
		categories: [4]config.StrataCategory{cfg.Soil, cfg.Sediment, cfg.Clay, cfg.Rock},
		noises:     noises,
	}
}

// Build draws one Strata: soil, sediment, clay and rock layers in that order.
func (g *Generator) Build(rng Source) *Strata {
	var layers []Layer
	prev := ""
	for _, cat := range g.categories {
		if len(cat.Materials) == 0 {
			continue
		}
		count := cat.MinLayers
		if span := cat.MaxLayers - cat.MinLayers; span > 0 {
			count += rng.Intn(span + 1)
		}
		for i := 0; i < count; i++ {
			material := pickMaterial(rng, cat.Materials, prev)
			depth := cat.MinDepth
			if cat.MaxDepth > cat.MinDepth {
				depth += rng.Float64() * (cat.MaxDepth - cat.MinDepth)
			}
			layers = append(layers, Layer{
				Material: material,
				Depth:    depth,
				Noise:    NoiseType(rng.Intn(int(noiseTypeCount))),
			})
			prev = material
		}
	}
	if len(layers) == 0 {
		rock := g.categories[3]
		material := "stone"
		if len(rock.Materials) > 0 {
			material = rock.Materials[0]
		}
		layers = append(layers, Layer{Material: material, Depth: 1})
	}
	return newStrata(layers, g.noises)
}

// pickMaterial draws a material, retrying when it repeats prev. After
// repeatAttempts draws the repeat is accepted.
func pickMaterial(rng Source, materials []string, prev string) string {
	material := materials[rng.Intn(len(materials))]
	for attempt := 1; attempt < repeatAttempts && material == prev; attempt++ {
		material = materials[rng.Intn(len(materials))]
	}
	return material
}

// Geology holds pregenerated Strata variants per biome group and selects one
// by a warped cellular field uncorrelated with the continent cells.
type Geology struct {
	tables   [cell.GroupCount][]*Strata
	selector *noise.Cellular
	warp     noise.Warp
}

func New(seed int64, cfg config.GeologyConfig) *Geology {
	gen := NewGenerator(seed, cfg)
	variants := cfg.Variants
	if variants <= 0 {
		variants = 1
	}

	g := &Geology{
		selector: &noise.Cellular{
			Seed:   seed + selectorSeedOffset,
			Scale:  cfg.Scale,
			Jitter: 0.9,
			Shape:  noise.ShapeSquare,
		},
	}
	if cfg.WarpStrength > 0 && cfg.WarpScale > 0 {
		g.warp = noise.Warp{
			DX:       noise.NewSimplex(seed+warpSeedOffset, 1/cfg.WarpScale, 2, 0.5, 2),
			DZ:       noise.NewSimplex(seed+warpSeedOffset+1, 1/cfg.WarpScale, 2, 0.5, 2),
			Strength: cfg.WarpStrength,
		}
	}
	for group := cell.BiomeGroup(0); group < cell.GroupCount; group++ {
		rng := rand.New(rand.NewSource(seed + variantSeedOffset + int64(group)*7919))
		table := make([]*Strata, variants)
		for i := range table {
			table[i] = gen.Build(rng)
		}
		g.tables[group] = table
	}
	return g
}

// Variants returns how many Strata each biome group holds.
func (g *Geology) Variants() int { return len(g.tables[0]) }

// Select returns the Strata for a biome at world (x, z).
func (g *Geology) Select(biome cell.BiomeType, x, z float64) *Strata {
	table := g.tables[biome.Group()]
	wx, wz := g.warp.Displace(x, z)
	s := g.selector.Sample(wx, wz)
	return table[int(s.Hash%uint32(len(table)))]
}
