package cell

// TerrainType is the discrete terrain tag assigned by the populator.
type TerrainType uint8

const (
	TerrainNone TerrainType = iota
	TerrainDeepOcean
	TerrainOcean
	TerrainCoast
	TerrainBeach
	TerrainPlains
	TerrainHills
	TerrainMountains
	TerrainRiver
	TerrainLake
	TerrainWetland
	terrainCount
)

var terrainNames = [terrainCount]string{
	"none", "deep_ocean", "ocean", "coast", "beach", "plains",
	"hills", "mountains", "river", "lake", "wetland",
}

func (t TerrainType) String() string {
	if t < terrainCount {
		return terrainNames[t]
	}
	return "unknown"
}

// IsWater reports whether the tag describes a submerged surface.
func (t TerrainType) IsWater() bool {
	switch t {
	case TerrainDeepOcean, TerrainOcean, TerrainCoast, TerrainRiver, TerrainLake:
		return true
	}
	return false
}

// BiomeType is the climate classification of a cell.
type BiomeType uint8

const (
	BiomeNone BiomeType = iota
	BiomeOcean
	BiomeTundra
	BiomeTaiga
	BiomeColdSteppe
	BiomeGrassland
	BiomeTemperateForest
	BiomeSteppe
	BiomeDesert
	BiomeSavanna
	BiomeRainforest
	BiomeWetland
	biomeCount
)

var biomeNames = [biomeCount]string{
	"none", "ocean", "tundra", "taiga", "cold_steppe", "grassland",
	"temperate_forest", "steppe", "desert", "savanna", "rainforest", "wetland",
}

func (b BiomeType) String() string {
	if b < biomeCount {
		return biomeNames[b]
	}
	return "unknown"
}

// BiomeGroup buckets biomes that share a geology table.
type BiomeGroup uint8

const (
	GroupTemperate BiomeGroup = iota
	GroupCold
	GroupArid
	GroupTropical
	GroupAquatic
	GroupCount
)

func (b BiomeType) Group() BiomeGroup {
	switch b {
	case BiomeTundra, BiomeTaiga, BiomeColdSteppe:
		return GroupCold
	case BiomeSteppe, BiomeDesert, BiomeSavanna:
		return GroupArid
	case BiomeRainforest, BiomeWetland:
		return GroupTropical
	case BiomeOcean:
		return GroupAquatic
	}
	return GroupTemperate
}

// Classify maps a (moisture, temperature) pair in [0, 1] to a land biome.
func Classify(moisture, temperature float32) BiomeType {
	switch {
	case temperature < 0.25:
		if moisture < 0.4 {
			return BiomeTundra
		}
		return BiomeTaiga
	case moisture > 0.9:
		return BiomeWetland
	case temperature < 0.5:
		switch {
		case moisture < 0.3:
			return BiomeColdSteppe
		case moisture < 0.6:
			return BiomeGrassland
		}
		return BiomeTemperateForest
	case temperature < 0.75:
		switch {
		case moisture < 0.25:
			return BiomeSteppe
		case moisture < 0.55:
			return BiomeGrassland
		}
		return BiomeTemperateForest
	}
	switch {
	case moisture < 0.3:
		return BiomeDesert
	case moisture < 0.6:
		return BiomeSavanna
	}
	return BiomeRainforest
}
