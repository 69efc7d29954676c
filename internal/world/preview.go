package world

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"worldgen/internal/cell"
	"worldgen/internal/noise"
)

const previewAmbientLight = 0.35

// terrainColors maps terrain tags to preview colours.
var terrainColors = map[cell.TerrainType]string{
	cell.TerrainDeepOcean: "#0b2a5b",
	cell.TerrainOcean:     "#1c4f8c",
	cell.TerrainCoast:     "#3a7cb8",
	cell.TerrainBeach:     "#d9c98c",
	cell.TerrainPlains:    "#6da44a",
	cell.TerrainHills:     "#58843b",
	cell.TerrainMountains: "#8a8178",
	cell.TerrainRiver:     "#3f8fd6",
	cell.TerrainLake:      "#2f76b5",
	cell.TerrainWetland:   "#4d7a5a",
}

// biomeTints overrides land colours where the biome reads more clearly than
// the relief class.
var biomeTints = map[cell.BiomeType]string{
	cell.BiomeTundra:     "#c9d3d6",
	cell.BiomeTaiga:      "#44664a",
	cell.BiomeDesert:     "#e0c483",
	cell.BiomeSavanna:    "#b3a85a",
	cell.BiomeRainforest: "#2f7a33",
}

// RenderPreview draws a top-down hill-shaded image of the region interior,
// one pixel per cell.
func RenderPreview(r *Region) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.size, r.size))
	r.Iterate(func(c *cell.Cell, dx, dz int) {
		base := resolveCellColor(c)
		if c.Terrain.IsWater() {
			img.SetNRGBA(dx, dz, applyLighting(base, 0.6+0.4*float64(c.Value)))
			return
		}
		img.SetNRGBA(dx, dz, applyLighting(base, previewAmbientLight+0.65*shade(r, dx, dz)))
	})
	return img
}

// shade lights a cell from the north west using its neighbours' elevation.
func shade(r *Region, dx, dz int) float64 {
	west, north := r.Cell(dx-1, dz), r.Cell(dx, dz-1)
	here := r.Cell(dx, dz)
	if west == nil {
		west = here
	}
	if north == nil {
		north = here
	}
	slope := (float64(here.Value-west.Value) + float64(here.Value-north.Value)) * 64 / r.step
	return noise.Clamp(0.7+slope, 0, 1)
}

func resolveCellColor(c *cell.Cell) color.NRGBA {
	if !c.Terrain.IsWater() && c.Terrain != cell.TerrainBeach {
		if hex, ok := biomeTints[c.Biome]; ok {
			if col, ok := parseHexColor(hex); ok {
				return col
			}
		}
	}
	if hex, ok := terrainColors[c.Terrain]; ok {
		if col, ok := parseHexColor(hex); ok {
			return col
		}
	}
	return color.NRGBA{R: 128, G: 128, B: 128, A: 255}
}

// SaveRegionPreview writes region_<rx>_<rz>.png into outputDir and returns
// its path.
func SaveRegionPreview(r *Region, outputDir string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("region is nil")
	}
	if err := ensurePreviewDir(outputDir); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, fmt.Sprintf("region_%d_%d.png", r.Coord.X, r.Coord.Z))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, RenderPreview(r)); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return path, nil
}

func parseHexColor(value string) (color.NRGBA, bool) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(trimmed) != 6 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

func applyLighting(base color.NRGBA, factor float64) color.NRGBA {
	factor = noise.Clamp(factor, 0, 1)
	r := uint8(math.Round(float64(base.R) * factor))
	g := uint8(math.Round(float64(base.G) * factor))
	b := uint8(math.Round(float64(base.B) * factor))
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func ensurePreviewDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory is empty")
	}
	return os.MkdirAll(dir, 0o755)
}
