package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a config-friendly wrapper around time.Duration that accepts human
// readable strings such as "30s" in configuration files while still allowing
// numeric representations (nanoseconds) when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML encodes the duration using the canonical string representation.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got kind %d", node.Kind)
	}
	if node.Tag == "!!int" {
		var n int64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures every tunable of the generation core. It is read once when a
// generator context is built and never mutated afterwards.
type Config struct {
	World      WorldConfig      `yaml:"world" json:"world"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Continent  ContinentConfig  `yaml:"continent" json:"continent"`
	Terrain    TerrainConfig    `yaml:"terrain" json:"terrain"`
	Climate    ClimateConfig    `yaml:"climate" json:"climate"`
	Rivers     RiverConfig      `yaml:"rivers" json:"rivers"`
	Geology    GeologyConfig    `yaml:"geology" json:"geology"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
}

type WorldConfig struct {
	Seed       int64 `yaml:"seed" json:"seed"`
	Height     int   `yaml:"height" json:"height"`           // blocks
	WaterLevel int   `yaml:"water_level" json:"water_level"` // blocks
	TileSize   int   `yaml:"tile_size" json:"tile_size"`     // region side length in chunks
	Border     int   `yaml:"border" json:"border"`           // region border in cells
}

type GenerationConfig struct {
	ThreadCount     int  `yaml:"thread_count" json:"thread_count"` // 0 selects runtime.NumCPU
	Batching        bool `yaml:"batching" json:"batching"`
	BatchCount      int  `yaml:"batch_count" json:"batch_count"`
	PoolCapacity    int  `yaml:"pool_capacity" json:"pool_capacity"`
	RegionCacheSize int  `yaml:"region_cache_size" json:"region_cache_size"`
}

type ContinentConfig struct {
	Scale          float64 `yaml:"scale" json:"scale"` // feature cell size in blocks
	Jitter         float64 `yaml:"jitter" json:"jitter"`
	Shape          string  `yaml:"shape" json:"shape"` // "square" or "hexagon"
	Threshold      float64 `yaml:"threshold" json:"threshold"`
	BaseFalloffMin float64 `yaml:"base_falloff_min" json:"base_falloff_min"`
	BaseFalloffMax float64 `yaml:"base_falloff_max" json:"base_falloff_max"`
	WarpScale      float64 `yaml:"warp_scale" json:"warp_scale"`
	WarpStrength   float64 `yaml:"warp_strength" json:"warp_strength"`
}

type TerrainConfig struct {
	Frequency         float64 `yaml:"frequency" json:"frequency"`
	Octaves           int     `yaml:"octaves" json:"octaves"`
	Persistence       float64 `yaml:"persistence" json:"persistence"`
	Lacunarity        float64 `yaml:"lacunarity" json:"lacunarity"`
	RegionFrequency   float64 `yaml:"region_frequency" json:"region_frequency"`
	MountainFrequency float64 `yaml:"mountain_frequency" json:"mountain_frequency"`
	MountainThreshold float64 `yaml:"mountain_threshold" json:"mountain_threshold"`
	PlainsHeight      float64 `yaml:"plains_height" json:"plains_height"`
	HillsHeight       float64 `yaml:"hills_height" json:"hills_height"`
	MountainHeight    float64 `yaml:"mountain_height" json:"mountain_height"`
}

type ClimateConfig struct {
	MoistureFrequency    float64 `yaml:"moisture_frequency" json:"moisture_frequency"`
	TemperatureFrequency float64 `yaml:"temperature_frequency" json:"temperature_frequency"`
	BiomeSize            float64 `yaml:"biome_size" json:"biome_size"`
	BiomeWarp            float64 `yaml:"biome_warp" json:"biome_warp"`
	LapseRate            float64 `yaml:"lapse_rate" json:"lapse_rate"` // temperature loss at max elevation
}

type RiverSettings struct {
	Count       int     `yaml:"count" json:"count"`
	BedWidth    float64 `yaml:"bed_width" json:"bed_width"`
	BankWidth   float64 `yaml:"bank_width" json:"bank_width"`
	ValleyWidth float64 `yaml:"valley_width" json:"valley_width"`
	Depth       float64 `yaml:"depth" json:"depth"` // blocks
	Fade        float64 `yaml:"fade" json:"fade"`   // fraction of length over which the source narrows
}

type LakeSettings struct {
	Chance           float64 `yaml:"chance" json:"chance"`
	SizeMin          float64 `yaml:"size_min" json:"size_min"`
	SizeMax          float64 `yaml:"size_max" json:"size_max"`
	Depth            float64 `yaml:"depth" json:"depth"`
	BankMin          float64 `yaml:"bank_min" json:"bank_min"`
	BankMax          float64 `yaml:"bank_max" json:"bank_max"`
	MinStartDistance float64 `yaml:"min_start_distance" json:"min_start_distance"` // fraction of river length
	MaxStartDistance float64 `yaml:"max_start_distance" json:"max_start_distance"`
}

type RiverConfig struct {
	RegionSize     int           `yaml:"region_size" json:"region_size"` // blocks
	Frequency      float64       `yaml:"frequency" json:"frequency"`
	Erosion        float64       `yaml:"erosion" json:"erosion"`
	TertiaryRadius int           `yaml:"tertiary_radius" json:"tertiary_radius"`
	Primary        RiverSettings `yaml:"primary" json:"primary"`
	Secondary      RiverSettings `yaml:"secondary" json:"secondary"`
	Tertiary       RiverSettings `yaml:"tertiary" json:"tertiary"`
	Lakes          LakeSettings  `yaml:"lakes" json:"lakes"`
}

type StrataCategory struct {
	Materials []string `yaml:"materials" json:"materials"`
	MinLayers int      `yaml:"min_layers" json:"min_layers"`
	MaxLayers int      `yaml:"max_layers" json:"max_layers"`
	MinDepth  float64  `yaml:"min_depth" json:"min_depth"`
	MaxDepth  float64  `yaml:"max_depth" json:"max_depth"`
}

type GeologyConfig struct {
	Variants     int            `yaml:"variants" json:"variants"`
	Scale        float64        `yaml:"scale" json:"scale"`
	WarpScale    float64        `yaml:"warp_scale" json:"warp_scale"`
	WarpStrength float64        `yaml:"warp_strength" json:"warp_strength"`
	Soil         StrataCategory `yaml:"soil" json:"soil"`
	Sediment     StrataCategory `yaml:"sediment" json:"sediment"`
	Clay         StrataCategory `yaml:"clay" json:"clay"`
	Rock         StrataCategory `yaml:"rock" json:"rock"`
}

type CacheConfig struct {
	Expire   Duration `yaml:"expire" json:"expire"`
	Interval Duration `yaml:"interval" json:"interval"`
}

// Load reads configuration from a YAML or JSON file if provided. An empty path
// returns defaults. The document is checked against the embedded schema
// before it is decoded over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	isJSON := strings.EqualFold(filepath.Ext(path), ".json")
	if err := validateDocument(data, isJSON); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	if isJSON {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:       1337,
			Height:     256,
			WaterLevel: 63,
			TileSize:   16,
			Border:     8,
		},
		Generation: GenerationConfig{
			ThreadCount:     defaultThreadCount(),
			Batching:        true,
			BatchCount:      6,
			PoolCapacity:    100,
			RegionCacheSize: 32,
		},
		Continent: ContinentConfig{
			Scale:          3000,
			Jitter:         0.7,
			Shape:          "square",
			Threshold:      0.525,
			BaseFalloffMin: 0.45,
			BaseFalloffMax: 0.75,
			WarpScale:      800,
			WarpStrength:   350,
		},
		Terrain: TerrainConfig{
			Frequency:         0.004,
			Octaves:           4,
			Persistence:       0.5,
			Lacunarity:        2.0,
			RegionFrequency:   0.0012,
			MountainFrequency: 0.0025,
			MountainThreshold: 0.6,
			PlainsHeight:      0.08,
			HillsHeight:       0.25,
			MountainHeight:    0.7,
		},
		Climate: ClimateConfig{
			MoistureFrequency:    0.0007,
			TemperatureFrequency: 0.0005,
			BiomeSize:            350,
			BiomeWarp:            80,
			LapseRate:            0.45,
		},
		Rivers: RiverConfig{
			RegionSize:     1024,
			Frequency:      1.0,
			Erosion:        0.15,
			TertiaryRadius: 12,
			Primary: RiverSettings{
				Count:       2,
				BedWidth:    6,
				BankWidth:   18,
				ValleyWidth: 140,
				Depth:       8,
				Fade:        0.2,
			},
			Secondary: RiverSettings{
				Count:       3,
				BedWidth:    4,
				BankWidth:   12,
				ValleyWidth: 90,
				Depth:       6,
				Fade:        0.3,
			},
			Tertiary: RiverSettings{
				Count:       4,
				BedWidth:    2,
				BankWidth:   8,
				ValleyWidth: 50,
				Depth:       4,
				Fade:        0.4,
			},
			Lakes: LakeSettings{
				Chance:           0.3,
				SizeMin:          20,
				SizeMax:          60,
				Depth:            8,
				BankMin:          2,
				BankMax:          6,
				MinStartDistance: 0.2,
				MaxStartDistance: 0.6,
			},
		},
		Geology: GeologyConfig{
			Variants:     100,
			Scale:        600,
			WarpScale:    200,
			WarpStrength: 90,
			Soil: StrataCategory{
				Materials: []string{"dirt", "coarse_dirt"},
				MinLayers: 1, MaxLayers: 2,
				MinDepth: 0.05, MaxDepth: 0.12,
			},
			Sediment: StrataCategory{
				Materials: []string{"sand", "gravel", "red_sand"},
				MinLayers: 1, MaxLayers: 2,
				MinDepth: 0.05, MaxDepth: 0.15,
			},
			Clay: StrataCategory{
				Materials: []string{"clay", "terracotta", "white_terracotta", "orange_terracotta"},
				MinLayers: 1, MaxLayers: 3,
				MinDepth: 0.05, MaxDepth: 0.2,
			},
			Rock: StrataCategory{
				Materials: []string{"stone", "andesite", "diorite", "granite", "tuff"},
				MinLayers: 2, MaxLayers: 5,
				MinDepth: 0.1, MaxDepth: 0.4,
			},
		},
		Cache: CacheConfig{
			Expire:   Duration(60 * time.Second),
			Interval: Duration(30 * time.Second),
		},
	}
}

// Clamping bounds for the integer generation surface.
const (
	MinThreadCount = 1
	MaxThreadCount = 64
	MinBatchCount  = 1
	MaxBatchCount  = 256
	MinTileSize    = 2
	MaxTileSize    = 32
	MaxBorder      = 64
)

// Normalize clamps the integer generation surface into range. Out-of-range
// thread, batch and tile values are clamped rather than rejected.
func (c *Config) Normalize() {
	if c.Generation.ThreadCount <= 0 {
		c.Generation.ThreadCount = defaultThreadCount()
	}
	c.Generation.ThreadCount = clampInt(c.Generation.ThreadCount, MinThreadCount, MaxThreadCount)
	c.Generation.BatchCount = clampInt(c.Generation.BatchCount, MinBatchCount, MaxBatchCount)
	c.World.TileSize = clampInt(c.World.TileSize, MinTileSize, MaxTileSize)
	c.World.Border = clampInt(c.World.Border, 0, MaxBorder)
	if c.Generation.PoolCapacity < 0 {
		c.Generation.PoolCapacity = 0
	}
	if c.Geology.Variants <= 0 {
		c.Geology.Variants = 1
	}
}

// RegionSize is the side length of a generation region in cells.
func (c *Config) RegionSize() int {
	return c.World.TileSize * 16
}

func (c *Config) Validate() error {
	if c.World.Height <= 0 {
		return errors.New("world.height must be positive")
	}
	if c.World.WaterLevel < 0 || c.World.WaterLevel >= c.World.Height {
		return errors.New("world.water_level must lie within [0, height)")
	}
	if err := c.Continent.validate(); err != nil {
		return err
	}
	if err := c.Terrain.validate(); err != nil {
		return err
	}
	if err := c.Climate.validate(); err != nil {
		return err
	}
	if err := c.Rivers.validate(); err != nil {
		return err
	}
	if err := c.Geology.validate(); err != nil {
		return err
	}
	if c.Cache.Expire < 0 || c.Cache.Interval < 0 {
		return errors.New("cache durations cannot be negative")
	}
	return nil
}

func (c ContinentConfig) validate() error {
	if c.Scale <= 0 {
		return errors.New("continent.scale must be positive")
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		return errors.New("continent.jitter must lie within [0, 1]")
	}
	if c.Shape != "square" && c.Shape != "hexagon" {
		return fmt.Errorf("continent.shape %q must be square or hexagon", c.Shape)
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return errors.New("continent.threshold must lie within (0, 1)")
	}
	if c.BaseFalloffMin < 0 || c.BaseFalloffMax > 1 || c.BaseFalloffMin >= c.BaseFalloffMax {
		return errors.New("continent.base_falloff_min must be below base_falloff_max within [0, 1]")
	}
	if c.WarpStrength < 0 {
		return errors.New("continent.warp_strength cannot be negative")
	}
	if c.WarpStrength > 0 && c.WarpScale <= 0 {
		return errors.New("continent.warp_scale must be positive when warping")
	}
	return nil
}

func (t TerrainConfig) validate() error {
	if t.Frequency <= 0 || t.RegionFrequency <= 0 || t.MountainFrequency <= 0 {
		return errors.New("terrain frequencies must be positive")
	}
	if t.Octaves <= 0 {
		return errors.New("terrain.octaves must be positive")
	}
	if t.Persistence <= 0 || t.Lacunarity <= 0 {
		return errors.New("terrain persistence and lacunarity must be positive")
	}
	if t.MountainThreshold < 0 || t.MountainThreshold >= 1 {
		return errors.New("terrain.mountain_threshold must lie within [0, 1)")
	}
	for _, h := range []float64{t.PlainsHeight, t.HillsHeight, t.MountainHeight} {
		if h < 0 || h > 1 {
			return errors.New("terrain heights must lie within [0, 1]")
		}
	}
	return nil
}

func (c ClimateConfig) validate() error {
	if c.MoistureFrequency <= 0 || c.TemperatureFrequency <= 0 {
		return errors.New("climate frequencies must be positive")
	}
	if c.BiomeSize <= 0 {
		return errors.New("climate.biome_size must be positive")
	}
	if c.LapseRate < 0 || c.LapseRate > 1 {
		return errors.New("climate.lapse_rate must lie within [0, 1]")
	}
	return nil
}

func (r RiverConfig) validate() error {
	if r.RegionSize <= 0 {
		return errors.New("rivers.region_size must be positive")
	}
	if r.Frequency <= 0 {
		return errors.New("rivers.frequency must be positive")
	}
	if r.Erosion < 0 {
		return errors.New("rivers.erosion cannot be negative")
	}
	for name, s := range map[string]RiverSettings{"primary": r.Primary, "secondary": r.Secondary, "tertiary": r.Tertiary} {
		if err := s.validate(name); err != nil {
			return err
		}
	}
	l := r.Lakes
	if l.Chance < 0 || l.Chance > 1 {
		return errors.New("rivers.lakes.chance must lie within [0, 1]")
	}
	if l.SizeMin <= 0 || l.SizeMin > l.SizeMax {
		return errors.New("rivers.lakes size range is invalid")
	}
	if l.BankMin < 0 || l.BankMin > l.BankMax {
		return errors.New("rivers.lakes bank range is invalid")
	}
	if l.MinStartDistance < 0 || l.MaxStartDistance > 1 || l.MinStartDistance > l.MaxStartDistance {
		return errors.New("rivers.lakes start distance range is invalid")
	}
	if l.Depth < 0 {
		return errors.New("rivers.lakes.depth cannot be negative")
	}
	return nil
}

func (s RiverSettings) validate(name string) error {
	if s.Count < 0 {
		return fmt.Errorf("rivers.%s.count cannot be negative", name)
	}
	if s.BedWidth <= 0 || s.BedWidth > s.BankWidth || s.BankWidth > s.ValleyWidth {
		return fmt.Errorf("rivers.%s widths must satisfy 0 < bed <= bank <= valley", name)
	}
	if s.Depth < 0 {
		return fmt.Errorf("rivers.%s.depth cannot be negative", name)
	}
	if s.Fade < 0 || s.Fade > 1 {
		return fmt.Errorf("rivers.%s.fade must lie within [0, 1]", name)
	}
	return nil
}

func (g GeologyConfig) validate() error {
	if g.Scale <= 0 {
		return errors.New("geology.scale must be positive")
	}
	categories := []struct {
		name string
		cat  StrataCategory
	}{
		{"soil", g.Soil},
		{"sediment", g.Sediment},
		{"clay", g.Clay},
		{"rock", g.Rock},
	}
	for _, entry := range categories {
		c := entry.cat
		if len(c.Materials) == 0 {
			return fmt.Errorf("geology.%s.materials must not be empty", entry.name)
		}
		if c.MinLayers < 0 || c.MinLayers > c.MaxLayers {
			return fmt.Errorf("geology.%s layer range is invalid", entry.name)
		}
		if c.MinDepth <= 0 || c.MinDepth > c.MaxDepth {
			return fmt.Errorf("geology.%s depth range is invalid", entry.name)
		}
	}
	return nil
}

// Hash returns a stable digest of the settings that influence generated
// output. Scheduling and cache tuning are excluded since they never change
// cell values.
func (c *Config) Hash() string {
	shaped := *c
	shaped.Generation = GenerationConfig{}
	shaped.Cache = CacheConfig{}
	data, err := json.Marshal(&shaped)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func defaultThreadCount() int {
	return clampInt(runtime.NumCPU(), MinThreadCount, MaxThreadCount)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
