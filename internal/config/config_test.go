package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestValidateDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
}

func TestValidateDetectsInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero continent scale",
			mutate: func(cfg *Config) {
				cfg.Continent.Scale = 0
			},
			wantErr: "continent.scale must be positive",
		},
		{
			name: "inverted falloff band",
			mutate: func(cfg *Config) {
				cfg.Continent.BaseFalloffMin = 0.8
				cfg.Continent.BaseFalloffMax = 0.4
			},
			wantErr: "continent.base_falloff_min must be below base_falloff_max within [0, 1]",
		},
		{
			name: "unknown continent shape",
			mutate: func(cfg *Config) {
				cfg.Continent.Shape = "triangle"
			},
			wantErr: `continent.shape "triangle" must be square or hexagon`,
		},
		{
			name: "water above world height",
			mutate: func(cfg *Config) {
				cfg.World.WaterLevel = cfg.World.Height
			},
			wantErr: "world.water_level must lie within [0, height)",
		},
		{
			name: "inverted lake sizes",
			mutate: func(cfg *Config) {
				cfg.Rivers.Lakes.SizeMin = 50
				cfg.Rivers.Lakes.SizeMax = 10
			},
			wantErr: "rivers.lakes size range is invalid",
		},
		{
			name: "bank wider than valley",
			mutate: func(cfg *Config) {
				cfg.Rivers.Primary.BankWidth = cfg.Rivers.Primary.ValleyWidth + 1
			},
			wantErr: "rivers.primary widths must satisfy 0 < bed <= bank <= valley",
		},
		{
			name: "inverted strata layers",
			mutate: func(cfg *Config) {
				cfg.Geology.Rock.MinLayers = 4
				cfg.Geology.Rock.MaxLayers = 2
			},
			wantErr: "geology.rock layer range is invalid",
		},
		{
			name: "empty strata materials",
			mutate: func(cfg *Config) {
				cfg.Geology.Clay.Materials = nil
			},
			wantErr: "geology.clay.materials must not be empty",
		},
		{
			name: "zero octaves",
			mutate: func(cfg *Config) {
				cfg.Terrain.Octaves = 0
			},
			wantErr: "terrain.octaves must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("unexpected error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNormalizeClampsGenerationSurface(t *testing.T) {
	cfg := Default()
	cfg.Generation.ThreadCount = 1000
	cfg.Generation.BatchCount = -3
	cfg.World.TileSize = 99
	cfg.World.Border = -1
	cfg.Normalize()

	if cfg.Generation.ThreadCount != MaxThreadCount {
		t.Fatalf("thread count not clamped: %d", cfg.Generation.ThreadCount)
	}
	if cfg.Generation.BatchCount != MinBatchCount {
		t.Fatalf("batch count not clamped: %d", cfg.Generation.BatchCount)
	}
	if cfg.World.TileSize != MaxTileSize {
		t.Fatalf("tile size not clamped: %d", cfg.World.TileSize)
	}
	if cfg.World.Border != 0 {
		t.Fatalf("border not clamped: %d", cfg.World.Border)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("normalized config should validate: %v", err)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("default configuration mismatch:\nwant: %#v\n got: %#v", want, cfg)
	}
}

func TestLoadReadsJSONFileAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.World.Seed = 99
	cfg.Continent.Shape = "hexagon"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
	}
}

func TestLoadReadsPartialYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.yaml")
	doc := `
world:
  seed: 4242
generation:
  batch_count: 500
cache:
  expire: 2m
  interval: 15s
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.World.Seed != 4242 {
		t.Fatalf("seed not decoded: %d", got.World.Seed)
	}
	if got.Generation.BatchCount != MaxBatchCount {
		t.Fatalf("batch count should clamp to %d, got %d", MaxBatchCount, got.Generation.BatchCount)
	}
	if got.Cache.Expire.Duration() != 2*time.Minute || got.Cache.Interval.Duration() != 15*time.Second {
		t.Fatalf("durations not decoded: %+v", got.Cache)
	}
	if got.Continent.Threshold != Default().Continent.Threshold {
		t.Fatalf("untouched sections should keep defaults")
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	doc := "continent:\n  shape: triangle\n  scael: 10\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected schema violation")
	}
	if !strings.HasPrefix(err.Error(), "schema:") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Continent.Scale = -5

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err = Load(path)
	if err == nil {
		t.Fatalf("expected load to fail")
	}
	if !strings.Contains(err.Error(), "validate config: continent.scale must be positive") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHashIgnoresScheduling(t *testing.T) {
	a := Default()
	b := Default()
	b.Generation.ThreadCount = 3
	b.Cache.Expire = Duration(time.Hour)
	if a.Hash() != b.Hash() {
		t.Fatalf("scheduling settings should not change the hash")
	}
	b.World.Seed++
	if a.Hash() == b.Hash() {
		t.Fatalf("seed should change the hash")
	}
}
